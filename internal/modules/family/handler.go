package family

import (
	"context"
	"errors"
	"fmt"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/omamori-dev/omamori-linebot-go/internal/bot"
	domerrors "github.com/omamori-dev/omamori-linebot-go/internal/errors"
	"github.com/omamori-dev/omamori-linebot-go/internal/intent"
	"github.com/omamori-dev/omamori-linebot-go/internal/lineutil"
	"github.com/omamori-dev/omamori-linebot-go/internal/logger"
	"github.com/omamori-dev/omamori-linebot-go/internal/responder"
	"github.com/omamori-dev/omamori-linebot-go/internal/storage"
)

const (
	ModuleName     = "family"
	PostbackPrefix = "family:"
)

const storeFailure = "家族の情報を更新できませんでした。しばらくしてからもう一度お試しください。"

// Handler serves FamilyCommand.
type Handler struct {
	service *Service
	filler  *responder.Filler
	logger  *logger.Logger
}

// NewHandler creates a family handler.
func NewHandler(service *Service, filler *responder.Filler, log *logger.Logger) *Handler {
	return &Handler{
		service: service,
		filler:  filler,
		logger:  log.WithModule(ModuleName),
	}
}

func (h *Handler) Name() string           { return ModuleName }
func (h *Handler) Kinds() []intent.Kind   { return []intent.Kind{intent.KindFamilyCommand} }
func (h *Handler) PostbackPrefix() string { return PostbackPrefix }

// Handle implements bot.Handler.
func (h *Handler) Handle(ctx context.Context, req bot.Request) ([]messaging_api.MessageInterface, error) {
	sub := req.Intent.Sub
	if sub == "" || sub == intent.FamilyInfo {
		return h.info(req), nil
	}
	if !req.IsGroup {
		return h.reply(req, responder.KeyFamilyNotGroup, responder.Vars{}), nil
	}

	switch sub {
	case intent.FamilyCreate:
		return h.create(ctx, req)
	case intent.FamilyInvite:
		return h.invite(req), nil
	case intent.FamilyJoin:
		return h.join(ctx, req)
	case intent.FamilyGoal:
		return h.setGoal(ctx, req)
	case intent.FamilyProgress:
		return h.progress(ctx, req)
	default:
		return h.info(req), nil
	}
}

// HandlePostback implements bot.PostbackHandler for the join and progress
// buttons.
func (h *Handler) HandlePostback(ctx context.Context, req bot.Request, data string) ([]messaging_api.MessageInterface, error) {
	action, _ := bot.SplitPostback(data)
	switch action {
	case intent.FamilyJoin, intent.FamilyProgress:
		req.Intent = intent.ParsedIntent{Kind: intent.KindFamilyCommand, Sub: action}
		return h.Handle(ctx, req)
	default:
		return nil, fmt.Errorf("%w: family postback %q", domerrors.ErrInvalidInput, data)
	}
}

func (h *Handler) create(ctx context.Context, req bot.Request) ([]messaging_api.MessageInterface, error) {
	group, err := h.service.Create(ctx, req.ChatID, req.UserID)
	if errors.Is(err, domerrors.ErrFamilyExists) {
		msgs := h.reply(req, responder.KeyFamilyExists, responder.Vars{Members: len(group.Members)})
		lineutil.AddQuickReplyToMessages(msgs, lineutil.QuickReplyFamilyProgressAction(), lineutil.QuickReplyFamilyJoinAction())
		return msgs, nil
	}
	if err != nil {
		return nil, domerrors.NewWrapper(ModuleName, "create").Wrap(err, storeFailure)
	}

	h.logger.WithField("members", len(group.Members)).InfoContext(ctx, "Family created")
	msgs := h.reply(req, responder.KeyFamilyCreated, responder.Vars{Members: len(group.Members)})
	lineutil.AddQuickReplyToMessages(msgs, h.joinQuickReply(), lineutil.QuickReplyFamilyProgressAction())
	return msgs, nil
}

func (h *Handler) invite(req bot.Request) []messaging_api.MessageInterface {
	msgs := h.reply(req, responder.KeyFamilyInvite, responder.Vars{})
	lineutil.AddQuickReplyToMessages(msgs, h.joinQuickReply())
	return msgs
}

func (h *Handler) join(ctx context.Context, req bot.Request) ([]messaging_api.MessageInterface, error) {
	if req.UserID == "" {
		return nil, domerrors.NewWrapper(ModuleName, "join").Wrap(domerrors.ErrInvalidInput, "送信者を確認できませんでした。")
	}
	group, added, err := h.service.Join(ctx, req.ChatID, req.UserID)
	if domerrors.IsNotFound(err) {
		return h.notFound(req), nil
	}
	if err != nil {
		return nil, domerrors.NewWrapper(ModuleName, "join").Wrap(err, storeFailure)
	}

	h.logger.WithField("new_member", added).DebugContext(ctx, "Family join")
	msgs := h.reply(req, responder.KeyFamilyJoined, responder.Vars{Members: len(group.Members)})
	lineutil.AddQuickReplyToMessages(msgs, lineutil.QuickReplyFamilyProgressAction())
	return msgs, nil
}

func (h *Handler) setGoal(ctx context.Context, req bot.Request) ([]messaging_api.MessageInterface, error) {
	if req.Intent.Amount <= 0 {
		return h.reply(req, responder.KeyFamilyGoalNeeded, responder.Vars{}), nil
	}
	group, err := h.service.SetGoal(ctx, req.ChatID, req.UserID, req.Intent.Amount)
	if domerrors.IsNotFound(err) {
		return h.notFound(req), nil
	}
	if err != nil {
		return nil, domerrors.NewWrapper(ModuleName, "set_goal").Wrap(err, storeFailure)
	}

	msgs := h.reply(req, responder.KeyFamilyGoalSet, varsOf(group))
	lineutil.AddQuickReplyToMessages(msgs, lineutil.QuickReplyFamilyProgressAction())
	return msgs, nil
}

func (h *Handler) progress(ctx context.Context, req bot.Request) ([]messaging_api.MessageInterface, error) {
	group, err := h.service.Get(ctx, req.ChatID)
	if domerrors.IsNotFound(err) {
		return h.notFound(req), nil
	}
	if err != nil {
		return nil, domerrors.NewWrapper(ModuleName, "progress").Wrap(err, "家族の情報を取得できませんでした。")
	}

	msg := ProgressMessage(h.filler, group, req.Sender)
	msgs := []messaging_api.MessageInterface{msg}
	if !group.HasMember(req.UserID) && req.UserID != "" {
		lineutil.AddQuickReplyToMessages(msgs, h.joinQuickReply())
	}
	return msgs, nil
}

func (h *Handler) info(req bot.Request) []messaging_api.MessageInterface {
	msgs := h.reply(req, responder.KeyFamilyInfo, responder.Vars{})
	if req.IsGroup {
		lineutil.AddQuickReplyToMessages(msgs, createQuickReply(), h.joinQuickReply(), lineutil.QuickReplyFamilyProgressAction())
	}
	return msgs
}

func (h *Handler) notFound(req bot.Request) []messaging_api.MessageInterface {
	msgs := h.reply(req, responder.KeyFamilyNotFound, responder.Vars{})
	lineutil.AddQuickReplyToMessages(msgs, createQuickReply())
	return msgs
}

func (h *Handler) reply(req bot.Request, key responder.Key, v responder.Vars) []messaging_api.MessageInterface {
	return []messaging_api.MessageInterface{
		lineutil.NewTextMessageWithConsistentSender(h.filler.Fill(key, v), req.Sender),
	}
}

// joinQuickReply is a postback so the group chat is not filled with
// "家族 参加" messages.
func (h *Handler) joinQuickReply() lineutil.QuickReplyItem {
	data, err := bot.BuildPostback(PostbackPrefix, intent.FamilyJoin)
	if err != nil {
		return lineutil.QuickReplyFamilyJoinAction()
	}
	return lineutil.QuickReplyItem{Action: lineutil.NewPostbackActionWithDisplayText("👪 家族に参加", "家族 参加", data)}
}

func createQuickReply() lineutil.QuickReplyItem {
	return lineutil.QuickReplyItem{Action: lineutil.NewMessageAction("👪 家族を作成", "家族 作成")}
}

func varsOf(g *storage.FamilyGroup) responder.Vars {
	return responder.Vars{
		TotalSaved: g.TotalSaved,
		GroupGoal:  g.SavingsGoal,
		Members:    len(g.Members),
	}
}
