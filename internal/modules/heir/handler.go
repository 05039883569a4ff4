// Package heir records the inheritance address of a user.
package heir

import (
	"context"
	"errors"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/omamori-dev/omamori-linebot-go/internal/bot"
	domerrors "github.com/omamori-dev/omamori-linebot-go/internal/errors"
	"github.com/omamori-dev/omamori-linebot-go/internal/intent"
	"github.com/omamori-dev/omamori-linebot-go/internal/lineutil"
	"github.com/omamori-dev/omamori-linebot-go/internal/logger"
	"github.com/omamori-dev/omamori-linebot-go/internal/responder"
	"github.com/omamori-dev/omamori-linebot-go/internal/storage"
)

const ModuleName = "heir"

// Handler serves SetHeir and InheritanceHelp.
type Handler struct {
	profiles storage.ProfileRepository
	filler   *responder.Filler
	logger   *logger.Logger
	now      func() time.Time
}

func NewHandler(profiles storage.ProfileRepository, filler *responder.Filler, log *logger.Logger) *Handler {
	return &Handler{
		profiles: profiles,
		filler:   filler,
		logger:   log.WithModule(ModuleName),
		now:      time.Now,
	}
}

func (h *Handler) Name() string { return ModuleName }

func (h *Handler) Kinds() []intent.Kind {
	return []intent.Kind{intent.KindSetHeir, intent.KindInheritanceHelp}
}

// Handle implements bot.Handler. An address that fails validation is
// answered with the inheritance help instead of an error.
func (h *Handler) Handle(ctx context.Context, req bot.Request) ([]messaging_api.MessageInterface, error) {
	if req.Intent.Kind != intent.KindSetHeir || !intent.IsAddress(req.Intent.Address) {
		return h.help(req), nil
	}
	if req.UserID == "" {
		return nil, domerrors.NewWrapper(ModuleName, "set_heir").
			Wrap(domerrors.ErrInvalidInput, "送信者を確認できませんでした。個別トークで送ってください。")
	}

	profile, err := h.profiles.GetProfile(ctx, req.UserID)
	if errors.Is(err, domerrors.ErrNotFound) {
		profile, err = storage.NewUserProfile(req.UserID), nil
	}
	if err != nil {
		return nil, domerrors.NewWrapper(ModuleName, "set_heir").Wrap(err, "相続人の登録に失敗しました。")
	}

	profile.HeirAddress = req.Intent.Address
	profile.UpdatedAt = h.now()
	if err := h.profiles.SaveProfile(ctx, profile); err != nil {
		return nil, domerrors.NewWrapper(ModuleName, "set_heir").Wrap(err, "相続人の登録に失敗しました。")
	}
	h.logger.InfoContext(ctx, "Heir address registered")

	shown := profile.HeirAddress
	if req.IsGroup {
		// Group members only see a masked address.
		shown = maskAddress(shown)
	}
	text := h.filler.Fill(responder.KeyHeirSet, responder.Vars{Address: shown})
	return []messaging_api.MessageInterface{lineutil.NewTextMessageWithConsistentSender(text, req.Sender)}, nil
}

func (h *Handler) help(req bot.Request) []messaging_api.MessageInterface {
	text := h.filler.Fill(responder.KeyInheritanceHelp, responder.Vars{})
	return []messaging_api.MessageInterface{
		lineutil.NewTextMessageWithQuickReply(text, req.Sender, lineutil.QuickReplyHelpAction()),
	}
}

// maskAddress keeps the 0x prefix, the next four and the last four digits.
func maskAddress(addr string) string {
	if len(addr) < 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}
