// Package savings registers personal savings goals and reports progress on
// them.
package savings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/omamori-dev/omamori-linebot-go/internal/bot"
	"github.com/omamori-dev/omamori-linebot-go/internal/config"
	domerrors "github.com/omamori-dev/omamori-linebot-go/internal/errors"
	"github.com/omamori-dev/omamori-linebot-go/internal/goal"
	"github.com/omamori-dev/omamori-linebot-go/internal/intent"
	"github.com/omamori-dev/omamori-linebot-go/internal/lineutil"
	"github.com/omamori-dev/omamori-linebot-go/internal/logger"
	"github.com/omamori-dev/omamori-linebot-go/internal/responder"
	"github.com/omamori-dev/omamori-linebot-go/internal/storage"
)

const (
	ModuleName     = "savings"
	PostbackPrefix = "savings:"

	actionDelete = "delete"
)

// Handler serves SetSavingsGoal and CheckProgress.
type Handler struct {
	profiles    storage.ProfileRepository
	families    storage.FamilyRepository
	filler      *responder.Filler
	defaultDays int
	logger      *logger.Logger
	now         func() time.Time
}

// NewHandler creates a savings handler. defaultDays is the horizon used when
// a goal names no timeline. families may be nil, in which case group
// progress replies leave out the family total.
func NewHandler(
	profiles storage.ProfileRepository,
	families storage.FamilyRepository,
	filler *responder.Filler,
	defaultDays int,
	log *logger.Logger,
) *Handler {
	return &Handler{
		profiles:    profiles,
		families:    families,
		filler:      filler,
		defaultDays: defaultDays,
		logger:      log.WithModule(ModuleName),
		now:         time.Now,
	}
}

func (h *Handler) Name() string { return ModuleName }

func (h *Handler) Kinds() []intent.Kind {
	return []intent.Kind{intent.KindSetSavingsGoal, intent.KindCheckProgress}
}

func (h *Handler) PostbackPrefix() string { return PostbackPrefix }

// Handle implements bot.Handler.
func (h *Handler) Handle(ctx context.Context, req bot.Request) ([]messaging_api.MessageInterface, error) {
	switch req.Intent.Kind {
	case intent.KindSetSavingsGoal:
		return h.setGoal(ctx, req)
	case intent.KindCheckProgress:
		return h.progress(ctx, req)
	default:
		return nil, fmt.Errorf("%w: %s", domerrors.ErrUnknownIntent, req.Intent.Kind)
	}
}

// HandlePostback implements bot.PostbackHandler. The only action is
// delete$<targetID>.
func (h *Handler) HandlePostback(ctx context.Context, req bot.Request, data string) ([]messaging_api.MessageInterface, error) {
	action, params := bot.SplitPostback(data)
	if action != actionDelete || len(params) != 1 {
		return nil, fmt.Errorf("%w: savings postback %q", domerrors.ErrInvalidInput, data)
	}
	return h.deleteTarget(ctx, req, params[0])
}

func (h *Handler) setGoal(ctx context.Context, req bot.Request) ([]messaging_api.MessageInterface, error) {
	wrap := domerrors.NewWrapper(ModuleName, "set_goal")
	in := req.Intent

	if req.UserID == "" {
		return nil, wrap.Wrap(domerrors.ErrInvalidInput, "送信者を確認できませんでした。個別トークで送ってください。")
	}

	now := h.now()
	plan, err := goal.Calculate(in.Amount, h.timeline(in), now)
	if err != nil {
		if domerrors.IsInvalidTimeline(err) {
			return h.text(req, h.filler.Fill(responder.KeyInvalidTimeline, responder.Vars{})), nil
		}
		return nil, wrap.Wrap(err, "金額を読み取れませんでした。「¥30000貯めたい」のように送ってください。")
	}

	label := in.Goal
	if label == "" {
		label = intent.DefaultGoalLabel
	}

	profile, err := h.loadProfile(ctx, req.UserID)
	if err != nil {
		return nil, wrap.Wrap(err, "目標の保存に失敗しました。しばらくしてからもう一度お試しください。")
	}
	profile.AddTarget(storage.SavingsTarget{
		ID:          uuid.NewString(),
		Amount:      plan.Amount,
		Goal:        label,
		CreatedAt:   now,
		TargetDate:  plan.TargetDate,
		DailyTarget: plan.DailyTarget,
	})
	if over := len(profile.Targets) - config.MaxTargetsPerUser; over > 0 {
		profile.Targets = profile.Targets[over:]
	}
	profile.UpdatedAt = now

	if err := h.profiles.SaveProfile(ctx, profile); err != nil {
		return nil, wrap.Wrap(err, "目標の保存に失敗しました。しばらくしてからもう一度お試しください。")
	}

	key := responder.KeySavingsSet
	if plan.Expired() {
		key = responder.KeySavingsExpired
	}
	h.logger.WithFields(map[string]any{
		"amount":         plan.Amount,
		"days_remaining": plan.DaysRemaining,
		"expired":        plan.Expired(),
	}).DebugContext(ctx, "Savings target registered")

	text := h.filler.Fill(key, responder.Vars{
		Amount:        plan.Amount,
		Goal:          label,
		DaysRemaining: plan.DaysRemaining,
		DailyTarget:   plan.DailyTarget,
		TargetDate:    plan.TargetDate,
	})
	return []messaging_api.MessageInterface{
		lineutil.NewTextMessageWithQuickReply(text, req.Sender,
			lineutil.QuickReplyProgressAction(),
			lineutil.QuickReplyHelpAction()),
	}, nil
}

func (h *Handler) timeline(in intent.ParsedIntent) goal.Timeline {
	switch {
	case in.Deadline != "":
		return goal.OnDate(in.Deadline)
	case in.TimelineDays > 0:
		return goal.InDays(min(in.TimelineDays, config.MaxGoalDays))
	default:
		return goal.InDays(h.defaultDays)
	}
}

func (h *Handler) progress(ctx context.Context, req bot.Request) ([]messaging_api.MessageInterface, error) {
	wrap := domerrors.NewWrapper(ModuleName, "progress")

	var targets []storage.SavingsTarget
	if req.UserID != "" {
		profile, err := h.loadProfile(ctx, req.UserID)
		if err != nil {
			return nil, wrap.Wrap(err, "進捗の取得に失敗しました。しばらくしてからもう一度お試しください。")
		}
		targets = profile.Targets
	}

	var msgs []messaging_api.MessageInterface
	if len(targets) == 0 {
		msgs = append(msgs, lineutil.NewTextMessageWithConsistentSender(
			h.filler.Fill(responder.KeyProgressEmpty, responder.Vars{}), req.Sender))
	} else {
		msgs = append(msgs, lineutil.NewTextMessageWithConsistentSender(
			h.filler.Fill(responder.KeyProgress, responder.Vars{Members: len(targets)}), req.Sender))
		msgs = append(msgs, h.targetCarousel(targets, req.Sender)...)
	}

	if req.IsGroup && h.families != nil {
		if family := h.familyProgress(ctx, req); family != nil {
			msgs = append(msgs, family)
		}
	}

	if len(targets) == 0 {
		lineutil.AddQuickReplyToMessages(msgs, lineutil.QuickReplySavingsExampleAction(), lineutil.QuickReplyHelpAction())
	} else {
		lineutil.AddQuickReplyToMessages(msgs, lineutil.QuickReplySavingsExampleAction())
	}
	return msgs, nil
}

// familyProgress returns nil when the group has no family or the lookup
// fails; the personal part of the reply is still sent.
func (h *Handler) familyProgress(ctx context.Context, req bot.Request) messaging_api.MessageInterface {
	group, err := h.families.GetFamily(ctx, req.ChatID)
	if err != nil {
		if !domerrors.IsNotFound(err) {
			h.logger.WithError(err).WarnContext(ctx, "Failed to load family for progress")
		}
		return nil
	}
	text := h.filler.Fill(responder.KeyFamilyProgress, responder.Vars{
		TotalSaved: group.TotalSaved,
		GroupGoal:  group.SavingsGoal,
		Members:    len(group.Members),
	})
	return lineutil.NewTextMessageWithConsistentSender(text, req.Sender)
}

// targetCarousel shows the newest targets first, one bubble each.
func (h *Handler) targetCarousel(targets []storage.SavingsTarget, sender *messaging_api.Sender) []messaging_api.MessageInterface {
	now := h.now()
	limit := min(len(targets), lineutil.MaxBubblesPerCarousel)
	bubbles := make([]messaging_api.FlexBubble, 0, limit)
	for i := len(targets) - 1; i >= len(targets)-limit; i-- {
		bubbles = append(bubbles, *h.targetBubble(targets[i], now).FlexBubble)
	}
	return lineutil.BuildCarouselMessages("貯金の目標", bubbles, sender)
}

func (h *Handler) targetBubble(t storage.SavingsTarget, now time.Time) *lineutil.FlexBubble {
	days := daysUntil(t.TargetDate, now)

	elapsed := now.Sub(t.CreatedAt)
	total := t.TargetDate.Sub(t.CreatedAt)
	percent := 100
	if total > 0 && elapsed < total {
		percent = int(elapsed * 100 / total)
	}

	remaining := fmt.Sprintf("あと %d 日", days)
	if days <= 0 {
		remaining = "期限切れ"
	}

	body := lineutil.NewBodyContentBuilder().
		AddInfoRow("💰", "目標額", "¥"+h.filler.Yen(t.Amount)).
		AddInfoRow("📅", "期限", t.TargetDate.Format("2006/01/02")).
		AddInfoRow("⏳", "残り", remaining).
		AddInfoRow("🪙", "1日あたり", "¥"+h.filler.Yen(t.DailyTarget)).
		AddComponent(lineutil.NewProgressBar(percent).FlexBox).
		Build()

	var footer *lineutil.FlexBox
	if data, err := bot.BuildPostback(PostbackPrefix, actionDelete, t.ID); err == nil {
		footer = lineutil.NewButtonFooter(
			lineutil.NewFlexButton(lineutil.NewPostbackActionWithDisplayText("🗑 削除", "目標を削除", data)).
				WithStyle("secondary").WithHeight("sm"),
		)
	}

	header := lineutil.NewHeroBox(lineutil.TruncateRunes(t.Goal, 20), "作成 "+t.CreatedAt.Format("2006/01/02"))
	return lineutil.NewFlexBubble(header, nil, body, footer)
}

func (h *Handler) deleteTarget(ctx context.Context, req bot.Request, id string) ([]messaging_api.MessageInterface, error) {
	wrap := domerrors.NewWrapper(ModuleName, "delete_target")

	profile, err := h.profiles.GetProfile(ctx, req.UserID)
	if err != nil {
		if domerrors.IsNotFound(err) {
			return h.text(req, "その目標はすでに削除されています。"), nil
		}
		return nil, wrap.Wrap(err, "目標の削除に失敗しました。")
	}

	idx := -1
	for i, t := range profile.Targets {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return h.text(req, "その目標はすでに削除されています。"), nil
	}

	removed := profile.Targets[idx]
	profile.Targets = append(profile.Targets[:idx], profile.Targets[idx+1:]...)
	profile.UpdatedAt = h.now()
	if err := h.profiles.SaveProfile(ctx, profile); err != nil {
		return nil, wrap.Wrap(err, "目標の削除に失敗しました。")
	}

	text := fmt.Sprintf("🗑 「%s」¥%s の目標を削除しました。", removed.Goal, h.filler.Yen(removed.Amount))
	return []messaging_api.MessageInterface{
		lineutil.NewTextMessageWithQuickReply(text, req.Sender, lineutil.QuickReplyProgressAction()),
	}, nil
}

func (h *Handler) loadProfile(ctx context.Context, userID string) (*storage.UserProfile, error) {
	profile, err := h.profiles.GetProfile(ctx, userID)
	if errors.Is(err, domerrors.ErrNotFound) {
		return storage.NewUserProfile(userID), nil
	}
	return profile, err
}

func (h *Handler) text(req bot.Request, text string) []messaging_api.MessageInterface {
	return []messaging_api.MessageInterface{lineutil.NewTextMessageWithConsistentSender(text, req.Sender)}
}

// daysUntil counts calendar days, rounding a partial day up.
func daysUntil(target, now time.Time) int {
	d := target.Sub(now)
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) > 0 {
		days++
	}
	return days
}
