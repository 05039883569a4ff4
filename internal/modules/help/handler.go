// Package help answers greetings and usage questions, and reports the
// caller's remaining message quota.
package help

import (
	"context"
	"fmt"
	"math"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/omamori-dev/omamori-linebot-go/internal/bot"
	domerrors "github.com/omamori-dev/omamori-linebot-go/internal/errors"
	"github.com/omamori-dev/omamori-linebot-go/internal/intent"
	"github.com/omamori-dev/omamori-linebot-go/internal/lineutil"
	"github.com/omamori-dev/omamori-linebot-go/internal/responder"
	"github.com/omamori-dev/omamori-linebot-go/internal/ratelimit"
)

const (
	ModuleName     = "help"
	PostbackPrefix = "help:"

	actionQuota = "quota"
)

// QuotaConfig describes the limiters whose state the quota card shows.
// Nil limiters are left out of the card.
type QuotaConfig struct {
	UserLimiter *ratelimit.KeyedLimiter
	UserBurst   float64

	LLMLimiter *ratelimit.KeyedLimiter
	LLMBurst   float64
	NLUEnabled bool
}

// Handler serves Greeting and Help.
type Handler struct {
	filler *responder.Filler
	quota  QuotaConfig
}

func NewHandler(filler *responder.Filler, quota QuotaConfig) *Handler {
	return &Handler{filler: filler, quota: quota}
}

func (h *Handler) Name() string           { return ModuleName }
func (h *Handler) Kinds() []intent.Kind   { return []intent.Kind{intent.KindGreeting, intent.KindHelp} }
func (h *Handler) PostbackPrefix() string { return PostbackPrefix }

// Handle implements bot.Handler.
func (h *Handler) Handle(_ context.Context, req bot.Request) ([]messaging_api.MessageInterface, error) {
	if req.Intent.Kind == intent.KindGreeting {
		text := h.filler.Fill(responder.KeyGreeting, responder.Vars{})
		return []messaging_api.MessageInterface{
			lineutil.NewTextMessageWithQuickReply(text, req.Sender,
				lineutil.QuickReplySavingsExampleAction(),
				lineutil.QuickReplyHelpAction()),
		}, nil
	}

	msgs := []messaging_api.MessageInterface{
		lineutil.NewTextMessageWithConsistentSender(h.filler.Fill(responder.KeyHelp, responder.Vars{}), req.Sender),
	}
	if card := h.quotaMessage(req); card != nil {
		msgs = append(msgs, card)
	}
	lineutil.AddQuickReplyToMessages(msgs,
		lineutil.QuickReplySavingsExampleAction(),
		lineutil.QuickReplyProgressAction(),
		lineutil.QuickReplyFamilyProgressAction(),
		lineutil.QuickReplyInheritanceAction())
	return msgs, nil
}

// HandlePostback implements bot.PostbackHandler. The quota card's refresh
// button posts back "quota".
func (h *Handler) HandlePostback(_ context.Context, req bot.Request, data string) ([]messaging_api.MessageInterface, error) {
	if action, _ := bot.SplitPostback(data); action != actionQuota {
		return nil, fmt.Errorf("%w: help postback %q", domerrors.ErrInvalidInput, data)
	}
	card := h.quotaMessage(req)
	if card == nil {
		return []messaging_api.MessageInterface{
			lineutil.NewTextMessageWithConsistentSender("現在、利用制限はありません。", req.Sender),
		}, nil
	}
	return []messaging_api.MessageInterface{card}, nil
}

// quotaMessage builds the quota card, or nil when there is nothing to show.
//
//	┌──────────────────────────┐
//	│ 📊 ご利用状況            │
//	├──────────────────────────┤
//	│ 💬 メッセージ   8 / 10 回│
//	│ [progress bar]           │
//	│ 🤖 AI 解析  今日あと 45 回│
//	├──────────────────────────┤
//	│        [🔄 更新]         │
//	└──────────────────────────┘
func (h *Handler) quotaMessage(req bot.Request) *messaging_api.FlexMessage {
	body := lineutil.NewBodyContentBuilder()

	if h.quota.UserLimiter != nil && h.quota.UserBurst > 0 {
		available := int(math.Floor(h.quota.UserLimiter.Available(req.UserID)))
		burst := int(h.quota.UserBurst)
		body.AddInfoRow("💬", "メッセージ", fmt.Sprintf("%d / %d 回", available, burst))
		body.AddComponent(lineutil.NewProgressBar(available * 100 / burst).FlexBox)
	}

	if h.quota.NLUEnabled && h.quota.LLMLimiter != nil {
		value := fmt.Sprintf("あと %d 回", int(math.Floor(h.quota.LLMLimiter.Available(req.UserID))))
		if daily := h.quota.LLMLimiter.DailyRemaining(req.UserID); daily >= 0 {
			value = fmt.Sprintf("今日あと %d 回", daily)
		}
		body.AddInfoRow("🤖", "AI 解析", value)
	}

	if body.Len() == 0 {
		return nil
	}

	var footer *lineutil.FlexBox
	if data, err := bot.BuildPostback(PostbackPrefix, actionQuota); err == nil {
		footer = lineutil.NewButtonFooter(
			lineutil.NewFlexButton(lineutil.NewPostbackAction("🔄 更新", data)).
				WithStyle("secondary").WithHeight("sm"),
		)
	}

	bubble := lineutil.NewFlexBubble(lineutil.NewHeroBox("📊 ご利用状況", "時間が経つと回復します"), nil, body.Build(), footer)
	msg := lineutil.NewFlexMessage("ご利用状況", bubble.FlexBubble)
	msg.Sender = req.Sender
	return msg
}
