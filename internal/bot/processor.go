package bot

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/omamori-dev/omamori-linebot-go/internal/config"
	"github.com/omamori-dev/omamori-linebot-go/internal/ctxutil"
	domerrors "github.com/omamori-dev/omamori-linebot-go/internal/errors"
	"github.com/omamori-dev/omamori-linebot-go/internal/intent"
	"github.com/omamori-dev/omamori-linebot-go/internal/lineutil"
	"github.com/omamori-dev/omamori-linebot-go/internal/logger"
	"github.com/omamori-dev/omamori-linebot-go/internal/metrics"
	"github.com/omamori-dev/omamori-linebot-go/internal/ratelimit"
	"github.com/omamori-dev/omamori-linebot-go/internal/responder"
	"github.com/omamori-dev/omamori-linebot-go/internal/sentry"
	"github.com/omamori-dev/omamori-linebot-go/internal/sticker"
)

// RuleLLM is the metrics rule label for intents produced by the NLU fallback.
const RuleLLM = "llm"

// IntentParser is the NLU fallback used when the rule router finds nothing.
// *genai.Client satisfies it.
type IntentParser interface {
	IsEnabled() bool
	ParseIntent(ctx context.Context, text string) (intent.ParsedIntent, error)
}

// Processor turns LINE events into replies: it rate-limits, classifies,
// dispatches to the registry and formats errors for the user.
type Processor struct {
	registry     *Registry
	intentParser IntentParser
	userLimiter  *ratelimit.KeyedLimiter
	llmLimiter   *ratelimit.KeyedLimiter
	filler       *responder.Filler
	stickers     *sticker.Manager
	logger       *logger.Logger
	metrics      *metrics.Metrics

	senderName       string
	webhookTimeout   time.Duration
	maxTextLength    int
	maxPostbackBytes int
}

// ProcessorConfig holds the dependencies of a Processor. IntentParser,
// the limiters, Stickers and Metrics are optional.
type ProcessorConfig struct {
	Registry       *Registry
	IntentParser   IntentParser
	UserLimiter    *ratelimit.KeyedLimiter
	LLMRateLimiter *ratelimit.KeyedLimiter
	Filler         *responder.Filler
	StickerManager *sticker.Manager
	Logger         *logger.Logger
	Metrics        *metrics.Metrics
	BotConfig      *config.BotConfig
}

// NewProcessor creates a Processor.
func NewProcessor(cfg ProcessorConfig) *Processor {
	p := &Processor{
		registry:         cfg.Registry,
		intentParser:     cfg.IntentParser,
		userLimiter:      cfg.UserLimiter,
		llmLimiter:       cfg.LLMRateLimiter,
		filler:           cfg.Filler,
		stickers:         cfg.StickerManager,
		logger:           cfg.Logger,
		metrics:          cfg.Metrics,
		senderName:       "OMAMORI",
		webhookTimeout:   config.WebhookProcessing,
		maxTextLength:    config.MaxUserTextLength,
		maxPostbackBytes: config.LINEMaxPostbackDataLength,
	}
	if cfg.BotConfig != nil {
		if cfg.BotConfig.SenderName != "" {
			p.senderName = cfg.BotConfig.SenderName
		}
		if cfg.BotConfig.WebhookTimeout > 0 {
			p.webhookTimeout = cfg.BotConfig.WebhookTimeout
		}
		if cfg.BotConfig.MaxPostbackDataSize > 0 {
			p.maxPostbackBytes = cfg.BotConfig.MaxPostbackDataSize
		}
	}
	if p.filler == nil {
		p.filler = responder.New()
	}
	return p
}

// nluEnabled reports whether the LLM fallback can be used.
func (p *Processor) nluEnabled() bool {
	return p.intentParser != nil && p.intentParser.IsEnabled()
}

// ProcessMessage handles a message event. Group chats only get a reply when
// the text is understood by the router or the bot is mentioned.
func (p *Processor) ProcessMessage(ctx context.Context, event webhook.MessageEvent) ([]messaging_api.MessageInterface, error) {
	req := p.newRequest(event.Source)
	ctx = ctxutil.WithChatID(ctx, req.ChatID)
	ctx = ctxutil.WithUserID(ctx, req.UserID)

	switch msg := event.Message.(type) {
	case webhook.StickerMessageContent:
		if req.IsGroup {
			return nil, nil
		}
		return p.handleSticker(req), nil
	case webhook.TextMessageContent:
		return p.handleText(ctx, req, msg)
	default:
		return nil, nil
	}
}

func (p *Processor) handleText(ctx context.Context, req Request, msg webhook.TextMessageContent) ([]messaging_api.MessageInterface, error) {
	mentioned := IsBotMentioned(msg)
	text := msg.Text
	if mentioned {
		text = removeBotMentions(text, msg.Mention)
	}
	text = sanitizeText(text)

	if text == "" {
		if mentioned {
			return p.fill(req, responder.KeyHelp), nil
		}
		return nil, nil
	}

	if utf8.RuneCountInString(text) > p.maxTextLength {
		p.logger.WithField("length", utf8.RuneCountInString(text)).WarnContext(ctx, "Text message too long")
		if req.IsGroup && !mentioned {
			return nil, nil
		}
		return []messaging_api.MessageInterface{
			lineutil.NewTextMessageWithConsistentSender(
				fmt.Sprintf("⚠️ メッセージが長すぎます。\n%d 文字以内で送ってください。", p.maxTextLength), req.Sender),
		}, nil
	}

	if !p.allowUser(ctx, req) {
		if req.IsGroup {
			return nil, nil
		}
		return p.fill(req, responder.KeyRateLimited), nil
	}

	parsed, rule := intent.Classify(text)
	if parsed.Kind == intent.KindUnknown && req.IsGroup && !mentioned {
		// Ordinary group conversation.
		return nil, nil
	}

	processCtx, cancel := context.WithTimeout(ctxutil.PreserveTracing(ctx), p.webhookTimeout)
	defer cancel()

	if parsed.Kind == intent.KindUnknown {
		parsed, rule = p.parseWithNLU(processCtx, req, text, parsed, rule)
	}
	p.metrics.RecordIntent(string(parsed.Kind), rule)

	req.Intent = parsed
	if parsed.Kind == intent.KindUnknown {
		return p.unknownReply(req), nil
	}
	return p.dispatch(processCtx, req)
}

// parseWithNLU asks the LLM fallback to classify text. It returns the
// router's result unchanged when the fallback is off, rate-limited or fails.
func (p *Processor) parseWithNLU(ctx context.Context, req Request, text string, parsed intent.ParsedIntent, rule string) (intent.ParsedIntent, string) {
	if !p.nluEnabled() {
		return parsed, rule
	}
	if p.llmLimiter != nil && !p.llmLimiter.Allow(req.UserID) {
		p.logger.WithField("user_id", maskID(req.UserID)).InfoContext(ctx, "LLM rate limit exceeded")
		return parsed, rule
	}

	result, err := p.intentParser.ParseIntent(ctx, text)
	if err != nil {
		p.logger.WithError(err).WarnContext(ctx, "NLU intent parsing failed")
		return parsed, rule
	}
	if !result.Known() {
		return parsed, rule
	}
	p.logger.WithField("intent", string(result.Kind)).DebugContext(ctx, "NLU intent parsed")
	return result, RuleLLM
}

func (p *Processor) dispatch(ctx context.Context, req Request) ([]messaging_api.MessageInterface, error) {
	msgs, err := p.registry.Dispatch(ctx, req)
	if err != nil {
		return p.errorReply(ctx, req, err), nil
	}
	return p.withSender(msgs, req.Sender), nil
}

// ProcessPostback handles a postback event.
func (p *Processor) ProcessPostback(ctx context.Context, event webhook.PostbackEvent) ([]messaging_api.MessageInterface, error) {
	req := p.newRequest(event.Source)
	ctx = ctxutil.WithChatID(ctx, req.ChatID)
	ctx = ctxutil.WithUserID(ctx, req.UserID)

	if event.Postback == nil || event.Postback.Data == "" {
		p.logger.WarnContext(ctx, "Empty postback data")
		return nil, nil
	}
	data := event.Postback.Data
	if len(data) > p.maxPostbackBytes {
		p.logger.WithField("bytes", len(data)).WarnContext(ctx, "Postback data too long")
		return []messaging_api.MessageInterface{
			lineutil.NewTextMessageWithConsistentSender("⚠️ 操作データが正しくありません。\nもう一度お試しください。", req.Sender),
		}, nil
	}

	if !p.allowUser(ctx, req) {
		if req.IsGroup {
			return nil, nil
		}
		return p.fill(req, responder.KeyRateLimited), nil
	}

	processCtx, cancel := context.WithTimeout(ctxutil.PreserveTracing(ctx), p.webhookTimeout)
	defer cancel()

	msgs, handled, err := p.registry.DispatchPostback(processCtx, req, data)
	if !handled {
		p.logger.WithField("data", data).DebugContext(ctx, "Unhandled postback")
		return []messaging_api.MessageInterface{
			lineutil.NewTextMessageWithConsistentSender("この操作は期限切れか無効です。", req.Sender),
		}, nil
	}
	if err != nil {
		return p.errorReply(ctx, req, err), nil
	}
	return p.withSender(msgs, req.Sender), nil
}

// ProcessFollow greets a user who added the bot.
func (p *Processor) ProcessFollow(ctx context.Context, event webhook.FollowEvent) ([]messaging_api.MessageInterface, error) {
	req := p.newRequest(event.Source)
	p.logger.WithField("user_id", maskID(req.UserID)).InfoContext(ctx, "New user followed the bot")

	msg := lineutil.NewTextMessageWithQuickReply(
		p.filler.Fill(responder.KeyFollow, responder.Vars{}),
		req.Sender,
		lineutil.QuickReplySavingsExampleAction(),
		lineutil.QuickReplyHelpAction(),
	)
	return []messaging_api.MessageInterface{msg}, nil
}

// ProcessJoin introduces the family features when the bot joins a group.
func (p *Processor) ProcessJoin(ctx context.Context, event webhook.JoinEvent) ([]messaging_api.MessageInterface, error) {
	req := p.newRequest(event.Source)
	p.logger.WithField("chat_id", maskID(req.ChatID)).InfoContext(ctx, "Bot joined a group")

	msgs := []messaging_api.MessageInterface{
		lineutil.NewTextMessageWithConsistentSender(p.filler.Fill(responder.KeyGreeting, responder.Vars{}), req.Sender),
		lineutil.NewTextMessageWithQuickReply(
			p.filler.Fill(responder.KeyFamilyInfo, responder.Vars{}),
			req.Sender,
			lineutil.QuickReplyItem{Action: lineutil.NewMessageAction("👪 家族を作成", "家族 作成")},
			lineutil.QuickReplyFamilyJoinAction(),
		),
	}
	return msgs, nil
}

func (p *Processor) newRequest(source webhook.SourceInterface) Request {
	return Request{
		UserID:  GetUserID(source),
		ChatID:  GetChatID(source),
		IsGroup: !IsPersonalChat(source),
		Sender:  lineutil.GetSender(p.senderName, p.stickers),
	}
}

// allowUser applies the per-user limiter. Group messages are limited per
// sender, falling back to the chat when LINE omits the user ID.
func (p *Processor) allowUser(ctx context.Context, req Request) bool {
	if p.userLimiter == nil {
		return true
	}
	key := req.UserID
	if key == "" {
		key = req.ChatID
	}
	if p.userLimiter.Allow(key) {
		return true
	}
	p.logger.WithField("user_id", maskID(key)).WarnContext(ctx, "User rate limit exceeded")
	return false
}

func (p *Processor) handleSticker(req Request) []messaging_api.MessageInterface {
	url := req.Sender.IconUrl
	if url == "" && p.stickers != nil {
		url = p.stickers.GetRandomSticker()
	}
	if url == "" {
		return p.fill(req, responder.KeyGreeting)
	}
	return []messaging_api.MessageInterface{
		&messaging_api.ImageMessage{
			OriginalContentUrl: url,
			PreviewImageUrl:    url,
			Sender:             req.Sender,
		},
	}
}

func (p *Processor) fill(req Request, key responder.Key) []messaging_api.MessageInterface {
	return []messaging_api.MessageInterface{
		lineutil.NewTextMessageWithConsistentSender(p.filler.Fill(key, responder.Vars{}), req.Sender),
	}
}

func (p *Processor) unknownReply(req Request) []messaging_api.MessageInterface {
	msg := lineutil.NewTextMessageWithQuickReply(
		p.filler.Fill(responder.KeyUnknown, responder.Vars{}),
		req.Sender,
		lineutil.QuickReplySavingsExampleAction(),
		lineutil.QuickReplyProgressAction(),
		lineutil.QuickReplyHelpAction(),
	)
	return []messaging_api.MessageInterface{msg}
}

// errorReply logs err and returns the message users should see. Errors that
// carry a user message are expected outcomes; anything else goes to Sentry.
func (p *Processor) errorReply(ctx context.Context, req Request, err error) []messaging_api.MessageInterface {
	var wrapped *domerrors.WrappedError
	if errors.As(err, &wrapped) {
		p.logger.WithError(err).
			WithField("module", wrapped.Module).
			WithField("operation", wrapped.Operation).
			WarnContext(ctx, "Handler returned error")
		return []messaging_api.MessageInterface{
			lineutil.ErrorMessageWithDetailAndSender(domerrors.GetUserMessage(err), req.Sender),
		}
	}
	if errors.Is(err, domerrors.ErrUnknownIntent) {
		return p.unknownReply(req)
	}

	p.logger.WithError(err).ErrorContext(ctx, "Handler failed unexpectedly")
	sentry.CaptureError(ctx, err)
	return []messaging_api.MessageInterface{lineutil.ErrorMessageWithSender(req.Sender)}
}

func (p *Processor) withSender(msgs []messaging_api.MessageInterface, sender *messaging_api.Sender) []messaging_api.MessageInterface {
	for _, m := range msgs {
		lineutil.SetSender(m, sender)
	}
	return msgs
}
