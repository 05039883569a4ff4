// Package webhook receives LINE webhook calls, hands each event to the bot
// processor and sends the replies back through the Messaging API.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/omamori-dev/omamori-linebot-go/internal/bot"
	"github.com/omamori-dev/omamori-linebot-go/internal/config"
	"github.com/omamori-dev/omamori-linebot-go/internal/ctxutil"
	"github.com/omamori-dev/omamori-linebot-go/internal/lineutil"
	"github.com/omamori-dev/omamori-linebot-go/internal/logger"
	"github.com/omamori-dev/omamori-linebot-go/internal/metrics"
	"github.com/omamori-dev/omamori-linebot-go/internal/ratelimit"
	"github.com/omamori-dev/omamori-linebot-go/internal/sticker"
)

// Client is the part of the Messaging API the handler calls.
// *messaging_api.MessagingApiAPI satisfies it.
type Client interface {
	ReplyMessage(req *messaging_api.ReplyMessageRequest) (*messaging_api.ReplyMessageResponse, error)
	ShowLoadingAnimation(req *messaging_api.ShowLoadingAnimationRequest) (*map[string]interface{}, error)
}

// EventProcessor turns events into replies. *bot.Processor satisfies it.
type EventProcessor interface {
	ProcessMessage(ctx context.Context, event webhook.MessageEvent) ([]messaging_api.MessageInterface, error)
	ProcessPostback(ctx context.Context, event webhook.PostbackEvent) ([]messaging_api.MessageInterface, error)
	ProcessFollow(ctx context.Context, event webhook.FollowEvent) ([]messaging_api.MessageInterface, error)
	ProcessJoin(ctx context.Context, event webhook.JoinEvent) ([]messaging_api.MessageInterface, error)
}

// Handler handles LINE webhook events.
type Handler struct {
	channelSecret  string
	client         Client
	metrics        *metrics.Metrics
	logger         *logger.Logger
	processor      EventProcessor
	rateLimiter    *ratelimit.Limiter // outgoing LINE API calls
	stickerManager *sticker.Manager
	senderName     string
	wg             sync.WaitGroup

	maxMessagesPerReply int
	maxEventsPerWebhook int
	minReplyTokenLength int
}

// HandlerConfig holds the dependencies of a Handler. Client is built from
// ChannelToken when nil.
type HandlerConfig struct {
	ChannelSecret  string
	ChannelToken   string
	Client         Client
	BotConfig      *config.BotConfig
	Metrics        *metrics.Metrics
	Logger         *logger.Logger
	Processor      EventProcessor
	StickerManager *sticker.Manager
}

// NewHandler creates a webhook handler.
func NewHandler(cfg HandlerConfig, opts ...HandlerOption) (*Handler, error) {
	if cfg.BotConfig == nil {
		return nil, errors.New("webhook: bot config is required")
	}
	if cfg.Processor == nil {
		return nil, errors.New("webhook: processor is required")
	}

	client := cfg.Client
	if client == nil {
		api, err := messaging_api.NewMessagingApiAPI(cfg.ChannelToken)
		if err != nil {
			return nil, fmt.Errorf("create messaging API client: %w", err)
		}
		client = api
	}

	h := &Handler{
		channelSecret:       cfg.ChannelSecret,
		client:              client,
		metrics:             cfg.Metrics,
		logger:              cfg.Logger,
		processor:           cfg.Processor,
		stickerManager:      cfg.StickerManager,
		senderName:          cfg.BotConfig.SenderName,
		maxMessagesPerReply: cfg.BotConfig.MaxMessagesPerReply,
		maxEventsPerWebhook: cfg.BotConfig.MaxEventsPerWebhook,
		minReplyTokenLength: cfg.BotConfig.MinReplyTokenLength,
		rateLimiter:         ratelimit.New(cfg.BotConfig.GlobalRateRPS, cfg.BotConfig.GlobalRateRPS),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Handle is the gin handler for the webhook endpoint. It answers 200 as
// soon as the signature is verified and processes events in the background.
func (h *Handler) Handle(c *gin.Context) {
	cb, err := webhook.ParseRequest(h.channelSecret, c.Request)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			h.logger.WarnContext(c.Request.Context(), "Invalid webhook signature")
			h.metrics.RecordHTTPError("invalid_signature", "webhook")
			c.Status(http.StatusBadRequest)
		} else {
			h.logger.WithError(err).ErrorContext(c.Request.Context(), "Failed to parse webhook request")
			h.metrics.RecordHTTPError("parse_error", "webhook")
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	c.Status(http.StatusOK)

	start := time.Now()
	h.metrics.RecordWebhook("batch", "received", 0)

	events := cb.Events
	if len(events) > h.maxEventsPerWebhook {
		h.logger.WithField("event_count", len(events)).
			WithField("limit", h.maxEventsPerWebhook).
			Warn("Too many events in webhook batch; truncating")
		events = events[:h.maxEventsPerWebhook]
	}
	events = append([]webhook.EventInterface(nil), events...)

	h.wg.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				h.logger.WithField("panic", r).Error("Panic in async event processing")
			}
		}()

		for _, event := range events {
			h.processEvent(context.Background(), event, start)
		}
	})
}

func (h *Handler) processEvent(ctx context.Context, event webhook.EventInterface, batchStart time.Time) {
	eventStart := time.Now()

	eventID, eventTimestamp, isRedelivery := extractEventMeta(event)
	log := h.logger
	if eventID != "" {
		ctx = ctxutil.WithRequestID(ctx, eventID)
		ctx = ctxutil.WithEventID(ctx, eventID)
		log = log.WithRequestID(eventID)
	}
	if isRedelivery != nil {
		log = log.WithField("is_redelivery", *isRedelivery)
	}
	if eventTimestamp > 0 {
		log = log.WithField("event_timestamp_ms", eventTimestamp)
	}

	if shouldShowLoading(event) {
		if err := h.showLoadingAnimation(event); err != nil {
			log.WithError(err).DebugContext(ctx, "Failed to show loading animation")
		}
	}

	var (
		messages  []messaging_api.MessageInterface
		eventType string
		err       error
	)
	switch e := event.(type) {
	case webhook.MessageEvent:
		eventType = "message"
		messages, err = h.processor.ProcessMessage(ctx, e)
	case webhook.PostbackEvent:
		eventType = "postback"
		messages, err = h.processor.ProcessPostback(ctx, e)
	case webhook.FollowEvent:
		eventType = "follow"
		messages, err = h.processor.ProcessFollow(ctx, e)
	case webhook.JoinEvent:
		eventType = "join"
		messages, err = h.processor.ProcessJoin(ctx, e)
	default:
		log.WithField("event_type", fmt.Sprintf("%T", e)).DebugContext(ctx, "Unsupported event type")
		return
	}

	status := "success"
	if err != nil {
		status = "error"
		log.WithError(err).WithField("event_type", eventType).ErrorContext(ctx, "Failed to handle event")
	}
	h.metrics.RecordWebhook(eventType, status, time.Since(eventStart))

	if len(messages) > 0 && err == nil {
		h.reply(ctx, log, event, eventType, h.truncate(log, messages))
	}

	log.WithField("event_type", eventType).
		WithField("event_duration_ms", time.Since(eventStart).Milliseconds()).
		WithField("batch_duration_ms", time.Since(batchStart).Milliseconds()).
		InfoContext(ctx, "Event processed")
}

// truncate keeps the reply within the LINE message limit, replacing the
// overflow with a notice.
func (h *Handler) truncate(log *logger.Logger, messages []messaging_api.MessageInterface) []messaging_api.MessageInterface {
	if h.maxMessagesPerReply <= 0 || len(messages) <= h.maxMessagesPerReply {
		return messages
	}
	log.WithField("message_count", len(messages)).
		WithField("limit", h.maxMessagesPerReply).
		Warn("Message count exceeds limit; truncating")

	messages = messages[:h.maxMessagesPerReply-1]
	notice := lineutil.NewTextMessageWithQuickReply(
		"ℹ️ メッセージ数の上限のため、一部の内容を省略しました。",
		lineutil.GetSender(h.senderName, h.stickerManager),
		lineutil.QuickReplyProgressAction(),
		lineutil.QuickReplyHelpAction(),
	)
	return append(messages, notice)
}

func (h *Handler) reply(ctx context.Context, log *logger.Logger, event webhook.EventInterface, eventType string, messages []messaging_api.MessageInterface) {
	replyToken := getReplyToken(event)
	if replyToken == "" {
		log.DebugContext(ctx, "Empty reply token, skipping reply")
		return
	}
	if len(replyToken) < h.minReplyTokenLength {
		log.WithField("token_length", len(replyToken)).DebugContext(ctx, "Invalid reply token format")
		return
	}

	if !h.rateLimiter.Allow() {
		log.WarnContext(ctx, "Global rate limit exceeded; waiting")
		h.metrics.RecordRateLimiterDrop("global")
		waitCtx, cancel := context.WithTimeout(ctx, config.LINEAPICall)
		err := h.rateLimiter.Wait(waitCtx)
		cancel()
		if err != nil {
			log.WithError(err).WarnContext(ctx, "Gave up waiting for global rate limit")
			return
		}
	}

	start := time.Now()
	_, err := h.client.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages:   messages,
	})
	if err == nil {
		return
	}

	errMsg := err.Error()
	switch {
	case strings.Contains(errMsg, "Invalid reply token"):
		log.WithError(err).DebugContext(ctx, "Reply token already used or invalid")
	case strings.Contains(errMsg, "rate limit"):
		log.WithError(err).ErrorContext(ctx, "LINE API rate limit exceeded")
	default:
		log.WithError(err).WithField("reply_token", maskToken(replyToken)).ErrorContext(ctx, "Failed to send reply")
	}
	h.metrics.RecordWebhook(eventType, "reply_error", time.Since(start))
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return "***"
	}
	return token[:8] + "..."
}

func extractEventMeta(event webhook.EventInterface) (string, int64, *bool) {
	switch e := event.(type) {
	case webhook.MessageEvent:
		return e.WebhookEventId, e.Timestamp, boolPtr(e.DeliveryContext)
	case webhook.PostbackEvent:
		return e.WebhookEventId, e.Timestamp, boolPtr(e.DeliveryContext)
	case webhook.FollowEvent:
		return e.WebhookEventId, e.Timestamp, boolPtr(e.DeliveryContext)
	case webhook.JoinEvent:
		return e.WebhookEventId, e.Timestamp, boolPtr(e.DeliveryContext)
	default:
		return "", 0, nil
	}
}

func boolPtr(ctx *webhook.DeliveryContext) *bool {
	if ctx == nil {
		return nil
	}
	val := ctx.IsRedelivery
	return &val
}

// shouldShowLoading reports whether the event will be answered in a 1:1
// chat. LINE only shows the loading animation in 1:1 chats.
func shouldShowLoading(event webhook.EventInterface) bool {
	switch e := event.(type) {
	case webhook.MessageEvent:
		if !bot.IsPersonalChat(e.Source) {
			return false
		}
		switch e.Message.(type) {
		case webhook.TextMessageContent, webhook.StickerMessageContent:
			return true
		}
		return false
	case webhook.PostbackEvent:
		return bot.IsPersonalChat(e.Source)
	default:
		return false
	}
}

func (h *Handler) showLoadingAnimation(event webhook.EventInterface) error {
	chatID := getChatID(event)
	if chatID == "" {
		return nil
	}
	if _, err := h.client.ShowLoadingAnimation(&messaging_api.ShowLoadingAnimationRequest{
		ChatId:         chatID,
		LoadingSeconds: int32(config.LoadingAnimation / time.Second),
	}); err != nil {
		return fmt.Errorf("show loading animation: %w", err)
	}
	return nil
}

func getReplyToken(event webhook.EventInterface) string {
	switch e := event.(type) {
	case webhook.MessageEvent:
		return e.ReplyToken
	case webhook.PostbackEvent:
		return e.ReplyToken
	case webhook.FollowEvent:
		return e.ReplyToken
	case webhook.JoinEvent:
		return e.ReplyToken
	default:
		return ""
	}
}

func getChatID(event webhook.EventInterface) string {
	var source webhook.SourceInterface
	switch e := event.(type) {
	case webhook.MessageEvent:
		source = e.Source
	case webhook.PostbackEvent:
		source = e.Source
	case webhook.FollowEvent:
		source = e.Source
	case webhook.JoinEvent:
		source = e.Source
	default:
		return ""
	}
	return bot.GetChatID(source)
}

// Shutdown waits for in-flight event processing, or until ctx is done.
func (h *Handler) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.wg.Wait()
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
