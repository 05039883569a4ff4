package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omamori-dev/omamori-linebot-go/internal/config"
	"github.com/omamori-dev/omamori-linebot-go/internal/logger"
	"github.com/omamori-dev/omamori-linebot-go/internal/metrics"
)

const testSecret = "test-channel-secret"

type fakeClient struct {
	mu       sync.Mutex
	replies  []*messaging_api.ReplyMessageRequest
	loadings []string
	replyErr error
}

func (c *fakeClient) ReplyMessage(req *messaging_api.ReplyMessageRequest) (*messaging_api.ReplyMessageResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies = append(c.replies, req)
	return &messaging_api.ReplyMessageResponse{}, c.replyErr
}

func (c *fakeClient) ShowLoadingAnimation(req *messaging_api.ShowLoadingAnimationRequest) (*map[string]interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadings = append(c.loadings, req.ChatId)
	return &map[string]interface{}{}, nil
}

func (c *fakeClient) snapshot() ([]*messaging_api.ReplyMessageRequest, []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*messaging_api.ReplyMessageRequest(nil), c.replies...), append([]string(nil), c.loadings...)
}

type fakeProcessor struct {
	reply []messaging_api.MessageInterface
	err   error
}

func (p *fakeProcessor) ProcessMessage(context.Context, webhook.MessageEvent) ([]messaging_api.MessageInterface, error) {
	return p.reply, p.err
}

func (p *fakeProcessor) ProcessPostback(context.Context, webhook.PostbackEvent) ([]messaging_api.MessageInterface, error) {
	return p.reply, p.err
}

func (p *fakeProcessor) ProcessFollow(context.Context, webhook.FollowEvent) ([]messaging_api.MessageInterface, error) {
	return p.reply, p.err
}

func (p *fakeProcessor) ProcessJoin(context.Context, webhook.JoinEvent) ([]messaging_api.MessageInterface, error) {
	return p.reply, p.err
}

func testBotConfig() *config.BotConfig {
	return &config.BotConfig{
		WebhookTimeout:      30 * time.Second,
		UserRateBurst:       10,
		UserRateRefill:      1,
		LLMRateBurst:        5,
		LLMRateRefill:       1,
		GlobalRateRPS:       100,
		MaxMessagesPerReply: 5,
		MaxEventsPerWebhook: 100,
		MinReplyTokenLength: 10,
		MaxMessageLength:    500,
		MaxPostbackDataSize: 300,
		SenderName:          "OMAMORI",
	}
}

func setupHandler(t *testing.T, proc EventProcessor, opts ...HandlerOption) (*Handler, *fakeClient) {
	t.Helper()
	client := &fakeClient{}
	h, err := NewHandler(HandlerConfig{
		ChannelSecret: testSecret,
		Client:        client,
		BotConfig:     testBotConfig(),
		Metrics:       metrics.New(prometheus.NewRegistry()),
		Logger:        logger.New("error"),
		Processor:     proc,
	}, opts...)
	require.NoError(t, err)
	return h, client
}

func texts(n int) []messaging_api.MessageInterface {
	msgs := make([]messaging_api.MessageInterface, n)
	for i := range n {
		msgs[i] = &messaging_api.TextMessage{Text: "msg"}
	}
	return msgs
}

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func post(t *testing.T, h *Handler, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/webhook", h.Handle)

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	req.Header.Set("X-Line-Signature", signature)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, h.Shutdown(ctx))
	return w
}

const userTextBody = `{"destination":"Ubot","events":[{"type":"message","mode":"active","timestamp":1775000000000,` +
	`"webhookEventId":"01HEVENT","deliveryContext":{"isRedelivery":false},` +
	`"source":{"type":"user","userId":"U1234"},"replyToken":"reply-token-0123456789",` +
	`"message":{"type":"text","id":"1","quoteToken":"q","text":"3万円貯めたい"}}]}`

const groupTextBody = `{"destination":"Ubot","events":[{"type":"message","mode":"active","timestamp":1775000000000,` +
	`"webhookEventId":"01HEVENT","deliveryContext":{"isRedelivery":false},` +
	`"source":{"type":"group","groupId":"C1234","userId":"U1234"},"replyToken":"reply-token-0123456789",` +
	`"message":{"type":"text","id":"1","quoteToken":"q","text":"進捗"}}]}`

func TestNewHandler_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewHandler(HandlerConfig{Processor: &fakeProcessor{}, Client: &fakeClient{}})
	require.Error(t, err)

	_, err = NewHandler(HandlerConfig{BotConfig: testBotConfig(), Client: &fakeClient{}})
	require.Error(t, err)
}

func TestHandle_InvalidSignature(t *testing.T) {
	t.Parallel()
	h, client := setupHandler(t, &fakeProcessor{reply: texts(1)})

	w := post(t, h, []byte(userTextBody), "invalid")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	replies, _ := client.snapshot()
	assert.Empty(t, replies)
}

func TestHandle_RepliesInPersonalChat(t *testing.T) {
	t.Parallel()
	h, client := setupHandler(t, &fakeProcessor{reply: texts(2)})

	body := []byte(userTextBody)
	w := post(t, h, body, sign(body))

	assert.Equal(t, http.StatusOK, w.Code)
	replies, loadings := client.snapshot()
	require.Len(t, replies, 1)
	assert.Equal(t, "reply-token-0123456789", replies[0].ReplyToken)
	assert.Len(t, replies[0].Messages, 2)
	assert.Equal(t, []string{"U1234"}, loadings)
}

func TestHandle_GroupSkipsLoading(t *testing.T) {
	t.Parallel()
	h, client := setupHandler(t, &fakeProcessor{reply: texts(1)})

	body := []byte(groupTextBody)
	post(t, h, body, sign(body))

	replies, loadings := client.snapshot()
	require.Len(t, replies, 1)
	assert.Empty(t, loadings)
}

func TestHandle_TruncatesReply(t *testing.T) {
	t.Parallel()
	h, client := setupHandler(t, &fakeProcessor{reply: texts(8)})

	body := []byte(userTextBody)
	post(t, h, body, sign(body))

	replies, _ := client.snapshot()
	require.Len(t, replies, 1)
	require.Len(t, replies[0].Messages, 5)
	notice, ok := replies[0].Messages[4].(*messaging_api.TextMessage)
	require.True(t, ok)
	assert.Contains(t, notice.Text, "省略")
	assert.NotNil(t, notice.QuickReply)
}

func TestHandle_NoReply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		proc *fakeProcessor
		opts []HandlerOption
		body string
	}{
		{"processor error", &fakeProcessor{reply: texts(1), err: errors.New("boom")}, nil, userTextBody},
		{"empty reply", &fakeProcessor{}, nil, userTextBody},
		{
			"short reply token",
			&fakeProcessor{reply: texts(1)},
			nil,
			`{"destination":"Ubot","events":[{"type":"message","mode":"active","timestamp":1,` +
				`"source":{"type":"user","userId":"U1"},"replyToken":"short",` +
				`"message":{"type":"text","id":"1","quoteToken":"q","text":"hi"}}]}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h, client := setupHandler(t, tt.proc, tt.opts...)

			body := []byte(tt.body)
			w := post(t, h, body, sign(body))

			assert.Equal(t, http.StatusOK, w.Code)
			replies, _ := client.snapshot()
			assert.Empty(t, replies)
		})
	}
}

func TestHandle_MaxMessagesOption(t *testing.T) {
	t.Parallel()
	h, client := setupHandler(t, &fakeProcessor{reply: texts(4)}, WithMaxMessagesPerReply(2))

	body := []byte(userTextBody)
	post(t, h, body, sign(body))

	replies, _ := client.snapshot()
	require.Len(t, replies, 1)
	assert.Len(t, replies[0].Messages, 2)
}

func TestShouldShowLoading(t *testing.T) {
	t.Parallel()

	user := webhook.UserSource{UserId: "U1"}
	group := webhook.GroupSource{GroupId: "C1", UserId: "U1"}

	tests := []struct {
		name  string
		event webhook.EventInterface
		want  bool
	}{
		{"user text", webhook.MessageEvent{Source: user, Message: webhook.TextMessageContent{Text: "hi"}}, true},
		{"user sticker", webhook.MessageEvent{Source: user, Message: webhook.StickerMessageContent{}}, true},
		{"user image", webhook.MessageEvent{Source: user, Message: webhook.ImageMessageContent{}}, false},
		{"group text", webhook.MessageEvent{Source: group, Message: webhook.TextMessageContent{Text: "hi"}}, false},
		{"user postback", webhook.PostbackEvent{Source: user}, true},
		{"group postback", webhook.PostbackEvent{Source: group}, false},
		{"follow", webhook.FollowEvent{Source: user}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, shouldShowLoading(tt.event))
		})
	}
}

func TestGetChatIDAndReplyToken(t *testing.T) {
	t.Parallel()

	ev := webhook.PostbackEvent{Source: webhook.GroupSource{GroupId: "C9", UserId: "U1"}, ReplyToken: "tok"}
	assert.Equal(t, "C9", getChatID(ev))
	assert.Equal(t, "tok", getReplyToken(ev))

	assert.Empty(t, getChatID(webhook.UnfollowEvent{}))
	assert.Empty(t, getReplyToken(webhook.UnfollowEvent{}))
}

func TestMaskToken(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "***", maskToken("short"))
	assert.Equal(t, "abcdefgh...", maskToken("abcdefghijkl"))
}
