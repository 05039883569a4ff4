package bot

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omamori-dev/omamori-linebot-go/internal/config"
	domerrors "github.com/omamori-dev/omamori-linebot-go/internal/errors"
	"github.com/omamori-dev/omamori-linebot-go/internal/intent"
	"github.com/omamori-dev/omamori-linebot-go/internal/logger"
	"github.com/omamori-dev/omamori-linebot-go/internal/ratelimit"
	"github.com/omamori-dev/omamori-linebot-go/internal/responder"
)

type fakeParser struct {
	enabled bool
	result  intent.ParsedIntent
	err     error
	calls   int
}

func (f *fakeParser) IsEnabled() bool { return f.enabled }

func (f *fakeParser) ParseIntent(context.Context, string) (intent.ParsedIntent, error) {
	f.calls++
	return f.result, f.err
}

type processorFixture struct {
	proc    *Processor
	savings *stubPostbackHandler
	help    *stubHandler
	parser  *fakeParser
}

func newProcessorFixture(t *testing.T, userLimiter, llmLimiter *ratelimit.KeyedLimiter) *processorFixture {
	t.Helper()

	savings := &stubPostbackHandler{stubHandler{
		name:   "savings",
		kinds:  []intent.Kind{intent.KindSetSavingsGoal, intent.KindCheckProgress},
		prefix: "savings:",
	}}
	help := &stubHandler{name: "help", kinds: []intent.Kind{intent.KindGreeting, intent.KindHelp}}

	registry := NewRegistry()
	registry.Register(savings)
	registry.Register(help)

	parser := &fakeParser{}
	proc := NewProcessor(ProcessorConfig{
		Registry:       registry,
		IntentParser:   parser,
		UserLimiter:    userLimiter,
		LLMRateLimiter: llmLimiter,
		Filler:         responder.New(responder.WithPicker(func(int) int { return 0 })),
		Logger:         logger.NewWithWriter("error", io.Discard),
		BotConfig:      &config.BotConfig{SenderName: "OMAMORI"},
	})
	return &processorFixture{proc: proc, savings: savings, help: help, parser: parser}
}

func userText(text string) webhook.MessageEvent {
	return webhook.MessageEvent{
		Source:  webhook.UserSource{UserId: "U1"},
		Message: webhook.TextMessageContent{Text: text},
	}
}

func groupText(text string, mentioned bool) webhook.MessageEvent {
	msg := webhook.TextMessageContent{Text: text}
	if mentioned {
		msg.Text = "@OMAMORI " + text
		msg.Mention = &webhook.Mention{Mentionees: []webhook.MentioneeInterface{
			webhook.UserMentionee{Index: 0, Length: 8, IsSelf: true},
		}}
	}
	return webhook.MessageEvent{
		Source:  webhook.GroupSource{GroupId: "G1", UserId: "U1"},
		Message: msg,
	}
}

func TestProcessMessage_Dispatch(t *testing.T) {
	t.Parallel()
	f := newProcessorFixture(t, nil, nil)

	msgs, err := f.proc.ProcessMessage(context.Background(), userText("¥30000貯めたい"))
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	tm := msgs[0].(*messaging_api.TextMessage)
	assert.Equal(t, "savings:set_savings_goal", tm.Text)
	require.NotNil(t, tm.Sender)
	assert.Equal(t, "OMAMORI", tm.Sender.Name)
}

func TestProcessMessage_Unknown(t *testing.T) {
	t.Parallel()

	t.Run("personal chat gets guidance", func(t *testing.T) {
		t.Parallel()
		f := newProcessorFixture(t, nil, nil)

		msgs, err := f.proc.ProcessMessage(context.Background(), userText("xyz123 random gibberish"))
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		tm := msgs[0].(*messaging_api.TextMessage)
		assert.Contains(t, tm.Text, "理解できませんでした")
		require.NotNil(t, tm.QuickReply)
		assert.Zero(t, f.parser.calls, "disabled parser is not called")
	})

	t.Run("group chat stays silent", func(t *testing.T) {
		t.Parallel()
		f := newProcessorFixture(t, nil, nil)

		msgs, err := f.proc.ProcessMessage(context.Background(), groupText("今日の天気は？", false))
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})

	t.Run("group chat answers a mention", func(t *testing.T) {
		t.Parallel()
		f := newProcessorFixture(t, nil, nil)

		msgs, err := f.proc.ProcessMessage(context.Background(), groupText("今日の天気は？", true))
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Contains(t, textOf(t, msgs[0]), "理解できませんでした")
	})
}

func TestProcessMessage_GroupKnownIntent(t *testing.T) {
	t.Parallel()
	f := newProcessorFixture(t, nil, nil)

	msgs, err := f.proc.ProcessMessage(context.Background(), groupText("進捗", false))
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "savings:check_progress", textOf(t, msgs[0]))
}

func TestProcessMessage_MentionOnly(t *testing.T) {
	t.Parallel()
	f := newProcessorFixture(t, nil, nil)

	msgs, err := f.proc.ProcessMessage(context.Background(), groupText("", true))
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Contains(t, textOf(t, msgs[0]), "使い方")
}

func TestProcessMessage_NLUFallback(t *testing.T) {
	t.Parallel()

	t.Run("known result is dispatched", func(t *testing.T) {
		t.Parallel()
		f := newProcessorFixture(t, nil, nil)
		f.parser.enabled = true
		f.parser.result = intent.ParsedIntent{Kind: intent.KindCheckProgress}

		msgs, err := f.proc.ProcessMessage(context.Background(), userText("how much do I have so far"))
		require.NoError(t, err)
		assert.Equal(t, "savings:check_progress", textOf(t, msgs[0]))
		assert.Equal(t, 1, f.parser.calls)
	})

	t.Run("parser error falls back to unknown", func(t *testing.T) {
		t.Parallel()
		f := newProcessorFixture(t, nil, nil)
		f.parser.enabled = true
		f.parser.err = errors.New("quota")

		msgs, err := f.proc.ProcessMessage(context.Background(), userText("nothing matches"))
		require.NoError(t, err)
		assert.Contains(t, textOf(t, msgs[0]), "理解できませんでした")
	})

	t.Run("llm limiter blocks the parser", func(t *testing.T) {
		t.Parallel()
		llm := ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{Burst: 1, RefillRate: 0.0001})
		t.Cleanup(llm.Stop)
		f := newProcessorFixture(t, nil, llm)
		f.parser.enabled = true
		f.parser.result = intent.ParsedIntent{Kind: intent.KindHelp}

		_, err := f.proc.ProcessMessage(context.Background(), userText("first unknown"))
		require.NoError(t, err)
		msgs, err := f.proc.ProcessMessage(context.Background(), userText("second unknown"))
		require.NoError(t, err)

		assert.Equal(t, 1, f.parser.calls)
		assert.Contains(t, textOf(t, msgs[0]), "理解できませんでした")
	})
}

func TestProcessMessage_TooLong(t *testing.T) {
	t.Parallel()
	f := newProcessorFixture(t, nil, nil)

	long := strings.Repeat("あ", config.MaxUserTextLength+1)
	msgs, err := f.proc.ProcessMessage(context.Background(), userText(long))
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Contains(t, textOf(t, msgs[0]), "長すぎます")
	assert.Zero(t, f.savings.calls)

	msgs, err = f.proc.ProcessMessage(context.Background(), groupText(long, false))
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestProcessMessage_RateLimited(t *testing.T) {
	t.Parallel()
	limiter := ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{Burst: 1, RefillRate: 0.0001})
	t.Cleanup(limiter.Stop)
	f := newProcessorFixture(t, limiter, nil)

	_, err := f.proc.ProcessMessage(context.Background(), userText("進捗"))
	require.NoError(t, err)

	msgs, err := f.proc.ProcessMessage(context.Background(), userText("進捗"))
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Contains(t, textOf(t, msgs[0]), "多すぎます")

	msgs, err = f.proc.ProcessMessage(context.Background(), groupText("進捗", false))
	require.NoError(t, err)
	assert.Empty(t, msgs, "groups are not told about rate limits")
	assert.Equal(t, 1, f.savings.calls)
}

func TestProcessMessage_HandlerErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{
			name:    "wrapped error shows user message",
			err:     domerrors.NewWrapper("savings", "set_goal").Wrap(errors.New("disk full"), "保存に失敗しました。"),
			wantMsg: "⚠️ 保存に失敗しました。",
		},
		{
			name:    "unknown intent error shows guidance",
			err:     domerrors.ErrUnknownIntent,
			wantMsg: "理解できませんでした",
		},
		{
			name:    "unexpected error shows generic apology",
			err:     errors.New("boom"),
			wantMsg: "処理できませんでした",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newProcessorFixture(t, nil, nil)
			f.savings.err = tt.err

			msgs, err := f.proc.ProcessMessage(context.Background(), userText("進捗"))
			require.NoError(t, err)
			require.Len(t, msgs, 1)
			assert.Contains(t, textOf(t, msgs[0]), tt.wantMsg)
		})
	}
}

func TestProcessMessage_Sticker(t *testing.T) {
	t.Parallel()
	f := newProcessorFixture(t, nil, nil)

	personal := webhook.MessageEvent{
		Source:  webhook.UserSource{UserId: "U1"},
		Message: webhook.StickerMessageContent{PackageId: "1", StickerId: "1"},
	}
	msgs, err := f.proc.ProcessMessage(context.Background(), personal)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	// Without avatars there is no image to send back.
	assert.Contains(t, textOf(t, msgs[0]), "OMAMORI")

	group := personal
	group.Source = webhook.GroupSource{GroupId: "G1", UserId: "U1"}
	msgs, err = f.proc.ProcessMessage(context.Background(), group)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestProcessPostback(t *testing.T) {
	t.Parallel()

	event := func(data string) webhook.PostbackEvent {
		return webhook.PostbackEvent{
			Source:   webhook.UserSource{UserId: "U1"},
			Postback: &webhook.PostbackContent{Data: data},
		}
	}

	t.Run("routed by prefix", func(t *testing.T) {
		t.Parallel()
		f := newProcessorFixture(t, nil, nil)

		msgs, err := f.proc.ProcessPostback(context.Background(), event("savings:delete$abc"))
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, "pb:delete$abc", textOf(t, msgs[0]))
		assert.Equal(t, "delete$abc", f.savings.postback)
	})

	t.Run("unknown prefix", func(t *testing.T) {
		t.Parallel()
		f := newProcessorFixture(t, nil, nil)

		msgs, err := f.proc.ProcessPostback(context.Background(), event("course:search$x"))
		require.NoError(t, err)
		assert.Contains(t, textOf(t, msgs[0]), "期限切れか無効")
	})

	t.Run("empty data", func(t *testing.T) {
		t.Parallel()
		f := newProcessorFixture(t, nil, nil)

		msgs, err := f.proc.ProcessPostback(context.Background(), webhook.PostbackEvent{Source: webhook.UserSource{UserId: "U1"}})
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})

	t.Run("oversized data", func(t *testing.T) {
		t.Parallel()
		f := newProcessorFixture(t, nil, nil)

		msgs, err := f.proc.ProcessPostback(context.Background(), event("savings:"+strings.Repeat("x", config.LINEMaxPostbackDataLength)))
		require.NoError(t, err)
		assert.Contains(t, textOf(t, msgs[0]), "操作データ")
		assert.Empty(t, f.savings.postback)
	})
}

func TestProcessFollowAndJoin(t *testing.T) {
	t.Parallel()
	f := newProcessorFixture(t, nil, nil)

	msgs, err := f.proc.ProcessFollow(context.Background(), webhook.FollowEvent{Source: webhook.UserSource{UserId: "U1"}})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Contains(t, textOf(t, msgs[0]), "友だち追加ありがとうございます")

	msgs, err = f.proc.ProcessJoin(context.Background(), webhook.JoinEvent{Source: webhook.GroupSource{GroupId: "G1"}})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	tm := msgs[1].(*messaging_api.TextMessage)
	assert.Contains(t, tm.Text, "家族")
	require.NotNil(t, tm.QuickReply)
	assert.Len(t, tm.QuickReply.Items, 2)
}
