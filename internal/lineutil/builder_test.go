package lineutil

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/omamori-dev/omamori-linebot-go/internal/sticker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTextMessage_Truncates(t *testing.T) {
	t.Parallel()

	short := NewTextMessage("¥30,000 貯めよう")
	assert.Equal(t, "¥30,000 貯めよう", short.Text)

	long := NewTextMessage(strings.Repeat("貯", MaxTextMessageLength+10))
	assert.Equal(t, MaxTextMessageLength, utf8.RuneCountInString(long.Text))
	assert.True(t, strings.HasSuffix(long.Text, "..."))
}

func TestNewQuickReply_CapsItems(t *testing.T) {
	t.Parallel()

	items := make([]QuickReplyItem, 20)
	for i := range items {
		items[i] = QuickReplyHelpAction()
	}
	qr := NewQuickReply(items)
	assert.Len(t, qr.Items, MaxQuickReplyItemCount)

	qr = NewQuickReply([]QuickReplyItem{{ImageURL: "https://cdn.example.com/i.png", Action: NewMessageAction("a", "b")}})
	require.Len(t, qr.Items, 1)
	assert.Equal(t, "https://cdn.example.com/i.png", qr.Items[0].ImageUrl)
}

func TestActions(t *testing.T) {
	t.Parallel()

	msg, ok := NewMessageAction("📊 進捗", "進捗").(*messaging_api.MessageAction)
	require.True(t, ok)
	assert.Equal(t, "進捗", msg.Text)

	pb, ok := NewPostbackActionWithDisplayText("参加", "家族 参加", "family:join").(*messaging_api.PostbackAction)
	require.True(t, ok)
	assert.Equal(t, "家族 参加", pb.DisplayText)
	assert.Equal(t, "family:join", pb.Data)

	clip, ok := NewClipboardAction("コピー", "0xabc").(*messaging_api.ClipboardAction)
	require.True(t, ok)
	assert.Equal(t, "0xabc", clip.ClipboardText)

	long, ok := NewPostbackAction(strings.Repeat("長", 40), "x").(*messaging_api.PostbackAction)
	require.True(t, ok)
	assert.Equal(t, MaxQuickReplyLabel, utf8.RuneCountInString(long.Label))
}

func TestSetSender(t *testing.T) {
	t.Parallel()

	sender := &messaging_api.Sender{Name: "OMAMORI"}
	msgs := []messaging_api.MessageInterface{
		NewTextMessage("a"),
		NewFlexMessage("alt", NewFlexBubble(nil, nil, nil, nil).FlexBubble),
		&messaging_api.TemplateMessage{},
		&messaging_api.ImageMessage{},
	}
	for _, m := range msgs {
		SetSender(m, sender)
	}
	assert.Same(t, sender, msgs[0].(*messaging_api.TextMessage).Sender)
	assert.Same(t, sender, msgs[1].(*messaging_api.FlexMessage).Sender)
	assert.Same(t, sender, msgs[2].(*messaging_api.TemplateMessage).Sender)
	assert.Same(t, sender, msgs[3].(*messaging_api.ImageMessage).Sender)

	plain := NewTextMessage("b")
	SetSender(plain, nil)
	assert.Nil(t, plain.Sender)
}

func TestAddQuickReplyToMessages(t *testing.T) {
	t.Parallel()

	first := NewTextMessage("1")
	last := NewTextMessage("2")
	AddQuickReplyToMessages([]messaging_api.MessageInterface{first, last}, QuickReplyProgressAction())

	assert.Nil(t, first.QuickReply)
	require.NotNil(t, last.QuickReply)
	assert.Len(t, last.QuickReply.Items, 1)

	assert.NotPanics(t, func() { AddQuickReplyToMessages(nil, QuickReplyHelpAction()) })
	AddQuickReplyToMessages([]messaging_api.MessageInterface{first})
	assert.Nil(t, first.QuickReply)
}

func TestSenderHelpers(t *testing.T) {
	t.Parallel()

	mgr := sticker.NewManager([]string{"https://cdn.example.com/omamori.png"}, "OMAMORI", nil)
	sender := GetSender("OMAMORI", mgr)
	assert.Equal(t, "OMAMORI", sender.Name)
	assert.Equal(t, "https://cdn.example.com/omamori.png", sender.IconUrl)

	assert.Empty(t, GetSender("OMAMORI", nil).IconUrl)

	msg := NewTextMessageWithQuickReply("hi", sender, QuickReplyHelpAction(), QuickReplySavingsExampleAction())
	assert.Same(t, sender, msg.Sender)
	assert.Len(t, msg.QuickReply.Items, 2)

	assert.Nil(t, NewTextMessageWithQuickReply("hi", sender).QuickReply)
	assert.Contains(t, ErrorMessageWithSender(sender).Text, "⚠️")
	assert.Equal(t, "⚠️ 保存に失敗しました", ErrorMessageWithDetailAndSender("保存に失敗しました", sender).Text)
}
