// Package lineutil builds LINE Messaging API messages and actions.
package lineutil

import (
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// Action is an alias for the LINE SDK action interface.
type Action = messaging_api.ActionInterface

// QuickReplyItem is one quick reply button.
type QuickReplyItem struct {
	ImageURL string
	Action   Action
}

// NewTextMessage creates a text message, truncated to the LINE limit.
func NewTextMessage(text string) *messaging_api.TextMessage {
	return &messaging_api.TextMessage{
		Text: TruncateRunes(text, MaxTextMessageLength),
	}
}

// NewQuickReply creates a quick reply holding at most 13 items.
func NewQuickReply(items []QuickReplyItem) *messaging_api.QuickReply {
	if len(items) > MaxQuickReplyItemCount {
		items = items[:MaxQuickReplyItemCount]
	}

	out := make([]messaging_api.QuickReplyItem, len(items))
	for i, item := range items {
		out[i] = messaging_api.QuickReplyItem{
			Action:   item.Action,
			ImageUrl: item.ImageURL,
		}
	}
	return &messaging_api.QuickReply{Items: out}
}

// NewMessageAction creates an action that sends text as the user.
func NewMessageAction(label, text string) Action {
	return &messaging_api.MessageAction{
		Label: TruncateRunes(label, MaxQuickReplyLabel),
		Text:  text,
	}
}

// NewPostbackAction creates an action that sends data to the bot silently.
func NewPostbackAction(label, data string) Action {
	return &messaging_api.PostbackAction{
		Label: TruncateRunes(label, MaxQuickReplyLabel),
		Data:  data,
	}
}

// NewPostbackActionWithDisplayText creates a postback action that also shows
// displayText in the chat.
func NewPostbackActionWithDisplayText(label, displayText, data string) Action {
	return &messaging_api.PostbackAction{
		Label:       TruncateRunes(label, MaxQuickReplyLabel),
		DisplayText: displayText,
		Data:        data,
	}
}

// NewClipboardAction creates an action that copies text to the clipboard.
func NewClipboardAction(label, text string) Action {
	return &messaging_api.ClipboardAction{
		Label:         TruncateRunes(label, MaxQuickReplyLabel),
		ClipboardText: text,
	}
}

// NewFlexMessage wraps a flex container. altText is shown in notifications.
func NewFlexMessage(altText string, contents messaging_api.FlexContainerInterface) *messaging_api.FlexMessage {
	return &messaging_api.FlexMessage{
		AltText:  TruncateRunes(altText, MaxAltTextLength),
		Contents: contents,
	}
}

// SetSender sets the Sender on msg when the type supports one.
func SetSender(msg messaging_api.MessageInterface, sender *messaging_api.Sender) messaging_api.MessageInterface {
	if sender == nil {
		return msg
	}

	switch m := msg.(type) {
	case *messaging_api.TextMessage:
		m.Sender = sender
	case *messaging_api.FlexMessage:
		m.Sender = sender
	case *messaging_api.TemplateMessage:
		m.Sender = sender
	case *messaging_api.ImageMessage:
		m.Sender = sender
	}
	return msg
}

// NewTextMessageWithQuickReply creates a text message with sender and quick replies.
func NewTextMessageWithQuickReply(text string, sender *messaging_api.Sender, items ...QuickReplyItem) *messaging_api.TextMessage {
	msg := NewTextMessageWithConsistentSender(text, sender)
	if len(items) > 0 {
		msg.QuickReply = NewQuickReply(items)
	}
	return msg
}

// AddQuickReplyToMessages attaches quick replies to the last message.
// LINE only shows the quick reply of the last message in a reply.
func AddQuickReplyToMessages(messages []messaging_api.MessageInterface, items ...QuickReplyItem) {
	if len(messages) == 0 || len(items) == 0 {
		return
	}
	qr := NewQuickReply(items)
	switch m := messages[len(messages)-1].(type) {
	case *messaging_api.TextMessage:
		m.QuickReply = qr
	case *messaging_api.FlexMessage:
		m.QuickReply = qr
	case *messaging_api.TemplateMessage:
		m.QuickReply = qr
	}
}

// Common quick replies. Texts are phrasings the intent router recognises.

// QuickReplyHelpAction sends "使い方".
func QuickReplyHelpAction() QuickReplyItem {
	return QuickReplyItem{Action: NewMessageAction("📖 使い方", "使い方")}
}

// QuickReplyProgressAction sends "進捗".
func QuickReplyProgressAction() QuickReplyItem {
	return QuickReplyItem{Action: NewMessageAction("📊 進捗", "進捗")}
}

// QuickReplySavingsExampleAction sends a sample savings goal.
func QuickReplySavingsExampleAction() QuickReplyItem {
	return QuickReplyItem{Action: NewMessageAction("💰 ¥10,000貯めたい", "¥10000貯めたい")}
}

// QuickReplyFamilyJoinAction sends "家族 参加".
func QuickReplyFamilyJoinAction() QuickReplyItem {
	return QuickReplyItem{Action: NewMessageAction("👪 家族に参加", "家族 参加")}
}

// QuickReplyFamilyProgressAction sends "家族 進捗".
func QuickReplyFamilyProgressAction() QuickReplyItem {
	return QuickReplyItem{Action: NewMessageAction("👪 家族の進捗", "家族 進捗")}
}

// QuickReplyInheritanceAction sends "相続".
func QuickReplyInheritanceAction() QuickReplyItem {
	return QuickReplyItem{Action: NewMessageAction("🔑 相続", "相続")}
}
