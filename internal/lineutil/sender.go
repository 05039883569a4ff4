package lineutil

import (
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/omamori-dev/omamori-linebot-go/internal/sticker"
)

// GetSender returns a sender with one randomly picked avatar. Create one per
// reply so every message in it shows the same icon.
func GetSender(name string, stickerManager *sticker.Manager) *messaging_api.Sender {
	sender := &messaging_api.Sender{Name: TruncateRunes(name, 20)}
	if stickerManager != nil {
		sender.IconUrl = stickerManager.GetRandomSticker()
	}
	return sender
}

// NewTextMessageWithConsistentSender creates a text message with a shared sender.
func NewTextMessageWithConsistentSender(text string, sender *messaging_api.Sender) *messaging_api.TextMessage {
	msg := NewTextMessage(text)
	msg.Sender = sender
	return msg
}

// ErrorMessageWithSender is the generic apology for unexpected failures.
func ErrorMessageWithSender(sender *messaging_api.Sender) *messaging_api.TextMessage {
	return NewTextMessageWithConsistentSender("⚠️ ただいま処理できませんでした。\n少し時間をおいてもう一度お試しください。", sender)
}

// ErrorMessageWithDetailAndSender prefixes a user-facing error detail.
func ErrorMessageWithDetailAndSender(userMessage string, sender *messaging_api.Sender) *messaging_api.TextMessage {
	return NewTextMessageWithConsistentSender("⚠️ "+userMessage, sender)
}
