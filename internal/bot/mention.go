package bot

import (
	"slices"
	"strings"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
)

// IsBotMentioned reports whether the message @mentions this bot.
func IsBotMentioned(msg webhook.TextMessageContent) bool {
	return len(selfMentions(msg.Mention)) > 0
}

func selfMentions(m *webhook.Mention) []webhook.UserMentionee {
	if m == nil {
		return nil
	}
	var out []webhook.UserMentionee
	for _, mentionee := range m.Mentionees {
		if um, ok := mentionee.(webhook.UserMentionee); ok && um.IsSelf {
			out = append(out, um)
		}
	}
	return out
}

// removeBotMentions cuts every @bot mention out of text and collapses the
// remaining whitespace. LINE indexes mentions in UTF-16 code units, which
// match runes for everything but surrogate pairs, so emoji before a mention
// can shift it. Out-of-range mentions are skipped.
func removeBotMentions(text string, m *webhook.Mention) string {
	mentions := selfMentions(m)
	if len(mentions) == 0 {
		return text
	}

	// Back to front so earlier indexes stay valid.
	slices.SortFunc(mentions, func(a, b webhook.UserMentionee) int {
		return int(b.Index - a.Index)
	})

	runes := []rune(text)
	for _, um := range mentions {
		start := max(int(um.Index), 0)
		end := min(int(um.Index+um.Length), len(runes))
		if start >= end {
			continue
		}
		runes = append(runes[:start], runes[end:]...)
	}
	return strings.Join(strings.Fields(string(runes)), " ")
}
