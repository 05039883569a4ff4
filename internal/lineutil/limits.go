package lineutil

// LINE API limits, counted in runes.
// https://developers.line.biz/en/reference/messaging-api/
const (
	MaxTextMessageLength = 5000
	MaxAltTextLength     = 400
	MaxPostbackData      = 300

	MaxFlexCarouselBubbleCount = 12
	MaxQuickReplyItemCount     = 13
	MaxQuickReplyLabel         = 20
	MaxMessagesPerReply        = 5
)
