package config

// LINE Messaging API limits.
// Reference: https://developers.line.biz/en/reference/messaging-api/
const (
	LINEMaxMessagesPerReply   = 5
	LINEMaxTextMessageLength  = 5000
	LINEMaxPostbackDataLength = 300
	LINEMaxEventsPerWebhook   = 100
)

// Input limits applied before intent parsing.
const (
	// MaxUserTextLength caps the text handed to the intent router and LLM.
	MaxUserTextLength = 500

	// MaxGoalDays caps a parsed or configured savings horizon (about 100 years).
	MaxGoalDays = 36500

	// MaxTargetsPerUser caps the savings targets kept on one profile. The oldest
	// targets are dropped first.
	MaxTargetsPerUser = 20
)
