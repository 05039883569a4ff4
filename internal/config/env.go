// Package config defines environment variable keys for configuration.
package config

//nolint:gosec,revive // Environment variable keys are not credentials and do not need per-const comments.
const (
	// Core (Required)
	EnvLineChannelAccessToken = "OMAMORI_LINE_CHANNEL_ACCESS_TOKEN"
	EnvLineChannelSecret      = "OMAMORI_LINE_CHANNEL_SECRET"

	// Server
	EnvPort            = "OMAMORI_PORT"
	EnvLogLevel        = "OMAMORI_LOG_LEVEL"
	EnvShutdownTimeout = "OMAMORI_SHUTDOWN_TIMEOUT"

	// Store
	EnvStoreBackend = "OMAMORI_STORE_BACKEND"
	EnvDataDir      = "OMAMORI_DATA_DIR"
	EnvRedisURL     = "OMAMORI_REDIS_URL"

	// Goals
	EnvDefaultGoalDays = "OMAMORI_DEFAULT_GOAL_DAYS"

	// Webhook
	EnvWebhookTimeout = "OMAMORI_WEBHOOK_TIMEOUT"

	// Rate Limits
	EnvGlobalRateRPS  = "OMAMORI_GLOBAL_RATE_RPS"
	EnvUserRateBurst  = "OMAMORI_USER_RATE_BURST"
	EnvUserRateRefill = "OMAMORI_USER_RATE_REFILL"
	EnvLLMRateBurst   = "OMAMORI_LLM_RATE_BURST"
	EnvLLMRateRefill  = "OMAMORI_LLM_RATE_REFILL"
	EnvLLMRateDaily   = "OMAMORI_LLM_RATE_DAILY"

	// LLM Feature
	EnvLLMEnabled         = "OMAMORI_LLM_ENABLED"
	EnvLLMProviders       = "OMAMORI_LLM_PROVIDERS"
	EnvGeminiAPIKey       = "OMAMORI_GEMINI_API_KEY"
	EnvGroqAPIKey         = "OMAMORI_GROQ_API_KEY"
	EnvGeminiIntentModels = "OMAMORI_GEMINI_INTENT_MODELS"
	EnvGroqIntentModels   = "OMAMORI_GROQ_INTENT_MODELS"

	// R2 Snapshot Feature
	EnvR2Enabled          = "OMAMORI_R2_ENABLED"
	EnvR2AccountID        = "OMAMORI_R2_ACCOUNT_ID"
	EnvR2AccessKeyID      = "OMAMORI_R2_ACCESS_KEY_ID"
	EnvR2SecretAccessKey  = "OMAMORI_R2_SECRET_ACCESS_KEY"
	EnvR2BucketName       = "OMAMORI_R2_BUCKET_NAME"
	EnvR2SnapshotKey      = "OMAMORI_R2_SNAPSHOT_KEY"
	EnvR2SnapshotInterval = "OMAMORI_R2_SNAPSHOT_INTERVAL"

	// Sentry Feature
	EnvSentryDSN              = "OMAMORI_SENTRY_DSN"
	EnvSentryEnvironment      = "OMAMORI_SENTRY_ENVIRONMENT"
	EnvSentryRelease          = "OMAMORI_SENTRY_RELEASE"
	EnvSentrySampleRate       = "OMAMORI_SENTRY_SAMPLE_RATE"
	EnvSentryTracesSampleRate = "OMAMORI_SENTRY_TRACES_SAMPLE_RATE"

	// Better Stack Feature
	EnvBetterStackToken    = "OMAMORI_BETTERSTACK_TOKEN"
	EnvBetterStackEndpoint = "OMAMORI_BETTERSTACK_ENDPOINT"

	// Metrics Auth Feature
	EnvMetricsUsername = "OMAMORI_METRICS_USERNAME"
	EnvMetricsPassword = "OMAMORI_METRICS_PASSWORD"

	// Deposit API Feature
	EnvDepositAPIToken  = "OMAMORI_DEPOSIT_API_TOKEN"
	EnvDepositMaxAmount = "OMAMORI_DEPOSIT_MAX_AMOUNT"

	// Bot Identity
	EnvSenderName     = "OMAMORI_SENDER_NAME"
	EnvSenderIconURLs = "OMAMORI_SENDER_ICON_URLS"
)
