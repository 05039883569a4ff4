// Package config provides application configuration management.
// It loads settings from environment variables (and an optional .env file)
// and validates them before the server starts.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Config holds all application configuration
type Config struct {
	// LINE Bot Configuration
	LineChannelToken  string
	LineChannelSecret string

	// Server Configuration
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration

	// Store Configuration
	StoreBackend string // memory, sqlite or redis
	DataDir      string // directory holding the SQLite database
	RedisURL     string

	// DefaultGoalDays is the savings horizon used when a message names no timeline.
	DefaultGoalDays int

	// LLM Configuration (optional NLU fallback)
	LLMEnabled         bool
	LLMProviders       []string // provider order, e.g. gemini,groq
	GeminiAPIKey       string
	GroqAPIKey         string
	GeminiIntentModels []string
	GroqIntentModels   []string

	// R2 Snapshot Configuration
	R2Enabled          bool
	R2AccountID        string
	R2AccessKeyID      string
	R2SecretAccessKey  string
	R2BucketName       string
	R2SnapshotKey      string
	R2SnapshotInterval time.Duration

	// Sentry Configuration
	SentryDSN              string
	SentryEnvironment      string
	SentryRelease          string
	SentrySampleRate       float64
	SentryTracesSampleRate float64

	// Better Stack Configuration
	BetterStackToken    string
	BetterStackEndpoint string

	// Metrics Authentication (empty password = no auth)
	MetricsUsername string
	MetricsPassword string

	// DepositAPIToken guards the deposit endpoint. Empty disables the endpoint.
	DepositAPIToken  string
	DepositMaxAmount int64 // largest single deposit accepted

	Bot BotConfig
}

// BotConfig holds webhook and message handling settings.
type BotConfig struct {
	WebhookTimeout time.Duration

	// Rate Limits (Token Bucket Algorithm)
	UserRateBurst  float64 // burst tokens per user
	UserRateRefill float64 // tokens per second per user
	LLMRateBurst   float64 // burst LLM calls per user
	LLMRateRefill  float64 // LLM tokens per hour per user
	LLMRateDaily   int     // LLM calls per user per day, 0 = unlimited
	GlobalRateRPS  float64 // outgoing LINE API calls per second

	// LINE API Constraints
	MaxMessagesPerReply int
	MaxEventsPerWebhook int
	MinReplyTokenLength int
	MaxMessageLength    int
	MaxPostbackDataSize int

	// Sender identity shown on every reply
	SenderName     string
	SenderIconURLs []string
}

// Load reads configuration from environment variables.
// It loads a .env file first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		LineChannelToken:  getEnv(EnvLineChannelAccessToken, ""),
		LineChannelSecret: getEnv(EnvLineChannelSecret, ""),

		Port:            getEnv(EnvPort, "10000"),
		LogLevel:        getEnv(EnvLogLevel, "info"),
		ShutdownTimeout: getDurationEnv(EnvShutdownTimeout, GracefulShutdown),

		StoreBackend: strings.ToLower(getEnv(EnvStoreBackend, StoreMemory)),
		DataDir:      getEnv(EnvDataDir, getDefaultDataDir()),
		RedisURL:     getEnv(EnvRedisURL, ""),

		DefaultGoalDays: getIntEnv(EnvDefaultGoalDays, 30),

		LLMEnabled:         getBoolEnv(EnvLLMEnabled, true),
		LLMProviders:       getListEnv(EnvLLMProviders, []string{"gemini", "groq"}),
		GeminiAPIKey:       getEnv(EnvGeminiAPIKey, ""),
		GroqAPIKey:         getEnv(EnvGroqAPIKey, ""),
		GeminiIntentModels: getListEnv(EnvGeminiIntentModels, nil),
		GroqIntentModels:   getListEnv(EnvGroqIntentModels, nil),

		R2Enabled:          getBoolEnv(EnvR2Enabled, false),
		R2AccountID:        getEnv(EnvR2AccountID, ""),
		R2AccessKeyID:      getEnv(EnvR2AccessKeyID, ""),
		R2SecretAccessKey:  getEnv(EnvR2SecretAccessKey, ""),
		R2BucketName:       getEnv(EnvR2BucketName, ""),
		R2SnapshotKey:      getEnv(EnvR2SnapshotKey, "snapshots/omamori.db.zst"),
		R2SnapshotInterval: getDurationEnv(EnvR2SnapshotInterval, SnapshotUploadInterval),

		SentryDSN:              getEnv(EnvSentryDSN, ""),
		SentryEnvironment:      getEnv(EnvSentryEnvironment, "production"),
		SentryRelease:          getEnv(EnvSentryRelease, ""),
		SentrySampleRate:       getFloatEnv(EnvSentrySampleRate, 1.0),
		SentryTracesSampleRate: getFloatEnv(EnvSentryTracesSampleRate, 0.0),

		BetterStackToken:    getEnv(EnvBetterStackToken, ""),
		BetterStackEndpoint: getEnv(EnvBetterStackEndpoint, ""),

		MetricsUsername: getEnv(EnvMetricsUsername, "prometheus"),
		MetricsPassword: getEnv(EnvMetricsPassword, ""),

		DepositAPIToken:  getEnv(EnvDepositAPIToken, ""),
		DepositMaxAmount: getInt64Env(EnvDepositMaxAmount, 10_000_000),

		Bot: BotConfig{
			WebhookTimeout:      getDurationEnv(EnvWebhookTimeout, WebhookProcessing),
			UserRateBurst:       getFloatEnv(EnvUserRateBurst, 15.0),
			UserRateRefill:      getFloatEnv(EnvUserRateRefill, 0.1), // 1 per 10s
			LLMRateBurst:        getFloatEnv(EnvLLMRateBurst, 20.0),
			LLMRateRefill:       getFloatEnv(EnvLLMRateRefill, 10.0),
			LLMRateDaily:        getIntEnv(EnvLLMRateDaily, 50),
			GlobalRateRPS:       getFloatEnv(EnvGlobalRateRPS, 80.0),
			MaxMessagesPerReply: LINEMaxMessagesPerReply,
			MaxEventsPerWebhook: LINEMaxEventsPerWebhook,
			MinReplyTokenLength: 10,
			MaxMessageLength:    LINEMaxTextMessageLength,
			MaxPostbackDataSize: LINEMaxPostbackDataLength,
			SenderName:          getEnv(EnvSenderName, "OMAMORI"),
			SenderIconURLs:      getListEnv(EnvSenderIconURLs, nil),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required values are set and all values are in range.
// Every problem is reported, joined with errors.Join.
func (c *Config) Validate() error {
	var errs []error

	if c.LineChannelToken == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvLineChannelAccessToken))
	}
	if c.LineChannelSecret == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvLineChannelSecret))
	}
	if c.Port == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvPort))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvShutdownTimeout, c.ShutdownTimeout))
	}

	switch c.StoreBackend {
	case StoreMemory:
	case StoreSQLite:
		if c.DataDir == "" {
			errs = append(errs, fmt.Errorf("%s is required for the sqlite store", EnvDataDir))
		}
	case StoreRedis:
		if c.RedisURL == "" {
			errs = append(errs, fmt.Errorf("%s is required for the redis store", EnvRedisURL))
		}
	default:
		errs = append(errs, fmt.Errorf("%s must be memory, sqlite or redis, got %q", EnvStoreBackend, c.StoreBackend))
	}

	if c.DefaultGoalDays <= 0 || c.DefaultGoalDays > MaxGoalDays {
		errs = append(errs, fmt.Errorf("%s must be between 1 and %d, got %d", EnvDefaultGoalDays, MaxGoalDays, c.DefaultGoalDays))
	}

	if c.R2Enabled {
		if c.StoreBackend != StoreSQLite {
			errs = append(errs, fmt.Errorf("%s requires the sqlite store", EnvR2Enabled))
		}
		for key, v := range map[string]string{
			EnvR2AccountID:       c.R2AccountID,
			EnvR2AccessKeyID:     c.R2AccessKeyID,
			EnvR2SecretAccessKey: c.R2SecretAccessKey,
			EnvR2BucketName:      c.R2BucketName,
			EnvR2SnapshotKey:     c.R2SnapshotKey,
		} {
			if v == "" {
				errs = append(errs, fmt.Errorf("%s is required when R2 is enabled", key))
			}
		}
		if c.R2SnapshotInterval <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvR2SnapshotInterval, c.R2SnapshotInterval))
		}
	}

	if c.DepositMaxAmount <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %d", EnvDepositMaxAmount, c.DepositMaxAmount))
	}

	if c.SentrySampleRate < 0 || c.SentrySampleRate > 1 {
		errs = append(errs, fmt.Errorf("%s must be between 0 and 1, got %v", EnvSentrySampleRate, c.SentrySampleRate))
	}
	if c.SentryTracesSampleRate < 0 || c.SentryTracesSampleRate > 1 {
		errs = append(errs, fmt.Errorf("%s must be between 0 and 1, got %v", EnvSentryTracesSampleRate, c.SentryTracesSampleRate))
	}

	if err := c.Bot.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("bot config: %w", err))
	}

	return errors.Join(errs...)
}

// Validate checks bot settings.
func (b *BotConfig) Validate() error {
	var errs []error

	if b.WebhookTimeout <= 0 {
		errs = append(errs, fmt.Errorf("webhook timeout must be positive, got %v", b.WebhookTimeout))
	}
	if b.UserRateBurst <= 0 || b.UserRateRefill <= 0 {
		errs = append(errs, fmt.Errorf("user rate limit must be positive, got burst=%v refill=%v", b.UserRateBurst, b.UserRateRefill))
	}
	if b.LLMRateBurst <= 0 || b.LLMRateRefill <= 0 {
		errs = append(errs, fmt.Errorf("LLM rate limit must be positive, got burst=%v refill=%v", b.LLMRateBurst, b.LLMRateRefill))
	}
	if b.LLMRateDaily < 0 {
		errs = append(errs, fmt.Errorf("LLM daily limit cannot be negative, got %d", b.LLMRateDaily))
	}
	if b.GlobalRateRPS <= 0 {
		errs = append(errs, fmt.Errorf("global rate must be positive, got %v", b.GlobalRateRPS))
	}
	if b.MaxMessagesPerReply < 1 || b.MaxMessagesPerReply > LINEMaxMessagesPerReply {
		errs = append(errs, fmt.Errorf("max messages per reply must be 1-%d, got %d", LINEMaxMessagesPerReply, b.MaxMessagesPerReply))
	}
	if b.MaxEventsPerWebhook < 1 {
		errs = append(errs, fmt.Errorf("max events per webhook must be positive, got %d", b.MaxEventsPerWebhook))
	}
	if b.SenderName == "" {
		errs = append(errs, errors.New("sender name is required"))
	}

	return errors.Join(errs...)
}

// SQLitePath returns the full path to the SQLite database file.
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "omamori.db")
}

// HasLLMProvider reports whether the NLU fallback can run.
func (c *Config) HasLLMProvider() bool {
	return c.LLMEnabled && (c.GeminiAPIKey != "" || c.GroqAPIKey != "")
}

// MetricsAuthEnabled reports whether /metrics requires Basic Auth.
func (c *Config) MetricsAuthEnabled() bool {
	return c.MetricsPassword != ""
}

// SentryEnabled reports whether errors are reported to Sentry.
func (c *Config) SentryEnabled() bool {
	return c.SentryDSN != ""
}

// DepositAPIEnabled reports whether the deposit endpoint is served.
func (c *Config) DepositAPIEnabled() bool {
	return c.DepositAPIToken != ""
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv retrieves integer environment variable with fallback to default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getFloatEnv retrieves float64 environment variable with fallback to default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getListEnv splits a comma-separated variable, dropping empty items.
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for item := range strings.SplitSeq(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// getDefaultDataDir returns platform-specific default data directory
func getDefaultDataDir() string {
	if runtime.GOOS == "windows" {
		return "./data"
	}
	return "/data"
}
