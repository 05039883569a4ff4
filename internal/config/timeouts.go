// Package config provides centralized timeout constants for the application.
//
// LINE webhook timing:
//   - Reply token: valid for about 20 minutes, but replies should go out quickly
//   - Webhook response: LINE expects a quick 200 OK
//   - Loading animation: shows for up to 60 seconds
package config

import "time"

// Webhook timeouts
const (
	// WebhookProcessing bounds the handling of a single webhook event,
	// including store access and an optional LLM call.
	WebhookProcessing = 60 * time.Second

	// WebhookHTTPRead is the HTTP server read timeout. LINE sends small JSON payloads.
	WebhookHTTPRead = 10 * time.Second

	// WebhookHTTPWrite is the HTTP server write timeout.
	WebhookHTTPWrite = 65 * time.Second

	// WebhookHTTPIdle is the HTTP server idle timeout for keep-alive connections.
	WebhookHTTPIdle = 120 * time.Second

	// LoadingAnimation is how long the LINE loading indicator is shown.
	LoadingAnimation = 60 * time.Second

	// LINEAPICall bounds waiting on the outgoing LINE API rate limiter
	// before a reply is dropped. It is also the HTTP timeout of the LINE client.
	LINEAPICall = 10 * time.Second
)

// LLM timeouts
const (
	// LLMIntentParse bounds one NLU fallback call across all providers.
	LLMIntentParse = 20 * time.Second
)

// Store timeouts
const (
	// DatabaseBusyTimeout is the SQLite busy_timeout pragma value.
	DatabaseBusyTimeout = 30 * time.Second

	// DatabaseConnMaxLifetime is the maximum lifetime of pooled reader connections.
	DatabaseConnMaxLifetime = time.Hour

	// ReadinessCheckTimeout bounds the store ping in /readyz.
	ReadinessCheckTimeout = 3 * time.Second
)

// Deposit API timeouts
const (
	// DepositPush bounds the LINE push sent after a deposit is recorded.
	DepositPush = 10 * time.Second
)

// Background job intervals
const (
	// SnapshotUploadInterval is the default period between R2 snapshot uploads.
	SnapshotUploadInterval = time.Hour

	// SnapshotUpload bounds one snapshot upload, including compression.
	SnapshotUpload = 5 * time.Minute

	// SnapshotDownload bounds the start-up snapshot restore.
	SnapshotDownload = 2 * time.Minute

	// MetricsUpdateInterval is how often store size gauges are refreshed.
	MetricsUpdateInterval = 5 * time.Minute

	// RateLimiterCleanupInterval is how often inactive per-user limiters are dropped.
	RateLimiterCleanupInterval = 5 * time.Minute
)

// Graceful shutdown
const (
	// GracefulShutdown is the default timeout for graceful server shutdown.
	GracefulShutdown = 30 * time.Second
)
