package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// FallbackIntentParser tries a chain of parsers in order. Each parser is
// retried with backoff on transient errors before the next one is tried.
// Permanent errors such as a bad request stop the chain.
type FallbackIntentParser struct {
	parsers     []IntentParser
	retryConfig RetryConfig
	recorder    Recorder
}

// NewFallbackIntentParser builds a chain. Nil parsers are dropped.
func NewFallbackIntentParser(cfg RetryConfig, parsers ...IntentParser) *FallbackIntentParser {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	chain := make([]IntentParser, 0, len(parsers))
	for _, p := range parsers {
		if p != nil {
			chain = append(chain, p)
		}
	}
	return &FallbackIntentParser{parsers: chain, retryConfig: cfg}
}

// WithRecorder sets where call outcomes are reported.
func (f *FallbackIntentParser) WithRecorder(r Recorder) *FallbackIntentParser {
	f.recorder = r
	return f
}

// Parse returns the first successful answer in the chain.
func (f *FallbackIntentParser) Parse(ctx context.Context, text string) (*ParseResult, error) {
	if f == nil || len(f.parsers) == 0 {
		return nil, errors.New("intent parser not configured")
	}

	start := time.Now()
	var lastErr error
	for i, parser := range f.parsers {
		callStart := time.Now()
		result, err := f.parseWithRetry(ctx, parser, text)
		if err == nil {
			f.record(parser.Provider(), "success", time.Since(callStart))
			if i > 0 {
				slog.InfoContext(ctx, "intent parsed by fallback",
					"provider", parser.Provider(),
					"position", i,
					"duration", time.Since(start))
			}
			return result, nil
		}

		lastErr = err
		f.record(parser.Provider(), classifyErrorType(err), time.Since(callStart))

		action := ClassifyError(err)
		slog.WarnContext(ctx, "intent parser failed",
			"provider", parser.Provider(),
			"position", i,
			"action", action,
			"error", err)
		if action == ActionFail || ctx.Err() != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("all intent parsers failed: %w", lastErr)
}

func (f *FallbackIntentParser) parseWithRetry(ctx context.Context, parser IntentParser, text string) (*ParseResult, error) {
	var lastErr error
	for attempt := range f.retryConfig.MaxAttempts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := parser.Parse(ctx, text)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ClassifyError(err) != ActionRetry || attempt == f.retryConfig.MaxAttempts-1 {
			break
		}

		backoff := CalculateBackoff(attempt+1, f.retryConfig.InitialDelay, f.retryConfig.MaxDelay)
		if !HasSufficientBudget(ctx, backoff) {
			return nil, fmt.Errorf("no time left to retry: %w", lastErr)
		}
		slog.DebugContext(ctx, "retrying intent parse",
			"provider", parser.Provider(),
			"attempt", attempt+1,
			"backoff", backoff,
			"error", err)
		if err := Sleep(ctx, backoff); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func (f *FallbackIntentParser) record(p Provider, status string, d time.Duration) {
	if f.recorder != nil {
		f.recorder.RecordLLM(string(p), status, d)
	}
}

// IsEnabled reports whether any parser in the chain is usable.
func (f *FallbackIntentParser) IsEnabled() bool {
	if f == nil {
		return false
	}
	for _, p := range f.parsers {
		if p.IsEnabled() {
			return true
		}
	}
	return false
}

// Provider returns the primary provider.
func (f *FallbackIntentParser) Provider() Provider {
	if f == nil || len(f.parsers) == 0 {
		return ""
	}
	return f.parsers[0].Provider()
}

// Len returns the chain length.
func (f *FallbackIntentParser) Len() int {
	if f == nil {
		return 0
	}
	return len(f.parsers)
}

// Close closes every parser and joins their errors.
func (f *FallbackIntentParser) Close() error {
	if f == nil {
		return nil
	}
	var errs []error
	for _, p := range f.parsers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// classifyErrorType maps an error to a metric status label.
func classifyErrorType(err error) string {
	if err == nil {
		return "success"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}

	var llmErr *LLMError
	if errors.As(err, &llmErr) {
		switch {
		case llmErr.StatusCode == http.StatusTooManyRequests:
			return "rate_limit"
		case llmErr.StatusCode >= 500:
			return "server_error"
		case llmErr.StatusCode == http.StatusUnauthorized || llmErr.StatusCode == http.StatusForbidden:
			return "auth_error"
		case llmErr.StatusCode == http.StatusBadRequest:
			return "invalid_request"
		}
	}

	switch ClassifyError(err) {
	case ActionFallback:
		return "quota_exhausted"
	case ActionRetry:
		return "transient_error"
	default:
		return "error"
	}
}
