package genai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestClassifyError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want ErrorAction
	}{
		{"nil", nil, ActionFail},
		{"canceled", context.Canceled, ActionFail},
		{"wrapped canceled", fmt.Errorf("parse: %w", context.Canceled), ActionFail},
		{"deadline", context.DeadlineExceeded, ActionRetry},
		{"status 429", WrapError(errors.New("slow down"), ProviderGroq, http.StatusTooManyRequests), ActionRetry},
		{"status 503", WrapError(errors.New("x"), ProviderGemini, http.StatusServiceUnavailable), ActionRetry},
		{"status 400", WrapError(errors.New("x"), ProviderGemini, http.StatusBadRequest), ActionFail},
		{"status 401", WrapError(errors.New("x"), ProviderGroq, http.StatusUnauthorized), ActionFail},
		{"status 408", WrapError(errors.New("x"), ProviderGroq, http.StatusRequestTimeout), ActionRetry},
		{"zero status uses message", WrapError(errors.New("quota exceeded"), ProviderGroq, 0), ActionFallback},
		{"quota message", errors.New("Daily limit reached for this key"), ActionFallback},
		{"rate limit message", errors.New("rate limit exceeded"), ActionRetry},
		{"overloaded", errors.New("model is overloaded"), ActionRetry},
		{"connection reset", errors.New("read: connection reset by peer"), ActionRetry},
		{"invalid api key", errors.New("Invalid API key provided"), ActionFail},
		{"not found", errors.New("model not found"), ActionFail},
		{"unrecognised", errors.New("something odd"), ActionRetry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ClassifyError(tt.err); got != tt.want {
				t.Errorf("ClassifyError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestLLMError(t *testing.T) {
	t.Parallel()

	base := errors.New("boom")
	err := WrapError(base, ProviderGemini, 502)
	if got := err.Error(); got != "boom (status: 502)" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, base) {
		t.Error("LLMError should unwrap to the base error")
	}
	if got := WrapError(base, ProviderGemini, 0).Error(); got != "boom" {
		t.Errorf("Error() without status = %q", got)
	}
	if WrapError(nil, ProviderGemini, 500) != nil {
		t.Error("WrapError(nil) should be nil")
	}
}

func TestErrorActionString(t *testing.T) {
	t.Parallel()

	cases := map[ErrorAction]string{
		ActionRetry:     "retry",
		ActionFallback:  "fallback",
		ActionFail:      "fail",
		ErrorAction(42): "unknown",
	}
	for action, want := range cases {
		if got := action.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", action, got, want)
		}
	}
}

func TestClassifyErrorType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{nil, "success"},
		{context.DeadlineExceeded, "timeout"},
		{context.Canceled, "canceled"},
		{WrapError(errors.New("x"), ProviderGroq, 429), "rate_limit"},
		{WrapError(errors.New("x"), ProviderGroq, 500), "server_error"},
		{WrapError(errors.New("x"), ProviderGroq, 403), "auth_error"},
		{WrapError(errors.New("x"), ProviderGroq, 400), "invalid_request"},
		{errors.New("billing hard limit"), "quota_exhausted"},
		{errors.New("unavailable"), "transient_error"},
		{errors.New("malformed"), "error"},
	}
	for _, tt := range tests {
		if got := classifyErrorType(tt.err); got != tt.want {
			t.Errorf("classifyErrorType(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
