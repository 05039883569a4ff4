// Package genai is the optional LLM fallback for messages the rule-based
// intent router cannot classify.
//
// Gemini goes through google.golang.org/genai. Groq and other
// OpenAI-compatible endpoints go through github.com/openai/openai-go/v3.
// Every parser forces a function call, so the model always answers with one
// of the savings intents declared in functions.go.
//
// Fallback happens in three layers:
//  1. the same model is retried with backoff on transient errors
//  2. the next model in the provider's list is tried
//  3. the next provider in LLMConfig.Providers is tried
package genai

import (
	"context"
	"time"
)

// Provider names an LLM backend.
type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderGroq   Provider = "groq"
)

// ProviderEndpoint holds base URLs for OpenAI-compatible providers.
var ProviderEndpoint = map[Provider]string{
	ProviderGroq: "https://api.groq.com/openai/v1/",
}

// IsOpenAICompatible reports whether p is served by the OpenAI client.
func (p Provider) IsOpenAICompatible() bool {
	_, ok := ProviderEndpoint[p]
	return ok
}

func (p Provider) String() string {
	return string(p)
}

// IntentParser classifies a message the router reported as unknown.
type IntentParser interface {
	Parse(ctx context.Context, text string) (*ParseResult, error)
	IsEnabled() bool
	Close() error
	Provider() Provider
}

// ParseResult is the function call chosen by the model.
type ParseResult struct {
	// FunctionName is one of the names declared in BuildIntentFunctions.
	FunctionName string

	// Params holds the call arguments as strings. Numbers are formatted
	// without a fraction.
	Params map[string]string

	// Provider and Model identify who answered, for logs.
	Provider Provider
	Model    string
}

// Recorder receives LLM call outcomes. *metrics.Metrics satisfies it.
type Recorder interface {
	RecordLLM(provider, status string, duration time.Duration)
}

// RetryConfig controls retries of a single model. Backoff uses full jitter.
type RetryConfig struct {
	MaxAttempts  int // including the first call
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// ProviderConfig holds one provider's key and model chain.
type ProviderConfig struct {
	APIKey string

	// IntentModels is tried in order; the first is primary.
	IntentModels []string
}

// LLMConfig configures every provider.
type LLMConfig struct {
	// Providers is the fallback order. Providers without a key are skipped.
	Providers []Provider

	Gemini ProviderConfig
	Groq   ProviderConfig

	RetryConfig RetryConfig
}

var (
	DefaultGeminiIntentModels = []string{"gemini-2.5-flash", "gemini-2.5-flash-lite"}
	DefaultGroqIntentModels   = []string{"meta-llama/llama-4-maverick-17b-128e-instruct", "llama-3.3-70b-versatile"}
	DefaultProviders          = []Provider{ProviderGemini, ProviderGroq}
)

const (
	DefaultMaxRetryAttempts  = 2
	DefaultInitialRetryDelay = 500 * time.Millisecond
	DefaultMaxRetryDelay     = 3 * time.Second
)

// HasAnyProvider reports whether at least one provider has a key.
func (c *LLMConfig) HasAnyProvider() bool {
	return c.Gemini.APIKey != "" || c.Groq.APIKey != ""
}

// HasProvider reports whether p has a key.
func (c *LLMConfig) HasProvider(p Provider) bool {
	pc := c.GetProviderConfig(p)
	return pc != nil && pc.APIKey != ""
}

// GetProviderConfig returns p's settings, or nil for an unknown provider.
func (c *LLMConfig) GetProviderConfig(p Provider) *ProviderConfig {
	switch p {
	case ProviderGemini:
		return &c.Gemini
	case ProviderGroq:
		return &c.Groq
	default:
		return nil
	}
}

// ConfiguredProviders returns the providers with keys, in fallback order.
func (c *LLMConfig) ConfiguredProviders() []Provider {
	result := make([]Provider, 0, len(c.Providers))
	for _, p := range c.Providers {
		if c.HasProvider(p) {
			result = append(result, p)
		}
	}
	return result
}
