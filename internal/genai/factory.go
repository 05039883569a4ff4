package genai

import (
	"context"
	"log/slog"
)

// CreateIntentParser builds the fallback chain from cfg: every model of every
// configured provider, in provider order. It returns nil, nil when no
// provider has a key.
func CreateIntentParser(ctx context.Context, cfg LLMConfig, recorder Recorder) (*FallbackIntentParser, error) {
	var parsers []IntentParser

	for _, provider := range cfg.ConfiguredProviders() {
		pc := cfg.GetProviderConfig(provider)
		models := pc.IntentModels
		if len(models) == 0 {
			models = defaultModels(provider)
		}

		for _, m := range models {
			var (
				p   IntentParser
				err error
			)
			switch {
			case provider == ProviderGemini:
				var gp *geminiIntentParser
				gp, err = newGeminiIntentParser(ctx, pc.APIKey, m)
				if gp != nil {
					p = gp
				}
			case provider.IsOpenAICompatible():
				var op *openaiIntentParser
				op, err = newOpenAIIntentParser(provider, pc.APIKey, m, "")
				if op != nil {
					p = op
				}
			}
			if err != nil {
				slog.WarnContext(ctx, "skipping intent parser", "provider", provider, "model", m, "error", err)
				continue
			}
			if p != nil {
				parsers = append(parsers, p)
			}
		}
	}

	if len(parsers) == 0 {
		slog.InfoContext(ctx, "no LLM provider configured for intent parsing")
		return nil, nil //nolint:nilnil // NLU fallback is optional
	}

	slog.InfoContext(ctx, "intent parser configured",
		"primary", parsers[0].Provider(),
		"chain_size", len(parsers))

	return NewFallbackIntentParser(cfg.RetryConfig, parsers...).WithRecorder(recorder), nil
}

func defaultModels(p Provider) []string {
	switch p {
	case ProviderGemini:
		return DefaultGeminiIntentModels
	case ProviderGroq:
		return DefaultGroqIntentModels
	default:
		return nil
	}
}

// DefaultLLMConfig returns the default provider order and model chains.
// API keys must be filled in by the caller.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Providers:   DefaultProviders,
		Gemini:      ProviderConfig{IntentModels: DefaultGeminiIntentModels},
		Groq:        ProviderConfig{IntentModels: DefaultGroqIntentModels},
		RetryConfig: DefaultRetryConfig(),
	}
}

// DefaultRetryConfig returns two attempts with 500ms to 3s backoff.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  DefaultMaxRetryAttempts,
		InitialDelay: DefaultInitialRetryDelay,
		MaxDelay:     DefaultMaxRetryDelay,
	}
}
