package genai

import (
	"context"
	"testing"
)

func TestDefaultLLMConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultLLMConfig()
	if len(cfg.Providers) != 2 || cfg.Providers[0] != ProviderGemini {
		t.Errorf("Providers = %v", cfg.Providers)
	}
	if len(cfg.Gemini.IntentModels) == 0 || len(cfg.Groq.IntentModels) == 0 {
		t.Error("default model chains should not be empty")
	}
	if cfg.RetryConfig != DefaultRetryConfig() {
		t.Errorf("RetryConfig = %+v", cfg.RetryConfig)
	}
	if cfg.HasAnyProvider() {
		t.Error("defaults carry no API keys")
	}
}

func TestLLMConfig_Providers(t *testing.T) {
	t.Parallel()

	cfg := DefaultLLMConfig()
	cfg.Groq.APIKey = "groq-key"

	if !cfg.HasAnyProvider() || !cfg.HasProvider(ProviderGroq) || cfg.HasProvider(ProviderGemini) {
		t.Error("only groq should be configured")
	}
	if cfg.HasProvider(Provider("other")) || cfg.GetProviderConfig(Provider("other")) != nil {
		t.Error("unknown provider should not be configured")
	}
	got := cfg.ConfiguredProviders()
	if len(got) != 1 || got[0] != ProviderGroq {
		t.Errorf("ConfiguredProviders() = %v", got)
	}
}

func TestCreateIntentParser_NoProviders(t *testing.T) {
	t.Parallel()

	p, err := CreateIntentParser(context.Background(), DefaultLLMConfig(), nil)
	if err != nil || p != nil {
		t.Errorf("CreateIntentParser() = %v, %v; want nil, nil", p, err)
	}
}

func TestCreateIntentParser_GroqChain(t *testing.T) {
	t.Parallel()

	cfg := DefaultLLMConfig()
	cfg.Groq.APIKey = "groq-key"
	cfg.Groq.IntentModels = nil

	p, err := CreateIntentParser(context.Background(), cfg, &recordingRecorder{})
	if err != nil {
		t.Fatalf("CreateIntentParser() error = %v", err)
	}
	if p.Len() != len(DefaultGroqIntentModels) {
		t.Errorf("chain length = %d, want %d", p.Len(), len(DefaultGroqIntentModels))
	}
	if p.Provider() != ProviderGroq || !p.IsEnabled() {
		t.Errorf("Provider() = %q", p.Provider())
	}
}

func TestProvider(t *testing.T) {
	t.Parallel()

	if ProviderGemini.IsOpenAICompatible() || !ProviderGroq.IsOpenAICompatible() {
		t.Error("only groq is OpenAI-compatible")
	}
	if ProviderGroq.String() != "groq" {
		t.Errorf("String() = %q", ProviderGroq.String())
	}
}
