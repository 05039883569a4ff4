package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"
)

// geminiIntentParser calls one Gemini model with function calling forced.
type geminiIntentParser struct {
	client     *genai.Client
	model      string
	tools      []*genai.Tool
	systemInst string
}

// newGeminiIntentParser returns nil, nil when apiKey is empty.
func newGeminiIntentParser(ctx context.Context, apiKey, model string) (*geminiIntentParser, error) {
	if apiKey == "" {
		return nil, nil //nolint:nilnil // no key means the provider is off
	}
	if model == "" {
		model = DefaultGeminiIntentModels[0]
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &geminiIntentParser{
		client:     client,
		model:      model,
		tools:      []*genai.Tool{{FunctionDeclarations: BuildIntentFunctions()}},
		systemInst: IntentParserSystemPrompt,
	}, nil
}

// Parse asks the model for exactly one function call.
func (p *geminiIntentParser) Parse(ctx context.Context, text string) (*ParseResult, error) {
	if p == nil || p.client == nil {
		return nil, errors.New("intent parser is nil")
	}

	cfg := &genai.GenerateContentConfig{
		Tools:             p.tools,
		SystemInstruction: genai.NewContentFromText(p.systemInst, genai.RoleUser),
		ToolConfig: &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{
				Mode: genai.FunctionCallingConfigModeAny,
			},
		},
		Temperature:     genai.Ptr[float32](0.1),
		MaxOutputTokens: 256,
	}

	start := time.Now()
	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(text), cfg)
	duration := time.Since(start)
	if err != nil {
		slog.WarnContext(ctx, "intent parse call failed",
			"provider", ProviderGemini,
			"model", p.model,
			"input_length", len(text),
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return nil, WrapError(fmt.Errorf("generate content: %w", err), ProviderGemini, geminiStatus(err))
	}

	res, err := p.parseResponse(resp)
	if err != nil {
		return nil, err
	}
	if resp.UsageMetadata != nil {
		slog.DebugContext(ctx, "intent parse completed",
			"provider", ProviderGemini,
			"model", p.model,
			"function", res.FunctionName,
			"total_tokens", resp.UsageMetadata.TotalTokenCount,
			"duration_ms", duration.Milliseconds())
	}
	return res, nil
}

func (p *geminiIntentParser) parseResponse(resp *genai.GenerateContentResponse) (*ParseResult, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, errors.New("empty response from model")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, errors.New("no content in response")
	}
	for _, part := range candidate.Content.Parts {
		if part.FunctionCall != nil {
			return p.parseFunctionCall(part.FunctionCall)
		}
	}
	return nil, errors.New("no function call in response")
}

func (p *geminiIntentParser) parseFunctionCall(fc *genai.FunctionCall) (*ParseResult, error) {
	if !knownFunction(fc.Name) {
		return nil, fmt.Errorf("unknown function: %s", fc.Name)
	}
	params, err := extractParams(fc.Name, fc.Args)
	if err != nil {
		return nil, err
	}
	return &ParseResult{
		FunctionName: fc.Name,
		Params:       params,
		Provider:     ProviderGemini,
		Model:        p.model,
	}, nil
}

func (p *geminiIntentParser) IsEnabled() bool {
	return p != nil && p.client != nil
}

func (p *geminiIntentParser) Provider() Provider {
	return ProviderGemini
}

// Close is a no-op; the genai client holds no connections of its own.
func (p *geminiIntentParser) Close() error {
	return nil
}

// geminiStatus extracts the HTTP status from a genai API error, or 0.
func geminiStatus(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code
	}
	return 0
}
