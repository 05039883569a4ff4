package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// openaiIntentParser calls an OpenAI-compatible chat endpoint such as Groq.
type openaiIntentParser struct {
	client     openai.Client
	model      string
	tools      []openai.ChatCompletionToolUnionParam
	systemInst string
	provider   Provider
}

// newOpenAIIntentParser returns nil, nil when apiKey is empty. endpoint
// overrides the provider's base URL and is mainly used by tests.
func newOpenAIIntentParser(provider Provider, apiKey, model, endpoint string) (*openaiIntentParser, error) {
	if apiKey == "" {
		return nil, nil //nolint:nilnil // no key means the provider is off
	}

	baseURL := endpoint
	if baseURL == "" {
		var ok bool
		if baseURL, ok = ProviderEndpoint[provider]; !ok {
			return nil, fmt.Errorf("unsupported OpenAI-compatible provider: %s", provider)
		}
	}

	if model == "" {
		switch provider {
		case ProviderGroq:
			model = DefaultGroqIntentModels[0]
		default:
			return nil, fmt.Errorf("no default model for provider: %s", provider)
		}
	}

	return &openaiIntentParser{
		client:     openai.NewClient(option.WithBaseURL(baseURL), option.WithAPIKey(apiKey)),
		model:      model,
		tools:      buildOpenAITools(),
		systemInst: IntentParserSystemPrompt,
		provider:   provider,
	}, nil
}

// buildOpenAITools converts the genai declarations to JSON Schema tools.
// genai types are upper case ("INTEGER"); JSON Schema wants "integer".
func buildOpenAITools() []openai.ChatCompletionToolUnionParam {
	decls := BuildIntentFunctions()
	result := make([]openai.ChatCompletionToolUnionParam, 0, len(decls))

	for _, fd := range decls {
		properties := make(map[string]any, len(fd.Parameters.Properties))
		for name, schema := range fd.Parameters.Properties {
			prop := map[string]any{
				"type":        strings.ToLower(string(schema.Type)),
				"description": schema.Description,
			}
			if len(schema.Enum) > 0 {
				prop["enum"] = schema.Enum
			}
			properties[name] = prop
		}
		required := fd.Parameters.Required
		if required == nil {
			required = []string{}
		}

		result = append(result, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        fd.Name,
			Description: openai.String(fd.Description),
			Parameters: openai.FunctionParameters{
				"type":       "object",
				"properties": properties,
				"required":   required,
			},
		}))
	}
	return result
}

// Parse asks the model for exactly one tool call.
func (p *openaiIntentParser) Parse(ctx context.Context, text string) (*ParseResult, error) {
	if p == nil {
		return nil, errors.New("intent parser is nil")
	}

	params := openai.ChatCompletionNewParams{
		Model: p.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(p.systemInst),
			openai.UserMessage(text),
		},
		Tools: p.tools,
		ToolChoice: openai.ChatCompletionToolChoiceOptionUnionParam{
			OfAuto: openai.String(string(openai.ChatCompletionToolChoiceOptionAutoRequired)),
		},
		Temperature: openai.Float(0.1),
		MaxTokens:   openai.Int(256),
	}

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, params)
	duration := time.Since(start)
	if err != nil {
		slog.WarnContext(ctx, "intent parse call failed",
			"provider", p.provider,
			"model", p.model,
			"input_length", len(text),
			"duration_ms", duration.Milliseconds(),
			"error", err)
		status := 0
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			status = apiErr.StatusCode
		}
		return nil, WrapError(fmt.Errorf("chat completion: %w", err), p.provider, status)
	}

	res, err := p.parseResponse(resp)
	if err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "intent parse completed",
		"provider", p.provider,
		"model", p.model,
		"function", res.FunctionName,
		"total_tokens", resp.Usage.TotalTokens,
		"duration_ms", duration.Milliseconds())
	return res, nil
}

func (p *openaiIntentParser) parseResponse(resp *openai.ChatCompletion) (*ParseResult, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return nil, errors.New("empty response from model")
	}
	calls := resp.Choices[0].Message.ToolCalls
	if len(calls) == 0 {
		return nil, errors.New("no tool call in response")
	}
	return p.parseToolCall(string(calls[0].Type), calls[0].Function.Name, calls[0].Function.Arguments)
}

func (p *openaiIntentParser) parseToolCall(toolType, name, arguments string) (*ParseResult, error) {
	if toolType != "function" {
		return nil, fmt.Errorf("unexpected tool type: %s", toolType)
	}
	if !knownFunction(name) {
		return nil, fmt.Errorf("unknown function: %s", name)
	}

	var args map[string]any
	if arguments != "" {
		dec := json.NewDecoder(strings.NewReader(arguments))
		dec.UseNumber()
		if err := dec.Decode(&args); err != nil {
			return nil, fmt.Errorf("decode function arguments: %w", err)
		}
	}
	params, err := extractParams(name, args)
	if err != nil {
		return nil, err
	}
	return &ParseResult{
		FunctionName: name,
		Params:       params,
		Provider:     p.provider,
		Model:        p.model,
	}, nil
}

func (p *openaiIntentParser) IsEnabled() bool {
	return p != nil
}

func (p *openaiIntentParser) Provider() Provider {
	if p == nil {
		return ""
	}
	return p.provider
}

// Close is a no-op; openai-go uses the shared HTTP client.
func (p *openaiIntentParser) Close() error {
	return nil
}
