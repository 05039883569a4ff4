package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/omamori-dev/omamori-linebot-go/internal/config"
	"github.com/omamori-dev/omamori-linebot-go/internal/intent"
)

// extractParams formats the declared parameters of a call as strings.
// Missing parameters are left out; the converter decides what is required.
func extractParams(funcName string, args map[string]any) (map[string]string, error) {
	params := make(map[string]string)
	for _, key := range ParamKeysMap[funcName] {
		v, ok := args[key]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case string:
			params[key] = val
		case float64:
			if math.IsNaN(val) || math.IsInf(val, 0) || val != math.Trunc(val) {
				return nil, fmt.Errorf("parameter %q for function %q is not an integer: %v", key, funcName, val)
			}
			params[key] = strconv.FormatFloat(val, 'f', 0, 64)
		case int:
			params[key] = strconv.Itoa(val)
		case int64:
			params[key] = strconv.FormatInt(val, 10)
		case json.Number:
			params[key] = val.String()
		default:
			return nil, fmt.Errorf("parameter %q for function %q has unsupported type %T", key, funcName, v)
		}
	}
	return params, nil
}

// ToParsedIntent converts a model answer into the router's result type.
// Arguments that fail validation degrade to the closest safe intent, so a
// hallucinated amount or address never reaches a handler.
func ToParsedIntent(res *ParseResult, text string) intent.ParsedIntent {
	unknown := intent.ParsedIntent{Kind: intent.KindUnknown, RawText: text}
	if res == nil {
		return unknown
	}
	p := res.Params

	switch res.FunctionName {
	case FuncSetSavingsGoal:
		amount, ok := positiveInt(p[ParamAmount])
		if !ok {
			return unknown
		}
		out := intent.ParsedIntent{
			Kind:    intent.KindSetSavingsGoal,
			Amount:  amount,
			Goal:    intent.GoalLabel(p[ParamGoal] + " " + text),
			RawText: text,
		}
		if d := p[ParamDeadline]; d != "" {
			if _, err := time.Parse(time.DateOnly, d); err == nil {
				out.Deadline = d
			}
		}
		if out.Deadline == "" {
			if days, ok := positiveInt(p[ParamDays]); ok && days <= config.MaxGoalDays {
				out.TimelineDays = int(days)
			}
		}
		return out

	case FuncFamilyCommand:
		sub := p[ParamAction]
		switch sub {
		case intent.FamilyCreate, intent.FamilyInvite, intent.FamilyJoin,
			intent.FamilyGoal, intent.FamilyProgress, intent.FamilyInfo:
		default:
			sub = intent.FamilyInfo
		}
		out := intent.ParsedIntent{Kind: intent.KindFamilyCommand, Sub: sub, RawText: text}
		if amount, ok := positiveInt(p[ParamAmount]); ok {
			out.Amount = amount
		}
		return out

	case FuncSetHeir:
		if addr := p[ParamAddress]; intent.IsAddress(addr) {
			return intent.ParsedIntent{Kind: intent.KindSetHeir, Address: addr, RawText: text}
		}
		return intent.ParsedIntent{Kind: intent.KindInheritanceHelp, RawText: text}

	case FuncCulturalValue:
		switch v := p[ParamValue]; v {
		case intent.ValueMottainai, intent.ValueOmotenashi, intent.ValueKaizen, intent.ValueGanbaru:
			return intent.ParsedIntent{Kind: intent.KindCulturalValue, Value: v, RawText: text}
		}
		return unknown

	case FuncCheckProgress:
		return intent.ParsedIntent{Kind: intent.KindCheckProgress, RawText: text}
	case FuncInheritanceHelp:
		return intent.ParsedIntent{Kind: intent.KindInheritanceHelp, RawText: text}
	case FuncGreeting:
		return intent.ParsedIntent{Kind: intent.KindGreeting, RawText: text}
	case FuncHelp:
		return intent.ParsedIntent{Kind: intent.KindHelp, RawText: text}
	default:
		return unknown
	}
}

func positiveInt(s string) (int64, bool) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// Client is the bot-facing entry point: it bounds each call and converts the
// result into an intent.ParsedIntent.
type Client struct {
	parser  IntentParser
	timeout time.Duration
}

// NewClient wraps parser. A nil parser gives a disabled client.
func NewClient(parser IntentParser) *Client {
	return &Client{parser: parser, timeout: config.LLMIntentParse}
}

// IsEnabled reports whether calls can reach a model.
func (c *Client) IsEnabled() bool {
	return c != nil && c.parser != nil && c.parser.IsEnabled()
}

// ParseIntent classifies text with the model.
func (c *Client) ParseIntent(ctx context.Context, text string) (intent.ParsedIntent, error) {
	if !c.IsEnabled() {
		return intent.ParsedIntent{Kind: intent.KindUnknown, RawText: text}, errors.New("intent parser not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.parser.Parse(ctx, text)
	if err != nil {
		return intent.ParsedIntent{Kind: intent.KindUnknown, RawText: text}, err
	}
	return ToParsedIntent(res, text), nil
}

// Close releases the parser chain.
func (c *Client) Close() error {
	if c == nil || c.parser == nil {
		return nil
	}
	return c.parser.Close()
}
