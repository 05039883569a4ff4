// Package bot routes classified chat messages to the feature modules
// (savings, family, heir, culture, help) and turns their results into LINE
// replies.
package bot

import (
	"context"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/omamori-dev/omamori-linebot-go/internal/intent"
)

// Request is one classified message, together with where it came from.
type Request struct {
	Intent intent.ParsedIntent

	UserID  string // sender; may be empty for some group events
	ChatID  string // user, group or room ID the reply goes to
	IsGroup bool   // group or room chat

	// Sender is the identity every message in the reply should carry.
	Sender *messaging_api.Sender
}

// Handler is a feature module. Each intent kind is served by exactly one
// handler.
type Handler interface {
	// Name is the module name used in logs and metrics.
	Name() string

	// Kinds lists the intent kinds this handler serves.
	Kinds() []intent.Kind

	// Handle answers one message. Returned errors should be wrapped with
	// errors.NewWrapper so the user sees a meaningful reply.
	Handle(ctx context.Context, req Request) ([]messaging_api.MessageInterface, error)
}

// PostbackHandler is implemented by handlers that own postback actions.
//
// Postback data is "prefix" + "action$param1$param2...". The whole string
// must stay within the 300 byte LINE limit, and parameters must not
// contain "$".
type PostbackHandler interface {
	Handler

	// PostbackPrefix is the module prefix such as "family:".
	PostbackPrefix() string

	// HandlePostback receives data with the prefix removed.
	HandlePostback(ctx context.Context, req Request, data string) ([]messaging_api.MessageInterface, error)
}

// HandlerFunc runs a handler for a request.
type HandlerFunc func(ctx context.Context, h Handler, req Request) ([]messaging_api.MessageInterface, error)

// Middleware wraps a HandlerFunc.
type Middleware func(next HandlerFunc) HandlerFunc

func callHandle(ctx context.Context, h Handler, req Request) ([]messaging_api.MessageInterface, error) {
	return h.Handle(ctx, req)
}
