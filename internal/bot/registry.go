package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	domerrors "github.com/omamori-dev/omamori-linebot-go/internal/errors"
	"github.com/omamori-dev/omamori-linebot-go/internal/intent"
)

// Registry maps intent kinds to handlers and runs them through middleware.
// Register and Use are not safe for concurrent use; call them during start-up.
type Registry struct {
	handlers []Handler
	byKind   map[intent.Kind]Handler
	mws      []Middleware
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byKind: make(map[intent.Kind]Handler)}
}

// Register adds h. It panics when another handler already serves one of h's
// kinds, since that is a wiring mistake.
func (r *Registry) Register(h Handler) {
	for _, k := range h.Kinds() {
		if prev, ok := r.byKind[k]; ok {
			panic(fmt.Sprintf("bot: intent %q registered by both %s and %s", k, prev.Name(), h.Name()))
		}
		r.byKind[k] = h
	}
	r.handlers = append(r.handlers, h)
}

// Use appends middleware. The first one added is the outermost.
func (r *Registry) Use(mws ...Middleware) {
	r.mws = append(r.mws, mws...)
}

// Handler returns the handler serving kind, or nil.
func (r *Registry) Handler(kind intent.Kind) Handler {
	return r.byKind[kind]
}

// Handlers returns the registered handlers in registration order.
func (r *Registry) Handlers() []Handler {
	return r.handlers
}

// Dispatch runs the handler for req.Intent.Kind. It returns
// errors.ErrUnknownIntent when no handler serves the kind.
func (r *Registry) Dispatch(ctx context.Context, req Request) ([]messaging_api.MessageInterface, error) {
	h := r.byKind[req.Intent.Kind]
	if h == nil {
		return nil, fmt.Errorf("dispatch %q: %w", req.Intent.Kind, domerrors.ErrUnknownIntent)
	}
	return r.chain(callHandle)(ctx, h, req)
}

// DispatchPostback routes data to the handler owning its prefix. The bool
// result is false when no handler claims the data.
func (r *Registry) DispatchPostback(ctx context.Context, req Request, data string) ([]messaging_api.MessageInterface, bool, error) {
	for _, h := range r.handlers {
		ph, ok := h.(PostbackHandler)
		if !ok {
			continue
		}
		prefix := ph.PostbackPrefix()
		if prefix == "" || !strings.HasPrefix(data, prefix) {
			continue
		}
		rest := strings.TrimPrefix(data, prefix)
		run := func(ctx context.Context, _ Handler, req Request) ([]messaging_api.MessageInterface, error) {
			return ph.HandlePostback(ctx, req, rest)
		}
		msgs, err := r.chain(run)(ctx, ph, req)
		return msgs, true, err
	}
	return nil, false, nil
}

func (r *Registry) chain(final HandlerFunc) HandlerFunc {
	next := final
	for i := len(r.mws) - 1; i >= 0; i-- {
		next = r.mws[i](next)
	}
	return next
}
