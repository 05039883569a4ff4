package webhook

import (
	"github.com/omamori-dev/omamori-linebot-go/internal/ratelimit"
)

// HandlerOption overrides a Handler default after construction.
type HandlerOption func(*Handler)

// WithGlobalRateLimiter replaces the limiter for outgoing LINE API calls.
func WithGlobalRateLimiter(l *ratelimit.Limiter) HandlerOption {
	return func(h *Handler) {
		if l != nil {
			h.rateLimiter = l
		}
	}
}

// WithMaxMessagesPerReply overrides the per-reply message cap.
func WithMaxMessagesPerReply(n int) HandlerOption {
	return func(h *Handler) {
		h.maxMessagesPerReply = n
	}
}

// WithSenderName sets the sender name used on notices the handler adds
// itself.
func WithSenderName(name string) HandlerOption {
	return func(h *Handler) {
		h.senderName = name
	}
}
