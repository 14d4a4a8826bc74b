package notification

import (
	"context"

	"github.com/shopkart-labs/shopkart-api/internal/domain/order"
)

// Message is a fully formed notification ready for transport.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender attempts a single delivery. Implementations must use a fresh
// transport connection per attempt and bound the attempt in time.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Renderer formats an order confirmation. Pure formatting, no side effects.
type Renderer interface {
	RenderOrderConfirmation(o *order.Order, recipientName string) (subject, body string, err error)
}
