package order

import "time"

// OrderSettledEvent is emitted exactly once per settled payment intent, on
// the transition that creates the order. It carries a full snapshot so
// subscribers never have to re-query mutable state.
type OrderSettledEvent struct {
	Order          *Order
	RecipientEmail string
	RecipientName  string
	OccurredAt     time.Time
}

func (OrderSettledEvent) EventName() string { return "order.settled" }

func NewOrderSettledEvent(o *Order, email, name string) OrderSettledEvent {
	return OrderSettledEvent{
		Order:          o.Clone(),
		RecipientEmail: email,
		RecipientName:  name,
		OccurredAt:     time.Now().UTC(),
	}
}
