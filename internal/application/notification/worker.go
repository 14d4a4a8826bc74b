package notification

import (
	"context"
	"fmt"

	"github.com/shopkart-labs/shopkart-api/internal/domain/notification"
	"github.com/shopkart-labs/shopkart-api/internal/domain/order"
	"github.com/shopkart-labs/shopkart-api/internal/domain/outbox"
	"github.com/shopkart-labs/shopkart-api/internal/observability"
)

// Worker consumes settled-order events and sends the confirmation email.
// Delivery is best effort: a failure is logged and counted, never retried
// and never surfaced to the settlement path.
type Worker struct {
	renderer notification.Renderer
	sender   notification.Sender

	log         observability.Logger
	mailCounter observability.Counter // mail_deliveries_total{outcome}
}

func NewWorker(renderer notification.Renderer, sender notification.Sender, tel observability.Observability) *Worker {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Worker{
		renderer:    renderer,
		sender:      sender,
		log:         tel.Logger().With(observability.F("component", "notification_worker")),
		mailCounter: tel.Metrics().Counter(observability.MMailDeliveries),
	}
}

// Register subscribes the worker on the event bus.
func (w *Worker) Register(sub outbox.Subscriber) {
	sub.Subscribe(order.OrderSettledEvent{}.EventName(), w.Handle)
}

// Handle renders and sends the confirmation for one settled order. It always
// returns nil; the bus has nothing useful to do with a mail failure.
func (w *Worker) Handle(ctx context.Context, e outbox.Event) error {
	settled, ok := e.(order.OrderSettledEvent)
	if !ok {
		w.log.Warn("unexpected_event_payload", observability.F("event", e.EventName()))
		return nil
	}
	if settled.RecipientEmail == "" {
		w.log.Warn("confirmation_skipped_no_recipient",
			observability.F("order_id", settled.Order.ID),
		)
		return nil
	}

	if err := w.deliver(ctx, settled); err != nil {
		w.mailCounter.Add(1, observability.L("outcome", "error"))
		w.log.Error("confirmation_delivery_failed",
			observability.F("order_id", settled.Order.ID),
			observability.F("recipient", settled.RecipientEmail),
			observability.F("error", err.Error()),
		)
		return nil
	}

	w.mailCounter.Add(1, observability.L("outcome", "success"))
	w.log.Info("confirmation_sent",
		observability.F("order_id", settled.Order.ID),
		observability.F("recipient", settled.RecipientEmail),
	)
	return nil
}

func (w *Worker) deliver(ctx context.Context, settled order.OrderSettledEvent) error {
	subject, body, err := w.renderer.RenderOrderConfirmation(settled.Order, settled.RecipientName)
	if err != nil {
		return fmt.Errorf("render confirmation: %w", err)
	}
	return w.sender.Send(ctx, notification.Message{
		To:      settled.RecipientEmail,
		Subject: subject,
		Body:    body,
	})
}
