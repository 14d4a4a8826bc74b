package stripegateway

import (
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/shopkart-labs/shopkart-api/internal/domain/payment"
)

// WebhookVerifier authenticates Stripe delivery events against the endpoint
// secret and maps them to domain events. Verification happens before any
// field of the payload is trusted.
type WebhookVerifier struct {
	secret string
}

func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: secret}
}

func (v *WebhookVerifier) Verify(payload []byte, signature string) (*payment.Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, v.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrSignature, err)
	}

	out := &payment.Event{
		ID:   event.ID,
		Type: payment.EventType(event.Type),
	}

	switch out.Type {
	case payment.EventPaymentSucceeded:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("stripe: decode payment intent event: %w", err)
		}
		out.Intent = &payment.IntentData{ID: pi.ID, Metadata: pi.Metadata}

	case payment.EventChargeSucceeded, payment.EventChargeUpdated:
		var ch stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			return nil, fmt.Errorf("stripe: decode charge event: %w", err)
		}
		data := &payment.ChargeData{
			ID:            ch.ID,
			ReceiptURL:    ch.ReceiptURL,
			ReceiptNumber: ch.ReceiptNumber,
		}
		if ch.PaymentIntent != nil {
			data.IntentID = ch.PaymentIntent.ID
		}
		out.Charge = data
	}

	return out, nil
}
