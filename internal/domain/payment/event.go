package payment

import "errors"

// ErrSignature marks a delivery event that failed authenticity verification.
// No state transition may be attempted after it.
var ErrSignature = errors.New("payment: event signature verification failed")

type EventType string

const (
	EventPaymentSucceeded EventType = "payment_intent.succeeded"
	EventChargeSucceeded  EventType = "charge.succeeded"
	EventChargeUpdated    EventType = "charge.updated"
)

// Event is a verified delivery event pushed by the gateway. Exactly one of
// Intent or Charge is set, depending on Type.
type Event struct {
	ID     string
	Type   EventType
	Intent *IntentData
	Charge *ChargeData
}

type IntentData struct {
	ID       string
	Metadata map[string]string
}

type ChargeData struct {
	ID            string
	IntentID      string
	ReceiptURL    string
	ReceiptNumber string
}

// EventVerifier authenticates a raw webhook payload against the shared
// secret and decodes it into an Event. Implementations must verify before
// parsing anything the payload claims about itself.
type EventVerifier interface {
	Verify(payload []byte, signature string) (*Event, error)
}
