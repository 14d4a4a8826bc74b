package payment

import (
	"context"
	"time"
)

// Intent is a gateway-side payment authorization for a fixed amount in
// integer minor-currency units.
type Intent struct {
	ID           string
	ClientSecret string
	Amount       int64
	Currency     string
}

// Charge is a gateway-side capture record, the source of receipt artifacts.
type Charge struct {
	ID            string
	IntentID      string
	Amount        int64
	Currency      string
	Status        string
	Paid          bool
	ReceiptURL    string
	ReceiptNumber string
	PaymentMethod string
	Description   string
	CreatedAt     time.Time
}

type CreateIntentParams struct {
	Amount     int64
	Currency   string
	CustomerID string
	Metadata   map[string]string
}

// Gateway is the outbound port to the external payment provider. The
// provider's retry and delivery behaviour is adversarial: callers must stay
// idempotent on their side of every operation.
type Gateway interface {
	CreateCustomer(ctx context.Context, email, name string, metadata map[string]string) (string, error)
	CreateIntent(ctx context.Context, params CreateIntentParams) (*Intent, error)
	ListCharges(ctx context.Context, customerID string) ([]Charge, error)
}
