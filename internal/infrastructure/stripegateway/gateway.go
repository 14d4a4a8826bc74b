package stripegateway

import (
	"context"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	"github.com/shopkart-labs/shopkart-api/internal/domain/payment"
)

const chargePageLimit = 100

// Gateway implements payment.Gateway on top of Stripe. Each call carries the
// request context; the stripe client manages its own pooled transport.
type Gateway struct {
	api *client.API
}

func New(secretKey string) *Gateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Gateway{api: api}
}

func (g *Gateway) CreateCustomer(ctx context.Context, email, name string, metadata map[string]string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	c, err := g.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe: create customer: %w", err)
	}
	return c.ID, nil
}

func (g *Gateway) CreateIntent(ctx context.Context, p payment.CreateIntentParams) (*payment.Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(p.Amount),
		Currency: stripe.String(p.Currency),
		Customer: stripe.String(p.CustomerID),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create payment intent: %w", err)
	}
	return &payment.Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
	}, nil
}

func (g *Gateway) ListCharges(ctx context.Context, customerID string) ([]payment.Charge, error) {
	params := &stripe.ChargeListParams{
		Customer: stripe.String(customerID),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(chargePageLimit)

	var out []payment.Charge
	it := g.api.Charges.List(params)
	for it.Next() {
		out = append(out, toDomainCharge(it.Charge()))
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("stripe: list charges: %w", err)
	}
	return out, nil
}

func toDomainCharge(c *stripe.Charge) payment.Charge {
	out := payment.Charge{
		ID:            c.ID,
		Amount:        c.Amount,
		Currency:      string(c.Currency),
		Status:        string(c.Status),
		Paid:          c.Paid,
		ReceiptURL:    c.ReceiptURL,
		ReceiptNumber: c.ReceiptNumber,
		Description:   c.Description,
		CreatedAt:     time.Unix(c.Created, 0).UTC(),
	}
	if c.PaymentIntent != nil {
		out.IntentID = c.PaymentIntent.ID
	}
	if c.PaymentMethodDetails != nil {
		out.PaymentMethod = string(c.PaymentMethodDetails.Type)
	}
	return out
}
