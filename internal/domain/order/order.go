package order

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("order: not found")
	ErrConflict          = errors.New("order: payment intent already settled")
	ErrNoItems           = errors.New("order: at least one item is required")
	ErrInvalidTotal      = errors.New("order: total must be greater than zero")
	ErrInvalidTransition = errors.New("order: invalid fulfillment transition")
)

// Status is the fulfillment status. It only ever moves forward:
// pending -> shipped -> delivered.
type Status string

const (
	StatusPending   Status = "pending"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
)

// Item is a validated order line. Name, unit price and image are copied from
// the catalog record at validation time and are immutable afterwards.
type Item struct {
	ProductID string          `json:"product"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Image     string          `json:"image"`
}

type ShippingAddress struct {
	FullName      string `json:"full_name"`
	StreetAddress string `json:"street_address"`
	City          string `json:"city"`
	State         string `json:"state"`
	ZipCode       string `json:"zip_code"`
	PhoneNumber   string `json:"phone_number"`
}

// PaymentResult snapshots the gateway outcome for an order. Receipt fields
// may arrive after order creation, delivered by a later charge event.
type PaymentResult struct {
	IntentID      string
	Status        string
	ReceiptURL    string
	ReceiptNumber string
}

type Order struct {
	ID              string
	UserID          string
	Items           []Item
	ShippingAddress ShippingAddress
	PaymentResult   PaymentResult
	TotalPrice      decimal.Decimal
	Status          Status
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func New(id, userID string, items []Item, addr ShippingAddress, payment PaymentResult, total decimal.Decimal) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	if !total.IsPositive() {
		return nil, ErrInvalidTotal
	}

	now := time.Now().UTC()
	return &Order{
		ID:              id,
		UserID:          userID,
		Items:           append([]Item(nil), items...),
		ShippingAddress: addr,
		PaymentResult:   payment,
		TotalPrice:      total,
		Status:          StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// AttachReceipt records the gateway receipt artifacts. The latest delivery
// wins; charge.updated events overwrite earlier values.
func (o *Order) AttachReceipt(url, number string) {
	o.PaymentResult.ReceiptURL = url
	o.PaymentResult.ReceiptNumber = number
	o.touch()
}

// Advance moves fulfillment one step forward. Backward or skipping
// transitions are rejected.
func (o *Order) Advance(to Status) error {
	next, ok := fulfillmentNext[o.Status]
	if !ok || next != to {
		return ErrInvalidTransition
	}
	o.Status = to
	o.touch()
	return nil
}

var fulfillmentNext = map[Status]Status{
	StatusPending: StatusShipped,
	StatusShipped: StatusDelivered,
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Items = append([]Item(nil), o.Items...)
	return &clone
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}
