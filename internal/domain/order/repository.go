package order

import "context"

type Repository interface {
	// Insert persists a new order. The storage layer enforces a uniqueness
	// constraint on the payment intent id; a duplicate insert fails with
	// ErrConflict. This is the only race-free idempotency mechanism under
	// concurrent webhook redelivery.
	Insert(ctx context.Context, o *Order) error

	// InsertWithStockDecrement persists the order and decrements stock for
	// every item in a single storage transaction. Used by the synchronous
	// direct-order path; a stock shortfall aborts the whole transaction.
	InsertWithStockDecrement(ctx context.Context, o *Order) error

	FindByID(ctx context.Context, id string) (*Order, error)
	FindByPaymentIntent(ctx context.Context, intentID string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]*Order, error)

	// AttachReceipt sets the receipt fields on the order owning the payment
	// intent. Returns ErrNotFound when no such order exists yet.
	AttachReceipt(ctx context.Context, intentID, receiptURL, receiptNumber string) error

	UpdateStatus(ctx context.Context, id string, status Status) error
}
