package catalog

import "context"

type Repository interface {
	FindByID(ctx context.Context, id string) (*Product, error)

	// DecrementStock subtracts quantity from the product's stock as a single
	// atomic storage operation, never a read-modify-write at the call site.
	// Stock is allowed to go negative; settlement policy decides whether that
	// is acceptable before calling.
	DecrementStock(ctx context.Context, productID string, quantity int) error
}
