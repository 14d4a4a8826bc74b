package catalog

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound        = errors.New("catalog: product not found")
	ErrInvalidQuantity = errors.New("catalog: quantity must be greater than zero")
)

// InsufficientStockError identifies the product whose stock could not cover a
// requested quantity.
type InsufficientStockError struct {
	ProductID string
	Name      string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("catalog: insufficient stock for %s", e.Name)
}

// Product is the authoritative inventory record. Price and stock are always
// read from here; client-supplied values are never trusted.
type Product struct {
	ID        string
	Name      string
	Price     decimal.Decimal
	Stock     int
	Image     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasStock reports whether the product can cover the requested quantity.
func (p *Product) HasStock(quantity int) bool {
	return quantity > 0 && quantity <= p.Stock
}

func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}
