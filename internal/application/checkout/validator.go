package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/shopkart-labs/shopkart-api/internal/domain/catalog"
	"github.com/shopkart-labs/shopkart-api/internal/domain/order"
)

var (
	ErrValidation   = errors.New("checkout: validation failed")
	ErrInvalidTotal = errors.New("checkout: invalid order total")
)

func newValidation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// Flat-rate pricing policy: shipping is a fixed charge, tax a single rate on
// the item subtotal.
var (
	shippingFlat = decimal.NewFromInt(10)
	taxRate      = decimal.NewFromFloat(0.08)
	minorFactor  = decimal.NewFromInt(100)
)

// CartItem is the ephemeral, client-supplied line. Only the product
// reference and quantity are read; any price the client sends is discarded.
type CartItem struct {
	ProductID string
	Quantity  int
}

// Quote is the server-priced result of cart validation.
type Quote struct {
	Items    []order.Item
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Validator recomputes the authoritative order total from catalog records.
// Pure read and computation; no side effects.
type Validator struct {
	products catalog.Repository
}

func NewValidator(products catalog.Repository) *Validator {
	return &Validator{products: products}
}

func (v *Validator) ValidateCart(ctx context.Context, cart []CartItem) (*Quote, error) {
	if len(cart) == 0 {
		return nil, newValidation("cart is empty")
	}

	quote := &Quote{Subtotal: decimal.Zero}
	for _, line := range cart {
		if line.Quantity <= 0 {
			return nil, newValidation(fmt.Sprintf("quantity for product %s must be greater than zero", line.ProductID))
		}

		product, err := v.products.FindByID(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		if !product.HasStock(line.Quantity) {
			return nil, &catalog.InsufficientStockError{ProductID: product.ID, Name: product.Name}
		}

		quote.Items = append(quote.Items, order.Item{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  line.Quantity,
			Image:     product.Image,
		})
		quote.Subtotal = quote.Subtotal.Add(product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	quote.Shipping = shippingFlat
	quote.Tax = quote.Subtotal.Mul(taxRate)
	quote.Total = quote.Subtotal.Add(quote.Shipping).Add(quote.Tax)

	if !quote.Total.IsPositive() {
		return nil, ErrInvalidTotal
	}
	return quote, nil
}

// MinorUnits converts a decimal amount to integer minor-currency units,
// rounding half away from zero rather than truncating.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(minorFactor).Round(0).IntPart()
}
