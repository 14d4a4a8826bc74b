package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopkart-labs/shopkart-api/internal/domain/catalog"
	domain "github.com/shopkart-labs/shopkart-api/internal/domain/order"
)

// OrderRepository mirrors the relational schema's guarantees in memory: the
// byIntent index plays the role of the unique constraint on the payment
// intent id, and InsertWithStockDecrement holds one lock across the order
// write and the stock writes to emulate a transaction.
type OrderRepository struct {
	mu       sync.RWMutex
	orders   map[string]*domain.Order
	byIntent map[string]string
	catalog  *CatalogRepository
}

func NewOrderRepository(cat *CatalogRepository) *OrderRepository {
	return &OrderRepository{
		orders:   make(map[string]*domain.Order),
		byIntent: make(map[string]string),
		catalog:  cat,
	}
}

func (r *OrderRepository) Insert(ctx context.Context, o *domain.Order) error {
	_ = ctx
	if o == nil || o.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.insertLocked(o)
}

func (r *OrderRepository) insertLocked(o *domain.Order) error {
	if _, exists := r.orders[o.ID]; exists {
		return domain.ErrConflict
	}
	if intent := o.PaymentResult.IntentID; intent != "" {
		if _, exists := r.byIntent[intent]; exists {
			return domain.ErrConflict
		}
	}

	r.orders[o.ID] = o.Clone()
	if intent := o.PaymentResult.IntentID; intent != "" {
		r.byIntent[intent] = o.ID
	}
	return nil
}

func (r *OrderRepository) InsertWithStockDecrement(ctx context.Context, o *domain.Order) error {
	_ = ctx
	if o == nil || o.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}
	if r.catalog == nil {
		return fmt.Errorf("order repository: catalog not attached")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.catalog.mu.Lock()
	defer r.catalog.mu.Unlock()

	for _, item := range o.Items {
		p, ok := r.catalog.products[item.ProductID]
		if !ok {
			return catalog.ErrNotFound
		}
		if !p.HasStock(item.Quantity) {
			return &catalog.InsufficientStockError{ProductID: p.ID, Name: p.Name}
		}
	}

	if err := r.insertLocked(o); err != nil {
		return err
	}
	for _, item := range o.Items {
		r.catalog.products[item.ProductID].Stock -= item.Quantity
	}
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return o.Clone(), nil
}

func (r *OrderRepository) FindByPaymentIntent(ctx context.Context, intentID string) (*domain.Order, error) {
	_ = ctx
	if intentID == "" {
		return nil, domain.ErrNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byIntent[intentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	o, found := r.orders[id]
	if !found {
		return nil, domain.ErrNotFound
	}
	return o.Clone(), nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, o.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *OrderRepository) AttachReceipt(ctx context.Context, intentID, receiptURL, receiptNumber string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byIntent[intentID]
	if !ok {
		return domain.ErrNotFound
	}
	o, found := r.orders[id]
	if !found {
		return domain.ErrNotFound
	}
	o.AttachReceipt(receiptURL, receiptNumber)
	return nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	o.Status = status
	return nil
}
