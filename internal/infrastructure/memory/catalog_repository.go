package memory

import (
	"context"
	"sync"

	"github.com/shopkart-labs/shopkart-api/internal/domain/catalog"
)

type CatalogRepository struct {
	mu       sync.RWMutex
	products map[string]*catalog.Product
}

func NewCatalogRepository(seed ...*catalog.Product) *CatalogRepository {
	r := &CatalogRepository{products: make(map[string]*catalog.Product)}
	for _, p := range seed {
		r.products[p.ID] = p.Clone()
	}
	return r
}

func (r *CatalogRepository) FindByID(ctx context.Context, id string) (*catalog.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return p.Clone(), nil
}

func (r *CatalogRepository) DecrementStock(ctx context.Context, productID string, quantity int) error {
	_ = ctx
	if quantity <= 0 {
		return catalog.ErrInvalidQuantity
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[productID]
	if !ok {
		return catalog.ErrNotFound
	}
	p.Stock -= quantity
	return nil
}

// Put upserts a product record. Test fixtures only.
func (r *CatalogRepository) Put(p *catalog.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[p.ID] = p.Clone()
}
