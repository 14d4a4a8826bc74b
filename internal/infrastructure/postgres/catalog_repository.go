package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/shopkart-labs/shopkart-api/internal/domain/catalog"
)

type CatalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) FindByID(ctx context.Context, id string) (*catalog.Product, error) {
	var record Product
	err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: find product: %w", err)
	}
	return toDomainProduct(&record), nil
}

// DecrementStock issues a single UPDATE with storage-side arithmetic so
// concurrent decrements for the same product never lose updates.
func (r *CatalogRepository) DecrementStock(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return catalog.ErrInvalidQuantity
	}

	res := r.db.WithContext(ctx).
		Model(&Product{}).
		Where("id = ?", productID).
		UpdateColumn("stock", gorm.Expr("stock - ?", quantity))
	if res.Error != nil {
		return fmt.Errorf("postgres: decrement stock: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return catalog.ErrNotFound
	}
	return nil
}
