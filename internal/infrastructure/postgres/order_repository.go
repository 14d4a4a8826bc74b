package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/shopkart-labs/shopkart-api/internal/domain/catalog"
	domain "github.com/shopkart-labs/shopkart-api/internal/domain/order"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Insert(ctx context.Context, o *domain.Order) error {
	err := r.db.WithContext(ctx).Create(toRecordOrder(o)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("postgres: insert order: %w", err)
	}
	return nil
}

// InsertWithStockDecrement runs the order insert and every stock decrement in
// one transaction. The guarded UPDATE (stock >= quantity) doubles as the
// stock re-check; zero rows means the product vanished or ran out, and the
// whole transaction rolls back.
func (r *OrderRepository) InsertWithStockDecrement(ctx context.Context, o *domain.Order) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(toRecordOrder(o)).Error; err != nil {
			return err
		}
		for _, item := range o.Items {
			res := tx.Model(&Product{}).
				Where("id = ? AND stock >= ?", item.ProductID, item.Quantity).
				UpdateColumn("stock", gorm.Expr("stock - ?", item.Quantity))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				var p Product
				if lookupErr := tx.Select("id", "name").First(&p, "id = ?", item.ProductID).Error; lookupErr != nil {
					return catalog.ErrNotFound
				}
				return &catalog.InsufficientStockError{ProductID: p.ID, Name: p.Name}
			}
		}
		return nil
	})

	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrConflict
	}
	var stockErr *catalog.InsufficientStockError
	if errors.Is(err, catalog.ErrNotFound) || errors.As(err, &stockErr) {
		return err
	}
	return fmt.Errorf("postgres: create order with stock: %w", err)
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	var record Order
	err := r.db.WithContext(ctx).Preload("Items").First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: find order: %w", err)
	}
	return toDomainOrder(&record), nil
}

func (r *OrderRepository) FindByPaymentIntent(ctx context.Context, intentID string) (*domain.Order, error) {
	if intentID == "" {
		return nil, domain.ErrNotFound
	}

	var record Order
	err := r.db.WithContext(ctx).Preload("Items").First(&record, "payment_intent_id = ?", intentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: find order by intent: %w", err)
	}
	return toDomainOrder(&record), nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	var records []Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("postgres: list orders: %w", err)
	}

	out := make([]*domain.Order, 0, len(records))
	for i := range records {
		out = append(out, toDomainOrder(&records[i]))
	}
	return out, nil
}

func (r *OrderRepository) AttachReceipt(ctx context.Context, intentID, receiptURL, receiptNumber string) error {
	res := r.db.WithContext(ctx).
		Model(&Order{}).
		Where("payment_intent_id = ?", intentID).
		Updates(map[string]any{
			"receipt_url":    receiptURL,
			"receipt_number": receiptNumber,
		})
	if res.Error != nil {
		return fmt.Errorf("postgres: attach receipt: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	res := r.db.WithContext(ctx).
		Model(&Order{}).
		Where("id = ?", id).
		Update("status", string(status))
	if res.Error != nil {
		return fmt.Errorf("postgres: update status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
