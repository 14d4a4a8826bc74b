package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	domain "github.com/shopkart-labs/shopkart-api/internal/domain/user"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	var record User
	err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: find user: %w", err)
	}
	return toDomainUser(&record), nil
}

// ClaimGatewayCustomer is a compare-and-set: the guarded UPDATE only fills an
// empty reference, so concurrent claims for one user cannot both win. The
// winner is whatever the follow-up read returns.
func (r *UserRepository) ClaimGatewayCustomer(ctx context.Context, userID, customerID string) (string, error) {
	res := r.db.WithContext(ctx).
		Model(&User{}).
		Where("id = ? AND (gateway_customer_id IS NULL OR gateway_customer_id = '')", userID).
		Update("gateway_customer_id", customerID)
	if res.Error != nil {
		return "", fmt.Errorf("postgres: claim gateway customer: %w", res.Error)
	}

	stored, err := r.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if stored.GatewayCustomerID == "" {
		return "", domain.ErrNotFound
	}
	return stored.GatewayCustomerID, nil
}
