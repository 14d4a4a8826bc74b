package memory

import (
	"context"
	"sync"

	domain "github.com/shopkart-labs/shopkart-api/internal/domain/user"
)

type UserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User
}

func NewUserRepository(seed ...*domain.User) *UserRepository {
	r := &UserRepository{users: make(map[string]*domain.User)}
	for _, u := range seed {
		clone := *u
		r.users[u.ID] = &clone
	}
	return r
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *UserRepository) ClaimGatewayCustomer(ctx context.Context, userID, customerID string) (string, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return "", domain.ErrNotFound
	}
	if u.GatewayCustomerID != "" {
		return u.GatewayCustomerID, nil
	}
	u.GatewayCustomerID = customerID
	return customerID, nil
}
