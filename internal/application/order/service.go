package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopkart-labs/shopkart-api/internal/application/checkout"
	domain "github.com/shopkart-labs/shopkart-api/internal/domain/order"
	"github.com/shopkart-labs/shopkart-api/internal/domain/user"
	"github.com/shopkart-labs/shopkart-api/internal/observability"
	"github.com/shopkart-labs/shopkart-api/internal/observability/logctx"
)

var (
	// ErrForbidden marks access to an order the caller does not own.
	ErrForbidden = errors.New("order: access denied")
	ErrNotFound  = domain.ErrNotFound
)

// IDGenerator mints order ids.
type IDGenerator interface {
	NewID() string
}

// Service covers the synchronous order surface: direct creation for orders
// paid outside the gateway, and read/fulfillment operations. Gateway-paid
// orders are created by the settlement path, never here.
type Service struct {
	repo        domain.Repository
	validator   *checkout.Validator
	idGenerator IDGenerator
	log         observability.Logger
}

func NewService(repo domain.Repository, validator *checkout.Validator, idGen IDGenerator, tel observability.Observability) *Service {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Service{
		repo:        repo,
		validator:   validator,
		idGenerator: idGen,
		log:         tel.Logger().With(observability.F("component", "order_service")),
	}
}

type CreateOrderInput struct {
	UserID          string
	Items           []checkout.CartItem
	ShippingAddress domain.ShippingAddress
	// PaymentReference identifies the out-of-band payment record. Must not
	// reuse a gateway intent id; the intent uniqueness constraint belongs to
	// the settlement path.
	PaymentReference string
}

type CreateOrderResult struct {
	OrderID    string
	Status     domain.Status
	TotalPrice string
}

// Create prices the cart and persists the order together with its stock
// decrements in one storage transaction. A stock shortfall aborts the whole
// order; no partial decrement survives.
func (s *Service) Create(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error) {
	logger := logctx.FromOr(ctx, s.log)

	if input.UserID == "" {
		return nil, errors.New("order: user id is required")
	}

	quote, err := s.validator.ValidateCart(ctx, input.Items)
	if err != nil {
		return nil, err
	}

	entity, err := domain.New(
		s.idGenerator.NewID(),
		input.UserID,
		quote.Items,
		input.ShippingAddress,
		domain.PaymentResult{IntentID: input.PaymentReference, Status: "recorded"},
		quote.Total,
	)
	if err != nil {
		return nil, err
	}

	if err := s.repo.InsertWithStockDecrement(ctx, entity); err != nil {
		logger.Error("order_create_failed",
			observability.F("order_id", entity.ID),
			observability.F("error", err.Error()),
		)
		return nil, fmt.Errorf("order: create: %w", err)
	}

	logger.Info("order_created",
		observability.F("order_id", entity.ID),
		observability.F("user_id", entity.UserID),
		observability.F("total", entity.TotalPrice.StringFixed(2)),
	)
	return &CreateOrderResult{
		OrderID:    entity.ID,
		Status:     entity.Status,
		TotalPrice: entity.TotalPrice.StringFixed(2),
	}, nil
}

// Get returns the order when the caller owns it or is an admin.
func (s *Service) Get(ctx context.Context, caller *user.User, id string) (*domain.Order, error) {
	if id == "" {
		return nil, errors.New("order: id is required")
	}
	entity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if caller == nil || (entity.UserID != caller.ID && !caller.Admin) {
		return nil, ErrForbidden
	}
	return entity, nil
}

// List returns the caller's orders, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]*domain.Order, error) {
	if userID == "" {
		return nil, errors.New("order: user id is required")
	}
	return s.repo.ListByUser(ctx, userID)
}

// UpdateStatus advances fulfillment one step. The transition rules live on
// the entity; this only loads, advances and persists.
func (s *Service) UpdateStatus(ctx context.Context, id string, to domain.Status) (*domain.Order, error) {
	entity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := entity.Advance(to); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, entity.ID, entity.Status); err != nil {
		return nil, fmt.Errorf("order: update status: %w", err)
	}

	logctx.FromOr(ctx, s.log).Info("order_status_updated",
		observability.F("order_id", entity.ID),
		observability.F("status", string(entity.Status)),
	)
	return entity, nil
}
