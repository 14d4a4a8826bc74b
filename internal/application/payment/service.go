package payment

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/shopkart-labs/shopkart-api/internal/domain/payment"
	"github.com/shopkart-labs/shopkart-api/internal/domain/user"
	"github.com/shopkart-labs/shopkart-api/internal/observability"
	"github.com/shopkart-labs/shopkart-api/internal/observability/logctx"
)

// Service exposes the gateway-backed payment history. The gateway is the
// source of truth for charges; nothing here is persisted locally.
type Service struct {
	gateway domain.Gateway
	log     observability.Logger
}

func NewService(gateway domain.Gateway, tel observability.Observability) *Service {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Service{
		gateway: gateway,
		log:     tel.Logger().With(observability.F("component", "payment_service")),
	}
}

// History returns the caller's settled charges, most recent first as the
// gateway orders them. A user who never checked out has no gateway customer
// and an empty history.
func (s *Service) History(ctx context.Context, caller *user.User) ([]domain.Charge, error) {
	if caller == nil || caller.ID == "" {
		return nil, errors.New("payment: user is required")
	}
	if caller.GatewayCustomerID == "" {
		return []domain.Charge{}, nil
	}

	charges, err := s.gateway.ListCharges(ctx, caller.GatewayCustomerID)
	if err != nil {
		logctx.FromOr(ctx, s.log).Error("charge_list_failed",
			observability.F("user_id", caller.ID),
			observability.F("error", err.Error()),
		)
		return nil, fmt.Errorf("payment: list charges: %w", err)
	}

	settled := make([]domain.Charge, 0, len(charges))
	for _, c := range charges {
		if c.Paid && c.Status == "succeeded" {
			settled = append(settled, c)
		}
	}
	return settled, nil
}
