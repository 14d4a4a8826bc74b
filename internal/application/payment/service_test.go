package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/shopkart-labs/shopkart-api/internal/domain/payment"
	"github.com/shopkart-labs/shopkart-api/internal/domain/user"
)

type fakeGateway struct {
	charges []domain.Charge
	err     error
	calls   int
}

func (g *fakeGateway) CreateCustomer(context.Context, string, string, map[string]string) (string, error) {
	return "cus_1", nil
}

func (g *fakeGateway) CreateIntent(context.Context, domain.CreateIntentParams) (*domain.Intent, error) {
	return nil, errors.New("not used")
}

func (g *fakeGateway) ListCharges(context.Context, string) ([]domain.Charge, error) {
	g.calls++
	return g.charges, g.err
}

func TestHistoryFiltersUnsettledCharges(t *testing.T) {
	gateway := &fakeGateway{charges: []domain.Charge{
		{ID: "ch_1", Amount: 5320, Status: "succeeded", Paid: true},
		{ID: "ch_2", Amount: 100, Status: "failed"},
		{ID: "ch_3", Amount: 200, Status: "succeeded", Paid: false},
	}}
	svc := NewService(gateway, nil)

	got, err := svc.History(context.Background(), &user.User{ID: "u1", GatewayCustomerID: "cus_1"})
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "ch_1", got[0].ID)
	assert.Equal(t, int64(5320), got[0].Amount)
}

func TestHistoryWithoutGatewayCustomerSkipsGateway(t *testing.T) {
	gateway := &fakeGateway{}
	svc := NewService(gateway, nil)

	got, err := svc.History(context.Background(), &user.User{ID: "u1"})
	require.NoError(t, err)

	assert.Empty(t, got)
	assert.Zero(t, gateway.calls)
}

func TestHistoryPropagatesGatewayError(t *testing.T) {
	gateway := &fakeGateway{err: errors.New("gateway down")}
	svc := NewService(gateway, nil)

	_, err := svc.History(context.Background(), &user.User{ID: "u1", GatewayCustomerID: "cus_1"})
	assert.ErrorContains(t, err, "list charges")
}
