package checkout

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopkart-labs/shopkart-api/internal/domain/order"
	"github.com/shopkart-labs/shopkart-api/internal/domain/payment"
	"github.com/shopkart-labs/shopkart-api/internal/domain/user"
	"github.com/shopkart-labs/shopkart-api/internal/infrastructure/memory"
)

type fakeGateway struct {
	customers   int
	intents     int
	lastParams  payment.CreateIntentParams
	customerErr error
	intentErr   error
}

func (g *fakeGateway) CreateCustomer(_ context.Context, _, _ string, _ map[string]string) (string, error) {
	if g.customerErr != nil {
		return "", g.customerErr
	}
	g.customers++
	return fmt.Sprintf("cus_%d", g.customers), nil
}

func (g *fakeGateway) CreateIntent(_ context.Context, params payment.CreateIntentParams) (*payment.Intent, error) {
	if g.intentErr != nil {
		return nil, g.intentErr
	}
	g.intents++
	g.lastParams = params
	return &payment.Intent{
		ID:           fmt.Sprintf("pi_%d", g.intents),
		ClientSecret: "secret",
		Amount:       params.Amount,
		Currency:     params.Currency,
	}, nil
}

func (g *fakeGateway) ListCharges(context.Context, string) ([]payment.Charge, error) {
	return nil, nil
}

func newIntentFixture(t *testing.T) (*CreateIntentUseCase, *fakeGateway, *memory.UserRepository) {
	t.Helper()
	gateway := &fakeGateway{}
	users := memory.NewUserRepository(&user.User{ID: "u1", Email: "ada@example.com", Name: "Ada"})
	uc := NewCreateIntentUseCase(NewValidator(seededCatalog()), users, gateway, nil)
	return uc, gateway, users
}

func TestCreateIntentEmbedsOrderSnapshot(t *testing.T) {
	uc, gateway, _ := newIntentFixture(t)

	result, err := uc.Execute(context.Background(), CreateIntentInput{
		User:            &user.User{ID: "u1", Email: "ada@example.com", Name: "Ada"},
		Items:           []CartItem{{ProductID: "p1", Quantity: 4}},
		ShippingAddress: order.ShippingAddress{FullName: "Ada Lovelace", City: "London"},
	})
	require.NoError(t, err)

	assert.Equal(t, "pi_1", result.IntentID)
	assert.Equal(t, int64(5320), result.Amount)
	assert.Equal(t, "usd", result.Currency)
	assert.Equal(t, "cus_1", gateway.lastParams.CustomerID)

	meta, err := payment.DecodeIntentMetadata(gateway.lastParams.Metadata)
	require.NoError(t, err)
	assert.Equal(t, "u1", meta.UserID)
	assert.Equal(t, "London", meta.ShippingAddress.City)
	require.Len(t, meta.Items, 1)
	assert.Equal(t, 4, meta.Items[0].Quantity)
	assert.Equal(t, "53.20", meta.Total.StringFixed(2))
}

func TestCreateIntentReusesStoredCustomer(t *testing.T) {
	uc, gateway, users := newIntentFixture(t)
	input := CreateIntentInput{
		User:  &user.User{ID: "u1", Email: "ada@example.com", Name: "Ada"},
		Items: []CartItem{{ProductID: "p1", Quantity: 1}},
	}

	_, err := uc.Execute(context.Background(), input)
	require.NoError(t, err)

	// The second checkout sees the freshly persisted customer reference.
	stored, err := users.FindByID(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, "cus_1", stored.GatewayCustomerID)

	input.User = stored
	_, err = uc.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, 1, gateway.customers)
	assert.Equal(t, "cus_1", gateway.lastParams.CustomerID)
}

func TestCreateIntentValidationAndGatewayFailures(t *testing.T) {
	uc, gateway, _ := newIntentFixture(t)
	u := &user.User{ID: "u1", Email: "ada@example.com"}

	_, err := uc.Execute(context.Background(), CreateIntentInput{User: nil})
	require.ErrorIs(t, err, ErrValidation)

	_, err = uc.Execute(context.Background(), CreateIntentInput{User: u})
	require.ErrorIs(t, err, ErrValidation)

	gateway.customerErr = errors.New("stripe down")
	_, err = uc.Execute(context.Background(), CreateIntentInput{
		User:  u,
		Items: []CartItem{{ProductID: "p1", Quantity: 1}},
	})
	require.ErrorIs(t, err, ErrGateway)
	assert.Equal(t, 0, gateway.intents)
}
