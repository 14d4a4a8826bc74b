package httppresentation

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopkart-labs/shopkart-api/internal/application/checkout"
	appOrder "github.com/shopkart-labs/shopkart-api/internal/application/order"
	appPayment "github.com/shopkart-labs/shopkart-api/internal/application/payment"
	"github.com/shopkart-labs/shopkart-api/internal/application/settlement"
	"github.com/shopkart-labs/shopkart-api/internal/domain/catalog"
	"github.com/shopkart-labs/shopkart-api/internal/domain/order"
	"github.com/shopkart-labs/shopkart-api/internal/domain/payment"
	"github.com/shopkart-labs/shopkart-api/internal/domain/user"
	"github.com/shopkart-labs/shopkart-api/internal/infrastructure/authproxy"
	"github.com/shopkart-labs/shopkart-api/internal/infrastructure/id"
	"github.com/shopkart-labs/shopkart-api/internal/infrastructure/memory"
)

type stubGateway struct{}

func (stubGateway) CreateCustomer(context.Context, string, string, map[string]string) (string, error) {
	return "cus_1", nil
}

func (stubGateway) CreateIntent(_ context.Context, params payment.CreateIntentParams) (*payment.Intent, error) {
	return &payment.Intent{ID: "pi_1", ClientSecret: "cs_test", Amount: params.Amount, Currency: params.Currency}, nil
}

func (stubGateway) ListCharges(context.Context, string) ([]payment.Charge, error) {
	return []payment.Charge{
		{ID: "ch_1", Amount: 5320, Currency: "usd", Status: "succeeded", Paid: true},
		{ID: "ch_2", Amount: 100, Currency: "usd", Status: "failed"},
	}, nil
}

type stubVerifier struct {
	event *payment.Event
}

func (v *stubVerifier) Verify(_ []byte, signature string) (*payment.Event, error) {
	if signature != "valid" {
		return nil, payment.ErrSignature
	}
	return v.event, nil
}

type serverFixture struct {
	srv    *httptest.Server
	orders *memory.OrderRepository
}

func newServerFixture(t *testing.T, event *payment.Event) *serverFixture {
	t.Helper()

	products := memory.NewCatalogRepository(
		&catalog.Product{ID: "p1", Name: "Keyboard", Price: decimal.NewFromFloat(10.00), Stock: 10},
	)
	orders := memory.NewOrderRepository(products)
	users := memory.NewUserRepository(
		&user.User{ID: "u1", Email: "ada@example.com", Name: "Ada"},
		&user.User{ID: "u2", Email: "bob@example.com", Name: "Bob"},
		&user.User{ID: "admin", Email: "ops@example.com", Name: "Ops", Admin: true},
	)

	validator := checkout.NewValidator(products)
	idGen := id.NewUUIDGenerator()
	handler := NewHandler(
		checkout.NewCreateIntentUseCase(validator, users, stubGateway{}, nil),
		settlement.NewUseCase(&stubVerifier{event: event}, orders, products, users, idGen, nil, nil),
		appOrder.NewService(orders, validator, idGen, nil),
		appPayment.NewService(stubGateway{}, nil),
		authproxy.New(users),
		nil,
	)

	srv := httptest.NewServer(handler.Router(nil))
	t.Cleanup(srv.Close)
	return &serverFixture{srv: srv, orders: orders}
}

func (f *serverFixture) do(t *testing.T, method, path, userID string, body any) *http.Response {
	t.Helper()

	var payload *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		payload = bytes.NewBuffer(raw)
	} else {
		payload = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, f.srv.URL+path, payload)
	require.NoError(t, err)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealthEndpoint(t *testing.T) {
	f := newServerFixture(t, nil)
	resp := f.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decodeBody(t, resp)["status"])
}

func TestAuthenticatedRoutesRejectAnonymous(t *testing.T) {
	f := newServerFixture(t, nil)

	for _, probe := range []struct{ method, path string }{
		{http.MethodPost, "/api/payment/create-intent"},
		{http.MethodGet, "/api/payment/history"},
		{http.MethodGet, "/api/orders"},
		{http.MethodPost, "/api/orders"},
	} {
		resp := f.do(t, probe.method, probe.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "%s %s", probe.method, probe.path)
		resp.Body.Close()
	}

	resp := f.do(t, http.MethodGet, "/api/orders", "ghost", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestCreateIntentEndpoint(t *testing.T) {
	f := newServerFixture(t, nil)

	resp := f.do(t, http.MethodPost, "/api/payment/create-intent", "u1", map[string]any{
		"items":            []map[string]any{{"product": "p1", "quantity": 4}},
		"shipping_address": map[string]any{"full_name": "Ada Lovelace", "city": "London"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "pi_1", body["intent_id"])
	assert.Equal(t, "cs_test", body["client_secret"])
	assert.Equal(t, float64(5320), body["amount"])
	assert.Equal(t, "usd", body["currency"])
}

func TestCreateIntentRejectsUnknownProduct(t *testing.T) {
	f := newServerFixture(t, nil)

	resp := f.do(t, http.MethodPost, "/api/payment/create-intent", "u1", map[string]any{
		"items": []map[string]any{{"product": "ghost", "quantity": 1}},
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func webhookIntentEvent(t *testing.T, intentID string) *payment.Event {
	t.Helper()
	meta := payment.IntentMetadata{
		UserID: "u1",
		Items:  []order.Item{{ProductID: "p1", Name: "Keyboard", UnitPrice: decimal.NewFromFloat(10.00), Quantity: 2}},
		Total:  decimal.NewFromFloat(31.60),
	}
	encoded, err := meta.Encode()
	require.NoError(t, err)
	return &payment.Event{
		ID:     "evt_1",
		Type:   payment.EventPaymentSucceeded,
		Intent: &payment.IntentData{ID: intentID, Metadata: encoded},
	}
}

func TestWebhookEndpoint(t *testing.T) {
	f := newServerFixture(t, webhookIntentEvent(t, "pi_1"))

	req, err := http.NewRequest(http.MethodPost, f.srv.URL+"/api/payment/webhook", bytes.NewBufferString(`{}`))
	require.NoError(t, err)
	req.Header.Set("Stripe-Signature", "forged")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	req, err = http.NewRequest(http.MethodPost, f.srv.URL+"/api/payment/webhook", bytes.NewBufferString(`{}`))
	require.NoError(t, err)
	req.Header.Set("Stripe-Signature", "valid")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, true, body["received"])
	assert.Equal(t, string(settlement.OutcomeSettled), body["outcome"])

	created, err := f.orders.FindByPaymentIntent(context.Background(), "pi_1")
	require.NoError(t, err)
	assert.Equal(t, "u1", created.UserID)
}

func TestOrderOwnershipAndAdminRoutes(t *testing.T) {
	f := newServerFixture(t, nil)

	resp := f.do(t, http.MethodPost, "/api/orders", "u1", map[string]any{
		"items": []map[string]any{{"product": "p1", "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	orderID := decodeBody(t, resp)["order_id"].(string)

	resp = f.do(t, http.MethodGet, "/api/orders/"+orderID, "u2", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = f.do(t, http.MethodGet, "/api/orders/"+orderID, "u1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = f.do(t, http.MethodPatch, "/api/orders/"+orderID+"/status", "u1", map[string]any{"status": "shipped"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = f.do(t, http.MethodPatch, "/api/orders/"+orderID+"/status", "admin", map[string]any{"status": "shipped"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "shipped", decodeBody(t, resp)["status"])

	resp = f.do(t, http.MethodPatch, "/api/orders/"+orderID+"/status", "admin", map[string]any{"status": "pending"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestPaymentHistoryFiltersUnsettledCharges(t *testing.T) {
	f := newServerFixture(t, nil)

	// u1 gains a gateway customer on first checkout.
	resp := f.do(t, http.MethodPost, "/api/payment/create-intent", "u1", map[string]any{
		"items": []map[string]any{{"product": "p1", "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = f.do(t, http.MethodGet, "/api/payment/history", "u1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	payments := decodeBody(t, resp)["payments"].([]any)
	require.Len(t, payments, 1)
	assert.Equal(t, "ch_1", payments[0].(map[string]any)["id"])

	// u2 has no gateway customer yet, so the history is empty.
	resp = f.do(t, http.MethodGet, "/api/payment/history", "u2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decodeBody(t, resp)["payments"])
}
