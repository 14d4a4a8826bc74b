package httppresentation

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/shopkart-labs/shopkart-api/internal/application/checkout"
	appOrder "github.com/shopkart-labs/shopkart-api/internal/application/order"
	appPayment "github.com/shopkart-labs/shopkart-api/internal/application/payment"
	"github.com/shopkart-labs/shopkart-api/internal/application/settlement"
	"github.com/shopkart-labs/shopkart-api/internal/domain/catalog"
	domainOrder "github.com/shopkart-labs/shopkart-api/internal/domain/order"
	domainPayment "github.com/shopkart-labs/shopkart-api/internal/domain/payment"
	"github.com/shopkart-labs/shopkart-api/internal/domain/user"
	"github.com/shopkart-labs/shopkart-api/internal/observability"
	"github.com/shopkart-labs/shopkart-api/internal/observability/logctx"
)

const (
	componentHTTPHandler = "http_server"
	headerSignature      = "Stripe-Signature"

	// Gateway events are small JSON documents; anything bigger is abuse.
	maxWebhookBody = 1 << 20
)

type Handler struct {
	checkoutUC   *checkout.CreateIntentUseCase
	settlementUC *settlement.UseCase
	orderService *appOrder.Service
	paymentsvc   *appPayment.Service
	auth         Authenticator

	log observability.Logger
	tel observability.Observability
}

func NewHandler(
	checkoutUC *checkout.CreateIntentUseCase,
	settlementUC *settlement.UseCase,
	orderService *appOrder.Service,
	paymentService *appPayment.Service,
	auth Authenticator,
	tel observability.Observability,
) *Handler {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Handler{
		checkoutUC:   checkoutUC,
		settlementUC: settlementUC,
		orderService: orderService,
		paymentsvc:   paymentService,
		auth:         auth,
		log:          tel.Logger().With(observability.F("component", componentHTTPHandler)),
		tel:          tel,
	}
}

// Router assembles the full route tree. metricsHandler is the scrape
// endpoint served at /metrics, outside the observability middleware so
// scrapes do not pollute the request metrics.
func (h *Handler) Router(metricsHandler http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)

	r.Get("/api/health", h.handleHealth)
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Group(func(r chi.Router) {
		r.Use(ObservabilityMiddleware(h.log, h.tel))

		// The gateway authenticates with the payload signature, not a user.
		r.Post("/api/payment/webhook", h.handleWebhook)

		r.Group(func(r chi.Router) {
			r.Use(RequireUser(h.auth))

			r.Post("/api/payment/create-intent", h.handleCreateIntent)
			r.Get("/api/payment/history", h.handlePaymentHistory)

			r.Post("/api/orders", h.handleCreateOrder)
			r.Get("/api/orders", h.handleListOrders)
			r.Get("/api/orders/{orderID}", h.handleGetOrder)

			r.Group(func(r chi.Router) {
				r.Use(RequireAdmin)
				r.Patch("/api/orders/{orderID}/status", h.handleUpdateOrderStatus)
			})
		})
	})

	return r
}

type cartItemRequest struct {
	ProductID string `json:"product"`
	Quantity  int    `json:"quantity"`
}

type shippingAddressRequest struct {
	FullName      string `json:"full_name"`
	StreetAddress string `json:"street_address"`
	City          string `json:"city"`
	State         string `json:"state"`
	ZipCode       string `json:"zip_code"`
	PhoneNumber   string `json:"phone_number"`
}

func (a shippingAddressRequest) toDomain() domainOrder.ShippingAddress {
	return domainOrder.ShippingAddress{
		FullName:      a.FullName,
		StreetAddress: a.StreetAddress,
		City:          a.City,
		State:         a.State,
		ZipCode:       a.ZipCode,
		PhoneNumber:   a.PhoneNumber,
	}
}

type createIntentRequest struct {
	Items           []cartItemRequest      `json:"items"`
	ShippingAddress shippingAddressRequest `json:"shipping_address"`
}

type createIntentResponse struct {
	IntentID     string `json:"intent_id"`
	ClientSecret string `json:"client_secret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

func (h *Handler) handleCreateIntent(w http.ResponseWriter, r *http.Request) {
	u, _ := UserFromContext(r.Context())

	var req createIntentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := h.checkoutUC.Execute(r.Context(), checkout.CreateIntentInput{
		User:            u,
		Items:           toCartItems(req.Items),
		ShippingAddress: req.ShippingAddress.toDomain(),
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, createIntentResponse{
		IntentID:     result.IntentID,
		ClientSecret: result.ClientSecret,
		Amount:       result.Amount,
		Currency:     result.Currency,
	})
}

// handleWebhook is the settlement entrypoint. The body is read raw because
// signature verification covers the exact bytes the gateway sent. Responses
// drive the gateway's redelivery: 2xx acknowledges, 4xx rejects a bad
// signature, 5xx asks for a retry.
func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("unreadable payload"))
		return
	}

	result, err := h.settlementUC.Execute(r.Context(), payload, r.Header.Get(headerSignature))
	switch {
	case errors.Is(err, domainPayment.ErrSignature):
		writeError(w, http.StatusBadRequest, err)
		return
	case err != nil:
		logctx.FromOr(r.Context(), h.log).Error("webhook_retryable_failure",
			observability.F("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, errors.New("event processing failed"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"received": true,
		"outcome":  string(result.Outcome),
	})
}

func (h *Handler) handlePaymentHistory(w http.ResponseWriter, r *http.Request) {
	u, _ := UserFromContext(r.Context())

	charges, err := h.paymentsvc.History(r.Context(), u)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	views := make([]chargeView, 0, len(charges))
	for _, c := range charges {
		views = append(views, newChargeView(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"payments": views})
}

type createOrderRequest struct {
	Items            []cartItemRequest      `json:"items"`
	ShippingAddress  shippingAddressRequest `json:"shipping_address"`
	PaymentReference string                 `json:"payment_reference"`
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	u, _ := UserFromContext(r.Context())

	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := h.orderService.Create(r.Context(), appOrder.CreateOrderInput{
		UserID:           u.ID,
		Items:            toCartItems(req.Items),
		ShippingAddress:  req.ShippingAddress.toDomain(),
		PaymentReference: req.PaymentReference,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"order_id":    result.OrderID,
		"status":      result.Status,
		"total_price": result.TotalPrice,
	})
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	u, _ := UserFromContext(r.Context())

	orders, err := h.orderService.List(r.Context(), u.ID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	views := make([]orderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, newOrderView(o))
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": views})
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	u, _ := UserFromContext(r.Context())

	entity, err := h.orderService.Get(r.Context(), u, chi.URLParam(r, "orderID"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderView(entity))
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	entity, err := h.orderService.UpdateStatus(r.Context(), chi.URLParam(r, "orderID"), domainOrder.Status(req.Status))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderView(entity))
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func toCartItems(in []cartItemRequest) []checkout.CartItem {
	items := make([]checkout.CartItem, 0, len(in))
	for _, line := range in {
		items = append(items, checkout.CartItem{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	return items
}

type orderView struct {
	ID              string                      `json:"id"`
	UserID          string                      `json:"user_id"`
	Items           []domainOrder.Item          `json:"items"`
	ShippingAddress domainOrder.ShippingAddress `json:"shipping_address"`
	Payment         paymentView                 `json:"payment"`
	TotalPrice      string                      `json:"total_price"`
	Status          domainOrder.Status          `json:"status"`
	CreatedAt       time.Time                   `json:"created_at"`
	UpdatedAt       time.Time                   `json:"updated_at"`
}

type paymentView struct {
	IntentID      string `json:"intent_id,omitempty"`
	Status        string `json:"status"`
	ReceiptURL    string `json:"receipt_url,omitempty"`
	ReceiptNumber string `json:"receipt_number,omitempty"`
}

func newOrderView(o *domainOrder.Order) orderView {
	return orderView{
		ID:              o.ID,
		UserID:          o.UserID,
		Items:           o.Items,
		ShippingAddress: o.ShippingAddress,
		Payment: paymentView{
			IntentID:      o.PaymentResult.IntentID,
			Status:        o.PaymentResult.Status,
			ReceiptURL:    o.PaymentResult.ReceiptURL,
			ReceiptNumber: o.PaymentResult.ReceiptNumber,
		},
		TotalPrice: o.TotalPrice.StringFixed(2),
		Status:     o.Status,
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
}

type chargeView struct {
	ID            string    `json:"id"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	Status        string    `json:"status"`
	ReceiptURL    string    `json:"receipt_url,omitempty"`
	ReceiptNumber string    `json:"receipt_number,omitempty"`
	PaymentMethod string    `json:"payment_method,omitempty"`
	Description   string    `json:"description,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func newChargeView(c domainPayment.Charge) chargeView {
	return chargeView{
		ID:            c.ID,
		Amount:        c.Amount,
		Currency:      c.Currency,
		Status:        c.Status,
		ReceiptURL:    c.ReceiptURL,
		ReceiptNumber: c.ReceiptNumber,
		PaymentMethod: c.PaymentMethod,
		Description:   c.Description,
		CreatedAt:     c.CreatedAt,
	}
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeDomainError maps application and domain errors to HTTP statuses.
// Unclassified errors stay opaque to the client.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var stockErr *catalog.InsufficientStockError

	switch {
	case errors.Is(err, domainOrder.ErrNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, user.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.As(err, &stockErr):
		writeError(w, http.StatusBadRequest, stockErr)
	case errors.Is(err, checkout.ErrValidation),
		errors.Is(err, checkout.ErrInvalidTotal),
		errors.Is(err, catalog.ErrInvalidQuantity),
		errors.Is(err, domainOrder.ErrNoItems),
		errors.Is(err, domainOrder.ErrInvalidTotal),
		errors.Is(err, domainOrder.ErrInvalidTransition):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, appOrder.ErrForbidden):
		writeError(w, http.StatusForbidden, err)
	case errors.Is(err, domainOrder.ErrConflict):
		writeError(w, http.StatusConflict, err)
	default:
		logctx.FromOr(r.Context(), h.log).Error("request_failed",
			observability.F("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}
