package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/shopkart-labs/shopkart-api/internal/domain/order"
	"github.com/shopkart-labs/shopkart-api/internal/domain/payment"
	"github.com/shopkart-labs/shopkart-api/internal/domain/user"
	"github.com/shopkart-labs/shopkart-api/internal/observability"
	"github.com/shopkart-labs/shopkart-api/internal/observability/logctx"
)

const (
	checkoutService     = "checkout-service"
	useCaseCreateIntent = "checkout.create_intent"
	spanPrefix          = "UC."
	gatewayPeer         = "stripe"

	intentCurrency = "usd"
)

var ErrGateway = errors.New("checkout: payment gateway failure")

// CreateIntentUseCase prices the cart server-side and asks the payment
// gateway for an intent carrying the full order snapshot in its metadata.
// Nothing is persisted here; the order record is created only when the
// gateway confirms payment through the webhook path.
type CreateIntentUseCase struct {
	validator *Validator
	users     user.Repository
	gateway   payment.Gateway
	tel       observability.Observability

	log observability.Logger

	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

func NewCreateIntentUseCase(
	validator *Validator,
	users user.Repository,
	gateway payment.Gateway,
	tel observability.Observability,
) *CreateIntentUseCase {
	if tel == nil {
		tel = observability.Nop()
	}
	metrics := tel.Metrics()

	return &CreateIntentUseCase{
		validator:    validator,
		users:        users,
		gateway:      gateway,
		tel:          tel,
		log:          tel.Logger().With(observability.F("service", checkoutService)),
		reqCounter:   metrics.Counter(observability.MUsecaseRequests),
		durHistogram: metrics.Histogram(observability.MUsecaseDuration),
		extCounter:   metrics.Counter(observability.MExternalRequests),
		extHistogram: metrics.Histogram(observability.MExternalRequestDur),
	}
}

type CreateIntentInput struct {
	User            *user.User
	Items           []CartItem
	ShippingAddress order.ShippingAddress
}

type CreateIntentResult struct {
	IntentID     string
	ClientSecret string
	Amount       int64
	Currency     string
}

// Execute validates the cart, ensures the user has a gateway customer, and
// creates the payment intent.
func (uc *CreateIntentUseCase) Execute(ctx context.Context, cmd CreateIntentInput) (_ *CreateIntentResult, err error) {
	logger := logctx.FromOr(ctx, uc.log).With(observability.F("use_case", useCaseCreateIntent))

	ctx, span := uc.tel.Tracer().Start(ctx, spanPrefix+"CreateIntent",
		attribute.String("use_case", useCaseCreateIntent),
		attribute.Int("cart.items", len(cmd.Items)),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"

	defer func() {
		lat := time.Since(start).Seconds()

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, statusText)
		} else {
			span.SetStatus(codes.Ok, statusText)
		}
		span.End()

		uc.reqCounter.Add(1,
			observability.L("use_case", useCaseCreateIntent),
			observability.L("outcome", outcome),
		)
		uc.durHistogram.Observe(lat,
			observability.L("use_case", useCaseCreateIntent),
		)

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", lat),
		}
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			fields = append(fields,
				observability.F("trace_id", sc.TraceID().String()),
				observability.F("span_id", sc.SpanID().String()),
			)
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}
		logger.Info("use_case_done", fields...)
	}()

	if cmd.User == nil || cmd.User.ID == "" {
		outcome, statusText = "error", "USER_REQUIRED"
		return nil, newValidation("user is required")
	}
	span.SetAttributes(attribute.String("user.id", cmd.User.ID))

	quote, err := uc.validator.ValidateCart(ctx, cmd.Items)
	if err != nil {
		outcome, statusText = "error", "CART_INVALID"
		return nil, err
	}

	customerID, err := uc.ensureCustomer(ctx, logger, cmd.User)
	if err != nil {
		outcome, statusText = "error", "CUSTOMER_UPSERT_FAILED"
		return nil, err
	}

	meta := payment.IntentMetadata{
		UserID:          cmd.User.ID,
		Items:           quote.Items,
		ShippingAddress: cmd.ShippingAddress,
		Total:           quote.Total,
	}
	encoded, err := meta.Encode()
	if err != nil {
		outcome, statusText = "error", "METADATA_ENCODE_FAILED"
		return nil, fmt.Errorf("checkout: encode intent metadata: %w", err)
	}

	amount := MinorUnits(quote.Total)
	intent, err := uc.createIntent(ctx, payment.CreateIntentParams{
		Amount:     amount,
		Currency:   intentCurrency,
		CustomerID: customerID,
		Metadata:   encoded,
	})
	if err != nil {
		outcome, statusText = "error", "GATEWAY_INTENT_FAILED"
		return nil, fmt.Errorf("%w: %w", ErrGateway, err)
	}

	span.SetAttributes(attribute.String("payment.intent_id", intent.ID))
	span.AddEvent("intent.created",
		trace.WithAttributes(attribute.Int64("payment.amount", amount)),
	)

	return &CreateIntentResult{
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		Amount:       amount,
		Currency:     intentCurrency,
	}, nil
}

// ensureCustomer returns the gateway customer id for the user, creating one
// on first checkout. The repository claim is a compare-and-set: when two
// checkouts race, both end up with the id that was stored first and the
// loser's freshly created customer is abandoned at the gateway.
func (uc *CreateIntentUseCase) ensureCustomer(ctx context.Context, logger observability.Logger, u *user.User) (string, error) {
	if u.GatewayCustomerID != "" {
		return u.GatewayCustomerID, nil
	}

	created, err := uc.external(ctx, "customer.create", func(ctx context.Context) (string, error) {
		return uc.gateway.CreateCustomer(ctx, u.Email, u.Name, map[string]string{"user_id": u.ID})
	})
	if err != nil {
		return "", fmt.Errorf("%w: create customer: %w", ErrGateway, err)
	}

	stored, err := uc.users.ClaimGatewayCustomer(ctx, u.ID, created)
	if err != nil {
		return "", fmt.Errorf("checkout: claim gateway customer: %w", err)
	}
	if stored != created {
		logger.Warn("gateway_customer_claim_lost",
			observability.F("user_id", u.ID),
			observability.F("orphaned_customer_id", created),
		)
	}
	return stored, nil
}

func (uc *CreateIntentUseCase) createIntent(ctx context.Context, params payment.CreateIntentParams) (*payment.Intent, error) {
	var intent *payment.Intent
	_, err := uc.external(ctx, "payment_intent.create", func(ctx context.Context) (string, error) {
		var callErr error
		intent, callErr = uc.gateway.CreateIntent(ctx, params)
		return "", callErr
	})
	if err != nil {
		return nil, err
	}
	return intent, nil
}

// external wraps a gateway call with the peer request metrics.
func (uc *CreateIntentUseCase) external(ctx context.Context, endpoint string, call func(context.Context) (string, error)) (string, error) {
	start := time.Now()
	result, err := call(ctx)

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	uc.extCounter.Add(1,
		observability.L("peer", gatewayPeer),
		observability.L("endpoint", endpoint),
		observability.L("outcome", outcome),
	)
	uc.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", gatewayPeer),
		observability.L("endpoint", endpoint),
	)
	return result, err
}
