package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/shopkart-labs/shopkart-api/internal/domain/catalog"
	"github.com/shopkart-labs/shopkart-api/internal/domain/order"
	"github.com/shopkart-labs/shopkart-api/internal/domain/outbox"
	"github.com/shopkart-labs/shopkart-api/internal/domain/payment"
	"github.com/shopkart-labs/shopkart-api/internal/domain/user"
	"github.com/shopkart-labs/shopkart-api/internal/observability"
	"github.com/shopkart-labs/shopkart-api/internal/observability/logctx"
)

const (
	settlementService = "settlement-service"
	useCaseSettle     = "settlement.process_event"
	spanPrefix        = "UC."
	publishTimeout    = 300 * time.Millisecond
)

// Outcome classifies what a delivery attempt did. Every outcome except
// OutcomeRetry acknowledges the delivery; the gateway stops redelivering.
type Outcome string

const (
	// OutcomeSettled is the single transition that creates the order.
	OutcomeSettled Outcome = "settled"
	// OutcomeReplay acknowledges a redelivery of an already settled intent.
	OutcomeReplay Outcome = "replay"
	// OutcomeReceiptAttached recorded receipt fields on an existing order.
	OutcomeReceiptAttached Outcome = "receipt_attached"
	// OutcomeDeferred acknowledges a charge event that arrived before its
	// order exists. The receipt is recovered from a later redelivery.
	OutcomeDeferred Outcome = "deferred"
	// OutcomeDiscarded acknowledges a structurally unprocessable event so it
	// cannot poison the delivery queue.
	OutcomeDiscarded Outcome = "discarded"
	// OutcomeIgnored acknowledges an event type the pipeline does not handle.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeRetry signals a transient failure; the delivery is not
	// acknowledged and the gateway will redeliver.
	OutcomeRetry Outcome = "retry"
)

// ErrSignature re-exports the verification failure so callers can map it to
// a rejection without importing the domain package.
var ErrSignature = payment.ErrSignature

// IDGenerator mints order ids for settlement-created orders.
type IDGenerator interface {
	NewID() string
}

// UseCase drives the settlement state machine for gateway delivery events.
// Deliveries are at-least-once and unordered; every path below is written to
// be safe under replay and reordering. The order insert is the idempotency
// point: the storage uniqueness constraint on the payment intent id
// guarantees at most one order per intent no matter how many deliveries race.
type UseCase struct {
	verifier  payment.EventVerifier
	orders    order.Repository
	products  catalog.Repository
	users     user.Repository
	ids       IDGenerator
	publisher outbox.Publisher
	tel       observability.Observability

	// strictStock rejects settlement while stock is short instead of letting
	// inventory go negative. Off by default; the payment has already been
	// captured by the time the event arrives.
	strictStock bool

	log observability.Logger

	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
	eventCounter observability.Counter   // webhook_events_total{event,outcome}
	stockCounter observability.Counter   // stock_decrements_total{outcome}
}

type Option func(*UseCase)

func WithStrictStock(strict bool) Option {
	return func(uc *UseCase) { uc.strictStock = strict }
}

func NewUseCase(
	verifier payment.EventVerifier,
	orders order.Repository,
	products catalog.Repository,
	users user.Repository,
	ids IDGenerator,
	publisher outbox.Publisher,
	tel observability.Observability,
	opts ...Option,
) *UseCase {
	if tel == nil {
		tel = observability.Nop()
	}
	metrics := tel.Metrics()

	uc := &UseCase{
		verifier:     verifier,
		orders:       orders,
		products:     products,
		users:        users,
		ids:          ids,
		publisher:    publisher,
		tel:          tel,
		log:          tel.Logger().With(observability.F("service", settlementService)),
		reqCounter:   metrics.Counter(observability.MUsecaseRequests),
		durHistogram: metrics.Histogram(observability.MUsecaseDuration),
		eventCounter: metrics.Counter(observability.MWebhookEvents),
		stockCounter: metrics.Counter(observability.MStockDecrements),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

type Result struct {
	Outcome Outcome
	OrderID string
}

// Execute verifies one raw delivery and applies it to the settlement state
// machine. A returned error means the delivery was NOT acknowledged; the
// caller should answer the gateway with a retryable status. ErrSignature is
// the exception: it must be answered with a rejection, never a retry.
func (uc *UseCase) Execute(ctx context.Context, payload []byte, signature string) (_ *Result, err error) {
	logger := logctx.FromOr(ctx, uc.log).With(observability.F("use_case", useCaseSettle))

	ctx, span := uc.tel.Tracer().Start(ctx, spanPrefix+"ProcessSettlementEvent",
		attribute.String("use_case", useCaseSettle),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"
	eventType := "unverified"

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
			observability.L("use_case", useCaseSettle),
			observability.L("outcome", outcome),
		)
		uc.durHistogram.Observe(lat,
			observability.L("use_case", useCaseSettle),
		)

		fields := []observability.Field{
			observability.F("event_type", eventType),
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

	event, err := uc.verifier.Verify(payload, signature)
	if err != nil {
		outcome, statusText = "error", "SIGNATURE_REJECTED"
		return nil, err
	}
	eventType = string(event.Type)
	span.SetAttributes(
		attribute.String("webhook.event_id", event.ID),
		attribute.String("webhook.event_type", eventType),
	)

	var result *Result
	switch event.Type {
	case payment.EventPaymentSucceeded:
		result, err = uc.settleIntent(ctx, logger, event)
	case payment.EventChargeSucceeded, payment.EventChargeUpdated:
		result, err = uc.attachReceipt(ctx, logger, event)
	default:
		logger.Info("webhook_event_ignored", observability.F("event_type", eventType))
		result = &Result{Outcome: OutcomeIgnored}
	}
	if err != nil {
		outcome, statusText = "error", "EVENT_PROCESSING_FAILED"
		uc.recordEvent(eventType, OutcomeRetry)
		return nil, err
	}

	statusText = string(result.Outcome)
	uc.recordEvent(eventType, result.Outcome)
	span.SetAttributes(attribute.String("settlement.outcome", string(result.Outcome)))
	return result, nil
}

// settleIntent turns a succeeded payment intent into exactly one order.
func (uc *UseCase) settleIntent(ctx context.Context, logger observability.Logger, event *payment.Event) (*Result, error) {
	if event.Intent == nil || event.Intent.ID == "" {
		logger.Warn("settlement_event_missing_intent", observability.F("event_id", event.ID))
		return &Result{Outcome: OutcomeDiscarded}, nil
	}
	intentID := event.Intent.ID
	logger = logger.With(observability.F("payment_intent_id", intentID))

	meta, decodeErr := payment.DecodeIntentMetadata(event.Intent.Metadata)
	if decodeErr != nil {
		// Metadata is written by our own checkout path; a decode failure is a
		// permanently malformed event, not a transient one. Acknowledge it so
		// redelivery cannot loop forever.
		logger.Warn("intent_metadata_unprocessable",
			observability.F("event_id", event.ID),
			observability.F("error", decodeErr.Error()),
		)
		return &Result{Outcome: OutcomeDiscarded}, nil
	}

	existing, lookupErr := uc.orders.FindByPaymentIntent(ctx, intentID)
	switch {
	case lookupErr == nil:
		logger.Info("settlement_replay", observability.F("order_id", existing.ID))
		return &Result{Outcome: OutcomeReplay, OrderID: existing.ID}, nil
	case errors.Is(lookupErr, order.ErrNotFound):
		// first delivery for this intent, continue
	default:
		return nil, fmt.Errorf("settlement: intent lookup: %w", lookupErr)
	}

	if uc.strictStock {
		if shortErr := uc.checkStock(ctx, meta.Items); shortErr != nil {
			return nil, shortErr
		}
	}

	entity, newErr := order.New(
		uc.ids.NewID(),
		meta.UserID,
		meta.Items,
		meta.ShippingAddress,
		order.PaymentResult{IntentID: intentID, Status: "succeeded"},
		meta.Total,
	)
	if newErr != nil {
		logger.Warn("settlement_order_unprocessable",
			observability.F("event_id", event.ID),
			observability.F("error", newErr.Error()),
		)
		return &Result{Outcome: OutcomeDiscarded}, nil
	}

	if insertErr := uc.orders.Insert(ctx, entity); insertErr != nil {
		if errors.Is(insertErr, order.ErrConflict) {
			// A concurrent delivery won the insert race. Treat exactly like a
			// replay observed up front.
			if winner, werr := uc.orders.FindByPaymentIntent(ctx, intentID); werr == nil {
				logger.Info("settlement_replay", observability.F("order_id", winner.ID))
				return &Result{Outcome: OutcomeReplay, OrderID: winner.ID}, nil
			}
			return &Result{Outcome: OutcomeReplay}, nil
		}
		return nil, fmt.Errorf("settlement: insert order: %w", insertErr)
	}

	uc.decrementStock(ctx, logger, entity)
	uc.notify(ctx, logger, entity)

	logger.Info("order_settled",
		observability.F("order_id", entity.ID),
		observability.F("user_id", entity.UserID),
		observability.F("total", entity.TotalPrice.StringFixed(2)),
	)
	return &Result{Outcome: OutcomeSettled, OrderID: entity.ID}, nil
}

func (uc *UseCase) checkStock(ctx context.Context, items []order.Item) error {
	for _, item := range items {
		product, err := uc.products.FindByID(ctx, item.ProductID)
		if err != nil {
			return fmt.Errorf("settlement: stock check %s: %w", item.ProductID, err)
		}
		if !product.HasStock(item.Quantity) {
			return fmt.Errorf("settlement: %w", &catalog.InsufficientStockError{ProductID: product.ID, Name: product.Name})
		}
	}
	return nil
}

// decrementStock applies the inventory side effect after the order is
// committed. The payment is already captured, so a failed decrement must not
// undo the order; it is logged and counted for reconciliation instead.
func (uc *UseCase) decrementStock(ctx context.Context, logger observability.Logger, o *order.Order) {
	for _, item := range o.Items {
		outcome := "success"
		if err := uc.products.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			outcome = "error"
			logger.Error("stock_decrement_failed",
				observability.F("order_id", o.ID),
				observability.F("product_id", item.ProductID),
				observability.F("quantity", item.Quantity),
				observability.F("error", err.Error()),
			)
		}
		uc.stockCounter.Add(1, observability.L("outcome", outcome))
	}
}

// notify publishes the settled event for the notification worker. Failures
// here never affect the settlement result.
func (uc *UseCase) notify(ctx context.Context, logger observability.Logger, o *order.Order) {
	if uc.publisher == nil {
		return
	}

	recipient, err := uc.users.FindByID(ctx, o.UserID)
	if err != nil {
		logger.Warn("settlement_recipient_lookup_failed",
			observability.F("order_id", o.ID),
			observability.F("user_id", o.UserID),
			observability.F("error", err.Error()),
		)
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := uc.publisher.Publish(pubCtx, order.NewOrderSettledEvent(o, recipient.Email, recipient.Name)); err != nil {
		logger.Warn("settlement_event_publish_failed",
			observability.F("order_id", o.ID),
			observability.F("error", err.Error()),
		)
	}
}

// attachReceipt records receipt artifacts from a charge event. Charge events
// may arrive before the intent event that creates the order; in that case the
// delivery is acknowledged and the receipt is picked up from a later
// charge.updated redelivery.
func (uc *UseCase) attachReceipt(ctx context.Context, logger observability.Logger, event *payment.Event) (*Result, error) {
	if event.Charge == nil || event.Charge.IntentID == "" {
		logger.Warn("charge_event_missing_intent", observability.F("event_id", event.ID))
		return &Result{Outcome: OutcomeDiscarded}, nil
	}
	charge := event.Charge
	if charge.ReceiptURL == "" && charge.ReceiptNumber == "" {
		return &Result{Outcome: OutcomeIgnored}, nil
	}

	err := uc.orders.AttachReceipt(ctx, charge.IntentID, charge.ReceiptURL, charge.ReceiptNumber)
	switch {
	case err == nil:
		logger.Info("receipt_attached",
			observability.F("payment_intent_id", charge.IntentID),
			observability.F("receipt_number", charge.ReceiptNumber),
		)
		return &Result{Outcome: OutcomeReceiptAttached}, nil
	case errors.Is(err, order.ErrNotFound):
		logger.Info("receipt_deferred",
			observability.F("payment_intent_id", charge.IntentID),
		)
		return &Result{Outcome: OutcomeDeferred}, nil
	default:
		return nil, fmt.Errorf("settlement: attach receipt: %w", err)
	}
}

func (uc *UseCase) recordEvent(eventType string, outcome Outcome) {
	uc.eventCounter.Add(1,
		observability.L("event", eventType),
		observability.L("outcome", string(outcome)),
	)
}
