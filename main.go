package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shopkart-labs/shopkart-api/internal/application/checkout"
	appNotification "github.com/shopkart-labs/shopkart-api/internal/application/notification"
	appOrder "github.com/shopkart-labs/shopkart-api/internal/application/order"
	appPayment "github.com/shopkart-labs/shopkart-api/internal/application/payment"
	"github.com/shopkart-labs/shopkart-api/internal/application/settlement"
	"github.com/shopkart-labs/shopkart-api/internal/domain/catalog"
	"github.com/shopkart-labs/shopkart-api/internal/domain/order"
	"github.com/shopkart-labs/shopkart-api/internal/domain/user"
	"github.com/shopkart-labs/shopkart-api/internal/infrastructure/authproxy"
	"github.com/shopkart-labs/shopkart-api/internal/infrastructure/config"
	"github.com/shopkart-labs/shopkart-api/internal/infrastructure/id"
	"github.com/shopkart-labs/shopkart-api/internal/infrastructure/mail"
	"github.com/shopkart-labs/shopkart-api/internal/infrastructure/memory"
	"github.com/shopkart-labs/shopkart-api/internal/infrastructure/observability/oteltrace"
	"github.com/shopkart-labs/shopkart-api/internal/infrastructure/observability/prometrics"
	"github.com/shopkart-labs/shopkart-api/internal/infrastructure/observability/telemetry"
	"github.com/shopkart-labs/shopkart-api/internal/infrastructure/observability/zaplogger"
	outboxinfra "github.com/shopkart-labs/shopkart-api/internal/infrastructure/outbox"
	"github.com/shopkart-labs/shopkart-api/internal/infrastructure/postgres"
	"github.com/shopkart-labs/shopkart-api/internal/infrastructure/stripegateway"
	"github.com/shopkart-labs/shopkart-api/internal/observability"
	httppresentation "github.com/shopkart-labs/shopkart-api/internal/presentation/http"
)

func main() {
	var systemLog observability.Logger = observability.NopLogger()

	cfg, err := config.Load(".", func(config.Config) {
		// Dependencies are wired at startup; a changed file needs a restart.
		systemLog.Warn("config_file_changed", observability.F("note", "restart to apply"))
	})
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	baseLogger := zaplogger.New(cfg.ServiceName, cfg.Env)
	if s, ok := baseLogger.(interface{ Sync() error }); ok {
		defer func() { _ = s.Sync() }()
	}
	systemLog = baseLogger.With(observability.F("component", "main"))

	tel := buildTelemetry(cfg, baseLogger)

	catalogRepo, orderRepo, userRepo := buildRepositories(cfg, systemLog)

	gateway := stripegateway.New(cfg.StripeSecretKey)
	verifier := stripegateway.NewWebhookVerifier(cfg.StripeWebhookSecret)
	idGenerator := id.NewUUIDGenerator()

	bus := outboxinfra.NewBus(baseLogger)
	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	renderer, err := mail.NewConfirmationRenderer(cfg.ServiceName)
	if err != nil {
		log.Fatalf("build mail renderer: %v", err)
	}
	sender := mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.EmailFrom)
	appNotification.NewWorker(renderer, sender, tel).Register(bus)

	validator := checkout.NewValidator(catalogRepo)
	checkoutUC := checkout.NewCreateIntentUseCase(validator, userRepo, gateway, tel)
	settlementUC := settlement.NewUseCase(
		verifier, orderRepo, catalogRepo, userRepo, idGenerator, bus, tel,
		settlement.WithStrictStock(cfg.StrictStock),
	)
	orderService := appOrder.NewService(orderRepo, validator, idGenerator, tel)
	paymentService := appPayment.NewService(gateway, tel)

	handler := httppresentation.NewHandler(
		checkoutUC, settlementUC, orderService, paymentService,
		authproxy.New(userRepo), tel,
	)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           handler.Router(promhttp.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		systemLog.Info("http_server_start", observability.F("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			systemLog.Error("http_server_error", observability.F("error", err.Error()))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		systemLog.Error("http_server_shutdown_error", observability.F("error", err.Error()))
		return
	}
	systemLog.Info("http_server_stopped")
}

func buildTelemetry(cfg config.Config, logger observability.Logger) observability.Observability {
	reg := prometrics.New(cfg.ServiceName, "")

	counters := map[observability.MetricKey]observability.Counter{
		observability.MUsecaseRequests: reg.Counter(
			string(observability.MUsecaseRequests),
			"Total number of use case invocations.",
			"use_case", "outcome",
		),
		observability.MHTTPRequests: reg.Counter(
			string(observability.MHTTPRequests),
			"Total number of HTTP requests served.",
			"method", "route", "status",
		),
		observability.MExternalRequests: reg.Counter(
			string(observability.MExternalRequests),
			"Total number of calls to external peers.",
			"peer", "endpoint", "outcome",
		),
		observability.MWebhookEvents: reg.Counter(
			string(observability.MWebhookEvents),
			"Gateway webhook deliveries by event type and settlement outcome.",
			"event", "outcome",
		),
		observability.MStockDecrements: reg.Counter(
			string(observability.MStockDecrements),
			"Inventory decrements applied during settlement.",
			"outcome",
		),
		observability.MMailDeliveries: reg.Counter(
			string(observability.MMailDeliveries),
			"Order confirmation email deliveries.",
			"outcome",
		),
	}
	histograms := map[observability.MetricKey]observability.Histogram{
		observability.MUsecaseDuration: reg.Histogram(
			string(observability.MUsecaseDuration),
			"Duration of use case execution in seconds.",
			nil,
			"use_case",
		),
		observability.MHTTPRequestDuration: reg.Histogram(
			string(observability.MHTTPRequestDuration),
			"Duration of HTTP request handling in seconds.",
			nil,
			"method", "route", "status",
		),
		observability.MExternalRequestDur: reg.Histogram(
			string(observability.MExternalRequestDur),
			"Duration of calls to external peers in seconds.",
			nil,
			"peer", "endpoint",
		),
	}

	return telemetry.New(oteltrace.New(cfg.ServiceName), logger, counters, histograms)
}

func buildRepositories(cfg config.Config, logger observability.Logger) (catalog.Repository, order.Repository, user.Repository) {
	if cfg.DatabaseURL == "" {
		logger.Warn("using_in_memory_repositories")
		catalogRepo := memory.NewCatalogRepository()
		return catalogRepo, memory.NewOrderRepository(catalogRepo), memory.NewUserRepository()
	}

	db, err := postgres.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	return postgres.NewCatalogRepository(db), postgres.NewOrderRepository(db), postgres.NewUserRepository(db)
}
