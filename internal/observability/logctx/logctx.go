// Package logctx carries a request-scoped logger through the context. The
// HTTP middleware seeds it with the request id and trace ids so that every
// log line emitted while handling a checkout, settlement, or order call can
// be correlated back to the originating delivery.
package logctx

import (
	"context"

	"github.com/shopkart-labs/shopkart-api/internal/observability"
)

type loggerKey struct{}

// With returns a context that carries logger. Nil inputs leave ctx unchanged.
func With(ctx context.Context, logger observability.Logger) context.Context {
	if ctx == nil || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// From returns the carried logger, or nil when the context has none. Code
// outside the request path (workers, startup) typically has none.
func From(ctx context.Context) observability.Logger {
	if ctx == nil {
		return nil
	}
	logger, _ := ctx.Value(loggerKey{}).(observability.Logger)
	return logger
}

// FromOr returns the carried logger, falling back to the component logger
// when the context arrived from outside the middleware.
func FromOr(ctx context.Context, fallback observability.Logger) observability.Logger {
	if logger := From(ctx); logger != nil {
		return logger
	}
	return fallback
}
