package oteltrace

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/shopkart-labs/shopkart-api/internal/observability"
)

type tracer struct{ t trace.Tracer }

// New adapts the globally configured otel tracer to the observability port.
// Exporter and TracerProvider setup (otel.SetTracerProvider) is the
// deployment's responsibility; without it spans are no-ops.
func New(name string) observability.Tracer {
	if name == "" {
		name = "shopkart"
	}
	return &tracer{t: otel.Tracer(name)}
}

func (t *tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.t.Start(ctx, name, trace.WithAttributes(attrs...))
}
