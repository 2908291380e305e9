package commands

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var commandTracer = otel.Tracer("tippebot/internal/interfaces/commands")

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return commandTracer.Start(ctx, name, trace.WithAttributes(attrs...))
}
