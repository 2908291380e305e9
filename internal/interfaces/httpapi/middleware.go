package httpapi

import (
	"context"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"github.com/vestsk/tippebot/internal/platform/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RequestTracing opens a server span for every request except the health
// probes and the metrics scrape.
func RequestTracing(next ctxHandler) fasthttp.RequestHandler {
	return func(rc *fasthttp.RequestCtx) {
		path := string(rc.Path())
		ctx := context.Context(rc)
		if !shouldTraceRequest(path) {
			next(ctx, rc)
			return
		}

		ctx = otel.GetTextMapPropagator().Extract(ctx, headerCarrier{header: &rc.Request.Header})
		ctx, span := apiTracer.Start(ctx, string(rc.Method())+" "+path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", string(rc.Method())),
				attribute.String("url.path", path),
			),
		)
		defer span.End()

		next(ctx, rc)

		status := rc.Response.StatusCode()
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		if status >= fasthttp.StatusInternalServerError {
			span.SetStatus(codes.Error, fasthttp.StatusMessage(status))
		}
	}
}

func shouldTraceRequest(path string) bool {
	normalized := strings.ToLower(strings.TrimSpace(path))
	switch normalized {
	case "/healthz", "/health", "/livez", "/readyz", "/metrics":
		return false
	default:
		return true
	}
}

func RequestLogging(logger *logging.Logger, next ctxHandler) ctxHandler {
	return func(ctx context.Context, rc *fasthttp.RequestCtx) {
		started := time.Now()
		next(ctx, rc)

		logger.DebugContext(ctx, "http request",
			"method", string(rc.Method()),
			"path", string(rc.Path()),
			"status", rc.Response.StatusCode(),
			"remote_addr", rc.RemoteAddr().String(),
			"duration_ms", time.Since(started).Milliseconds(),
		)
	}
}

func recoverPanic(logger *logging.Logger, next ctxHandler) ctxHandler {
	return func(ctx context.Context, rc *fasthttp.RequestCtx) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.ErrorContext(ctx, "panic recovered", "panic", rec, "path", string(rc.Path()))
				writeError(ctx, rc, fasthttp.StatusInternalServerError, "INTERNAL", "internal server error")
			}
		}()
		next(ctx, rc)
	}
}

// headerCarrier exposes fasthttp request headers to OpenTelemetry
// propagators.
type headerCarrier struct {
	header *fasthttp.RequestHeader
}

func (c headerCarrier) Get(key string) string {
	return string(c.header.Peek(key))
}

func (c headerCarrier) Set(key, value string) {
	c.header.Set(key, value)
}

// Keys is not needed by the trace-context and baggage propagators.
func (c headerCarrier) Keys() []string {
	return nil
}
