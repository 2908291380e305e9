package observability

import (
	"errors"
	"testing"
	"time"

	otellog "go.opentelemetry.io/otel/log"
)

func TestShouldSkipUptraceLog(t *testing.T) {
	t.Parallel()

	if !shouldSkipUptraceLog("http request", []any{"method", "GET", "path", "/healthz"}) {
		t.Fatalf("expected health check log to be skipped")
	}
	if !shouldSkipUptraceLog("http request", []any{"path", "/metrics"}) {
		t.Fatalf("expected metrics scrape log to be skipped")
	}
	if shouldSkipUptraceLog("http request", []any{"path", "/"}) {
		t.Fatalf("did not expect root request log to be skipped")
	}
	if shouldSkipUptraceLog("posted matchups", []any{"path", "/healthz"}) {
		t.Fatalf("did not expect non-http log to be skipped")
	}
}

func TestBuildOTelLogAttributes(t *testing.T) {
	t.Parallel()

	attrs := buildOTelLogAttributes([]any{"channel_id", "vestsk", "week", 3, "error", errors.New("boom"), "lines"})
	if len(attrs) != 4 {
		t.Fatalf("expected 4 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "channel_id" || attrs[0].Value.AsString() != "vestsk" {
		t.Fatalf("unexpected channel_id attribute")
	}
	if attrs[1].Key != "week" || attrs[1].Value.AsInt64() != 3 {
		t.Fatalf("unexpected week attribute")
	}
	if attrs[2].Value.AsString() != "boom" {
		t.Fatalf("expected error rendered as string, got %v", attrs[2].Value)
	}
	if attrs[3].Key != "lines" || attrs[3].Value.Kind() != otellog.KindEmpty {
		t.Fatalf("unexpected trailing attribute")
	}
}

func TestToOTelLogValue(t *testing.T) {
	t.Parallel()

	if v := toOTelLogValue(map[string]any{"weekly": 3, "season": 10}, 0); v.Kind() != otellog.KindMap || len(v.AsMap()) != 2 {
		t.Fatalf("expected map value with 2 items, got %v", v)
	}
	if v := toOTelLogValue([]string{"BUF@NE", "NYJ@MIA"}, 0); v.Kind() != otellog.KindSlice || len(v.AsSlice()) != 2 {
		t.Fatalf("expected slice value with 2 items, got %v", v)
	}
	if v := toOTelLogValue(90*time.Second, 0); v.AsString() != "1m30s" {
		t.Fatalf("expected duration string, got %v", v)
	}
	if v := toOTelLogValue(nil, 0); v.Kind() != otellog.KindEmpty {
		t.Fatalf("expected empty value for nil, got %v", v)
	}
}
