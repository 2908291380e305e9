package httpapi

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/pprofhandler"
)

const healthCheckTimeout = 3 * time.Second

// ctxHandler is a fasthttp handler that also receives the traced request
// context.
type ctxHandler func(ctx context.Context, rc *fasthttp.RequestCtx)

type handler struct {
	checks  map[string]HealthCheck
	metrics fasthttp.RequestHandler
	pprof   bool
}

type healthDTO struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (h *handler) route(ctx context.Context, rc *fasthttp.RequestCtx) {
	if !rc.IsGet() && !rc.IsHead() {
		writeError(ctx, rc, fasthttp.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	path := string(rc.Path())
	if h.pprof && strings.HasPrefix(path, "/debug/pprof/") {
		pprofhandler.PprofHandler(rc)
		return
	}
	switch path {
	case "/":
		rc.SetContentType("text/plain; charset=utf-8")
		rc.SetStatusCode(fasthttp.StatusOK)
		rc.SetBodyString(RootMessage)
	case "/healthz":
		h.healthz(ctx, rc)
	case "/metrics":
		h.metrics(rc)
	default:
		writeError(ctx, rc, fasthttp.StatusNotFound, "NOT_FOUND", "route not found")
	}
}

func (h *handler) healthz(ctx context.Context, rc *fasthttp.RequestCtx) {
	ctx, span := startSpan(ctx, "httpapi.Handler.Healthz")
	defer span.End()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	dto := healthDTO{Status: "ok", Checks: make(map[string]string, len(names))}
	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		err := h.checks[name](checkCtx)
		cancel()
		if err != nil {
			dto.Status = "degraded"
			dto.Checks[name] = err.Error()
			continue
		}
		dto.Checks[name] = "ok"
	}

	status := fasthttp.StatusOK
	if dto.Status != "ok" {
		status = fasthttp.StatusServiceUnavailable
	}
	writeSuccess(ctx, rc, status, dto)
}
