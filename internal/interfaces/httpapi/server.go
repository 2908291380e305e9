package httpapi

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"github.com/vestsk/tippebot/internal/platform/logging"
)

const (
	RootMessage = "Bot is running!"

	readTimeout  = 10 * time.Second
	writeTimeout = 10 * time.Second
	idleTimeout  = 60 * time.Second
)

// HealthCheck reports whether one dependency is usable.
type HealthCheck func(ctx context.Context) error

// Option tunes a Server.
type Option func(*handler)

// WithPprof mounts the runtime profiles under /debug/pprof/.
func WithPprof() Option {
	return func(h *handler) { h.pprof = true }
}

// Server is the keep-alive, health and metrics endpoint of the bot.
type Server struct {
	addr   string
	srv    *fasthttp.Server
	logger *logging.Logger
}

func NewServer(addr string, gatherer prometheus.Gatherer, checks map[string]HealthCheck, logger *logging.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = logging.Default()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	logger = logger.Named("httpapi")

	h := &handler{
		checks:  checks,
		metrics: fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})),
	}
	for _, opt := range opts {
		opt(h)
	}

	return &Server{
		addr: addr,
		srv: &fasthttp.Server{
			Handler:      RequestTracing(RequestLogging(logger, recoverPanic(logger, h.route))),
			Name:         "tippebot",
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			IdleTimeout:  idleTimeout,
			Logger:       serverLogger{logger: logger},
		},
		logger: logger,
	}
}

// Start listens on the configured address and blocks until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	return s.Serve(ln)
}

func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("http server listening", "addr", ln.Addr().String())
	if err := s.srv.Serve(ln); err != nil {
		return fmt.Errorf("serve http: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.srv.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

type serverLogger struct {
	logger *logging.Logger
}

func (l serverLogger) Printf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}
