package observability

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/vestsk/tippebot/internal/platform/resilience"
)

const metricsNamespace = "tippebot"

// Metrics is the Prometheus side of the bot. It implements usecase.Recorder
// and commands.Metrics, and its UpstreamFailure and BreakerState methods fit
// the ESPN client hooks.
type Metrics struct {
	registry *prometheus.Registry

	commands  *prometheus.CounterVec
	messages  *prometheus.CounterVec
	reminders *prometheus.CounterVec
	gridCells *prometheus.CounterVec
	loopErrs  *prometheus.CounterVec
	upstream  *prometheus.CounterVec
	breaker   *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "commands_total",
			Help:      "Chat commands handled, by command and outcome.",
		}, []string{"command", "outcome"}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "messages_sent_total",
			Help:      "Chat messages sent by the bot, by kind.",
		}, []string{"kind"}),
		reminders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "reminders_sent_total",
			Help:      "Scheduled reminders sent, by reminder.",
		}, []string{"reminder"}),
		gridCells: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "grid_cells_written_total",
			Help:      "Spreadsheet cells written, by operation.",
		}, []string{"operation"}),
		loopErrs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "loop_errors_total",
			Help:      "Failed scheduler iterations, by loop.",
		}, []string{"loop"}),
		upstream: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "upstream_failures_total",
			Help:      "Upstream requests that failed after retrying, by upstream.",
		}, []string{"upstream"}),
		breaker: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state: 0 closed, 1 half-open, 2 open.",
		}, []string{"breaker"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.commands, m.messages, m.reminders, m.gridCells, m.loopErrs, m.upstream, m.breaker,
	)
	return m
}

// Registry is what the /metrics endpoint gathers from.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) CommandHandled(command, outcome string) {
	m.commands.WithLabelValues(command, outcome).Inc()
}

func (m *Metrics) MessageSent(kind string) {
	m.messages.WithLabelValues(kind).Inc()
	if reminder, ok := strings.CutSuffix(kind, "_reminder"); ok {
		m.ReminderSent(reminder)
	}
}

func (m *Metrics) ReminderSent(reminder string) {
	m.reminders.WithLabelValues(reminder).Inc()
}

func (m *Metrics) GridWrites(operation string, cells int) {
	if cells <= 0 {
		return
	}
	m.gridCells.WithLabelValues(operation).Add(float64(cells))
}

func (m *Metrics) LoopError(loop string) {
	m.loopErrs.WithLabelValues(loop).Inc()
}

func (m *Metrics) UpstreamFailure(upstream string) {
	m.upstream.WithLabelValues(upstream).Inc()
}

// BreakerState has the resilience.StateChangeFunc signature.
func (m *Metrics) BreakerState(name string, _, to resilience.CircuitState) {
	m.breaker.WithLabelValues(name).Set(breakerValue(to))
}

func breakerValue(state resilience.CircuitState) float64 {
	switch state {
	case resilience.CircuitStateOpen:
		return 2
	case resilience.CircuitStateHalfOpen:
		return 1
	default:
		return 0
	}
}
