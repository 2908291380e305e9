package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vestsk/tippebot/internal/platform/resilience"
)

func TestMetrics_CountsByLabel(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	m.CommandHandled("kamper", "ok")
	m.CommandHandled("kamper", "ok")
	m.CommandHandled("kamper", "denied")
	m.MessageSent("thursday_reminder")
	m.MessageSent("matchup_line")
	m.GridWrites("reconcile", 12)
	m.GridWrites("reconcile", 0)
	m.LoopError("autopost")
	m.UpstreamFailure("espn")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.commands.WithLabelValues("kamper", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commands.WithLabelValues("kamper", "denied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reminders.WithLabelValues("thursday")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.messages.WithLabelValues("matchup_line")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.gridCells.WithLabelValues("reconcile")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loopErrs.WithLabelValues("autopost")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.upstream.WithLabelValues("espn")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.reminders), "only reminder kinds count as reminders")
}

func TestMetrics_BreakerState(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	m.BreakerState("espn", resilience.CircuitStateClosed, resilience.CircuitStateOpen)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.breaker.WithLabelValues("espn")))

	m.BreakerState("espn", resilience.CircuitStateOpen, resilience.CircuitStateHalfOpen)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.breaker.WithLabelValues("espn")))

	m.BreakerState("espn", resilience.CircuitStateHalfOpen, resilience.CircuitStateClosed)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.breaker.WithLabelValues("espn")))
}

func TestMetrics_RegistryGathers(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	m.CommandHandled("ping", "ok")

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["tippebot_commands_total"])
	assert.True(t, names["go_goroutines"])
}
