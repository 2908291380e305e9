package logging

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/require"
)

func TestLogger_WritesKeyValueFieldsAsJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(LevelInfo, &buf).Named("reconcile")

	logger.Info("week reconciled", "week", 5, "error", errors.New("boom"))

	var line map[string]any
	require.NoError(t, sonic.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	require.Equal(t, "week reconciled", line["msg"])
	require.Equal(t, "reconcile", line["logger"])
	require.EqualValues(t, 5, line["week"])
	require.Equal(t, "boom", line["error"])
}

func TestLogger_RespectsLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(LevelWarn, &buf)

	logger.DebugContext(context.Background(), "hidden")
	logger.Info("hidden")
	logger.Warn("shown")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	require.Contains(t, lines[0], "shown")
}

func TestLogger_OddArgsKeepTrailingKey(t *testing.T) {
	t.Parallel()

	fields := zapFields([]any{"a", 1, "dangling"})
	require.Len(t, fields, 2)
	require.Equal(t, "dangling", fields[1].Key)
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]Level{
		"debug":   LevelDebug,
		"WARNING": LevelWarn,
		"error":   LevelError,
		"":        LevelInfo,
		"verbose": LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q): got=%v want=%v", in, got, want)
		}
	}
}

func TestNilLoggerFallsBackToDefault(t *testing.T) {
	t.Parallel()

	var logger *Logger
	logger.Info("does not panic")
	if logger.With("k", "v") == nil {
		t.Fatalf("expected nop logger from nil receiver")
	}
}

func TestSetMirror_ReceivesEnabledEntries(t *testing.T) {
	var got []string
	SetMirror(func(_ context.Context, level Level, msg string, args ...any) {
		got = append(got, level.String()+":"+msg)
	})
	t.Cleanup(func() { SetMirror(nil) })

	var buf bytes.Buffer
	logger := New(LevelInfo, &buf)
	logger.Debug("hidden")
	logger.Info("posted matchups", "week", 3)
	logger.ErrorContext(context.Background(), "export failed")

	require.Equal(t, []string{"info:posted matchups", "error:export failed"}, got)
}
