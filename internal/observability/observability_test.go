package observability

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/upb/qruntime/internal/backend"
	"github.com/upb/qruntime/internal/resolver"
	"github.com/upb/qruntime/internal/shared"
	"github.com/upb/qruntime/internal/simulator"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		format    string
		expectErr bool
		enabled   zapcore.Level
	}{
		{name: "console info", level: "info", format: "console", enabled: zapcore.InfoLevel},
		{name: "json debug", level: "debug", format: "json", enabled: zapcore.DebugLevel},
		{name: "empty format defaults to console", level: "warn", format: "", enabled: zapcore.WarnLevel},
		{name: "bad level", level: "loud", format: "json", expectErr: true},
		{name: "bad format", level: "info", format: "xml", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.level, tt.format)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tt.enabled))
			assert.False(t, logger.Core().Enabled(tt.enabled-1))
		})
	}
}

func TestContextLogger_AddsIDs(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewContextLogger(zap.New(core))

	ctx := shared.WithSessionID(shared.WithRunID(context.Background(), "run-1"), "sess-1")
	logger.Info(ctx, "with ids", zap.String("k", "v"))
	logger.Warn(context.Background(), "without ids")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, map[string]interface{}{"k": "v", "run_id": "run-1", "session_id": "sess-1"}, entries[0].ContextMap())
	assert.Empty(t, entries[1].ContextMap())
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}

func TestCollector(t *testing.T) {
	c := NewMetricsCollector()
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))

	ctx := context.Background()
	c.ObserveAttempt(ctx, resolver.AttemptRecord{Purpose: resolver.PurposeSession, Duration: 200 * time.Millisecond})
	c.ObserveAttempt(ctx, resolver.AttemptRecord{Purpose: resolver.PurposeSession, Succeeded: true, Duration: time.Second})
	c.ObserveResolution(ctx, resolver.ResolutionRecord{Purpose: resolver.PurposeSession, Outcome: resolver.OutcomeSuccess, Attempts: 2})
	c.ObserveSelection(ctx, &backend.Selection{Mode: backend.ModeLocal, Backend: simulator.New()})

	assert.Equal(t, 1.0, testutil.ToFloat64(c.attempts.WithLabelValues("session", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.attempts.WithLabelValues("session", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.resolutions.WithLabelValues("session", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.selections.WithLabelValues("local", "false")))

	expected := `
# HELP qruntime_backend_selections_total The number of backends selected, by mode.
# TYPE qruntime_backend_selections_total counter
qruntime_backend_selections_total{mode="local",seeded="false"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "qruntime_backend_selections_total"))
	assert.Equal(t, 1, testutil.CollectAndCount(c, "qruntime_attempt_duration_seconds"))
}
