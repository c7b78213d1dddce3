package observability

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/upb/qruntime/internal/shared"
)

// Logger provides structured logging with context awareness.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Field)
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
}

// Field represents a structured log field.
type Field = zap.Field

// Log formats accepted by NewLogger.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// NewLogger builds a zap logger at level. "json" selects the production
// encoder, "console" the development one.
func NewLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	switch format {
	case FormatJSON:
		cfg = zap.NewProductionConfig()
	case FormatConsole, "":
		cfg = zap.NewDevelopmentConfig()
		cfg.DisableStacktrace = true
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	return cfg.Build()
}

// ContextLogger implements Logger over a zap logger, adding the run and
// session IDs carried by the context.
type ContextLogger struct {
	base *zap.Logger
}

var _ Logger = (*ContextLogger)(nil)

// NewContextLogger wraps base. A nil base discards output.
func NewContextLogger(base *zap.Logger) *ContextLogger {
	if base == nil {
		base = zap.NewNop()
	}
	return &ContextLogger{base: base}
}

// Zap returns the wrapped logger.
func (l *ContextLogger) Zap() *zap.Logger {
	return l.base
}

func (l *ContextLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.base.Debug(msg, withContext(ctx, fields)...)
}

func (l *ContextLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.base.Info(msg, withContext(ctx, fields)...)
}

func (l *ContextLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.base.Warn(msg, withContext(ctx, fields)...)
}

func (l *ContextLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.base.Error(msg, withContext(ctx, fields)...)
}

func withContext(ctx context.Context, fields []Field) []Field {
	if ctx == nil {
		return fields
	}
	if id := shared.RunID(ctx); id != "" {
		fields = append(fields, zap.String("run_id", id))
	}
	if id := shared.SessionID(ctx); id != "" {
		fields = append(fields, zap.String("session_id", id))
	}
	return fields
}
