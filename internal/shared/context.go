package shared

import "context"

// Context keys for resolution-scoped data. Keep types unexported to avoid collisions.
type ctxKey string

const (
	ctxKeyRunID     ctxKey = "run-id"
	ctxKeySessionID ctxKey = "session-id"
)

// WithRunID attaches the ID of a single resolution run.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRunID, id)
}

func RunID(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyRunID).(string)
	return v
}

// WithSessionID attaches the ID of a session open request, which spans
// several resolution runs.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeySessionID, id)
}

func SessionID(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeySessionID).(string)
	return v
}
