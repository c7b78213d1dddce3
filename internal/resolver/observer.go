package resolver

import (
	"context"
	"time"
)

// Resolution outcomes reported to observers.
const (
	OutcomeSuccess          = "success"
	OutcomeFailure          = "failure"
	OutcomeExhausted        = "exhausted"
	OutcomeMissingParameter = "missing_parameter"
)

// AttemptRecord describes one connect call.
type AttemptRecord struct {
	RunID     string
	Purpose   Purpose
	Rank      int
	Label     string
	Succeeded bool
	Err       error
	// Message is Err's text with secrets redacted. Empty on success.
	Message   string
	Duration  time.Duration
	StartedAt time.Time
}

// Outcome returns OutcomeSuccess or OutcomeFailure.
func (a AttemptRecord) Outcome() string {
	if a.Succeeded {
		return OutcomeSuccess
	}
	return OutcomeFailure
}

// ResolutionRecord summarises a finished Resolve call.
type ResolutionRecord struct {
	RunID    string
	Purpose  Purpose
	Outcome  string
	Attempts int
	Label    string
}

// Observer receives attempt and resolution records. Implementations must
// not block for long; they run inline with the resolution.
type Observer interface {
	ObserveAttempt(ctx context.Context, rec AttemptRecord)
	ObserveResolution(ctx context.Context, rec ResolutionRecord)
}
