package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/upb/qruntime/internal/resolver"
)

// Kind distinguishes attempt rows from resolution summary rows.
type Kind string

const (
	KindAttempt    Kind = "attempt"
	KindResolution Kind = "resolution"
)

// Event is one audited step of a resolution. It never carries raw secrets:
// labels name sources, not values, and error text is already scrubbed.
type Event struct {
	ID         uuid.UUID
	RunID      string
	Kind       Kind
	Purpose    string
	Rank       int
	Label      string
	Outcome    string
	Error      string
	DurationMs int64
	Attempts   int
	Timestamp  time.Time
}

// NewAttemptEvent builds the event for one connect attempt.
func NewAttemptEvent(rec resolver.AttemptRecord) *Event {
	ts := rec.StartedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return &Event{
		ID:         uuid.New(),
		RunID:      rec.RunID,
		Kind:       KindAttempt,
		Purpose:    string(rec.Purpose),
		Rank:       rec.Rank,
		Label:      rec.Label,
		Outcome:    rec.Outcome(),
		Error:      rec.Message,
		DurationMs: rec.Duration.Milliseconds(),
		Attempts:   1,
		Timestamp:  ts.UTC(),
	}
}

// NewResolutionEvent builds the summary event of a finished resolution.
func NewResolutionEvent(rec resolver.ResolutionRecord) *Event {
	return &Event{
		ID:        uuid.New(),
		RunID:     rec.RunID,
		Kind:      KindResolution,
		Purpose:   string(rec.Purpose),
		Label:     rec.Label,
		Outcome:   rec.Outcome,
		Attempts:  rec.Attempts,
		Timestamp: time.Now().UTC(),
	}
}
