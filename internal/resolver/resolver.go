package resolver

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/upb/qruntime/internal/params"
	"github.com/upb/qruntime/internal/shared"
)

// Purpose names what a resolution is for; it appears in logs, metrics and
// error messages.
type Purpose string

const (
	PurposeSession Purpose = "session"
	PurposeBackend Purpose = "backend"
	PurposeProfile Purpose = "noise_profile"
)

// Request describes one resolution.
type Request struct {
	Purpose Purpose
	// Required lists the parameters every candidate must carry. The first
	// name varies slowest in the candidate order.
	Required []params.Name
	// Sets are the per-source parameter sets, highest priority first.
	Sets []*params.Set
	// AllowFallback permits candidates drawn from lower-priority sets.
	AllowFallback bool
	// Quiet logs failed attempts and the final failure at debug level, for
	// callers that recover from a failed resolution and report it themselves.
	Quiet bool
}

func (r Request) levels() (failure, notice zapcore.Level) {
	if r.Quiet {
		return zapcore.DebugLevel, zapcore.DebugLevel
	}
	return zapcore.ErrorLevel, zapcore.WarnLevel
}

// ConnectFunc attempts one candidate. It returns the handle on success or the
// reason the candidate failed.
type ConnectFunc[H any] func(ctx context.Context, c Candidate) (H, error)

// Outcome is a successful resolution.
type Outcome[H any] struct {
	Handle H
	Label  string
	Rank   int
	// Attempts counts every connect call made, the successful one included.
	Attempts int
	RunID    string
}

// Resolver drives ordered connection attempts. It holds no per-run state and
// is safe for concurrent use.
type Resolver struct {
	logger    *zap.Logger
	observers []Observer
	now       func() time.Time
}

// Option configures a Resolver
type Option func(*Resolver)

// WithObserver registers an attempt observer.
func WithObserver(o Observer) Option {
	return func(r *Resolver) {
		if o != nil {
			r.observers = append(r.observers, o)
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// New creates a Resolver. A nil logger discards output.
func New(logger *zap.Logger, opts ...Option) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Resolver{logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve tries the candidates of req in rank order and returns the first
// success. It fails with *MissingParameterError when fallback is disabled
// and the primary set lacks a required value, and with *ExhaustedError when
// every candidate failed or none existed.
func Resolve[H any](ctx context.Context, r *Resolver, req Request, connect ConnectFunc[H]) (*Outcome[H], error) {
	if len(req.Required) == 0 {
		return nil, errors.New("resolver: request has no required parameters")
	}
	if connect == nil {
		return nil, errors.New("resolver: nil connect function")
	}

	runID := uuid.NewString()
	ctx = shared.WithRunID(ctx, runID)
	logger := r.logger.With(
		zap.String("run_id", runID),
		zap.String("purpose", string(req.Purpose)),
	)
	failureLevel, noticeLevel := req.levels()

	// Without fallback the primary source alone must be complete
	if !req.AllowFallback {
		primary := primarySet(req.Sets)
		if missing := primary.Missing(req.Required...); len(missing) > 0 {
			err := &MissingParameterError{
				Purpose: req.Purpose,
				Missing: missing,
				Sources: []string{sourceName(primary)},
			}
			logger.Log(failureLevel, "required parameters missing", zap.Error(err))
			r.notifyResolution(ctx, ResolutionRecord{RunID: runID, Purpose: req.Purpose, Outcome: OutcomeMissingParameter})
			return nil, err
		}
	}

	candidates := Candidates(req)
	failures := make([]AttemptFailure, 0, len(candidates))

	for i, c := range candidates {
		logger.Info("attempting candidate", zap.String("label", c.Label))

		started := r.now()
		handle, err := connect(ctx, c)
		elapsed := r.now().Sub(started)

		if err == nil {
			logger.Info("candidate succeeded", zap.String("label", c.Label), zap.Duration("duration", elapsed))
			r.notifyAttempt(ctx, AttemptRecord{
				RunID: runID, Purpose: req.Purpose, Rank: c.Rank, Label: c.Label,
				Succeeded: true, Duration: elapsed, StartedAt: started,
			})
			r.notifyResolution(ctx, ResolutionRecord{RunID: runID, Purpose: req.Purpose, Outcome: OutcomeSuccess, Attempts: i + 1, Label: c.Label})
			return &Outcome[H]{Handle: handle, Label: c.Label, Rank: c.Rank, Attempts: i + 1, RunID: runID}, nil
		}

		failure := AttemptFailure{
			Rank:    c.Rank,
			Label:   c.Label,
			Err:     err,
			Message: params.Scrub(err.Error(), c.Secrets()...),
		}
		failures = append(failures, failure)
		logger.Log(failureLevel, "candidate failed", zap.String("label", c.Label), zap.String("error", failure.Message))
		r.notifyAttempt(ctx, AttemptRecord{
			RunID: runID, Purpose: req.Purpose, Rank: c.Rank, Label: c.Label,
			Err: err, Message: failure.Message, Duration: elapsed, StartedAt: started,
		})

		if i == 0 && len(candidates) > 1 {
			logger.Log(noticeLevel, "attempting alternate candidates", zap.Int("remaining", len(candidates)-1))
		}
	}

	exhausted := &ExhaustedError{
		Purpose:      req.Purpose,
		Failures:     failures,
		NoCandidates: len(candidates) == 0,
		Required:     req.Required,
		Fallback:     req.AllowFallback,
	}
	logger.Log(failureLevel, "all candidates failed", zap.Int("attempts", len(failures)), zap.Bool("no_candidates", exhausted.NoCandidates))
	for _, s := range req.Sets {
		logger.Debug("parameters considered", s.Field())
	}
	r.notifyResolution(ctx, ResolutionRecord{RunID: runID, Purpose: req.Purpose, Outcome: OutcomeExhausted, Attempts: len(failures)})
	return nil, exhausted
}

func primarySet(sets []*params.Set) *params.Set {
	if len(sets) == 0 {
		return nil
	}
	return sets[0]
}

func sourceName(s *params.Set) string {
	if s == nil {
		return "none"
	}
	return s.Source()
}

func (r *Resolver) notifyAttempt(ctx context.Context, rec AttemptRecord) {
	for _, o := range r.observers {
		o.ObserveAttempt(ctx, rec)
	}
}

func (r *Resolver) notifyResolution(ctx context.Context, rec ResolutionRecord) {
	for _, o := range r.observers {
		o.ObserveResolution(ctx, rec)
	}
}
