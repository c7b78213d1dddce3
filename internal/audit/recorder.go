package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/upb/qruntime/internal/resolver"
)

// Repository persists audit events.
type Repository interface {
	Insert(ctx context.Context, event *Event) error
}

// ErrBufferFull is returned when an event is dropped because the queue is
// full.
var ErrBufferFull = errors.New("audit event buffer full")

// Config holds configuration for the Recorder
type Config struct {
	BufferSize   int // Size of the event buffer channel
	WorkerCount  int // Number of concurrent workers
	WriteTimeout time.Duration
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:   1024,
		WorkerCount:  2,
		WriteTimeout: 5 * time.Second,
	}
}

// Recorder writes resolution events to a Repository in the background. It
// implements resolver.Observer; enqueueing never blocks the resolution and
// write failures are logged, not returned.
type Recorder struct {
	repo    Repository
	logger  *zap.Logger
	config  Config
	events  chan *Event
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
	stopped bool
}

var _ resolver.Observer = (*Recorder)(nil)

// NewRecorder creates a Recorder. Call Start before recording.
func NewRecorder(repo Repository, logger *zap.Logger, config Config) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultConfig().BufferSize
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = DefaultConfig().WorkerCount
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultConfig().WriteTimeout
	}
	return &Recorder{
		repo:   repo,
		logger: logger,
		config: config,
		events: make(chan *Event, config.BufferSize),
	}
}

// Start starts the background workers
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return fmt.Errorf("audit recorder already started")
	}

	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	r.started = true
	r.logger.Info("started audit recorder",
		zap.Int("worker_count", r.config.WorkerCount),
		zap.Int("buffer_size", r.config.BufferSize))
	return nil
}

// Stop drains pending events and waits for the workers, up to timeout.
func (r *Recorder) Stop(timeout time.Duration) error {
	r.mu.Lock()
	if !r.started || r.stopped {
		r.mu.Unlock()
		return fmt.Errorf("audit recorder not running")
	}
	r.stopped = true
	close(r.events)
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("audit recorder stopped")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("audit recorder stop timeout after %v", timeout)
	}
}

// Record queues event without blocking.
func (r *Recorder) Record(event *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started || r.stopped {
		return fmt.Errorf("audit recorder not running")
	}

	select {
	case r.events <- event:
		return nil
	default:
		r.logger.Warn("audit event buffer full, dropping event",
			zap.String("run_id", event.RunID),
			zap.String("kind", string(event.Kind)))
		return ErrBufferFull
	}
}

// ObserveAttempt is part of the resolver.Observer interface.
func (r *Recorder) ObserveAttempt(_ context.Context, rec resolver.AttemptRecord) {
	if err := r.Record(NewAttemptEvent(rec)); err != nil {
		r.logger.Debug("attempt not audited", zap.Error(err))
	}
}

// ObserveResolution is part of the resolver.Observer interface.
func (r *Recorder) ObserveResolution(_ context.Context, rec resolver.ResolutionRecord) {
	if err := r.Record(NewResolutionEvent(rec)); err != nil {
		r.logger.Debug("resolution not audited", zap.Error(err))
	}
}

// Pending returns the number of queued events.
func (r *Recorder) Pending() int {
	return len(r.events)
}

func (r *Recorder) worker(id int) {
	defer r.wg.Done()

	for event := range r.events {
		ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
		err := r.repo.Insert(ctx, event)
		cancel()
		if err != nil {
			r.logger.Error("failed to write audit event",
				zap.Int("worker_id", id),
				zap.String("run_id", event.RunID),
				zap.String("kind", string(event.Kind)),
				zap.Error(err))
		}
	}
}
