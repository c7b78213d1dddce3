package session

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upb/qruntime/internal/backend"
	"github.com/upb/qruntime/internal/params"
	"github.com/upb/qruntime/internal/shared"
)

// OpenRequest carries everything the caller supplied for one run.
type OpenRequest struct {
	Token    string
	Instance string
	Backend  string
	// KeyFile holds the token and outranks Token when both are given.
	KeyFile string
	// ConfigFile is a YAML file ranked below the explicit values.
	ConfigFile string

	PreferEnvironment bool
	Offline           bool
	AllowFallback     bool
}

func (r OpenRequest) hasExplicitValues() bool {
	for _, v := range []string{r.Token, r.Instance, r.Backend, r.KeyFile} {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}

// Result is the outcome of Open.
type Result struct {
	SessionID string
	Selection *backend.Selection
	// Reports is the redacted view of every source, highest priority first.
	Reports []params.Report
	// Backends lists the backends visible to a connected session.
	Backends []string
	OpenedAt time.Time
}

// Service opens a compute session: it gathers parameters from every source
// and hands them to the backend selector.
type Service struct {
	selector    *backend.Selector
	lister      backend.Lister
	environment params.SourceReader
	logger      *zap.Logger
	now         func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithEnvironment replaces the environment source.
func WithEnvironment(src params.SourceReader) Option {
	return func(s *Service) { s.environment = src }
}

// WithDotenv adds a dotenv file below the process environment.
func WithDotenv(path string) Option {
	return func(s *Service) {
		s.environment = params.Layered{
			Label:  params.SourceEnvironment,
			Layers: []params.SourceReader{params.NewEnvSource(), params.DotenvSource{Path: path}},
		}
	}
}

// WithClock overrides the clock used for Result.OpenedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a session service. lister may be nil.
func NewService(selector *backend.Selector, lister backend.Lister, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		selector: selector,
		lister:   lister,
		environment: params.Layered{
			Label:  params.SourceEnvironment,
			Layers: []params.SourceReader{params.NewEnvSource()},
		},
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open resolves a backend for req. Errors from the selector are returned
// unchanged so callers can classify them with the resolver helpers.
func (s *Service) Open(ctx context.Context, req OpenRequest) (*Result, error) {
	sessionID := uuid.NewString()
	ctx = shared.WithSessionID(ctx, sessionID)
	logger := s.logger.With(zap.String("session_id", sessionID))

	sets, err := params.Aggregate(ctx, logger, s.sources(req, logger)...)
	if err != nil {
		logger.Error("failed to gather parameters", zap.Error(err))
		return nil, err
	}

	mode := backend.ModeConnected
	if req.Offline {
		mode = backend.ModeLocal
	}

	sel, err := s.selector.Select(ctx, backend.Request{
		Mode:          mode,
		Sets:          sets,
		AllowFallback: req.AllowFallback,
	})
	if err != nil {
		return nil, err
	}

	result := &Result{
		SessionID: sessionID,
		Selection: sel,
		Reports:   params.Reports(sets),
		OpenedAt:  s.now(),
	}

	if sel.Mode == backend.ModeConnected && sel.Session != nil && s.lister != nil {
		names, err := s.lister.ListBackends(ctx, sel.Session)
		if err != nil {
			logger.Warn("failed to list available backends", zap.Error(err))
		} else {
			logger.Info("available backends", zap.Strings("backends", names))
			result.Backends = names
		}
	}

	return result, nil
}

// sources orders the invocation and environment sources for req.
func (s *Service) sources(req OpenRequest, logger *zap.Logger) []params.SourceReader {
	invocation := params.Layered{
		Label: params.SourceInvocation,
		Layers: []params.SourceReader{
			params.KeyFileSource{Path: req.KeyFile},
			params.MapSource{Label: "flags", Values: map[params.Name]string{
				params.Token:    req.Token,
				params.Instance: req.Instance,
				params.Backend:  req.Backend,
			}},
			params.FileSource{Path: req.ConfigFile},
		},
	}

	if req.PreferEnvironment {
		if req.hasExplicitValues() {
			logger.Warn("environment values take precedence over the supplied arguments")
		}
		return []params.SourceReader{s.environment, invocation}
	}
	return []params.SourceReader{invocation, s.environment}
}
