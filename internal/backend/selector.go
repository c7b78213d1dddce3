package backend

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/upb/qruntime/internal/params"
	"github.com/upb/qruntime/internal/resolver"
	"github.com/upb/qruntime/internal/runtime"
	"github.com/upb/qruntime/internal/simulator"
)

// PurposeSelection tags errors raised before either resolution step runs.
const PurposeSelection resolver.Purpose = "backend_selection"

// Request describes one backend selection.
type Request struct {
	Mode Mode
	// Sets are the per-source parameter sets, highest priority first.
	Sets          []*params.Set
	AllowFallback bool
}

// Selection is the result of Select.
type Selection struct {
	Backend Backend
	// Session is nil in local mode unless a noise profile was fetched.
	Session         *runtime.Session
	Mode            Mode
	ConnectionLabel string
	BackendLabel    string
	Seeded          bool
}

// SelectionObserver is notified of every successful selection.
type SelectionObserver interface {
	ObserveSelection(ctx context.Context, sel *Selection)
}

// Selector picks the compute backend for a run.
type Selector struct {
	runtime   Runtime
	resolver  *resolver.Resolver
	logger    *zap.Logger
	observers []SelectionObserver
}

// Option configures a Selector
type Option func(*Selector)

// WithSelectionObserver registers a selection observer.
func WithSelectionObserver(o SelectionObserver) Option {
	return func(s *Selector) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// NewSelector creates a Selector. A nil resolver gets a default one sharing
// the logger.
func NewSelector(rt Runtime, res *resolver.Resolver, logger *zap.Logger, opts ...Option) *Selector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if res == nil {
		res = resolver.New(logger)
	}
	s := &Selector{runtime: rt, resolver: res, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select resolves a backend according to req.Mode.
//
// In connected mode every parameter must be available from a permitted
// source or *resolver.MissingParameterError is returned before any remote
// call; remote failures surface as *resolver.ExhaustedError. Local mode never
// fails on missing or rejected parameters: it falls back to an ideal
// simulator and logs the reason.
func (s *Selector) Select(ctx context.Context, req Request) (*Selection, error) {
	var (
		sel *Selection
		err error
	)
	switch req.Mode {
	case ModeConnected:
		sel, err = s.selectConnected(ctx, req)
	case ModeLocal:
		sel = s.selectLocal(ctx, req)
	default:
		return nil, fmt.Errorf("unknown backend mode %q", req.Mode)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("backend selected",
		zap.String("mode", string(sel.Mode)),
		zap.String("backend", sel.Backend.Name()),
		zap.Int("num_qubits", sel.Backend.NumQubits()),
		zap.Bool("seeded", sel.Seeded),
	)
	for _, o := range s.observers {
		o.ObserveSelection(ctx, sel)
	}
	return sel, nil
}

func (s *Selector) selectConnected(ctx context.Context, req Request) (*Selection, error) {
	if s.runtime == nil {
		return nil, fmt.Errorf("connected mode requires a runtime client")
	}

	sets := permitted(req)
	if missing := missingEverywhere(sets, params.Names()); len(missing) > 0 {
		err := &resolver.MissingParameterError{
			Purpose: PurposeSelection,
			Missing: missing,
			Sources: sourceNames(sets),
		}
		s.logger.Error("connected mode requires every parameter", zap.Error(err))
		return nil, err
	}

	session, err := resolver.Resolve(ctx, s.resolver, resolver.Request{
		Purpose:       resolver.PurposeSession,
		Required:      []params.Name{params.Instance, params.Token},
		Sets:          req.Sets,
		AllowFallback: req.AllowFallback,
	}, func(ctx context.Context, c resolver.Candidate) (*runtime.Session, error) {
		return s.runtime.Connect(ctx, c.Get(params.Token), c.Get(params.Instance))
	})
	if err != nil {
		return nil, err
	}

	remote, err := resolver.Resolve(ctx, s.resolver, resolver.Request{
		Purpose:       resolver.PurposeBackend,
		Required:      []params.Name{params.Backend},
		Sets:          req.Sets,
		AllowFallback: req.AllowFallback,
	}, func(ctx context.Context, c resolver.Candidate) (*runtime.RemoteBackend, error) {
		return s.runtime.ResolveBackend(ctx, session.Handle, c.Get(params.Backend))
	})
	if err != nil {
		return nil, err
	}

	return &Selection{
		Backend:         remote.Handle,
		Session:         session.Handle,
		Mode:            ModeConnected,
		ConnectionLabel: session.Label,
		BackendLabel:    remote.Label,
	}, nil
}

type seed struct {
	session *runtime.Session
	profile *simulator.NoiseProfile
}

func (s *Selector) selectLocal(ctx context.Context, req Request) *Selection {
	sets := permitted(req)
	missing := missingEverywhere(sets, params.Names())

	switch {
	case len(missing) == len(params.Names()):
		s.logger.Info("running offline, no connection to the runtime required")
		return localSelection(simulator.New(), nil, "")

	case len(missing) > 0:
		s.logger.Warn("partial credentials, noise profile will not be generated",
			zap.Strings("missing", namesToStrings(missing)))
		return localSelection(simulator.New(), nil, "")
	}

	if s.runtime == nil {
		s.logger.Warn("no runtime client, noise profile will not be generated")
		return localSelection(simulator.New(), nil, "")
	}

	out, err := resolver.Resolve(ctx, s.resolver, resolver.Request{
		Purpose:       resolver.PurposeProfile,
		Required:      []params.Name{params.Instance, params.Token, params.Backend},
		Sets:          req.Sets,
		AllowFallback: req.AllowFallback,
		Quiet:         true,
	}, func(ctx context.Context, c resolver.Candidate) (seed, error) {
		session, err := s.runtime.Connect(ctx, c.Get(params.Token), c.Get(params.Instance))
		if err != nil {
			return seed{}, err
		}
		profile, err := s.runtime.FetchBackendProfile(ctx, session, c.Get(params.Backend))
		if err != nil {
			return seed{}, err
		}
		return seed{session: session, profile: profile}, nil
	})
	if err != nil {
		s.logger.Warn("failed to load noise profile, using ideal simulator", zap.Error(err))
		return localSelection(simulator.New(), nil, "")
	}

	local, err := simulator.NewSeeded(out.Handle.profile)
	if err != nil {
		s.logger.Warn("failed to load noise profile, using ideal simulator", zap.Error(err))
		return localSelection(simulator.New(), nil, "")
	}

	s.logger.Info("loaded noise profile from real backend", zap.Object("profile", out.Handle.profile))
	return localSelection(local, out.Handle.session, out.Label)
}

func localSelection(b *simulator.LocalBackend, session *runtime.Session, label string) *Selection {
	return &Selection{
		Backend:         b,
		Session:         session,
		Mode:            ModeLocal,
		ConnectionLabel: label,
		Seeded:          b.Seeded(),
	}
}

// permitted returns the sets a request may draw from.
func permitted(req Request) []*params.Set {
	if !req.AllowFallback && len(req.Sets) > 1 {
		return req.Sets[:1]
	}
	return req.Sets
}

// missingEverywhere returns the names no set supplies.
func missingEverywhere(sets []*params.Set, names []params.Name) []params.Name {
	var missing []params.Name
	for _, n := range names {
		found := false
		for _, set := range sets {
			if set.Has(n) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, n)
		}
	}
	return missing
}

func sourceNames(sets []*params.Set) []string {
	out := make([]string, 0, len(sets))
	for _, set := range sets {
		if set != nil {
			out = append(out, set.Source())
		}
	}
	return out
}

func namesToStrings(names []params.Name) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = string(n)
	}
	return out
}
