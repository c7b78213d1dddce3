package backend

import (
	"context"

	"github.com/upb/qruntime/internal/runtime"
	"github.com/upb/qruntime/internal/simulator"
)

// Backend is a compute target, remote or local.
type Backend interface {
	Name() string
	Local() bool
	NumQubits() int
}

var (
	_ Backend = (*runtime.RemoteBackend)(nil)
	_ Backend = (*simulator.LocalBackend)(nil)
)

// Connector opens a session with a token and instance.
type Connector interface {
	Connect(ctx context.Context, token, instance string) (*runtime.Session, error)
}

// BackendResolver resolves a backend name through an open session.
type BackendResolver interface {
	ResolveBackend(ctx context.Context, s *runtime.Session, name string) (*runtime.RemoteBackend, error)
}

// ProfileFetcher retrieves the calibration data of a named backend.
type ProfileFetcher interface {
	FetchBackendProfile(ctx context.Context, s *runtime.Session, name string) (*simulator.NoiseProfile, error)
}

// Lister lists the backends visible to a session.
type Lister interface {
	ListBackends(ctx context.Context, s *runtime.Session) ([]string, error)
}

// Runtime bundles the capabilities the Selector calls.
type Runtime interface {
	Connector
	BackendResolver
	ProfileFetcher
}

var _ Runtime = (*runtime.Client)(nil)
var _ Lister = (*runtime.Client)(nil)

// Mode selects between a live backend and a local stand-in.
type Mode string

const (
	// ModeConnected requires a live backend and fails loudly.
	ModeConnected Mode = "connected"
	// ModeLocal substitutes a local simulator and only warns on failure.
	ModeLocal Mode = "local"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeConnected || m == ModeLocal
}
