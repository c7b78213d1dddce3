package simulator

import "fmt"

// DefaultQubits is the width of an unseeded simulator.
const DefaultQubits = 32

// Name is the base name of every local backend.
const Name = "local_simulator"

// LocalBackend is an in-process stand-in for a remote backend. It is ideal
// unless seeded with a NoiseProfile.
type LocalBackend struct {
	profile *NoiseProfile
}

// New returns an ideal simulator.
func New() *LocalBackend {
	return &LocalBackend{}
}

// NewSeeded returns a simulator that mimics the backend described by
// profile. The profile is validated first.
func NewSeeded(profile *NoiseProfile) (*LocalBackend, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return &LocalBackend{profile: profile}, nil
}

// Name returns "local_simulator", or "local_simulator(<backend>)" when
// seeded.
func (b *LocalBackend) Name() string {
	if b.profile == nil {
		return Name
	}
	return fmt.Sprintf("%s(%s)", Name, b.profile.BackendName)
}

// Local always reports true.
func (b *LocalBackend) Local() bool { return true }

// NumQubits returns the simulated width.
func (b *LocalBackend) NumQubits() int {
	if b.profile == nil {
		return DefaultQubits
	}
	return b.profile.NumQubits
}

// Seeded reports whether a noise profile was applied.
func (b *LocalBackend) Seeded() bool { return b.profile != nil }

// Profile returns the noise profile, or nil for an ideal simulator.
func (b *LocalBackend) Profile() *NoiseProfile { return b.profile }

// BasisGates returns the seeded backend's basis gates, or nil when ideal
// (every gate is native).
func (b *LocalBackend) BasisGates() []string {
	if b.profile == nil {
		return nil
	}
	return b.profile.BasisGates
}
