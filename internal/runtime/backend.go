package runtime

// RemoteBackend is a backend reached through a live session.
type RemoteBackend struct {
	name        string
	numQubits   int
	basisGates  []string
	couplingMap [][2]int
	session     *Session
}

// Name returns the backend name.
func (b *RemoteBackend) Name() string { return b.name }

// Local always reports false.
func (b *RemoteBackend) Local() bool { return false }

// NumQubits returns the device width.
func (b *RemoteBackend) NumQubits() int { return b.numQubits }

// BasisGates returns the native gate set.
func (b *RemoteBackend) BasisGates() []string { return b.basisGates }

// CouplingMap returns the directed qubit connectivity.
func (b *RemoteBackend) CouplingMap() [][2]int { return b.couplingMap }

// Session returns the session the backend was resolved through.
func (b *RemoteBackend) Session() *Session { return b.session }

// NewRemoteBackend describes a backend reached through s.
func NewRemoteBackend(name string, numQubits int, basisGates []string, couplingMap [][2]int, s *Session) *RemoteBackend {
	return &RemoteBackend{
		name:        name,
		numQubits:   numQubits,
		basisGates:  basisGates,
		couplingMap: couplingMap,
		session:     s,
	}
}
