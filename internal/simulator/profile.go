package simulator

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap/zapcore"
)

// QubitProperties holds the calibration data of one physical qubit.
// Times are in microseconds.
type QubitProperties struct {
	T1           float64 `json:"t1_us"`
	T2           float64 `json:"t2_us"`
	ReadoutError float64 `json:"readout_error"`
}

// GateError is the reported error rate of a gate on specific qubits.
type GateError struct {
	Gate   string  `json:"gate"`
	Qubits []int   `json:"qubits"`
	Error  float64 `json:"error"`
}

// NoiseProfile is the calibration snapshot of a real backend that seeds a
// local simulator.
type NoiseProfile struct {
	BackendName string            `json:"backend_name"`
	NumQubits   int               `json:"num_qubits"`
	BasisGates  []string          `json:"basis_gates"`
	CouplingMap [][2]int          `json:"coupling_map"`
	Qubits      []QubitProperties `json:"qubits"`
	GateErrors  []GateError       `json:"gate_errors"`
}

// ErrInvalidProfile is wrapped by every Validate failure.
var ErrInvalidProfile = errors.New("invalid noise profile")

// Validate checks that the profile is internally consistent.
func (p *NoiseProfile) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: nil profile", ErrInvalidProfile)
	}
	if p.BackendName == "" {
		return fmt.Errorf("%w: backend name is required", ErrInvalidProfile)
	}
	if p.NumQubits <= 0 {
		return fmt.Errorf("%w: %s reports %d qubits", ErrInvalidProfile, p.BackendName, p.NumQubits)
	}
	if len(p.Qubits) != p.NumQubits {
		return fmt.Errorf("%w: %s has %d qubit records for %d qubits",
			ErrInvalidProfile, p.BackendName, len(p.Qubits), p.NumQubits)
	}
	for i, q := range p.Qubits {
		if !isProbability(q.ReadoutError) {
			return fmt.Errorf("%w: qubit %d readout error %v out of range", ErrInvalidProfile, i, q.ReadoutError)
		}
		if q.T1 < 0 || q.T2 < 0 {
			return fmt.Errorf("%w: qubit %d has negative coherence time", ErrInvalidProfile, i)
		}
	}
	for _, edge := range p.CouplingMap {
		if !p.validQubit(edge[0]) || !p.validQubit(edge[1]) {
			return fmt.Errorf("%w: coupling %v references unknown qubit", ErrInvalidProfile, edge)
		}
	}
	for _, g := range p.GateErrors {
		if !isProbability(g.Error) {
			return fmt.Errorf("%w: gate %s error %v out of range", ErrInvalidProfile, g.Gate, g.Error)
		}
		for _, q := range g.Qubits {
			if !p.validQubit(q) {
				return fmt.Errorf("%w: gate %s references qubit %d", ErrInvalidProfile, g.Gate, q)
			}
		}
	}
	return nil
}

func (p *NoiseProfile) validQubit(q int) bool {
	return q >= 0 && q < p.NumQubits
}

func isProbability(v float64) bool {
	return v >= 0 && v <= 1
}

// MeanReadoutError averages the readout error over all qubits.
func (p *NoiseProfile) MeanReadoutError() float64 {
	if p == nil || len(p.Qubits) == 0 {
		return 0
	}
	var sum float64
	for _, q := range p.Qubits {
		sum += q.ReadoutError
	}
	return sum / float64(len(p.Qubits))
}

// GateErrorFor returns the error rate of gate on qubits, if reported.
func (p *NoiseProfile) GateErrorFor(gate string, qubits ...int) (float64, bool) {
	if p == nil {
		return 0, false
	}
	for _, g := range p.GateErrors {
		if g.Gate == gate && sameQubits(g.Qubits, qubits) {
			return g.Error, true
		}
	}
	return 0, false
}

func sameQubits(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// NoisyGates returns the distinct gate names that carry an error rate, sorted.
func (p *NoiseProfile) NoisyGates() []string {
	if p == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(p.GateErrors))
	for _, g := range p.GateErrors {
		seen[g.Gate] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for g := range seen {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (p *NoiseProfile) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("backend", p.BackendName)
	enc.AddInt("num_qubits", p.NumQubits)
	enc.AddString("basis_gates", strings.Join(p.BasisGates, ","))
	enc.AddInt("couplings", len(p.CouplingMap))
	enc.AddFloat64("mean_readout_error", p.MeanReadoutError())
	return nil
}
