package simulator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProfile() *NoiseProfile {
	return &NoiseProfile{
		BackendName: "ibm_kyiv",
		NumQubits:   3,
		BasisGates:  []string{"ecr", "rz", "sx", "x"},
		CouplingMap: [][2]int{{0, 1}, {1, 2}},
		Qubits: []QubitProperties{
			{T1: 120, T2: 90, ReadoutError: 0.01},
			{T1: 110, T2: 80, ReadoutError: 0.02},
			{T1: 100, T2: 70, ReadoutError: 0.03},
		},
		GateErrors: []GateError{
			{Gate: "sx", Qubits: []int{0}, Error: 0.0002},
			{Gate: "ecr", Qubits: []int{0, 1}, Error: 0.007},
			{Gate: "ecr", Qubits: []int{1, 2}, Error: 0.008},
		},
	}
}

func TestNew_Unseeded(t *testing.T) {
	b := New()

	assert.Equal(t, "local_simulator", b.Name())
	assert.True(t, b.Local())
	assert.False(t, b.Seeded())
	assert.Nil(t, b.Profile())
	assert.Nil(t, b.BasisGates())
	assert.Equal(t, DefaultQubits, b.NumQubits())
}

func TestNewSeeded(t *testing.T) {
	b, err := NewSeeded(validProfile())

	require.NoError(t, err)
	assert.Equal(t, "local_simulator(ibm_kyiv)", b.Name())
	assert.True(t, b.Seeded())
	assert.Equal(t, 3, b.NumQubits())
	assert.Equal(t, []string{"ecr", "rz", "sx", "x"}, b.BasisGates())
}

func TestNoiseProfile_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *NoiseProfile)
	}{
		{name: "missing backend name", mutate: func(p *NoiseProfile) { p.BackendName = "" }},
		{name: "zero qubits", mutate: func(p *NoiseProfile) { p.NumQubits = 0 }},
		{name: "qubit count mismatch", mutate: func(p *NoiseProfile) { p.Qubits = p.Qubits[:2] }},
		{name: "readout error above one", mutate: func(p *NoiseProfile) { p.Qubits[1].ReadoutError = 1.5 }},
		{name: "negative T1", mutate: func(p *NoiseProfile) { p.Qubits[0].T1 = -1 }},
		{name: "coupling to unknown qubit", mutate: func(p *NoiseProfile) { p.CouplingMap = append(p.CouplingMap, [2]int{2, 3}) }},
		{name: "gate on unknown qubit", mutate: func(p *NoiseProfile) { p.GateErrors[0].Qubits = []int{7} }},
		{name: "negative gate error", mutate: func(p *NoiseProfile) { p.GateErrors[0].Error = -0.1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validProfile()
			tt.mutate(p)

			_, err := NewSeeded(p)
			assert.ErrorIs(t, err, ErrInvalidProfile)
		})
	}

	t.Run("nil profile", func(t *testing.T) {
		var p *NoiseProfile
		assert.ErrorIs(t, p.Validate(), ErrInvalidProfile)
	})
}

func TestNoiseProfile_Queries(t *testing.T) {
	p := validProfile()

	assert.InDelta(t, 0.02, p.MeanReadoutError(), 1e-9)

	e, ok := p.GateErrorFor("ecr", 1, 2)
	assert.True(t, ok)
	assert.InDelta(t, 0.008, e, 1e-12)

	_, ok = p.GateErrorFor("ecr", 2, 1)
	assert.False(t, ok)

	assert.Equal(t, []string{"ecr", "sx"}, p.NoisyGates())
}
