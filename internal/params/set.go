package params

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Source labels used by the shipped readers.
const (
	SourceInvocation  = "invocation"
	SourceEnvironment = "environment"
)

// Set is the immutable collection of values read from one source. Rank 0 is
// the highest priority.
type Set struct {
	source string
	rank   int
	values map[Name]Value
}

// NewSet builds a Set from raw values. Every recognised name gets an entry,
// absent when missing from raw. Unrecognised names are dropped.
func NewSet(source string, rank int, raw map[Name]string) *Set {
	s := &Set{
		source: source,
		rank:   rank,
		values: make(map[Name]Value, len(Names())),
	}
	for _, n := range Names() {
		s.values[n] = NewValue(n, raw[n])
	}
	return s
}

// Source returns the source label.
func (s *Set) Source() string { return s.source }

// Rank returns the priority rank (0 is highest).
func (s *Set) Rank() int { return s.rank }

// Get returns the value for name. A nil set yields an absent value.
func (s *Set) Get(name Name) Value {
	if s == nil {
		return Absent(name)
	}
	if v, ok := s.values[name]; ok {
		return v
	}
	return Absent(name)
}

// Has reports whether name is present.
func (s *Set) Has(name Name) bool {
	return s.Get(name).Present()
}

// HasAll reports whether every name is present.
func (s *Set) HasAll(names ...Name) bool {
	for _, n := range names {
		if !s.Has(n) {
			return false
		}
	}
	return true
}

// Missing returns the names absent from the set, in argument order.
func (s *Set) Missing(names ...Name) []Name {
	var missing []Name
	for _, n := range names {
		if !s.Has(n) {
			missing = append(missing, n)
		}
	}
	return missing
}

// Empty reports whether no recognised value is present.
func (s *Set) Empty() bool {
	for _, n := range Names() {
		if s.Has(n) {
			return false
		}
	}
	return true
}

// Secrets returns the present secret values, used to scrub error text.
func (s *Set) Secrets() []Value {
	var out []Value
	for _, n := range Names() {
		if v := s.Get(n); v.Present() && v.Secret() {
			out = append(out, v)
		}
	}
	return out
}

// Report is the log-safe view of a Set.
type Report struct {
	Source string          `json:"source"`
	Rank   int             `json:"rank"`
	Values map[Name]string `json:"values"`
}

// Report returns the redacted rendering of every recognised value.
func (s *Set) Report() Report {
	r := Report{Source: s.source, Rank: s.rank, Values: make(map[Name]string, len(Names()))}
	for _, n := range Names() {
		r.Values[n] = s.Get(n).Redacted()
	}
	return r
}

// MarshalLogObject implements zapcore.ObjectMarshaler with redacted values.
func (s *Set) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("source", s.source)
	for _, n := range Names() {
		enc.AddString(string(n), s.Get(n).Redacted())
	}
	return nil
}

// Field returns the set as a zap object field.
func (s *Set) Field() zapcore.Field {
	return zap.Object("params", s)
}

// AllSecrets gathers the present secrets of every set.
func AllSecrets(sets []*Set) []Value {
	var out []Value
	for _, s := range sets {
		out = append(out, s.Secrets()...)
	}
	return out
}
