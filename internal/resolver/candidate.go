package resolver

import (
	"fmt"
	"strings"

	"github.com/upb/qruntime/internal/params"
)

// Candidate is one combination of source assignments to the required
// parameters. It is generated only when every value it needs is present in
// the source it claims.
type Candidate struct {
	Rank    int
	Label   string
	values  map[params.Name]params.Value
	sources map[params.Name]string
}

// Get returns the raw value for name, or "" when name is not part of the
// candidate.
func (c Candidate) Get(name params.Name) string {
	return c.values[name].Raw()
}

// Value returns the typed value for name.
func (c Candidate) Value(name params.Name) params.Value {
	if v, ok := c.values[name]; ok {
		return v
	}
	return params.Absent(name)
}

// Source returns the source label that supplied name.
func (c Candidate) Source(name params.Name) string {
	return c.sources[name]
}

// Secrets returns the candidate's secret values for scrubbing error text.
func (c Candidate) Secrets() []params.Value {
	var out []params.Value
	for _, v := range c.values {
		if v.Secret() && v.Present() {
			out = append(out, v)
		}
	}
	return out
}

// key identifies the effective value tuple for de-duplication.
func (c Candidate) key(required []params.Name) string {
	parts := make([]string, len(required))
	for i, n := range required {
		parts[i] = c.values[n].Raw()
	}
	return strings.Join(parts, "\x00")
}

// Candidates enumerates the attempts for req in rank order.
//
// With fallback disabled only the all-primary combination is considered.
// Otherwise every assignment of sources to required names is enumerated
// lexicographically: the first required name is the most significant digit
// and lower source indexes are preferred. Combinations with an absent value
// are dropped, as are combinations whose value tuple repeats an earlier one.
func Candidates(req Request) []Candidate {
	k := len(req.Required)
	n := len(req.Sets)
	if k == 0 || n == 0 {
		return nil
	}
	if !req.AllowFallback {
		n = 1
	}

	total := 1
	for i := 0; i < k; i++ {
		total *= n
	}

	var out []Candidate
	seen := make(map[string]bool)
	digits := make([]int, k)
	for idx := 0; idx < total; idx++ {
		rem := idx
		for i := k - 1; i >= 0; i-- {
			digits[i] = rem % n
			rem /= n
		}

		c, ok := buildCandidate(idx+1, req, digits)
		if !ok {
			continue
		}
		key := c.key(req.Required)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

func buildCandidate(rank int, req Request, digits []int) (Candidate, bool) {
	c := Candidate{
		Rank:    rank,
		values:  make(map[params.Name]params.Value, len(req.Required)),
		sources: make(map[params.Name]string, len(req.Required)),
	}

	parts := make([]string, len(req.Required))
	for i, name := range req.Required {
		set := req.Sets[digits[i]]
		v := set.Get(name)
		if !v.Present() {
			return Candidate{}, false
		}
		c.values[name] = v
		c.sources[name] = set.Source()
		parts[i] = fmt.Sprintf("%s %s", set.Source(), displayName(name))
	}
	c.Label = fmt.Sprintf("[%d] %s", rank, strings.Join(parts, " + "))
	return c, true
}

func displayName(n params.Name) string {
	return strings.ReplaceAll(string(n), "_", " ")
}
