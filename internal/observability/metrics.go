package observability

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/upb/qruntime/internal/backend"
	"github.com/upb/qruntime/internal/resolver"
)

const metricsNamespace = "qruntime"

// Collector is a prometheus.Collector for resolution attempts and backend
// selections. It observes the resolver and the backend selector.
type Collector struct {
	attempts        *prometheus.CounterVec
	resolutions     *prometheus.CounterVec
	attemptDuration *prometheus.HistogramVec
	selections      *prometheus.CounterVec
}

var (
	_ prometheus.Collector      = (*Collector)(nil)
	_ resolver.Observer         = (*Collector)(nil)
	_ backend.SelectionObserver = (*Collector)(nil)
)

// NewMetricsCollector returns a new Collector.
func NewMetricsCollector() *Collector {
	return &Collector{
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "resolution_attempts_total",
				Help:      "The number of connect attempts made while resolving parameters.",
			}, []string{"purpose", "outcome"},
		),
		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "resolutions_total",
				Help:      "The number of finished resolutions.",
			}, []string{"purpose", "outcome"},
		),
		attemptDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "attempt_duration_seconds",
				Help:      "The time taken by one connect attempt.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			}, []string{"purpose"},
		),
		selections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "backend_selections_total",
				Help:      "The number of backends selected, by mode.",
			}, []string{"mode", "seeded"},
		),
	}
}

// ObserveAttempt is part of the resolver.Observer interface.
func (c *Collector) ObserveAttempt(_ context.Context, rec resolver.AttemptRecord) {
	purpose := string(rec.Purpose)
	c.attempts.WithLabelValues(purpose, rec.Outcome()).Inc()
	c.attemptDuration.WithLabelValues(purpose).Observe(rec.Duration.Seconds())
}

// ObserveResolution is part of the resolver.Observer interface.
func (c *Collector) ObserveResolution(_ context.Context, rec resolver.ResolutionRecord) {
	c.resolutions.WithLabelValues(string(rec.Purpose), rec.Outcome).Inc()
}

// ObserveSelection is part of the backend.SelectionObserver interface.
func (c *Collector) ObserveSelection(_ context.Context, sel *backend.Selection) {
	c.selections.WithLabelValues(string(sel.Mode), strconv.FormatBool(sel.Seeded)).Inc()
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.attempts.Describe(ch)
	c.resolutions.Describe(ch)
	c.attemptDuration.Describe(ch)
	c.selections.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.attempts.Collect(ch)
	c.resolutions.Collect(ch)
	c.attemptDuration.Collect(ch)
	c.selections.Collect(ch)
}
