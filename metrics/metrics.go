package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "chartview"
)

// Collectors represents the prometheus collectors of a chart session. A nil collectors
// value is valid and records nothing.
type Collectors struct {
	registry        *prometheus.Registry
	cycles          *prometheus.CounterVec
	dropped         prometheus.Counter
	fetchFailures   *prometheus.CounterVec
	coalesced       *prometheus.CounterVec
	timeframeChange *prometheus.CounterVec
	cycleDuration   prometheus.Histogram
	liveBars        prometheus.Counter
}

// NewCollectors initializes the session collectors and registers them with the provided
// registry. A new registry is created when none is provided.
func NewCollectors(reg *prometheus.Registry) *Collectors {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	c := &Collectors{
		registry: reg,
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "cycles_total", Help: "Viewport update cycles run by outcome",
		}, []string{"outcome"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "events_dropped_total", Help: "Viewport events dropped while updating",
		}),
		fetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "fetch_failures_total", Help: "Failed fetches by operation",
		}, []string{"op"}),
		coalesced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "coalesced_calls_total", Help: "Calls joined to an in-flight fetch by operation",
		}, []string{"op"}),
		timeframeChange: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "timeframe_changes_total", Help: "Timeframe changes by zoom direction",
		}, []string{"direction"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "cycle_duration_seconds", Help: "Viewport update cycle duration",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		liveBars: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "live_bars_total", Help: "Live bars applied from the stream",
		}),
	}

	reg.MustRegister(c.cycles, c.dropped, c.fetchFailures, c.coalesced, c.timeframeChange,
		c.cycleDuration, c.liveBars)

	return c
}

// CycleCompleted records a finished update cycle.
func (c *Collectors) CycleCompleted(outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}

	c.cycles.WithLabelValues(outcome).Inc()
	c.cycleDuration.Observe(elapsed.Seconds())
}

// EventDropped records a viewport event dropped by the update guard.
func (c *Collectors) EventDropped() {
	if c == nil {
		return
	}

	c.dropped.Inc()
}

// FetchFailed records a failed fetch for the provided operation.
func (c *Collectors) FetchFailed(op string) {
	if c == nil {
		return
	}

	c.fetchFailures.WithLabelValues(op).Inc()
}

// Coalesced records a call joined to an in-flight fetch for the provided operation.
func (c *Collectors) Coalesced(op string) {
	if c == nil {
		return
	}

	c.coalesced.WithLabelValues(op).Inc()
}

// TimeframeChanged records a timeframe change in the provided direction.
func (c *Collectors) TimeframeChanged(direction string) {
	if c == nil {
		return
	}

	c.timeframeChange.WithLabelValues(direction).Inc()
}

// LiveBarApplied records a live bar applied to the session.
func (c *Collectors) LiveBarApplied() {
	if c == nil {
		return
	}

	c.liveBars.Inc()
}

// Handler returns the http handler serving the registered collectors.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
