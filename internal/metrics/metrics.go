// Package metrics defines the Prometheus collectors for the persona pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "persona"

// Metrics groups the pipeline collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	ScansTotal       *prometheus.CounterVec
	PostsCollected   *prometheus.CounterVec
	RateLimitWait    *prometheus.HistogramVec
	BreakerState     *prometheus.GaugeVec
	PostsClassified  prometheus.Counter
	PhaseDuration    *prometheus.HistogramVec
	ProfilesResolved *prometheus.CounterVec
	APISpend         *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ScansTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scans_total",
				Help:      "Profile scans by network and outcome",
			},
			[]string{"network", "status"},
		),
		PostsCollected: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "posts_collected_total",
				Help:      "Posts returned by network scans",
			},
			[]string{"network"},
		),
		RateLimitWait: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rate_limit_wait_seconds",
				Help:      "Time spent queued for a network rate-limit token",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
			},
			[]string{"network"},
		),
		BreakerState: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Current state of circuit breaker (0=closed, 1=half-open, 2=open)",
			},
			[]string{"network"},
		),
		PostsClassified: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "posts_classified_total",
				Help:      "Posts annotated by the text classifier",
			},
		),
		PhaseDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "phase_duration_seconds",
				Help:      "Duration of pipeline phases in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"phase", "status"},
		),
		ProfilesResolved: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "profiles_resolved_total",
				Help:      "Identity profiles produced by resolution, by status",
			},
			[]string{"network", "status"},
		),
		APISpend: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_spend_usd_total",
				Help:      "Estimated collaborator API spend in USD, by provider",
			},
			[]string{"provider"},
		),
	}
}

// ObserveScan records the outcome of one profile scan.
func (m *Metrics) ObserveScan(network, status string, posts int) {
	if m == nil {
		return
	}
	m.ScansTotal.WithLabelValues(network, status).Inc()
	if posts > 0 {
		m.PostsCollected.WithLabelValues(network).Add(float64(posts))
	}
}

// ObserveWait records time spent waiting on a network's limiter.
func (m *Metrics) ObserveWait(network string, d time.Duration) {
	if m == nil {
		return
	}
	m.RateLimitWait.WithLabelValues(network).Observe(d.Seconds())
}

// SetBreakerState records a breaker state (0=closed, 1=half-open, 2=open).
func (m *Metrics) SetBreakerState(network string, state int) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(network).Set(float64(state))
}

// AddClassified counts classified posts.
func (m *Metrics) AddClassified(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.PostsClassified.Add(float64(n))
}

// ObservePhase records a pipeline phase duration.
func (m *Metrics) ObservePhase(phase, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.PhaseDuration.WithLabelValues(phase, status).Observe(d.Seconds())
}

// ObserveProfile counts one resolved profile.
func (m *Metrics) ObserveProfile(network, status string) {
	if m == nil {
		return
	}
	m.ProfilesResolved.WithLabelValues(network, status).Inc()
}

// AddSpend adds an estimated API cost for provider.
func (m *Metrics) AddSpend(provider string, usd float64) {
	if m == nil || usd <= 0 {
		return
	}
	m.APISpend.WithLabelValues(provider).Add(usd)
}
