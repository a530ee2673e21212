package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the Prometheus collectors of the engine. A nil *Registry
// is valid and records nothing.
type Registry struct {
	registry *prometheus.Registry

	// Run metrics
	RunDuration *prometheus.HistogramVec
	Runs        *prometheus.CounterVec

	// Generation metrics
	PropsEvaluated   prometheus.Counter
	ParlaysGenerated *prometheus.CounterVec
	LegsGenerated    prometheus.Counter

	// Settlement metrics
	LegsSettled    *prometheus.CounterVec
	ParlaysSettled *prometheus.CounterVec

	// Provider metrics
	ProviderRequests *prometheus.CounterVec
	ProviderLatency  *prometheus.HistogramVec
	BreakerState     *prometheus.GaugeVec

	// Cache metrics
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec
}

// NewRegistry creates and registers every collector on a private registry
func NewRegistry() *Registry {
	m := &Registry{
		registry: prometheus.NewRegistry(),

		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sgp_run_duration_seconds",
				Help:    "Duration of orchestrator phases in seconds",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
			},
			[]string{"phase"},
		),

		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sgp_runs_total",
				Help: "Total orchestrator phases by outcome",
			},
			[]string{"phase", "status"},
		),

		PropsEvaluated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sgp_props_evaluated_total",
				Help: "Total player props scored by the edge calculator",
			},
		),

		ParlaysGenerated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sgp_parlays_generated_total",
				Help: "Total parlays generated by season type",
			},
			[]string{"season_type"},
		),

		LegsGenerated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sgp_legs_generated_total",
				Help: "Total parlay legs generated",
			},
		),

		LegsSettled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sgp_legs_settled_total",
				Help: "Total legs settled by result",
			},
			[]string{"result"},
		),

		ParlaysSettled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sgp_parlays_settled_total",
				Help: "Total parlays settled by result",
			},
			[]string{"result"},
		),

		ProviderRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sgp_provider_requests_total",
				Help: "Total upstream provider requests by status",
			},
			[]string{"provider", "status"},
		),

		ProviderLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sgp_provider_latency_seconds",
				Help:    "Upstream provider request latency in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"provider"},
		),

		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sgp_provider_breaker_state",
				Help: "Circuit breaker state per provider (0=closed, 1=half-open, 2=open)",
			},
			[]string{"provider"},
		),

		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sgp_cache_hits_total",
				Help: "Total cache hits by cache",
			},
			[]string{"cache"},
		),

		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sgp_cache_misses_total",
				Help: "Total cache misses by cache",
			},
			[]string{"cache"},
		),
	}

	m.registry.MustRegister(
		m.RunDuration,
		m.Runs,
		m.PropsEvaluated,
		m.ParlaysGenerated,
		m.LegsGenerated,
		m.LegsSettled,
		m.ParlaysSettled,
		m.ProviderRequests,
		m.ProviderLatency,
		m.BreakerState,
		m.CacheHits,
		m.CacheMisses,
	)
	return m
}

// Handler serves the registry in the Prometheus text format
func (m *Registry) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry for tests and pushers
func (m *Registry) Gatherer() prometheus.Gatherer {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

// ObservePhase records the duration and outcome of an orchestrator phase
func (m *Registry) ObservePhase(phase string, started time.Time, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.RunDuration.WithLabelValues(phase).Observe(time.Since(started).Seconds())
	m.Runs.WithLabelValues(phase, status).Inc()
}

// ObserveProps counts scored props
func (m *Registry) ObserveProps(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.PropsEvaluated.Add(float64(n))
}

// ObserveParlay counts a generated parlay and its legs
func (m *Registry) ObserveParlay(seasonType string, legs int) {
	if m == nil {
		return
	}
	m.ParlaysGenerated.WithLabelValues(seasonType).Inc()
	m.LegsGenerated.Add(float64(legs))
}

// ObserveLeg counts a settled leg
func (m *Registry) ObserveLeg(result string) {
	if m == nil {
		return
	}
	m.LegsSettled.WithLabelValues(result).Inc()
}

// ObserveSettlement counts a settled parlay
func (m *Registry) ObserveSettlement(result string) {
	if m == nil {
		return
	}
	m.ParlaysSettled.WithLabelValues(result).Inc()
}

// ObserveRequest records one upstream call
func (m *Registry) ObserveRequest(provider string, started time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ProviderRequests.WithLabelValues(provider, status).Inc()
	m.ProviderLatency.WithLabelValues(provider).Observe(time.Since(started).Seconds())
}

// SetBreakerState records a circuit breaker transition
func (m *Registry) SetBreakerState(provider string, state float64) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(provider).Set(state)
}

// ObserveCache counts a cache lookup
func (m *Registry) ObserveCache(cache string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHits.WithLabelValues(cache).Inc()
		return
	}
	m.CacheMisses.WithLabelValues(cache).Inc()
}
