// Package metrics exposes Prometheus collectors for the session service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sessiond"

// Metrics holds the collectors. A nil or disabled *Metrics is a no-op so
// components can record unconditionally.
type Metrics struct {
	enabled  bool
	registry *prometheus.Registry

	sessionsCreated prometheus.Counter
	sessionsRevoked *prometheus.CounterVec
	sessionsActive  prometheus.Gauge
	validations     *prometheus.CounterVec
	refreshes       *prometheus.CounterVec
	idsGenerated    prometheus.Counter
	geoLookups      *prometheus.CounterVec
	geoDuration     prometheus.Histogram
}

// New creates the collectors on a private registry.
// If enabled is false, returns a no-op Metrics instance.
func New(enabled bool) *Metrics {
	m := &Metrics{enabled: enabled}
	if !enabled {
		return m
	}

	m.registry = prometheus.NewRegistry()
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(m.registry)

	m.sessionsCreated = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_created_total",
		Help:      "Total sessions created",
	})

	m.sessionsRevoked = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_revoked_total",
		Help:      "Total sessions revoked",
	}, []string{"reason"})

	m.sessionsActive = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_active",
		Help:      "Sessions currently stored, as of the last sweep",
	})

	m.validations = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_validations_total",
		Help:      "Access token validations by result",
	}, []string{"result"})

	m.refreshes = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_refreshes_total",
		Help:      "Refresh attempts by result",
	}, []string{"result"})

	m.idsGenerated = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ids_generated_total",
		Help:      "Snowflake ids handed out over the API",
	})

	m.geoLookups = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "geo_lookups_total",
		Help:      "Geolocation lookups by outcome (hit, miss, failure, local)",
	}, []string{"outcome"})

	m.geoDuration = f.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "geo_lookup_duration_seconds",
		Help:      "External geolocation lookup latency",
		Buckets:   prometheus.DefBuckets,
	})

	return m
}

func (m *Metrics) on() bool { return m != nil && m.enabled }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if !m.on() {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry, or nil when disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	if !m.on() {
		return nil
	}
	return m.registry
}

func (m *Metrics) SessionCreated() {
	if !m.on() {
		return
	}
	m.sessionsCreated.Inc()
}

func (m *Metrics) SessionsRevoked(reason string, n int) {
	if !m.on() || n <= 0 {
		return
	}
	m.sessionsRevoked.WithLabelValues(reason).Add(float64(n))
}

func (m *Metrics) SetActiveSessions(n int) {
	if !m.on() {
		return
	}
	m.sessionsActive.Set(float64(n))
}

// Validation records a validation outcome; result is "ok" or an error code.
func (m *Metrics) Validation(result string) {
	if !m.on() {
		return
	}
	m.validations.WithLabelValues(result).Inc()
}

func (m *Metrics) Refresh(result string) {
	if !m.on() {
		return
	}
	m.refreshes.WithLabelValues(result).Inc()
}

func (m *Metrics) IDGenerated() {
	if !m.on() {
		return
	}
	m.idsGenerated.Inc()
}

// GeoLookup implements geoip.Recorder.
func (m *Metrics) GeoLookup(outcome string) {
	if !m.on() {
		return
	}
	m.geoLookups.WithLabelValues(outcome).Inc()
}

// GeoLookupDuration implements geoip.Recorder.
func (m *Metrics) GeoLookupDuration(seconds float64) {
	if !m.on() {
		return
	}
	m.geoDuration.Observe(seconds)
}
