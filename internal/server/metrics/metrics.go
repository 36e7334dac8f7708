// Package metrics holds the Prometheus collectors of realmd. All methods
// are safe on a nil *Metrics, which records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "realmd"

// Refresh results.
const (
	RefreshOK         = "ok"
	RefreshQueryError = "query_error"
	RefreshCorrupt    = "corrupt_row"
)

type Metrics struct {
	registry *prometheus.Registry

	refreshCycles   *prometheus.CounterVec
	refreshDuration prometheus.Histogram
	realms          prometheus.Gauge
	resolveFailures *prometheus.CounterVec
	accountOps      *prometheus.CounterVec
	passwordChanges *prometheus.CounterVec
}

// New creates the collectors on a private registry together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		refreshCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realm_refresh_total",
			Help:      "Realm list refresh cycles by result.",
		}, []string{"result"}),
		refreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "realm_refresh_duration_seconds",
			Help:      "Time spent in one realm list refresh.",
			Buckets:   prometheus.DefBuckets,
		}),
		realms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "realms",
			Help:      "Realms in the published registry.",
		}),
		resolveFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realm_resolve_failures_total",
			Help:      "Realm rows skipped because an address did not resolve, by field.",
		}, []string{"field"}),
		accountOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "account_operations_total",
			Help:      "Account operations by operation and result code.",
		}, []string{"op", "result"}),
		passwordChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "password_changes_total",
			Help:      "Password change notifications by outcome.",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.refreshCycles,
		m.refreshDuration,
		m.realms,
		m.resolveFailures,
		m.accountOps,
		m.passwordChanges,
	)
	return m
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RefreshCounter returns the refresh cycle counter for result.
func (m *Metrics) RefreshCounter(result string) prometheus.Counter {
	return m.refreshCycles.WithLabelValues(result)
}

func (m *Metrics) RealmsGauge() prometheus.Gauge { return m.realms }

func (m *Metrics) AccountOpCounter(op, result string) prometheus.Counter {
	return m.accountOps.WithLabelValues(op, result)
}

func (m *Metrics) PasswordChangeCounter(outcome string) prometheus.Counter {
	return m.passwordChanges.WithLabelValues(outcome)
}

func (m *Metrics) ObserveRefresh(result string, seconds float64) {
	if m == nil {
		return
	}
	m.refreshCycles.WithLabelValues(result).Inc()
	m.refreshDuration.Observe(seconds)
}

func (m *Metrics) SetRealms(n int) {
	if m == nil {
		return
	}
	m.realms.Set(float64(n))
}

func (m *Metrics) ResolveFailed(field string) {
	if m == nil {
		return
	}
	m.resolveFailures.WithLabelValues(field).Inc()
}

func (m *Metrics) AccountOp(op, result string) {
	if m == nil {
		return
	}
	m.accountOps.WithLabelValues(op, result).Inc()
}

func (m *Metrics) PasswordChange(outcome string) {
	if m == nil {
		return
	}
	m.passwordChanges.WithLabelValues(outcome).Inc()
}
