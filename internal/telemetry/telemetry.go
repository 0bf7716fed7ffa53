package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors of one process on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	fetchDuration   *prometheus.HistogramVec
	updatesApplied  prometheus.Counter
	updatesIgnored  prometheus.Counter
	connectionState prometheus.Gauge
	reconnects      prometheus.Counter
	submissions     *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	entriesStored   prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kpi_dashboard",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of stats and list requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"call", "outcome"}),
		updatesApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kpi_dashboard",
			Name:      "live_updates_applied_total",
			Help:      "Push updates applied to the displayed KPIs.",
		}),
		updatesIgnored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kpi_dashboard",
			Name:      "live_updates_ignored_total",
			Help:      "Push updates for another sector.",
		}),
		connectionState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "kpi_dashboard",
			Name:      "realtime_connection_state",
			Help:      "0 disconnected, 1 connecting, 2 connected.",
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kpi_dashboard",
			Name:      "realtime_reconnect_attempts_total",
			Help:      "Dial attempts made after a failure or a drop.",
		}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kpi_dashboard",
			Name:      "submissions_total",
			Help:      "Entry submissions by outcome.",
		}, []string{"outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kpi_dashboard",
			Name:      "http_requests_total",
			Help:      "Requests served by the development backend.",
		}, []string{"method", "route", "status"}),
		entriesStored: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "kpi_dashboard",
			Name:      "entries_stored",
			Help:      "Entries held by the development backend.",
		}),
	}
	m.Registry.MustRegister(
		m.fetchDuration, m.updatesApplied, m.updatesIgnored, m.connectionState,
		m.reconnects, m.submissions, m.httpRequests, m.entriesStored,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveFetch(call, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.fetchDuration.WithLabelValues(call, outcome).Observe(d.Seconds())
}

func (m *Metrics) UpdateApplied() {
	if m != nil {
		m.updatesApplied.Inc()
	}
}

func (m *Metrics) UpdateIgnored() {
	if m != nil {
		m.updatesIgnored.Inc()
	}
}

func (m *Metrics) ConnectionState(state int) {
	if m != nil {
		m.connectionState.Set(float64(state))
	}
}

func (m *Metrics) ReconnectAttempt() {
	if m != nil {
		m.reconnects.Inc()
	}
}

func (m *Metrics) Submission(outcome string) {
	if m != nil {
		m.submissions.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) HTTPRequest(method, route string, status int) {
	if m != nil {
		m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	}
}

func (m *Metrics) EntriesStored(n int) {
	if m != nil {
		m.entriesStored.Set(float64(n))
	}
}
