// Package metrics exposes Prometheus collectors for refresh, backfill and
// archive activity.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kinderbot"

// Result label values
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics owns a private registry so tests can create as many as they like
type Metrics struct {
	registry *prometheus.Registry

	refreshes     *prometheus.CounterVec
	lastRefresh   prometheus.Gauge
	children      prometheus.Gauge
	weeksStored   *prometheus.CounterVec
	archiveRuns   *prometheus.CounterVec
	fetchErrors   *prometheus.CounterVec
	backfillsBusy prometheus.Gauge
}

// New creates and registers all collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "Refresh cycles by result.",
		}, []string{"result"}),
		lastRefresh: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_refresh_timestamp_seconds",
			Help:      "Unix time of the last successful refresh.",
		}),
		children: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "children",
			Help:      "Active children seen in the last successful refresh.",
		}),
		weeksStored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_weeks_stored_total",
			Help:      "Weeks added to the history archive.",
		}, []string{"child", "source"}),
		archiveRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_runs_total",
			Help:      "Weekly archive runs by result.",
		}, []string{"result"}),
		fetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "Failed calls to the Kinderpedia API by operation.",
		}, []string{"operation"}),
		backfillsBusy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "backfills_in_progress",
			Help:      "History backfills currently running.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.refreshes,
		m.lastRefresh,
		m.children,
		m.weeksStored,
		m.archiveRuns,
		m.fetchErrors,
		m.backfillsBusy,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) RefreshSucceeded(at time.Time, children int) {
	m.refreshes.WithLabelValues(ResultSuccess).Inc()
	m.lastRefresh.Set(float64(at.Unix()))
	m.children.Set(float64(children))
}

func (m *Metrics) RefreshFailed() {
	m.refreshes.WithLabelValues(ResultFailure).Inc()
}

// WeeksStored counts weeks added for a child; source is "backfill" or "archive"
func (m *Metrics) WeeksStored(child, source string, n int) {
	if n <= 0 {
		return
	}
	m.weeksStored.WithLabelValues(child, source).Add(float64(n))
}

func (m *Metrics) ArchiveRun(result string) {
	m.archiveRuns.WithLabelValues(result).Inc()
}

func (m *Metrics) FetchError(operation string) {
	m.fetchErrors.WithLabelValues(operation).Inc()
}

// BackfillStarted marks a backfill as running and returns the func ending it
func (m *Metrics) BackfillStarted() func() {
	m.backfillsBusy.Inc()
	return m.backfillsBusy.Dec
}
