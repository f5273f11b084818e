package server

import (
	"net/http"
	"time"

	"github.com/desertthunder/ytsync/internal/tasks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ytsync"

// Metrics records sync activity in a dedicated Prometheus registry. It implements [tasks.Recorder].
type Metrics struct {
	registry      *prometheus.Registry
	runs          prometheus.Counter
	runFailures   prometheus.Counter
	lastRun       prometheus.Gauge
	playlists     prometheus.Gauge
	syncs         *prometheus.CounterVec
	syncDuration  prometheus.Histogram
	newItems      prometheus.Counter
	downloads     *prometheus.CounterVec
	fetchOutcomes *prometheus.CounterVec
}

// NewMetrics registers the sync collectors plus the Go and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_runs_total",
			Help:      "Completed passes over every playlist.",
		}),
		runFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_run_playlist_failures_total",
			Help:      "Playlists that failed during a sync pass.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_sync_run_timestamp_seconds",
			Help:      "Start time of the most recent sync pass.",
		}),
		playlists: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "playlists",
			Help:      "Playlists covered by the most recent sync pass.",
		}),
		syncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playlist_syncs_total",
			Help:      "Playlist syncs by result message.",
		}, []string{"result"}),
		syncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "playlist_sync_duration_seconds",
			Help:      "Duration of a single playlist sync.",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 180, 600, 1800},
		}),
		newItems: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "new_items_total",
			Help:      "Items seen for the first time.",
		}),
		downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "Download attempts by result.",
		}, []string{"result"}),
		fetchOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Playlist fetches by classified outcome.",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		m.runs, m.runFailures, m.lastRun, m.playlists, m.syncs, m.syncDuration,
		m.newItems, m.downloads, m.fetchOutcomes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveFetch(outcome tasks.FetchOutcome) {
	m.fetchOutcomes.WithLabelValues(outcome.String()).Inc()
}

func (m *Metrics) ObserveNewItems(n int) {
	m.newItems.Add(float64(n))
}

func (m *Metrics) ObserveDownload(ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.downloads.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveSync(elapsed time.Duration, message string) {
	if message == "" {
		message = "error"
	}
	m.syncs.WithLabelValues(message).Inc()
	m.syncDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveRun(at time.Time, playlists, failures int) {
	m.runs.Inc()
	m.runFailures.Add(float64(failures))
	m.lastRun.Set(float64(at.Unix()))
	m.playlists.Set(float64(playlists))
}
