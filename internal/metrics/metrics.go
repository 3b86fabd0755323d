package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tvcore/internal/epg"
	"tvcore/internal/scan"
	"tvcore/internal/services"
	"tvcore/internal/store"
	"tvcore/internal/tuning"
)

// Metrics holds Prometheus collectors for the control plane.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   prometheus.Counter
	errorsTotal     prometheus.Counter
	tunesTotal      *prometheus.CounterVec
	tuneDuration    prometheus.Histogram
	scansTotal      *prometheus.CounterVec
	scanProgress    prometheus.Gauge
	epgRunsTotal    *prometheus.CounterVec
	epgPrograms     prometheus.Counter
	channels        prometheus.Gauge
	middlewareReady prometheus.Gauge
}

// New creates and registers every collector on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tvcore_api_requests_total",
			Help: "Total number of HTTP API requests received",
		}),
		errorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tvcore_api_errors_total",
			Help: "Total number of HTTP API responses with status 4xx or 5xx",
		}),
		tunesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tvcore_tunes_total",
			Help: "Tune attempts by technology and result",
		}, []string{"technology", "result"}),
		tuneDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tvcore_tune_duration_seconds",
			Help:    "Time from tune request to display scaling",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}),
		scansTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tvcore_scans_total",
			Help: "Finished scans by technology and outcome",
		}, []string{"technology", "outcome"}),
		scanProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tvcore_scan_progress_percent",
			Help: "Progress of the current or last scan",
		}),
		epgRunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tvcore_epg_runs_total",
			Help: "EPG worker tasks by mode and result",
		}, []string{"mode", "result"}),
		epgPrograms: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tvcore_epg_programs_inserted_total",
			Help: "Programs newly stored by EPG acquisition",
		}),
		channels: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tvcore_channels",
			Help: "Channels in the catalog",
		}),
		middlewareReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tvcore_middleware_ready",
			Help: "1 once the middleware reported ready and the manager is built",
		}),
	}
	m.registry.MustRegister(
		m.requestsTotal,
		m.errorsTotal,
		m.tunesTotal,
		m.tuneDuration,
		m.scansTotal,
		m.scanProgress,
		m.epgRunsTotal,
		m.epgPrograms,
		m.channels,
		m.middlewareReady,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// IncRequests increments the API request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the API error counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// ObserveTune matches tuning.Observer.
func (m *Metrics) ObserveTune(ch store.Channel, result tuning.Result, elapsed time.Duration) {
	outcome := "ok"
	if !result.OK {
		outcome = services.Kind(result.Err)
	}
	m.tunesTotal.WithLabelValues(ch.Technology.String(), outcome).Inc()
	if result.OK {
		m.tuneDuration.Observe(elapsed.Seconds())
	}
}

// ObserveScan matches scan.Observer.
func (m *Metrics) ObserveScan(status scan.Status) {
	m.scansTotal.WithLabelValues(status.Technology.String(), string(status.Outcome)).Inc()
	m.scanProgress.Set(float64(status.Progress))
}

// ObserveEPG records one EPG worker task.
func (m *Metrics) ObserveEPG(run epg.Run) {
	result := "ok"
	switch {
	case run.Err != nil:
		result = "failed"
	case run.Skipped:
		result = "skipped"
	}
	m.epgRunsTotal.WithLabelValues(string(run.Mode), result).Inc()
	if run.Inserted > 0 {
		m.epgPrograms.Add(float64(run.Inserted))
	}
}

// SetChannels sets the catalog size gauge.
func (m *Metrics) SetChannels(n int) {
	m.channels.Set(float64(n))
}

// SetMiddlewareReady sets the readiness gauge.
func (m *Metrics) SetMiddlewareReady(ready bool) {
	if ready {
		m.middlewareReady.Set(1)
		return
	}
	m.middlewareReady.Set(0)
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	inner := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		inner.ServeHTTP(w, r)
	})
}
