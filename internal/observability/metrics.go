package observability

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Watch for: p95/p99 latency increases.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight. Watch for: saturation, capacity limits.
	HTTPRequestsInFlight prometheus.Gauge

	// Rate limit denials. Watch for: overload, capacity exceeded.
	RateLimitDeniedTotal prometheus.Counter

	// Dashboard views computed, by view (seasons, temperature) and result (data, no_data).
	DashboardViewsTotal *prometheus.CounterVec

	// Time spent filtering and aggregating one view. Grows with dataset size, not traffic.
	PipelineDuration *prometheus.HistogramVec

	// Chart rasterization latency. Cache hits skip this entirely.
	ChartRenderDuration *prometheus.HistogramVec

	// Chart cache lookups by chart and result (hit, miss). Hit rate = hit/(hit+miss).
	ChartCacheLookupsTotal *prometheus.CounterVec

	// Chart cache failures by operation (get, set). Watch for: backend outages.
	CacheErrorsTotal *prometheus.CounterVec

	// XLSX exports served.
	ExportsTotal prometheus.Counter

	datasetGaugesOnce sync.Once
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)
	DashboardViewsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboardViewsTotal",
			Help: "Dashboard views computed by view and result (data, no_data)",
		},
		[]string{"view", "result"},
	)
	PipelineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipelineDurationSeconds",
			Help:    "Filter and aggregate latency in seconds per view",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
		},
		[]string{"view"},
	)
	ChartRenderDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chartRenderDurationSeconds",
			Help:    "Chart PNG render latency in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"chart"},
	)
	ChartCacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chartCacheLookupsTotal",
			Help: "Chart cache lookups by chart and result (hit, miss)",
		},
		[]string{"chart", "result"},
	)
	CacheErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheErrorsTotal",
			Help: "Chart cache errors by operation",
		},
		[]string{"operation"},
	)
	ExportsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "exportsTotal",
			Help: "Total number of XLSX exports served",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		RateLimitDeniedTotal,
		DashboardViewsTotal, PipelineDuration,
		ChartRenderDuration, ChartCacheLookupsTotal, CacheErrorsTotal,
		ExportsTotal,
	)
}

// RegisterDatasetGauges exposes the loaded record counts. Call once from main after loading.
func RegisterDatasetGauges(daily, hourly int) {
	datasetGaugesOnce.Do(func() {
		g := prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "datasetRecords",
				Help: "Records loaded per dataset at startup",
			},
			[]string{"dataset"},
		)
		g.WithLabelValues("daily").Set(float64(daily))
		g.WithLabelValues("hourly").Set(float64(hourly))
		registry.MustRegister(g)
	})
}

// RecordView records a computed dashboard view.
func RecordView(view string, empty bool) {
	result := "data"
	if empty {
		result = "no_data"
	}
	DashboardViewsTotal.WithLabelValues(view, result).Inc()
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
