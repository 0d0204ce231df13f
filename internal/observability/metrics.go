package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Watch for: p95/p99 increases.
	HTTPRequestDuration *prometheus.HistogramVec

	// OpenWeatherMap API call rate. Watch for: error vs success ratio.
	WeatherAPICallsTotal *prometheus.CounterVec

	// External API latency per request. Watch for: p95 > 2s (upstream degradation).
	WeatherAPIDuration *prometheus.HistogramVec

	// Retry attempts for weather API. High retries = unstable upstream.
	WeatherAPIRetriesTotal prometheus.Counter

	// Historical pipeline duration by rolling strategy. The sequential vs
	// parallel trade-off is read off this histogram.
	AnalysisDuration *prometheus.HistogramVec

	// Live-reading acquisition duration by fetch strategy.
	FetchDuration *prometheus.HistogramVec

	// Historical anomalies detected per city, set after each pipeline run.
	AnomaliesDetected *prometheus.GaugeVec

	// Live anomaly checks by outcome: normal, colder, warmer, unavailable, error.
	LiveChecksTotal *prometheus.CounterVec

	// Live-reading cache hits.
	CacheHitsTotal prometheus.Counter

	// Rate limit denials on the reporting API.
	RateLimitDeniedTotal prometheus.Counter

	// Circuit breaker state transitions for the weather API.
	CircuitBreakerTransitionsTotal *prometheus.CounterVec
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
	WeatherAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherApiCallsTotal",
			Help: "Total number of OpenWeatherMap API calls",
		},
		[]string{"status"},
	)
	WeatherAPIDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weatherApiDurationSeconds",
			Help:    "OpenWeatherMap API latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"status"},
	)
	WeatherAPIRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "weatherApiRetriesTotal",
			Help: "Total number of retry attempts for weather API calls",
		},
	)
	AnalysisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analysisDurationSeconds",
			Help:    "Historical analysis pipeline duration by rolling strategy",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
		},
		[]string{"strategy"},
	)
	FetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "liveFetchDurationSeconds",
			Help:    "Live-reading acquisition duration for all cities by fetch strategy",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"strategy"},
	)
	AnomaliesDetected = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "anomaliesDetected",
			Help: "Historical anomalies detected per city in the latest pipeline run",
		},
		[]string{"city"},
	)
	LiveChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "liveChecksTotal",
			Help: "Live anomaly checks by outcome",
		},
		[]string{"outcome"},
	)
	CacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheHitsTotal",
			Help: "Total number of live-reading cache hits",
		},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by the rate limiter",
		},
	)
	CircuitBreakerTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuitBreakerTransitionsTotal",
			Help: "Circuit breaker state transitions",
		},
		[]string{"component", "from", "to"},
	)

	registry.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		WeatherAPICallsTotal,
		WeatherAPIDuration,
		WeatherAPIRetriesTotal,
		AnalysisDuration,
		FetchDuration,
		AnomaliesDetected,
		LiveChecksTotal,
		CacheHitsTotal,
		RateLimitDeniedTotal,
		CircuitBreakerTransitionsTotal,
	)
}

// MetricsHandler returns the /metrics handler for the private registry.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// RecordCircuitBreakerTransition records a breaker state change.
func RecordCircuitBreakerTransition(component, from, to string) {
	CircuitBreakerTransitionsTotal.WithLabelValues(component, from, to).Inc()
}

// LiveCheckOutcome maps a verdict status or failure class to a stable metric label.
func LiveCheckOutcome(status string) string {
	switch status {
	case "colder than normal":
		return "colder"
	case "warmer than normal":
		return "warmer"
	case "within normal range":
		return "normal"
	}
	return status
}
