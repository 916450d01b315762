package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "studyflow"

var (
	registerOnce          sync.Once
	apiRequestsTotal      *prometheus.CounterVec
	apiLatencySeconds     *prometheus.HistogramVec
	apiErrorsTotal        *prometheus.CounterVec
	syncPassesTotal       *prometheus.CounterVec
	syncAssignmentsTotal  *prometheus.CounterVec
	syncDurationSeconds   *prometheus.HistogramVec
	feedEventsTotal       *prometheus.CounterVec
	liveSubscribersActive prometheus.Gauge
	dashboardCacheTotal   *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used across the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_latency_seconds",
			Help:      "Latency distribution for API requests.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_errors_total",
			Help:      "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		syncPassesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_passes_total",
			Help:      "Sync passes by source and result.",
		}, []string{"source", "result"})

		syncAssignmentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_assignments_total",
			Help:      "Fetched assignments by source and merge outcome.",
		}, []string{"source", "outcome"})

		syncDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Duration of sync passes.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"source", "trigger"})

		feedEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_events_total",
			Help:      "Assignment change notifications by origin.",
		}, []string{"origin"})

		liveSubscribersActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_subscribers_active",
			Help:      "Currently open live assignment subscriptions.",
		})

		dashboardCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dashboard_cache_total",
			Help:      "Dashboard cache lookups by result.",
		}, []string{"result"})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			syncPassesTotal,
			syncAssignmentsTotal,
			syncDurationSeconds,
			feedEventsTotal,
			liveSubscribersActive,
			dashboardCacheTotal,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

func SyncPasses() *prometheus.CounterVec {
	RegisterMetrics()
	return syncPassesTotal
}

func SyncAssignments() *prometheus.CounterVec {
	RegisterMetrics()
	return syncAssignmentsTotal
}

func SyncDuration() *prometheus.HistogramVec {
	RegisterMetrics()
	return syncDurationSeconds
}

func FeedEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return feedEventsTotal
}

func LiveSubscribers() prometheus.Gauge {
	RegisterMetrics()
	return liveSubscribersActive
}

func DashboardCache() *prometheus.CounterVec {
	RegisterMetrics()
	return dashboardCacheTotal
}
