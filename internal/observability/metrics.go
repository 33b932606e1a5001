package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce           sync.Once
	apiRequestsTotal       *prometheus.CounterVec
	apiLatencySeconds      *prometheus.HistogramVec
	apiErrorsTotal         *prometheus.CounterVec
	recalculationsTotal    *prometheus.CounterVec
	recalculationSeconds   prometheus.Histogram
	lessonsUnlockedTotal   prometheus.Counter
	recalcFlagsTotal       *prometheus.CounterVec
	progressCacheTotal     *prometheus.CounterVec
	notificationsPublished *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_errors_total",
			Help: "Total number of error responses returned by API endpoints.",
		}, []string{"method", "route", "status"})

		recalculationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "course_progress_recalculations_total",
			Help: "Lesson unlock recalculations, by what triggered them.",
		}, []string{"trigger"})

		recalculationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "course_progress_recalculation_seconds",
			Help:    "Duration of a full lesson unlock recalculation.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		})

		lessonsUnlockedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "course_lessons_unlocked_total",
			Help: "Lessons that transitioned from locked to unlocked.",
		})

		recalcFlagsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "course_progress_flags_total",
			Help: "Enrollments flagged for recalculation, by reason.",
		}, []string{"reason"})

		progressCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "course_progress_cache_requests_total",
			Help: "Course progress cache lookups, by result.",
		}, []string{"result"})

		notificationsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_published_total",
			Help: "Notifications published, by type.",
		}, []string{"type"})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			recalculationsTotal,
			recalculationSeconds,
			lessonsUnlockedTotal,
			recalcFlagsTotal,
			progressCacheTotal,
			notificationsPublished,
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

// ProgressRecalculations counts unlock recalculations by trigger.
func ProgressRecalculations() *prometheus.CounterVec {
	RegisterMetrics()
	return recalculationsTotal
}

// ProgressRecalculationLatency observes recalculation durations.
func ProgressRecalculationLatency() prometheus.Histogram {
	RegisterMetrics()
	return recalculationSeconds
}

// LessonsUnlocked counts lessons that became reachable.
func LessonsUnlocked() prometheus.Counter {
	RegisterMetrics()
	return lessonsUnlockedTotal
}

// ProgressFlags counts enrollments flagged for recalculation.
func ProgressFlags() *prometheus.CounterVec {
	RegisterMetrics()
	return recalcFlagsTotal
}

// ProgressCacheRequests counts progress cache lookups.
func ProgressCacheRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return progressCacheTotal
}

// NotificationsPublishedTotal counts published notifications.
func NotificationsPublishedTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsPublished
}
