package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Операции над заявками по результату
	workflowOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ringi_workflow_operations_total",
			Help: "Total number of approval workflow operations",
		},
		[]string{"operation", "result"},
	)

	lockWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ringi_lock_wait_seconds",
			Help:    "Time spent waiting for the sheet lock",
			Buckets: prometheus.DefBuckets,
		},
	)

	// LockTimeouts - сколько раз блокировку не удалось получить
	LockTimeouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ringi_lock_timeouts_total",
			Help: "Total number of sheet lock acquisition timeouts",
		},
	)

	notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ringi_notifications_total",
			Help: "Total number of notification e-mails by result",
		},
		[]string{"kind", "result"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ringi_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)
)

// RecordOperation фиксирует результат операции: ok или класс ошибки
func RecordOperation(operation, result string) {
	workflowOperations.WithLabelValues(operation, result).Inc()
}

func ObserveLockWait(d time.Duration) {
	lockWait.Observe(d.Seconds())
}

func RecordNotification(kind string, err error) {
	result := "sent"
	if err != nil {
		result = "failed"
	}
	notifications.WithLabelValues(kind, result).Inc()
}

// RecordHTTPRequest records an HTTP request
func RecordHTTPRequest(method, endpoint string, statusCode int, d time.Duration) {
	status := "unknown"
	switch {
	case statusCode >= 500:
		status = "5xx"
	case statusCode >= 400:
		status = "4xx"
	case statusCode >= 300:
		status = "3xx"
	case statusCode >= 200:
		status = "2xx"
	}
	httpRequestDuration.WithLabelValues(method, endpoint, status).Observe(d.Seconds())
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
