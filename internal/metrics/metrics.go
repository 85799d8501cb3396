// Package metrics exposes Prometheus collectors for the catalog
// crawler.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal      *prometheus.CounterVec
	retriesTotal       prometheus.Counter
	productsTotal      prometheus.Counter
	quotaRejectedTotal *prometheus.CounterVec
	changesTotal       *prometheus.CounterVec
	notificationsTotal *prometheus.CounterVec
	activeWorkers      prometheus.Gauge

	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		requestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_requests_total",
				Help: "Crawl requests completed, labeled by request label and outcome.",
			},
			[]string{"label", "outcome"},
		)

		retriesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "catalog_request_retries_total",
				Help: "Requests requeued after a handler failure.",
			},
		)

		productsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "catalog_products_extracted_total",
				Help: "Product records pushed to the dataset.",
			},
		)

		quotaRejectedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_quota_rejections_total",
				Help: "Quota reservations rejected, labeled by request label.",
			},
			[]string{"label"},
		)

		changesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_snapshot_changes_total",
				Help: "Detected product changes, labeled by kind.",
			},
			[]string{"kind"},
		)

		notificationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_notifications_total",
				Help: "Notification deliveries, labeled by sink and outcome.",
			},
			[]string{"sink", "outcome"},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "catalog_active_workers",
				Help: "Workers currently processing a request.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "HTTP requests served by the status API, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Status API request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler exposing the Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRequest counts a finished request.
func ObserveRequest(label, outcome string) {
	requestsTotal.WithLabelValues(label, outcome).Inc()
}

// ObserveRetry counts a requeued request.
func ObserveRetry() {
	retriesTotal.Inc()
}

// ObserveProduct counts a pushed product record.
func ObserveProduct() {
	productsTotal.Inc()
}

// ObserveQuotaRejection counts a rejected quota reservation.
func ObserveQuotaRejection(label string) {
	quotaRejectedTotal.WithLabelValues(label).Inc()
}

// ObserveChange counts a detected change of the given kind
// (first_seen, price, availability).
func ObserveChange(kind string) {
	changesTotal.WithLabelValues(kind).Inc()
}

// ObserveNotification counts one sink delivery attempt.
func ObserveNotification(sink, outcome string) {
	notificationsTotal.WithLabelValues(sink, outcome).Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	activeWorkers.Dec()
}
