package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the API.
	Registry = prometheus.NewRegistry()

	// HTTPRequests counts requests by method, path, and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds.
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// PlanIterations tracks construction passes completed per search.
	PlanIterations = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "plan_search_iterations", Help: "Construction passes per plan search.", Buckets: []float64{10, 50, 100, 500, 1000, 5000, 20000}},
	)
	// PlanScore tracks the best score per search, 0 when no valid plan.
	PlanScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "plan_best_score", Help: "Best score per plan search.", Buckets: []float64{0, 50, 100, 150, 200, 300, 500}},
	)
	// PlanDuration records search wall-clock time in seconds.
	PlanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "plan_search_duration_seconds", Help: "Plan search duration in seconds.", Buckets: []float64{0.1, 0.5, 1, 1.5, 2, 3, 5}},
	)

	// IngestEstimates counts travel-table estimation outcomes.
	IngestEstimates = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ingest_estimates_total", Help: "Travel estimate outcomes by source."},
		[]string{"outcome"}, // estimated, cache_hit, fallback
	)

	// WebhookDeliveries counts webhook delivery outcomes by event type and status.
	WebhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "webhook_deliveries_total", Help: "Webhook deliveries by event type and status."},
		[]string{"event_type", "status"},
	)
)

var regOnce sync.Once

// RegisterDefault registers all collectors on the dedicated registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(PlanIterations)
		Registry.MustRegister(PlanScore)
		Registry.MustRegister(PlanDuration)
		Registry.MustRegister(IngestEstimates)
		Registry.MustRegister(WebhookDeliveries)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}
