package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the service
	Registry = prometheus.NewRegistry()

	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// TasksProcessed counts acknowledged stream messages by stream name
	TasksProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pipeline_tasks_processed_total", Help: "Stream messages processed and acknowledged, by stream."},
		[]string{"stream"},
	)
	// TasksFailed counts handler failures that were left for redelivery
	TasksFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pipeline_tasks_failed_total", Help: "Stream message handler failures (message left unacked), by stream."},
		[]string{"stream"},
	)
	// TasksMalformed counts messages acked without processing due to bad payloads
	TasksMalformed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pipeline_tasks_malformed_total", Help: "Unparseable stream messages dropped after logging, by stream."},
		[]string{"stream"},
	)

	// BroadcastDelivered counts notifications delivered to connected clients
	BroadcastDelivered = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "broadcast_notifications_delivered_total", Help: "Notifications delivered to connected clients."},
	)
	// BroadcastDropped counts clients removed after a failed send
	BroadcastDropped = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "broadcast_clients_dropped_total", Help: "Clients removed from the hub after a failed send."},
	)
)

// RegisterDefault registers all collectors on the service registry once.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(TasksProcessed)
		Registry.MustRegister(TasksFailed)
		Registry.MustRegister(TasksMalformed)
		Registry.MustRegister(BroadcastDelivered)
		Registry.MustRegister(BroadcastDropped)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
