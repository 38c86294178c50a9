package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echo_http_requests_total",
			Help: "Total number of HTTP requests processed by the service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "echo_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "echo_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echo_ws_events_total",
			Help: "Total number of websocket events.",
		},
		[]string{"event"},
	)
	fanoutPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echo_fanout_published_total",
			Help: "Total number of realtime events handed to a transport.",
		},
		[]string{"transport", "event"},
	)
	fanoutPublishErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echo_fanout_publish_errors_total",
			Help: "Total number of realtime events a transport failed to publish.",
		},
		[]string{"transport", "event"},
	)
	userProvisioningTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echo_user_provisioning_total",
			Help: "Total number of user provisioning attempts by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		wsActiveConnections,
		wsEventsTotal,
		fanoutPublishedTotal,
		fanoutPublishErrorsTotal,
		userProvisioningTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// MetricsHandler exposes the default registry.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

func IncWSActive() {
	wsActiveConnections.Inc()
}

func DecWSActive() {
	wsActiveConnections.Dec()
}

func IncWSEvent(event string) {
	wsEventsTotal.WithLabelValues(event).Inc()
}

func IncFanoutPublished(transport, event string) {
	fanoutPublishedTotal.WithLabelValues(transport, event).Inc()
}

func IncFanoutPublishError(transport, event string) {
	fanoutPublishErrorsTotal.WithLabelValues(transport, event).Inc()
}

func IncProvisioning(result string) {
	userProvisioningTotal.WithLabelValues(result).Inc()
}
