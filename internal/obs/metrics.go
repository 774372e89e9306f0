package obs

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP metrics.
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// Domain metrics.
var (
	Decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outpass_decisions_total",
			Help: "Stage decisions recorded, by stage and outcome.",
		},
		[]string{"stage", "decision"},
	)

	GateEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outpass_gate_events_total",
			Help: "Gate crossings recorded, by direction.",
		},
		[]string{"direction"},
	)

	CASConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outpass_version_conflicts_total",
		Help: "Compare-and-update attempts that lost to a concurrent write.",
	})

	NotificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outpass_notifications_total",
			Help: "Push notifications attempted, by result.",
		},
		[]string{"result"},
	)
)

var initOnce sync.Once

// Init registers every metric in the default registry. Safe to call twice.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight, httpRequestsTotal, httpRequestDuration,
			Decisions, GateEvents, CASConflicts, NotificationsSent,
		)
	})
}

// Handler serves the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument records count, latency and in-flight requests per matched route.
func Instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		httpInFlight.Inc()
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		httpRequestDuration.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(c.Request.Method, route, status).Inc()
		httpInFlight.Dec()
	}
}
