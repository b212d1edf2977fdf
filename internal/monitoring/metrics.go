package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kanmind_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kanmind_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	httpRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kanmind_http_requests_in_flight",
		Help: "Number of HTTP requests currently being served",
	})

	authzDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kanmind_authz_decisions_total",
		Help: "Authorization decisions by resource, verb and outcome",
	}, []string{"resource", "verb", "outcome"})

	cacheBreakerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kanmind_cache_breaker_transitions_total",
		Help: "Cache circuit breaker state transitions",
	}, []string{"from", "to"})

	authEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kanmind_auth_events_total",
		Help: "Authentication events by kind and result",
	}, []string{"event", "result"})
)

// MetricsMiddleware records request count, latency and in-flight requests.
// Routes are labelled by their pattern so ids do not explode cardinality.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

func ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, code).Inc()
	httpRequestDuration.WithLabelValues(method, route, code).Observe(duration.Seconds())
}

func ObserveAuthzDecision(resource, verb string, allowed bool) {
	outcome := "deny"
	if allowed {
		outcome = "allow"
	}
	authzDecisions.WithLabelValues(resource, verb, outcome).Inc()
}

func ObserveBreakerTransition(from, to string) {
	cacheBreakerTransitions.WithLabelValues(from, to).Inc()
}

// ObserveAuthEvent counts logins, registrations, refreshes and logouts.
func ObserveAuthEvent(event string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	authEvents.WithLabelValues(event, result).Inc()
}

// MetricsHandler serves the prometheus exposition format.
func MetricsHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
