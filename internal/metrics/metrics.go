package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "researchhub_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "researchhub_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// LoginAttempts counts logins by outcome: success, invalid, throttled.
	LoginAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "researchhub_login_attempts_total",
			Help: "Login attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// StatusTransitions counts committed research item status writes.
	StatusTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "researchhub_status_transitions_total",
			Help: "Research item rows moved to a status, by mode (single or batch).",
		},
		[]string{"status", "mode"},
	)

	AuditEntries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "researchhub_audit_entries_total",
			Help: "Committed audit log entries by action.",
		},
		[]string{"action"},
	)

	PermissionCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "researchhub_permission_cache_lookups_total",
			Help: "Effective permission cache lookups by result (hit, miss, error).",
		},
		[]string{"result"},
	)
)

var once sync.Once

// Init registers every collector with the default registry. Repeated calls are no-ops.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequestsTotal,
			httpRequestDuration,
			LoginAttempts,
			StatusTransitions,
			AuditEntries,
			PermissionCacheLookups,
		)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request count and latency keyed by the matched route template.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			// Render errors here so the recorded status is the one sent.
			if err := next(c); err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method

			httpRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			return nil
		}
	}
}
