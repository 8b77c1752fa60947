package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Shared HTTP metrics.
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
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	documentsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "documents_created_total",
		Help: "Shared documents created.",
	})

	accessEventsLogged = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "document_access_events_total",
			Help: "Document access events written to the audit trail.",
		},
		[]string{"action"},
	)

	suspiciousGroups = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "suspicious_activity_groups_total",
		Help: "Grouped results returned by the anomaly detector.",
	})
)

// Init registers metrics in the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight,
		httpRequestsTotal,
		httpRequestDuration,
		documentsCreated,
		accessEventsLogged,
		suspiciousGroups,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// CountDocumentCreated increments the document creation counter.
func CountDocumentCreated() { documentsCreated.Inc() }

// CountAccessEvent increments the access event counter for the given action.
func CountAccessEvent(action string) { accessEventsLogged.WithLabelValues(action).Inc() }

// CountSuspiciousGroups adds the number of reported anomaly groups.
func CountSuspiciousGroups(n int) { suspiciousGroups.Add(float64(n)) }

// Instrument wraps a handler with RPS/latency/in-flight measurement.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// CanonicalPath collapses path parameters so metric label cardinality stays bounded.
func CanonicalPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	for prefix, replacement := range map[string]string{
		"/v1/employees/":               "/v1/employees/:id",
		"/v1/users/":                   "/v1/users/:email",
		"/v1/attendance/week/":         "/v1/attendance/week/:email",
		"/v1/attendance/today/":        "/v1/attendance/today/:id",
		"/v1/document-access/history/": "/v1/document-access/history/:id",
		"/v1/shared-files/employee/":   "/v1/shared-files/employee/:id",
		"/v1/shared-files/permission/": "/v1/shared-files/permission/:file/:employee",
	} {
		if strings.HasPrefix(path, prefix) && len(path) > len(prefix) {
			return replacement
		}
	}
	if rest, ok := strings.CutPrefix(path, "/v1/shared-files/"); ok && rest != "" {
		if strings.HasSuffix(rest, "/permissions") {
			return "/v1/shared-files/:id/permissions"
		}
		if !strings.Contains(rest, "/") {
			return "/v1/shared-files/:id"
		}
	}
	return path
}

// statusWriter captures the response status code.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses working through the instrumented writer.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
