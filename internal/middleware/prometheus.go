package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "http_requests_total",
	Help: "Count of all HTTP requests",
}, []string{"method", "path", "status"})

var httpLatencies = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "http_request_duration_milliseconds",
	Help:    "Latency of HTTP requests",
	Buckets: []float64{1, 10, 50, 100, 200, 300, 500, 1000, 2500, 5000, 10000, 30000},
}, []string{"method", "path", "status"})

// WithPrometheus records request counts and latencies. Paths are labelled
// with the matched route template so printer names don't explode the label
// set.
func WithPrometheus(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		pw := newStatusWriter(w)

		next.ServeHTTP(pw, r)

		labels := prometheus.Labels{
			"method": r.Method,
			"path":   routePath(r),
			"status": strconv.Itoa(pw.status),
		}
		httpRequestsTotal.With(labels).Inc()
		httpLatencies.With(labels).Observe(float64(time.Since(start).Nanoseconds()) / float64(time.Millisecond))
	})
}

func routePath(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
