package middleware

import (
	"net/http"
	"time"

	"github.com/go-kit/kit/log"
)

// WithLog writes one access log line per request.
func WithLog(next http.Handler, l log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lw := newStatusWriter(w)
		next.ServeHTTP(lw, r)
		dur := time.Since(start)

		l.Log(
			"level", "info",
			"msg", "incoming request",
			"requestId", RequestID(r.Context()),
			"method", r.Method,
			"uri", r.URL.Path,
			"remote", r.RemoteAddr,
			"status", lw.status,
			"dur", dur,
		)
	})
}
