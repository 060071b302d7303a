package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/segmentio/ksuid"
)

// WithRequestID tags each request with a fresh id, returned to the caller in
// the Request-ID header.
func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := fmt.Sprintf("req_%s", ksuid.New().String())

		w.Header().Set("Request-ID", requestID)
		ctx := context.WithValue(r.Context(), contextKeyRequestID, requestID)
		r = r.WithContext(ctx)

		next.ServeHTTP(w, r)
	})
}

// RequestID returns the id assigned by WithRequestID, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(contextKeyRequestID).(string)
	return id
}
