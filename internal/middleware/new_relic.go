package middleware

import (
	"net/http"

	newrelic "github.com/newrelic/go-agent"
)

// WithNewRelic runs each request inside a New Relic transaction.
func WithNewRelic(next http.Handler, app newrelic.Application) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tx := app.StartTransaction(r.URL.Path, w, r)
		defer tx.End()

		if r.URL.Path == "/health" {
			next.ServeHTTP(tx, r)
			return
		}

		tx.AddAttribute("request.id", RequestID(r.Context()))

		// Add the transaction to the context, and pass it on with the request
		r = newrelic.RequestWithTransactionContext(r, tx)

		next.ServeHTTP(tx, r)
	})
}
