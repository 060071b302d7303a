// Package middleware holds the http.Handler wrappers every route shares:
// request ids, access logs, Prometheus metrics and New Relic transactions.
package middleware

type contextKey string

const contextKeyRequestID contextKey = "requestId"
