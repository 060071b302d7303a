package main

import (
	"net/http"

	"github.com/gorilla/mux"
	newrelic "github.com/newrelic/go-agent"
	"github.com/rs/cors"

	mw "github.com/coulterac/kprint/internal/middleware"
)

func newRouter(h handler, gate mux.MiddlewareFunc, nr newrelic.Application, origins []string) http.Handler {
	router := mux.NewRouter()
	router.Use(mw.WithPrometheus)

	registerPublicRoutes(router, h)

	printerRouter := router.PathPrefix("/printers").Subrouter()
	printerRouter.Use(gate)
	registerPrinterRoutes(printerRouter, h)

	// Add some middleware

	out := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Authorization", "Accept", "Content-Type"},
	}).Handler(router)
	out = mw.WithLog(out, h.l)
	out = mw.WithNewRelic(out, nr)
	out = mw.WithRequestID(out)

	return out
}

func registerPublicRoutes(router *mux.Router, h handler) {
	router.HandleFunc("/health", healthHandler).Methods(http.MethodGet)
}

func registerPrinterRoutes(router *mux.Router, h handler) {
	router.HandleFunc("/{name}/print", h.printHandler).Methods(http.MethodPost)
}
