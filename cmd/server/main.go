package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-kit/kit/log"
	newrelic "github.com/newrelic/go-agent"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coulterac/kprint/internal/auth"
	"github.com/coulterac/kprint/internal/printing"
)

var build = "local"

func main() {
	l := log.NewJSONLogger(os.Stdout)
	l = log.WithPrefix(l, "build", build)
	l = log.WithPrefix(l, "date", log.DefaultTimestampUTC)

	c, err := loadConfig()
	if err != nil {
		l.Log("level", "error", "msg", "could not process env", "err", err.Error())
		os.Exit(1)
	}

	nrConfig := newrelic.NewConfig(c.NewRelicAppName, c.NewRelicLicense)
	nrConfig.Enabled = c.NewRelicEnabled
	nrConfig.CrossApplicationTracer.Enabled = false
	nrConfig.DistributedTracer.Enabled = true
	nr, err := newrelic.NewApplication(nrConfig)
	if err != nil {
		l.Log("level", "error", "msg", "could not create new relic application", "err", err.Error())
		os.Exit(1)
	}

	reg, err := printing.NewRegistry(c.CupsURL, c.Printers, l, printing.WithProxyToken(c.CupsProxyToken))
	if err != nil {
		l.Log("level", "error", "msg", "could not configure printers", "err", err.Error())
		os.Exit(1)
	}
	l.Log("level", "info", "msg", "configured printers", "printers", len(reg.Names()))

	verifier := auth.NewVerifier(auth.Config{
		Issuer:           c.OIDCIssuer,
		ClientID:         c.OIDCClientID,
		DiscoveryTimeout: c.OIDCDiscoveryTimeout,
	}, l)

	// We make a buffered channel of 2 so that each go routine has a chance to exit when the server stops.
	var errs = make(chan error, 2)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := http.Server{
		Addr:         c.MetricsAddr,
		Handler:      metricsMux,
		ReadTimeout:  time.Second * 30,
		WriteTimeout: time.Second * 30,
	}
	go func() {
		l.Log("level", "info", "msg", "starting metrics server", "addr", c.MetricsAddr)
		errs <- metricsServer.ListenAndServe()
		l.Log("level", "info", "msg", "stopped metrics server")
	}()

	h := handler{
		l:    l,
		jobs: printing.NewJobs(reg, c.PublicScheme, c.ChunkSize, l),
	}
	gate := auth.NewGate(verifier, l)

	appServer := http.Server{
		Addr:         c.Addr,
		Handler:      newRouter(h, gate.Wrap, nr, c.AllowedOrigins),
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	}
	go func() {
		l.Log("level", "info", "msg", "starting application server", "addr", c.Addr)

		errs <- appServer.ListenAndServe()

		l.Log("level", "info", "msg", "stopped application server")
	}()

	osSignals := make(chan os.Signal, 1)
	signal.Notify(osSignals, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errs:
		l.Log("level", "error", "msg", "received error", "err", err.Error())
		os.Exit(1)
	case s := <-osSignals:
		l.Log("level", "info", "msg", "received signal", "signal", s.String())

		ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)

		l.Log("level", "info", "msg", "stopping metrics server")
		if err := metricsServer.Shutdown(ctx); err != nil {
			l.Log("level", "error", "msg", "could not shutdown metrics server", "err", err.Error())
			if err := metricsServer.Close(); err != nil {
				l.Log("level", "error", "msg", "could not close metrics server", "err", err.Error())
			}
		}

		l.Log("level", "info", "msg", "stopping application server")
		if err := appServer.Shutdown(ctx); err != nil {
			l.Log("level", "error", "msg", "could not shutdown application server", "err", err.Error())
			if err := appServer.Close(); err != nil {
				l.Log("level", "error", "msg", "could not close application server", "err", err.Error())
			}
		}

		nr.Shutdown(5 * time.Second)
		cancel()
		os.Exit(0)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
