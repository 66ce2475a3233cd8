package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/angeloszaimis/variant-edge/internal/circuitbreaker"
	"github.com/angeloszaimis/variant-edge/internal/handler"
	"github.com/angeloszaimis/variant-edge/internal/metrics"
)

func setupRouter(log *slog.Logger, variantHandler http.Handler, metricsCollector *metrics.Collector, engine string, breakers *circuitbreaker.Registry) chi.Router {
	r := chi.NewRouter()

	r.Use(handler.RequestID)
	r.Use(handler.AccessLog(log))
	r.Use(middleware.Recoverer)

	r.Get("/metrics", metricsCollector.Handler(engine, breakers))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	})

	r.Handle("/*", variantHandler)
	r.MethodNotAllowed(variantHandler.ServeHTTP)

	return r
}
