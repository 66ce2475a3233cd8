package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/angeloszaimis/variant-edge/config"
	"github.com/angeloszaimis/variant-edge/internal/circuitbreaker"
	"github.com/angeloszaimis/variant-edge/internal/cookie"
	"github.com/angeloszaimis/variant-edge/internal/handler"
	"github.com/angeloszaimis/variant-edge/internal/httpserver"
	"github.com/angeloszaimis/variant-edge/internal/metrics"
	"github.com/angeloszaimis/variant-edge/internal/origin"
	"github.com/angeloszaimis/variant-edge/internal/rewrite"
	"github.com/angeloszaimis/variant-edge/internal/selector"
	"github.com/angeloszaimis/variant-edge/internal/variants"
	"github.com/angeloszaimis/variant-edge/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment, nil)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	collector := metrics.NewCollector(cfg.Metrics.BufferSize, log)
	collector.Start(ctx)

	breakers := newBreakerRegistry(cfg)

	variantHandler, err := buildHandler(cfg, log, collector, breakers)
	if err != nil {
		log.Error("Failed to build variant handler", slog.Any("err", err))
		os.Exit(1)
	}

	router := setupRouter(log, variantHandler, collector, cfg.Rewrite.Engine, breakers)

	srv, err := httpserver.New(cfg.Server.Address, router, httpserver.Timeouts{
		Read:  config.Duration(cfg.Server.ReadTimeout),
		Write: config.Duration(cfg.Server.WriteTimeout),
		Idle:  config.Duration(cfg.Server.IdleTimeout),
	})
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)

	go func() {
		srvErrCh <- srv.Start()
	}()

	log.Info("Variant edge listening",
		slog.String("addr", srv.Addr()),
		slog.String("variants", cfg.Variants.Endpoint),
		slog.String("engine", cfg.Rewrite.Engine))

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting variant edge", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

// newBreakerRegistry returns nil when breaking is disabled.
func newBreakerRegistry(cfg *config.Config) *circuitbreaker.Registry {
	if cfg.Origin.BreakerThreshold <= 0 {
		return nil
	}
	return circuitbreaker.NewRegistry(cfg.Origin.BreakerThreshold, config.Duration(cfg.Origin.BreakerReset))
}

func buildHandler(cfg *config.Config, log *slog.Logger, collector *metrics.Collector, breakers *circuitbreaker.Registry) (*handler.VariantHandler, error) {
	engine, err := rewrite.New(cfg.Rewrite.Engine, rewrite.DefaultRules())
	if err != nil {
		return nil, err
	}

	source := variants.NewSource(cfg.Variants.Endpoint, log,
		variants.WithHTTPClient(&http.Client{Timeout: config.Duration(cfg.Variants.Timeout)}),
		variants.WithMaxBytes(cfg.Variants.MaxBytes))

	fetcherOpts := []origin.Option{
		origin.WithHTTPClient(&http.Client{Timeout: config.Duration(cfg.Origin.Timeout)}),
	}
	if breakers != nil {
		fetcherOpts = append(fetcherOpts, origin.WithBreakers(breakers))
	}

	return handler.NewVariantHandler(
		log,
		source,
		selector.New(cfg.Cookie.Name, nil),
		origin.NewFetcher(log, fetcherOpts...),
		engine,
		cookie.NewWriter(cfg.Cookie.Name, cfg.Cookie.Path, cfg.Cookie.MaxAge),
		collector,
	), nil
}
