// Package server owns the application lifecycle: it starts the stream
// connectors, the state aggregator and the HTTP server, then tears them
// down in order on shutdown.
package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	drepo "marketpulse/internal/domain/repository"
	"marketpulse/internal/state"
	pkgcache "marketpulse/pkg/cache"
	"marketpulse/pkg/config"
	xhttp "marketpulse/pkg/http"
	applogger "marketpulse/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	aggregator *state.Aggregator
	streams    []drepo.MarketStream
	pub        drepo.Publisher
	cache      pkgcache.Service
	handler    xhttp.Handler

	httpServer *xhttp.Server
}

// New creates the App. pub and cache may be nil when disabled in config.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	aggregator *state.Aggregator,
	streams []drepo.MarketStream,
	pub drepo.Publisher,
	cache pkgcache.Service,
	handler xhttp.Handler,
) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		aggregator: aggregator,
		streams:    streams,
		pub:        pub,
		cache:      cache,
		handler:    handler,
	}
}

// Run starts every component and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler, a.log,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(a.metricsPath()),
	)

	go a.aggregator.Run(ctx)

	for _, s := range a.streams {
		stream := s
		go stream.Run(ctx, a.aggregator.Events())
		a.log.Info("stream started", applogger.String("stream", stream.Name()))
	}
	a.log.Info("aggregating",
		applogger.Strings("symbols", a.cfg.Streams.Symbols))

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

func (a *App) metricsPath() string {
	if !a.cfg.Metrics.Enabled {
		return ""
	}
	return a.cfg.Metrics.Path
}

// shutdown stops the HTTP server first so no request observes a
// half-closed pipeline, then closes downstream clients.
func (a *App) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.pub != nil {
		if err := a.pub.Close(); err != nil {
			a.log.Warn("publisher close error", applogger.Error(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.Warn("cache close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
