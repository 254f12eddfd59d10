// Command server boots the Anthropic-to-OpenAI Messages translator: it
// loads configuration from the environment, starts the model-cache
// background refresher, and serves the HTTP front-end until
// SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openbridge/messages-gateway/internal/breaker"
	"github.com/openbridge/messages-gateway/internal/config"
	"github.com/openbridge/messages-gateway/internal/httpapi"
	"github.com/openbridge/messages-gateway/internal/logging"
	"github.com/openbridge/messages-gateway/internal/modelcache"
	"github.com/openbridge/messages-gateway/internal/telemetry"
	"github.com/openbridge/messages-gateway/internal/upstream"
)

const shutdownGrace = 10 * time.Second

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	client := upstream.New(upstream.Config{BaseURL: cfg.BackendURL, Timeout: cfg.BackendTimeout})
	fetcher := upstream.ModelFetcher{Client: client, Credential: cfg.DefaultCredential}
	cache := modelcache.New(fetcher, log)
	brk := breaker.New()
	tracer := telemetry.GetTracer(cfg.OTelEnabled)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go cache.Run(ctx)

	router := httpapi.NewRouter(httpapi.Deps{
		Cache:      cache,
		Breaker:    brk,
		Upstream:   client,
		Logger:     log,
		Tracer:     tracer,
		BackendURL: cfg.BackendURL,
	}, cfg.BackendTimeout)

	srv := &http.Server{
		Addr:    ":" + cfg.HostPort,
		Handler: router,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", srv.Addr, "backend_url", cfg.BackendURL)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
