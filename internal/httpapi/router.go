// Package httpapi is the HTTP front-end: the chi router, its middleware
// stack, and the three endpoint handlers, wiring together every other
// component (auth, validate, modelcache, translate, upstream, sse,
// synth, breaker, errs) into the request path.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/otel/trace"

	"github.com/openbridge/messages-gateway/internal/breaker"
	"github.com/openbridge/messages-gateway/internal/modelcache"
	"github.com/openbridge/messages-gateway/internal/upstream"
)

// maxBodyBytes is the hard cap on an inbound request body.
const maxBodyBytes = 10 << 20 // 10 MiB

// Deps bundles every collaborator the handlers need.
type Deps struct {
	Cache      *modelcache.Cache
	Breaker    *breaker.Breaker
	Upstream   *upstream.Client
	Logger     *slog.Logger
	Tracer     trace.Tracer
	BackendURL string
}

// NewRouter builds the chi router for the three service endpoints.
func NewRouter(deps Deps, requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(slogRequestLogger(deps.Logger))
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "x-api-key", "Content-Type", "anthropic-version"},
		AllowCredentials: false,
	}))

	h := &handlers{deps: deps}

	r.Post("/v1/messages", h.handleMessages)
	r.With(gzipJSON).Post("/v1/messages/count_tokens", h.handleCountTokens)
	r.With(gzipJSON).Get("/health", h.handleHealth)

	return r
}

// slogRequestLogger emits one structured access-log record per request.
func slogRequestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

type handlers struct {
	deps Deps
}
