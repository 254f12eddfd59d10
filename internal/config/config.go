// Package config collects the process's environment-derived settings
// into one struct at startup.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the translator's process-wide configuration.
type Config struct {
	// BackendURL is the OpenAI-compatible chat/completions endpoint
	// outbound requests are translated into.
	BackendURL string

	// DefaultCredential, if set, is used for the model-cache background
	// refresh's GET /v1/models call. Per-request credentials from clients
	// are never persisted here.
	DefaultCredential string

	// HostPort is the address the HTTP front-end listens on.
	HostPort string

	// BackendTimeout bounds each upstream chat-completions call.
	BackendTimeout time.Duration

	LogLevel  string
	LogFormat string

	// OTelEnabled selects the global OpenTelemetry tracer instead of the
	// no-op tracer. This process installs no tracer provider or exporter.
	OTelEnabled bool
}

const (
	defaultBackendURL = "https://api.openai.com/v1/chat/completions"
	defaultHostPort   = "8080"
	defaultTimeout    = 600 * time.Second
)

// Load reads the Config from the process environment, applying defaults
// for anything unset.
func Load() Config {
	return Config{
		BackendURL:        getenv("BACKEND_URL", defaultBackendURL),
		DefaultCredential: os.Getenv("BACKEND_API_KEY"),
		HostPort:          getenv("HOST_PORT", defaultHostPort),
		BackendTimeout:    getenvSeconds("BACKEND_TIMEOUT_SECS", defaultTimeout),
		LogLevel:          getenv("LOG_LEVEL", "info"),
		LogFormat:         getenv("LOG_FORMAT", "json"),
		OTelEnabled:       getenvBool("OTEL_ENABLED", false),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvSeconds(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return fallback
	}
	return time.Duration(secs) * time.Second
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
