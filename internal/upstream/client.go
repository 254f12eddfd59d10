// Package upstream issues the translator's two outbound calls: the
// streaming chat-completions request and the model-catalog refresh GET.
// Failures are classified into three buckets (connect/DNS, mid-stream
// read timeout, non-2xx status) so the circuit breaker and error
// renderer can tell them apart.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/openbridge/messages-gateway/internal/errs"
	"github.com/openbridge/messages-gateway/pkg/openaiapi"
)

// Client issues HTTP calls to the OpenAI-compatible backend over a single
// shared, pooled transport.
type Client struct {
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
}

// Config configures a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// New returns a Client backed by a shared transport tuned for keep-alive
// pooling.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 600 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: timeout,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// StreamResult is the open upstream response body plus bookkeeping the
// caller needs to finalize the circuit breaker and SSE parser.
type StreamResult struct {
	Body       io.ReadCloser
	StatusCode int
}

// ChatCompletionsStream issues the streaming chat-completions request with
// the resolved client credential. The caller owns StreamResult.Body and
// must Close it. ctx governs the per-request timeout.
func (c *Client) ChatCompletionsStream(ctx context.Context, credential string, body *openaiapi.Request) (*StreamResult, *errs.Error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errs.InternalParseError(fmt.Errorf("marshal chat completions request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, errs.UpstreamConnect(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if credential != "" {
		httpReq.Header.Set("Authorization", "Bearer "+credential)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if classifyTimeout(err) {
			return nil, errs.UpstreamTimeout(err)
		}
		return nil, errs.UpstreamConnect(err)
	}

	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		preview, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, errs.ClassifyUpstreamStatus(resp.StatusCode, string(preview))
	}

	return &StreamResult{Body: resp.Body, StatusCode: resp.StatusCode}, nil
}

// FetchModels issues GET {base}/v1/models for the model cache refresher,
// using the process default credential when configured.
func (c *Client) FetchModels(ctx context.Context, credential string) (*openaiapi.ModelsResponse, error) {
	modelsURL := modelsEndpoint(c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, modelsURL, nil)
	if err != nil {
		return nil, err
	}
	if credential != "" {
		httpReq.Header.Set("Authorization", "Bearer "+credential)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("GET %s: HTTP %d: %s", modelsURL, resp.StatusCode, string(body))
	}

	var out openaiapi.ModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode models response: %w", err)
	}
	return &out, nil
}

// ModelFetcher adapts Client to modelcache.Fetcher, binding the process's
// default credential (if any) for background refreshes.
type ModelFetcher struct {
	Client     *Client
	Credential string
}

// FetchModels implements modelcache.Fetcher.
func (f ModelFetcher) FetchModels(ctx context.Context) (*openaiapi.ModelsResponse, error) {
	return f.Client.FetchModels(ctx, f.Credential)
}

// modelsEndpoint derives {backend_base}/v1/models from the configured
// chat-completions URL, stripping a trailing /chat/completions segment if
// present.
func modelsEndpoint(baseURL string) string {
	trimmed := strings.TrimSuffix(baseURL, "/chat/completions")
	trimmed = strings.TrimSuffix(trimmed, "/v1")
	return trimmed + "/v1/models"
}

// classifyTimeout reports whether err, returned by the request round trip
// before any response body was read, is a client-side timeout. The caller
// surfaces such a failure as upstream_timeout and every other round-trip
// failure as upstream_connect; timeouts while reading an already-open body
// are detected separately by ReadTimeoutError.
func classifyTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

// ReadTimeoutError reports whether err, observed while reading from an
// already-open stream body, represents a read timeout that should be
// surfaced as upstream_timeout rather than upstream_connect.
func ReadTimeoutError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return errors.Is(err, context.DeadlineExceeded)
}
