package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbridge/messages-gateway/internal/errs"
	"github.com/openbridge/messages-gateway/pkg/openaiapi"
)

func TestChatCompletionsStream_Success(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Timeout: 5 * time.Second})
	res, errObj := c.ChatCompletionsStream(context.Background(), "secret-key", &openaiapi.Request{Model: "gpt-4o"})
	require.Nil(t, errObj)
	require.NotNil(t, res)
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "Bearer secret-key", gotAuth)
}

func TestChatCompletionsStream_NonSuccessStatusClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Timeout: 5 * time.Second})
	res, errObj := c.ChatCompletionsStream(context.Background(), "", &openaiapi.Request{Model: "gpt-4o"})
	assert.Nil(t, res)
	require.NotNil(t, errObj)
	assert.Equal(t, errs.KindUpstreamRateLimited, errObj.Kind)
}

func TestChatCompletionsStream_ConnectFailureClassified(t *testing.T) {
	c := New(Config{BaseURL: "http://127.0.0.1:1", Timeout: 2 * time.Second})
	res, errObj := c.ChatCompletionsStream(context.Background(), "", &openaiapi.Request{Model: "gpt-4o"})
	assert.Nil(t, res)
	require.NotNil(t, errObj)
	assert.True(t, errObj.CountsTowardBreaker())
}

func TestFetchModels_DerivesModelsEndpoint(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"data":[{"id":"gpt-4o"}]}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL + "/v1/chat/completions", Timeout: 5 * time.Second})
	models, err := c.FetchModels(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, models.Data, 1)
	assert.Equal(t, "gpt-4o", models.Data[0].ID)
	assert.Equal(t, "/v1/models", gotPath)
}

func TestModelFetcher_AdaptsClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	f := ModelFetcher{Client: New(Config{BaseURL: srv.URL + "/chat/completions", Timeout: time.Second}), Credential: "k"}
	models, err := f.FetchModels(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, models)
}

func TestReadTimeoutError_DetectsDeadlineExceeded(t *testing.T) {
	assert.True(t, ReadTimeoutError(context.DeadlineExceeded))
	assert.False(t, ReadTimeoutError(errors.New("boom")))
}
