package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mikey/vertretungsanalyse/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testKey = "sk-test-0123456789abcdefghijklmnopqrstuvwxyzABCDEF"

var _ core.LLMClient = (*OpenAIClient)(nil)

func newTestClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAIClient(srv.URL+"/v1", srv.Client(), "", "", 0, DefaultTemperature, zap.NewNop())
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestCompleteRequestShape(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer "+testKey, r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, `{"id":"chatcmpl-1","choices":[{"index":0,"message":{"role":"assistant","content":"MÜL: Krank 12.05.2025"}}]}`)
	})

	text, err := client.Complete(context.Background(), "Subject: Krank\nFrom: a@b.de\nTo: \nCC: \n\nHallo", testKey)
	require.NoError(t, err)
	assert.Equal(t, "MÜL: Krank 12.05.2025", text)

	assert.Equal(t, "gpt-4o-mini", got["model"])
	assert.InDelta(t, 0.7, got["temperature"], 0.0001)
	assert.EqualValues(t, 500, got["max_tokens"])

	messages, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	system := messages[0].(map[string]any)
	user := messages[1].(map[string]any)
	assert.Equal(t, "system", system["role"])
	assert.Equal(t, core.SystemPrompt, system["content"])
	assert.Equal(t, "user", user["role"])
	assert.Contains(t, user["content"], "Subject: Krank")
}

func TestCompleteUsesConfiguredKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+testKey, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`)
	}))
	defer srv.Close()

	client := NewOpenAIClient(srv.URL+"/v1", srv.Client(), testKey, "gpt-4o", 100, 0.2, zap.NewNop())
	assert.False(t, client.RequiresCredential())
	assert.Equal(t, "gpt-4o", client.ModelName())

	text, err := client.Complete(context.Background(), "content", "")
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
}

func TestCompleteErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantKind   core.ErrorKind
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "invalid key",
			status:     http.StatusUnauthorized,
			body:       `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`,
			wantKind:   core.KindInvalidCredential,
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "Incorrect API key provided",
		},
		{
			name:       "rate limit",
			status:     http.StatusTooManyRequests,
			body:       `{"error":{"message":"Rate limit reached","type":"requests","code":"rate_limit_exceeded"}}`,
			wantKind:   core.KindRateLimit,
			wantStatus: http.StatusTooManyRequests,
			wantMsg:    "Rate limit reached",
		},
		{
			name:       "server error without JSON body",
			status:     http.StatusInternalServerError,
			body:       `upstream failure`,
			wantKind:   core.KindServer,
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "Internal Server Error",
		},
		{
			name:       "bad request",
			status:     http.StatusBadRequest,
			body:       `{"error":{"message":"Invalid model","type":"invalid_request_error","code":null}}`,
			wantKind:   core.KindUnknown,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Invalid model",
		},
		{
			name:     "no choices",
			status:   http.StatusOK,
			body:     `{"id":"x","choices":[]}`,
			wantKind: core.KindMalformedResponse,
		},
		{
			name:     "empty content",
			status:   http.StatusOK,
			body:     `{"choices":[{"message":{"role":"assistant","content":"  "}}]}`,
			wantKind: core.KindMalformedResponse,
		},
		{
			name:     "undecodable body",
			status:   http.StatusOK,
			body:     `{"choices":[`,
			wantKind: core.KindMalformedResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})

			_, err := client.Complete(context.Background(), "content", testKey)
			require.Error(t, err)

			classified := core.ClassifyError(err)
			assert.Equal(t, tt.wantKind, classified.Kind)
			assert.Equal(t, tt.wantStatus, classified.StatusCode())

			if tt.wantMsg != "" {
				var httpErr *core.HTTPError
				require.True(t, errors.As(err, &httpErr))
				assert.Equal(t, tt.wantMsg, httpErr.Message)
			}
		})
	}
}

func TestCompleteTimeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Complete(ctx, "content", testKey)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrTimeout)
	assert.Equal(t, core.KindTimeout, core.ClassifyError(err).Kind)
}

func TestCompleteNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewOpenAIClient(url+"/v1", nil, "", "", 0, DefaultTemperature, zap.NewNop())
	_, err := client.Complete(context.Background(), "content", testKey)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNetwork)
	assert.Equal(t, core.KindNetwork, core.ClassifyError(err).Kind)
}

func TestCompleteCanceled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	_, err := client.Complete(ctx, "content", testKey)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, core.ErrNetwork)
	assert.Equal(t, core.KindCanceled, core.ClassifyError(err).Kind)
}
