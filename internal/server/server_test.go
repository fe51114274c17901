package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nulzo/ai-bridge/internal/config"
	"github.com/nulzo/ai-bridge/internal/gateway"
	"github.com/nulzo/ai-bridge/internal/llm"
	"github.com/nulzo/ai-bridge/internal/registry"
	"github.com/nulzo/ai-bridge/internal/server"
	"github.com/nulzo/ai-bridge/internal/store"
	"github.com/nulzo/ai-bridge/internal/store/cache"
	storemodel "github.com/nulzo/ai-bridge/internal/store/model"
	"github.com/nulzo/ai-bridge/pkg/api"
)

type fakeAdapter struct {
	provider  api.Provider
	available bool
	response  *api.CompletionResponse
	err       error
	chunks    []*api.StreamChunk
	streamErr error
}

func (f *fakeAdapter) Name() api.Provider                         { return f.provider }
func (f *fakeAdapter) CheckAvailability(ctx context.Context) bool { return f.available }

func (f *fakeAdapter) Complete(ctx context.Context, req *api.CompletionRequest) (*api.CompletionResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func (f *fakeAdapter) Stream(ctx context.Context, req *api.CompletionRequest) (<-chan api.StreamResult, error) {
	ch := make(chan api.StreamResult, len(f.chunks)+1)
	for _, c := range f.chunks {
		ch <- api.StreamResult{Chunk: c}
	}
	if f.streamErr != nil {
		ch <- api.StreamResult{Err: f.streamErr}
	}
	close(ch)
	return ch, nil
}

func newTestServer(t *testing.T, adapters map[api.Provider]llm.Provider) http.Handler {
	t.Helper()

	cfg := &config.Config{
		Server:    config.ServerConfig{Port: "0", Env: "testing"},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
	}

	reg := registry.New(map[api.Provider][]api.Model{
		api.OpenAI:   {{ID: "gpt-4o", Name: "GPT-4o", Provider: api.OpenAI, MaxTokens: 128000}},
		api.DeepSeek: {{ID: "deepseek-chat", Name: "DeepSeek Chat", Provider: api.DeepSeek}},
	}, []api.Model{{ID: "proxy-model", Name: "Proxy Model", Provider: api.LiteLLM}})

	service := gateway.New(reg, adapters, nil, zap.NewNop())
	return server.New(cfg, zap.NewNop(), service, store.Nop{}, cache.NewMemory()).Handler()
}

// sseRecorder adds the CloseNotifier implementation gin's Stream helper
// expects from the underlying writer.
type sseRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func (r *sseRecorder) CloseNotify() <-chan bool { return r.closed }

func record(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := &sseRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool)}
	handler.ServeHTTP(w, req)
	return w.ResponseRecorder
}

func postJSON(handler http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return record(handler, req)
}

func get(handler http.Handler, path string) *httptest.ResponseRecorder {
	return record(handler, httptest.NewRequest(http.MethodGet, path, nil))
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) api.ErrorEnvelope {
	t.Helper()
	var envelope api.ErrorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	return envelope
}

func TestCreateCompletion(t *testing.T) {
	handler := newTestServer(t, map[api.Provider]llm.Provider{
		api.OpenAI: &fakeAdapter{
			provider: api.OpenAI,
			response: &api.CompletionResponse{
				ID: "chatcmpl-1", Model: "gpt-4o", Provider: api.OpenAI, Content: "Hi there",
				Usage:     api.Usage{PromptTokens: 2, CompletionTokens: 3, TotalTokens: 5},
				CreatedAt: "2026-08-30T00:00:00Z",
			},
		},
	})

	w := postJSON(handler, "/api/completions", `{"model": "gpt-4o", "prompt": "Hello"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "chatcmpl-1", body["id"])
	assert.Equal(t, "Hi there", body["content"])
	assert.Equal(t, "openai", body["provider"])

	usage := body["usage"].(map[string]interface{})
	assert.Equal(t, float64(5), usage["total_tokens"])
}

func TestCreateCompletion_ValidationError(t *testing.T) {
	handler := newTestServer(t, map[api.Provider]llm.Provider{})

	w := postJSON(handler, "/api/completions", `{"model": "gpt-4o"}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	envelope := decodeError(t, w)
	assert.Equal(t, api.CodeValidationError, envelope.Error.Code)
	assert.Contains(t, envelope.Error.Details, "prompt")
}

func TestCreateCompletion_InvalidProviderHintFailsValidation(t *testing.T) {
	handler := newTestServer(t, map[api.Provider]llm.Provider{})

	w := postJSON(handler, "/api/completions", `{"model": "gpt-4o", "prompt": "Hi", "provider": "azure"}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	envelope := decodeError(t, w)
	assert.Equal(t, api.CodeValidationError, envelope.Error.Code)
	assert.Contains(t, envelope.Error.Details, "provider")
}

func TestCreateCompletion_UnknownModel(t *testing.T) {
	handler := newTestServer(t, map[api.Provider]llm.Provider{})

	w := postJSON(handler, "/api/completions", `{"model": "unknown", "prompt": "Hi"}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	envelope := decodeError(t, w)
	assert.Equal(t, api.CodeModelNotFound, envelope.Error.Code)
	assert.Equal(t, "Model 'unknown' not found", envelope.Error.Message)
}

func TestCreateCompletion_ProviderMismatch(t *testing.T) {
	handler := newTestServer(t, map[api.Provider]llm.Provider{})

	w := postJSON(handler, "/api/completions", `{"model": "deepseek-chat", "prompt": "Hi", "provider": "openai"}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	envelope := decodeError(t, w)
	assert.Equal(t, api.CodeProviderModelMismatch, envelope.Error.Code)
}

func TestCreateCompletion_UpstreamErrorPropagates(t *testing.T) {
	handler := newTestServer(t, map[api.Provider]llm.Provider{
		api.OpenAI: &fakeAdapter{
			provider: api.OpenAI,
			err:      api.UnauthorizedError(api.OpenAI, "Invalid OpenAI API key"),
		},
	})

	w := postJSON(handler, "/api/completions", `{"model": "gpt-4o", "prompt": "Hi"}`)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	envelope := decodeError(t, w)
	assert.Equal(t, "OPENAI_UNAUTHORIZED", envelope.Error.Code)
	assert.Equal(t, "Invalid OpenAI API key", envelope.Error.Message)
}

func TestCreateCompletion_SSEStream(t *testing.T) {
	handler := newTestServer(t, map[api.Provider]llm.Provider{
		api.OpenAI: &fakeAdapter{
			provider: api.OpenAI,
			chunks: []*api.StreamChunk{
				{ID: "s1", Model: "gpt-4o", Provider: api.OpenAI, Content: "Hel"},
				{ID: "s1", Model: "gpt-4o", Provider: api.OpenAI, Content: "lo"},
				{ID: "s1", Model: "gpt-4o", Provider: api.OpenAI, FinishReason: "stop", IsLastChunk: true},
			},
		},
	})

	w := postJSON(handler, "/api/completions", `{"model": "gpt-4o", "prompt": "Hi", "stream": true}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	body := w.Body.String()
	events := parseSSE(t, body)
	require.Len(t, events, 3)

	var content string
	for _, ev := range events {
		var chunk api.StreamChunk
		require.NoError(t, json.Unmarshal([]byte(ev), &chunk))
		content += chunk.Content
	}
	assert.Equal(t, "Hello", content)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(body), "data: [DONE]"))
}

func TestCreateCompletion_SSEStreamErrorEvent(t *testing.T) {
	handler := newTestServer(t, map[api.Provider]llm.Provider{
		api.OpenAI: &fakeAdapter{
			provider:  api.OpenAI,
			chunks:    []*api.StreamChunk{{ID: "s2", Content: "partial"}},
			streamErr: api.RateLimitError(api.OpenAI, "OpenAI rate limit exceeded"),
		},
	})

	w := postJSON(handler, "/api/completions", `{"model": "gpt-4o", "prompt": "Hi", "stream": true}`)

	require.Equal(t, http.StatusOK, w.Code)
	events := parseSSE(t, w.Body.String())
	require.Len(t, events, 2)

	var envelope api.ErrorEnvelope
	require.NoError(t, json.Unmarshal([]byte(events[1]), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "OPENAI_RATE_LIMIT", envelope.Error.Code)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(w.Body.String()), "data: [DONE]"))
}

// parseSSE returns the data payloads preceding the [DONE] marker.
func parseSSE(t *testing.T, body string) []string {
	t.Helper()
	var events []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		if payload == "[DONE]" {
			break
		}
		events = append(events, payload)
	}
	return events
}

func TestListModels_FiltersUnavailableProviders(t *testing.T) {
	handler := newTestServer(t, map[api.Provider]llm.Provider{
		api.OpenAI:   &fakeAdapter{provider: api.OpenAI, available: true},
		api.DeepSeek: &fakeAdapter{provider: api.DeepSeek, available: false},
	})

	w := get(handler, "/api/models")

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Models    []api.Model           `json:"models"`
		Providers map[api.Provider]bool `json:"providers"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	require.Len(t, body.Models, 1)
	assert.Equal(t, "gpt-4o", body.Models[0].ID)
	assert.True(t, body.Providers[api.OpenAI])
	assert.False(t, body.Providers[api.DeepSeek])
}

func TestListModels_ProviderFilter(t *testing.T) {
	handler := newTestServer(t, map[api.Provider]llm.Provider{
		api.OpenAI:   &fakeAdapter{provider: api.OpenAI, available: true},
		api.DeepSeek: &fakeAdapter{provider: api.DeepSeek, available: true},
	})

	w := get(handler, "/api/models?provider=deepseek")

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Models []api.Model `json:"models"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Models, 1)
	assert.Equal(t, "deepseek-chat", body.Models[0].ID)
}

func TestListModels_InvalidProvider(t *testing.T) {
	handler := newTestServer(t, map[api.Provider]llm.Provider{})

	w := get(handler, "/api/models?provider=azure")

	require.Equal(t, http.StatusBadRequest, w.Code)
	envelope := decodeError(t, w)
	assert.Equal(t, api.CodeInvalidProvider, envelope.Error.Code)
	assert.Equal(t, "Invalid provider: azure", envelope.Error.Message)
}

func TestListProviders(t *testing.T) {
	handler := newTestServer(t, map[api.Provider]llm.Provider{
		api.OpenAI: &fakeAdapter{provider: api.OpenAI, available: true},
	})

	w := get(handler, "/api/providers")

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Providers map[api.Provider]struct {
			Available bool        `json:"available"`
			Models    []api.Model `json:"models"`
		} `json:"providers"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Providers, 4)

	assert.True(t, body.Providers[api.OpenAI].Available)
	assert.Len(t, body.Providers[api.OpenAI].Models, 1)

	// Unavailable providers report an empty model list, not their catalog.
	assert.False(t, body.Providers[api.DeepSeek].Available)
	assert.Empty(t, body.Providers[api.DeepSeek].Models)
}

func TestHealth(t *testing.T) {
	handler := newTestServer(t, map[api.Provider]llm.Provider{
		api.OpenAI: &fakeAdapter{provider: api.OpenAI, available: true},
	})

	w := get(handler, "/api/health")

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["timestamp"])
	assert.Contains(t, body, "providers")
}

func TestStats_EmptyStore(t *testing.T) {
	handler := newTestServer(t, map[api.Provider]llm.Provider{})

	w := get(handler, "/api/stats")

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Days  int           `json:"days"`
		Stats []interface{} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 7, body.Days)
	assert.Empty(t, body.Stats)
}

func TestStats_InvalidDays(t *testing.T) {
	handler := newTestServer(t, map[api.Provider]llm.Provider{})

	w := get(handler, "/api/stats?days=500")

	require.Equal(t, http.StatusBadRequest, w.Code)
	envelope := decodeError(t, w)
	assert.Equal(t, api.CodeValidationError, envelope.Error.Code)
	assert.Contains(t, envelope.Error.Details, "days")
}

func TestNoRoute(t *testing.T) {
	handler := newTestServer(t, map[api.Provider]llm.Provider{})

	w := get(handler, "/nope")

	require.Equal(t, http.StatusNotFound, w.Code)
	envelope := decodeError(t, w)
	assert.Equal(t, api.CodeNotFound, envelope.Error.Code)
	assert.Equal(t, "Not Found - /nope", envelope.Error.Message)
}

type stubRepo struct {
	logs []storemodel.RequestLog
}

func (r *stubRepo) Requests() store.RequestRepository { return r }
func (r *stubRepo) Close() error                      { return nil }

func (r *stubRepo) Log(context.Context, *storemodel.RequestLog) error { return nil }

func (r *stubRepo) GetRecent(_ context.Context, limit int) ([]storemodel.RequestLog, error) {
	if limit < len(r.logs) {
		return r.logs[:limit], nil
	}
	return r.logs, nil
}

func (r *stubRepo) GetDailyStats(context.Context, int) ([]storemodel.DailyStats, error) {
	return []storemodel.DailyStats{}, nil
}

func TestRecentRequests(t *testing.T) {
	cfg := &config.Config{
		Server:    config.ServerConfig{Port: "0", Env: "testing"},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
	}
	repo := &stubRepo{logs: []storemodel.RequestLog{
		{ID: "chatcmpl-2", Model: "gpt-4o", Provider: "openai", Status: "ok"},
		{ID: "chatcmpl-1", Model: "deepseek-chat", Provider: "deepseek", Status: "error"},
	}}
	service := gateway.New(registry.NewDefault(), map[api.Provider]llm.Provider{}, nil, zap.NewNop())
	handler := server.New(cfg, zap.NewNop(), service, repo, cache.NewMemory()).Handler()

	w := get(handler, "/api/requests?limit=1")

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Requests []storemodel.RequestLog `json:"requests"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Requests, 1)
	assert.Equal(t, "chatcmpl-2", body.Requests[0].ID)
}

func TestRecentRequests_InvalidLimit(t *testing.T) {
	handler := newTestServer(t, map[api.Provider]llm.Provider{})

	w := get(handler, "/api/requests?limit=0")

	require.Equal(t, http.StatusBadRequest, w.Code)
	envelope := decodeError(t, w)
	assert.Equal(t, api.CodeValidationError, envelope.Error.Code)
	assert.Contains(t, envelope.Error.Details, "limit")
}

func TestRateLimit(t *testing.T) {
	cfg := &config.Config{
		Server:    config.ServerConfig{Port: "0", Env: "testing"},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1},
	}
	service := gateway.New(registry.NewDefault(), map[api.Provider]llm.Provider{}, nil, zap.NewNop())
	handler := server.New(cfg, zap.NewNop(), service, store.Nop{}, cache.NewMemory()).Handler()

	first := get(handler, "/api/stats")
	second := get(handler, "/api/stats")

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
