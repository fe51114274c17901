package deepseek_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nulzo/ai-bridge/internal/config"
	"github.com/nulzo/ai-bridge/internal/llm"
	"github.com/nulzo/ai-bridge/internal/llm/deepseek"
	"github.com/nulzo/ai-bridge/pkg/api"
)

func TestComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer ds-key", r.Header.Get("Authorization"))

		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-ds1",
			"model": "deepseek-chat",
			"choices": [{"message": {"role": "assistant", "content": "hi from deepseek"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 3, "completion_tokens": 4, "total_tokens": 7}
		}`))
	}))
	defer server.Close()

	adapter := deepseek.NewAdapter(config.ProviderConfig{APIKey: "ds-key", BaseURL: server.URL})
	resp, err := adapter.Complete(context.Background(), &api.CompletionRequest{Model: "deepseek-chat", Prompt: "Hi"})

	require.NoError(t, err)
	assert.Equal(t, api.DeepSeek, resp.Provider)
	assert.Equal(t, "hi from deepseek", resp.Content)
	assert.Equal(t, 7, resp.Usage.TotalTokens)
}

func TestComplete_ErrorCodesCarryProviderPrefix(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"message": "max_tokens too large"}}`))
	}))
	defer server.Close()

	adapter := deepseek.NewAdapter(config.ProviderConfig{APIKey: "ds-key", BaseURL: server.URL})
	_, err := adapter.Complete(context.Background(), &api.CompletionRequest{Model: "deepseek-chat", Prompt: "Hi"})

	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "DEEPSEEK_BAD_REQUEST", apiErr.Code)
	assert.Equal(t, "max_tokens too large", apiErr.Message)
}

func TestStream_TerminalChunkOnDoneWithoutFinishReason(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("data: {\"id\":\"chatcmpl-ds2\",\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n\n"))
		_, _ = w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer server.Close()

	adapter := deepseek.NewAdapter(config.ProviderConfig{APIKey: "ds-key", BaseURL: server.URL})
	ch, err := adapter.(llm.Streamer).Stream(context.Background(), &api.CompletionRequest{Model: "deepseek-chat", Prompt: "Hi"})
	require.NoError(t, err)

	var chunks []*api.StreamChunk
	for res := range ch {
		require.NoError(t, res.Err)
		chunks = append(chunks, res.Chunk)
	}

	require.Len(t, chunks, 2)
	assert.False(t, chunks[0].IsLastChunk)
	assert.True(t, chunks[1].IsLastChunk)
	assert.Equal(t, "stop", chunks[1].FinishReason)
}

func TestCheckAvailability_Placeholder(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	adapter := deepseek.NewAdapter(config.ProviderConfig{APIKey: config.PlaceholderDeepSeekKey, BaseURL: server.URL})
	assert.False(t, adapter.CheckAvailability(context.Background()))
	assert.Equal(t, int64(0), calls.Load())
}
