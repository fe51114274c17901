package gateway_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nulzo/ai-bridge/internal/gateway"
	"github.com/nulzo/ai-bridge/internal/llm"
	"github.com/nulzo/ai-bridge/pkg/api"
)

// listingAdapter implements model discovery on top of the stub.
type listingAdapter struct {
	stubAdapter
	models []api.Model
}

func (l *listingAdapter) Models(ctx context.Context) ([]api.Model, error) {
	return l.models, nil
}

func TestAvailableProviders_ProbesAllConcurrently(t *testing.T) {
	openai := &stubAdapter{provider: api.OpenAI, available: true}
	deepseek := &stubAdapter{provider: api.DeepSeek, available: false}
	proxy := &stubAdapter{provider: api.LiteLLM, available: false}
	compat := &stubAdapter{provider: api.OpenAICompatible, available: true}

	svc := gateway.New(testRegistry(), map[api.Provider]llm.Provider{
		api.OpenAI:           openai,
		api.DeepSeek:         deepseek,
		api.LiteLLM:          proxy,
		api.OpenAICompatible: compat,
	}, nil, zap.NewNop())

	available := svc.AvailableProviders(context.Background())

	assert.Equal(t, map[api.Provider]bool{
		api.OpenAI:           true,
		api.DeepSeek:         false,
		api.LiteLLM:          false,
		api.OpenAICompatible: true,
	}, available)

	for _, a := range []*stubAdapter{openai, deepseek, proxy, compat} {
		assert.Equal(t, int64(1), a.probes.Load())
	}
}

func TestAvailableProviders_MissingAdapterReportsFalse(t *testing.T) {
	svc := gateway.New(testRegistry(), map[api.Provider]llm.Provider{}, nil, zap.NewNop())

	available := svc.AvailableProviders(context.Background())
	for _, p := range api.Providers {
		assert.False(t, available[p])
	}
}

func TestAvailableProviders_RefreshesDynamicPartitionWhenProxyIsUp(t *testing.T) {
	discovered := []api.Model{
		{ID: "mixtral", Name: "Mixtral", Provider: api.LiteLLM},
		{ID: "command-r", Name: "Command R", Provider: api.LiteLLM},
	}
	proxy := &listingAdapter{
		stubAdapter: stubAdapter{provider: api.LiteLLM, available: true},
		models:      discovered,
	}
	reg := testRegistry()
	svc := gateway.New(reg, map[api.Provider]llm.Provider{api.LiteLLM: proxy}, nil, zap.NewNop())

	available := svc.AvailableProviders(context.Background())
	require.True(t, available[api.LiteLLM])

	assert.Equal(t, discovered, reg.Partition(api.LiteLLM))
}

func TestAvailableProviders_DownProxyKeepsExistingPartition(t *testing.T) {
	proxy := &listingAdapter{
		stubAdapter: stubAdapter{provider: api.LiteLLM, available: false},
		models:      []api.Model{{ID: "mixtral", Provider: api.LiteLLM}},
	}
	reg := testRegistry()
	before := reg.Partition(api.LiteLLM)
	svc := gateway.New(reg, map[api.Provider]llm.Provider{api.LiteLLM: proxy}, nil, zap.NewNop())

	available := svc.AvailableProviders(context.Background())
	require.False(t, available[api.LiteLLM])

	assert.Equal(t, before, reg.Partition(api.LiteLLM))
}
