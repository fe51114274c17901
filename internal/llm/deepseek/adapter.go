package deepseek

import (
	"context"
	"net/http"
	"time"

	"github.com/nulzo/ai-bridge/internal/config"
	"github.com/nulzo/ai-bridge/internal/httpclient"
	"github.com/nulzo/ai-bridge/internal/llm"
	"github.com/nulzo/ai-bridge/pkg/api"
)

func init() {
	llm.Register(api.DeepSeek, NewAdapter)
}

// Adapter talks to the DeepSeek API, which is wire-compatible with the
// OpenAI chat-completions protocol.
type Adapter struct {
	cfg    config.ProviderConfig
	client httpclient.HTTPClient
}

func NewAdapter(cfg config.ProviderConfig) llm.Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.deepseek.com/v1"
	}
	return &Adapter{
		cfg:    cfg,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

func (a *Adapter) Name() api.Provider {
	return api.DeepSeek
}

func (a *Adapter) CheckAvailability(ctx context.Context) bool {
	if !a.cfg.Configured() {
		return false
	}
	return llm.ProbeModels(ctx, a.client, a.cfg.BaseURL, a.cfg.APIKey)
}

func (a *Adapter) Complete(ctx context.Context, req *api.CompletionRequest) (*api.CompletionResponse, error) {
	return llm.CompleteChat(ctx, a.client, api.DeepSeek, a.cfg.BaseURL, llm.BearerHeaders(a.cfg.APIKey), req)
}

func (a *Adapter) Stream(ctx context.Context, req *api.CompletionRequest) (<-chan api.StreamResult, error) {
	return llm.StreamChat(ctx, a.client, api.DeepSeek, a.cfg.BaseURL, llm.BearerHeaders(a.cfg.APIKey), req)
}
