package litellm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/nulzo/ai-bridge/internal/config"
	"github.com/nulzo/ai-bridge/internal/httpclient"
	"github.com/nulzo/ai-bridge/internal/llm"
	"github.com/nulzo/ai-bridge/internal/platform/logger"
	"github.com/nulzo/ai-bridge/pkg/api"
)

func init() {
	llm.Register(api.LiteLLM, NewAdapter)
}

// defaultMaxTokens is the advisory limit advertised for proxied models; the
// proxy does not report per-model limits.
const defaultMaxTokens = 100000

// Adapter talks to a LiteLLM proxy. The proxy fans out to whatever backends
// it is configured with, so the model catalog is discovered at runtime
// rather than declared statically. Streaming is not supported through the
// proxy; callers fall back to a buffered completion.
type Adapter struct {
	cfg    config.ProviderConfig
	client httpclient.HTTPClient
}

func NewAdapter(cfg config.ProviderConfig) llm.Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:4000"
	}
	return &Adapter{
		cfg:    cfg,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

func (a *Adapter) Name() api.Provider {
	return api.LiteLLM
}

func (a *Adapter) CheckAvailability(ctx context.Context) bool {
	if !a.cfg.Configured() {
		return false
	}
	return llm.ProbeModels(ctx, a.client, a.cfg.BaseURL, a.cfg.APIKey)
}

func (a *Adapter) Complete(ctx context.Context, req *api.CompletionRequest) (*api.CompletionResponse, error) {
	return llm.CompleteChat(ctx, a.client, api.LiteLLM, a.cfg.BaseURL, llm.BearerHeaders(a.cfg.APIKey), req)
}

// Models fetches the proxy's model list and synthesizes catalog metadata
// from the bare ids. Discovery failure yields an empty catalog, never an
// error: the registry falls back to its configured defaults.
func (a *Adapter) Models(ctx context.Context) ([]api.Model, error) {
	list, err := llm.ListModels(ctx, a.client, a.cfg.BaseURL, a.cfg.APIKey)
	if err != nil {
		logger.Warn("litellm model discovery failed", zap.Error(err))
		return []api.Model{}, nil
	}

	models := make([]api.Model, 0, len(list.Data))
	for _, entry := range list.Data {
		if entry.ID == "" {
			continue
		}
		ownedBy := entry.OwnedBy
		if ownedBy == "" {
			ownedBy = "Unknown"
		}
		models = append(models, api.Model{
			ID:          entry.ID,
			Name:        displayName(entry.ID),
			Provider:    api.LiteLLM,
			Description: fmt.Sprintf("%s model", ownedBy),
			MaxTokens:   defaultMaxTokens,
		})
	}
	return models, nil
}

// displayName turns a model id like "deepseek-v3" into "Deepseek V3".
func displayName(id string) string {
	parts := strings.Split(id, "-")
	for i, part := range parts {
		if part == "" {
			continue
		}
		runes := []rune(part)
		runes[0] = unicode.ToUpper(runes[0])
		parts[i] = string(runes)
	}
	return strings.Join(parts, " ")
}
