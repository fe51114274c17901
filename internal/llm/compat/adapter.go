package compat

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/nulzo/ai-bridge/internal/config"
	"github.com/nulzo/ai-bridge/internal/httpclient"
	"github.com/nulzo/ai-bridge/internal/llm"
	"github.com/nulzo/ai-bridge/internal/platform/logger"
	"github.com/nulzo/ai-bridge/pkg/api"
)

func init() {
	llm.Register(api.OpenAICompatible, NewAdapter)
}

// commonModels are candidate ids tried in order when the upstream has no
// working model-listing endpoint. The list is arbitrary but covers the
// servers this adapter is typically pointed at.
var commonModels = []string{
	"local-model",
	"llama3",
	"qwen-max",
	"deepseek-v3",
	"gemini-pro",
}

// Adapter talks to any server implementing the OpenAI chat-completions
// protocol: local inference servers, self-hosted gateways, third-party
// clones. These vary widely in which auxiliary endpoints they support, so
// the availability check degrades through several fallbacks.
type Adapter struct {
	cfg    config.ProviderConfig
	client httpclient.HTTPClient
}

func NewAdapter(cfg config.ProviderConfig) llm.Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8000/v1"
	}
	return &Adapter{
		cfg:    cfg,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

func (a *Adapter) Name() api.Provider {
	return api.OpenAICompatible
}

// CheckAvailability probes the upstream in three stages: the models
// endpoint, then trial completions against common model names, then a
// retry against a model name scraped from the upstream's error text.
// When every stage fails but a real credential is configured it still
// reports true; the caller presumably knows a model id this check does
// not. That makes the positive result "plausibly available" rather than
// a guarantee.
func (a *Adapter) CheckAvailability(ctx context.Context) bool {
	if !a.cfg.Configured() {
		return false
	}

	if llm.ProbeModels(ctx, a.client, a.cfg.BaseURL, a.cfg.APIKey) {
		return true
	}

	for _, model := range commonModels {
		ok, upstream := a.trialCompletion(ctx, model)
		if ok {
			return true
		}
		if upstream == nil {
			continue
		}
		if candidate := scrapeModelName(upstream, model); candidate != "" {
			if ok, _ := a.trialCompletion(ctx, candidate); ok {
				return true
			}
		}
	}

	logger.Warn("compatible endpoint reported available on credential alone",
		zap.String("base_url", a.cfg.BaseURL))
	return true
}

// trialCompletion sends a minimal one-token completion. The upstream error
// is returned for scraping when the failure was an HTTP-level rejection.
func (a *Adapter) trialCompletion(ctx context.Context, model string) (bool, *httpclient.UpstreamError) {
	ctx, cancel := context.WithTimeout(ctx, llm.ProbeTimeout)
	defer cancel()

	payload := llm.ChatPayload{
		Model:     model,
		Messages:  []llm.ChatMessage{{Role: "user", Content: "Hello"}},
		MaxTokens: 1,
	}
	err := httpclient.SendRequest(ctx, a.client, "POST", llm.ChatURL(a.cfg.BaseURL),
		llm.BearerHeaders(a.cfg.APIKey), payload, nil)
	if err == nil {
		return true, nil
	}

	var upstream *httpclient.UpstreamError
	if errors.As(err, &upstream) {
		return false, upstream
	}
	return false, nil
}

// quotedToken matches a model-id-shaped token inside quotes or backticks,
// which is how most servers name known models in their error messages.
var quotedToken = regexp.MustCompile("[`'\"]([A-Za-z0-9][A-Za-z0-9._:/-]*)[`'\"]")

// scrapeModelName pulls a candidate model id out of an upstream error body.
// The tried id is skipped so a "model 'x' not found" echo is never retried.
func scrapeModelName(upstream *httpclient.UpstreamError, tried string) string {
	text := upstream.Message()
	if text == "" {
		text = string(upstream.Body)
	}
	for _, match := range quotedToken.FindAllStringSubmatch(text, -1) {
		if match[1] != tried {
			return match[1]
		}
	}
	return ""
}

func (a *Adapter) Complete(ctx context.Context, req *api.CompletionRequest) (*api.CompletionResponse, error) {
	return llm.CompleteChat(ctx, a.client, api.OpenAICompatible, a.cfg.BaseURL, llm.BearerHeaders(a.cfg.APIKey), req)
}

func (a *Adapter) Stream(ctx context.Context, req *api.CompletionRequest) (<-chan api.StreamResult, error) {
	return llm.StreamChat(ctx, a.client, api.OpenAICompatible, a.cfg.BaseURL, llm.BearerHeaders(a.cfg.APIKey), req)
}
