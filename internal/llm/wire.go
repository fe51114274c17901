package llm

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/nulzo/ai-bridge/internal/httpclient"
	"github.com/nulzo/ai-bridge/pkg/api"
)

// All four upstreams speak the OpenAI chat-completions wire protocol. The
// shapes below are shared by every adapter; per-provider quirks live in the
// adapters themselves.

// ChatMessage is one turn of a chat conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatPayload is the outbound request body for POST {base}/chat/completions.
type ChatPayload struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

// NewChatPayload converts a canonical request into the upstream wire shape.
// The prompt becomes a single user message.
func NewChatPayload(req *api.CompletionRequest, stream bool) ChatPayload {
	return ChatPayload{
		Model:       req.Model,
		Messages:    []ChatMessage{{Role: "user", Content: req.Prompt}},
		Temperature: req.EffectiveTemperature(),
		MaxTokens:   req.MaxTokens,
		Stream:      stream,
	}
}

// ChatCompletion is the buffered response body.
type ChatCompletion struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Created int64        `json:"created"`
	Choices []ChatChoice `json:"choices"`
	Usage   ChatUsage    `json:"usage"`
}

// ChatChoice carries either a full message (buffered) or a delta (streamed).
type ChatChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	Delta        ChatDelta   `json:"delta"`
	FinishReason string      `json:"finish_reason"`
}

// ChatDelta is the incremental content fragment of one streamed frame.
type ChatDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Usage converts the wire usage block into the canonical shape. Counts are
// passed through verbatim.
func (u ChatUsage) Usage() api.Usage {
	return api.Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
}

// ModelList is the response body of GET {base}/models.
type ModelList struct {
	Data []ModelEntry `json:"data"`
}

type ModelEntry struct {
	ID      string `json:"id"`
	OwnedBy string `json:"owned_by"`
}

// labels maps provider tags to the human-readable names used in error
// messages.
var labels = map[api.Provider]string{
	api.OpenAI:           "OpenAI",
	api.DeepSeek:         "DeepSeek",
	api.LiteLLM:          "LiteLLM",
	api.OpenAICompatible: "OpenAI-compatible",
}

// Label returns the display name for a provider tag.
func Label(p api.Provider) string {
	if l, ok := labels[p]; ok {
		return l
	}
	return string(p)
}

// ClassifyError maps a transport-level failure to the canonical error shape.
// Already-canonical errors pass through unchanged so classification is
// idempotent across layers.
func ClassifyError(p api.Provider, err error) *api.Error {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var upstream *httpclient.UpstreamError
	if errors.As(err, &upstream) {
		switch upstream.StatusCode {
		case http.StatusUnauthorized:
			return api.UnauthorizedError(p, fmt.Sprintf("Invalid %s API key", Label(p))).WithLog(err)
		case http.StatusTooManyRequests:
			return api.RateLimitError(p, fmt.Sprintf("%s rate limit exceeded", Label(p))).WithLog(err)
		case http.StatusBadRequest:
			msg := upstream.Message()
			if msg == "" {
				msg = fmt.Sprintf("Bad request to %s API", Label(p))
			}
			return api.UpstreamBadRequestError(p, msg).WithLog(err)
		default:
			msg := upstream.Message()
			if msg == "" {
				msg = fmt.Sprintf("%s API error (status %d)", Label(p), upstream.StatusCode)
			}
			return api.UpstreamError(p, upstream.StatusCode, msg, err)
		}
	}

	return api.UpstreamError(p, http.StatusInternalServerError,
		fmt.Sprintf("Failed to connect to %s API", Label(p)), err)
}
