package api

// Provider identifies one upstream LLM vendor or proxy.
type Provider string

const (
	OpenAI           Provider = "openai"
	DeepSeek         Provider = "deepseek"
	LiteLLM          Provider = "litellm"
	OpenAICompatible Provider = "openai_compatible"
)

// Providers lists every known provider tag in registry partition order.
// Model lookup resolves duplicate ids to the first partition in this order.
var Providers = []Provider{OpenAI, DeepSeek, LiteLLM, OpenAICompatible}

// ParseProvider validates a raw provider tag.
func ParseProvider(s string) (Provider, bool) {
	for _, p := range Providers {
		if string(p) == s {
			return p, true
		}
	}
	return "", false
}

// Model describes one entry in the merged catalog.
type Model struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Provider    Provider `json:"provider"`
	Description string   `json:"description,omitempty"`
	// MaxTokens is advisory catalog metadata; it is never enforced
	// against a request's max_tokens.
	MaxTokens int `json:"max_tokens,omitempty"`
}

// CompletionRequest is the provider-agnostic inbound request shape.
// Constructed once per call and treated as immutable afterwards.
type CompletionRequest struct {
	Model       string   `json:"model" binding:"required"`
	Prompt      string   `json:"prompt" binding:"required,min=1,max=32000"`
	MaxTokens   int      `json:"max_tokens,omitempty" binding:"omitempty,gt=0,lte=32000"`
	Temperature *float64 `json:"temperature,omitempty" binding:"omitempty,gte=0,lte=2"`
	Provider    Provider `json:"provider,omitempty" binding:"omitempty,oneof=openai deepseek litellm openai_compatible"`
	Stream      bool     `json:"stream,omitempty"`
}

// DefaultTemperature applies when a request omits temperature.
const DefaultTemperature = 0.7

// EffectiveTemperature returns the request temperature or the default.
func (r *CompletionRequest) EffectiveTemperature() float64 {
	if r.Temperature == nil {
		return DefaultTemperature
	}
	return *r.Temperature
}

// Usage carries upstream-reported token counts. Missing upstream fields
// default to zero; the totals are passed through verbatim and never
// recomputed, even when prompt+completion != total.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionResponse is the canonical buffered result.
type CompletionResponse struct {
	ID        string   `json:"id"`
	Model     string   `json:"model"`
	Provider  Provider `json:"provider"`
	Content   string   `json:"content"`
	Usage     Usage    `json:"usage"`
	CreatedAt string   `json:"created_at"`
}

// StreamChunk is one incremental frame of a streamed completion.
// Concatenating the Content of every chunk in order reproduces the text a
// buffered call would have returned. Exactly one chunk per stream carries
// IsLastChunk=true and it is always the final one.
type StreamChunk struct {
	ID           string   `json:"id"`
	Model        string   `json:"model"`
	Provider     Provider `json:"provider"`
	Content      string   `json:"content"`
	CreatedAt    string   `json:"created_at"`
	FinishReason string   `json:"finish_reason,omitempty"`
	IsLastChunk  bool     `json:"is_last_chunk"`
}

// StreamResult is the channel element for streamed completions. Exactly one
// of Chunk or Err is set. After an Err the channel is closed.
type StreamResult struct {
	Chunk *StreamChunk
	Err   error
}
