package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nulzo/ai-bridge/internal/httpclient"
	"github.com/nulzo/ai-bridge/internal/platform/logger"
	"github.com/nulzo/ai-bridge/pkg/api"
)

// ProbeTimeout bounds a single availability probe.
const ProbeTimeout = 10 * time.Second

// ChatURL joins a base URL with the chat-completions path.
func ChatURL(baseURL string) string {
	return fmt.Sprintf("%s/chat/completions", strings.TrimRight(baseURL, "/"))
}

// ModelsURL joins a base URL with the model-listing path.
func ModelsURL(baseURL string) string {
	return fmt.Sprintf("%s/models", strings.TrimRight(baseURL, "/"))
}

// BearerHeaders builds the standard auth header set.
func BearerHeaders(apiKey string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + apiKey}
}

// ProbeModels performs the availability probe: GET {base}/models with a
// bounded deadline. Any 2xx response counts as available.
func ProbeModels(ctx context.Context, client httpclient.HTTPClient, baseURL, apiKey string) bool {
	ctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()

	err := httpclient.SendRequest(ctx, client, "GET", ModelsURL(baseURL), BearerHeaders(apiKey), nil, nil)
	return err == nil
}

// ListModels fetches the upstream model catalog.
func ListModels(ctx context.Context, client httpclient.HTTPClient, baseURL, apiKey string) (*ModelList, error) {
	var list ModelList
	if err := httpclient.SendRequest(ctx, client, "GET", ModelsURL(baseURL), BearerHeaders(apiKey), nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// CompleteChat performs one buffered chat completion and normalizes the
// result. Failures come back already classified.
func CompleteChat(ctx context.Context, client httpclient.HTTPClient, p api.Provider, baseURL string, headers map[string]string, req *api.CompletionRequest) (*api.CompletionResponse, error) {
	var completion ChatCompletion
	payload := NewChatPayload(req, false)

	if err := httpclient.SendRequest(ctx, client, "POST", ChatURL(baseURL), headers, payload, &completion); err != nil {
		return nil, ClassifyError(p, err)
	}

	return normalize(&completion, p, req.Model), nil
}

// normalize converts an upstream completion into the canonical response.
// Missing ids are synthesized so the response shape is always complete.
func normalize(c *ChatCompletion, p api.Provider, model string) *api.CompletionResponse {
	id := c.ID
	if id == "" {
		id = "chatcmpl-" + uuid.NewString()
	}
	if c.Model != "" {
		model = c.Model
	}

	var content string
	if len(c.Choices) > 0 {
		content = c.Choices[0].Message.Content
	}

	return &api.CompletionResponse{
		ID:        id,
		Model:     model,
		Provider:  p,
		Content:   content,
		Usage:     c.Usage.Usage(),
		CreatedAt: timestamp(c.Created),
	}
}

func timestamp(created int64) string {
	if created > 0 {
		return time.Unix(created, 0).UTC().Format(time.RFC3339)
	}
	return time.Now().UTC().Format(time.RFC3339)
}

// streamErrorFrame is the in-band error shape some upstreams emit inside an
// otherwise-200 SSE stream.
type streamErrorFrame struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// StreamChat performs a streaming chat completion. The returned channel
// yields content chunks in arrival order and is closed after the terminal
// chunk or a single error result. The worker goroutine exits on caller
// cancellation without blocking on sends.
func StreamChat(ctx context.Context, client httpclient.HTTPClient, p api.Provider, baseURL string, headers map[string]string, req *api.CompletionRequest) (<-chan api.StreamResult, error) {
	ch := make(chan api.StreamResult)
	payload := NewChatPayload(req, true)
	url := ChatURL(baseURL)

	go func() {
		defer close(ch)

		log := logger.Get()
		id := "chatcmpl-" + uuid.NewString()
		model := req.Model
		sentTerminal := false

		emit := func(res api.StreamResult) bool {
			select {
			case ch <- res:
				return true
			case <-ctx.Done():
				return false
			}
		}

		terminal := func(reason string) *api.StreamChunk {
			if reason == "" {
				reason = "stop"
			}
			return &api.StreamChunk{
				ID:           id,
				Model:        model,
				Provider:     p,
				CreatedAt:    timestamp(0),
				FinishReason: reason,
				IsLastChunk:  true,
			}
		}

		err := httpclient.StreamRequest(ctx, client, "POST", url, headers, payload, func(line string) error {
			if !strings.HasPrefix(line, "data:") {
				return nil
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))

			if data == "[DONE]" {
				if !sentTerminal {
					if !emit(api.StreamResult{Chunk: terminal("")}) {
						return ctx.Err()
					}
					sentTerminal = true
				}
				return httpclient.ErrStopStream
			}

			var errFrame streamErrorFrame
			if jsonErr := json.Unmarshal([]byte(data), &errFrame); jsonErr == nil && errFrame.Error != nil {
				return api.UpstreamError(p, 0, errFrame.Error.Message, nil)
			}

			var frame ChatCompletion
			if jsonErr := json.Unmarshal([]byte(data), &frame); jsonErr != nil {
				// Malformed frames are skipped, not fatal.
				log.Warn("skipping malformed stream frame",
					zap.String("provider", string(p)),
					zap.Error(jsonErr))
				return nil
			}
			if frame.ID != "" {
				id = frame.ID
			}
			if frame.Model != "" {
				model = frame.Model
			}
			if len(frame.Choices) == 0 {
				return nil
			}

			choice := frame.Choices[0]
			if choice.FinishReason != "" {
				if choice.Delta.Content != "" {
					if !emit(api.StreamResult{Chunk: &api.StreamChunk{
						ID:        id,
						Model:     model,
						Provider:  p,
						Content:   choice.Delta.Content,
						CreatedAt: timestamp(frame.Created),
					}}) {
						return ctx.Err()
					}
				}
				if !emit(api.StreamResult{Chunk: terminal(choice.FinishReason)}) {
					return ctx.Err()
				}
				sentTerminal = true
				return httpclient.ErrStopStream
			}

			if choice.Delta.Content == "" {
				// Role-only preamble frame.
				return nil
			}
			if !emit(api.StreamResult{Chunk: &api.StreamChunk{
				ID:        id,
				Model:     model,
				Provider:  p,
				Content:   choice.Delta.Content,
				CreatedAt: timestamp(frame.Created),
			}}) {
				return ctx.Err()
			}
			return nil
		})

		if err != nil && ctx.Err() == nil {
			emit(api.StreamResult{Err: ClassifyError(p, err)})
			return
		}
		if err == nil && !sentTerminal && ctx.Err() == nil {
			// Upstream closed the body without [DONE] or a finish_reason.
			emit(api.StreamResult{Chunk: terminal("")})
		}
	}()

	return ch, nil
}
