package gateway

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/nulzo/ai-bridge/internal/config"
	"github.com/nulzo/ai-bridge/internal/llm"
	"github.com/nulzo/ai-bridge/internal/registry"
	"github.com/nulzo/ai-bridge/pkg/api"
)

// Record is the per-request metadata handed to the usage recorder. It
// carries no prompt or completion text.
type Record struct {
	ID               string
	Model            string
	Provider         api.Provider
	Stream           bool
	Status           string
	ErrorCode        string
	PromptChars      int
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	LatencyMs        int64
	CreatedAt        time.Time
}

// Recorder receives usage records. Implementations must not block; the
// analytics ingestor buffers internally.
type Recorder interface {
	Record(rec Record)
}

type nopRecorder struct{}

func (nopRecorder) Record(Record) {}

// Service routes completion requests to the adapter owning the requested
// model. It performs no retries and no translation of adapter errors; a
// failure surfaces to the caller exactly as the adapter classified it.
type Service struct {
	registry *registry.Registry
	adapters map[api.Provider]llm.Provider
	recorder Recorder
	logger   *zap.Logger
}

func New(reg *registry.Registry, adapters map[api.Provider]llm.Provider, recorder Recorder, log *zap.Logger) *Service {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Service{
		registry: reg,
		adapters: adapters,
		recorder: recorder,
		logger:   log,
	}
}

// BuildAdapters instantiates every registered adapter from configuration.
func BuildAdapters(cfg config.ProvidersConfig) (map[api.Provider]llm.Provider, error) {
	byProvider := map[api.Provider]config.ProviderConfig{
		api.OpenAI:           cfg.OpenAI,
		api.DeepSeek:         cfg.DeepSeek,
		api.LiteLLM:          cfg.LiteLLM,
		api.OpenAICompatible: cfg.OpenAICompatible,
	}

	adapters := make(map[api.Provider]llm.Provider, len(byProvider))
	for p, providerCfg := range byProvider {
		factory, err := llm.Get(p)
		if err != nil {
			return nil, err
		}
		adapters[p] = factory(providerCfg)
	}
	return adapters, nil
}

// Registry exposes the model catalog backing this service.
func (s *Service) Registry() *registry.Registry {
	return s.registry
}

// resolve maps a request onto the adapter owning its model. The model must
// exist, the optional provider hint must agree with the model's owner, and
// an adapter must be wired for that owner. No upstream call happens before
// all three checks pass.
func (s *Service) resolve(req *api.CompletionRequest) (api.Model, llm.Provider, *api.Error) {
	model, ok := s.registry.Find(req.Model)
	if !ok {
		return api.Model{}, nil, api.ModelNotFoundError(req.Model)
	}

	if req.Provider != "" && req.Provider != model.Provider {
		return api.Model{}, nil, api.ProviderMismatchError(req.Model, model.Provider, req.Provider)
	}

	adapter, ok := s.adapters[model.Provider]
	if !ok {
		return api.Model{}, nil, api.UnsupportedProviderError(model.Provider)
	}
	return model, adapter, nil
}

// Complete performs one buffered completion.
func (s *Service) Complete(ctx context.Context, req *api.CompletionRequest) (*api.CompletionResponse, error) {
	model, adapter, apiErr := s.resolve(req)
	if apiErr != nil {
		s.recordFailure(req, model.Provider, apiErr, false, time.Now())
		return nil, apiErr
	}

	start := time.Now()
	resp, err := adapter.Complete(ctx, req)
	if err != nil {
		s.recordError(req, model.Provider, err, false, start)
		return nil, err
	}

	s.recorder.Record(Record{
		ID:               resp.ID,
		Model:            resp.Model,
		Provider:         resp.Provider,
		Status:           "ok",
		PromptChars:      len(req.Prompt),
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
		LatencyMs:        time.Since(start).Milliseconds(),
		CreatedAt:        start,
	})
	return resp, nil
}

// Stream performs a streamed completion. Adapters without native streaming
// are served by a buffered call repackaged as a single terminal chunk, so
// every model is streamable from the caller's point of view.
func (s *Service) Stream(ctx context.Context, req *api.CompletionRequest) (<-chan api.StreamResult, error) {
	model, adapter, apiErr := s.resolve(req)
	if apiErr != nil {
		s.recordFailure(req, model.Provider, apiErr, true, time.Now())
		return nil, apiErr
	}

	start := time.Now()
	streamer, ok := adapter.(llm.Streamer)
	if !ok {
		return s.bufferedStream(ctx, adapter, req, model.Provider, start)
	}

	inner, err := streamer.Stream(ctx, req)
	if err != nil {
		s.recordError(req, model.Provider, err, true, start)
		return nil, err
	}
	return s.relay(ctx, inner, req, model.Provider, start), nil
}

// bufferedStream simulates streaming for adapters that only do buffered
// completions: the full response becomes one terminal chunk.
func (s *Service) bufferedStream(ctx context.Context, adapter llm.Provider, req *api.CompletionRequest, p api.Provider, start time.Time) (<-chan api.StreamResult, error) {
	resp, err := adapter.Complete(ctx, req)
	if err != nil {
		s.recordError(req, p, err, true, start)
		return nil, err
	}

	ch := make(chan api.StreamResult, 1)
	ch <- api.StreamResult{Chunk: &api.StreamChunk{
		ID:           resp.ID,
		Model:        resp.Model,
		Provider:     resp.Provider,
		Content:      resp.Content,
		CreatedAt:    resp.CreatedAt,
		FinishReason: "stop",
		IsLastChunk:  true,
	}}
	close(ch)

	s.recorder.Record(Record{
		ID:               resp.ID,
		Model:            resp.Model,
		Provider:         resp.Provider,
		Stream:           true,
		Status:           "ok",
		PromptChars:      len(req.Prompt),
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
		LatencyMs:        time.Since(start).Milliseconds(),
		CreatedAt:        start,
	})
	return ch, nil
}

// relay forwards chunks unchanged and records the request once the stream
// ends. The record is best-effort metadata; streamed usage counts are not
// reported by upstreams and stay zero. Forwards select on ctx so a consumer
// that stops reading mid-stream cannot strand the goroutine on a send.
func (s *Service) relay(ctx context.Context, inner <-chan api.StreamResult, req *api.CompletionRequest, p api.Provider, start time.Time) <-chan api.StreamResult {
	out := make(chan api.StreamResult)
	go func() {
		defer close(out)

		var id string
		status := "ok"
		errorCode := ""
		record := func() {
			s.recorder.Record(Record{
				ID:          id,
				Model:       req.Model,
				Provider:    p,
				Stream:      true,
				Status:      status,
				ErrorCode:   errorCode,
				PromptChars: len(req.Prompt),
				LatencyMs:   time.Since(start).Milliseconds(),
				CreatedAt:   start,
			})
		}

		for res := range inner {
			if res.Chunk != nil && res.Chunk.ID != "" {
				id = res.Chunk.ID
			}
			if res.Err != nil {
				status = "error"
				var apiErr *api.Error
				if errors.As(res.Err, &apiErr) {
					errorCode = apiErr.Code
				}
			}

			select {
			case out <- res:
			case <-ctx.Done():
				// Consumer went away mid-stream. Not an upstream error.
				status = "cancelled"
				record()
				return
			}
		}
		record()
	}()
	return out
}

func (s *Service) recordFailure(req *api.CompletionRequest, p api.Provider, apiErr *api.Error, stream bool, start time.Time) {
	s.recorder.Record(Record{
		Model:       req.Model,
		Provider:    p,
		Stream:      stream,
		Status:      "error",
		ErrorCode:   apiErr.Code,
		PromptChars: len(req.Prompt),
		LatencyMs:   time.Since(start).Milliseconds(),
		CreatedAt:   start,
	})
}

func (s *Service) recordError(req *api.CompletionRequest, p api.Provider, err error, stream bool, start time.Time) {
	code := api.CodeInternalError
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		code = apiErr.Code
	}
	s.recorder.Record(Record{
		Model:       req.Model,
		Provider:    p,
		Stream:      stream,
		Status:      "error",
		ErrorCode:   code,
		PromptChars: len(req.Prompt),
		LatencyMs:   time.Since(start).Milliseconds(),
		CreatedAt:   start,
	})
}
