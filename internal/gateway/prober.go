package gateway

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/nulzo/ai-bridge/internal/llm"
	"github.com/nulzo/ai-bridge/pkg/api"
)

// AvailableProviders probes every adapter concurrently and returns the
// per-provider availability map. The probes are independent; the only
// shared write is the registry's dynamic-partition swap, which is a single
// atomic replace with last-writer-wins semantics.
//
// This is called per request from the models, providers, and health
// handlers rather than cached, so each response reflects live upstream
// state.
func (s *Service) AvailableProviders(ctx context.Context) map[api.Provider]bool {
	var (
		mu        sync.Mutex
		available = make(map[api.Provider]bool, len(api.Providers))
		wg        sync.WaitGroup
	)

	for _, p := range api.Providers {
		adapter, ok := s.adapters[p]
		if !ok {
			available[p] = false
			continue
		}

		wg.Add(1)
		go func(p api.Provider, adapter llm.Provider) {
			defer wg.Done()
			up := adapter.CheckAvailability(ctx)
			mu.Lock()
			available[p] = up
			mu.Unlock()
		}(p, adapter)
	}
	wg.Wait()

	if available[api.LiteLLM] {
		s.refreshDynamicModels(ctx)
	}
	return available
}

// refreshDynamicModels pulls the proxy's current catalog into the
// registry's dynamic partition. Best-effort: a failed or empty fetch falls
// back to the configured defaults and never fails the probe.
func (s *Service) refreshDynamicModels(ctx context.Context) {
	adapter, ok := s.adapters[api.LiteLLM]
	if !ok {
		return
	}
	lister, ok := adapter.(llm.ModelLister)
	if !ok {
		return
	}

	models, err := lister.Models(ctx)
	if err != nil {
		s.logger.Warn("dynamic model refresh failed", zap.Error(err))
		return
	}
	s.registry.ReplaceDynamic(models)
	s.logger.Debug("dynamic model partition refreshed", zap.Int("models", len(models)))
}
