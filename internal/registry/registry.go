package registry

import (
	"sync"

	"github.com/nulzo/ai-bridge/pkg/api"
)

// Registry is the in-memory model catalog, partitioned by provider.
// Static partitions are fixed for the process lifetime; the litellm
// partition is replaced wholesale whenever a catalog refresh succeeds.
//
// The merged view concatenates partitions in the fixed order
// openai, deepseek, litellm, openai_compatible; lookups resolve duplicate
// ids to the first partition in that order.
type Registry struct {
	mu       sync.RWMutex
	statics  map[api.Provider][]api.Model
	dynamic  []api.Model // litellm partition
	fallback []api.Model // substituted when a refresh yields nothing
}

// New builds a registry over the given static catalogs. fallback is the
// litellm partition used whenever a refresh fails or returns empty; it may
// be empty but the dynamic partition is never nil.
func New(statics map[api.Provider][]api.Model, fallback []api.Model) *Registry {
	if fallback == nil {
		fallback = []api.Model{}
	}
	return &Registry{
		statics:  statics,
		dynamic:  fallback,
		fallback: fallback,
	}
}

// NewDefault builds a registry over the built-in static catalogs with an
// empty litellm fallback.
func NewDefault() *Registry {
	return New(map[api.Provider][]api.Model{
		api.OpenAI:           OpenAIModels,
		api.DeepSeek:         DeepSeekModels,
		api.OpenAICompatible: CompatibleModels,
	}, nil)
}

// ListAll returns the merged catalog. The slice is recomputed on every call
// from the partitions; callers may keep it without affecting the registry.
func (r *Registry) ListAll() []api.Model {
	r.mu.RLock()
	defer r.mu.RUnlock()

	merged := make([]api.Model, 0,
		len(r.statics[api.OpenAI])+len(r.statics[api.DeepSeek])+len(r.dynamic)+len(r.statics[api.OpenAICompatible]))
	merged = append(merged, r.statics[api.OpenAI]...)
	merged = append(merged, r.statics[api.DeepSeek]...)
	merged = append(merged, r.dynamic...)
	merged = append(merged, r.statics[api.OpenAICompatible]...)
	return merged
}

// Find returns the first model with the given id in partition order.
func (r *Registry) Find(id string) (api.Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, part := range [][]api.Model{
		r.statics[api.OpenAI],
		r.statics[api.DeepSeek],
		r.dynamic,
		r.statics[api.OpenAICompatible],
	} {
		for _, m := range part {
			if m.ID == id {
				return m, true
			}
		}
	}
	return api.Model{}, false
}

// Partition returns the current catalog for one provider.
func (r *Registry) Partition(p api.Provider) []api.Model {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p == api.LiteLLM {
		out := make([]api.Model, len(r.dynamic))
		copy(out, r.dynamic)
		return out
	}
	out := make([]api.Model, len(r.statics[p]))
	copy(out, r.statics[p])
	return out
}

// ReplaceDynamic atomically swaps the litellm partition. An empty or nil
// input substitutes the configured fallback, so readers never observe a nil
// partition. Concurrent swaps are last-writer-wins; there are no merge
// semantics.
func (r *Registry) ReplaceDynamic(models []api.Model) {
	if len(models) == 0 {
		models = r.fallback
	}

	r.mu.Lock()
	r.dynamic = models
	r.mu.Unlock()
}
