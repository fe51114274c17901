package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/nulzo/ai-bridge/internal/config"
	"github.com/nulzo/ai-bridge/pkg/api"
)

// Provider is the uniform capability set every upstream adapter implements.
// Adapters are stateless aside from their configured credential and base
// URL, which are immutable for the process lifetime.
type Provider interface {
	// Name returns the canonical provider tag.
	Name() api.Provider

	// CheckAvailability reports whether the upstream is usable. It returns
	// false immediately, without any network call, when no real credential
	// is configured.
	CheckAvailability(ctx context.Context) bool

	// Complete issues exactly one buffered chat-completion request.
	Complete(ctx context.Context, req *api.CompletionRequest) (*api.CompletionResponse, error)
}

// Streamer is implemented by adapters with native streaming support. The
// returned channel is a finite, single-pass sequence; the underlying
// transport is released on every exit path, including caller cancellation
// via ctx.
type Streamer interface {
	Stream(ctx context.Context, req *api.CompletionRequest) (<-chan api.StreamResult, error)
}

// ModelLister is implemented by adapters whose upstream exposes runtime
// model discovery. Lookup failures yield an empty catalog, never an error:
// catalog refresh is non-fatal to availability.
type ModelLister interface {
	Models(ctx context.Context) ([]api.Model, error)
}

// Factory constructs an adapter from its provider configuration.
type Factory func(cfg config.ProviderConfig) Provider

var (
	mu        sync.RWMutex
	factories = make(map[api.Provider]Factory)
)

// Register installs a factory for a provider tag. Adapters call this from
// init(); registering the same tag twice is a programming error.
func Register(p api.Provider, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := factories[p]; exists {
		panic(fmt.Sprintf("provider factory %s already registered", p))
	}
	factories[p] = f
}

// Get returns the factory for a provider tag.
func Get(p api.Provider) (Factory, error) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := factories[p]
	if !ok {
		return nil, fmt.Errorf("provider factory not found for: %s", p)
	}
	return f, nil
}
