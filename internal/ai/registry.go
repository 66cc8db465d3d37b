package ai

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// ProviderFactory builds a Provider for a given model name.
type ProviderFactory func(ctx context.Context, model string) (Provider, error)

// Registry maps provider kinds ("ollama", "anthropic", ...) to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]ProviderFactory)}
}

func (r *Registry) Register(kind string, f ProviderFactory) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = f
}

func (r *Registry) Has(kind string) bool {
	kind = strings.ToLower(strings.TrimSpace(kind))
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[kind]
	return ok
}

func (r *Registry) Get(ctx context.Context, kind string, model string) (Provider, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	r.mu.RLock()
	f, ok := r.factories[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown ai provider kind: %s", kind)
	}
	return f(ctx, model)
}
