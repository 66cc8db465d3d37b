package ai

import (
	"context"
	"strings"

	"github.com/finadvisor/platform/internal/config"
)

// NewDefaultRegistry registers a factory for every provider kind the
// platform ships with. Kinds without credentials still register; their
// factories fail at construction time and the snapshot loader skips
// the record.
func NewDefaultRegistry(cfg config.Config) *Registry {
	reg := NewRegistry()

	reg.Register("ollama", func(ctx context.Context, model string) (Provider, error) {
		_ = ctx
		m := strings.TrimSpace(model)
		if m == "" {
			m = cfg.OllamaModel
		}
		return NewOllamaProvider(cfg.OllamaBaseURL, m), nil
	})

	reg.Register("openrouter", func(ctx context.Context, model string) (Provider, error) {
		_ = ctx
		m := strings.TrimSpace(model)
		if m == "" {
			m = cfg.OpenRouterModel
		}
		return NewOpenRouterProvider(cfg.OpenRouterBaseURL, cfg.OpenRouterAPIKey, m, cfg.OpenRouterSiteURL, cfg.OpenRouterAppName), nil
	})

	reg.Register("anthropic", func(ctx context.Context, model string) (Provider, error) {
		_ = ctx
		m := strings.TrimSpace(model)
		if m == "" {
			m = cfg.AnthropicModel
		}
		return NewAnthropicProvider(cfg.AnthropicAPIKey, m), nil
	})

	reg.Register("gemini", func(ctx context.Context, model string) (Provider, error) {
		m := strings.TrimSpace(model)
		if m == "" {
			m = cfg.GeminiModel
		}
		return NewGeminiProvider(ctx, cfg.GeminiAPIKey, m)
	})

	return reg
}
