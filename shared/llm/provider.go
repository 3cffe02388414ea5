// Package llm wraps the hosted generation APIs behind one small interface.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/forge-ai/jsforge/shared/config"
)

// Provider is one hosted model API. Implementations own their transport and auth.
type Provider interface {
	// Generate sends prompt as a single user turn and returns the raw text reply.
	Generate(ctx context.Context, prompt string) (string, error)
	// Name is the human-facing provider name, e.g. "Gemini".
	Name() string
}

const requestTimeout = 90 * time.Second

var defaultModels = map[string]string{
	config.ProviderGemini:     "gemini-2.0-flash",
	config.ProviderOpenAI:     "gpt-4o",
	config.ProviderAnthropic:  "claude-sonnet-4-5",
	config.ProviderOpenRouter: "anthropic/claude-sonnet-4.5",
}

// New builds the provider selected by cfg.Provider.
func New(ctx context.Context, cfg config.Config) (Provider, error) {
	model := cfg.Model
	if model == "" {
		model = defaultModels[cfg.Provider]
	}
	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGeminiProvider(ctx, cfg.APIKey, model)
	case config.ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey, model, cfg.BaseURL), nil
	case config.ProviderAnthropic:
		return NewAnthropicProvider(cfg.APIKey, model), nil
	case config.ProviderOpenRouter:
		return NewOpenRouterProvider(cfg.APIKey, model), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: requestTimeout}
}
