package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ziadkadry99/promptgenie/internal/keys"
)

// Options selects and configures a provider.
type Options struct {
	Provider          string // groq, openai, openrouter, ollama
	Model             string
	BaseURL           string // overrides the provider's default endpoint
	RequestsPerMinute int    // 0 disables rate limiting
}

// NewProvider creates an LLM provider. Keyed providers draw credentials from
// rotator on every call; an empty pool only fails when a call is made.
func NewProvider(opts Options, rotator keys.Rotator, logger *zap.Logger) (Provider, error) {
	if rotator == nil {
		rotator = keys.NewPool(nil)
	}

	var p Provider
	switch opts.Provider {
	case "groq":
		p = NewOpenAICompatibleProvider("groq", orDefault(opts.BaseURL, GroqBaseURL), opts.Model, rotator, logger)
	case "openai":
		p = NewOpenAICompatibleProvider("openai", opts.BaseURL, opts.Model, rotator, logger)
	case "openrouter":
		p = NewOpenAICompatibleProvider("openrouter", orDefault(opts.BaseURL, OpenRouterBaseURL), opts.Model, rotator, logger)
	case "ollama":
		p = NewOllamaProvider(opts.BaseURL, opts.Model)
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", opts.Provider)
	}

	if opts.RequestsPerMinute > 0 {
		p = NewRateLimitedProvider(p, opts.RequestsPerMinute)
	}
	return p, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
