package appwiring

import (
	"fmt"
	"net/http"

	"github.com/shaneholloman/summarize/internal/config"
	"github.com/shaneholloman/summarize/internal/llm"
	"github.com/shaneholloman/summarize/internal/model"
)

// defaultBaseURLs are the provider-native OpenAI-compatible endpoints a
// CompatClient talks to absent a config/env override.
var defaultBaseURLs = map[string]string{
	"openai":    "https://api.openai.com/v1",
	"xai":       "https://api.x.ai/v1",
	"google":    "https://generativelanguage.googleapis.com/v1beta/openai",
	"anthropic": "https://api.anthropic.com/v1",
}

// NewLLMClientFactory returns a constructor dispatching each model ID
// to the right wire implementation: OpenRouter's native SDK for the
// "openrouter" provider, a CompatClient for everything else, per spec
// §4.1's model-selection design.
func NewLLMClientFactory(cfg *config.Config) func(model.ID) (llm.Client, error) {
	return func(id model.ID) (llm.Client, error) {
		if id.Provider == "openrouter" {
			apiKey := config.ProviderCredential("openrouter")
			if apiKey == "" {
				return nil, fmt.Errorf("appwiring: no OPENROUTER_API_KEY configured")
			}
			return llm.NewOpenRouterClient(apiKey, id.Name, "summarize", ""), nil
		}

		apiKey := config.ProviderCredential(id.Provider)
		if apiKey == "" {
			return nil, fmt.Errorf("appwiring: no credentials configured for provider %q", id.Provider)
		}

		baseURL := defaultBaseURLs[id.Provider]
		shape := llm.ShapeResponses
		switch id.Provider {
		case "openai":
			if cfg.OpenAIBaseURL != "" {
				baseURL = cfg.OpenAIBaseURL
				shape = llm.ShapeChatCompletions
			}
			if cfg.OpenAIUseChatCompletions {
				shape = llm.ShapeChatCompletions
			}
		case "anthropic":
			if cfg.AnthropicBaseURL != "" {
				baseURL = cfg.AnthropicBaseURL
			}
			shape = llm.ShapeChatCompletions
		default:
			shape = llm.ShapeChatCompletions
		}

		if baseURL == "" {
			return nil, fmt.Errorf("appwiring: no base URL known for provider %q", id.Provider)
		}

		return &llm.CompatClient{
			HTTP:    &http.Client{},
			BaseURL: baseURL,
			APIKey:  apiKey,
			Model:   id.Name,
			Shape:   shape,
		}, nil
	}
}
