package factory

import (
	"fmt"

	"course-assistant-be/pkg/llm"
	"course-assistant-be/pkg/llm/anthropic"
	"course-assistant-be/pkg/llm/ollama"
)

type Config struct {
	Provider         string
	Model            string
	AnthropicApiKey  string
	AnthropicBaseURL string
	OllamaBaseURL    string
}

func NewLLMProvider(cfg Config) (llm.Provider, error) {
	switch cfg.Provider {
	case "anthropic":
		if cfg.AnthropicApiKey == "" {
			return nil, fmt.Errorf("anthropic provider requires an api key")
		}
		return anthropic.NewAnthropicProvider(cfg.AnthropicApiKey, cfg.AnthropicBaseURL, cfg.Model), nil
	case "ollama":
		baseURL := cfg.OllamaBaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return ollama.NewOllamaProvider(baseURL, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
