package llm

import (
	"fmt"
	"strings"
)

const (
	// DefaultOllamaURL is the OpenAI-compatible endpoint of a local Ollama
	DefaultOllamaURL = "http://localhost:11434/v1"

	// DefaultOllamaModel replaces an unset or OpenAI-only model name
	DefaultOllamaModel = "llama3.1"
)

// NewProvider creates a new LLM provider based on configuration.
// An empty provider name disables labelling and returns nil.
func NewProvider(config Config) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		return NewOpenAIProvider(config)

	case "ollama":
		if config.BaseURL == "" {
			config.BaseURL = DefaultOllamaURL
		}
		if config.Model == "" || strings.HasPrefix(config.Model, "gpt-") {
			config.Model = DefaultOllamaModel
		}
		if config.APIKey == "" {
			// Ollama ignores the key but the client requires one
			config.APIKey = "ollama"
		}
		return newCompatibleProvider("ollama", config), nil

	case "":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, ollama)", config.Provider)
	}
}
