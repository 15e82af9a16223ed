package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/watchtower/internal/model"
)

// NewProvider creates a review provider based on configuration. An empty
// provider name returns (nil, nil): review is disabled.
func NewProvider(cfg model.LLMConfig) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return NewOpenAIProvider(cfg)

	case "ollama":
		return NewOllamaProvider(cfg)

	case "":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, ollama)", cfg.Provider)
	}
}
