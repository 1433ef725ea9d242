package embedding

import (
	"fmt"

	"AgriPolicy/internal/config"
	"AgriPolicy/internal/rag/interfaces"
)

// NewModel creates an embedding model client for the configured
// provider. The returned model's Name() identifies provider and model
// together; the index manifest records it so that a query is never
// scored against vectors from a different embedding space.
func NewModel(cfg config.EmbeddingConfig) (interfaces.EmbeddingModel, error) {
	switch cfg.Provider {
	case "gemini":
		return NewGoogleModel(cfg.Gemini.APIKey, cfg.Gemini.Model)
	case "openai":
		return NewOpenAIModel(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model)
	case "ollama":
		return NewOllamaModel(cfg.Ollama.Model, cfg.Ollama.Host)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}
