package llm

import (
	"fmt"

	"AgriPolicy/internal/config"
	"AgriPolicy/internal/rag/interfaces"
)

// GenerationError reports a generation backend failure. The
// orchestrator maps it to a failed answer rather than a transport error.
type GenerationError struct {
	Provider string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s generation failed: %v", e.Provider, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// NewClient creates a generation client for the configured provider.
func NewClient(cfg config.LLMConfig) (interfaces.LLM, error) {
	switch cfg.Provider {
	case "gemini":
		return NewGemini(cfg.Gemini.APIKey, cfg.Gemini.Model)
	case "openai":
		return NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model)
	case "ollama":
		return NewOllama(cfg.Ollama.Model, cfg.Ollama.Host)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
