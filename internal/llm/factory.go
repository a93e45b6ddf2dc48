package llm

import "github.com/moot-ai/moot-backend/internal/config"

// CreateProvider builds the appropriate LLM provider from config.
func CreateProvider(cfg *config.Config) LLMProvider {
	baseURL := ""
	if cfg.LLM.BaseURL != nil {
		baseURL = *cfg.LLM.BaseURL
	}

	switch cfg.LLM.Provider {
	case "openai":
		return NewOpenAIProvider(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.MaxTokens, baseURL)
	default:
		// gemini is the default backend
		return NewGeminiProvider(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.MaxTokens, baseURL)
	}
}
