package factory

import (
	"fmt"

	"manual-chatbot-be/pkg/embedding"
	"manual-chatbot-be/pkg/embedding/jina"
)

type Options struct {
	OllamaBaseURL string
	OllamaModel   string
	GeminiAPIKey  string
	JinaAPIKey    string
}

func NewEmbeddingProvider(providerType string, opts Options) (embedding.EmbeddingProvider, error) {
	switch providerType {
	case "", "local":
		return embedding.NewLocalProvider(embedding.DefaultLocalDimension), nil
	case "ollama":
		return embedding.NewOllamaProvider(opts.OllamaBaseURL, opts.OllamaModel), nil
	case "gemini":
		if opts.GeminiAPIKey == "" {
			return nil, fmt.Errorf("gemini embedding provider requires GOOGLE_GEMINI_API_KEY")
		}
		return embedding.NewGeminiProvider(opts.GeminiAPIKey), nil
	case "jina":
		if opts.JinaAPIKey == "" {
			return nil, fmt.Errorf("jina embedding provider requires JINA_API_KEY")
		}
		return jina.NewJinaProvider(opts.JinaAPIKey), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", providerType)
	}
}
