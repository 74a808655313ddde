package factory

import (
	"fmt"

	"manual-chatbot-be/pkg/llm"
	"manual-chatbot-be/pkg/llm/gemini"
	"manual-chatbot-be/pkg/llm/huggingface"
	"manual-chatbot-be/pkg/llm/ollama"
)

func NewLLMProvider(providerType, modelName, baseURL, apiKey string) (llm.LLMProvider, error) {
	switch providerType {
	case "ollama":
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	case "gemini":
		if apiKey == "" {
			return nil, fmt.Errorf("gemini LLM provider requires GOOGLE_GEMINI_API_KEY")
		}
		return gemini.NewProvider(apiKey, modelName), nil
	case "huggingface":
		return huggingface.NewHuggingFaceProvider(apiKey, "", modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
