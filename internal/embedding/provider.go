package embedding

import (
	"fmt"

	"github.com/castellan-ai/castellan/internal/domain"
)

// NewClient builds the configured embedding client.
// Valid providers: openai, mock.
func NewClient(provider, apiKey string) (domain.EmbeddingClient, error) {
	switch provider {
	case "openai":
		if apiKey == "" {
			return nil, fmt.Errorf("openai embedding provider requires an API key")
		}
		return NewOpenAIClient(apiKey), nil
	case "mock":
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", provider)
	}
}
