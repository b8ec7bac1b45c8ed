package embedding

import (
	"context"
	"fmt"

	"github.com/castellan-ai/castellan/internal/domain"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient embeds text with the OpenAI embeddings API.
type OpenAIClient struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

func NewOpenAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		model:  openai.SmallEmbedding3,
	}
}

func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: c.model,
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: openai embeddings: %v", domain.ErrCollaboratorUnavailable, err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: openai embeddings: empty response", domain.ErrCollaboratorUnavailable)
	}
	return resp.Data[0].Embedding, nil
}
