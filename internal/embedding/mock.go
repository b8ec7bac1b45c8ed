package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

const mockDimensions = 64

// MockClient produces deterministic pseudo-embeddings from token hashes.
// Each token contributes its own hash-seeded component, so identical text
// yields identical vectors and texts sharing tokens yield similar vectors,
// which is enough for tests and local development.
type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (c *MockClient) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, mockDimensions)

	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(token))
		seed := h.Sum64()

		for i := range vec {
			seed = seed*6364136223846793005 + 1442695040888963407
			vec[i] += float32(int64(seed>>11)) / float32(math.MaxInt64>>11)
		}
	}

	// Normalize so cosine similarity behaves.
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec, nil
}
