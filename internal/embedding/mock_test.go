package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func embed(t *testing.T, c *MockClient, text string) []float32 {
	t.Helper()
	vec, err := c.Embed(context.Background(), text)
	require.NoError(t, err)
	require.Len(t, vec, mockDimensions)
	return vec
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestMockClient_Deterministic(t *testing.T) {
	c := NewMockClient()
	a := embed(t, c, "cast Maya Chen in thriller")
	b := embed(t, c, "cast Maya Chen in thriller")
	assert.Equal(t, a, b)
}

func TestMockClient_SharedTokensYieldSimilarVectors(t *testing.T) {
	c := NewMockClient()

	base := embed(t, c, "cast Maya Chen in thriller")
	overlapping := embed(t, c, "cast Maya Chen in comedy")
	disjoint := embed(t, c, "approved stunt budget increase")

	assert.Greater(t, cosine(base, overlapping), cosine(base, disjoint),
		"token overlap must move vectors closer than unrelated text")
	assert.Greater(t, cosine(base, overlapping), 0.5)
}

func TestMockClient_NormalizedOutput(t *testing.T) {
	c := NewMockClient()
	vec := embed(t, c, "shortlist")

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)
}
