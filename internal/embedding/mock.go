package embedding

import (
	"context"
	"hash/fnv"
)

// MockClient returns deterministic pseudo-embeddings derived from the input
// text, so similarity comparisons in tests are stable.
type MockClient struct {
	Dim        int
	EmbedError error
	EmbedCalls []string
}

func NewMockClient() *MockClient {
	return &MockClient{Dim: 16}
}

func (m *MockClient) Embed(ctx context.Context, text string) ([]float32, error) {
	m.EmbedCalls = append(m.EmbedCalls, text)
	if m.EmbedError != nil {
		return nil, m.EmbedError
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum32()

	vec := make([]float32, m.Dim)
	for i := range vec {
		seed = seed*1664525 + 1013904223
		vec[i] = float32(seed%1000)/1000.0 - 0.5
	}
	return vec, nil
}
