package ai

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"

	pipeerr "github.com/deskpilot/deskpilot/internal/errors"
)

// MockDimension is the vector dimension used by the mock embedder.
const MockDimension = 64

// MockProvider is a deterministic in-process implementation of Embedder and
// Generator for tests. Embeddings are L2-normalized bag-of-words vectors:
// identical texts embed identically and texts sharing words score high
// cosine similarity, which is enough to exercise retrieval behavior.
type MockProvider struct {
	mu sync.Mutex

	// ChatFunc overrides the canned chat response when set.
	ChatFunc func(messages []Message, maxTokens int) (string, error)
	// EmbedFunc overrides the hashed embedding when set.
	EmbedFunc func(text string) ([]float32, error)
	// FailEmbed makes Embed return ErrEmbeddingUnavailable.
	FailEmbed bool
	// FailChat makes Chat return ErrGenerationUnavailable.
	FailChat bool

	embedCalls int
	chatCalls  int
}

// NewMockProvider creates a mock provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// Embed returns a deterministic vector for the text.
func (m *MockProvider) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.embedCalls++
	fail := m.FailEmbed
	fn := m.EmbedFunc
	m.mu.Unlock()
	if fail {
		return nil, pipeerr.ErrEmbeddingUnavailable
	}
	if fn != nil {
		return fn(text)
	}
	return HashEmbedding(text, MockDimension), nil
}

// Chat returns the scripted response, or a canned acknowledgment.
func (m *MockProvider) Chat(_ context.Context, messages []Message, maxTokens int) (string, error) {
	m.mu.Lock()
	m.chatCalls++
	fail := m.FailChat
	fn := m.ChatFunc
	m.mu.Unlock()
	if fail {
		return "", pipeerr.ErrGenerationUnavailable
	}
	if fn != nil {
		return fn(messages, maxTokens)
	}
	return "Based on our documentation, here is what I found to help with your issue.", nil
}

// EmbedCalls reports how many times Embed was invoked.
func (m *MockProvider) EmbedCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.embedCalls
}

// ChatCalls reports how many times Chat was invoked.
func (m *MockProvider) ChatCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.chatCalls
}

// HashEmbedding builds an L2-normalized bag-of-words vector of the given
// dimension. Exported so store and kb tests can embed fixtures without
// wiring a provider.
func HashEmbedding(text string, dim int) []float32 {
	vec := make([]float64, dim)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:\"'()[]")
		if word == "" {
			continue
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		vec[h.Sum32()%uint32(dim)]++
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	result := make([]float32, dim)
	if norm == 0 {
		return result
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		result[i] = float32(v / norm)
	}
	return result
}

var (
	_ Embedder  = (*MockProvider)(nil)
	_ Generator = (*MockProvider)(nil)
)
