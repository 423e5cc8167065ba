package ai

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pipeerr "github.com/deskpilot/deskpilot/internal/errors"
)

func TestMockEmbedDeterministic(t *testing.T) {
	m := NewMockProvider()
	ctx := context.Background()

	a, err := m.Embed(ctx, "my phone screen is cracked")
	require.NoError(t, err)
	b, err := m.Embed(ctx, "my phone screen is cracked")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, MockDimension)
	assert.InDelta(t, 1.0, cosine(a, a), 1e-6)
}

func TestMockEmbedSimilarity(t *testing.T) {
	m := NewMockProvider()
	ctx := context.Background()

	screen, err := m.Embed(ctx, "phone screen cracked touch broken")
	require.NoError(t, err)
	related, err := m.Embed(ctx, "cracked phone screen")
	require.NoError(t, err)
	unrelated, err := m.Embed(ctx, "invoice refund billing transaction")
	require.NoError(t, err)

	assert.Greater(t, cosine(screen, related), cosine(screen, unrelated))
}

func TestHashEmbeddingNormalized(t *testing.T) {
	vec := HashEmbedding("restart the device and update software", 64)
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 1e-6)

	empty := HashEmbedding("", 64)
	assert.Len(t, empty, 64)
}

func TestMockFailures(t *testing.T) {
	m := NewMockProvider()
	m.FailEmbed = true
	m.FailChat = true
	ctx := context.Background()

	_, err := m.Embed(ctx, "anything")
	assert.ErrorIs(t, err, pipeerr.ErrEmbeddingUnavailable)

	_, err = m.Chat(ctx, []Message{UserMessage("hello")}, 256)
	assert.ErrorIs(t, err, pipeerr.ErrGenerationUnavailable)
}

func TestMockChatScripted(t *testing.T) {
	m := NewMockProvider()
	m.ChatFunc = func(messages []Message, _ int) (string, error) {
		require.NotEmpty(t, messages)
		return "scripted", nil
	}

	out, err := m.Chat(context.Background(), []Message{SystemPrompt("s"), UserMessage("u")}, 64)
	require.NoError(t, err)
	assert.Equal(t, "scripted", out)
	assert.Equal(t, 1, m.ChatCalls())
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
