package ai

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachingEmbedderAvoidsRepeatCalls(t *testing.T) {
	inner := NewMockProvider()
	cached := NewCachingEmbedder(inner, 10, time.Minute)

	first, err := cached.Embed(context.Background(), "how do I reset my password")
	require.NoError(t, err)
	second, err := cached.Embed(context.Background(), "how do I reset my password")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.EmbedCalls())
}

func TestCachingEmbedderDoesNotCacheErrors(t *testing.T) {
	inner := NewMockProvider()
	inner.FailEmbed = true
	cached := NewCachingEmbedder(inner, 10, time.Minute)

	_, err := cached.Embed(context.Background(), "anything")
	require.Error(t, err)

	inner.FailEmbed = false
	vector, err := cached.Embed(context.Background(), "anything")
	require.NoError(t, err)
	assert.NotEmpty(t, vector)
	assert.Equal(t, 2, inner.EmbedCalls())
}

func TestCachingEmbedderEvictsOldest(t *testing.T) {
	inner := NewMockProvider()
	cached := NewCachingEmbedder(inner, 3, time.Minute)

	for i := 0; i < 4; i++ {
		_, err := cached.Embed(context.Background(), fmt.Sprintf("query %d", i))
		require.NoError(t, err)
	}
	assert.Equal(t, 3, cached.Len())

	// The oldest entry was evicted, so it embeds again.
	_, err := cached.Embed(context.Background(), "query 0")
	require.NoError(t, err)
	assert.Equal(t, 5, inner.EmbedCalls())
}
