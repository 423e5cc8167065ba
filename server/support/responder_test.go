package support

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskpilot/deskpilot/plugin/ai"
	"github.com/deskpilot/deskpilot/server/kb"
)

func retrievalFixture() kb.RetrievalResult {
	return kb.RetrievalResult{
		{Chunk: &kb.Chunk{DocumentID: "billing", Ordinal: 0, Text: "Refunds take five business days."}, Score: 0.91},
		{Chunk: &kb.Chunk{DocumentID: "billing", Ordinal: 2, Text: "Disputes are handled by the payments team."}, Score: 0.55},
	}
}

func TestResponderPromptContents(t *testing.T) {
	provider := ai.NewMockProvider()
	var captured []ai.Message
	provider.ChatFunc = func(messages []ai.Message, maxTokens int) (string, error) {
		captured = messages
		return "generated answer", nil
	}
	r := NewResponder(provider, nil, 0, 0)

	history := []Turn{{Query: "earlier question", Answer: "earlier answer"}}
	text, degraded := r.Generate(context.Background(), "where is my refund?", retrievalFixture(), history)
	assert.Equal(t, "generated answer", text)
	assert.False(t, degraded)

	require.Len(t, captured, 2)
	assert.Equal(t, "system", captured[0].Role)
	prompt := captured[1].Content
	// Excerpts appear in descending-score order with source tags.
	first := strings.Index(prompt, "[source:billing#0]")
	second := strings.Index(prompt, "[source:billing#2]")
	require.GreaterOrEqual(t, first, 0)
	require.Greater(t, second, first)
	assert.Contains(t, prompt, "Refunds take five business days.")
	assert.Contains(t, prompt, "User: earlier question")
	assert.Contains(t, prompt, "Assistant: earlier answer")
	assert.Contains(t, prompt, "Customer question: where is my refund?")
}

func TestResponderHistoryTruncation(t *testing.T) {
	provider := ai.NewMockProvider()
	var prompt string
	provider.ChatFunc = func(messages []ai.Message, maxTokens int) (string, error) {
		prompt = messages[1].Content
		return "ok", nil
	}
	r := NewResponder(provider, nil, 3, 200)

	var history []Turn
	for i := 0; i < 6; i++ {
		history = append(history, Turn{
			Query:  fmt.Sprintf("question number %d with some padding text", i),
			Answer: fmt.Sprintf("answer number %d with some padding text", i),
		})
	}
	_, _ = r.Generate(context.Background(), "current", nil, history)

	// Only the newest turns fit the window and budget.
	assert.NotContains(t, prompt, "question number 0")
	assert.NotContains(t, prompt, "question number 2")
	assert.Contains(t, prompt, "question number 5")
}

func TestResponderTemplateFallback(t *testing.T) {
	provider := ai.NewMockProvider()
	provider.FailChat = true
	r := NewResponder(provider, nil, 0, 0)

	text, degraded := r.Generate(context.Background(), "where is my refund?", retrievalFixture(), nil)
	assert.True(t, degraded)
	assert.Contains(t, text, "[source:billing#0]")
	assert.Contains(t, text, "Refunds take five business days.")
}

func TestResponderTemplateFallbackEmptyRetrieval(t *testing.T) {
	provider := ai.NewMockProvider()
	provider.FailChat = true
	r := NewResponder(provider, nil, 0, 0)

	text, degraded := r.Generate(context.Background(), "anything", nil, nil)
	assert.True(t, degraded)
	assert.Contains(t, text, "more detail")
}

func TestResponderBlankGenerationFallsBack(t *testing.T) {
	provider := ai.NewMockProvider()
	provider.ChatFunc = func([]ai.Message, int) (string, error) { return "   ", nil }
	r := NewResponder(provider, nil, 0, 0)

	text, degraded := r.Generate(context.Background(), "q", retrievalFixture(), nil)
	assert.True(t, degraded)
	assert.Contains(t, text, "[source:billing#0]")
}
