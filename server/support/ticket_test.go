package support

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTicketID(t *testing.T) {
	pattern := regexp.MustCompile(`^TK-[A-Z0-9]{8}$`)
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewTicketID()
		assert.Regexp(t, pattern, id)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestExtractTicketID(t *testing.T) {
	assert.Equal(t, "TK-8F3KQNVJ", ExtractTicketID("what happened to tk-8f3kqnvj?"))
	assert.Equal(t, "TK-A1", ExtractTicketID("status of TK-A1 please"))
	assert.Empty(t, ExtractTicketID("no ticket here"))
	assert.Empty(t, ExtractTicketID("TKX-123"))
}

func TestToTicketPayload(t *testing.T) {
	state := &ConversationState{
		ID:           "conv-1",
		LastCategory: CategoryPayment,
		History: []Turn{
			{Query: "I was charged twice for my subscription and I want a refund, this is urgent", Answer: "Let me check that.", Category: CategoryPayment},
			{Query: "it failed again, terrible", Answer: "Escalating now.", Category: CategoryPayment},
		},
	}

	payload := ToTicketPayload(state)
	assert.Regexp(t, `^TK-[A-Z0-9]{8}$`, payload.TicketID)
	assert.Equal(t, "conv-1", payload.ConversationID)
	assert.Equal(t, CategoryPayment, payload.Category)
	// Urgency terms in the user text bump Payment above its High base.
	assert.Equal(t, PriorityCritical, payload.Priority)
	assert.Equal(t, SentimentNegative, payload.Sentiment)
	assert.Contains(t, payload.Tags, "payment")
	assert.Contains(t, payload.Summary, "charged twice")
	assert.Contains(t, payload.Transcript, "User: I was charged twice")
	assert.Contains(t, payload.Transcript, "Assistant: Escalating now.")
	assert.WithinDuration(t, time.Now(), payload.CreatedAt, time.Minute)
}

func TestToTicketPayloadEmptyConversation(t *testing.T) {
	payload := ToTicketPayload(&ConversationState{ID: "conv-2"})
	assert.Equal(t, CategoryOther, payload.Category)
	assert.Equal(t, PriorityMedium, payload.Priority)
	assert.Equal(t, SentimentNeutral, payload.Sentiment)
	assert.Equal(t, "No conversation recorded", payload.Summary)
}

func TestFormatTicketStatus(t *testing.T) {
	record := &TicketRecord{
		TicketID:  "TK-ABC12345",
		Status:    "Closed",
		Category:  CategoryBug,
		Priority:  PriorityHigh,
		Sentiment: SentimentNegative,
		Tags:      []string{"bug", "mobile"},
		Summary:   "App crashes on startup",
		CreatedAt: time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
	}

	out := FormatTicketStatus(record)
	require.Contains(t, out, "Ticket TK-ABC12345")
	assert.Contains(t, out, "Status: Closed | Priority: High | Category: Bug")
	assert.Contains(t, out, "Created: 2026-03-02 09:30")
	assert.Contains(t, out, "Issue: App crashes on startup")
	assert.Contains(t, out, "Tags: bug, mobile")
	assert.Contains(t, out, "this ticket is closed")

	blank := FormatTicketStatus(&TicketRecord{TicketID: "TK-1", Priority: PriorityMedium, Category: CategoryOther})
	assert.Contains(t, blank, "Status: Open")
}
