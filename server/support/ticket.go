package support

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"
)

// ticketIDPattern matches ticket references like TK-8F3KQ in user messages.
var ticketIDPattern = regexp.MustCompile(`\bTK-[A-Z0-9]+\b`)

// TicketStore is the external ticketing collaborator. The pipeline hands it
// payloads to persist and looks up existing tickets by id.
type TicketStore interface {
	CreateTicket(ctx context.Context, payload TicketPayload) error
	FindTicket(ctx context.Context, ticketID string) (*TicketRecord, error)
}

// TicketRecord is a persisted ticket as the store reports it back.
type TicketRecord struct {
	TicketID       string    `json:"ticket_id"`
	ConversationID string    `json:"conversation_id"`
	Status         string    `json:"status"`
	Category       Category  `json:"category"`
	Priority       Priority  `json:"priority"`
	Sentiment      Sentiment `json:"sentiment"`
	Tags           []string  `json:"tags"`
	Summary        string    `json:"summary"`
	Transcript     string    `json:"transcript"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewTicketID mints an id like TK-8F3KQNVJ.
func NewTicketID() string {
	return "TK-" + strings.ToUpper(shortuuid.New()[:8])
}

// ExtractTicketID returns the first ticket reference in the text, or "".
func ExtractTicketID(text string) string {
	return ticketIDPattern.FindString(strings.ToUpper(text))
}

// ToTicketPayload builds the handoff record for a conversation: category
// and confidence from the last turn, summary from the first user message,
// tags and sentiment derived from the full user-side transcript.
func ToTicketPayload(state *ConversationState) TicketPayload {
	payload := TicketPayload{
		TicketID:       NewTicketID(),
		ConversationID: state.ID,
		Category:       CategoryOther,
		Priority:       PriorityMedium,
		Sentiment:      SentimentNeutral,
		Transcript:     state.Transcript(),
		CreatedAt:      time.Now(),
	}
	if len(state.History) == 0 {
		payload.Summary = "No conversation recorded"
		return payload
	}

	if state.LastCategory != "" {
		payload.Category = state.LastCategory
	}

	var userText strings.Builder
	for _, turn := range state.History {
		userText.WriteString(turn.Query)
		userText.WriteString("\n")
	}
	joined := userText.String()

	cat := NewCategorizer().Categorize(joined)
	payload.Priority = cat.Priority
	payload.Tags = ExtractTags(joined)
	payload.Sentiment = AnalyzeSentiment(joined)
	payload.Summary = summarize(state.History[0].Query)
	return payload
}

// FormatTicketStatus renders a stored ticket as a chat answer.
func FormatTicketStatus(t *TicketRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ticket %s\n", t.TicketID)
	fmt.Fprintf(&b, "Status: %s | Priority: %s | Category: %s\n", orDefault(t.Status, "Open"), t.Priority, t.Category)
	if !t.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "Created: %s\n", t.CreatedAt.Format("2006-01-02 15:04"))
	}
	if t.Summary != "" {
		fmt.Fprintf(&b, "Issue: %s\n", t.Summary)
	}
	if len(t.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", strings.Join(t.Tags, ", "))
	}
	if t.Sentiment != "" {
		fmt.Fprintf(&b, "Sentiment: %s\n", t.Sentiment)
	}
	if strings.EqualFold(strings.TrimSpace(t.Status), "closed") {
		b.WriteString("Note: this ticket is closed. The steps above were the recommended resolution.\n")
	}
	return b.String()
}

func summarize(text string) string {
	const maxSummary = 120
	text = strings.TrimSpace(text)
	if len(text) <= maxSummary {
		return text
	}
	cut := strings.LastIndexByte(text[:maxSummary], ' ')
	if cut < maxSummary/2 {
		cut = maxSummary
	}
	return text[:cut] + "..."
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
