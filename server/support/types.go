// Package support implements the support-query answering pipeline:
// categorization, confidence scoring, grounded response generation, web
// search escalation, and multi-turn conversation tracking.
package support

import (
	"strings"
	"time"
)

// Category labels a support query with one discrete topic.
type Category string

const (
	CategoryAccount     Category = "Account"
	CategoryPayment     Category = "Payment"
	CategoryTechnical   Category = "Technical"
	CategoryBug         Category = "Bug"
	CategoryPerformance Category = "Performance"
	CategoryFeature     Category = "Feature"
	CategoryBattery     Category = "Battery"
	CategorySecurity    Category = "Security"
	CategoryOther       Category = "Other"
)

// Priority orders tickets and answers by urgency.
type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

// bump raises the priority by one level, saturating at Critical.
func (p Priority) bump() Priority {
	switch p {
	case PriorityLow:
		return PriorityMedium
	case PriorityMedium:
		return PriorityHigh
	default:
		return PriorityCritical
	}
}

// Sentiment is a coarse read of the user's mood, attached to tickets.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// ConfidenceTier is the discrete band a confidence score falls into. It
// drives the branching behavior of the pipeline.
type ConfidenceTier string

const (
	TierHigh   ConfidenceTier = "high"
	TierMedium ConfidenceTier = "medium"
	TierLow    ConfidenceTier = "low"
)

// Query is one inbound user message. Transient; only its completed Turn is
// persisted into conversation history.
type Query struct {
	Text           string
	ConversationID string
	Timestamp      time.Time
}

// Categorization is the categorizer's verdict for one query.
type Categorization struct {
	Category  Category
	Priority  Priority
	Certainty float64
}

// Response is the pipeline's answer to one query.
type Response struct {
	Text       string
	Tier       ConfidenceTier
	Confidence float64
	Category   Category
	Priority   Priority
	Sources    []string
	// Degraded marks answers produced by the template fallback after a
	// generation failure.
	Degraded bool
	// Escalated is true when a web search addendum was merged in.
	Escalated bool
	// NeedsClarification asks the user for more detail on medium or low
	// tier answers that escalation did not resolve.
	NeedsClarification bool
	// TicketID is set when the turn resolved a ticket status lookup.
	TicketID string
}

// Turn is one completed exchange in a conversation.
type Turn struct {
	Query      string
	Answer     string
	Category   Category
	Tier       ConfidenceTier
	Confidence float64
	Timestamp  time.Time
}

// ConversationPhase is the lifecycle state of one conversation.
type ConversationPhase string

const (
	PhaseIdle                  ConversationPhase = "idle"
	PhaseActive                ConversationPhase = "active"
	PhaseAwaitingClarification ConversationPhase = "awaiting_clarification"
	PhaseClosed                ConversationPhase = "closed"
)

// ConversationState holds everything the pipeline remembers about one
// conversation. Owned exclusively by the Manager; snapshots returned to
// callers are copies.
type ConversationState struct {
	ID             string
	Phase          ConversationPhase
	History        []Turn
	LastCategory   Category
	LastConfidence float64
	TurnCount      int
	StartedAt      time.Time
	UpdatedAt      time.Time
}

// Transcript renders the history as alternating user and assistant lines.
func (s *ConversationState) Transcript() string {
	var b strings.Builder
	for _, turn := range s.History {
		b.WriteString("User: ")
		b.WriteString(turn.Query)
		b.WriteString("\nAssistant: ")
		b.WriteString(turn.Answer)
		b.WriteString("\n")
	}
	return b.String()
}

// TicketPayload is the handoff record for the external ticketing system.
type TicketPayload struct {
	TicketID       string    `json:"ticket_id"`
	ConversationID string    `json:"conversation_id"`
	Category       Category  `json:"category"`
	Priority       Priority  `json:"priority"`
	Sentiment      Sentiment `json:"sentiment"`
	Tags           []string  `json:"tags"`
	Summary        string    `json:"summary"`
	Transcript     string    `json:"transcript"`
	CreatedAt      time.Time `json:"created_at"`
}
