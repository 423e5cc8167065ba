package support

import (
	"strings"
	"sync"
	"time"

	pipeerr "github.com/deskpilot/deskpilot/internal/errors"
)

// DefaultFollowUpMaxWords is the word-count ceiling below which a short
// message is treated as a follow-up.
const DefaultFollowUpMaxWords = 6

// followUpIndicators are referential phrases that mark a message as
// depending on prior turns.
var followUpIndicators = []string{
	"it", "that", "this", "what about", "what if", "tell me more", "explain",
	"clarify", "more details", "what else", "other options", "alternatives",
}

// Manager owns all conversation state. Turns on one conversation are
// serialized by a per-conversation lock; state commits only when a turn
// completes, so a cancelled turn leaves history untouched.
type Manager struct {
	mu               sync.Mutex
	conversations    map[string]*conversationSlot
	followUpMaxWords int
}

type conversationSlot struct {
	mu    sync.Mutex
	state ConversationState
}

// NewManager creates a conversation manager. Non-positive maxWords selects
// the default follow-up threshold.
func NewManager(followUpMaxWords int) *Manager {
	if followUpMaxWords <= 0 {
		followUpMaxWords = DefaultFollowUpMaxWords
	}
	return &Manager{
		conversations:    make(map[string]*conversationSlot),
		followUpMaxWords: followUpMaxWords,
	}
}

func (m *Manager) slot(conversationID string) *conversationSlot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.conversations[conversationID]
	if !ok {
		s = &conversationSlot{state: ConversationState{
			ID:        conversationID,
			Phase:     PhaseIdle,
			StartedAt: time.Now(),
		}}
		m.conversations[conversationID] = s
	}
	return s
}

// BeginTurn locks the conversation for one turn and returns a snapshot of
// its state plus a commit function. The caller must invoke the returned
// release exactly once; passing a non-nil completed turn commits it, nil
// abandons the turn without mutating state. A closed conversation rejects
// new turns.
func (m *Manager) BeginTurn(conversationID string) (snapshot ConversationState, release func(*Turn, ConversationPhase), err error) {
	s := m.slot(conversationID)
	s.mu.Lock()

	if s.state.Phase == PhaseClosed {
		s.mu.Unlock()
		return ConversationState{}, nil, pipeerr.ConversationClosed(conversationID)
	}

	snapshot = cloneState(&s.state)
	release = func(turn *Turn, phase ConversationPhase) {
		defer s.mu.Unlock()
		if turn == nil {
			return
		}
		s.state.History = append(s.state.History, *turn)
		s.state.LastCategory = turn.Category
		s.state.LastConfidence = turn.Confidence
		s.state.TurnCount++
		s.state.Phase = phase
		s.state.UpdatedAt = turn.Timestamp
	}
	return snapshot, release, nil
}

// Snapshot returns a copy of the conversation state.
func (m *Manager) Snapshot(conversationID string) ConversationState {
	s := m.slot(conversationID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneState(&s.state)
}

// Close transitions the conversation to Closed. Only external signals close
// a conversation; the pipeline never times one out.
func (m *Manager) Close(conversationID string) {
	s := m.slot(conversationID)
	s.mu.Lock()
	s.state.Phase = PhaseClosed
	s.state.UpdatedAt = time.Now()
	s.mu.Unlock()
}

// Clear removes a conversation entirely, the user-initiated reset.
func (m *Manager) Clear(conversationID string) {
	m.mu.Lock()
	delete(m.conversations, conversationID)
	m.mu.Unlock()
}

// IsFollowUp reports whether the message depends on prior context: it is
// short, carries a referential phrase, or the previous turn ended awaiting
// clarification. A first turn is never a follow-up.
func (m *Manager) IsFollowUp(state *ConversationState, message string) bool {
	if len(state.History) == 0 {
		return false
	}
	if state.Phase == PhaseAwaitingClarification {
		return true
	}
	words := strings.Fields(message)
	if len(words) > 0 && len(words) <= m.followUpMaxWords {
		return true
	}
	lower := strings.ToLower(message)
	for _, indicator := range followUpIndicators {
		if indicator == "it" || indicator == "that" || indicator == "this" {
			if containsWord(lower, indicator) {
				return true
			}
			continue
		}
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

// ExpandFollowUp widens a follow-up message with the prior turn's category
// and content terms so retrieval does not run on an uninformative fragment.
func (m *Manager) ExpandFollowUp(state *ConversationState, message string) string {
	if len(state.History) == 0 {
		return message
	}
	prev := state.History[len(state.History)-1]

	parts := []string{message}
	if prev.Category != "" && prev.Category != CategoryOther {
		parts = append(parts, strings.ToLower(string(prev.Category)))
	}
	for _, term := range topContentWords(strings.ToLower(prev.Query), 4) {
		if !containsWord(strings.ToLower(message), term) {
			parts = append(parts, term)
		}
	}
	return strings.Join(parts, " ")
}

func cloneState(s *ConversationState) ConversationState {
	out := *s
	out.History = append([]Turn(nil), s.History...)
	return out
}
