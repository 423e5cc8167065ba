package support

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pipeerr "github.com/deskpilot/deskpilot/internal/errors"
)

func commitTurn(t *testing.T, m *Manager, id, query, answer string, category Category, phase ConversationPhase) {
	t.Helper()
	_, release, err := m.BeginTurn(id)
	require.NoError(t, err)
	release(&Turn{Query: query, Answer: answer, Category: category, Tier: TierHigh, Timestamp: time.Now()}, phase)
}

func TestManagerCommitOnComplete(t *testing.T) {
	m := NewManager(0)

	state, release, err := m.BeginTurn("c1")
	require.NoError(t, err)
	assert.Equal(t, PhaseIdle, state.Phase)
	assert.Empty(t, state.History)

	release(&Turn{Query: "q", Answer: "a", Category: CategoryBug, Confidence: 0.62, Timestamp: time.Now()}, PhaseActive)

	got := m.Snapshot("c1")
	assert.Equal(t, PhaseActive, got.Phase)
	assert.Equal(t, 1, got.TurnCount)
	require.Len(t, got.History, 1)
	assert.Equal(t, CategoryBug, got.LastCategory)
	assert.Equal(t, 0.62, got.LastConfidence)
}

func TestManagerConfidenceNotVisibleUntilCommit(t *testing.T) {
	m := NewManager(0)
	commitTurn(t, m, "c1", "first", "answer", CategoryAccount, PhaseActive)

	_, release, err := m.BeginTurn("c1")
	require.NoError(t, err)
	release(nil, PhaseActive)
	assert.Zero(t, m.Snapshot("c1").LastConfidence)

	_, release, err = m.BeginTurn("c1")
	require.NoError(t, err)
	release(&Turn{Query: "q", Answer: "a", Category: CategoryAccount, Confidence: 0.8, Timestamp: time.Now()}, PhaseActive)
	assert.Equal(t, 0.8, m.Snapshot("c1").LastConfidence)
}

func TestManagerAbandonedTurnLeavesStateUntouched(t *testing.T) {
	m := NewManager(0)
	commitTurn(t, m, "c1", "first", "answer", CategoryAccount, PhaseActive)

	_, release, err := m.BeginTurn("c1")
	require.NoError(t, err)
	release(nil, PhaseActive)

	got := m.Snapshot("c1")
	assert.Equal(t, 1, got.TurnCount)
	assert.Len(t, got.History, 1)
}

func TestManagerClosedRejectsTurns(t *testing.T) {
	m := NewManager(0)
	commitTurn(t, m, "c1", "q", "a", CategoryOther, PhaseActive)
	m.Close("c1")

	_, _, err := m.BeginTurn("c1")
	assert.True(t, pipeerr.IsCode(err, pipeerr.ErrCodeConversationClosed))
}

func TestManagerClearResets(t *testing.T) {
	m := NewManager(0)
	commitTurn(t, m, "c1", "q", "a", CategoryOther, PhaseActive)
	m.Close("c1")
	m.Clear("c1")

	_, release, err := m.BeginTurn("c1")
	require.NoError(t, err)
	release(nil, PhaseIdle)
}

func TestManagerSerializesTurnsPerConversation(t *testing.T) {
	m := NewManager(0)
	const turns = 20
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, release, err := m.BeginTurn("c1")
			if err != nil {
				return
			}
			release(&Turn{Query: "q", Answer: "a", Timestamp: time.Now()}, PhaseActive)
		}()
	}
	wg.Wait()
	assert.Equal(t, turns, m.Snapshot("c1").TurnCount)
}

func TestIsFollowUp(t *testing.T) {
	m := NewManager(0)
	empty := &ConversationState{}
	active := &ConversationState{
		Phase:   PhaseActive,
		History: []Turn{{Query: "my screen is flickering", Category: CategoryBug}},
	}
	awaiting := &ConversationState{
		Phase:   PhaseAwaitingClarification,
		History: []Turn{{Query: "something is wrong"}},
	}

	// First turn is never a follow-up, however short.
	assert.False(t, m.IsFollowUp(empty, "it broke"))

	assert.True(t, m.IsFollowUp(active, "what if it's black?"))
	assert.True(t, m.IsFollowUp(active, "tell me more"))
	assert.True(t, m.IsFollowUp(active, "short message"))
	assert.True(t, m.IsFollowUp(awaiting, "the long detailed replacement question about my new unrelated printer problem"))
	assert.False(t, m.IsFollowUp(active, "my completely separate question concerns the billing cycle for annual subscription plans"))
}

func TestExpandFollowUp(t *testing.T) {
	m := NewManager(0)
	state := &ConversationState{
		History: []Turn{{Query: "my screen is flickering badly", Category: CategoryBug}},
	}

	expanded := m.ExpandFollowUp(state, "what if it's black?")
	assert.Contains(t, expanded, "what if it's black?")
	assert.Contains(t, expanded, "bug")
	assert.Contains(t, expanded, "screen")

	// Terms already present are not repeated.
	again := m.ExpandFollowUp(state, "the screen again")
	assert.Equal(t, 1, strings.Count(again, "screen"))
}
