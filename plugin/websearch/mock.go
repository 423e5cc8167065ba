package websearch

import (
	"context"
	"sync"

	pipeerr "github.com/deskpilot/deskpilot/internal/errors"
)

// MockSearcher is an in-process Searcher for tests.
type MockSearcher struct {
	mu sync.Mutex

	// Results is returned from Search, truncated to numResults.
	Results []Result
	// Fail makes Search return ErrSearchUnavailable.
	Fail bool

	queries []string
}

// NewMockSearcher creates a mock with a couple of canned hits.
func NewMockSearcher() *MockSearcher {
	return &MockSearcher{
		Results: []Result{
			{Title: "Official troubleshooting guide", Snippet: "Step by step fixes for common device problems.", URL: "https://support.example.com/guide"},
			{Title: "Community forum thread", Snippet: "Users discuss the same issue and what worked.", URL: "https://forum.example.com/thread/42"},
			{Title: "Release notes", Snippet: "Latest software update details.", URL: "https://example.com/releases"},
		},
	}
}

// Search returns the canned results.
func (m *MockSearcher) Search(_ context.Context, query string, numResults int) ([]Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return nil, pipeerr.ErrSearchUnavailable
	}
	m.queries = append(m.queries, query)
	if numResults > 0 && numResults < len(m.Results) {
		return m.Results[:numResults], nil
	}
	return m.Results, nil
}

// Queries returns the queries Search received.
func (m *MockSearcher) Queries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queries...)
}

var _ Searcher = (*MockSearcher)(nil)
