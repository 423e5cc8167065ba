package support

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/deskpilot/deskpilot/plugin/websearch"
)

// EscalationState tracks the escalator's state machine for one turn:
// NotTriggered, Evaluating, then Triggered and Merged on the search path,
// or the terminal Skipped.
type EscalationState string

const (
	EscalationNotTriggered EscalationState = "not_triggered"
	EscalationEvaluating   EscalationState = "evaluating"
	EscalationTriggered    EscalationState = "triggered"
	EscalationMerged       EscalationState = "merged"
	EscalationSkipped      EscalationState = "skipped"
)

// EscalationReason names which rule fired.
type EscalationReason string

const (
	ReasonNone          EscalationReason = ""
	ReasonLowConfidence EscalationReason = "low_confidence"
	ReasonRecency       EscalationReason = "recency_keyword"
	ReasonLookup        EscalationReason = "lookup_pattern"
)

// recencyKeywords mark questions about current events the knowledge base
// cannot cover.
var recencyKeywords = []string{
	"latest", "recent", "new", "update", "current", "today", "now", "news", "trending",
}

// lookupPrefixes mark general reference questions better served by search.
var lookupPrefixes = []string{
	"what is", "what are", "how to", "where to", "when", "why", "who",
	"compare", "difference", "vs", "alternative",
}

// Escalation is the outcome of one escalator run.
type Escalation struct {
	State    EscalationState
	Reason   EscalationReason
	Addendum string
	Results  []websearch.Result
}

// Escalator decides whether to enrich a response with external web search
// results and merges them in when it does. Search failure is non-fatal; the
// turn falls back to the knowledge base answer alone.
type Escalator struct {
	searcher     websearch.Searcher
	logger       *slog.Logger
	lowThreshold float64
	maxResults   int
}

// NewEscalator creates an escalator. maxResults values below 1 default to 3.
func NewEscalator(searcher websearch.Searcher, logger *slog.Logger, lowThreshold float64, maxResults int) *Escalator {
	if lowThreshold == 0 {
		lowThreshold = DefaultLowThreshold
	}
	if maxResults < 1 {
		maxResults = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Escalator{
		searcher:     searcher,
		logger:       logger,
		lowThreshold: lowThreshold,
		maxResults:   maxResults,
	}
}

// Evaluate runs the trigger rules in order (first match wins): confidence
// below the low threshold, then a recency keyword, then a lookup pattern.
// A triggered escalation rewrites the query with the detected category and
// support terms, runs the search, and formats the addendum. Without a
// configured searcher every trigger degenerates to Skipped.
func (e *Escalator) Evaluate(ctx context.Context, query string, confidence float64, category Category) Escalation {
	esc := Escalation{State: EscalationEvaluating}

	esc.Reason = e.triggerReason(query, confidence)
	if esc.Reason == ReasonNone {
		esc.State = EscalationSkipped
		return esc
	}
	esc.State = EscalationTriggered

	if e.searcher == nil {
		esc.State = EscalationSkipped
		return esc
	}

	rewritten := rewriteSearchQuery(query, category)
	results, err := e.searcher.Search(ctx, rewritten, e.maxResults)
	if err != nil || len(results) == 0 {
		if err != nil {
			e.logger.Warn("web search failed, skipping escalation",
				slog.String("query", rewritten),
				slog.String("error", err.Error()))
		}
		esc.State = EscalationSkipped
		return esc
	}

	esc.Results = results
	esc.Addendum = formatAddendum(results)
	esc.State = EscalationMerged
	return esc
}

func (e *Escalator) triggerReason(query string, confidence float64) EscalationReason {
	if confidence < e.lowThreshold {
		return ReasonLowConfidence
	}
	lower := strings.ToLower(query)
	for _, kw := range recencyKeywords {
		if containsWord(lower, kw) {
			return ReasonRecency
		}
	}
	for _, prefix := range lookupPrefixes {
		if strings.HasPrefix(lower, prefix) || strings.Contains(lower, " "+prefix+" ") {
			return ReasonLookup
		}
	}
	return ReasonNone
}

// containsWord matches kw as a whole word so "new" does not fire on "news"
// being absent, nor "now" on "know".
func containsWord(lower, kw string) bool {
	idx := 0
	for {
		i := strings.Index(lower[idx:], kw)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(kw)
		beforeOK := start == 0 || !isWordByte(lower[start-1])
		afterOK := end == len(lower) || !isWordByte(lower[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}

// rewriteSearchQuery appends support-oriented terms and the detected
// category so a raw user message searches well.
func rewriteSearchQuery(query string, category Category) string {
	rewritten := strings.TrimSpace(query) + " troubleshooting support fix steps solution"
	if category != "" && category != CategoryOther {
		rewritten += " " + strings.ToLower(string(category))
	}
	return rewritten
}

// formatAddendum renders the results as a labeled block appended to the
// knowledge base answer.
func formatAddendum(results []websearch.Result) string {
	var b strings.Builder
	b.WriteString("\n\n---\nAdditional results from the web:\n")
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n   %s\n   %s\n", i+1, r.Title, r.Snippet, r.URL)
	}
	return b.String()
}
