package support

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/deskpilot/deskpilot/plugin/ai"
	"github.com/deskpilot/deskpilot/server/kb"
)

const (
	// DefaultHistoryWindow bounds how many prior turns the prompt carries.
	DefaultHistoryWindow = 10
	// DefaultContextCharBudget caps the history text fed into the prompt.
	// When over budget the oldest turns are dropped first.
	DefaultContextCharBudget = 2000

	responderMaxTokens = 600

	systemPrompt = `You are a customer support assistant. Answer using only the knowledge base excerpts provided. Cite the excerpts you used by their source tags. If the excerpts do not cover the question, say so and ask for the detail you need. Be concise and actionable.`
)

// Responder builds grounded prompts and invokes the generative model,
// falling back to a deterministic template when generation fails.
type Responder struct {
	generator         ai.Generator
	logger            *slog.Logger
	historyWindow     int
	contextCharBudget int
}

// NewResponder creates a responder. Non-positive window or budget values
// select the defaults.
func NewResponder(generator ai.Generator, logger *slog.Logger, historyWindow, contextCharBudget int) *Responder {
	if historyWindow <= 0 {
		historyWindow = DefaultHistoryWindow
	}
	if contextCharBudget <= 0 {
		contextCharBudget = DefaultContextCharBudget
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{
		generator:         generator,
		logger:            logger,
		historyWindow:     historyWindow,
		contextCharBudget: contextCharBudget,
	}
}

// Generate produces the answer text for a query. The returned degraded flag
// is true when the model was unavailable and the template fallback was
// used; generation failure is never surfaced to the caller as an error.
func (r *Responder) Generate(ctx context.Context, query string, result kb.RetrievalResult, history []Turn) (text string, degraded bool) {
	messages := r.buildMessages(query, result, history)

	answer, err := r.generator.Chat(ctx, messages, responderMaxTokens)
	if err != nil {
		r.logger.Warn("generation failed, using template fallback",
			slog.String("error", err.Error()))
		return r.templateAnswer(query, result), true
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return r.templateAnswer(query, result), true
	}
	return answer, false
}

// buildMessages assembles system instructions, the retrieved excerpts in
// descending-score order with source tags, the bounded recent history, and
// the current query.
func (r *Responder) buildMessages(query string, result kb.RetrievalResult, history []Turn) []ai.Message {
	var user strings.Builder

	if len(result) > 0 {
		user.WriteString("Knowledge base excerpts:\n")
		for _, sc := range result {
			fmt.Fprintf(&user, "[source:%s] (similarity %.2f)\n%s\n\n", sc.Chunk.Ref(), sc.Score, sc.Chunk.Text)
		}
	} else {
		user.WriteString("Knowledge base excerpts: none found.\n\n")
	}

	if ctxText := r.historyContext(history); ctxText != "" {
		user.WriteString("Recent conversation:\n")
		user.WriteString(ctxText)
		user.WriteString("\n")
	}

	user.WriteString("Customer question: ")
	user.WriteString(query)

	return []ai.Message{
		ai.SystemPrompt(systemPrompt),
		ai.UserMessage(user.String()),
	}
}

// historyContext renders up to historyWindow prior turns, newest last.
// When the rendered text exceeds the character budget, whole turns are
// dropped oldest-first until it fits.
func (r *Responder) historyContext(history []Turn) string {
	if len(history) == 0 {
		return ""
	}
	start := len(history) - r.historyWindow
	if start < 0 {
		start = 0
	}
	window := history[start:]

	for len(window) > 0 {
		rendered := renderTurns(window)
		if len(rendered) <= r.contextCharBudget {
			return rendered
		}
		window = window[1:]
	}
	return ""
}

func renderTurns(turns []Turn) string {
	var b strings.Builder
	for _, turn := range turns {
		b.WriteString("User: ")
		b.WriteString(turn.Query)
		b.WriteString("\nAssistant: ")
		b.WriteString(turn.Answer)
		b.WriteString("\n")
	}
	return b.String()
}

// templateAnswer is the deterministic fallback built from the top retrieved
// chunk. With nothing retrieved it asks for more detail instead.
func (r *Responder) templateAnswer(query string, result kb.RetrievalResult) string {
	best := result.Best()
	if best == nil {
		return "I could not find anything in our knowledge base about that. " +
			"Could you share more detail about what you are seeing, including any error messages?"
	}
	excerpt := best.Chunk.Text
	const maxExcerpt = 600
	if len(excerpt) > maxExcerpt {
		excerpt = excerpt[:maxExcerpt] + "..."
	}
	return fmt.Sprintf(
		"Here is the most relevant information from our knowledge base [source:%s]:\n\n%s\n\nIf this does not resolve your issue, please reply with more detail.",
		best.Chunk.Ref(), excerpt)
}
