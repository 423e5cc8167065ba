package support

import (
	"context"
	"log/slog"
	"time"

	"github.com/deskpilot/deskpilot/server/internal/observability"
	"github.com/deskpilot/deskpilot/server/kb"
)

// Pipeline wires the full turn flow: ticket lookup short-circuit,
// categorization, retrieval, confidence scoring, response generation,
// escalation, and conversation commit. Query-time failures never surface
// to the user as errors; the pipeline degrades to the best available
// answer and flags the degraded path.
type Pipeline struct {
	retriever    *kb.Retriever
	categorizer  *Categorizer
	scorer       *Scorer
	responder    *Responder
	escalator    *Escalator
	conversation *Manager
	tickets      TicketStore
	metrics      *observability.Metrics
	logger       *slog.Logger
}

// PipelineOptions collects the pipeline's collaborators. Retriever,
// Responder, and Conversation are required; a nil TicketStore disables the
// ticket boundary and a nil Escalator disables web escalation.
type PipelineOptions struct {
	Retriever    *kb.Retriever
	Categorizer  *Categorizer
	Scorer       *Scorer
	Responder    *Responder
	Escalator    *Escalator
	Conversation *Manager
	Tickets      TicketStore
	Metrics      *observability.Metrics
	Logger       *slog.Logger
}

// NewPipeline assembles a pipeline from its parts, defaulting the purely
// computational collaborators.
func NewPipeline(opts PipelineOptions) *Pipeline {
	if opts.Categorizer == nil {
		opts.Categorizer = NewCategorizer()
	}
	if opts.Scorer == nil {
		opts.Scorer = NewScorer(0, 0, 0, 0)
	}
	if opts.Conversation == nil {
		opts.Conversation = NewManager(0)
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.GlobalMetrics()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Pipeline{
		retriever:    opts.Retriever,
		categorizer:  opts.Categorizer,
		scorer:       opts.Scorer,
		responder:    opts.Responder,
		escalator:    opts.Escalator,
		conversation: opts.Conversation,
		tickets:      opts.Tickets,
		metrics:      opts.Metrics,
		logger:       opts.Logger,
	}
}

// Conversations exposes the conversation manager for the transport layer.
func (p *Pipeline) Conversations() *Manager { return p.conversation }

// HandleTurn processes one inbound message end to end. The conversation is
// locked for the duration; history commits only when the turn completes, so
// cancellation mid-turn leaves state untouched.
func (p *Pipeline) HandleTurn(ctx context.Context, query Query) (Response, error) {
	reqCtx := observability.NewRequestContext(p.logger, query.ConversationID)
	ctx = observability.WithRequestContext(ctx, reqCtx)
	start := time.Now()
	if query.Timestamp.IsZero() {
		query.Timestamp = start
	}

	state, release, err := p.conversation.BeginTurn(query.ConversationID)
	if err != nil {
		return Response{}, err
	}
	committed := false
	defer func() {
		if !committed {
			release(nil, state.Phase)
		}
	}()

	if resp, handled := p.tryTicketLookup(ctx, query); handled {
		turn := completedTurn(query, resp)
		release(&turn, PhaseActive)
		committed = true
		p.metrics.RecordTurn(resp.Degraded, time.Since(start))
		return resp, nil
	}

	cat := p.categorizer.Categorize(query.Text)

	retrievalQuery := query.Text
	followUp := p.conversation.IsFollowUp(&state, query.Text)
	if followUp {
		retrievalQuery = p.conversation.ExpandFollowUp(&state, query.Text)
		if cat.Category == CategoryOther && state.LastCategory != "" {
			cat.Category = state.LastCategory
		}
		reqCtx.Debug("follow-up detected", slog.String("expanded_query", retrievalQuery))
	}

	result, degraded := p.retrieve(ctx, reqCtx, retrievalQuery)
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}

	confidence := p.scorer.Score(result, cat.Certainty)
	tier := p.scorer.Tier(confidence)

	text, genDegraded := p.responder.Generate(ctx, query.Text, result, state.History)
	degraded = degraded || genDegraded
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}

	resp := Response{
		Text:       text,
		Tier:       tier,
		Confidence: confidence,
		Category:   cat.Category,
		Priority:   cat.Priority,
		Sources:    result.Refs(),
		Degraded:   degraded,
	}

	if p.escalator != nil {
		esc := p.escalator.Evaluate(ctx, query.Text, confidence, cat.Category)
		if esc.State == EscalationMerged {
			resp.Text += esc.Addendum
			resp.Escalated = true
			p.metrics.RecordEscalation()
		}
		if err := ctx.Err(); err != nil {
			return Response{}, err
		}
	}

	phase := PhaseActive
	if tier != TierHigh && !resp.Escalated {
		resp.NeedsClarification = true
		phase = PhaseAwaitingClarification
	}

	turn := completedTurn(query, resp)
	release(&turn, phase)
	committed = true

	p.metrics.RecordTurn(resp.Degraded, time.Since(start))
	reqCtx.Info("turn completed",
		slog.String(observability.LogFieldTier, string(tier)),
		slog.Float64("confidence", confidence),
		slog.String("category", string(cat.Category)),
		slog.Bool(observability.LogFieldDegraded, resp.Degraded),
		slog.Bool("escalated", resp.Escalated),
		slog.Int64("duration_ms", reqCtx.DurationMs()))
	return resp, nil
}

// retrieve runs the retriever, degrading to an empty result when embedding
// is unavailable. Context cancellation is left for the caller to observe.
func (p *Pipeline) retrieve(ctx context.Context, reqCtx *observability.RequestContext, query string) (kb.RetrievalResult, bool) {
	result, err := p.retriever.Retrieve(ctx, query)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false
		}
		reqCtx.Warn("retrieval degraded", slog.String("error", err.Error()))
		return nil, true
	}
	return result, false
}

// tryTicketLookup answers ticket status questions directly when the message
// carries a ticket id and a ticket store is configured.
func (p *Pipeline) tryTicketLookup(ctx context.Context, query Query) (Response, bool) {
	if p.tickets == nil {
		return Response{}, false
	}
	ticketID := ExtractTicketID(query.Text)
	if ticketID == "" {
		return Response{}, false
	}

	record, err := p.tickets.FindTicket(ctx, ticketID)
	resp := Response{
		Tier:     TierHigh,
		Category: CategoryTechnical,
		Priority: PriorityMedium,
		TicketID: ticketID,
	}
	switch {
	case err != nil:
		resp.Text = "I could not look up ticket " + ticketID + " right now. Please try again in a moment."
		resp.Degraded = true
	case record == nil:
		resp.Text = "I could not find a ticket with id " + ticketID + ". Please check the id and try again."
		resp.Tier = TierMedium
	default:
		resp.Text = FormatTicketStatus(record)
		resp.Category = record.Category
		resp.Priority = record.Priority
	}
	return resp, true
}

// CreateTicket converts the conversation into a ticket payload, persists it
// through the ticket store, and closes the conversation.
func (p *Pipeline) CreateTicket(ctx context.Context, conversationID string) (TicketPayload, error) {
	state := p.conversation.Snapshot(conversationID)
	payload := ToTicketPayload(&state)

	if p.tickets != nil {
		if err := p.tickets.CreateTicket(ctx, payload); err != nil {
			return TicketPayload{}, err
		}
	}
	p.conversation.Close(conversationID)
	p.metrics.RecordTicket()
	p.logger.Info("ticket created",
		slog.String("ticket_id", payload.TicketID),
		slog.String("conversation_id", conversationID),
		slog.String("category", string(payload.Category)),
		slog.String("priority", string(payload.Priority)))
	return payload, nil
}

func completedTurn(query Query, resp Response) Turn {
	return Turn{
		Query:      query.Text,
		Answer:     resp.Text,
		Category:   resp.Category,
		Tier:       resp.Tier,
		Confidence: resp.Confidence,
		Timestamp:  query.Timestamp,
	}
}
