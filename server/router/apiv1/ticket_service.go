package apiv1

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/deskpilot/deskpilot/store"
)

// ticketStatuses are the states a ticket can move through.
var ticketStatuses = map[string]bool{
	"Open":        true,
	"In Progress": true,
	"Resolved":    true,
	"Closed":      true,
}

// TicketView is the JSON shape of a persisted ticket.
type TicketView struct {
	TicketID       string    `json:"ticket_id"`
	ConversationID string    `json:"conversation_id"`
	Status         string    `json:"status"`
	Category       string    `json:"category"`
	Priority       string    `json:"priority"`
	Sentiment      string    `json:"sentiment"`
	Tags           []string  `json:"tags,omitempty"`
	Summary        string    `json:"summary"`
	Transcript     string    `json:"transcript,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func toTicketView(t *store.Ticket, withTranscript bool) TicketView {
	view := TicketView{
		TicketID:       t.TicketID,
		ConversationID: t.ConversationID,
		Status:         t.Status,
		Category:       t.Category,
		Priority:       t.Priority,
		Sentiment:      t.Sentiment,
		Tags:           t.Tags,
		Summary:        t.Summary,
		CreatedAt:      time.Unix(t.CreatedTs, 0).UTC(),
	}
	if withTranscript {
		view.Transcript = t.Transcript
	}
	return view
}

// ListTickets handles GET /api/v1/tickets with optional status,
// conversation_id and limit query filters.
func (s *APIV1Service) ListTickets(c echo.Context) error {
	find := &store.FindTicket{}
	if status := c.QueryParam("status"); status != "" {
		find.Status = &status
	}
	if conversationID := c.QueryParam("conversation_id"); conversationID != "" {
		find.ConversationID = &conversationID
	}
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})
		}
		find.Limit = limit
	}

	tickets, err := s.Store.ListTickets(c.Request().Context(), find)
	if err != nil {
		s.logger.Error("ticket listing failed", slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list tickets"})
	}

	views := make([]TicketView, 0, len(tickets))
	for _, t := range tickets {
		views = append(views, toTicketView(t, false))
	}
	return c.JSON(http.StatusOK, map[string]any{"tickets": views})
}

// GetTicket handles GET /api/v1/tickets/:id.
func (s *APIV1Service) GetTicket(c echo.Context) error {
	ticketID := strings.ToUpper(c.Param("id"))
	ticket, err := s.Store.GetDriver().GetTicket(c.Request().Context(), ticketID)
	if err != nil {
		s.logger.Error("ticket lookup failed",
			slog.String("ticket_id", ticketID),
			slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load ticket"})
	}
	if ticket == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "ticket not found"})
	}
	return c.JSON(http.StatusOK, toTicketView(ticket, true))
}

// UpdateTicketStatusRequest changes a ticket's workflow status.
type UpdateTicketStatusRequest struct {
	Status string `json:"status"`
}

// UpdateTicketStatus handles PATCH /api/v1/tickets/:id/status.
func (s *APIV1Service) UpdateTicketStatus(c echo.Context) error {
	ticketID := strings.ToUpper(c.Param("id"))

	var req UpdateTicketStatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if !ticketStatuses[req.Status] {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "status must be one of Open, In Progress, Resolved, Closed"})
	}

	ctx := c.Request().Context()
	existing, err := s.Store.GetDriver().GetTicket(ctx, ticketID)
	if err != nil {
		s.logger.Error("ticket lookup failed",
			slog.String("ticket_id", ticketID),
			slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load ticket"})
	}
	if existing == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "ticket not found"})
	}

	if err := s.Store.UpdateTicketStatus(ctx, ticketID, req.Status); err != nil {
		s.logger.Error("ticket status update failed",
			slog.String("ticket_id", ticketID),
			slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to update ticket"})
	}

	existing.Status = req.Status
	return c.JSON(http.StatusOK, toTicketView(existing, false))
}
