package apiv1

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	pipeerr "github.com/deskpilot/deskpilot/internal/errors"
	"github.com/deskpilot/deskpilot/server/support"
)

// ChatRequest is one inbound chat message.
type ChatRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
}

// ChatResponse is the pipeline's answer plus conversation bookkeeping.
type ChatResponse struct {
	ConversationID     string   `json:"conversation_id"`
	Answer             string   `json:"answer"`
	Tier               string   `json:"tier"`
	Confidence         float64  `json:"confidence"`
	Category           string   `json:"category"`
	Priority           string   `json:"priority"`
	Sources            []string `json:"sources,omitempty"`
	Degraded           bool     `json:"degraded"`
	Escalated          bool     `json:"escalated"`
	NeedsClarification bool     `json:"needs_clarification"`
	TicketID           string   `json:"ticket_id,omitempty"`
}

// Chat handles POST /api/v1/chat. A missing conversation id starts a new
// conversation.
func (s *APIV1Service) Chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "message is required"})
	}
	if req.ConversationID == "" {
		req.ConversationID = uuid.NewString()
	}

	resp, err := s.Pipeline.HandleTurn(c.Request().Context(), support.Query{
		Text:           req.Message,
		ConversationID: req.ConversationID,
		Timestamp:      time.Now(),
	})
	if err != nil {
		if pipeerr.IsCode(err, pipeerr.ErrCodeConversationClosed) {
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		}
		s.logger.Error("chat turn failed",
			slog.String("conversation_id", req.ConversationID),
			slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to process message"})
	}

	return c.JSON(http.StatusOK, ChatResponse{
		ConversationID:     req.ConversationID,
		Answer:             resp.Text,
		Tier:               string(resp.Tier),
		Confidence:         resp.Confidence,
		Category:           string(resp.Category),
		Priority:           string(resp.Priority),
		Sources:            resp.Sources,
		Degraded:           resp.Degraded,
		Escalated:          resp.Escalated,
		NeedsClarification: resp.NeedsClarification,
		TicketID:           resp.TicketID,
	})
}

// ClearConversation handles DELETE /api/v1/conversations/:id.
func (s *APIV1Service) ClearConversation(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "conversation id is required"})
	}
	s.Pipeline.Conversations().Clear(id)
	return c.NoContent(http.StatusNoContent)
}

// CreateTicket handles POST /api/v1/conversations/:id/ticket, converting
// the conversation into a persisted ticket and closing it.
func (s *APIV1Service) CreateTicket(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "conversation id is required"})
	}

	payload, err := s.Pipeline.CreateTicket(c.Request().Context(), id)
	if err != nil {
		s.logger.Error("ticket creation failed",
			slog.String("conversation_id", id),
			slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to create ticket"})
	}
	return c.JSON(http.StatusCreated, payload)
}
