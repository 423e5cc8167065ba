// Package apiv1 exposes the support pipeline over HTTP.
package apiv1

import (
	"context"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/deskpilot/deskpilot/internal/profile"
	"github.com/deskpilot/deskpilot/server/internal/observability"
	"github.com/deskpilot/deskpilot/server/kb"
	"github.com/deskpilot/deskpilot/server/middleware"
	"github.com/deskpilot/deskpilot/server/support"
	"github.com/deskpilot/deskpilot/store"
)

// APIV1Service wires the pipeline and store into HTTP handlers.
type APIV1Service struct {
	Profile  *profile.Profile
	Store    *store.Store
	Pipeline *support.Pipeline
	Ingestor *kb.Ingestor
	Metrics  *observability.Metrics

	logger      *slog.Logger
	rateLimiter *middleware.RateLimiter
}

// NewAPIV1Service creates the API service.
func NewAPIV1Service(profile *profile.Profile, st *store.Store, pipeline *support.Pipeline, ingestor *kb.Ingestor, metrics *observability.Metrics, logger *slog.Logger) *APIV1Service {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.GlobalMetrics()
	}
	return &APIV1Service{
		Profile:     profile,
		Store:       st,
		Pipeline:    pipeline,
		Ingestor:    ingestor,
		Metrics:     metrics,
		logger:      logger,
		rateLimiter: middleware.NewRateLimiter(2, 5),
	}
}

// StartBackgroundJobs runs periodic maintenance until the context is
// cancelled.
func (s *APIV1Service) StartBackgroundJobs(ctx context.Context) {
	go s.rateLimiter.PruneLoop(ctx, 10*time.Minute, 10000)
}

// RegisterRoutes attaches all handlers to the echo instance.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", s.Health)

	api := e.Group("/api/v1")

	chatLimit := s.rateLimiter.ByKey(func(c echo.Context) string {
		return c.Request().Header.Get("X-Conversation-Id")
	})
	api.POST("/chat", s.Chat, chatLimit)
	api.DELETE("/conversations/:id", s.ClearConversation)
	api.POST("/conversations/:id/ticket", s.CreateTicket)

	api.GET("/tickets", s.ListTickets)
	api.GET("/tickets/:id", s.GetTicket)
	api.PATCH("/tickets/:id/status", s.UpdateTicketStatus)

	api.POST("/documents", s.IngestDocument)
	api.GET("/documents", s.ListDocuments)
	api.DELETE("/documents/:id", s.DeleteDocument)
	api.POST("/documents/reindex", s.Reindex)

	api.GET("/metrics", s.GetMetrics)
}
