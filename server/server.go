// Package server assembles the store, AI providers and pipeline into an
// HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	pkgerrors "github.com/pkg/errors"

	"github.com/deskpilot/deskpilot/internal/profile"
	"github.com/deskpilot/deskpilot/plugin/ai"
	"github.com/deskpilot/deskpilot/plugin/websearch"
	"github.com/deskpilot/deskpilot/server/internal/observability"
	"github.com/deskpilot/deskpilot/server/kb"
	"github.com/deskpilot/deskpilot/server/router/apiv1"
	ingestrunner "github.com/deskpilot/deskpilot/server/runner/ingest"
	"github.com/deskpilot/deskpilot/server/support"
	"github.com/deskpilot/deskpilot/store"
)

// Server is the main server of deskpilot.
type Server struct {
	Profile  *profile.Profile
	Store    *store.Store
	Pipeline *support.Pipeline
	Ingestor *kb.Ingestor

	echoServer *echo.Echo
	logger     *slog.Logger
	apiService *apiv1.APIV1Service
	syncRunner *ingestrunner.Runner
}

// NewServer wires every component from the profile. The in-memory index is
// warmed from persisted chunks so a restart does not re-embed the
// knowledge base.
func NewServer(ctx context.Context, p *profile.Profile, st *store.Store) (*Server, error) {
	logger := slog.Default()

	var embedder ai.Embedder
	var generator ai.Generator
	if p.IsAIEnabled() {
		provider := ai.NewProvider(&ai.Config{
			BaseURL:        p.AIBaseURL,
			APIKey:         p.AIAPIKey,
			EmbeddingModel: p.AIEmbeddingModel,
			ChatModel:      p.AIChatModel,
			MaxRetries:     p.AIMaxRetries,
			Timeout:        p.AITimeout,
		})
		embedder = ai.NewCachingEmbedder(provider, 2000, 15*time.Minute)
		generator = provider
	} else {
		logger.Warn("no AI api key configured, falling back to deterministic mock provider")
		mock := ai.NewMockProvider()
		embedder, generator = mock, mock
	}

	var searcher websearch.Searcher
	if p.IsSearchEnabled() {
		searcher = websearch.NewGoogleClient(websearch.Config{
			APIKey:   p.SearchAPIKey,
			EngineID: p.SearchEngineID,
			Timeout:  p.SearchTimeout,
		})
	} else {
		logger.Info("web search not configured, escalation will be skipped")
	}

	index := kb.NewIndex()
	ingestor := kb.NewIngestor(embedder, index, st, logger, p.ChunkSize, p.ChunkOverlap)
	if loaded, err := ingestor.RebuildFromStore(ctx); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to warm index from store")
	} else if loaded > 0 {
		logger.Info("index warmed from store", slog.Int("chunks", loaded))
	}

	metrics := observability.GlobalMetrics()
	pipeline := support.NewPipeline(support.PipelineOptions{
		Retriever:    kb.NewRetriever(embedder, index, p.TopK),
		Categorizer:  support.NewCategorizer(),
		Scorer:       support.NewScorer(p.SimilarityWeight, p.CertaintyWeight, p.HighThreshold, p.LowThreshold),
		Responder:    support.NewResponder(generator, logger, p.HistoryWindow, p.ContextCharBudget),
		Escalator:    support.NewEscalator(searcher, logger, p.LowThreshold, p.SearchMaxResults),
		Conversation: support.NewManager(p.FollowUpMaxWords),
		Tickets:      st,
		Metrics:      metrics,
		Logger:       logger,
	})

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogURI:    true,
		LogMethod: true,
		LogStatus: true,
		LogError:  true,
		LogValuesFunc: func(_ echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []any{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			logger.Info("request", attrs...)
			return nil
		},
	}))

	s := &Server{
		Profile:    p,
		Store:      st,
		Pipeline:   pipeline,
		Ingestor:   ingestor,
		echoServer: e,
		logger:     logger,
	}

	s.apiService = apiv1.NewAPIV1Service(p, st, pipeline, ingestor, metrics, logger)
	s.apiService.RegisterRoutes(e)

	if p.KnowledgeDir != "" {
		s.syncRunner = ingestrunner.NewRunner(ingestor, p.KnowledgeDir, p.SyncInterval, logger)
	}

	return s, nil
}

// Start launches background runners and serves HTTP until the context is
// cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	if s.syncRunner != nil {
		go s.syncRunner.Run(ctx)
	}
	s.apiService.StartBackgroundJobs(ctx)

	addr := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	s.logger.Info("server started",
		slog.String("addr", addr),
		slog.String("mode", s.Profile.Mode),
		slog.String("version", s.Profile.Version))

	if err := s.echoServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server gracefully and closes the store.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		s.logger.Error("failed to shut down server", slog.String("error", err.Error()))
	}
	if err := s.Store.Close(); err != nil {
		s.logger.Error("failed to close store", slog.String("error", err.Error()))
	}
	s.logger.Info("server shutdown complete")
}
