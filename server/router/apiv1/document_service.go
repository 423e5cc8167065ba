package apiv1

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/deskpilot/deskpilot/server/kb"
)

// IngestDocumentRequest adds or replaces one knowledge base document.
type IngestDocumentRequest struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// DocumentView is the JSON shape of a stored document.
type DocumentView struct {
	ID        string            `json:"id"`
	Title     string            `json:"title,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// IngestDocument handles POST /api/v1/documents, running the chunk,
// embed, index pipeline on the submitted text.
func (s *APIV1Service) IngestDocument(c echo.Context) error {
	var req IngestDocumentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "document id is required"})
	}
	if strings.TrimSpace(req.Text) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "document text is required"})
	}

	chunks, err := s.Ingestor.IngestDocument(c.Request().Context(), kb.Document{
		ID:       req.ID,
		Title:    req.Title,
		Text:     req.Text,
		Metadata: req.Metadata,
	})
	if err != nil {
		s.logger.Error("document ingest failed",
			slog.String("document_id", req.ID),
			slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to ingest document"})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"id":     req.ID,
		"chunks": len(chunks),
	})
}

// ListDocuments handles GET /api/v1/documents.
func (s *APIV1Service) ListDocuments(c echo.Context) error {
	docs, err := s.Store.GetDriver().ListDocuments(c.Request().Context())
	if err != nil {
		s.logger.Error("document listing failed", slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list documents"})
	}

	views := make([]DocumentView, 0, len(docs))
	for _, doc := range docs {
		views = append(views, DocumentView{
			ID:        doc.ID,
			Title:     doc.Title,
			Metadata:  doc.Metadata,
			CreatedAt: time.Unix(doc.CreatedTs, 0).UTC(),
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"documents": views})
}

// DeleteDocument handles DELETE /api/v1/documents/:id, dropping the
// document from both the store and the in-memory index.
func (s *APIV1Service) DeleteDocument(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "document id is required"})
	}

	removed, err := s.Ingestor.DeleteDocument(c.Request().Context(), id)
	if err != nil {
		s.logger.Error("document deletion failed",
			slog.String("document_id", id),
			slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to delete document"})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"id":             id,
		"chunks_removed": removed,
	})
}

// Reindex handles POST /api/v1/documents/reindex, reloading the index
// from persisted chunks without re-embedding.
func (s *APIV1Service) Reindex(c echo.Context) error {
	loaded, err := s.Ingestor.RebuildFromStore(c.Request().Context())
	if err != nil {
		s.logger.Error("reindex failed", slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to rebuild index"})
	}
	return c.JSON(http.StatusOK, map[string]any{"chunks": loaded})
}
