package apiv1_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskpilot/deskpilot/internal/profile"
	"github.com/deskpilot/deskpilot/plugin/ai"
	"github.com/deskpilot/deskpilot/plugin/websearch"
	"github.com/deskpilot/deskpilot/server/internal/observability"
	"github.com/deskpilot/deskpilot/server/kb"
	"github.com/deskpilot/deskpilot/server/router/apiv1"
	"github.com/deskpilot/deskpilot/server/support"
	"github.com/deskpilot/deskpilot/store"
	"github.com/deskpilot/deskpilot/store/db/sqlite"
)

type apiFixture struct {
	echo     *echo.Echo
	store    *store.Store
	provider *ai.MockProvider
	ingestor *kb.Ingestor
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	p := &profile.Profile{Mode: "dev", Driver: "sqlite", DSN: ":memory:", Version: profile.Version}

	driver, err := sqlite.NewDB(p)
	require.NoError(t, err)
	st := store.New(driver, p)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })

	provider := ai.NewMockProvider()
	index := kb.NewIndex()
	ingestor := kb.NewIngestor(provider, index, st, nil, 400, 50)
	metrics := observability.NewMetrics(64)

	pipeline := support.NewPipeline(support.PipelineOptions{
		Retriever: kb.NewRetriever(provider, index, 3),
		Responder: support.NewResponder(provider, nil, 0, 0),
		Escalator: support.NewEscalator(websearch.NewMockSearcher(), nil, support.DefaultLowThreshold, 3),
		Tickets:   st,
		Metrics:   metrics,
	})

	e := echo.New()
	svc := apiv1.NewAPIV1Service(p, st, pipeline, ingestor, metrics, nil)
	svc.RegisterRoutes(e)

	return &apiFixture{echo: e, store: st, provider: provider, ingestor: ingestor}
}

func (f *apiFixture) do(method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = strings.NewReader(string(raw))
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(http.MethodGet, "/healthz", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	decode(t, rec, &body)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, profile.Version, body["version"])
}

func TestChatReturnsAnswer(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(http.MethodPost, "/api/v1/chat", apiv1.ChatRequest{
		Message: "How do I request a refund for a duplicate charge?",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp apiv1.ChatResponse
	decode(t, rec, &resp)
	assert.NotEmpty(t, resp.ConversationID)
	assert.NotEmpty(t, resp.Answer)
	assert.Equal(t, "Payment", resp.Category)
	assert.NotEmpty(t, resp.Tier)
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(http.MethodPost, "/api/v1/chat", apiv1.ChatRequest{Message: "   "}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatKeepsConversationID(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(http.MethodPost, "/api/v1/chat", apiv1.ChatRequest{
		ConversationID: "conv-42",
		Message:        "My password reset email never arrives",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp apiv1.ChatResponse
	decode(t, rec, &resp)
	assert.Equal(t, "conv-42", resp.ConversationID)
}

func TestChatClosedConversationConflicts(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(http.MethodPost, "/api/v1/chat", apiv1.ChatRequest{
		ConversationID: "conv-closed",
		Message:        "My account is locked after too many attempts",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodPost, "/api/v1/conversations/conv-closed/ticket", nil, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(http.MethodPost, "/api/v1/chat", apiv1.ChatRequest{
		ConversationID: "conv-closed",
		Message:        "Are you still there?",
	}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestClearConversation(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(http.MethodPost, "/api/v1/chat", apiv1.ChatRequest{
		ConversationID: "conv-clear",
		Message:        "The app keeps crashing on launch",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodDelete, "/api/v1/conversations/conv-clear", nil, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestTicketLifecycle(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(http.MethodPost, "/api/v1/chat", apiv1.ChatRequest{
		ConversationID: "conv-ticket",
		Message:        "I was charged twice and need a refund urgently",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodPost, "/api/v1/conversations/conv-ticket/ticket", nil, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var payload support.TicketPayload
	decode(t, rec, &payload)
	require.True(t, strings.HasPrefix(payload.TicketID, "TK-"))
	assert.Equal(t, support.CategoryPayment, payload.Category)

	rec = f.do(http.MethodGet, "/api/v1/tickets", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Tickets []apiv1.TicketView `json:"tickets"`
	}
	decode(t, rec, &listing)
	require.Len(t, listing.Tickets, 1)
	assert.Equal(t, "Open", listing.Tickets[0].Status)

	rec = f.do(http.MethodGet, "/api/v1/tickets/"+payload.TicketID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view apiv1.TicketView
	decode(t, rec, &view)
	assert.Equal(t, "conv-ticket", view.ConversationID)
	assert.NotEmpty(t, view.Transcript)

	rec = f.do(http.MethodPatch, "/api/v1/tickets/"+payload.TicketID+"/status",
		apiv1.UpdateTicketStatusRequest{Status: "Resolved"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &view)
	assert.Equal(t, "Resolved", view.Status)
}

func TestGetTicketNotFound(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(http.MethodGet, "/api/v1/tickets/TK-MISSING1", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateTicketStatusRejectsUnknownStatus(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(http.MethodPatch, "/api/v1/tickets/TK-ABCD1234/status",
		apiv1.UpdateTicketStatusRequest{Status: "Lost"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDocumentLifecycle(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(http.MethodPost, "/api/v1/documents", apiv1.IngestDocumentRequest{
		ID:    "billing",
		Title: "Billing FAQ",
		Text:  strings.Repeat("Refunds are returned to the original payment method within five business days. ", 8),
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var ingested map[string]any
	decode(t, rec, &ingested)
	assert.Equal(t, "billing", ingested["id"])
	assert.Greater(t, ingested["chunks"].(float64), float64(0))

	rec = f.do(http.MethodGet, "/api/v1/documents", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Documents []apiv1.DocumentView `json:"documents"`
	}
	decode(t, rec, &listing)
	require.Len(t, listing.Documents, 1)
	assert.Equal(t, "Billing FAQ", listing.Documents[0].Title)

	rec = f.do(http.MethodPost, "/api/v1/documents/reindex", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodDelete, "/api/v1/documents/billing", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var deleted map[string]any
	decode(t, rec, &deleted)
	assert.Greater(t, deleted["chunks_removed"].(float64), float64(0))

	rec = f.do(http.MethodGet, "/api/v1/documents", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &listing)
	assert.Empty(t, listing.Documents)
}

func TestIngestDocumentRequiresIDAndText(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(http.MethodPost, "/api/v1/documents", apiv1.IngestDocumentRequest{Text: "orphan"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/api/v1/documents", apiv1.IngestDocumentRequest{ID: "empty"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsCountTurns(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(http.MethodPost, "/api/v1/chat", apiv1.ChatRequest{
		ConversationID: "conv-metrics",
		Message:        "Why is the app so slow today",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/api/v1/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var snap observability.Snapshot
	decode(t, rec, &snap)
	assert.Equal(t, int64(1), snap.TurnTotal)
}

func TestChatRateLimit(t *testing.T) {
	f := newAPIFixture(t)
	header := map[string]string{"X-Conversation-Id": "conv-burst"}

	var limited bool
	for i := 0; i < 10; i++ {
		rec := f.do(http.MethodPost, "/api/v1/chat", apiv1.ChatRequest{
			ConversationID: "conv-burst",
			Message:        fmt.Sprintf("message number %d about billing", i),
		}, header)
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
		require.Equal(t, http.StatusOK, rec.Code)
	}
	assert.True(t, limited)
}
