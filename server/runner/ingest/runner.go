// Package ingest keeps the knowledge base in sync with a directory of
// documents in the background.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/deskpilot/deskpilot/server/kb"
)

// Runner periodically reloads documents from a directory and re-ingests
// the ones whose content changed. Documents removed from the directory are
// dropped from the index and store.
type Runner struct {
	ingestor *kb.Ingestor
	dir      string
	interval time.Duration
	logger   *slog.Logger

	// digests maps document ID to the content hash seen at last sync.
	digests map[string]string
}

// NewRunner creates a directory sync runner.
func NewRunner(ingestor *kb.Ingestor, dir string, interval time.Duration, logger *slog.Logger) *Runner {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		ingestor: ingestor,
		dir:      dir,
		interval: interval,
		logger:   logger,
		digests:  make(map[string]string),
	}
}

// Run starts the background task. It syncs once on startup and then on
// every tick until the context is cancelled.
func (r *Runner) Run(ctx context.Context) {
	r.RunOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.RunOnce(ctx)
		case <-ctx.Done():
			r.logger.Info("knowledge sync runner stopped")
			return
		}
	}
}

// RunOnce performs a single sync pass.
func (r *Runner) RunOnce(ctx context.Context) {
	docs, err := kb.LoadDirectory(r.dir)
	if err != nil {
		r.logger.Error("knowledge directory load failed",
			slog.String("dir", r.dir),
			slog.String("error", err.Error()))
		return
	}

	seen := make(map[string]bool, len(docs))
	var ingested, removed int
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return
		}
		seen[doc.ID] = true
		digest := contentDigest(doc)
		if r.digests[doc.ID] == digest {
			continue
		}
		if _, err := r.ingestor.IngestDocument(ctx, doc); err != nil {
			r.logger.Warn("document sync failed",
				slog.String("document_id", doc.ID),
				slog.String("error", err.Error()))
			continue
		}
		r.digests[doc.ID] = digest
		ingested++
	}

	for id := range r.digests {
		if seen[id] {
			continue
		}
		if _, err := r.ingestor.DeleteDocument(ctx, id); err != nil {
			r.logger.Warn("document removal failed",
				slog.String("document_id", id),
				slog.String("error", err.Error()))
			continue
		}
		delete(r.digests, id)
		removed++
	}

	if ingested > 0 || removed > 0 {
		r.logger.Info("knowledge directory synced",
			slog.Int("ingested", ingested),
			slog.Int("removed", removed),
			slog.Int("documents", len(docs)))
	}
}

func contentDigest(doc kb.Document) string {
	h := sha256.New()
	h.Write([]byte(doc.Title))
	h.Write([]byte{0})
	h.Write([]byte(doc.Text))
	return hex.EncodeToString(h.Sum(nil))
}
