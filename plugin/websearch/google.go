// Package websearch provides the external web search capability used by the
// escalation path. Failures here are non-fatal to the pipeline.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	pipeerr "github.com/deskpilot/deskpilot/internal/errors"
)

const customSearchEndpoint = "https://www.googleapis.com/customsearch/v1"

// Result is a single external search hit.
type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// Searcher performs an external search.
type Searcher interface {
	Search(ctx context.Context, query string, numResults int) ([]Result, error)
}

// Config holds the Google Custom Search configuration.
type Config struct {
	APIKey   string
	EngineID string
	Timeout  time.Duration
	// RPS caps outgoing requests per second. Zero means 5.
	RPS int
}

// GoogleClient implements Searcher over the Google Custom Search JSON API.
type GoogleClient struct {
	config  Config
	client  *http.Client
	limiter *rate.Limiter
}

// NewGoogleClient creates a new client.
func NewGoogleClient(cfg Config) *GoogleClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RPS == 0 {
		cfg.RPS = 5
	}
	return &GoogleClient{
		config:  cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Every(time.Second/time.Duration(cfg.RPS)), cfg.RPS),
	}
}

type searchResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
		Link    string `json:"link"`
	} `json:"items"`
}

// Search queries the Custom Search API. Failure surfaces as
// ErrSearchUnavailable; callers treat it as best-effort.
func (c *GoogleClient) Search(ctx context.Context, query string, numResults int) ([]Result, error) {
	if numResults <= 0 {
		numResults = 3
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, pipeerr.SearchUnavailable(err)
	}

	params := url.Values{}
	params.Set("key", c.config.APIKey)
	params.Set("cx", c.config.EngineID)
	params.Set("q", query)
	params.Set("num", fmt.Sprintf("%d", numResults))
	params.Set("safe", "medium")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, customSearchEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, pipeerr.SearchUnavailable(err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, pipeerr.SearchUnavailable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, pipeerr.SearchUnavailable(fmt.Errorf("search API returned status %d", resp.StatusCode))
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, pipeerr.SearchUnavailable(err)
	}

	results := make([]Result, 0, len(payload.Items))
	for _, item := range payload.Items {
		results = append(results, Result{
			Title:   item.Title,
			Snippet: item.Snippet,
			URL:     item.Link,
		})
	}
	return results, nil
}

var _ Searcher = (*GoogleClient)(nil)
