// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pdiddy/account-research/internal/httputil"
	"github.com/pdiddy/account-research/pkg/types"
)

// tavilyAPIBase is the Tavily search endpoint. Declared as a var so tests
// can substitute an httptest server.
var tavilyAPIBase = "https://api.tavily.com/search"

const defaultMaxResults = 3

// TavilyBackend queries the Tavily search API.
type TavilyBackend struct {
	Client *http.Client
	APIKey string
	Config types.SearchConfig
}

// Name returns the backend identifier.
func (b *TavilyBackend) Name() string { return "tavily" }

// Search posts the query to Tavily and returns normalised results.
func (b *TavilyBackend) Search(ctx context.Context, query Query) ([]types.SearchResult, error) {
	if strings.TrimSpace(query.Text) == "" {
		return nil, fmt.Errorf("empty search query")
	}
	if b.APIKey == "" {
		return nil, fmt.Errorf("tavily API key is not set")
	}

	maxResults := query.MaxResults
	if maxResults <= 0 {
		maxResults = b.Config.MaxResults
	}
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	body, err := json.Marshal(tavilyRequest{
		APIKey:         b.APIKey,
		Query:          query.Text,
		MaxResults:     maxResults,
		SearchDepth:    b.Config.Depth,
		IncludeDomains: query.Domains,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := b.Config.Endpoint
	if endpoint == "" {
		endpoint = tavilyAPIBase
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.Config.UserAgent != "" {
		req.Header.Set("User-Agent", b.Config.UserAgent)
	}

	client := b.Client
	if client == nil {
		client = &http.Client{Timeout: b.Config.Timeout}
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("tavily API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tavily API returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var tr tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("parsing tavily response: %w", err)
	}

	results := make([]types.SearchResult, 0, len(tr.Results))
	for _, raw := range tr.Results {
		results = append(results, raw.toResult())
	}
	return Normalize(results), nil
}

type tavilyRequest struct {
	APIKey         string   `json:"api_key"`
	Query          string   `json:"query"`
	MaxResults     int      `json:"max_results"`
	SearchDepth    string   `json:"search_depth,omitempty"`
	IncludeDomains []string `json:"include_domains,omitempty"`
}

type tavilyResponse struct {
	Results []tavilyResult `json:"results"`
}

// tavilyResult mirrors the wire shape. Every field may be absent.
type tavilyResult struct {
	URL     *string  `json:"url"`
	Title   *string  `json:"title"`
	Content *string  `json:"content"`
	Score   *float64 `json:"score"`
}

// toResult substitutes defaults for missing wire fields.
func (r tavilyResult) toResult() types.SearchResult {
	var out types.SearchResult
	if r.URL != nil {
		out.URL = *r.URL
	}
	if r.Title != nil {
		out.Title = *r.Title
	}
	if r.Content != nil {
		out.Content = *r.Content
	}
	if r.Score != nil {
		out.Score = *r.Score
	}
	return out
}
