// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/account-research/internal/httputil"
	"github.com/pdiddy/account-research/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

func testCfg() types.SearchConfig {
	return types.SearchConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   10 * time.Second,
			UserAgent: "test/0.1",
		},
		MaxResults: 3,
		Depth:      "advanced",
	}
}

func withTavilyServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(h)
	old := tavilyAPIBase
	tavilyAPIBase = ts.URL
	t.Cleanup(func() {
		tavilyAPIBase = old
		ts.Close()
	})
	return ts
}

func TestTavilySearchRequest(t *testing.T) {
	var got tavilyRequest
	var ua, method string
	ts := withTavilyServer(t, func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		ua = r.Header.Get("User-Agent")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		fmt.Fprint(w, `{"results":[]}`)
	})

	b := &TavilyBackend{Client: ts.Client(), APIKey: "tvly-test", Config: testCfg()}
	_, err := b.Search(context.Background(), Query{
		Text:    "Acme Bank annual report",
		Domains: []string{"sec.gov"},
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if method != http.MethodPost {
		t.Errorf("method = %s, want POST", method)
	}
	if ua != "test/0.1" {
		t.Errorf("User-Agent = %q", ua)
	}
	if got.APIKey != "tvly-test" || got.Query != "Acme Bank annual report" {
		t.Errorf("request = %+v", got)
	}
	if got.MaxResults != 3 {
		t.Errorf("max_results = %d, want 3", got.MaxResults)
	}
	if got.SearchDepth != "advanced" {
		t.Errorf("search_depth = %q", got.SearchDepth)
	}
	if len(got.IncludeDomains) != 1 || got.IncludeDomains[0] != "sec.gov" {
		t.Errorf("include_domains = %v", got.IncludeDomains)
	}
}

func TestTavilySearchQueryMaxResultsWins(t *testing.T) {
	var got tavilyRequest
	ts := withTavilyServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		fmt.Fprint(w, `{"results":[]}`)
	})

	b := &TavilyBackend{Client: ts.Client(), APIKey: "k", Config: types.SearchConfig{}}
	if _, err := b.Search(context.Background(), Query{Text: "q", MaxResults: 7}); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got.MaxResults != 7 {
		t.Errorf("max_results = %d, want 7", got.MaxResults)
	}

	if _, err := b.Search(context.Background(), Query{Text: "q"}); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got.MaxResults != defaultMaxResults {
		t.Errorf("max_results = %d, want default %d", got.MaxResults, defaultMaxResults)
	}
}

func TestTavilySearchParsesAndSubstitutesDefaults(t *testing.T) {
	ts := withTavilyServer(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"results":[
			{"url":"https://a.example","title":"A","content":"alpha","score":0.9},
			{"url":"https://b.example"},
			{"title":"no url","content":"dropped"},
			{"url":"https://a.example","content":"dup"}
		]}`)
	})

	b := &TavilyBackend{Client: ts.Client(), APIKey: "k", Config: testCfg()}
	results, err := b.Search(context.Background(), Query{Text: "q"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2: %+v", len(results), results)
	}
	if results[0].Score != 0.9 || results[0].Content != "alpha" {
		t.Errorf("first = %+v", results[0])
	}
	if results[1].Content != "" || results[1].Title != "" || results[1].Score != 0 {
		t.Errorf("missing fields not defaulted: %+v", results[1])
	}
}

func TestTavilySearchErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		key     string
		query   string
		wantErr string
	}{
		{
			name:    "empty query",
			key:     "k",
			query:   "  ",
			wantErr: "empty search query",
		},
		{
			name:    "missing key",
			query:   "q",
			wantErr: "API key",
		},
		{
			name: "http error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				fmt.Fprint(w, `{"detail":"invalid key"}`)
			},
			key:     "k",
			query:   "q",
			wantErr: "HTTP 401",
		},
		{
			name: "bad json",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, `{not json`)
			},
			key:     "k",
			query:   "q",
			wantErr: "parsing tavily response",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := tt.handler
			if h == nil {
				h = func(w http.ResponseWriter, _ *http.Request) {
					t.Error("server should not be called")
				}
			}
			ts := withTavilyServer(t, h)
			b := &TavilyBackend{Client: ts.Client(), APIKey: tt.key, Config: testCfg()}
			_, err := b.Search(context.Background(), Query{Text: tt.query})
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestTavilySearchRetriesRateLimit(t *testing.T) {
	calls := 0
	ts := withTavilyServer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"results":[{"url":"https://a.example","content":"ok"}]}`)
	})

	b := &TavilyBackend{Client: ts.Client(), APIKey: "k", Config: testCfg()}
	results, err := b.Search(context.Background(), Query{Text: "q"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if calls != 2 || len(results) != 1 {
		t.Errorf("calls = %d, results = %d", calls, len(results))
	}
}

func TestTavilyConfigEndpointOverride(t *testing.T) {
	hit := false
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hit = true
		fmt.Fprint(w, `{"results":[]}`)
	}))
	defer ts.Close()

	cfg := testCfg()
	cfg.Endpoint = ts.URL
	b := &TavilyBackend{Client: ts.Client(), APIKey: "k", Config: cfg}
	if _, err := b.Search(context.Background(), Query{Text: "q"}); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !hit {
		t.Error("configured endpoint was not used")
	}
}
