// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search queries the web search collaborator and returns
// normalised, URL-deduplicated results ready to be placed in a prompt.
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/account-research/pkg/types"
)

// FailureSentinel prefixes the context string substituted when a search
// call fails. Sections generated from it carry the marker into the document.
const FailureSentinel = "Web search failed"

// Backend searches the web for one query. Implementations are safe for
// concurrent use.
type Backend interface {
	Name() string
	Search(ctx context.Context, query Query) ([]types.SearchResult, error)
}

// Query holds the parameters for one search call.
type Query struct {
	Text string

	// Domains restricts results to the listed hosts. Empty is unrestricted.
	Domains []string

	// MaxResults caps the result count. Zero uses the backend default.
	MaxResults int
}

// Normalize drops results without a URL, trims whitespace, and removes
// duplicate URLs keeping the first occurrence.
func Normalize(results []types.SearchResult) []types.SearchResult {
	seen := make(map[string]bool, len(results))
	out := make([]types.SearchResult, 0, len(results))
	for _, r := range results {
		r.URL = strings.TrimSpace(r.URL)
		if r.URL == "" || seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		r.Title = strings.TrimSpace(r.Title)
		r.Content = strings.TrimSpace(r.Content)
		out = append(out, r)
	}
	return out
}

// URLs returns the result URLs in order.
func URLs(results []types.SearchResult) []string {
	urls := make([]string, 0, len(results))
	for _, r := range results {
		urls = append(urls, r.URL)
	}
	return urls
}

// FormatContext concatenates results into the web-context block of the
// user message. Each result is tagged with its source URL.
func FormatContext(results []types.SearchResult) string {
	if len(results) == 0 {
		return "No web results."
	}
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Source: %s\n", r.URL)
		if r.Title != "" {
			fmt.Fprintf(&b, "Title: %s\n", r.Title)
		}
		b.WriteString(r.Content)
	}
	return b.String()
}

// FailureContext returns the sentinel context string for a failed search.
func FailureContext(err error) string {
	return fmt.Sprintf("%s: %v", FailureSentinel, err)
}
