// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the account-research pipeline:
// configuration, section specifications, per-section results, search results,
// and progress events.
package types

// SearchResult is one web page returned by the search collaborator. Both
// fields are always set once a result has crossed the search boundary;
// missing upstream values are substituted there.
type SearchResult struct {
	// URL is the page address. Results without a URL are dropped at the boundary.
	URL string `json:"url" yaml:"url"`

	// Title is the page title, empty when the backend does not supply one.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// Content is the extracted page text; empty when the backend omitted it.
	Content string `json:"content" yaml:"content"`

	// Score is the backend's relevance score in [0, 1], 0 when unknown.
	Score float64 `json:"score,omitempty" yaml:"score,omitempty"`
}
