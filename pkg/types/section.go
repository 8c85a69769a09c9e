// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// SectionID identifies a report section within a section set.
type SectionID string

// SectionSpec describes one report section: its heading, the persona and
// structure the model must follow, and how to search for it. Specs are
// static configuration and are never mutated at runtime.
type SectionSpec struct {
	// ID is the stable key (e.g. "business-overview").
	ID SectionID `json:"id" yaml:"id"`

	// Title is the heading rendered in the document.
	Title string `json:"title" yaml:"title"`

	// Persona is the analyst role the model adopts.
	Persona string `json:"persona" yaml:"persona"`

	// Focus summarises what the section covers. May reference {{.Target}}.
	Focus string `json:"focus" yaml:"focus"`

	// Requirements lists the required output structure, in order.
	Requirements []string `json:"requirements" yaml:"requirements"`

	// Query is an optional search query template using {{.Target}} and
	// {{.Title}}. Empty selects the default "<target> <title> 2024 2025".
	Query string `json:"query,omitempty" yaml:"query,omitempty"`

	// Domains restricts search results to trusted domains. Empty means unrestricted.
	Domains []string `json:"domains,omitempty" yaml:"domains,omitempty"`
}

// SectionResult is the content produced for one section. Failure flags
// record degraded outcomes that are still rendered into the document.
type SectionResult struct {
	Section SectionID `json:"section" yaml:"section"`
	Title   string    `json:"title" yaml:"title"`
	Content string    `json:"content" yaml:"content"`

	// URLs are the search results consulted for this section.
	URLs []string `json:"urls" yaml:"urls"`

	SearchFailed     bool `json:"search_failed,omitempty" yaml:"search_failed,omitempty"`
	GenerationFailed bool `json:"generation_failed,omitempty" yaml:"generation_failed,omitempty"`
	Audited          bool `json:"audited,omitempty" yaml:"audited,omitempty"`
}
