// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package docx renders the constrained report markdown into an OOXML
// word-processing document with native hyperlinks, headings, tables and
// bold runs.
package docx

import (
	"strings"

	"github.com/pdiddy/account-research/internal/references"
)

// RunKind classifies a styled run.
type RunKind int

const (
	RunText RunKind = iota
	RunBold
	RunHyperlink
)

// Run is a span of uniformly styled text within a paragraph.
type Run struct {
	Kind RunKind
	Text string

	// URL is the hyperlink target; set only for RunHyperlink.
	URL string
}

const boldMarker = "**"

// RenderLine splits one line of styled text into runs. Citation markers
// become hyperlink runs labelled references.Label; **text** spans become
// bold runs. An unmatched trailing ** is kept as plain text.
func RenderLine(line string) []Run {
	var runs []Run
	last := 0
	for _, m := range references.CitationPattern.FindAllStringSubmatchIndex(line, -1) {
		runs = append(runs, splitBold(line[last:m[0]])...)
		runs = append(runs, Run{Kind: RunHyperlink, Text: references.Label, URL: line[m[4]:m[5]]})
		last = m[1]
	}
	return append(runs, splitBold(line[last:])...)
}

// splitBold separates **bold** spans from normal text.
func splitBold(s string) []Run {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, boldMarker)
	if markers := len(parts) - 1; markers%2 == 1 {
		// Odd count: the final marker has no partner.
		n := len(parts)
		parts = append(parts[:n-2], parts[n-2]+boldMarker+parts[n-1])
	}

	var runs []Run
	for i, p := range parts {
		if p == "" {
			continue
		}
		kind := RunText
		if i%2 == 1 {
			kind = RunBold
		}
		runs = append(runs, Run{Kind: kind, Text: p})
	}
	return runs
}
