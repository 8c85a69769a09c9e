// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package references extracts inline citation markers, deduplicates
// source URLs, and reports citations that do not trace to a collected source.
package references

import (
	"regexp"
	"strings"
)

// CitationPattern matches the inline citation marker [ref](URL). The
// [Source](URL) form is accepted too. Group 1 is the label, group 2 the URL.
var CitationPattern = regexp.MustCompile(`\[((?i:ref|source))\]\(([^)\s]+)\)`)

// Label is the visible text rendered for every citation.
const Label = "[ref]"

// Heading is the title of the references block.
const Heading = "References"

// Extract returns the URLs of all citation markers in text, in order of
// appearance, duplicates included.
func Extract(text string) []string {
	matches := CitationPattern.FindAllStringSubmatch(text, -1)
	urls := make([]string, 0, len(matches))
	for _, m := range matches {
		urls = append(urls, m[2])
	}
	return urls
}

// Dedup removes duplicate and blank URLs, keeping the first occurrence of each.
func Dedup(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

// Unsourced returns the distinct citation URLs in text that are not in
// collected, in order of first appearance. Trailing slashes are ignored
// when comparing.
func Unsourced(text string, collected []string) []string {
	known := make(map[string]bool, len(collected))
	for _, u := range collected {
		known[canonical(u)] = true
	}

	var missing []string
	for _, u := range Dedup(Extract(text)) {
		if !known[canonical(u)] {
			missing = append(missing, u)
		}
	}
	return missing
}

func canonical(u string) string {
	return strings.TrimRight(strings.TrimSpace(u), "/")
}

// Block renders the references section: a top-level heading followed by
// one "- <url>" line per deduplicated URL. It returns "" when there are no URLs.
func Block(urls []string) string {
	urls = Dedup(urls)
	if len(urls) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("# " + Heading + "\n")
	for _, u := range urls {
		b.WriteString("- " + u + "\n")
	}
	return b.String()
}
