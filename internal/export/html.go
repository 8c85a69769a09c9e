// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export renders the final report markdown to formats other
// than docx.
package export

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/pdiddy/account-research/internal/references"
	"github.com/pdiddy/account-research/internal/sections"
	"github.com/pdiddy/account-research/pkg/types"
)

var md = goldmark.New(goldmark.WithExtensions(extension.Table, extension.Linkify))

// HTML converts report markdown to a self-contained HTML document in the
// default house style.
func HTML(markdown, title string) (string, error) {
	return StyledHTML(markdown, title, types.DefaultStyle())
}

// StyledHTML converts report markdown to a self-contained HTML document
// using the brand and link colors from style.
func StyledHTML(markdown, title string, style types.StyleConfig) (string, error) {
	def := types.DefaultStyle()
	if style.BrandColor == "" {
		style.BrandColor = def.BrandColor
	}
	if style.LinkColor == "" {
		style.LinkColor = def.LinkColor
	}

	var buf bytes.Buffer
	if err := md.Convert([]byte(normalize(markdown)), &buf); err != nil {
		return "", fmt.Errorf("converting markdown to HTML: %w", err)
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>%s</title>
<style>
  body { max-width: 52em; margin: 2em auto; padding: 0 1em; font-family: Calibri, "Segoe UI", Helvetica, Arial, sans-serif; line-height: 1.5; color: #1a1a1a; }
  h1, h2, h3 { color: #%s; margin-top: 1.5em; }
  a { color: #%s; }
  blockquote { border-left: 3px solid #ccc; margin-left: 0; padding-left: 1em; color: #555; }
  table { border-collapse: collapse; width: 100%%; }
  th, td { border: 1px solid #999; padding: 0.4em; text-align: left; vertical-align: top; }
  th { background: #f4f4f4; }
</style>
</head>
<body>
%s</body>
</html>
`, html.EscapeString(title), html.EscapeString(style.BrandColor), html.EscapeString(style.LinkColor), buf.String()), nil
}

// normalize rewrites the report's glyph bullets as markdown list items and
// escapes citation labels so links render as [ref].
func normalize(markdown string) string {
	lines := strings.Split(markdown, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, sections.SubBulletGlyph):
			lines[i] = "  - " + strings.TrimSpace(strings.TrimPrefix(trimmed, sections.SubBulletGlyph))
		case strings.HasPrefix(trimmed, sections.BulletGlyph):
			lines[i] = "- " + strings.TrimSpace(strings.TrimPrefix(trimmed, sections.BulletGlyph))
		}
	}
	return references.CitationPattern.ReplaceAllString(strings.Join(lines, "\n"), `[\[$1\]]($2)`)
}
