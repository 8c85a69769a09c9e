// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// blockSelector lists the elements whose text becomes its own line.
const blockSelector = "title, h1, h2, h3, h4, h5, h6, p, li, td, th, pre, blockquote, dt, dd"

// HTMLText returns the visible text of an HTML document, one line per
// block element. Scripts, styles, and navigation chrome are dropped.
func HTMLText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parsing HTML: %w", err)
	}
	doc.Find("script, style, noscript, nav, footer, header, svg, iframe").Remove()

	var lines []string
	doc.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		// Nested blocks are emitted by their innermost element.
		if s.Find(blockSelector).Length() > 0 {
			return
		}
		if line := collapse(s.Text()); line != "" {
			lines = append(lines, line)
		}
	})
	if len(lines) == 0 {
		if text := collapse(doc.Find("body").Text()); text != "" {
			lines = append(lines, text)
		}
	}
	return strings.Join(lines, "\n"), nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
