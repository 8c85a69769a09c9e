// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package research produces the content of one report section: it searches
// the web, builds the section prompt, and calls the generator. The Auditor
// optionally re-checks generated content against the citation rule.
package research

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/pdiddy/account-research/internal/llm"
	"github.com/pdiddy/account-research/internal/search"
	"github.com/pdiddy/account-research/internal/sections"
	"github.com/pdiddy/account-research/pkg/types"
)

// ErrorMarker prefixes the content of a section whose generation failed.
const ErrorMarker = "> **Error:** section generation failed"

// SearchFailedMarker heads the content of a section written without web
// results.
const SearchFailedMarker = "> *" + search.FailureSentinel + "; this section was written without web sources.*"

// userMessageTmpl carries the target, the ground-truth prefix, and the
// web results for one section.
var userMessageTmpl = template.Must(template.New("user").Parse(`Target company: {{.Target}}
Section: {{.Title}}

Ground Truth Context (uploaded document, higher trust than web results):
{{if .GroundTruth}}{{.GroundTruth}}{{else}}None provided.{{end}}

Web Context:
{{.Web}}
`))

// Researcher runs the search and generation steps for one section.
// It holds no per-run state and is safe for concurrent use.
type Researcher struct {
	Search search.Backend
	Gen    llm.Generator

	// ContextLimit bounds the ground-truth prefix in characters.
	ContextLimit int

	// MaxResults is the number of search results requested (0 = backend default).
	MaxResults int

	Logger *zap.Logger
}

// Research produces the result for spec and the URLs consulted.
//
// Search failures are recovered: generation proceeds with a sentinel
// context and no URLs. Generation failures are surfaced in the content
// as an inline error marker. The only returned error is the context's,
// when the run has been cancelled.
func (r *Researcher) Research(ctx context.Context, spec types.SectionSpec, target, groundTruth string) (types.SectionResult, []string, error) {
	logger := r.logger().With(zap.String("section", string(spec.ID)))
	result := types.SectionResult{Section: spec.ID, Title: spec.Title}

	query := search.Query{
		Text:       sections.Query(spec, target),
		Domains:    spec.Domains,
		MaxResults: r.MaxResults,
	}

	var web string
	var urls []string
	hits, err := r.Search.Search(ctx, query)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return types.SectionResult{}, nil, ctxErr
	}
	if err != nil {
		logger.Warn("search failed, continuing with reduced context",
			zap.String("query", query.Text), zap.Error(err))
		web = search.FailureContext(err)
		result.SearchFailed = true
	} else {
		hits = search.Normalize(hits)
		urls = search.URLs(hits)
		web = search.FormatContext(hits)
		logger.Debug("search complete", zap.String("query", query.Text), zap.Int("results", len(hits)))
	}

	user, err := renderUserMessage(target, spec.Title, TruncateContext(groundTruth, r.ContextLimit), web)
	if err != nil {
		return types.SectionResult{}, nil, fmt.Errorf("rendering user message: %w", err)
	}

	content, err := r.Gen.Generate(ctx, sections.SystemPrompt(spec, target), user)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return types.SectionResult{}, nil, ctxErr
	}
	if err != nil {
		logger.Error("generation failed", zap.Error(err))
		content = fmt.Sprintf("%s: %v", ErrorMarker, err)
		result.GenerationFailed = true
	}
	if result.SearchFailed {
		content = withSearchMarker(content)
	}

	result.Content = content
	result.URLs = urls
	return result, urls, nil
}

func withSearchMarker(content string) string {
	return SearchFailedMarker + "\n\n" + content
}

// trimSearchMarker removes a leading SearchFailedMarker from content.
func trimSearchMarker(content string) (string, bool) {
	body, ok := strings.CutPrefix(strings.TrimLeft(content, "\n"), SearchFailedMarker)
	if !ok {
		return content, false
	}
	return strings.TrimLeft(body, "\n"), true
}

func (r *Researcher) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

func renderUserMessage(target, title, groundTruth, web string) (string, error) {
	var buf bytes.Buffer
	err := userMessageTmpl.Execute(&buf, struct {
		Target, Title, GroundTruth, Web string
	}{target, title, groundTruth, web})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// TruncateContext returns at most limit characters of text, cutting on a
// rune boundary. A non-positive limit selects types.DefaultContextLimit.
func TruncateContext(text string, limit int) string {
	if limit <= 0 {
		limit = types.DefaultContextLimit
	}
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	n := 0
	for i := range text {
		if n == limit {
			return text[:i]
		}
		n++
	}
	return text
}
