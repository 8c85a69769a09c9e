// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/account-research/internal/llm"
	"github.com/pdiddy/account-research/internal/references"
	"github.com/pdiddy/account-research/internal/sections"
	"github.com/pdiddy/account-research/pkg/types"
)

// auditSystemPrompt instructs the model to strip unsupported claims.
const auditSystemPrompt = `You are a citation compliance editor. You receive one section of a strategic account report.

Rules:
- Remove every claim, bullet, or table row that does not carry an inline [ref](URL) citation.
- Remove content that cannot be traced to a cited source.
- Do not add new facts, new sources, or new sections.
- Keep every sentence that already carries a [ref](URL) citation exactly as written.
- Return only the revised section content.

` + sections.StylingAddendum

var separatorRow = regexp.MustCompile(`^\|[\s|:\-]+\|?$`)

// Auditor re-invokes the generator on finished section content.
type Auditor struct {
	Gen    llm.Generator
	Logger *zap.Logger
}

// Audit returns result with its content replaced by the audited text.
// Content that already carries a citation on every line is returned
// unchanged without a model call, as is content from a failed generation.
// A leading search-failure marker is withheld from the model and kept on
// the revised content. Generator errors are returned to the caller.
func (a *Auditor) Audit(ctx context.Context, result types.SectionResult) (types.SectionResult, error) {
	if result.GenerationFailed || Compliant(result.Content) {
		result.Audited = true
		return result, nil
	}

	body, marked := trimSearchMarker(result.Content)
	revised, err := a.Gen.Generate(ctx, auditSystemPrompt, body)
	if err != nil {
		return result, fmt.Errorf("auditing section %q: %w", result.Section, err)
	}

	if a.Logger != nil {
		before := len(references.Extract(result.Content))
		after := len(references.Extract(revised))
		a.Logger.Debug("section audited",
			zap.String("section", string(result.Section)),
			zap.Int("citations_before", before),
			zap.Int("citations_after", after))
	}

	result.Content = strings.TrimSpace(revised)
	if marked {
		result.Content = withSearchMarker(result.Content)
	}
	result.Audited = true
	return result, nil
}

// Compliant reports whether every non-blank line of content carries a
// citation marker. Table header rows, separator rows, and
// SearchFailedMarker are skipped.
func Compliant(content string) bool {
	lines := strings.Split(content, "\n")
	cited := false
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || line == SearchFailedMarker || separatorRow.MatchString(line) {
			continue
		}
		if strings.HasPrefix(line, "|") && i+1 < len(lines) && separatorRow.MatchString(strings.TrimSpace(lines[i+1])) {
			continue
		}
		if !references.CitationPattern.MatchString(line) {
			return false
		}
		cited = true
	}
	return cited
}
