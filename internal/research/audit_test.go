// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/account-research/internal/llm"
	"github.com/pdiddy/account-research/internal/references"
	"github.com/pdiddy/account-research/internal/search"
	"github.com/pdiddy/account-research/pkg/types"
)

// stripUncited behaves like a compliant auditor model: it drops lines
// without a citation and keeps the rest verbatim.
var stripUncited = llm.GeneratorFunc(func(_ context.Context, _, user string) (string, error) {
	var kept []string
	for _, line := range strings.Split(user, "\n") {
		if references.CitationPattern.MatchString(line) {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n"), nil
})

func TestAuditStripsUncitedClaims(t *testing.T) {
	a := &Auditor{Gen: stripUncited}
	in := types.SectionResult{
		Section: "s1",
		Title:   "Overview",
		Content: "• **Assets:** $10B [ref](https://a.example)\n• **Rumour:** merger soon\n• **Staff:** 900 [ref](https://b.example)",
	}

	out, err := a.Audit(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, in.Section, out.Section)
	assert.Equal(t, in.Title, out.Title)
	assert.True(t, out.Audited)
	assert.NotContains(t, out.Content, "Rumour")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, references.Extract(out.Content))
}

func TestAuditIdempotentOnCompliantContent(t *testing.T) {
	calls := 0
	gen := llm.GeneratorFunc(func(context.Context, string, string) (string, error) {
		calls++
		return "", nil
	})
	a := &Auditor{Gen: gen}
	content := "• **Assets:** $10B [ref](https://a.example)\n\n| Metric | Value |\n| --- | --- |\n| CET1 | 13% [ref](https://b.example) |"
	in := types.SectionResult{Section: "s1", Content: content}

	out, err := a.Audit(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, content, out.Content)
	assert.True(t, out.Audited)
	assert.Zero(t, calls)

	again, err := a.Audit(context.Background(), out)
	require.NoError(t, err)
	assert.Equal(t, content, again.Content)
}

func TestAuditSkipsFailedGeneration(t *testing.T) {
	a := &Auditor{Gen: llm.GeneratorFunc(func(context.Context, string, string) (string, error) {
		t.Fatal("generator should not be called")
		return "", nil
	})}
	in := types.SectionResult{Section: "s1", Content: ErrorMarker + ": boom", GenerationFailed: true}
	out, err := a.Audit(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, in.Content, out.Content)
}

func TestAuditKeepsSearchFailedMarker(t *testing.T) {
	var gotUser string
	a := &Auditor{Gen: llm.GeneratorFunc(func(ctx context.Context, system, user string) (string, error) {
		gotUser = user
		return stripUncited(ctx, system, user)
	})}
	in := types.SectionResult{
		Section:      "s1",
		SearchFailed: true,
		Content:      withSearchMarker("• **Assets:** $10B [ref](https://x.com/a)\n• **Rumour:** merger soon"),
	}

	out, err := a.Audit(context.Background(), in)
	require.NoError(t, err)

	assert.NotContains(t, gotUser, search.FailureSentinel)
	assert.True(t, strings.HasPrefix(out.Content, SearchFailedMarker))
	assert.Contains(t, out.Content, "[ref](https://x.com/a)")
	assert.NotContains(t, out.Content, "Rumour")
}

func TestAuditSkipsCompliantContentWithSearchMarker(t *testing.T) {
	a := &Auditor{Gen: llm.GeneratorFunc(func(context.Context, string, string) (string, error) {
		t.Fatal("generator should not be called")
		return "", nil
	})}
	in := types.SectionResult{SearchFailed: true, Content: withSearchMarker("claim [ref](u)")}
	out, err := a.Audit(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, in.Content, out.Content)
	assert.True(t, out.Audited)
}

func TestAuditPropagatesError(t *testing.T) {
	a := &Auditor{Gen: llm.GeneratorFunc(func(context.Context, string, string) (string, error) {
		return "", errors.New("quota")
	})}
	in := types.SectionResult{Section: "s1", Content: "uncited claim"}
	out, err := a.Audit(context.Background(), in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota")
	assert.Equal(t, "uncited claim", out.Content, "content must be untouched on failure")
	assert.False(t, out.Audited)
}

func TestAuditSendsContentAndRules(t *testing.T) {
	var gotSystem, gotUser string
	a := &Auditor{Gen: llm.GeneratorFunc(func(_ context.Context, system, user string) (string, error) {
		gotSystem, gotUser = system, user
		return "  trimmed [ref](u)  \n", nil
	})}
	out, err := a.Audit(context.Background(), types.SectionResult{Content: "claim"})
	require.NoError(t, err)
	assert.Equal(t, "claim", gotUser)
	assert.Contains(t, gotSystem, "[ref](URL)")
	assert.Equal(t, "trimmed [ref](u)", out.Content)
}

func TestCompliant(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    bool
	}{
		{"all cited", "a [ref](u)\nb [Source](v)", true},
		{"one uncited", "a [ref](u)\nb", false},
		{"separator ignored", "| h [ref](u) |\n| --- |\n| d [ref](v) |", true},
		{"empty", "", false},
		{"blank lines only", "\n\n", false},
		{"search marker skipped", SearchFailedMarker + "\n\na [ref](u)", true},
		{"search marker alone", SearchFailedMarker, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compliant(tt.content))
		})
	}
}
