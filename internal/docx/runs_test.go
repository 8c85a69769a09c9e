// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package docx

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderLineHyperlink(t *testing.T) {
	got := RenderLine("Revenue grew 5% [ref](https://example.com/a).")
	want := []Run{
		{Kind: RunText, Text: "Revenue grew 5% "},
		{Kind: RunHyperlink, Text: "[ref]", URL: "https://example.com/a"},
		{Kind: RunText, Text: "."},
	}
	assert.Equal(t, want, got)
}

func TestRenderLineBold(t *testing.T) {
	got := RenderLine("**Assets:** $10B [ref](https://example.com/b)")
	want := []Run{
		{Kind: RunBold, Text: "Assets:"},
		{Kind: RunText, Text: " $10B "},
		{Kind: RunHyperlink, Text: "[ref]", URL: "https://example.com/b"},
	}
	assert.Equal(t, want, got)
	for _, r := range got {
		assert.NotContains(t, r.Text, "**")
	}
}

func TestRenderLineSourceForm(t *testing.T) {
	got := RenderLine("Core vendor is FIS [Source](https://fis.example/pr)")
	assert.Equal(t, []Run{
		{Kind: RunText, Text: "Core vendor is FIS "},
		{Kind: RunHyperlink, Text: "[ref]", URL: "https://fis.example/pr"},
	}, got)
}

func TestRenderLineCases(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []Run
	}{
		{
			name: "plain",
			line: "just text",
			want: []Run{{Kind: RunText, Text: "just text"}},
		},
		{
			name: "empty",
			line: "",
			want: nil,
		},
		{
			name: "unmatched bold stays plain",
			line: "a **b c",
			want: []Run{{Kind: RunText, Text: "a **b c"}},
		},
		{
			name: "matched then unmatched",
			line: "**x** y **z",
			want: []Run{{Kind: RunBold, Text: "x"}, {Kind: RunText, Text: " y **z"}},
		},
		{
			name: "empty bold skipped",
			line: "a****b",
			want: []Run{{Kind: RunText, Text: "a"}, {Kind: RunText, Text: "b"}},
		},
		{
			name: "bold inside text",
			line: "Total **$5B** in loans",
			want: []Run{{Kind: RunText, Text: "Total "}, {Kind: RunBold, Text: "$5B"}, {Kind: RunText, Text: " in loans"}},
		},
		{
			name: "adjacent citations",
			line: "[ref](u1)[ref](u2)",
			want: []Run{
				{Kind: RunHyperlink, Text: "[ref]", URL: "u1"},
				{Kind: RunHyperlink, Text: "[ref]", URL: "u2"},
			},
		},
		{
			name: "ordinary link untouched",
			line: "see [site](https://x.example)",
			want: []Run{{Kind: RunText, Text: "see [site](https://x.example)"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RenderLine(tt.line))
		})
	}
}

func TestRenderLineNeverPanics(t *testing.T) {
	inputs := []string{"**", "***", "[ref](", "[ref]()", "| ** |", strings.Repeat("*", 7), "**[ref](u)**"}
	for _, in := range inputs {
		assert.NotPanics(t, func() { RenderLine(in) }, in)
	}
}
