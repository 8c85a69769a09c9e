// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sections

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/pdiddy/account-research/pkg/types"
)

// Glyphs the model must use and the renderer recognizes.
const (
	BulletGlyph    = "•"
	SubBulletGlyph = "◦"
)

// StylingAddendum is appended to every section's system prompt. The
// renderer only understands the constructs listed here.
const StylingAddendum = `FORMATTING RULES (mandatory):
- Start every top-level point with "` + BulletGlyph + ` " and every sub-point with "` + SubBulletGlyph + ` ".
- Begin each point with a bold category label, e.g. "` + BulletGlyph + ` **Total Assets:** ...".
- Append a citation of the exact form [ref](URL) to every factual claim, using a URL from the sources provided.
- Never write a bare URL and never add a reference list at the end; citations are inline only.
- When tabular data is required, use Markdown table syntax with a header row followed by a separator row such as | --- | --- |.
- Do not use headings; the section heading is added for you.
- If a fact cannot be sourced, omit it.`

var systemPromptTmpl = template.Must(template.New("system").
	Funcs(template.FuncMap{"add": func(a, b int) int { return a + b }}).
	Parse(`Persona: {{.Persona}}.
Focus: {{.Focus}}
Requirements:
{{range $i, $r := .Requirements}}{{add $i 1}}. {{$r}}
{{end}}Citations: Every metric and claim must be cited as [ref](URL).

` + StylingAddendum + `
`))

// SystemPrompt renders the persona, structure, and citation rule for spec
// with target substituted, followed by StylingAddendum.
func SystemPrompt(spec types.SectionSpec, target string) string {
	focus, err := render(spec.Focus, templateData{Target: target, Title: spec.Title})
	if err != nil {
		focus = strings.ReplaceAll(spec.Focus, "{{.Target}}", target)
	}
	reqs := make([]string, len(spec.Requirements))
	for i, r := range spec.Requirements {
		out, err := render(r, templateData{Target: target, Title: spec.Title})
		if err != nil {
			out = r
		}
		reqs[i] = out
	}

	var buf bytes.Buffer
	data := struct {
		Persona      string
		Focus        string
		Requirements []string
	}{Persona: spec.Persona, Focus: focus, Requirements: reqs}
	if err := systemPromptTmpl.Execute(&buf, data); err != nil {
		return spec.Persona + "\n" + focus + "\n\n" + StylingAddendum
	}
	return buf.String()
}
