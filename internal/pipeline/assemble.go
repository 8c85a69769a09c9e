// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"strings"

	"github.com/pdiddy/account-research/internal/references"
	"github.com/pdiddy/account-research/pkg/types"
)

// TitlePrefix starts the top-level heading of every report.
const TitlePrefix = "STRATEGIC ANALYSIS: "

// Assemble builds the final markdown: a title, one "## <title>" block per
// result in the order given, and the references block for urls.
func Assemble(target string, results []types.SectionResult, urls []string) string {
	var b strings.Builder
	b.WriteString("# " + TitlePrefix + target + "\n\n")
	for _, r := range results {
		b.WriteString("## " + r.Title + "\n")
		b.WriteString(strings.TrimSpace(r.Content))
		b.WriteString("\n\n")
	}
	b.WriteString(references.Block(urls))
	return b.String()
}
