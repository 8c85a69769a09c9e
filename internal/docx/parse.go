// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package docx

import (
	"regexp"
	"strings"

	"github.com/pdiddy/account-research/internal/references"
	"github.com/pdiddy/account-research/internal/sections"
)

// BlockKind classifies a rendered block.
type BlockKind int

const (
	BlockTitle BlockKind = iota
	BlockHeading
	BlockTable
	BlockBullet
	BlockSubBullet
	BlockParagraph
	BlockReference
)

// Block is one paragraph-level element of the document.
type Block struct {
	Kind BlockKind

	// Runs holds the styled content of non-table blocks.
	Runs []Run

	// Table is set for BlockTable.
	Table *Table

	// URL is set for BlockReference.
	URL string
}

// Table is a parsed markdown table. Every row has exactly Columns cells.
type Table struct {
	Header  []string
	Rows    [][]string
	Columns int
}

// Grid returns the header followed by the data rows.
func (t *Table) Grid() [][]string {
	grid := make([][]string, 0, len(t.Rows)+1)
	grid = append(grid, t.Header)
	return append(grid, t.Rows...)
}

const tableDelimiter = "|"

var separatorRow = regexp.MustCompile(`^\|?(\s*:?-+:?\s*\|)+\s*(:?-+:?)?\s*$`)

// listItem matches the markdown list markers used in the references block.
var listItem = regexp.MustCompile(`^[-*]\s+`)

// Parse converts markdown into blocks. Each line is matched, in order, as
// a title, a sub heading, a table row, a bullet, or plain text; blank
// lines produce nothing. "- <url>" lines under the references title
// become reference entries.
func Parse(markdown string) []Block {
	lines := strings.Split(strings.ReplaceAll(markdown, "\r\n", "\n"), "\n")
	var blocks []Block
	inReferences := false

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		switch {
		case line == "":
			continue

		case strings.HasPrefix(line, "##"):
			inReferences = false
			blocks = append(blocks, Block{Kind: BlockHeading, Runs: RenderLine(headingText(line))})

		case strings.HasPrefix(line, "#"):
			text := headingText(line)
			inReferences = strings.EqualFold(text, references.Heading)
			blocks = append(blocks, Block{Kind: BlockTitle, Runs: RenderLine(text)})

		case strings.HasPrefix(line, tableDelimiter):
			start := i
			for i+1 < len(lines) && strings.HasPrefix(strings.TrimSpace(lines[i+1]), tableDelimiter) {
				i++
			}
			if t := ParseTable(lines[start : i+1]); t != nil {
				blocks = append(blocks, Block{Kind: BlockTable, Table: t})
			}

		case strings.HasPrefix(line, sections.BulletGlyph):
			rest := strings.TrimSpace(strings.TrimPrefix(line, sections.BulletGlyph))
			blocks = append(blocks, Block{Kind: BlockBullet, Runs: RenderLine(rest)})

		case strings.HasPrefix(line, sections.SubBulletGlyph):
			rest := strings.TrimSpace(strings.TrimPrefix(line, sections.SubBulletGlyph))
			blocks = append(blocks, Block{Kind: BlockSubBullet, Runs: RenderLine(rest)})

		case inReferences && listItem.MatchString(line):
			url := strings.TrimSpace(listItem.ReplaceAllString(line, ""))
			blocks = append(blocks, Block{Kind: BlockReference, URL: url})

		case listItem.MatchString(line):
			blocks = append(blocks, Block{Kind: BlockBullet, Runs: RenderLine(listItem.ReplaceAllString(line, ""))})

		default:
			blocks = append(blocks, Block{Kind: BlockParagraph, Runs: RenderLine(line)})
		}
	}
	return blocks
}

func headingText(line string) string {
	return strings.TrimSpace(strings.TrimLeft(line, "#"))
}

// ParseTable parses a run of consecutive table lines. The first line is
// the header; a second line made only of delimiters and dashes is
// discarded. The column count comes from the header: shorter rows are
// padded with empty cells and longer rows are truncated. It returns nil
// when no line yields a cell.
func ParseTable(lines []string) *Table {
	var rows [][]string
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if i == 1 && separatorRow.MatchString(line) {
			continue
		}
		rows = append(rows, splitCells(line))
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil
	}

	t := &Table{Header: rows[0], Columns: len(rows[0])}
	for _, r := range rows[1:] {
		t.Rows = append(t.Rows, fit(r, t.Columns))
	}
	return t
}

// splitCells splits "| a | b |" into ["a", "b"].
func splitCells(line string) []string {
	line = strings.TrimPrefix(line, tableDelimiter)
	line = strings.TrimSuffix(line, tableDelimiter)
	parts := strings.Split(line, tableDelimiter)
	cells := make([]string, len(parts))
	for i, p := range parts {
		cells[i] = strings.TrimSpace(p)
	}
	return cells
}

func fit(row []string, n int) []string {
	if len(row) >= n {
		return row[:n]
	}
	out := make([]string, n)
	copy(out, row)
	return out
}
