// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package docx

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/account-research/internal/references"
	"github.com/pdiddy/account-research/internal/sections"
	"github.com/pdiddy/account-research/pkg/types"
)

// Assembler builds .docx documents from report markdown.
type Assembler struct {
	Style types.StyleConfig

	// Created is written to the core properties when non-zero.
	Created time.Time
}

// New returns an Assembler with style, filling unset fields from types.DefaultStyle.
func New(style types.StyleConfig) *Assembler {
	def := types.DefaultStyle()
	if style.BrandColor == "" {
		style.BrandColor = def.BrandColor
	}
	if style.LinkColor == "" {
		style.LinkColor = def.LinkColor
	}
	if style.TitleSize <= 0 {
		style.TitleSize = def.TitleSize
	}
	if style.HeadingSize <= 0 {
		style.HeadingSize = def.HeadingSize
	}
	if style.BodySize <= 0 {
		style.BodySize = def.BodySize
	}
	return &Assembler{Style: style}
}

// Render implements the pipeline renderer.
func (a *Assembler) Render(markdown string, urls []string) ([]byte, error) {
	return a.Assemble(markdown, urls)
}

// Assemble converts markdown into a .docx package. When markdown has no
// references title and urls is non-empty, a references list is appended.
func (a *Assembler) Assemble(markdown string, urls []string) ([]byte, error) {
	blocks := Parse(markdown)
	if !hasReferences(blocks) {
		if block := references.Block(urls); block != "" {
			blocks = append(blocks, Parse(block)...)
		}
	}

	w := newDocWriter(a.Style)
	for _, b := range blocks {
		w.block(b)
	}

	return writePackage(packageParts{
		document: w.document(),
		rels:     w.rels,
		title:    documentTitle(blocks),
		created:  a.Created,
	})
}

// Assemble renders markdown with the default style.
func Assemble(markdown string, urls []string) ([]byte, error) {
	return New(types.StyleConfig{}).Assemble(markdown, urls)
}

func hasReferences(blocks []Block) bool {
	for _, b := range blocks {
		if b.Kind == BlockTitle && strings.EqualFold(plainText(b.Runs), references.Heading) {
			return true
		}
	}
	return false
}

func documentTitle(blocks []Block) string {
	for _, b := range blocks {
		if b.Kind == BlockTitle {
			return plainText(b.Runs)
		}
	}
	return ""
}

func plainText(runs []Run) string {
	var b strings.Builder
	for _, r := range runs {
		b.WriteString(r.Text)
	}
	return b.String()
}

// relationship is one entry of a .rels part.
type relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr,omitempty"`
}

const (
	nsW   = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsR   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	relHL = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink"
	relSt = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles"

	// Body width in twentieths of a point for a letter page with 1" margins.
	bodyWidth = 9360
)

// docWriter accumulates the body of word/document.xml and its hyperlink relationships.
type docWriter struct {
	style types.StyleConfig
	body  bytes.Buffer
	rels  []relationship
	byURL map[string]string
}

func newDocWriter(style types.StyleConfig) *docWriter {
	return &docWriter{
		style: style,
		rels:  []relationship{{ID: "rId1", Type: relSt, Target: "styles.xml"}},
		byURL: make(map[string]string),
	}
}

// hyperlinkID registers an external relationship for url, reusing an
// existing one for a repeated URL.
func (w *docWriter) hyperlinkID(url string) string {
	if id, ok := w.byURL[url]; ok {
		return id
	}
	id := "rId" + strconv.Itoa(len(w.rels)+1)
	w.rels = append(w.rels, relationship{ID: id, Type: relHL, Target: url, TargetMode: "External"})
	w.byURL[url] = id
	return id
}

type runStyle struct {
	bold  bool
	color string
	size  int
}

func (w *docWriter) block(b Block) {
	body := runStyle{size: w.style.BodySize}
	switch b.Kind {
	case BlockTitle:
		w.paragraph("Title", "", b.Runs, runStyle{bold: true, color: w.style.BrandColor, size: w.style.TitleSize})
	case BlockHeading:
		w.paragraph("Heading1", "", b.Runs, runStyle{bold: true, color: w.style.BrandColor, size: w.style.HeadingSize})
	case BlockBullet:
		runs := append([]Run{{Kind: RunBold, Text: sections.BulletGlyph + " "}}, b.Runs...)
		w.paragraph("", `<w:ind w:left="360" w:hanging="360"/>`, runs, body)
	case BlockSubBullet:
		runs := append([]Run{{Kind: RunBold, Text: sections.SubBulletGlyph + " "}}, b.Runs...)
		w.paragraph("", `<w:ind w:left="720" w:hanging="360"/>`, runs, body)
	case BlockReference:
		w.paragraph("", "", []Run{{Kind: RunHyperlink, Text: b.URL, URL: b.URL}}, body)
	case BlockTable:
		w.table(b.Table)
	default:
		w.paragraph("", "", b.Runs, body)
	}
}

func (w *docWriter) paragraph(styleID, extraPPr string, runs []Run, rs runStyle) {
	w.body.WriteString("<w:p>")
	if styleID != "" || extraPPr != "" {
		w.body.WriteString("<w:pPr>")
		if styleID != "" {
			fmt.Fprintf(&w.body, `<w:pStyle w:val="%s"/>`, styleID)
		}
		w.body.WriteString(extraPPr)
		w.body.WriteString("</w:pPr>")
	}
	w.runs(runs, rs)
	w.body.WriteString("</w:p>")
}

func (w *docWriter) runs(runs []Run, base runStyle) {
	for _, r := range runs {
		switch r.Kind {
		case RunHyperlink:
			fmt.Fprintf(&w.body, `<w:hyperlink r:id="%s" w:history="1">`, w.hyperlinkID(r.URL))
			w.body.WriteString(`<w:r><w:rPr><w:rStyle w:val="Hyperlink"/>`)
			fmt.Fprintf(&w.body, `<w:color w:val="%s"/>`, w.style.LinkColor)
			writeSize(&w.body, base.size)
			w.body.WriteString(`<w:u w:val="single"/></w:rPr>`)
			writeText(&w.body, r.Text)
			w.body.WriteString(`</w:r></w:hyperlink>`)
		default:
			rs := base
			if r.Kind == RunBold {
				rs.bold = true
			}
			w.textRun(r.Text, rs)
		}
	}
}

func (w *docWriter) textRun(text string, rs runStyle) {
	w.body.WriteString("<w:r>")
	if rs.bold || rs.color != "" || rs.size > 0 {
		w.body.WriteString("<w:rPr>")
		if rs.bold {
			w.body.WriteString("<w:b/>")
		}
		if rs.color != "" {
			fmt.Fprintf(&w.body, `<w:color w:val="%s"/>`, rs.color)
		}
		writeSize(&w.body, rs.size)
		w.body.WriteString("</w:rPr>")
	}
	writeText(&w.body, text)
	w.body.WriteString("</w:r>")
}

func (w *docWriter) table(t *Table) {
	colWidth := bodyWidth / t.Columns
	w.body.WriteString(`<w:tbl><w:tblPr><w:tblStyle w:val="TableGrid"/><w:tblW w:w="0" w:type="auto"/>`)
	w.body.WriteString(`<w:tblBorders>`)
	for _, side := range []string{"top", "left", "bottom", "right", "insideH", "insideV"} {
		fmt.Fprintf(&w.body, `<w:%s w:val="single" w:sz="4" w:space="0" w:color="auto"/>`, side)
	}
	w.body.WriteString(`</w:tblBorders></w:tblPr><w:tblGrid>`)
	for i := 0; i < t.Columns; i++ {
		fmt.Fprintf(&w.body, `<w:gridCol w:w="%d"/>`, colWidth)
	}
	w.body.WriteString(`</w:tblGrid>`)

	for i, row := range t.Grid() {
		w.body.WriteString("<w:tr>")
		for _, cell := range row {
			fmt.Fprintf(&w.body, `<w:tc><w:tcPr><w:tcW w:w="%d" w:type="dxa"/></w:tcPr>`, colWidth)
			rs := runStyle{size: w.style.BodySize, bold: i == 0}
			w.paragraph("", "", RenderLine(cell), rs)
			w.body.WriteString("</w:tc>")
		}
		w.body.WriteString("</w:tr>")
	}
	w.body.WriteString("</w:tbl>")
	// Adjacent tables merge without a paragraph between them.
	w.body.WriteString("<w:p/>")
}

func (w *docWriter) document() []byte {
	var b bytes.Buffer
	b.WriteString(xml.Header)
	fmt.Fprintf(&b, `<w:document xmlns:w="%s" xmlns:r="%s"><w:body>`, nsW, nsR)
	b.Write(w.body.Bytes())
	b.WriteString(`<w:sectPr><w:pgSz w:w="12240" w:h="15840"/>`)
	b.WriteString(`<w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440" w:header="720" w:footer="720" w:gutter="0"/>`)
	b.WriteString(`</w:sectPr></w:body></w:document>`)
	return b.Bytes()
}

// writeSize writes a font size given in points; OOXML counts half-points.
func writeSize(b *bytes.Buffer, points int) {
	if points > 0 {
		fmt.Fprintf(b, `<w:sz w:val="%d"/><w:szCs w:val="%d"/>`, points*2, points*2)
	}
}

func writeText(b *bytes.Buffer, text string) {
	b.WriteString(`<w:t xml:space="preserve">`)
	xml.EscapeText(b, []byte(text))
	b.WriteString(`</w:t>`)
}
