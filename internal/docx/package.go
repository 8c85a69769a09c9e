// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"time"
)

// Part names inside the package.
const (
	partContentTypes = "[Content_Types].xml"
	partRootRels     = "_rels/.rels"
	partDocument     = "word/document.xml"
	partDocumentRels = "word/_rels/document.xml.rels"
	partStyles       = "word/styles.xml"
	partCore         = "docProps/core.xml"
)

type relationships struct {
	XMLName xml.Name       `xml:"http://schemas.openxmlformats.org/package/2006/relationships Relationships"`
	Rels    []relationship `xml:"Relationship"`
}

type packageParts struct {
	document []byte
	rels     []relationship
	title    string
	created  time.Time
}

const contentTypesXML = xml.Header + `<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>` +
	`<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>` +
	`</Types>`

var rootRels = []relationship{
	{ID: "rId1", Type: "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument", Target: partDocument},
	{ID: "rId2", Type: "http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties", Target: partCore},
}

const stylesXML = xml.Header + `<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
	`<w:docDefaults><w:rPrDefault><w:rPr><w:rFonts w:ascii="Calibri" w:hAnsi="Calibri" w:cs="Calibri"/><w:sz w:val="20"/><w:szCs w:val="20"/></w:rPr></w:rPrDefault>` +
	`<w:pPrDefault><w:pPr><w:spacing w:after="120" w:line="264" w:lineRule="auto"/></w:pPr></w:pPrDefault></w:docDefaults>` +
	`<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Title"><w:name w:val="Title"/><w:basedOn w:val="Normal"/><w:next w:val="Normal"/><w:pPr><w:spacing w:before="240" w:after="240"/></w:pPr></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Heading1"><w:name w:val="heading 1"/><w:basedOn w:val="Normal"/><w:next w:val="Normal"/><w:pPr><w:keepNext/><w:spacing w:before="240" w:after="120"/><w:outlineLvl w:val="0"/></w:pPr></w:style>` +
	`<w:style w:type="character" w:styleId="Hyperlink"><w:name w:val="Hyperlink"/><w:rPr><w:color w:val="0563C1"/><w:u w:val="single"/></w:rPr></w:style>` +
	`<w:style w:type="table" w:styleId="TableGrid"><w:name w:val="Table Grid"/><w:tblPr><w:tblCellMar><w:left w:w="108" w:type="dxa"/><w:right w:w="108" w:type="dxa"/></w:tblCellMar></w:tblPr></w:style>` +
	`</w:styles>`

func writePackage(p packageParts) ([]byte, error) {
	docRels, err := marshalRels(p.rels)
	if err != nil {
		return nil, err
	}
	pkgRels, err := marshalRels(rootRels)
	if err != nil {
		return nil, err
	}

	parts := []struct {
		name string
		data []byte
	}{
		{partContentTypes, []byte(contentTypesXML)},
		{partRootRels, pkgRels},
		{partDocument, p.document},
		{partDocumentRels, docRels},
		{partStyles, []byte(stylesXML)},
		{partCore, coreXML(p.title, p.created)},
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, part := range parts {
		f, err := zw.Create(part.name)
		if err != nil {
			return nil, fmt.Errorf("creating %s: %w", part.name, err)
		}
		if _, err := f.Write(part.data); err != nil {
			return nil, fmt.Errorf("writing %s: %w", part.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("closing package: %w", err)
	}
	return buf.Bytes(), nil
}

func marshalRels(rels []relationship) ([]byte, error) {
	out, err := xml.Marshal(relationships{Rels: rels})
	if err != nil {
		return nil, fmt.Errorf("marshaling relationships: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

func coreXML(title string, created time.Time) []byte {
	var b bytes.Buffer
	b.WriteString(xml.Header)
	b.WriteString(`<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" ` +
		`xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" ` +
		`xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">`)
	b.WriteString("<dc:title>")
	xml.EscapeText(&b, []byte(title))
	b.WriteString("</dc:title><dc:creator>account-research</dc:creator>")
	if !created.IsZero() {
		fmt.Fprintf(&b, `<dcterms:created xsi:type="dcterms:W3CDTF">%s</dcterms:created>`, created.UTC().Format(time.RFC3339))
	}
	b.WriteString("</cp:coreProperties>")
	return b.Bytes()
}

// Hyperlinks returns the target of every hyperlink in the document body,
// in document order.
func Hyperlinks(docx []byte) ([]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(docx), int64(len(docx)))
	if err != nil {
		return nil, fmt.Errorf("opening package: %w", err)
	}

	relsData, err := readPart(zr, partDocumentRels)
	if err != nil {
		return nil, err
	}
	var rels relationships
	if err := xml.Unmarshal(relsData, &rels); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", partDocumentRels, err)
	}
	targets := make(map[string]string, len(rels.Rels))
	for _, r := range rels.Rels {
		if r.Type == relHL {
			targets[r.ID] = r.Target
		}
	}

	docData, err := readPart(zr, partDocument)
	if err != nil {
		return nil, err
	}

	var links []string
	dec := xml.NewDecoder(bytes.NewReader(docData))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", partDocument, err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Space != nsW || se.Name.Local != "hyperlink" {
			continue
		}
		for _, a := range se.Attr {
			if a.Name.Space == nsR && a.Name.Local == "id" {
				target, ok := targets[a.Value]
				if !ok {
					return nil, fmt.Errorf("hyperlink %s has no relationship", a.Value)
				}
				links = append(links, target)
			}
		}
	}
	return links, nil
}

func readPart(zr *zip.Reader, name string) ([]byte, error) {
	f, err := zr.Open(name)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return data, nil
}
