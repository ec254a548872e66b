// Package docxtest builds small .docx packages for tests.
package docxtest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Block is a body-level fragment of word/document.xml.
type Block string

// Paragraph builds a paragraph with one run per argument, so a test can
// split a placeholder across runs.
func Paragraph(runs ...string) Block {
	var sb strings.Builder
	sb.WriteString("<w:p>")
	for _, r := range runs {
		sb.WriteString(`<w:r><w:rPr><w:b/></w:rPr><w:t xml:space="preserve">`)
		sb.WriteString(escape(r))
		sb.WriteString("</w:t></w:r>")
	}
	sb.WriteString("</w:p>")
	return Block(sb.String())
}

// Table builds a table; each cell holds one single-run paragraph.
func Table(rows ...[]string) Block {
	var sb strings.Builder
	sb.WriteString("<w:tbl><w:tblPr/>")
	for _, row := range rows {
		sb.WriteString("<w:tr>")
		for _, cell := range row {
			sb.WriteString("<w:tc>")
			sb.WriteString(string(Paragraph(cell)))
			sb.WriteString("</w:tc>")
		}
		sb.WriteString("</w:tr>")
	}
	sb.WriteString("</w:tbl>")
	return Block(sb.String())
}

// NestedTable builds a one-cell table whose cell holds inner.
func NestedTable(inner Block) Block {
	return Block("<w:tbl><w:tr><w:tc>" + string(inner) + "<w:p/></w:tc></w:tr></w:tbl>")
}

const (
	contentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/><Default Extension="xml" ContentType="application/xml"/><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`

	rels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/></Relationships>`

	documentHead = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"><w:body>`

	documentTail = `<w:sectPr><w:pgSz w:w="12240" w:h="15840"/></w:sectPr></w:body></w:document>`
)

// Build returns a minimal .docx package containing blocks.
func Build(tb testing.TB, blocks ...Block) []byte {
	tb.Helper()

	var doc strings.Builder
	doc.WriteString(documentHead)
	for _, b := range blocks {
		doc.WriteString(string(b))
	}
	doc.WriteString(documentTail)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, part := range []struct{ name, body string }{
		{"[Content_Types].xml", contentTypes},
		{"_rels/.rels", rels},
		{"word/document.xml", doc.String()},
	} {
		w, err := zw.Create(part.name)
		if err != nil {
			tb.Fatalf("create %s: %v", part.name, err)
		}
		if _, err := w.Write([]byte(part.body)); err != nil {
			tb.Fatalf("write %s: %v", part.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		tb.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

// Write builds a package and writes it to path, creating parent directories.
func Write(tb testing.TB, path string, blocks ...Block) {
	tb.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		tb.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, Build(tb, blocks...), 0o644); err != nil {
		tb.Fatalf("write %s: %v", path, err)
	}
}

func escape(s string) string {
	var b bytes.Buffer
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
