// Package docx reads and rewrites the text of WordprocessingML (.docx)
// packages. Only word/document.xml is parsed; every other part of the
// package is carried over untouched.
package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

const (
	documentPart = "word/document.xml"
	mainNS       = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	// ContentType is the MIME type of a .docx file.
	ContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// Document is an opened .docx package.
type Document struct {
	files []*zip.File
	tree  *node
	body  *node
	w     string // prefix bound to the main namespace
}

// Open parses a .docx package from bytes. The caller's slice is not modified.
func Open(data []byte) (*Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}

	raw, err := readZipFile(zr.File, documentPart)
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}

	tree, err := parseTree(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", documentPart, err)
	}

	root := rootElement(tree)
	if root == nil {
		return nil, fmt.Errorf("parse %s: no root element", documentPart)
	}
	w := mainPrefix(root)
	body := root.child(w, "body")
	if !root.is(w, "document") || body == nil {
		return nil, fmt.Errorf("parse %s: missing document body", documentPart)
	}

	return &Document{files: zr.File, tree: tree, body: body, w: w}, nil
}

func readZipFile(files []*zip.File, target string) ([]byte, error) {
	for _, f := range files {
		if f == nil || !strings.EqualFold(f.Name, target) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("file not found: %s", target)
}

func rootElement(tree *node) *node {
	for _, c := range tree.children {
		if c.kind == kindElement {
			return c
		}
	}
	return nil
}

// mainPrefix finds the prefix declared for the main namespace. A default
// namespace binding yields "". Nearly every producer uses "w", which is also
// the fallback.
func mainPrefix(root *node) string {
	def := false
	for _, a := range root.attr {
		switch {
		case a.Value != mainNS:
		case a.Name.Space == "xmlns":
			return a.Name.Local
		case a.Name.Space == "" && a.Name.Local == "xmlns":
			def = true
		}
	}
	if def {
		return ""
	}
	return "w"
}

// Paragraphs returns the top-level body paragraphs, including those wrapped
// in content controls.
func (d *Document) Paragraphs() []Paragraph {
	var out []Paragraph
	eachBlock(d.body, d.w, func(n *node) {
		if n.is(d.w, "p") {
			out = append(out, Paragraph{n: n, w: d.w})
		}
	})
	return out
}

// eachBlock visits block-level children of container, looking through
// content controls and custom XML wrappers.
func eachBlock(container *node, w string, fn func(*node)) {
	for _, c := range container.children {
		switch {
		case c.is(w, "sdt"):
			if content := c.child(w, "sdtContent"); content != nil {
				eachBlock(content, w, fn)
			}
		case c.is(w, "customXml"):
			eachBlock(c, w, fn)
		case c.kind == kindElement:
			fn(c)
		}
	}
}

// Walk calls fn for every paragraph in document order: body paragraphs and
// the paragraphs of every table cell, nested tables included.
func (d *Document) Walk(fn func(Paragraph)) {
	walkBlocks(d.body, d.w, fn)
}

func walkBlocks(container *node, w string, fn func(Paragraph)) {
	eachBlock(container, w, func(n *node) {
		switch {
		case n.is(w, "p"):
			fn(Paragraph{n: n, w: w})
		case n.is(w, "tbl"):
			for _, r := range (table{n: n, w: w}).rows() {
				for _, c := range r.cells() {
					walkBlocks(c, w, fn)
				}
			}
		}
	})
}

// Text returns the non-blank paragraph texts in document order, one per line.
func (d *Document) Text() string {
	var lines []string
	d.Walk(func(p Paragraph) {
		if t := p.Text(); strings.TrimSpace(t) != "" {
			lines = append(lines, t)
		}
	})
	return strings.Join(lines, "\n")
}

// ReplaceBody discards the body content and writes one paragraph per line.
// Section properties (page size, margins) are kept.
func (d *Document) ReplaceBody(lines []string) {
	sectPr := d.body.child(d.w, "sectPr")

	children := make([]*node, 0, len(lines)+1)
	for _, line := range lines {
		p := element(d.w, "p")
		if line != "" {
			p.children = append(p.children, textRun(d.w, line))
		}
		children = append(children, p)
	}
	if sectPr != nil {
		children = append(children, sectPr)
	}
	d.body.children = children
}

// Bytes serialises the document back into a .docx package.
func (d *Document) Bytes() ([]byte, error) {
	var xmlBuf bytes.Buffer
	d.tree.write(&xmlBuf)

	var out bytes.Buffer
	zw := zip.NewWriter(&out)
	for _, f := range d.files {
		if !strings.EqualFold(f.Name, documentPart) {
			if err := zw.Copy(f); err != nil {
				return nil, fmt.Errorf("copy %s: %w", f.Name, err)
			}
			continue
		}
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: f.Name, Method: zip.Deflate, Modified: f.Modified})
		if err != nil {
			return nil, fmt.Errorf("write %s: %w", f.Name, err)
		}
		if _, err := fw.Write(xmlBuf.Bytes()); err != nil {
			return nil, fmt.Errorf("write %s: %w", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close docx: %w", err)
	}
	return out.Bytes(), nil
}

// Paragraph is a w:p element.
type Paragraph struct {
	n *node
	w string
}

// Text concatenates the paragraph's text runs.
func (p Paragraph) Text() string {
	var sb strings.Builder
	for _, t := range p.textNodes() {
		sb.WriteString(t.innerText())
	}
	return sb.String()
}

// textNodes returns the w:t elements of the paragraph in order. Text boxes
// anchored in the paragraph hold their own paragraphs and are skipped.
func (p Paragraph) textNodes() []*node {
	var out []*node
	var visit func(*node)
	visit = func(n *node) {
		for _, c := range n.children {
			switch {
			case c.kind != kindElement:
			case c.is(p.w, "t"):
				out = append(out, c)
			case c.is(p.w, "txbxContent"):
			default:
				visit(c)
			}
		}
	}
	visit(p.n)
	return out
}

// SetText replaces the paragraph text. The first run keeps its formatting and
// receives all the text; later runs are emptied.
func (p Paragraph) SetText(s string) {
	nodes := p.textNodes()
	if len(nodes) == 0 {
		if s != "" {
			p.n.children = append(p.n.children, textRun(p.w, s))
		}
		return
	}
	for i, t := range nodes {
		if i == 0 {
			setRunText(t, s)
			continue
		}
		t.setInnerText("")
	}
}

// Replacer rewrites a string. *strings.Replacer satisfies it.
type Replacer interface {
	Replace(s string) string
}

// ReplaceAll applies r to the paragraph text and reports whether anything
// changed. Replacement happens run by run when every token sits inside a
// single run, keeping per-run formatting; a token split across runs makes the
// whole paragraph collapse into its first run.
func (p Paragraph) ReplaceAll(r Replacer) bool {
	full := p.Text()
	want := r.Replace(full)
	if want == full {
		return false
	}

	nodes := p.textNodes()
	parts := make([]string, len(nodes))
	for i, t := range nodes {
		parts[i] = r.Replace(t.innerText())
	}
	if strings.Join(parts, "") == want {
		for i, t := range nodes {
			setRunText(t, parts[i])
		}
		return true
	}

	p.SetText(want)
	return true
}

func setRunText(t *node, s string) {
	t.setInnerText(s)
	t.setAttr(xml.Name{Space: "xml", Local: "space"}, "preserve")
}

func textRun(w, s string) *node {
	t := element(w, "t")
	setRunText(t, s)
	return element(w, "r", t)
}

// table is a w:tbl element. Rows and cells wrapped in content controls are
// included.
type table struct {
	n *node
	w string
}

func (t table) rows() []row {
	var out []row
	eachBlock(t.n, t.w, func(n *node) {
		if n.is(t.w, "tr") {
			out = append(out, row{n: n, w: t.w})
		}
	})
	return out
}

// row is a w:tr element.
type row struct {
	n *node
	w string
}

func (r row) cells() []*node {
	var out []*node
	eachBlock(r.n, r.w, func(n *node) {
		if n.is(r.w, "tc") {
			out = append(out, n)
		}
	})
	return out
}
