package docx

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/clerk/internal/docx/docxtest"
)

func open(t *testing.T, blocks ...docxtest.Block) *Document {
	t.Helper()
	doc, err := Open(docxtest.Build(t, blocks...))
	require.NoError(t, err)
	return doc
}

func reopen(t *testing.T, doc *Document) *Document {
	t.Helper()
	data, err := doc.Bytes()
	require.NoError(t, err)
	out, err := Open(data)
	require.NoError(t, err)
	return out
}

func TestOpen_Invalid(t *testing.T) {
	_, err := Open([]byte("not a zip"))
	assert.Error(t, err)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, _ = zw.Create("other.xml")
	require.NoError(t, zw.Close())
	_, err = Open(buf.Bytes())
	assert.ErrorContains(t, err, "word/document.xml")
}

func TestText_DocumentOrder(t *testing.T) {
	doc := open(t,
		docxtest.Paragraph("Title"),
		docxtest.Paragraph("   "),
		docxtest.Table([]string{"Name", "[Tenant Name]"}),
		docxtest.NestedTable(docxtest.Table([]string{"inner"})),
		docxtest.Paragraph("Dated ", "[Date]"),
	)

	assert.Equal(t, "Title\nName\n[Tenant Name]\ninner\nDated [Date]", doc.Text())
	assert.Len(t, doc.Paragraphs(), 3)

	var walked []string
	doc.Walk(func(p Paragraph) { walked = append(walked, p.Text()) })
	assert.Equal(t, []string{"Title", "   ", "Name", "[Tenant Name]", "inner", "", "Dated [Date]"}, walked)
}

func TestWalk_ContentControlsInTables(t *testing.T) {
	doc := open(t, docxtest.Block(
		`<w:tbl><w:sdt><w:sdtContent><w:tr>`+
			`<w:sdt><w:sdtContent><w:tc>`+string(docxtest.Paragraph("[Landlord Name]"))+`</w:tc></w:sdtContent></w:sdt>`+
			`<w:tc>`+string(docxtest.Paragraph("plain"))+`</w:tc>`+
			`</w:tr></w:sdtContent></w:sdt></w:tbl>`))

	assert.Equal(t, "[Landlord Name]\nplain", doc.Text())
}

func TestOpen_DefaultNamespace(t *testing.T) {
	const body = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<document xmlns="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><body>` +
		`<p><r><t>Tenant: [Tenant Name]</t></r></p>` +
		`<tbl><tr><tc><p><r><t>[Date]</t></r></p></tc></tr></tbl>` +
		`<sectPr/></body></document>`
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	doc, err := Open(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "", doc.w)
	assert.Equal(t, "Tenant: [Tenant Name]\n[Date]", doc.Text())

	doc.Walk(func(p Paragraph) {
		p.ReplaceAll(strings.NewReplacer("[Tenant Name]", "Jane Doe", "[Date]", "1 May 2025"))
	})
	again := reopen(t, doc)
	assert.Equal(t, "Tenant: Jane Doe\n1 May 2025", again.Text())

	doc.ReplaceBody([]string{"rewritten"})
	again = reopen(t, doc)
	assert.Equal(t, "rewritten", again.Text())
	assert.NotNil(t, again.body.child("", "sectPr"))
}

func TestReplaceAll_WithinRuns(t *testing.T) {
	doc := open(t, docxtest.Paragraph("Dear ", "[A]", " and [A]"))
	p := doc.Paragraphs()[0]

	changed := p.ReplaceAll(strings.NewReplacer("[A]", "x"))
	assert.True(t, changed)
	assert.Equal(t, "Dear x and x", p.Text())

	// runs survive when tokens are not split
	assert.Len(t, p.textNodes(), 3)
	assert.Equal(t, "x", p.textNodes()[1].innerText())
}

func TestReplaceAll_SplitAcrossRuns(t *testing.T) {
	doc := open(t, docxtest.Paragraph("Tenant: [Ten", "ant Name]", "."))
	p := doc.Paragraphs()[0]

	assert.True(t, p.ReplaceAll(strings.NewReplacer("[Tenant Name]", "Jane Doe")))
	assert.Equal(t, "Tenant: Jane Doe.", p.Text())
	assert.Equal(t, "", p.textNodes()[2].innerText())
}

func TestReplaceAll_NoChange(t *testing.T) {
	doc := open(t, docxtest.Paragraph("[Date]"))
	p := doc.Paragraphs()[0]
	assert.False(t, p.ReplaceAll(strings.NewReplacer("[Other]", "x")))
	assert.Equal(t, "[Date]", p.Text())
}

func TestBytes_RoundTrip(t *testing.T) {
	doc := open(t,
		docxtest.Paragraph("Fish & <chips> [A]"),
		docxtest.Table([]string{"[A]"}),
	)
	doc.Walk(func(p Paragraph) {
		p.ReplaceAll(strings.NewReplacer("[A]", `"quoted" & more`))
	})

	again := reopen(t, doc)
	assert.Equal(t, "Fish & <chips> \"quoted\" & more\n\"quoted\" & more", again.Text())

	data, err := again.Bytes()
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"[Content_Types].xml", "_rels/.rels", "word/document.xml"}, names)

	raw, err := readZipFile(zr.File, "word/document.xml")
	require.NoError(t, err)
	assert.Contains(t, string(raw), `<w:document xmlns:w=`)
	assert.Contains(t, string(raw), `<w:sectPr>`)
}

func TestReplaceBody(t *testing.T) {
	doc := open(t, docxtest.Paragraph("old"), docxtest.Table([]string{"old cell"}))

	doc.ReplaceBody([]string{"First line", "", "Third"})
	again := reopen(t, doc)

	assert.Equal(t, "First line\nThird", again.Text())
	assert.Len(t, again.Paragraphs(), 3)
	assert.Nil(t, again.body.child(again.w, "tbl"))
	assert.NotNil(t, again.body.child(again.w, "sectPr"))
}

func TestSetText_EmptyParagraph(t *testing.T) {
	doc := open(t, docxtest.Block("<w:p/>"))
	p := doc.Paragraphs()[0]
	p.SetText("filled")
	assert.Equal(t, "filled", reopen(t, doc).Paragraphs()[0].Text())
}

func TestMainPrefix_NonDefault(t *testing.T) {
	tree, err := parseTree([]byte(`<x:document xmlns:x="` + mainNS + `"><x:body><x:p><x:r><x:t>hi</x:t></x:r></x:p></x:body></x:document>`))
	require.NoError(t, err)
	root := rootElement(tree)
	assert.Equal(t, "x", mainPrefix(root))
}
