package docx

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

type nodeKind int

const (
	kindDocument nodeKind = iota
	kindElement
	kindText
	kindComment
	kindProcInst
	kindDirective
)

// node is a prefix-preserving XML tree. encoding/xml's namespace-aware
// encoder rewrites prefixes, which Word refuses to open, so the tree is
// built from raw tokens and written back by hand.
type node struct {
	kind     nodeKind
	name     xml.Name // Space holds the prefix, not the namespace URI
	attr     []xml.Attr
	text     string
	children []*node
}

func parseTree(data []byte) (*node, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	root := &node{kind: kindDocument}
	stack := []*node{root}

	for {
		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		parent := stack[len(stack)-1]

		switch t := tok.(type) {
		case xml.StartElement:
			n := &node{kind: kindElement, name: t.Name, attr: append([]xml.Attr(nil), t.Attr...)}
			parent.children = append(parent.children, n)
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) == 1 {
				return nil, fmt.Errorf("unexpected closing tag %s", qualified(t.Name))
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			parent.children = append(parent.children, &node{kind: kindText, text: string(t)})
		case xml.Comment:
			parent.children = append(parent.children, &node{kind: kindComment, text: string(t)})
		case xml.ProcInst:
			parent.children = append(parent.children, &node{kind: kindProcInst, name: xml.Name{Local: t.Target}, text: string(t.Inst)})
		case xml.Directive:
			parent.children = append(parent.children, &node{kind: kindDirective, text: string(t)})
		}
	}
	if len(stack) != 1 {
		return nil, fmt.Errorf("unclosed element %s", qualified(stack[len(stack)-1].name))
	}
	return root, nil
}

func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

func (n *node) write(b *bytes.Buffer) {
	switch n.kind {
	case kindDocument:
		for _, c := range n.children {
			c.write(b)
		}
	case kindText:
		_ = xml.EscapeText(b, []byte(n.text))
	case kindComment:
		b.WriteString("<!--")
		b.WriteString(n.text)
		b.WriteString("-->")
	case kindProcInst:
		b.WriteString("<?")
		b.WriteString(n.name.Local)
		if n.text != "" {
			b.WriteString(" ")
			b.WriteString(n.text)
		}
		b.WriteString("?>")
	case kindDirective:
		b.WriteString("<!")
		b.WriteString(n.text)
		b.WriteString(">")
	case kindElement:
		b.WriteString("<")
		b.WriteString(qualified(n.name))
		for _, a := range n.attr {
			b.WriteString(" ")
			b.WriteString(qualified(a.Name))
			b.WriteString(`="`)
			_ = xml.EscapeText(b, []byte(a.Value))
			b.WriteString(`"`)
		}
		if len(n.children) == 0 {
			b.WriteString("/>")
			return
		}
		b.WriteString(">")
		for _, c := range n.children {
			c.write(b)
		}
		b.WriteString("</")
		b.WriteString(qualified(n.name))
		b.WriteString(">")
	}
}

func (n *node) is(prefix, local string) bool {
	return n.kind == kindElement && n.name.Space == prefix && n.name.Local == local
}

func (n *node) child(prefix, local string) *node {
	for _, c := range n.children {
		if c.is(prefix, local) {
			return c
		}
	}
	return nil
}

// innerText concatenates the character data directly under n.
func (n *node) innerText() string {
	var sb strings.Builder
	for _, c := range n.children {
		if c.kind == kindText {
			sb.WriteString(c.text)
		}
	}
	return sb.String()
}

func (n *node) setInnerText(s string) {
	if s == "" {
		n.children = nil
		return
	}
	n.children = []*node{{kind: kindText, text: s}}
}

func (n *node) setAttr(name xml.Name, value string) {
	for i := range n.attr {
		if n.attr[i].Name == name {
			n.attr[i].Value = value
			return
		}
	}
	n.attr = append(n.attr, xml.Attr{Name: name, Value: value})
}

func element(prefix, local string, children ...*node) *node {
	return &node{kind: kindElement, name: xml.Name{Space: prefix, Local: local}, children: children}
}
