package deckpatch

import (
	"bytes"
	"strings"
)

const xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

// Serialize renders the part back to canonical bytes: XML declaration,
// namespace declarations in source order on the root, source prefixes on
// every element and attribute, compact form, self-closing empty elements.
// Repeated calls on an unmodified tree produce identical bytes.
func (p *Part) Serialize() []byte {
	var buf bytes.Buffer
	buf.WriteString(xmlHeader)
	p.writeNode(&buf, p.Root, true)
	return buf.Bytes()
}

func (p *Part) writeNode(buf *bytes.Buffer, node *Node, isRoot bool) {
	name := p.qualified(node.Space, node.Local)

	buf.WriteByte('<')
	buf.WriteString(name)

	if isRoot {
		for _, d := range p.decls {
			buf.WriteString(" xmlns")
			if d.Prefix != "" {
				buf.WriteByte(':')
				buf.WriteString(d.Prefix)
			}
			buf.WriteString(`="`)
			buf.WriteString(escapeAttr(d.URI))
			buf.WriteByte('"')
		}
	}

	for _, a := range node.Attrs {
		buf.WriteByte(' ')
		if a.Space != "" {
			buf.WriteString(p.Prefix(a.Space))
			buf.WriteByte(':')
		}
		buf.WriteString(a.Local)
		buf.WriteString(`="`)
		buf.WriteString(escapeAttr(a.Value))
		buf.WriteByte('"')
	}

	if len(node.Children) == 0 && node.Text == "" {
		buf.WriteString("/>")
		return
	}

	buf.WriteByte('>')

	for _, c := range node.Children {
		p.writeNode(buf, c, false)
	}
	if len(node.Children) == 0 {
		buf.WriteString(escapeText(node.Text))
	}

	buf.WriteString("</")
	buf.WriteString(name)
	buf.WriteByte('>')
}

func (p *Part) qualified(space, local string) string {
	if space == "" {
		return local
	}
	prefix := p.Prefix(space)
	if prefix == "" {
		return local
	}
	return prefix + ":" + local
}

func escapeText(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

func escapeAttr(s string) string {
	s = escapeText(s)
	s = strings.ReplaceAll(s, "\"", "&quot;")
	return s
}
