package deckpatch

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// OOXML namespaces used by the presentation format. Fixed by the public
// specification; edits never introduce namespaces beyond these.
const (
	NSPresentation  = "http://schemas.openxmlformats.org/presentationml/2006/main"
	NSDrawing       = "http://schemas.openxmlformats.org/drawingml/2006/main"
	NSRelationships = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	NSPackageRels   = "http://schemas.openxmlformats.org/package/2006/relationships"
	NSContentTypes  = "http://schemas.openxmlformats.org/package/2006/content-types"
	NSXML           = "http://www.w3.org/XML/1998/namespace"
)

// Attr is a single attribute on an element. Space is the namespace URI,
// empty for unprefixed attributes.
type Attr struct {
	Space string
	Local string
	Value string
}

// Node is one element in a part's tree. Children are ordered; a node has
// exactly one parent (nil for the root). Text is the element's character
// data and is only meaningful for elements without element children.
type Node struct {
	Space    string
	Local    string
	Attrs    []Attr
	Children []*Node
	Text     string

	parent *Node
}

// nsDecl records one xmlns declaration as written in the source part.
// Prefix is empty for the default namespace.
type nsDecl struct {
	Prefix string
	URI    string
}

// Part is one XML document within the archive, identified by its archive
// path. It owns the root element and the namespace table extracted from
// the source declarations.
type Part struct {
	Name string
	Root *Node

	decls    []nsDecl
	prefixes map[string]string // URI -> prefix
	dirty    bool
}

// ParsePart parses one XML member into a namespace-aware element tree.
func ParsePart(name string, content []byte) (*Part, error) {
	decoder := xml.NewDecoder(bytes.NewReader(content))

	part := &Part{
		Name:     name,
		prefixes: make(map[string]string),
	}

	var stack []*Node
	var textBuf strings.Builder

	for {
		token, err := decoder.Token()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, NewMalformedXMLError(name, err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			node := &Node{
				Space: t.Name.Space,
				Local: t.Name.Local,
			}
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" {
					part.recordDecl(a.Name.Local, a.Value)
					continue
				}
				if a.Name.Space == "" && a.Name.Local == "xmlns" {
					part.recordDecl("", a.Value)
					continue
				}
				node.Attrs = append(node.Attrs, Attr{
					Space: a.Name.Space,
					Local: a.Name.Local,
					Value: a.Value,
				})
			}
			if len(stack) == 0 {
				if part.Root != nil {
					return nil, NewMalformedXMLError(name, fmt.Errorf("multiple root elements"))
				}
				part.Root = node
			} else {
				parent := stack[len(stack)-1]
				node.parent = parent
				parent.Children = append(parent.Children, node)
			}
			stack = append(stack, node)
			textBuf.Reset()

		case xml.CharData:
			textBuf.Write([]byte(t))

		case xml.EndElement:
			if len(stack) == 0 {
				return nil, NewMalformedXMLError(name, fmt.Errorf("unbalanced end element"))
			}
			node := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if len(node.Children) == 0 {
				node.Text = textBuf.String()
			}
			textBuf.Reset()
		}
	}

	if part.Root == nil {
		return nil, NewMalformedXMLError(name, fmt.Errorf("no root element"))
	}
	if len(stack) != 0 {
		return nil, NewMalformedXMLError(name, fmt.Errorf("unclosed elements"))
	}

	return part, nil
}

// recordDecl keeps the first declaration seen for a prefix, in source order.
// OOXML parts declare all namespaces on the root, so later redeclarations
// of the same prefix are not tracked separately.
func (p *Part) recordDecl(prefix, uri string) {
	for _, d := range p.decls {
		if d.Prefix == prefix {
			return
		}
	}
	p.decls = append(p.decls, nsDecl{Prefix: prefix, URI: uri})
	if _, ok := p.prefixes[uri]; !ok {
		p.prefixes[uri] = prefix
	}
}

// Prefix returns the prefix declared in the source part for a namespace URI.
// Falls back to the URI itself when no declaration exists (should not happen
// for well-formed parts of the target format).
func (p *Part) Prefix(uri string) string {
	if uri == "" {
		return ""
	}
	if uri == NSXML {
		return "xml"
	}
	if prefix, ok := p.prefixes[uri]; ok {
		return prefix
	}
	return uri
}

// Dirty reports whether the part has been mutated since parse.
func (p *Part) Dirty() bool {
	return p.dirty
}

// Parent returns the node's parent, nil for the root.
func (n *Node) Parent() *Node {
	return n.parent
}

// Is reports whether the node has the given namespace and local name.
func (n *Node) Is(space, local string) bool {
	return n.Space == space && n.Local == local
}

// FindChild returns the first child element with the given name, or nil.
func (n *Node) FindChild(space, local string) *Node {
	for _, c := range n.Children {
		if c.Is(space, local) {
			return c
		}
	}
	return nil
}

// FindChildren returns all child elements with the given name, in order.
func (n *Node) FindChildren(space, local string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Is(space, local) {
			out = append(out, c)
		}
	}
	return out
}

// AttrValue returns the value of the named attribute and whether it exists.
func (n *Node) AttrValue(space, local string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Space == space && a.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

// childIndex returns the position of c among n's children, -1 if absent.
func (n *Node) childIndex(c *Node) int {
	for i, child := range n.Children {
		if child == c {
			return i
		}
	}
	return -1
}

// SetText replaces the text content of a node. The node's attributes and
// siblings are untouched.
func (p *Part) SetText(node *Node, text string) {
	node.Text = text
	p.dirty = true
}

// SetAttr sets one attribute on a node, preserving every attribute not
// explicitly targeted. An existing attribute keeps its position; a new one
// is appended.
func (p *Part) SetAttr(node *Node, space, local, value string) {
	for i := range node.Attrs {
		if node.Attrs[i].Space == space && node.Attrs[i].Local == local {
			node.Attrs[i].Value = value
			p.dirty = true
			return
		}
	}
	node.Attrs = append(node.Attrs, Attr{Space: space, Local: local, Value: value})
	p.dirty = true
}

// RemoveAttr removes one attribute from a node if present.
func (p *Part) RemoveAttr(node *Node, space, local string) {
	for i := range node.Attrs {
		if node.Attrs[i].Space == space && node.Attrs[i].Local == local {
			node.Attrs = append(node.Attrs[:i], node.Attrs[i+1:]...)
			p.dirty = true
			return
		}
	}
}

// InsertChild inserts child at position i under parent. The child must not
// already be owned by another node: the tree is a tree, not a graph.
func (p *Part) InsertChild(parent *Node, i int, child *Node) error {
	if child.parent != nil {
		return fmt.Errorf("node already has a parent")
	}
	if i < 0 || i > len(parent.Children) {
		return fmt.Errorf("insert index %d out of range", i)
	}
	parent.Children = append(parent.Children, nil)
	copy(parent.Children[i+1:], parent.Children[i:])
	parent.Children[i] = child
	child.parent = parent
	p.dirty = true
	return nil
}

// RemoveChild detaches the child at position i under parent and returns it.
func (p *Part) RemoveChild(parent *Node, i int) (*Node, error) {
	if i < 0 || i >= len(parent.Children) {
		return nil, fmt.Errorf("remove index %d out of range", i)
	}
	child := parent.Children[i]
	parent.Children = append(parent.Children[:i], parent.Children[i+1:]...)
	child.parent = nil
	p.dirty = true
	return child, nil
}

// NodePath renders a node's position as a readable element path using the
// part's declared prefixes, for issue locations.
func (p *Part) NodePath(node *Node) string {
	var steps []string
	for n := node; n != nil; n = n.parent {
		name := n.Local
		if prefix := p.Prefix(n.Space); prefix != "" && prefix != n.Space {
			name = prefix + ":" + n.Local
		}
		if n.parent != nil {
			idx := 0
			for _, sib := range n.parent.Children {
				if sib == n {
					break
				}
				if sib.Space == n.Space && sib.Local == n.Local {
					idx++
				}
			}
			if idx > 0 || len(n.parent.FindChildren(n.Space, n.Local)) > 1 {
				name = fmt.Sprintf("%s[%d]", name, idx)
			}
		}
		steps = append([]string{name}, steps...)
	}
	return strings.Join(steps, "/")
}
