package deckpatch

import (
	"fmt"
	"strconv"
	"strings"
)

// Locator addresses one content node within a part: an ordered path of
// sibling-index steps through the part's text containers. One step selects
// a text container, a second selects a paragraph within it, a third selects
// a run. Locators are stable only until the originating tree is mutated;
// any structural change invalidates locators for affected subtrees.
type Locator []int

func (l Locator) String() string {
	steps := make([]string, len(l))
	for i, s := range l {
		steps[i] = strconv.Itoa(s)
	}
	return "[" + strings.Join(steps, ",") + "]"
}

// Equal reports whether two locators address the same path.
func (l Locator) Equal(other Locator) bool {
	if len(l) != len(other) {
		return false
	}
	for i := range l {
		if l[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the locator.
func (l Locator) Clone() Locator {
	out := make(Locator, len(l))
	copy(out, l)
	return out
}

// ParseLocator parses the textual form produced by String, with or without
// the surrounding brackets.
func ParseLocator(s string) (Locator, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		return nil, NewInvalidLocatorError(nil, "empty locator")
	}
	steps := strings.Split(s, ",")
	loc := make(Locator, 0, len(steps))
	for _, step := range steps {
		n, err := strconv.Atoi(strings.TrimSpace(step))
		if err != nil {
			return nil, NewInvalidLocatorError(nil, fmt.Sprintf("invalid step %q", step))
		}
		if n < 0 {
			return nil, NewInvalidLocatorError(nil, fmt.Sprintf("negative step %d", n))
		}
		loc = append(loc, n)
	}
	return loc, nil
}

// textContainers returns the part's text-bearing shapes in visual reading
// order: pre-order, left-to-right through the shape tree, descending into
// group shapes.
func textContainers(part *Part) []*Node {
	spTree := findShapeTree(part.Root)
	if spTree == nil {
		return nil
	}
	var containers []*Node
	collectTextContainers(spTree, &containers)
	return containers
}

func findShapeTree(root *Node) *Node {
	cSld := root.FindChild(NSPresentation, "cSld")
	if cSld == nil {
		return nil
	}
	return cSld.FindChild(NSPresentation, "spTree")
}

func collectTextContainers(n *Node, out *[]*Node) {
	for _, c := range n.Children {
		switch {
		case c.Is(NSPresentation, "sp"):
			if c.FindChild(NSPresentation, "txBody") != nil {
				*out = append(*out, c)
			}
		case c.Is(NSPresentation, "grpSp"):
			collectTextContainers(c, out)
		}
	}
}

// textBody returns the shape's text body element.
func textBody(sp *Node) *Node {
	return sp.FindChild(NSPresentation, "txBody")
}

// paragraphsOf returns the body's paragraphs in order.
func paragraphsOf(body *Node) []*Node {
	return body.FindChildren(NSDrawing, "p")
}

// runsOf returns the paragraph's runs in order.
func runsOf(para *Node) []*Node {
	return para.FindChildren(NSDrawing, "r")
}

// Find resolves a locator against this part's content tree. The first step
// selects a text container, the optional second a paragraph, the optional
// third a run. Resolution failures return an InvalidLocatorError.
func (p *Part) Find(loc Locator) (*Node, error) {
	if len(loc) == 0 {
		return nil, NewInvalidLocatorError(loc, "empty locator")
	}
	if len(loc) > 3 {
		return nil, NewInvalidLocatorError(loc, "locator deeper than run level")
	}

	containers := textContainers(p)
	if loc[0] >= len(containers) {
		return nil, NewInvalidLocatorError(loc,
			fmt.Sprintf("container index %d out of range (%d containers)", loc[0], len(containers)))
	}
	sp := containers[loc[0]]
	if len(loc) == 1 {
		return sp, nil
	}

	paragraphs := paragraphsOf(textBody(sp))
	if loc[1] >= len(paragraphs) {
		return nil, NewInvalidLocatorError(loc,
			fmt.Sprintf("paragraph index %d out of range (%d paragraphs)", loc[1], len(paragraphs)))
	}
	para := paragraphs[loc[1]]
	if len(loc) == 2 {
		return para, nil
	}

	runs := runsOf(para)
	if loc[2] >= len(runs) {
		return nil, NewInvalidLocatorError(loc,
			fmt.Sprintf("run index %d out of range (%d runs)", loc[2], len(runs)))
	}
	return runs[loc[2]], nil
}
