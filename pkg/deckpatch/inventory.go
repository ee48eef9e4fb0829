package deckpatch

import (
	"strconv"
	"strings"
)

// Formatting is the fully resolved formatting of one content record. Every
// field is populated through the inheritance chain at extraction time, so a
// record never needs further lookups to be interpreted.
type Formatting struct {
	Bold        bool    `json:"bold"`
	Size        float64 `json:"size"` // points
	Font        string  `json:"font"`
	Alignment   string  `json:"alignment"` // l, ctr, r, just, dist
	Bullet      bool    `json:"bullet"`
	BulletChar  string  `json:"bulletChar,omitempty"`
	BulletLevel int     `json:"bulletLevel"`
}

// Fallbacks where neither the run, its paragraph, the container list style,
// nor the presentation default text style specifies a property.
const (
	defaultFontSize  = 18.0
	defaultFontName  = "Calibri"
	defaultAlignment = "l"
)

// ContentRecord is one flattened unit of the inventory: plain text plus
// resolved formatting plus a locator back into its part. Records are a
// denormalized view; mutating the tree invalidates previously issued
// locators for affected subtrees.
type ContentRecord struct {
	Locator    Locator    `json:"locator"`
	Part       string     `json:"part"`
	Shape      string     `json:"shape,omitempty"`
	Text       string     `json:"text"`
	Formatting Formatting `json:"formatting"`
}

// Inventory is the addressable content listing of a whole document, in
// slide order, each slide in visual reading order.
type Inventory struct {
	Records      []ContentRecord `json:"records"`
	DocumentHash string          `json:"documentHash"`
}

// ExtractInventory walks every slide and produces one record per
// addressable text unit. A container holding a single paragraph is
// addressed by the container step alone; containers with several
// paragraphs yield one record per paragraph. Re-extracting an unmodified
// document yields an identical sequence.
func ExtractInventory(doc *Document) *Inventory {
	inv := &Inventory{
		Records:      make([]ContentRecord, 0),
		DocumentHash: doc.Hash(),
	}
	for _, slide := range doc.Slides() {
		inv.Records = append(inv.Records, extractSlide(doc, slide)...)
	}
	return inv
}

func extractSlide(doc *Document, slide *Part) []ContentRecord {
	records := make([]ContentRecord, 0)

	for shapeIdx, sp := range textContainers(slide) {
		body := textBody(sp)
		paragraphs := paragraphsOf(body)
		name := shapeName(sp)

		if len(paragraphs) == 1 {
			records = append(records, ContentRecord{
				Locator:    Locator{shapeIdx},
				Part:       slide.Name,
				Shape:      name,
				Text:       paragraphText(paragraphs[0]),
				Formatting: resolveFormatting(doc, sp, paragraphs[0]),
			})
			continue
		}

		for paraIdx, para := range paragraphs {
			records = append(records, ContentRecord{
				Locator:    Locator{shapeIdx, paraIdx},
				Part:       slide.Name,
				Shape:      name,
				Text:       paragraphText(para),
				Formatting: resolveFormatting(doc, sp, para),
			})
		}
	}

	return records
}

// shapeName reads the shape's non-visual name, e.g. "Title 1".
func shapeName(sp *Node) string {
	nv := sp.FindChild(NSPresentation, "nvSpPr")
	if nv == nil {
		return ""
	}
	cNvPr := nv.FindChild(NSPresentation, "cNvPr")
	if cNvPr == nil {
		return ""
	}
	name, _ := cNvPr.AttrValue("", "name")
	return name
}

// paragraphText joins the paragraph's run texts in order; explicit line
// breaks become newlines.
func paragraphText(para *Node) string {
	var b strings.Builder
	for _, c := range para.Children {
		switch {
		case c.Is(NSDrawing, "r"):
			if t := c.FindChild(NSDrawing, "t"); t != nil {
				b.WriteString(t.Text)
			}
		case c.Is(NSDrawing, "br"):
			b.WriteString("\n")
		}
	}
	return b.String()
}

// resolveFormatting computes the effective formatting of a paragraph from
// its first run and the ancestor chain: run properties, then paragraph
// defaults, then the container's list style for the paragraph's level, then
// the presentation default text style, then hard fallbacks. Pure function
// of the element and its ancestors; no hidden state survives the call.
func resolveFormatting(doc *Document, sp *Node, para *Node) Formatting {
	level := paragraphLevel(para)

	chain := propertyChain(doc, sp, para, level)

	f := Formatting{
		Size:        defaultFontSize,
		Font:        defaultFontName,
		Alignment:   defaultAlignment,
		BulletLevel: level,
	}

	if v, ok := chain.runAttr("b"); ok {
		f.Bold = v == "1" || v == "true"
	}
	if v, ok := chain.runAttr("sz"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			f.Size = float64(n) / 100.0
		}
	}
	if font, ok := chain.latinTypeface(); ok {
		f.Font = font
	}
	if algn, ok := chain.alignment(); ok {
		f.Alignment = algn
	}
	f.Bullet, f.BulletChar = chain.bullet()

	return f
}

// paragraphLevel reads the paragraph's indent level, 0 when unspecified.
func paragraphLevel(para *Node) int {
	pPr := para.FindChild(NSDrawing, "pPr")
	if pPr == nil {
		return 0
	}
	v, ok := pPr.AttrValue("", "lvl")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// formatChain is the resolved ancestor chain for one paragraph: ordered
// from most specific to least. runProps entries are candidate a:rPr /
// a:defRPr elements; paraProps entries are candidate a:pPr / a:lvlXpPr
// elements.
type formatChain struct {
	runProps  []*Node
	paraProps []*Node
}

func propertyChain(doc *Document, sp *Node, para *Node, level int) formatChain {
	var chain formatChain

	addRun := func(n *Node) {
		if n != nil {
			chain.runProps = append(chain.runProps, n)
		}
	}
	addPara := func(n *Node) {
		if n != nil {
			chain.paraProps = append(chain.paraProps, n)
		}
	}

	if runs := runsOf(para); len(runs) > 0 {
		addRun(runs[0].FindChild(NSDrawing, "rPr"))
	}

	pPr := para.FindChild(NSDrawing, "pPr")
	addPara(pPr)
	if pPr != nil {
		addRun(pPr.FindChild(NSDrawing, "defRPr"))
	}

	lvlName := "lvl" + strconv.Itoa(level+1) + "pPr"

	if body := textBody(sp); body != nil {
		if lstStyle := body.FindChild(NSDrawing, "lstStyle"); lstStyle != nil {
			if lvlPr := lstStyle.FindChild(NSDrawing, lvlName); lvlPr != nil {
				addPara(lvlPr)
				addRun(lvlPr.FindChild(NSDrawing, "defRPr"))
			}
		}
	}

	if defaults := doc.Presentation().Root.FindChild(NSPresentation, "defaultTextStyle"); defaults != nil {
		if lvlPr := defaults.FindChild(NSDrawing, lvlName); lvlPr != nil {
			addPara(lvlPr)
			addRun(lvlPr.FindChild(NSDrawing, "defRPr"))
		}
	}

	return chain
}

// runAttr resolves a run-level attribute through the chain.
func (c formatChain) runAttr(local string) (string, bool) {
	for _, n := range c.runProps {
		if v, ok := n.AttrValue("", local); ok {
			return v, true
		}
	}
	return "", false
}

// latinTypeface resolves the latin font name through the chain.
func (c formatChain) latinTypeface() (string, bool) {
	for _, n := range c.runProps {
		if latin := n.FindChild(NSDrawing, "latin"); latin != nil {
			if v, ok := latin.AttrValue("", "typeface"); ok {
				return v, true
			}
		}
	}
	return "", false
}

// alignment resolves the paragraph alignment through the chain.
func (c formatChain) alignment() (string, bool) {
	for _, n := range c.paraProps {
		if v, ok := n.AttrValue("", "algn"); ok {
			return v, true
		}
	}
	return "", false
}

// bullet resolves the bullet state through the chain: an explicit buNone
// switches bullets off, buChar and buAutoNum switch them on.
func (c formatChain) bullet() (bool, string) {
	for _, n := range c.paraProps {
		if n.FindChild(NSDrawing, "buNone") != nil {
			return false, ""
		}
		if buChar := n.FindChild(NSDrawing, "buChar"); buChar != nil {
			char, _ := buChar.AttrValue("", "char")
			return true, char
		}
		if n.FindChild(NSDrawing, "buAutoNum") != nil {
			return true, ""
		}
	}
	return false, ""
}
