package deckpatch

import (
	"fmt"
	"strconv"
)

// Directive is one externally authored edit: new text for the content at a
// locator, plus optional formatting overrides. A nil override leaves the
// corresponding formatting untouched. An empty Part targets the first slide.
type Directive struct {
	Part        string   `json:"part,omitempty"`
	Locator     Locator  `json:"locator"`
	Text        string   `json:"text"`
	Bold        *bool    `json:"bold,omitempty"`
	Size        *float64 `json:"size,omitempty"`
	Font        *string  `json:"font,omitempty"`
	Alignment   *string  `json:"alignment,omitempty"`
	Bullet      *bool    `json:"bullet,omitempty"`
	BulletChar  *string  `json:"bulletChar,omitempty"`
	BulletLevel *int     `json:"bulletLevel,omitempty"`
}

// UnresolvedDirective records one directive whose locator did not resolve.
type UnresolvedDirective struct {
	Index   int     `json:"index"`
	Part    string  `json:"part"`
	Locator Locator `json:"locator"`
	Reason  string  `json:"reason"`
}

// ApplyReport is the outcome of a batch application: how many directives
// were applied and which ones could not be resolved. The caller decides
// whether the mutated document is still worth writing.
type ApplyReport struct {
	Applied    int                   `json:"applied"`
	Unresolved []UnresolvedDirective `json:"unresolved"`
}

// Resolved reports whether every directive in the batch was applied.
func (r *ApplyReport) Resolved() bool {
	return len(r.Unresolved) == 0
}

// ApplyDirectives applies a batch of directives to the document, in order.
// An unresolved locator is recorded and skipped; it never aborts the rest
// of the batch. When two directives resolve to the same locator the later
// one wins. After the batch, locators derived from the pre-edit tree are
// stale for further edits in the same session.
func ApplyDirectives(doc *Document, directives []Directive) *ApplyReport {
	report := &ApplyReport{
		Unresolved: make([]UnresolvedDirective, 0),
	}

	logger := GetLogger()
	if logger.IsDebugMode() {
		logger.WithField("directives", len(directives)).Debug("Applying directive batch")
	}

	for i, d := range directives {
		slide, err := slideForDirective(doc, d)
		if err != nil {
			report.Unresolved = append(report.Unresolved, UnresolvedDirective{
				Index:   i,
				Part:    d.Part,
				Locator: d.Locator.Clone(),
				Reason:  err.Error(),
			})
			continue
		}

		node, err := slide.Find(d.Locator)
		if err != nil {
			reason := err.Error()
			if ile, ok := err.(*InvalidLocatorError); ok {
				reason = ile.Reason
			}
			report.Unresolved = append(report.Unresolved, UnresolvedDirective{
				Index:   i,
				Part:    slide.Name,
				Locator: d.Locator.Clone(),
				Reason:  reason,
			})
			continue
		}

		applyDirective(slide, node, len(d.Locator), d)
		report.Applied++
	}

	for _, u := range report.Unresolved {
		logger.WithFields(Fields{
			"index":   u.Index,
			"locator": u.Locator.String(),
		}).Warn("Directive could not be resolved: %s", u.Reason)
	}
	if logger.IsDebugMode() {
		logger.WithFields(Fields{
			"applied":    report.Applied,
			"unresolved": len(report.Unresolved),
		}).Debug("Directive batch complete")
	}

	return report
}

func slideForDirective(doc *Document, d Directive) (*Part, error) {
	slides := doc.Slides()
	if len(slides) == 0 {
		return nil, fmt.Errorf("document has no slides")
	}
	if d.Part == "" {
		return slides[0], nil
	}
	for _, slide := range slides {
		if slide.Name == d.Part {
			return slide, nil
		}
	}
	return nil, fmt.Errorf("no slide part named %s", d.Part)
}

func applyDirective(slide *Part, node *Node, depth int, d Directive) {
	var para *Node
	var targetRun *Node

	switch depth {
	case 1:
		body := textBody(node)
		paragraphs := paragraphsOf(body)
		if len(paragraphs) == 0 {
			para = newParagraph(body, slide)
		} else {
			para = paragraphs[0]
			// Container-level replacement collapses the body to one
			// paragraph; the first paragraph's formatting survives.
			for _, extra := range paragraphs[1:] {
				idx := body.childIndex(extra)
				if idx >= 0 {
					slide.RemoveChild(body, idx)
				}
			}
		}
		targetRun = replaceParagraphText(slide, para, d.Text)
	case 2:
		para = node
		targetRun = replaceParagraphText(slide, para, d.Text)
	case 3:
		para = node.Parent()
		targetRun = node
		setRunText(slide, targetRun, d.Text)
	}

	applyFormatting(slide, para, targetRun, d)
}

// replaceParagraphText puts the new text into the paragraph's first run,
// preserving that run's properties, and removes the remaining runs and
// explicit breaks. Returns the surviving run.
func replaceParagraphText(slide *Part, para *Node, text string) *Node {
	runs := runsOf(para)

	var first *Node
	if len(runs) == 0 {
		first = &Node{Space: NSDrawing, Local: "r"}
		slide.InsertChild(para, insertRunIndex(para), first)
	} else {
		first = runs[0]
		for _, extra := range runs[1:] {
			idx := para.childIndex(extra)
			if idx >= 0 {
				slide.RemoveChild(para, idx)
			}
		}
	}

	for _, br := range para.FindChildren(NSDrawing, "br") {
		idx := para.childIndex(br)
		if idx >= 0 {
			slide.RemoveChild(para, idx)
		}
	}

	setRunText(slide, first, text)
	return first
}

// insertRunIndex picks the insertion point for a new run: after the
// paragraph properties, before the end-paragraph properties.
func insertRunIndex(para *Node) int {
	idx := 0
	for i, c := range para.Children {
		if c.Is(NSDrawing, "pPr") {
			idx = i + 1
		}
		if c.Is(NSDrawing, "endParaRPr") {
			return i
		}
	}
	return idx
}

func newParagraph(body *Node, slide *Part) *Node {
	para := &Node{Space: NSDrawing, Local: "p"}
	slide.InsertChild(body, len(body.Children), para)
	return para
}

func setRunText(slide *Part, run *Node, text string) {
	t := run.FindChild(NSDrawing, "t")
	if t == nil {
		t = &Node{Space: NSDrawing, Local: "t"}
		slide.InsertChild(run, len(run.Children), t)
	}
	slide.SetText(t, text)
}

// applyFormatting applies only the overrides present in the directive.
// Untouched properties, including bullet, level, and alignment, keep their
// source values.
func applyFormatting(slide *Part, para *Node, run *Node, d Directive) {
	if d.Bold != nil || d.Size != nil || d.Font != nil {
		rPr := ensureRunProps(slide, run)
		if d.Bold != nil {
			val := "0"
			if *d.Bold {
				val = "1"
			}
			slide.SetAttr(rPr, "", "b", val)
		}
		if d.Size != nil {
			slide.SetAttr(rPr, "", "sz", strconv.Itoa(int(*d.Size*100)))
		}
		if d.Font != nil {
			latin := rPr.FindChild(NSDrawing, "latin")
			if latin == nil {
				latin = &Node{Space: NSDrawing, Local: "latin"}
				slide.InsertChild(rPr, len(rPr.Children), latin)
			}
			slide.SetAttr(latin, "", "typeface", *d.Font)
		}
	}

	if d.Alignment != nil || d.Bullet != nil || d.BulletLevel != nil {
		pPr := ensureParaProps(slide, para)
		if d.Alignment != nil {
			slide.SetAttr(pPr, "", "algn", *d.Alignment)
		}
		if d.BulletLevel != nil {
			slide.SetAttr(pPr, "", "lvl", strconv.Itoa(*d.BulletLevel))
		}
		if d.Bullet != nil {
			for _, local := range []string{"buNone", "buChar", "buAutoNum"} {
				if existing := pPr.FindChild(NSDrawing, local); existing != nil {
					idx := pPr.childIndex(existing)
					if idx >= 0 {
						slide.RemoveChild(pPr, idx)
					}
				}
			}
			if *d.Bullet {
				char := "•"
				if d.BulletChar != nil {
					char = *d.BulletChar
				}
				bu := &Node{Space: NSDrawing, Local: "buChar"}
				slide.InsertChild(pPr, len(pPr.Children), bu)
				slide.SetAttr(bu, "", "char", char)
			} else {
				bu := &Node{Space: NSDrawing, Local: "buNone"}
				slide.InsertChild(pPr, len(pPr.Children), bu)
			}
		}
	}
}

func ensureRunProps(slide *Part, run *Node) *Node {
	rPr := run.FindChild(NSDrawing, "rPr")
	if rPr == nil {
		rPr = &Node{Space: NSDrawing, Local: "rPr"}
		slide.InsertChild(run, 0, rPr)
	}
	return rPr
}

func ensureParaProps(slide *Part, para *Node) *Node {
	pPr := para.FindChild(NSDrawing, "pPr")
	if pPr == nil {
		pPr = &Node{Space: NSDrawing, Local: "pPr"}
		slide.InsertChild(para, 0, pPr)
	}
	return pPr
}
