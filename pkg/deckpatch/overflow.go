package deckpatch

import (
	"fmt"
	"strconv"
	"strings"
)

// Layout estimation constants. The overflow pass does not render text; it
// estimates extent from the resolved font size using average glyph metrics,
// which is deliberately conservative and deterministic.
const (
	emuPerPoint = 12700

	// Average glyph advance as a fraction of the font size, and the line
	// pitch as a multiple of it.
	avgGlyphWidthFactor = 0.52
	linePitchFactor     = 1.2

	// PowerPoint's default text body insets, in EMU.
	defaultInsetLR = 91440
	defaultInsetTB = 45720
)

// shapeExtent is a container's fixed size in EMU, absent when the shape
// inherits placement from its layout.
type shapeExtent struct {
	cx int64
	cy int64
}

// CheckOverflow estimates the rendered extent of every text container with
// a fixed size and reports each content record whose text exceeds the
// container bounds, with the numeric overflow amount. Containers without an
// explicit extent are skipped: their bounds live in layout parts that are
// not part of the addressable inventory.
func CheckOverflow(doc *Document) []Issue {
	config := GetGlobalConfig()
	issues := make([]Issue, 0)

	for _, slide := range doc.Slides() {
		for shapeIdx, sp := range textContainers(slide) {
			ext, ok := containerExtent(sp)
			if !ok {
				continue
			}
			checkContainerOverflow(doc, slide, sp, shapeIdx, ext, config.OverflowToleranceEMU, &issues)
		}
	}

	return issues
}

func containerExtent(sp *Node) (shapeExtent, bool) {
	spPr := sp.FindChild(NSPresentation, "spPr")
	if spPr == nil {
		return shapeExtent{}, false
	}
	xfrm := spPr.FindChild(NSDrawing, "xfrm")
	if xfrm == nil {
		return shapeExtent{}, false
	}
	extNode := xfrm.FindChild(NSDrawing, "ext")
	if extNode == nil {
		return shapeExtent{}, false
	}
	cx, okX := attrInt64(extNode, "cx")
	cy, okY := attrInt64(extNode, "cy")
	if !okX || !okY || cx <= 0 || cy <= 0 {
		return shapeExtent{}, false
	}
	return shapeExtent{cx: cx, cy: cy}, true
}

func attrInt64(n *Node, local string) (int64, bool) {
	v, ok := n.AttrValue("", local)
	if !ok {
		return 0, false
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return i, true
}

func checkContainerOverflow(doc *Document, slide *Part, sp *Node, shapeIdx int, ext shapeExtent, tolerance int64, issues *[]Issue) {
	body := textBody(sp)
	lIns, tIns, rIns, bIns := bodyInsets(body)

	availWidth := ext.cx - lIns - rIns
	availHeight := ext.cy - tIns - bIns
	if availWidth <= 0 || availHeight <= 0 {
		return
	}

	var totalHeight int64
	var widestLine int64
	for _, para := range paragraphsOf(body) {
		f := resolveFormatting(doc, sp, para)
		lines, maxLine := estimateLines(paragraphText(para), f.Size, availWidth)
		totalHeight += int64(lines) * lineHeightEMU(f.Size)
		if maxLine > widestLine {
			widestLine = maxLine
		}
	}

	name := shapeName(sp)
	loc := IssueLocation{
		Part: slide.Name,
		Path: slide.NodePath(sp),
	}

	if over := totalHeight - availHeight; over > tolerance {
		*issues = append(*issues, Issue{
			Severity: SeverityWarning,
			Category: CategoryOverflow,
			Location: loc,
			Message: fmt.Sprintf("text in container %d (%s) exceeds height by %d EMU (%.1f pt)",
				shapeIdx, displayName(name), over, float64(over)/emuPerPoint),
		})
	}
	if over := widestLine - availWidth; over > tolerance {
		*issues = append(*issues, Issue{
			Severity: SeverityWarning,
			Category: CategoryOverflow,
			Location: loc,
			Message: fmt.Sprintf("text in container %d (%s) exceeds width by %d EMU (%.1f pt)",
				shapeIdx, displayName(name), over, float64(over)/emuPerPoint),
		})
	}
}

func displayName(name string) string {
	if name == "" {
		return "unnamed"
	}
	return name
}

func bodyInsets(body *Node) (lIns, tIns, rIns, bIns int64) {
	lIns, tIns, rIns, bIns = defaultInsetLR, defaultInsetTB, defaultInsetLR, defaultInsetTB
	if body == nil {
		return
	}
	bodyPr := body.FindChild(NSDrawing, "bodyPr")
	if bodyPr == nil {
		return
	}
	if v, ok := attrInt64(bodyPr, "lIns"); ok {
		lIns = v
	}
	if v, ok := attrInt64(bodyPr, "tIns"); ok {
		tIns = v
	}
	if v, ok := attrInt64(bodyPr, "rIns"); ok {
		rIns = v
	}
	if v, ok := attrInt64(bodyPr, "bIns"); ok {
		bIns = v
	}
	return
}

func glyphWidthEMU(sizePt float64) int64 {
	return int64(sizePt * avgGlyphWidthFactor * emuPerPoint)
}

func lineHeightEMU(sizePt float64) int64 {
	return int64(sizePt * linePitchFactor * emuPerPoint)
}

// estimateLines greedily wraps the text into the available width and
// returns the resulting line count plus the widest line's extent. A word
// wider than the available width still occupies its full width: it cannot
// wrap, which is exactly the width-overflow case.
func estimateLines(text string, sizePt float64, availWidth int64) (lines int, maxLine int64) {
	glyph := glyphWidthEMU(sizePt)
	if glyph <= 0 {
		glyph = 1
	}

	for _, hardLine := range strings.Split(text, "\n") {
		words := strings.Fields(hardLine)
		if len(words) == 0 {
			lines++
			continue
		}

		var lineWidth int64
		for _, word := range words {
			wordWidth := int64(len([]rune(word))) * glyph
			spaceWidth := glyph

			switch {
			case lineWidth == 0:
				lineWidth = wordWidth
				lines++
			case lineWidth+spaceWidth+wordWidth <= availWidth:
				lineWidth += spaceWidth + wordWidth
			default:
				if lineWidth > maxLine {
					maxLine = lineWidth
				}
				lineWidth = wordWidth
				lines++
			}
		}
		if lineWidth > maxLine {
			maxLine = lineWidth
		}
	}

	return lines, maxLine
}
