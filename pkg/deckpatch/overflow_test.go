package deckpatch

import (
	"strings"
	"testing"
)

func TestOverflowHeight(t *testing.T) {
	// 1 inch by 0.25 inch box: one default-size line does not fit between
	// the vertical insets.
	content := buildTestPPTX(t, map[string]string{
		"ppt/slides/slide1.xml": slideXML(
			sizedTextShape(2, "Tiny 1", 914400, 228600, para("a b c")),
		),
	})
	doc := mustDocument(t, content)

	issues := CheckOverflow(doc)
	if len(issues) != 1 {
		t.Fatalf("issue count = %d, want 1: %+v", len(issues), issues)
	}
	issue := issues[0]
	if issue.Severity != SeverityWarning || issue.Category != CategoryOverflow {
		t.Errorf("issue = %+v", issue)
	}
	// availHeight = 228600 - 2*45720 = 137160; one 18pt line = 274320.
	if !strings.Contains(issue.Message, "exceeds height by 137160 EMU") {
		t.Errorf("message = %q, want exact overflow amount", issue.Message)
	}
	if !strings.Contains(issue.Message, "Tiny 1") {
		t.Errorf("message %q does not name the container", issue.Message)
	}
}

func TestOverflowWidth(t *testing.T) {
	// A single long word cannot wrap; it overflows the width instead.
	content := buildTestPPTX(t, map[string]string{
		"ppt/slides/slide1.xml": slideXML(
			sizedTextShape(2, "Narrow 1", 914400, 914400, para("incomprehensibilities")),
		),
	})
	doc := mustDocument(t, content)

	issues := CheckOverflow(doc)
	if len(issues) != 1 {
		t.Fatalf("issue count = %d, want 1: %+v", len(issues), issues)
	}
	if !strings.Contains(issues[0].Message, "exceeds width by") {
		t.Errorf("message = %q, want width overflow", issues[0].Message)
	}
}

func TestOverflowFittingTextIsClean(t *testing.T) {
	// Half the default slide: plenty of room for one short line.
	content := buildTestPPTX(t, map[string]string{
		"ppt/slides/slide1.xml": slideXML(
			sizedTextShape(2, "Roomy 1", 6096000, 3429000, para("fits fine")),
		),
	})
	doc := mustDocument(t, content)

	if issues := CheckOverflow(doc); len(issues) != 0 {
		t.Errorf("unexpected issues: %+v", issues)
	}
}

func TestOverflowSkipsContainersWithoutExtent(t *testing.T) {
	// Shapes that inherit their placement from a layout have no extent to
	// check against.
	content := buildTestPPTX(t, map[string]string{
		"ppt/slides/slide1.xml": slideXML(
			textShape(2, "Inherited 1", para(strings.Repeat("very long text ", 50))),
		),
	})
	doc := mustDocument(t, content)

	if issues := CheckOverflow(doc); len(issues) != 0 {
		t.Errorf("extent-less container reported: %+v", issues)
	}
}

func TestOverflowToleranceSuppressesSmallOverruns(t *testing.T) {
	previous := GetGlobalConfig()
	defer SetGlobalConfig(previous)

	config := DefaultConfig()
	config.OverflowToleranceEMU = 200000
	SetGlobalConfig(config)

	content := buildTestPPTX(t, map[string]string{
		"ppt/slides/slide1.xml": slideXML(
			sizedTextShape(2, "Tiny 1", 914400, 228600, para("a b c")),
		),
	})
	doc := mustDocument(t, content)

	// The 137160 EMU overrun is inside the configured tolerance.
	if issues := CheckOverflow(doc); len(issues) != 0 {
		t.Errorf("tolerated overrun still reported: %+v", issues)
	}
}

func TestOverflowCustomInsets(t *testing.T) {
	// Zero insets free enough room for the line that overflowed with the
	// defaults in place.
	body := `<p:sp><p:nvSpPr><p:cNvPr id="2" name="Tight 1"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr><p:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="914400" cy="300000"/></a:xfrm></p:spPr><p:txBody><a:bodyPr lIns="0" tIns="0" rIns="0" bIns="0"/><a:lstStyle/>` + para("a b") + `</p:txBody></p:sp>`
	content := buildTestPPTX(t, map[string]string{
		"ppt/slides/slide1.xml": slideXML(body),
	})
	doc := mustDocument(t, content)

	if issues := CheckOverflow(doc); len(issues) != 0 {
		t.Errorf("unexpected issues with zero insets: %+v", issues)
	}
}

func TestOverflowMultipleParagraphsAccumulate(t *testing.T) {
	// Four 18pt lines need 1097280 EMU; the box affords 1005840 after the
	// default insets.
	content := buildTestPPTX(t, map[string]string{
		"ppt/slides/slide1.xml": slideXML(
			sizedTextShape(2, "Stack 1", 6096000, 1097280,
				para("one")+para("two")+para("three")+para("four")),
		),
	})
	doc := mustDocument(t, content)

	issues := CheckOverflow(doc)
	if len(issues) != 1 {
		t.Fatalf("issue count = %d, want 1: %+v", len(issues), issues)
	}
	if !strings.Contains(issues[0].Message, "exceeds height by 91440 EMU") {
		t.Errorf("message = %q", issues[0].Message)
	}
}
