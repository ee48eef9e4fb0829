package deckpatch

import (
	"archive/zip"
	"bytes"
	"path/filepath"
	"testing"
)

func TestDocumentFromBytesRejectsMissingPresentation(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("docProps/app.xml")
	if err != nil {
		t.Fatalf("zip create failed: %v", err)
	}
	if _, err := w.Write([]byte(`<?xml version="1.0"?><Properties/>`)); err != nil {
		t.Fatalf("zip write failed: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close failed: %v", err)
	}

	doc, err := DocumentFromBytes(buf.Bytes())
	if err == nil || doc != nil {
		t.Fatal("expected missing presentation part to fail")
	}
	if !IsArchiveError(err) {
		t.Fatalf("expected ArchiveError, got %T: %v", err, err)
	}
}

func TestSlideOrderFollowsSlideIDList(t *testing.T) {
	// The id list references the slides in reverse numeric order; the
	// document follows the list, not the part numbers.
	presentation := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:presentation xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"><p:sldIdLst><p:sldId id="256" r:id="rId2"/><p:sldId id="257" r:id="rId1"/></p:sldIdLst><p:sldSz cx="12192000" cy="6858000"/></p:presentation>`

	content := buildTestPPTX(t, map[string]string{
		"ppt/presentation.xml":  presentation,
		"ppt/slides/slide1.xml": slideXML(textShape(2, "A", para("part one"))),
		"ppt/slides/slide2.xml": slideXML(textShape(2, "B", para("part two"))),
	})
	doc := mustDocument(t, content)

	slides := doc.Slides()
	if len(slides) != 2 {
		t.Fatalf("slide count = %d, want 2", len(slides))
	}
	if slides[0].Name != "ppt/slides/slide2.xml" || slides[1].Name != "ppt/slides/slide1.xml" {
		t.Errorf("slide order = %s, %s; want id-list order", slides[0].Name, slides[1].Name)
	}
}

func TestSlideOrderNumericFallback(t *testing.T) {
	// No id list at all: parts come back in numeric order, slide2 before
	// slide10 despite the lexicographic order.
	presentation := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:presentation xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"><p:sldSz cx="12192000" cy="6858000"/></p:presentation>`

	content := buildTestPPTX(t, map[string]string{
		"ppt/presentation.xml":   presentation,
		"ppt/slides/slide2.xml":  slideXML(textShape(2, "A", para("two"))),
		"ppt/slides/slide10.xml": slideXML(textShape(2, "B", para("ten"))),
	})
	doc := mustDocument(t, content)

	slides := doc.Slides()
	if len(slides) != 2 {
		t.Fatalf("slide count = %d, want 2", len(slides))
	}
	if slides[0].Name != "ppt/slides/slide2.xml" || slides[1].Name != "ppt/slides/slide10.xml" {
		t.Errorf("slide order = %s, %s; want numeric order", slides[0].Name, slides[1].Name)
	}
}

func TestRelationshipsMissingMemberIsEmpty(t *testing.T) {
	content := buildTestPPTX(t, map[string]string{
		"ppt/slides/slide1.xml": slideXML(textShape(2, "A", para("x"))),
	})
	doc := mustDocument(t, content)

	rels, err := doc.Relationships("ppt/media/image1.png")
	if err != nil {
		t.Fatalf("Relationships failed: %v", err)
	}
	if len(rels) != 0 {
		t.Errorf("expected no relationships, got %+v", rels)
	}
}

func TestDocumentHashIdentifiesRevision(t *testing.T) {
	a := buildTestPPTX(t, map[string]string{
		"ppt/slides/slide1.xml": slideXML(textShape(2, "A", para("one"))),
	})
	b := buildTestPPTX(t, map[string]string{
		"ppt/slides/slide1.xml": slideXML(textShape(2, "A", para("two"))),
	})

	docA := mustDocument(t, a)
	docB := mustDocument(t, b)
	if docA.Hash() == docB.Hash() {
		t.Error("different archives share a hash")
	}
	if mustDocument(t, a).Hash() != docA.Hash() {
		t.Error("reopening the same bytes changed the hash")
	}
}

func TestSyncRewritesOnlyMutatedParts(t *testing.T) {
	content := buildTestPPTX(t, map[string]string{
		"ppt/slides/slide1.xml": slideXML(textShape(2, "A", para("edit me"))),
		"ppt/slides/slide2.xml": slideXML(textShape(2, "B", para("leave me"))),
	})
	doc := mustDocument(t, content)

	original2, err := doc.Archive().MemberBytes("ppt/slides/slide2.xml")
	if err != nil {
		t.Fatalf("MemberBytes failed: %v", err)
	}
	originalPres, err := doc.Archive().MemberBytes("ppt/presentation.xml")
	if err != nil {
		t.Fatalf("MemberBytes failed: %v", err)
	}

	report := ApplyDirectives(doc, []Directive{
		{Part: "ppt/slides/slide1.xml", Locator: Locator{0}, Text: "edited"},
	})
	if !report.Resolved() {
		t.Fatalf("unresolved: %+v", report.Unresolved)
	}
	doc.Sync()

	after2, _ := doc.Archive().MemberBytes("ppt/slides/slide2.xml")
	if !bytes.Equal(original2, after2) {
		t.Error("untouched slide was rewritten")
	}
	afterPres, _ := doc.Archive().MemberBytes("ppt/presentation.xml")
	if !bytes.Equal(originalPres, afterPres) {
		t.Error("untouched presentation part was rewritten")
	}

	after1, _ := doc.Archive().MemberBytes("ppt/slides/slide1.xml")
	if !bytes.Contains(after1, []byte("edited")) {
		t.Error("mutated slide not rewritten")
	}
}

func TestDocumentWriteFileRoundTrip(t *testing.T) {
	content := buildTestPPTX(t, map[string]string{
		"ppt/slides/slide1.xml": slideXML(textShape(2, "Title 1", para("before"))),
	})
	doc := mustDocument(t, content)

	report := ApplyDirectives(doc, []Directive{
		{Locator: Locator{0}, Text: "after"},
	})
	if !report.Resolved() {
		t.Fatalf("unresolved: %+v", report.Unresolved)
	}

	path := filepath.Join(t.TempDir(), "out.pptx")
	if err := doc.WriteFile(path); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	reopened, err := OpenDocument(path)
	if err != nil {
		t.Fatalf("OpenDocument failed: %v", err)
	}
	inv := ExtractInventory(reopened)
	if len(inv.Records) != 1 || inv.Records[0].Text != "after" {
		t.Errorf("written document content = %+v", inv.Records)
	}
	if result := Validate(reopened); !result.Clean {
		t.Errorf("written document not clean: %+v", result.Issues)
	}
}
