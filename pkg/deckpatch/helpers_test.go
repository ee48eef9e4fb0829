package deckpatch

import (
	"archive/zip"
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"testing"
)

var testSlidePattern = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// buildTestPPTX assembles an in-memory presentation archive. partXML maps
// member paths to content; slide parts are detected by path and wired into
// a generated presentation.xml, presentation rels, package rels, and
// content types, unless the caller supplies those members explicitly.
func buildTestPPTX(t *testing.T, partXML map[string]string) []byte {
	t.Helper()

	type numberedSlide struct {
		Name  string
		Index int
	}
	var slides []numberedSlide
	for name := range partXML {
		if matches := testSlidePattern.FindStringSubmatch(name); len(matches) == 2 {
			idx, err := strconv.Atoi(matches[1])
			if err != nil {
				t.Fatalf("bad slide part name %s", name)
			}
			slides = append(slides, numberedSlide{Name: name, Index: idx})
		}
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].Index < slides[j].Index })

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	writePart := func(name, content string) {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}

	writeDefault := func(name, content string) {
		if _, ok := partXML[name]; ok {
			return
		}
		writePart(name, content)
	}

	writeDefault("_rels/.rels", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="ppt/presentation.xml"/>
</Relationships>`)

	var sldIDs []string
	var presRels []string
	for i, slide := range slides {
		rid := fmt.Sprintf("rId%d", i+1)
		sldIDs = append(sldIDs, fmt.Sprintf(`<p:sldId id="%d" r:id="%s"/>`, 256+i, rid))
		presRels = append(presRels, fmt.Sprintf(
			`  <Relationship Id="%s" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="%s"/>`,
			rid, strings.TrimPrefix(slide.Name, "ppt/"),
		))
	}

	writeDefault("ppt/presentation.xml", fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:presentation xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"><p:sldIdLst>%s</p:sldIdLst><p:sldSz cx="12192000" cy="6858000"/></p:presentation>`,
		strings.Join(sldIDs, "")))

	writeDefault("ppt/_rels/presentation.xml.rels", fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
%s
</Relationships>`, strings.Join(presRels, "\n")))

	partNames := make([]string, 0, len(partXML))
	for name := range partXML {
		partNames = append(partNames, name)
	}
	sort.Strings(partNames)
	for _, name := range partNames {
		writePart(name, partXML[name])
	}

	for _, slide := range slides {
		relsName := "ppt/slides/_rels/" + strings.TrimPrefix(slide.Name, "ppt/slides/") + ".rels"
		if _, ok := partXML[relsName]; ok {
			continue
		}
		writePart(relsName, `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
</Relationships>`)
	}

	overrides := []string{
		`  <Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/>`,
	}
	for _, slide := range slides {
		overrides = append(overrides, fmt.Sprintf(
			`  <Override PartName="/%s" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slide+xml"/>`, slide.Name))
	}

	writeDefault("[Content_Types].xml", fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="xml" ContentType="application/xml"/>
  <Default Extension="png" ContentType="image/png"/>
%s
</Types>`, strings.Join(overrides, "\n")))

	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close zip: %v", err)
	}

	return buf.Bytes()
}

// slideXML wraps shape markup in a complete, schema-clean slide part.
func slideXML(shapes string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"><p:cSld><p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>` +
		shapes + `</p:spTree></p:cSld></p:sld>`
}

// textShape builds a text container with the given non-visual name and
// paragraph markup, without an explicit extent.
func textShape(id int, name, paragraphs string) string {
	return fmt.Sprintf(`<p:sp><p:nvSpPr><p:cNvPr id="%d" name="%s"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr><p:spPr/><p:txBody><a:bodyPr/><a:lstStyle/>%s</p:txBody></p:sp>`,
		id, name, paragraphs)
}

// sizedTextShape builds a text container with a fixed extent in EMU.
func sizedTextShape(id int, name string, cx, cy int64, paragraphs string) string {
	return fmt.Sprintf(`<p:sp><p:nvSpPr><p:cNvPr id="%d" name="%s"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr><p:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%d" cy="%d"/></a:xfrm></p:spPr><p:txBody><a:bodyPr/><a:lstStyle/>%s</p:txBody></p:sp>`,
		id, name, cx, cy, paragraphs)
}

// para builds a single-run paragraph.
func para(text string) string {
	return `<a:p><a:r><a:t>` + text + `</a:t></a:r></a:p>`
}

// mustDocument opens a document from bytes or fails the test.
func mustDocument(t *testing.T, content []byte) *Document {
	t.Helper()
	doc, err := DocumentFromBytes(content)
	if err != nil {
		t.Fatalf("DocumentFromBytes failed: %v", err)
	}
	return doc
}
