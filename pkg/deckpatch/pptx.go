package deckpatch

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
)

const presentationPart = "ppt/presentation.xml"

var slidePartPattern = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// Relationship represents a relationship in the presentation package
type Relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr,omitempty"`
}

// Relationships represents the collection of relationships
type Relationships struct {
	XMLName      xml.Name       `xml:"Relationships"`
	Namespace    string         `xml:"xmlns,attr"`
	Relationship []Relationship `xml:"Relationship"`
}

// Document is the in-memory tree model over one open archive: the
// presentation part plus every slide part, parsed and held in presentation
// order. A Document is exclusively owned by the workflow that opened it.
type Document struct {
	archive      *Archive
	presentation *Part
	slides       []*Part
	hash         string
}

// OpenDocument opens a presentation archive from disk and parses every
// slide part into the tree model.
func OpenDocument(path string) (*Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, NewArchiveError("open", path, err)
	}
	return DocumentFromBytes(content)
}

// DocumentFromBytes opens a presentation archive from memory. Any part that
// fails to parse makes the whole operation fail: an archive with a
// malformed part cannot be safely re-serialized.
func DocumentFromBytes(content []byte) (*Document, error) {
	archive, err := ArchiveFromBytes(content)
	if err != nil {
		return nil, err
	}

	if !archive.Has(presentationPart) {
		return nil, NewArchiveError("open", "",
			fmt.Errorf("not a valid presentation: missing %s", presentationPart))
	}

	presBytes, err := archive.MemberBytes(presentationPart)
	if err != nil {
		return nil, err
	}
	presentation, err := ParsePart(presentationPart, presBytes)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		archive:      archive,
		presentation: presentation,
	}

	sum := sha256.Sum256(content)
	doc.hash = "sha256:" + hex.EncodeToString(sum[:])

	slideNames, err := doc.slideOrder()
	if err != nil {
		return nil, err
	}
	parseErrs := NewMultiError()
	for _, name := range slideNames {
		data, err := archive.MemberBytes(name)
		if err != nil {
			parseErrs.Add(err)
			continue
		}
		part, err := ParsePart(name, data)
		if err != nil {
			parseErrs.Add(err)
			continue
		}
		doc.slides = append(doc.slides, part)
	}
	// Every slide must parse before any edit is safe; report all failures
	// at once rather than one per attempt.
	if err := parseErrs.Err(); err != nil {
		return nil, err
	}

	logger := GetLogger()
	if logger.IsDebugMode() {
		logger.WithFields(Fields{
			"slides":  len(doc.slides),
			"members": len(archive.Members()),
		}).Debug("Opened presentation archive")
	}

	return doc, nil
}

// slideOrder resolves slide part names in presentation order: the
// p:sldIdLst entries, each followed through the presentation relationships.
// Archives without a slide id list fall back to numeric part order.
func (d *Document) slideOrder() ([]string, error) {
	rels, err := d.Relationships(presentationPart)
	if err != nil {
		return nil, err
	}
	relByID := make(map[string]Relationship, len(rels))
	for _, rel := range rels {
		relByID[rel.ID] = rel
	}

	var ordered []string
	if lst := d.presentation.Root.FindChild(NSPresentation, "sldIdLst"); lst != nil {
		for _, sldID := range lst.FindChildren(NSPresentation, "sldId") {
			rid, ok := sldID.AttrValue(NSRelationships, "id")
			if !ok {
				continue
			}
			rel, ok := relByID[rid]
			if !ok {
				// Dangling slide reference: surfaced by the reference
				// pass, not fatal at open time. The part is skipped.
				continue
			}
			target := resolveTarget(presentationPart, rel.Target)
			if d.archive.Has(target) {
				ordered = append(ordered, target)
			}
		}
	}
	if len(ordered) > 0 {
		return ordered, nil
	}

	type numberedPart struct {
		Name  string
		Index int
	}
	var numbered []numberedPart
	for _, name := range d.archive.Members() {
		if matches := slidePartPattern.FindStringSubmatch(name); len(matches) == 2 {
			idx, err := strconv.Atoi(matches[1])
			if err == nil {
				numbered = append(numbered, numberedPart{Name: name, Index: idx})
			}
		}
	}
	sort.Slice(numbered, func(i, j int) bool {
		if numbered[i].Index == numbered[j].Index {
			return numbered[i].Name < numbered[j].Name
		}
		return numbered[i].Index < numbered[j].Index
	})
	names := make([]string, 0, len(numbered))
	for _, p := range numbered {
		names = append(names, p.Name)
	}
	return names, nil
}

// Relationships retrieves the relationships for a given part. A missing
// relationships member is not an error, just empty.
func (d *Document) Relationships(partName string) ([]Relationship, error) {
	relPath := relsPathFor(partName)
	if !d.archive.Has(relPath) {
		return []Relationship{}, nil
	}

	content, err := d.archive.MemberBytes(relPath)
	if err != nil {
		return nil, err
	}

	var rels Relationships
	if err := xml.Unmarshal(content, &rels); err != nil {
		return nil, NewMalformedXMLError(relPath, err)
	}
	return rels.Relationship, nil
}

// Archive exposes the underlying archive, read-only by convention: all
// mutation flows through the tree model and Sync.
func (d *Document) Archive() *Archive {
	return d.archive
}

// Presentation returns the parsed presentation part.
func (d *Document) Presentation() *Part {
	return d.presentation
}

// Slides returns the slide parts in presentation order.
func (d *Document) Slides() []*Part {
	return d.slides
}

// Hash identifies the archive revision this document was opened from.
func (d *Document) Hash() string {
	return d.hash
}

// Sync serializes every mutated part back into the archive. Unmodified
// parts keep their original bytes.
func (d *Document) Sync() {
	parts := append([]*Part{d.presentation}, d.slides...)
	for _, part := range parts {
		if part.Dirty() {
			d.archive.SetMember(part.Name, part.Serialize())
		}
	}
}

// WriteFile syncs mutated parts and writes the archive atomically.
func (d *Document) WriteFile(path string) error {
	d.Sync()
	return d.archive.WriteFile(path)
}
