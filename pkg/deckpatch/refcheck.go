package deckpatch

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// CheckReferences confirms the archive's cross-part integrity: every
// internal relationship target resolves to an existing member, and every
// r:-namespace id used inside a part matches a relationship declared for
// that part. Dangling references are reported; the pass never stops early.
func CheckReferences(doc *Document) []Issue {
	issues := make([]Issue, 0)
	archive := doc.Archive()

	for _, member := range archive.sortedMembers() {
		if !strings.HasSuffix(member, ".rels") {
			continue
		}
		checkRelationshipTargets(archive, member, &issues)
	}

	parts := append([]*Part{doc.Presentation()}, doc.Slides()...)
	for _, part := range parts {
		checkPartReferenceIDs(doc, part, &issues)
	}

	return issues
}

// checkRelationshipTargets verifies that each internal relationship in one
// .rels member points at an archive member that exists.
func checkRelationshipTargets(archive *Archive, relsMember string, issues *[]Issue) {
	content, err := archive.MemberBytes(relsMember)
	if err != nil {
		return
	}

	var rels Relationships
	if err := xml.Unmarshal(content, &rels); err != nil {
		*issues = append(*issues, Issue{
			Severity: SeverityError,
			Category: CategoryReference,
			Location: IssueLocation{Part: relsMember},
			Message:  fmt.Sprintf("relationship descriptor is not well-formed: %v", err),
		})
		return
	}

	owner := ownerPartFor(relsMember)
	for _, rel := range rels.Relationship {
		if rel.TargetMode == "External" {
			continue
		}
		target := resolveTarget(owner, rel.Target)
		if !archive.Has(target) {
			*issues = append(*issues, Issue{
				Severity: SeverityError,
				Category: CategoryReference,
				Location: IssueLocation{Part: relsMember},
				Message:  fmt.Sprintf("relationship '%s' targets missing member '%s'", rel.ID, target),
			})
		}
	}
}

// ownerPartFor inverts relsPathFor: the part a .rels member describes.
// "ppt/slides/_rels/slide1.xml.rels" -> "ppt/slides/slide1.xml";
// the package-level "_rels/.rels" owns the archive root.
func ownerPartFor(relsMember string) string {
	base := strings.TrimSuffix(relsMember, ".rels")
	base = strings.Replace(base, "_rels/", "", 1)
	return strings.TrimPrefix(base, "/")
}

// checkPartReferenceIDs verifies that every relationship-namespace id
// attribute inside a part has a matching declared relationship.
func checkPartReferenceIDs(doc *Document, part *Part, issues *[]Issue) {
	rels, err := doc.Relationships(part.Name)
	if err != nil {
		*issues = append(*issues, Issue{
			Severity: SeverityError,
			Category: CategoryReference,
			Location: IssueLocation{Part: relsPathFor(part.Name)},
			Message:  fmt.Sprintf("relationship descriptor is not well-formed: %v", err),
		})
		return
	}
	declared := make(map[string]bool, len(rels))
	for _, rel := range rels {
		declared[rel.ID] = true
	}

	walkReferenceAttrs(part, part.Root, declared, issues)
}

func walkReferenceAttrs(part *Part, node *Node, declared map[string]bool, issues *[]Issue) {
	for _, a := range node.Attrs {
		if a.Space != NSRelationships {
			continue
		}
		if a.Value == "" {
			continue
		}
		if !declared[a.Value] {
			*issues = append(*issues, Issue{
				Severity: SeverityError,
				Category: CategoryReference,
				Location: IssueLocation{
					Part: part.Name,
					Path: part.NodePath(node),
				},
				Message: fmt.Sprintf("reference 'r:%s=\"%s\"' has no matching relationship in %s", a.Local, a.Value, relsPathFor(part.Name)),
			})
		}
	}
	for _, c := range node.Children {
		walkReferenceAttrs(part, c, declared, issues)
	}
}
