package deckpatch

import (
	"fmt"
	"strconv"
)

// qname is a namespace-qualified element or attribute name.
type qname struct {
	Space string
	Local string
}

func pml(local string) qname { return qname{NSPresentation, local} }
func dml(local string) qname { return qname{NSDrawing, local} }
func un(local string) qname  { return qname{"", local} }

// elementRule declares what the format's schema allows for one element:
// which child elements and attributes may appear, and which children are
// mandatory. Elements without a rule are not checked structurally, but
// their subtrees are still walked.
type elementRule struct {
	children map[qname]bool
	attrs    map[qname]bool
	required []qname
}

func rule(children []qname, attrs []qname, required ...qname) elementRule {
	r := elementRule{
		children: make(map[qname]bool, len(children)),
		attrs:    make(map[qname]bool, len(attrs)),
		required: required,
	}
	for _, c := range children {
		r.children[c] = true
	}
	for _, a := range attrs {
		r.attrs[a] = true
	}
	return r
}

// slideSchema covers the structural core of a slide part: the shape tree
// down through text bodies, paragraphs, and runs. Declared per the
// presentation format's public schema.
var slideSchema = map[qname]elementRule{
	pml("sld"): rule(
		[]qname{pml("cSld"), pml("clrMapOvr"), pml("transition"), pml("timing"), pml("extLst")},
		[]qname{un("showMasterSp"), un("showMasterPhAnim"), un("show")},
		pml("cSld"),
	),
	pml("cSld"): rule(
		[]qname{pml("bg"), pml("spTree"), pml("custDataLst"), pml("controls"), pml("extLst")},
		[]qname{un("name")},
		pml("spTree"),
	),
	pml("spTree"): rule(
		[]qname{
			pml("nvGrpSpPr"), pml("grpSpPr"), pml("sp"), pml("grpSp"),
			pml("graphicFrame"), pml("cxnSp"), pml("pic"), pml("contentPart"), pml("extLst"),
		},
		nil,
		pml("nvGrpSpPr"), pml("grpSpPr"),
	),
	pml("sp"): rule(
		[]qname{pml("nvSpPr"), pml("spPr"), pml("style"), pml("txBody"), pml("extLst")},
		nil,
		pml("nvSpPr"), pml("spPr"),
	),
	pml("nvSpPr"): rule(
		[]qname{pml("cNvPr"), pml("cNvSpPr"), pml("nvPr")},
		nil,
		pml("cNvPr"), pml("cNvSpPr"), pml("nvPr"),
	),
	pml("cNvPr"): rule(
		[]qname{dml("hlinkClick"), dml("hlinkHover"), dml("extLst")},
		[]qname{un("id"), un("name"), un("descr"), un("hidden"), un("title")},
	),
	pml("txBody"): rule(
		[]qname{dml("bodyPr"), dml("lstStyle"), dml("p")},
		nil,
		dml("bodyPr"),
	),
	dml("p"): rule(
		[]qname{dml("pPr"), dml("r"), dml("br"), dml("fld"), dml("endParaRPr")},
		nil,
	),
	dml("r"): rule(
		[]qname{dml("rPr"), dml("t")},
		nil,
		dml("t"),
	),
	dml("t"): rule(nil, nil),
	dml("br"): rule(
		[]qname{dml("rPr")},
		nil,
	),
	dml("rPr"): rule(
		[]qname{
			dml("ln"), dml("noFill"), dml("solidFill"), dml("gradFill"), dml("blipFill"),
			dml("pattFill"), dml("grpFill"), dml("effectLst"), dml("effectDag"),
			dml("highlight"), dml("uLnTx"), dml("uLn"), dml("uFillTx"), dml("uFill"),
			dml("latin"), dml("ea"), dml("cs"), dml("sym"),
			dml("hlinkClick"), dml("hlinkMouseOver"), dml("rtl"), dml("extLst"),
		},
		[]qname{
			un("lang"), un("altLang"), un("sz"), un("b"), un("i"), un("u"), un("strike"),
			un("kern"), un("cap"), un("spc"), un("normalizeH"), un("baseline"),
			un("noProof"), un("dirty"), un("err"), un("smtClean"), un("smtId"), un("bmk"),
		},
	),
	dml("pPr"): rule(
		[]qname{
			dml("lnSpc"), dml("spcBef"), dml("spcAft"), dml("buClrTx"), dml("buClr"),
			dml("buSzTx"), dml("buSzPct"), dml("buSzPts"), dml("buFontTx"), dml("buFont"),
			dml("buNone"), dml("buAutoNum"), dml("buChar"), dml("tabLst"), dml("defRPr"),
			dml("extLst"),
		},
		[]qname{
			un("marL"), un("marR"), un("lvl"), un("indent"), un("algn"), un("defTabSz"),
			un("rtl"), un("eaLnBrk"), un("fontAlgn"), un("latinLnBrk"), un("hangingPunct"),
		},
	),
	dml("latin"):     rule(nil, []qname{un("typeface"), un("panose"), un("pitchFamily"), un("charset")}),
	dml("buChar"):    rule(nil, []qname{un("char")}),
	dml("buNone"):    rule(nil, nil),
	dml("buAutoNum"): rule(nil, []qname{un("type"), un("startAt")}),
}

var validAlignments = map[string]bool{
	"l": true, "ctr": true, "r": true, "just": true, "justLow": true, "dist": true, "thaiDist": true,
}

var validBooleans = map[string]bool{
	"0": true, "1": true, "true": true, "false": true,
}

// CheckSchema structurally validates each slide part against the declared
// schema: element usage, attribute usage, required children, and attribute
// value formats. The pass is total; every violation is reported.
func CheckSchema(doc *Document) []Issue {
	strict := GetGlobalConfig().StrictSchema
	issues := make([]Issue, 0)
	for _, slide := range doc.Slides() {
		checkNodeSchema(slide, slide.Root, strict, &issues)
	}
	return issues
}

func checkNodeSchema(part *Part, node *Node, strict bool, issues *[]Issue) {
	name := qname{node.Space, node.Local}

	// Extension lists carry vendor content outside the core schema.
	if name == pml("extLst") || name == dml("extLst") {
		return
	}

	r, known := slideSchema[name]
	if known {
		for _, a := range node.Attrs {
			// r: attributes belong to the relationship namespace and are
			// checked by the reference pass, not the schema tables.
			if a.Space == NSRelationships || a.Space == NSXML {
				continue
			}
			if !r.attrs[qname{a.Space, a.Local}] {
				appendSchemaIssue(part, node, issues,
					fmt.Sprintf("attribute '%s' not allowed on element '%s'", attrDisplay(part, a), part.qualified(node.Space, node.Local)))
				continue
			}
			checkAttrValue(part, node, a, issues)
		}

		for _, c := range node.Children {
			if c.Space != NSPresentation && c.Space != NSDrawing {
				continue
			}
			if !r.children[qname{c.Space, c.Local}] {
				severity := SeverityWarning
				if strict {
					severity = SeverityError
				}
				appendIssueAt(part, c, severity, issues,
					fmt.Sprintf("element '%s' not allowed in '%s'", part.qualified(c.Space, c.Local), part.qualified(node.Space, node.Local)))
			}
		}

		for _, req := range r.required {
			if node.FindChild(req.Space, req.Local) == nil {
				appendSchemaIssue(part, node, issues,
					fmt.Sprintf("element '%s' missing required child '%s'", part.qualified(node.Space, node.Local), part.qualified(req.Space, req.Local)))
			}
		}
	}

	for _, c := range node.Children {
		checkNodeSchema(part, c, strict, issues)
	}
}

// checkAttrValue validates value formats for the attributes whose lexical
// space the schema constrains.
func checkAttrValue(part *Part, node *Node, a Attr, issues *[]Issue) {
	switch {
	case a.Local == "sz" && node.Is(NSDrawing, "rPr"):
		n, err := strconv.Atoi(a.Value)
		if err != nil || n < 100 || n > 400000 {
			appendSchemaIssue(part, node, issues,
				fmt.Sprintf("attribute 'sz' value '%s' is not a valid font size (hundredths of a point, 100-400000)", a.Value))
		}
	case a.Local == "lvl" && node.Is(NSDrawing, "pPr"):
		n, err := strconv.Atoi(a.Value)
		if err != nil || n < 0 || n > 8 {
			appendSchemaIssue(part, node, issues,
				fmt.Sprintf("attribute 'lvl' value '%s' is not a valid indent level (0-8)", a.Value))
		}
	case a.Local == "algn" && node.Is(NSDrawing, "pPr"):
		if !validAlignments[a.Value] {
			appendSchemaIssue(part, node, issues,
				fmt.Sprintf("attribute 'algn' value '%s' is not a valid alignment", a.Value))
		}
	case (a.Local == "b" || a.Local == "i") && node.Is(NSDrawing, "rPr"):
		if !validBooleans[a.Value] {
			appendSchemaIssue(part, node, issues,
				fmt.Sprintf("attribute '%s' value '%s' is not a valid boolean", a.Local, a.Value))
		}
	}
}

func attrDisplay(part *Part, a Attr) string {
	if a.Space == "" {
		return a.Local
	}
	return part.Prefix(a.Space) + ":" + a.Local
}

func appendSchemaIssue(part *Part, node *Node, issues *[]Issue, message string) {
	appendIssueAt(part, node, SeverityError, issues, message)
}

func appendIssueAt(part *Part, node *Node, severity IssueSeverity, issues *[]Issue, message string) {
	*issues = append(*issues, Issue{
		Severity: severity,
		Category: CategorySchema,
		Location: IssueLocation{
			Part: part.Name,
			Path: part.NodePath(node),
		},
		Message: message,
	})
}
