package deckpatch

import (
	"sort"
)

// IssueSeverity indicates how serious a validation finding is.
type IssueSeverity string

const (
	SeverityError   IssueSeverity = "error"
	SeverityWarning IssueSeverity = "warning"
)

// IssueCategory identifies which validation pass produced a finding.
type IssueCategory string

const (
	CategorySchema    IssueCategory = "schema"
	CategoryReference IssueCategory = "reference"
	CategoryOverflow  IssueCategory = "overflow"
)

// IssueLocation identifies where in the archive a finding points: the
// member part, and an element path within it when the finding is about a
// specific node.
type IssueLocation struct {
	Part string `json:"part"`
	Path string `json:"path,omitempty"`
}

// Issue is a single validation finding. Findings are reported, never
// thrown: whether a finding of a given severity blocks a write is the
// caller's decision.
type Issue struct {
	Severity IssueSeverity `json:"severity"`
	Category IssueCategory `json:"category"`
	Location IssueLocation `json:"location"`
	Message  string        `json:"message"`
}

// ValidationSummary contains validation counters.
type ValidationSummary struct {
	SchemaCount        int `json:"schemaCount"`
	ReferenceCount     int `json:"referenceCount"`
	OverflowCount      int `json:"overflowCount"`
	ErrorCount         int `json:"errorCount"`
	WarningCount       int `json:"warningCount"`
	ReturnedIssueCount int `json:"returnedIssueCount"`
}

// ValidationResult carries every finding from a validation run plus a
// success flag; an empty issue list means clean.
type ValidationResult struct {
	Clean           bool              `json:"clean"`
	Issues          []Issue           `json:"issues"`
	IssuesTruncated bool              `json:"issuesTruncated"`
	Summary         ValidationSummary `json:"summary"`
	DocumentHash    string            `json:"documentHash"`
}

// Validate runs the three checking passes over the document: schema
// conformance, cross-part referential integrity, and layout overflow. Each
// pass is total; all findings are aggregated rather than stopping at the
// first. Issues come back deterministically sorted, capped by the
// configured MaxIssues when set.
func Validate(doc *Document) *ValidationResult {
	config := GetGlobalConfig()

	issues := make([]Issue, 0)
	issues = append(issues, CheckSchema(doc)...)
	issues = append(issues, CheckReferences(doc)...)
	issues = append(issues, CheckOverflow(doc)...)
	sortIssues(issues)

	summary := ValidationSummary{}
	for _, issue := range issues {
		switch issue.Category {
		case CategorySchema:
			summary.SchemaCount++
		case CategoryReference:
			summary.ReferenceCount++
		case CategoryOverflow:
			summary.OverflowCount++
		}
		switch issue.Severity {
		case SeverityError:
			summary.ErrorCount++
		case SeverityWarning:
			summary.WarningCount++
		}
	}

	returned := issues
	truncated := false
	if config.MaxIssues > 0 && len(issues) > config.MaxIssues {
		returned = issues[:config.MaxIssues]
		truncated = true
	}
	summary.ReturnedIssueCount = len(returned)

	logger := GetLogger()
	if logger.IsDebugMode() {
		logger.WithFields(Fields{
			"schema":    summary.SchemaCount,
			"reference": summary.ReferenceCount,
			"overflow":  summary.OverflowCount,
			"truncated": truncated,
		}).Debug("Validation run complete")
	}

	return &ValidationResult{
		Clean:           len(issues) == 0,
		Issues:          returned,
		IssuesTruncated: truncated,
		Summary:         summary,
		DocumentHash:    doc.Hash(),
	}
}

// RegressionCheck diffs two issue sets and returns only the issues present
// in current but absent from baseline: the problems an edit introduced,
// even when pre-existing ones remain.
func RegressionCheck(baseline, current []Issue) []Issue {
	seen := make(map[string]int, len(baseline))
	for _, issue := range baseline {
		seen[issueKey(issue)]++
	}

	introduced := make([]Issue, 0)
	for _, issue := range current {
		key := issueKey(issue)
		if seen[key] > 0 {
			seen[key]--
			continue
		}
		introduced = append(introduced, issue)
	}
	return introduced
}

func issueKey(issue Issue) string {
	return string(issue.Severity) + "|" + string(issue.Category) + "|" +
		issue.Location.Part + "|" + issue.Location.Path + "|" + issue.Message
}

func sortIssues(issues []Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		left := issues[i]
		right := issues[j]

		if left.Location.Part != right.Location.Part {
			return left.Location.Part < right.Location.Part
		}
		if left.Location.Path != right.Location.Path {
			return left.Location.Path < right.Location.Path
		}
		if left.Category != right.Category {
			return left.Category < right.Category
		}
		return left.Message < right.Message
	})
}
