// Package deckpatch provides custom error types for better error handling and reporting.
package deckpatch

import (
	"fmt"
	"strings"
)

// ArchiveError represents a fatal error in the archive container itself:
// the zip is unreadable, a required member is corrupt, or the archive
// cannot be re-serialized. Nothing is partially written when one occurs.
type ArchiveError struct {
	Op    string
	Path  string
	Cause error
}

func (e *ArchiveError) Error() string {
	if e.Path != "" && e.Cause != nil {
		return fmt.Sprintf("archive error during %s of '%s': %v", e.Op, e.Path, e.Cause)
	} else if e.Path != "" {
		return fmt.Sprintf("archive error during %s of '%s'", e.Op, e.Path)
	} else if e.Cause != nil {
		return fmt.Sprintf("archive error during %s: %v", e.Op, e.Cause)
	}
	return fmt.Sprintf("archive error during %s", e.Op)
}

func (e *ArchiveError) Unwrap() error {
	return e.Cause
}

// NewArchiveError creates a new archive error
func NewArchiveError(op, path string, cause error) error {
	return &ArchiveError{
		Op:    op,
		Path:  path,
		Cause: cause,
	}
}

// MissingMemberError reports a member path that does not exist in the archive
type MissingMemberError struct {
	Path string
}

func (e *MissingMemberError) Error() string {
	return fmt.Sprintf("archive member not found: %s", e.Path)
}

// NewMissingMemberError creates a new missing member error
func NewMissingMemberError(path string) error {
	return &MissingMemberError{Path: path}
}

// MalformedXMLError represents an XML part that fails to parse. All parts
// must parse for a safe re-serialization, so this is fatal for the operation.
type MalformedXMLError struct {
	Part  string
	Cause error
}

func (e *MalformedXMLError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("malformed XML in part '%s': %v", e.Part, e.Cause)
	}
	return fmt.Sprintf("malformed XML in part '%s'", e.Part)
}

func (e *MalformedXMLError) Unwrap() error {
	return e.Cause
}

// NewMalformedXMLError creates a new malformed XML error
func NewMalformedXMLError(part string, cause error) error {
	return &MalformedXMLError{
		Part:  part,
		Cause: cause,
	}
}

// InvalidLocatorError represents a locator that does not resolve to a node.
// It is recoverable: batch application records it per directive and continues.
type InvalidLocatorError struct {
	Locator Locator
	Reason  string
}

func (e *InvalidLocatorError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid locator %s: %s", e.Locator, e.Reason)
	}
	return fmt.Sprintf("invalid locator %s", e.Locator)
}

// NewInvalidLocatorError creates a new invalid locator error
func NewInvalidLocatorError(locator Locator, reason string) error {
	return &InvalidLocatorError{
		Locator: locator,
		Reason:  reason,
	}
}

// MultiError collects multiple errors
type MultiError struct {
	errors []error
}

// NewMultiError creates a new multi-error collector
func NewMultiError() *MultiError {
	return &MultiError{
		errors: make([]error, 0),
	}
}

// Add adds an error to the collection (ignores nil errors)
func (m *MultiError) Add(err error) {
	if err != nil {
		m.errors = append(m.errors, err)
	}
}

// Len returns the number of errors
func (m *MultiError) Len() int {
	return len(m.errors)
}

// Err returns the multi-error or nil if empty
func (m *MultiError) Err() error {
	if len(m.errors) == 0 {
		return nil
	}
	if len(m.errors) == 1 {
		return m.errors[0]
	}
	return m
}

func (m *MultiError) Error() string {
	if len(m.errors) == 0 {
		return "no errors"
	}

	if len(m.errors) == 1 {
		return m.errors[0].Error()
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("%d errors occurred:", len(m.errors)))
	for i, err := range m.errors {
		parts = append(parts, fmt.Sprintf("  [%d] %v", i+1, err))
	}
	return strings.Join(parts, "\n")
}

// IsArchiveError checks if an error is an archive error
func IsArchiveError(err error) bool {
	_, ok := err.(*ArchiveError)
	return ok
}

// IsMissingMemberError checks if an error is a missing member error
func IsMissingMemberError(err error) bool {
	_, ok := err.(*MissingMemberError)
	return ok
}

// IsMalformedXMLError checks if an error is a malformed XML error
func IsMalformedXMLError(err error) bool {
	_, ok := err.(*MalformedXMLError)
	return ok
}

// IsInvalidLocatorError checks if an error is an invalid locator error
func IsInvalidLocatorError(err error) bool {
	_, ok := err.(*InvalidLocatorError)
	return ok
}
