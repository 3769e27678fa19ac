/*
errors.go - Error kinds for the record keeper

PURPOSE:
  All error types in one place. Callers test kinds with errors.Is on the
  sentinels, or errors.As on the structured types for the offending key.

ERROR CATEGORIES:
  1. Duplicate key - entity or enrollment already exists
  2. Not found - referenced student, subject or enrollment is absent
  3. Invalid input - a value the line format or data model cannot hold

Load-time parse failures are NOT errors: malformed lines are skipped.

USAGE:
  if errors.Is(err, roster.ErrNotFound) {
      ...
  }
*/
package roster

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrDuplicateKey is returned when a student, subject or enrollment
	// already exists.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrNotFound is returned when a referenced student, subject or
	// enrollment does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when a value cannot be stored.
	ErrInvalidInput = errors.New("invalid input")
)

// Kind names what a DuplicateKeyError or NotFoundError refers to.
type Kind string

const (
	KindStudent    Kind = "student"
	KindSubject    Kind = "subject"
	KindEnrollment Kind = "enrollment"
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

type DuplicateKeyError struct {
	Kind Kind
	Key  string
}

func (e *DuplicateKeyError) Error() string {
	switch e.Kind {
	case KindEnrollment:
		return fmt.Sprintf("already enrolled: %s", e.Key)
	default:
		return fmt.Sprintf("%s already exists: %s", e.Kind, e.Key)
	}
}

func (e *DuplicateKeyError) Unwrap() error {
	return ErrDuplicateKey
}

type NotFoundError struct {
	Kind Kind
	Key  string
}

func (e *NotFoundError) Error() string {
	switch e.Kind {
	case KindEnrollment:
		return fmt.Sprintf("not enrolled: %s", e.Key)
	default:
		return fmt.Sprintf("no such %s: %s", e.Kind, e.Key)
	}
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// FieldError reports which input field was rejected and why.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error {
	return ErrInvalidInput
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing entity or enrollment.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicate returns true if the error indicates an existing key.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateKey)
}

// IsClientError returns true if the error is due to caller input rather
// than a storage failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrDuplicateKey) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidInput)
}

func pairKey(p Pair) string {
	return p.StudentID + "/" + p.SubjectCode
}
