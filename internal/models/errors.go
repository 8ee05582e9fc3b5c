package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is wrapped by stores when a record does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError rejects an input before any mutation.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError builds a ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

// IncompleteAssessmentError is returned when questionnaire answers are missing.
type IncompleteAssessmentError struct {
	Missing []string
}

func (e *IncompleteAssessmentError) Error() string {
	return fmt.Sprintf("incomplete assessment: %d unanswered (%s)", len(e.Missing), strings.Join(e.Missing, ", "))
}

// DuplicateGroup is a set of position rows sharing one symbol in a portfolio.
type DuplicateGroup struct {
	Symbol      string   `json:"symbol"`
	IDs         []string `json:"ids"`
	TotalShares float64  `json:"total_shares"`
}

// IntegrityWarning lists duplicate position groups. It is data, not a failure.
type IntegrityWarning []DuplicateGroup

// Empty reports whether there is nothing to warn about.
func (w IntegrityWarning) Empty() bool {
	return len(w) == 0
}

func (w IntegrityWarning) String() string {
	if w.Empty() {
		return "no duplicate positions"
	}
	symbols := make([]string, len(w))
	for i, g := range w {
		symbols[i] = g.Symbol
	}
	return fmt.Sprintf("%d duplicate position group(s): %s", len(w), strings.Join(symbols, ", "))
}

// PartialExecutionError reports an investment run where some buckets failed.
// Applied lots are not rolled back.
type PartialExecutionError struct {
	Succeeded []Bucket
	Failed    map[Bucket]error
}

func (e *PartialExecutionError) Error() string {
	total := len(e.Succeeded) + len(e.Failed)
	var parts []string
	for _, b := range Buckets {
		if err, ok := e.Failed[b]; ok {
			parts = append(parts, fmt.Sprintf("%s: %v", b, err))
		}
	}
	return fmt.Sprintf("%d of %d buckets invested (%s)", len(e.Succeeded), total, strings.Join(parts, "; "))
}

// Unwrap exposes the per-bucket causes.
func (e *PartialExecutionError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, b := range Buckets {
		if err, ok := e.Failed[b]; ok {
			errs = append(errs, err)
		}
	}
	return errs
}

// IsValidation reports whether err is a caller input problem.
func IsValidation(err error) bool {
	var ve *ValidationError
	var ie *IncompleteAssessmentError
	return errors.As(err, &ve) || errors.As(err, &ie)
}
