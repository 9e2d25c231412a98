package domain

import (
	"errors"
	"fmt"
)

// ExtractionKind classifies why a listing fragment could not become a record.
type ExtractionKind string

const (
	MissingField ExtractionKind = "missing_field"
	InvalidField ExtractionKind = "invalid_field"
)

// ExtractionError is a soft, per-listing failure; the page carries on.
type ExtractionError struct {
	Kind  ExtractionKind
	Field string
	Value string
}

func (e *ExtractionError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("%s: %s (%q)", e.Kind, e.Field, e.Value)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Field)
}

// Missing builds a missing_field error for the named field.
func Missing(field string) error {
	return &ExtractionError{Kind: MissingField, Field: field}
}

// Invalid builds an invalid_field error carrying the offending text.
func Invalid(field, value string) error {
	return &ExtractionError{Kind: InvalidField, Field: field, Value: value}
}

// AsExtractionError unwraps err into an *ExtractionError when it is one.
func AsExtractionError(err error) (*ExtractionError, bool) {
	var target *ExtractionError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}
