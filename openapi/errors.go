package openapi

import (
	"fmt"
	"strings"
)

// ParseError reports a document text that could not be decoded.
type ParseError struct {
	Format string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s document: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ValidationError reports a document missing required top-level keys.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "invalid OpenAPI document: missing required keys: " + strings.Join(e.Missing, ", ")
}

// NotFoundError reports a lookup that matched nothing in the document.
type NotFoundError struct {
	// Kind is "path", "method", "operation", "reference" or "security scheme".
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Name)
}

// InvalidReferenceError reports a $ref that is not a local "#/" pointer.
type InvalidReferenceError struct {
	Ref string
}

func (e *InvalidReferenceError) Error() string {
	return fmt.Sprintf("invalid reference %q: must start with \"#/\"", e.Ref)
}
