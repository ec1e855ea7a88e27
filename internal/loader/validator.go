package loader

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/pb33f/libopenapi"
	validator "github.com/pb33f/libopenapi-validator"
	validatorErrors "github.com/pb33f/libopenapi-validator/errors"
)

// ValidationError wraps libopenapi-validator errors for one request.
type ValidationError struct {
	Method  string
	Path    string
	Message string
	Errors  []*validatorErrors.ValidationError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return e.Message
	}
	reasons := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		reason := err.Message
		if err.Reason != "" {
			reason += ": " + err.Reason
		}
		reasons = append(reasons, reason)
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(reasons, "; "))
}

// RequestValidator checks outgoing requests against an OpenAPI document.
type RequestValidator struct {
	validator validator.Validator
}

// NewRequestValidator creates a validator from OpenAPI spec bytes.
func NewRequestValidator(spec []byte) (*RequestValidator, error) {
	doc, err := libopenapi.NewDocument(spec)
	if err != nil {
		return nil, fmt.Errorf("parsing OpenAPI document: %w", err)
	}

	v, errs := validator.NewValidator(doc)
	if len(errs) > 0 {
		return nil, fmt.Errorf("creating validator: %w", errs[0])
	}

	return &RequestValidator{validator: v}, nil
}

// Validate returns a *ValidationError when r does not match the document.
func (v *RequestValidator) Validate(r *http.Request) error {
	valid, errs := v.validator.ValidateHttpRequestSync(r)
	if valid {
		return nil
	}
	return &ValidationError{
		Method:  r.Method,
		Path:    r.URL.Path,
		Message: fmt.Sprintf("request %s %s failed validation", r.Method, r.URL.Path),
		Errors:  errs,
	}
}
