package models

import (
	"fmt"
	"sort"
	"strings"

	dErrors "storefront/pkg/domain-errors"
)

// ValidationError carries field-level messages keyed by field name.
// Attachment problems are keyed "documents".
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// FieldErrors returns a copy of the per-field messages.
func (e *ValidationError) FieldErrors() map[string]string {
	out := make(map[string]string, len(e.Fields))
	for k, v := range e.Fields {
		out[k] = v
	}
	return out
}

func (e *ValidationError) Unwrap() error {
	return dErrors.New(dErrors.CodeValidation, "one or more fields are invalid")
}

// ValidateFields checks required fields, the email shape and the attachment
// count. Returns nil when everything passes.
func ValidateFields(variant string, fields map[string]string, attachments int) *ValidationError {
	errs := map[string]string{}
	for _, f := range FieldsFor(variant) {
		value := strings.TrimSpace(fields[f.Name])
		if f.Required && value == "" {
			errs[f.Name] = fmt.Sprintf("%s is required", f.Label)
			continue
		}
		if f.Kind == KindEmail && value != "" && !strings.Contains(value, "@") {
			errs[f.Name] = "enter a valid email address"
		}
	}
	if attachments < 1 {
		errs["documents"] = "attach at least one supporting document"
	}
	if len(errs) == 0 {
		return nil
	}
	return NewValidationError(errs)
}
