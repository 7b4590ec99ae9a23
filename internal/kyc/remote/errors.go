package remote

import (
	"errors"
	"fmt"

	dErrors "storefront/pkg/domain-errors"
)

// Category is the normalized failure taxonomy for authority calls.
type Category string

const (
	// CategoryAuthentication means the credential was missing, invalid or expired.
	CategoryAuthentication Category = "authentication"
	// CategoryNetwork covers transport failures, timeouts, 5xx and an open breaker.
	CategoryNetwork Category = "network"
	// CategoryRejected is a structured refusal such as a duplicate submission.
	CategoryRejected Category = "rejected"
	// CategoryNotFound means the submission does not exist for this user.
	CategoryNotFound Category = "not_found"
	// CategoryBadData means the authority answered with something unparseable.
	CategoryBadData Category = "bad_data"
)

// Error wraps an authority failure. It unwraps to a coded domain error so
// transports can map it without knowing about this package.
type Error struct {
	Category   Category
	Status     int
	Message    string
	Fields     map[string]string
	Retryable  bool
	Underlying error
	coded      *dErrors.Error
}

func newError(category Category, status int, message string, underlying error) *Error {
	e := &Error{
		Category:   category,
		Status:     status,
		Message:    message,
		Underlying: underlying,
		Retryable:  category == CategoryNetwork,
	}
	e.coded = dErrors.Wrap(underlying, e.code(), message)
	return e
}

func (e *Error) code() dErrors.Code {
	switch e.Category {
	case CategoryAuthentication:
		return dErrors.CodeUnauthorized
	case CategoryNetwork:
		return dErrors.CodeUnavailable
	case CategoryNotFound:
		return dErrors.CodeNotFound
	case CategoryRejected:
		switch e.Status {
		case 403:
			return dErrors.CodeForbidden
		case 409:
			return dErrors.CodeConflict
		}
		return dErrors.CodeBadRequest
	}
	return dErrors.CodeInternal
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("authority [%s]: %s: %v", e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("authority [%s]: %s", e.Category, e.Message)
}

func (e *Error) Unwrap() error {
	if e.coded == nil {
		return e.Underlying
	}
	return e.coded
}

// FieldErrors exposes per-field messages the authority returned, if any.
func (e *Error) FieldErrors() map[string]string {
	return e.Fields
}

// GetCategory extracts the category from err, or "" when err is not an authority error.
func GetCategory(err error) Category {
	var re *Error
	if errors.As(err, &re) {
		return re.Category
	}
	return ""
}

// IsRetryable reports whether err is worth retrying.
func IsRetryable(err error) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Retryable
	}
	return false
}

// ErrMissingCredential is the cause when no bearer token is available.
var ErrMissingCredential = errors.New("missing bearer credential")

// ErrCircuitOpen is the cause when the breaker refuses a call.
var ErrCircuitOpen = errors.New("circuit open")
