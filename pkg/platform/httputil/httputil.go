// Package httputil holds the JSON response helpers shared by every HTTP surface.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "storefront/pkg/domain-errors"
)

// FieldErrorer is implemented by validation errors that carry per-field messages.
type FieldErrorer interface {
	FieldErrors() map[string]string
}

// ErrorResponse is the error envelope written by WriteError.
type ErrorResponse struct {
	Error            string            `json:"error"`
	ErrorDescription string            `json:"error_description,omitempty"`
	FieldErrors      map[string]string `json:"field_errors,omitempty"`
	Retryable        bool              `json:"retryable,omitempty"`
	LoginRequired    bool              `json:"login_required,omitempty"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates err into a status and error envelope. Internal errors
// never leak their description.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	resp := ErrorResponse{Error: string(code)}
	if code != dErrors.CodeInternal {
		resp.ErrorDescription = dErrors.MessageOf(err)
	}

	var fe FieldErrorer
	if errors.As(err, &fe) {
		resp.FieldErrors = fe.FieldErrors()
	}
	switch code {
	case dErrors.CodeUnavailable, dErrors.CodeTimeout:
		resp.Retryable = true
	case dErrors.CodeUnauthorized:
		resp.LoginRequired = true
	}

	WriteJSON(w, StatusFor(code), resp)
}

// StatusFor maps an error code to an HTTP status.
func StatusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeValidation:
		return http.StatusUnprocessableEntity
	case dErrors.CodeBadRequest, dErrors.CodeInvalidInput, dErrors.CodeInvariantViolation:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict, dErrors.CodeInvalidState:
		return http.StatusConflict
	case dErrors.CodeUnavailable:
		return http.StatusServiceUnavailable
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// DecodeJSON decodes the request body into v, rejecting unknown fields.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body")
	}
	return nil
}
