package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	dErrors "storefront/pkg/domain-errors"
)

type fieldErr struct {
	err    *dErrors.Error
	fields map[string]string
}

func (f fieldErr) Error() string                  { return f.err.Error() }
func (f fieldErr) Unwrap() error                  { return f.err }
func (f fieldErr) FieldErrors() map[string]string { return f.fields }

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "internal_error" {
			t.Fatalf("expected error code internal_error, got %q", body["error"])
		}
		if _, ok := body["error_description"]; ok {
			t.Fatalf("expected error_description to be omitted for internal errors")
		}
	})

	t.Run("bad request includes description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid input"))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "bad_request" {
			t.Fatalf("expected error code bad_request, got %q", body["error"])
		}
		if body["error_description"] != "invalid input" {
			t.Fatalf("expected error_description to be returned for bad request")
		}
	})

	t.Run("validation error carries field errors", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, fieldErr{
			err:    dErrors.New(dErrors.CodeValidation, "form has errors"),
			fields: map[string]string{"full_name": "Full Name is required"},
		})

		if w.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected status %d, got %d", http.StatusUnprocessableEntity, w.Code)
		}
		var body ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body.FieldErrors["full_name"] == "" {
			t.Fatalf("expected full_name field error, got %v", body.FieldErrors)
		}
	})

	t.Run("unavailable is retryable and unauthorized asks for login", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeUnavailable, "authority unreachable"))
		var body ErrorResponse
		_ = json.NewDecoder(w.Body).Decode(&body)
		if w.Code != http.StatusServiceUnavailable || !body.Retryable {
			t.Fatalf("expected retryable 503, got %d %+v", w.Code, body)
		}

		w = httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing credential"))
		body = ErrorResponse{}
		_ = json.NewDecoder(w.Body).Decode(&body)
		if w.Code != http.StatusUnauthorized || !body.LoginRequired {
			t.Fatalf("expected login_required 401, got %d %+v", w.Code, body)
		}
	})
}
