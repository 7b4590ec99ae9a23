package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/kyc/models"
	dErrors "storefront/pkg/domain-errors"
	"storefront/pkg/platform/circuit"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) (*Client, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	opts = append([]Option{WithMetrics(NewMetricsWithRegisterer(prometheus.NewRegistry()))}, opts...)
	return New(srv.URL, opts...), &calls
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_ListTypes(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/kyc-types", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, models.DefaultCatalog())
	})

	catalog, err := client.ListTypes(context.Background(), "tok")
	require.NoError(t, err)
	assert.Len(t, catalog, 5)
	assert.Equal(t, "Vendor Verification", catalog[models.VariantVendor].Name)
}

func TestClient_MissingCredentialMakesNoCall(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []models.Submission{})
	})

	_, err := client.ListSubmissions(context.Background(), "")
	require.Error(t, err)
	assert.True(t, IsAuthError(err))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.ErrorIs(t, err, ErrMissingCredential)
	assert.Equal(t, int32(0), calls.Load())
}

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     any
		category Category
		code     dErrors.Code
		message  string
	}{
		{"unauthorized", http.StatusUnauthorized, map[string]string{"error": "unauthorized"}, CategoryAuthentication, dErrors.CodeUnauthorized, "Unauthorized"},
		{"not found", http.StatusNotFound, map[string]string{"error": "not_found", "error_description": "submission not found"}, CategoryNotFound, dErrors.CodeNotFound, "submission not found"},
		{"duplicate", http.StatusConflict, map[string]string{"error": "conflict", "error_description": "a vendor submission is already in progress"}, CategoryRejected, dErrors.CodeConflict, "a vendor submission is already in progress"},
		{"invalid", http.StatusUnprocessableEntity, map[string]any{"error": "validation_error", "error_description": "bad fields", "field_errors": map[string]string{"email": "invalid"}}, CategoryRejected, dErrors.CodeBadRequest, "bad fields"},
		{"server error", http.StatusBadGateway, nil, CategoryNetwork, dErrors.CodeUnavailable, "verification service error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})

			_, err := client.GetSubmission(context.Background(), "tok", "42")
			require.Error(t, err)
			assert.Equal(t, tt.category, GetCategory(err))
			assert.Equal(t, tt.code, dErrors.CodeOf(err))
			assert.Equal(t, tt.message, dErrors.MessageOf(err))
			assert.Equal(t, tt.category == CategoryNetwork, IsRetryable(err))
		})
	}
}

func TestClient_ServerFieldErrorsAreCarried(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":        "validation_error",
			"field_errors": map[string]string{"email": "enter a valid email address"},
		})
	})

	_, err := client.CreateSubmission(context.Background(), "tok", "identity", nil, nil)
	var re *Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "enter a valid email address", re.FieldErrors()["email"])
}

func TestClient_TransportFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()
	client := New(srv.URL)

	_, err := client.ListSubmissions(context.Background(), "tok")
	require.Error(t, err)
	assert.True(t, IsNetworkError(err))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func TestClient_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	breaker := circuit.New("test", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}, WithBreaker(breaker))

	for range 2 {
		_, err := client.ListSubmissions(context.Background(), "tok")
		require.Error(t, err)
	}
	assert.True(t, breaker.IsOpen())

	_, err := client.ListSubmissions(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_CreateEncodesMultipart(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/kyc-documents", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, "vehicle", r.FormValue("kyc_type"))
		assert.Equal(t, "Toyota", r.FormValue("vehicle_make"))
		assert.Equal(t, "Jane Doe", r.FormValue("full_name"))

		f, hdr, err := r.FormFile("documents[0]")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "title.pdf", hdr.Filename)
		assert.Equal(t, "application/pdf", hdr.Header.Get("Content-Type"))
		assert.Equal(t, "%PDF", string(data))

		_, _, err = r.FormFile("documents[1]")
		require.NoError(t, err)

		writeJSON(w, http.StatusCreated, models.Submission{ID: "s-1", Variant: "vehicle", Status: models.StatusPending})
	})

	sub, err := client.CreateSubmission(context.Background(), "tok", "vehicle",
		map[string]string{"full_name": "Jane Doe", "vehicle_make": "Toyota"},
		[]models.Attachment{
			{Name: "title.pdf", ContentType: "application/pdf", Content: []byte("%PDF")},
			{Name: "photo.png", Content: []byte("png")},
		})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, sub.Status)
}

func TestClient_UpdateAndDelete(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/kyc-documents/42", r.URL.Path)
		switch r.Method {
		case http.MethodPut:
			require.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Empty(t, r.FormValue("kyc_type"))
			assert.Equal(t, "land", r.FormValue("property_type"))
			writeJSON(w, http.StatusOK, models.Submission{ID: "42", Status: models.StatusPending})
		case http.MethodDelete:
			writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
		default:
			t.Fatalf("unexpected method %s", r.Method)
		}
	})

	sub, err := client.UpdateSubmission(context.Background(), "tok", "42", map[string]string{"property_type": "land"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "42", sub.ID)

	require.NoError(t, client.DeleteSubmission(context.Background(), "tok", "42"))
}

func TestClient_MalformedResponse(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{not json"))
	})

	_, err := client.ListSubmissions(context.Background(), "tok")
	assert.Equal(t, CategoryBadData, GetCategory(err))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}
