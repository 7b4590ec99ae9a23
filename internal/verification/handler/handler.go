package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"storefront/internal/kyc/models"
	"storefront/internal/verification/service"
	dErrors "storefront/pkg/domain-errors"
	"storefront/pkg/platform/httputil"
	"storefront/pkg/platform/middleware/admin"
	"storefront/pkg/platform/middleware/auth"
	"storefront/pkg/requestcontext"
)

// Service defines the verification operations the handler exposes.
type Service interface {
	ListTypes(ctx context.Context) (models.Catalog, error)
	List(ctx context.Context, owner string) ([]models.Submission, error)
	Get(ctx context.Context, owner, id string) (*models.Submission, error)
	Create(ctx context.Context, owner string, in service.SubmissionInput) (*models.Submission, error)
	Update(ctx context.Context, owner, id string, in service.SubmissionInput) (*models.Submission, error)
	Delete(ctx context.Context, owner, id string) error
	Review(ctx context.Context, reviewer, id string, in service.ReviewInput) (*models.Submission, error)
}

// Handler serves the verification authority API.
type Handler struct {
	service      Service
	logger       *slog.Logger
	jwtValidator auth.JWTValidator
}

func New(svc Service, logger *slog.Logger, jwtValidator auth.JWTValidator) *Handler {
	return &Handler{
		service:      svc,
		logger:       logger,
		jwtValidator: jwtValidator,
	}
}

// Register registers the authority routes. Every route requires a bearer
// credential; review additionally requires the admin role.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(h.jwtValidator, h.logger))

		r.Get("/kyc-types", h.handleListTypes)
		r.Get("/kyc-documents", h.handleList)
		r.Post("/kyc-documents", h.handleCreate)
		r.Get("/kyc-documents/{id}", h.handleGet)
		r.Put("/kyc-documents/{id}", h.handleUpdate)
		r.Delete("/kyc-documents/{id}", h.handleDelete)

		r.With(admin.RequireAdmin(h.logger)).Post("/admin/kyc-documents/{id}/review", h.handleReview)
	})
}

func (h *Handler) handleListTypes(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.service.ListTypes(r.Context())
	if err != nil {
		h.fail(r, w, "failed to list verification types", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, catalog)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	subs, err := h.service.List(r.Context(), requestcontext.UserID(r.Context()))
	if err != nil {
		h.fail(r, w, "failed to list submissions", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, subs)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	sub, err := h.service.Get(r.Context(), requestcontext.UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(r, w, "failed to get submission", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sub)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	in, err := decodeSubmission(w, r)
	if err != nil {
		h.fail(r, w, "invalid submission body", err)
		return
	}
	sub, err := h.service.Create(r.Context(), requestcontext.UserID(r.Context()), in)
	if err != nil {
		h.fail(r, w, "failed to create submission", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, sub)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	in, err := decodeSubmission(w, r)
	if err != nil {
		h.fail(r, w, "invalid submission body", err)
		return
	}
	sub, err := h.service.Update(r.Context(), requestcontext.UserID(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(r, w, "failed to update submission", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sub)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), requestcontext.UserID(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.fail(r, w, "failed to delete submission", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *Handler) handleReview(w http.ResponseWriter, r *http.Request) {
	var in service.ReviewInput
	if err := httputil.DecodeJSON(r, &in); err != nil {
		h.fail(r, w, "invalid review body", err)
		return
	}
	sub, err := h.service.Review(r.Context(), requestcontext.UserID(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(r, w, "failed to review submission", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sub)
}

// fail logs at a level that matches the error class and writes the envelope.
func (h *Handler) fail(r *http.Request, w http.ResponseWriter, msg string, err error) {
	ctx := r.Context()
	attrs := []any{
		"error", err,
		"user_id", requestcontext.UserID(ctx),
		"request_id", requestcontext.RequestID(ctx),
	}
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, attrs...)
	} else {
		h.logger.WarnContext(ctx, msg, attrs...)
	}
	httputil.WriteError(w, err)
}
