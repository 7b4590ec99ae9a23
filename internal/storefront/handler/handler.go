// Package handler is the storefront's KYC HTTP surface. It keeps one workflow
// session per signed-in user and returns JSON view models.
package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"storefront/internal/kyc/form"
	"storefront/internal/kyc/models"
	dErrors "storefront/pkg/domain-errors"
	"storefront/pkg/platform/httputil"
	"storefront/pkg/platform/middleware/auth"
	"storefront/pkg/requestcontext"
)

// maxUploadBytes leaves room for multipart framing around one document.
const maxUploadBytes = models.MaxAttachmentSize + 1<<20

var errNoForm = dErrors.New(dErrors.CodeNotFound, "no verification form is open")

// FormView is the form snapshot plus the variants that can still be chosen.
type FormView struct {
	form.Snapshot
	Available []models.VerificationType `json:"available"`
}

type selectRequest struct {
	Variant string `json:"variant"`
}

type fieldsRequest struct {
	Fields map[string]string `json:"fields"`
}

// Handler serves the storefront KYC routes.
type Handler struct {
	sessions     *Sessions
	logger       *slog.Logger
	jwtValidator auth.JWTValidator
}

func New(sessions *Sessions, logger *slog.Logger, jwtValidator auth.JWTValidator) *Handler {
	return &Handler{
		sessions:     sessions,
		logger:       logger,
		jwtValidator: jwtValidator,
	}
}

// Register registers the storefront routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/kyc", func(r chi.Router) {
		r.Use(auth.RequireAuth(h.jwtValidator, h.logger))

		r.Get("/dashboard", h.handleDashboard)
		r.Delete("/submissions/{id}", h.handleDeleteSubmission)

		r.Post("/form", h.handleOpenForm)
		r.Post("/form/edit/{id}", h.handleOpenEditForm)
		r.Get("/form", h.handleGetForm)
		r.Delete("/form", h.handleCloseForm)
		r.Put("/form/fields", h.handleSetFields)
		r.Post("/form/attachments", h.handleAddAttachment)
		r.Delete("/form/attachments/{index}", h.handleRemoveAttachment)
		r.Post("/form/submit", h.handleSubmit)
	})
}

// session resolves the caller's session and locks it.
func (h *Handler) session(r *http.Request) *session {
	ctx := r.Context()
	return h.sessions.acquire(requestcontext.UserID(ctx), requestcontext.BearerToken(ctx), requestcontext.Now(ctx))
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sess := h.session(r)
	defer sess.mu.Unlock()

	// A dashboard visit always shows the authority's current review state.
	sess.repo.Invalidate()
	view, err := sess.dash.Load(r.Context())
	if err != nil {
		h.fail(r, w, "failed to load kyc dashboard", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handleDeleteSubmission(w http.ResponseWriter, r *http.Request) {
	sess := h.session(r)
	defer sess.mu.Unlock()

	if err := sess.repo.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(r, w, "failed to delete kyc submission", err)
		return
	}
	view, err := sess.dash.Refresh(r.Context())
	if err != nil {
		h.fail(r, w, "failed to refresh kyc dashboard", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handleOpenForm(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(r, w, "invalid open form request", err)
		return
	}

	sess := h.session(r)
	defer sess.mu.Unlock()

	sess.closeForm()
	f, err := sess.dash.OpenForm(r.Context())
	if err != nil {
		h.fail(r, w, "failed to open kyc form", err)
		return
	}
	if req.Variant != "" {
		if err := f.Select(req.Variant); err != nil {
			f.Close()
			h.fail(r, w, "failed to select kyc variant", err)
			return
		}
	}
	sess.form = f
	httputil.WriteJSON(w, http.StatusCreated, formView(f))
}

func (h *Handler) handleOpenEditForm(w http.ResponseWriter, r *http.Request) {
	sess := h.session(r)
	defer sess.mu.Unlock()

	sess.closeForm()
	f, err := sess.dash.OpenEditForm(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(r, w, "failed to open kyc edit form", err)
		return
	}
	sess.form = f
	httputil.WriteJSON(w, http.StatusCreated, formView(f))
}

func (h *Handler) handleGetForm(w http.ResponseWriter, r *http.Request) {
	sess := h.session(r)
	defer sess.mu.Unlock()

	if sess.form == nil {
		h.fail(r, w, "no kyc form open", errNoForm)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, formView(sess.form))
}

func (h *Handler) handleCloseForm(w http.ResponseWriter, r *http.Request) {
	sess := h.session(r)
	defer sess.mu.Unlock()

	sess.closeForm()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSetFields(w http.ResponseWriter, r *http.Request) {
	var req fieldsRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(r, w, "invalid set fields request", err)
		return
	}

	sess := h.session(r)
	defer sess.mu.Unlock()

	if sess.form == nil {
		h.fail(r, w, "no kyc form open", errNoForm)
		return
	}
	if err := sess.form.SetFields(req.Fields); err != nil {
		h.fail(r, w, "failed to set kyc fields", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, formView(sess.form))
}

func (h *Handler) handleAddAttachment(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.fail(r, w, "kyc attachment too large", models.NewValidationError(map[string]string{
				"documents": models.ErrFileTooLarge.Error(),
			}))
			return
		}
		h.fail(r, w, "invalid attachment upload", dErrors.Wrap(err, dErrors.CodeBadRequest, "expected a multipart \"file\" part"))
		return
	}
	defer file.Close()

	sess := h.session(r)
	defer sess.mu.Unlock()

	if sess.form == nil {
		h.fail(r, w, "no kyc form open", errNoForm)
		return
	}
	if _, err := sess.form.AddAttachment(header.Filename, header.Header.Get("Content-Type"), file); err != nil {
		h.fail(r, w, "kyc attachment refused", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, formView(sess.form))
}

func (h *Handler) handleRemoveAttachment(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		h.fail(r, w, "invalid attachment index", dErrors.New(dErrors.CodeBadRequest, "attachment index must be a number"))
		return
	}

	sess := h.session(r)
	defer sess.mu.Unlock()

	if sess.form == nil {
		h.fail(r, w, "no kyc form open", errNoForm)
		return
	}
	if err := sess.form.RemoveAttachment(index); err != nil {
		h.fail(r, w, "failed to remove kyc attachment", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, formView(sess.form))
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess := h.session(r)
	defer sess.mu.Unlock()

	if sess.form == nil {
		h.fail(r, w, "no kyc form open", errNoForm)
		return
	}
	if _, err := sess.form.Submit(r.Context()); err != nil {
		h.fail(r, w, "kyc submission failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, formView(sess.form))
}

func formView(f *form.Controller) FormView {
	return FormView{Snapshot: f.Snapshot(), Available: f.AvailableVariants()}
}

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

