// Package service implements the authority side of KYC verification: the
// service of record for verification types and submissions.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"storefront/internal/kyc/models"
	"storefront/internal/verification/events"
	"storefront/internal/verification/store"
	dErrors "storefront/pkg/domain-errors"
	"storefront/pkg/platform/sentinel"
	"storefront/pkg/requestcontext"
)

// StoreTx runs read-modify-write sequences atomically.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(store store.Store) error) error
}

// Blobs persists document bytes and returns a fetchable URL.
type Blobs interface {
	Put(ctx context.Context, owner, name, contentType string, data []byte) (string, error)
}

// Publisher emits lifecycle events after a write commits.
type Publisher interface {
	Emit(ctx context.Context, event events.Event) error
}

// SubmissionInput is the decoded body of a create or update request.
type SubmissionInput struct {
	Variant     string
	Fields      map[string]string
	Attachments []models.Attachment
}

// ReviewInput is an administrator's decision on a submission.
type ReviewInput struct {
	Status models.Status `json:"status"`
	Notes  string        `json:"admin_notes"`
}

type Service struct {
	store   store.Store
	tx      StoreTx
	blobs   Blobs
	events  Publisher
	metrics *Metrics
	logger  *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

func WithEvents(p Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.events = p
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(st store.Store, tx StoreTx, blobs Blobs, opts ...Option) *Service {
	s := &Service{
		store:  st,
		tx:     tx,
		blobs:  blobs,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) ListTypes(ctx context.Context) (models.Catalog, error) {
	catalog, err := s.store.ListTypes(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification types")
	}
	return catalog, nil
}

// List returns the owner's submissions, newest first.
func (s *Service) List(ctx context.Context, owner string) ([]models.Submission, error) {
	if owner == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	subs, err := s.store.ListByOwner(ctx, owner)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list submissions")
	}
	return subs, nil
}

// Get returns one submission. Submissions owned by someone else are reported
// as missing.
func (s *Service) Get(ctx context.Context, owner, id string) (*models.Submission, error) {
	if owner == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	return s.owned(ctx, s.store, owner, id)
}

// Create validates and persists a new pending submission.
func (s *Service) Create(ctx context.Context, owner string, in SubmissionInput) (*models.Submission, error) {
	if owner == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	catalog, err := s.store.ListTypes(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification types")
	}
	if !catalog.Has(in.Variant) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "unknown verification type")
	}
	fields := knownFields(in.Variant, in.Fields)
	if err := validate(in.Variant, fields, in.Attachments, 0); err != nil {
		s.metrics.write("create", "invalid")
		return nil, err
	}

	// Fail fast before uploading; the transaction checks again.
	if active, err := s.store.ActiveForVariant(ctx, owner, in.Variant); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check existing submissions")
	} else if len(active) > 0 {
		s.metrics.write("create", "conflict")
		return nil, errDuplicate
	}

	docs, err := s.upload(ctx, owner, in.Attachments)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	sub := &models.Submission{
		ID:        uuid.NewString(),
		Owner:     owner,
		Variant:   in.Variant,
		Status:    models.StatusPending,
		Fields:    fields,
		Documents: docs,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.tx.RunInTx(ctx, func(st store.Store) error {
		active, err := st.ActiveForVariant(ctx, owner, in.Variant)
		if err != nil {
			return err
		}
		if len(active) > 0 {
			return sentinel.ErrConflict
		}
		return st.Save(ctx, sub)
	})
	if err != nil {
		s.metrics.write("create", outcome(err))
		return nil, translate(err, "failed to create submission")
	}

	s.metrics.write("create", "ok")
	s.logger.InfoContext(ctx, "kyc submission created",
		"submission_id", sub.ID,
		"kyc_type", sub.Variant,
		"user_id", owner,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, events.TypeSubmissionCreated, owner, sub)
	return sub, nil
}

// Update replaces the fields of a pending or rejected submission and appends
// any new documents. A rejected submission returns to pending.
func (s *Service) Update(ctx context.Context, owner, id string, in SubmissionInput) (*models.Submission, error) {
	if owner == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	current, err := s.owned(ctx, s.store, owner, id)
	if err != nil {
		return nil, err
	}
	if !current.Status.IsEditable() {
		s.metrics.write("update", "invalid_state")
		return nil, errNotEditable
	}
	fields := knownFields(current.Variant, in.Fields)
	if err := validate(current.Variant, fields, in.Attachments, len(current.Documents)); err != nil {
		s.metrics.write("update", "invalid")
		return nil, err
	}

	docs, err := s.upload(ctx, owner, in.Attachments)
	if err != nil {
		return nil, err
	}

	var updated *models.Submission
	err = s.tx.RunInTx(ctx, func(st store.Store) error {
		sub, err := s.owned(ctx, st, owner, id)
		if err != nil {
			return err
		}
		if !sub.Status.IsEditable() {
			return errNotEditable
		}
		if sub.Status == models.StatusRejected {
			active, err := st.ActiveForVariant(ctx, owner, sub.Variant)
			if err != nil {
				return err
			}
			if len(active) > 0 {
				return sentinel.ErrConflict
			}
			sub.Status = models.StatusPending
			sub.Reviewer = nil
			sub.ReviewedAt = nil
		}
		sub.Fields = fields
		sub.Documents = append(sub.Documents, docs...)
		sub.UpdatedAt = requestcontext.Now(ctx)
		if err := st.Save(ctx, sub); err != nil {
			return err
		}
		updated = sub
		return nil
	})
	if err != nil {
		s.metrics.write("update", outcome(err))
		return nil, translate(err, "failed to update submission")
	}

	s.metrics.write("update", "ok")
	s.logger.InfoContext(ctx, "kyc submission updated",
		"submission_id", updated.ID,
		"status", updated.Status,
		"user_id", owner,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, events.TypeSubmissionUpdated, owner, updated)
	return updated, nil
}

// Delete removes a pending or rejected submission.
func (s *Service) Delete(ctx context.Context, owner, id string) error {
	if owner == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	var deleted *models.Submission
	err := s.tx.RunInTx(ctx, func(st store.Store) error {
		sub, err := s.owned(ctx, st, owner, id)
		if err != nil {
			return err
		}
		if !sub.Status.IsEditable() {
			return errNotEditable
		}
		if err := st.Delete(ctx, id); err != nil {
			return err
		}
		deleted = sub
		return nil
	})
	if err != nil {
		s.metrics.write("delete", outcome(err))
		return translate(err, "failed to delete submission")
	}
	s.metrics.write("delete", "ok")
	s.emit(ctx, events.TypeSubmissionDeleted, owner, deleted)
	return nil
}

// Review records an administrator decision. Allowed decisions follow the
// status lifecycle; rejected submissions can only come back through the owner.
func (s *Service) Review(ctx context.Context, reviewer, id string, in ReviewInput) (*models.Submission, error) {
	if reviewer == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	switch in.Status {
	case models.StatusUnderReview, models.StatusApproved, models.StatusRejected:
	default:
		return nil, dErrors.New(dErrors.CodeBadRequest, "status must be one of under_review, approved, rejected")
	}
	if in.Status == models.StatusRejected && strings.TrimSpace(in.Notes) == "" {
		return nil, models.NewValidationError(map[string]string{"admin_notes": "a reason is required when rejecting"})
	}

	var reviewed *models.Submission
	err := s.tx.RunInTx(ctx, func(st store.Store) error {
		sub, err := st.Get(ctx, id)
		if err != nil {
			return err
		}
		if !sub.Status.CanTransitionTo(in.Status) {
			return dErrors.New(dErrors.CodeInvalidState,
				"cannot move a "+sub.Status.String()+" submission to "+in.Status.String())
		}
		now := requestcontext.Now(ctx)
		sub.Status = in.Status
		sub.Reviewer = &reviewer
		sub.ReviewedAt = &now
		sub.UpdatedAt = now
		if notes := strings.TrimSpace(in.Notes); notes != "" {
			sub.AdminNotes = &notes
		}
		if err := st.Save(ctx, sub); err != nil {
			return err
		}
		reviewed = sub
		return nil
	})
	if err != nil {
		s.metrics.write("review", outcome(err))
		return nil, translate(err, "failed to review submission")
	}

	s.metrics.write("review", "ok")
	s.metrics.decision(reviewed.Status)
	s.logger.InfoContext(ctx, "kyc submission reviewed",
		"submission_id", reviewed.ID,
		"status", reviewed.Status,
		"reviewer", reviewer,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, events.TypeSubmissionReviewed, reviewer, reviewed)
	return reviewed, nil
}

func (s *Service) owned(ctx context.Context, st store.Store, owner, id string) (*models.Submission, error) {
	sub, err := st.Get(ctx, id)
	if err != nil {
		return nil, translate(err, "failed to load submission")
	}
	if sub.Owner != owner {
		return nil, errNotFound
	}
	return sub, nil
}

func (s *Service) upload(ctx context.Context, owner string, attachments []models.Attachment) ([]models.Document, error) {
	docs := make([]models.Document, 0, len(attachments))
	for _, a := range attachments {
		url, err := s.blobs.Put(ctx, owner, a.Name, a.ContentType, a.Content)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to store document",
				"name", a.Name,
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to store document, please try again")
		}
		docs = append(docs, models.Document{
			ID:          uuid.NewString(),
			Name:        a.Name,
			ContentType: a.ContentType,
			Size:        a.Size,
			URL:         url,
		})
	}
	return docs, nil
}

func (s *Service) emit(ctx context.Context, t events.Type, actor string, sub *models.Submission) {
	if s.events == nil || sub == nil {
		return
	}
	event := events.FromSubmission(t, sub)
	event.ActorID = actor
	event.RequestID = requestcontext.RequestID(ctx)
	if err := s.events.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish submission event",
			"type", t,
			"submission_id", sub.ID,
			"error", err,
		)
	}
}

var (
	errNotFound    = dErrors.New(dErrors.CodeNotFound, "submission not found")
	errDuplicate   = dErrors.New(dErrors.CodeConflict, "you already have an active submission for this verification type")
	errNotEditable = dErrors.New(dErrors.CodeInvalidState, "only pending or rejected submissions can be changed")
)

// translate maps store sentinels to domain errors and leaves coded errors alone.
func translate(err error, msg string) error {
	if _, ok := dErrors.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return errNotFound
	case errors.Is(err, sentinel.ErrConflict):
		return errDuplicate
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}

func outcome(err error) string {
	code := dErrors.CodeOf(translate(err, ""))
	return string(code)
}

// knownFields keeps the trimmed values of fields the variant declares.
func knownFields(variant string, in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for name, value := range in {
		if models.HasField(variant, name) {
			out[name] = strings.TrimSpace(value)
		}
	}
	return out
}

// validate re-checks every file and the field set. retained counts documents
// already stored on the submission.
func validate(variant string, fields map[string]string, attachments []models.Attachment, retained int) error {
	if len(attachments) > models.MaxAttachments {
		return models.NewValidationError(map[string]string{"documents": models.TooManyAttachments})
	}
	for _, a := range attachments {
		if msg := models.CheckFile(a.Name, a.Size); msg != "" {
			return models.NewValidationError(map[string]string{"documents": a.Name + ": " + msg})
		}
	}
	if verr := models.ValidateFields(variant, fields, retained+len(attachments)); verr != nil {
		return verr
	}
	return nil
}
