// Package form is the SubmissionFormController: it walks one user through
// choosing a variant, filling its fields, staging files, validating and
// submitting.
package form

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"storefront/internal/kyc/liveness"
	"storefront/internal/kyc/models"
	dErrors "storefront/pkg/domain-errors"
	"storefront/pkg/platform/sentinel"
	"storefront/pkg/requestcontext"
)

// State is the controller's position in the workflow.
type State string

const (
	StateSelectingVariant State = "selecting_variant"
	StateFilling          State = "filling"
	StateValidating       State = "validating"
	StateSubmitting       State = "submitting"
	StateDone             State = "done"
)

// Repository persists submissions.
type Repository interface {
	Create(ctx context.Context, variant string, fields map[string]string, attachments []models.Attachment) (*models.Submission, error)
	Update(ctx context.Context, id string, fields map[string]string, attachments []models.Attachment) (*models.Submission, error)
}

// DoneFunc is called after a successful submit, outside the controller lock.
type DoneFunc func(ctx context.Context, sub *models.Submission)

var errClosed = dErrors.New(dErrors.CodeInvalidState, "the form was closed")

// Controller owns the field values and staged files of one form. It is safe
// for concurrent use, but a session is expected to drive it from one caller.
type Controller struct {
	repo    Repository
	catalog models.Catalog
	held    map[string]bool
	logger  *slog.Logger
	metrics *Metrics
	onDone  DoneFunc
	guard   liveness.Guard

	mu          sync.Mutex
	state       State
	variant     string
	editing     *models.Submission
	fields      map[string]string
	staged      []models.Attachment
	fieldErrors map[string]string
	formError   string
	result      *models.Submission
}

// Option configures a Controller.
type Option func(*Controller)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithOnDone registers the completion callback, typically a dashboard refresh.
func WithOnDone(fn DoneFunc) Option {
	return func(c *Controller) {
		c.onDone = fn
	}
}

// New builds a controller over the loaded catalog and the user's current
// submissions, which decide the variants still available.
func New(repo Repository, catalog models.Catalog, history []models.Submission, opts ...Option) *Controller {
	if catalog == nil {
		catalog = models.Catalog{}
	}
	c := &Controller{
		repo:        repo,
		catalog:     catalog,
		held:        models.HeldVariants(history),
		logger:      slog.Default(),
		state:       StateSelectingVariant,
		fields:      map[string]string{},
		fieldErrors: map[string]string{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// AvailableVariants returns the catalog entries the user may start, by key.
func (c *Controller) AvailableVariants() []models.VerificationType {
	out := make([]models.VerificationType, 0, len(c.catalog))
	for _, key := range c.catalog.Keys() {
		if !c.held[key] {
			out = append(out, c.catalog[key])
		}
	}
	return out
}

// Select starts a new submission for variant.
func (c *Controller) Select(variant string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireState(StateSelectingVariant); err != nil {
		return err
	}
	if !c.catalog.Has(variant) {
		return dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("unknown verification type %q", variant))
	}
	if c.held[variant] {
		return dErrors.New(dErrors.CodeConflict, fmt.Sprintf("you already have a %s submission", c.catalog[variant].Name))
	}
	c.variant = variant
	c.fields = map[string]string{}
	c.state = StateFilling
	return nil
}

// Edit reopens an existing submission. Only pending and rejected submissions
// are editable; anything else is refused before any network call.
func (c *Controller) Edit(sub *models.Submission) error {
	if sub == nil {
		return dErrors.New(dErrors.CodeBadRequest, "submission is required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireState(StateSelectingVariant); err != nil {
		return err
	}
	if !sub.Status.IsEditable() {
		return dErrors.New(dErrors.CodeInvalidState,
			fmt.Sprintf("a submission that is %s cannot be edited", sub.Status))
	}
	if !c.catalog.Has(sub.Variant) {
		return dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("verification type %q is not offered", sub.Variant))
	}
	c.editing = sub.Clone()
	c.variant = sub.Variant
	c.fields = make(map[string]string, len(sub.Fields))
	for k, v := range sub.Fields {
		c.fields[k] = v
	}
	c.state = StateFilling
	return nil
}

// Fields returns the ordered descriptors for the chosen variant.
func (c *Controller) Fields() []models.FieldDescriptor {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.variant == "" {
		return nil
	}
	return models.FieldsFor(c.variant)
}

// RequiredDocuments returns the document labels the chosen variant asks for.
func (c *Controller) RequiredDocuments() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.catalog[c.variant].RequiredDocuments...)
}

// SetField stores one value. Only fields rendered for the variant are accepted.
func (c *Controller) SetField(name, value string) error {
	return c.SetFields(map[string]string{name: value})
}

// SetFields stores several values; nothing is stored if any name is unknown.
func (c *Controller) SetFields(values map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireState(StateFilling); err != nil {
		return err
	}
	for name := range values {
		if !models.HasField(c.variant, name) {
			return dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("unknown field %q", name))
		}
	}
	for name, value := range values {
		c.fields[name] = value
		delete(c.fieldErrors, name)
	}
	return nil
}

// AddAttachment reads and stages a file. Oversized or unsupported files, and
// files beyond MaxAttachments, are refused with a validation error and never staged.
func (c *Controller) AddAttachment(name, contentType string, r io.Reader) (models.AttachmentInfo, error) {
	c.mu.Lock()
	if err := c.requireState(StateFilling); err != nil {
		c.mu.Unlock()
		return models.AttachmentInfo{}, err
	}
	if len(c.staged) >= models.MaxAttachments {
		c.mu.Unlock()
		return models.AttachmentInfo{}, tooManyAttachments()
	}
	c.mu.Unlock()

	a, err := models.NewAttachment(name, contentType, r)
	if err != nil {
		return models.AttachmentInfo{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireState(StateFilling); err != nil {
		return models.AttachmentInfo{}, err
	}
	if len(c.staged) >= models.MaxAttachments {
		return models.AttachmentInfo{}, tooManyAttachments()
	}
	c.staged = append(c.staged, a)
	delete(c.fieldErrors, "documents")
	return a.Info(), nil
}

func tooManyAttachments() error {
	return models.NewValidationError(map[string]string{"documents": models.TooManyAttachments})
}

// RemoveAttachment unstages the file at index.
func (c *Controller) RemoveAttachment(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireState(StateFilling); err != nil {
		return err
	}
	if index < 0 || index >= len(c.staged) {
		return dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("no staged file at position %d", index))
	}
	staged := make([]models.Attachment, 0, len(c.staged)-1)
	staged = append(staged, c.staged[:index]...)
	c.staged = append(staged, c.staged[index+1:]...)
	return nil
}

// Validate checks the form without submitting. The state stays filling.
func (c *Controller) Validate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireState(StateFilling); err != nil {
		return err
	}
	c.state = StateValidating
	verr := c.validateLocked()
	c.state = StateFilling
	if verr != nil {
		return verr
	}
	return nil
}

// Submit validates and then creates or updates the submission. On failure the
// form returns to filling with every value and staged file kept.
func (c *Controller) Submit(ctx context.Context) (*models.Submission, error) {
	c.mu.Lock()
	if err := c.requireState(StateFilling); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.state = StateValidating
	if verr := c.validateLocked(); verr != nil {
		c.state = StateFilling
		c.mu.Unlock()
		c.metrics.submission("validation_failed")
		return nil, verr
	}
	c.state = StateSubmitting
	c.formError = ""
	ticket := c.guard.Begin()
	variant := c.variant
	fields := copyFields(c.fields)
	staged := append([]models.Attachment(nil), c.staged...)
	var editingID string
	if c.editing != nil {
		editingID = c.editing.ID
	}
	c.mu.Unlock()

	var (
		sub *models.Submission
		err error
	)
	if editingID != "" {
		sub, err = c.repo.Update(ctx, editingID, fields, staged)
	} else {
		sub, err = c.repo.Create(ctx, variant, fields, staged)
	}

	c.mu.Lock()
	if !c.guard.Current(ticket) {
		c.mu.Unlock()
		c.logger.InfoContext(ctx, "discarding submit result for closed form",
			"variant", variant,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, dErrors.Wrap(sentinel.ErrStale, dErrors.CodeInvalidState, "the form was closed before the submission finished")
	}
	if err != nil {
		c.state = StateFilling
		c.formError = dErrors.MessageOf(err)
		if c.formError == "" {
			c.formError = "submission failed, please try again"
		}
		c.mu.Unlock()
		c.metrics.submission("failed")
		c.logger.WarnContext(ctx, "kyc submission failed",
			"variant", variant,
			"editing", editingID != "",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, err
	}
	c.state = StateDone
	c.result = sub
	c.staged = nil
	c.mu.Unlock()

	if editingID != "" {
		c.metrics.submission("updated")
	} else {
		c.metrics.submission("created")
	}
	c.logger.InfoContext(ctx, "kyc submission accepted",
		"variant", variant,
		"submission_id", sub.ID,
		"status", sub.Status,
		"request_id", requestcontext.RequestID(ctx),
	)
	if c.onDone != nil {
		c.onDone(ctx, sub)
	}
	return sub, nil
}

// Close unmounts the form. A submit still in flight has its result discarded.
func (c *Controller) Close() {
	c.guard.Close()
}

// Closed reports whether the form was unmounted.
func (c *Controller) Closed() bool {
	return c.guard.Closed()
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot is a point-in-time copy of the form for rendering.
type Snapshot struct {
	State             State                    `json:"state"`
	Variant           string                   `json:"variant,omitempty"`
	EditingID         string                   `json:"editing_id,omitempty"`
	Fields            map[string]string        `json:"fields"`
	FieldErrors       map[string]string        `json:"field_errors,omitempty"`
	FormError         string                   `json:"form_error,omitempty"`
	Attachments       []models.AttachmentInfo  `json:"attachments"`
	RetainedDocuments []models.Document        `json:"retained_documents,omitempty"`
	Descriptors       []models.FieldDescriptor `json:"descriptors,omitempty"`
	RequiredDocuments []string                 `json:"required_documents,omitempty"`
	Result            *models.Submission       `json:"result,omitempty"`
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{
		State:       c.state,
		Variant:     c.variant,
		Fields:      copyFields(c.fields),
		FieldErrors: copyFields(c.fieldErrors),
		FormError:   c.formError,
		Attachments: make([]models.AttachmentInfo, 0, len(c.staged)),
		Result:      c.result.Clone(),
	}
	for _, a := range c.staged {
		snap.Attachments = append(snap.Attachments, a.Info())
	}
	if c.editing != nil {
		snap.EditingID = c.editing.ID
		snap.RetainedDocuments = append([]models.Document(nil), c.editing.Documents...)
	}
	if c.variant != "" {
		snap.Descriptors = models.FieldsFor(c.variant)
		snap.RequiredDocuments = append([]string(nil), c.catalog[c.variant].RequiredDocuments...)
	}
	return snap
}

func (c *Controller) requireState(want State) error {
	if c.guard.Closed() {
		return errClosed
	}
	if c.state != want {
		return dErrors.New(dErrors.CodeInvalidState, fmt.Sprintf("form is %s, expected %s", c.state, want))
	}
	return nil
}

// validateLocked runs with c.mu held.
func (c *Controller) validateLocked() *models.ValidationError {
	attachments := len(c.staged)
	if c.editing != nil {
		attachments += len(c.editing.Documents)
	}
	verr := models.ValidateFields(c.variant, c.fields, attachments)
	if verr == nil {
		c.fieldErrors = map[string]string{}
		return nil
	}
	c.fieldErrors = verr.FieldErrors()
	return verr
}

func copyFields(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
