// Package dashboard composes the catalog, the user's submissions and the
// status presenter into the KYC dashboard view, and launches forms from it.
package dashboard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"storefront/internal/kyc/form"
	"storefront/internal/kyc/liveness"
	"storefront/internal/kyc/models"
	"storefront/internal/kyc/status"
	dErrors "storefront/pkg/domain-errors"
	"storefront/pkg/platform/sentinel"
	"storefront/pkg/requestcontext"
)

// EmptyCatalogMessage is shown when no verification type can be offered.
const EmptyCatalogMessage = "No verification types are available right now."

// Row actions.
const (
	ActionView = "view"
	ActionEdit = "edit"
)

// CatalogLoader is the TypeCatalog.
type CatalogLoader interface {
	Load(ctx context.Context, token string) models.Catalog
}

// Repository is the SubmissionRepository bound to the dashboard's user.
type Repository interface {
	form.Repository
	List(ctx context.Context) ([]models.Submission, error)
	Get(ctx context.Context, id string) (*models.Submission, error)
	SetToken(token string)
}

// Formatter renders timestamps for the user's locale.
type Formatter func(time.Time) string

// Counts are the per-status totals over the user's submissions.
type Counts struct {
	Pending     int `json:"pending"`
	UnderReview int `json:"under_review"`
	Approved    int `json:"approved"`
	Rejected    int `json:"rejected"`
	Total       int `json:"total"`
}

// Card is one variant the user can still start.
type Card struct {
	Key               string   `json:"key"`
	Name              string   `json:"name"`
	Icon              string   `json:"icon,omitempty"`
	Color             string   `json:"color,omitempty"`
	Description       string   `json:"description,omitempty"`
	RequiredDocuments []string `json:"required_documents"`
}

// Row is one submission in the history list.
type Row struct {
	ID          string      `json:"id"`
	Variant     string      `json:"variant"`
	VariantName string      `json:"variant_name"`
	Status      status.Chip `json:"status"`
	AdminNotes  string      `json:"admin_notes,omitempty"`
	SubmittedAt string      `json:"submitted_at"`
	Actions     []string    `json:"actions"`
}

// View is the rendered dashboard.
type View struct {
	Counts       Counts `json:"counts"`
	Cards        []Card `json:"cards"`
	Rows         []Row  `json:"rows"`
	EmptyMessage string `json:"empty_message,omitempty"`
}

// Dashboard belongs to one user session.
type Dashboard struct {
	catalog  CatalogLoader
	repo     Repository
	logger   *slog.Logger
	format   Formatter
	formOpts []form.Option
	guard    liveness.Guard

	mu          sync.Mutex
	token       string
	lastCatalog models.Catalog
	lastHistory []models.Submission
	lastView    *View
}

// Option configures a Dashboard.
type Option func(*Dashboard)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dashboard) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithFormatter sets the timestamp formatter for rows.
func WithFormatter(f Formatter) Option {
	return func(d *Dashboard) {
		if f != nil {
			d.format = f
		}
	}
}

// WithFormOptions passes options to every form the dashboard opens.
func WithFormOptions(opts ...form.Option) Option {
	return func(d *Dashboard) {
		d.formOpts = append(d.formOpts, opts...)
	}
}

func New(catalog CatalogLoader, repo Repository, token string, opts ...Option) *Dashboard {
	d := &Dashboard{
		catalog: catalog,
		repo:    repo,
		token:   token,
		logger:  slog.Default(),
		format:  func(t time.Time) string { return t.Format("Jan 2, 2006") },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// SetToken replaces the credential used for later loads.
func (d *Dashboard) SetToken(token string) {
	d.mu.Lock()
	d.token = token
	d.mu.Unlock()
	d.repo.SetToken(token)
}

// Load fetches the catalog and the submission list concurrently and builds the
// view. Catalog failures degrade to zero cards; list failures are returned.
func (d *Dashboard) Load(ctx context.Context) (*View, error) {
	ticket := d.guard.Begin()
	d.mu.Lock()
	token := d.token
	d.mu.Unlock()

	var (
		catalog models.Catalog
		history []models.Submission
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		catalog = d.catalog.Load(gctx, token)
		return nil
	})
	g.Go(func() error {
		subs, err := d.repo.List(gctx)
		if err != nil {
			return err
		}
		history = subs
		return nil
	})
	err := g.Wait()

	if !d.guard.Current(ticket) {
		return nil, dErrors.Wrap(sentinel.ErrStale, dErrors.CodeInvalidState, "the dashboard was closed")
	}
	if err != nil {
		d.logger.WarnContext(ctx, "kyc dashboard load failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, err
	}

	view := d.build(catalog, history)
	d.mu.Lock()
	d.lastCatalog = catalog
	d.lastHistory = history
	d.lastView = view
	d.mu.Unlock()
	return view, nil
}

// Refresh reloads the view.
func (d *Dashboard) Refresh(ctx context.Context) (*View, error) {
	return d.Load(ctx)
}

// Last returns the most recently loaded view, if any.
func (d *Dashboard) Last() (*View, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastView, d.lastView != nil
}

// Close unmounts the dashboard. Loads finishing afterwards are discarded.
func (d *Dashboard) Close() {
	d.guard.Close()
}

// OpenForm launches a form over the loaded catalog and history. A successful
// submit refreshes the dashboard.
func (d *Dashboard) OpenForm(ctx context.Context) (*form.Controller, error) {
	catalog, history, err := d.loaded(ctx)
	if err != nil {
		return nil, err
	}
	return form.New(d.repo, catalog, history, d.formOptions()...), nil
}

// OpenEditForm launches a form editing submission id. The status gate runs on
// the known history before anything is fetched.
func (d *Dashboard) OpenEditForm(ctx context.Context, id string) (*form.Controller, error) {
	catalog, history, err := d.loaded(ctx)
	if err != nil {
		return nil, err
	}

	var sub *models.Submission
	for i := range history {
		if history[i].ID == id {
			sub = history[i].Clone()
			break
		}
	}
	if sub != nil && !sub.Status.IsEditable() {
		return nil, dErrors.New(dErrors.CodeInvalidState, "a submission that is "+string(sub.Status)+" cannot be edited")
	}
	if sub == nil {
		sub, err = d.repo.Get(ctx, id)
		if err != nil {
			return nil, err
		}
	}

	c := form.New(d.repo, catalog, history, d.formOptions()...)
	if err := c.Edit(sub); err != nil {
		return nil, err
	}
	return c, nil
}

func (d *Dashboard) formOptions() []form.Option {
	opts := append([]form.Option(nil), d.formOpts...)
	return append(opts, form.WithOnDone(func(ctx context.Context, _ *models.Submission) {
		if _, err := d.Refresh(context.WithoutCancel(ctx)); err != nil {
			d.logger.WarnContext(ctx, "kyc dashboard refresh after submit failed", "error", err)
		}
	}))
}

func (d *Dashboard) loaded(ctx context.Context) (models.Catalog, []models.Submission, error) {
	d.mu.Lock()
	catalog, history, ok := d.lastCatalog, d.lastHistory, d.lastView != nil
	d.mu.Unlock()
	if ok {
		return catalog, history, nil
	}
	if _, err := d.Load(ctx); err != nil {
		return nil, nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastCatalog, d.lastHistory, nil
}

func (d *Dashboard) build(catalog models.Catalog, history []models.Submission) *View {
	view := &View{
		Counts: CountByStatus(history),
		Cards:  []Card{},
		Rows:   make([]Row, 0, len(history)),
	}

	held := models.HeldVariants(history)
	for _, key := range catalog.Keys() {
		if held[key] {
			continue
		}
		t := catalog[key]
		view.Cards = append(view.Cards, Card{
			Key:               key,
			Name:              t.Name,
			Icon:              t.Icon,
			Color:             t.Color,
			Description:       t.Description,
			RequiredDocuments: append([]string{}, t.RequiredDocuments...),
		})
	}
	if len(catalog) == 0 {
		view.EmptyMessage = EmptyCatalogMessage
	}

	for _, s := range history {
		name := s.Variant
		if t, ok := catalog[s.Variant]; ok {
			name = t.Name
		}
		row := Row{
			ID:          s.ID,
			Variant:     s.Variant,
			VariantName: name,
			Status:      status.ChipFor(s.Status),
			SubmittedAt: d.format(s.CreatedAt),
			Actions:     []string{ActionView},
		}
		if s.AdminNotes != nil {
			row.AdminNotes = *s.AdminNotes
		}
		if s.Status.IsEditable() {
			row.Actions = append(row.Actions, ActionEdit)
		}
		view.Rows = append(view.Rows, row)
	}
	return view
}

// CountByStatus tallies submissions per status. Unknown statuses only count toward the total.
func CountByStatus(subs []models.Submission) Counts {
	c := Counts{Total: len(subs)}
	for _, s := range subs {
		switch s.Status {
		case models.StatusPending:
			c.Pending++
		case models.StatusUnderReview:
			c.UnderReview++
		case models.StatusApproved:
			c.Approved++
		case models.StatusRejected:
			c.Rejected++
		}
	}
	return c
}
