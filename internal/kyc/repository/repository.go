// Package repository is the SubmissionRepository: the storefront's view of one
// user's submissions held by the verification authority.
package repository

import (
	"context"
	"log/slog"
	"sync"

	"storefront/internal/kyc/models"
	"storefront/pkg/requestcontext"
)

// Authority is the subset of the authority client the repository needs.
type Authority interface {
	ListSubmissions(ctx context.Context, token string) ([]models.Submission, error)
	GetSubmission(ctx context.Context, token, id string) (*models.Submission, error)
	CreateSubmission(ctx context.Context, token, variant string, fields map[string]string, attachments []models.Attachment) (*models.Submission, error)
	UpdateSubmission(ctx context.Context, token, id string, fields map[string]string, attachments []models.Attachment) (*models.Submission, error)
	DeleteSubmission(ctx context.Context, token, id string) error
}

// Repository is bound to one user's credential. The cached list is shared
// read-only with callers and is replaced, never modified, on writes.
type Repository struct {
	authority Authority
	logger    *slog.Logger

	mu     sync.RWMutex
	token  string
	cached []models.Submission
	// generation advances on every invalidation. A fetch started under an
	// older generation is returned to its caller but not cached.
	generation uint64
}

// Option configures a Repository.
type Option func(*Repository)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Repository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func New(authority Authority, token string, opts ...Option) *Repository {
	r := &Repository{
		authority: authority,
		token:     token,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// SetToken replaces the credential, e.g. after the user's token was refreshed.
func (r *Repository) SetToken(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.token = token
}

func (r *Repository) credential() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.token
}

// List returns the user's submissions, newest first as served. Errors are
// always returned so callers can tell an empty history from a failed fetch.
func (r *Repository) List(ctx context.Context) ([]models.Submission, error) {
	r.mu.RLock()
	cached, gen, token := r.cached, r.generation, r.token
	r.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	subs, err := r.authority.ListSubmissions(ctx, token)
	if err != nil {
		return nil, err
	}
	if subs == nil {
		subs = []models.Submission{}
	}

	r.mu.Lock()
	if r.generation == gen {
		r.cached = subs
	}
	r.mu.Unlock()
	return subs, nil
}

// Cached returns the last fetched list without calling the authority. ok is
// false when nothing has been fetched since the last invalidation.
func (r *Repository) Cached() ([]models.Submission, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cached, r.cached != nil
}

// Get fetches one submission.
func (r *Repository) Get(ctx context.Context, id string) (*models.Submission, error) {
	return r.authority.GetSubmission(ctx, r.credential(), id)
}

// Create persists a new submission. The authority always answers with status pending.
func (r *Repository) Create(ctx context.Context, variant string, fields map[string]string, attachments []models.Attachment) (*models.Submission, error) {
	sub, err := r.authority.CreateSubmission(ctx, r.credential(), variant, fields, attachments)
	if err != nil {
		return nil, err
	}
	r.invalidate(ctx, "create", sub.ID)
	return sub, nil
}

// Update resubmits an existing submission. The caller checks that the
// submission is editable; the repository does not track prior status.
func (r *Repository) Update(ctx context.Context, id string, fields map[string]string, attachments []models.Attachment) (*models.Submission, error) {
	sub, err := r.authority.UpdateSubmission(ctx, r.credential(), id, fields, attachments)
	if err != nil {
		return nil, err
	}
	r.invalidate(ctx, "update", id)
	return sub, nil
}

// Delete removes a submission. Not reachable from the form workflow.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.authority.DeleteSubmission(ctx, r.credential(), id); err != nil {
		return err
	}
	r.invalidate(ctx, "delete", id)
	return nil
}

// Invalidate drops the cached list so the next List refetches.
func (r *Repository) Invalidate() {
	r.mu.Lock()
	r.cached = nil
	r.generation++
	r.mu.Unlock()
}

func (r *Repository) invalidate(ctx context.Context, op, id string) {
	r.Invalidate()
	r.logger.DebugContext(ctx, "submission list invalidated",
		"op", op,
		"submission_id", id,
		"request_id", requestcontext.RequestID(ctx),
	)
}
