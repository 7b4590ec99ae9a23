package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"storefront/internal/kyc/models"
	dErrors "storefront/pkg/domain-errors"
	"storefront/pkg/platform/sentinel"
)

const defaultTxTimeout = 5 * time.Second

// InMemoryStore keeps the catalog and submissions in maps guarded by an RWMutex.
type InMemoryStore struct {
	mu          sync.RWMutex
	types       models.Catalog
	submissions map[string]*models.Submission
}

// NewInMemoryStore builds a store seeded with catalog.
func NewInMemoryStore(catalog models.Catalog) *InMemoryStore {
	return &InMemoryStore{
		types:       catalog.Normalize(),
		submissions: make(map[string]*models.Submission),
	}
}

func (s *InMemoryStore) ListTypes(_ context.Context) (models.Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.types.Normalize(), nil
}

// SeedTypes replaces the catalog.
func (s *InMemoryStore) SeedTypes(_ context.Context, catalog models.Catalog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.types = catalog.Normalize()
	return nil
}

// ListByOwner returns the owner's submissions, newest first.
func (s *InMemoryStore) ListByOwner(_ context.Context, owner string) ([]models.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Submission, 0)
	for _, sub := range s.submissions {
		if sub.Owner == owner {
			out = append(out, *sub.Clone())
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (*models.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.submissions[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return sub.Clone(), nil
}

// ActiveForVariant returns the owner's submissions for variant that still
// hold it, i.e. any status other than rejected.
func (s *InMemoryStore) ActiveForVariant(_ context.Context, owner, variant string) ([]models.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Submission, 0)
	for _, sub := range s.submissions {
		if sub.Owner == owner && sub.Variant == variant && sub.Status != models.StatusRejected {
			out = append(out, *sub.Clone())
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// Save inserts or replaces a submission. A second submission holding the
// same (owner, variant) is refused with sentinel.ErrConflict.
func (s *InMemoryStore) Save(_ context.Context, sub *models.Submission) error {
	if sub == nil {
		return dErrors.New(dErrors.CodeInternal, "submission is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub.Status != models.StatusRejected {
		for id, other := range s.submissions {
			if id != sub.ID && other.Owner == sub.Owner && other.Variant == sub.Variant && other.Status != models.StatusRejected {
				return sentinel.ErrConflict
			}
		}
	}
	s.submissions[sub.ID] = sub.Clone()
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.submissions[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.submissions, id)
	return nil
}

// InMemoryTx serialises read-modify-write sequences against an InMemoryStore.
// Each transaction holds one lock for its whole duration.
type InMemoryTx struct {
	mu      sync.Mutex
	store   *InMemoryStore
	timeout time.Duration
}

func NewInMemoryTx(store *InMemoryStore) *InMemoryTx {
	return &InMemoryTx{store: store, timeout: defaultTxTimeout}
}

// RunInTx runs fn under the transaction lock. The memory store has no
// rollback: fn must validate before it writes.
func (t *InMemoryTx) RunInTx(ctx context.Context, fn func(store Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	return fn(t.store)
}

func sortNewestFirst(subs []models.Submission) {
	sort.SliceStable(subs, func(i, j int) bool {
		if subs[i].CreatedAt.Equal(subs[j].CreatedAt) {
			return subs[i].ID > subs[j].ID
		}
		return subs[i].CreatedAt.After(subs[j].CreatedAt)
	})
}
