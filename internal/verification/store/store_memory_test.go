package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"storefront/internal/kyc/models"
	dErrors "storefront/pkg/domain-errors"
	"storefront/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
	base  time.Time
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore(models.DefaultCatalog())
	s.ctx = context.Background()
	s.base = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
}

func (s *InMemoryStoreSuite) submission(id, owner, variant string, status models.Status, age time.Duration) *models.Submission {
	return &models.Submission{
		ID:        id,
		Owner:     owner,
		Variant:   variant,
		Status:    status,
		Fields:    map[string]string{"full_name": "Ada"},
		Documents: []models.Document{},
		CreatedAt: s.base.Add(-age),
		UpdatedAt: s.base.Add(-age),
	}
}

func (s *InMemoryStoreSuite) TestListTypesReturnsSeededCatalog() {
	got, err := s.store.ListTypes(s.ctx)
	s.Require().NoError(err)
	s.Equal(models.DefaultCatalog().Keys(), got.Keys())

	s.Require().NoError(s.store.SeedTypes(s.ctx, models.Catalog{"custom": {Key: "custom"}}))
	got, err = s.store.ListTypes(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{"custom"}, got.Keys())
	s.Equal("custom", got["custom"].Name)
}

func (s *InMemoryStoreSuite) TestListByOwnerNewestFirst() {
	s.Require().NoError(s.store.Save(s.ctx, s.submission("a", "u1", models.VariantVendor, models.StatusRejected, 2*time.Hour)))
	s.Require().NoError(s.store.Save(s.ctx, s.submission("b", "u1", models.VariantVehicle, models.StatusPending, time.Hour)))
	s.Require().NoError(s.store.Save(s.ctx, s.submission("c", "u2", models.VariantVendor, models.StatusPending, 0)))

	subs, err := s.store.ListByOwner(s.ctx, "u1")
	s.Require().NoError(err)
	s.Require().Len(subs, 2)
	s.Equal("b", subs[0].ID)
	s.Equal("a", subs[1].ID)

	empty, err := s.store.ListByOwner(s.ctx, "nobody")
	s.Require().NoError(err)
	s.NotNil(empty)
	s.Empty(empty)
}

func (s *InMemoryStoreSuite) TestGetReturnsCopy() {
	s.Require().NoError(s.store.Save(s.ctx, s.submission("a", "u1", models.VariantVendor, models.StatusPending, 0)))

	got, err := s.store.Get(s.ctx, "a")
	s.Require().NoError(err)
	got.Fields["full_name"] = "changed"

	again, err := s.store.Get(s.ctx, "a")
	s.Require().NoError(err)
	s.Equal("Ada", again.Fields["full_name"])

	_, err = s.store.Get(s.ctx, "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestSaveRefusesSecondHolder() {
	s.Require().NoError(s.store.Save(s.ctx, s.submission("a", "u1", models.VariantVendor, models.StatusApproved, time.Hour)))

	err := s.store.Save(s.ctx, s.submission("b", "u1", models.VariantVendor, models.StatusPending, 0))
	s.ErrorIs(err, sentinel.ErrConflict)

	s.Run("rejected submissions never conflict", func() {
		s.NoError(s.store.Save(s.ctx, s.submission("c", "u1", models.VariantVendor, models.StatusRejected, 0)))
	})
	s.Run("other owners are independent", func() {
		s.NoError(s.store.Save(s.ctx, s.submission("d", "u2", models.VariantVendor, models.StatusPending, 0)))
	})
	s.Run("updating the holder itself is allowed", func() {
		s.NoError(s.store.Save(s.ctx, s.submission("a", "u1", models.VariantVendor, models.StatusApproved, 0)))
	})
}

func (s *InMemoryStoreSuite) TestActiveForVariantSkipsRejected() {
	s.Require().NoError(s.store.Save(s.ctx, s.submission("a", "u1", models.VariantVendor, models.StatusRejected, time.Hour)))
	s.Require().NoError(s.store.Save(s.ctx, s.submission("b", "u1", models.VariantVendor, models.StatusUnderReview, 0)))

	active, err := s.store.ActiveForVariant(s.ctx, "u1", models.VariantVendor)
	s.Require().NoError(err)
	s.Require().Len(active, 1)
	s.Equal("b", active[0].ID)
}

func (s *InMemoryStoreSuite) TestDelete() {
	s.Require().NoError(s.store.Save(s.ctx, s.submission("a", "u1", models.VariantVendor, models.StatusPending, 0)))
	s.Require().NoError(s.store.Delete(s.ctx, "a"))
	s.ErrorIs(s.store.Delete(s.ctx, "a"), sentinel.ErrNotFound)
}

func TestInMemoryTx_RunsFnAgainstStore(t *testing.T) {
	st := NewInMemoryStore(models.DefaultCatalog())
	tx := NewInMemoryTx(st)

	err := tx.RunInTx(context.Background(), func(store Store) error {
		return store.Save(context.Background(), &models.Submission{ID: "a", Owner: "u1", Variant: models.VariantVendor, Status: models.StatusPending})
	})
	require.NoError(t, err)

	_, err = st.Get(context.Background(), "a")
	assert.NoError(t, err)
}

func TestInMemoryTx_PropagatesFnError(t *testing.T) {
	tx := NewInMemoryTx(NewInMemoryStore(nil))
	boom := errors.New("boom")
	err := tx.RunInTx(context.Background(), func(Store) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestInMemoryTx_CancelledContext(t *testing.T) {
	tx := NewInMemoryTx(NewInMemoryStore(nil))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := tx.RunInTx(ctx, func(Store) error {
		called = true
		return nil
	})
	assert.False(t, called)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
}
