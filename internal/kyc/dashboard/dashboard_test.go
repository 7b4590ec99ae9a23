package dashboard

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"storefront/internal/kyc/dashboard/mocks"
	"storefront/internal/kyc/form"
	"storefront/internal/kyc/models"
	dErrors "storefront/pkg/domain-errors"
	"storefront/pkg/platform/sentinel"
)

//go:generate mockgen -source=dashboard.go -destination=mocks/mocks.go -package=mocks CatalogLoader,Repository
type DashboardSuite struct {
	suite.Suite
	ctx     context.Context
	catalog *mocks.MockCatalogLoader
	repo    *mocks.MockRepository
	dash    *Dashboard
}

func TestDashboardSuite(t *testing.T) {
	suite.Run(t, new(DashboardSuite))
}

func (s *DashboardSuite) SetupTest() {
	s.ctx = context.Background()
	ctrl := gomock.NewController(s.T())
	s.catalog = mocks.NewMockCatalogLoader(ctrl)
	s.repo = mocks.NewMockRepository(ctrl)
	s.dash = New(s.catalog, s.repo, "tok", WithFormatter(func(t time.Time) string { return t.Format("2006-01-02") }))
}

func notes(s string) *string { return &s }

func history() []models.Submission {
	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	return []models.Submission{
		{ID: "1", Variant: models.VariantVendor, Status: models.StatusPending, CreatedAt: created},
		{ID: "2", Variant: models.VariantIdentity, Status: models.StatusApproved, CreatedAt: created},
		{ID: "3", Variant: models.VariantProperty, Status: models.StatusRejected, AdminNotes: notes("deed is unreadable"), CreatedAt: created},
		{ID: "4", Variant: models.VariantVehicle, Status: models.StatusUnderReview, CreatedAt: created},
		{ID: "5", Variant: "legacy", Status: models.Status("archived"), CreatedAt: created},
	}
}

func (s *DashboardSuite) TestLoadBuildsCountsCardsAndRows() {
	s.catalog.EXPECT().Load(gomock.Any(), "tok").Return(models.DefaultCatalog())
	s.repo.EXPECT().List(gomock.Any()).Return(history(), nil)

	view, err := s.dash.Load(s.ctx)
	s.Require().NoError(err)

	s.Equal(Counts{Pending: 1, UnderReview: 1, Approved: 1, Rejected: 1, Total: 5}, view.Counts)

	cardKeys := []string{}
	for _, c := range view.Cards {
		cardKeys = append(cardKeys, c.Key)
	}
	s.Equal([]string{"auction", "property"}, cardKeys, "rejected variants can be started again")
	s.Empty(view.EmptyMessage)

	s.Require().Len(view.Rows, 5)
	s.Equal("Vendor Verification", view.Rows[0].VariantName)
	s.Equal("Pending", view.Rows[0].Status.Label)
	s.Equal([]string{ActionView, ActionEdit}, view.Rows[0].Actions)
	s.Equal([]string{ActionView}, view.Rows[1].Actions, "approved rows offer only view")
	s.Equal("deed is unreadable", view.Rows[2].AdminNotes)
	s.Equal([]string{ActionView}, view.Rows[3].Actions)
	s.Equal("legacy", view.Rows[4].VariantName)
	s.Equal("badge-secondary", view.Rows[4].Status.Badge)
	s.Equal("2025-03-01", view.Rows[4].SubmittedAt)
}

func (s *DashboardSuite) TestCatalogFailureStillRendersHistory() {
	s.catalog.EXPECT().Load(gomock.Any(), "tok").Return(models.Catalog{})
	s.repo.EXPECT().List(gomock.Any()).Return(history()[:2], nil)

	view, err := s.dash.Load(s.ctx)
	s.Require().NoError(err)
	s.Empty(view.Cards)
	s.Equal(EmptyCatalogMessage, view.EmptyMessage)
	s.Len(view.Rows, 2)
}

func (s *DashboardSuite) TestListFailureIsReturned() {
	listErr := dErrors.New(dErrors.CodeUnavailable, "could not reach the verification service")
	s.catalog.EXPECT().Load(gomock.Any(), "tok").Return(models.DefaultCatalog()).AnyTimes()
	s.repo.EXPECT().List(gomock.Any()).Return(nil, listErr)

	view, err := s.dash.Load(s.ctx)
	s.Nil(view)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	_, ok := s.dash.Last()
	s.False(ok)
}

func (s *DashboardSuite) TestCloseDiscardsLateLoad() {
	s.catalog.EXPECT().Load(gomock.Any(), "tok").Return(models.DefaultCatalog())
	s.repo.EXPECT().List(gomock.Any()).DoAndReturn(func(context.Context) ([]models.Submission, error) {
		s.dash.Close()
		return history(), nil
	})

	view, err := s.dash.Load(s.ctx)
	s.Nil(view)
	s.ErrorIs(err, sentinel.ErrStale)
	_, ok := s.dash.Last()
	s.False(ok)
}

func (s *DashboardSuite) TestOpenEditFormRefusesApprovedWithoutNetwork() {
	s.catalog.EXPECT().Load(gomock.Any(), "tok").Return(models.DefaultCatalog())
	s.repo.EXPECT().List(gomock.Any()).Return(history(), nil)
	_, err := s.dash.Load(s.ctx)
	s.Require().NoError(err)

	c, err := s.dash.OpenEditForm(s.ctx, "2")
	s.Nil(c)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func (s *DashboardSuite) TestOpenEditFormFetchesUnknownSubmission() {
	s.catalog.EXPECT().Load(gomock.Any(), "tok").Return(models.DefaultCatalog())
	s.repo.EXPECT().List(gomock.Any()).Return([]models.Submission{}, nil)
	s.repo.EXPECT().Get(gomock.Any(), "9").Return(&models.Submission{
		ID: "9", Variant: models.VariantAuction, Status: models.StatusPending,
		Fields: map[string]string{"full_name": "Sam"},
	}, nil)

	c, err := s.dash.OpenEditForm(s.ctx, "9")
	s.Require().NoError(err)
	s.Equal(form.StateFilling, c.State())
	s.Equal("Sam", c.Snapshot().Fields["full_name"])
}

func (s *DashboardSuite) TestSuccessfulSubmitRefreshesDashboard() {
	gomock.InOrder(
		s.repo.EXPECT().List(gomock.Any()).Return([]models.Submission{}, nil),
		s.repo.EXPECT().Create(gomock.Any(), models.VariantIdentity, gomock.Any(), gomock.Any()).
			Return(&models.Submission{ID: "10", Variant: models.VariantIdentity, Status: models.StatusPending}, nil),
		s.repo.EXPECT().List(gomock.Any()).Return([]models.Submission{
			{ID: "10", Variant: models.VariantIdentity, Status: models.StatusPending},
		}, nil),
	)
	s.catalog.EXPECT().Load(gomock.Any(), "tok").Return(models.DefaultCatalog()).Times(2)

	c, err := s.dash.OpenForm(s.ctx)
	s.Require().NoError(err)
	s.Require().NoError(c.Select(models.VariantIdentity))
	s.Require().NoError(c.SetFields(map[string]string{"full_name": "Jo", "email": "jo@x.io"}))
	_, err = c.AddAttachment("id.pdf", "application/pdf", strings.NewReader("%PDF"))
	s.Require().NoError(err)

	_, err = c.Submit(s.ctx)
	s.Require().NoError(err)

	view, ok := s.dash.Last()
	s.Require().True(ok)
	s.Equal(1, view.Counts.Pending)
	for _, card := range view.Cards {
		s.NotEqual(models.VariantIdentity, card.Key)
	}
}

func (s *DashboardSuite) TestSetTokenPropagates() {
	s.repo.EXPECT().SetToken("fresh")
	s.dash.SetToken("fresh")

	s.catalog.EXPECT().Load(gomock.Any(), "fresh").Return(models.Catalog{})
	s.repo.EXPECT().List(gomock.Any()).Return(nil, errors.New("offline"))
	_, err := s.dash.Load(s.ctx)
	s.Error(err)
}

func TestCountByStatus_Empty(t *testing.T) {
	assert.Equal(t, Counts{}, CountByStatus(nil))
}
