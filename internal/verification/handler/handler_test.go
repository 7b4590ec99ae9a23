package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"storefront/internal/kyc/models"
	"storefront/internal/verification/handler/mocks"
	"storefront/internal/verification/service"
	dErrors "storefront/pkg/domain-errors"
	"storefront/pkg/platform/middleware/auth"
	"storefront/pkg/testutil"
)

type stubValidator struct{}

func (stubValidator) ValidateToken(token string) (*auth.JWTClaims, error) {
	switch token {
	case "user-token":
		return &auth.JWTClaims{UserID: "user-1", Role: "user"}, nil
	case "admin-token":
		return &auth.JWTClaims{UserID: "admin-1", Role: "admin"}, nil
	}
	return nil, errors.New("invalid token")
}

type HandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	router  chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.router = chi.NewRouter()
	New(s.service, logger, stubValidator{}).Register(s.router)
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *HandlerSuite) do(req *http.Request, token string) (int, map[string]any) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := testutil.DoRequest(s.router, req)
	if rr.Body.Len() == 0 || strings.HasPrefix(strings.TrimSpace(rr.Body.String()), "[") {
		return rr.Code, nil
	}
	return rr.Code, testutil.UnmarshalErrorResponse(s.T(), rr)
}

func (s *HandlerSuite) TestMissingCredential() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/kyc-documents"))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
}

func (s *HandlerSuite) TestListTypes() {
	s.service.EXPECT().ListTypes(gomock.Any()).Return(models.DefaultCatalog(), nil)

	code, body := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/kyc-types"), "user-token")
	s.Equal(http.StatusOK, code)
	s.Contains(body, models.VariantVendor)
}

func (s *HandlerSuite) TestListPassesOwner() {
	s.service.EXPECT().List(gomock.Any(), "user-1").Return([]models.Submission{{ID: "a"}}, nil)

	code, _ := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/kyc-documents"), "user-token")
	s.Equal(http.StatusOK, code)
}

func (s *HandlerSuite) TestCreateFlatFields() {
	s.service.EXPECT().Create(gomock.Any(), "user-1", gomock.Any()).
		DoAndReturn(func(_ any, _ string, in service.SubmissionInput) (*models.Submission, error) {
			s.Equal(models.VariantVendor, in.Variant)
			s.Equal("Ada", in.Fields["full_name"])
			s.NotContains(in.Fields, "kyc_type")
			s.Require().Len(in.Attachments, 2)
			s.Equal("first.pdf", in.Attachments[0].Name)
			s.Equal("second.png", in.Attachments[1].Name)
			return &models.Submission{ID: "sub-1", Status: models.StatusPending}, nil
		})

	req := testutil.NewMultipartRequest(s.T(), http.MethodPost, "/kyc-documents",
		map[string]string{"kyc_type": models.VariantVendor, "full_name": "Ada"},
		[]testutil.MultipartFile{
			{Field: "documents[1]", Name: "second.png", Content: []byte("png")},
			{Field: "documents[0]", Name: "first.pdf", Content: []byte("pdf")},
		})
	code, body := s.do(req, "user-token")
	s.Equal(http.StatusCreated, code)
	s.Equal("sub-1", body["id"])
	s.Equal("pending", body["status"])
}

func (s *HandlerSuite) TestCreateJSONFieldsPart() {
	s.service.EXPECT().Create(gomock.Any(), "user-1", gomock.Any()).
		DoAndReturn(func(_ any, _ string, in service.SubmissionInput) (*models.Submission, error) {
			s.Equal(map[string]string{"full_name": "Ada", "email": "ada@example.com"}, in.Fields)
			return &models.Submission{ID: "sub-1"}, nil
		})

	req := testutil.NewMultipartRequest(s.T(), http.MethodPost, "/kyc-documents",
		map[string]string{"kyc_type": models.VariantIdentity, "fields": `{"full_name":"Ada","email":"ada@example.com"}`}, nil)
	code, _ := s.do(req, "user-token")
	s.Equal(http.StatusCreated, code)
}

func (s *HandlerSuite) TestCreateAcceptsFullAttachmentQuota() {
	s.service.EXPECT().Create(gomock.Any(), "user-1", gomock.Any()).
		DoAndReturn(func(_ any, _ string, in service.SubmissionInput) (*models.Submission, error) {
			s.Len(in.Attachments, models.MaxAttachments)
			return &models.Submission{ID: "sub-1", Status: models.StatusPending}, nil
		})

	content := make([]byte, models.MaxAttachmentSize-1<<10)
	files := make([]testutil.MultipartFile, models.MaxAttachments)
	for i := range files {
		files[i] = testutil.MultipartFile{Field: fmt.Sprintf("documents[%d]", i), Name: fmt.Sprintf("scan-%d.pdf", i), Content: content}
	}
	req := testutil.NewMultipartRequest(s.T(), http.MethodPost, "/kyc-documents",
		map[string]string{"kyc_type": models.VariantVendor}, files)
	code, _ := s.do(req, "user-token")
	s.Equal(http.StatusCreated, code)
}

func (s *HandlerSuite) TestCreateRejectsTooManyAttachments() {
	files := make([]testutil.MultipartFile, models.MaxAttachments+1)
	for i := range files {
		files[i] = testutil.MultipartFile{Field: fmt.Sprintf("documents[%d]", i), Name: fmt.Sprintf("scan-%d.pdf", i), Content: []byte("pdf")}
	}
	req := testutil.NewMultipartRequest(s.T(), http.MethodPost, "/kyc-documents",
		map[string]string{"kyc_type": models.VariantVendor}, files)
	code, body := s.do(req, "user-token")
	s.Equal(http.StatusUnprocessableEntity, code)
	s.Equal(models.TooManyAttachments, body["field_errors"].(map[string]any)["documents"])
}

func (s *HandlerSuite) TestCreateRejectsBadBodies() {
	s.Run("not multipart", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/kyc-documents", map[string]string{"kyc_type": "vendor"})
		code, body := s.do(req, "user-token")
		s.Equal(http.StatusBadRequest, code)
		s.Equal("bad_request", body["error"])
	})
	s.Run("fields part is not JSON", func() {
		req := testutil.NewMultipartRequest(s.T(), http.MethodPost, "/kyc-documents",
			map[string]string{"kyc_type": "vendor", "fields": "nope"}, nil)
		code, _ := s.do(req, "user-token")
		s.Equal(http.StatusBadRequest, code)
	})
}

func (s *HandlerSuite) TestCreateErrorMapping() {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", models.NewValidationError(map[string]string{"full_name": "Full Name is required"}), http.StatusUnprocessableEntity, "validation_error"},
		{"duplicate", dErrors.New(dErrors.CodeConflict, "you already have an active submission for this verification type"), http.StatusConflict, "conflict"},
		{"internal", dErrors.Wrap(errors.New("db down"), dErrors.CodeInternal, "failed"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.service.EXPECT().Create(gomock.Any(), "user-1", gomock.Any()).Return(nil, tc.err)
			req := testutil.NewMultipartRequest(s.T(), http.MethodPost, "/kyc-documents",
				map[string]string{"kyc_type": "vendor"}, nil)
			code, body := s.do(req, "user-token")
			s.Equal(tc.status, code)
			s.Equal(tc.code, body["error"])
			if tc.code == "internal_error" {
				s.NotContains(body, "error_description")
			}
			if tc.code == "validation_error" {
				s.Contains(body["field_errors"], "full_name")
			}
		})
	}
}

func (s *HandlerSuite) TestUpdateAndGet() {
	s.service.EXPECT().Update(gomock.Any(), "user-1", "sub-1", gomock.Any()).
		Return(&models.Submission{ID: "sub-1", Status: models.StatusPending}, nil)
	req := testutil.NewMultipartRequest(s.T(), http.MethodPut, "/kyc-documents/sub-1",
		map[string]string{"full_name": "Ada"}, nil)
	code, _ := s.do(req, "user-token")
	s.Equal(http.StatusOK, code)

	s.service.EXPECT().Get(gomock.Any(), "user-1", "sub-2").
		Return(nil, dErrors.New(dErrors.CodeNotFound, "submission not found"))
	code, body := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/kyc-documents/sub-2"), "user-token")
	s.Equal(http.StatusNotFound, code)
	s.Equal("submission not found", body["error_description"])
}

func (s *HandlerSuite) TestDelete() {
	s.service.EXPECT().Delete(gomock.Any(), "user-1", "sub-1").Return(nil)

	code, body := s.do(testutil.NewRequest(s.T(), http.MethodDelete, "/kyc-documents/sub-1"), "user-token")
	s.Equal(http.StatusOK, code)
	s.Equal(true, body["deleted"])
}

func (s *HandlerSuite) TestReviewRequiresAdmin() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/kyc-documents/sub-1/review",
		service.ReviewInput{Status: models.StatusApproved})
	code, body := s.do(req, "user-token")
	s.Equal(http.StatusForbidden, code)
	s.Equal("forbidden", body["error"])

	s.service.EXPECT().Review(gomock.Any(), "admin-1", "sub-1", service.ReviewInput{Status: models.StatusApproved}).
		Return(&models.Submission{ID: "sub-1", Status: models.StatusApproved}, nil)
	req = testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/kyc-documents/sub-1/review",
		service.ReviewInput{Status: models.StatusApproved})
	code, body = s.do(req, "admin-token")
	s.Equal(http.StatusOK, code)
	s.Equal("approved", body["status"])
}

func TestDocumentIndex(t *testing.T) {
	cases := map[string]struct {
		index int
		ok    bool
	}{
		"documents":     {0, true},
		"documents[]":   {0, true},
		"documents[7]":  {7, true},
		"documents[-1]": {0, false},
		"documents[x]":  {0, false},
		"avatar":        {0, false},
	}
	for name, want := range cases {
		t.Run(name, func(t *testing.T) {
			index, ok := documentIndex(name)
			if ok != want.ok || index != want.index {
				t.Fatalf("documentIndex(%q) = %d, %v; want %d, %v", name, index, ok, want.index, want.ok)
			}
		})
	}
}
