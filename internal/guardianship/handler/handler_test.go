package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"pawhaven/internal/guardianship/handler/mocks"
	"pawhaven/internal/guardianship/models"
	"pawhaven/internal/platform/logger"
	"pawhaven/internal/platform/middleware"
	id "pawhaven/pkg/domain"
	dErrors "pawhaven/pkg/domain-errors"
)

//go:generate mockgen -source=handler.go -destination=mocks/guardianship-mocks.go -package=mocks Service
type GuardianshipHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
	user    id.UserID
	now     time.Time
}

type tokenValidator map[string]id.UserID

func (v tokenValidator) ValidateToken(token string) (*middleware.JWTClaims, error) {
	userID, ok := v[token]
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	return &middleware.JWTClaims{UserID: userID}, nil
}

func TestGuardianshipHandlerSuite(t *testing.T) {
	suite.Run(t, new(GuardianshipHandlerSuite))
}

func (s *GuardianshipHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	s.user = id.UserID(uuid.New())
	s.now = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	s.router = chi.NewRouter()
	New(s.service, logger.Discard(), nil, tokenValidator{"alice": s.user, "bob": id.UserID(uuid.New())}).Register(s.router)
}

func (s *GuardianshipHandlerSuite) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *GuardianshipHandlerSuite) guardianship(status models.Status) *models.Guardianship {
	grace := s.now.Add(72 * time.Hour)
	return &models.Guardianship{
		ID:         id.GuardianshipID(uuid.New()),
		UserID:     s.user,
		AnimalID:   id.AnimalID(uuid.New()),
		Status:     status,
		StartDate:  s.now,
		GraceUntil: &grace,
		Donations:  []models.DonationLink{},
		UpdatedAt:  s.now,
	}
}

func (s *GuardianshipHandlerSuite) TestCreate() {
	g := s.guardianship(models.StatusRequiresPayment)
	s.service.EXPECT().CreateGuardianship(gomock.Any(), s.user, g.AnimalID, 0).Return(g, nil)

	w := s.do(http.MethodPost, "/guardianships", "alice", map[string]any{"animal_id": g.AnimalID.String()})
	s.Equal(http.StatusCreated, w.Code)

	var resp map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal(g.ID.String(), resp["id"])
	s.Equal("requires_payment", resp["status"])
	s.NotEmpty(resp["grace_until"])
}

func (s *GuardianshipHandlerSuite) TestCreateErrors() {
	s.Run("unauthenticated", func() {
		w := s.do(http.MethodPost, "/guardianships", "", map[string]any{"animal_id": uuid.NewString()})
		s.Equal(http.StatusUnauthorized, w.Code)
	})
	s.Run("bad animal id", func() {
		w := s.do(http.MethodPost, "/guardianships", "alice", map[string]any{"animal_id": "rex"})
		s.Equal(http.StatusBadRequest, w.Code)
	})
	s.Run("open guardianship exists", func() {
		s.service.EXPECT().CreateGuardianship(gomock.Any(), s.user, gomock.Any(), 5).
			Return(nil, dErrors.New(dErrors.CodeConflict, "an active guardianship already exists for this animal"))
		w := s.do(http.MethodPost, "/guardianships", "alice", map[string]any{"animal_id": uuid.NewString(), "grace_days": 5})
		s.Equal(http.StatusConflict, w.Code)
	})
}

func (s *GuardianshipHandlerSuite) TestGetIsOwnerOnly() {
	g := s.guardianship(models.StatusActive)
	s.service.EXPECT().Get(gomock.Any(), g.ID).Return(g, nil).Times(2)

	w := s.do(http.MethodGet, "/guardianships/"+g.ID.String(), "alice", nil)
	s.Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/guardianships/"+g.ID.String(), "bob", nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *GuardianshipHandlerSuite) TestList() {
	s.service.EXPECT().ListForUser(gomock.Any(), s.user).
		Return([]*models.Guardianship{s.guardianship(models.StatusActive)}, nil)

	w := s.do(http.MethodGet, "/guardianships", "alice", nil)
	s.Equal(http.StatusOK, w.Code)
	var resp struct {
		Guardianships []map[string]any `json:"guardianships"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Len(resp.Guardianships, 1)
}

func (s *GuardianshipHandlerSuite) TestCancelCompletesAndCancelsSubscription() {
	g := s.guardianship(models.StatusActive)
	completed := *g
	completed.Status = models.StatusCompleted
	completed.GraceUntil = nil

	gomock.InOrder(
		s.service.EXPECT().Get(gomock.Any(), g.ID).Return(g, nil),
		s.service.EXPECT().Complete(gomock.Any(), g.ID, true).Return(nil),
		s.service.EXPECT().Get(gomock.Any(), g.ID).Return(&completed, nil),
	)

	w := s.do(http.MethodPost, "/guardianships/"+g.ID.String()+"/cancel", "alice", nil)
	s.Equal(http.StatusOK, w.Code)
	var resp map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal("completed", resp["status"])
}

func (s *GuardianshipHandlerSuite) TestCancelOtherUsersGuardianship() {
	g := s.guardianship(models.StatusActive)
	s.service.EXPECT().Get(gomock.Any(), g.ID).Return(g, nil)

	w := s.do(http.MethodPost, "/guardianships/"+g.ID.String()+"/cancel", "bob", nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *GuardianshipHandlerSuite) TestInvalidPathID() {
	w := s.do(http.MethodGet, "/guardianships/not-a-uuid", "alice", nil)
	s.Equal(http.StatusBadRequest, w.Code)
}
