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

	"pawhaven/internal/platform/logger"
	"pawhaven/internal/platform/middleware"
	"pawhaven/internal/subscription/handler/mocks"
	"pawhaven/internal/subscription/models"
	id "pawhaven/pkg/domain"
	dErrors "pawhaven/pkg/domain-errors"
)

//go:generate mockgen -source=handler.go -destination=mocks/subscription-mocks.go -package=mocks Service
type SubscriptionHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
	user    id.UserID
}

type tokenValidator map[string]id.UserID

func (v tokenValidator) ValidateToken(token string) (*middleware.JWTClaims, error) {
	userID, ok := v[token]
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	return &middleware.JWTClaims{UserID: userID}, nil
}

func TestSubscriptionHandlerSuite(t *testing.T) {
	suite.Run(t, new(SubscriptionHandlerSuite))
}

func (s *SubscriptionHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	s.user = id.UserID(uuid.New())
	s.router = chi.NewRouter()
	New(s.service, logger.Discard(), nil, tokenValidator{"alice": s.user, "bob": id.UserID(uuid.New())}).Register(s.router)
}

func (s *SubscriptionHandlerSuite) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *SubscriptionHandlerSuite) subscription(status models.Status) *models.PaymentSubscription {
	next := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	return &models.PaymentSubscription{
		ID:                     id.SubscriptionID(uuid.New()),
		UserID:                 s.user,
		Scope:                  models.ScopeGlobal,
		Amount:                 50,
		Currency:               "UAH",
		Provider:               "liqpay",
		ProviderSubscriptionID: "pending_abc",
		Status:                 status,
		NextChargeAt:           &next,
	}
}

func (s *SubscriptionHandlerSuite) TestCreateByScope() {
	s.Run("global", func() {
		s.service.EXPECT().CreateGlobal(gomock.Any(), s.user, 50.0, "UAH").Return(s.subscription(models.StatusActive), nil)
		w := s.do(http.MethodPost, "/subscriptions", "alice", map[string]any{"scope": "global", "amount": 50, "currency": "UAH"})
		s.Equal(http.StatusCreated, w.Code)
	})

	s.Run("guardianship", func() {
		gid := id.GuardianshipID(uuid.New())
		s.service.EXPECT().CreateForGuardianship(gomock.Any(), s.user, gid, 100.0, "UAH").Return(s.subscription(models.StatusActive), nil)
		w := s.do(http.MethodPost, "/subscriptions", "alice", map[string]any{"scope": "guardianship", "scope_id": gid.String(), "amount": 100, "currency": "UAH"})
		s.Equal(http.StatusCreated, w.Code)
	})

	s.Run("aid request without id", func() {
		s.service.EXPECT().CreateForAidRequest(gomock.Any(), s.user, (*uuid.UUID)(nil), 20.0, "EUR").Return(s.subscription(models.StatusActive), nil)
		w := s.do(http.MethodPost, "/subscriptions", "alice", map[string]any{"scope": "aid_request", "amount": 20, "currency": "EUR"})
		s.Equal(http.StatusCreated, w.Code)
	})
}

func (s *SubscriptionHandlerSuite) TestCreateValidation() {
	s.Run("unknown scope", func() {
		w := s.do(http.MethodPost, "/subscriptions", "alice", map[string]any{"scope": "shelter", "amount": 1, "currency": "UAH"})
		s.Equal(http.StatusBadRequest, w.Code)
	})
	s.Run("guardianship scope needs id", func() {
		w := s.do(http.MethodPost, "/subscriptions", "alice", map[string]any{"scope": "guardianship", "amount": 1, "currency": "UAH"})
		s.Equal(http.StatusBadRequest, w.Code)
	})
	s.Run("guardianship the caller cannot subscribe to is 404", func() {
		gid := id.GuardianshipID(uuid.New())
		s.service.EXPECT().CreateForGuardianship(gomock.Any(), s.user, gid, 100.0, "UAH").
			Return(nil, dErrors.New(dErrors.CodeNotFound, "guardianship not found"))
		w := s.do(http.MethodPost, "/subscriptions", "alice", map[string]any{"scope": "guardianship", "scope_id": gid.String(), "amount": 100, "currency": "UAH"})
		s.Equal(http.StatusNotFound, w.Code)
	})
	s.Run("service validation surfaces as 400", func() {
		s.service.EXPECT().CreateGlobal(gomock.Any(), s.user, 0.0, "UAH").
			Return(nil, dErrors.New(dErrors.CodeValidation, "amount must be positive"))
		w := s.do(http.MethodPost, "/subscriptions", "alice", map[string]any{"scope": "global", "amount": 0, "currency": "UAH"})
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *SubscriptionHandlerSuite) TestLifecycle() {
	sub := s.subscription(models.StatusActive)
	paused := *sub
	paused.Status = models.StatusPaused

	gomock.InOrder(
		s.service.EXPECT().Get(gomock.Any(), "pending_abc").Return(sub, nil),
		s.service.EXPECT().Pause(gomock.Any(), "pending_abc").Return(nil),
		s.service.EXPECT().Get(gomock.Any(), "pending_abc").Return(&paused, nil),
	)

	w := s.do(http.MethodPost, "/subscriptions/pending_abc/pause", "alice", nil)
	s.Equal(http.StatusOK, w.Code)
	var resp map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal("paused", resp["status"])
}

func (s *SubscriptionHandlerSuite) TestLifecycleErrors() {
	s.Run("other users subscription", func() {
		s.service.EXPECT().Get(gomock.Any(), "pending_abc").Return(s.subscription(models.StatusActive), nil)
		w := s.do(http.MethodPost, "/subscriptions/pending_abc/cancel", "bob", nil)
		s.Equal(http.StatusNotFound, w.Code)
	})
	s.Run("resume canceled", func() {
		sub := s.subscription(models.StatusCanceled)
		s.service.EXPECT().Get(gomock.Any(), "pending_abc").Return(sub, nil)
		s.service.EXPECT().Resume(gomock.Any(), "pending_abc").
			Return(dErrors.New(dErrors.CodeInvalidState, "cannot resume a canceled subscription"))
		w := s.do(http.MethodPost, "/subscriptions/pending_abc/resume", "alice", nil)
		s.Equal(http.StatusUnprocessableEntity, w.Code)
	})
	s.Run("unknown subscription", func() {
		s.service.EXPECT().Get(gomock.Any(), "nope").Return(nil, dErrors.New(dErrors.CodeNotFound, "subscription not found"))
		w := s.do(http.MethodGet, "/subscriptions/nope", "alice", nil)
		s.Equal(http.StatusNotFound, w.Code)
	})
}
