package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"pawhaven/internal/platform/metrics"
	"pawhaven/internal/platform/middleware"
	"pawhaven/internal/subscription/models"
	id "pawhaven/pkg/domain"
	dErrors "pawhaven/pkg/domain-errors"
	"pawhaven/pkg/platform/httputil"
	"pawhaven/pkg/requestcontext"
)

// Service defines the subscription operations exposed over HTTP.
type Service interface {
	CreateForGuardianship(ctx context.Context, userID id.UserID, guardianshipID id.GuardianshipID, amount float64, currency string) (*models.PaymentSubscription, error)
	CreateGlobal(ctx context.Context, userID id.UserID, amount float64, currency string) (*models.PaymentSubscription, error)
	CreateForAidRequest(ctx context.Context, userID id.UserID, aidRequestID *uuid.UUID, amount float64, currency string) (*models.PaymentSubscription, error)
	Get(ctx context.Context, providerSubscriptionID string) (*models.PaymentSubscription, error)
	Pause(ctx context.Context, providerSubscriptionID string) error
	Resume(ctx context.Context, providerSubscriptionID string) error
	Cancel(ctx context.Context, providerSubscriptionID string) error
}

type Handler struct {
	service      Service
	logger       *slog.Logger
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

func New(service Service, logger *slog.Logger, metrics *metrics.Metrics, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		service:      service,
		logger:       logger,
		metrics:      metrics,
		jwtValidator: jwtValidator,
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Use(middleware.Latency(h.metrics))
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Post("/subscriptions", h.HandleCreate)
		r.Get("/subscriptions/{psid}", h.HandleGet)
		r.Post("/subscriptions/{psid}/pause", h.lifecycle(Service.Pause))
		r.Post("/subscriptions/{psid}/resume", h.lifecycle(Service.Resume))
		r.Post("/subscriptions/{psid}/cancel", h.lifecycle(Service.Cancel))
	})
}

type createRequest struct {
	Scope    string  `json:"scope"`
	ScopeID  string  `json:"scope_id,omitempty"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)

	req, ok := httputil.DecodeJSON[createRequest](w, r)
	if !ok {
		return
	}
	scope, err := models.ParseScope(req.Scope)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var sub *models.PaymentSubscription
	switch scope {
	case models.ScopeGuardianship:
		guardianshipID, perr := id.ParseGuardianshipID(req.ScopeID)
		if perr != nil {
			httputil.WriteError(w, dErrors.Wrap(perr, dErrors.CodeBadRequest, "scope_id must be a guardianship id"))
			return
		}
		sub, err = h.service.CreateForGuardianship(ctx, userID, guardianshipID, req.Amount, req.Currency)
	case models.ScopeAidRequest:
		var aidRequestID *uuid.UUID
		if req.ScopeID != "" {
			u, perr := uuid.Parse(req.ScopeID)
			if perr != nil {
				httputil.WriteError(w, dErrors.Wrap(perr, dErrors.CodeBadRequest, "scope_id must be a UUID"))
				return
			}
			aidRequestID = &u
		}
		sub, err = h.service.CreateForAidRequest(ctx, userID, aidRequestID, req.Amount, req.Currency)
	case models.ScopeGlobal:
		sub, err = h.service.CreateGlobal(ctx, userID, req.Amount, req.Currency)
	}
	if err != nil {
		h.writeServiceError(ctx, w, "create subscription", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, sub)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.loadOwned(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sub)
}

// lifecycle wraps a pause/resume/cancel call with the ownership check and
// returns the updated record.
func (h *Handler) lifecycle(op func(Service, context.Context, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sub, ok := h.loadOwned(w, r)
		if !ok {
			return
		}
		if err := op(h.service, ctx, sub.ProviderSubscriptionID); err != nil {
			h.writeServiceError(ctx, w, "update subscription", err)
			return
		}
		updated, err := h.service.Get(ctx, sub.ProviderSubscriptionID)
		if err != nil {
			h.writeServiceError(ctx, w, "reload subscription", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, updated)
	}
}

func (h *Handler) loadOwned(w http.ResponseWriter, r *http.Request) (*models.PaymentSubscription, bool) {
	ctx := r.Context()
	sub, err := h.service.Get(ctx, chi.URLParam(r, "psid"))
	if err != nil {
		h.writeServiceError(ctx, w, "get subscription", err)
		return nil, false
	}
	if sub.UserID != requestcontext.UserID(ctx) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "subscription not found"))
		return nil, false
	}
	return sub, true
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "failed to "+op,
			append(requestcontext.LogAttrs(ctx), "error", err)...,
		)
	}
	httputil.WriteError(w, err)
}
