package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"pawhaven/internal/guardianship/models"
	"pawhaven/internal/platform/metrics"
	"pawhaven/internal/platform/middleware"
	id "pawhaven/pkg/domain"
	dErrors "pawhaven/pkg/domain-errors"
	"pawhaven/pkg/platform/httputil"
	"pawhaven/pkg/requestcontext"
)

// Service defines the guardianship operations exposed over HTTP.
type Service interface {
	CreateGuardianship(ctx context.Context, userID id.UserID, animalID id.AnimalID, graceDays int) (*models.Guardianship, error)
	Get(ctx context.Context, guardianshipID id.GuardianshipID) (*models.Guardianship, error)
	ListForUser(ctx context.Context, userID id.UserID) ([]*models.Guardianship, error)
	Complete(ctx context.Context, guardianshipID id.GuardianshipID, cancelSubscription bool) error
}

// Handler serves the guardian-facing guardianship endpoints.
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
		r.Post("/guardianships", h.HandleCreate)
		r.Get("/guardianships", h.HandleList)
		r.Get("/guardianships/{id}", h.HandleGet)
		r.Post("/guardianships/{id}/cancel", h.HandleCancel)
	})
}

type createRequest struct {
	AnimalID  string `json:"animal_id"`
	GraceDays int    `json:"grace_days,omitempty"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)

	req, ok := httputil.DecodeJSON[createRequest](w, r)
	if !ok {
		return
	}
	animalID, err := id.ParseAnimalID(req.AnimalID)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "animal_id must be a UUID"))
		return
	}
	if req.GraceDays < 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "grace_days cannot be negative"))
		return
	}

	g, err := h.service.CreateGuardianship(ctx, userID, animalID, req.GraceDays)
	if err != nil {
		h.writeServiceError(ctx, w, "create guardianship", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toResponse(g))
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	list, err := h.service.ListForUser(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.writeServiceError(ctx, w, "list guardianships", err)
		return
	}
	out := make([]guardianshipResponse, 0, len(list))
	for _, g := range list {
		out = append(out, toResponse(g))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"guardianships": out})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	g, ok := h.loadOwned(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(g))
}

// HandleCancel completes the guardianship at the guardian's request and
// cancels its recurring charge.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	g, ok := h.loadOwned(w, r)
	if !ok {
		return
	}
	if err := h.service.Complete(ctx, g.ID, true); err != nil {
		h.writeServiceError(ctx, w, "cancel guardianship", err)
		return
	}
	updated, err := h.service.Get(ctx, g.ID)
	if err != nil {
		h.writeServiceError(ctx, w, "reload guardianship", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(updated))
}

// loadOwned fetches the path guardianship and hides other users' records
// behind a 404.
func (h *Handler) loadOwned(w http.ResponseWriter, r *http.Request) (*models.Guardianship, bool) {
	ctx := r.Context()
	guardianshipID, err := id.ParseGuardianshipID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid guardianship id"))
		return nil, false
	}
	g, err := h.service.Get(ctx, guardianshipID)
	if err != nil {
		h.writeServiceError(ctx, w, "get guardianship", err)
		return nil, false
	}
	if g.UserID != requestcontext.UserID(ctx) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "guardianship not found"))
		return nil, false
	}
	return g, true
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "failed to "+op,
			append(requestcontext.LogAttrs(ctx), "error", err)...,
		)
	}
	httputil.WriteError(w, err)
}

type guardianshipResponse struct {
	ID         string     `json:"id"`
	AnimalID   string     `json:"animal_id"`
	Status     string     `json:"status"`
	StartDate  time.Time  `json:"start_date"`
	GraceUntil *time.Time `json:"grace_until,omitempty"`
	Donations  []string   `json:"donation_ids"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func toResponse(g *models.Guardianship) guardianshipResponse {
	donations := make([]string, 0, len(g.Donations))
	for _, link := range g.Donations {
		donations = append(donations, link.DonationID.String())
	}
	return guardianshipResponse{
		ID:         g.ID.String(),
		AnimalID:   g.AnimalID.String(),
		Status:     string(g.Status),
		StartDate:  g.StartDate,
		GraceUntil: g.GraceUntil,
		Donations:  donations,
		UpdatedAt:  g.UpdatedAt,
	}
}
