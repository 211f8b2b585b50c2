package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"pawhaven/internal/platform/metrics"
	"pawhaven/internal/platform/middleware"
	dErrors "pawhaven/pkg/domain-errors"
	"pawhaven/pkg/platform/httputil"
	"pawhaven/pkg/requestcontext"
)

// maxCallbackBody caps provider payloads. Real notifications are a few KB.
const maxCallbackBody = 64 << 10

// CallbackProcessor verifies and applies one provider notification.
type CallbackProcessor interface {
	ProcessCallback(ctx context.Context, data, signature string) bool
}

// Handler serves the payment provider webhook. It is unauthenticated: the
// payload signature is the credential.
type Handler struct {
	processor CallbackProcessor
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func New(processor CallbackProcessor, logger *slog.Logger, metrics *metrics.Metrics) *Handler {
	return &Handler{
		processor: processor,
		logger:    logger,
		metrics:   metrics,
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Use(middleware.Latency(h.metrics))
		r.Post("/payments/callback", h.HandleCallback)
	})
}

type callbackRequest struct {
	Data      string `json:"data"`
	Signature string `json:"signature"`
}

// HandleCallback accepts the provider's form post, or a JSON body with the
// same fields.
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, maxCallbackBody)

	req, err := decodeCallback(r)
	if err != nil {
		h.logger.WarnContext(ctx, "undecodable payment callback",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid callback body"))
		return
	}
	if req.Data == "" || req.Signature == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "data and signature are required"))
		return
	}

	if !h.processor.ProcessCallback(ctx, req.Data, req.Signature) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "callback rejected"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeCallback(r *http.Request) (callbackRequest, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req callbackRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return callbackRequest{}, err
		}
		return req, nil
	}
	if err := r.ParseForm(); err != nil {
		return callbackRequest{}, err
	}
	return callbackRequest{
		Data:      r.PostForm.Get("data"),
		Signature: r.PostForm.Get("signature"),
	}, nil
}
