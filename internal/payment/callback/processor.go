// Package callback verifies and decodes payment provider webhooks and hands
// them to reconciliation.
package callback

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"pawhaven/internal/payment/reconciliation"
	"pawhaven/internal/platform/logger"
	"pawhaven/internal/platform/metrics"
	dErrors "pawhaven/pkg/domain-errors"
)

const (
	defaultStatus   = "pending"
	defaultCurrency = "UAH"
)

type Reconciler interface {
	RecordChargeSuccess(ctx context.Context, c reconciliation.Charge) (*reconciliation.Result, error)
	RecordChargeFailed(ctx context.Context, c reconciliation.Charge) (*reconciliation.Result, error)
}

// Notification is the decoded provider payload.
type Notification struct {
	Status        string
	TransactionID string
	Amount        float64
	Currency      string
	OrderID       string
}

// Processor handles callbacks for one provider and shared secret.
type Processor struct {
	provider   string
	secret     string
	reconciler Reconciler
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type Option func(*Processor)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Processor) {
		p.metrics = m
	}
}

func New(provider, secret string, reconciler Reconciler, opts ...Option) *Processor {
	p := &Processor{
		provider:   provider,
		secret:     secret,
		reconciler: reconciler,
		logger:     logger.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessCallback verifies, decodes and dispatches one webhook. It returns
// false when the provider should redeliver: bad signature, undecodable
// payload or order id, or a reconciliation failure. Pending and other
// intermediate statuses are acknowledged without state changes.
func (p *Processor) ProcessCallback(ctx context.Context, data, signature string) bool {
	if !Verify(p.secret, data, signature) {
		p.logger.WarnContext(ctx, "payment callback signature mismatch", "provider", p.provider)
		p.metrics.IncrementCallback("invalid_signature")
		return false
	}

	n, err := DecodeNotification(data)
	if err != nil {
		p.logger.ErrorContext(ctx, "payment callback payload undecodable", "provider", p.provider, "error", err)
		p.metrics.IncrementCallback("invalid_payload")
		return false
	}

	ref, err := ParseOrderID(n.OrderID)
	if err != nil {
		p.logger.ErrorContext(ctx, "payment callback order id malformed",
			"provider", p.provider,
			"order_id", n.OrderID,
			"transaction_id", n.TransactionID,
			"error", err,
		)
		p.metrics.IncrementCallback("invalid_order_id")
		return false
	}

	charge := reconciliation.Charge{
		Provider:      p.provider,
		TransactionID: n.TransactionID,
		Amount:        n.Amount,
		Currency:      n.Currency,
		TargetKind:    ref.Kind,
		TargetID:      ref.EntityID,
		Recurring:     ref.Recurring,
		Anonymous:     ref.Anonymous,
		UserID:        ref.UserID,
	}

	switch n.Status {
	case "success":
		_, err = p.reconciler.RecordChargeSuccess(ctx, charge)
	case "failure", "error":
		_, err = p.reconciler.RecordChargeFailed(ctx, charge)
	default:
		p.logger.InfoContext(ctx, "payment callback status not actionable",
			"status", n.Status,
			"transaction_id", n.TransactionID,
			"order_id", n.OrderID,
		)
		p.metrics.IncrementCallback("ignored")
		return true
	}
	if err != nil {
		p.logger.ErrorContext(ctx, "payment reconciliation failed",
			"status", n.Status,
			"transaction_id", n.TransactionID,
			"error_code", string(dErrors.CodeOf(err)),
			"error", err,
		)
		p.metrics.IncrementCallback("reconciliation_failed")
		return false
	}
	p.metrics.IncrementCallback("ok")
	return true
}

// DecodeNotification decodes the base64 JSON payload. Numbers are kept
// exact; amount may arrive as a number or a numeric string.
func DecodeNotification(data string) (Notification, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(data))
	if err != nil {
		return Notification{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "payload is not base64")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return Notification{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "payload is not a JSON object")
	}

	n := Notification{
		Status:   strings.ToLower(field(payload, "status")),
		Currency: strings.ToUpper(field(payload, "currency")),
		OrderID:  field(payload, "order_id"),
	}
	if n.Status == "" {
		n.Status = defaultStatus
	}
	if n.Currency == "" {
		n.Currency = defaultCurrency
	}
	for _, key := range []string{"transaction_id", "payment_id", "order_id"} {
		if v := field(payload, key); v != "" {
			n.TransactionID = v
			break
		}
	}
	if v := field(payload, "amount"); v != "" {
		amount, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Notification{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "amount is not numeric")
		}
		if math.IsNaN(amount) || math.IsInf(amount, 0) {
			return Notification{}, dErrors.New(dErrors.CodeBadRequest, "amount is not finite")
		}
		n.Amount = amount
	}
	return n, nil
}

// EncodeNotification builds a payload the way the provider does. Used by
// checkout tooling and tests.
func EncodeNotification(fields map[string]any) (string, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func field(payload map[string]any, key string) string {
	switch v := payload[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}
