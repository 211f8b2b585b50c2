// Package reconciliation turns verified payment notifications into ledger
// state: a Donation per delivery, the guardianship transition it implies and,
// for recurring charges, the subscription behind it.
package reconciliation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"pawhaven/internal/donation/models"
	"pawhaven/internal/platform/logger"
	"pawhaven/internal/platform/metrics"
	submodels "pawhaven/internal/subscription/models"
	subservice "pawhaven/internal/subscription/service"
	id "pawhaven/pkg/domain"
	dErrors "pawhaven/pkg/domain-errors"
	"pawhaven/pkg/platform/events"
	"pawhaven/pkg/platform/sentinel"
	"pawhaven/pkg/requestcontext"
)

// FailedChargeGraceDays is the grace window reopened after a failed charge.
const FailedChargeGraceDays = 3

type DonationStore interface {
	Create(ctx context.Context, d *models.Donation) error
	FindByTransaction(ctx context.Context, provider, transactionID string, status models.Status) (*models.Donation, error)
}

type PaymentMethodResolver interface {
	RequirePaymentMethodIDByProvider(ctx context.Context, provider string) (id.PaymentMethodID, error)
}

type Guardianships interface {
	ActivateWithFirstPayment(ctx context.Context, guardianshipID id.GuardianshipID, donationID id.DonationID) error
	RequirePayment(ctx context.Context, guardianshipID id.GuardianshipID, graceDays int) error
}

type Subscriptions interface {
	CreateFromCharge(ctx context.Context, c subservice.ChargeSubscription) (*submodels.PaymentSubscription, error)
}

// Charge is a provider notification after signature and order id checks.
type Charge struct {
	Provider      string
	TransactionID string
	Amount        float64
	Currency      string
	TargetKind    id.TargetKind
	TargetID      *uuid.UUID
	Recurring     bool
	Anonymous     bool
	UserID        *id.UserID
}

func (c Charge) guardianshipID() (id.GuardianshipID, bool) {
	if c.TargetKind != id.TargetGuardianship || c.TargetID == nil || *c.TargetID == uuid.Nil {
		return id.GuardianshipID{}, false
	}
	return id.GuardianshipID(*c.TargetID), true
}

// Result reports what a reconciliation call did.
type Result struct {
	Donation  *models.Donation
	Duplicate bool
}

type Service struct {
	donations     DonationStore
	methods       PaymentMethodResolver
	guardianships Guardianships
	subscriptions Subscriptions
	publisher     events.Publisher
	logger        *slog.Logger
	metrics       *metrics.Metrics
	tracer        trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

func New(donations DonationStore, methods PaymentMethodResolver, guardianships Guardianships, subscriptions Subscriptions, opts ...Option) *Service {
	s := &Service{
		donations:     donations,
		methods:       methods,
		guardianships: guardianships,
		subscriptions: subscriptions,
		publisher:     events.Noop{},
		logger:        logger.Discard(),
		tracer:        otel.Tracer("pawhaven/reconciliation"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordChargeSuccess writes a completed Donation and applies its effects.
//
// The Donation is durable before any side effect runs. A guardianship failure
// is returned so the provider redelivers; the redelivery finds the existing
// Donation and only retries the (idempotent) guardianship step. Subscription
// provisioning is best effort and skipped for redeliveries.
func (s *Service) RecordChargeSuccess(ctx context.Context, c Charge) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "reconciliation.RecordChargeSuccess", trace.WithAttributes(
		attribute.String("provider", c.Provider),
		attribute.String("transaction_id", c.TransactionID),
		attribute.String("target", string(c.TargetKind)),
	))
	defer span.End()

	res, err := s.record(ctx, c, models.StatusCompleted)
	if err != nil {
		return nil, fail(span, err)
	}
	d := res.Donation

	if gid, ok := c.guardianshipID(); ok {
		if err := s.guardianships.ActivateWithFirstPayment(ctx, gid, d.ID); err != nil {
			s.logger.ErrorContext(ctx, "failed to activate guardianship for payment",
				"guardianship_id", gid.String(),
				"donation_id", d.ID.String(),
				"transaction_id", c.TransactionID,
				"error", err,
			)
			return res, fail(span, err)
		}
	}

	if res.Duplicate {
		return res, nil
	}
	if c.Recurring && c.UserID != nil {
		s.provisionSubscription(ctx, c, d.DonationDate)
	}
	return res, nil
}

// RecordChargeFailed writes a failed Donation and, for guardianship targets,
// reopens the grace window. The guardianship step is best effort; a
// redelivered failure does not extend the window again.
func (s *Service) RecordChargeFailed(ctx context.Context, c Charge) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "reconciliation.RecordChargeFailed", trace.WithAttributes(
		attribute.String("provider", c.Provider),
		attribute.String("transaction_id", c.TransactionID),
		attribute.String("target", string(c.TargetKind)),
	))
	defer span.End()

	res, err := s.record(ctx, c, models.StatusFailed)
	if err != nil {
		return nil, fail(span, err)
	}
	if res.Duplicate {
		return res, nil
	}
	if gid, ok := c.guardianshipID(); ok {
		if err := s.guardianships.RequirePayment(ctx, gid, FailedChargeGraceDays); err != nil {
			s.logger.WarnContext(ctx, "failed to require payment after failed charge",
				"guardianship_id", gid.String(),
				"transaction_id", c.TransactionID,
				"error", err,
			)
		}
	}
	return res, nil
}

// record validates the charge and writes its Donation, or returns the one a
// previous delivery wrote.
func (s *Service) record(ctx context.Context, c Charge, status models.Status) (*Result, error) {
	if err := id.ValidateAmount("charge amount", c.Amount); err != nil {
		return nil, err
	}
	if c.TargetKind != "" && !c.TargetKind.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown donation target")
	}
	methodID, err := s.methods.RequirePaymentMethodIDByProvider(ctx, c.Provider)
	if err != nil {
		return nil, err
	}

	var donor *id.UserID
	if c.UserID != nil && !c.Anonymous {
		u := *c.UserID
		donor = &u
	}
	var target *models.Target
	if c.TargetKind != "" {
		target = &models.Target{Kind: c.TargetKind}
	}
	d, err := models.NewDonation(id.DonationID(uuid.New()), models.NewDonationParams{
		UserID:          donor,
		Amount:          c.Amount,
		Currency:        c.Currency,
		Status:          status,
		Provider:        c.Provider,
		PaymentMethodID: methodID,
		TransactionID:   c.TransactionID,
		Purpose:         models.Purpose(target),
		Recurring:       c.Recurring,
		Anonymous:       c.Anonymous,
	}, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if target != nil {
		if err := d.SetTarget(c.TargetKind, c.TargetID); err != nil {
			return nil, err
		}
	}

	err = s.donations.Create(ctx, d)
	switch {
	case err == nil:
		s.logger.InfoContext(ctx, "donation recorded",
			"donation_id", d.ID.String(),
			"transaction_id", c.TransactionID,
			"status", string(status),
			"amount", d.Amount,
			"currency", d.Currency,
			"purpose", d.Purpose,
		)
		s.metrics.IncrementDonation(string(status), targetLabel(c.TargetKind))
		s.emit(ctx, d)
		return &Result{Donation: d}, nil
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		existing, findErr := s.donations.FindByTransaction(ctx, c.Provider, c.TransactionID, status)
		if findErr != nil {
			return nil, dErrors.Wrap(findErr, dErrors.CodeInternal, "failed to load recorded donation")
		}
		s.logger.InfoContext(ctx, "duplicate payment delivery",
			"donation_id", existing.ID.String(),
			"transaction_id", c.TransactionID,
			"status", string(status),
		)
		s.metrics.IncrementDuplicateDelivery()
		return &Result{Donation: existing, Duplicate: true}, nil
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record donation")
	}
}

func (s *Service) provisionSubscription(ctx context.Context, c Charge, chargedAt time.Time) {
	scope := submodels.ScopeForTarget(c.TargetKind)
	var scopeID *uuid.UUID
	if scope != submodels.ScopeGlobal && c.TargetID != nil {
		v := *c.TargetID
		scopeID = &v
	}
	sub, err := s.subscriptions.CreateFromCharge(ctx, subservice.ChargeSubscription{
		UserID:        *c.UserID,
		Provider:      c.Provider,
		TransactionID: c.TransactionID,
		Scope:         scope,
		ScopeID:       scopeID,
		Amount:        c.Amount,
		Currency:      c.Currency,
		ChargedAt:     chargedAt,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to provision recurring subscription",
			"transaction_id", c.TransactionID,
			"user_id", c.UserID.String(),
			"scope", string(scope),
			"error", err,
		)
		return
	}
	s.logger.InfoContext(ctx, "recurring subscription provisioned",
		"subscription_id", sub.ID.String(),
		"provider_subscription_id", sub.ProviderSubscriptionID,
	)
}

func (s *Service) emit(ctx context.Context, d *models.Donation) {
	attrs := map[string]string{
		"status":  string(d.Status),
		"purpose": d.Purpose,
	}
	if d.Target != nil {
		attrs["target"] = string(d.Target.Kind)
		if d.Target.ID != nil {
			attrs["target_id"] = d.Target.ID.String()
		}
	}
	var userID string
	if d.UserID != nil {
		userID = d.UserID.String()
	}
	if err := s.publisher.Publish(ctx, events.Event{
		Type:       events.DonationRecorded,
		Key:        d.ID.String(),
		UserID:     userID,
		OccurredAt: d.DonationDate,
		Attributes: attrs,
	}); err != nil {
		s.logger.WarnContext(ctx, "failed to publish donation event",
			"donation_id", d.ID.String(),
			"error", err,
		)
	}
}

func targetLabel(kind id.TargetKind) string {
	if kind == "" {
		return "none"
	}
	return string(kind)
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
