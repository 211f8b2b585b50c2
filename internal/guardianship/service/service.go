package service

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

	animalmodels "pawhaven/internal/animal/models"
	"pawhaven/internal/guardianship/models"
	"pawhaven/internal/platform/logger"
	"pawhaven/internal/platform/metrics"
	id "pawhaven/pkg/domain"
	dErrors "pawhaven/pkg/domain-errors"
	"pawhaven/pkg/platform/events"
	"pawhaven/pkg/platform/sentinel"
	"pawhaven/pkg/requestcontext"
)

// DefaultGraceDays is the grace period used when callers pass zero.
const DefaultGraceDays = 3

type Store interface {
	CreateIfNoneActive(ctx context.Context, g *models.Guardianship) error
	FindByID(ctx context.Context, guardianshipID id.GuardianshipID) (*models.Guardianship, error)
	FindByIDForUpdate(ctx context.Context, guardianshipID id.GuardianshipID) (*models.Guardianship, error)
	Save(ctx context.Context, g *models.Guardianship) error
	ListGraceExpired(ctx context.Context, now time.Time) ([]*models.Guardianship, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.Guardianship, error)
}

type AnimalStore interface {
	FindByID(ctx context.Context, animalID id.AnimalID) (*animalmodels.Animal, error)
	Update(ctx context.Context, a *animalmodels.Animal) error
}

// SubscriptionCanceler cancels recurring charges scoped to a guardianship.
type SubscriptionCanceler interface {
	CancelForGuardianship(ctx context.Context, guardianshipID id.GuardianshipID) (int, error)
}

// Service orchestrates guardianship transitions and pairs them with the
// animal care flag. Every mutation loads the aggregate for update inside a
// StoreTx so a sweep and a webhook never interleave on one guardianship.
type Service struct {
	store         Store
	animals       AnimalStore
	tx            StoreTx
	subscriptions SubscriptionCanceler
	publisher     events.Publisher
	logger        *slog.Logger
	metrics       *metrics.Metrics
	tracer        trace.Tracer
	graceDays     int
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

// WithSubscriptions enables canceling guardianship-scoped subscriptions on
// completion.
func WithSubscriptions(c SubscriptionCanceler) Option {
	return func(s *Service) {
		s.subscriptions = c
	}
}

func WithDefaultGraceDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.graceDays = days
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

func New(store Store, animals AnimalStore, tx StoreTx, opts ...Option) *Service {
	s := &Service{
		store:     store,
		animals:   animals,
		tx:        tx,
		publisher: events.Noop{},
		logger:    logger.Discard(),
		tracer:    otel.Tracer("pawhaven/guardianship"),
		graceDays: DefaultGraceDays,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateGuardianship opens a guardianship awaiting its first payment.
//
// Errors: CodeValidation (ids), CodeNotFound (animal), CodeConflict (the user
// already has an open guardianship for the animal).
func (s *Service) CreateGuardianship(ctx context.Context, userID id.UserID, animalID id.AnimalID, graceDays int) (*models.Guardianship, error) {
	ctx, span := s.tracer.Start(ctx, "guardianship.Create")
	defer span.End()

	if graceDays <= 0 {
		graceDays = s.graceDays
	}
	now := requestcontext.Now(ctx)
	g, err := models.NewGuardianship(id.GuardianshipID(uuid.New()), userID, animalID, days(graceDays), now)
	if err != nil {
		return nil, fail(span, err)
	}
	if _, err := s.animals.FindByID(ctx, animalID); err != nil {
		return nil, fail(span, translate(err, "animal not found"))
	}
	if err := s.store.CreateIfNoneActive(ctx, g); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, fail(span, dErrors.New(dErrors.CodeConflict, "an active guardianship already exists for this animal"))
		}
		return nil, fail(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create guardianship"))
	}

	span.SetAttributes(attribute.String("guardianship_id", g.ID.String()))
	s.logger.InfoContext(ctx, "guardianship created",
		"guardianship_id", g.ID.String(),
		"user_id", userID.String(),
		"animal_id", animalID.String(),
	)
	s.metrics.IncrementGuardianshipTransition(string(models.StatusRequiresPayment))
	s.emit(ctx, events.GuardianshipCreated, g, nil)
	return g, nil
}

// Get returns a guardianship by id.
func (s *Service) Get(ctx context.Context, guardianshipID id.GuardianshipID) (*models.Guardianship, error) {
	g, err := s.store.FindByID(ctx, guardianshipID)
	if err != nil {
		return nil, translate(err, "guardianship not found")
	}
	return g, nil
}

// ListForUser returns the user's guardianships, oldest first.
func (s *Service) ListForUser(ctx context.Context, userID id.UserID) ([]*models.Guardianship, error) {
	list, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list guardianships")
	}
	return list, nil
}

// ActivateWithFirstPayment links the donation, activates the guardianship and
// marks the animal under care in one transaction. A donation that is already
// linked makes the call a no-op, so replayed webhooks are harmless.
//
// Errors: CodeNotFound (guardianship or animal), CodeInvalidState (completed).
func (s *Service) ActivateWithFirstPayment(ctx context.Context, guardianshipID id.GuardianshipID, donationID id.DonationID) error {
	ctx, span := s.tracer.Start(ctx, "guardianship.ActivateWithFirstPayment", trace.WithAttributes(
		attribute.String("guardianship_id", guardianshipID.String()),
		attribute.String("donation_id", donationID.String()),
	))
	defer span.End()

	now := requestcontext.Now(ctx)
	var (
		activated bool
		result    *models.Guardianship
	)
	err := s.tx.RunInTx(withTxKey(ctx, guardianshipID), func(stores TxStores) error {
		g, err := stores.Guardianships.FindByIDForUpdate(ctx, guardianshipID)
		if err != nil {
			return translate(err, "guardianship not found")
		}
		if g.HasDonation(donationID) {
			return nil
		}
		wasActive := g.IsActive()
		if err := g.AddDonation(donationID, now); err != nil {
			return err
		}
		if err := g.Activate(now); err != nil {
			return err
		}
		animal, err := stores.Animals.FindByID(ctx, g.AnimalID)
		if err != nil {
			return translate(err, "animal not found")
		}
		if animal.SetUnderCare(true, now) {
			if err := stores.Animals.Update(ctx, animal); err != nil {
				return translate(err, "failed to update animal")
			}
		}
		if err := stores.Guardianships.Save(ctx, g); err != nil {
			return translate(err, "failed to save guardianship")
		}
		activated = !wasActive
		result = g
		return nil
	})
	if err != nil {
		return fail(span, err)
	}
	if result == nil {
		s.logger.InfoContext(ctx, "donation already linked to guardianship",
			"guardianship_id", guardianshipID.String(),
			"donation_id", donationID.String(),
		)
		return nil
	}

	s.logger.InfoContext(ctx, "guardianship payment linked",
		"guardianship_id", guardianshipID.String(),
		"donation_id", donationID.String(),
		"activated", activated,
	)
	if activated {
		s.metrics.IncrementGuardianshipTransition(string(models.StatusActive))
		s.emit(ctx, events.GuardianshipActivated, result, map[string]string{"donation_id": donationID.String()})
	}
	return nil
}

// RequirePayment reopens a grace window, e.g. after a failed recurring charge.
// A completed guardianship is left untouched.
func (s *Service) RequirePayment(ctx context.Context, guardianshipID id.GuardianshipID, graceDays int) error {
	ctx, span := s.tracer.Start(ctx, "guardianship.RequirePayment", trace.WithAttributes(
		attribute.String("guardianship_id", guardianshipID.String()),
	))
	defer span.End()

	if graceDays <= 0 {
		graceDays = s.graceDays
	}
	now := requestcontext.Now(ctx)
	var result *models.Guardianship
	err := s.tx.RunInTx(withTxKey(ctx, guardianshipID), func(stores TxStores) error {
		g, err := stores.Guardianships.FindByIDForUpdate(ctx, guardianshipID)
		if err != nil {
			return translate(err, "guardianship not found")
		}
		if g.IsCompleted() {
			return nil
		}
		if err := g.RequirePayment(days(graceDays), now); err != nil {
			return err
		}
		if err := stores.Guardianships.Save(ctx, g); err != nil {
			return translate(err, "failed to save guardianship")
		}
		result = g
		return nil
	})
	if err != nil {
		return fail(span, err)
	}
	if result == nil {
		s.logger.InfoContext(ctx, "guardianship already completed; payment requirement skipped",
			"guardianship_id", guardianshipID.String(),
		)
		return nil
	}

	s.logger.InfoContext(ctx, "guardianship requires payment",
		"guardianship_id", guardianshipID.String(),
		"grace_until", result.GraceUntil,
	)
	s.metrics.IncrementGuardianshipTransition(string(models.StatusRequiresPayment))
	s.emit(ctx, events.GuardianshipPaymentRequired, result, nil)
	return nil
}

// Complete ends the guardianship and releases the animal's care flag. With
// cancelSubscription set, subscriptions scoped to the guardianship are
// canceled afterwards; failures there are logged only.
func (s *Service) Complete(ctx context.Context, guardianshipID id.GuardianshipID, cancelSubscription bool) error {
	ctx, span := s.tracer.Start(ctx, "guardianship.Complete", trace.WithAttributes(
		attribute.String("guardianship_id", guardianshipID.String()),
	))
	defer span.End()

	now := requestcontext.Now(ctx)
	var result *models.Guardianship
	err := s.tx.RunInTx(withTxKey(ctx, guardianshipID), func(stores TxStores) error {
		g, err := stores.Guardianships.FindByIDForUpdate(ctx, guardianshipID)
		if err != nil {
			return translate(err, "guardianship not found")
		}
		if g.IsCompleted() {
			return nil
		}
		if err := s.completeLocked(ctx, stores, g, now); err != nil {
			return err
		}
		result = g
		return nil
	})
	if err != nil {
		return fail(span, err)
	}
	if result != nil {
		s.logger.InfoContext(ctx, "guardianship completed",
			"guardianship_id", guardianshipID.String(),
			"reason", "canceled",
		)
		s.metrics.IncrementGuardianshipTransition(string(models.StatusCompleted))
		s.emit(ctx, events.GuardianshipCompleted, result, map[string]string{"reason": "canceled"})
	}
	if cancelSubscription {
		s.cancelSubscriptions(ctx, guardianshipID)
	}
	return nil
}

// AutoCompleteExpired completes every guardianship whose grace window ended
// before now. Each candidate is re-checked under lock so a payment that
// landed after the listing wins. Per-item failures are logged and skipped.
func (s *Service) AutoCompleteExpired(ctx context.Context, now time.Time) (int, error) {
	ctx, span := s.tracer.Start(ctx, "guardianship.AutoCompleteExpired")
	defer span.End()
	started := time.Now()

	candidates, err := s.store.ListGraceExpired(ctx, now)
	if err != nil {
		return 0, fail(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list expired guardianships"))
	}

	completed, failed := 0, 0
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			s.logger.WarnContext(ctx, "grace expiry sweep interrupted",
				"completed", completed,
				"remaining", len(candidates)-completed-failed,
			)
			break
		}
		var result *models.Guardianship
		err := s.tx.RunInTx(withTxKey(ctx, candidate.ID), func(stores TxStores) error {
			g, err := stores.Guardianships.FindByIDForUpdate(ctx, candidate.ID)
			if err != nil {
				return translate(err, "guardianship not found")
			}
			if !g.GraceExpired(now) {
				return nil
			}
			if err := s.completeLocked(ctx, stores, g, now); err != nil {
				return err
			}
			result = g
			return nil
		})
		if err != nil {
			failed++
			s.logger.ErrorContext(ctx, "failed to auto-complete guardianship",
				"guardianship_id", candidate.ID.String(),
				"error", err,
			)
			continue
		}
		if result == nil {
			continue
		}
		completed++
		s.logger.InfoContext(ctx, "guardianship completed",
			"guardianship_id", result.ID.String(),
			"reason", "grace_expired",
		)
		s.metrics.IncrementGuardianshipTransition(string(models.StatusCompleted))
		s.emit(ctx, events.GuardianshipCompleted, result, map[string]string{"reason": "grace_expired"})
		s.cancelSubscriptions(ctx, result.ID)
	}

	span.SetAttributes(attribute.Int("completed", completed), attribute.Int("failed", failed))
	s.metrics.ObserveSweep("guardianship_expiry", completed, failed, time.Since(started).Seconds())
	return completed, nil
}

// completeLocked completes g and unmarks its animal. The animal may have been
// removed from the catalog; that does not block completion.
func (s *Service) completeLocked(ctx context.Context, stores TxStores, g *models.Guardianship, now time.Time) error {
	g.Complete(now)
	animal, err := stores.Animals.FindByID(ctx, g.AnimalID)
	switch {
	case err == nil:
		if animal.SetUnderCare(false, now) {
			if err := stores.Animals.Update(ctx, animal); err != nil {
				return translate(err, "failed to update animal")
			}
		}
	case errors.Is(err, sentinel.ErrNotFound):
		s.logger.WarnContext(ctx, "animal missing while completing guardianship",
			"guardianship_id", g.ID.String(),
			"animal_id", g.AnimalID.String(),
		)
	default:
		return translate(err, "failed to load animal")
	}
	if err := stores.Guardianships.Save(ctx, g); err != nil {
		return translate(err, "failed to save guardianship")
	}
	return nil
}

func (s *Service) cancelSubscriptions(ctx context.Context, guardianshipID id.GuardianshipID) {
	if s.subscriptions == nil {
		return
	}
	n, err := s.subscriptions.CancelForGuardianship(ctx, guardianshipID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to cancel guardianship subscriptions",
			"guardianship_id", guardianshipID.String(),
			"error", err,
		)
		return
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "guardianship subscriptions canceled",
			"guardianship_id", guardianshipID.String(),
			"count", n,
		)
	}
}

func (s *Service) emit(ctx context.Context, t events.Type, g *models.Guardianship, attrs map[string]string) {
	if attrs == nil {
		attrs = map[string]string{}
	}
	attrs["animal_id"] = g.AnimalID.String()
	attrs["status"] = string(g.Status)
	event := events.Event{
		Type:       t,
		Key:        g.ID.String(),
		UserID:     g.UserID.String(),
		OccurredAt: g.UpdatedAt,
		Attributes: attrs,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish lifecycle event",
			"event_type", string(t),
			"guardianship_id", g.ID.String(),
			"error", err,
		)
	}
}

// translate maps store sentinels to coded errors and passes coded errors
// through unchanged.
func translate(err error, msg string) error {
	var coded *dErrors.Error
	switch {
	case errors.As(err, &coded):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, msg)
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "guardianship was modified concurrently")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}
