package service

import (
	"context"
	"errors"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	guardianshipmodels "pawhaven/internal/guardianship/models"
	"pawhaven/internal/platform/logger"
	"pawhaven/internal/platform/metrics"
	"pawhaven/internal/subscription/models"
	id "pawhaven/pkg/domain"
	dErrors "pawhaven/pkg/domain-errors"
	"pawhaven/pkg/platform/events"
	"pawhaven/pkg/platform/sentinel"
	"pawhaven/pkg/requestcontext"
)

// OverdueTolerance is how long past its next charge an active subscription
// may go before the sweep cancels it.
const OverdueTolerance = 3 * 24 * time.Hour

// PendingPrefix marks provider subscription ids generated locally before the
// provider assigns a real one.
const PendingPrefix = "pending_"

type Store interface {
	Create(ctx context.Context, sub *models.PaymentSubscription) error
	Update(ctx context.Context, sub *models.PaymentSubscription) error
	FindByProviderSubscriptionID(ctx context.Context, provider, providerSubscriptionID string) (*models.PaymentSubscription, error)
	FindActiveForUser(ctx context.Context, userID id.UserID, scope models.Scope, scopeID *uuid.UUID) (*models.PaymentSubscription, error)
	ListByScope(ctx context.Context, scope models.Scope, scopeID uuid.UUID) ([]*models.PaymentSubscription, error)
	ListActive(ctx context.Context) ([]*models.PaymentSubscription, error)
}

type PaymentMethodResolver interface {
	RequirePaymentMethodIDByProvider(ctx context.Context, provider string) (id.PaymentMethodID, error)
}

// GuardianshipFinder loads the guardianship a subscription is scoped to.
type GuardianshipFinder interface {
	FindByID(ctx context.Context, guardianshipID id.GuardianshipID) (*guardianshipmodels.Guardianship, error)
}

// Service manages recurring payment subscriptions. Mutations of one
// subscription are serialized in-process by a striped lock on its provider
// id; charge provisioning for a user also holds a user stripe, always taken
// before the subscription stripe.
type Service struct {
	store     Store
	methods   PaymentMethodResolver
	provider  string
	publisher events.Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
	guards    GuardianshipFinder
	userLocks stripes
	subLocks  stripes
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

// WithGuardianships enables guardianship-scoped subscriptions. Without it
// CreateForGuardianship reports every guardianship as not found.
func WithGuardianships(f GuardianshipFinder) Option {
	return func(s *Service) {
		s.guards = f
	}
}

// New builds the service. provider is the gateway used for subscriptions
// created through the API.
func New(store Store, methods PaymentMethodResolver, provider string, opts ...Option) *Service {
	s := &Service{
		store:     store,
		methods:   methods,
		provider:  provider,
		publisher: events.Noop{},
		logger:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) CreateForGuardianship(ctx context.Context, userID id.UserID, guardianshipID id.GuardianshipID, amount float64, currency string) (*models.PaymentSubscription, error) {
	if guardianshipID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "guardianship id is required")
	}
	if err := s.requireOpenGuardianship(ctx, userID, guardianshipID); err != nil {
		return nil, err
	}
	scopeID := uuid.UUID(guardianshipID)
	return s.createPending(ctx, userID, models.ScopeGuardianship, &scopeID, amount, currency)
}

// requireOpenGuardianship hides guardianships the user does not own, and
// completed ones, behind the same not-found error.
func (s *Service) requireOpenGuardianship(ctx context.Context, userID id.UserID, guardianshipID id.GuardianshipID) error {
	notFound := dErrors.New(dErrors.CodeNotFound, "guardianship not found")
	if s.guards == nil {
		return notFound
	}
	g, err := s.guards.FindByID(ctx, guardianshipID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return notFound
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load guardianship")
	}
	if g.UserID != userID || g.IsCompleted() {
		return notFound
	}
	return nil
}

func (s *Service) CreateGlobal(ctx context.Context, userID id.UserID, amount float64, currency string) (*models.PaymentSubscription, error) {
	return s.createPending(ctx, userID, models.ScopeGlobal, nil, amount, currency)
}

// CreateForAidRequest subscribes to an aid request. aidRequestID may be nil
// when the checkout did not carry one.
func (s *Service) CreateForAidRequest(ctx context.Context, userID id.UserID, aidRequestID *uuid.UUID, amount float64, currency string) (*models.PaymentSubscription, error) {
	return s.createPending(ctx, userID, models.ScopeAidRequest, aidRequestID, amount, currency)
}

func (s *Service) createPending(ctx context.Context, userID id.UserID, scope models.Scope, scopeID *uuid.UUID, amount float64, currency string) (*models.PaymentSubscription, error) {
	if err := id.ValidateAmount("subscription amount", amount); err != nil {
		return nil, err
	}
	methodID, err := s.methods.RequirePaymentMethodIDByProvider(ctx, s.provider)
	if err != nil {
		return nil, err
	}
	sub, err := models.NewPaymentSubscription(id.SubscriptionID(uuid.New()), models.NewSubscriptionParams{
		UserID:                 userID,
		PaymentMethodID:        methodID,
		Scope:                  scope,
		ScopeID:                scopeID,
		Amount:                 amount,
		Currency:               currency,
		Provider:               s.provider,
		ProviderSubscriptionID: PendingPrefix + uuid.NewString(),
	}, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, sub); err != nil {
		return nil, translate(err, "failed to create subscription")
	}
	s.created(ctx, sub)
	return sub, nil
}

// ChargeSubscription describes a recurring charge reported by the provider.
type ChargeSubscription struct {
	UserID        id.UserID
	Provider      string
	TransactionID string
	Scope         models.Scope
	ScopeID       *uuid.UUID
	Amount        float64
	Currency      string
	ChargedAt     time.Time
}

// CreateFromCharge provisions the subscription behind a successful recurring
// charge. When the user already has an active subscription for the scope the
// charge is recorded on it instead; a replayed transaction returns the
// subscription it created the first time.
func (s *Service) CreateFromCharge(ctx context.Context, c ChargeSubscription) (*models.PaymentSubscription, error) {
	if err := id.ValidateAmount("subscription amount", c.Amount); err != nil {
		return nil, err
	}
	if c.TransactionID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "transaction id is required")
	}
	unlock := s.userLocks.lock(c.Provider + "|" + c.UserID.String())
	defer unlock()

	if existing, err := s.store.FindByProviderSubscriptionID(ctx, c.Provider, c.TransactionID); err == nil {
		return existing, nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, translate(err, "failed to look up subscription")
	}

	existing, err := s.store.FindActiveForUser(ctx, c.UserID, c.Scope, c.ScopeID)
	switch {
	case err == nil:
		return s.recordCharge(ctx, existing, c)
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, translate(err, "failed to look up subscription")
	}

	methodID, err := s.methods.RequirePaymentMethodIDByProvider(ctx, c.Provider)
	if err != nil {
		return nil, err
	}
	sub, err := models.NewPaymentSubscription(id.SubscriptionID(uuid.New()), models.NewSubscriptionParams{
		UserID:                 c.UserID,
		PaymentMethodID:        methodID,
		Scope:                  c.Scope,
		ScopeID:                c.ScopeID,
		Amount:                 c.Amount,
		Currency:               c.Currency,
		Provider:               c.Provider,
		ProviderSubscriptionID: c.TransactionID,
	}, c.ChargedAt)
	if err != nil {
		return nil, err
	}
	if err := sub.RecordCharge(c.ChargedAt); err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, sub); err != nil {
		return nil, translate(err, "failed to create subscription")
	}
	s.created(ctx, sub)
	return sub, nil
}

// recordCharge applies the charge to a reloaded copy under the subscription
// stripe, so a cancel that landed after the lookup is not overwritten.
func (s *Service) recordCharge(ctx context.Context, found *models.PaymentSubscription, c ChargeSubscription) (*models.PaymentSubscription, error) {
	var charged *models.PaymentSubscription
	err := s.mutateProvider(ctx, found.Provider, found.ProviderSubscriptionID, "", func(sub *models.PaymentSubscription, _ time.Time) (bool, error) {
		if err := sub.RecordCharge(c.ChargedAt); err != nil {
			return false, err
		}
		charged = sub
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "recurring charge recorded",
		"provider_subscription_id", charged.ProviderSubscriptionID,
		"transaction_id", c.TransactionID,
	)
	return charged, nil
}

// Get returns the subscription for a provider subscription id of the
// configured provider.
func (s *Service) Get(ctx context.Context, providerSubscriptionID string) (*models.PaymentSubscription, error) {
	sub, err := s.store.FindByProviderSubscriptionID(ctx, s.provider, providerSubscriptionID)
	if err != nil {
		return nil, translate(err, "subscription not found")
	}
	return sub, nil
}

// Cancel is idempotent: canceling a canceled subscription succeeds.
func (s *Service) Cancel(ctx context.Context, providerSubscriptionID string) error {
	return s.mutate(ctx, providerSubscriptionID, events.SubscriptionCanceled, func(sub *models.PaymentSubscription, now time.Time) (bool, error) {
		if sub.Status == models.StatusCanceled {
			return false, nil
		}
		sub.Cancel(now)
		return true, nil
	})
}

func (s *Service) Pause(ctx context.Context, providerSubscriptionID string) error {
	return s.mutate(ctx, providerSubscriptionID, events.SubscriptionPaused, func(sub *models.PaymentSubscription, now time.Time) (bool, error) {
		return true, sub.Pause(now)
	})
}

func (s *Service) Resume(ctx context.Context, providerSubscriptionID string) error {
	return s.mutate(ctx, providerSubscriptionID, events.SubscriptionResumed, func(sub *models.PaymentSubscription, now time.Time) (bool, error) {
		return true, sub.Resume(now)
	})
}

// CancelForGuardianship cancels every live subscription scoped to the
// guardianship and returns how many were canceled.
func (s *Service) CancelForGuardianship(ctx context.Context, guardianshipID id.GuardianshipID) (int, error) {
	subs, err := s.store.ListByScope(ctx, models.ScopeGuardianship, uuid.UUID(guardianshipID))
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list guardianship subscriptions")
	}
	canceled := 0
	var firstErr error
	for _, sub := range subs {
		if err := s.cancelRecord(ctx, sub.Provider, sub.ProviderSubscriptionID); err != nil {
			s.logger.ErrorContext(ctx, "failed to cancel subscription",
				"provider_subscription_id", sub.ProviderSubscriptionID,
				"guardianship_id", guardianshipID.String(),
				"error", err,
			)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		canceled++
	}
	return canceled, firstErr
}

// CancelExpired cancels active subscriptions whose next charge is more than
// OverdueTolerance in the past. Per-item failures are logged and skipped.
func (s *Service) CancelExpired(ctx context.Context, now time.Time) (int, error) {
	started := time.Now()
	subs, err := s.store.ListActive(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list active subscriptions")
	}
	canceled, failed := 0, 0
	for _, sub := range subs {
		if !sub.IsOverdue(now, OverdueTolerance) {
			continue
		}
		if err := ctx.Err(); err != nil {
			s.logger.WarnContext(ctx, "overdue subscription sweep interrupted", "canceled", canceled)
			break
		}
		if err := s.cancelRecord(requestcontext.WithTime(ctx, now), sub.Provider, sub.ProviderSubscriptionID); err != nil {
			failed++
			s.logger.ErrorContext(ctx, "failed to cancel overdue subscription",
				"provider_subscription_id", sub.ProviderSubscriptionID,
				"error", err,
			)
			continue
		}
		canceled++
		s.logger.InfoContext(ctx, "overdue subscription canceled",
			"provider_subscription_id", sub.ProviderSubscriptionID,
			"next_charge_at", sub.NextChargeAt,
		)
	}
	s.metrics.ObserveSweep("subscription_overdue", canceled, failed, time.Since(started).Seconds())
	return canceled, nil
}

func (s *Service) cancelRecord(ctx context.Context, provider, providerSubscriptionID string) error {
	return s.mutateProvider(ctx, provider, providerSubscriptionID, events.SubscriptionCanceled, func(sub *models.PaymentSubscription, now time.Time) (bool, error) {
		if sub.Status == models.StatusCanceled {
			return false, nil
		}
		sub.Cancel(now)
		return true, nil
	})
}

type mutation func(sub *models.PaymentSubscription, now time.Time) (changed bool, err error)

func (s *Service) mutate(ctx context.Context, providerSubscriptionID string, event events.Type, fn mutation) error {
	return s.mutateProvider(ctx, s.provider, providerSubscriptionID, event, fn)
}

// mutateProvider reloads the subscription under its stripe lock, applies fn
// and saves when fn reports a change. An empty event skips the transition
// metric and the lifecycle event.
func (s *Service) mutateProvider(ctx context.Context, provider, providerSubscriptionID string, event events.Type, fn mutation) error {
	unlock := s.subLocks.lock(provider + "|" + providerSubscriptionID)
	defer unlock()

	sub, err := s.store.FindByProviderSubscriptionID(ctx, provider, providerSubscriptionID)
	if err != nil {
		return translate(err, "subscription not found")
	}
	changed, err := fn(sub, requestcontext.Now(ctx))
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	if err := s.store.Update(ctx, sub); err != nil {
		return translate(err, "failed to update subscription")
	}
	if event == "" {
		return nil
	}
	s.metrics.IncrementSubscriptionTransition(string(sub.Status))
	s.emit(ctx, event, sub)
	return nil
}

type stripes [32]sync.Mutex

func (st *stripes) lock(key string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	m := &st[h.Sum32()%uint32(len(st))]
	m.Lock()
	return m.Unlock
}

func (s *Service) created(ctx context.Context, sub *models.PaymentSubscription) {
	s.logger.InfoContext(ctx, "subscription created",
		"subscription_id", sub.ID.String(),
		"provider_subscription_id", sub.ProviderSubscriptionID,
		"scope", string(sub.Scope),
		"user_id", sub.UserID.String(),
	)
	s.metrics.IncrementSubscriptionTransition(string(sub.Status))
	s.emit(ctx, events.SubscriptionCreated, sub)
}

func (s *Service) emit(ctx context.Context, t events.Type, sub *models.PaymentSubscription) {
	attrs := map[string]string{
		"scope":                    string(sub.Scope),
		"status":                   string(sub.Status),
		"provider_subscription_id": sub.ProviderSubscriptionID,
	}
	if sub.ScopeID != nil {
		attrs["scope_id"] = sub.ScopeID.String()
	}
	err := s.publisher.Publish(ctx, events.Event{
		Type:       t,
		Key:        sub.ID.String(),
		UserID:     sub.UserID.String(),
		OccurredAt: sub.UpdatedAt,
		Attributes: attrs,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to publish lifecycle event",
			"event_type", string(t),
			"subscription_id", sub.ID.String(),
			"error", err,
		)
	}
}

func translate(err error, msg string) error {
	var coded *dErrors.Error
	switch {
	case errors.As(err, &coded):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, msg)
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.Wrap(err, dErrors.CodeConflict, "subscription already exists")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "subscription was modified concurrently")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
