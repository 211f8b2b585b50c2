package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	guardianshipmodels "pawhaven/internal/guardianship/models"
	guardianshipstore "pawhaven/internal/guardianship/store"
	"pawhaven/internal/payment/methods"
	"pawhaven/internal/subscription/models"
	"pawhaven/internal/subscription/store"
	id "pawhaven/pkg/domain"
	dErrors "pawhaven/pkg/domain-errors"
	"pawhaven/pkg/platform/events"
	"pawhaven/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	store     *store.InMemorySubscriptionStore
	guards    *guardianshipstore.InMemoryGuardianshipStore
	publisher *events.Memory
	service   *Service
	methodID  id.PaymentMethodID
	now       time.Time
	ctx       context.Context
	user      id.UserID
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.guards = guardianshipstore.NewInMemory()
	s.publisher = events.NewMemory()
	s.methodID = id.PaymentMethodID(uuid.New())
	resolver := methods.NewStatic(map[string]id.PaymentMethodID{"liqpay": s.methodID})
	s.service = New(s.store, resolver, "liqpay", WithPublisher(s.publisher), WithGuardianships(s.guards))
	s.now = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.user = id.UserID(uuid.New())
}

func (s *ServiceSuite) guardianship(owner id.UserID) *guardianshipmodels.Guardianship {
	g, err := guardianshipmodels.NewGuardianship(id.GuardianshipID(uuid.New()), owner, id.AnimalID(uuid.New()), 72*time.Hour, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.guards.CreateIfNoneActive(s.ctx, g))
	return g
}

func (s *ServiceSuite) TestCreateVariants() {
	s.Run("guardianship", func() {
		gid := s.guardianship(s.user).ID
		sub, err := s.service.CreateForGuardianship(s.ctx, s.user, gid, 200, "uah")
		s.Require().NoError(err)
		s.Equal(models.ScopeGuardianship, sub.Scope)
		s.Equal(uuid.UUID(gid), *sub.ScopeID)
		s.Equal(s.methodID, sub.PaymentMethodID)
		s.True(strings.HasPrefix(sub.ProviderSubscriptionID, PendingPrefix))
		s.Equal(s.now.AddDate(0, 1, 0), *sub.NextChargeAt)
	})

	s.Run("global", func() {
		sub, err := s.service.CreateGlobal(s.ctx, s.user, 50, "UAH")
		s.Require().NoError(err)
		s.Equal(models.ScopeGlobal, sub.Scope)
		s.Nil(sub.ScopeID)
	})

	s.Run("aid request", func() {
		aid := uuid.New()
		sub, err := s.service.CreateForAidRequest(s.ctx, s.user, &aid, 75, "UAH")
		s.Require().NoError(err)
		s.Equal(models.ScopeAidRequest, sub.Scope)
	})

	s.Run("rejects non-positive amount", func() {
		_, err := s.service.CreateGlobal(s.ctx, s.user, 0, "UAH")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown provider", func() {
		svc := New(s.store, methods.NewStatic(nil), "liqpay")
		_, err := svc.CreateGlobal(s.ctx, s.user, 10, "UAH")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Len(s.publisher.OfType(events.SubscriptionCreated), 3)
}

func (s *ServiceSuite) TestCreateForGuardianshipRequiresOwnOpenGuardianship() {
	s.Run("another user's guardianship", func() {
		g := s.guardianship(id.UserID(uuid.New()))
		_, err := s.service.CreateForGuardianship(s.ctx, s.user, g.ID, 100, "UAH")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("completed guardianship", func() {
		g := s.guardianship(s.user)
		g.Complete(s.now)
		s.Require().NoError(s.guards.Save(s.ctx, g))
		_, err := s.service.CreateForGuardianship(s.ctx, s.user, g.ID, 100, "UAH")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("nonexistent guardianship", func() {
		_, err := s.service.CreateForGuardianship(s.ctx, s.user, id.GuardianshipID(uuid.New()), 100, "UAH")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("service without a guardianship finder", func() {
		g := s.guardianship(s.user)
		svc := New(s.store, methods.NewStatic(map[string]id.PaymentMethodID{"liqpay": s.methodID}), "liqpay")
		_, err := svc.CreateForGuardianship(s.ctx, s.user, g.ID, 100, "UAH")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("own guardianship awaiting payment", func() {
		g := s.guardianship(s.user)
		sub, err := s.service.CreateForGuardianship(s.ctx, s.user, g.ID, 100, "UAH")
		s.Require().NoError(err)
		s.Equal(uuid.UUID(g.ID), *sub.ScopeID)
	})

	active, err := s.store.ListActive(s.ctx)
	s.Require().NoError(err)
	s.Len(active, 1)
}

func (s *ServiceSuite) TestPauseResumeCancel() {
	sub, err := s.service.CreateGlobal(s.ctx, s.user, 50, "UAH")
	s.Require().NoError(err)
	psid := sub.ProviderSubscriptionID

	s.Require().NoError(s.service.Pause(s.ctx, psid))
	s.True(dErrors.HasCode(s.service.Pause(s.ctx, psid), dErrors.CodeInvalidState))

	s.Require().NoError(s.service.Resume(s.ctx, psid))
	s.True(dErrors.HasCode(s.service.Resume(s.ctx, psid), dErrors.CodeInvalidState))

	s.Require().NoError(s.service.Cancel(s.ctx, psid))
	s.Require().NoError(s.service.Cancel(s.ctx, psid), "cancel is idempotent")
	s.Len(s.publisher.OfType(events.SubscriptionCanceled), 1)

	got, err := s.service.Get(s.ctx, psid)
	s.Require().NoError(err)
	s.Equal(models.StatusCanceled, got.Status)

	s.True(dErrors.HasCode(s.service.Cancel(s.ctx, "missing"), dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestCreateFromCharge() {
	gid := uuid.New()
	charge := ChargeSubscription{
		UserID:        s.user,
		Provider:      "liqpay",
		TransactionID: "tx-100",
		Scope:         models.ScopeGuardianship,
		ScopeID:       &gid,
		Amount:        100,
		Currency:      "UAH",
		ChargedAt:     s.now,
	}

	first, err := s.service.CreateFromCharge(s.ctx, charge)
	s.Require().NoError(err)
	s.Equal("tx-100", first.ProviderSubscriptionID)
	s.Equal(s.now, *first.LastChargeAt)

	s.Run("replayed transaction returns the same subscription", func() {
		again, err := s.service.CreateFromCharge(s.ctx, charge)
		s.Require().NoError(err)
		s.Equal(first.ID, again.ID)
	})

	s.Run("next month's charge is recorded on the existing subscription", func() {
		next := charge
		next.TransactionID = "tx-101"
		next.ChargedAt = s.now.AddDate(0, 1, 0)
		got, err := s.service.CreateFromCharge(s.ctx, next)
		s.Require().NoError(err)
		s.Equal(first.ID, got.ID)
		s.Equal(next.ChargedAt, *got.LastChargeAt)
		s.Equal(next.ChargedAt.AddDate(0, 1, 0), *got.NextChargeAt)
	})

	s.Run("missing transaction id", func() {
		bad := charge
		bad.TransactionID = ""
		_, err := s.service.CreateFromCharge(s.ctx, bad)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestCancelForGuardianship() {
	gid := s.guardianship(s.user).ID
	_, err := s.service.CreateForGuardianship(s.ctx, s.user, gid, 10, "UAH")
	s.Require().NoError(err)
	_, err = s.service.CreateForGuardianship(s.ctx, s.user, gid, 25, "UAH")
	s.Require().NoError(err)
	other, err := s.service.CreateForGuardianship(s.ctx, s.user, s.guardianship(s.user).ID, 10, "UAH")
	s.Require().NoError(err)

	n, err := s.service.CancelForGuardianship(s.ctx, gid)
	s.Require().NoError(err)
	s.Equal(2, n)

	n, err = s.service.CancelForGuardianship(s.ctx, gid)
	s.Require().NoError(err)
	s.Zero(n)

	untouched, err := s.service.Get(s.ctx, other.ProviderSubscriptionID)
	s.Require().NoError(err)
	s.Equal(models.StatusActive, untouched.Status)
}

func (s *ServiceSuite) TestCancelExpired() {
	overdue, err := s.service.CreateGlobal(s.ctx, s.user, 10, "UAH")
	s.Require().NoError(err)
	laterCtx := requestcontext.WithTime(context.Background(), s.now.AddDate(0, 1, 0))
	current, err := s.service.CreateGlobal(laterCtx, id.UserID(uuid.New()), 10, "UAH")
	s.Require().NoError(err)
	paused, err := s.service.CreateGlobal(s.ctx, id.UserID(uuid.New()), 10, "UAH")
	s.Require().NoError(err)
	s.Require().NoError(s.service.Pause(s.ctx, paused.ProviderSubscriptionID))

	// overdue's next charge is now+1 month; sweep 4 days after that.
	sweepAt := s.now.AddDate(0, 1, 4)
	n, err := s.service.CancelExpired(context.Background(), sweepAt)
	s.Require().NoError(err)
	s.Equal(1, n)

	got, err := s.service.Get(s.ctx, overdue.ProviderSubscriptionID)
	s.Require().NoError(err)
	s.Equal(models.StatusCanceled, got.Status)
	s.Equal(sweepAt, *got.CanceledAt)

	for _, psid := range []string{current.ProviderSubscriptionID, paused.ProviderSubscriptionID} {
		sub, err := s.service.Get(s.ctx, psid)
		s.Require().NoError(err)
		s.NotEqual(models.StatusCanceled, sub.Status)
	}
}

// cancelingStore cancels the looked-up subscription between the active lookup
// and the charge, the way a concurrent cancel request would.
type cancelingStore struct {
	*store.InMemorySubscriptionStore
	afterFind func(sub *models.PaymentSubscription)
}

func (c *cancelingStore) FindActiveForUser(ctx context.Context, userID id.UserID, scope models.Scope, scopeID *uuid.UUID) (*models.PaymentSubscription, error) {
	sub, err := c.InMemorySubscriptionStore.FindActiveForUser(ctx, userID, scope, scopeID)
	if err == nil && c.afterFind != nil {
		c.afterFind(sub)
	}
	return sub, err
}

func (s *ServiceSuite) TestChargeDoesNotResurrectCanceledSubscription() {
	wrapped := &cancelingStore{InMemorySubscriptionStore: s.store}
	resolver := methods.NewStatic(map[string]id.PaymentMethodID{"liqpay": s.methodID})
	svc := New(wrapped, resolver, "liqpay", WithPublisher(s.publisher))

	charge := ChargeSubscription{
		UserID:        s.user,
		Provider:      "liqpay",
		TransactionID: "tx-200",
		Scope:         models.ScopeGlobal,
		Amount:        100,
		Currency:      "UAH",
		ChargedAt:     s.now,
	}
	first, err := svc.CreateFromCharge(s.ctx, charge)
	s.Require().NoError(err)

	wrapped.afterFind = func(sub *models.PaymentSubscription) {
		s.Require().NoError(svc.Cancel(s.ctx, sub.ProviderSubscriptionID))
	}
	next := charge
	next.TransactionID = "tx-201"
	next.ChargedAt = s.now.AddDate(0, 1, 0)
	_, err = svc.CreateFromCharge(s.ctx, next)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

	got, err := svc.Get(s.ctx, first.ProviderSubscriptionID)
	s.Require().NoError(err)
	s.Equal(models.StatusCanceled, got.Status)
	s.Nil(got.NextChargeAt)
	s.Equal(s.now, *got.LastChargeAt)
}

func (s *ServiceSuite) TestStaleUpdateIsConflict() {
	sub, err := s.service.CreateGlobal(s.ctx, s.user, 50, "UAH")
	s.Require().NoError(err)
	stale, err := s.store.FindByProviderSubscriptionID(s.ctx, "liqpay", sub.ProviderSubscriptionID)
	s.Require().NoError(err)

	s.Require().NoError(s.service.Cancel(s.ctx, sub.ProviderSubscriptionID))

	s.Require().NoError(stale.RecordCharge(s.now.AddDate(0, 1, 0)))
	err = s.store.Update(s.ctx, stale)
	s.True(dErrors.HasCode(translate(err, "failed to record charge"), dErrors.CodeConflict))

	got, err := s.service.Get(s.ctx, sub.ProviderSubscriptionID)
	s.Require().NoError(err)
	s.Equal(models.StatusCanceled, got.Status)
}
