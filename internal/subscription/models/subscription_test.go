package models

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "pawhaven/pkg/domain"
	dErrors "pawhaven/pkg/domain-errors"
)

var t0 = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newActive(t *testing.T) *PaymentSubscription {
	t.Helper()
	scopeID := uuid.New()
	sub, err := NewPaymentSubscription(id.SubscriptionID(uuid.New()), NewSubscriptionParams{
		UserID:                 id.UserID(uuid.New()),
		PaymentMethodID:        id.PaymentMethodID(uuid.New()),
		Scope:                  ScopeGuardianship,
		ScopeID:                &scopeID,
		Amount:                 250,
		Currency:               "uah",
		Provider:               "liqpay",
		ProviderSubscriptionID: "tx-1",
	}, t0)
	require.NoError(t, err)
	return sub
}

func TestNewPaymentSubscription(t *testing.T) {
	sub := newActive(t)
	assert.Equal(t, StatusActive, sub.Status)
	assert.Equal(t, "UAH", sub.Currency)
	require.NotNil(t, sub.NextChargeAt)
	assert.Equal(t, t0.AddDate(0, 1, 0), *sub.NextChargeAt)

	t.Run("validation", func(t *testing.T) {
		base := NewSubscriptionParams{
			UserID:                 id.UserID(uuid.New()),
			Scope:                  ScopeGlobal,
			Amount:                 10,
			Currency:               "UAH",
			ProviderSubscriptionID: "p",
		}
		cases := map[string]func(p *NewSubscriptionParams){
			"nil user":           func(p *NewSubscriptionParams) { p.UserID = id.UserID{} },
			"zero amount":        func(p *NewSubscriptionParams) { p.Amount = 0 },
			"NaN amount":         func(p *NewSubscriptionParams) { p.Amount = math.NaN() },
			"+Inf amount":        func(p *NewSubscriptionParams) { p.Amount = math.Inf(1) },
			"-Inf amount":        func(p *NewSubscriptionParams) { p.Amount = math.Inf(-1) },
			"sub-cent amount":    func(p *NewSubscriptionParams) { p.Amount = 0.001 },
			"blank currency":     func(p *NewSubscriptionParams) { p.Currency = "" },
			"long currency":      func(p *NewSubscriptionParams) { p.Currency = "EURO" },
			"unknown scope":      func(p *NewSubscriptionParams) { p.Scope = "pets" },
			"guardianship no id": func(p *NewSubscriptionParams) { p.Scope = ScopeGuardianship },
			"no provider id":     func(p *NewSubscriptionParams) { p.ProviderSubscriptionID = " " },
		}
		for name, mutate := range cases {
			t.Run(name, func(t *testing.T) {
				p := base
				mutate(&p)
				_, err := NewPaymentSubscription(id.SubscriptionID(uuid.New()), p, t0)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
			})
		}
	})
}

func TestPauseResume(t *testing.T) {
	sub := newActive(t)

	require.NoError(t, sub.Pause(t0))
	assert.Equal(t, StatusPaused, sub.Status)
	assert.True(t, dErrors.HasCode(sub.Pause(t0), dErrors.CodeInvalidState), "pause twice")

	t.Run("resume keeps future charge date", func(t *testing.T) {
		s := sub.Clone()
		require.NoError(t, s.Resume(t0.Add(24*time.Hour)))
		assert.Equal(t, t0.AddDate(0, 1, 0), *s.NextChargeAt)
	})

	t.Run("resume reschedules past charge date", func(t *testing.T) {
		s := sub.Clone()
		later := t0.AddDate(0, 2, 0)
		require.NoError(t, s.Resume(later))
		assert.Equal(t, StatusActive, s.Status)
		assert.Equal(t, later.AddDate(0, 1, 0), *s.NextChargeAt)
	})

	t.Run("resume from active fails", func(t *testing.T) {
		s := newActive(t)
		assert.True(t, dErrors.HasCode(s.Resume(t0), dErrors.CodeInvalidState))
	})
}

func TestCancelIsIdempotent(t *testing.T) {
	sub := newActive(t)
	sub.Cancel(t0)
	require.NotNil(t, sub.CanceledAt)
	first := *sub.CanceledAt

	sub.Cancel(t0.Add(time.Hour))
	assert.Equal(t, StatusCanceled, sub.Status)
	assert.Equal(t, first, *sub.CanceledAt)
	assert.Nil(t, sub.NextChargeAt)
	assert.True(t, dErrors.HasCode(sub.Pause(t0), dErrors.CodeInvalidState))
	assert.True(t, dErrors.HasCode(sub.RecordCharge(t0), dErrors.CodeInvalidState))
}

func TestRecordChargeAndOverdue(t *testing.T) {
	sub := newActive(t)
	charged := t0.AddDate(0, 1, 0)
	require.NoError(t, sub.RecordCharge(charged))
	assert.Equal(t, charged, *sub.LastChargeAt)
	assert.Equal(t, charged.AddDate(0, 1, 0), *sub.NextChargeAt)

	tolerance := 3 * 24 * time.Hour
	due := *sub.NextChargeAt
	assert.False(t, sub.IsOverdue(due.Add(tolerance), tolerance))
	assert.True(t, sub.IsOverdue(due.Add(tolerance+time.Second), tolerance))

	require.NoError(t, sub.Pause(t0))
	assert.False(t, sub.IsOverdue(due.AddDate(1, 0, 0), tolerance), "paused subscriptions are never overdue")
}

func TestScopeForTarget(t *testing.T) {
	assert.Equal(t, ScopeGuardianship, ScopeForTarget(id.TargetGuardianship))
	assert.Equal(t, ScopeAidRequest, ScopeForTarget(id.TargetAidRequest))
	assert.Equal(t, ScopeGlobal, ScopeForTarget(id.TargetGlobal))

	scope, err := ParseScope(" Aid_Request ")
	require.NoError(t, err)
	assert.Equal(t, ScopeAidRequest, scope)
	_, err = ParseScope("shelter")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}
