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

var now = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func validParams() NewDonationParams {
	return NewDonationParams{
		Amount:          100,
		Currency:        "uah",
		Status:          StatusCompleted,
		Provider:        "liqpay",
		PaymentMethodID: id.PaymentMethodID(uuid.New()),
		TransactionID:   "tx-1",
		Purpose:         "general donation",
	}
}

func TestNewDonation(t *testing.T) {
	t.Run("normalizes currency and stamps date", func(t *testing.T) {
		d, err := NewDonation(id.DonationID(uuid.New()), validParams(), now)
		require.NoError(t, err)
		assert.Equal(t, "UAH", d.Currency)
		assert.Equal(t, now, d.DonationDate)
		assert.Nil(t, d.UserID)
	})

	t.Run("rejects amounts the ledger cannot hold", func(t *testing.T) {
		for _, amount := range []float64{0, -5, 0.004, math.NaN(), math.Inf(1), math.Inf(-1)} {
			p := validParams()
			p.Amount = amount
			_, err := NewDonation(id.DonationID(uuid.New()), p, now)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), "amount %v", amount)
		}
	})

	t.Run("rejects currencies that are not three letters", func(t *testing.T) {
		for _, currency := range []string{"  ", "US", "USDT", "U5D"} {
			p := validParams()
			p.Currency = currency
			_, err := NewDonation(id.DonationID(uuid.New()), p, now)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), "currency %q", currency)
		}
	})

	t.Run("accepts one cent", func(t *testing.T) {
		p := validParams()
		p.Amount = id.MinAmount
		_, err := NewDonation(id.DonationID(uuid.New()), p, now)
		assert.NoError(t, err)
	})

	t.Run("drops nil user id", func(t *testing.T) {
		p := validParams()
		nilUser := id.UserID{}
		p.UserID = &nilUser
		d, err := NewDonation(id.DonationID(uuid.New()), p, now)
		require.NoError(t, err)
		assert.Nil(t, d.UserID)
	})
}

func TestSetTarget(t *testing.T) {
	d, err := NewDonation(id.DonationID(uuid.New()), validParams(), now)
	require.NoError(t, err)

	t.Run("rejects blank kind", func(t *testing.T) {
		err := d.SetTarget("", nil)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		assert.Nil(t, d.Target)
	})

	t.Run("guardianship target exposes typed id", func(t *testing.T) {
		gid := uuid.New()
		require.NoError(t, d.SetTarget(id.TargetGuardianship, &gid))
		got, ok := d.Target.GuardianshipID()
		require.True(t, ok)
		assert.Equal(t, id.GuardianshipID(gid), got)
	})

	t.Run("global target has no guardianship id", func(t *testing.T) {
		require.NoError(t, d.SetTarget(id.TargetGlobal, nil))
		_, ok := d.Target.GuardianshipID()
		assert.False(t, ok)
	})
}

func TestPurpose(t *testing.T) {
	cases := map[id.TargetKind]string{
		id.TargetGuardianship: "guardianship care",
		id.TargetAidRequest:   "aid request support",
		id.TargetGlobal:       "general donation",
	}
	for kind, want := range cases {
		assert.Equal(t, want, Purpose(&Target{Kind: kind}))
	}
	assert.Equal(t, "donation", Purpose(nil))
}
