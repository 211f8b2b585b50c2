//go:build integration

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pawhaven/internal/payment/methods"
	"pawhaven/internal/subscription/models"
	id "pawhaven/pkg/domain"
	"pawhaven/pkg/platform/sentinel"
	"pawhaven/pkg/testutil/containers"
)

func TestPostgresSubscriptionStore(t *testing.T) {
	ctx := context.Background()
	db := containers.Postgres(t)
	store := NewPostgres(db)

	method := id.PaymentMethodID(uuid.New())
	require.NoError(t, methods.NewPostgres(db).Seed(ctx, map[string]id.PaymentMethodID{"liqpay": method}))
	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	build := func(user id.UserID, scope models.Scope, scopeID *uuid.UUID, psid string) *models.PaymentSubscription {
		sub, err := models.NewPaymentSubscription(id.SubscriptionID(uuid.New()), models.NewSubscriptionParams{
			UserID:                 user,
			PaymentMethodID:        method,
			Scope:                  scope,
			ScopeID:                scopeID,
			Amount:                 75,
			Currency:               "UAH",
			Provider:               "liqpay",
			ProviderSubscriptionID: psid,
		}, now)
		require.NoError(t, err)
		return sub
	}

	user := id.UserID(uuid.New())
	guardianship := uuid.New()
	scoped := build(user, models.ScopeGuardianship, &guardianship, "pg-sub-1")
	global := build(user, models.ScopeGlobal, nil, "pg-sub-2")
	require.NoError(t, store.Create(ctx, scoped))
	require.NoError(t, store.Create(ctx, global))

	t.Run("provider subscription id is unique", func(t *testing.T) {
		err := store.Create(ctx, build(user, models.ScopeGlobal, nil, "pg-sub-1"))
		assert.True(t, errors.Is(err, sentinel.ErrAlreadyUsed))
	})

	t.Run("find active for user matches nil scope ids", func(t *testing.T) {
		got, err := store.FindActiveForUser(ctx, user, models.ScopeGlobal, nil)
		require.NoError(t, err)
		assert.Equal(t, global.ID, got.ID)

		got, err = store.FindActiveForUser(ctx, user, models.ScopeGuardianship, &guardianship)
		require.NoError(t, err)
		assert.Equal(t, scoped.ID, got.ID)
	})

	t.Run("update round trips lifecycle fields", func(t *testing.T) {
		stale, err := store.FindByProviderSubscriptionID(ctx, "liqpay", "pg-sub-1")
		require.NoError(t, err)
		assert.Equal(t, 1, stale.Version)

		require.NoError(t, scoped.RecordCharge(now.Add(time.Hour)))
		scoped.Cancel(now.Add(2 * time.Hour))
		require.NoError(t, store.Update(ctx, scoped))

		got, err := store.FindByProviderSubscriptionID(ctx, "liqpay", "pg-sub-1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusCanceled, got.Status)
		require.NotNil(t, got.CanceledAt)
		assert.Nil(t, got.NextChargeAt)
		require.NotNil(t, got.LastChargeAt)
		assert.Equal(t, 2, got.Version)

		require.NoError(t, stale.RecordCharge(now.Add(3*time.Hour)))
		assert.True(t, errors.Is(store.Update(ctx, stale), sentinel.ErrConflict), "stale charge must not overwrite the cancel")
		got, err = store.FindByProviderSubscriptionID(ctx, "liqpay", "pg-sub-1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusCanceled, got.Status)

		list, err := store.ListByScope(ctx, models.ScopeGuardianship, guardianship)
		require.NoError(t, err)
		assert.Empty(t, list, "canceled subscriptions are not listed")

		active, err := store.ListActive(ctx)
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, global.ID, active[0].ID)
	})

	t.Run("update unknown", func(t *testing.T) {
		err := store.Update(ctx, build(user, models.ScopeGlobal, nil, "pg-sub-missing"))
		assert.True(t, errors.Is(err, sentinel.ErrNotFound))
	})
}
