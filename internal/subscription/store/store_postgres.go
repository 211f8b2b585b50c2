package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pawhaven/internal/subscription/models"
	id "pawhaven/pkg/domain"
	"pawhaven/pkg/platform/pgerr"
	"pawhaven/pkg/platform/sentinel"
	txcontext "pawhaven/pkg/platform/tx"
)

// PostgresStore persists subscriptions in PostgreSQL.
type PostgresStore struct {
	q txcontext.Querier
}

// NewPostgres accepts a *sql.DB or a *sql.Tx.
func NewPostgres(q txcontext.Querier) *PostgresStore {
	return &PostgresStore{q: q}
}

const subscriptionColumns = `id, user_id, payment_method_id, scope, scope_id, amount, currency, provider,
	provider_subscription_id, status, next_charge_at, last_charge_at, canceled_at, created_at, updated_at, version`

func (s *PostgresStore) Create(ctx context.Context, sub *models.PaymentSubscription) error {
	query := `
		INSERT INTO payment_subscriptions (` + subscriptionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	sub.Version = 1
	_, err := s.q.ExecContext(ctx, query,
		uuid.UUID(sub.ID),
		uuid.UUID(sub.UserID),
		uuid.UUID(sub.PaymentMethodID),
		string(sub.Scope),
		sub.ScopeID,
		sub.Amount,
		sub.Currency,
		sub.Provider,
		sub.ProviderSubscriptionID,
		string(sub.Status),
		sub.NextChargeAt,
		sub.LastChargeAt,
		sub.CanceledAt,
		sub.CreatedAt,
		sub.UpdatedAt,
		sub.Version,
	)
	if err != nil {
		if pgerr.IsUniqueViolation(err) {
			return fmt.Errorf("provider subscription %s: %w", sub.ProviderSubscriptionID, sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("insert subscription: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, sub *models.PaymentSubscription) error {
	query := `
		UPDATE payment_subscriptions
		SET status = $3, next_charge_at = $4, last_charge_at = $5, canceled_at = $6, updated_at = $7,
			version = version + 1
		WHERE id = $1 AND version = $2
	`
	res, err := s.q.ExecContext(ctx, query,
		uuid.UUID(sub.ID),
		sub.Version,
		string(sub.Status),
		sub.NextChargeAt,
		sub.LastChargeAt,
		sub.CanceledAt,
		sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update subscription rows affected: %w", err)
	}
	if n == 0 {
		var exists bool
		if err := s.q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM payment_subscriptions WHERE id = $1)`, uuid.UUID(sub.ID)).Scan(&exists); err != nil {
			return fmt.Errorf("check subscription: %w", err)
		}
		if !exists {
			return fmt.Errorf("subscription not found: %w", sentinel.ErrNotFound)
		}
		return fmt.Errorf("subscription %s version %d is stale: %w", sub.ID, sub.Version, sentinel.ErrConflict)
	}
	sub.Version++
	return nil
}

func (s *PostgresStore) FindByProviderSubscriptionID(ctx context.Context, provider, providerSubscriptionID string) (*models.PaymentSubscription, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM payment_subscriptions WHERE provider = $1 AND provider_subscription_id = $2`,
		provider, providerSubscriptionID)
	return scanSubscription(row)
}

func (s *PostgresStore) FindActiveForUser(ctx context.Context, userID id.UserID, scope models.Scope, scopeID *uuid.UUID) (*models.PaymentSubscription, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM payment_subscriptions
		WHERE user_id = $1 AND scope = $2 AND scope_id IS NOT DISTINCT FROM $3 AND status = 'active'
		ORDER BY created_at LIMIT 1`,
		uuid.UUID(userID), string(scope), scopeID)
	return scanSubscription(row)
}

func (s *PostgresStore) ListByScope(ctx context.Context, scope models.Scope, scopeID uuid.UUID) ([]*models.PaymentSubscription, error) {
	return s.list(ctx,
		`SELECT `+subscriptionColumns+` FROM payment_subscriptions
		WHERE scope = $1 AND scope_id = $2 AND status <> 'canceled' ORDER BY created_at`,
		string(scope), scopeID)
}

func (s *PostgresStore) ListActive(ctx context.Context) ([]*models.PaymentSubscription, error) {
	return s.list(ctx,
		`SELECT `+subscriptionColumns+` FROM payment_subscriptions WHERE status = 'active' ORDER BY created_at`)
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*models.PaymentSubscription, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()
	var out []*models.PaymentSubscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row scanner) (*models.PaymentSubscription, error) {
	var (
		sub          models.PaymentSubscription
		subID        uuid.UUID
		userID       uuid.UUID
		methodID     uuid.UUID
		scope        string
		scopeID      uuid.NullUUID
		status       string
		nextChargeAt sql.NullTime
		lastChargeAt sql.NullTime
		canceledAt   sql.NullTime
	)
	err := row.Scan(&subID, &userID, &methodID, &scope, &scopeID, &sub.Amount, &sub.Currency, &sub.Provider,
		&sub.ProviderSubscriptionID, &status, &nextChargeAt, &lastChargeAt, &canceledAt, &sub.CreatedAt, &sub.UpdatedAt, &sub.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("subscription not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("scan subscription: %w", err)
	}
	sub.ID = id.SubscriptionID(subID)
	sub.UserID = id.UserID(userID)
	sub.PaymentMethodID = id.PaymentMethodID(methodID)
	sub.Scope = models.Scope(scope)
	if scopeID.Valid {
		v := scopeID.UUID
		sub.ScopeID = &v
	}
	sub.Status = models.Status(status)
	sub.NextChargeAt = nullTime(nextChargeAt)
	sub.LastChargeAt = nullTime(lastChargeAt)
	sub.CanceledAt = nullTime(canceledAt)
	return &sub, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
