package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"pawhaven/internal/donation/models"
	id "pawhaven/pkg/domain"
	"pawhaven/pkg/platform/sentinel"
	txcontext "pawhaven/pkg/platform/tx"
)

// PostgresStore persists donations in PostgreSQL. The unique index on
// (provider, transaction_id, status) makes replayed webhooks a no-op insert.
type PostgresStore struct {
	q txcontext.Querier
}

// NewPostgres accepts a *sql.DB or a *sql.Tx.
func NewPostgres(q txcontext.Querier) *PostgresStore {
	return &PostgresStore{q: q}
}

const donationColumns = `id, user_id, amount, currency, status, provider, payment_method_id,
	transaction_id, purpose, target_kind, target_id, recurring, anonymous, donation_date, report`

func (s *PostgresStore) Create(ctx context.Context, d *models.Donation) error {
	var userID *uuid.UUID
	if d.UserID != nil {
		u := uuid.UUID(*d.UserID)
		userID = &u
	}
	var targetKind *string
	var targetID *uuid.UUID
	if d.Target != nil {
		k := string(d.Target.Kind)
		targetKind = &k
		targetID = d.Target.ID
	}
	query := `
		INSERT INTO donations (` + donationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (provider, transaction_id, status) DO NOTHING
	`
	res, err := s.q.ExecContext(ctx, query,
		uuid.UUID(d.ID),
		userID,
		d.Amount,
		d.Currency,
		string(d.Status),
		d.Provider,
		uuid.UUID(d.PaymentMethodID),
		d.TransactionID,
		d.Purpose,
		targetKind,
		targetID,
		d.Recurring,
		d.Anonymous,
		d.DonationDate,
		d.Report,
	)
	if err != nil {
		return fmt.Errorf("insert donation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert donation rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %s: %w", d.TransactionID, sentinel.ErrAlreadyUsed)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, donationID id.DonationID) (*models.Donation, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+donationColumns+` FROM donations WHERE id = $1`, uuid.UUID(donationID))
	return scanDonation(row)
}

func (s *PostgresStore) FindByTransaction(ctx context.Context, provider, transactionID string, status models.Status) (*models.Donation, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+donationColumns+` FROM donations WHERE provider = $1 AND transaction_id = $2 AND status = $3`,
		provider, transactionID, string(status))
	return scanDonation(row)
}

func (s *PostgresStore) ListByTarget(ctx context.Context, kind id.TargetKind, targetID string) ([]*models.Donation, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+donationColumns+` FROM donations WHERE target_kind = $1 AND target_id::text = $2 ORDER BY donation_date`,
		string(kind), targetID)
	if err != nil {
		return nil, fmt.Errorf("list donations by target: %w", err)
	}
	defer rows.Close()
	var out []*models.Donation
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate donations: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDonation(row scanner) (*models.Donation, error) {
	var (
		d             models.Donation
		donationID    uuid.UUID
		userID        uuid.NullUUID
		status        string
		methodID      uuid.UUID
		transactionID sql.NullString
		targetKind    sql.NullString
		targetID      uuid.NullUUID
		report        sql.NullString
	)
	err := row.Scan(&donationID, &userID, &d.Amount, &d.Currency, &status, &d.Provider, &methodID,
		&transactionID, &d.Purpose, &targetKind, &targetID, &d.Recurring, &d.Anonymous, &d.DonationDate, &report)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("donation not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("scan donation: %w", err)
	}
	d.ID = id.DonationID(donationID)
	if userID.Valid {
		u := id.UserID(userID.UUID)
		d.UserID = &u
	}
	d.Status = models.Status(status)
	d.PaymentMethodID = id.PaymentMethodID(methodID)
	d.TransactionID = transactionID.String
	if targetKind.Valid {
		d.Target = &models.Target{Kind: id.TargetKind(targetKind.String)}
		if targetID.Valid {
			v := targetID.UUID
			d.Target.ID = &v
		}
	}
	d.Report = report.String
	return &d, nil
}
