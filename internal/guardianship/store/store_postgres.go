package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pawhaven/internal/guardianship/models"
	id "pawhaven/pkg/domain"
	"pawhaven/pkg/platform/pgerr"
	"pawhaven/pkg/platform/sentinel"
	txcontext "pawhaven/pkg/platform/tx"
)

// PostgresStore persists guardianships and their donation links.
// The partial unique index guardianships_open_pair_idx enforces one open
// guardianship per (user_id, animal_id).
type PostgresStore struct {
	q txcontext.Querier
}

// NewPostgres accepts a *sql.DB, or a *sql.Tx when the store must take row
// locks inside a transaction.
func NewPostgres(q txcontext.Querier) *PostgresStore {
	return &PostgresStore{q: q}
}

const guardianshipColumns = `id, user_id, animal_id, status, start_date, grace_until, created_at, updated_at, version`

func (s *PostgresStore) CreateIfNoneActive(ctx context.Context, g *models.Guardianship) error {
	query := `
		INSERT INTO guardianships (` + guardianshipColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1)
	`
	_, err := s.q.ExecContext(ctx, query,
		uuid.UUID(g.ID),
		uuid.UUID(g.UserID),
		uuid.UUID(g.AnimalID),
		string(g.Status),
		g.StartDate,
		g.GraceUntil,
		g.CreatedAt,
		g.UpdatedAt,
	)
	if err != nil {
		if pgerr.IsUniqueViolation(err) {
			return fmt.Errorf("open guardianship for animal %s: %w", g.AnimalID, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert guardianship: %w", err)
	}
	g.Version = 1
	return s.insertLinks(ctx, g)
}

func (s *PostgresStore) FindByID(ctx context.Context, guardianshipID id.GuardianshipID) (*models.Guardianship, error) {
	return s.find(ctx, `SELECT `+guardianshipColumns+` FROM guardianships WHERE id = $1`, guardianshipID)
}

// FindByIDForUpdate takes a row lock held until the surrounding transaction
// ends. Only meaningful when the store was built on a *sql.Tx.
func (s *PostgresStore) FindByIDForUpdate(ctx context.Context, guardianshipID id.GuardianshipID) (*models.Guardianship, error) {
	return s.find(ctx, `SELECT `+guardianshipColumns+` FROM guardianships WHERE id = $1 FOR UPDATE`, guardianshipID)
}

func (s *PostgresStore) find(ctx context.Context, query string, guardianshipID id.GuardianshipID) (*models.Guardianship, error) {
	g, err := scanGuardianship(s.q.QueryRowContext(ctx, query, uuid.UUID(guardianshipID)))
	if err != nil {
		return nil, err
	}
	if err := s.loadLinks(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *PostgresStore) Save(ctx context.Context, g *models.Guardianship) error {
	query := `
		UPDATE guardianships
		SET status = $3, grace_until = $4, updated_at = $5, version = version + 1
		WHERE id = $1 AND version = $2
	`
	res, err := s.q.ExecContext(ctx, query,
		uuid.UUID(g.ID),
		g.Version,
		string(g.Status),
		g.GraceUntil,
		g.UpdatedAt,
	)
	if err != nil {
		if pgerr.IsUniqueViolation(err) {
			return fmt.Errorf("open guardianship for animal %s: %w", g.AnimalID, sentinel.ErrConflict)
		}
		return fmt.Errorf("update guardianship: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update guardianship rows affected: %w", err)
	}
	if n == 0 {
		var exists bool
		if err := s.q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM guardianships WHERE id = $1)`, uuid.UUID(g.ID)).Scan(&exists); err != nil {
			return fmt.Errorf("check guardianship: %w", err)
		}
		if !exists {
			return fmt.Errorf("guardianship not found: %w", sentinel.ErrNotFound)
		}
		return fmt.Errorf("guardianship %s version %d is stale: %w", g.ID, g.Version, sentinel.ErrConflict)
	}
	g.Version++
	return s.insertLinks(ctx, g)
}

func (s *PostgresStore) ListGraceExpired(ctx context.Context, now time.Time) ([]*models.Guardianship, error) {
	return s.list(ctx,
		`SELECT `+guardianshipColumns+` FROM guardianships
		WHERE status = 'requires_payment' AND grace_until < $1 ORDER BY grace_until`, now)
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Guardianship, error) {
	return s.list(ctx,
		`SELECT `+guardianshipColumns+` FROM guardianships WHERE user_id = $1 ORDER BY created_at`, uuid.UUID(userID))
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*models.Guardianship, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list guardianships: %w", err)
	}
	var out []*models.Guardianship
	for rows.Next() {
		g, err := scanGuardianship(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, g)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("iterate guardianships: %w", err)
	}
	// Links are loaded after the cursor is closed; a *sql.Tx allows one open
	// result set at a time.
	for _, g := range out {
		if err := s.loadLinks(ctx, g); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *PostgresStore) insertLinks(ctx context.Context, g *models.Guardianship) error {
	for _, link := range g.Donations {
		_, err := s.q.ExecContext(ctx, `
			INSERT INTO guardianship_donations (guardianship_id, donation_id, linked_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (guardianship_id, donation_id) DO NOTHING
		`, uuid.UUID(g.ID), uuid.UUID(link.DonationID), link.LinkedAt)
		if err != nil {
			if pgerr.IsUniqueViolation(err) {
				return fmt.Errorf("donation %s linked elsewhere: %w", link.DonationID, sentinel.ErrConflict)
			}
			return fmt.Errorf("insert donation link: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) loadLinks(ctx context.Context, g *models.Guardianship) error {
	rows, err := s.q.QueryContext(ctx, `
		SELECT donation_id, linked_at FROM guardianship_donations
		WHERE guardianship_id = $1 ORDER BY linked_at, donation_id
	`, uuid.UUID(g.ID))
	if err != nil {
		return fmt.Errorf("load donation links: %w", err)
	}
	defer rows.Close()
	g.Donations = []models.DonationLink{}
	for rows.Next() {
		var (
			donationID uuid.UUID
			linkedAt   time.Time
		)
		if err := rows.Scan(&donationID, &linkedAt); err != nil {
			return fmt.Errorf("scan donation link: %w", err)
		}
		g.Donations = append(g.Donations, models.DonationLink{DonationID: id.DonationID(donationID), LinkedAt: linkedAt})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate donation links: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGuardianship(row scanner) (*models.Guardianship, error) {
	var (
		g          models.Guardianship
		rawID      uuid.UUID
		userID     uuid.UUID
		animalID   uuid.UUID
		status     string
		graceUntil sql.NullTime
	)
	err := row.Scan(&rawID, &userID, &animalID, &status, &g.StartDate, &graceUntil, &g.CreatedAt, &g.UpdatedAt, &g.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("guardianship not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("scan guardianship: %w", err)
	}
	g.ID = id.GuardianshipID(rawID)
	g.UserID = id.UserID(userID)
	g.AnimalID = id.AnimalID(animalID)
	g.Status = models.Status(status)
	if graceUntil.Valid {
		t := graceUntil.Time
		g.GraceUntil = &t
	}
	g.Donations = []models.DonationLink{}
	return &g, nil
}
