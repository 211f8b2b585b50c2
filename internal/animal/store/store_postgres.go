package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"pawhaven/internal/animal/models"
	id "pawhaven/pkg/domain"
	"pawhaven/pkg/platform/sentinel"
	txcontext "pawhaven/pkg/platform/tx"
)

// PostgresStore reads the shelter's animals table. The table is owned by the
// shelter catalog; only under_care and updated_at are written here.
type PostgresStore struct {
	q txcontext.Querier
}

// NewPostgres accepts a *sql.DB, or a *sql.Tx to join a guardianship
// transaction.
func NewPostgres(q txcontext.Querier) *PostgresStore {
	return &PostgresStore{q: q}
}

func (s *PostgresStore) FindByID(ctx context.Context, animalID id.AnimalID) (*models.Animal, error) {
	var (
		a      models.Animal
		rawID  uuid.UUID
		update sql.NullTime
	)
	err := s.q.QueryRowContext(ctx,
		`SELECT id, name, under_care, updated_at FROM animals WHERE id = $1`, uuid.UUID(animalID),
	).Scan(&rawID, &a.Name, &a.UnderCare, &update)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("animal not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find animal: %w", err)
	}
	a.ID = id.AnimalID(rawID)
	a.UpdatedAt = update.Time
	return &a, nil
}

func (s *PostgresStore) Update(ctx context.Context, a *models.Animal) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE animals SET under_care = $2, updated_at = $3 WHERE id = $1`,
		uuid.UUID(a.ID), a.UnderCare, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update animal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update animal rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("animal not found: %w", sentinel.ErrNotFound)
	}
	return nil
}
