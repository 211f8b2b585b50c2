// Package store persists guardianships.
//
// Error contract:
//   - CreateIfNoneActive returns sentinel.ErrConflict when the user already has
//     an open guardianship for the animal
//   - Save returns sentinel.ErrConflict when the stored version moved on since
//     the aggregate was loaded
//   - finders return sentinel.ErrNotFound
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"pawhaven/internal/guardianship/models"
	id "pawhaven/pkg/domain"
	"pawhaven/pkg/platform/sentinel"
)

// InMemoryGuardianshipStore keeps guardianships in memory for tests and dev.
// All reads return deep copies so a failed transaction leaves no trace.
type InMemoryGuardianshipStore struct {
	mu    sync.RWMutex
	items map[id.GuardianshipID]*models.Guardianship
}

func NewInMemory() *InMemoryGuardianshipStore {
	return &InMemoryGuardianshipStore{items: make(map[id.GuardianshipID]*models.Guardianship)}
}

func (s *InMemoryGuardianshipStore) CreateIfNoneActive(_ context.Context, g *models.Guardianship) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[g.ID]; ok {
		return fmt.Errorf("guardianship %s exists: %w", g.ID, sentinel.ErrConflict)
	}
	for _, existing := range s.items {
		if existing.UserID == g.UserID && existing.AnimalID == g.AnimalID && !existing.IsCompleted() {
			return fmt.Errorf("open guardianship for animal %s: %w", g.AnimalID, sentinel.ErrConflict)
		}
	}
	g.Version = 1
	s.items[g.ID] = g.Clone()
	return nil
}

func (s *InMemoryGuardianshipStore) FindByID(_ context.Context, guardianshipID id.GuardianshipID) (*models.Guardianship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.items[guardianshipID]
	if !ok {
		return nil, fmt.Errorf("guardianship not found: %w", sentinel.ErrNotFound)
	}
	return g.Clone(), nil
}

// FindByIDForUpdate relies on the caller holding the transaction shard lock.
func (s *InMemoryGuardianshipStore) FindByIDForUpdate(ctx context.Context, guardianshipID id.GuardianshipID) (*models.Guardianship, error) {
	return s.FindByID(ctx, guardianshipID)
}

func (s *InMemoryGuardianshipStore) Save(_ context.Context, g *models.Guardianship) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.items[g.ID]
	if !ok {
		return fmt.Errorf("guardianship not found: %w", sentinel.ErrNotFound)
	}
	if existing.Version != g.Version {
		return fmt.Errorf("guardianship %s version %d is stale: %w", g.ID, g.Version, sentinel.ErrConflict)
	}
	g.Version++
	s.items[g.ID] = g.Clone()
	return nil
}

func (s *InMemoryGuardianshipStore) ListGraceExpired(_ context.Context, now time.Time) ([]*models.Guardianship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Guardianship
	for _, g := range s.items {
		if g.GraceExpired(now) {
			out = append(out, g.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].GraceUntil.Before(*out[j].GraceUntil)
	})
	return out, nil
}

func (s *InMemoryGuardianshipStore) ListByUser(_ context.Context, userID id.UserID) ([]*models.Guardianship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Guardianship
	for _, g := range s.items {
		if g.UserID == userID {
			out = append(out, g.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
