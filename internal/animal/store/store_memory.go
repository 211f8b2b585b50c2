// Package store reads animals and writes their under-care flag.
package store

import (
	"context"
	"fmt"
	"sync"

	"pawhaven/internal/animal/models"
	id "pawhaven/pkg/domain"
	"pawhaven/pkg/platform/sentinel"
)

type InMemoryAnimalStore struct {
	mu      sync.RWMutex
	animals map[id.AnimalID]*models.Animal
}

func NewInMemory() *InMemoryAnimalStore {
	return &InMemoryAnimalStore{animals: make(map[id.AnimalID]*models.Animal)}
}

// Put inserts or replaces an animal. Used to seed dev data and tests.
func (s *InMemoryAnimalStore) Put(_ context.Context, a *models.Animal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.animals[a.ID] = &cp
}

func (s *InMemoryAnimalStore) FindByID(_ context.Context, animalID id.AnimalID) (*models.Animal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.animals[animalID]
	if !ok {
		return nil, fmt.Errorf("animal not found: %w", sentinel.ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

func (s *InMemoryAnimalStore) Update(_ context.Context, a *models.Animal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.animals[a.ID]
	if !ok {
		return fmt.Errorf("animal not found: %w", sentinel.ErrNotFound)
	}
	existing.UnderCare = a.UnderCare
	existing.UpdatedAt = a.UpdatedAt
	return nil
}
