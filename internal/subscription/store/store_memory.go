// Package store persists payment subscriptions.
//
// Error contract: Create returns sentinel.ErrAlreadyUsed when the provider
// subscription id is taken; finders and Update return sentinel.ErrNotFound.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"pawhaven/internal/subscription/models"
	id "pawhaven/pkg/domain"
	"pawhaven/pkg/platform/sentinel"
)

type providerKey struct {
	provider string
	subID    string
}

// InMemorySubscriptionStore stores subscriptions in memory for tests and dev.
// Callers always receive copies.
type InMemorySubscriptionStore struct {
	mu         sync.RWMutex
	subs       map[id.SubscriptionID]*models.PaymentSubscription
	byProvider map[providerKey]id.SubscriptionID
}

func NewInMemory() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{
		subs:       make(map[id.SubscriptionID]*models.PaymentSubscription),
		byProvider: make(map[providerKey]id.SubscriptionID),
	}
}

func (s *InMemorySubscriptionStore) Create(_ context.Context, sub *models.PaymentSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := providerKey{provider: sub.Provider, subID: sub.ProviderSubscriptionID}
	if _, ok := s.byProvider[key]; ok {
		return fmt.Errorf("provider subscription %s: %w", sub.ProviderSubscriptionID, sentinel.ErrAlreadyUsed)
	}
	sub.Version = 1
	s.subs[sub.ID] = sub.Clone()
	s.byProvider[key] = sub.ID
	return nil
}

func (s *InMemorySubscriptionStore) Update(_ context.Context, sub *models.PaymentSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.subs[sub.ID]
	if !ok {
		return fmt.Errorf("subscription not found: %w", sentinel.ErrNotFound)
	}
	if existing.Version != sub.Version {
		return fmt.Errorf("subscription %s version %d is stale: %w", sub.ID, sub.Version, sentinel.ErrConflict)
	}
	sub.Version++
	s.subs[sub.ID] = sub.Clone()
	return nil
}

func (s *InMemorySubscriptionStore) FindByProviderSubscriptionID(_ context.Context, provider, providerSubscriptionID string) (*models.PaymentSubscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	subID, ok := s.byProvider[providerKey{provider: provider, subID: providerSubscriptionID}]
	if !ok {
		return nil, fmt.Errorf("subscription not found: %w", sentinel.ErrNotFound)
	}
	return s.subs[subID].Clone(), nil
}

// FindActiveForUser returns the user's active subscription for a scope, if any.
func (s *InMemorySubscriptionStore) FindActiveForUser(_ context.Context, userID id.UserID, scope models.Scope, scopeID *uuid.UUID) (*models.PaymentSubscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.sorted() {
		if sub.Status != models.StatusActive || sub.UserID != userID || sub.Scope != scope {
			continue
		}
		if !sameScopeID(sub.ScopeID, scopeID) {
			continue
		}
		return sub.Clone(), nil
	}
	return nil, fmt.Errorf("subscription not found: %w", sentinel.ErrNotFound)
}

// ListByScope returns non-canceled subscriptions for the scope id.
func (s *InMemorySubscriptionStore) ListByScope(_ context.Context, scope models.Scope, scopeID uuid.UUID) ([]*models.PaymentSubscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.PaymentSubscription
	for _, sub := range s.sorted() {
		if sub.Scope != scope || sub.ScopeID == nil || *sub.ScopeID != scopeID {
			continue
		}
		if sub.Status == models.StatusCanceled {
			continue
		}
		out = append(out, sub.Clone())
	}
	return out, nil
}

func (s *InMemorySubscriptionStore) ListActive(_ context.Context) ([]*models.PaymentSubscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.PaymentSubscription
	for _, sub := range s.sorted() {
		if sub.Status == models.StatusActive {
			out = append(out, sub.Clone())
		}
	}
	return out, nil
}

// sorted returns stored records by creation time. Caller holds the lock.
func (s *InMemorySubscriptionStore) sorted() []*models.PaymentSubscription {
	out := make([]*models.PaymentSubscription, 0, len(s.subs))
	for _, sub := range s.subs {
		out = append(out, sub)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func sameScopeID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
