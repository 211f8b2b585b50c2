// Package store persists donation ledger entries.
//
// Error contract: Create returns sentinel.ErrAlreadyUsed when a donation with
// the same (provider, transaction id, status) already exists; finders return
// sentinel.ErrNotFound.
package store

import (
	"context"
	"fmt"
	"sync"

	"pawhaven/internal/donation/models"
	id "pawhaven/pkg/domain"
	"pawhaven/pkg/platform/sentinel"
)

type dedupKey struct {
	provider      string
	transactionID string
	status        models.Status
}

// InMemoryDonationStore keeps donations in memory for tests and dev.
type InMemoryDonationStore struct {
	mu        sync.RWMutex
	donations map[id.DonationID]*models.Donation
	byTx      map[dedupKey]id.DonationID
}

func NewInMemory() *InMemoryDonationStore {
	return &InMemoryDonationStore{
		donations: make(map[id.DonationID]*models.Donation),
		byTx:      make(map[dedupKey]id.DonationID),
	}
}

func (s *InMemoryDonationStore) Create(_ context.Context, d *models.Donation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.donations[d.ID]; ok {
		return fmt.Errorf("donation %s: %w", d.ID, sentinel.ErrConflict)
	}
	if d.TransactionID != "" {
		key := dedupKey{provider: d.Provider, transactionID: d.TransactionID, status: d.Status}
		if _, ok := s.byTx[key]; ok {
			return fmt.Errorf("transaction %s: %w", d.TransactionID, sentinel.ErrAlreadyUsed)
		}
		s.byTx[key] = d.ID
	}
	s.donations[d.ID] = copyDonation(d)
	return nil
}

func (s *InMemoryDonationStore) FindByID(_ context.Context, donationID id.DonationID) (*models.Donation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.donations[donationID]
	if !ok {
		return nil, fmt.Errorf("donation not found: %w", sentinel.ErrNotFound)
	}
	return copyDonation(d), nil
}

func (s *InMemoryDonationStore) FindByTransaction(_ context.Context, provider, transactionID string, status models.Status) (*models.Donation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	donationID, ok := s.byTx[dedupKey{provider: provider, transactionID: transactionID, status: status}]
	if !ok {
		return nil, fmt.Errorf("donation not found: %w", sentinel.ErrNotFound)
	}
	return copyDonation(s.donations[donationID]), nil
}

// ListByTarget returns donations tagged with the given target id, oldest first.
func (s *InMemoryDonationStore) ListByTarget(_ context.Context, kind id.TargetKind, targetID string) ([]*models.Donation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Donation
	for _, d := range s.donations {
		if d.Target == nil || d.Target.Kind != kind || d.Target.ID == nil || d.Target.ID.String() != targetID {
			continue
		}
		out = append(out, copyDonation(d))
	}
	sortByDate(out)
	return out, nil
}

func copyDonation(d *models.Donation) *models.Donation {
	cp := *d
	if d.UserID != nil {
		u := *d.UserID
		cp.UserID = &u
	}
	if d.Target != nil {
		t := *d.Target
		if d.Target.ID != nil {
			v := *d.Target.ID
			t.ID = &v
		}
		cp.Target = &t
	}
	return &cp
}
