// Package events carries guardianship and subscription lifecycle events to
// downstream consumers (notifications, reporting). Publishing is best effort:
// callers log failures and continue.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Type names a lifecycle transition.
type Type string

const (
	GuardianshipCreated         Type = "guardianship.created"
	GuardianshipActivated       Type = "guardianship.activated"
	GuardianshipPaymentRequired Type = "guardianship.payment_required"
	GuardianshipCompleted       Type = "guardianship.completed"
	SubscriptionCreated         Type = "subscription.created"
	SubscriptionPaused          Type = "subscription.paused"
	SubscriptionResumed         Type = "subscription.resumed"
	SubscriptionCanceled        Type = "subscription.canceled"
	DonationRecorded            Type = "donation.recorded"
)

// Event is the envelope published to the lifecycle topic. Key is the
// aggregate id and decides partitioning, so events for one aggregate stay
// ordered.
type Event struct {
	Type       Type              `json:"type"`
	Key        string            `json:"key"`
	UserID     string            `json:"user_id,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }

// Memory records events in order. Used by tests and dev mode.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Publish(_ context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

// OfType returns recorded events with the given type.
func (m *Memory) OfType(t Type) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Event
	for _, e := range m.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
