package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	id "pawhaven/pkg/domain"
	dErrors "pawhaven/pkg/domain-errors"
)

// BillingInterval is the period between recurring charges.
const BillingInterval = 1 // months

// Scope is the kind of entity a subscription supports.
type Scope string

const (
	ScopeGuardianship Scope = "guardianship"
	ScopeAidRequest   Scope = "aid_request"
	ScopeGlobal       Scope = "global"
)

func (s Scope) IsValid() bool {
	switch s {
	case ScopeGuardianship, ScopeAidRequest, ScopeGlobal:
		return true
	default:
		return false
	}
}

// ParseScope accepts the scope names used by the subscription API.
func ParseScope(s string) (Scope, error) {
	scope := Scope(strings.ToLower(strings.TrimSpace(s)))
	if !scope.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "unknown subscription scope: "+s)
	}
	return scope, nil
}

// ScopeForTarget maps a donation target kind to the subscription scope.
func ScopeForTarget(kind id.TargetKind) Scope {
	switch kind {
	case id.TargetGuardianship:
		return ScopeGuardianship
	case id.TargetAidRequest:
		return ScopeAidRequest
	case id.TargetGlobal:
		return ScopeGlobal
	default:
		return ScopeGlobal
	}
}

type Status string

const (
	StatusActive   Status = "active"
	StatusPaused   Status = "paused"
	StatusCanceled Status = "canceled"
)

// PaymentSubscription tracks a recurring charge against the provider's
// subscription id. It is an independent aggregate referenced by scope id.
type PaymentSubscription struct {
	ID                     id.SubscriptionID  `json:"id"`
	UserID                 id.UserID          `json:"user_id"`
	PaymentMethodID        id.PaymentMethodID `json:"payment_method_id"`
	Scope                  Scope              `json:"scope"`
	ScopeID                *uuid.UUID         `json:"scope_id,omitempty"`
	Amount                 float64            `json:"amount"`
	Currency               string             `json:"currency"`
	Provider               string             `json:"provider"`
	ProviderSubscriptionID string             `json:"provider_subscription_id"`
	Status                 Status             `json:"status"`
	NextChargeAt           *time.Time         `json:"next_charge_at,omitempty"`
	LastChargeAt           *time.Time         `json:"last_charge_at,omitempty"`
	CanceledAt             *time.Time         `json:"canceled_at,omitempty"`
	CreatedAt              time.Time          `json:"created_at"`
	UpdatedAt              time.Time          `json:"updated_at"`
	// Version is bumped by stores on every update.
	Version int `json:"-"`
}

// NewSubscriptionParams groups the inputs for a new active subscription.
type NewSubscriptionParams struct {
	UserID                 id.UserID
	PaymentMethodID        id.PaymentMethodID
	Scope                  Scope
	ScopeID                *uuid.UUID
	Amount                 float64
	Currency               string
	Provider               string
	ProviderSubscriptionID string
}

// NewPaymentSubscription creates an active subscription whose next charge is
// one billing interval after now.
func NewPaymentSubscription(subID id.SubscriptionID, p NewSubscriptionParams, now time.Time) (*PaymentSubscription, error) {
	if p.UserID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "user id is required")
	}
	if err := id.ValidateAmount("subscription amount", p.Amount); err != nil {
		return nil, err
	}
	currency, err := id.NormalizeCurrency(p.Currency)
	if err != nil {
		return nil, err
	}
	if !p.Scope.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid subscription scope")
	}
	if p.Scope == ScopeGuardianship && p.ScopeID == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "guardianship subscription requires a scope id")
	}
	if strings.TrimSpace(p.ProviderSubscriptionID) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "provider subscription id is required")
	}
	next := now.AddDate(0, BillingInterval, 0)
	return &PaymentSubscription{
		ID:                     subID,
		UserID:                 p.UserID,
		PaymentMethodID:        p.PaymentMethodID,
		Scope:                  p.Scope,
		ScopeID:                p.ScopeID,
		Amount:                 p.Amount,
		Currency:               currency,
		Provider:               p.Provider,
		ProviderSubscriptionID: p.ProviderSubscriptionID,
		Status:                 StatusActive,
		NextChargeAt:           &next,
		CreatedAt:              now,
		UpdatedAt:              now,
	}, nil
}

// Pause stops charging. Only an active subscription can be paused.
func (s *PaymentSubscription) Pause(now time.Time) error {
	if s.Status != StatusActive {
		return dErrors.New(dErrors.CodeInvalidState, "only active subscriptions can be paused")
	}
	s.Status = StatusPaused
	s.UpdatedAt = now
	return nil
}

// Resume restarts a paused subscription. A next charge already in the past is
// moved to one billing interval from now.
func (s *PaymentSubscription) Resume(now time.Time) error {
	if s.Status != StatusPaused {
		return dErrors.New(dErrors.CodeInvalidState, "only paused subscriptions can be resumed")
	}
	s.Status = StatusActive
	if s.NextChargeAt == nil || s.NextChargeAt.Before(now) {
		next := now.AddDate(0, BillingInterval, 0)
		s.NextChargeAt = &next
	}
	s.UpdatedAt = now
	return nil
}

// Cancel is idempotent.
func (s *PaymentSubscription) Cancel(now time.Time) {
	if s.Status == StatusCanceled {
		return
	}
	s.Status = StatusCanceled
	s.CanceledAt = &now
	s.NextChargeAt = nil
	s.UpdatedAt = now
}

// RecordCharge notes a successful charge and schedules the next one.
func (s *PaymentSubscription) RecordCharge(at time.Time) error {
	if s.Status == StatusCanceled {
		return dErrors.New(dErrors.CodeInvalidState, "subscription is canceled")
	}
	last := at
	next := at.AddDate(0, BillingInterval, 0)
	s.LastChargeAt = &last
	s.NextChargeAt = &next
	s.UpdatedAt = at
	return nil
}

// IsOverdue reports whether an active subscription missed its next charge by
// more than tolerance.
func (s *PaymentSubscription) IsOverdue(now time.Time, tolerance time.Duration) bool {
	if s.Status != StatusActive || s.NextChargeAt == nil {
		return false
	}
	return s.NextChargeAt.Add(tolerance).Before(now)
}

// Clone returns a deep copy.
func (s *PaymentSubscription) Clone() *PaymentSubscription {
	cp := *s
	cp.ScopeID = cloneUUID(s.ScopeID)
	cp.NextChargeAt = cloneTime(s.NextChargeAt)
	cp.LastChargeAt = cloneTime(s.LastChargeAt)
	cp.CanceledAt = cloneTime(s.CanceledAt)
	return &cp
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneUUID(u *uuid.UUID) *uuid.UUID {
	if u == nil {
		return nil
	}
	v := *u
	return &v
}
