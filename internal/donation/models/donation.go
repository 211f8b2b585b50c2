package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	id "pawhaven/pkg/domain"
	dErrors "pawhaven/pkg/domain-errors"
)

// Status of a single payment attempt.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// Target identifies what a donation supports. ID is nil for global donations
// and for aid requests whose id was not carried through checkout.
type Target struct {
	Kind id.TargetKind `json:"kind"`
	ID   *uuid.UUID    `json:"id,omitempty"`
}

// GuardianshipID returns the target id as a guardianship id when the target
// is a guardianship with an id.
func (t *Target) GuardianshipID() (id.GuardianshipID, bool) {
	if t == nil || t.Kind != id.TargetGuardianship || t.ID == nil {
		return id.GuardianshipID{}, false
	}
	return id.GuardianshipID(*t.ID), true
}

// Purpose returns the human-readable purpose recorded on the donation.
func Purpose(t *Target) string {
	if t == nil {
		return "donation"
	}
	switch t.Kind {
	case id.TargetGuardianship:
		return "guardianship care"
	case id.TargetAidRequest:
		return "aid request support"
	case id.TargetGlobal:
		return "general donation"
	default:
		return "donation"
	}
}

// Donation is a ledger entry for one payment attempt. It is immutable after
// creation apart from the free-text Report.
//
// Invariants:
//   - Amount is finite and at least domain.MinAmount
//   - Currency is a three-letter upper-case code
//   - Target, once set, carries a valid kind
type Donation struct {
	ID              id.DonationID      `json:"id"`
	UserID          *id.UserID         `json:"user_id,omitempty"`
	Amount          float64            `json:"amount"`
	Currency        string             `json:"currency"`
	Status          Status             `json:"status"`
	Provider        string             `json:"provider"`
	PaymentMethodID id.PaymentMethodID `json:"payment_method_id"`
	TransactionID   string             `json:"transaction_id,omitempty"`
	Purpose         string             `json:"purpose"`
	Target          *Target            `json:"target,omitempty"`
	Recurring       bool               `json:"recurring"`
	Anonymous       bool               `json:"anonymous"`
	DonationDate    time.Time          `json:"donation_date"`
	Report          string             `json:"report,omitempty"`
}

// NewDonationParams groups the fields known when a charge is reconciled.
type NewDonationParams struct {
	UserID          *id.UserID
	Amount          float64
	Currency        string
	Status          Status
	Provider        string
	PaymentMethodID id.PaymentMethodID
	TransactionID   string
	Purpose         string
	Recurring       bool
	Anonymous       bool
}

func NewDonation(donationID id.DonationID, p NewDonationParams, now time.Time) (*Donation, error) {
	if err := id.ValidateAmount("donation amount", p.Amount); err != nil {
		return nil, err
	}
	currency, err := id.NormalizeCurrency(p.Currency)
	if err != nil {
		return nil, err
	}
	if !p.Status.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid donation status")
	}
	if p.UserID != nil && p.UserID.IsNil() {
		p.UserID = nil
	}
	return &Donation{
		ID:              donationID,
		UserID:          p.UserID,
		Amount:          p.Amount,
		Currency:        currency,
		Status:          p.Status,
		Provider:        p.Provider,
		PaymentMethodID: p.PaymentMethodID,
		TransactionID:   p.TransactionID,
		Purpose:         p.Purpose,
		Recurring:       p.Recurring,
		Anonymous:       p.Anonymous,
		DonationDate:    now,
	}, nil
}

// SetTarget tags the donation. The kind must be one of the known targets.
func (d *Donation) SetTarget(kind id.TargetKind, targetID *uuid.UUID) error {
	if !kind.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "target kind is required")
	}
	t := &Target{Kind: kind}
	if targetID != nil && *targetID != uuid.Nil {
		v := *targetID
		t.ID = &v
	}
	d.Target = t
	return nil
}

// SetReport replaces the free-text report.
func (d *Donation) SetReport(report string) {
	d.Report = strings.TrimSpace(report)
}

func (d *Donation) IsCompleted() bool {
	return d.Status == StatusCompleted
}
