package models

import (
	"time"

	id "pawhaven/pkg/domain"
	dErrors "pawhaven/pkg/domain-errors"
)

// Status is the lifecycle state of a guardianship.
type Status string

const (
	StatusRequiresPayment Status = "requires_payment"
	StatusActive          Status = "active"
	StatusCompleted       Status = "completed"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusRequiresPayment, StatusActive, StatusCompleted:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted
}

// DonationLink records that a donation funded this guardianship.
type DonationLink struct {
	DonationID id.DonationID `json:"donation_id"`
	LinkedAt   time.Time     `json:"linked_at"`
}

// Guardianship is the aggregate root for a user's sponsorship of one animal.
//
// Invariants:
//   - UserID and AnimalID are non-nil
//   - Completed is terminal: no field changes once reached
//   - GraceUntil is set only while Status is RequiresPayment
//   - Donations holds at most one link per donation id, in link order
//
// The aggregate never touches the animal. Callers pair Activate/Complete with
// marking or unmarking the animal's care flag.
//
// One open (non-completed) guardianship per user and animal is a store-level
// rule, see Store.CreateIfNoneActive.
type Guardianship struct {
	ID         id.GuardianshipID `json:"id"`
	UserID     id.UserID         `json:"user_id"`
	AnimalID   id.AnimalID       `json:"animal_id"`
	Status     Status            `json:"status"`
	StartDate  time.Time         `json:"start_date"`
	GraceUntil *time.Time        `json:"grace_until,omitempty"`
	Donations  []DonationLink    `json:"donations"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
	// Version is bumped by stores on every save.
	Version int `json:"-"`
}

// NewGuardianship creates a guardianship awaiting its first payment.
func NewGuardianship(guardianshipID id.GuardianshipID, userID id.UserID, animalID id.AnimalID, grace time.Duration, now time.Time) (*Guardianship, error) {
	if guardianshipID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "guardianship id is required")
	}
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "user id is required")
	}
	if animalID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "animal id is required")
	}
	if grace <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "grace period must be positive")
	}
	graceUntil := now.Add(grace)
	return &Guardianship{
		ID:         guardianshipID,
		UserID:     userID,
		AnimalID:   animalID,
		Status:     StatusRequiresPayment,
		StartDate:  now,
		GraceUntil: &graceUntil,
		Donations:  []DonationLink{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func (g *Guardianship) IsActive() bool {
	return g.Status == StatusActive
}

func (g *Guardianship) IsCompleted() bool {
	return g.Status == StatusCompleted
}

// Activate marks the guardianship funded. Activating an active guardianship
// is a no-op.
func (g *Guardianship) Activate(now time.Time) error {
	if g.Status == StatusActive {
		return nil
	}
	if g.Status.IsTerminal() {
		return dErrors.New(dErrors.CodeInvalidState, "cannot activate a completed guardianship")
	}
	g.Status = StatusActive
	g.GraceUntil = nil
	g.UpdatedAt = now
	return nil
}

// RequirePayment (re)opens a grace window. Used both for the first payment
// and for reverting after a failed recurring charge.
func (g *Guardianship) RequirePayment(grace time.Duration, now time.Time) error {
	if g.Status.IsTerminal() {
		return dErrors.New(dErrors.CodeInvalidState, "cannot require payment on a completed guardianship")
	}
	if grace <= 0 {
		return dErrors.New(dErrors.CodeValidation, "grace period must be positive")
	}
	graceUntil := now.Add(grace)
	g.Status = StatusRequiresPayment
	g.GraceUntil = &graceUntil
	g.UpdatedAt = now
	return nil
}

// Complete finishes the guardianship. Idempotent.
func (g *Guardianship) Complete(now time.Time) {
	if g.Status.IsTerminal() {
		return
	}
	g.Status = StatusCompleted
	g.GraceUntil = nil
	g.UpdatedAt = now
}

// HasDonation reports whether donationID is already linked.
func (g *Guardianship) HasDonation(donationID id.DonationID) bool {
	for _, link := range g.Donations {
		if link.DonationID == donationID {
			return true
		}
	}
	return false
}

// AddDonation links a donation. A donation can be linked once.
func (g *Guardianship) AddDonation(donationID id.DonationID, now time.Time) error {
	if donationID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "donation id is required")
	}
	if g.Status.IsTerminal() {
		return dErrors.New(dErrors.CodeInvalidState, "cannot link a donation to a completed guardianship")
	}
	if g.HasDonation(donationID) {
		return dErrors.New(dErrors.CodeConflict, "donation already linked to guardianship")
	}
	g.Donations = append(g.Donations, DonationLink{DonationID: donationID, LinkedAt: now})
	g.UpdatedAt = now
	return nil
}

// GraceExpired reports whether the guardianship is awaiting payment and its
// grace window ended strictly before now.
func (g *Guardianship) GraceExpired(now time.Time) bool {
	return g.Status == StatusRequiresPayment && g.GraceUntil != nil && g.GraceUntil.Before(now)
}

// Clone returns a deep copy so stores can hand out values that callers may
// mutate without touching stored state.
func (g *Guardianship) Clone() *Guardianship {
	c := *g
	if g.GraceUntil != nil {
		t := *g.GraceUntil
		c.GraceUntil = &t
	}
	c.Donations = append([]DonationLink(nil), g.Donations...)
	if c.Donations == nil {
		c.Donations = []DonationLink{}
	}
	return &c
}
