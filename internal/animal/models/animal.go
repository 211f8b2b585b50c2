package models

import (
	"time"

	id "pawhaven/pkg/domain"
)

// Animal is the slice of the shelter's animal record this service touches:
// only the under-care flag is ever written.
type Animal struct {
	ID        id.AnimalID `json:"id"`
	Name      string      `json:"name"`
	UnderCare bool        `json:"under_care"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// SetUnderCare toggles the flag and reports whether it changed.
func (a *Animal) SetUnderCare(underCare bool, now time.Time) bool {
	if a.UnderCare == underCare {
		return false
	}
	a.UnderCare = underCare
	a.UpdatedAt = now
	return true
}
