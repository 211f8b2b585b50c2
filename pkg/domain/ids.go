package domain

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	dErrors "pawhaven/pkg/domain-errors"
)

// Typed identifiers. Each wraps a UUID so the compiler rejects passing an
// AnimalID where a GuardianshipID is expected.
//
// Construct from external input with the Parse* functions; direct conversion
// from uuid.UUID is reserved for freshly generated ids and stores.
type (
	UserID          uuid.UUID
	AnimalID        uuid.UUID
	GuardianshipID  uuid.UUID
	DonationID      uuid.UUID
	SubscriptionID  uuid.UUID
	PaymentMethodID uuid.UUID
)

func parseUUID(kind, s string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is required")
	}
	if !utf8.ValidString(s) || len(s) > 64 {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" cannot be nil")
	}
	return u, nil
}

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID("user id", s)
	return UserID(u), err
}

func ParseAnimalID(s string) (AnimalID, error) {
	u, err := parseUUID("animal id", s)
	return AnimalID(u), err
}

func ParseGuardianshipID(s string) (GuardianshipID, error) {
	u, err := parseUUID("guardianship id", s)
	return GuardianshipID(u), err
}

func ParseDonationID(s string) (DonationID, error) {
	u, err := parseUUID("donation id", s)
	return DonationID(u), err
}

func ParseSubscriptionID(s string) (SubscriptionID, error) {
	u, err := parseUUID("subscription id", s)
	return SubscriptionID(u), err
}

func ParsePaymentMethodID(s string) (PaymentMethodID, error) {
	u, err := parseUUID("payment method id", s)
	return PaymentMethodID(u), err
}

func (i UserID) String() string { return uuid.UUID(i).String() }
func (i UserID) IsNil() bool    { return uuid.UUID(i) == uuid.Nil }
func (i UserID) MarshalText() ([]byte, error) {
	return uuid.UUID(i).MarshalText()
}
func (i *UserID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(i).UnmarshalText(b)
}

func (i AnimalID) String() string { return uuid.UUID(i).String() }
func (i AnimalID) IsNil() bool    { return uuid.UUID(i) == uuid.Nil }
func (i AnimalID) MarshalText() ([]byte, error) {
	return uuid.UUID(i).MarshalText()
}
func (i *AnimalID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(i).UnmarshalText(b)
}

func (i GuardianshipID) String() string { return uuid.UUID(i).String() }
func (i GuardianshipID) IsNil() bool    { return uuid.UUID(i) == uuid.Nil }
func (i GuardianshipID) MarshalText() ([]byte, error) {
	return uuid.UUID(i).MarshalText()
}
func (i *GuardianshipID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(i).UnmarshalText(b)
}

func (i DonationID) String() string { return uuid.UUID(i).String() }
func (i DonationID) IsNil() bool    { return uuid.UUID(i) == uuid.Nil }
func (i DonationID) MarshalText() ([]byte, error) {
	return uuid.UUID(i).MarshalText()
}
func (i *DonationID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(i).UnmarshalText(b)
}

func (i SubscriptionID) String() string { return uuid.UUID(i).String() }
func (i SubscriptionID) IsNil() bool    { return uuid.UUID(i) == uuid.Nil }
func (i SubscriptionID) MarshalText() ([]byte, error) {
	return uuid.UUID(i).MarshalText()
}
func (i *SubscriptionID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(i).UnmarshalText(b)
}

func (i PaymentMethodID) String() string { return uuid.UUID(i).String() }
func (i PaymentMethodID) IsNil() bool    { return uuid.UUID(i) == uuid.Nil }
func (i PaymentMethodID) MarshalText() ([]byte, error) {
	return uuid.UUID(i).MarshalText()
}
func (i *PaymentMethodID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(i).UnmarshalText(b)
}
