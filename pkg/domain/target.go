package domain

import dErrors "pawhaven/pkg/domain-errors"

// TargetKind tags what a donation or subscription supports. It is a closed
// set; every switch over it must handle all three kinds.
//
// The string values are the wire tags carried in the composite order id.
type TargetKind string

const (
	TargetGuardianship TargetKind = "Guardianship"
	TargetAidRequest   TargetKind = "AnimalAidRequest"
	TargetGlobal       TargetKind = "Global"
)

// ParseTargetKind constructs a TargetKind from a wire tag.
//
// Errors: CodeInvalidInput for an empty or unknown tag.
func ParseTargetKind(s string) (TargetKind, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "target kind cannot be empty")
	}
	k := TargetKind(s)
	if !k.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown target kind: "+s)
	}
	return k, nil
}

func (k TargetKind) IsValid() bool {
	switch k {
	case TargetGuardianship, TargetAidRequest, TargetGlobal:
		return true
	default:
		return false
	}
}

func (k TargetKind) String() string {
	return string(k)
}
