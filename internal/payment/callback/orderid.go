package callback

import (
	"strings"

	"github.com/google/uuid"

	id "pawhaven/pkg/domain"
	dErrors "pawhaven/pkg/domain-errors"
)

const (
	orderIDFields = 6
	orderIDSep    = "|"
	emptyField    = "-"
)

// OrderRef is the checkout context echoed back by the provider in order_id:
//
//	{scope}|{entityId|-}|{0|1 recurring}|{userId|-}|{0|1 anonymous}|{nonce}
type OrderRef struct {
	Kind      id.TargetKind
	EntityID  *uuid.UUID
	Recurring bool
	UserID    *id.UserID
	Anonymous bool
	Nonce     string
}

// EncodeOrderID renders ref in the wire format. A blank nonce gets a fresh
// random one so order ids stay unique per checkout.
func EncodeOrderID(ref OrderRef) string {
	entity := emptyField
	if ref.EntityID != nil && *ref.EntityID != uuid.Nil {
		entity = ref.EntityID.String()
	}
	user := emptyField
	if ref.UserID != nil && !ref.UserID.IsNil() {
		user = ref.UserID.String()
	}
	nonce := ref.Nonce
	if nonce == "" {
		nonce = strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	return strings.Join([]string{
		string(ref.Kind),
		entity,
		flag(ref.Recurring),
		user,
		flag(ref.Anonymous),
		nonce,
	}, orderIDSep)
}

// ParseOrderID decodes the composite order id.
//
// Errors: CodeBadRequest for a wrong field count, an unknown scope, a
// malformed id, a flag other than 0/1, or an empty nonce.
func ParseOrderID(s string) (OrderRef, error) {
	parts := strings.Split(strings.TrimSpace(s), orderIDSep)
	if len(parts) != orderIDFields {
		return OrderRef{}, dErrors.New(dErrors.CodeBadRequest, "order id must have 6 fields")
	}

	kind, err := id.ParseTargetKind(parts[0])
	if err != nil {
		return OrderRef{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid order scope")
	}
	ref := OrderRef{Kind: kind}

	if parts[1] != emptyField && parts[1] != "" {
		u, err := uuid.Parse(parts[1])
		if err != nil || u == uuid.Nil {
			return OrderRef{}, dErrors.New(dErrors.CodeBadRequest, "invalid order entity id")
		}
		ref.EntityID = &u
	}
	if ref.Recurring, err = parseFlag(parts[2]); err != nil {
		return OrderRef{}, err
	}
	if parts[3] != emptyField && parts[3] != "" {
		userID, err := id.ParseUserID(parts[3])
		if err != nil {
			return OrderRef{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid order user id")
		}
		ref.UserID = &userID
	}
	if ref.Anonymous, err = parseFlag(parts[4]); err != nil {
		return OrderRef{}, err
	}
	ref.Nonce = parts[5]
	if ref.Nonce == "" {
		return OrderRef{}, dErrors.New(dErrors.CodeBadRequest, "order id nonce is required")
	}
	return ref, nil
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func parseFlag(s string) (bool, error) {
	switch s {
	case "1":
		return true, nil
	case "0":
		return false, nil
	default:
		return false, dErrors.New(dErrors.CodeBadRequest, "order id flags must be 0 or 1")
	}
}
