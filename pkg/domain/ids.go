// Package domain holds typed identifiers shared across modules.
//
// IDs are distinct named types so the compiler rejects cross-type
// assignment (a PaymentID can never be passed where a UserID is
// expected). Parse functions enforce the invariant that IDs are valid,
// non-empty, and non-nil at trust boundaries.
package domain

import (
	"github.com/google/uuid"

	dErrors "compreg/pkg/domain-errors"
)

// RegistrationID identifies a registration aggregate.
type RegistrationID uuid.UUID

// UserID identifies a user account.
type UserID uuid.UUID

// PaymentID identifies a payment or refund record.
type PaymentID uuid.UUID

// CompetitionID identifies a competition. Competitions use human-readable
// string identifiers assigned by the external competition system.
type CompetitionID string

// EventID identifies an event within a competition (e.g. "333", "444").
type EventID string

func parseUUID(kind, raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" must not be empty")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" must not be the nil UUID")
	}
	return parsed, nil
}

// ParseRegistrationID parses and validates a registration ID.
func ParseRegistrationID(raw string) (RegistrationID, error) {
	parsed, err := parseUUID("registration id", raw)
	return RegistrationID(parsed), err
}

// ParseUserID parses and validates a user ID.
func ParseUserID(raw string) (UserID, error) {
	parsed, err := parseUUID("user id", raw)
	return UserID(parsed), err
}

// ParsePaymentID parses and validates a payment ID.
func ParsePaymentID(raw string) (PaymentID, error) {
	parsed, err := parseUUID("payment id", raw)
	return PaymentID(parsed), err
}

// ParseCompetitionID validates a competition ID.
func ParseCompetitionID(raw string) (CompetitionID, error) {
	if raw == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "competition id must not be empty")
	}
	return CompetitionID(raw), nil
}

// NewRegistrationID returns a fresh random registration ID.
func NewRegistrationID() RegistrationID { return RegistrationID(uuid.New()) }

// NewPaymentID returns a fresh random payment ID.
func NewPaymentID() PaymentID { return PaymentID(uuid.New()) }

func (id RegistrationID) String() string { return uuid.UUID(id).String() }
func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id PaymentID) String() string      { return uuid.UUID(id).String() }

func (id RegistrationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id PaymentID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
