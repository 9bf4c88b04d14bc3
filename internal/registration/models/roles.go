package models

import (
	"encoding/json"

	dErrors "compreg/pkg/domain-errors"
)

// Roles is an ordered set of role tags attached to a registration
// (e.g. "delegate", "organizer"). Order is preserved, duplicates are not
// admitted, and the storage encoding is an explicit JSON array contract
// rather than an opaque blob.
type Roles []string

// Add appends a role unless it is already present.
func (r Roles) Add(role string) Roles {
	if r.Contains(role) {
		return r
	}
	return append(r, role)
}

// Equal compares role sets element-wise; order matters.
func (r Roles) Equal(other Roles) bool {
	if len(r) != len(other) {
		return false
	}
	for i := range r {
		if r[i] != other[i] {
			return false
		}
	}
	return true
}

func (r Roles) Contains(role string) bool {
	for _, existing := range r {
		if existing == role {
			return true
		}
	}
	return false
}

// Encode serializes the role set for storage. An empty set encodes as "[]".
func (r Roles) Encode() (string, error) {
	if r == nil {
		r = Roles{}
	}
	raw, err := json.Marshal(r)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "encode roles")
	}
	return string(raw), nil
}

// DecodeRoles parses the stored encoding. Empty input decodes to an empty set.
func DecodeRoles(raw string) (Roles, error) {
	if raw == "" {
		return Roles{}, nil
	}
	var roles Roles
	if err := json.Unmarshal([]byte(raw), &roles); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "decode roles")
	}
	return roles, nil
}
