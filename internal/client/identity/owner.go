// Package identity models who local data belongs to: either the guest (no
// account) or a signed-in user. The session tracks the current owner and
// publishes identity-change events consumed by the sync engine and the CLI.
package identity

import "github.com/google/uuid"

// Owner scopes local records to an identity. The zero value is the guest.
//
// Guest is encoded as the empty string in storage, never as NULL, so
// key comparisons in SQL stay plain equality checks.
type Owner struct {
	id string
}

// Guest is the absent-identity owner used for records saved while signed out.
var Guest = Owner{}

// User returns the owner for a signed-in user id.
func User(id uuid.UUID) Owner {
	return Owner{id: id.String()}
}

// FromString decodes a storage value produced by ID. An empty string yields
// the guest owner.
func FromString(s string) Owner {
	return Owner{id: s}
}

// IsGuest reports whether o is the guest owner.
func (o Owner) IsGuest() bool {
	return o.id == ""
}

// ID returns the storage encoding of the owner: the user id, or "" for guest.
func (o Owner) ID() string {
	return o.id
}

func (o Owner) String() string {
	if o.IsGuest() {
		return "guest"
	}
	return o.id
}
