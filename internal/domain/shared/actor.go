package shared

import "github.com/google/uuid"

// ActorRole identifies the privilege level of the caller. The identity
// collaborator upstream is trusted to supply it; the services only layer
// ownership and role checks on top.
type ActorRole string

const (
	ActorRoleCustomer ActorRole = "customer"
	ActorRoleAgent    ActorRole = "agent"
	ActorRoleAdmin    ActorRole = "admin"
)

// IsValid checks if the role is a known ActorRole
func (r ActorRole) IsValid() bool {
	switch r {
	case ActorRoleCustomer, ActorRoleAgent, ActorRoleAdmin:
		return true
	}
	return false
}

// String returns the string representation of ActorRole
func (r ActorRole) String() string {
	return string(r)
}

// IsPrivileged returns true for roles that may act on entities they do not own
func (r ActorRole) IsPrivileged() bool {
	return r == ActorRoleAgent || r == ActorRoleAdmin
}

// Actor is the authenticated caller of a transition
type Actor struct {
	UserID uuid.UUID
	Role   ActorRole
}

// NewActor creates an actor from an authenticated identity
func NewActor(userID uuid.UUID, role ActorRole) (Actor, error) {
	if userID == uuid.Nil {
		return Actor{}, NewDomainError("INVALID_ACTOR", "Actor user ID cannot be empty")
	}
	if !role.IsValid() {
		return Actor{}, NewDomainError("INVALID_ACTOR", "Unknown actor role")
	}
	return Actor{UserID: userID, Role: role}, nil
}

// Owns reports whether the actor is the owner of an entity
func (a Actor) Owns(ownerUserID uuid.UUID) bool {
	return a.UserID == ownerUserID
}

// CanAccess reports whether the actor may operate on an entity owned by
// ownerUserID. Privileged roles may operate on any entity.
func (a Actor) CanAccess(ownerUserID uuid.UUID) bool {
	return a.Role.IsPrivileged() || a.Owns(ownerUserID)
}
