package model

// Role is the role claim carried by an authenticated caller.  Roles are
// issued by the identity provider; this service only interprets them.
type Role string

const (
	RoleRegularUser     Role = "regular_user"
	RoleFacilityManager Role = "facility_manager"
	RoleAdmin           Role = "admin"
	RoleAuditor         Role = "auditor"
	RoleModerator       Role = "moderator"
	RoleServiceAccount  Role = "service_account"
)

var knownRoles = map[Role]bool{
	RoleRegularUser:     true,
	RoleFacilityManager: true,
	RoleAdmin:           true,
	RoleAuditor:         true,
	RoleModerator:       true,
	RoleServiceAccount:  true,
}

// Known reports whether r is one of the roles issued by the identity
// provider.
func (r Role) Known() bool { return knownRoles[r] }

// Elevated reports whether r may act on any reservation.
func (r Role) Elevated() bool {
	return r == RoleAdmin || r == RoleFacilityManager
}

// CanReadAnyHistory reports whether r may read the audit trail of
// reservations it does not own.  Auditors are read-only.
func (r Role) CanReadAnyHistory() bool {
	return r.Elevated() || r == RoleAuditor
}

// Actor is the opaque identity claim supplied with every call.
//
// Fields:
//  UserID – subject of the access token.
//  Role   – role claim of the access token.
type Actor struct {
	UserID uint64 `json:"user_id"`
	Role   Role   `json:"role"`
}

// Owns reports whether the actor is the owner of r.
func (a Actor) Owns(r *Reservation) bool { return r != nil && a.UserID == r.OwnerID }
