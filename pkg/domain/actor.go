package domain

import "slices"

// Role is the coarse permission level of an actor.
type Role string

// Supported roles.
const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is a supported role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// Actor identifies who performs a lifecycle operation. It is constructed once at
// the request boundary and passed explicitly.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// CanModify reports whether the actor may change a cage assigned to the given
// users: admins always may, other actors only when assigned.
func (a Actor) CanModify(assigned []string) bool {
	if a.IsAdmin() {
		return true
	}
	return a.ID != "" && slices.Contains(assigned, a.ID)
}
