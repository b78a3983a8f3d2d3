package rbac

import "time"

// Role is an organization membership role. The set is closed: adding a role
// means updating Valid and every gate that names one.
type Role string

const (
	RoleOwner       Role = "Owner"
	RoleRadiologist Role = "Radiologist"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleRadiologist:
		return true
	}
	return false
}

// Membership links a user to an organization under a role.
type Membership struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"userId"`
	OrganizationID int64     `json:"organizationId"`
	Role           Role      `json:"role"`
	CreatedAt      time.Time `json:"createdAt"`
}
