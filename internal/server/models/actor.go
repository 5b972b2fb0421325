package models

// Role is the caller's role as asserted by the identity provider.
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleFarmAdmin  Role = "FARM_ADMIN"
	RoleManager    Role = "MANAGER"
	RoleScout      Role = "SCOUT"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleFarmAdmin, RoleManager, RoleScout:
		return true
	}
	return false
}

// CanReview reports whether the role may complete or reopen sessions.
func (r Role) CanReview() bool {
	return r == RoleSuperAdmin || r == RoleFarmAdmin || r == RoleManager
}

// Actor identifies who performs a mutation. It is always passed explicitly.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Role Role   `json:"role"`
}

// Device describes the device a mutation came from. All fields are optional.
type Device struct {
	DeviceID   string `json:"deviceId,omitempty"`
	DeviceType string `json:"deviceType,omitempty"`
	Location   string `json:"location,omitempty"`
}
