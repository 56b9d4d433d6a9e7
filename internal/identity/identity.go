// Package identity resolves who the caller of a workspace is and which role
// they hold. Roles are never carried in tokens; they are looked up per
// workspace and cached in its key-value namespace.
package identity

import "strings"

// State is the resolver's position in its lifecycle.
type State string

const (
	StateUnresolved State = "unresolved"
	StateResolving  State = "resolving"
	StateResolved   State = "resolved"
	StateSignedOut  State = "signed_out"
)

const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// NormalizeRole maps stored role values onto the known roles, falling back
// to the lowest privilege.
func NormalizeRole(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case RoleAdmin:
		return RoleAdmin
	case RoleSuperAdmin:
		return RoleSuperAdmin
	default:
		return RoleUser
	}
}

// IsAdminTier reports whether role grants unscoped access.
func IsAdminTier(role string) bool {
	return role == RoleAdmin || role == RoleSuperAdmin
}

// Identity is the authenticated user bound to a workspace.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// Snapshot is a consistent view of the resolver state.
type Snapshot struct {
	State       State     `json:"state"`
	Identity    *Identity `json:"identity,omitempty"`
	Role        string    `json:"role,omitempty"`
	Provisional bool      `json:"provisional"`
}

// IsAdmin reports whether the snapshot carries an admin-tier role.
func (s Snapshot) IsAdmin() bool {
	return s.State == StateResolved && IsAdminTier(s.Role)
}
