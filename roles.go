package sesam

// UserRole identifies the authorization tier of an account.
type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
)

// ValidRole reports whether the role is one the engine knows about.
func ValidRole(role UserRole) bool {
	switch role {
	case RoleAdmin, RoleUser:
		return true
	}
	return false
}

// IsAdmin reports whether a role string grants admin access.
func IsAdmin(role string) bool {
	return UserRole(role) == RoleAdmin
}
