package authz

const (
	RoleTenant   = "tenant"
	RoleLandlord = "landlord"
	RoleAdmin    = "admin"
)

// IsValidSignupRole reports whether a role may be chosen at self-registration.
func IsValidSignupRole(role string) bool {
	return role == RoleTenant || role == RoleLandlord
}

func IsAdmin(role string) bool {
	return role == RoleAdmin
}
