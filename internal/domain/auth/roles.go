package auth

const (
	RoleUser     = "user"
	RoleEmployer = "employer"
	RoleAdmin    = "admin"

	AdminRoleStandard = "admin"
	AdminRoleSuper    = "super_admin"

	StatusActive    = "active"
	StatusSuspended = "suspended"
	StatusDeleted   = "deleted"
)

type UserContext struct {
	SubjectID string
	Role      string
	AdminRole string
	SessionID string
}

// Subject is the authorization subject: the admin level for admins, the account role otherwise.
func (u UserContext) Subject() string {
	if u.Role == RoleAdmin {
		if u.AdminRole == AdminRoleSuper {
			return AdminRoleSuper
		}
		return AdminRoleStandard
	}
	return u.Role
}

func (u UserContext) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleEmployer, RoleAdmin:
		return true
	}
	return false
}

func ValidAdminRole(role string) bool {
	return role == AdminRoleStandard || role == AdminRoleSuper
}
