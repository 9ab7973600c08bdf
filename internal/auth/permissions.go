package auth

import "carretometro-backend/internal/model"

// ImmutableAdmin can never be changed or removed and is the only account
// allowed to change or remove other super administrators.
const ImmutableAdmin = "quemoel457359"

// visitDeleters may delete visits.
var visitDeleters = map[string]bool{
	"admin01":      true,
	ImmutableAdmin: true,
}

// CanEdit reports whether role may create and change visits and fleets.
func CanEdit(role model.Role) bool {
	return role == model.RoleSuperAdmin || role == model.RoleEditor
}

// CanManageUsers reports whether role may administer users and requests.
func CanManageUsers(role model.Role) bool {
	return role == model.RoleSuperAdmin
}

// CanDeleteVisit reports whether user may delete visits.
func CanDeleteVisit(user model.User) bool {
	return visitDeleters[user.Name]
}

// DefaultUsers are created on first start when no user exists.
func DefaultUsers() []model.User {
	return []model.User{
		{Name: "admin01", Password: "admin01", Role: model.RoleSuperAdmin, Status: model.UserActive},
		{Name: "Quemoel", Password: "quemoel01", Role: model.RoleSuperAdmin, Status: model.UserActive},
		{Name: ImmutableAdmin, Password: "quemoel01", Role: model.RoleSuperAdmin, Status: model.UserActive},
	}
}
