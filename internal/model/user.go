package model

// Role is the permission level of a user.
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleEditor     Role = "EDITOR"
	RoleViewer     Role = "VIEWER"
)

func (r Role) Valid() bool {
	return r == RoleSuperAdmin || r == RoleEditor || r == RoleViewer
}

// UserStatus tells whether a user may log in.
type UserStatus string

const (
	UserActive  UserStatus = "ACTIVE"
	UserBlocked UserStatus = "BLOCKED"
)

// User is an operator account. Passwords are stored as typed.
type User struct {
	Name     string     `gorm:"primaryKey;size:128" json:"name"`
	Password string     `gorm:"column:password_plaintext;not null" json:"-"`
	Role     Role       `gorm:"size:16;not null" json:"role"`
	Status   UserStatus `gorm:"size:16;not null" json:"status"`
}

// PasswordResetRequest is a pending password change awaiting an administrator.
type PasswordResetRequest struct {
	Username    string `gorm:"primaryKey;size:128" json:"username"`
	NewPassword string `gorm:"column:new_password_plaintext;not null" json:"-"`
	RequestedAt int64  `gorm:"not null" json:"requestedAt"`
}

type AccessRequestStatus string

const (
	AccessPending  AccessRequestStatus = "PENDING"
	AccessApproved AccessRequestStatus = "APPROVED"
	AccessDenied   AccessRequestStatus = "DENIED"
)

// AccessRequest is a self-service request for a new account.
type AccessRequest struct {
	ID                string              `gorm:"primaryKey;size:64" json:"id"`
	FullName          string              `gorm:"size:256;not null" json:"fullName"`
	Email             string              `gorm:"size:256" json:"email,omitempty"`
	NPNumber          string              `gorm:"column:np_number;size:64" json:"npNumber,omitempty"`
	Workshop          string              `gorm:"size:64" json:"workshop"`
	RequestedAt       int64               `gorm:"index;not null" json:"requestedAt"`
	ManagerName       string              `gorm:"size:256" json:"managerName,omitempty"`
	Status            AccessRequestStatus `gorm:"size:16;not null" json:"status"`
	GeneratedUsername string              `gorm:"size:128" json:"generatedUsername,omitempty"`
	GeneratedPassword string              `gorm:"size:128" json:"generatedPassword,omitempty"`
	AssignedRole      Role                `gorm:"size:16" json:"assignedRole,omitempty"`
}
