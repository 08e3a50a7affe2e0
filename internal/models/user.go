package models

import "time"

// UserRole represents the closed set of roles recognised by the system.
type UserRole string

const (
	RoleRegularUser  UserRole = "regular_user"
	RoleInvestigator UserRole = "investigator"
	RoleAnalyst      UserRole = "analyst"
	RoleCustodian    UserRole = "custodian"
	RoleAuditor      UserRole = "auditor"
	RoleAdmin        UserRole = "admin"
)

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	Verified     bool       `db:"verified" json:"verified"`
	IsSuperuser  bool       `db:"is_superuser" json:"is_superuser"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// IsStaff reports whether the user holds administrative authority.
func (u *User) IsStaff() bool {
	return u.IsSuperuser || u.Role == RoleAdmin
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
