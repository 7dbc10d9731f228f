package models

import (
	"strings"
	"time"
)

// Roles a user can hold. The first user created in the system gets RoleAdmin.
const (
	RoleAdmin = "Admin"
	RoleUser  = "User"
)

type User struct {
	ID        int64
	Username  string
	Password  string // bcrypt hash, empty for accounts created through an external provider
	Email     string
	Role      string
	IsDeleted bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PasswordLoginEnabled reports whether the account can sign in with a password.
func (u *User) PasswordLoginEnabled() bool {
	return u.Password != ""
}

// IsValidRole reports whether role is one of the known roles.
func IsValidRole(role string) bool {
	return role == RoleAdmin || role == RoleUser
}

// BootstrapRole returns the role for a new account given how many users already exist.
func BootstrapRole(existingUsers int64) string {
	if existingUsers == 0 {
		return RoleAdmin
	}
	return RoleUser
}

// UsernameFromEmail returns the local part of an email address.
func UsernameFromEmail(email string) string {
	if i := strings.Index(email, "@"); i >= 0 {
		return email[:i]
	}
	return email
}
