package models

import (
	"strings"
	"time"
)

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleTeacher UserRole = "TEACHER"
	RoleParent  UserRole = "PARENT"
)

// ParseUserRole resolves a role name case-insensitively.
func ParseUserRole(raw string) (UserRole, bool) {
	switch role := UserRole(strings.ToUpper(strings.TrimSpace(raw))); role {
	case RoleAdmin, RoleTeacher, RoleParent:
		return role, true
	default:
		return "", false
	}
}

// User represents a login account stored in the users table.
type User struct {
	ID                 string     `db:"id" json:"id"`
	Email              string     `db:"email" json:"email"`
	PasswordHash       string     `db:"password_hash" json:"-"`
	Role               UserRole   `db:"role" json:"role"`
	Active             bool       `db:"active" json:"active"`
	MustChangePassword bool       `db:"must_change_password" json:"must_change_password"`
	PasswordChangedAt  *time.Time `db:"password_changed_at" json:"password_changed_at,omitempty"`
	LastLogin          *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// AccountRef identifies a provisioned account.
type AccountRef struct {
	UserID  string   `json:"user_id"`
	Email   string   `json:"email"`
	Role    UserRole `json:"role"`
	Created bool     `json:"created"`
}
