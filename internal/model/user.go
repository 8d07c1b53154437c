package model

import (
	"strings"
	"time"
)

type Role string

const (
	RoleRoot   Role = "root"   // manages accounts and all data
	RoleTester Role = "tester" // takes part in evaluations and reviews
)

func (r Role) String() string { return string(r) }

func (r Role) Valid() bool { return r == RoleRoot || r == RoleTester }

// ParseRole normalizes input; empty => tester.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "tester":
		return RoleTester, true
	case "root":
		return RoleRoot, true
	default:
		return RoleTester, false
	}
}

// User is a row of the users table.
type User struct {
	ID                 int64      `json:"id"`
	Username           string     `json:"username"`
	PasswordHash       string     `json:"password_hash"`
	DisplayName        string     `json:"display_name"`
	Role               Role       `json:"role"`
	IsActive           bool       `json:"is_active"`
	MustChangePassword bool       `json:"must_change_password"`
	CreatedAt          time.Time  `json:"created_at"`
	CreatedBy          *int64     `json:"created_by"` // nullable, seeded root has none
	LastLoginAt        *time.Time `json:"last_login_at"`
}

// NewUser carries the plaintext password; stores hash it before writing.
type NewUser struct {
	Username    string
	Password    string
	DisplayName string
	Role        Role
	CreatedBy   *int64
}

// UserPatch lists the fields an update may touch; nil means unchanged.
type UserPatch struct {
	DisplayName *string
	Role        *Role
	IsActive    *bool
}
