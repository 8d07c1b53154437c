package http

import (
	"time"

	"github.com/jmehdipour/voidview/internal/model"
)

// userView is the wire form of a user; the password hash never leaves the
// server.
type userView struct {
	ID                 int64      `json:"id"`
	Username           string     `json:"username"`
	DisplayName        string     `json:"display_name"`
	Role               model.Role `json:"role"`
	IsActive           bool       `json:"is_active"`
	MustChangePassword bool       `json:"must_change_password"`
	CreatedAt          time.Time  `json:"created_at"`
	CreatedBy          *int64     `json:"created_by"`
	LastLoginAt        *time.Time `json:"last_login_at"`
}

func toUserView(u model.User) userView {
	return userView{
		ID:                 u.ID,
		Username:           u.Username,
		DisplayName:        u.DisplayName,
		Role:               u.Role,
		IsActive:           u.IsActive,
		MustChangePassword: u.MustChangePassword,
		CreatedAt:          u.CreatedAt,
		CreatedBy:          u.CreatedBy,
		LastLoginAt:        u.LastLoginAt,
	}
}

type pageView[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}
