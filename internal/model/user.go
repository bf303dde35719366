// Package model defines domain entities for the application.
package model

import (
	"slices"
	"time"
)

// Role is the authorization role of a user.
type Role string

// Role constants. Each role includes the permissions of the ones before it.
const (
	RoleUser     Role = "user"
	RoleStreamer Role = "streamer"
	RoleAdmin    Role = "admin"
)

// ValidRoles contains all valid role values.
var ValidRoles = []Role{RoleUser, RoleStreamer, RoleAdmin}

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	return slices.Contains(ValidRoles, r)
}

// UserStatus is the account state of a user.
type UserStatus string

// UserStatus constants.
const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
)

// IsValid reports whether s is a known status.
func (s UserStatus) IsValid() bool {
	return s == UserStatusActive || s == UserStatusSuspended
}

// User is a platform account. Balance is held in minor currency units.
type User struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	Username         string     `json:"username"`
	PasswordHash     string     `json:"-"`
	DisplayName      string     `json:"display_name"`
	Bio              string     `json:"bio"`
	AvatarURL        string     `json:"avatar_url"`
	Role             Role       `json:"role"`
	Status           UserStatus `json:"status"`
	Balance          int64      `json:"balance"`
	TwoFactorEnabled bool       `json:"two_factor_enabled"`
	TwoFactorSecret  string     `json:"-"` // ciphertext
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// IsStreamer returns true for streamers and admins.
func (u *User) IsStreamer() bool {
	return u.Role == RoleStreamer || u.Role == RoleAdmin
}

// IsAdmin returns true for admins.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsActive returns true if the account may sign in.
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// PublicProfile is the subset of a user visible to anyone.
type PublicProfile struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	DisplayName   string    `json:"display_name"`
	Bio           string    `json:"bio"`
	AvatarURL     string    `json:"avatar_url"`
	IsStreamer    bool      `json:"is_streamer"`
	FollowerCount int64     `json:"follower_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// ToPublicProfile strips private fields from the user.
func (u *User) ToPublicProfile(followers int64) PublicProfile {
	return PublicProfile{
		ID:            u.ID,
		Username:      u.Username,
		DisplayName:   u.DisplayName,
		Bio:           u.Bio,
		AvatarURL:     u.AvatarURL,
		IsStreamer:    u.IsStreamer(),
		FollowerCount: followers,
		CreatedAt:     u.CreatedAt,
	}
}

// Follow links a follower to a streamer.
type Follow struct {
	FollowerID string    `json:"follower_id"`
	StreamerID string    `json:"streamer_id"`
	CreatedAt  time.Time `json:"created_at"`
}
