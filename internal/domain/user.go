// Package domain contains core domain types for the propdesk dashboard.
package domain

import (
	"time"
)

// Role names a dashboard audience.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleTenant Role = "tenant"
	RoleSales  Role = "sales"
	RoleOwner  Role = "owner"
)

// Identity is the signed-in user as handed over by the auth collaborator.
type Identity struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`
}

// Resolved reports whether the identity carries a usable user id.
func (i Identity) Resolved() bool {
	return i.UserID != ""
}

// Session binds a device session id to an identity and its backend token.
type Session struct {
	SessionID  string    `json:"session_id"`
	Identity   Identity  `json:"identity"`
	Token      string    `json:"-"`
	LastSeenAt time.Time `json:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Expired reports whether the session has been idle longer than ttl.
func (s *Session) Expired(ttl time.Duration, now time.Time) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(s.LastSeenAt) > ttl
}
