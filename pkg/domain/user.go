package domain

import "time"

// User is the identity record consumed from the externally-owned users table.
// Only id, name and email are read by this service.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Session represents an authenticated session resolved from request headers
type Session struct {
	Token     string
	User      User
	ExpiresAt time.Time
}

// Expired reports whether the session is past its expiry
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
