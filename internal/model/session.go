package model

import "time"

// Session is a server-side login record. A session is usable only while
// IsActive is set and ExpiresAt has not passed.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Token     string    `json:"-"`
	IsActive  bool      `json:"isActive"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// Expired reports whether the session's expiry is strictly before now.
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt.Before(now)
}
