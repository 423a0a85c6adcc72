package models

import "time"

// UnknownUser is recorded on ledger entries written without an identity.
const UnknownUser = "unknown"

// User is an authenticated account as reported by the identity provider.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session binds an identity token to its user until ExpiresAt.
type Session struct {
	Token     string    `json:"token"`
	User      User      `json:"user"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the session is no longer valid at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Credentials are the email/password pair used to sign in or sign up.
type Credentials struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}
