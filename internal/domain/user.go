package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered account. Data admins are the only users
// allowed to mutate asset prices.
type User struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	IsDataAdmin  bool
	CreatedAt    time.Time
}

// Session identifies the acting user on a request or channel connection.
// The zero value is an anonymous session with no capabilities.
type Session struct {
	UserID      uuid.UUID
	Username    string
	IsDataAdmin bool
}

// Authenticated reports whether the session belongs to a known user.
func (s Session) Authenticated() bool {
	return s.UserID != uuid.Nil
}
