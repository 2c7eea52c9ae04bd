// Package model defines the data structures used throughout the application.
package model

import (
	"encoding/json"
	"time"
)

// User represents a registered account.
//
// An account is created either by email/password registration or by the
// first Google sign-in. PasswordHash is nil for Google-only accounts and
// GoogleID is nil until the account is linked to a Google identity.
//
// Email is stored normalized (trimmed, lower-cased) so that uniqueness is
// case-insensitive.
type User struct {
	ID              string          `json:"id"`
	Email           string          `json:"email"`
	FullName        string          `json:"fullName"`
	PasswordHash    *string         `json:"-"`
	GoogleID        *string         `json:"-"`
	IsEmailVerified bool            `json:"isEmailVerified"`
	Metadata        json.RawMessage `json:"-"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// HasPassword reports whether the account can sign in with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}
