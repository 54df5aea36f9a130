/*
Package user contains core data structures and logic related to user identity and presence.

It defines the persisted representation of an account (the User struct) and its public
projection (Summary), which is what other participants see in websocket payloads.
*/
package user

import (
	"strings"
	"time"
	"unicode/utf8"

	"livechat/internal/pkg/errs"
)

const (
	// MaxUsernameLength is the maximum number of characters in a username.
	MaxUsernameLength = 100

	// MaxPasswordLength is the maximum number of characters in a password.
	MaxPasswordLength = 100
)

// User represents a registered account and its durable presence state.
type User struct {
	// ID is the unique identifier for the user (UUID).
	ID string `json:"id"`

	// Username is the unique login and display name.
	Username string `json:"username"`

	// PasswordHash is the bcrypt hash of the password. It is never serialized.
	PasswordHash string `json:"-"`

	// Online reports whether the user is currently considered connected.
	Online bool `json:"online"`

	// LastSeen is the last time the user showed activity.
	LastSeen time.Time `json:"lastSeen"`

	// Avatar is the public URL of the user's avatar, empty when unset.
	Avatar string `json:"avatar,omitempty"`
}

// Summary is the public projection of a User used in chat payloads.
type Summary struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	Avatar   string    `json:"avatar,omitempty"`
	Online   bool      `json:"online"`
	LastSeen time.Time `json:"lastSeen"`
}

// Summary returns the public projection of u.
func (u User) Summary() Summary {
	return Summary{
		ID:       u.ID,
		Username: u.Username,
		Avatar:   u.Avatar,
		Online:   u.Online,
		LastSeen: u.LastSeen,
	}
}

// ValidateSignUp checks the sign-up form and returns the trimmed username.
func ValidateSignUp(username, password, confirmation string) (string, *errs.CustomError) {
	username = strings.TrimSpace(username)

	if n := utf8.RuneCountInString(username); n == 0 || n > MaxUsernameLength {
		return "", errs.NewError(errs.ErrInvalidUsername)
	}

	if n := utf8.RuneCountInString(password); n == 0 || n > MaxPasswordLength {
		return "", errs.NewError(errs.ErrInvalidPassword)
	}

	if password != confirmation {
		return "", errs.NewError(errs.ErrPasswordMismatch)
	}

	return username, nil
}
