package domain

import (
	"errors"
	"time"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrTokenInvalid       = errors.New("token is invalid or expired")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password must be between 8 and 72 bytes")

	// ErrSessionInvalid means the caller is definitely unauthenticated: the
	// token is malformed, forged, expired without a usable refresh token, or
	// belongs to a user that no longer exists. Any other error returned while
	// resolving a session is treated as transient.
	ErrSessionInvalid = errors.New("session is invalid or expired")
)

type User struct {
	ID               string
	Email            string
	PasswordHash     *string // nil for magic-link only accounts
	EmailConfirmedAt *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (u *User) EmailConfirmed() bool {
	return u.EmailConfirmedAt != nil
}

type TokenPurpose string

const (
	PurposeLogin        TokenPurpose = "login"
	PurposeConfirmEmail TokenPurpose = "confirm_email"
)

func (p TokenPurpose) Valid() bool {
	return p == PurposeLogin || p == PurposeConfirmEmail
}

type MagicToken struct {
	ID        string
	UserID    string
	TokenHash string
	Purpose   TokenPurpose
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}
