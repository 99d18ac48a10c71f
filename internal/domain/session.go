package domain

import "time"

type Role string

const (
	RoleCoach  Role = "coach"
	RoleClient Role = "client"
)

func (r Role) Valid() bool {
	return r == RoleCoach || r == RoleClient
}

// Session is a read-only snapshot of an authenticated caller.
type Session struct {
	User      User
	ExpiresAt time.Time // access token expiry
}

// Tokens is the credential pair handed to the browser or API client.
type Tokens struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}
