package repository

import (
	"context"
	"time"
)

// RefreshTokenRepository stores SHA-256 hashes of refresh tokens, never the
// raw values.
type RefreshTokenRepository interface {
	Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
	// Rotate atomically revokes oldHash and stores newHash for the same user.
	// A token rotated at or after reuseSince rotates again, so concurrent
	// requests carrying the same cookie each get a pair. Returns
	// domain.ErrSessionInvalid when oldHash is unknown, expired, revoked by
	// Revoke, or rotated before reuseSince.
	Rotate(ctx context.Context, oldHash, newHash string, expiresAt, reuseSince time.Time) (userID string, err error)
	// Revoke is idempotent.
	Revoke(ctx context.Context, tokenHash string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
