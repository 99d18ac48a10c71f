package repository

import (
	"context"
	"time"

	"github.com/ErlanBelekov/coach-portal/internal/domain"
)

type UserRepository interface {
	FindOrCreate(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// Create returns domain.ErrEmailTaken when the email is already registered.
	Create(ctx context.Context, email, passwordHash string) (*domain.User, error)
	ConfirmEmail(ctx context.Context, userID string, at time.Time) error

	CreateMagicToken(ctx context.Context, userID, tokenHash string, purpose domain.TokenPurpose, expiresAt time.Time) error
	// ClaimMagicToken marks an unused, unexpired token as used and returns it.
	// Returns domain.ErrTokenInvalid when no such token exists.
	ClaimMagicToken(ctx context.Context, tokenHash string, purpose domain.TokenPurpose) (*domain.MagicToken, error)
	DeleteExpiredMagicTokens(ctx context.Context, before time.Time) (int64, error)
}
