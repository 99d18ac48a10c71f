package repository

import (
	"context"
	"time"

	"github.com/ErlanBelekov/coach-portal/internal/domain"
)

type CheckInRepository interface {
	// Upsert writes the check-in for (UserID, Day), replacing an existing one.
	Upsert(ctx context.Context, c *domain.CheckIn) (*domain.CheckIn, error)
	// ListByUser returns check-ins with from <= day <= to, newest first.
	ListByUser(ctx context.Context, userID string, from, to time.Time) ([]*domain.CheckIn, error)
}
