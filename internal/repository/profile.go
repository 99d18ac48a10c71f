package repository

import (
	"context"

	"github.com/ErlanBelekov/coach-portal/internal/domain"
)

type ProfileRepository interface {
	GetByUserID(ctx context.Context, userID string) (*domain.Profile, error)
	// CompleteOnboarding upserts the onboarding fields and sets is_onboarded.
	CompleteOnboarding(ctx context.Context, p *domain.Profile) (*domain.Profile, error)
	SetRole(ctx context.Context, userID string, role domain.Role) error
	// ListClients returns users without the coach role, ordered by email.
	// excludeEmail drops the operator account, whose role may not be persisted.
	ListClients(ctx context.Context, excludeEmail string) ([]*domain.ClientSummary, error)
}
