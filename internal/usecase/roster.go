package usecase

import (
	"context"
	"fmt"

	"github.com/ErlanBelekov/coach-portal/internal/domain"
	"github.com/ErlanBelekov/coach-portal/internal/repository"
)

// RosterUsecase serves the coach's view of their clients.
type RosterUsecase struct {
	users         repository.UserRepository
	profiles      repository.ProfileRepository
	checkins      *CheckInUsecase
	operatorEmail string
}

func NewRosterUsecase(
	users repository.UserRepository,
	profiles repository.ProfileRepository,
	checkins *CheckInUsecase,
	operatorEmail string,
) *RosterUsecase {
	return &RosterUsecase{
		users:         users,
		profiles:      profiles,
		checkins:      checkins,
		operatorEmail: operatorEmail,
	}
}

func (u *RosterUsecase) ListClients(ctx context.Context) ([]*domain.ClientSummary, error) {
	clients, err := u.profiles.ListClients(ctx, u.operatorEmail)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return clients, nil
}

// ClientCheckIns returns domain.ErrUserNotFound for an unknown client.
func (u *RosterUsecase) ClientCheckIns(ctx context.Context, clientID string, days int) (*domain.User, []*domain.CheckIn, error) {
	client, err := u.users.FindByID(ctx, clientID)
	if err != nil {
		return nil, nil, err
	}
	checkins, err := u.checkins.List(ctx, client.ID, days)
	if err != nil {
		return nil, nil, err
	}
	return client, checkins, nil
}

// SetRole persists a role for the account registered under email.
func (u *RosterUsecase) SetRole(ctx context.Context, email string, role domain.Role) error {
	if !role.Valid() {
		return invalid("unknown role %q", role)
	}
	user, err := u.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err := u.profiles.SetRole(ctx, user.ID, role); err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	return nil
}
