package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ErlanBelekov/coach-portal/internal/domain"
	"github.com/ErlanBelekov/coach-portal/internal/repository"
)

const (
	maxNameLen  = 100
	minHeightCM = 100
	maxHeightCM = 250
)

type OnboardingUsecase struct {
	repo repository.ProfileRepository
	now  func() time.Time
}

func NewOnboardingUsecase(repo repository.ProfileRepository) *OnboardingUsecase {
	return &OnboardingUsecase{repo: repo, now: time.Now}
}

type CompleteOnboardingInput struct {
	UserID    string
	FirstName string
	LastName  string
	Phone     *string
	BirthDate *time.Time
	HeightCM  *int
	Goal      domain.Goal
}

// GetProfile returns domain.ErrProfileNotFound for users that never started
// onboarding.
func (u *OnboardingUsecase) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	p, err := u.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Complete validates the questionnaire and marks the client as onboarded.
// Submitting again overwrites the answers.
func (u *OnboardingUsecase) Complete(ctx context.Context, input CompleteOnboardingInput) (*domain.Profile, error) {
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	if input.Phone != nil {
		phone := strings.TrimSpace(*input.Phone)
		input.Phone = &phone
		if phone == "" {
			input.Phone = nil
		}
	}

	if err := u.validate(input); err != nil {
		return nil, err
	}

	goal := input.Goal
	p := &domain.Profile{
		UserID:    input.UserID,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Phone:     input.Phone,
		BirthDate: input.BirthDate,
		HeightCM:  input.HeightCM,
		Goal:      &goal,
	}

	saved, err := u.repo.CompleteOnboarding(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("complete onboarding: %w", err)
	}
	return saved, nil
}

func (u *OnboardingUsecase) validate(in CompleteOnboardingInput) error {
	switch {
	case in.FirstName == "" || in.LastName == "":
		return invalid("first and last name are required")
	case utf8.RuneCountInString(in.FirstName) > maxNameLen || utf8.RuneCountInString(in.LastName) > maxNameLen:
		return invalid("names must be at most %d characters", maxNameLen)
	case !in.Goal.Valid():
		return invalid("unknown goal %q", in.Goal)
	case in.HeightCM != nil && (*in.HeightCM < minHeightCM || *in.HeightCM > maxHeightCM):
		return invalid("height must be between %d and %d cm", minHeightCM, maxHeightCM)
	case in.BirthDate != nil && in.BirthDate.After(u.now()):
		return invalid("birth date is in the future")
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{domain.ErrInvalidInput}, args...)...)
}
