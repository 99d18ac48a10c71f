package usecase

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/ErlanBelekov/coach-portal/internal/domain"
	"github.com/ErlanBelekov/coach-portal/internal/repository"
)

const (
	DefaultCheckInDays = 30
	MaxCheckInDays     = 366

	maxNotesLen = 1000
)

type CheckInUsecase struct {
	repo repository.CheckInRepository
	now  func() time.Time
}

func NewCheckInUsecase(repo repository.CheckInRepository) *CheckInUsecase {
	return &CheckInUsecase{repo: repo, now: time.Now}
}

type UpsertCheckInInput struct {
	UserID     string
	Day        time.Time // zero means today
	WeightKG   *float64
	SleepHours *float64
	Energy     *int
	Notes      *string
}

// Upsert records the daily check-in, replacing an earlier one for the same day.
func (u *CheckInUsecase) Upsert(ctx context.Context, input UpsertCheckInInput) (*domain.CheckIn, error) {
	today := truncateDay(u.now())
	day := today
	if !input.Day.IsZero() {
		day = truncateDay(input.Day)
	}

	switch {
	case day.After(today):
		return nil, invalid("cannot check in for a future day")
	case input.WeightKG != nil && (*input.WeightKG < 20 || *input.WeightKG > 400):
		return nil, invalid("weight must be between 20 and 400 kg")
	case input.SleepHours != nil && (*input.SleepHours < 0 || *input.SleepHours > 24):
		return nil, invalid("sleep must be between 0 and 24 hours")
	case input.Energy != nil && (*input.Energy < 1 || *input.Energy > 5):
		return nil, invalid("energy must be between 1 and 5")
	case input.Notes != nil && utf8.RuneCountInString(*input.Notes) > maxNotesLen:
		return nil, invalid("notes must be at most %d characters", maxNotesLen)
	case input.WeightKG == nil && input.SleepHours == nil && input.Energy == nil && input.Notes == nil:
		return nil, invalid("check-in is empty")
	}

	c := &domain.CheckIn{
		UserID:     input.UserID,
		Day:        day,
		WeightKG:   input.WeightKG,
		SleepHours: input.SleepHours,
		Energy:     input.Energy,
		Notes:      input.Notes,
	}
	saved, err := u.repo.Upsert(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("upsert check-in: %w", err)
	}
	return saved, nil
}

// List returns the last days check-ins for userID, newest first. days is
// clamped to [1, MaxCheckInDays]; zero means DefaultCheckInDays.
func (u *CheckInUsecase) List(ctx context.Context, userID string, days int) ([]*domain.CheckIn, error) {
	switch {
	case days <= 0:
		days = DefaultCheckInDays
	case days > MaxCheckInDays:
		days = MaxCheckInDays
	}

	to := truncateDay(u.now())
	from := to.AddDate(0, 0, -(days - 1))

	checkins, err := u.repo.ListByUser(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list check-ins: %w", err)
	}
	return checkins, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
