package domain

import (
	"errors"
	"time"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrInvalidInput    = errors.New("invalid input")
)

type Goal string

const (
	GoalLoseWeight  Goal = "lose_weight"
	GoalGainMuscle  Goal = "gain_muscle"
	GoalMaintain    Goal = "maintain"
	GoalPerformance Goal = "performance"
)

func (g Goal) Valid() bool {
	switch g {
	case GoalLoseWeight, GoalGainMuscle, GoalMaintain, GoalPerformance:
		return true
	}
	return false
}

type Profile struct {
	UserID      string
	FirstName   string
	LastName    string
	Phone       *string
	BirthDate   *time.Time
	HeightCM    *int
	Goal        *Goal
	Role        *Role // nil until an operator assigns one
	IsOnboarded bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ClientSummary is one row of the coach roster.
type ClientSummary struct {
	UserID      string
	Email       string
	FirstName   string
	LastName    string
	Goal        *Goal
	IsOnboarded bool
	LastCheckIn *time.Time
}
