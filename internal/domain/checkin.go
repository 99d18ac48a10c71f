package domain

import (
	"errors"
	"time"
)

var ErrCheckInNotFound = errors.New("check-in not found")

type CheckIn struct {
	ID         string
	UserID     string
	Day        time.Time // midnight UTC
	WeightKG   *float64
	SleepHours *float64
	Energy     *int // 1..5
	Notes      *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
