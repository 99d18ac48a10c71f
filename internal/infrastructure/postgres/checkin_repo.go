package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/ErlanBelekov/coach-portal/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

const checkInColumns = `id, user_id, day, weight_kg, sleep_hours, energy, notes, created_at, updated_at`

type CheckInRepository struct {
	pool *pgxpool.Pool
}

func NewCheckInRepository(pool *pgxpool.Pool) *CheckInRepository {
	return &CheckInRepository{pool: pool}
}

func (r *CheckInRepository) Upsert(ctx context.Context, c *domain.CheckIn) (*domain.CheckIn, error) {
	query := `
		INSERT INTO checkins (user_id, day, weight_kg, sleep_hours, energy, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, day) DO UPDATE SET
			weight_kg   = EXCLUDED.weight_kg,
			sleep_hours = EXCLUDED.sleep_hours,
			energy      = EXCLUDED.energy,
			notes       = EXCLUDED.notes,
			updated_at  = NOW()
		RETURNING ` + checkInColumns

	row := r.pool.QueryRow(ctx, query,
		c.UserID, c.Day, c.WeightKG, c.SleepHours, c.Energy, c.Notes,
	)
	return scanCheckIn(row)
}

func (r *CheckInRepository) ListByUser(ctx context.Context, userID string, from, to time.Time) ([]*domain.CheckIn, error) {
	query := `
		SELECT ` + checkInColumns + `
		FROM checkins
		WHERE user_id = $1 AND day BETWEEN $2 AND $3
		ORDER BY day DESC`

	rows, err := r.pool.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list checkins: %w", err)
	}
	defer rows.Close()

	var checkIns []*domain.CheckIn
	for rows.Next() {
		c, err := scanCheckIn(rows)
		if err != nil {
			return nil, err
		}
		checkIns = append(checkIns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkins: %w", err)
	}
	return checkIns, nil
}

func scanCheckIn(row rowScanner) (*domain.CheckIn, error) {
	var c domain.CheckIn
	err := row.Scan(
		&c.ID, &c.UserID, &c.Day, &c.WeightKG, &c.SleepHours, &c.Energy, &c.Notes,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan checkin: %w", err)
	}
	return &c, nil
}
