package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ErlanBelekov/coach-portal/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const profileColumns = `user_id, first_name, last_name, phone, birth_date, height_cm,
	goal, role, is_onboarded, created_at, updated_at`

type ProfileRepository struct {
	pool *pgxpool.Pool
}

func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE user_id = $1`

	row := r.pool.QueryRow(ctx, query, userID)
	return scanProfile(row)
}

func (r *ProfileRepository) CompleteOnboarding(ctx context.Context, p *domain.Profile) (*domain.Profile, error) {
	query := `
		INSERT INTO profiles (
			user_id, first_name, last_name, phone, birth_date, height_cm, goal, is_onboarded
		) VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
		ON CONFLICT (user_id) DO UPDATE SET
			first_name   = EXCLUDED.first_name,
			last_name    = EXCLUDED.last_name,
			phone        = EXCLUDED.phone,
			birth_date   = EXCLUDED.birth_date,
			height_cm    = EXCLUDED.height_cm,
			goal         = EXCLUDED.goal,
			is_onboarded = TRUE,
			updated_at   = NOW()
		RETURNING ` + profileColumns

	row := r.pool.QueryRow(ctx, query,
		p.UserID, p.FirstName, p.LastName, p.Phone, p.BirthDate, p.HeightCM, p.Goal,
	)
	return scanProfile(row)
}

func (r *ProfileRepository) SetRole(ctx context.Context, userID string, role domain.Role) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO profiles (user_id, role) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET role = EXCLUDED.role, updated_at = NOW()`,
		userID, role)
	if err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	return nil
}

func (r *ProfileRepository) ListClients(ctx context.Context, excludeEmail string) ([]*domain.ClientSummary, error) {
	query := `
		SELECT u.id, u.email,
		       COALESCE(p.first_name, ''), COALESCE(p.last_name, ''),
		       p.goal, COALESCE(p.is_onboarded, FALSE),
		       (SELECT MAX(c.day) FROM checkins c WHERE c.user_id = u.id)
		FROM users u
		LEFT JOIN profiles p ON p.user_id = u.id
		WHERE (p.role IS NULL OR p.role = 'client')
		  AND u.email <> $1
		ORDER BY u.email ASC`

	rows, err := r.pool.Query(ctx, query, normalizeEmail(excludeEmail))
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	var clients []*domain.ClientSummary
	for rows.Next() {
		var c domain.ClientSummary
		if err := rows.Scan(
			&c.UserID, &c.Email, &c.FirstName, &c.LastName,
			&c.Goal, &c.IsOnboarded, &c.LastCheckIn,
		); err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		clients = append(clients, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clients: %w", err)
	}
	return clients, nil
}

func scanProfile(row rowScanner) (*domain.Profile, error) {
	var p domain.Profile
	err := row.Scan(
		&p.UserID, &p.FirstName, &p.LastName, &p.Phone, &p.BirthDate, &p.HeightCM,
		&p.Goal, &p.Role, &p.IsOnboarded, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}
	return &p, nil
}
