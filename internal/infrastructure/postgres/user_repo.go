package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ErlanBelekov/coach-portal/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, email, password_hash, email_confirmed_at, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) FindOrCreate(ctx context.Context, email string) (*domain.User, error) {
	// DO UPDATE so RETURNING yields the existing row on conflict.
	query := `
		INSERT INTO users (email) VALUES ($1)
		ON CONFLICT (email) DO UPDATE SET updated_at = NOW()
		RETURNING ` + userColumns

	row := r.pool.QueryRow(ctx, query, normalizeEmail(email))
	return scanUser(row)
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	row := r.pool.QueryRow(ctx, query, id)
	u, err := scanUser(row)
	if err != nil {
		// 22P02: id is not a UUID, so no such user.
		var pgErr *pgconn.PgError
		if errors.Is(err, domain.ErrUserNotFound) || (errors.As(err, &pgErr) && pgErr.Code == "22P02") {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	row := r.pool.QueryRow(ctx, query, normalizeEmail(email))
	return scanUser(row)
}

func (r *UserRepository) Create(ctx context.Context, email, passwordHash string) (*domain.User, error) {
	query := `
		INSERT INTO users (email, password_hash) VALUES ($1, $2)
		RETURNING ` + userColumns

	row := r.pool.QueryRow(ctx, query, normalizeEmail(email), passwordHash)
	u, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrEmailTaken
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) ConfirmEmail(ctx context.Context, userID string, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users
		 SET email_confirmed_at = COALESCE(email_confirmed_at, $2), updated_at = NOW()
		 WHERE id = $1`,
		userID, at)
	if err != nil {
		return fmt.Errorf("confirm email: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) CreateMagicToken(ctx context.Context, userID, tokenHash string, purpose domain.TokenPurpose, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO magic_tokens (user_id, token_hash, purpose, expires_at) VALUES ($1, $2, $3, $4)`,
		userID, tokenHash, purpose, expiresAt)
	if err != nil {
		return fmt.Errorf("create magic token: %w", err)
	}
	return nil
}

func (r *UserRepository) ClaimMagicToken(ctx context.Context, tokenHash string, purpose domain.TokenPurpose) (*domain.MagicToken, error) {
	// Single statement so two concurrent clicks cannot both succeed.
	query := `
		UPDATE magic_tokens
		SET    used_at = NOW()
		WHERE  token_hash = $1
		  AND  purpose    = $2
		  AND  used_at IS NULL
		  AND  expires_at > NOW()
		RETURNING id, user_id, token_hash, purpose, expires_at, used_at, created_at`

	var mt domain.MagicToken
	err := r.pool.QueryRow(ctx, query, tokenHash, purpose).Scan(
		&mt.ID, &mt.UserID, &mt.TokenHash, &mt.Purpose, &mt.ExpiresAt, &mt.UsedAt, &mt.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTokenInvalid
		}
		return nil, fmt.Errorf("claim magic token: %w", err)
	}
	return &mt, nil
}

func (r *UserRepository) DeleteExpiredMagicTokens(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM magic_tokens WHERE expires_at < $1 OR used_at IS NOT NULL`, before)
	if err != nil {
		return 0, fmt.Errorf("delete expired magic tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.EmailConfirmedAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
