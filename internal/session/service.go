// Package session owns the lifecycle of a signed-in caller: a short-lived
// HS256 access token plus a rotating opaque refresh token whose SHA-256 hash
// is the only thing persisted.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ErlanBelekov/coach-portal/internal/domain"
	"github.com/ErlanBelekov/coach-portal/internal/repository"
	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultAccessTTL   = 15 * time.Minute
	DefaultRefreshTTL  = 30 * 24 * time.Hour
	DefaultReuseWindow = 10 * time.Second
)

// UserStore is the subset of the user repository the service needs.
type UserStore interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindOrCreate(ctx context.Context, email string) (*domain.User, error)
	ConfirmEmail(ctx context.Context, userID string, at time.Time) error
}

type Service struct {
	verifier    Verifier
	users       UserStore
	refresh     repository.RefreshTokenRepository
	key         []byte
	accessTTL   time.Duration
	refreshTTL  time.Duration
	reuseWindow time.Duration
	now         func() time.Time
}

type Options struct {
	Key        []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// ReuseWindow is how long a rotated refresh token keeps working for
	// requests that raced the rotation. Negative disables reuse.
	ReuseWindow time.Duration
	// Verifier defaults to an HMACVerifier over Key.
	Verifier Verifier
}

func NewService(users UserStore, refresh repository.RefreshTokenRepository, opts Options) *Service {
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = DefaultAccessTTL
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = DefaultRefreshTTL
	}
	switch {
	case opts.ReuseWindow == 0:
		opts.ReuseWindow = DefaultReuseWindow
	case opts.ReuseWindow < 0:
		opts.ReuseWindow = 0
	}
	if opts.Verifier == nil {
		opts.Verifier = NewHMACVerifier(opts.Key)
	}
	return &Service{
		verifier:    opts.Verifier,
		users:       users,
		refresh:     refresh,
		key:         opts.Key,
		accessTTL:   opts.AccessTTL,
		refreshTTL:  opts.RefreshTTL,
		reuseWindow: opts.ReuseWindow,
		now:         time.Now,
	}
}

// Issue mints a fresh token pair for user.
func (s *Service) Issue(ctx context.Context, user *domain.User) (*domain.Tokens, error) {
	rawRefresh, refreshHash, err := newRefreshToken()
	if err != nil {
		return nil, err
	}

	now := s.now()
	refreshExp := now.Add(s.refreshTTL)
	if err := s.refresh.Create(ctx, user.ID, refreshHash, refreshExp); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	access, accessExp, err := s.signAccess(user, now)
	if err != nil {
		return nil, err
	}

	return &domain.Tokens{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     rawRefresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Resolve turns the credentials presented by a caller into a session.
//
// A nil session with a nil error means no credentials were presented. When
// the access token has expired and the refresh token is still good, the pair
// is rotated and the new tokens are returned so the caller can persist them.
// domain.ErrSessionInvalid means the credentials are unusable; any other
// error is transient.
func (s *Service) Resolve(ctx context.Context, accessToken, refreshToken string) (*domain.Session, *domain.Tokens, error) {
	if accessToken != "" {
		claims, err := s.verifier.Verify(ctx, accessToken)
		switch {
		case err == nil:
			sess, err := s.sessionFromClaims(ctx, claims)
			return sess, nil, err
		case errors.Is(err, ErrAccessExpired):
			if refreshToken == "" {
				return nil, nil, domain.ErrSessionInvalid
			}
		default:
			return nil, nil, err
		}
	}

	if refreshToken == "" {
		return nil, nil, nil
	}
	return s.Refresh(ctx, refreshToken)
}

// Refresh rotates a refresh token and mints a new access token. A token
// rotated within the reuse window rotates again, giving the racing request
// its own pair instead of ending the session.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*domain.Session, *domain.Tokens, error) {
	rawNew, newHash, err := newRefreshToken()
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	refreshExp := now.Add(s.refreshTTL)
	userID, err := s.refresh.Rotate(ctx, HashToken(refreshToken), newHash, refreshExp, now.Add(-s.reuseWindow))
	if err != nil {
		if errors.Is(err, domain.ErrSessionInvalid) {
			return nil, nil, domain.ErrSessionInvalid
		}
		return nil, nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	access, accessExp, err := s.signAccess(user, now)
	if err != nil {
		return nil, nil, err
	}

	tokens := &domain.Tokens{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     rawNew,
		RefreshExpiresAt: refreshExp,
	}
	return &domain.Session{User: *user, ExpiresAt: accessExp}, tokens, nil
}

// Revoke invalidates a refresh token. Revoking an unknown token is not an error.
func (s *Service) Revoke(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.refresh.Revoke(ctx, HashToken(refreshToken)); err != nil {
		return fmt.Errorf("revoke: %w", err)
	}
	return nil
}

func (s *Service) sessionFromClaims(ctx context.Context, claims *Claims) (*domain.Session, error) {
	if !claims.External {
		user, err := s.loadUser(ctx, claims.Subject)
		if err != nil {
			return nil, err
		}
		return &domain.Session{User: *user, ExpiresAt: claims.ExpiresAt}, nil
	}

	user, err := s.users.FindOrCreate(ctx, claims.Email)
	if err != nil {
		return nil, fmt.Errorf("ensure external user: %w", err)
	}
	if claims.EmailVerified && !user.EmailConfirmed() {
		now := s.now()
		if err := s.users.ConfirmEmail(ctx, user.ID, now); err != nil {
			return nil, fmt.Errorf("confirm external user: %w", err)
		}
		user.EmailConfirmedAt = &now
	}
	return &domain.Session{User: *user, ExpiresAt: claims.ExpiresAt}, nil
}

func (s *Service) loadUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrSessionInvalid
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

func (s *Service) signAccess(user *domain.User, now time.Time) (string, time.Time, error) {
	exp := now.Add(s.accessTTL)
	claims := accessClaims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign jwt: %w", err)
	}
	return signed, exp, nil
}

// HashToken returns the hex SHA-256 of a raw token, the form persisted in
// the database.
func HashToken(raw string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(raw)))
}

// NewOpaqueToken returns 32 random bytes, hex encoded.
func NewOpaqueToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(raw), nil
}

func newRefreshToken() (raw, hash string, err error) {
	raw, err = NewOpaqueToken()
	if err != nil {
		return "", "", err
	}
	return raw, HashToken(raw), nil
}
