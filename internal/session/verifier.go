package session

import (
	"context"
	"errors"
	"time"

	"github.com/ErlanBelekov/coach-portal/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// ErrAccessExpired means the access token was genuine but has expired; the
// caller may still hold a usable refresh token.
var ErrAccessExpired = errors.New("access token expired")

// Claims is what the gate needs from a verified access token.
type Claims struct {
	Subject   string
	Email     string
	ExpiresAt time.Time

	// External is set for tokens issued by a third-party identity provider.
	// Their subject is not a local user ID, so the user is matched by email.
	External      bool
	EmailVerified bool
}

// Verifier checks an access token. It returns ErrAccessExpired,
// domain.ErrSessionInvalid, or a transient error.
type Verifier interface {
	Verify(ctx context.Context, raw string) (*Claims, error)
}

type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// HMACVerifier verifies HS256 tokens minted by this service.
type HMACVerifier struct {
	key []byte
}

func NewHMACVerifier(key []byte) *HMACVerifier {
	return &HMACVerifier{key: key}
}

func (v *HMACVerifier) Verify(_ context.Context, raw string) (*Claims, error) {
	var claims accessClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.key, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrAccessExpired
		}
		return nil, domain.ErrSessionInvalid
	}
	if !token.Valid || claims.Subject == "" {
		return nil, domain.ErrSessionInvalid
	}

	return &Claims{
		Subject:   claims.Subject,
		Email:     claims.Email,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// ChainVerifier tries each verifier in order until one accepts the token.
// A verifier rejecting the token as invalid hands over to the next one;
// expiry and transient errors stop the chain.
type ChainVerifier []Verifier

func (c ChainVerifier) Verify(ctx context.Context, raw string) (*Claims, error) {
	err := domain.ErrSessionInvalid
	for _, v := range c {
		var claims *Claims
		claims, err = v.Verify(ctx, raw)
		if err == nil {
			return claims, nil
		}
		if !errors.Is(err, domain.ErrSessionInvalid) {
			return nil, err
		}
	}
	return nil, err
}
