package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ErlanBelekov/coach-portal/internal/domain"
	"github.com/lestrrat-go/jwx/v2/jwk"
	jwxjwt "github.com/lestrrat-go/jwx/v2/jwt"
)

// JWKSVerifier verifies RS256/ES256 tokens from an external identity
// provider. The key set is cached and refreshed at most every 15 minutes.
type JWKSVerifier struct {
	url   string
	cache *jwk.Cache
}

func NewJWKSVerifier(ctx context.Context, url string) (*JWKSVerifier, error) {
	c := jwk.NewCache(ctx)
	if err := c.Register(url, jwk.WithMinRefreshInterval(15*time.Minute)); err != nil {
		return nil, fmt.Errorf("jwk cache register: %w", err)
	}
	return &JWKSVerifier{url: url, cache: c}, nil
}

func (v *JWKSVerifier) Verify(ctx context.Context, raw string) (*Claims, error) {
	keySet, err := v.cache.Get(ctx, v.url)
	if err != nil {
		return nil, fmt.Errorf("fetch jwks: %w", err)
	}

	tok, err := jwxjwt.Parse([]byte(raw), jwxjwt.WithKeySet(keySet), jwxjwt.WithValidate(true))
	if err != nil {
		if errors.Is(err, jwxjwt.ErrTokenExpired()) {
			return nil, ErrAccessExpired
		}
		return nil, domain.ErrSessionInvalid
	}

	email, _ := tok.PrivateClaims()["email"].(string)
	if tok.Subject() == "" || email == "" {
		return nil, domain.ErrSessionInvalid
	}
	verified, _ := tok.PrivateClaims()["email_verified"].(bool)

	return &Claims{
		Subject:       tok.Subject(),
		Email:         email,
		ExpiresAt:     tok.Expiration(),
		External:      true,
		EmailVerified: verified,
	}, nil
}
