package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ErlanBelekov/coach-portal/internal/domain"
	"github.com/ErlanBelekov/coach-portal/internal/http/middleware"
	"github.com/ErlanBelekov/coach-portal/internal/ratelimit"
	"github.com/ErlanBelekov/coach-portal/internal/reqctx"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ---- RequestID ----

func TestRequestID_GeneratesWhenMissing(t *testing.T) {
	var seen string
	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/", func(c *gin.Context) { seen = reqctx.RequestID(c.Request.Context()) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if _, err := uuid.Parse(seen); err != nil {
		t.Errorf("request id %q is not a uuid", seen)
	}
	if w.Header().Get("X-Request-ID") != seen {
		t.Errorf("header %q != context %q", w.Header().Get("X-Request-ID"), seen)
	}
}

func TestRequestID_PreservesIncoming(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/", func(c *gin.Context) {})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	r.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("X-Request-ID = %q, want abc-123", got)
	}
}

// ---- Bearer ----

func newBearerEngine(resolver *fakeResolver) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Bearer(resolver, &fakeProfiles{err: domain.ErrProfileNotFound}, operatorEmail, discardLogger()))
	r.GET("/api/me", func(c *gin.Context) {
		c.String(http.StatusOK, middleware.SessionFrom(c).User.ID+":"+string(middleware.RoleFrom(c)))
	})
	return r
}

func bearerRequest(header string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	return req
}

func TestBearer_MissingOrNonBearer_Returns401(t *testing.T) {
	r := newBearerEngine(resolverReturning(clientSession(), nil, nil))
	for _, h := range []string{"", "Basic dXNlcjpwYXNz", "Bearer "} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, bearerRequest(h))
		if w.Code != http.StatusUnauthorized {
			t.Errorf("header %q: status = %d, want 401", h, w.Code)
		}
	}
}

func TestBearer_InvalidToken_Returns401(t *testing.T) {
	w := httptest.NewRecorder()
	newBearerEngine(resolverReturning(nil, nil, domain.ErrSessionInvalid)).ServeHTTP(w, bearerRequest("Bearer bad"))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestBearer_TransientError_Returns503(t *testing.T) {
	w := httptest.NewRecorder()
	newBearerEngine(resolverReturning(nil, nil, errors.New("db down"))).ServeHTTP(w, bearerRequest("Bearer tok"))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestBearer_ValidToken_NeverRefreshes(t *testing.T) {
	resolver := &fakeResolver{resolve: func(_ context.Context, access, refresh string) (*domain.Session, *domain.Tokens, error) {
		if access != "tok" || refresh != "" {
			t.Errorf("resolver got (%q, %q), want (tok, \"\")", access, refresh)
		}
		return clientSession(), nil, nil
	}}

	w := httptest.NewRecorder()
	newBearerEngine(resolver).ServeHTTP(w, bearerRequest("Bearer tok"))

	if w.Code != http.StatusOK || w.Body.String() != "u1:client" {
		t.Errorf("status = %d body = %q", w.Code, w.Body.String())
	}
}

func TestBearer_PersistedRoleWins(t *testing.T) {
	coach := domain.RoleCoach
	r := gin.New()
	r.Use(middleware.Bearer(resolverReturning(clientSession(), nil, nil), &fakeProfiles{profile: &domain.Profile{Role: &coach}}, operatorEmail, discardLogger()))
	r.GET("/api/me", middleware.RequireRole(domain.RoleCoach), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, bearerRequest("Bearer tok"))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestBearer_ProfileFailure_Returns503(t *testing.T) {
	r := gin.New()
	r.Use(middleware.Bearer(resolverReturning(clientSession(), nil, nil), &fakeProfiles{err: errors.New("db down")}, operatorEmail, discardLogger()))
	r.GET("/api/me", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, bearerRequest("Bearer tok"))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

// ---- RequireRole ----

func TestRequireRole_WrongRole_Returns403(t *testing.T) {
	r := gin.New()
	r.Use(middleware.Bearer(resolverReturning(clientSession(), nil, nil), &fakeProfiles{err: domain.ErrProfileNotFound}, operatorEmail, discardLogger()))
	r.GET("/api/me", middleware.RequireRole(domain.RoleCoach), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, bearerRequest("Bearer tok"))

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestRequireRole_NoSession_Returns403(t *testing.T) {
	r := gin.New()
	r.GET("/", middleware.RequireRole(domain.RoleClient), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

// ---- RateLimit ----

type fakeLimiter struct {
	res  ratelimit.Result
	err  error
	keys []string
}

func (f *fakeLimiter) Allow(_ context.Context, key string) (ratelimit.Result, error) {
	f.keys = append(f.keys, key)
	return f.res, f.err
}

func newLimitedEngine(l ratelimit.Limiter) *gin.Engine {
	r := gin.New()
	r.POST("/auth/login", middleware.RateLimit(l, "login", discardLogger()), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRateLimit_Blocked_Returns429WithRetryAfter(t *testing.T) {
	l := &fakeLimiter{res: ratelimit.Result{Allowed: false, Limit: 10, RetryAfter: 1500 * time.Millisecond}}

	w := httptest.NewRecorder()
	newLimitedEngine(l).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/login", nil))

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "2" {
		t.Errorf("Retry-After = %q, want 2", got)
	}
	if len(l.keys) != 1 || l.keys[0] != "login:192.0.2.1" {
		t.Errorf("keys = %v", l.keys)
	}
}

func TestRateLimit_Allowed_SetsHeaders(t *testing.T) {
	l := &fakeLimiter{res: ratelimit.Result{Allowed: true, Limit: 10, Remaining: 9}}

	w := httptest.NewRecorder()
	newLimitedEngine(l).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/login", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Header().Get("X-RateLimit-Remaining") != "9" {
		t.Errorf("X-RateLimit-Remaining = %q", w.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestRateLimit_LimiterError_FailsOpen(t *testing.T) {
	w := httptest.NewRecorder()
	newLimitedEngine(&fakeLimiter{err: errors.New("redis down")}).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/login", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestRateLimit_NilLimiter_PassesThrough(t *testing.T) {
	w := httptest.NewRecorder()
	newLimitedEngine(nil).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/login", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

// ---- Security ----

func TestSecurity_SetsHeaders(t *testing.T) {
	r := gin.New()
	r.Use(middleware.Security(true))
	r.GET("/", func(c *gin.Context) {})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	for _, h := range []string{"X-Content-Type-Options", "X-Frame-Options", "Content-Security-Policy", "Strict-Transport-Security"} {
		if w.Header().Get(h) == "" {
			t.Errorf("missing %s", h)
		}
	}
}
