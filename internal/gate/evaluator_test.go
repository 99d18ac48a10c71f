package gate_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/ErlanBelekov/coach-portal/internal/domain"
	"github.com/ErlanBelekov/coach-portal/internal/gate"
)

type fakeProfiles struct {
	getByUserID func(ctx context.Context, userID string) (*domain.Profile, error)
	calls       int
}

func (f *fakeProfiles) GetByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	f.calls++
	return f.getByUserID(ctx, userID)
}

func profileReturning(p *domain.Profile, err error) *fakeProfiles {
	return &fakeProfiles{getByUserID: func(context.Context, string) (*domain.Profile, error) { return p, err }}
}

func sessionOf(s *domain.Session, err error) gate.SessionSource {
	return gate.SessionSourceFunc(func(context.Context) (*domain.Session, error) { return s, err })
}

func newEvaluator(profiles gate.ProfileFinder) *gate.Evaluator {
	return gate.NewEvaluator(gate.DefaultRoutes(), profiles, operator, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestEvaluate_ExemptPath_SkipsSessionLookup(t *testing.T) {
	called := false
	src := gate.SessionSourceFunc(func(context.Context) (*domain.Session, error) {
		called = true
		return nil, nil
	})

	out := newEvaluator(profileReturning(nil, nil)).Evaluate(context.Background(), "/static/app.js", src)

	assertAllow(t, out.Decision)
	if called {
		t.Error("exempt path must not resolve the session")
	}
}

func TestEvaluate_NoSession_SkipsProfileLookup(t *testing.T) {
	profiles := profileReturning(nil, nil)

	out := newEvaluator(profiles).Evaluate(context.Background(), "/client/dashboard", sessionOf(nil, nil))

	assertRedirect(t, out.Decision, "/auth/login?redirectedFrom=%2Fclient%2Fdashboard")
	if profiles.calls != 0 {
		t.Errorf("profile lookups = %d, want 0", profiles.calls)
	}
	if out.Session != nil || out.Role != "" {
		t.Errorf("anonymous outcome carries session %v role %q", out.Session, out.Role)
	}
}

func TestEvaluate_UnconfirmedSession_SkipsProfileLookup(t *testing.T) {
	profiles := profileReturning(nil, errors.New("must not be called"))

	out := newEvaluator(profiles).Evaluate(context.Background(), "/client/dashboard", sessionOf(unconfirmedSession(), nil))

	assertRedirect(t, out.Decision, "/auth/verify-email")
	if profiles.calls != 0 {
		t.Errorf("profile lookups = %d, want 0", profiles.calls)
	}
}

func TestEvaluate_MissingProfile_TreatedAsNotOnboarded(t *testing.T) {
	profiles := profileReturning(nil, domain.ErrProfileNotFound)

	out := newEvaluator(profiles).Evaluate(context.Background(), "/client/nutrition", sessionOf(confirmedSession("client@example.com"), nil))

	assertRedirect(t, out.Decision, "/onboarding?redirectTo=%2Fclient%2Fnutrition")
	if out.Role != domain.RoleClient {
		t.Errorf("role = %q, want client", out.Role)
	}
}

func TestEvaluate_ProfileFailure_Retries(t *testing.T) {
	profiles := profileReturning(nil, errors.New("connection refused"))

	out := newEvaluator(profiles).Evaluate(context.Background(), "/client/dashboard", sessionOf(confirmedSession("client@example.com"), nil))

	if out.Decision.Action != gate.ActionRetry {
		t.Fatalf("action = %q, want retry", out.Decision.Action)
	}
}

func TestEvaluate_OperatorEmail_IsCoach(t *testing.T) {
	profiles := profileReturning(nil, domain.ErrProfileNotFound)

	out := newEvaluator(profiles).Evaluate(context.Background(), "/", sessionOf(confirmedSession(operator), nil))

	assertRedirect(t, out.Decision, "/coach/dashboard")
	if out.Role != domain.RoleCoach {
		t.Errorf("role = %q, want coach", out.Role)
	}
}

func TestEvaluate_PersistedRoleFromProfile(t *testing.T) {
	coach := domain.RoleCoach
	profiles := profileReturning(&domain.Profile{UserID: "u1", Role: &coach}, nil)

	out := newEvaluator(profiles).Evaluate(context.Background(), "/", sessionOf(confirmedSession("assistant@example.com"), nil))

	assertRedirect(t, out.Decision, "/coach/dashboard")
}

func TestEvaluate_InvalidSession_DropsSession(t *testing.T) {
	out := newEvaluator(profileReturning(nil, nil)).Evaluate(
		context.Background(), "/client/dashboard",
		sessionOf(confirmedSession("client@example.com"), domain.ErrSessionInvalid),
	)

	if !out.Decision.ClearSession {
		t.Error("expected ClearSession")
	}
	if out.Session != nil {
		t.Error("session must be dropped when the lookup failed")
	}
}

func TestEvaluate_ReFetchesEveryCall(t *testing.T) {
	profiles := profileReturning(&domain.Profile{UserID: "u1", IsOnboarded: true}, nil)
	ev := newEvaluator(profiles)
	src := sessionOf(confirmedSession("client@example.com"), nil)

	first := ev.Evaluate(context.Background(), "/onboarding", src)
	second := ev.Evaluate(context.Background(), "/onboarding", src)

	if profiles.calls != 2 {
		t.Errorf("profile lookups = %d, want 2", profiles.calls)
	}
	if first.Decision.Location() != second.Decision.Location() {
		t.Errorf("decisions differ: %q vs %q", first.Decision.Location(), second.Decision.Location())
	}
	assertRedirect(t, first.Decision, "/client/dashboard")
}
