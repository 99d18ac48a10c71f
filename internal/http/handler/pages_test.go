package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/ErlanBelekov/coach-portal/internal/domain"
	"github.com/ErlanBelekov/coach-portal/internal/gate"
	"github.com/ErlanBelekov/coach-portal/internal/http/handler"
	"github.com/ErlanBelekov/coach-portal/internal/http/middleware"
	"github.com/ErlanBelekov/coach-portal/internal/usecase"
	"github.com/gin-gonic/gin"
)

const operatorEmail = "coach@example.com"

var confirmedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// ---- fakes ----

type fakeResolver struct {
	sess *domain.Session
	err  error
}

func (f *fakeResolver) ResolveSession(context.Context, string, string) (*domain.Session, *domain.Tokens, error) {
	return f.sess, nil, f.err
}

type fakeOnboarding struct {
	getProfile func(ctx context.Context, userID string) (*domain.Profile, error)
	complete   func(ctx context.Context, in usecase.CompleteOnboardingInput) (*domain.Profile, error)
}

func (f *fakeOnboarding) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	return f.getProfile(ctx, userID)
}

func (f *fakeOnboarding) Complete(ctx context.Context, in usecase.CompleteOnboardingInput) (*domain.Profile, error) {
	return f.complete(ctx, in)
}

// GetByUserID lets the same fake back the gate.
func (f *fakeOnboarding) GetByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	return f.getProfile(ctx, userID)
}

func profileOf(p *domain.Profile, err error) *fakeOnboarding {
	return &fakeOnboarding{getProfile: func(context.Context, string) (*domain.Profile, error) { return p, err }}
}

type fakeCheckIns struct {
	upsert func(ctx context.Context, in usecase.UpsertCheckInInput) (*domain.CheckIn, error)
	list   func(ctx context.Context, userID string, days int) ([]*domain.CheckIn, error)
}

func (f *fakeCheckIns) Upsert(ctx context.Context, in usecase.UpsertCheckInInput) (*domain.CheckIn, error) {
	return f.upsert(ctx, in)
}

func (f *fakeCheckIns) List(ctx context.Context, userID string, days int) ([]*domain.CheckIn, error) {
	return f.list(ctx, userID, days)
}

type fakeRoster struct {
	listClients    func(ctx context.Context) ([]*domain.ClientSummary, error)
	clientCheckIns func(ctx context.Context, clientID string, days int) (*domain.User, []*domain.CheckIn, error)
}

func (f *fakeRoster) ListClients(ctx context.Context) ([]*domain.ClientSummary, error) {
	return f.listClients(ctx)
}

func (f *fakeRoster) ClientCheckIns(ctx context.Context, clientID string, days int) (*domain.User, []*domain.CheckIn, error) {
	return f.clientCheckIns(ctx, clientID, days)
}

// ---- helpers ----

func sessionFor(email string) *domain.Session {
	return &domain.Session{User: domain.User{ID: "u1", Email: email, EmailConfirmedAt: &confirmedAt}}
}

func onboarded() *domain.Profile {
	return &domain.Profile{UserID: "u1", FirstName: "Ada", LastName: "Lovelace", IsOnboarded: true}
}

// signedIn routes through the real gate so handlers see the identity it stores.
func signedIn(sess *domain.Session, profiles gate.ProfileFinder) gin.HandlerFunc {
	ev := gate.NewEvaluator(gate.DefaultRoutes(), profiles, operatorEmail, discardLogger())
	return middleware.Gate(ev, &fakeResolver{sess: sess}, middleware.NewCookies("", false))
}

// ---- Onboarding ----

func newOnboardingEngine(sess *domain.Session, uc *fakeOnboarding) *gin.Engine {
	h := handler.NewOnboardingHandler(uc, gate.DefaultRoutes(), discardLogger())
	r := newEngine()
	r.Use(signedIn(sess, uc))
	r.GET("/onboarding", h.Page)
	r.POST("/onboarding", h.Submit)
	return r
}

func TestOnboardingPage_PrefillsExistingAnswers(t *testing.T) {
	goal := domain.GoalGainMuscle
	height := 181
	uc := profileOf(&domain.Profile{UserID: "u1", FirstName: "Ada", HeightCM: &height, Goal: &goal}, nil)

	w := get(newOnboardingEngine(sessionFor("client@example.com"), uc), "/onboarding?redirectTo=%2Fclient%2Fcheckins")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{`value="Ada"`, `value="181"`, `value="/client/checkins"`, `value="gain_muscle" selected`} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %s", want)
		}
	}
}

func TestOnboardingPage_Coach_RedirectsToCoachDashboard(t *testing.T) {
	uc := profileOf(nil, domain.ErrProfileNotFound)

	w := get(newOnboardingEngine(sessionFor(operatorEmail), uc), "/onboarding")

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/coach/dashboard" {
		t.Errorf("Location = %q", loc)
	}
}

func TestOnboardingSubmit_Success_ResumesRedirectTo(t *testing.T) {
	var got usecase.CompleteOnboardingInput
	uc := profileOf(nil, domain.ErrProfileNotFound)
	uc.complete = func(_ context.Context, in usecase.CompleteOnboardingInput) (*domain.Profile, error) {
		got = in
		return onboarded(), nil
	}

	w := postForm(newOnboardingEngine(sessionFor("client@example.com"), uc), "/onboarding", url.Values{
		"redirectTo": {"/client/checkins"},
		"first_name": {"Ada"},
		"last_name":  {"Lovelace"},
		"height_cm":  {"170"},
		"birth_date": {"1990-05-01"},
		"goal":       {"maintain"},
	})

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/client/checkins" {
		t.Errorf("Location = %q", loc)
	}
	if got.UserID != "u1" || got.Goal != domain.GoalMaintain || got.HeightCM == nil || *got.HeightCM != 170 {
		t.Errorf("input = %+v", got)
	}
	if got.BirthDate == nil || got.BirthDate.Year() != 1990 {
		t.Errorf("birth date = %v", got.BirthDate)
	}
}

func TestOnboardingSubmit_OffsiteRedirect_FallsBackToDashboard(t *testing.T) {
	uc := profileOf(nil, domain.ErrProfileNotFound)
	uc.complete = func(context.Context, usecase.CompleteOnboardingInput) (*domain.Profile, error) { return onboarded(), nil }

	w := postForm(newOnboardingEngine(sessionFor("client@example.com"), uc), "/onboarding", url.Values{
		"redirectTo": {"https://evil.example"},
		"first_name": {"Ada"},
		"last_name":  {"Lovelace"},
		"goal":       {"maintain"},
	})

	if loc := w.Header().Get("Location"); loc != "/client/dashboard" {
		t.Errorf("Location = %q, want /client/dashboard", loc)
	}
}

func TestOnboardingSubmit_Invalid_Returns422(t *testing.T) {
	uc := profileOf(nil, domain.ErrProfileNotFound)
	uc.complete = func(context.Context, usecase.CompleteOnboardingInput) (*domain.Profile, error) {
		return nil, errors.New("must not be called")
	}

	w := postForm(newOnboardingEngine(sessionFor("client@example.com"), uc), "/onboarding", url.Values{
		"first_name": {"Ada"},
		"height_cm":  {"tall"},
	})

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	if !strings.Contains(w.Body.String(), "height_cm must be a whole number") {
		t.Error("expected validation message in body")
	}
}

// ---- Client ----

func newClientEngine(profiles *fakeOnboarding, checkins *fakeCheckIns) *gin.Engine {
	h := handler.NewClientHandler(profiles, checkins, discardLogger())
	r := newEngine()
	r.Use(signedIn(sessionFor("client@example.com"), profiles))
	r.GET("/client/dashboard", h.Dashboard)
	r.GET("/client/checkins", h.CheckIns)
	r.POST("/client/checkins", h.SaveCheckIn)
	return r
}

func TestClientDashboard_ShowsLastWeek(t *testing.T) {
	weight := 72.5
	var gotDays int
	checkins := &fakeCheckIns{list: func(_ context.Context, _ string, days int) ([]*domain.CheckIn, error) {
		gotDays = days
		return []*domain.CheckIn{{UserID: "u1", Day: confirmedAt, WeightKG: &weight}}, nil
	}}

	w := get(newClientEngine(profileOf(onboarded(), nil), checkins), "/client/dashboard")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if gotDays != 7 {
		t.Errorf("days = %d, want 7", gotDays)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Hello Ada") || !strings.Contains(body, "72.5") {
		t.Errorf("body = %s", body)
	}
	if !strings.Contains(body, "client@example.com") {
		t.Error("signed-in email should appear in the header")
	}
}

func TestClientCheckIns_PassesDaysQuery(t *testing.T) {
	var gotDays int
	checkins := &fakeCheckIns{list: func(_ context.Context, _ string, days int) ([]*domain.CheckIn, error) {
		gotDays = days
		return nil, nil
	}}

	w := get(newClientEngine(profileOf(onboarded(), nil), checkins), "/client/checkins?days=90")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if gotDays != 90 {
		t.Errorf("days = %d, want 90", gotDays)
	}
}

func TestSaveCheckIn_Success_Redirects(t *testing.T) {
	var got usecase.UpsertCheckInInput
	checkins := &fakeCheckIns{upsert: func(_ context.Context, in usecase.UpsertCheckInInput) (*domain.CheckIn, error) {
		got = in
		return &domain.CheckIn{}, nil
	}}

	w := postForm(newClientEngine(profileOf(onboarded(), nil), checkins), "/client/checkins", url.Values{
		"day":         {"2026-01-02"},
		"weight_kg":   {"72,4"},
		"sleep_hours": {"7.5"},
		"energy":      {"4"},
		"notes":       {"  felt good  "},
	})

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", w.Code)
	}
	if got.UserID != "u1" || got.Day.Day() != 2 {
		t.Errorf("input = %+v", got)
	}
	if got.WeightKG == nil || *got.WeightKG != 72.4 {
		t.Errorf("weight = %v", got.WeightKG)
	}
	if got.Energy == nil || *got.Energy != 4 || got.Notes == nil || *got.Notes != "felt good" {
		t.Errorf("energy/notes = %v/%v", got.Energy, got.Notes)
	}
}

func TestSaveCheckIn_Invalid_Returns422(t *testing.T) {
	checkins := &fakeCheckIns{
		upsert: func(context.Context, usecase.UpsertCheckInInput) (*domain.CheckIn, error) {
			return nil, domain.ErrInvalidInput
		},
		list: func(context.Context, string, int) ([]*domain.CheckIn, error) { return nil, nil },
	}

	w := postForm(newClientEngine(profileOf(onboarded(), nil), checkins), "/client/checkins", url.Values{"energy": {"9"}})

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", w.Code)
	}
}

func TestClientPage_NotOnboarded_GateRedirects(t *testing.T) {
	checkins := &fakeCheckIns{list: func(context.Context, string, int) ([]*domain.CheckIn, error) {
		t.Error("handler must not run")
		return nil, nil
	}}

	w := get(newClientEngine(profileOf(nil, domain.ErrProfileNotFound), checkins), "/client/checkins")

	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/onboarding?redirectTo=%2Fclient%2Fcheckins" {
		t.Errorf("Location = %q", loc)
	}
}

// ---- Coach ----

const clientID = "6f1c2d3e-4b5a-4c6d-8e7f-901234567890"

func newCoachEngine(roster *fakeRoster) *gin.Engine {
	h := handler.NewCoachHandler(roster, discardLogger())
	r := newEngine()
	r.Use(signedIn(sessionFor(operatorEmail), profileOf(nil, domain.ErrProfileNotFound)))
	coach := r.Group("/coach", middleware.RequireRole(domain.RoleCoach))
	coach.GET("/dashboard", h.Dashboard)
	coach.GET("/clients/:id/checkins", h.ClientCheckIns)
	return r
}

func TestCoachDashboard_ListsClients(t *testing.T) {
	goal := domain.GoalLoseWeight
	roster := &fakeRoster{listClients: func(context.Context) ([]*domain.ClientSummary, error) {
		return []*domain.ClientSummary{{UserID: "c1", Email: "c1@example.com", FirstName: "Cleo", Goal: &goal, IsOnboarded: true}}, nil
	}}

	w := get(newCoachEngine(roster), "/coach/dashboard")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"c1@example.com", "/coach/clients/c1/checkins", "lose_weight"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %s", want)
		}
	}
}

func TestCoachClientCheckIns_UnknownClient_Returns404(t *testing.T) {
	roster := &fakeRoster{clientCheckIns: func(context.Context, string, int) (*domain.User, []*domain.CheckIn, error) {
		return nil, nil, domain.ErrUserNotFound
	}}

	w := get(newCoachEngine(roster), "/coach/clients/"+clientID+"/checkins")

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestCoachClientCheckIns_ForwardsIDAndDays(t *testing.T) {
	var gotID string
	var gotDays int
	roster := &fakeRoster{clientCheckIns: func(_ context.Context, id string, days int) (*domain.User, []*domain.CheckIn, error) {
		gotID, gotDays = id, days
		return &domain.User{ID: id, Email: "c1@example.com"}, nil, nil
	}}

	w := get(newCoachEngine(roster), "/coach/clients/"+clientID+"/checkins?days=14")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if gotID != clientID || gotDays != 14 {
		t.Errorf("id/days = %q/%d", gotID, gotDays)
	}
}

func TestCoachClientCheckIns_MalformedID_Returns404WithoutLookup(t *testing.T) {
	called := false
	roster := &fakeRoster{clientCheckIns: func(context.Context, string, int) (*domain.User, []*domain.CheckIn, error) {
		called = true
		return nil, nil, errors.New("invalid input syntax for type uuid")
	}}

	for _, id := range []string{"nope", "c1", "00000000-0000-0000-0000"} {
		w := get(newCoachEngine(roster), "/coach/clients/"+id+"/checkins")

		if w.Code != http.StatusNotFound {
			t.Errorf("id %q: status = %d, want 404", id, w.Code)
		}
	}
	if called {
		t.Error("malformed id must not reach the roster")
	}
}

// ---- Gate API ----

type gateResult struct {
	Action       string `json:"action"`
	Location     string `json:"location"`
	ClearSession bool   `json:"clear_session"`
	Role         string `json:"role"`
}

func newGateAPIEngine(resolver *fakeResolver, profiles gate.ProfileFinder) *gin.Engine {
	ev := gate.NewEvaluator(gate.DefaultRoutes(), profiles, operatorEmail, discardLogger())
	h := handler.NewGateHandler(ev, resolver)
	r := gin.New()
	r.POST("/api/gate", h.Evaluate)
	r.GET("/api/me", middleware.Bearer(resolver, profiles, operatorEmail, discardLogger()), h.Me)
	return r
}

func askGate(t *testing.T, r http.Handler, path, token string) (int, gateResult) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/gate", strings.NewReader(`{"path":"`+path+`"}`))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var res gateResult
	if w.Code == http.StatusOK {
		if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return w.Code, res
}

func TestGateAPI_Anonymous_RedirectsToLogin(t *testing.T) {
	resolver := &fakeResolver{sess: sessionFor("client@example.com")}
	code, res := askGate(t, newGateAPIEngine(resolver, profileOf(onboarded(), nil)), "/client/dashboard", "")

	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if res.Action != "redirect" || res.Location != "/auth/login?redirectedFrom=%2Fclient%2Fdashboard" {
		t.Errorf("result = %+v", res)
	}
}

func TestGateAPI_InvalidToken_ClearsSession(t *testing.T) {
	resolver := &fakeResolver{err: domain.ErrSessionInvalid}
	_, res := askGate(t, newGateAPIEngine(resolver, profileOf(onboarded(), nil)), "/client/dashboard", "expired")

	if !res.ClearSession || res.Action != "redirect" {
		t.Errorf("result = %+v", res)
	}
}

func TestGateAPI_CoachAtRoot(t *testing.T) {
	resolver := &fakeResolver{sess: sessionFor(operatorEmail)}
	_, res := askGate(t, newGateAPIEngine(resolver, profileOf(nil, domain.ErrProfileNotFound)), "/", "tok")

	if res.Location != "/coach/dashboard" || res.Role != "coach" {
		t.Errorf("result = %+v", res)
	}
}

func TestGateAPI_RelativePath_Returns400(t *testing.T) {
	code, _ := askGate(t, newGateAPIEngine(&fakeResolver{}, profileOf(nil, nil)), "client", "")
	if code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", code)
	}
}

func TestMe_ReturnsIdentity(t *testing.T) {
	resolver := &fakeResolver{sess: sessionFor("client@example.com")}
	r := newGateAPIEngine(resolver, profileOf(onboarded(), nil))

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `"role":"client"`) || !strings.Contains(body, `"email_confirmed":true`) {
		t.Errorf("body = %s", body)
	}
}
