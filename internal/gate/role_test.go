package gate_test

import (
	"testing"

	"github.com/ErlanBelekov/coach-portal/internal/domain"
	"github.com/ErlanBelekov/coach-portal/internal/gate"
)

const operator = "coach@example.com"

func TestDeriveRole_OperatorIsCoach(t *testing.T) {
	for _, email := range []string{"coach@example.com", "Coach@Example.com", "  coach@example.com "} {
		if got := gate.DeriveRole(email, nil, operator); got != domain.RoleCoach {
			t.Errorf("DeriveRole(%q) = %q, want coach", email, got)
		}
	}
}

func TestDeriveRole_EveryoneElseIsClient(t *testing.T) {
	for _, email := range []string{"client@example.com", "coach@example.org", "", "coach@example.com.evil"} {
		if got := gate.DeriveRole(email, nil, operator); got != domain.RoleClient {
			t.Errorf("DeriveRole(%q) = %q, want client", email, got)
		}
	}
}

func TestDeriveRole_NoOperatorConfigured_NobodyIsCoach(t *testing.T) {
	if got := gate.DeriveRole("", nil, ""); got != domain.RoleClient {
		t.Errorf("empty email with empty operator = %q, want client", got)
	}
}

func TestDeriveRole_PersistedRoleWins(t *testing.T) {
	coach := domain.RoleCoach
	client := domain.RoleClient

	if got := gate.DeriveRole("assistant@example.com", &coach, operator); got != domain.RoleCoach {
		t.Errorf("persisted coach = %q, want coach", got)
	}
	if got := gate.DeriveRole(operator, &client, operator); got != domain.RoleClient {
		t.Errorf("persisted client for operator = %q, want client", got)
	}
}

func TestDeriveRole_UnknownPersistedRoleFallsBack(t *testing.T) {
	bogus := domain.Role("admin")
	if got := gate.DeriveRole("client@example.com", &bogus, operator); got != domain.RoleClient {
		t.Errorf("unknown persisted role = %q, want client", got)
	}
}

func TestDeriveRole_IsDeterministic(t *testing.T) {
	for _, email := range []string{operator, "client@example.com"} {
		first := gate.DeriveRole(email, nil, operator)
		for range 10 {
			if got := gate.DeriveRole(email, nil, operator); got != first {
				t.Fatalf("DeriveRole(%q) changed from %q to %q", email, first, got)
			}
		}
		if !first.Valid() {
			t.Errorf("DeriveRole(%q) = %q, not a known role", email, first)
		}
	}
}
