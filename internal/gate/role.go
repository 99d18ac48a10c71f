package gate

import (
	"strings"

	"github.com/ErlanBelekov/coach-portal/internal/domain"
)

// DeriveRole maps a signed-in user to exactly one role. A role persisted on
// the profile wins; otherwise the operator email is the only coach.
func DeriveRole(email string, persisted *domain.Role, operatorEmail string) domain.Role {
	if persisted != nil && persisted.Valid() {
		return *persisted
	}
	op := normalizeEmail(operatorEmail)
	if op != "" && normalizeEmail(email) == op {
		return domain.RoleCoach
	}
	return domain.RoleClient
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
