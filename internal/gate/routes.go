package gate

import (
	"net/url"
	"strings"

	"github.com/ErlanBelekov/coach-portal/internal/domain"
)

// Routes is the static routing table the gate classifies paths against.
// Every call site must evaluate with the same table.
type Routes struct {
	Root            string
	AuthPrefix      string
	LoginPath       string
	VerifyEmailPath string
	OnboardingPath  string
	CoachDashboard  string
	ClientDashboard string

	// Exempt entries never trigger a redirect. An entry ending in "/" is a
	// prefix, anything else must match exactly.
	Exempt []string
}

func DefaultRoutes() Routes {
	return Routes{
		Root:            "/",
		AuthPrefix:      "/auth",
		LoginPath:       "/auth/login",
		VerifyEmailPath: "/auth/verify-email",
		OnboardingPath:  "/onboarding",
		CoachDashboard:  "/coach/dashboard",
		ClientDashboard: "/client/dashboard",
		Exempt:          []string{"/static/", "/favicon.ico", "/api/auth/callback"},
	}
}

func (r Routes) IsAuthPage(path string) bool {
	return path == r.AuthPrefix || strings.HasPrefix(path, r.AuthPrefix+"/")
}

func (r Routes) IsExempt(path string) bool {
	for _, e := range r.Exempt {
		if strings.HasSuffix(e, "/") {
			if strings.HasPrefix(path, e) {
				return true
			}
			continue
		}
		if path == e {
			return true
		}
	}
	return false
}

func (r Routes) Dashboard(role domain.Role) string {
	if role == domain.RoleCoach {
		return r.CoachDashboard
	}
	return r.ClientDashboard
}

// SafeRedirect returns target when it is a local absolute path and fallback
// otherwise. Used for redirectedFrom/redirectTo values supplied by the client.
// Any ASCII control character or backslash rejects the target: browsers
// strip tabs and newlines, so "/\t/host" resolves as "//host".
func SafeRedirect(target, fallback string) string {
	if !strings.HasPrefix(target, "/") {
		return fallback
	}
	for i := 0; i < len(target); i++ {
		if c := target[i]; c < 0x20 || c == 0x7f || c == '\\' {
			return fallback
		}
	}
	if strings.HasPrefix(target, "//") {
		return fallback
	}
	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" || u.Opaque != "" {
		return fallback
	}
	return target
}
