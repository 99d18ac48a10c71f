// Package gate decides, for every page request, whether to serve it or where
// to send the caller instead. Decide is pure; Evaluator gathers its inputs.
package gate

import (
	"errors"
	"net/url"

	"github.com/ErlanBelekov/coach-portal/internal/domain"
)

type Action string

const (
	ActionAllow    Action = "allow"
	ActionRedirect Action = "redirect"
	// ActionRetry is returned when a lookup failed for a reason other than
	// the caller being unauthenticated. The caller keeps its cookies.
	ActionRetry Action = "retry"
)

// Reasons name the rule that produced a decision. They are metric labels.
const (
	ReasonExempt           = "exempt"
	ReasonSessionInvalid   = "session_invalid"
	ReasonSessionUnavail   = "session_unavailable"
	ReasonNoSession        = "no_session"
	ReasonAuthPage         = "auth_page"
	ReasonEmailUnconfirmed = "email_unconfirmed"
	ReasonProfileUnavail   = "profile_unavailable"
	ReasonRoot             = "root"
	ReasonNotOnboarded     = "not_onboarded"
	ReasonAlreadyOnboarded = "already_onboarded"
	ReasonAlreadySignedIn  = "already_signed_in"
	ReasonDefault          = "default"
)

const (
	ParamRedirectedFrom = "redirectedFrom"
	ParamRedirectTo     = "redirectTo"
)

type Decision struct {
	Action Action
	Target string     // redirect path, empty unless Action is ActionRedirect
	Params url.Values // query parameters for Target, may be nil
	// ClearSession asks the adapter to drop any locally stored credentials.
	ClearSession bool
	Reason       string
}

// Location renders Target with its encoded query parameters.
func (d Decision) Location() string {
	if d.Action != ActionRedirect {
		return ""
	}
	if len(d.Params) == 0 {
		return d.Target
	}
	return d.Target + "?" + d.Params.Encode()
}

type Input struct {
	Path       string
	Session    *domain.Session
	SessionErr error

	// Only meaningful for a present, confirmed session.
	Role       domain.Role
	Onboarded  bool
	ProfileErr error
}

// Decide applies the rules in priority order; the first match wins.
func Decide(routes Routes, in Input) Decision {
	path := in.Path
	authPage := routes.IsAuthPage(path)

	if routes.IsExempt(path) {
		return allow(ReasonExempt)
	}

	if in.SessionErr != nil {
		if errors.Is(in.SessionErr, domain.ErrSessionInvalid) {
			d := allow(ReasonSessionInvalid)
			if !authPage {
				d = toLogin(routes, path, ReasonSessionInvalid)
			}
			d.ClearSession = true
			return d
		}
		if authPage {
			return allow(ReasonSessionUnavail)
		}
		return Decision{Action: ActionRetry, Reason: ReasonSessionUnavail}
	}

	if in.Session == nil {
		if !authPage {
			return toLogin(routes, path, ReasonNoSession)
		}
		return allow(ReasonAuthPage)
	}

	if !in.Session.User.EmailConfirmed() {
		if path == routes.VerifyEmailPath {
			return allow(ReasonEmailUnconfirmed)
		}
		return redirect(routes.VerifyEmailPath, nil, ReasonEmailUnconfirmed)
	}

	if in.ProfileErr != nil {
		return Decision{Action: ActionRetry, Reason: ReasonProfileUnavail}
	}

	if path == routes.Root {
		return redirect(routes.Dashboard(in.Role), nil, ReasonRoot)
	}

	if in.Role == domain.RoleClient {
		if !in.Onboarded && path != routes.OnboardingPath {
			var params url.Values
			if path != routes.Root {
				params = url.Values{ParamRedirectTo: {path}}
			}
			return redirect(routes.OnboardingPath, params, ReasonNotOnboarded)
		}
		if in.Onboarded && path == routes.OnboardingPath {
			return redirect(routes.ClientDashboard, nil, ReasonAlreadyOnboarded)
		}
	}

	if authPage {
		return redirect(routes.Dashboard(in.Role), nil, ReasonAlreadySignedIn)
	}

	return allow(ReasonDefault)
}

func allow(reason string) Decision {
	return Decision{Action: ActionAllow, Reason: reason}
}

func redirect(target string, params url.Values, reason string) Decision {
	return Decision{Action: ActionRedirect, Target: target, Params: params, Reason: reason}
}

func toLogin(routes Routes, path, reason string) Decision {
	return redirect(routes.LoginPath, url.Values{ParamRedirectedFrom: {path}}, reason)
}
