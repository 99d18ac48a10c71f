package gate

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ErlanBelekov/coach-portal/internal/domain"
	"github.com/ErlanBelekov/coach-portal/internal/metrics"
)

// SessionSource yields the caller's session for a single evaluation. A nil
// session with a nil error means the caller is anonymous.
type SessionSource interface {
	Session(ctx context.Context) (*domain.Session, error)
}

// SessionSourceFunc adapts a function to SessionSource.
type SessionSourceFunc func(ctx context.Context) (*domain.Session, error)

func (f SessionSourceFunc) Session(ctx context.Context) (*domain.Session, error) {
	return f(ctx)
}

// ProfileFinder is satisfied by the profile repository.
type ProfileFinder interface {
	GetByUserID(ctx context.Context, userID string) (*domain.Profile, error)
}

type Outcome struct {
	Decision Decision
	Session  *domain.Session // nil unless a session was resolved
	Role     domain.Role     // empty unless Session is non-nil
}

type Evaluator struct {
	routes        Routes
	profiles      ProfileFinder
	operatorEmail string
	logger        *slog.Logger
}

func NewEvaluator(routes Routes, profiles ProfileFinder, operatorEmail string, logger *slog.Logger) *Evaluator {
	return &Evaluator{
		routes:        routes,
		profiles:      profiles,
		operatorEmail: operatorEmail,
		logger:        logger.With("component", "gate"),
	}
}

func (e *Evaluator) Routes() Routes {
	return e.routes
}

// Evaluate resolves the session and, for a confirmed session, the profile,
// then runs Decide. Nothing is cached between calls.
func (e *Evaluator) Evaluate(ctx context.Context, path string, src SessionSource) Outcome {
	if e.routes.IsExempt(path) {
		return e.finish(ctx, path, Outcome{Decision: allow(ReasonExempt)})
	}

	in := Input{Path: path}
	in.Session, in.SessionErr = src.Session(ctx)
	if in.SessionErr != nil {
		in.Session = nil
	}

	var out Outcome
	if s := in.Session; s != nil {
		out.Session = s
		out.Role = DeriveRole(s.User.Email, nil, e.operatorEmail)

		if s.User.EmailConfirmed() {
			profile, err := e.profiles.GetByUserID(ctx, s.User.ID)
			switch {
			case err == nil:
				out.Role = DeriveRole(s.User.Email, profile.Role, e.operatorEmail)
				in.Onboarded = profile.IsOnboarded
			case errors.Is(err, domain.ErrProfileNotFound):
				in.Onboarded = false
			default:
				in.ProfileErr = err
			}
		}
		in.Role = out.Role
	}

	out.Decision = Decide(e.routes, in)
	if in.SessionErr != nil && out.Decision.Action != ActionAllow {
		e.logger.WarnContext(ctx, "session lookup failed", "path", path, "error", in.SessionErr)
	}
	if in.ProfileErr != nil {
		e.logger.ErrorContext(ctx, "profile lookup failed", "path", path, "error", in.ProfileErr)
	}
	return e.finish(ctx, path, out)
}

func (e *Evaluator) finish(ctx context.Context, path string, out Outcome) Outcome {
	d := out.Decision
	metrics.GateDecisionsTotal.WithLabelValues(string(d.Action), d.Reason).Inc()
	e.logger.DebugContext(ctx, "gate decision",
		"path", path,
		"action", d.Action,
		"reason", d.Reason,
		"location", d.Location(),
	)
	return out
}
