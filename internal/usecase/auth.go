package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/ErlanBelekov/coach-portal/internal/authevents"
	"github.com/ErlanBelekov/coach-portal/internal/domain"
	"github.com/ErlanBelekov/coach-portal/internal/email"
	"github.com/ErlanBelekov/coach-portal/internal/repository"
	"github.com/ErlanBelekov/coach-portal/internal/session"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultMagicTTL   = 15 * time.Minute
	defaultConfirmTTL = 24 * time.Hour

	minPasswordLen = 8
	maxPasswordLen = 72 // bcrypt ignores anything past 72 bytes
)

// CallbackPath is where emailed links land.
const CallbackPath = "/api/auth/callback"

// Sessions is implemented by *session.Service.
type Sessions interface {
	Issue(ctx context.Context, user *domain.User) (*domain.Tokens, error)
	Resolve(ctx context.Context, accessToken, refreshToken string) (*domain.Session, *domain.Tokens, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.Session, *domain.Tokens, error)
	Revoke(ctx context.Context, refreshToken string) error
}

type AuthUsecase struct {
	users         repository.UserRepository
	sessions      Sessions
	email         email.Sender
	events        authevents.Publisher
	magicLinkBase string
	magicTTL      time.Duration
	confirmTTL    time.Duration
	bcryptCost    int
	logger        *slog.Logger
}

func NewAuthUsecase(
	users repository.UserRepository,
	sessions Sessions,
	emailSender email.Sender,
	events authevents.Publisher,
	magicLinkBase string,
) *AuthUsecase {
	return &AuthUsecase{
		users:         users,
		sessions:      sessions,
		email:         emailSender,
		events:        events,
		magicLinkBase: strings.TrimRight(magicLinkBase, "/"),
		magicTTL:      defaultMagicTTL,
		confirmTTL:    defaultConfirmTTL,
		bcryptCost:    bcrypt.DefaultCost,
		logger:        slog.Default(),
	}
}

// WithLogger sets the logger for failures that do not fail the call.
func (u *AuthUsecase) WithLogger(logger *slog.Logger) *AuthUsecase {
	u.logger = logger.With("component", "auth_usecase")
	return u
}

// WithBcryptCost lowers the hashing cost, for tests.
func (u *AuthUsecase) WithBcryptCost(cost int) *AuthUsecase {
	u.bcryptCost = cost
	return u
}

// SignUp registers a password account, emails a confirmation link and signs
// the new user in. The session is unconfirmed until the link is followed.
// A failed confirmation email is logged, not returned: the account already
// exists and the verify-email page can resend the link.
func (u *AuthUsecase) SignUp(ctx context.Context, emailAddr, password string) (*domain.User, *domain.Tokens, error) {
	if n := len(password); n < minPasswordLen || n > maxPasswordLen {
		return nil, nil, domain.ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), u.bcryptCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := u.users.Create(ctx, emailAddr, string(hash))
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, nil, domain.ErrEmailTaken
		}
		return nil, nil, fmt.Errorf("create user: %w", err)
	}

	if err := u.sendLink(ctx, user, domain.PurposeConfirmEmail); err != nil {
		u.logger.WarnContext(ctx, "send confirmation", "user_id", user.ID, "error", err)
	}

	tokens, err := u.signIn(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

// SignIn checks an email/password pair. Unknown emails, magic-link only
// accounts and wrong passwords all return domain.ErrInvalidCredentials.
func (u *AuthUsecase) SignIn(ctx context.Context, emailAddr, password string) (*domain.User, *domain.Tokens, error) {
	user, err := u.users.FindByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, nil, domain.ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("find user: %w", err)
	}
	if user.PasswordHash == nil {
		return nil, nil, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, domain.ErrInvalidCredentials
	}

	tokens, err := u.signIn(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

// RequestMagicLink finds or creates the user, stores the hash of a fresh
// single-use token and emails the sign-in link.
func (u *AuthUsecase) RequestMagicLink(ctx context.Context, emailAddr string) error {
	user, err := u.users.FindOrCreate(ctx, emailAddr)
	if err != nil {
		return fmt.Errorf("find or create user: %w", err)
	}
	return u.sendLink(ctx, user, domain.PurposeLogin)
}

// ResendConfirmation emails a new confirmation link unless the address is
// already confirmed.
func (u *AuthUsecase) ResendConfirmation(ctx context.Context, user *domain.User) error {
	if user.EmailConfirmed() {
		return nil
	}
	return u.sendLink(ctx, user, domain.PurposeConfirmEmail)
}

// ExchangeToken claims an emailed token and signs its owner in. Following
// either kind of link proves ownership of the address, so both confirm it.
func (u *AuthUsecase) ExchangeToken(ctx context.Context, purpose domain.TokenPurpose, rawToken string) (*domain.User, *domain.Tokens, error) {
	if !purpose.Valid() || rawToken == "" {
		return nil, nil, domain.ErrTokenInvalid
	}

	mt, err := u.users.ClaimMagicToken(ctx, session.HashToken(rawToken), purpose)
	if err != nil {
		if errors.Is(err, domain.ErrTokenInvalid) {
			return nil, nil, domain.ErrTokenInvalid
		}
		return nil, nil, fmt.Errorf("claim token: %w", err)
	}

	user, err := u.users.FindByID(ctx, mt.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("find user: %w", err)
	}

	if !user.EmailConfirmed() {
		now := time.Now()
		if err := u.users.ConfirmEmail(ctx, user.ID, now); err != nil {
			return nil, nil, fmt.Errorf("confirm email: %w", err)
		}
		user.EmailConfirmedAt = &now
	}

	tokens, err := u.signIn(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

// ResolveSession resolves presented credentials, publishing TokenRefreshed
// when the pair had to be rotated.
func (u *AuthUsecase) ResolveSession(ctx context.Context, accessToken, refreshToken string) (*domain.Session, *domain.Tokens, error) {
	sess, tokens, err := u.sessions.Resolve(ctx, accessToken, refreshToken)
	if err == nil && tokens != nil && sess != nil {
		u.publish(authevents.TokenRefreshed, &sess.User)
	}
	return sess, tokens, err
}

// Refresh rotates a refresh token explicitly.
func (u *AuthUsecase) Refresh(ctx context.Context, refreshToken string) (*domain.Session, *domain.Tokens, error) {
	if refreshToken == "" {
		return nil, nil, domain.ErrSessionInvalid
	}
	sess, tokens, err := u.sessions.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, nil, err
	}
	u.publish(authevents.TokenRefreshed, &sess.User)
	return sess, tokens, nil
}

// SignOut revokes the refresh token. user may be nil when the access token
// had already expired.
func (u *AuthUsecase) SignOut(ctx context.Context, user *domain.User, refreshToken string) error {
	if err := u.sessions.Revoke(ctx, refreshToken); err != nil {
		return err
	}
	u.publish(authevents.SignedOut, user)
	return nil
}

func (u *AuthUsecase) signIn(ctx context.Context, user *domain.User) (*domain.Tokens, error) {
	tokens, err := u.sessions.Issue(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}
	u.publish(authevents.SignedIn, user)
	return tokens, nil
}

func (u *AuthUsecase) sendLink(ctx context.Context, user *domain.User, purpose domain.TokenPurpose) error {
	rawToken, err := session.NewOpaqueToken()
	if err != nil {
		return err
	}

	ttl := u.magicTTL
	if purpose == domain.PurposeConfirmEmail {
		ttl = u.confirmTTL
	}
	if err := u.users.CreateMagicToken(ctx, user.ID, session.HashToken(rawToken), purpose, time.Now().Add(ttl)); err != nil {
		return fmt.Errorf("store magic token: %w", err)
	}

	q := url.Values{"type": {string(purpose)}, "token": {rawToken}}
	link := u.magicLinkBase + CallbackPath + "?" + q.Encode()

	var msg email.Message
	if purpose == domain.PurposeConfirmEmail {
		msg, err = email.Confirmation(user.Email, link, ttl)
	} else {
		msg, err = email.MagicLink(user.Email, link, ttl)
	}
	if err != nil {
		return err
	}
	if err := u.email.Send(ctx, msg); err != nil {
		return fmt.Errorf("send %s link: %w", purpose, err)
	}
	return nil
}

func (u *AuthUsecase) publish(t authevents.Type, user *domain.User) {
	if u.events == nil {
		return
	}
	e := authevents.Event{Type: t}
	if user != nil {
		e.UserID = user.ID
		e.Email = user.Email
	}
	u.events.Publish(e)
}
