package auth

import (
	"context"
	"errors"
	"strings"
	"sync"

	"findonlu-backend/internal/domain"
	"findonlu-backend/internal/pkg/validation"

	"github.com/rs/zerolog/log"
)

const (
	SignUpMessage = "Check your email to confirm your account!"
	ResetMessage  = "If an account exists for this email, a reset link has been sent."
)

// EventType names an auth state transition.
type EventType string

const (
	EventSignedIn       EventType = "signed_in"
	EventSignedOut      EventType = "signed_out"
	EventTokenRefreshed EventType = "token_refreshed"
)

// Event is delivered to OnAuthStateChange subscribers. Session is nil for signed_out
// unless the caller knew who signed out.
type Event struct {
	Type    EventType
	Session *domain.Session
}

type SignUpResult struct {
	ConfirmationRequired bool   `json:"confirmation_required"`
	Message              string `json:"message"`
}

// Gate admits only school-domain users. Every local check runs before the provider is called.
type Gate struct {
	provider    Provider
	domain      string
	redirectURL string

	mu     sync.Mutex
	nextID int
	subs   map[int]func(Event)
}

// NewGate builds a gate for emails ending in schoolDomain (e.g. "@lawrence.edu").
// siteURL is where confirmation and reset links land.
func NewGate(p Provider, schoolDomain, siteURL string) *Gate {
	return &Gate{
		provider:    p,
		domain:      schoolDomain,
		redirectURL: strings.TrimRight(siteURL, "/"),
		subs:        make(map[int]func(Event)),
	}
}

// Domain is the accepted email suffix.
func (g *Gate) Domain() string {
	return g.domain
}

func (g *Gate) checkCredentials(email, password string) error {
	if !validation.HasDomain(email, g.domain) {
		return domain.ErrDomain
	}
	if !validation.IsValidPassword(password) {
		return domain.ErrWeakPassword
	}
	return nil
}

// SignUp registers a new account. No session is created; the user must confirm by email first.
func (g *Gate) SignUp(ctx context.Context, email, password, confirm string) (*SignUpResult, error) {
	if err := g.checkCredentials(email, password); err != nil {
		return nil, err
	}
	if password != confirm {
		return nil, domain.ErrPasswordMismatch
	}
	if err := g.provider.SignUp(ctx, validation.NormalizeEmail(email), password, g.redirectURL); err != nil {
		return nil, err
	}
	return &SignUpResult{ConfirmationRequired: true, Message: SignUpMessage}, nil
}

func (g *Gate) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	if err := g.checkCredentials(email, password); err != nil {
		return nil, err
	}
	sess, err := g.provider.SignInWithPassword(ctx, validation.NormalizeEmail(email), password)
	if err != nil {
		return nil, err
	}
	g.emit(Event{Type: EventSignedIn, Session: sess})
	return sess, nil
}

// RequestPasswordReset answers the same way whether or not the account exists.
func (g *Gate) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	if !validation.HasDomain(email, g.domain) {
		return "", domain.ErrDomain
	}
	err := g.provider.ResetPasswordForEmail(ctx, validation.NormalizeEmail(email), g.redirectURL+"/reset-password")
	if err == nil {
		return ResetMessage, nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		// the provider answered; do not leak whether the account exists
		log.Debug().Err(err).Msg("password reset rejected by provider")
		return ResetMessage, nil
	}
	var fe *domain.FetchError
	if errors.As(err, &fe) {
		return "", err
	}
	return "", &domain.FetchError{Op: "request password reset", Err: err}
}

// SignOut never fails: the local session is dropped even if the provider call does not go through.
func (g *Gate) SignOut(ctx context.Context, sess *domain.Session) error {
	if sess != nil && sess.AccessToken != "" {
		if err := g.provider.SignOut(ctx, sess.AccessToken); err != nil {
			log.Warn().Err(err).Str("user_id", sess.UserID).Msg("remote sign-out failed")
		}
	}
	g.emit(Event{Type: EventSignedOut, Session: sess})
	return nil
}

// GetSession resolves the user behind an access token. An empty token, or one for an
// account outside the school domain, is ErrAuthRequired.
func (g *Gate) GetSession(ctx context.Context, accessToken string) (*domain.Session, error) {
	if accessToken == "" {
		return nil, domain.ErrAuthRequired
	}
	sess, err := g.provider.GetUser(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if !validation.HasDomain(sess.Email, g.domain) {
		return nil, domain.ErrAuthRequired
	}
	return sess, nil
}

func (g *Gate) Refresh(ctx context.Context, refreshToken string) (*domain.Session, error) {
	if refreshToken == "" {
		return nil, domain.ErrAuthRequired
	}
	sess, err := g.provider.RefreshSession(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	g.emit(Event{Type: EventTokenRefreshed, Session: sess})
	return sess, nil
}

// OnAuthStateChange registers fn and returns a function that removes it.
func (g *Gate) OnAuthStateChange(fn func(Event)) func() {
	g.mu.Lock()
	id := g.nextID
	g.nextID++
	g.subs[id] = fn
	g.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.subs, id)
			g.mu.Unlock()
		})
	}
}

func (g *Gate) emit(ev Event) {
	g.mu.Lock()
	fns := make([]func(Event), 0, len(g.subs))
	for _, fn := range g.subs {
		fns = append(fns, fn)
	}
	g.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}
