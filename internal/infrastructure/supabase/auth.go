package supabase

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"findonlu-backend/internal/application/auth"
	"findonlu-backend/internal/domain"
)

// AuthClient implements auth.Provider against the GoTrue REST API (/auth/v1).
type AuthClient struct {
	base
}

// NewAuthClient builds a client for the project at baseURL using the public anon key.
func NewAuthClient(baseURL, anonKey string, hc *http.Client) *AuthClient {
	return &AuthClient{base: newBase(baseURL, anonKey, hc)}
}

type gotrueUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type gotrueSession struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	ExpiresIn    int64      `json:"expires_in"`
	ExpiresAt    int64      `json:"expires_at"`
	User         gotrueUser `json:"user"`
}

func (s gotrueSession) toDomain() *domain.Session {
	out := &domain.Session{
		UserID:       s.User.ID,
		Email:        s.User.Email,
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
	}
	switch {
	case s.ExpiresAt > 0:
		out.ExpiresAt = time.Unix(s.ExpiresAt, 0).UTC()
	case s.ExpiresIn > 0:
		out.ExpiresAt = time.Now().UTC().Add(time.Duration(s.ExpiresIn) * time.Second)
	}
	return out
}

func (c *AuthClient) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	var out gotrueSession
	err := c.doJSON(ctx, http.MethodPost, "/auth/v1/token", url.Values{"grant_type": {"password"}},
		map[string]string{"email": email, "password": password}, "", &out)
	if err != nil {
		return nil, mapCredentialError("sign in", err)
	}
	return out.toDomain(), nil
}

func (c *AuthClient) RefreshSession(ctx context.Context, refreshToken string) (*domain.Session, error) {
	var out gotrueSession
	err := c.doJSON(ctx, http.MethodPost, "/auth/v1/token", url.Values{"grant_type": {"refresh_token"}},
		map[string]string{"refresh_token": refreshToken}, "", &out)
	if err != nil {
		return nil, mapCredentialError("refresh session", err)
	}
	return out.toDomain(), nil
}

// SignUp registers the user. GoTrue sends the confirmation mail; no session is returned
// while confirmation is pending.
func (c *AuthClient) SignUp(ctx context.Context, email, password, redirectTo string) error {
	err := c.doJSON(ctx, http.MethodPost, "/auth/v1/signup", redirectQuery(redirectTo),
		map[string]string{"email": email, "password": password}, "", nil)
	return mapProviderError("sign up", err)
}

func (c *AuthClient) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	err := c.doJSON(ctx, http.MethodPost, "/auth/v1/recover", redirectQuery(redirectTo),
		map[string]string{"email": email}, "", nil)
	return mapProviderError("request password reset", err)
}

func (c *AuthClient) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	return mapProviderError("sign out", c.doJSON(ctx, http.MethodPost, "/auth/v1/logout", nil, nil, accessToken, nil))
}

// GetUser resolves the user behind an access token; an expired or invalid token is ErrAuthRequired.
func (c *AuthClient) GetUser(ctx context.Context, accessToken string) (*domain.Session, error) {
	if accessToken == "" {
		return nil, domain.ErrAuthRequired
	}
	var u gotrueUser
	if err := c.doJSON(ctx, http.MethodGet, "/auth/v1/user", nil, nil, accessToken, &u); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden) {
			return nil, domain.ErrAuthRequired
		}
		return nil, mapProviderError("fetch user", err)
	}
	return &domain.Session{UserID: u.ID, Email: u.Email, AccessToken: accessToken}, nil
}

func redirectQuery(redirectTo string) url.Values {
	if redirectTo == "" {
		return nil
	}
	return url.Values{"redirect_to": {redirectTo}}
}

// mapCredentialError treats 400 and 401 from the token endpoint as bad credentials.
func mapCredentialError(op string, err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && (apiErr.Status == http.StatusBadRequest || apiErr.Status == http.StatusUnauthorized) {
		return &auth.ProviderError{Err: auth.ErrInvalidCredentials, Message: apiErr.Message}
	}
	return mapProviderError(op, err)
}

// mapProviderError keeps 4xx replies as ProviderError with the provider's message and
// status. Server errors and transport failures become FetchError.
func mapProviderError(op string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
		return &auth.ProviderError{Err: auth.ErrRejected, Message: apiErr.Message, Status: apiErr.Status}
	}
	return &domain.FetchError{Op: op, Err: err}
}

var _ auth.Provider = (*AuthClient)(nil)
