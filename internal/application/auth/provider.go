package auth

import (
	"context"

	"findonlu-backend/internal/domain"
)

// ErrInvalidCredentials is returned when the provider rejects an email/password or refresh token.
var ErrInvalidCredentials = domain.ErrInvalidCredentials

// Provider is the remote identity service (Supabase GoTrue in production).
type Provider interface {
	SignUp(ctx context.Context, email, password, redirectTo string) error
	SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error)
	RefreshSession(ctx context.Context, refreshToken string) (*domain.Session, error)
	ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error
	SignOut(ctx context.Context, accessToken string) error
	GetUser(ctx context.Context, accessToken string) (*domain.Session, error)
}

// ErrRejected is a provider refusal other than bad credentials.
var ErrRejected = domain.ErrProviderRejected

// ProviderError keeps the provider's own message while matching a sentinel via errors.Is.
// Status is the provider's HTTP status when it should reach the client unchanged.
type ProviderError struct {
	Err     error
	Message string
	Status  int
}

// StatusCode reports Status, or 0 when the sentinel decides.
func (e *ProviderError) StatusCode() int {
	return e.Status
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
