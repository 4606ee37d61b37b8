package middleware

import (
	"errors"
	"fmt"
	"strings"

	"findonlu-backend/internal/domain"
	"findonlu-backend/internal/pkg/response"
	"findonlu-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// AuthConfig enables Bearer access tokens alongside the cookie session.
type AuthConfig struct {
	// JWTSecret verifies HS256 access tokens issued by the identity provider. Empty
	// disables Bearer auth.
	JWTSecret string
	// SchoolDomain is the email suffix a token's email claim must carry, e.g. "@lawrence.edu".
	// Empty only requires the claim to be present.
	SchoolDomain string
}

// AccessClaims are the claims read from a provider access token.
type AccessClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// RequireAuth admits requests with a cookie session or a valid Bearer token.
// Returns 401 in the standard error format otherwise.
func RequireAuth(cfg AuthConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if raw, ok := bearerToken(c); ok {
			sess, err := ParseAccessToken(raw, cfg)
			if err != nil {
				return response.Unauthorized(c, "Invalid access token")
			}
			c.Locals(sessionLocal, sess)
			c.Locals(bearerLocal, true)
			return c.Next()
		}
		if CurrentSession(c) == nil {
			return response.Unauthorized(c, domain.ErrAuthRequired.Error())
		}
		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	h := c.Get(fiber.HeaderAuthorization)
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return "", false
	}
	return strings.TrimSpace(h[7:]), true
}

// ParseAccessToken verifies an HS256 access token and returns the identity it carries.
// Tokens for accounts outside the school domain are rejected.
func ParseAccessToken(raw string, cfg AuthConfig) (*domain.Session, error) {
	secret := cfg.JWTSecret
	if secret == "" {
		return nil, errors.New("bearer auth is not configured")
	}
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Subject == "" || claims.Email == "" {
		return nil, errors.New("invalid token claims")
	}
	if cfg.SchoolDomain != "" && !validation.HasDomain(claims.Email, cfg.SchoolDomain) {
		return nil, domain.ErrDomain
	}
	sess := &domain.Session{UserID: claims.Subject, Email: claims.Email, AccessToken: raw}
	if claims.ExpiresAt != nil {
		sess.ExpiresAt = claims.ExpiresAt.Time
	}
	return sess, nil
}
