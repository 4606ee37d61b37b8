package auth

import (
	"context"
	"errors"
	"time"

	authsvc "findonlu-backend/internal/application/auth"
	"findonlu-backend/internal/domain"
	"findonlu-backend/internal/middleware"
	"findonlu-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const userSessionsPrefix = "user_sessions:"

// refreshWindow is how close to expiry a session is refreshed by GET /auth/session.
const refreshWindow = time.Minute

// Handlers holds dependencies for auth endpoints.
type Handlers struct {
	Gate   *authsvc.Gate
	Rdb    *redis.Client
	Config middleware.SessionConfig
	// Now is the clock used for expiry checks; defaults to time.Now.
	Now func() time.Time
}

type credentialsRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type userView struct {
	UserID    string     `json:"user_id"`
	Email     string     `json:"email"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func viewOf(s *domain.Session) userView {
	v := userView{UserID: s.UserID, Email: s.Email}
	if !s.ExpiresAt.IsZero() {
		t := s.ExpiresAt
		v.ExpiresAt = &t
	}
	return v
}

// SignUp POST /api/v1/auth/signup. No session is created; the user must confirm by email.
func (h *Handlers) SignUp(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Email and password are required", fiber.StatusBadRequest, nil)
	}
	res, err := h.Gate.SignUp(c.UserContext(), req.Email, req.Password, req.ConfirmPassword)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, res.Message, res, nil)
}

// Login POST /api/v1/auth/login: sign in, start a new cookie session, track it per user.
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil || req.Email == "" || req.Password == "" {
		return response.Error(c, "Email and password are required", fiber.StatusBadRequest, nil)
	}
	sess, err := h.Gate.SignIn(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return response.FromError(c, err)
	}

	sessionID := middleware.RegenerateSessionID(c)
	middleware.SetSession(c, sess)
	if err := h.Rdb.SAdd(context.Background(), userSessionsPrefix+sess.UserID, sessionID).Err(); err != nil {
		log.Warn().Err(err).Str("user_id", sess.UserID).Msg("failed to track session")
	}
	c.Cookie(middleware.SessionCookie(h.Config, sessionID))

	return response.Success(c, "Login successful", fiber.Map{"user": viewOf(sess)}, nil)
}

type resetRequest struct {
	Email string `json:"email"`
}

// ResetPassword POST /api/v1/auth/reset-password. The reply does not reveal whether the account exists.
func (h *Handlers) ResetPassword(c *fiber.Ctx) error {
	var req resetRequest
	if err := c.BodyParser(&req); err != nil || req.Email == "" {
		return response.Error(c, "Email is required", fiber.StatusBadRequest, nil)
	}
	msg, err := h.Gate.RequestPasswordReset(c.UserContext(), req.Email)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, msg, nil, nil)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh POST /api/v1/auth/refresh exchanges the session's refresh token (or one in the body).
func (h *Handlers) Refresh(c *fiber.Ctx) error {
	current := middleware.CurrentSession(c)
	var req refreshRequest
	_ = c.BodyParser(&req)
	token := req.RefreshToken
	if token == "" && current != nil {
		token = current.RefreshToken
	}
	sess, err := h.Gate.Refresh(c.UserContext(), token)
	if err != nil {
		return response.FromError(c, err)
	}
	if middleware.GetSessionID(c) != "" {
		middleware.SetSession(c, sess)
	}
	return response.Success(c, "Session refreshed", fiber.Map{"user": viewOf(sess)}, nil)
}

// Session GET /api/v1/auth/session reports whether the caller is signed in. It never returns 401.
func (h *Handlers) Session(c *fiber.Ctx) error {
	sess := middleware.CurrentSession(c)
	if sess == nil {
		if token := bearer(c); token != "" {
			if s, err := h.Gate.GetSession(c.UserContext(), token); err == nil {
				sess = s
			}
		}
	}
	if sess != nil && h.expiring(sess) && sess.RefreshToken != "" {
		if fresh, err := h.Gate.Refresh(c.UserContext(), sess.RefreshToken); err == nil {
			middleware.SetSession(c, fresh)
			sess = fresh
		} else if errors.Is(err, domain.ErrInvalidCredentials) {
			middleware.DestroySession(c)
			sess = nil
		}
	}
	if sess == nil {
		return response.Success(c, "Not signed in", fiber.Map{"state": "anonymous"}, nil)
	}
	return response.Success(c, "Authenticated", fiber.Map{"state": "authenticated", "user": viewOf(sess)}, nil)
}

// Logout DELETE /api/v1/auth/logout always succeeds; a failed remote sign-out is only logged.
func (h *Handlers) Logout(c *fiber.Ctx) error {
	sessionID := middleware.GetSessionID(c)
	sess := middleware.CurrentSession(c)

	_ = h.Gate.SignOut(c.UserContext(), sess)

	ctx := context.Background()
	if sess != nil && sessionID != "" {
		_ = h.Rdb.SRem(ctx, userSessionsPrefix+sess.UserID, sessionID).Err()
	}
	if sessionID != "" {
		_ = h.Rdb.Del(ctx, middleware.SessionRedisPrefix+sessionID).Err()
	}
	middleware.DestroySession(c)

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.MaxAge = -1
	cookie.Expires = time.Unix(0, 0)
	c.Cookie(&cookie)

	return response.Success(c, "Logged out successfully", nil, nil)
}

func (h *Handlers) expiring(s *domain.Session) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	now := time.Now()
	if h.Now != nil {
		now = h.Now()
	}
	return now.Add(refreshWindow).After(s.ExpiresAt)
}

func bearer(c *fiber.Ctx) string {
	h := c.Get(fiber.HeaderAuthorization)
	if len(h) > 7 && (h[:7] == "Bearer " || h[:7] == "bearer ") {
		return h[7:]
	}
	return ""
}
