package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"findonlu-backend/internal/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// SessionConfig for the Redis-backed cookie session.
type SessionConfig struct {
	Secret            string
	RedisURL          string
	AllowCrossSiteDev bool
	IsProduction      bool
}

const (
	SessionCookieName  = "findonlu.sid"
	SessionRedisPrefix = "session:"
	sessionMaxAge      = 7 * 24 * time.Hour

	sessionIDLocal    = "session_id"
	sessionLocal      = "session"
	sessionDirtyLocal = "session_dirty"
	bearerLocal       = "auth_bearer"
)

type sessionRecord struct {
	User *domain.Session `json:"user"`
}

// Session returns a Fiber middleware that loads the session from Redis before the
// handler and saves it afterwards. Cookie values are "s:<id>.<signature>" when a
// secret is configured.
func Session(cfg SessionConfig) (fiber.Handler, *redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	rdb := redis.NewClient(opt)
	return SessionWithClient(cfg, rdb), rdb, nil
}

// SessionWithClient is Session with an existing client (tests, serverless reuse).
func SessionWithClient(cfg SessionConfig, rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := context.Background()
		sessionID := unsignSessionID(c.Cookies(SessionCookieName), cfg.Secret)

		var rec sessionRecord
		if sessionID != "" {
			b, err := rdb.Get(ctx, SessionRedisPrefix+sessionID).Bytes()
			switch {
			case err == nil:
				_ = json.Unmarshal(b, &rec)
			case err != redis.Nil:
				log.Warn().Err(err).Msg("session load failed")
			}
		}

		c.Locals(sessionIDLocal, sessionID)
		c.Locals(sessionLocal, rec.User)
		c.Locals(sessionDirtyLocal, false)

		if err := c.Next(); err != nil {
			return err
		}

		sid, _ := c.Locals(sessionIDLocal).(string)
		if viaBearer, _ := c.Locals(bearerLocal).(bool); sid == "" || viaBearer {
			return nil
		}
		sess, _ := c.Locals(sessionLocal).(*domain.Session)
		dirty, _ := c.Locals(sessionDirtyLocal).(bool)
		switch {
		case sess == nil && dirty:
			rdb.Del(ctx, SessionRedisPrefix+sid)
		case sess != nil:
			// sliding expiry: every authenticated request extends the session
			b, _ := json.Marshal(sessionRecord{User: sess})
			rdb.Set(ctx, SessionRedisPrefix+sid, b, sessionMaxAge)
		}
		return nil
	}
}

// GetSessionID returns the current session ID (empty when the client has none).
func GetSessionID(c *fiber.Ctx) string {
	sid, _ := c.Locals(sessionIDLocal).(string)
	return sid
}

// CurrentSession returns the authenticated identity, from the cookie session or a
// Bearer token, or nil.
func CurrentSession(c *fiber.Ctx) *domain.Session {
	s, _ := c.Locals(sessionLocal).(*domain.Session)
	return s
}

// SetSession stores sess for this request; it is saved to Redis after the handler.
// Call RegenerateSessionID first on sign-in.
func SetSession(c *fiber.Ctx, sess *domain.Session) {
	c.Locals(sessionLocal, sess)
	c.Locals(sessionDirtyLocal, true)
}

// RegenerateSessionID creates a new session ID. The handler must set the cookie.
func RegenerateSessionID(c *fiber.Ctx) string {
	newID := uuid.New().String()
	c.Locals(sessionIDLocal, newID)
	return newID
}

// DestroySession drops the session; its Redis key is deleted after the handler.
func DestroySession(c *fiber.Ctx) {
	c.Locals(sessionLocal, (*domain.Session)(nil))
	c.Locals(sessionDirtyLocal, true)
}

// SessionCookie returns the cookie carrying sid.
func SessionCookie(cfg SessionConfig, sid string) *fiber.Cookie {
	ck := SessionCookieConfig(cfg)
	ck.Value = signSessionID(sid, cfg.Secret)
	return &ck
}

// SessionCookieConfig returns the cookie options shared by set and clear.
func SessionCookieConfig(cfg SessionConfig) fiber.Cookie {
	sameSite := fiber.CookieSameSiteLaxMode
	if cfg.AllowCrossSiteDev {
		sameSite = fiber.CookieSameSiteNoneMode
	}
	return fiber.Cookie{
		Name:     SessionCookieName,
		Path:     "/",
		MaxAge:   int(sessionMaxAge.Seconds()),
		HTTPOnly: true,
		Secure:   cfg.IsProduction || cfg.AllowCrossSiteDev,
		SameSite: sameSite,
	}
}

func signSessionID(sid, secret string) string {
	if secret == "" {
		return "s:" + sid
	}
	return "s:" + sid + "." + sessionSignature(sid, secret)
}

// unsignSessionID returns "" for a cookie whose signature does not match.
func unsignSessionID(raw, secret string) string {
	if !strings.HasPrefix(raw, "s:") {
		if secret != "" {
			return ""
		}
		return raw
	}
	parts := strings.SplitN(raw[2:], ".", 2)
	if secret == "" {
		return parts[0]
	}
	if len(parts) != 2 || !hmac.Equal([]byte(parts[1]), []byte(sessionSignature(parts[0], secret))) {
		return ""
	}
	return parts[0]
}

func sessionSignature(sid, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(sid))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
