package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrMissingSupabase is returned when the backend endpoint or public key is absent.
// The server cannot start without them.
var ErrMissingSupabase = errors.New("config: SUPABASE_URL and SUPABASE_ANON_KEY are required")

const (
	defaultSchoolDomain = "@lawrence.edu"
	defaultSiteURL      = "http://localhost:5173"
	defaultImageBucket  = "item-images"
	defaultMaxImage     = 5 << 20
	defaultCacheTTL     = 30 * time.Second
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	LogLevel            string
	LogFormat           string
	SessionSecret       string
	DatabaseURL         string
	RedisURL            string
	SupabaseURL         string // e.g. https://<project>.supabase.co
	SupabaseAnonKey     string // public API key, sent as apikey on every provider call
	SupabaseSecretKey   string // service_role key; storage uploads fall back to the user's token when empty
	SupabaseJWTSecret   string // enables Bearer access-token auth
	SchoolEmailDomain   string
	SiteURL             string // redirect target for confirmation and reset mails
	ImageBucket         string
	MaxImageBytes       int64
	ListCacheTTL        time.Duration
	FrontendURLEndsWith string
	DevPassword         string
	AllowCrossSiteDev   bool
	HealthAdminKey      string
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("SCHOOL_EMAIL_DOMAIN", defaultSchoolDomain)
	v.SetDefault("SITE_URL", defaultSiteURL)
	v.SetDefault("IMAGE_BUCKET", defaultImageBucket)
	v.SetDefault("MAX_IMAGE_BYTES", defaultMaxImage)
	v.SetDefault("LIST_CACHE_TTL", defaultCacheTTL)

	env := v.GetString("APP_ENV")
	dbURL := v.GetString("DATABASE_URL")
	if dbURL == "" {
		switch env {
		case "production":
			dbURL = v.GetString("DATABASE_URL_PROD")
		case "test":
			dbURL = v.GetString("DATABASE_URL_TEST")
		default:
			dbURL = v.GetString("DATABASE_URL_DEV")
		}
	}
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL_DEV")
	}

	cfg := &Config{
		Env:                 env,
		Port:                v.GetString("PORT"),
		LogLevel:            v.GetString("LOG_LEVEL"),
		LogFormat:           v.GetString("LOG_FORMAT"),
		SessionSecret:       v.GetString("SESSION_SECRET"),
		DatabaseURL:         dbURL,
		RedisURL:            v.GetString("REDIS_URL"),
		SupabaseURL:         strings.TrimRight(strings.TrimSpace(v.GetString("SUPABASE_URL")), "/"),
		SupabaseAnonKey:     strings.TrimSpace(v.GetString("SUPABASE_ANON_KEY")),
		SupabaseSecretKey:   v.GetString("SUPABASE_SECRET_KEY"),
		SupabaseJWTSecret:   v.GetString("SUPABASE_JWT_SECRET"),
		SchoolEmailDomain:   v.GetString("SCHOOL_EMAIL_DOMAIN"),
		SiteURL:             strings.TrimRight(v.GetString("SITE_URL"), "/"),
		ImageBucket:         v.GetString("IMAGE_BUCKET"),
		MaxImageBytes:       v.GetInt64("MAX_IMAGE_BYTES"),
		ListCacheTTL:        v.GetDuration("LIST_CACHE_TTL"),
		FrontendURLEndsWith: v.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         v.GetString("DEV_PASSWORD"),
		AllowCrossSiteDev:   strings.EqualFold(v.GetString("ALLOW_CROSS_SITE_DEV"), "true"),
		HealthAdminKey:      v.GetString("HEALTH_ADMIN_KEY"),
	}
	if cfg.SupabaseURL == "" || cfg.SupabaseAnonKey == "" {
		return nil, ErrMissingSupabase
	}
	return cfg, nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
