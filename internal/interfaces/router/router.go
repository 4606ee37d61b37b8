package router

import (
	"net/http"

	authsvc "findonlu-backend/internal/application/auth"
	"findonlu-backend/internal/application/forms"
	healthsvc "findonlu-backend/internal/application/health"
	listsvc "findonlu-backend/internal/application/listings"
	uploadsvc "findonlu-backend/internal/application/uploads"
	usersvc "findonlu-backend/internal/application/user"
	"findonlu-backend/internal/config"
	"findonlu-backend/internal/domain"
	"findonlu-backend/internal/infrastructure/database"
	"findonlu-backend/internal/infrastructure/supabase"
	authhandler "findonlu-backend/internal/interfaces/handlers/auth"
	healthhandler "findonlu-backend/internal/interfaces/handlers/health"
	listhandler "findonlu-backend/internal/interfaces/handlers/listings"
	uploadhandler "findonlu-backend/internal/interfaces/handlers/uploads"
	userhandler "findonlu-backend/internal/interfaces/handlers/user"
	"findonlu-backend/internal/middleware"
	"findonlu-backend/internal/pkg/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Deps lets tests and the serverless entry inject already-open clients.
// Nil fields are created from cfg.
type Deps struct {
	DB       *gorm.DB
	Rdb      *redis.Client
	Provider authsvc.Provider
	Objects  uploadsvc.ObjectStore
	Metrics  *metrics.Metrics
}

func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	return CreateAppWith(cfg, Deps{})
}

func CreateAppWith(cfg *config.Config, deps Deps) (*fiber.App, *gorm.DB, *redis.Client, error) {
	m := deps.Metrics
	if m == nil {
		m = metrics.New()
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
		BodyLimit:               bodyLimit(cfg),
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix:  cfg.FrontendURLEndsWith,
		DevPassword:    cfg.DevPassword,
		AllowLocalhost: !cfg.IsProduction(),
	}))

	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.IsProduction(),
	}
	rdb := deps.Rdb
	var sessionHandler fiber.Handler
	if rdb != nil {
		sessionHandler = middleware.SessionWithClient(sessionCfg, rdb)
	} else {
		var err error
		sessionHandler, rdb, err = middleware.Session(sessionCfg)
		if err != nil {
			return nil, nil, nil, err
		}
	}
	app.Use(sessionHandler)
	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())
	app.Use(middleware.Metrics(m))

	db := deps.DB
	if db == nil && cfg.DatabaseURL != "" {
		var errDB error
		db, errDB = database.Open(cfg.DatabaseURL)
		if errDB != nil {
			return nil, nil, nil, errDB
		}
	}

	collector := &healthsvc.Collector{Rdb: rdb}
	if db != nil {
		collector.DB = &gormDBPinger{db: db}
	}
	if cfg.SupabaseURL != "" {
		collector.Probes = []healthsvc.Probe{{Name: "supabase", URL: cfg.SupabaseURL + "/auth/v1/health"}}
	}
	hh := &healthhandler.Handlers{Rdb: rdb, Collector: collector, HealthAdminKey: cfg.HealthAdminKey}
	app.Get("/", hh.Dashboard)
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)
	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))

	provider := deps.Provider
	if provider == nil {
		provider = supabase.NewAuthClient(cfg.SupabaseURL, cfg.SupabaseAnonKey, nil)
	}
	gate := authsvc.NewGate(provider, cfg.SchoolEmailDomain, cfg.SiteURL)
	unsubscribe := gate.OnAuthStateChange(authEventRecorder(m))
	app.Hooks().OnShutdown(func() error {
		unsubscribe()
		return nil
	})

	ah := &authhandler.Handlers{Gate: gate, Rdb: rdb, Config: sessionCfg}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/signup", ah.SignUp)
	authGroup.Post("/login", ah.Login)
	authGroup.Post("/reset-password", ah.ResetPassword)
	authGroup.Post("/refresh", ah.Refresh)
	authGroup.Get("/session", ah.Session)
	authGroup.Delete("/logout", ah.Logout)

	requireAuth := middleware.RequireAuth(middleware.AuthConfig{JWTSecret: cfg.SupabaseJWTSecret, SchoolDomain: cfg.SchoolEmailDomain})

	objects := deps.Objects
	if objects == nil {
		objects = supabase.NewStorageClient(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.SupabaseSecretKey, nil)
	}
	uploader := &uploadsvc.Service{Store: objects, Bucket: cfg.ImageBucket, MaxBytes: cfg.MaxImageBytes, Metrics: m}
	uph := &uploadhandler.Handlers{Service: uploader}
	app.Post("/api/v1/uploads/image", requireAuth, uph.UploadImage)

	if db != nil {
		cache := listsvc.NewCache(rdb, cfg.ListCacheTTL)

		lostFound := listsvc.NewLostFoundStore(db)
		lostFound.Cache = cache
		lostFound.Metrics = m
		lfh := &listhandler.Handlers[*domain.LostFoundItem]{
			Store: lostFound,
			NewForm: func() *forms.Form[*domain.LostFoundItem] {
				return forms.NewLostFoundForm(lostFound, uploader)
			},
		}
		lfh.Mount(app.Group("/api/v1/lost-found", requireAuth))

		thrift := listsvc.NewThriftStore(db)
		thrift.Cache = cache
		thrift.Metrics = m
		th := &listhandler.Handlers[*domain.ThriftItem]{
			Store: thrift,
			NewForm: func() *forms.Form[*domain.ThriftItem] {
				return forms.NewThriftForm(thrift, uploader)
			},
		}
		th.Mount(app.Group("/api/v1/thrift", requireAuth))

		uh := &userhandler.Handlers{Service: &usersvc.Service{LostFound: lostFound, Thrift: thrift}}
		app.Get("/api/v1/me/posts", requireAuth, uh.MyPosts)
		app.Get("/api/v1/dashboard", requireAuth, uh.Dashboard)
	} else {
		log.Warn().Msg("DATABASE_URL not set; listing routes are disabled")
	}

	return app, db, rdb, nil
}

// authEventRecorder logs auth transitions and counts them.
func authEventRecorder(m *metrics.Metrics) func(authsvc.Event) {
	return func(ev authsvc.Event) {
		m.AuthEvent(string(ev.Type))
		e := log.Info().Str("event", string(ev.Type))
		if ev.Session != nil {
			e = e.Str("user_id", ev.Session.UserID)
		}
		e.Msg("auth state changed")
	}
}

// bodyLimit leaves room for multipart overhead above the advisory image size.
func bodyLimit(cfg *config.Config) int {
	const floor = 4 * 1024 * 1024
	if n := int(cfg.MaxImageBytes) * 2; n > floor {
		return n
	}
	return floor
}

func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
