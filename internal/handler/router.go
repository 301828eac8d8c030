package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/fieldmgr/fieldmgr/internal/metrics"
	"github.com/fieldmgr/fieldmgr/internal/middleware"
	"github.com/fieldmgr/fieldmgr/internal/service"
)

// RouterConfig holds the dependencies and settings of the HTTP router.
type RouterConfig struct {
	Logger  *slog.Logger
	Metrics metrics.Recorder
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler

	Users   *service.UserService
	Fields  *service.FieldService
	Devices *service.DeviceService

	// DB and Cache back /readyz. Cache is nil when Redis is not configured.
	DB    HealthChecker
	Cache HealthChecker

	// Limiter is nil when Redis is not configured.
	Limiter          middleware.RateLimiter
	RateLimitEnabled bool
	RateLimitRPM     int
	RateLimitBurst   int

	IsDevelopment      bool
	AllowedOrigins     []string
	MaxRequestBodySize int64
}

// NewRouter builds the chi router with the full middleware chain.
func NewRouter(cfg RouterConfig) *chi.Mux {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	recorder := cfg.Metrics
	if recorder == nil {
		recorder = metrics.NewNoop()
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.AllowedOrigins

	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger, recorder))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment}))
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

	r.NotFound(NotFound)
	r.MethodNotAllowed(MethodNotAllowed)

	health := NewHealthHandler(cfg.DB, cfg.Cache)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	users := NewUserHandler(cfg.Users, logger)
	fields := NewResourceHandler(cfg.Fields, logger)
	devices := NewResourceHandler(cfg.Devices, logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Identity(middleware.IdentityConfig{
			Logger:  logger,
			Metrics: recorder,
		}))
		r.Use(middleware.RateLimit(middleware.RateLimitConfig{
			Logger:            logger,
			Metrics:           recorder,
			Limiter:           cfg.Limiter,
			Enabled:           cfg.RateLimitEnabled,
			RequestsPerMinute: cfg.RateLimitRPM,
			Burst:             cfg.RateLimitBurst,
		}))

		r.Post("/users", users.Create)
		r.Get("/users/me", users.Me)

		r.Route("/fields", fields.Routes)
		r.Route("/devices", devices.Routes)
	})

	return r
}
