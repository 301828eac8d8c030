// Package main is the entrypoint for the fieldmgr API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/fieldmgr/fieldmgr/internal/cache"
	"github.com/fieldmgr/fieldmgr/internal/config"
	"github.com/fieldmgr/fieldmgr/internal/handler"
	"github.com/fieldmgr/fieldmgr/internal/metrics"
	"github.com/fieldmgr/fieldmgr/internal/model"
	"github.com/fieldmgr/fieldmgr/internal/repository"
	"github.com/fieldmgr/fieldmgr/internal/server"
	"github.com/fieldmgr/fieldmgr/internal/service"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	if cfg.AutoMigrate {
		if err := repository.Migrate(cfg.DatabaseURL, repository.MigrateUp); err != nil {
			logger.Error("failed to migrate database",
				slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			)
			os.Exit(1)
		}
		logger.Info("database schema up to date")
	}

	repo, err := repository.New(ctx, cfg.DatabaseURL, repository.PoolOptions{
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	logger.Info("connected to database")

	recorder := metrics.NewPrometheus()

	routerCfg := handler.RouterConfig{
		Logger:         logger,
		Metrics:        recorder,
		MetricsHandler: recorder.Handler(),
		Users:          service.NewUserService(repo, logger, recorder),
		Fields: service.NewResourceService[model.Field](
			model.FieldKind, repo.Fields(), repo, logger, recorder,
		),
		Devices: service.NewResourceService[model.Device](
			model.DeviceKind, repo.Devices(), repo, logger, recorder,
		),
		DB:                 repo,
		RateLimitEnabled:   cfg.RateLimitEnabled,
		RateLimitRPM:       cfg.RateLimitRPM,
		RateLimitBurst:     cfg.RateLimitBurst,
		IsDevelopment:      cfg.IsDevelopment(),
		AllowedOrigins:     cfg.AllowedOrigins(),
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	}

	var cacheClient *cache.Cache
	if cfg.RedisURL != "" {
		cacheClient, err = cache.New(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error(
				"failed to connect to Redis",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			repo.Close()
			os.Exit(1)
		}
		logger.Info("connected to Redis")

		// Assigned only when set so the interfaces stay nil otherwise.
		routerCfg.Cache = cacheClient
		routerCfg.Limiter = cacheClient
	} else {
		logger.Info("REDIS_URL not set, rate limiting disabled")
	}

	srv := server.New(handler.NewRouter(routerCfg), server.Options{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	srv.OnShutdown("postgres", func(context.Context) error {
		repo.Close()
		return nil
	})
	if cacheClient != nil {
		srv.OnShutdown("redis", func(context.Context) error {
			return cacheClient.Close()
		})
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"rate_limit", cfg.RateLimitActive(),
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	var h slog.Handler
	if cfg.LogFormat == "text" {
		h = slog.NewTextHandler(os.Stdout, opts)
	} else {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s&]+`)

// redactURL drops the password from a connection string.
func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

// sanitizeError replaces every secret in err's message with its redacted form.
func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
