// Package main is the entry point for the growthtrack server, a credential
// and data-scope manager for a pediatric myopia tracking application.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/oculab/growthtrack/internal/config"
	"github.com/oculab/growthtrack/internal/handler"
	"github.com/oculab/growthtrack/internal/repository"
	filerepo "github.com/oculab/growthtrack/internal/repository/file"
	"github.com/oculab/growthtrack/internal/repository/sqlite"
	"github.com/oculab/growthtrack/internal/service"
	"github.com/oculab/growthtrack/internal/session"
	"github.com/oculab/growthtrack/internal/storage"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(*configPath)
	setupLogger(cfg)

	log.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Msg("Starting growthtrack server")

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("server exited with error")
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	layout, err := storage.NewLayout(cfg.Storage.UsersRoot)
	if err != nil {
		return fmt.Errorf("failed to initialize users root: %w", err)
	}
	log.Info().Str("users_root", cfg.Storage.UsersRoot).Msg("storage layout ready")

	userRepo := filerepo.NewUserRepository(layout, log.Logger)

	var emailIndex repository.EmailIndex
	if cfg.Index.Enabled {
		db, err := sqlite.NewDB(ctx, sqlite.DefaultConfig(cfg.Index.Path), log.Logger)
		if err != nil {
			return fmt.Errorf("failed to open email index database: %w", err)
		}
		defer db.Close()

		emailIndex, err = sqlite.NewEmailIndex(ctx, db)
		if err != nil {
			return fmt.Errorf("failed to initialize email index: %w", err)
		}
		log.Info().Str("path", cfg.Index.Path).Msg("email index enabled")
	}

	sessionStore, err := newSessionStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer sessionStore.Close()

	authSvc := service.NewAuthService(userRepo, emailIndex, log.Logger)
	sessionSvc := service.NewSessionService(sessionStore, layout, cfg.Session.TTL, log.Logger)
	dataSvc := service.NewDataService(layout, userRepo, log.Logger)

	router := handler.NewRouter(handler.RouterDeps{
		Auth:     handler.NewAuthHandler(authSvc, sessionSvc, cfg.Session.CookieName, cfg.Session.TTL, log.Logger),
		Data:     handler.NewDataHandler(dataSvc, log.Logger),
		Chart:    handler.NewChartHandler(dataSvc, log.Logger),
		Sessions: sessionSvc,
		Config:   cfg,
		Logger:   log.Logger,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info().Msg("Server stopped")
	return nil
}

// newSessionStore builds the configured session backend. Redis is verified
// with a ping before use so a misconfigured address fails at startup rather
// than at first login.
func newSessionStore(ctx context.Context, cfg *config.Config) (session.Store, error) {
	switch cfg.Session.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:        cfg.Redis.Addr(),
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: cfg.Redis.DialTimeout,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		log.Info().Str("addr", cfg.Redis.Addr()).Msg("redis session store connected")
		return session.NewRedisStore(client), nil
	case "memory":
		return session.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown session backend: %s", cfg.Session.Backend)
	}
}

// setupLogger configures the global zerolog logger per the config.
func setupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Logging.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Logging.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
