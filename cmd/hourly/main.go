package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/jhu-collab/proj-hourly-sub001/internal/application"
	"github.com/jhu-collab/proj-hourly-sub001/internal/config"
	httptransport "github.com/jhu-collab/proj-hourly-sub001/internal/http"
	"github.com/jhu-collab/proj-hourly-sub001/internal/logging"
	"github.com/jhu-collab/proj-hourly-sub001/internal/persistence/sqlite"
	"github.com/jhu-collab/proj-hourly-sub001/internal/persistence/sqlite/migration"
)

func main() {
	// A missing .env file is fine; the environment itself may carry the
	// configuration.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := sqlite.NewConnectionPool(migration.DefaultConfig(cfg.SQLiteDSN))
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := pool.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	handler := buildHandler(pool, cfg, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("hourly API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// buildHandler assembles repositories, services, handlers, and middleware into
// the HTTP handler served by main.
func buildHandler(pool *sqlite.ConnectionPool, cfg config.Config, logger *slog.Logger) http.Handler {
	idGenerator := uuid.NewString
	tokenGenerator := func() string { return randomHex(32) }
	now := time.Now

	courseRepo := sqlite.NewCourseRepository(pool)
	accountRepo := sqlite.NewAccountRepository(pool)
	officeHourRepo := sqlite.NewOfficeHourRepository(pool)
	registrationRepo := sqlite.NewRegistrationRepository(pool)
	sessionRepo := sqlite.NewSessionRepository(pool)

	courseService := application.NewCourseService(courseRepo, idGenerator, now, cfg.DefaultTimezone, logger)
	officeHourService := application.NewOfficeHourService(officeHourRepo, courseRepo, accountRepo, registrationRepo, idGenerator, now, logger)
	registrationService := application.NewRegistrationService(registrationRepo, courseRepo, officeHourService, idGenerator, now, logger)
	accountService := application.NewAccountService(accountRepo, nil, idGenerator, now, logger)
	authService := application.NewAuthService(accountRepo, sessionRepo, nil, tokenGenerator, now, cfg.SessionTTL, logger)

	return httptransport.NewRouter(httptransport.RouterConfig{
		Auth:          httptransport.NewAuthHandler(authService, logger),
		Accounts:      httptransport.NewAccountHandler(accountService, logger),
		Courses:       httptransport.NewCourseHandler(courseService, officeHourService, logger),
		OfficeHours:   httptransport.NewOfficeHourHandler(officeHourService, courseService, logger),
		Registrations: httptransport.NewRegistrationHandler(registrationService, logger),
		Session:       httptransport.RequireSession(authService, logger),
		Optional:      httptransport.OptionalSession(authService, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
		},
	})
}

func randomHex(bytes int) string {
	if bytes <= 0 {
		bytes = 16
	}
	buf := make([]byte, bytes)
	if _, err := rand.Read(buf); err != nil {
		return hex.EncodeToString([]byte(time.Now().Format(time.RFC3339Nano)))
	}
	return hex.EncodeToString(buf)
}
