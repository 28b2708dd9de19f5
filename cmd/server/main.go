package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"formini/docs" // swagger docs
	"formini/internal/auth"
	"formini/internal/cache"
	"formini/internal/config"
	"formini/internal/db"
	"formini/internal/handler"
	"formini/internal/logging"
	"formini/internal/metrics"
	"formini/internal/notify"
	"formini/internal/repository"
	"formini/internal/router"
	"formini/internal/service"
)

// @title Formini Accounts API
// @version 1.0
// @description Account registration, email verification and login for the Formini course platform.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.LogFormat, cfg.LogLevel)
	ctx := context.Background()

	gormDB, err := db.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		fatal(logger, "database init", err)
	}
	if cfg.ResetDB {
		logger.Warn(ctx, "RESET_DB set, dropping tables before migration")
	}
	if err := db.Migrate(gormDB, cfg.ResetDB); err != nil {
		fatal(logger, "database migrate", err)
	}

	cacheClient := cache.New(cache.Options{
		Addr:      cfg.RedisAddr,
		Password:  cfg.RedisPass,
		DB:        cfg.RedisDB,
		Namespace: "formini:",
		OnError: func(op, key string, err error) {
			logger.Warn(ctx, "redis command failed", "op", op, "key", key, "error", err)
		},
	})
	defer cacheClient.Close()
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	if err := cacheClient.Ping(pingCtx); err != nil {
		logger.Warn(ctx, "redis unreachable, logout revocation is not enforced", "addr", cfg.RedisAddr, "error", err)
	}
	cancel()

	// Initialize auth components
	accountRepo := repository.NewAccountRepository(gormDB)
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.TokenTTL)
	tokenStore := auth.NewTokenStore(cacheClient)
	hasher := auth.NewBcryptHasher(cfg.BcryptCost)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	authService := service.NewAuthService(
		accountRepo,
		hasher,
		jwtService,
		tokenStore,
		newNotifier(ctx, cfg, logger),
		logger,
		metrics.New(registry),
		service.WithNotifyTimeout(cfg.NotifyTimeout),
	)

	e := echo.New()
	router.Register(
		e,
		logger,
		registry,
		cfg.CORSOrigins,
		authService,
		handler.NewAuthHandler(authService),
		handler.NewAccountHandler(authService),
	)

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = cfg.SwaggerHost
	}
	logger.Info(ctx, "swagger documentation available", "url", "http://"+docs.SwaggerInfo.Host+"/swagger/index.html")

	addr := ":" + cfg.ServerPort
	go func() {
		logger.Info(ctx, "server starting", "addr", addr, "db_driver", cfg.DBDriver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(logger, "server start", err)
		}
	}()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()

	shutdownCtx, cancelShutdown := context.WithTimeout(ctx, 10*time.Second)
	defer cancelShutdown()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "server shutdown", "error", err)
	}
	logger.Info(ctx, "server stopped")
}

// newNotifier returns the SMTP notifier when credentials are configured. Without them every
// code is written to the log instead.
func newNotifier(ctx context.Context, cfg *config.Config, logger logging.Logger) notify.Notifier {
	if !cfg.SMTPEnabled() {
		logger.Warn(ctx, "SMTP credentials not configured, verification codes will only be logged")
		return notify.Disabled{}
	}
	smtp, err := notify.NewSMTP(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		From:     cfg.FromEmail,
		Timeout:  cfg.NotifyTimeout,
	})
	if err != nil {
		logger.Warn(ctx, "SMTP configuration rejected, verification codes will only be logged", "error", err)
		return notify.Disabled{}
	}
	logger.Info(ctx, "SMTP delivery enabled", "host", cfg.SMTPHost, "port", cfg.SMTPPort)
	return smtp
}

func fatal(logger logging.Logger, msg string, err error) {
	logger.Error(context.Background(), msg, "error", err)
	os.Exit(1)
}
