package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/lesnich/TeamMotion/internal/activity"
	"github.com/lesnich/TeamMotion/internal/app"
	"github.com/lesnich/TeamMotion/internal/auth"
	"github.com/lesnich/TeamMotion/internal/authz"
	"github.com/lesnich/TeamMotion/internal/challenge"
	"github.com/lesnich/TeamMotion/internal/company"
	"github.com/lesnich/TeamMotion/internal/observability"
	"github.com/lesnich/TeamMotion/internal/platform/cache"
	"github.com/lesnich/TeamMotion/internal/platform/db"
	"github.com/lesnich/TeamMotion/internal/progress"
	"github.com/lesnich/TeamMotion/internal/shared"
	"github.com/lesnich/TeamMotion/internal/sleep"
	"github.com/lesnich/TeamMotion/internal/users"
	"github.com/lesnich/TeamMotion/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "teammotion_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)
	authMiddleware := auth.Middleware{Service: authService, Logger: logger}

	gate := authz.NewGate()
	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo, gate, auditLogger)

	companyRepo := company.NewRepository(dbpool)
	companyService := company.NewService(companyRepo, usersRepo, gate, auditLogger)

	activityRepo := activity.NewRepository(dbpool)
	activityService := activity.NewService(activityRepo, usersRepo, gate, idempotencyStore)

	sleepRepo := sleep.NewRepository(dbpool)
	sleepService := sleep.NewService(sleepRepo, usersRepo, gate)

	challengeRepo := challenge.NewRepository(dbpool)
	leaderboardCache := challenge.NewLeaderboardCache(redisClient, cfg.LeaderboardTTL)
	challengeService := challenge.NewService(challengeRepo, gate, leaderboardCache, auditLogger)

	progressRepo := progress.NewRepository(dbpool)
	progressService := progress.NewService(progressRepo, usersRepo, challengeRepo, gate)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, jobClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		AuthHandler:      authHandler,
		AuthMiddleware:   authMiddleware,
		UsersHandler:     users.NewHandler(logger, usersService),
		CompanyHandler:   company.NewHandler(logger, companyService),
		ActivityHandler:  activity.NewHandler(logger, activityService),
		SleepHandler:     sleep.NewHandler(logger, sleepService),
		ChallengeHandler: challenge.NewHandler(logger, challengeService),
		ProgressHandler:  progress.NewHandler(logger, progressService),
		JobHandler:       jobHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
