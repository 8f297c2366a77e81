package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"

	"github.com/fitclash/tournament-core/config"
	"github.com/fitclash/tournament-core/db"
	"github.com/fitclash/tournament-core/handlers"
	"github.com/fitclash/tournament-core/live"
	"github.com/fitclash/tournament-core/repositories"
	api "github.com/fitclash/tournament-core/routes"
	"github.com/fitclash/tournament-core/services"
	"github.com/fitclash/tournament-core/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	uploader, err := storage.NewCloudflareR2Uploader(storage.CloudflareR2Config{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		BucketName:      cfg.R2BucketName,
		PublicBaseURL:   cfg.R2PublicBaseURL,
	})
	if err != nil {
		logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("report storage initialized")

	hub := live.NewHub()
	go hub.Run()
	logger.Info("live update hub started")

	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	enrollmentRepo := repositories.NewPostgresEnrollmentRepository(dbConn)
	sessionRepo := repositories.NewPostgresSessionRepository(dbConn)
	rankingRepo := repositories.NewPostgresRankingRepository(dbConn)
	rewardRepo := repositories.NewPostgresRewardRepository(dbConn)
	skillRepo := repositories.NewPostgresSkillRepository(dbConn)
	auditRepo := repositories.NewPostgresAuditRepository(dbConn)
	ledgerRepo := repositories.NewPostgresLedgerRepository(dbConn)
	logger.Info("repositories initialized")

	roster := services.NewEnrollmentRoster(enrollmentRepo)
	badges := services.NewRewardBadgeStore(rewardRepo)

	bracketService := services.NewBracketService(dbConn, tournamentRepo, sessionRepo, skillRepo, roster, hub)
	rankingService := services.NewRankingService(dbConn, tournamentRepo, sessionRepo, rankingRepo)
	rewardService := services.NewRewardService(dbConn, tournamentRepo, rankingRepo, rewardRepo, skillRepo, ledgerRepo, badges, hub)
	resultService := services.NewResultService(dbConn, tournamentRepo, sessionRepo, rankingService, hub)
	enrollmentService := services.NewEnrollmentService(dbConn, tournamentRepo, enrollmentRepo, hub)
	sessionService := services.NewSessionService(tournamentRepo, sessionRepo)
	profileService := services.NewProfileService(skillRepo, ledgerRepo, rewardRepo)
	reportService := services.NewReportService(tournamentRepo, rankingRepo, rewardRepo, skillRepo, auditRepo, uploader)
	tournamentService := services.NewTournamentService(
		dbConn,
		tournamentRepo,
		sessionRepo,
		rankingRepo,
		auditRepo,
		roster,
		bracketService,
		rankingService,
		rewardService,
		hub,
	)
	logger.Info("services initialized")

	tournamentHandler := handlers.NewTournamentHandler(tournamentService)
	enrollmentHandler := handlers.NewEnrollmentHandler(enrollmentService)
	sessionHandler := handlers.NewSessionHandler(sessionService, resultService)
	bracketHandler := handlers.NewBracketHandler(bracketService)
	rankingHandler := handlers.NewRankingHandler(rankingService)
	rewardHandler := handlers.NewRewardHandler(rewardService, reportService)
	userHandler := handlers.NewUserHandler(profileService)
	webSocketHandler := handlers.NewWebSocketHandler(hub)
	logger.Info("HTTP handlers initialized")

	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		cfg.JWTSecretKey,
		cfg.CORSOrigins,
		tournamentHandler,
		enrollmentHandler,
		sessionHandler,
		bracketHandler,
		rankingHandler,
		rewardHandler,
		userHandler,
		webSocketHandler,
	)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
