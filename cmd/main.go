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

	"github.com/arenaforge/esports-platform/cache"
	"github.com/arenaforge/esports-platform/config"
	"github.com/arenaforge/esports-platform/db"
	"github.com/arenaforge/esports-platform/handlers"
	"github.com/arenaforge/esports-platform/jobs"
	"github.com/arenaforge/esports-platform/live"
	"github.com/arenaforge/esports-platform/repositories"
	"github.com/arenaforge/esports-platform/routes"
	"github.com/arenaforge/esports-platform/services"
	"github.com/arenaforge/esports-platform/storage"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	_ "github.com/lib/pq"
)

const shutdownTimeout = 15 * time.Second

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
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	leaderboardCache := cache.NewLeaderboardCache(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, cfg.Settlement.LeaderboardTTL)
	logger.Info("leaderboard cache initialized", slog.String("addr", cfg.RedisAddr))

	// Object storage and NATS are optional: the platform runs degraded
	// without them (no CSV export, settlement triggered manually).
	var uploader storage.FileUploader
	if cfg.R2AccountID != "" {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize object storage", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("object storage initialized", slog.String("bucket", cfg.R2BucketName))
	} else {
		logger.Warn("object storage not configured, report export disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL,
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second),
		)
		if err != nil {
			logger.Warn("failed to connect to NATS, settlement queue disabled", slog.Any("error", err))
			natsConn = nil
		}
	}
	defer func() {
		if natsConn != nil {
			natsConn.Close()
		}
	}()

	hub := live.NewHub(logger)
	go hub.Run()
	logger.Info("websocket hub started")

	userRepo := repositories.NewPostgresUserRepository(dbConn)
	walletRepo := repositories.NewPostgresWalletRepository(dbConn)
	transactionRepo := repositories.NewPostgresTransactionRepository(dbConn)
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	participantRepo := repositories.NewPostgresParticipantRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	lockRepo := repositories.NewPostgresResultLockRepository(dbConn)
	leaderboardRepo := repositories.NewPostgresLeaderboardRepository(dbConn)
	escrowRepo := repositories.NewPostgresEscrowRepository(dbConn)
	auditRepo := repositories.NewPostgresAuditRepository(dbConn)
	logger.Info("repositories initialized")

	walletService := services.NewWalletService(dbConn, walletRepo, transactionRepo)
	authService := services.NewAuthService(userRepo, walletRepo, cfg.JWTSecretKey)
	teamService := services.NewTeamService(teamRepo, userRepo)
	escrowService := services.NewEscrowService(
		dbConn,
		escrowRepo,
		tournamentRepo,
		participantRepo,
		teamRepo,
		leaderboardRepo,
		auditRepo,
		walletService,
		cfg.Settlement,
		logger,
	)
	tournamentService := services.NewTournamentService(
		dbConn,
		tournamentRepo,
		participantRepo,
		escrowService,
		walletService,
		logger,
	)
	resultService := services.NewResultService(
		dbConn,
		matchRepo,
		lockRepo,
		leaderboardRepo,
		tournamentRepo,
		auditRepo,
		leaderboardCache,
		hub,
		logger,
	)
	leaderboardService := services.NewLeaderboardService(leaderboardRepo, leaderboardCache, logger)
	complianceService := services.NewComplianceService(transactionRepo, auditRepo, userRepo, uploader, logger)
	emailService := services.NewEmailService(cfg, tournamentRepo, participantRepo, userRepo, logger)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var publisher services.SettlementPublisher
	var worker *jobs.Worker
	if natsConn != nil {
		pub, err := jobs.NewPublisher(natsConn, logger)
		if err != nil {
			logger.Error("failed to initialize settlement publisher", slog.Any("error", err))
			os.Exit(1)
		}
		if err := pub.EnsureStream(rootCtx); err != nil {
			logger.Error("failed to ensure settlement stream", slog.Any("error", err))
			os.Exit(1)
		}
		publisher = pub

		worker, err = jobs.NewWorker(natsConn, escrowService, emailService, logger)
		if err != nil {
			logger.Error("failed to initialize settlement worker", slog.Any("error", err))
			os.Exit(1)
		}
		if err := worker.Start(rootCtx); err != nil {
			logger.Error("failed to start settlement worker", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("settlement queue started")
	}

	lifecycleService := services.NewLifecycleService(
		dbConn,
		tournamentRepo,
		participantRepo,
		auditRepo,
		escrowService,
		publisher,
		cfg.Settlement,
		logger,
	)
	logger.Info("services initialized")

	scheduler, err := jobs.NewSweepScheduler(lifecycleService, logger)
	if err != nil {
		logger.Error("failed to initialize sweep scheduler", slog.Any("error", err))
		os.Exit(1)
	}
	if err := scheduler.Start(rootCtx); err != nil {
		logger.Error("failed to start sweep scheduler", slog.Any("error", err))
		os.Exit(1)
	}

	routerHandlers := routes.Handlers{
		Auth:        handlers.NewAuthHandler(authService),
		Wallet:      handlers.NewWalletHandler(walletService),
		Team:        handlers.NewTeamHandler(teamService),
		Tournament:  handlers.NewTournamentHandler(tournamentService, lifecycleService),
		Match:       handlers.NewMatchHandler(resultService),
		Escrow:      handlers.NewEscrowHandler(escrowService),
		Leaderboard: handlers.NewLeaderboardHandler(leaderboardService),
		Compliance:  handlers.NewComplianceHandler(complianceService),
		WebSocket:   handlers.NewWebSocketHandler(hub),
	}
	router := routes.SetupRoutes(routerHandlers, []byte(cfg.JWTSecretKey))
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

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped")
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
		}

		if worker != nil {
			worker.Stop()
		}
		if err := scheduler.Stop(); err != nil {
			logger.Error("failed to stop sweep scheduler", slog.Any("error", err))
		}
	}
	logger.Info("application exited")
}
