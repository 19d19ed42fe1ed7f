package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/incident-api/internal/config"
	"github.com/noah-isme/incident-api/internal/database"
	"github.com/noah-isme/incident-api/internal/handler"
	"github.com/noah-isme/incident-api/internal/middleware"
	"github.com/noah-isme/incident-api/internal/repository"
	"github.com/noah-isme/incident-api/internal/router"
	"github.com/noah-isme/incident-api/internal/service"
	cloud "github.com/noah-isme/incident-api/pkg/cloudinary"
	"github.com/noah-isme/incident-api/pkg/r2"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()
	if cfg.AppEnv == "production" {
		logger = logger.Level(zerolog.InfoLevel)
	}

	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	healthChecks := map[string]handler.Pinger{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(context.Background(), cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
		healthChecks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	} else {
		logger.Warn().Msg("redis not configured, duplicate submission guard disabled")
	}

	events := service.NewNoopEventPublisher()
	if cfg.NATSURL != "" {
		conn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer conn.Drain()
		events = service.NewNATSEventPublisher(conn, cfg.NATSSubject)
	}

	store, err := newAttachmentStore(cfg, logger)
	if err != nil {
		log.Fatalf("failed to create attachment store: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	tokens, err := service.NewTokenService(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		log.Fatalf("failed to create token service: %v", err)
	}

	reportRepo := repository.NewReportRepository(db)
	userRepo := repository.NewUserRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	activityService := service.NewActivityService(activityRepo, logger)
	attachmentService := service.NewAttachmentService(store, cfg.AttachmentMaxMB, logger)
	authService := service.NewAuthService(userRepo, tokens, validate, logger)
	reportService := service.NewReportService(service.ReportServiceDeps{
		Repo:        reportRepo,
		Attachments: attachmentService,
		Activity:    activityService,
		Events:      events,
		Cache:       redisClient,
		Validator:   validate,
		Logger:      logger,
		DedupeTTL:   cfg.DedupeTTL,
	})
	adminReportService := service.NewAdminReportService(service.AdminReportServiceDeps{
		Repo:        reportRepo,
		Attachments: attachmentService,
		Activity:    activityService,
		Events:      events,
		Validator:   validate,
		Logger:      logger,
	})

	if err := authService.EnsureAdmin(context.Background(), cfg.AdminUsername, cfg.AdminPassword); err != nil {
		log.Fatalf("failed to bootstrap admin account: %v", err)
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.AttachmentMaxMB + 1) * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{
		Logger:         &logger,
		CORSOrigins:    cfg.CORSOrigins,
		RequestTimeout: cfg.RequestTimeout,
	})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:        handler.NewAuthHandler(authService, logger),
		ReportHandler:      handler.NewReportHandler(reportService, logger),
		AdminReportHandler: handler.NewAdminReportHandler(adminReportService, logger),
		JWTMiddleware:      middleware.JWTProtected(tokens),
		HealthChecks:       healthChecks,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	logger.Info().Str("address", cfg.HTTPAddress()).Str("storage", cfg.StorageProvider).Msg("incident api started")
	waitForShutdown(app)
}

func newAttachmentStore(cfg config.Config, logger zerolog.Logger) (service.AttachmentStore, error) {
	switch cfg.StorageProvider {
	case config.StorageR2:
		return r2.New(r2.Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			Bucket:          cfg.R2Bucket,
			PublicURL:       cfg.R2PublicURL,
			Endpoint:        cfg.R2Endpoint,
		}, logger)
	case config.StorageCloudinary:
		return cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
	default:
		logger.Warn().Msg("attachment storage disabled")
		return nil, nil
	}
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
