package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-course-api/internal/cache"
	"github.com/noah-isme/gema-course-api/internal/config"
	"github.com/noah-isme/gema-course-api/internal/database"
	"github.com/noah-isme/gema-course-api/internal/handler"
	"github.com/noah-isme/gema-course-api/internal/middleware"
	"github.com/noah-isme/gema-course-api/internal/repository"
	"github.com/noah-isme/gema-course-api/internal/router"
	"github.com/noah-isme/gema-course-api/internal/service"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	if cfg.AppEnv != "production" {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if cfg.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			logger.Fatal().Err(err).Msg("failed to migrate database")
		}
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, progress cache and pub/sub disabled")
		} else {
			defer redisClient.Close()
		}
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, unlock events will not be published")
		} else {
			defer natsConn.Drain()
		}
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	progressCache := cache.New(redisClient, "progress:v1", cfg.ProgressCacheTTL)

	courseRepo := repository.NewCourseRepository(db)
	prerequisiteRepo := repository.NewPrerequisiteRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	progressRepo := repository.NewLessonProgressRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	notificationService := service.NewNotificationService(notificationRepo, redisClient, cfg.EventChannel, natsConn, logger)
	var notifier service.UnlockNotifier
	if cfg.NotifyOnUnlock {
		notifier = notificationService
	}

	gradeSource := service.NewGradeSource(gradeRepo)
	unlockService := service.NewLessonUnlockService(courseRepo, prerequisiteRepo, progressRepo, gradeSource, notifier, logger)
	trigger := service.NewRecalculationTrigger(courseRepo, prerequisiteRepo, enrollmentRepo, progressRepo, gradeSource, unlockService, progressCache, logger)
	progressService := service.NewCourseProgressService(courseRepo, enrollmentRepo, progressRepo, trigger, progressCache, logger)
	activityService := service.NewActivityService(activityRepo, logger)
	structureService := service.NewCourseStructureService(courseRepo, prerequisiteRepo, enrollmentRepo, trigger, activityService, validate, logger)
	ingestService := service.NewGradeIngestService(gradeRepo, trigger, validate, logger)

	probes := map[string]handler.HealthProbe{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if redisClient != nil {
		probes["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	if natsConn != nil {
		probes["nats"] = func(context.Context) error {
			if !natsConn.IsConnected() {
				return errors.New("nats disconnected")
			}
			return nil
		}
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		CourseProgressHandler: handler.NewCourseProgressHandler(progressService, logger),
		CourseAdminHandler:    handler.NewCourseAdminHandler(structureService, activityService, logger),
		JudgeHandler:          handler.NewJudgeHandler(ingestService, logger),
		NotificationHandler:   handler.NewNotificationHandler(notificationService, logger),
		HealthProbes:          probes,
		JWTMiddleware:         middleware.JWTProtected(cfg.JWTSecret),
		JudgeMiddleware:       middleware.JWTOrServiceToken(cfg.JWTSecret, cfg.JudgeSharedSecret, middleware.RoleJudge),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, logger)
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
