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
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/aulaweb/aula-go-api/internal/config"
	"github.com/aulaweb/aula-go-api/internal/database"
	"github.com/aulaweb/aula-go-api/internal/handler"
	"github.com/aulaweb/aula-go-api/internal/middleware"
	"github.com/aulaweb/aula-go-api/internal/models"
	"github.com/aulaweb/aula-go-api/internal/repository"
	"github.com/aulaweb/aula-go-api/internal/router"
	"github.com/aulaweb/aula-go-api/internal/service"
	"github.com/aulaweb/aula-go-api/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Course{},
		&models.Module{},
		&models.Activity{},
		&models.Submission{},
		&models.SubmissionFile{},
		&models.ActivityGrade{},
		&models.UserProgress{},
		&models.ProgressSummary{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis url not configured, summary caching disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	} else {
		logger.Warn().Msg("nats url not configured, grade events disabled")
	}

	fileStore, err := storage.NewLocal(cfg.StorageDir)
	if err != nil {
		log.Fatalf("failed to initialise file storage: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	courseRepo := repository.NewCourseRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	catalogService := service.NewCatalogService(courseRepo, activityRepo, validate, logger)
	submissionService := service.NewSubmissionService(submissionRepo, service.SubmissionPolicy{
		FirstAttemptFinal: cfg.FirstAttemptFinal,
	}, validate, fileStore, logger)
	progressService := service.NewProgressService(progressRepo, validate, redisClient, cfg.SummaryCacheTTL, logger)
	gradingService := service.NewGradingService(gradeRepo, progressService, validate, natsConn, cfg.NATSGradeSubject, logger)
	statsService := service.NewStatsService(statsRepo, logger)

	catalogHandler := handler.NewCatalogHandler(catalogService, logger)
	submissionHandler := handler.NewSubmissionHandler(submissionService, logger)
	gradeHandler := handler.NewGradeHandler(gradingService, logger)
	progressHandler := handler.NewProgressHandler(progressService, logger)
	statsHandler := handler.NewStatsHandler(statsService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    cfg.MaxUploadMB * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		CatalogHandler:    catalogHandler,
		SubmissionHandler: submissionHandler,
		GradeHandler:      gradeHandler,
		ProgressHandler:   progressHandler,
		StatsHandler:      statsHandler,
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
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
