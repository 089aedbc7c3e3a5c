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
	"github.com/rs/zerolog"

	"github.com/classmark/classmark-api/internal/config"
	"github.com/classmark/classmark-api/internal/database"
	"github.com/classmark/classmark-api/internal/handler"
	"github.com/classmark/classmark-api/internal/middleware"
	"github.com/classmark/classmark-api/internal/models"
	"github.com/classmark/classmark-api/internal/repository"
	"github.com/classmark/classmark-api/internal/router"
	"github.com/classmark/classmark-api/internal/service"
	"github.com/classmark/classmark-api/pkg/ai"
	cloud "github.com/classmark/classmark-api/pkg/cloudinary"
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

	if err := db.AutoMigrate(&models.Assignment{}, &models.Submission{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	storage, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create cloudinary client: %v", err)
	}

	evaluator, err := buildEvaluator(cfg, logger)
	if err != nil {
		log.Fatalf("failed to create evaluator: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)

	assignmentService := service.NewAssignmentService(assignmentRepo, submissionRepo, validate, storage, logger)
	submissionService := service.NewSubmissionService(submissionRepo, assignmentRepo, validate, storage, evaluator, cfg.MaxUploadMB, logger)
	dashboardService := service.NewStudentDashboardService(assignmentRepo, submissionRepo, redisClient, cfg.DashboardCacheTTL, logger)

	assignmentHandler := handler.NewAssignmentHandler(assignmentService, validate, logger)
	submissionHandler := handler.NewSubmissionHandler(submissionService, validate, logger)
	studentDashboardHandler := handler.NewStudentDashboardHandler(dashboardService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AssignmentHandler:       assignmentHandler,
		SubmissionHandler:       submissionHandler,
		StudentDashboardHandler: studentDashboardHandler,
		JWTMiddleware:           middleware.JWTProtected(cfg.JWTSecret),
		UploadRateLimit:         middleware.RateLimit("submissions", 20, time.Minute),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func buildEvaluator(cfg config.Config, logger zerolog.Logger) (ai.Evaluator, error) {
	switch cfg.AIProvider {
	case "anthropic":
		return ai.NewAnthropicEvaluator(ai.AnthropicConfig{APIKey: cfg.AnthropicAPIKey})
	default:
		return ai.NewOpenAIEvaluator(ai.OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.OpenAIModel,
			Logger: logger,
		})
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
