package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"researchhub/docs/swagger"
	"researchhub/internal/api"
	"researchhub/internal/auth"
	"researchhub/internal/config"
	"researchhub/internal/db"
	"researchhub/internal/events"
	"researchhub/internal/handlers"
	"researchhub/internal/metrics"
	"researchhub/internal/models"
	"researchhub/internal/routes"
	"researchhub/internal/services"
	"researchhub/internal/tasks"
	"researchhub/internal/tasks/rate"
	"researchhub/internal/utils/logger"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

const permissionCacheTTL = 5 * time.Minute

func main() {

	logger := logger.New("researchhub")

	// check if .env file exists
	if _, err := os.Stat(".env"); os.IsNotExist(err) {
		logger.Info("No .env file found, skipping environment variable loading")
	} else {
		logger.Info("Loading environment variables from .env file")
		if err := godotenv.Load(); err != nil {
			log.Fatalf("Failed to load environment variables: %v", err)
		}
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	metrics.Init()

	// Connect to database
	if err := db.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn("Failed to close database connection: %v", err)
		}
	}()

	dbInstance := db.GetDB()

	// Redis backs the permission cache and the login throttle. Both degrade to
	// uncached and unthrottled when it is unreachable at startup.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	var (
		permissionCache *services.PermissionCache
		loginThrottle   handlers.LoginThrottle
	)
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		logger.Warn("Redis unavailable at %s, running without permission cache and login throttle: %v", cfg.Redis.Addr, err)
	} else {
		permissionCache = services.NewPermissionCache(redisClient, permissionCacheTTL)
		loginThrottle = rate.NewLimiter(redisClient, rate.Config{
			Name: "login",
			RateLimit: rate.RateLimit{
				Window:      cfg.Login.Window,
				MaxAttempts: cfg.Login.MaxAttempts,
			},
		})
	}
	pingCancel()

	tokens, err := auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.TTL, cfg.JWT.Issuer)
	if err != nil {
		log.Fatalf("Failed to initialize token service: %v", err)
	}

	recorder := services.NewRecorder()
	rbacService := services.NewRBACService(dbInstance, recorder, permissionCache)
	researchService := services.NewResearchService(dbInstance, recorder, cfg.Workflow)
	notificationService := services.NewNotificationService(dbInstance)

	// Attachment storage is optional
	if cfg.Storage.Provider == "s3" {
		s3Service, err := services.NewS3Service(context.Background(), cfg.Storage.S3)
		if err != nil {
			log.Fatalf("Failed to initialize S3 service: %v", err)
		}
		models.RegisterAttachmentSigner(s3Service, 0)
		handlers.RegisterAttachmentStorage(s3Service)
	}

	// Background tasks
	var (
		taskClient    *tasks.TaskClient
		taskServer    *tasks.Server
		taskScheduler *tasks.Scheduler
	)
	if cfg.Tasks.Enabled {
		taskClient = tasks.NewTaskClient(cfg.Redis)
		tasks.SubscribeStatusNotifications(events.Default(), taskClient)

		taskServer = tasks.NewServer(cfg.Redis, cfg.Tasks, tasks.NewTaskHandler(notificationService), logger)
		if err := taskServer.Start(context.Background()); err != nil {
			log.Fatalf("Failed to start task server: %v", err)
		}

		taskScheduler = tasks.NewScheduler(cfg.Redis, cfg.Tasks, logger)
		go func() {
			if err := taskScheduler.Start(); err != nil {
				logger.Error("Task scheduler error", err)
			}
		}()
	} else {
		logger.Info("Background tasks disabled")
	}

	swagger.SwaggerInfo.Host = fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	// Initialize API server
	apiServer, err := api.NewServer(cfg, dbInstance, routes.Deps{
		Tokens:        tokens,
		Auth:          services.NewAuthService(dbInstance, rbacService, tokens, recorder, cfg.Workflow.DefaultRole, cfg.Workflow.RegistrableRoles...),
		RBAC:          rbacService,
		Research:      researchService,
		Audit:         services.NewAuditQueryService(dbInstance),
		Notifications: notificationService,
		LoginThrottle: loginThrottle,
	})
	if err != nil {
		log.Fatalf("Failed to initialize API server: %v", err)
	}

	go func() {
		logger.Success("API server starting on %s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("API server error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the servers
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Create a deadline for graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown API server first so no new transitions are emitted
	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown API server", err)
	}

	// Let pending event handlers enqueue before the client closes
	events.Default().Wait()

	if taskScheduler != nil {
		taskScheduler.Stop()
	}
	if taskServer != nil {
		taskServer.Shutdown()
	}
	if taskClient != nil {
		if err := taskClient.Close(); err != nil {
			logger.Warn("Failed to close task client: %v", err)
		}
	}

	logger.Info("Servers shutdown gracefully")
}
