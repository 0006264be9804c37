package main

import (
	"context"
	"log"

	"uploadgate/internal/config"
	"uploadgate/internal/handler"
	"uploadgate/internal/redis"
	"uploadgate/internal/repository"
	"uploadgate/internal/server"
	"uploadgate/internal/services"
	"uploadgate/internal/storage"
	"uploadgate/pkg/database"
	"uploadgate/pkg/logger"

	_ "github.com/joho/godotenv/autoload"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	l := logger.New(cfg.Server.Environment)
	defer l.Sync()
	logger.SetGlobalLogger(l)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	redisClient := redis.NewClient(redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	s3Client, err := storage.NewClient(context.Background(), storage.S3Config{
		Region:     cfg.S3.Region,
		Bucket:     cfg.S3.Bucket,
		AccessKey:  cfg.S3.AccessKey,
		SecretKey:  cfg.S3.SecretKey,
		Endpoint:   cfg.S3.Endpoint,
		PresignTTL: cfg.S3.PresignTTL,
	})
	if err != nil {
		log.Fatalf("Failed to create s3 client: %v", err)
	}

	uploadRepo := repository.NewUploadRepository(db)
	partRepo := repository.NewPartRepository(db)
	eventRepo := repository.NewEventRepository(db)

	orchestrator := services.NewUploadOrchestrator(
		uploadRepo,
		partRepo,
		s3Client,
		redis.NewLocker(redisClient),
		services.NewUploadEvents(eventRepo, l),
		l,
		services.OrchestratorConfig{
			LockTTL:         cfg.Upload.LockTTL,
			S3CallTimeout:   cfg.S3.CallTimeout,
			SessionLifetime: cfg.Upload.SessionLifetime,
		},
	)

	limiter := redis.NewRateLimiter(redisClient, redis.RateLimitConfig{
		InitLimit:  cfg.Upload.InitRateLimit,
		InitWindow: cfg.Upload.InitRateWindow,
	})

	srv := server.New(cfg, l)
	srv.SetupRoutes(handler.NewUploadHandler(orchestrator), limiter, db, redisClient)

	if err := srv.Start(); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}
}
