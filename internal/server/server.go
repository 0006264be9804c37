package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"uploadgate/internal/config"
	"uploadgate/internal/handler"
	"uploadgate/internal/middleware"
	"uploadgate/internal/redis"
	"uploadgate/internal/transport/httpdto"
	"uploadgate/pkg/database"
	upload_errors "uploadgate/pkg/errors"
	"uploadgate/pkg/logger"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
}

func New(cfg *config.Config, l *logger.Logger) *Server {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
			Handler: engine,
		},
		engine: engine,
		config: cfg,
		logger: l,
	}
}

func (s *Server) SetupRoutes(uploads *handler.UploadHandler, limiter *redis.RateLimiter, db *gorm.DB, redisClient *goredis.Client) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.CORSMiddleware())
	s.engine.Use(middleware.LoggingMiddleware(s.logger))
	s.engine.Use(middleware.ErrorHandler(s.logger))

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"message": "pong"}))
	})

	s.engine.GET("/health", func(c *gin.Context) {
		// dependency failure details stay out of the public response
		if err := database.HealthCheck(db); err != nil {
			c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse(upload_errors.ErrServiceUnavailable.Error(), "UNHEALTHY"))
			return
		}
		if err := redis.Ping(c.Request.Context(), redisClient); err != nil {
			c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse(upload_errors.ErrServiceUnavailable.Error(), "UNHEALTHY"))
			return
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"status": "healthy"}))
	})

	group := s.engine.Group("/v1/uploads")
	{
		group.POST("/init", middleware.InitRateLimitMiddleware(limiter), uploads.Init)
		group.POST("/:id/presign-part", uploads.PresignPart)
		group.POST("/:id/part-complete", uploads.PartComplete)
		group.POST("/:id/complete", uploads.Complete)
		group.DELETE("/:id", uploads.Cancel)
	}

	admin := s.engine.Group("/v1/admin/uploads")
	{
		admin.GET("/stale", uploads.ListStale)
		admin.DELETE("/stale", uploads.DeleteStale)
	}
}

func (s *Server) Start() error {
	go func() {
		if s.logger != nil {
			s.logger.Infof("Starting the server on port %s...", s.config.Server.Port)
		}
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.Errorf("server error: %v", err)
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	if s.logger != nil {
		s.logger.Infof("Shutting down server...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
