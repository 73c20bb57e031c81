package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/devconnect/backend/internal/cache"
	"github.com/devconnect/backend/internal/database"
	"github.com/devconnect/backend/internal/handlers"
	"github.com/devconnect/backend/internal/logger"
	"github.com/devconnect/backend/internal/metrics"
	"github.com/devconnect/backend/internal/middleware"
	"github.com/devconnect/backend/internal/storage"
	"github.com/devconnect/backend/internal/websocket"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	if err := logger.Initialize(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FILE")); err != nil {
		panic(err)
	}
	defer logger.Log.Sync()

	logger.Log.Info("DevConnect backend starting")

	if err := database.Initialize(); err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		logger.Log.Fatal("Failed to run migrations", zap.Error(err))
	}

	metrics.Initialize()

	jwtSecret := []byte(os.Getenv("JWT_SECRET"))
	if len(jwtSecret) == 0 {
		logger.Log.Fatal("JWT_SECRET environment variable is required")
	}

	// Listing cache is optional: without Redis every listing read goes to
	// the database
	var listing *cache.Listing
	if host := os.Getenv("REDIS_HOST"); host != "" {
		redisClient, err := cache.NewRedisClient(host, os.Getenv("REDIS_PORT"), os.Getenv("REDIS_PASSWORD"))
		if err != nil {
			logger.Log.Warn("Redis unavailable, serving listings without cache", zap.Error(err))
		} else {
			listing = cache.NewListing(redisClient)
			defer redisClient.Close()
			logger.Log.Info("Listing cache enabled", zap.String("host", host))
		}
	} else {
		logger.Log.Info("REDIS_HOST not set, serving listings without cache")
	}

	// Image storage is optional the same way: upload endpoints report the
	// storage as unconfigured when no bucket is set
	var uploader storage.ImageUploader
	if bucket := os.Getenv("AWS_BUCKET"); bucket != "" {
		s3Uploader, err := storage.NewS3Uploader(
			os.Getenv("AWS_REGION"),
			bucket,
			os.Getenv("CDN_BASE_URL"),
		)
		if err != nil {
			logger.Log.Fatal("Failed to initialize S3 uploader", zap.Error(err))
		}
		if err := s3Uploader.CheckBucketAccess(context.Background()); err != nil {
			logger.Log.Warn("S3 bucket access check failed, image uploads may fail", zap.Error(err))
		}
		uploader = s3Uploader
	} else {
		logger.Log.Info("AWS_BUCKET not set, image uploads disabled")
	}

	// Comment relay: hub fans persisted comments out to post subscribers
	hub := websocket.NewHub()
	websocket.RegisterRelayHandlers(hub, listing)
	go hub.Run()

	wsHandler := websocket.NewHandler(hub, jwtSecret)

	h := handlers.NewHandlers(uploader, listing)
	h.SetWebSocketHandler(wsHandler)

	if os.Getenv("ENVIRONMENT") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(middleware.MetricsMiddleware())

	corsConfig := cors.DefaultConfig()
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		corsConfig.AllowOrigins = []string{origins}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	r.Use(cors.New(corsConfig))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   "devconnect-backend",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Profile routes
	r.POST("/create-user", h.CreateUser)
	r.GET("/get-users", h.GetUsers)
	r.GET("/get-userData", h.GetUserData)
	r.POST("/update-userData", h.UpdateUserData)
	r.POST("/follow", h.Follow)
	r.POST("/delete-user-references", h.DeleteUserReferences)

	// Post routes
	r.POST("/create-post", h.CreatePost)
	r.GET("/get-posts", h.GetPosts)
	r.POST("/like-post", h.LikePost)
	r.POST("/edit-post", h.EditPost)
	r.POST("/delete-post", h.DeletePost)

	// Comment routes
	r.GET("/get-comments", h.GetComments)
	r.POST("/like-comment", h.LikeComment)
	r.POST("/delete-comment", h.DeleteComment)

	// Project routes
	r.POST("/create-project", h.CreateProject)
	r.GET("/get-projects", h.GetProjects)
	r.POST("/edit-project", h.EditProject)
	r.POST("/delete-project", h.DeleteProject)

	// Image routes
	r.POST("/upload-profile", h.UploadProfile)
	r.POST("/delete-profile", h.DeleteProfile)
	r.POST("/upload-post-image", h.UploadPostImage)
	r.POST("/delete-post-image", h.DeletePostImage)

	// WebSocket routes
	r.GET("/ws", wsHandler.HandleWebSocket)
	r.GET("/ws/metrics", wsHandler.HandleMetrics)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8787"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		logger.Log.Info("HTTP server listening", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := wsHandler.Shutdown(ctx); err != nil {
		logger.Log.Warn("WebSocket shutdown", zap.Error(err))
	}
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Log.Info("Server exited")
}
