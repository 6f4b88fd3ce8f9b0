package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/turbowire/turbowire/internal/v1/api"
	"github.com/turbowire/turbowire/internal/v1/config"
	"github.com/turbowire/turbowire/internal/v1/health"
	"github.com/turbowire/turbowire/internal/v1/logging"
	"github.com/turbowire/turbowire/internal/v1/middleware"
	"github.com/turbowire/turbowire/internal/v1/queue"
	"github.com/turbowire/turbowire/internal/v1/ratelimit"
	"github.com/turbowire/turbowire/internal/v1/registry"
	"github.com/turbowire/turbowire/internal/v1/webhook"
	"github.com/turbowire/turbowire/internal/v1/wire"
)

func main() {
	// Load .env file for local development.
	if err := godotenv.Load(); err == nil {
		slog.Info("Loaded environment from .env")
	}

	// Validate environment variables before starting the server.
	// SIGNING_KEY and BROADCAST_KEY are fatal when missing.
	cfg, err := config.ValidateEnv()
	if err != nil {
		slog.Error("Environment validation failed", "error", err)
		os.Exit(1)
	}

	if err := logging.Initialize(cfg.DevelopmentMode); err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}

	// --- Offline queue (optional) ---
	var queueService *queue.Service
	if cfg.RedisURL != "" {
		queueService, err = queue.NewService(cfg.RedisURL)
		if err != nil {
			slog.Error("Failed to connect to Redis, running with memory-only semantics", "error", err)
			queueService = nil
		}
	} else {
		slog.Info("No REDIS_URL set, offline queue disabled")
	}

	reg := registry.New(queueService)
	webhookClient := webhook.NewClient(cfg.MessageWebhookURL)
	hub := wire.NewHub(cfg, reg, webhookClient)
	apiHandler := api.NewHandler(cfg, reg)
	healthHandler := health.NewHandler(queueService, reg)

	rateLimiter, err := ratelimit.NewRateLimiter(cfg)
	if err != nil {
		slog.Error("Failed to create rate limiter", "error", err)
		os.Exit(1)
	}

	// --- Set up Server ---
	if !cfg.DevelopmentMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())

	// CORS: any origin may connect after presenting a valid signature.
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = []string{"*"}
	corsConfig.AllowMethods = []string{"*"}
	router.Use(cors.New(corsConfig))

	// Client endpoint
	router.Any("/", hub.ServeWire)

	// Serverless endpoints
	router.POST("/broadcast", rateLimiter.MiddlewareForEndpoint("broadcast"), apiHandler.Broadcast)
	router.POST("/sign-wire", rateLimiter.MiddlewareForEndpoint("sign"), apiHandler.SignWire)

	// Health, stats, metrics
	router.GET("/health", healthHandler.Health)
	router.GET("/stats", healthHandler.Stats)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:    cfg.Host + ":" + cfg.Port,
		Handler: router,
	}

	// --- Graceful Shutdown ---
	go func() {
		slog.Info("Server starting", "host", cfg.Host, "port", cfg.Port, "connection_limit", cfg.ConnectionLimit)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Failed to run server", "error", err)
			syscall.Kill(os.Getpid(), syscall.SIGTERM)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Abort all live wires, then the HTTP server, then the store.
	if err := hub.Shutdown(ctx); err != nil {
		slog.Error("Error during hub shutdown", "error", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	if queueService != nil {
		if err := queueService.Close(); err != nil {
			slog.Error("Failed to close Redis connection", "error", err)
		} else {
			slog.Info("Redis connection closed")
		}
	}

	slog.Info("Server exiting")
}
