package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zfogg/huddle/internal/auth"
	"github.com/zfogg/huddle/internal/cache"
	"github.com/zfogg/huddle/internal/chat"
	"github.com/zfogg/huddle/internal/config"
	"github.com/zfogg/huddle/internal/database"
	"github.com/zfogg/huddle/internal/handlers"
	"github.com/zfogg/huddle/internal/logger"
	"github.com/zfogg/huddle/internal/metrics"
	"github.com/zfogg/huddle/internal/middleware"
	"github.com/zfogg/huddle/internal/social"
	"github.com/zfogg/huddle/internal/telemetry"
	"github.com/zfogg/huddle/internal/websocket"
	"go.uber.org/zap"
)

const serviceName = "huddle-server"

func main() {
	cfg, err := config.Load()
	if err != nil {
		// The logger isn't up yet, so this goes to stderr only
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Close()

	logger.Log.Info("=== Huddle server starting ===",
		zap.String("environment", cfg.Environment),
	)

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	metrics.Initialize()

	tp, err := telemetry.InitTracer(context.Background(), telemetry.Config{
		ServiceName:  serviceName,
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.OTelEndpoint,
		Enabled:      cfg.OTelEnabled,
		SamplingRate: cfg.OTelSamplingRate,
	})
	if err != nil {
		logger.WarnWithFields("Tracing disabled: failed to initialize tracer", err)
	}

	if err := database.Initialize(cfg); err != nil {
		logger.FatalWithFields("Failed to initialize database", err)
	}
	defer database.Close()

	if tp != nil {
		if err := database.DB.Use(telemetry.GORMTracingPlugin(cfg.DBDriver)); err != nil {
			logger.WarnWithFields("Failed to install database tracing", err)
		}
	}

	if err := database.Migrate(database.DB); err != nil {
		logger.FatalWithFields("Failed to run migrations", err)
	}

	// Redis is optional: without it unread counts are always read from the
	// database and rate limiting is per process.
	var redisClient *cache.RedisClient
	var unread cache.UnreadCounts = cache.NoopUnreadCounts{}
	if cfg.RedisEnabled() {
		redisClient, err = cache.NewRedisClient(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword)
		if err != nil {
			logger.WarnWithFields("Redis unavailable, continuing without cache", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
			unread = cache.NewRedisUnreadCounts(redisClient, cfg.UnreadCacheTTL)
		}
	}

	authService := auth.NewService(database.DB, cfg.JWTSecret, cfg.TokenTTL)

	hub := websocket.NewHub()
	hub.SetRateLimitConfig(websocket.RateLimitConfig{
		MaxMessagesPerSecond: cfg.RelayRateLimit,
		BurstSize:            cfg.RelayRateBurst,
	})
	go hub.Run()

	socialService := social.NewService(database.DB, hub, unread)
	chatService := chat.NewService(database.DB, hub)
	hub.RegisterHandler(websocket.MessageTypeChatMessage, chatService.RelayHandler())

	h := handlers.NewHandlers(socialService, chatService)
	h.SetWebSocketHandler(websocket.NewHandler(hub, authService, cfg.CORSOrigins))
	authHandlers := handlers.NewAuthHandlers(authService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(middleware.MetricsMiddleware())
	if tp != nil {
		r.Use(middleware.TracingMiddleware(serviceName)...)
	}

	corsConfig := cors.DefaultConfig()
	if len(cfg.CORSOrigins) == 1 && cfg.CORSOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.CORSOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID"}
	r.Use(cors.New(corsConfig))

	// The websocket upgrade hijacks the connection, so it can't be compressed
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/v1/ws"})))
	r.Use(middleware.RateLimitSmart(redisClient, middleware.DefaultRateLimitConfig()))

	r.GET("/health", func(c *gin.Context) {
		status := "ok"
		code := http.StatusOK
		if err := database.Health(database.DB); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":    status,
			"timestamp": time.Now().UTC(),
			"service":   serviceName,
			"relay":     hub.GetMetrics(),
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authLimit := middleware.RateLimitSmart(redisClient, middleware.AuthRateLimitConfig())
	handlers.RegisterRoutes(r.Group("/api/v1"), h, authHandlers, authLimit)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Info("Huddle server listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.FatalWithFields("Failed to start server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := hub.Shutdown(ctx); err != nil {
		logger.WarnWithFields("Relay shutdown warning", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.ErrorWithFields("Server forced to shutdown", err)
	}

	if tp != nil {
		if err := tp.Shutdown(ctx); err != nil {
			logger.WarnWithFields("Tracer shutdown warning", err)
		}
	}

	logger.Log.Info("Server exited")
}
