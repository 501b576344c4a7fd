package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"leafscan/internal/bot"
	"leafscan/internal/config"
	"leafscan/internal/handlers"
	"leafscan/internal/middleware"
	"leafscan/internal/services"
)

func main() {
	// Initialize logger
	logger, level, err := initLogger()
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig(logger)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logger.Warn("Invalid log level, keeping info", zap.String("log_level", cfg.LogLevel))
	}

	// Initialize report service
	reportService := services.NewReportService(cfg, logger)

	// A missing endpoint or token fails every detection request, not startup
	if err := reportService.Ready(); err != nil {
		logger.Warn("Detection service is not configured", zap.Error(err))
	}

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(reportService)
	reportHandler := handlers.NewReportHandler(reportService)
	serviceHandler := handlers.NewServiceHandler(cfg.Client())
	statsHandler := handlers.NewStatsHandler(reportService)

	// Initialize middlewares
	authMiddleware := middleware.NewAuthMiddleware(cfg.APIKey)
	loggerMiddleware := middleware.NewLoggerMiddleware(logger)
	recoveryMiddleware := middleware.NewRecoveryMiddleware(logger)
	corsMiddleware := middleware.NewCORSMiddleware(cfg.CORSOrigins)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(
		logger,
		cfg.RateLimitPerMinute,
		5,         // burst
		time.Hour, // forget idle clients
	)

	// Set Gin to release mode
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router
	router := gin.New()
	router.MaxMultipartMemory = cfg.MaxFileSizeBytes()
	router.SetHTMLTemplate(handlers.Templates())

	// Apply global middlewares
	router.Use(loggerMiddleware.RequestLogger())
	router.Use(recoveryMiddleware.RecoveryWithZap())
	router.Use(corsMiddleware.SetupCORS())

	// Browser front-end
	router.GET("/", reportHandler.Index)
	router.POST("/report", rateLimitMiddleware.RateLimit(), reportHandler.Report)

	// Health, readiness and metrics endpoints (no auth required)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/stats", statsHandler.GetStats)

	// Protected endpoints (auth required)
	protected := router.Group("/api/v1")
	protected.Use(authMiddleware.AuthRequired())
	{
		protected.POST("/detect", rateLimitMiddleware.RateLimit(), reportHandler.Detect)
		protected.GET("/service", serviceHandler.GetService)
	}

	// Create HTTP server
	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Telegram front-end is optional
	if cfg.TelegramToken != "" {
		telegramBot, err := bot.NewBot(cfg.TelegramToken, reportService, cfg.MaxFileSizeBytes(), logger)
		if err != nil {
			logger.Fatal("Failed to start Telegram bot", zap.Error(err))
		}
		go func() {
			if err := telegramBot.Run(ctx); err != nil {
				logger.Error("Telegram bot stopped", zap.Error(err))
			}
		}()
	}

	// Run server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")
	stop()

	// Create a deadline for graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown the server gracefully
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	} else {
		logger.Info("Server exited gracefully")
	}
}

// initLogger initializes the logger with proper configuration
func initLogger() (*zap.Logger, zap.AtomicLevel, error) {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)

	logger, err := config.Build()
	return logger, config.Level, err
}
