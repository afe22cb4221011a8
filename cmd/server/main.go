package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Kilat-Pet-Delivery/service-navigation/internal/application"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/backend"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/config"
	navigationEvents "github.com/Kilat-Pet-Delivery/service-navigation/internal/events"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/handler"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/notify"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/platform/cache"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/platform/database"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/platform/health"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/platform/kafka"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/platform/logger"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/platform/middleware"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/repository"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, "service-navigation")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting service-navigation",
		zap.String("port", cfg.Port),
		zap.String("backend", cfg.BackendConfig.BaseURL),
	)

	// Connect to database
	dbConfig := database.PostgresConfig{
		Host:     cfg.DBConfig.Host,
		Port:     cfg.DBConfig.Port,
		User:     cfg.DBConfig.User,
		Password: cfg.DBConfig.Password,
		DBName:   cfg.DBConfig.DBName,
		SSLMode:  cfg.DBConfig.SSLMode,
	}
	db, err := database.Connect(dbConfig, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	if err := db.AutoMigrate(&repository.SavedRouteModel{}, &repository.SavedStopModel{}); err != nil {
		log.Fatal("failed to run auto-migration", zap.Error(err))
	}
	log.Info("database migration completed")

	// Connect to redis for session snapshots
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	redisClient, err := cache.Connect(ctx, cfg.RedisConfig, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer func() { _ = redisClient.Close() }()

	// Initialize Kafka producer
	kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
	defer func() { _ = kafkaProducer.Close() }()

	// Initialize repositories and adapters
	savedRouteRepo := repository.NewGormSavedRouteRepository(db)
	snapshotStore := repository.NewRedisSnapshotStore(redisClient, cfg.SnapshotTTL)
	trafficClient := backend.NewTrafficClient(cfg.BackendConfig, log)
	hub := notify.NewHub(log)

	// Initialize application services
	sessionService := application.NewSessionService(
		snapshotStore,
		trafficClient,
		hub,
		hub,
		kafkaProducer,
		cfg.Navigation,
		log,
	)
	defer sessionService.Close()

	savedRouteService := application.NewSavedRouteService(savedRouteRepo, sessionService, log)

	// Initialize and start route event consumer in a goroutine
	groupID := cfg.KafkaConfig.GroupPrefix + "navigation-service"
	routeConsumer := navigationEvents.NewRouteEventConsumer(
		cfg.KafkaConfig.Brokers,
		groupID,
		sessionService,
		log,
	)
	defer func() { _ = routeConsumer.Close() }()

	go func() {
		log.Info("starting route event consumer")
		if err := routeConsumer.Start(ctx); err != nil && err != context.Canceled {
			log.Error("route event consumer error", zap.Error(err))
		}
	}()

	// Initialize HTTP handlers
	sessionHandler := handler.NewSessionHandler(sessionService, hub, log)
	routeHandler := handler.NewRouteHandler(savedRouteService)
	adminSessionHandler := handler.NewAdminSessionHandler(sessionService)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health check routes
	healthHandler := health.NewHandler(db, "service-navigation")
	healthHandler.AddChecker("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	healthHandler.RegisterRoutes(router)

	// Register routes
	sessionHandler.RegisterRoutes(&router.RouterGroup)
	routeHandler.RegisterRoutes(&router.RouterGroup)
	adminSessionHandler.RegisterRoutes(&router.RouterGroup)

	// Create HTTP server. WriteTimeout stays zero so websocket streams are
	// not cut off.
	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down service-navigation...")

	// Cancel the consumer context
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info("service-navigation stopped")
}
