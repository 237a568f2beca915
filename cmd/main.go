package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fulfillment_service/config"
	icache "fulfillment_service/internal/cache"
	"fulfillment_service/internal/delivery"
	"fulfillment_service/internal/messaging"
	"fulfillment_service/internal/repository"
	"fulfillment_service/internal/scheduler"
	"fulfillment_service/internal/usecase"
	"fulfillment_service/pkg/cache"
	"fulfillment_service/pkg/db"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
		logger.Warnf("Invalid LOG_LEVEL '%s', using default: %s", cfg.LogLevel, logLevel.String())
	}
	logger.SetLevel(logLevel)
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.Info("Starting Fulfillment Service...")
	logger.Infof("Log level set to: %s", logLevel.String())

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("FATAL: Failed to connect to database: %v", err)
	}
	defer database.Close()
	logger.Info("Database connection established.")

	redisCache, redisClient, err := cache.NewRedisCache(cfg.RedisURL)
	if err != nil {
		logger.Fatalf("FATAL: Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	logger.Info("Redis connection established.")

	// --- Dependency Injection ---
	userRepo := repository.NewPostgresUserRepository(database, logger)
	addressRepo := repository.NewPostgresAddressRepository(database, logger)
	productRepo := repository.NewPostgresProductRepository(database, logger)
	orderRepo := repository.NewPostgresOrderRepository(database, cfg.LockTimeout, logger)
	reportRepo := repository.NewPostgresReportRepository(database, cfg.LockTimeout, logger)
	logger.Info("Repositories initialized.")

	cachedUserRepo := icache.NewCachedUserRepository(userRepo, redisCache, logger)
	cachedProductRepo := icache.NewCachedProductRepository(productRepo, redisCache, logger)
	logger.Info("Cache decorators initialized.")

	userUseCase := usecase.NewUserUseCase(cachedUserRepo, addressRepo, logger)
	productUseCase := usecase.NewProductUseCase(cachedProductRepo, logger)
	orderUseCase := usecase.NewOrderUseCase(orderRepo, cachedProductRepo, logger)
	reportUseCase := usecase.NewReportUseCase(reportRepo, 5*time.Second, logger)
	logger.Info("Use cases initialized.")

	userHandler := delivery.NewUserHandler(userUseCase, logger)
	productHandler := delivery.NewProductHandler(productUseCase, logger)
	orderHandler := delivery.NewOrderHandler(orderUseCase, logger)
	reportHandler := delivery.NewReportHandler(reportUseCase, logger)
	logger.Info("Handlers initialized.")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.EnableBroker {
		dispatcher := messaging.NewDispatcher(productUseCase, orderUseCase, logger)
		consumer := messaging.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, cfg.ProductTopic, cfg.OrderTopic, dispatcher, logger)
		defer consumer.Close()
		consumer.Run(ctx)
		logger.Infof("Broker consumer started for topics '%s' and '%s'.", cfg.ProductTopic, cfg.OrderTopic)
	}

	if cfg.EnableCron {
		sched, err := scheduler.NewScheduler(reportUseCase, logger)
		if err != nil {
			logger.Fatalf("FATAL: Failed to initialize scheduler: %v", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	router := gin.Default()
	router.RedirectTrailingSlash = false

	userHandler.RegisterRoutes(router)
	productHandler.RegisterRoutes(router)
	orderHandler.RegisterRoutes(router)
	reportHandler.RegisterRoutes(router)
	logger.Info("Routes registered.")

	// --- Start Server ---
	server := &http.Server{
		Addr:    cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Infof("Starting server on %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Server failed: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, stopping server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
	logger.Info("Fulfillment Service stopped.")
}
