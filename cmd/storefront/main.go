package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/storefront/gateway"
	"github.com/example/storefront/pkg/checkout"
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/discovery"
	"github.com/example/storefront/pkg/repository"
	"github.com/example/storefront/pkg/store"
	"go.uber.org/zap"
)

func main() {
	// Load config
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Setup logger
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Starting checkout service",
		zap.String("name", cfg.Server.Name),
		zap.Int("port", cfg.Server.Port))

	// System of record
	mysqlStore, err := store.NewMySQL(&cfg.MySQL)
	if err != nil {
		logger.Fatal("Failed to connect to MySQL", zap.Error(err))
	}

	// Side channels
	redisRepo := repository.NewRedisRepository(&cfg.Redis)
	defer redisRepo.Close()

	mongoRepo, err := repository.NewMongoRepository(&cfg.MongoDB)
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}

	ctx := context.Background()
	if err := redisRepo.Ping(ctx); err != nil {
		logger.Warn("Redis connection failed", zap.Error(err))
	} else {
		logger.Info("Redis connected successfully")
	}

	svc := checkout.NewService(mysqlStore, redisRepo, mongoRepo, logger, &cfg.Checkout)

	// Connect to etcd for service discovery
	sd, err := discovery.NewServiceDiscovery(&cfg.Etcd)
	if err != nil {
		logger.Fatal("Failed to connect to etcd", zap.Error(err))
	}
	defer sd.Close()

	instance := &discovery.ServiceInstance{
		Name: cfg.Server.Name,
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	}
	if err := sd.Register(ctx, instance); err != nil {
		logger.Fatal("Failed to register service", zap.Error(err))
	}
	logger.Info("Service registered in etcd",
		zap.String("name", cfg.Server.Name),
		zap.String("address", instance.Addr()))

	gw := gateway.NewGateway(cfg, logger, svc)
	gw.SetupRoutes()

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		if err := gw.Start(); err != nil {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("Received shutdown signal")
	case err := <-serverErr:
		logger.Fatal("Server error", zap.Error(err))
	}

	// Deregister service
	if err := sd.Deregister(ctx, instance); err != nil {
		logger.Error("Failed to deregister service", zap.Error(err))
	}

	if err := mongoRepo.Close(ctx); err != nil {
		logger.Error("Failed to close MongoDB connection", zap.Error(err))
	}

	logger.Info("Service stopped")
}
