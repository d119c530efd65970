package main

import (
	"fmt"
	"os"

	"ledgerd/internal/config"
	"ledgerd/internal/database"
	"ledgerd/internal/logger"
	"ledgerd/internal/router"
	"ledgerd/internal/validator"
)

// @title           Ledger API
// @version         1.0
// @description     Double-entry transaction ledger: balanced transaction groups, confirmation workflow and funding-source tracking.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := logger.SetLevel(appConfig.LogLevel); err != nil {
		return err
	}
	if appConfig.AdminAPIKey == "" {
		log.Warn("ADMIN_API_KEY is not set; admin routes will refuse every request")
	}

	// Create database manager
	dbManager, err := database.NewManager(database.NewConfig(appConfig), logger.Named("db"))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnf("failed to close database: %v", err)
		}
	}()

	// Run migrations
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	validator.Register()

	svc := router.NewServices(dbManager.DB(), appConfig, log)
	engine := router.New(appConfig, svc, log)

	log.Infof("Starting ledger server on port %s", appConfig.Port)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
	return engine.Run(":" + appConfig.Port)
}
