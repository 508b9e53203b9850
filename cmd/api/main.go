package main

import (
	"fmt"
	"os"

	"moneta/internal/clock"
	"moneta/internal/config"
	"moneta/internal/database"
	_ "moneta/internal/docs" // Import swagger docs
	"moneta/internal/logger"
	"moneta/internal/server"
	"moneta/internal/validator"
)

// @title           Moneta API
// @version         1.0
// @description     Moneta is a personal finance ledger: accounts, transfers, period budgets with carryover, savings goals and statement reconciliation.
// @termsOfService  http://swagger.io/terms/

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbManager, err := database.NewManager(database.NewConfig(appConfig))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnf("failed to close database: %v", err)
		}
	}()

	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	validator.Register()

	router := server.NewRouter(server.Options{
		DB:                    dbManager.DB(),
		Clock:                 clock.System(),
		DefaultPeriodStartDay: appConfig.DefaultPeriodStartDay,
		ReconcileTolerance:    appConfig.ReconcileTolerance,
	})

	log.Infof("Starting Moneta server on port %s", appConfig.Port)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
