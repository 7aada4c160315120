package main

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"

	"github.com/kurniadi/uw-tracker-backend/config"
	"github.com/kurniadi/uw-tracker-backend/database"
	"github.com/kurniadi/uw-tracker-backend/handlers"
	"github.com/kurniadi/uw-tracker-backend/services"
	"github.com/kurniadi/uw-tracker-backend/shared"
)

func main() {
	// Load config
	cfg := config.LoadConfig()
	cfg.ConfigureLogging()

	// Connect to document store
	store, err := database.Connect(cfg.MongoURL, cfg.DBName)
	if err != nil {
		logrus.Fatalf("Failed to connect to document store: %v", err)
	}
	defer store.Close()

	// Ensure indexes; a failure here is survivable, uniqueness degrades to
	// best effort until the index exists
	indexCtx, indexCancel := context.WithTimeout(context.Background(), 15*time.Second)
	if err := store.EnsureIndexes(indexCtx); err != nil {
		logrus.Warnf("Index creation warning: %v", err)
	}
	indexCancel()

	// Initialize services
	metrics := shared.NewOperationMetrics()
	recordService := services.NewRecordService(store, metrics, cfg.BulkErrorLimit)
	marketService := services.NewMarketDataService(cfg.AlphaVantageAPIKey, config.DefaultMarketDataConfig(), metrics)
	importService := services.NewImportService(recordService)

	// Initialize handlers
	recordHandler := handlers.NewRecordHandler(recordService)
	marketHandler := handlers.NewMarketHandler(marketService)
	adminHandler := handlers.NewAdminHandler(importService, store, metrics, cfg.ImportFile)

	// One-shot import on startup when a seed file is configured
	if cfg.ImportFile != "" {
		go func() {
			time.Sleep(2 * time.Second) // Wait for the store to settle
			importCtx, importCancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer importCancel()

			report, err := importService.ImportFile(importCtx, cfg.ImportFile)
			if err != nil {
				logrus.WithError(err).Error("Startup import failed")
				return
			}
			logrus.WithFields(logrus.Fields{
				"file":    cfg.ImportFile,
				"success": report.Success,
				"failed":  report.Failed,
			}).Info("Startup import completed")
		}()
	}

	// Setup Fiber
	app := fiber.New()

	// Middleware
	app.Use(logger.New())
	app.Use(cors.New())

	// Health check endpoint
	app.Get("/health", adminHandler.HealthCheck)

	// Routes
	api := app.Group("/api/v1")

	// Record Routes
	api.Get("/records", recordHandler.GetRecords)
	api.Get("/records/stats", recordHandler.GetStats)
	api.Post("/records", recordHandler.CreateRecord)
	api.Post("/records/bulk", recordHandler.BulkUpload)
	api.Get("/records/:id", recordHandler.GetRecordByID)
	api.Put("/records/:id", recordHandler.UpdateRecord)
	api.Delete("/records/:id", recordHandler.DeleteRecord)

	// Market Routes
	api.Get("/stocks/daily/:symbol", marketHandler.GetDailySeries)
	api.Get("/stocks/intraday/:symbol", marketHandler.GetIntradaySeries)
	api.Get("/stocks/performance/:symbol", marketHandler.GetPerformanceChart)

	// Admin Routes
	admin := api.Group("/admin")
	// TODO: Add auth middleware
	admin.Post("/import", adminHandler.ImportFile)

	// Performance Routes
	perf := api.Group("/performance")
	perf.Get("/metrics", adminHandler.PerformanceMetrics)

	// Start server
	logrus.Infof("Server starting on port %s", cfg.ServerPort)
	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		logrus.Fatalf("Server failed to start: %v", err)
	}
}
