//go:build ignore

package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kurniadi/uw-tracker-backend/config"
	"github.com/kurniadi/uw-tracker-backend/database"
	"github.com/kurniadi/uw-tracker-backend/services"
	"github.com/kurniadi/uw-tracker-backend/shared"
)

func main() {
	fmt.Printf("🏥 UW Tracker Health Check - %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Println(strings.Repeat("=", 50))

	cfg := config.LoadConfig()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	healthScore := 0
	totalTests := 4

	// Test 1: Document store connectivity
	fmt.Print("🗄️  Document store: ")
	store, err := database.Connect(cfg.MongoURL, cfg.DBName)
	if err != nil {
		fmt.Printf("❌ FAILED (%v)\n", err)
	} else {
		fmt.Println("✅ OK")
		healthScore++
		defer store.Close()
	}

	// Test 2: Grouped record listing
	fmt.Print("📋 Record listing: ")
	if store == nil {
		fmt.Println("⏭️  SKIPPED (no store)")
	} else {
		recordService := services.NewRecordService(store, shared.NewOperationMetrics(), 0)
		if result, err := recordService.List(ctx, "", 5, 0); err != nil {
			fmt.Printf("❌ FAILED (%v)\n", err)
		} else {
			fmt.Printf("✅ OK (%d of %d records)\n", result.Count, result.Total)
			healthScore++
		}
	}

	// Test 3: Statistics aggregation
	fmt.Print("📊 Statistics: ")
	if store == nil {
		fmt.Println("⏭️  SKIPPED (no store)")
	} else {
		recordService := services.NewRecordService(store, shared.NewOperationMetrics(), 0)
		if stats, err := recordService.Stats(ctx); err != nil {
			fmt.Printf("❌ FAILED (%v)\n", err)
		} else {
			fmt.Printf("✅ OK (%d stocks, %d underwriters)\n", stats.TotalRecords, stats.TotalUW)
			healthScore++
		}
	}

	// Test 4: Market data provider
	fmt.Print("📈 Market data: ")
	if cfg.AlphaVantageAPIKey == "" {
		fmt.Println("⏭️  SKIPPED (no API key)")
	} else {
		marketService := services.NewMarketDataService(cfg.AlphaVantageAPIKey, nil, shared.NewOperationMetrics())
		if series, err := marketService.GetDailySeries(ctx, "BBCA"); err != nil {
			fmt.Printf("❌ FAILED (%v)\n", err)
		} else {
			fmt.Printf("✅ OK (%d bars)\n", len(series.Points))
			healthScore++
		}
	}

	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Health score: %d/%d\n", healthScore, totalTests)
}
