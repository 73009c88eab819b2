package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"whatsthedamage/internal/amqp"
	"whatsthedamage/internal/cache"
	"whatsthedamage/internal/config"
	"whatsthedamage/internal/csvio"
	"whatsthedamage/internal/enrich"
	"whatsthedamage/internal/exclusion"
	"whatsthedamage/internal/export"
	gsheet "whatsthedamage/internal/export/google"
	"whatsthedamage/internal/services"
	"whatsthedamage/internal/stats"
	"whatsthedamage/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting whatsthedamage-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	rules, err := config.LoadRules(cfg.RulesPath)
	if err != nil {
		logger.Error("Failed to load processing rules", "error", err, "path", cfg.RulesPath)
		os.Exit(1)
	}

	matcher, err := enrich.NewPatternMatcher(rules.Patterns)
	if err != nil {
		logger.Error("Failed to compile category patterns", "error", err)
		os.Exit(1)
	}
	var categorizer enrich.Categorizer = matcher
	if cfg.ClassifierEndpoint != "" {
		categorizer = enrich.NewClassifier(cfg.ClassifierEndpoint)
		logger.Info("Using external classifier", "endpoint", cfg.ClassifierEndpoint)
	}

	// Result store: sqlite shares results with other processes, memory is
	// per-process.
	var store cache.ResultCache
	var cleaner cache.Cleaner
	switch cfg.CacheBackend {
	case "sqlite":
		sqliteCache, err := cache.NewSQLiteCache(cfg.SQLiteCachePath)
		if err != nil {
			logger.Error("Failed to open result cache", "error", err, "path", cfg.SQLiteCachePath)
			os.Exit(1)
		}
		defer sqliteCache.Close()
		store, cleaner = sqliteCache, sqliteCache
	default:
		memCache := cache.NewMemoryCache()
		store, cleaner = memCache, memCache
	}

	manager := cache.NewManager()
	manager.Register(cleaner)
	manager.StartCleanup(cfg.CleanupInterval)
	defer manager.Stop()

	var summaryWriter export.SummaryWriter
	if cfg.SheetsConfigured() {
		sheetsClient, err := gsheet.New(context.Background(), cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, cfg.GoogleCredentialsFile)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		summaryWriter = sheetsClient
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	engine := stats.NewEngine(
		exclusion.NewRegistry(rules.Exclusions),
		stats.WithExpenseFilter(rules.ExpensesOnly()),
	)
	processing := services.NewProcessingService(rules, enrich.New(categorizer), engine)
	results := services.NewResultService(store, processing, cfg.CacheTTL)
	processWorker := worker.NewProcessWorker(csvio.NewReader(rules.CSV), processing, results, summaryWriter)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// One-shot batch mode: process a directory of CSV files and exit.
	if cfg.BatchDir != "" {
		resultIDs, err := processWorker.ProcessDirectory(ctx, cfg.BatchDir, cfg.BatchConcurrency)
		if err != nil {
			logger.Error("Batch processing failed", "error", err, "dir", cfg.BatchDir)
			os.Exit(1)
		}
		for path, id := range resultIDs {
			logger.Info("Batch file processed", "file", path, "result_id", id)
		}
		return
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	go func() {
		handler := func(msg *amqp.ProcessRequestMessage) error {
			return processWorker.HandleProcessRequest(ctx, msg)
		}
		if err := amqpClient.ConsumeProcessRequests(ctx, handler); err != nil {
			if err != context.Canceled {
				logger.Error("Message consumption failed", "error", err)
			}
			cancel()
		}
	}()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	logger.Info("Shutting down worker...")
	cancel()

	// Give the in-flight request a moment to finish
	time.Sleep(5 * time.Second)
	logger.Info("Worker shutdown complete")
}
