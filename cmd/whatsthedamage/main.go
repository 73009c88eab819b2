package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"whatsthedamage/internal/cache"
	"whatsthedamage/internal/config"
	"whatsthedamage/internal/csvio"
	"whatsthedamage/internal/enrich"
	"whatsthedamage/internal/exclusion"
	"whatsthedamage/internal/export"
	"whatsthedamage/internal/services"
	"whatsthedamage/internal/stats"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	var (
		filePath  = flag.String("file", "", "CSV export to process (required)")
		rulesPath = flag.String("rules", "", "processing rules file (default from RULES_PATH)")
		startDate = flag.String("start", "", "start of an inclusive date range, in the rules date format")
		endDate   = flag.String("end", "", "end of an inclusive date range, in the rules date format")
		category  = flag.String("filter", "", "show only this category")
		outputCSV = flag.String("output", "", "write the summary as CSV to this file instead of printing a table")
		verbose   = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if *filePath == "" {
		fmt.Fprintln(os.Stderr, "missing required -file flag")
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fatal("invalid configuration", err)
	}
	if *rulesPath != "" {
		cfg.RulesPath = *rulesPath
	}

	rules, err := config.LoadRules(cfg.RulesPath)
	if err != nil {
		fatal("load processing rules", err)
	}

	matcher, err := enrich.NewPatternMatcher(rules.Patterns)
	if err != nil {
		fatal("compile category patterns", err)
	}
	var categorizer enrich.Categorizer = matcher
	if cfg.ClassifierEndpoint != "" {
		categorizer = enrich.NewClassifier(cfg.ClassifierEndpoint)
	}

	var store cache.ResultCache
	if cfg.CacheBackend == "sqlite" {
		sqliteCache, err := cache.NewSQLiteCache(cfg.SQLiteCachePath)
		if err != nil {
			fatal("open result cache", err)
		}
		defer sqliteCache.Close()
		store = sqliteCache
	} else {
		store = cache.NewMemoryCache()
	}

	engine := stats.NewEngine(
		exclusion.NewRegistry(rules.Exclusions),
		stats.WithExpenseFilter(rules.ExpensesOnly()),
	)
	processing := services.NewProcessingService(rules, enrich.New(categorizer), engine)
	results := services.NewResultService(store, processing, cfg.CacheTTL)

	ctx := context.Background()

	rows, err := csvio.NewReader(rules.CSV).ReadFile(*filePath)
	if err != nil {
		fatal("read csv", err)
	}

	result, err := processing.Process(ctx, rows, services.ProcessOptions{
		StartDate:      *startDate,
		EndDate:        *endDate,
		CategoryFilter: *category,
	})
	if err != nil {
		fatal("process rows", err)
	}

	if err := results.Store(ctx, result); err != nil {
		fatal("store result", err)
	}

	cached := result.CachedResult()
	if *outputCSV != "" {
		f, err := os.Create(*outputCSV)
		if err != nil {
			fatal("create output file", err)
		}
		defer f.Close()
		if err := export.WriteCSV(f, cached); err != nil {
			fatal("write csv summary", err)
		}
	} else {
		fmt.Print(export.FormatText(cached))
	}

	fmt.Printf("\nresult id: %s\n", result.ResultID)
}

func fatal(msg string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}
