// Package main runs a batch of portfolio backtests from a profile file.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/yutaofr/clec-strategy-backtest/internal/ingestion"
	"github.com/yutaofr/clec-strategy-backtest/internal/orchestrator"
	"github.com/yutaofr/clec-strategy-backtest/internal/profile"
	"github.com/yutaofr/clec-strategy-backtest/internal/storage"
	chstore "github.com/yutaofr/clec-strategy-backtest/internal/storage/clickhouse"
	"github.com/yutaofr/clec-strategy-backtest/internal/storage/memory"
	"github.com/yutaofr/clec-strategy-backtest/internal/storage/migrations"
	pgstore "github.com/yutaofr/clec-strategy-backtest/internal/storage/postgres"
)

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	// Parse flags (env vars as defaults)
	profilesPath := flag.String("profiles", "", "Profile YAML file (required)")
	seriesID := flag.String("series-id", "", "Price series to backtest against (required)")
	pricesPath := flag.String("prices", "", "Price CSV to import before running (required with --use-memory)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage")
	allStrategies := flag.Bool("all-strategies", false, "Run every strategy for every profile")
	workers := flag.Int("workers", 4, "Concurrent simulation workers")
	migrate := flag.Bool("migrate", false, "Apply schema migrations before running")
	outputJSON := flag.Bool("json", false, "Output stored run summaries as JSON")
	verbose := flag.Bool("verbose", false, "Debug logging")

	flag.Parse()

	// Setup logger
	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().
		Timestamp().Str("component", "backtest").Logger()

	// Validate required flags
	if *profilesPath == "" {
		logger.Fatal().Msg("--profiles is required")
	}
	if *seriesID == "" {
		logger.Fatal().Msg("--series-id is required")
	}
	if *useMemory && *pricesPath == "" {
		logger.Fatal().Msg("--prices is required with --use-memory")
	}
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal().Msg("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	profiles, err := profile.LoadFile(*profilesPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("load profiles")
	}
	logger.Info().Int("profiles", len(profiles)).Str("series_id", *seriesID).Msg("profiles loaded")

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	}()

	// Create stores
	var (
		seriesStore  storage.PriceSeriesStore      = memory.NewPriceSeriesStore()
		runStore     storage.SimulationRunStore    = memory.NewSimulationRunStore()
		historyStore storage.PortfolioHistoryStore = memory.NewPortfolioHistoryStore()
	)
	if !*useMemory {
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect to postgres")
		}
		defer pool.Close()

		conn, err := chstore.NewConn(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect to clickhouse")
		}
		defer conn.Close()

		if *migrate {
			if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
				logger.Fatal().Err(err).Msg("apply postgres migrations")
			}
			if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
				logger.Fatal().Err(err).Msg("apply clickhouse migrations")
			}
		}

		seriesStore = pgstore.NewPriceSeriesStore(pool)
		runStore = pgstore.NewSimulationRunStore(pool)
		historyStore = chstore.NewPortfolioHistoryStore(conn)
	}

	// Import prices when asked; mandatory for in-memory runs
	if *pricesPath != "" {
		f, err := os.Open(*pricesPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("open price file")
		}
		importer := ingestion.NewImporter(ingestion.ImporterOptions{Store: seriesStore, Logger: logger})
		if _, err := importer.ImportCSV(ctx, *seriesID, f); err != nil {
			f.Close()
			logger.Fatal().Err(err).Msg("import prices")
		}
		f.Close()
	}

	// Run the batch
	orch := orchestrator.New(orchestrator.Options{
		SeriesStore:   seriesStore,
		RunStore:      runStore,
		HistoryStore:  historyStore,
		Profiles:      profiles,
		SeriesID:      *seriesID,
		AllStrategies: *allStrategies,
		Workers:       *workers,
		Logger:        logger,
	})

	result, err := orch.Run(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("batch failed")
	}

	for _, e := range result.Errors {
		logger.Warn().Msg(e)
	}

	if *outputJSON {
		records, err := runStore.GetAll(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("load stored runs")
		}
		output, _ := json.MarshalIndent(records, "", "  ")
		fmt.Println(string(output))
		return
	}

	fmt.Println()
	fmt.Println("=== Batch Result ===")
	fmt.Printf("Runs completed:     %d\n", result.RunsCompleted)
	fmt.Printf("Bankruptcies:       %d\n", result.Bankruptcies)
	fmt.Printf("Duplicates skipped: %d\n", result.DuplicatesSkipped)
	fmt.Printf("Errors:             %d\n", len(result.Errors))
	fmt.Printf("Duration:           %v\n", result.Duration)
}
