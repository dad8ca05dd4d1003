// Package main imports monthly price CSVs into the price series store.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/yutaofr/clec-strategy-backtest/internal/ingestion"
	"github.com/yutaofr/clec-strategy-backtest/internal/observability"
	"github.com/yutaofr/clec-strategy-backtest/internal/storage/migrations"
	pgstore "github.com/yutaofr/clec-strategy-backtest/internal/storage/postgres"
)

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	// Parse flags (env vars as defaults)
	filePath := flag.String("file", "", "Price CSV file to import (required)")
	seriesID := flag.String("series-id", "", "Series identifier, e.g. VOO-QLD-2010 (required)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	migrate := flag.Bool("migrate", false, "Apply schema migrations before importing")
	dryRun := flag.Bool("dry-run", false, "Parse and validate only, without storing")

	flag.Parse()

	// Setup logger
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().
		Timestamp().Str("component", "ingest").Logger()

	// Validate required flags
	if *filePath == "" {
		logger.Fatal().Msg("--file is required")
	}
	if *seriesID == "" {
		logger.Fatal().Msg("--series-id is required")
	}
	if !*dryRun && *postgresDSN == "" {
		logger.Fatal().Msg("--postgres-dsn is required (use --dry-run to validate only)")
	}

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

	f, err := os.Open(*filePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("open price file")
	}
	defer f.Close()

	if *dryRun {
		rows, err := ingestion.ParseCSV(*seriesID, f)
		if err != nil {
			logger.Fatal().Err(err).Msg("validation failed")
		}
		fmt.Printf("OK: %d monthly rows, %s .. %s\n",
			len(rows), rows[0].Month.Format("2006-01"), rows[len(rows)-1].Month.Format("2006-01"))
		return
	}

	// Create store
	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to postgres")
	}
	defer pool.Close()

	if *migrate {
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			logger.Fatal().Err(err).Msg("apply migrations")
		}
	}
	store := pgstore.NewPriceSeriesStore(pool)

	importer := ingestion.NewImporter(ingestion.ImporterOptions{
		Store:  store,
		Logger: logger,
	})

	n, err := importer.ImportCSV(ctx, *seriesID, f)
	if err != nil {
		observability.DefaultMetrics.IngestionErrors.Inc()
		logger.Fatal().Err(err).Msg("import failed")
	}
	observability.RecordRowsIngested(n)

	fmt.Printf("Imported %d rows into series %s\n", n, *seriesID)
}
