// cmd/ratesync/main.go

// ratesync refreshes persisted exchange rate snapshots for the supported
// currency bases and prunes snapshots older than the retention window.
// Intended to run on a schedule (e.g. cron); the API service itself never
// needs it to function, since rate resolution falls back to the static table.
package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"storefront-wallet/internal/config"
	"storefront-wallet/internal/currency"
	"storefront-wallet/internal/repository/postgres"
	"storefront-wallet/internal/util"
	"storefront-wallet/pkg/db"
)

func main() {
	var (
		base      = flag.String("base", "", "refresh a single base currency instead of all supported ones")
		pruneDays = flag.Int("prune-days", 7, "delete rate snapshots older than this many days (0 disables pruning)")
		dryRun    = flag.Bool("dry-run", false, "report what pruning would delete without deleting")
	)
	flag.Parse()

	util.InitLogger()
	logger := util.GetLogger()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	database, err := db.NewPostgresDB(cfg.DB)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	rateRepo := postgres.NewRateRepository(database)
	provider := currency.NewHTTPProvider(cfg.Currency.APIURL, cfg.Currency.FetchTimeout)
	resolver := currency.NewResolver(
		provider,
		rateRepo,
		database,
		true, // fetch regardless of the API service's flag
		cfg.Currency.FetchTimeout,
		cfg.Currency.CacheTTL,
		nil,
		logger,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	bases := currency.Supported()
	if *base != "" {
		bases = []string{strings.ToUpper(*base)}
	}

	refreshed := 0
	for _, b := range bases {
		rates, err := resolver.Refresh(ctx, b)
		if err != nil {
			logger.Warn("Failed to refresh rates", "base", b, "error", err)
			continue
		}
		logger.Info("Refreshed rates", "base", b, "targets", len(rates))
		refreshed++
	}
	logger.Info("Rate refresh complete", "refreshed", refreshed, "requested", len(bases))

	if *pruneDays <= 0 {
		return
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -*pruneDays)

	if *dryRun {
		count, err := rateRepo.CountOlderThan(ctx, database, cutoff)
		if err != nil {
			logger.Error("Failed to count stale rate snapshots", "error", err)
			os.Exit(1)
		}
		logger.Info("Dry run: stale rate snapshots", "count", count, "older_than_days", *pruneDays)
		return
	}

	deleted, err := rateRepo.DeleteOlderThan(ctx, database, cutoff)
	if err != nil {
		logger.Error("Failed to prune stale rate snapshots", "error", err)
		os.Exit(1)
	}
	logger.Info("Pruned stale rate snapshots", "deleted", deleted, "older_than_days", *pruneDays)
}
