package main

import (
	"context"
	"flag"
	"strings"

	"github.com/openkenya/hazina/internal/services/backfill"
)

// runBackfill sweeps historical documents across the catalogue. Zero-value
// flags fall back to the configured backfill defaults.
func runBackfill(args []string) error {
	flags := flag.NewFlagSet("backfill", flag.ExitOnError)
	sources := flags.String("sources", "", "comma-separated source keys (empty sweeps all enabled sources)")
	yearFrom := flags.Int("year-from", 0, "keep documents from this fiscal year onwards")
	yearTo := flags.Int("year-to", 0, "keep documents up to this fiscal year")
	concurrency := flags.Int("concurrency", 0, "documents in flight at once")
	dryRun := flags.Bool("dry-run", false, "fetch and parse but never touch the database")
	if err := flags.Parse(args); err != nil {
		return err
	}

	opts := backfill.Options{
		YearFrom:    *yearFrom,
		YearTo:      *yearTo,
		Concurrency: *concurrency,
		DryRun:      *dryRun,
	}
	for _, key := range strings.Split(*sources, ",") {
		if key = strings.TrimSpace(key); key != "" {
			opts.Sources = append(opts.Sources, key)
		}
	}

	ctx, cancel := signalContext(context.Background())
	defer cancel()

	application, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer application.Close()

	return application.Monitor.Run(ctx, "backfill", func(ctx context.Context) error {
		summary, err := application.Backfill.Run(ctx, opts)
		if err != nil {
			return err
		}
		logger.Info().
			Strs("sources", summary.Sources).
			Int("discovered", summary.Discovered).
			Int("queued_unique", summary.QueuedUnique).
			Int("processed", summary.Processed).
			Int("successful", summary.Successful).
			Int("skipped", summary.Skipped).
			Int("failures", len(summary.Failures)).
			Msg("Backfill sweep complete")
		return nil
	})
}
