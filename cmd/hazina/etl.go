package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/openkenya/hazina/internal/services/pipeline"
)

// runEtl performs one collection pass for a single catalogue source.
// The process exits zero even when individual documents fail; those are
// counted in the summary and alerted through the notifier.
func runEtl(args []string) error {
	flags := flag.NewFlagSet("etl", flag.ExitOnError)
	deep := flags.Bool("deep", false, "crawl to the deep discovery limit instead of the light one")
	limit := flags.Int("limit", 0, "override the discovery trim limit")
	dryRun := flags.Bool("dry-run", false, "fetch and parse but never touch the database")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return fmt.Errorf("usage: hazina etl [flags] <source>")
	}
	sourceKey := flags.Arg(0)

	ctx, cancel := signalContext(context.Background())
	defer cancel()

	application, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer application.Close()

	opts := pipeline.Options{
		Deep:   *deep,
		Limit:  *limit,
		DryRun: *dryRun,
	}

	return application.Monitor.Run(ctx, "etl-"+sourceKey, func(ctx context.Context) error {
		summary, err := application.Pipeline.RunSource(ctx, sourceKey, opts)
		if err != nil {
			return err
		}
		logger.Info().
			Str("source", sourceKey).
			Int("discovered", summary.Discovered).
			Int("processed", summary.Processed).
			Int("successful", summary.Successful).
			Int("skipped", summary.Skipped).
			Int("failures", len(summary.Failures)).
			Msg("Collection run complete")
		return nil
	})
}
