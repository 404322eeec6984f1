package main

import (
	"context"
	"flag"
	"fmt"
)

// runSeed loads one kind of reference data into the store.
func runSeed(args []string) error {
	flags := flag.NewFlagSet("seed", flag.ExitOnError)
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return fmt.Errorf("usage: hazina seed <counties|ministries|minimums>")
	}
	kind := flags.Arg(0)

	ctx, cancel := signalContext(context.Background())
	defer cancel()

	application, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer application.Close()

	result, err := application.Seeder.Seed(ctx, kind)
	if err != nil {
		return err
	}
	logger.Info().
		Str("kind", result.Kind).
		Int("ensured", result.Ensured).
		Int("written", result.Written).
		Int("unchanged", result.Unchanged).
		Msg("Seed pass complete")
	return nil
}
