package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/openkenya/hazina/internal/app"
	"github.com/openkenya/hazina/internal/common"
	"github.com/openkenya/hazina/internal/services/pipeline"
)

// runServe runs the ingestion loop on the publication calendar. A cron
// tick consults the scheduler for every enabled source and runs the ones
// that are due; sources stay quiet outside their publication windows, so
// most ticks do nothing.
func runServe(args []string) error {
	flags := flag.NewFlagSet("serve", flag.ExitOnError)
	if err := flags.Parse(args); err != nil {
		return err
	}

	ctx, cancel := signalContext(context.Background())
	defer cancel()

	application, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer application.Close()

	c := cron.New()
	if _, err := c.AddFunc(config.Scheduler.TickSchedule, func() { tick(ctx, application) }); err != nil {
		return fmt.Errorf("invalid tick schedule %q: %w", config.Scheduler.TickSchedule, err)
	}
	c.Start()

	logger.Info().
		Str("tick_schedule", config.Scheduler.TickSchedule).
		Int("sources", application.Registry.Len()).
		Msg("Serve loop started - press Ctrl+C to stop")

	<-ctx.Done()

	logger.Info().Msg("Shutting down, waiting for the running tick to finish")
	<-c.Stop().Done()
	logger.Info().Msg("Serve loop stopped")
	return nil
}

// tick runs every due source once. A panic in one source is contained so
// a malformed publisher page cannot take the loop down.
func tick(ctx context.Context, application *app.App) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Str("stack", common.GetStackTrace()).
				Msg("Recovered from panic in scheduler tick")
		}
	}()

	now := time.Now().UTC()
	for _, source := range application.Registry.Enabled() {
		if ctx.Err() != nil {
			return
		}
		due, reason := application.Scheduler.ShouldRun(source.Key, now)
		if !due {
			logger.Debug().Str("source", source.Key).Str("reason", reason).Msg("Source not due")
			continue
		}
		logger.Info().Str("source", source.Key).Str("reason", reason).Msg("Source due, starting run")

		key := source.Key
		err := application.Monitor.Run(ctx, "etl-"+key, func(ctx context.Context) error {
			_, err := application.Pipeline.RunSource(ctx, key, pipeline.Options{})
			return err
		})
		if err != nil {
			// Already notified by the monitor; the loop moves on.
			logger.Error().Str("source", key).Err(err).Msg("Scheduled run failed")
		}
	}
}
