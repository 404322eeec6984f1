package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/openkenya/hazina/internal/services/registry"
	"github.com/openkenya/hazina/internal/services/scheduler"
)

// runSchedule prints the calendar decision for every catalogued source.
// It builds only the registry and the scheduler, no database, so it works
// on a fresh checkout before anything is deployed.
func runSchedule(args []string) error {
	flags := flag.NewFlagSet("schedule", flag.ExitOnError)
	if err := flags.Parse(args); err != nil {
		return err
	}

	reg, err := registry.NewService(config.Registry.Path, logger)
	if err != nil {
		return fmt.Errorf("failed to load source registry: %w", err)
	}
	sched := scheduler.NewService(reg.Keys(), logger)

	now := time.Now().UTC()
	report := sched.GenerateScheduleReport(now)

	fmt.Printf("Schedule report for %s\n\n", now.Format("2006-01-02 15:04 MST"))
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tDUE\tREASON\tNEXT RUN\tPERIOD")
	for _, decision := range report {
		nextRun := "-"
		if !decision.NextRun.IsZero() {
			nextRun = decision.NextRun.Format("2006-01-02")
		}
		fmt.Fprintf(w, "%s\t%t\t%s\t%s\t%s\n",
			decision.Source,
			decision.ShouldRunNow,
			decision.Reason,
			nextRun,
			decision.CurrentPeriod,
		)
	}
	return w.Flush()
}
