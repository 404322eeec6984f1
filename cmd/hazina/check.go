package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
)

// runCheck prints row counts per table and the most recently fetched
// document, the quick look an operator takes after a run.
func runCheck(args []string) error {
	flags := flag.NewFlagSet("post-ingestion-check", flag.ExitOnError)
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

	counts, err := application.Store.Counts(ctx)
	if err != nil {
		return fmt.Errorf("count tables: %w", err)
	}

	tables := make([]string, 0, len(counts))
	for table := range counts {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TABLE\tROWS")
	for _, table := range tables {
		fmt.Fprintf(w, "%s\t%d\n", table, counts[table])
	}
	if err := w.Flush(); err != nil {
		return err
	}

	latest, err := application.Store.LatestDocument(ctx)
	if err != nil {
		return fmt.Errorf("latest document: %w", err)
	}
	if latest == nil {
		fmt.Println("\nNo documents ingested yet.")
		return nil
	}
	fmt.Printf("\nLatest document:\n")
	fmt.Printf("  source:  %s\n", latest.SourceKey)
	fmt.Printf("  title:   %s\n", latest.Title)
	fmt.Printf("  url:     %s\n", latest.URL)
	fmt.Printf("  fetched: %s\n", latest.FetchedAt.Format("2006-01-02 15:04:05 MST"))
	return nil
}
