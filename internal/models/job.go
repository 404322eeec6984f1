package models

import "time"

// Ingestion job status variants.
const (
	JobStatusPending             = "pending"
	JobStatusRunning             = "running"
	JobStatusCompleted           = "completed"
	JobStatusCompletedWithErrors = "completed_with_errors"
	JobStatusFailed              = "failed"
)

// IngestionJob is the observability row written by the loader for every
// pipeline or backfill run.
type IngestionJob struct {
	ID               string     `json:"id"` // uuid
	Domain           string     `json:"domain"`
	Status           string     `json:"status"`
	DryRun           bool       `json:"dry_run"`
	RecordsProcessed int        `json:"records_processed"`
	RecordsCreated   int        `json:"records_created"`
	RecordsUpdated   int        `json:"records_updated"`
	Errors           []string   `json:"errors,omitempty"`
	StartedAt        time.Time  `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// RunFailure is one failed document in a run summary. Summaries keep at
// most the first 50.
type RunFailure struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

// RunSummary is the per-run JSON written as pipeline_results_{timestamp}.json.
type RunSummary struct {
	Source     string       `json:"source"`
	Job        string       `json:"job"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Discovered int          `json:"discovered"`
	Processed  int          `json:"processed"`
	Successful int          `json:"successful"`
	Skipped    int          `json:"skipped"`
	Failures   []RunFailure `json:"failures"`
}

// BackfillSummary is written as backfill_summary.json after a historical sweep.
type BackfillSummary struct {
	Sources      []string     `json:"sources"`
	YearFrom     int          `json:"year_from,omitempty"`
	YearTo       int          `json:"year_to,omitempty"`
	Discovered   int          `json:"discovered"`
	QueuedUnique int          `json:"queued_unique"`
	Processed    int          `json:"processed"`
	Successful   int          `json:"successful"`
	Skipped      int          `json:"skipped"`
	Failures     []RunFailure `json:"failures"`
	StartedAt    time.Time    `json:"started_at"`
	FinishedAt   time.Time    `json:"finished_at"`
	Concurrency  int          `json:"concurrency"`
}
