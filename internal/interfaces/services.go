package interfaces

import (
	"context"
	"time"

	"github.com/openkenya/hazina/internal/models"
)

// Extractor turns a downloaded artifact into text pages and tables with a
// confidence score. Implementations never return an error for unextractable
// content; they degrade confidence to 0 and return empty pages.
type Extractor interface {
	Extract(ctx context.Context, filePath string) (*models.ExtractionResult, error)
}

// Parser consumes an extraction plus document metadata and produces
// normalized records. Parsers never write to the database and never raise
// for malformed input.
type Parser interface {
	Name() string
	Parse(ctx context.Context, extraction *models.ExtractionResult, doc *models.SourceDocument) []models.Record
}

// LoadResult reports what a document load changed.
type LoadResult struct {
	DocumentID int64
	Created    int
	Updated    int
	Skipped    int
}

// Loader persists a document, its raw extraction pages and its records in
// one transaction. It is the only component that touches the database.
type Loader interface {
	LoadDocument(ctx context.Context, doc *models.SourceDocument, extraction *models.ExtractionResult, records []models.Record) (LoadResult, error)
	StartJob(ctx context.Context, domain string, dryRun bool) (*models.IngestionJob, error)
	FinishJob(ctx context.Context, job *models.IngestionJob) error
}

// ScheduleDecision is one source's row in the schedule report.
type ScheduleDecision struct {
	Source        string    `json:"source"`
	ShouldRunNow  bool      `json:"should_run_now"`
	Reason        string    `json:"reason"`
	NextRun       time.Time `json:"next_run"`
	NextReason    string    `json:"next_reason"`
	CurrentPeriod string    `json:"current_period"`
}

// Scheduler answers whether a source is due, purely from the calendar.
// It never sleeps and never launches jobs itself.
type Scheduler interface {
	ShouldRun(source string, now time.Time) (bool, string)
	NextRun(source string, now time.Time) (time.Time, string)
	GenerateScheduleReport(now time.Time) []ScheduleDecision
}
