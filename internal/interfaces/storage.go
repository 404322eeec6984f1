package interfaces

import (
	"context"
	"time"

	"github.com/openkenya/hazina/internal/models"
)

// UpsertOutcome reports what a fact upsert did with a record.
type UpsertOutcome int

const (
	OutcomeCreated UpsertOutcome = iota
	OutcomeUpdated
	OutcomeSkipped
)

// StoreTx is the write surface available inside a per-document
// transaction. Ensure helpers find-or-create reference rows; Upsert
// helpers probe the natural key plus source document first (skip), then
// take the update path on a natural-key conflict. Provenance is written
// on insert and never overwritten.
type StoreTx interface {
	EnsureCountry(ctx context.Context, isoCode string) (*models.Country, error)
	EnsureEntity(ctx context.Context, info *models.EntityInfo, countryID int64) (*models.Entity, error)
	EnsureFiscalPeriod(ctx context.Context, info *models.FiscalPeriodInfo, countryID int64) (*models.FiscalPeriod, error)

	FindDocumentByMD5(ctx context.Context, md5 string) (*models.SourceDocument, error)
	FindDocumentByURL(ctx context.Context, url string) (*models.SourceDocument, error)
	InsertDocument(ctx context.Context, doc *models.SourceDocument) (int64, error)
	TouchDocument(ctx context.Context, id int64) error
	UpdateDocumentArtifact(ctx context.Context, id int64, md5, filePath string, fetchedAt time.Time) error
	InsertExtraction(ctx context.Context, extraction *models.Extraction) error

	UpsertBudgetLine(ctx context.Context, row *models.BudgetLine) (UpsertOutcome, error)
	UpsertAudit(ctx context.Context, row *models.Audit) (UpsertOutcome, error)
	UpsertPopulation(ctx context.Context, row *models.PopulationData) (UpsertOutcome, error)
	UpsertGDP(ctx context.Context, row *models.GDPData) (UpsertOutcome, error)
	UpsertIndicator(ctx context.Context, row *models.EconomicIndicator) (UpsertOutcome, error)
	UpsertPoverty(ctx context.Context, row *models.PovertyIndex) (UpsertOutcome, error)
	UpsertLoan(ctx context.Context, row *models.Loan) (UpsertOutcome, error)

	UpsertDebtTimeline(ctx context.Context, row *models.DebtTimeline) (UpsertOutcome, error)
	UpsertFiscalSummary(ctx context.Context, row *models.FiscalSummary) (UpsertOutcome, error)
	UpsertRevenueBySource(ctx context.Context, row *models.RevenueBySource) (UpsertOutcome, error)
}

// Store is the Postgres-backed persistence surface. The loader is the
// only writer; reads serve the query contract and the admin commands.
type Store interface {
	// WithinTx runs fn inside one transaction, committing on nil and
	// rolling back on error or panic.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx StoreTx) error) error

	// Ingestion job lifecycle.
	CreateJob(ctx context.Context, job *models.IngestionJob) error
	UpdateJob(ctx context.Context, job *models.IngestionJob) error

	// Entity queries.
	ListEntities(ctx context.Context, countryISO, entityType, search string, page, limit int) ([]models.EntitySummary, int, error)
	GetEntity(ctx context.Context, id int64) (*models.EntityDetail, error)

	// Fact queries.
	ListBudgetLines(ctx context.Context, entityID int64, periodLabel string, skip, limit int) ([]models.BudgetLine, error)
	ListAudits(ctx context.Context, entityID int64, filters models.AuditFilters, page, limit int) ([]models.Audit, int, error)
	ListLoans(ctx context.Context, entityID int64, limit int) ([]models.Loan, error)
	ListPopulation(ctx context.Context, filters models.EconFilters) ([]models.PopulationData, error)
	ListGDP(ctx context.Context, filters models.EconFilters) ([]models.GDPData, error)
	ListIndicators(ctx context.Context, filters models.IndicatorFilters) ([]models.EconomicIndicator, error)
	ListPoverty(ctx context.Context, filters models.EconFilters) ([]models.PovertyIndex, error)

	// Admin queries.
	SourceStatus(ctx context.Context) ([]models.SourceStatus, error)
	StorageStatus(ctx context.Context) (*models.StorageStatus, error)
	ResolveDocument(ctx context.Context, url string) (*models.ResolvedDocument, error)
	Counts(ctx context.Context) (map[string]int, error)
	LatestDocument(ctx context.Context) (*models.SourceDocument, error)

	Close()
}
