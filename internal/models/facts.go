package models

import "time"

// Stored fact rows. Every fact carries the owning source document and a
// provenance list; uniqueness follows the natural key noted per type.

// BudgetLine is a stored allocation/expenditure row, unique per
// (entity, fiscal period, category, subcategory).
type BudgetLine struct {
	ID               int64        `json:"id"`
	EntityID         int64        `json:"entity_id"`
	FiscalPeriodID   int64        `json:"fiscal_period_id"`
	Category         string       `json:"category"`
	Subcategory      string       `json:"subcategory,omitempty"`
	AllocatedAmount  *float64     `json:"allocated_amount,omitempty"`
	ActualSpent      *float64     `json:"actual_spent,omitempty"`
	CommittedAmount  *float64     `json:"committed_amount,omitempty"`
	Currency         string       `json:"currency"`
	SourceDocumentID int64        `json:"source_document_id"`
	Provenance       []Provenance `json:"provenance"`
}

// Audit workflow status variants.
const (
	AuditStatusOpen     = "OPEN"
	AuditStatusResolved = "RESOLVED"
)

// Audit is a stored audit finding. Status starts OPEN; resolution is an
// operator action, never set by the pipeline.
type Audit struct {
	ID                int64        `json:"id"`
	EntityID          int64        `json:"entity_id"`
	FiscalPeriodID    *int64       `json:"fiscal_period_id,omitempty"`
	Finding           string       `json:"finding"`
	Severity          string       `json:"severity"`
	Status            string       `json:"status"`
	RecommendedAction string       `json:"recommended_action,omitempty"`
	AmountInvolved    *float64     `json:"amount_involved,omitempty"`
	SourceDocumentID  int64        `json:"source_document_id"`
	Provenance        []Provenance `json:"provenance"`
}

// PopulationData is a stored population figure, unique per (entity, year).
type PopulationData struct {
	ID               int64        `json:"id"`
	EntityID         int64        `json:"entity_id"`
	Year             int          `json:"year"`
	TotalPopulation  float64      `json:"total_population"`
	MalePopulation   *float64     `json:"male_population,omitempty"`
	FemalePopulation *float64     `json:"female_population,omitempty"`
	UrbanPopulation  *float64     `json:"urban_population,omitempty"`
	RuralPopulation  *float64     `json:"rural_population,omitempty"`
	Density          *float64     `json:"density,omitempty"`
	Confidence       float64      `json:"confidence"`
	SourceDocumentID int64        `json:"source_document_id"`
	Provenance       []Provenance `json:"provenance"`
}

// GDPData is a stored GDP observation, unique per (entity, year, quarter).
// EntityID nil means national.
type GDPData struct {
	ID               int64        `json:"id"`
	EntityID         *int64       `json:"entity_id,omitempty"`
	Year             int          `json:"year"`
	Quarter          *int         `json:"quarter,omitempty"`
	GDPValue         float64      `json:"gdp_value"`
	GrowthRate       *float64     `json:"growth_rate,omitempty"`
	Currency         string       `json:"currency"`
	Confidence       float64      `json:"confidence"`
	SourceDocumentID int64        `json:"source_document_id"`
	Provenance       []Provenance `json:"provenance"`
}

// EconomicIndicator is a stored typed scalar, unique per
// (indicator type, date, entity).
type EconomicIndicator struct {
	ID               int64        `json:"id"`
	IndicatorType    string       `json:"indicator_type"`
	Date             time.Time    `json:"date"`
	EntityID         *int64       `json:"entity_id,omitempty"`
	Value            float64      `json:"value"`
	Unit             string       `json:"unit,omitempty"`
	Confidence       float64      `json:"confidence"`
	SourceDocumentID int64        `json:"source_document_id"`
	Provenance       []Provenance `json:"provenance"`
}

// PovertyIndex is a stored poverty observation, unique per (entity, year).
type PovertyIndex struct {
	ID               int64        `json:"id"`
	EntityID         int64        `json:"entity_id"`
	Year             int          `json:"year"`
	PovertyRate      *float64     `json:"poverty_rate,omitempty"`
	ExtremeRate      *float64     `json:"extreme_poverty_rate,omitempty"`
	Gini             *float64     `json:"gini_coefficient,omitempty"`
	Confidence       float64      `json:"confidence"`
	SourceDocumentID int64        `json:"source_document_id"`
	Provenance       []Provenance `json:"provenance"`
}

// Extraction is the raw per-document extractor output persisted for
// debugging and reprocessing.
type Extraction struct {
	ID               int64     `json:"id"`
	SourceDocumentID int64     `json:"source_document_id"`
	PageNumber       int       `json:"page_number"`
	Data             string    `json:"data"` // extracted JSON blob
	ExtractorName    string    `json:"extractor_name"`
	Confidence       float64   `json:"confidence"`
	CreatedAt        time.Time `json:"created_at"`
}

// EntitySummary is one row of the read side's entity listing, with
// aggregates derived from budget lines and audits.
type EntitySummary struct {
	Entity        Entity  `json:"entity"`
	AllocatedSum  float64 `json:"allocated_sum"`
	SpentSum      float64 `json:"spent_sum"`
	ExecutionRate float64 `json:"execution_rate"` // spent / allocated, 3 decimals
	AuditCount    int     `json:"audit_count"`
}

// PeriodSeries is one fiscal period's aggregate in an entity detail view.
type PeriodSeries struct {
	Period       FiscalPeriod `json:"period"`
	AllocatedSum float64      `json:"allocated_sum"`
	SpentSum     float64      `json:"spent_sum"`
	LineCount    int          `json:"line_count"`
}

// EntityDetail is the read side's single-entity view.
type EntityDetail struct {
	Entity Entity         `json:"entity"`
	Series []PeriodSeries `json:"series"`
}

// AuditFilters narrow an audit listing.
type AuditFilters struct {
	Year     int    `json:"year,omitempty"`
	Status   string `json:"status,omitempty"`
	Severity string `json:"severity,omitempty"`
}

// EconFilters narrow the year-keyed economic queries. Zero values mean
// no filter; EntityID nil means any entity including national rows.
type EconFilters struct {
	EntityID      *int64  `json:"entity_id,omitempty"`
	YearFrom      int     `json:"year_from,omitempty"`
	YearTo        int     `json:"year_to,omitempty"`
	MinConfidence float64 `json:"min_confidence,omitempty"`
	Limit         int     `json:"limit,omitempty"`
}

// IndicatorFilters narrow the date-keyed indicator query.
type IndicatorFilters struct {
	Type          string    `json:"indicator_type,omitempty"`
	EntityID      *int64    `json:"entity_id,omitempty"`
	From          time.Time `json:"from,omitempty"`
	To            time.Time `json:"to,omitempty"`
	MinConfidence float64   `json:"min_confidence,omitempty"`
	Limit         int       `json:"limit,omitempty"`
}

// ResolvedDocument answers resolve_document(url): where the artifact
// lives locally and in the mirror.
type ResolvedDocument struct {
	OriginalURL string                 `json:"original_url"`
	MirrorURL   string                 `json:"mirror_url,omitempty"`
	LocalPath   string                 `json:"local_path,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// StorageStatus summarizes the mirror and manifest state for operators.
type StorageStatus struct {
	ManifestEntries int            `json:"manifest_entries"`
	Documents       int            `json:"documents"`
	Mirrored        int            `json:"mirrored"`
	BySource        map[string]int `json:"by_source"`
	LatestFetch     *time.Time     `json:"latest_fetch,omitempty"`
}

// SourceStatus is one source's last-run metrics for the admin surface.
type SourceStatus struct {
	SourceKey   string        `json:"source_key"`
	Documents   int           `json:"documents"`
	LastFetched *time.Time    `json:"last_fetched,omitempty"`
	LastJob     *IngestionJob `json:"last_job,omitempty"`
}
