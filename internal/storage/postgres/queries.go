package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/openkenya/hazina/internal/models"
)

const defaultListLimit = 500

// ListEntities pages through entities for a country with optional type and
// name filters, with budget and audit aggregates per row. Page numbers
// start at 1.
func (s *Store) ListEntities(ctx context.Context, countryISO, entityType, search string, page, limit int) ([]models.EntitySummary, int, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}
	offset := (page - 1) * limit

	var total int
	err := s.db.Pool().QueryRow(ctx,
		`SELECT COUNT(*)
		 FROM entities e
		 JOIN countries c ON c.id = e.country_id
		 WHERE c.iso_code = $1
		   AND ($2 = '' OR e.type = $2)
		   AND ($3 = '' OR e.canonical_name ILIKE '%' || $3 || '%')`,
		countryISO, entityType, search).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count entities: %w", err)
	}

	rows, err := s.db.Pool().Query(ctx,
		`SELECT e.id, e.country_id, e.type, e.canonical_name, e.slug, e.alternate_names, e.metadata,
		        COALESCE(b.allocated_sum, 0), COALESCE(b.spent_sum, 0), COALESCE(a.audit_count, 0)
		 FROM entities e
		 JOIN countries c ON c.id = e.country_id
		 LEFT JOIN (
		     SELECT entity_id,
		            SUM(COALESCE(allocated_amount, 0)) AS allocated_sum,
		            SUM(COALESCE(actual_spent, 0)) AS spent_sum
		     FROM budget_lines GROUP BY entity_id
		 ) b ON b.entity_id = e.id
		 LEFT JOIN (
		     SELECT entity_id, COUNT(*) AS audit_count FROM audits GROUP BY entity_id
		 ) a ON a.entity_id = e.id
		 WHERE c.iso_code = $1
		   AND ($2 = '' OR e.type = $2)
		   AND ($3 = '' OR e.canonical_name ILIKE '%' || $3 || '%')
		 ORDER BY e.canonical_name
		 LIMIT $4 OFFSET $5`,
		countryISO, entityType, search, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list entities: %w", err)
	}
	defer rows.Close()

	var summaries []models.EntitySummary
	for rows.Next() {
		var summary models.EntitySummary
		var alternates, metadata []byte
		if err := rows.Scan(&summary.Entity.ID, &summary.Entity.CountryID, &summary.Entity.Type,
			&summary.Entity.CanonicalName, &summary.Entity.Slug, &alternates, &metadata,
			&summary.AllocatedSum, &summary.SpentSum, &summary.AuditCount); err != nil {
			return nil, 0, fmt.Errorf("scan entity summary: %w", err)
		}
		if err := unmarshalJSON(alternates, &summary.Entity.AlternateNames); err != nil {
			return nil, 0, err
		}
		if err := unmarshalJSON(metadata, &summary.Entity.Metadata); err != nil {
			return nil, 0, err
		}
		if summary.AllocatedSum > 0 {
			summary.ExecutionRate = models.Round3(summary.SpentSum / summary.AllocatedSum)
		}
		summaries = append(summaries, summary)
	}
	return summaries, total, rows.Err()
}

// GetEntity returns one entity with its per-period budget series, or nil
// when the id is unknown.
func (s *Store) GetEntity(ctx context.Context, id int64) (*models.EntityDetail, error) {
	detail := &models.EntityDetail{}
	var alternates, metadata []byte
	err := s.db.Pool().QueryRow(ctx,
		`SELECT id, country_id, type, canonical_name, slug, alternate_names, metadata
		 FROM entities WHERE id = $1`, id).
		Scan(&detail.Entity.ID, &detail.Entity.CountryID, &detail.Entity.Type,
			&detail.Entity.CanonicalName, &detail.Entity.Slug, &alternates, &metadata)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entity %d: %w", id, err)
	}
	if err := unmarshalJSON(alternates, &detail.Entity.AlternateNames); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(metadata, &detail.Entity.Metadata); err != nil {
		return nil, err
	}

	rows, err := s.db.Pool().Query(ctx,
		`SELECT fp.id, fp.country_id, fp.label, fp.start_date, fp.end_date,
		        SUM(COALESCE(bl.allocated_amount, 0)), SUM(COALESCE(bl.actual_spent, 0)), COUNT(*)
		 FROM budget_lines bl
		 JOIN fiscal_periods fp ON fp.id = bl.fiscal_period_id
		 WHERE bl.entity_id = $1
		 GROUP BY fp.id, fp.country_id, fp.label, fp.start_date, fp.end_date
		 ORDER BY fp.start_date`,
		id)
	if err != nil {
		return nil, fmt.Errorf("get entity series %d: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var series models.PeriodSeries
		if err := rows.Scan(&series.Period.ID, &series.Period.CountryID, &series.Period.Label,
			&series.Period.StartDate, &series.Period.EndDate,
			&series.AllocatedSum, &series.SpentSum, &series.LineCount); err != nil {
			return nil, fmt.Errorf("scan entity series: %w", err)
		}
		detail.Series = append(detail.Series, series)
	}
	return detail, rows.Err()
}

// ListBudgetLines returns an entity's budget lines, optionally narrowed to
// one fiscal period label. Entity id 0 lists across entities.
func (s *Store) ListBudgetLines(ctx context.Context, entityID int64, periodLabel string, skip, limit int) ([]models.BudgetLine, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.Pool().Query(ctx,
		`SELECT bl.id, bl.entity_id, bl.fiscal_period_id, bl.category, bl.subcategory,
		        bl.allocated_amount, bl.actual_spent, bl.committed_amount, bl.currency,
		        bl.source_document_id, bl.provenance
		 FROM budget_lines bl
		 JOIN fiscal_periods fp ON fp.id = bl.fiscal_period_id
		 WHERE ($1 = 0 OR bl.entity_id = $1)
		   AND ($2 = '' OR fp.label = $2)
		 ORDER BY fp.start_date DESC, bl.category, bl.subcategory
		 OFFSET $3 LIMIT $4`,
		entityID, periodLabel, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("list budget lines: %w", err)
	}
	defer rows.Close()

	var lines []models.BudgetLine
	for rows.Next() {
		var line models.BudgetLine
		var provenance []byte
		if err := rows.Scan(&line.ID, &line.EntityID, &line.FiscalPeriodID, &line.Category,
			&line.Subcategory, &line.AllocatedAmount, &line.ActualSpent, &line.CommittedAmount,
			&line.Currency, &line.SourceDocumentID, &provenance); err != nil {
			return nil, fmt.Errorf("scan budget line: %w", err)
		}
		if err := unmarshalJSON(provenance, &line.Provenance); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// ListAudits pages through audit findings with optional year, status and
// severity filters. Year matches the fiscal period's start year.
func (s *Store) ListAudits(ctx context.Context, entityID int64, filters models.AuditFilters, page, limit int) ([]models.Audit, int, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}
	offset := (page - 1) * limit

	const whereClause = `
		 FROM audits a
		 LEFT JOIN fiscal_periods fp ON fp.id = a.fiscal_period_id
		 WHERE ($1 = 0 OR a.entity_id = $1)
		   AND ($2 = 0 OR EXTRACT(YEAR FROM fp.start_date) = $2)
		   AND ($3 = '' OR a.status = $3)
		   AND ($4 = '' OR a.severity = $4)`

	var total int
	err := s.db.Pool().QueryRow(ctx, `SELECT COUNT(*)`+whereClause,
		entityID, filters.Year, filters.Status, filters.Severity).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count audits: %w", err)
	}

	rows, err := s.db.Pool().Query(ctx,
		`SELECT a.id, a.entity_id, a.fiscal_period_id, a.finding, a.severity, a.status,
		        a.recommended_action, a.amount_involved, a.source_document_id, a.provenance`+
			whereClause+`
		 ORDER BY a.id DESC
		 LIMIT $5 OFFSET $6`,
		entityID, filters.Year, filters.Status, filters.Severity, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list audits: %w", err)
	}
	defer rows.Close()

	var audits []models.Audit
	for rows.Next() {
		var audit models.Audit
		var provenance []byte
		if err := rows.Scan(&audit.ID, &audit.EntityID, &audit.FiscalPeriodID, &audit.Finding,
			&audit.Severity, &audit.Status, &audit.RecommendedAction, &audit.AmountInvolved,
			&audit.SourceDocumentID, &provenance); err != nil {
			return nil, 0, fmt.Errorf("scan audit: %w", err)
		}
		if err := unmarshalJSON(provenance, &audit.Provenance); err != nil {
			return nil, 0, err
		}
		audits = append(audits, audit)
	}
	return audits, total, rows.Err()
}

// ListLoans returns an entity's debt register, newest issues first.
// Entity id 0 lists across entities.
func (s *Store) ListLoans(ctx context.Context, entityID int64, limit int) ([]models.Loan, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.Pool().Query(ctx,
		`SELECT id, entity_id, lender, issue_date, principal, outstanding, interest_rate,
		        maturity_date, currency, debt_category, source_document_id
		 FROM loans
		 WHERE ($1 = 0 OR entity_id = $1)
		 ORDER BY issue_date DESC, lender
		 LIMIT $2`,
		entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	defer rows.Close()

	var loans []models.Loan
	for rows.Next() {
		var loan models.Loan
		if err := rows.Scan(&loan.ID, &loan.EntityID, &loan.Lender, &loan.IssueDate,
			&loan.Principal, &loan.Outstanding, &loan.InterestRate, &loan.MaturityDate,
			&loan.Currency, &loan.DebtCategory, &loan.SourceDocument); err != nil {
			return nil, fmt.Errorf("scan loan: %w", err)
		}
		loans = append(loans, loan)
	}
	return loans, rows.Err()
}

// ListPopulation returns population rows matching the filters, newest
// year first.
func (s *Store) ListPopulation(ctx context.Context, filters models.EconFilters) ([]models.PopulationData, error) {
	limit := filters.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.Pool().Query(ctx,
		`SELECT id, entity_id, year, total_population, male_population, female_population,
		        urban_population, rural_population, density, confidence, source_document_id, provenance
		 FROM population_data
		 WHERE ($1::bigint IS NULL OR entity_id = $1)
		   AND ($2 = 0 OR year >= $2)
		   AND ($3 = 0 OR year <= $3)
		   AND confidence >= $4
		 ORDER BY year DESC, entity_id
		 LIMIT $5`,
		filters.EntityID, filters.YearFrom, filters.YearTo, filters.MinConfidence, limit)
	if err != nil {
		return nil, fmt.Errorf("list population: %w", err)
	}
	defer rows.Close()

	var results []models.PopulationData
	for rows.Next() {
		var row models.PopulationData
		var provenance []byte
		if err := rows.Scan(&row.ID, &row.EntityID, &row.Year, &row.TotalPopulation,
			&row.MalePopulation, &row.FemalePopulation, &row.UrbanPopulation,
			&row.RuralPopulation, &row.Density, &row.Confidence,
			&row.SourceDocumentID, &provenance); err != nil {
			return nil, fmt.Errorf("scan population: %w", err)
		}
		if err := unmarshalJSON(provenance, &row.Provenance); err != nil {
			return nil, err
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

// ListGDP returns GDP rows matching the filters. A nil entity filter
// matches every row including national (NULL entity) ones.
func (s *Store) ListGDP(ctx context.Context, filters models.EconFilters) ([]models.GDPData, error) {
	limit := filters.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.Pool().Query(ctx,
		`SELECT id, entity_id, year, quarter, gdp_value, growth_rate, currency, confidence,
		        source_document_id, provenance
		 FROM gdp_data
		 WHERE ($1::bigint IS NULL OR entity_id = $1)
		   AND ($2 = 0 OR year >= $2)
		   AND ($3 = 0 OR year <= $3)
		   AND confidence >= $4
		 ORDER BY year DESC, quarter DESC NULLS LAST
		 LIMIT $5`,
		filters.EntityID, filters.YearFrom, filters.YearTo, filters.MinConfidence, limit)
	if err != nil {
		return nil, fmt.Errorf("list gdp: %w", err)
	}
	defer rows.Close()

	var results []models.GDPData
	for rows.Next() {
		var row models.GDPData
		var provenance []byte
		if err := rows.Scan(&row.ID, &row.EntityID, &row.Year, &row.Quarter, &row.GDPValue,
			&row.GrowthRate, &row.Currency, &row.Confidence,
			&row.SourceDocumentID, &provenance); err != nil {
			return nil, fmt.Errorf("scan gdp: %w", err)
		}
		if err := unmarshalJSON(provenance, &row.Provenance); err != nil {
			return nil, err
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

// ListIndicators returns indicator observations matching the filters,
// newest first.
func (s *Store) ListIndicators(ctx context.Context, filters models.IndicatorFilters) ([]models.EconomicIndicator, error) {
	limit := filters.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	var from, to *time.Time
	if !filters.From.IsZero() {
		from = &filters.From
	}
	if !filters.To.IsZero() {
		to = &filters.To
	}

	rows, err := s.db.Pool().Query(ctx,
		`SELECT id, indicator_type, date, entity_id, value, unit, confidence,
		        source_document_id, provenance
		 FROM economic_indicators
		 WHERE ($1 = '' OR indicator_type = $1)
		   AND ($2::bigint IS NULL OR entity_id = $2)
		   AND ($3::date IS NULL OR date >= $3)
		   AND ($4::date IS NULL OR date <= $4)
		   AND confidence >= $5
		 ORDER BY date DESC, indicator_type
		 LIMIT $6`,
		filters.Type, filters.EntityID, from, to, filters.MinConfidence, limit)
	if err != nil {
		return nil, fmt.Errorf("list indicators: %w", err)
	}
	defer rows.Close()

	var results []models.EconomicIndicator
	for rows.Next() {
		var row models.EconomicIndicator
		var provenance []byte
		if err := rows.Scan(&row.ID, &row.IndicatorType, &row.Date, &row.EntityID, &row.Value,
			&row.Unit, &row.Confidence, &row.SourceDocumentID, &provenance); err != nil {
			return nil, fmt.Errorf("scan indicator: %w", err)
		}
		if err := unmarshalJSON(provenance, &row.Provenance); err != nil {
			return nil, err
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

// ListPoverty returns poverty rows matching the filters, newest year first.
func (s *Store) ListPoverty(ctx context.Context, filters models.EconFilters) ([]models.PovertyIndex, error) {
	limit := filters.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.Pool().Query(ctx,
		`SELECT id, entity_id, year, poverty_rate, extreme_poverty_rate, gini_coefficient,
		        confidence, source_document_id, provenance
		 FROM poverty_indices
		 WHERE ($1::bigint IS NULL OR entity_id = $1)
		   AND ($2 = 0 OR year >= $2)
		   AND ($3 = 0 OR year <= $3)
		   AND confidence >= $4
		 ORDER BY year DESC, entity_id
		 LIMIT $5`,
		filters.EntityID, filters.YearFrom, filters.YearTo, filters.MinConfidence, limit)
	if err != nil {
		return nil, fmt.Errorf("list poverty: %w", err)
	}
	defer rows.Close()

	var results []models.PovertyIndex
	for rows.Next() {
		var row models.PovertyIndex
		var provenance []byte
		if err := rows.Scan(&row.ID, &row.EntityID, &row.Year, &row.PovertyRate,
			&row.ExtremeRate, &row.Gini, &row.Confidence,
			&row.SourceDocumentID, &provenance); err != nil {
			return nil, fmt.Errorf("scan poverty: %w", err)
		}
		if err := unmarshalJSON(provenance, &row.Provenance); err != nil {
			return nil, err
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

// SourceStatus reports per-source document counts, last fetch times and
// the most recent ingestion job.
func (s *Store) SourceStatus(ctx context.Context) ([]models.SourceStatus, error) {
	rows, err := s.db.Pool().Query(ctx,
		`SELECT source_key, COUNT(*), MAX(fetched_at)
		 FROM source_documents
		 GROUP BY source_key
		 ORDER BY source_key`)
	if err != nil {
		return nil, fmt.Errorf("source status: %w", err)
	}
	defer rows.Close()

	var statuses []models.SourceStatus
	for rows.Next() {
		var status models.SourceStatus
		if err := rows.Scan(&status.SourceKey, &status.Documents, &status.LastFetched); err != nil {
			return nil, fmt.Errorf("scan source status: %w", err)
		}
		statuses = append(statuses, status)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	lastJobs, err := s.latestJobsByDomain(ctx)
	if err != nil {
		return nil, err
	}
	for i := range statuses {
		if job, ok := lastJobs[statuses[i].SourceKey]; ok {
			statuses[i].LastJob = job
		}
	}
	return statuses, nil
}

// latestJobsByDomain returns the most recent ingestion job per domain.
func (s *Store) latestJobsByDomain(ctx context.Context) (map[string]*models.IngestionJob, error) {
	rows, err := s.db.Pool().Query(ctx,
		`SELECT DISTINCT ON (domain)
		        id, domain, status, dry_run, records_processed, records_created, records_updated,
		        errors, started_at, completed_at
		 FROM ingestion_jobs
		 ORDER BY domain, started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("latest jobs: %w", err)
	}
	defer rows.Close()

	jobs := make(map[string]*models.IngestionJob)
	for rows.Next() {
		job := &models.IngestionJob{}
		var errorsJSON []byte
		if err := rows.Scan(&job.ID, &job.Domain, &job.Status, &job.DryRun,
			&job.RecordsProcessed, &job.RecordsCreated, &job.RecordsUpdated,
			&errorsJSON, &job.StartedAt, &job.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		if err := unmarshalJSON(errorsJSON, &job.Errors); err != nil {
			return nil, err
		}
		jobs[job.Domain] = job
	}
	return jobs, rows.Err()
}

// StorageStatus summarizes the document mirror. ManifestEntries is filled
// by the caller from the on-disk manifest.
func (s *Store) StorageStatus(ctx context.Context) (*models.StorageStatus, error) {
	status := &models.StorageStatus{BySource: make(map[string]int)}
	err := s.db.Pool().QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE metadata ? 'mirror_key'),
		        MAX(fetched_at)
		 FROM source_documents`).
		Scan(&status.Documents, &status.Mirrored, &status.LatestFetch)
	if err != nil {
		return nil, fmt.Errorf("storage status: %w", err)
	}

	rows, err := s.db.Pool().Query(ctx,
		`SELECT source_key, COUNT(*) FROM source_documents GROUP BY source_key`)
	if err != nil {
		return nil, fmt.Errorf("storage status by source: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return nil, fmt.Errorf("scan storage status: %w", err)
		}
		status.BySource[key] = count
	}
	return status, rows.Err()
}

// ResolveDocument maps a source URL to the stored artifact. MirrorURL is
// left for the caller to presign from the mirror key in Metadata.
func (s *Store) ResolveDocument(ctx context.Context, url string) (*models.ResolvedDocument, error) {
	var filePath string
	var metadata []byte
	err := s.db.Pool().QueryRow(ctx,
		`SELECT file_path, metadata FROM source_documents WHERE url = $1`, url).
		Scan(&filePath, &metadata)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve document %s: %w", url, err)
	}

	resolved := &models.ResolvedDocument{OriginalURL: url, LocalPath: filePath}
	if err := unmarshalJSON(metadata, &resolved.Metadata); err != nil {
		return nil, err
	}
	return resolved, nil
}

// Counts returns row counts per table for the post-ingestion check.
func (s *Store) Counts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.Pool().Query(ctx,
		`SELECT 'countries', COUNT(*) FROM countries
		 UNION ALL SELECT 'entities', COUNT(*) FROM entities
		 UNION ALL SELECT 'fiscal_periods', COUNT(*) FROM fiscal_periods
		 UNION ALL SELECT 'source_documents', COUNT(*) FROM source_documents
		 UNION ALL SELECT 'extractions', COUNT(*) FROM extractions
		 UNION ALL SELECT 'budget_lines', COUNT(*) FROM budget_lines
		 UNION ALL SELECT 'audits', COUNT(*) FROM audits
		 UNION ALL SELECT 'population_data', COUNT(*) FROM population_data
		 UNION ALL SELECT 'gdp_data', COUNT(*) FROM gdp_data
		 UNION ALL SELECT 'economic_indicators', COUNT(*) FROM economic_indicators
		 UNION ALL SELECT 'poverty_indices', COUNT(*) FROM poverty_indices
		 UNION ALL SELECT 'loans', COUNT(*) FROM loans
		 UNION ALL SELECT 'debt_timelines', COUNT(*) FROM debt_timelines
		 UNION ALL SELECT 'fiscal_summaries', COUNT(*) FROM fiscal_summaries
		 UNION ALL SELECT 'revenue_by_source', COUNT(*) FROM revenue_by_source
		 UNION ALL SELECT 'ingestion_jobs', COUNT(*) FROM ingestion_jobs`)
	if err != nil {
		return nil, fmt.Errorf("table counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var table string
		var count int
		if err := rows.Scan(&table, &count); err != nil {
			return nil, fmt.Errorf("scan table count: %w", err)
		}
		counts[table] = count
	}
	return counts, rows.Err()
}

// LatestDocument returns the most recently fetched document, or nil when
// the store is empty.
func (s *Store) LatestDocument(ctx context.Context) (*models.SourceDocument, error) {
	doc, err := scanDocument(s.db.Pool().QueryRow(ctx,
		`SELECT `+documentColumns+` FROM source_documents ORDER BY fetched_at DESC LIMIT 1`))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest document: %w", err)
	}
	return doc, nil
}
