package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/openkenya/hazina/internal/interfaces"
	"github.com/openkenya/hazina/internal/models"
)

// slugProbeLimit bounds the disambiguator suffix search when two distinct
// canonical names collapse to the same slug.
const slugProbeLimit = 50

// EnsureCountry finds or creates the country row for an ISO code. Kenya
// gets its full defaults; any other code gets a bare row so fact loads
// never fail on the FK.
func (t *storeTx) EnsureCountry(ctx context.Context, isoCode string) (*models.Country, error) {
	country := &models.Country{}
	var metadata []byte
	err := t.tx.QueryRow(ctx,
		`SELECT id, iso_code, name, currency_code, timezone, locale, metadata
		 FROM countries WHERE iso_code = $1`, isoCode).
		Scan(&country.ID, &country.ISOCode, &country.Name, &country.Currency, &country.Timezone, &country.Locale, &metadata)
	if err == nil {
		if err := unmarshalJSON(metadata, &country.Metadata); err != nil {
			return nil, fmt.Errorf("decode country metadata: %w", err)
		}
		return country, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("lookup country %s: %w", isoCode, err)
	}

	country = &models.Country{
		ISOCode:  isoCode,
		Name:     isoCode,
		Currency: models.BaseCurrency,
		Timezone: "Africa/Nairobi",
		Locale:   "en-KE",
	}
	if isoCode == "KE" {
		country.Name = "Kenya"
	}

	err = t.tx.QueryRow(ctx,
		`INSERT INTO countries (iso_code, name, currency_code, timezone, locale, metadata)
		 VALUES ($1, $2, $3, $4, $5, '{}'::jsonb)
		 RETURNING id`,
		country.ISOCode, country.Name, country.Currency, country.Timezone, country.Locale).
		Scan(&country.ID)
	if err != nil {
		return nil, fmt.Errorf("insert country %s: %w", isoCode, err)
	}

	t.logger.Info().Str("iso", isoCode).Int64("id", country.ID).Msg("Country created")
	return country, nil
}

// EnsureEntity finds the entity by (country, canonical name) or creates
// it with a deterministic slug. A raw spelling we have not seen before is
// appended to the alternate-name set.
func (t *storeTx) EnsureEntity(ctx context.Context, info *models.EntityInfo, countryID int64) (*models.Entity, error) {
	if info == nil || info.CanonicalName == "" {
		return nil, fmt.Errorf("ensure entity: missing canonical name")
	}

	entity := &models.Entity{}
	var alternates, metadata []byte
	err := t.tx.QueryRow(ctx,
		`SELECT id, country_id, type, canonical_name, slug, alternate_names, metadata
		 FROM entities WHERE country_id = $1 AND canonical_name = $2`,
		countryID, info.CanonicalName).
		Scan(&entity.ID, &entity.CountryID, &entity.Type, &entity.CanonicalName, &entity.Slug, &alternates, &metadata)
	if err == nil {
		if err := unmarshalJSON(alternates, &entity.AlternateNames); err != nil {
			return nil, fmt.Errorf("decode entity alternates: %w", err)
		}
		if err := unmarshalJSON(metadata, &entity.Metadata); err != nil {
			return nil, fmt.Errorf("decode entity metadata: %w", err)
		}
		return entity, t.mergeAlternateName(ctx, entity, info.RawName)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("lookup entity %q: %w", info.CanonicalName, err)
	}

	slug, err := t.availableSlug(ctx, models.Slugify(info.CanonicalName))
	if err != nil {
		return nil, err
	}

	entityType := info.Type
	if entityType == "" {
		entityType = models.EntityTypeAgency
	}
	var alternateNames []string
	if info.RawName != "" && info.RawName != info.CanonicalName {
		alternateNames = append(alternateNames, info.RawName)
	}
	alternatesJSON, err := marshalJSON(alternateNames)
	if err != nil {
		return nil, err
	}

	entity = &models.Entity{
		CountryID:      countryID,
		Type:           entityType,
		CanonicalName:  info.CanonicalName,
		Slug:           slug,
		AlternateNames: alternateNames,
	}
	err = t.tx.QueryRow(ctx,
		`INSERT INTO entities (country_id, type, canonical_name, slug, alternate_names, metadata)
		 VALUES ($1, $2, $3, $4, $5, '{}'::jsonb)
		 RETURNING id`,
		countryID, entityType, info.CanonicalName, slug, alternatesJSON).
		Scan(&entity.ID)
	if err != nil {
		return nil, fmt.Errorf("insert entity %q: %w", info.CanonicalName, err)
	}

	t.logger.Debug().
		Str("entity", info.CanonicalName).
		Str("slug", slug).
		Str("type", entityType).
		Msg("Entity created")
	return entity, nil
}

// availableSlug returns the base slug, or base-{n} when another canonical
// name already holds it. The suffix order is deterministic, so the same
// collision resolves the same way on every run.
func (t *storeTx) availableSlug(ctx context.Context, base string) (string, error) {
	if base == "" {
		base = "entity"
	}
	candidate := base
	for i := 2; i <= slugProbeLimit; i++ {
		var exists bool
		err := t.tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM entities WHERE slug = $1)`, candidate).Scan(&exists)
		if err != nil {
			return "", fmt.Errorf("probe slug %q: %w", candidate, err)
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return "", fmt.Errorf("no free slug for %q after %d probes", base, slugProbeLimit)
}

// mergeAlternateName records a new raw spelling against an existing
// entity so future fuzzy matches get cheaper.
func (t *storeTx) mergeAlternateName(ctx context.Context, entity *models.Entity, rawName string) error {
	if rawName == "" || rawName == entity.CanonicalName {
		return nil
	}
	for _, existing := range entity.AlternateNames {
		if existing == rawName {
			return nil
		}
	}
	entity.AlternateNames = append(entity.AlternateNames, rawName)
	alternatesJSON, err := marshalJSON(entity.AlternateNames)
	if err != nil {
		return err
	}
	if _, err := t.tx.Exec(ctx,
		`UPDATE entities SET alternate_names = $1 WHERE id = $2`,
		alternatesJSON, entity.ID); err != nil {
		return fmt.Errorf("merge alternate name for entity %d: %w", entity.ID, err)
	}
	return nil
}

// EnsureFiscalPeriod finds or creates the fiscal period for
// (country, label).
func (t *storeTx) EnsureFiscalPeriod(ctx context.Context, info *models.FiscalPeriodInfo, countryID int64) (*models.FiscalPeriod, error) {
	if info == nil || info.Label == "" {
		return nil, fmt.Errorf("ensure fiscal period: missing label")
	}

	period := &models.FiscalPeriod{}
	err := t.tx.QueryRow(ctx,
		`SELECT id, country_id, label, start_date, end_date
		 FROM fiscal_periods WHERE country_id = $1 AND label = $2`,
		countryID, info.Label).
		Scan(&period.ID, &period.CountryID, &period.Label, &period.StartDate, &period.EndDate)
	if err == nil {
		return period, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("lookup fiscal period %q: %w", info.Label, err)
	}

	period = &models.FiscalPeriod{
		CountryID: countryID,
		Label:     info.Label,
		StartDate: info.StartDate,
		EndDate:   info.EndDate,
	}
	err = t.tx.QueryRow(ctx,
		`INSERT INTO fiscal_periods (country_id, label, start_date, end_date)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		countryID, info.Label, info.StartDate, info.EndDate).
		Scan(&period.ID)
	if err != nil {
		return nil, fmt.Errorf("insert fiscal period %q: %w", info.Label, err)
	}
	return period, nil
}

const documentColumns = `id, source, source_key, title, url, file_path, fetched_at, md5, doc_type, status, last_seen_at, metadata`

// scanDocument reads one source_documents row.
func scanDocument(row pgx.Row) (*models.SourceDocument, error) {
	doc := &models.SourceDocument{}
	var metadata []byte
	err := row.Scan(&doc.ID, &doc.Source, &doc.SourceKey, &doc.Title, &doc.URL, &doc.FilePath,
		&doc.FetchedAt, &doc.MD5, &doc.DocType, &doc.Status, &doc.LastSeenAt, &metadata)
	if err != nil {
		return nil, err
	}
	if err := unmarshalJSON(metadata, &doc.Metadata); err != nil {
		return nil, fmt.Errorf("decode document metadata: %w", err)
	}
	return doc, nil
}

// FindDocumentByMD5 returns the document with the given content hash, or
// nil when unseen.
func (t *storeTx) FindDocumentByMD5(ctx context.Context, md5 string) (*models.SourceDocument, error) {
	if md5 == "" {
		return nil, nil
	}
	doc, err := scanDocument(t.tx.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM source_documents WHERE md5 = $1`, md5))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup document by md5: %w", err)
	}
	return doc, nil
}

// FindDocumentByURL returns the document fetched from the given URL, or
// nil when unseen.
func (t *storeTx) FindDocumentByURL(ctx context.Context, url string) (*models.SourceDocument, error) {
	doc, err := scanDocument(t.tx.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM source_documents WHERE url = $1`, url))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup document by url: %w", err)
	}
	return doc, nil
}

// InsertDocument persists a new source document and returns its id.
func (t *storeTx) InsertDocument(ctx context.Context, doc *models.SourceDocument) (int64, error) {
	metadataJSON, err := marshalJSON(doc.Metadata)
	if err != nil {
		return 0, err
	}

	var id int64
	err = t.tx.QueryRow(ctx,
		`INSERT INTO source_documents
		 (source, source_key, title, url, file_path, fetched_at, md5, doc_type, status, last_seen_at, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id`,
		doc.Source, doc.SourceKey, doc.Title, doc.URL, doc.FilePath, doc.FetchedAt,
		doc.MD5, doc.DocType, doc.Status, doc.LastSeenAt, metadataJSON).
		Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert document %s: %w", doc.URL, err)
	}
	return id, nil
}

// TouchDocument refreshes last_seen_at on a re-encountered document.
func (t *storeTx) TouchDocument(ctx context.Context, id int64) error {
	if _, err := t.tx.Exec(ctx,
		`UPDATE source_documents SET last_seen_at = now(), status = $2 WHERE id = $1`,
		id, models.DocStatusAvailable); err != nil {
		return fmt.Errorf("touch document %d: %w", id, err)
	}
	return nil
}

// UpdateDocumentArtifact records a changed artifact behind a stable URL:
// the publisher replaced the file, so the hash, local path and fetch
// stamp move with it.
func (t *storeTx) UpdateDocumentArtifact(ctx context.Context, id int64, md5, filePath string, fetchedAt time.Time) error {
	if _, err := t.tx.Exec(ctx,
		`UPDATE source_documents
		 SET md5 = $2, file_path = $3, fetched_at = $4, last_seen_at = now(), status = $5
		 WHERE id = $1`,
		id, md5, filePath, fetchedAt, models.DocStatusAvailable); err != nil {
		return fmt.Errorf("update document artifact %d: %w", id, err)
	}
	return nil
}

// InsertExtraction persists one page of raw extractor output.
func (t *storeTx) InsertExtraction(ctx context.Context, extraction *models.Extraction) error {
	if _, err := t.tx.Exec(ctx,
		`INSERT INTO extractions (source_document_id, page_number, data, extractor_name, confidence)
		 VALUES ($1, $2, $3, $4, $5)`,
		extraction.SourceDocumentID, extraction.PageNumber, []byte(extraction.Data),
		extraction.ExtractorName, extraction.Confidence); err != nil {
		return fmt.Errorf("insert extraction page %d: %w", extraction.PageNumber, err)
	}
	return nil
}

// Fact upserts. Each follows the same discipline: a narrow equality probe
// on the natural key plus source document skips re-ingested rows; a
// natural-key hit from another document takes the update path and leaves
// the original provenance in place; otherwise insert.

// UpsertBudgetLine writes one budget line.
func (t *storeTx) UpsertBudgetLine(ctx context.Context, row *models.BudgetLine) (interfaces.UpsertOutcome, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`SELECT id FROM budget_lines
		 WHERE entity_id = $1 AND fiscal_period_id = $2 AND category = $3 AND subcategory = $4
		   AND source_document_id = $5`,
		row.EntityID, row.FiscalPeriodID, row.Category, row.Subcategory, row.SourceDocumentID).Scan(&id)
	if err == nil {
		return interfaces.OutcomeSkipped, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return interfaces.OutcomeSkipped, fmt.Errorf("probe budget line: %w", err)
	}

	err = t.tx.QueryRow(ctx,
		`SELECT id FROM budget_lines
		 WHERE entity_id = $1 AND fiscal_period_id = $2 AND category = $3 AND subcategory = $4`,
		row.EntityID, row.FiscalPeriodID, row.Category, row.Subcategory).Scan(&id)
	if err == nil {
		if _, err := t.tx.Exec(ctx,
			`UPDATE budget_lines
			 SET allocated_amount = $2, actual_spent = $3, committed_amount = $4, currency = $5
			 WHERE id = $1`,
			id, row.AllocatedAmount, row.ActualSpent, row.CommittedAmount, row.Currency); err != nil {
			return interfaces.OutcomeSkipped, fmt.Errorf("update budget line %d: %w", id, err)
		}
		return interfaces.OutcomeUpdated, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return interfaces.OutcomeSkipped, fmt.Errorf("probe budget line key: %w", err)
	}

	provJSON, err := provenanceJSON(row.Provenance, row.SourceDocumentID)
	if err != nil {
		return interfaces.OutcomeSkipped, err
	}
	if _, err := t.tx.Exec(ctx,
		`INSERT INTO budget_lines
		 (entity_id, fiscal_period_id, category, subcategory, allocated_amount, actual_spent,
		  committed_amount, currency, source_document_id, provenance)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		row.EntityID, row.FiscalPeriodID, row.Category, row.Subcategory,
		row.AllocatedAmount, row.ActualSpent, row.CommittedAmount, row.Currency,
		row.SourceDocumentID, provJSON); err != nil {
		return interfaces.OutcomeSkipped, fmt.Errorf("insert budget line: %w", err)
	}
	return interfaces.OutcomeCreated, nil
}

// UpsertAudit writes one audit finding. Findings are long free text, so
// the natural key hashes the text.
func (t *storeTx) UpsertAudit(ctx context.Context, row *models.Audit) (interfaces.UpsertOutcome, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`SELECT id FROM audits
		 WHERE entity_id = $1 AND COALESCE(fiscal_period_id, 0) = COALESCE($2::bigint, 0)
		   AND md5(finding) = md5($3) AND source_document_id = $4`,
		row.EntityID, row.FiscalPeriodID, row.Finding, row.SourceDocumentID).Scan(&id)
	if err == nil {
		return interfaces.OutcomeSkipped, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return interfaces.OutcomeSkipped, fmt.Errorf("probe audit: %w", err)
	}

	err = t.tx.QueryRow(ctx,
		`SELECT id FROM audits
		 WHERE entity_id = $1 AND COALESCE(fiscal_period_id, 0) = COALESCE($2::bigint, 0)
		   AND md5(finding) = md5($3)`,
		row.EntityID, row.FiscalPeriodID, row.Finding).Scan(&id)
	if err == nil {
		if _, err := t.tx.Exec(ctx,
			`UPDATE audits
			 SET severity = $2, recommended_action = $3, amount_involved = $4
			 WHERE id = $1`,
			id, row.Severity, row.RecommendedAction, row.AmountInvolved); err != nil {
			return interfaces.OutcomeSkipped, fmt.Errorf("update audit %d: %w", id, err)
		}
		return interfaces.OutcomeUpdated, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return interfaces.OutcomeSkipped, fmt.Errorf("probe audit key: %w", err)
	}

	provJSON, err := provenanceJSON(row.Provenance, row.SourceDocumentID)
	if err != nil {
		return interfaces.OutcomeSkipped, err
	}
	status := row.Status
	if status == "" {
		status = models.AuditStatusOpen
	}
	if _, err := t.tx.Exec(ctx,
		`INSERT INTO audits
		 (entity_id, fiscal_period_id, finding, severity, status, recommended_action,
		  amount_involved, source_document_id, provenance)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		row.EntityID, row.FiscalPeriodID, row.Finding, row.Severity, status,
		row.RecommendedAction, row.AmountInvolved, row.SourceDocumentID, provJSON); err != nil {
		return interfaces.OutcomeSkipped, fmt.Errorf("insert audit: %w", err)
	}
	return interfaces.OutcomeCreated, nil
}

// UpsertPopulation writes one population figure.
func (t *storeTx) UpsertPopulation(ctx context.Context, row *models.PopulationData) (interfaces.UpsertOutcome, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`SELECT id FROM population_data
		 WHERE entity_id = $1 AND year = $2 AND source_document_id = $3`,
		row.EntityID, row.Year, row.SourceDocumentID).Scan(&id)
	if err == nil {
		return interfaces.OutcomeSkipped, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return interfaces.OutcomeSkipped, fmt.Errorf("probe population: %w", err)
	}

	err = t.tx.QueryRow(ctx,
		`SELECT id FROM population_data WHERE entity_id = $1 AND year = $2`,
		row.EntityID, row.Year).Scan(&id)
	if err == nil {
		if _, err := t.tx.Exec(ctx,
			`UPDATE population_data
			 SET total_population = $2, male_population = $3, female_population = $4,
			     urban_population = $5, rural_population = $6, density = $7, confidence = $8
			 WHERE id = $1`,
			id, row.TotalPopulation, row.MalePopulation, row.FemalePopulation,
			row.UrbanPopulation, row.RuralPopulation, row.Density, row.Confidence); err != nil {
			return interfaces.OutcomeSkipped, fmt.Errorf("update population %d: %w", id, err)
		}
		return interfaces.OutcomeUpdated, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return interfaces.OutcomeSkipped, fmt.Errorf("probe population key: %w", err)
	}

	provJSON, err := provenanceJSON(row.Provenance, row.SourceDocumentID)
	if err != nil {
		return interfaces.OutcomeSkipped, err
	}
	if _, err := t.tx.Exec(ctx,
		`INSERT INTO population_data
		 (entity_id, year, total_population, male_population, female_population,
		  urban_population, rural_population, density, confidence, source_document_id, provenance)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		row.EntityID, row.Year, row.TotalPopulation, row.MalePopulation, row.FemalePopulation,
		row.UrbanPopulation, row.RuralPopulation, row.Density, row.Confidence,
		row.SourceDocumentID, provJSON); err != nil {
		return interfaces.OutcomeSkipped, fmt.Errorf("insert population: %w", err)
	}
	return interfaces.OutcomeCreated, nil
}

// UpsertGDP writes one GDP observation. NULL entity means national and
// NULL quarter means annual; the natural-key index coalesces both.
func (t *storeTx) UpsertGDP(ctx context.Context, row *models.GDPData) (interfaces.UpsertOutcome, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`SELECT id FROM gdp_data
		 WHERE COALESCE(entity_id, 0) = COALESCE($1::bigint, 0) AND year = $2
		   AND COALESCE(quarter, 0) = COALESCE($3::int, 0) AND source_document_id = $4`,
		row.EntityID, row.Year, row.Quarter, row.SourceDocumentID).Scan(&id)
	if err == nil {
		return interfaces.OutcomeSkipped, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return interfaces.OutcomeSkipped, fmt.Errorf("probe gdp: %w", err)
	}

	err = t.tx.QueryRow(ctx,
		`SELECT id FROM gdp_data
		 WHERE COALESCE(entity_id, 0) = COALESCE($1::bigint, 0) AND year = $2
		   AND COALESCE(quarter, 0) = COALESCE($3::int, 0)`,
		row.EntityID, row.Year, row.Quarter).Scan(&id)
	if err == nil {
		if _, err := t.tx.Exec(ctx,
			`UPDATE gdp_data
			 SET gdp_value = $2, growth_rate = $3, currency = $4, confidence = $5
			 WHERE id = $1`,
			id, row.GDPValue, row.GrowthRate, row.Currency, row.Confidence); err != nil {
			return interfaces.OutcomeSkipped, fmt.Errorf("update gdp %d: %w", id, err)
		}
		return interfaces.OutcomeUpdated, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return interfaces.OutcomeSkipped, fmt.Errorf("probe gdp key: %w", err)
	}

	provJSON, err := provenanceJSON(row.Provenance, row.SourceDocumentID)
	if err != nil {
		return interfaces.OutcomeSkipped, err
	}
	if _, err := t.tx.Exec(ctx,
		`INSERT INTO gdp_data
		 (entity_id, year, quarter, gdp_value, growth_rate, currency, confidence,
		  source_document_id, provenance)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		row.EntityID, row.Year, row.Quarter, row.GDPValue, row.GrowthRate,
		row.Currency, row.Confidence, row.SourceDocumentID, provJSON); err != nil {
		return interfaces.OutcomeSkipped, fmt.Errorf("insert gdp: %w", err)
	}
	return interfaces.OutcomeCreated, nil
}

// UpsertIndicator writes one economic indicator observation.
func (t *storeTx) UpsertIndicator(ctx context.Context, row *models.EconomicIndicator) (interfaces.UpsertOutcome, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`SELECT id FROM economic_indicators
		 WHERE indicator_type = $1 AND date = $2 AND COALESCE(entity_id, 0) = COALESCE($3::bigint, 0)
		   AND source_document_id = $4`,
		row.IndicatorType, row.Date, row.EntityID, row.SourceDocumentID).Scan(&id)
	if err == nil {
		return interfaces.OutcomeSkipped, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return interfaces.OutcomeSkipped, fmt.Errorf("probe indicator: %w", err)
	}

	err = t.tx.QueryRow(ctx,
		`SELECT id FROM economic_indicators
		 WHERE indicator_type = $1 AND date = $2 AND COALESCE(entity_id, 0) = COALESCE($3::bigint, 0)`,
		row.IndicatorType, row.Date, row.EntityID).Scan(&id)
	if err == nil {
		if _, err := t.tx.Exec(ctx,
			`UPDATE economic_indicators SET value = $2, unit = $3, confidence = $4 WHERE id = $1`,
			id, row.Value, row.Unit, row.Confidence); err != nil {
			return interfaces.OutcomeSkipped, fmt.Errorf("update indicator %d: %w", id, err)
		}
		return interfaces.OutcomeUpdated, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return interfaces.OutcomeSkipped, fmt.Errorf("probe indicator key: %w", err)
	}

	provJSON, err := provenanceJSON(row.Provenance, row.SourceDocumentID)
	if err != nil {
		return interfaces.OutcomeSkipped, err
	}
	if _, err := t.tx.Exec(ctx,
		`INSERT INTO economic_indicators
		 (indicator_type, date, entity_id, value, unit, confidence, source_document_id, provenance)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		row.IndicatorType, row.Date, row.EntityID, row.Value, row.Unit,
		row.Confidence, row.SourceDocumentID, provJSON); err != nil {
		return interfaces.OutcomeSkipped, fmt.Errorf("insert indicator: %w", err)
	}
	return interfaces.OutcomeCreated, nil
}

// UpsertPoverty writes one poverty observation.
func (t *storeTx) UpsertPoverty(ctx context.Context, row *models.PovertyIndex) (interfaces.UpsertOutcome, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`SELECT id FROM poverty_indices
		 WHERE entity_id = $1 AND year = $2 AND source_document_id = $3`,
		row.EntityID, row.Year, row.SourceDocumentID).Scan(&id)
	if err == nil {
		return interfaces.OutcomeSkipped, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return interfaces.OutcomeSkipped, fmt.Errorf("probe poverty: %w", err)
	}

	err = t.tx.QueryRow(ctx,
		`SELECT id FROM poverty_indices WHERE entity_id = $1 AND year = $2`,
		row.EntityID, row.Year).Scan(&id)
	if err == nil {
		if _, err := t.tx.Exec(ctx,
			`UPDATE poverty_indices
			 SET poverty_rate = $2, extreme_poverty_rate = $3, gini_coefficient = $4, confidence = $5
			 WHERE id = $1`,
			id, row.PovertyRate, row.ExtremeRate, row.Gini, row.Confidence); err != nil {
			return interfaces.OutcomeSkipped, fmt.Errorf("update poverty %d: %w", id, err)
		}
		return interfaces.OutcomeUpdated, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return interfaces.OutcomeSkipped, fmt.Errorf("probe poverty key: %w", err)
	}

	provJSON, err := provenanceJSON(row.Provenance, row.SourceDocumentID)
	if err != nil {
		return interfaces.OutcomeSkipped, err
	}
	if _, err := t.tx.Exec(ctx,
		`INSERT INTO poverty_indices
		 (entity_id, year, poverty_rate, extreme_poverty_rate, gini_coefficient, confidence,
		  source_document_id, provenance)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		row.EntityID, row.Year, row.PovertyRate, row.ExtremeRate, row.Gini,
		row.Confidence, row.SourceDocumentID, provJSON); err != nil {
		return interfaces.OutcomeSkipped, fmt.Errorf("insert poverty: %w", err)
	}
	return interfaces.OutcomeCreated, nil
}

// UpsertLoan writes one debt-register row.
func (t *storeTx) UpsertLoan(ctx context.Context, row *models.Loan) (interfaces.UpsertOutcome, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`SELECT id FROM loans
		 WHERE entity_id = $1 AND lender = $2 AND issue_date = $3 AND source_document_id = $4`,
		row.EntityID, row.Lender, row.IssueDate, row.SourceDocument).Scan(&id)
	if err == nil {
		return interfaces.OutcomeSkipped, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return interfaces.OutcomeSkipped, fmt.Errorf("probe loan: %w", err)
	}

	err = t.tx.QueryRow(ctx,
		`SELECT id FROM loans WHERE entity_id = $1 AND lender = $2 AND issue_date = $3`,
		row.EntityID, row.Lender, row.IssueDate).Scan(&id)
	if err == nil {
		if _, err := t.tx.Exec(ctx,
			`UPDATE loans
			 SET principal = $2, outstanding = $3, interest_rate = $4, maturity_date = $5,
			     currency = $6, debt_category = $7
			 WHERE id = $1`,
			id, row.Principal, row.Outstanding, row.InterestRate, row.MaturityDate,
			row.Currency, row.DebtCategory); err != nil {
			return interfaces.OutcomeSkipped, fmt.Errorf("update loan %d: %w", id, err)
		}
		return interfaces.OutcomeUpdated, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return interfaces.OutcomeSkipped, fmt.Errorf("probe loan key: %w", err)
	}

	if _, err := t.tx.Exec(ctx,
		`INSERT INTO loans
		 (entity_id, lender, issue_date, principal, outstanding, interest_rate, maturity_date,
		  currency, debt_category, source_document_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		row.EntityID, row.Lender, row.IssueDate, row.Principal, row.Outstanding,
		row.InterestRate, row.MaturityDate, row.Currency, row.DebtCategory,
		row.SourceDocument); err != nil {
		return interfaces.OutcomeSkipped, fmt.Errorf("insert loan: %w", err)
	}
	return interfaces.OutcomeCreated, nil
}

// UpsertDebtTimeline writes the national debt summary for one fiscal year.
func (t *storeTx) UpsertDebtTimeline(ctx context.Context, row *models.DebtTimeline) (interfaces.UpsertOutcome, error) {
	tag, err := t.tx.Exec(ctx,
		`INSERT INTO debt_timelines (fiscal_year, external_debt, domestic_debt, total_debt)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (fiscal_year) DO UPDATE
		 SET external_debt = EXCLUDED.external_debt,
		     domestic_debt = EXCLUDED.domestic_debt,
		     total_debt = EXCLUDED.total_debt
		 WHERE debt_timelines.external_debt IS DISTINCT FROM EXCLUDED.external_debt
		    OR debt_timelines.domestic_debt IS DISTINCT FROM EXCLUDED.domestic_debt
		    OR debt_timelines.total_debt IS DISTINCT FROM EXCLUDED.total_debt`,
		row.FiscalYear, row.ExternalDebt, row.DomesticDebt, row.TotalDebt)
	if err != nil {
		return interfaces.OutcomeSkipped, fmt.Errorf("upsert debt timeline %s: %w", row.FiscalYear, err)
	}
	if tag.RowsAffected() == 0 {
		return interfaces.OutcomeSkipped, nil
	}
	return interfaces.OutcomeUpdated, nil
}

// UpsertFiscalSummary writes one (entity, fiscal year) revenue summary.
func (t *storeTx) UpsertFiscalSummary(ctx context.Context, row *models.FiscalSummary) (interfaces.UpsertOutcome, error) {
	tag, err := t.tx.Exec(ctx,
		`INSERT INTO fiscal_summaries (entity_id, fiscal_year, revenue, expenditure, deficit)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (entity_id, fiscal_year) DO UPDATE
		 SET revenue = EXCLUDED.revenue,
		     expenditure = EXCLUDED.expenditure,
		     deficit = EXCLUDED.deficit
		 WHERE fiscal_summaries.revenue IS DISTINCT FROM EXCLUDED.revenue
		    OR fiscal_summaries.expenditure IS DISTINCT FROM EXCLUDED.expenditure
		    OR fiscal_summaries.deficit IS DISTINCT FROM EXCLUDED.deficit`,
		row.EntityID, row.FiscalYear, row.Revenue, row.Expenditure, row.Deficit)
	if err != nil {
		return interfaces.OutcomeSkipped, fmt.Errorf("upsert fiscal summary %s: %w", row.FiscalYear, err)
	}
	if tag.RowsAffected() == 0 {
		return interfaces.OutcomeSkipped, nil
	}
	return interfaces.OutcomeUpdated, nil
}

// UpsertRevenueBySource writes one (fiscal year, revenue source) amount.
func (t *storeTx) UpsertRevenueBySource(ctx context.Context, row *models.RevenueBySource) (interfaces.UpsertOutcome, error) {
	tag, err := t.tx.Exec(ctx,
		`INSERT INTO revenue_by_source (fiscal_year, revenue_source, amount)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (fiscal_year, revenue_source) DO UPDATE
		 SET amount = EXCLUDED.amount
		 WHERE revenue_by_source.amount IS DISTINCT FROM EXCLUDED.amount`,
		row.FiscalYear, row.RevenueSource, row.Amount)
	if err != nil {
		return interfaces.OutcomeSkipped, fmt.Errorf("upsert revenue by source %s/%s: %w", row.FiscalYear, row.RevenueSource, err)
	}
	if tag.RowsAffected() == 0 {
		return interfaces.OutcomeSkipped, nil
	}
	return interfaces.OutcomeUpdated, nil
}
