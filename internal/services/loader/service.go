// Package loader persists parsed records into Postgres. Each document is
// one transaction: country, entity and period rows are found or created,
// the document row is resolved by content hash then URL, raw extraction
// pages are stored, and every record routes to its fact upsert. The
// loader is the only component that writes to the database.
package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/openkenya/hazina/internal/common"
	"github.com/openkenya/hazina/internal/interfaces"
	"github.com/openkenya/hazina/internal/models"
)

// countryISO pins the platform to Kenya. The schema stays multi-country;
// only the ingest side is single-country for now.
const countryISO = "KE"

// nationalEntityName owns country-level facts that arrive without an
// entity, matching the normalizer's canonical spelling.
const nationalEntityName = "National Government of Kenya"

// docDisposition says how document identity resolved.
type docDisposition int

const (
	docNew     docDisposition = iota
	docTouched                // same content hash seen before
	docRevised                // same URL, new content hash
)

// Service loads documents and records transactionally.
type Service struct {
	store  interfaces.Store
	logger arbor.ILogger
}

var _ interfaces.Loader = (*Service)(nil)

// NewService creates the loader on top of an initialized store.
func NewService(store interfaces.Store, logger arbor.ILogger) *Service {
	return &Service{store: store, logger: logger}
}

// StartJob opens the observability row for one run. Dry runs still get a
// job row; they just never reach LoadDocument.
func (s *Service) StartJob(ctx context.Context, domain string, dryRun bool) (*models.IngestionJob, error) {
	job := &models.IngestionJob{
		ID:        uuid.NewString(),
		Domain:    domain,
		Status:    models.JobStatusRunning,
		DryRun:    dryRun,
		StartedAt: time.Now().UTC(),
	}
	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("job", job.ID).
		Str("domain", domain).
		Bool("dry_run", dryRun).
		Msg("Ingestion job started")
	return job, nil
}

// FinishJob stamps completion. When the caller left the status at running
// the terminal state derives from the collected errors.
func (s *Service) FinishJob(ctx context.Context, job *models.IngestionJob) error {
	now := time.Now().UTC()
	job.CompletedAt = &now
	if job.Status == models.JobStatusRunning || job.Status == "" {
		if len(job.Errors) > 0 {
			job.Status = models.JobStatusCompletedWithErrors
		} else {
			job.Status = models.JobStatusCompleted
		}
	}
	return s.store.UpdateJob(ctx, job)
}

// LoadDocument persists one document with its extraction and records in a
// single transaction. Any error rolls the whole document back.
func (s *Service) LoadDocument(ctx context.Context, doc *models.SourceDocument, extraction *models.ExtractionResult, records []models.Record) (interfaces.LoadResult, error) {
	var result interfaces.LoadResult

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx interfaces.StoreTx) error {
		country, err := tx.EnsureCountry(ctx, countryISO)
		if err != nil {
			return err
		}

		disposition, err := s.ensureDocument(ctx, tx, doc)
		if err != nil {
			return err
		}
		result.DocumentID = doc.ID

		// Identical content re-encountered keeps its original pages.
		if disposition != docTouched && extraction != nil {
			if err := s.persistExtraction(ctx, tx, doc.ID, extraction); err != nil {
				return err
			}
		}

		for i := range records {
			outcome, err := s.loadRecord(ctx, tx, country, doc, &records[i])
			if err != nil {
				return err
			}
			switch outcome {
			case interfaces.OutcomeCreated:
				result.Created++
			case interfaces.OutcomeUpdated:
				result.Updated++
			default:
				result.Skipped++
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error().
			Str("url", doc.URL).
			Err(err).
			Msg("Document load rolled back")
		return interfaces.LoadResult{}, fmt.Errorf("load document %s: %w", doc.URL, err)
	}

	s.logger.Info().
		Str("url", doc.URL).
		Int64("document_id", result.DocumentID).
		Int("created", result.Created).
		Int("updated", result.Updated).
		Int("skipped", result.Skipped).
		Msg("Document loaded")
	return result, nil
}

// ensureDocument resolves document identity and sets doc.ID. A content
// hash hit reuses the row untouched except last_seen_at; a URL hit with a
// different hash means the publisher replaced the file behind a stable
// link, so the artifact columns move with it.
func (s *Service) ensureDocument(ctx context.Context, tx interfaces.StoreTx, doc *models.SourceDocument) (docDisposition, error) {
	existing, err := tx.FindDocumentByMD5(ctx, doc.MD5)
	if err != nil {
		return docNew, err
	}
	if existing != nil {
		doc.ID = existing.ID
		return docTouched, tx.TouchDocument(ctx, existing.ID)
	}

	existing, err = tx.FindDocumentByURL(ctx, doc.URL)
	if err != nil {
		return docNew, err
	}
	if existing != nil {
		doc.ID = existing.ID
		s.logger.Info().
			Str("url", doc.URL).
			Str("old_md5", existing.MD5).
			Str("new_md5", doc.MD5).
			Msg("Artifact changed behind stable URL")
		return docRevised, tx.UpdateDocumentArtifact(ctx, existing.ID, doc.MD5, doc.FilePath, doc.FetchedAt)
	}

	id, err := tx.InsertDocument(ctx, doc)
	if err != nil {
		return docNew, err
	}
	doc.ID = id
	return docNew, nil
}

// persistExtraction stores the raw extractor output, one row per page
// that carried any content.
func (s *Service) persistExtraction(ctx context.Context, tx interfaces.StoreTx, documentID int64, extraction *models.ExtractionResult) error {
	for _, page := range extraction.Pages {
		if page.Text == "" && len(page.Tables) == 0 {
			continue
		}
		data, err := json.Marshal(page)
		if err != nil {
			return fmt.Errorf("encode extraction page %d: %w", page.PageNumber, err)
		}
		if err := tx.InsertExtraction(ctx, &models.Extraction{
			SourceDocumentID: documentID,
			PageNumber:       page.PageNumber,
			Data:             string(data),
			ExtractorName:    extraction.ExtractorName,
			Confidence:       extraction.Confidence,
		}); err != nil {
			return err
		}
	}
	return nil
}

// loadRecord routes one record to its fact upsert. Validation failures
// skip the record; only database errors fail the document.
func (s *Service) loadRecord(ctx context.Context, tx interfaces.StoreTx, country *models.Country, doc *models.SourceDocument, record *models.Record) (interfaces.UpsertOutcome, error) {
	switch record.Kind {
	case models.KindBudgetLine:
		return s.loadBudgetLine(ctx, tx, country, doc, record)
	case models.KindAuditFinding:
		return s.loadAudit(ctx, tx, country, doc, record)
	case models.KindLoan:
		return s.loadLoan(ctx, tx, country, doc, record)
	case models.KindPopulation:
		return s.loadPopulation(ctx, tx, country, doc, record)
	case models.KindGDP:
		return s.loadGDP(ctx, tx, country, doc, record)
	case models.KindIndicator:
		return s.loadIndicator(ctx, tx, country, doc, record)
	case models.KindPoverty:
		return s.loadPoverty(ctx, tx, country, doc, record)
	default:
		s.logger.Warn().
			Str("kind", string(record.Kind)).
			Str("url", doc.URL).
			Msg("Unknown record kind")
		return interfaces.OutcomeSkipped, nil
	}
}

func (s *Service) loadBudgetLine(ctx context.Context, tx interfaces.StoreTx, country *models.Country, doc *models.SourceDocument, record *models.Record) (interfaces.UpsertOutcome, error) {
	line := record.BudgetLine
	if line == nil || line.Entity == nil || line.Entity.CanonicalName == "" {
		return interfaces.OutcomeSkipped, nil
	}
	if line.Allocated == nil && line.ActualSpent == nil {
		return interfaces.OutcomeSkipped, nil
	}

	entity, err := tx.EnsureEntity(ctx, line.Entity, country.ID)
	if err != nil {
		return interfaces.OutcomeSkipped, err
	}
	period, err := s.ensurePeriod(ctx, tx, country, line.Period, doc)
	if err != nil {
		return interfaces.OutcomeSkipped, err
	}

	return tx.UpsertBudgetLine(ctx, &models.BudgetLine{
		EntityID:         entity.ID,
		FiscalPeriodID:   period.ID,
		Category:         line.Category,
		Subcategory:      line.Subcategory,
		AllocatedAmount:  baseAmount(line.Allocated),
		ActualSpent:      baseAmount(line.ActualSpent),
		CommittedAmount:  baseAmount(line.Committed),
		Currency:         models.BaseCurrency,
		SourceDocumentID: doc.ID,
		Provenance:       stampProvenance(record.Provenance, doc.ID),
	})
}

func (s *Service) loadAudit(ctx context.Context, tx interfaces.StoreTx, country *models.Country, doc *models.SourceDocument, record *models.Record) (interfaces.UpsertOutcome, error) {
	audit := record.Audit
	if audit == nil || audit.Finding == "" {
		return interfaces.OutcomeSkipped, nil
	}
	if audit.Entity == nil || audit.Entity.CanonicalName == "" {
		// A finding we cannot attribute is unusable for accountability.
		s.logger.Debug().
			Str("url", doc.URL).
			Msg("Audit finding without entity skipped")
		return interfaces.OutcomeSkipped, nil
	}

	entity, err := tx.EnsureEntity(ctx, audit.Entity, country.ID)
	if err != nil {
		return interfaces.OutcomeSkipped, err
	}
	var periodID *int64
	if audit.Period != nil {
		period, err := tx.EnsureFiscalPeriod(ctx, audit.Period, country.ID)
		if err != nil {
			return interfaces.OutcomeSkipped, err
		}
		periodID = &period.ID
	}
	severity := audit.Severity
	if severity == "" {
		severity = models.SeverityInfo
	}

	return tx.UpsertAudit(ctx, &models.Audit{
		EntityID:          entity.ID,
		FiscalPeriodID:    periodID,
		Finding:           audit.Finding,
		Severity:          severity,
		Status:            models.AuditStatusOpen,
		RecommendedAction: audit.RecommendedAction,
		AmountInvolved:    baseAmount(audit.AmountInvolved),
		SourceDocumentID:  doc.ID,
		Provenance:        stampProvenance(record.Provenance, doc.ID),
	})
}

func (s *Service) loadLoan(ctx context.Context, tx interfaces.StoreTx, country *models.Country, doc *models.SourceDocument, record *models.Record) (interfaces.UpsertOutcome, error) {
	loan := record.Loan
	if loan == nil || loan.Lender == "" {
		return interfaces.OutcomeSkipped, nil
	}
	if loan.Principal == nil && loan.Outstanding == nil {
		return interfaces.OutcomeSkipped, nil
	}

	entity, err := s.entityOrNational(ctx, tx, country, loan.Entity)
	if err != nil {
		return interfaces.OutcomeSkipped, err
	}
	issueDate := loan.IssueDate
	if issueDate.IsZero() {
		issueDate = common.DateOnly(doc.FetchedAt)
	}
	category := loan.DebtCategory
	if category == "" {
		category = models.DebtOther
	}

	return tx.UpsertLoan(ctx, &models.Loan{
		EntityID:       entity.ID,
		Lender:         loan.Lender,
		IssueDate:      issueDate,
		Principal:      baseValue(loan.Principal),
		Outstanding:    baseValue(loan.Outstanding),
		InterestRate:   loan.InterestRate,
		MaturityDate:   loan.MaturityDate,
		Currency:       models.BaseCurrency,
		DebtCategory:   category,
		SourceDocument: doc.ID,
	})
}

func (s *Service) loadPopulation(ctx context.Context, tx interfaces.StoreTx, country *models.Country, doc *models.SourceDocument, record *models.Record) (interfaces.UpsertOutcome, error) {
	pop := record.Population
	if pop == nil || pop.TotalPopulation <= 0 || pop.Year == 0 {
		return interfaces.OutcomeSkipped, nil
	}

	entity, err := s.entityOrNational(ctx, tx, country, pop.Entity)
	if err != nil {
		return interfaces.OutcomeSkipped, err
	}

	return tx.UpsertPopulation(ctx, &models.PopulationData{
		EntityID:         entity.ID,
		Year:             pop.Year,
		TotalPopulation:  pop.TotalPopulation,
		MalePopulation:   pop.Male,
		FemalePopulation: pop.Female,
		UrbanPopulation:  pop.Urban,
		RuralPopulation:  pop.Rural,
		Density:          pop.Density,
		Confidence:       pop.Confidence,
		SourceDocumentID: doc.ID,
		Provenance:       stampProvenance(record.Provenance, doc.ID),
	})
}

func (s *Service) loadGDP(ctx context.Context, tx interfaces.StoreTx, country *models.Country, doc *models.SourceDocument, record *models.Record) (interfaces.UpsertOutcome, error) {
	gdp := record.GDP
	if gdp == nil || gdp.Value <= 0 || gdp.Year == 0 {
		return interfaces.OutcomeSkipped, nil
	}

	// NULL entity is the national series.
	var entityID *int64
	if gdp.Entity != nil && gdp.Entity.CanonicalName != "" {
		entity, err := tx.EnsureEntity(ctx, gdp.Entity, country.ID)
		if err != nil {
			return interfaces.OutcomeSkipped, err
		}
		entityID = &entity.ID
	}
	currency := gdp.Currency
	if currency == "" {
		currency = models.BaseCurrency
	}

	return tx.UpsertGDP(ctx, &models.GDPData{
		EntityID:         entityID,
		Year:             gdp.Year,
		Quarter:          gdp.Quarter,
		GDPValue:         models.Round2(gdp.Value),
		GrowthRate:       gdp.GrowthRate,
		Currency:         currency,
		Confidence:       gdp.Confidence,
		SourceDocumentID: doc.ID,
		Provenance:       stampProvenance(record.Provenance, doc.ID),
	})
}

func (s *Service) loadIndicator(ctx context.Context, tx interfaces.StoreTx, country *models.Country, doc *models.SourceDocument, record *models.Record) (interfaces.UpsertOutcome, error) {
	indicator := record.Indicator
	if indicator == nil || indicator.Type == "" || indicator.Date.IsZero() {
		return interfaces.OutcomeSkipped, nil
	}
	if indicator.Value == 0 && indicator.Unit == "" {
		// A unitless zero is indistinguishable from a parse miss.
		return interfaces.OutcomeSkipped, nil
	}

	var entityID *int64
	if indicator.Entity != nil && indicator.Entity.CanonicalName != "" {
		entity, err := tx.EnsureEntity(ctx, indicator.Entity, country.ID)
		if err != nil {
			return interfaces.OutcomeSkipped, err
		}
		entityID = &entity.ID
	}

	return tx.UpsertIndicator(ctx, &models.EconomicIndicator{
		IndicatorType:    indicator.Type,
		Date:             common.DateOnly(indicator.Date),
		EntityID:         entityID,
		Value:            indicator.Value,
		Unit:             indicator.Unit,
		Confidence:       indicator.Confidence,
		SourceDocumentID: doc.ID,
		Provenance:       stampProvenance(record.Provenance, doc.ID),
	})
}

func (s *Service) loadPoverty(ctx context.Context, tx interfaces.StoreTx, country *models.Country, doc *models.SourceDocument, record *models.Record) (interfaces.UpsertOutcome, error) {
	poverty := record.Poverty
	if poverty == nil || poverty.Year == 0 {
		return interfaces.OutcomeSkipped, nil
	}
	if poverty.PovertyRate == nil && poverty.ExtremeRate == nil && poverty.Gini == nil {
		return interfaces.OutcomeSkipped, nil
	}

	entity, err := s.entityOrNational(ctx, tx, country, poverty.Entity)
	if err != nil {
		return interfaces.OutcomeSkipped, err
	}

	return tx.UpsertPoverty(ctx, &models.PovertyIndex{
		EntityID:         entity.ID,
		Year:             poverty.Year,
		PovertyRate:      poverty.PovertyRate,
		ExtremeRate:      poverty.ExtremeRate,
		Gini:             poverty.Gini,
		Confidence:       poverty.Confidence,
		SourceDocumentID: doc.ID,
		Provenance:       stampProvenance(record.Provenance, doc.ID),
	})
}

// entityOrNational resolves the record's entity, falling back to the
// national government for country-level facts published without one.
func (s *Service) entityOrNational(ctx context.Context, tx interfaces.StoreTx, country *models.Country, info *models.EntityInfo) (*models.Entity, error) {
	if info != nil && info.CanonicalName != "" {
		return tx.EnsureEntity(ctx, info, country.ID)
	}
	return tx.EnsureEntity(ctx, &models.EntityInfo{
		CanonicalName: nationalEntityName,
		Type:          models.EntityTypeNational,
		Confidence:    1,
	}, country.ID)
}

// ensurePeriod resolves a row's fiscal period, deriving it from the
// document when the parser could not: the discovery-inferred year first,
// then the fetch date's fiscal year.
func (s *Service) ensurePeriod(ctx context.Context, tx interfaces.StoreTx, country *models.Country, info *models.FiscalPeriodInfo, doc *models.SourceDocument) (*models.FiscalPeriod, error) {
	if info == nil {
		startYear := common.FiscalYearStart(doc.FetchedAt)
		if year := docMetaYear(doc); year > 0 {
			startYear = year
		}
		start, end := common.FiscalYearBounds(startYear)
		info = &models.FiscalPeriodInfo{
			Label:     common.FiscalYearLabel(startYear),
			StartDate: start,
			EndDate:   end,
		}
	}
	return tx.EnsureFiscalPeriod(ctx, info, country.ID)
}

// docMetaYear reads the discovery-inferred year from document metadata,
// 0 when absent. The value is an int in-process and a float64 after a
// JSON round trip.
func docMetaYear(doc *models.SourceDocument) int {
	if doc.Metadata == nil {
		return 0
	}
	switch v := doc.Metadata["year"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

// stampProvenance writes the now-known document id into every provenance
// entry before it is persisted.
func stampProvenance(provenance []models.Provenance, documentID int64) []models.Provenance {
	stamped := make([]models.Provenance, len(provenance))
	copy(stamped, provenance)
	for i := range stamped {
		stamped[i].SourceDocumentID = documentID
	}
	return stamped
}

// baseAmount projects an Amount onto its rounded base-currency value.
func baseAmount(a *models.Amount) *float64 {
	if a == nil {
		return nil
	}
	v := models.Round2(a.BaseAmount)
	return &v
}

func baseValue(a *models.Amount) float64 {
	if a == nil {
		return 0
	}
	return models.Round2(a.BaseAmount)
}
