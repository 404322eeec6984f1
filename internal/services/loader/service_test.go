package loader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/openkenya/hazina/internal/common"
	"github.com/openkenya/hazina/internal/interfaces"
	"github.com/openkenya/hazina/internal/models"
)

// fakeTx emulates the per-document write surface in memory, including the
// probe/update/insert outcome discipline of the real store.
type fakeTx struct {
	nextID    int64
	countries map[string]*models.Country
	entities  map[string]*models.Entity
	periods   map[string]*models.FiscalPeriod

	docs        []*models.SourceDocument
	extractions []models.Extraction
	touched     []int64
	revised     []int64

	budgets    map[string]*models.BudgetLine
	audits     map[string]*models.Audit
	population map[string]*models.PopulationData
	gdp        map[string]*models.GDPData
	indicators map[string]*models.EconomicIndicator
	poverty    map[string]*models.PovertyIndex
	loans      map[string]*models.Loan

	failKind models.RecordKind // force an upsert error for this kind
}

func newFakeTx() *fakeTx {
	return &fakeTx{
		countries:  make(map[string]*models.Country),
		entities:   make(map[string]*models.Entity),
		periods:    make(map[string]*models.FiscalPeriod),
		budgets:    make(map[string]*models.BudgetLine),
		audits:     make(map[string]*models.Audit),
		population: make(map[string]*models.PopulationData),
		gdp:        make(map[string]*models.GDPData),
		indicators: make(map[string]*models.EconomicIndicator),
		poverty:    make(map[string]*models.PovertyIndex),
		loans:      make(map[string]*models.Loan),
	}
}

func (f *fakeTx) id() int64 { f.nextID++; return f.nextID }

func (f *fakeTx) EnsureCountry(ctx context.Context, isoCode string) (*models.Country, error) {
	if c, ok := f.countries[isoCode]; ok {
		return c, nil
	}
	c := &models.Country{ID: f.id(), ISOCode: isoCode, Name: isoCode, Currency: models.BaseCurrency}
	f.countries[isoCode] = c
	return c, nil
}

func (f *fakeTx) EnsureEntity(ctx context.Context, info *models.EntityInfo, countryID int64) (*models.Entity, error) {
	if e, ok := f.entities[info.CanonicalName]; ok {
		return e, nil
	}
	e := &models.Entity{
		ID:            f.id(),
		CountryID:     countryID,
		Type:          info.Type,
		CanonicalName: info.CanonicalName,
		Slug:          models.Slugify(info.CanonicalName),
	}
	f.entities[info.CanonicalName] = e
	return e, nil
}

func (f *fakeTx) EnsureFiscalPeriod(ctx context.Context, info *models.FiscalPeriodInfo, countryID int64) (*models.FiscalPeriod, error) {
	if p, ok := f.periods[info.Label]; ok {
		return p, nil
	}
	p := &models.FiscalPeriod{ID: f.id(), CountryID: countryID, Label: info.Label, StartDate: info.StartDate, EndDate: info.EndDate}
	f.periods[info.Label] = p
	return p, nil
}

func (f *fakeTx) FindDocumentByMD5(ctx context.Context, md5 string) (*models.SourceDocument, error) {
	for _, d := range f.docs {
		if d.MD5 == md5 {
			return d, nil
		}
	}
	return nil, nil
}

func (f *fakeTx) FindDocumentByURL(ctx context.Context, url string) (*models.SourceDocument, error) {
	for _, d := range f.docs {
		if d.URL == url {
			return d, nil
		}
	}
	return nil, nil
}

func (f *fakeTx) InsertDocument(ctx context.Context, doc *models.SourceDocument) (int64, error) {
	clone := *doc
	clone.ID = f.id()
	f.docs = append(f.docs, &clone)
	return clone.ID, nil
}

func (f *fakeTx) TouchDocument(ctx context.Context, id int64) error {
	f.touched = append(f.touched, id)
	return nil
}

func (f *fakeTx) UpdateDocumentArtifact(ctx context.Context, id int64, md5, filePath string, fetchedAt time.Time) error {
	for _, d := range f.docs {
		if d.ID == id {
			d.MD5 = md5
			d.FilePath = filePath
			d.FetchedAt = fetchedAt
		}
	}
	f.revised = append(f.revised, id)
	return nil
}

func (f *fakeTx) InsertExtraction(ctx context.Context, extraction *models.Extraction) error {
	f.extractions = append(f.extractions, *extraction)
	return nil
}

func coalesce(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}

func (f *fakeTx) UpsertBudgetLine(ctx context.Context, row *models.BudgetLine) (interfaces.UpsertOutcome, error) {
	if f.failKind == models.KindBudgetLine {
		return interfaces.OutcomeSkipped, errors.New("forced budget failure")
	}
	key := fmt.Sprintf("%d|%d|%s|%s", row.EntityID, row.FiscalPeriodID, row.Category, row.Subcategory)
	if existing, ok := f.budgets[key]; ok {
		if existing.SourceDocumentID == row.SourceDocumentID {
			return interfaces.OutcomeSkipped, nil
		}
		existing.AllocatedAmount = row.AllocatedAmount
		existing.ActualSpent = row.ActualSpent
		existing.CommittedAmount = row.CommittedAmount
		return interfaces.OutcomeUpdated, nil
	}
	clone := *row
	f.budgets[key] = &clone
	return interfaces.OutcomeCreated, nil
}

func (f *fakeTx) UpsertAudit(ctx context.Context, row *models.Audit) (interfaces.UpsertOutcome, error) {
	key := fmt.Sprintf("%d|%d|%s", row.EntityID, coalesce(row.FiscalPeriodID), row.Finding)
	if existing, ok := f.audits[key]; ok {
		if existing.SourceDocumentID == row.SourceDocumentID {
			return interfaces.OutcomeSkipped, nil
		}
		existing.Severity = row.Severity
		existing.RecommendedAction = row.RecommendedAction
		existing.AmountInvolved = row.AmountInvolved
		return interfaces.OutcomeUpdated, nil
	}
	clone := *row
	f.audits[key] = &clone
	return interfaces.OutcomeCreated, nil
}

func (f *fakeTx) UpsertPopulation(ctx context.Context, row *models.PopulationData) (interfaces.UpsertOutcome, error) {
	key := fmt.Sprintf("%d|%d", row.EntityID, row.Year)
	if existing, ok := f.population[key]; ok {
		if existing.SourceDocumentID == row.SourceDocumentID {
			return interfaces.OutcomeSkipped, nil
		}
		existing.TotalPopulation = row.TotalPopulation
		return interfaces.OutcomeUpdated, nil
	}
	clone := *row
	f.population[key] = &clone
	return interfaces.OutcomeCreated, nil
}

func (f *fakeTx) UpsertGDP(ctx context.Context, row *models.GDPData) (interfaces.UpsertOutcome, error) {
	quarter := 0
	if row.Quarter != nil {
		quarter = *row.Quarter
	}
	key := fmt.Sprintf("%d|%d|%d", coalesce(row.EntityID), row.Year, quarter)
	if existing, ok := f.gdp[key]; ok {
		if existing.SourceDocumentID == row.SourceDocumentID {
			return interfaces.OutcomeSkipped, nil
		}
		existing.GDPValue = row.GDPValue
		return interfaces.OutcomeUpdated, nil
	}
	clone := *row
	f.gdp[key] = &clone
	return interfaces.OutcomeCreated, nil
}

func (f *fakeTx) UpsertIndicator(ctx context.Context, row *models.EconomicIndicator) (interfaces.UpsertOutcome, error) {
	key := fmt.Sprintf("%s|%s|%d", row.IndicatorType, row.Date.Format("2006-01-02"), coalesce(row.EntityID))
	if existing, ok := f.indicators[key]; ok {
		if existing.SourceDocumentID == row.SourceDocumentID {
			return interfaces.OutcomeSkipped, nil
		}
		existing.Value = row.Value
		return interfaces.OutcomeUpdated, nil
	}
	clone := *row
	f.indicators[key] = &clone
	return interfaces.OutcomeCreated, nil
}

func (f *fakeTx) UpsertPoverty(ctx context.Context, row *models.PovertyIndex) (interfaces.UpsertOutcome, error) {
	key := fmt.Sprintf("%d|%d", row.EntityID, row.Year)
	if existing, ok := f.poverty[key]; ok {
		if existing.SourceDocumentID == row.SourceDocumentID {
			return interfaces.OutcomeSkipped, nil
		}
		existing.PovertyRate = row.PovertyRate
		return interfaces.OutcomeUpdated, nil
	}
	clone := *row
	f.poverty[key] = &clone
	return interfaces.OutcomeCreated, nil
}

func (f *fakeTx) UpsertLoan(ctx context.Context, row *models.Loan) (interfaces.UpsertOutcome, error) {
	key := fmt.Sprintf("%d|%s|%s", row.EntityID, row.Lender, row.IssueDate.Format("2006-01-02"))
	if existing, ok := f.loans[key]; ok {
		if existing.SourceDocument == row.SourceDocument {
			return interfaces.OutcomeSkipped, nil
		}
		existing.Outstanding = row.Outstanding
		return interfaces.OutcomeUpdated, nil
	}
	clone := *row
	f.loans[key] = &clone
	return interfaces.OutcomeCreated, nil
}

func (f *fakeTx) UpsertDebtTimeline(ctx context.Context, row *models.DebtTimeline) (interfaces.UpsertOutcome, error) {
	return interfaces.OutcomeUpdated, nil
}

func (f *fakeTx) UpsertFiscalSummary(ctx context.Context, row *models.FiscalSummary) (interfaces.UpsertOutcome, error) {
	return interfaces.OutcomeUpdated, nil
}

func (f *fakeTx) UpsertRevenueBySource(ctx context.Context, row *models.RevenueBySource) (interfaces.UpsertOutcome, error) {
	return interfaces.OutcomeUpdated, nil
}

// fakeStore satisfies interfaces.Store for the methods the loader uses;
// anything else panics through the embedded nil interface.
type fakeStore struct {
	interfaces.Store
	tx   *fakeTx
	jobs map[string]*models.IngestionJob
}

func newFakeStore() *fakeStore {
	return &fakeStore{tx: newFakeTx(), jobs: make(map[string]*models.IngestionJob)}
}

func (f *fakeStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx interfaces.StoreTx) error) error {
	return fn(ctx, f.tx)
}

func (f *fakeStore) CreateJob(ctx context.Context, job *models.IngestionJob) error {
	clone := *job
	f.jobs[job.ID] = &clone
	return nil
}

func (f *fakeStore) UpdateJob(ctx context.Context, job *models.IngestionJob) error {
	if _, ok := f.jobs[job.ID]; !ok {
		return errors.New("job not found")
	}
	clone := *job
	f.jobs[job.ID] = &clone
	return nil
}

func testDoc(url, md5 string) *models.SourceDocument {
	return &models.SourceDocument{
		Source:     "National Treasury",
		SourceKey:  models.SourceTreasury,
		Title:      "Budget Statement FY2023/24",
		URL:        url,
		FilePath:   "downloads/treasury_budget.pdf",
		FetchedAt:  time.Date(2024, 2, 10, 9, 0, 0, 0, time.UTC),
		MD5:        md5,
		DocType:    models.DocTypeBudget,
		Status:     models.DocStatusAvailable,
		LastSeenAt: time.Date(2024, 2, 10, 9, 0, 0, 0, time.UTC),
	}
}

func amount(v float64) *models.Amount {
	return &models.Amount{Amount: v, Currency: models.BaseCurrency, BaseAmount: v, BaseCurrency: models.BaseCurrency, Confidence: 0.9}
}

func prov(page int) []models.Provenance {
	return []models.Provenance{{Page: page, Confidence: 0.8, ExtractionDate: time.Date(2024, 2, 10, 9, 0, 0, 0, time.UTC)}}
}

func fullRecordSet() []models.Record {
	period := &models.FiscalPeriodInfo{
		Label:     "FY2023/24",
		StartDate: time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
	}
	health := &models.EntityInfo{CanonicalName: "Ministry of Health", Type: models.EntityTypeMinistry, Confidence: 1, RawName: "MOH"}
	nairobi := &models.EntityInfo{CanonicalName: "Nairobi County", Type: models.EntityTypeCounty, Confidence: 1, RawName: "Nairobi"}
	rate := 4.2

	return []models.Record{
		{
			Kind: models.KindBudgetLine,
			BudgetLine: &models.BudgetLineRecord{
				Entity: health, Period: period, Category: "Development",
				Allocated: amount(1_500_000_000), ActualSpent: amount(900_000_000),
			},
			Provenance: prov(3),
		},
		{
			Kind: models.KindAuditFinding,
			Audit: &models.AuditRecord{
				Entity: nairobi, Period: period,
				Finding:  "Unsupported expenditure of KES 120,000,000 on roadworks",
				Severity: models.SeverityCritical, AmountInvolved: amount(120_000_000),
			},
			Provenance: prov(12),
		},
		{
			Kind: models.KindLoan,
			Loan: &models.LoanRecord{
				Lender: "World Bank", IssueDate: time.Date(2022, 3, 15, 0, 0, 0, 0, time.UTC),
				Principal: amount(50_000_000_000), Outstanding: amount(42_000_000_000),
				DebtCategory: models.DebtExternalMultilateral,
			},
			Provenance: prov(5),
		},
		{
			Kind:       models.KindPopulation,
			Population: &models.PopulationRecord{Entity: nairobi, Year: 2023, TotalPopulation: 4_750_000, Confidence: 0.8},
			Provenance: prov(7),
		},
		{
			Kind:       models.KindGDP,
			GDP:        &models.GDPRecord{Year: 2023, Value: 13_400_000_000_000, GrowthRate: &rate, Currency: models.BaseCurrency, Confidence: 0.8},
			Provenance: prov(9),
		},
		{
			Kind:       models.KindIndicator,
			Indicator:  &models.IndicatorRecord{Type: models.IndicatorInflation, Date: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), Value: 6.9, Unit: "%", Confidence: 0.8},
			Provenance: prov(11),
		},
		{
			Kind:       models.KindPoverty,
			Poverty:    &models.PovertyRecord{Entity: nairobi, Year: 2022, PovertyRate: &rate, Confidence: 0.7},
			Provenance: prov(13),
		},
	}
}

func TestLoadDocumentCreatesAllKinds(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, common.GetLogger())

	doc := testDoc("https://treasury.go.ke/budget-2024.pdf", "aaa111")
	extraction := &models.ExtractionResult{
		ExtractorName: "pdfcpu",
		Confidence:    0.85,
		Pages: []models.PageContent{
			{PageNumber: 1, Text: "BUDGET STATEMENT"},
			{PageNumber: 2}, // empty page not persisted
		},
	}

	result, err := svc.LoadDocument(context.Background(), doc, extraction, fullRecordSet())
	if err != nil {
		t.Fatalf("LoadDocument failed: %v", err)
	}
	if result.Created != 7 {
		t.Errorf("Created = %d, want 7", result.Created)
	}
	if result.Updated != 0 || result.Skipped != 0 {
		t.Errorf("Updated/Skipped = %d/%d, want 0/0", result.Updated, result.Skipped)
	}
	if result.DocumentID == 0 || doc.ID != result.DocumentID {
		t.Errorf("DocumentID = %d, doc.ID = %d", result.DocumentID, doc.ID)
	}
	if len(store.tx.docs) != 1 {
		t.Fatalf("documents = %d, want 1", len(store.tx.docs))
	}
	if len(store.tx.extractions) != 1 {
		t.Errorf("extraction pages = %d, want 1 (empty page skipped)", len(store.tx.extractions))
	}

	// Provenance is stamped with the document id before persisting.
	for key, line := range store.tx.budgets {
		if len(line.Provenance) != 1 || line.Provenance[0].SourceDocumentID != doc.ID {
			t.Errorf("budget %s provenance not stamped: %+v", key, line.Provenance)
		}
	}
}

func TestLoadDocumentIdempotent(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, common.GetLogger())
	records := fullRecordSet()

	doc := testDoc("https://treasury.go.ke/budget-2024.pdf", "aaa111")
	if _, err := svc.LoadDocument(context.Background(), doc, nil, records); err != nil {
		t.Fatalf("first load failed: %v", err)
	}

	again := testDoc("https://treasury.go.ke/budget-2024.pdf", "aaa111")
	result, err := svc.LoadDocument(context.Background(), again, nil, fullRecordSet())
	if err != nil {
		t.Fatalf("second load failed: %v", err)
	}
	if result.Created != 0 || result.Updated != 0 {
		t.Errorf("Created/Updated = %d/%d, want 0/0", result.Created, result.Updated)
	}
	if result.Skipped != 7 {
		t.Errorf("Skipped = %d, want 7", result.Skipped)
	}
	if len(store.tx.docs) != 1 {
		t.Errorf("documents = %d, want 1 (md5 hit reuses row)", len(store.tx.docs))
	}
	if len(store.tx.touched) != 1 {
		t.Errorf("touched = %v, want one touch", store.tx.touched)
	}
}

func TestReingestFromNewDocumentUpdatesValues(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, common.GetLogger())

	doc := testDoc("https://treasury.go.ke/budget-2024.pdf", "aaa111")
	if _, err := svc.LoadDocument(context.Background(), doc, nil, fullRecordSet()); err != nil {
		t.Fatalf("first load failed: %v", err)
	}
	firstID := doc.ID

	// A revised edition republished at a new URL carries the same facts
	// with corrected values.
	records := fullRecordSet()
	records[0].BudgetLine.ActualSpent = amount(1_100_000_000)
	revised := testDoc("https://treasury.go.ke/budget-2024-rev.pdf", "bbb222")

	result, err := svc.LoadDocument(context.Background(), revised, nil, records)
	if err != nil {
		t.Fatalf("revised load failed: %v", err)
	}
	if result.Updated != 7 {
		t.Errorf("Updated = %d, want 7", result.Updated)
	}

	for _, line := range store.tx.budgets {
		if got := *line.ActualSpent; got != 1_100_000_000 {
			t.Errorf("ActualSpent = %v, want updated value", got)
		}
		// Provenance keeps pointing at the first document.
		if line.SourceDocumentID != firstID {
			t.Errorf("SourceDocumentID = %d, want original %d", line.SourceDocumentID, firstID)
		}
	}
}

func TestArtifactRevisionBehindStableURL(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, common.GetLogger())

	doc := testDoc("https://treasury.go.ke/latest-budget.pdf", "aaa111")
	if _, err := svc.LoadDocument(context.Background(), doc, nil, nil); err != nil {
		t.Fatalf("first load failed: %v", err)
	}

	replaced := testDoc("https://treasury.go.ke/latest-budget.pdf", "ccc333")
	result, err := svc.LoadDocument(context.Background(), replaced, nil, nil)
	if err != nil {
		t.Fatalf("replaced load failed: %v", err)
	}
	if result.DocumentID != doc.ID {
		t.Errorf("DocumentID = %d, want stable %d", result.DocumentID, doc.ID)
	}
	if len(store.tx.docs) != 1 {
		t.Errorf("documents = %d, want 1", len(store.tx.docs))
	}
	if len(store.tx.revised) != 1 {
		t.Errorf("revisions = %v, want one", store.tx.revised)
	}
	if store.tx.docs[0].MD5 != "ccc333" {
		t.Errorf("md5 = %q, want new hash", store.tx.docs[0].MD5)
	}
}

func TestSkipRules(t *testing.T) {
	rate := 4.2
	cases := []struct {
		name   string
		record models.Record
	}{
		{"population zero total", models.Record{
			Kind:       models.KindPopulation,
			Population: &models.PopulationRecord{Entity: &models.EntityInfo{CanonicalName: "Nairobi County"}, Year: 2023},
		}},
		{"gdp zero value", models.Record{
			Kind: models.KindGDP,
			GDP:  &models.GDPRecord{Year: 2023},
		}},
		{"indicator missing type", models.Record{
			Kind:      models.KindIndicator,
			Indicator: &models.IndicatorRecord{Date: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), Value: 5},
		}},
		{"indicator missing date", models.Record{
			Kind:      models.KindIndicator,
			Indicator: &models.IndicatorRecord{Type: models.IndicatorCPI, Value: 5},
		}},
		{"indicator unitless zero", models.Record{
			Kind:      models.KindIndicator,
			Indicator: &models.IndicatorRecord{Type: models.IndicatorCPI, Date: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)},
		}},
		{"budget line without amounts", models.Record{
			Kind:       models.KindBudgetLine,
			BudgetLine: &models.BudgetLineRecord{Entity: &models.EntityInfo{CanonicalName: "Ministry of Health"}, Category: "Recurrent"},
		}},
		{"budget line without entity", models.Record{
			Kind:       models.KindBudgetLine,
			BudgetLine: &models.BudgetLineRecord{Category: "Recurrent", Allocated: amount(100)},
		}},
		{"audit without entity", models.Record{
			Kind:  models.KindAuditFinding,
			Audit: &models.AuditRecord{Finding: "Missing supporting documents", Severity: models.SeverityInfo},
		}},
		{"loan without amounts", models.Record{
			Kind: models.KindLoan,
			Loan: &models.LoanRecord{Lender: "AfDB", IssueDate: time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)},
		}},
		{"poverty without rates", models.Record{
			Kind:    models.KindPoverty,
			Poverty: &models.PovertyRecord{Entity: &models.EntityInfo{CanonicalName: "Nairobi County"}, Year: 2022},
		}},
		{"unknown kind", models.Record{Kind: models.RecordKind("mystery")}},
		{"poverty with gini only", models.Record{
			Kind:    models.KindPoverty,
			Poverty: &models.PovertyRecord{Entity: &models.EntityInfo{CanonicalName: "Nairobi County"}, Year: 2022, Gini: &rate},
		}},
	}

	store := newFakeStore()
	svc := NewService(store, common.GetLogger())
	doc := testDoc("https://oag.go.ke/report.pdf", "ddd444")

	var records []models.Record
	for _, tc := range cases {
		records = append(records, tc.record)
	}
	result, err := svc.LoadDocument(context.Background(), doc, nil, records)
	if err != nil {
		t.Fatalf("LoadDocument failed: %v", err)
	}
	// Only the gini-only poverty row survives validation.
	if result.Created != 1 {
		t.Errorf("Created = %d, want 1", result.Created)
	}
	if result.Skipped != len(cases)-1 {
		t.Errorf("Skipped = %d, want %d", result.Skipped, len(cases)-1)
	}
}

func TestNationalFallbackEntities(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, common.GetLogger())
	doc := testDoc("https://knbs.or.ke/economic-survey.pdf", "eee555")
	rate := 36.1

	records := []models.Record{
		{
			Kind:       models.KindPopulation,
			Population: &models.PopulationRecord{Year: 2023, TotalPopulation: 51_000_000, Confidence: 0.8},
			Provenance: prov(1),
		},
		{
			Kind:       models.KindPoverty,
			Poverty:    &models.PovertyRecord{Year: 2022, PovertyRate: &rate, Confidence: 0.7},
			Provenance: prov(2),
		},
		{
			Kind:       models.KindGDP,
			GDP:        &models.GDPRecord{Year: 2023, Value: 13_400_000_000_000, Confidence: 0.8},
			Provenance: prov(3),
		},
	}

	if _, err := svc.LoadDocument(context.Background(), doc, nil, records); err != nil {
		t.Fatalf("LoadDocument failed: %v", err)
	}

	national, ok := store.tx.entities[nationalEntityName]
	if !ok {
		t.Fatal("national fallback entity not created")
	}
	if national.Type != models.EntityTypeNational {
		t.Errorf("national entity type = %q", national.Type)
	}
	for _, pop := range store.tx.population {
		if pop.EntityID != national.ID {
			t.Errorf("population entity = %d, want national %d", pop.EntityID, national.ID)
		}
	}
	// GDP without an entity stays NULL: the national series.
	for _, g := range store.tx.gdp {
		if g.EntityID != nil {
			t.Errorf("gdp entity = %v, want nil", *g.EntityID)
		}
	}
}

func TestBudgetPeriodDerivedFromDocument(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, common.GetLogger())

	doc := testDoc("https://treasury.go.ke/supplementary.pdf", "fff666")
	doc.Metadata = map[string]interface{}{"year": 2022}

	records := []models.Record{{
		Kind: models.KindBudgetLine,
		BudgetLine: &models.BudgetLineRecord{
			Entity:    &models.EntityInfo{CanonicalName: "Ministry of Health", Type: models.EntityTypeMinistry},
			Category:  "Recurrent",
			Allocated: amount(1000),
		},
		Provenance: prov(1),
	}}

	if _, err := svc.LoadDocument(context.Background(), doc, nil, records); err != nil {
		t.Fatalf("LoadDocument failed: %v", err)
	}
	if _, ok := store.tx.periods["FY2022/23"]; !ok {
		t.Errorf("periods = %v, want FY2022/23 from document metadata", keysOf(store.tx.periods))
	}
}

func TestLoadDocumentRollsBackOnUpsertError(t *testing.T) {
	store := newFakeStore()
	store.tx.failKind = models.KindBudgetLine
	svc := NewService(store, common.GetLogger())

	doc := testDoc("https://treasury.go.ke/budget-2024.pdf", "aaa111")
	result, err := svc.LoadDocument(context.Background(), doc, nil, fullRecordSet())
	if err == nil {
		t.Fatal("expected error from forced upsert failure")
	}
	if !strings.Contains(err.Error(), doc.URL) {
		t.Errorf("error %q does not name the document", err)
	}
	if result.Created != 0 && result.Updated != 0 {
		t.Errorf("result not zeroed after rollback: %+v", result)
	}
}

func TestJobLifecycle(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, common.GetLogger())

	job, err := svc.StartJob(context.Background(), models.SourceTreasury, false)
	if err != nil {
		t.Fatalf("StartJob failed: %v", err)
	}
	if job.ID == "" || job.Status != models.JobStatusRunning {
		t.Errorf("job = %+v, want running with id", job)
	}
	if _, ok := store.jobs[job.ID]; !ok {
		t.Fatal("job row not created")
	}

	job.RecordsProcessed = 10
	job.RecordsCreated = 8
	if err := svc.FinishJob(context.Background(), job); err != nil {
		t.Fatalf("FinishJob failed: %v", err)
	}
	if job.Status != models.JobStatusCompleted {
		t.Errorf("status = %q, want completed", job.Status)
	}
	if job.CompletedAt == nil {
		t.Error("CompletedAt not stamped")
	}

	// Errors collected during the run derive the terminal state.
	errored, _ := svc.StartJob(context.Background(), models.SourceOAG, false)
	errored.Errors = append(errored.Errors, "https://oag.go.ke/x.pdf: fetch failed")
	if err := svc.FinishJob(context.Background(), errored); err != nil {
		t.Fatalf("FinishJob failed: %v", err)
	}
	if errored.Status != models.JobStatusCompletedWithErrors {
		t.Errorf("status = %q, want completed_with_errors", errored.Status)
	}

	// An explicitly failed job keeps its status.
	failed, _ := svc.StartJob(context.Background(), models.SourceCOB, true)
	failed.Status = models.JobStatusFailed
	if err := svc.FinishJob(context.Background(), failed); err != nil {
		t.Fatalf("FinishJob failed: %v", err)
	}
	if failed.Status != models.JobStatusFailed {
		t.Errorf("status = %q, want failed", failed.Status)
	}
}

func keysOf(m map[string]*models.FiscalPeriod) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
