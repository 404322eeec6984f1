package normalizer

import (
	"testing"
	"time"

	"github.com/openkenya/hazina/internal/models"
)

func budgetExtraction() *models.ExtractionResult {
	return &models.ExtractionResult{
		ExtractorName: "test",
		Tables: []models.TableRef{
			{
				Page:       3,
				TableIndex: 0,
				Data: models.Table{
					Headers: []string{"County", "Approved Budget (KSh. Million)", "Actual Expenditure (KSh. Million)"},
					Rows: [][]string{
						{"Nairobi", "42,000", "38,500"},
						{"Kiambu", "18,300", "17,100"},
						{"Grand Total", "60,300", "55,600"},
						{"Mombasa", "", ""},
					},
				},
			},
		},
		Confidence:     0.8,
		ExtractionDate: time.Now().UTC(),
	}
}

func TestNormalizeExtractedData(t *testing.T) {
	records := NormalizeExtractedData(budgetExtraction(), "cob", testRates)

	// Grand Total has no entity; Mombasa has no amounts.
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	first := records[0]
	if first.Kind != models.KindBudgetLine {
		t.Errorf("Kind = %s, want budget_line", first.Kind)
	}
	if first.BudgetLine == nil {
		t.Fatal("BudgetLine payload is nil")
	}
	if first.BudgetLine.Entity.CanonicalName != "Nairobi County" {
		t.Errorf("Entity = %q, want Nairobi County", first.BudgetLine.Entity.CanonicalName)
	}
	// Header caption scales millions.
	if first.BudgetLine.Allocated == nil || first.BudgetLine.Allocated.BaseAmount != 42_000_000_000 {
		t.Errorf("Allocated = %+v, want base 42000000000", first.BudgetLine.Allocated)
	}
	if first.BudgetLine.ActualSpent == nil || first.BudgetLine.ActualSpent.BaseAmount != 38_500_000_000 {
		t.Errorf("ActualSpent = %+v, want base 38500000000", first.BudgetLine.ActualSpent)
	}
	if first.BudgetLine.Category != "general" {
		t.Errorf("Category = %q, want general", first.BudgetLine.Category)
	}

	if len(first.Provenance) != 1 {
		t.Fatalf("Provenance entries = %d, want 1", len(first.Provenance))
	}
	prov := first.Provenance[0]
	if prov.Page != 3 {
		t.Errorf("Provenance.Page = %d, want 3", prov.Page)
	}
	if prov.TableIndex == nil || *prov.TableIndex != 0 {
		t.Errorf("Provenance.TableIndex = %v, want 0", prov.TableIndex)
	}
	if prov.RowIndex == nil || *prov.RowIndex != 0 {
		t.Errorf("Provenance.RowIndex = %v, want 0", prov.RowIndex)
	}
	if prov.Confidence <= 0 || prov.Confidence > 1 {
		t.Errorf("Provenance.Confidence = %f, want (0,1]", prov.Confidence)
	}
}

func TestNormalizeExtractedDataSkipsRolelessTables(t *testing.T) {
	extraction := &models.ExtractionResult{
		Tables: []models.TableRef{
			{
				Page: 1,
				Data: models.Table{
					Headers: []string{"Month", "Rainfall"},
					Rows:    [][]string{{"January", "120"}},
				},
			},
		},
	}

	if records := NormalizeExtractedData(extraction, "knbs", testRates); len(records) != 0 {
		t.Errorf("got %d records from roleless table, want 0", len(records))
	}
}

func TestNormalizeExtractedDataNil(t *testing.T) {
	if records := NormalizeExtractedData(nil, "cob", testRates); records != nil {
		t.Errorf("nil extraction should yield nil records, got %v", records)
	}
}

func TestNormalizeExtractedDataPeriodColumn(t *testing.T) {
	extraction := &models.ExtractionResult{
		Tables: []models.TableRef{
			{
				Page: 2,
				Data: models.Table{
					Headers: []string{"Entity", "Financial Year", "Allocation"},
					Rows: [][]string{
						{"Machakos County", "FY 2022/23", "KES 9,500,000,000"},
					},
				},
			},
		},
	}

	records := NormalizeExtractedData(extraction, "treasury", testRates)
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	line := records[0].BudgetLine
	if line.Period == nil || line.Period.Label != "FY2022/23" {
		t.Errorf("Period = %+v, want FY2022/23", line.Period)
	}
	if line.Allocated == nil || line.Allocated.BaseAmount != 9_500_000_000 {
		t.Errorf("Allocated = %+v, want 9500000000", line.Allocated)
	}
}
