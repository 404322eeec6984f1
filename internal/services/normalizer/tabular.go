package normalizer

import (
	"strings"
	"time"

	"github.com/openkenya/hazina/internal/models"
)

// Role-column keyword sets. A header cell is assigned the first role
// whose keyword list matches it.
var (
	entityHeaderWords    = []string{"county", "entity", "ministry", "department", "agency", "vote", "name", "institution"}
	allocatedHeaderWords = []string{"allocation", "allocated", "approved", "budget", "estimates", "printed", "supply"}
	actualHeaderWords    = []string{"actual", "spent", "expenditure", "absorption", "disbursed", "exchequer"}
	categoryHeaderWords  = []string{"category", "item", "economic", "classification", "programme", "program", "sector"}
	periodHeaderWords    = []string{"year", "period", "fy"}
)

// tableRoles records which column serves which role; -1 means absent.
type tableRoles struct {
	entity    int
	allocated int
	actual    int
	category  int
	period    int
}

func detectRoles(headers []string) tableRoles {
	roles := tableRoles{entity: -1, allocated: -1, actual: -1, category: -1, period: -1}
	for i, header := range headers {
		lowered := strings.ToLower(header)
		switch {
		case roles.entity < 0 && headerMatches(lowered, entityHeaderWords):
			roles.entity = i
		case roles.actual < 0 && headerMatches(lowered, actualHeaderWords):
			roles.actual = i
		case roles.allocated < 0 && headerMatches(lowered, allocatedHeaderWords):
			roles.allocated = i
		case roles.category < 0 && headerMatches(lowered, categoryHeaderWords):
			roles.category = i
		case roles.period < 0 && headerMatches(lowered, periodHeaderWords):
			roles.period = i
		}
	}
	return roles
}

func headerMatches(lowered string, words []string) bool {
	for _, w := range words {
		if strings.Contains(lowered, w) {
			return true
		}
	}
	return false
}

// NormalizeExtractedData walks every extracted table, detects role
// columns by header keywords, and emits one budget-line record per row
// that carries at least a recognizable entity and one amount. Rows whose
// entity does not normalize are dropped. The magnitude context for
// amounts is the matched amount column's header ("KSh. Million" style
// captions scale the cell values).
func NormalizeExtractedData(extraction *models.ExtractionResult, sourceKey string, rates map[string]float64) []models.Record {
	if extraction == nil {
		return nil
	}

	var records []models.Record
	for _, ref := range extraction.Tables {
		roles := detectRoles(ref.Data.Headers)
		if roles.entity < 0 || (roles.allocated < 0 && roles.actual < 0) {
			continue
		}

		for rowIdx, row := range ref.Data.Rows {
			record := normalizeRow(row, roles, ref, rowIdx, rates)
			if record != nil {
				records = append(records, *record)
			}
		}
	}
	return records
}

func normalizeRow(row []string, roles tableRoles, ref models.TableRef, rowIdx int, rates map[string]float64) *models.Record {
	cell := func(idx int) string {
		if idx >= 0 && idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	entity := NormalizeEntityName(cell(roles.entity))
	if entity == nil {
		return nil
	}

	var allocated, actual *models.Amount
	confidence := entity.Confidence
	if roles.allocated >= 0 {
		allocated = NormalizeAmount(cell(roles.allocated), headerAt(ref.Data.Headers, roles.allocated), rates)
	}
	if roles.actual >= 0 {
		actual = NormalizeAmount(cell(roles.actual), headerAt(ref.Data.Headers, roles.actual), rates)
	}
	if allocated == nil && actual == nil {
		return nil
	}
	if allocated != nil && allocated.Confidence < confidence {
		confidence = allocated.Confidence
	}
	if actual != nil && actual.Confidence < confidence {
		confidence = actual.Confidence
	}

	category := cell(roles.category)
	if category == "" {
		category = "general"
	}

	var period *models.FiscalPeriodInfo
	if roles.period >= 0 {
		period = NormalizeFiscalPeriod(cell(roles.period))
	}

	tableIndex := ref.TableIndex
	rowIndex := rowIdx
	return &models.Record{
		Kind: models.KindBudgetLine,
		BudgetLine: &models.BudgetLineRecord{
			Entity:      entity,
			Period:      period,
			Category:    category,
			Allocated:   allocated,
			ActualSpent: actual,
		},
		Provenance: []models.Provenance{{
			Page:           ref.Page,
			TableIndex:     &tableIndex,
			RowIndex:       &rowIndex,
			Confidence:     models.Round3(confidence),
			ExtractionDate: time.Now().UTC(),
		}},
	}
}

func headerAt(headers []string, idx int) string {
	if idx >= 0 && idx < len(headers) {
		return headers[idx]
	}
	return ""
}
