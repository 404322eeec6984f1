package parsers

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/openkenya/hazina/internal/interfaces"
	"github.com/openkenya/hazina/internal/models"
	"github.com/openkenya/hazina/internal/services/normalizer"
)

// BudgetParser handles tabular budget books: the normalizer does the
// column-role work, this parser fills document-level gaps.
type BudgetParser struct {
	rates  map[string]float64
	logger arbor.ILogger
}

var _ interfaces.Parser = (*BudgetParser)(nil)

// NewBudgetParser creates the budget/tabular parser.
func NewBudgetParser(rates map[string]float64, logger arbor.ILogger) *BudgetParser {
	return &BudgetParser{rates: rates, logger: logger}
}

func (p *BudgetParser) Name() string { return "budget" }

// Parse delegates table interpretation to the normalizer, then backfills
// each record's fiscal period from the document title when the table
// rows did not carry one.
func (p *BudgetParser) Parse(ctx context.Context, extraction *models.ExtractionResult, doc *models.SourceDocument) []models.Record {
	if extraction == nil || doc == nil {
		return nil
	}
	records := normalizer.NormalizeExtractedData(extraction, doc.SourceKey, p.rates)

	if titlePeriod := normalizer.NormalizeFiscalPeriod(doc.Title); titlePeriod != nil {
		for i := range records {
			if records[i].Kind == models.KindBudgetLine && records[i].BudgetLine.Period == nil {
				records[i].BudgetLine.Period = titlePeriod
			}
		}
	}

	p.logger.Debug().
		Str("document", doc.Title).
		Int("records", len(records)).
		Msg("Budget parse complete")

	return records
}
