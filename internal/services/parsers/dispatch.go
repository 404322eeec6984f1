package parsers

import (
	"github.com/ternarybob/arbor"

	"github.com/openkenya/hazina/internal/interfaces"
	"github.com/openkenya/hazina/internal/models"
)

// Dispatcher routes a document to the parser for its content family.
// Audit reports win over source affiliation; KNBS publications go to the
// statistics parser; everything else is treated as budget material.
type Dispatcher struct {
	audit  *AuditParser
	budget *BudgetParser
	stats  *StatisticsParser
}

// NewDispatcher builds the full parser set sharing one rate table.
func NewDispatcher(rates map[string]float64, logger arbor.ILogger) *Dispatcher {
	return &Dispatcher{
		audit:  NewAuditParser(rates, logger),
		budget: NewBudgetParser(rates, logger),
		stats:  NewStatisticsParser(rates, logger),
	}
}

// For selects the parser for a document.
func (d *Dispatcher) For(doc *models.SourceDocument) interfaces.Parser {
	if doc != nil {
		if doc.DocType == models.DocTypeAudit {
			return d.audit
		}
		if doc.SourceKey == models.SourceKNBS {
			return d.stats
		}
	}
	return d.budget
}
