// Package normalizer canonicalizes entity names, fiscal periods and
// monetary amounts. All matching is pure; the service only carries the
// configured currency rate table.
package normalizer

import (
	"github.com/ternarybob/arbor"

	"github.com/openkenya/hazina/internal/models"
)

// Service bundles the pure normalization functions with the configured
// currency rates.
type Service struct {
	rates  map[string]float64
	logger arbor.ILogger
}

// NewService creates a normalizer with the given currency -> KES rate
// table. The table must map the base currency to 1.0; config validation
// enforces that before services start.
func NewService(rates map[string]float64, logger arbor.ILogger) *Service {
	return &Service{
		rates:  rates,
		logger: logger,
	}
}

// EntityName canonicalizes a raw public-body name.
func (s *Service) EntityName(raw string) *models.EntityInfo {
	return NormalizeEntityName(raw)
}

// FiscalPeriod canonicalizes a fiscal-period string.
func (s *Service) FiscalPeriod(raw string) *models.FiscalPeriodInfo {
	return NormalizeFiscalPeriod(raw)
}

// Amount canonicalizes a monetary string with the configured rates.
func (s *Service) Amount(raw, context string) *models.Amount {
	return NormalizeAmount(raw, context, s.rates)
}

// ExtractedData turns extractor tables into budget-line records.
func (s *Service) ExtractedData(extraction *models.ExtractionResult, sourceKey string) []models.Record {
	if extraction == nil {
		return nil
	}
	records := NormalizeExtractedData(extraction, sourceKey, s.rates)
	s.logger.Debug().
		Str("source", sourceKey).
		Int("tables", len(extraction.Tables)).
		Int("records", len(records)).
		Msg("Normalized extracted tables")
	return records
}

// Rates exposes the configured conversion table for parsers that scale
// values directly.
func (s *Service) Rates() map[string]float64 {
	return s.rates
}
