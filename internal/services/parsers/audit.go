// Package parsers turns extractions into normalized fact records. Each
// parser family consumes the extractor output plus document metadata
// and emits the Record union; none of them touches the database, and
// none of them raises for malformed input.
package parsers

import (
	"context"
	"regexp"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/openkenya/hazina/internal/interfaces"
	"github.com/openkenya/hazina/internal/models"
	"github.com/openkenya/hazina/internal/services/normalizer"
)

// auditPageCap bounds how deep the audit parser reads. OAG county
// reports beyond this point are annex tables already covered by the
// table path.
const auditPageCap = 120

// auditBaseConfidence is the provenance confidence for line-derived
// findings.
const auditBaseConfidence = 0.6

// Monetary thresholds for severity when no keyword decides.
const (
	criticalAmountKES = 50_000_000
	warningAmountKES  = 5_000_000
)

// criticalKeywords and warningKeywords decide severity before any
// amount threshold applies.
var criticalKeywords = []string{
	"embezzlement", "fraud", "misappropriat", "stolen", "theft",
	"unaccounted",
}

var warningKeywords = []string{
	"irregular", "unsupported", "pending bills", "non-compliance",
	"without approval", "undisclosed", "wasteful",
}

// auditCues mark a line as a probable finding.
var auditCues = []string{
	"audit", "query", "finding", "irregular", "unaccounted",
	"pending bills", "procurement", "unsupported", "loss", "embezzlement",
}

// sectionCues are report section markers that carry audit substance.
var sectionCues = []string{
	"management responses", "audit findings", "recommendations",
	"basis of opinion", "qualified", "adverse", "disclaimer",
}

// findingHeaderWords and amountHeaderWords qualify a table as a
// findings table.
var findingHeaderWords = []string{"description", "finding", "query", "issue"}
var amountHeaderWords = []string{"amount", "kes", "ksh", "value"}

var recommendationPattern = regexp.MustCompile(`(?i)recommendations?\s*[:\-–]\s*(.+)$`)

// monetaryPattern matches KES-prefixed figures and large comma-grouped
// numbers.
var monetaryPattern = regexp.MustCompile(`(?i)(?:kes|kshs?)\.?\s*[\d,]+(?:\.\d+)?(?:\s*(?:thousand|million|billion|trillion))?|\b\d{1,3}(?:,\d{3})+(?:\.\d+)?\b`)

// AuditParser extracts findings from OAG and COB audit reports.
type AuditParser struct {
	rates  map[string]float64
	logger arbor.ILogger
}

var _ interfaces.Parser = (*AuditParser)(nil)

// NewAuditParser creates the audit parser with the configured currency
// rate table.
func NewAuditParser(rates map[string]float64, logger arbor.ILogger) *AuditParser {
	return &AuditParser{rates: rates, logger: logger}
}

func (p *AuditParser) Name() string { return "audit" }

// Parse walks the first pages of the report, collecting finding lines
// and findings-table rows. Entity and period resolve once per document
// (title first, page text second) and attach to every record.
func (p *AuditParser) Parse(ctx context.Context, extraction *models.ExtractionResult, doc *models.SourceDocument) []models.Record {
	if extraction == nil || doc == nil {
		return nil
	}
	pages := extraction.Pages
	if len(pages) > auditPageCap {
		pages = pages[:auditPageCap]
	}

	entity := p.resolveEntity(doc.Title, pages)
	period := p.resolvePeriod(doc.Title, pages)

	type dedupeKey struct {
		finding string
		page    int
	}
	seen := make(map[dedupeKey]bool)
	var records []models.Record

	add := func(finding, recommendation string, amount *models.Amount, prov models.Provenance) {
		finding = strings.TrimSpace(finding)
		if finding == "" {
			return
		}
		key := dedupeKey{finding: finding, page: prov.Page}
		if seen[key] {
			return
		}
		seen[key] = true
		records = append(records, models.Record{
			Kind: models.KindAuditFinding,
			Audit: &models.AuditRecord{
				Entity:            entity,
				Period:            period,
				Finding:           finding,
				Severity:          classifySeverity(finding, amount),
				RecommendedAction: recommendation,
				AmountInvolved:    amount,
			},
			Provenance: []models.Provenance{prov},
		})
	}

	for _, page := range pages {
		if ctx.Err() != nil {
			break
		}
		for _, line := range strings.Split(page.Text, "\n") {
			line = strings.TrimSpace(line)
			if len(line) < 12 || !isFindingLine(line) {
				continue
			}
			finding, recommendation := splitRecommendation(line)
			amount := largestAmount(line, p.rates)
			add(finding, recommendation, amount, models.Provenance{
				Page:           page.PageNumber,
				Confidence:     auditBaseConfidence,
				ExtractionDate: extraction.ExtractionDate,
				Line:           truncateLine(line),
			})
		}

		for tableIdx, table := range page.Tables {
			if !isFindingsTable(table.Headers) {
				continue
			}
			for rowIdx, row := range table.Rows {
				finding, amount := findingFromRow(table.Headers, row, p.rates)
				if finding == "" {
					continue
				}
				ti, ri := tableIdx, rowIdx
				add(finding, "", amount, models.Provenance{
					Page:           page.PageNumber,
					TableIndex:     &ti,
					RowIndex:       &ri,
					Confidence:     auditBaseConfidence,
					ExtractionDate: extraction.ExtractionDate,
				})
			}
		}
	}

	p.logger.Debug().
		Str("document", doc.Title).
		Int("findings", len(records)).
		Msg("Audit parse complete")

	return records
}

// resolveEntity matches a county in the title (confidence 0.9), then in
// the first page (0.6). Nil when neither matches.
func (p *AuditParser) resolveEntity(title string, pages []models.PageContent) *models.EntityInfo {
	if entity := normalizer.MatchCountyInText(title); entity != nil {
		entity.Confidence = 0.9
		return entity
	}
	if len(pages) > 0 {
		if entity := normalizer.MatchCountyInText(pages[0].Text); entity != nil {
			entity.Confidence = 0.6
			return entity
		}
	}
	return nil
}

// resolvePeriod reads the fiscal period from the title, falling back to
// the first two pages.
func (p *AuditParser) resolvePeriod(title string, pages []models.PageContent) *models.FiscalPeriodInfo {
	if period := normalizer.NormalizeFiscalPeriod(title); period != nil {
		return period
	}
	for i := 0; i < len(pages) && i < 2; i++ {
		if period := normalizer.NormalizeFiscalPeriod(pages[i].Text); period != nil {
			return period
		}
	}
	return nil
}

func isFindingLine(line string) bool {
	if monetaryPattern.MatchString(line) {
		return true
	}
	lowered := strings.ToLower(line)
	for _, cue := range auditCues {
		if strings.Contains(lowered, cue) {
			return true
		}
	}
	for _, cue := range sectionCues {
		if strings.Contains(lowered, cue) {
			return true
		}
	}
	return false
}

// splitRecommendation separates "... Recommendation: act" into the
// finding text and the recommended action.
func splitRecommendation(line string) (finding, recommendation string) {
	loc := recommendationPattern.FindStringSubmatchIndex(line)
	if loc == nil {
		return line, ""
	}
	finding = strings.TrimRight(strings.TrimSpace(line[:loc[0]]), ".,;:-– ")
	if finding != "" {
		finding += "."
	}
	recommendation = strings.TrimSpace(line[loc[2]:loc[3]])
	return finding, recommendation
}

// largestAmount normalizes every monetary token on the line and keeps
// the biggest base-KES value. Full comma-grouped figures skip the line
// context so a magnitude word elsewhere on the line cannot rescale them.
func largestAmount(line string, rates map[string]float64) *models.Amount {
	var best *models.Amount
	for _, token := range monetaryPattern.FindAllString(line, -1) {
		context := line
		if strings.Contains(token, ",") || len(digitsOf(token)) > 4 {
			context = ""
		}
		amount := normalizer.NormalizeAmount(token, context, rates)
		if amount == nil {
			continue
		}
		if best == nil || amount.BaseAmount > best.BaseAmount {
			best = amount
		}
	}
	return best
}

func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// classifySeverity applies the keyword map, then the amount thresholds.
func classifySeverity(text string, amount *models.Amount) string {
	lowered := strings.ToLower(text)
	for _, kw := range criticalKeywords {
		if strings.Contains(lowered, kw) {
			return models.SeverityCritical
		}
	}
	for _, kw := range warningKeywords {
		if strings.Contains(lowered, kw) {
			return models.SeverityWarning
		}
	}
	if amount != nil {
		switch {
		case amount.BaseAmount >= criticalAmountKES:
			return models.SeverityCritical
		case amount.BaseAmount >= warningAmountKES:
			return models.SeverityWarning
		}
	}
	return models.SeverityInfo
}

// isFindingsTable accepts tables whose headers name findings or amounts.
func isFindingsTable(headers []string) bool {
	for _, h := range headers {
		lowered := strings.ToLower(h)
		for _, w := range findingHeaderWords {
			if strings.Contains(lowered, w) {
				return true
			}
		}
		for _, w := range amountHeaderWords {
			if strings.Contains(lowered, w) {
				return true
			}
		}
	}
	return false
}

// findingFromRow takes the finding text from the first descriptive
// column and the amount from the first amount-ish column.
func findingFromRow(headers []string, row []string, rates map[string]float64) (string, *models.Amount) {
	finding := ""
	var amount *models.Amount

	for i, cell := range row {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		header := ""
		if i < len(headers) {
			header = strings.ToLower(headers[i])
		}
		isAmountCol := false
		for _, w := range amountHeaderWords {
			if strings.Contains(header, w) {
				isAmountCol = true
				break
			}
		}
		if isAmountCol {
			if a := normalizer.NormalizeAmount(cell, header, rates); a != nil && amount == nil {
				amount = a
			}
			continue
		}
		if finding == "" && len(cell) >= 4 && !monetaryPattern.MatchString(cell) {
			finding = cell
		}
	}
	return finding, amount
}

func truncateLine(line string) string {
	const max = 300
	if len(line) <= max {
		return line
	}
	return line[:max]
}
