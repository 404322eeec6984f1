package parsers

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/openkenya/hazina/internal/interfaces"
	"github.com/openkenya/hazina/internal/models"
	"github.com/openkenya/hazina/internal/services/normalizer"
)

// statPageCap bounds statistics parsing. KNBS abstracts run to many
// hundreds of pages; the headline figures live up front.
const statPageCap = 80

const statBaseConfidence = 0.6
const statTableConfidence = 0.75

// statKind routes a KNBS publication to the extractor mix that fits it.
type statKind int

const (
	statGeneric statKind = iota
	statEconomicSurvey
	statAbstract
	statCountyAbstract
	statQuarterlyGDP
	statCPI
	statFacts
)

func classifyStatKind(title string) statKind {
	lowered := strings.ToLower(title)
	switch {
	case strings.Contains(lowered, "economic survey"):
		return statEconomicSurvey
	case strings.Contains(lowered, "county statistical abstract"):
		return statCountyAbstract
	case strings.Contains(lowered, "statistical abstract"):
		return statAbstract
	case strings.Contains(lowered, "quarterly gross domestic product"),
		strings.Contains(lowered, "quarterly gdp"),
		strings.Contains(lowered, "gross domestic product report"):
		return statQuarterlyGDP
	case strings.Contains(lowered, "consumer price"),
		strings.Contains(lowered, "cpi"),
		strings.Contains(lowered, "inflation"):
		return statCPI
	case strings.Contains(lowered, "facts and figures"),
		strings.Contains(lowered, "facts & figures"):
		return statFacts
	default:
		return statGeneric
	}
}

// Sanity bounds. Values outside are dropped, not clamped.
const (
	populationMin = 10_000_000
	populationMax = 100_000_000
	gdpMinKES     = 1e12
	gdpMaxKES     = 50e12
	rateMax       = 50.0
	povertyMax    = 100.0
	growthMin     = -10.0
	growthMax     = 20.0
)

// Multi-pattern ensembles. Group 1 captures the number, group 2 (where
// present) a magnitude word.
var populationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\btotal\s+population\s+(?:of|was|is|at|stood\s+at|:)?\s*([\d,]+(?:\.\d+)?)\s*(million|billion)?`),
	regexp.MustCompile(`(?i)\bpopulation\s+(?:of|was|is|stood\s+at|grew\s+to|:)\s*([\d,]+(?:\.\d+)?)\s*(million|billion)?`),
	regexp.MustCompile(`(?i)([\d,]+(?:\.\d+)?)\s*(million)?\s+(?:people|persons|inhabitants)\b`),
}

var gdpPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:gdp|gross\s+domestic\s+product)\b[^.\n]{0,60}?(?:kes|kshs?)\.?\s*([\d,]+(?:\.\d+)?)\s*(trillion|billion|million)?`),
	regexp.MustCompile(`(?i)(?:kes|kshs?)\.?\s*([\d,]+(?:\.\d+)?)\s*(trillion|billion)\s[^.\n]{0,30}?(?:gdp|gross\s+domestic\s+product)`),
}

var growthPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:gdp|economy|real\s+gdp)\b[^.\n]{0,60}?(?:grew|expanded|growth)[^.\n]{0,30}?(-?[\d.]+)\s*(?:per\s?cent|percent|%)`),
	regexp.MustCompile(`(?i)\bgrowth\s+(?:rate\s+)?of\s+(-?[\d.]+)\s*(?:per\s?cent|percent|%)`),
}

var inflationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\binflation\b[^.\n]{0,50}?(-?[\d.]+)\s*(?:per\s?cent|percent|%)`),
	regexp.MustCompile(`(?i)\bconsumer\s+prices?\b[^.\n]{0,60}?([\d.]+)\s*(?:per\s?cent|percent|%)`),
}

var unemploymentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bunemployment\b[^.\n]{0,50}?([\d.]+)\s*(?:per\s?cent|percent|%)`),
}

var povertyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bpoverty\b[^.\n]{0,60}?([\d.]+)\s*(?:per\s?cent|percent|%)`),
}

var quarterPattern = regexp.MustCompile(`(?i)\b(?:q([1-4])\b|(first|second|third|fourth)\s+quarter)`)

// tableMagnitudePattern finds the caption scale ("KES Billions",
// "Ksh. Million") governing a statistics table's bare values.
var tableMagnitudePattern = regexp.MustCompile(`(?i)\b(?:kes|kshs?)?\.?\s*(trillion|billion|million)s?\b`)

var yearHeaderPattern = regexp.MustCompile(`^(19|20)\d{2}`)

// StatisticsParser extracts headline statistics from KNBS publications.
type StatisticsParser struct {
	rates  map[string]float64
	logger arbor.ILogger
}

var _ interfaces.Parser = (*StatisticsParser)(nil)

// NewStatisticsParser creates the KNBS statistics parser.
func NewStatisticsParser(rates map[string]float64, logger arbor.ILogger) *StatisticsParser {
	return &StatisticsParser{rates: rates, logger: logger}
}

func (p *StatisticsParser) Name() string { return "statistics" }

// Parse dispatches on the publication kind, runs the matching regex
// ensembles over page text and interprets GDP/GCP tables.
func (p *StatisticsParser) Parse(ctx context.Context, extraction *models.ExtractionResult, doc *models.SourceDocument) []models.Record {
	if extraction == nil || doc == nil {
		return nil
	}
	pages := extraction.Pages
	if len(pages) > statPageCap {
		pages = pages[:statPageCap]
	}

	kind := classifyStatKind(doc.Title)
	docYear := normalizer.ExtractYear(doc.Title)
	var docEntity *models.EntityInfo
	if kind == statCountyAbstract {
		docEntity = normalizer.MatchCountyInText(doc.Title)
	}
	var quarter *int
	if kind == statQuarterlyGDP {
		quarter = findQuarter(doc.Title)
	}

	b := &statBuilder{
		extraction: extraction,
		docYear:    docYear,
		docEntity:  docEntity,
		quarter:    quarter,
		seen:       make(map[string]bool),
	}

	wantPopulation := kind != statCPI && kind != statQuarterlyGDP
	wantGDP := kind != statCPI
	wantRates := kind == statEconomicSurvey || kind == statCPI || kind == statFacts || kind == statGeneric
	wantPoverty := kind != statCPI && kind != statQuarterlyGDP

	for _, page := range pages {
		if ctx.Err() != nil {
			break
		}
		if page.Text != "" {
			if quarter == nil && kind == statQuarterlyGDP {
				quarter = findQuarter(page.Text)
				b.quarter = quarter
			}
			for _, line := range strings.Split(page.Text, "\n") {
				line = strings.TrimSpace(line)
				if line == "" {
					continue
				}
				if wantPopulation {
					b.scanPopulation(line, page.PageNumber)
				}
				if wantGDP {
					b.scanGDP(line, page.PageNumber)
				}
				if wantRates {
					b.scanIndicators(line, page.PageNumber)
				}
				if wantPoverty {
					b.scanPoverty(line, page.PageNumber)
				}
			}
		}
		if wantGDP {
			magnitude := pageMagnitude(page.Text)
			for tableIdx, table := range page.Tables {
				b.scanGDPTable(table, page.PageNumber, tableIdx, magnitude)
			}
		}
	}

	p.logger.Debug().
		Str("document", doc.Title).
		Int("records", len(b.records)).
		Msg("Statistics parse complete")

	return b.records
}

// statBuilder accumulates records with per-metric dedupe.
type statBuilder struct {
	extraction *models.ExtractionResult
	docYear    int
	docEntity  *models.EntityInfo
	quarter    *int
	seen       map[string]bool
	records    []models.Record
}

func (b *statBuilder) dedupe(metric string, year int, value float64) bool {
	key := metric + "|" + strconv.Itoa(year) + "|" + strconv.FormatFloat(value, 'f', 4, 64)
	if b.seen[key] {
		return true
	}
	b.seen[key] = true
	return false
}

func (b *statBuilder) yearFor(line string) int {
	if year := normalizer.ExtractYear(line); year != 0 {
		return year
	}
	return b.docYear
}

func (b *statBuilder) provenance(page int, line string) models.Provenance {
	return models.Provenance{
		Page:           page,
		Confidence:     statBaseConfidence,
		ExtractionDate: b.extraction.ExtractionDate,
		Line:           truncateLine(line),
	}
}

func (b *statBuilder) scanPopulation(line string, page int) {
	for _, pattern := range populationPatterns {
		m := pattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		value, ok := scaledValue(m[1], magnitudeWord(m, 2))
		if !ok || value < populationMin || value > populationMax {
			continue
		}
		year := b.yearFor(line)
		if year == 0 {
			continue
		}
		entity := normalizer.MatchCountyInText(line)
		if entity == nil {
			entity = b.docEntity
		}
		if b.dedupe("population", year, value) {
			return
		}
		b.records = append(b.records, models.Record{
			Kind: models.KindPopulation,
			Population: &models.PopulationRecord{
				Entity:          entity,
				Year:            year,
				TotalPopulation: value,
				Confidence:      statBaseConfidence,
			},
			Provenance: []models.Provenance{b.provenance(page, line)},
		})
		return
	}
}

func (b *statBuilder) scanGDP(line string, page int) {
	for _, pattern := range gdpPatterns {
		m := pattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		value, ok := scaledValue(m[1], magnitudeWord(m, 2))
		if !ok || value < gdpMinKES || value > gdpMaxKES {
			continue
		}
		year := b.yearFor(line)
		if year == 0 {
			continue
		}
		if b.dedupe("gdp", year, value) {
			return
		}
		record := &models.GDPRecord{
			Year:       year,
			Quarter:    b.quarter,
			Value:      value,
			Currency:   models.BaseCurrency,
			Confidence: statBaseConfidence,
		}
		if growth, ok := findGrowth(line); ok {
			record.GrowthRate = &growth
		}
		b.records = append(b.records, models.Record{
			Kind:       models.KindGDP,
			GDP:        record,
			Provenance: []models.Provenance{b.provenance(page, line)},
		})
		return
	}
}

func (b *statBuilder) scanIndicators(line string, page int) {
	if value, ok := firstRate(inflationPatterns, line, rateMax); ok {
		year := b.yearFor(line)
		if year != 0 && !b.dedupe("inflation", year, value) {
			b.records = append(b.records, models.Record{
				Kind: models.KindIndicator,
				Indicator: &models.IndicatorRecord{
					Type:       models.IndicatorInflation,
					Date:       yearDate(year),
					Value:      value,
					Unit:       "percent",
					Confidence: statBaseConfidence,
				},
				Provenance: []models.Provenance{b.provenance(page, line)},
			})
		}
	}
	if value, ok := firstRate(unemploymentPatterns, line, rateMax); ok {
		year := b.yearFor(line)
		if year != 0 && !b.dedupe("unemployment", year, value) {
			b.records = append(b.records, models.Record{
				Kind: models.KindIndicator,
				Indicator: &models.IndicatorRecord{
					Type:       models.IndicatorUnemployment,
					Date:       yearDate(year),
					Value:      value,
					Unit:       "percent",
					Confidence: statBaseConfidence,
				},
				Provenance: []models.Provenance{b.provenance(page, line)},
			})
		}
	}
}

func (b *statBuilder) scanPoverty(line string, page int) {
	value, ok := firstRate(povertyPatterns, line, povertyMax)
	if !ok {
		return
	}
	year := b.yearFor(line)
	if year == 0 || b.dedupe("poverty", year, value) {
		return
	}
	entity := normalizer.MatchCountyInText(line)
	if entity == nil {
		entity = b.docEntity
	}
	b.records = append(b.records, models.Record{
		Kind: models.KindPoverty,
		Poverty: &models.PovertyRecord{
			Entity:      entity,
			Year:        year,
			PovertyRate: &value,
			Confidence:  statBaseConfidence,
		},
		Provenance: []models.Provenance{b.provenance(page, line)},
	})
}

// scanGDPTable reads column-per-year GCP layouts and single-value GDP
// tables. Bare cell values scale by the caption magnitude.
func (b *statBuilder) scanGDPTable(table models.Table, page, tableIdx int, magnitude float64) {
	yearCols := make(map[int]int) // column -> year
	for i, h := range table.Headers {
		if m := yearHeaderPattern.FindString(strings.TrimSpace(h)); m != "" {
			if year, err := strconv.Atoi(m); err == nil {
				yearCols[i] = year
			}
		}
	}

	if len(yearCols) >= 2 {
		cols := make([]int, 0, len(yearCols))
		for col := range yearCols {
			cols = append(cols, col)
		}
		sort.Ints(cols)
		for rowIdx, row := range table.Rows {
			label := rowLabel(row, yearCols)
			if label == "" {
				continue
			}
			entity := normalizer.MatchCountyInText(label)
			loweredLabel := strings.ToLower(label)
			isGDPRow := strings.Contains(loweredLabel, "gcp") || strings.Contains(loweredLabel, "gdp") ||
				strings.Contains(loweredLabel, "gross county product") || strings.Contains(loweredLabel, "gross domestic product")
			if entity == nil && !isGDPRow {
				continue
			}
			for _, col := range cols {
				year := yearCols[col]
				if col >= len(row) {
					continue
				}
				value, ok := parseNumeric(row[col])
				if !ok {
					continue
				}
				value *= magnitude
				if value <= 0 || value > gdpMaxKES {
					continue
				}
				if entity == nil && value < gdpMinKES {
					continue
				}
				if b.dedupe("gdp_table|"+label, year, value) {
					continue
				}
				ti, ri := tableIdx, rowIdx
				b.records = append(b.records, models.Record{
					Kind: models.KindGDP,
					GDP: &models.GDPRecord{
						Entity:     entity,
						Year:       year,
						Quarter:    b.quarter,
						Value:      value,
						Currency:   models.BaseCurrency,
						Confidence: statTableConfidence,
					},
					Provenance: []models.Provenance{{
						Page:           page,
						TableIndex:     &ti,
						RowIndex:       &ri,
						Confidence:     statTableConfidence,
						ExtractionDate: b.extraction.ExtractionDate,
					}},
				})
			}
		}
		return
	}

	// single-value layout: a labelled row with one numeric cell
	for rowIdx, row := range table.Rows {
		if len(row) < 2 {
			continue
		}
		label := strings.TrimSpace(row[0])
		loweredLabel := strings.ToLower(label)
		if !strings.Contains(loweredLabel, "gdp") && !strings.Contains(loweredLabel, "gross domestic product") {
			continue
		}
		value, ok := singleNumeric(row[1:])
		if !ok {
			continue
		}
		value *= magnitude
		if value < gdpMinKES || value > gdpMaxKES {
			continue
		}
		year := normalizer.ExtractYear(label)
		if year == 0 {
			year = b.docYear
		}
		if year == 0 || b.dedupe("gdp_single", year, value) {
			continue
		}
		ti, ri := tableIdx, rowIdx
		b.records = append(b.records, models.Record{
			Kind: models.KindGDP,
			GDP: &models.GDPRecord{
				Year:       year,
				Quarter:    b.quarter,
				Value:      value,
				Currency:   models.BaseCurrency,
				Confidence: statTableConfidence,
			},
			Provenance: []models.Provenance{{
				Page:           page,
				TableIndex:     &ti,
				RowIndex:       &ri,
				Confidence:     statTableConfidence,
				ExtractionDate: b.extraction.ExtractionDate,
			}},
		})
	}
}

// rowLabel joins the non-year cells that precede the first year column.
func rowLabel(row []string, yearCols map[int]int) string {
	var parts []string
	for i, cell := range row {
		if _, isYear := yearCols[i]; isYear {
			break
		}
		cell = strings.TrimSpace(cell)
		if cell != "" {
			parts = append(parts, cell)
		}
	}
	return strings.Join(parts, " ")
}

func magnitudeWord(m []string, idx int) string {
	if idx < len(m) {
		return m[idx]
	}
	return ""
}

// scaledValue parses a comma-grouped number and applies a magnitude word.
func scaledValue(numStr, magnitude string) (float64, bool) {
	value, err := strconv.ParseFloat(strings.ReplaceAll(numStr, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	switch strings.ToLower(magnitude) {
	case "thousand":
		value *= 1e3
	case "million":
		value *= 1e6
	case "billion":
		value *= 1e9
	case "trillion":
		value *= 1e12
	}
	return value, true
}

func parseNumeric(cell string) (float64, bool) {
	cell = strings.TrimSpace(strings.ReplaceAll(cell, ",", ""))
	if cell == "" || cell == "-" {
		return 0, false
	}
	value, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// singleNumeric succeeds when exactly one cell parses as a number.
func singleNumeric(cells []string) (float64, bool) {
	found := false
	var value float64
	for _, cell := range cells {
		if v, ok := parseNumeric(cell); ok {
			if found {
				return 0, false
			}
			value, found = v, true
		}
	}
	return value, found
}

// firstRate runs an ensemble and returns the first percentage within
// [lower bound 0 or growthMin, max].
func firstRate(patterns []*regexp.Regexp, line string, max float64) (float64, bool) {
	for _, pattern := range patterns {
		m := pattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		value, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		if value < 0 || value > max {
			continue
		}
		return value, true
	}
	return 0, false
}

// findGrowth extracts a growth percentage within the growth bounds.
func findGrowth(line string) (float64, bool) {
	for _, pattern := range growthPatterns {
		m := pattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		value, err := strconv.ParseFloat(m[1], 64)
		if err != nil || value < growthMin || value > growthMax {
			continue
		}
		return value, true
	}
	return 0, false
}

func findQuarter(text string) *int {
	m := quarterPattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	if m[1] != "" {
		q, _ := strconv.Atoi(m[1])
		return &q
	}
	words := map[string]int{"first": 1, "second": 2, "third": 3, "fourth": 4}
	if q, ok := words[strings.ToLower(m[2])]; ok {
		return &q
	}
	return nil
}

// pageMagnitude finds the scale a table caption declares for its bare
// values; 1 when the page names none.
func pageMagnitude(text string) float64 {
	m := tableMagnitudePattern.FindStringSubmatch(text)
	if m == nil {
		return 1
	}
	switch strings.ToLower(m[1]) {
	case "trillion":
		return 1e12
	case "billion":
		return 1e9
	case "million":
		return 1e6
	}
	return 1
}

func yearDate(year int) time.Time {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
}
