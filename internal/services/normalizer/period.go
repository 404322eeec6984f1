package normalizer

import (
	"regexp"
	"strconv"

	"github.com/openkenya/hazina/internal/common"
	"github.com/openkenya/hazina/internal/models"
)

// Fiscal period patterns, most specific first. The second year may be
// two digits and is expanded via the century of the first.
var fiscalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bFY\s*(\d{4})\s*[/-]\s*(\d{2,4})\b`),
	regexp.MustCompile(`(?i)\b(\d{4})\s*[/-]\s*(\d{2,4})\s*(?:FY|fiscal\s+year|financial\s+year)\b`),
	regexp.MustCompile(`(?i)\b(?:financial|fiscal)\s+year\s+(\d{4})\s*[/-]\s*(\d{2,4})\b`),
	regexp.MustCompile(`\b(\d{4})\s*/\s*(\d{2})\b`),
}

var bareYearPattern = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)

// NormalizeFiscalPeriod canonicalizes a fiscal-period string into a
// label with July-June bounds. A bare four-digit year is taken as the
// fiscal year starting that July with confidence 0.5. Returns nil when
// no year is found.
func NormalizeFiscalPeriod(raw string) *models.FiscalPeriodInfo {
	for _, pattern := range fiscalPatterns {
		match := pattern.FindStringSubmatch(raw)
		if match == nil {
			continue
		}
		first, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		second, err := strconv.Atoi(match[2])
		if err != nil {
			continue
		}
		if second < 100 {
			second = (first/100)*100 + second
			if second <= first {
				second += 100
			}
		}
		if second != first+1 {
			// 2019/2021 style ranges are not fiscal years; keep looking.
			continue
		}
		start, end := common.FiscalYearBounds(first)
		return &models.FiscalPeriodInfo{
			Label:      common.FiscalYearLabel(first),
			StartDate:  start,
			EndDate:    end,
			Confidence: 1.0,
		}
	}

	if match := bareYearPattern.FindStringSubmatch(raw); match != nil {
		year, err := strconv.Atoi(match[1])
		if err == nil {
			start, end := common.FiscalYearBounds(year)
			return &models.FiscalPeriodInfo{
				Label:      common.FiscalYearLabel(year),
				StartDate:  start,
				EndDate:    end,
				Confidence: 0.5,
			}
		}
	}

	return nil
}

// ExtractYear pulls a year out of free text for discovery metadata:
// fiscal-year notation first (the starting calendar year), then a bare
// four-digit year. Returns 0 when none is found.
func ExtractYear(text string) int {
	for _, pattern := range fiscalPatterns {
		if match := pattern.FindStringSubmatch(text); match != nil {
			if year, err := strconv.Atoi(match[1]); err == nil {
				return year
			}
		}
	}
	if match := bareYearPattern.FindStringSubmatch(text); match != nil {
		if year, err := strconv.Atoi(match[1]); err == nil {
			return year
		}
	}
	return 0
}
