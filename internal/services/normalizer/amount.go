package normalizer

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/openkenya/hazina/internal/models"
)

// currencyMarkers maps symbols and codes found in documents to ISO
// currency codes, longest markers checked first.
var currencyMarkers = []struct {
	marker   string
	currency string
}{
	{"kshs", "KES"},
	{"ksh", "KES"},
	{"kes", "KES"},
	{"k.sh", "KES"},
	{"usd", "USD"},
	{"us$", "USD"},
	{"$", "USD"},
	{"eur", "EUR"},
	{"€", "EUR"},
	{"gbp", "GBP"},
	{"£", "GBP"},
}

// magnitudeWords maps scale words and single-letter suffixes to
// multipliers.
var magnitudeWords = []struct {
	word       string
	multiplier float64
}{
	{"trillion", 1e12},
	{"billion", 1e9},
	{"million", 1e6},
	{"thousand", 1e3},
	{"tn", 1e12},
	{"bn", 1e9},
	{"mn", 1e6},
	{"t", 1e12},
	{"b", 1e9},
	{"m", 1e6},
	{"k", 1e3},
}

var numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// NormalizeAmount canonicalizes a monetary string using the configured
// currency rate table. Commas are stripped, currency detected from
// prefix/suffix markers, magnitude suffixes honoured from the string or
// the context hint. A bare numeric string falls back to KES with
// confidence 0.3. Returns nil when no number is present or the currency
// has no configured rate.
func NormalizeAmount(raw, context string, rates map[string]float64) *models.Amount {
	cleaned := strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if cleaned == "" {
		return nil
	}
	lowered := strings.ToLower(cleaned)

	currency := ""
	for _, cm := range currencyMarkers {
		if strings.Contains(lowered, cm.marker) {
			currency = cm.currency
			break
		}
	}

	numStr := numberPattern.FindString(cleaned)
	if numStr == "" {
		return nil
	}
	value, err := strconv.ParseFloat(numStr, 64)
	if err != nil {
		return nil
	}

	multiplier := magnitudeOf(lowered, numStr)
	if multiplier == 1 && context != "" {
		multiplier = magnitudeOf(strings.ToLower(context), "")
	}
	value *= multiplier

	confidence := 0.9
	if currency == "" {
		currency = models.BaseCurrency
		if multiplier != 1 {
			confidence = 0.6
		} else {
			confidence = 0.3
		}
	}

	rate, ok := rates[currency]
	if !ok || rate <= 0 {
		return nil
	}

	return &models.Amount{
		Amount:       models.Round2(value),
		Currency:     currency,
		BaseAmount:   models.Round2(value * rate),
		BaseCurrency: models.BaseCurrency,
		Confidence:   confidence,
	}
}

// magnitudeOf finds a scale word in text. When numStr is given, single
// letter suffixes only count if they directly follow the number ("2.5B"),
// so a stray "m" in surrounding words never scales a value.
func magnitudeOf(text, numStr string) float64 {
	for _, mw := range magnitudeWords {
		if len(mw.word) == 1 {
			if numStr == "" {
				continue
			}
			if strings.Contains(text, strings.ToLower(numStr)+mw.word) {
				return mw.multiplier
			}
			continue
		}
		if containsWord(text, mw.word) {
			return mw.multiplier
		}
	}
	return 1
}

// containsWord reports whether word occurs in text bounded by
// non-letters, so "bn" does not match inside "urban".
func containsWord(text, word string) bool {
	idx := 0
	for {
		pos := strings.Index(text[idx:], word)
		if pos < 0 {
			return false
		}
		pos += idx
		beforeOK := pos == 0 || !isLetter(text[pos-1])
		after := pos + len(word)
		afterOK := after >= len(text) || !isLetter(text[after])
		if beforeOK && afterOK {
			return true
		}
		idx = pos + 1
	}
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
