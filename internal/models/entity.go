package models

import "strings"

// Entity type variants.
const (
	EntityTypeNational     = "NATIONAL"
	EntityTypeCounty       = "COUNTY"
	EntityTypeMinistry     = "MINISTRY"
	EntityTypeAgency       = "AGENCY"
	EntityTypeMunicipality = "MUNICIPALITY"
)

// EntityInfo is the normalizer's verdict on a raw entity string.
type EntityInfo struct {
	CanonicalName string  `json:"canonical_name"`
	Type          string  `json:"type"`
	Category      string  `json:"category,omitempty"`
	Confidence    float64 `json:"confidence"`
	RawName       string  `json:"raw_name"`
}

// Entity is a stored public body. Slug is stable across runs for the same
// canonical name.
type Entity struct {
	ID             int64                  `json:"id"`
	CountryID      int64                  `json:"country_id"`
	Type           string                 `json:"type"`
	CanonicalName  string                 `json:"canonical_name"`
	Slug           string                 `json:"slug"`
	AlternateNames []string               `json:"alternate_names,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// Country is the seeded reference row facts hang off.
type Country struct {
	ID       int64                  `json:"id"`
	ISOCode  string                 `json:"iso_code"`
	Name     string                 `json:"name"`
	Currency string                 `json:"currency_code"`
	Timezone string                 `json:"timezone"`
	Locale   string                 `json:"locale"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Slugify derives a deterministic slug from a canonical entity name:
// lowercase, runs of non-alphanumerics collapsed to single hyphens.
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
