package normalizer

import (
	"sort"
	"strings"

	"github.com/openkenya/hazina/internal/models"
)

// countyNames lists the 47 Kenyan counties. Canonical entity names are
// "<name> County".
var countyNames = []string{
	"Baringo", "Bomet", "Bungoma", "Busia", "Elgeyo-Marakwet", "Embu",
	"Garissa", "Homa Bay", "Isiolo", "Kajiado", "Kakamega", "Kericho",
	"Kiambu", "Kilifi", "Kirinyaga", "Kisii", "Kisumu", "Kitui", "Kwale",
	"Laikipia", "Lamu", "Machakos", "Makueni", "Mandera", "Marsabit",
	"Meru", "Migori", "Mombasa", "Murang'a", "Nairobi", "Nakuru", "Nandi",
	"Narok", "Nyamira", "Nyandarua", "Nyeri", "Samburu", "Siaya",
	"Taita-Taveta", "Tana River", "Tharaka-Nithi", "Trans Nzoia",
	"Turkana", "Uasin Gishu", "Vihiga", "Wajir", "West Pokot",
}

// ministryNames maps common title variants to canonical ministry names.
var ministryNames = map[string]string{
	"the national treasury":                         "The National Treasury",
	"national treasury":                             "The National Treasury",
	"treasury":                                      "The National Treasury",
	"national treasury and economic planning":       "The National Treasury",
	"ministry of health":                            "Ministry of Health",
	"ministry of education":                         "Ministry of Education",
	"ministry of agriculture":                       "Ministry of Agriculture and Livestock Development",
	"ministry of agriculture and livestock development": "Ministry of Agriculture and Livestock Development",
	"ministry of interior":                          "Ministry of Interior and National Administration",
	"ministry of interior and national administration": "Ministry of Interior and National Administration",
	"ministry of defence":                           "Ministry of Defence",
	"ministry of energy":                            "Ministry of Energy and Petroleum",
	"ministry of energy and petroleum":              "Ministry of Energy and Petroleum",
	"ministry of transport":                         "Ministry of Roads and Transport",
	"ministry of roads and transport":               "Ministry of Roads and Transport",
	"ministry of water":                             "Ministry of Water, Sanitation and Irrigation",
	"ministry of lands":                             "Ministry of Lands, Public Works, Housing and Urban Development",
	"ministry of ict":                               "Ministry of Information, Communications and the Digital Economy",
	"ministry of tourism":                           "Ministry of Tourism and Wildlife",
	"ministry of labour":                            "Ministry of Labour and Social Protection",
	"ministry of foreign affairs":                   "Ministry of Foreign and Diaspora Affairs",
	"ministry of environment":                       "Ministry of Environment, Climate Change and Forestry",
	"ministry of sports":                            "Ministry of Youth Affairs, Creative Economy and Sports",
	"ministry of trade":                             "Ministry of Investments, Trade and Industry",
	"ministry of public service":                    "Ministry of Public Service and Human Capital Development",
	"ministry of east african community":            "Ministry of East African Community, ASALs and Regional Development",
	"ministry of mining":                            "Ministry of Mining, Blue Economy and Maritime Affairs",
	"ministry of cooperatives":                      "Ministry of Co-operatives and MSME Development",
}

// agencyNames maps variants to canonical agency and commission names.
var agencyNames = map[string]string{
	"kenya revenue authority":             "Kenya Revenue Authority",
	"kra":                                 "Kenya Revenue Authority",
	"kenya national bureau of statistics": "Kenya National Bureau of Statistics",
	"knbs":                                "Kenya National Bureau of Statistics",
	"central bank of kenya":               "Central Bank of Kenya",
	"cbk":                                 "Central Bank of Kenya",
	"office of the auditor general":       "Office of the Auditor-General",
	"office of the auditor-general":       "Office of the Auditor-General",
	"auditor general":                     "Office of the Auditor-General",
	"office of the controller of budget":  "Office of the Controller of Budget",
	"controller of budget":                "Office of the Controller of Budget",
	"commission on revenue allocation":    "Commission on Revenue Allocation",
	"cra":                                 "Commission on Revenue Allocation",
	"kenya roads board":                   "Kenya Roads Board",
	"kenya rural roads authority":         "Kenya Rural Roads Authority",
	"kenya national highways authority":   "Kenya National Highways Authority",
	"kenya urban roads authority":         "Kenya Urban Roads Authority",
	"kenya ports authority":               "Kenya Ports Authority",
	"kenya airports authority":            "Kenya Airports Authority",
	"kenya power":                         "Kenya Power and Lighting Company",
	"kengen":                              "Kenya Electricity Generating Company",
	"nssf":                                "National Social Security Fund",
	"national social security fund":       "National Social Security Fund",
	"nhif":                                "National Hospital Insurance Fund",
	"national hospital insurance fund":    "National Hospital Insurance Fund",
	"salaries and remuneration commission": "Salaries and Remuneration Commission",
	"public service commission":           "Public Service Commission",
	"teachers service commission":         "Teachers Service Commission",
	"independent electoral and boundaries commission": "Independent Electoral and Boundaries Commission",
	"iebc": "Independent Electoral and Boundaries Commission",
}

// nationalNames maps variants to the national government entity.
var nationalNames = map[string]string{
	"national government":          "National Government of Kenya",
	"national government of kenya": "National Government of Kenya",
	"government of kenya":          "National Government of Kenya",
	"republic of kenya":            "National Government of Kenya",
	"kenya":                        "National Government of Kenya",
	"gok":                          "National Government of Kenya",
}

// entityTable is the exact-match lookup built once at init: lowercase
// variant -> canonical entity info. canonicalList is the sorted candidate
// set the fuzzy pass walks; canonicalInfo resolves a canonical name back
// to its info.
var (
	entityTable   map[string]models.EntityInfo
	canonicalList []string
	canonicalInfo map[string]models.EntityInfo
)

func init() {
	entityTable = make(map[string]models.EntityInfo)
	canonicalInfo = make(map[string]models.EntityInfo)

	register := func(variant string, info models.EntityInfo) {
		entityTable[strings.ToLower(strings.TrimSpace(variant))] = info
	}

	for _, name := range countyNames {
		info := models.EntityInfo{
			CanonicalName: name + " County",
			Type:          models.EntityTypeCounty,
			Category:      "county_government",
			Confidence:    1.0,
		}
		register(name, info)
		register(name+" county", info)
		register("county of "+name, info)
		register("county government of "+name, info)
		register(name+" county government", info)
	}
	// Common alternates for the capital
	register("nairobi city", entityTable["nairobi county"])
	register("nairobi city county", entityTable["nairobi county"])

	for variant, canonical := range ministryNames {
		register(variant, models.EntityInfo{
			CanonicalName: canonical,
			Type:          models.EntityTypeMinistry,
			Category:      "ministry",
			Confidence:    1.0,
		})
	}
	for variant, canonical := range agencyNames {
		register(variant, models.EntityInfo{
			CanonicalName: canonical,
			Type:          models.EntityTypeAgency,
			Category:      "state_agency",
			Confidence:    1.0,
		})
	}
	for variant, canonical := range nationalNames {
		register(variant, models.EntityInfo{
			CanonicalName: canonical,
			Type:          models.EntityTypeNational,
			Category:      "national_government",
			Confidence:    1.0,
		})
	}

	for _, info := range entityTable {
		if _, seen := canonicalInfo[info.CanonicalName]; !seen {
			canonicalInfo[info.CanonicalName] = info
			canonicalList = append(canonicalList, info.CanonicalName)
		}
	}
	sort.Strings(canonicalList)
}

// fuzzyThreshold is the minimum token-set score accepted by the fuzzy
// pass.
const fuzzyThreshold = 0.70

// NormalizeEntityName canonicalizes a raw public-body name. Exact
// lowercase lookup first, then a token-set fuzzy pass over canonical
// names and registered variants; nil when nothing clears the threshold.
func NormalizeEntityName(raw string) *models.EntityInfo {
	cleaned := strings.ToLower(strings.TrimSpace(raw))
	if cleaned == "" {
		return nil
	}

	if info, ok := entityTable[cleaned]; ok {
		out := info
		out.RawName = raw
		return &out
	}

	bestScore := 0.0
	var best models.EntityInfo
	for _, canonical := range canonicalList {
		if score := TokenSetRatio(cleaned, canonical); score > bestScore {
			bestScore = score
			best = canonicalInfo[canonical]
		}
	}
	for variant, info := range entityTable {
		if score := TokenSetRatio(cleaned, variant); score > bestScore {
			bestScore = score
			best = info
		}
	}

	if bestScore < fuzzyThreshold || best.CanonicalName == "" {
		return nil
	}

	out := best
	out.Confidence = models.Round3(bestScore)
	out.RawName = raw
	return &out
}

// CountyNames returns the canonical county entity names, sorted.
func CountyNames() []string {
	out := make([]string, len(countyNames))
	for i, name := range countyNames {
		out[i] = name + " County"
	}
	sort.Strings(out)
	return out
}

// MatchCountyInText returns the first county whose name appears in the
// text, used by parsers to attribute county-scoped documents.
func MatchCountyInText(text string) *models.EntityInfo {
	lowered := strings.ToLower(text)
	for _, name := range countyNames {
		if strings.Contains(lowered, strings.ToLower(name)) {
			info := entityTable[strings.ToLower(name)+" county"]
			out := info
			out.RawName = name
			return &out
		}
	}
	return nil
}
