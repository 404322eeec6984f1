package discovery

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/openkenya/hazina/internal/common"
	"github.com/openkenya/hazina/internal/models"
	"github.com/openkenya/hazina/internal/services/normalizer"
)

// yearSegment matches a year-like path segment such as /2023/ or
// /2023-24/, common on fiscal archive pages.
var yearSegment = regexp.MustCompile(`/(19|20)\d{2}([-/]|$)`)

// fileExtensions marks a URL as a downloadable artifact.
var fileExtensions = map[string]bool{
	"pdf": true, "xls": true, "xlsx": true, "csv": true,
	"doc": true, "docx": true, "zip": true,
}

// exclusionTokens drop links that are published on the same listing pages
// but are not finance documents.
var exclusionTokens = []string{
	"tender", "vacanc", "career", "job-advert", "recruitment",
	"press-release", "press_release", "press-statement", "speech",
	"newsletter", "gallery", "event",
}

// listingPathTokens suggest a page that lists further documents.
var listingPathTokens = []string{"/category/", "/tag/", "/page/", "/publications", "/reports", "/documents", "/downloads"}

// listingTextTokens suggest the same from anchor text.
var listingTextTokens = []string{
	"publication", "report", "download", "archive", "budget", "audit",
	"document", "library", "resources", "older entries", "next",
}

// navTextTokens are chrome/navigation anchors never worth following.
var navTextTokens = []string{
	"home", "about", "about us", "contact", "contact us", "faq", "faqs",
	"login", "sign in", "search", "sitemap", "privacy policy", "terms",
	"careers", "staff mail", "webmail",
}

// isFileLink reports whether a URL points at a downloadable document:
// extension in the known set, or the anchor text is literally "download".
func isFileLink(rawURL, anchorText string) bool {
	if fileExtensions[common.URLExtension(rawURL)] {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(anchorText), "download")
}

// isExcluded filters tenders, vacancies and press releases by URL and
// title.
func isExcluded(rawURL, title string) bool {
	lowered := strings.ToLower(rawURL) + " " + strings.ToLower(title)
	for _, token := range exclusionTokens {
		if strings.Contains(lowered, token) {
			return true
		}
	}
	return false
}

// looksLikeListing reports whether a link is worth enqueueing during a
// crawl: the path names a listing, a year-like segment, or the anchor
// text suggests one.
func looksLikeListing(rawURL, anchorText string) bool {
	loweredURL := strings.ToLower(rawURL)
	for _, token := range listingPathTokens {
		if strings.Contains(loweredURL, token) {
			return true
		}
	}
	if yearSegment.MatchString(loweredURL) {
		return true
	}
	loweredText := strings.ToLower(strings.TrimSpace(anchorText))
	if loweredText == "" {
		return false
	}
	for _, token := range navTextTokens {
		if loweredText == token {
			return false
		}
	}
	for _, token := range listingTextTokens {
		if strings.Contains(loweredText, token) {
			return true
		}
	}
	return false
}

// isNavText drops pure navigation anchors.
func isNavText(anchorText string) bool {
	lowered := strings.ToLower(strings.TrimSpace(anchorText))
	for _, token := range navTextTokens {
		if lowered == token {
			return true
		}
	}
	return false
}

// ClassifyDocType maps a document title to its type. Checked in order:
// budget words, audit words, debt words, implementation-report words,
// then OTHER.
func ClassifyDocType(title string) string {
	lowered := strings.ToLower(title)
	switch {
	case containsAny(lowered, "budget", "allocation", "appropriation", "estimates"):
		return models.DocTypeBudget
	case containsAny(lowered, "audit", "auditor"):
		return models.DocTypeAudit
	case containsAny(lowered, "debt", "loan", "borrowing"):
		return models.DocTypeLoan
	case containsAny(lowered, "implementation", "review", "expenditure"):
		return models.DocTypeReport
	default:
		return models.DocTypeOther
	}
}

func containsAny(lowered string, tokens ...string) bool {
	for _, token := range tokens {
		if strings.Contains(lowered, token) {
			return true
		}
	}
	return false
}

// cleanText collapses whitespace in anchor/title text.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// titleFor falls back from anchor text to a humanized URL basename.
func titleFor(anchorText, rawURL string) string {
	title := cleanText(anchorText)
	if title != "" && !strings.EqualFold(title, "download") {
		return title
	}
	base := common.URLBasename(rawURL)
	if idx := strings.LastIndex(base, "."); idx > 0 {
		base = base[:idx]
	}
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	return cleanText(base)
}

// inferYear pulls the most specific year signal from anchor text then URL.
func inferYear(anchorText, rawURL string) int {
	if year := normalizer.ExtractYear(anchorText); year != 0 {
		return year
	}
	return normalizer.ExtractYear(rawURL)
}

// dedupeByURL merges candidates with the same normalized URL, first one
// wins.
func dedupeByURL(docs []models.CandidateDocument) []models.CandidateDocument {
	seen := make(map[string]bool, len(docs))
	out := make([]models.CandidateDocument, 0, len(docs))
	for _, doc := range docs {
		key := common.NormalizeURL(doc.URL)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, doc)
	}
	return out
}

// anchorInChrome reports whether the anchor sits inside site chrome
// (navigation, header, footer) rather than page content.
func anchorInChrome(sel *goquery.Selection) bool {
	return sel.ParentsFiltered("nav, header, footer").Length() > 0
}
