package discovery

import (
	"context"
	"strings"

	"github.com/openkenya/hazina/internal/common"
	"github.com/openkenya/hazina/internal/models"
)

// auditLevels maps URL path tokens to the OAG report tier. The Auditor
// General files reports under four sections; the level travels with the
// candidate so the audit parser can scope entity resolution.
var auditLevels = []struct {
	token string
	level string
}{
	{"county", "county"},
	{"national", "national"},
	{"specialized", "specialized"},
	{"special", "special"},
}

// levelFor classifies a URL into an audit tier by its path tokens.
// "special" is checked after "specialized" since it is a prefix of it.
func levelFor(rawURL string) string {
	lowered := strings.ToLower(rawURL)
	for _, al := range auditLevels {
		if strings.Contains(lowered, al.token) {
			return al.level
		}
	}
	return ""
}

// discoverOAG walks the Auditor General's four report sections.
//
// Each seed is one section (national, county, specialized entities,
// special audits). Sections paginate and cross-link fiscal-year
// sub-listings, so a shallow BFS per seed picks those up. The OAG site
// wraps every page in a dense nav bar; chrome anchors with nav-like
// text are dropped to keep breadcrumbs meaningful.
func (s *Service) discoverOAG(ctx context.Context, source *models.Source) []models.CandidateDocument {
	bound := pageBound(source)
	var docs []models.CandidateDocument
	pagesFetched := 0

	for _, seed := range source.SeedURLs {
		level := levelFor(seed)
		crumb := appendCrumb(nil, common.URLBasename(seed))

		queue := make([]queueItem, 0, bound)
		for _, page := range paginated(seed, bound) {
			queue = append(queue, queueItem{url: page, depth: 0, breadcrumbs: crumb})
		}

		visited := make(map[string]bool, len(queue))
		for len(queue) > 0 {
			if ctx.Err() != nil {
				return docs
			}
			item := queue[0]
			queue = queue[1:]
			if visited[item.url] || pagesFetched >= maxCrawlPages {
				continue
			}
			visited[item.url] = true
			pagesFetched++

			err := s.crawlPage(ctx, source, item.url, func(resolved, text string, inChrome bool) {
				if inChrome || isNavText(text) {
					return
				}
				switch {
				case isFileLink(resolved, text):
					if isExcluded(resolved, text) {
						return
					}
					docs = append(docs, s.newCandidate(source, resolved, text, item.breadcrumbs, level))
				case item.depth < s.config.MaxCrawlDepth && looksLikeListing(resolved, text):
					if visited[resolved] || isExcluded(resolved, text) {
						return
					}
					queue = append(queue, queueItem{
						url:         resolved,
						depth:       item.depth + 1,
						breadcrumbs: appendCrumb(item.breadcrumbs, text),
					})
				}
			})
			if err != nil {
				s.logger.Warn().
					Str("source", source.Key).
					Str("url", item.url).
					Err(err).
					Msg("Section page fetch failed")
			}
		}
	}
	return docs
}
