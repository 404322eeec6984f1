package discovery

import (
	"context"

	"github.com/openkenya/hazina/internal/models"
)

// discoverTreasury walks treasury.go.ke budget-library listings.
//
// The Treasury publishes budget books under a handful of library
// sections that paginate with /page/{i}/ and cross-link sub-sections
// (sector reports, county allocations, circulars). A bounded BFS from
// the catalogue seeds covers all of them: file links become candidates,
// listing-like links are enqueued one level deeper, and the anchor text
// trail becomes the candidate's breadcrumbs.
func (s *Service) discoverTreasury(ctx context.Context, source *models.Source) []models.CandidateDocument {
	bound := pageBound(source)

	queue := make([]queueItem, 0, len(source.SeedURLs)*bound)
	for _, seed := range source.SeedURLs {
		for _, page := range paginated(seed, bound) {
			queue = append(queue, queueItem{url: page, depth: 0})
		}
	}

	visited := make(map[string]bool, len(queue))
	var docs []models.CandidateDocument
	pagesFetched := 0

	for len(queue) > 0 {
		if ctx.Err() != nil {
			break
		}
		item := queue[0]
		queue = queue[1:]

		if visited[item.url] || pagesFetched >= maxCrawlPages {
			continue
		}
		visited[item.url] = true
		pagesFetched++

		err := s.crawlPage(ctx, source, item.url, func(resolved, text string, inChrome bool) {
			switch {
			case isFileLink(resolved, text):
				if isExcluded(resolved, text) {
					return
				}
				docs = append(docs, s.newCandidate(source, resolved, text, item.breadcrumbs, ""))
			case item.depth < s.config.MaxCrawlDepth && looksLikeListing(resolved, text):
				if inChrome && isNavText(text) {
					return
				}
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
				Msg("Listing page fetch failed, continuing crawl")
		}
	}

	return docs
}
