package discovery

import (
	"context"

	"github.com/openkenya/hazina/internal/common"
	"github.com/openkenya/hazina/internal/models"
)

// discoverListing is the generic strategy for publishers whose sites
// are plain paginated listings: KNBS statistics publications, the open
// data portal's dataset listing and CRA allocation reports. It walks
// each seed plus pagination, emits file links and follows one tier of
// sub-listings (KNBS groups publications by year).
func (s *Service) discoverListing(ctx context.Context, source *models.Source) []models.CandidateDocument {
	bound := pageBound(source)
	var docs []models.CandidateDocument
	pagesFetched := 0

	queue := make([]queueItem, 0, len(source.SeedURLs)*bound)
	for _, seed := range source.SeedURLs {
		crumb := appendCrumb(nil, common.URLBasename(seed))
		for _, page := range paginated(seed, bound) {
			queue = append(queue, queueItem{url: page, depth: 0, breadcrumbs: crumb})
		}
	}

	visited := make(map[string]bool, len(queue))
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
			case item.depth < 1 && looksLikeListing(resolved, text):
				if inChrome || visited[resolved] || isExcluded(resolved, text) {
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
				Msg("Listing page fetch failed")
		}
	}
	return docs
}
