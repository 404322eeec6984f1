// Package discovery walks publisher websites and enumerates candidate
// documents. Each source gets its own strategy (paginated category pages,
// sitemap walks, CMS REST enumeration), but every strategy yields the
// same shape: a candidate with URL, title, classified type and crawl
// breadcrumbs, restricted to the publisher's own host.
package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/openkenya/hazina/internal/common"
	"github.com/openkenya/hazina/internal/models"
	"github.com/openkenya/hazina/internal/services/fetcher"
)

// maxCrawlPages caps listing-page fetches per discovery run so a
// misbehaving publisher cannot trap the crawler.
const maxCrawlPages = 150

// Service runs per-source discovery strategies over the shared fetcher.
type Service struct {
	fetcher *fetcher.Service
	config  common.DiscoveryConfig
	logger  arbor.ILogger
}

// NewService creates the discovery service.
func NewService(f *fetcher.Service, config common.DiscoveryConfig, logger arbor.ILogger) *Service {
	return &Service{
		fetcher: f,
		config:  config,
		logger:  logger,
	}
}

// Discover enumerates candidate documents for one source, deduplicated
// by URL with first-wins merging.
func (s *Service) Discover(ctx context.Context, source *models.Source) ([]models.CandidateDocument, error) {
	if source == nil {
		return nil, fmt.Errorf("discover: nil source")
	}

	started := time.Now()
	var docs []models.CandidateDocument

	switch source.Key {
	case models.SourceTreasury:
		docs = s.discoverTreasury(ctx, source)
	case models.SourceCOB:
		docs = s.discoverCOB(ctx, source)
	case models.SourceOAG:
		docs = s.discoverOAG(ctx, source)
	default:
		// knbs, opendata, cra and any future catalogue entry share the
		// generic listing walk.
		docs = s.discoverListing(ctx, source)
	}

	if s.config.EnableFeeds && source.FeedURL != "" {
		docs = append(docs, s.probeFeed(ctx, source)...)
	}

	docs = dedupeByURL(docs)

	s.logger.Info().
		Str("source", source.Key).
		Int("documents", len(docs)).
		Dur("elapsed", time.Since(started)).
		Msg("Discovery finished")

	return docs, ctx.Err()
}

// queueItem is one page awaiting a crawl visit.
type queueItem struct {
	url         string
	depth       int
	breadcrumbs []string
}

// crawlPage fetches one listing page and walks its anchors. The visitor
// receives each resolved same-host URL with the anchor's cleaned text;
// foreign-host anchors and unresolvable hrefs are filtered here.
func (s *Service) crawlPage(ctx context.Context, source *models.Source, pageURL string, visit func(resolved, text string, inChrome bool)) error {
	doc, err := s.fetcher.FetchHTML(ctx, pageURL, source.Key)
	if err != nil {
		return err
	}

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		resolved := common.ResolveURL(pageURL, href)
		if resolved == "" || !common.SameHost(resolved, source.BaseURL) {
			return
		}
		visit(common.NormalizeURL(resolved), cleanText(a.Text()), anchorInChrome(a))
	})
	return nil
}

// newCandidate builds a candidate document from a file link found while
// crawling. Titles that classify as OTHER fall back to the source's
// first declared hint: everything the Auditor-General publishes is an
// audit even when the title never says so.
func (s *Service) newCandidate(source *models.Source, rawURL, anchorText string, breadcrumbs []string, level string) models.CandidateDocument {
	title := titleFor(anchorText, rawURL)
	docType := ClassifyDocType(title)
	if docType == models.DocTypeOther && len(source.DocTypeHints) > 0 {
		docType = source.DocTypeHints[0]
	}
	return models.CandidateDocument{
		URL:          rawURL,
		Title:        title,
		Source:       source.Name,
		SourceKey:    source.Key,
		DocType:      docType,
		DiscoveredAt: time.Now().UTC(),
		Meta: models.DocumentMeta{
			Breadcrumbs: breadcrumbs,
			Year:        inferYear(anchorText+" "+title, rawURL),
			Level:       level,
		},
	}
}

// pageBound returns the source's pagination cap, defaulting to 3.
func pageBound(source *models.Source) int {
	if source.PageBound > 0 {
		return source.PageBound
	}
	return 3
}

// paginated expands a seed into itself plus /page/{i}/ variants, the
// WordPress pagination convention every Kenyan publisher in the
// catalogue uses.
func paginated(seed string, bound int) []string {
	pages := []string{seed}
	for i := 2; i <= bound; i++ {
		pages = append(pages, common.JoinPath(seed, fmt.Sprintf("page/%d/", i)))
	}
	return pages
}

// appendCrumb copies the trail and appends one label, keeping at most
// the last four entries so breadcrumbs stay a UI-sized hint.
func appendCrumb(trail []string, label string) []string {
	label = cleanText(label)
	out := make([]string, 0, len(trail)+1)
	out = append(out, trail...)
	if label != "" {
		out = append(out, label)
	}
	if len(out) > 4 {
		out = out[len(out)-4:]
	}
	return out
}
