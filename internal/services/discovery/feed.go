package discovery

import (
	"context"

	"github.com/mmcdole/gofeed"

	"github.com/openkenya/hazina/internal/common"
	"github.com/openkenya/hazina/internal/models"
)

// feedItemCap bounds how many feed entries one probe crawls. WordPress
// defaults the feed to the ten newest posts; anything longer is a full
// archive feed and the seed walk already covers it.
const feedItemCap = 10

// probeFeed reads the publisher's RSS feed and crawls each recent post
// as a listing page. Posts announce new report batches before the
// category pages pick them up, so this catches publications between
// listing refreshes. Every failure is silent: the feed is advisory.
func (s *Service) probeFeed(ctx context.Context, source *models.Source) []models.CandidateDocument {
	body, _, err := s.fetcher.FetchBytes(ctx, source.FeedURL)
	if err != nil {
		s.logger.Debug().
			Str("source", source.Key).
			Str("url", source.FeedURL).
			Err(err).
			Msg("Feed fetch failed")
		return nil
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		s.logger.Debug().
			Str("source", source.Key).
			Err(err).
			Msg("Feed parse failed")
		return nil
	}

	var docs []models.CandidateDocument
	seen := 0
	for _, item := range feed.Items {
		if ctx.Err() != nil || seen >= feedItemCap {
			break
		}
		link := common.NormalizeURL(item.Link)
		if link == "" || !common.SameHost(link, source.BaseURL) {
			continue
		}
		seen++
		crumbs := appendCrumb([]string{"feed"}, item.Title)

		if isFileLink(link, item.Title) {
			if !isExcluded(link, item.Title) {
				docs = append(docs, s.newCandidate(source, link, item.Title, crumbs, ""))
			}
			continue
		}

		err := s.crawlPage(ctx, source, link, func(resolved, text string, inChrome bool) {
			if inChrome || !isFileLink(resolved, text) || isExcluded(resolved, text) {
				return
			}
			docs = append(docs, s.newCandidate(source, resolved, text, crumbs, ""))
		})
		if err != nil {
			s.logger.Debug().
				Str("source", source.Key).
				Str("url", link).
				Err(err).
				Msg("Feed post crawl failed")
		}
	}
	return docs
}
