package discovery

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/openkenya/hazina/internal/common"
	"github.com/openkenya/hazina/internal/models"
)

// discoverCOB enumerates Controller of Budget implementation reports.
//
// The COB site lists County BIRR and National BIRR under paginated seed
// pages, but a large share of its PDFs are reachable only through the
// WordPress media library and the sitemap. Three passes run in order:
// the seed listing walk, a recursive sitemap walk, and wp-json media
// enumeration. Dedup at the caller folds the overlap.
func (s *Service) discoverCOB(ctx context.Context, source *models.Source) []models.CandidateDocument {
	docs := s.walkSeedListings(ctx, source)

	for _, sm := range []string{"sitemap.xml", "sitemap_index.xml"} {
		docs = append(docs, s.walkSitemap(ctx, source, common.JoinPath(source.BaseURL, sm), 0)...)
	}

	if source.ContentAPI != "" {
		docs = append(docs, s.enumerateMedia(ctx, source)...)
	}

	return docs
}

// walkSeedListings crawls each seed page plus its /page/{i}/ variants,
// one level deep. COB report listings do not nest, so there is no BFS.
func (s *Service) walkSeedListings(ctx context.Context, source *models.Source) []models.CandidateDocument {
	bound := pageBound(source)
	var docs []models.CandidateDocument

	for _, seed := range source.SeedURLs {
		crumb := appendCrumb(nil, common.URLBasename(seed))
		for _, page := range paginated(seed, bound) {
			if ctx.Err() != nil {
				return docs
			}
			err := s.crawlPage(ctx, source, page, func(resolved, text string, inChrome bool) {
				if inChrome {
					return
				}
				// COB serves most PDFs behind /download/ paths with no
				// extension, so the path counts as a file signal too.
				if !isFileLink(resolved, text) && !strings.Contains(resolved, "/download/") {
					return
				}
				if isExcluded(resolved, text) {
					return
				}
				docs = append(docs, s.newCandidate(source, resolved, text, crumb, ""))
			})
			if err != nil {
				s.logger.Warn().
					Str("source", source.Key).
					Str("url", page).
					Err(err).
					Msg("Seed listing fetch failed")
			}
		}
	}
	return docs
}

// sitemapIndex and sitemapURLSet model the two WordPress sitemap shapes.
type sitemapIndex struct {
	Sitemaps []sitemapLoc `xml:"sitemap"`
}

type sitemapURLSet struct {
	URLs []sitemapLoc `xml:"url"`
}

type sitemapLoc struct {
	Loc string `xml:"loc"`
}

// walkSitemap fetches one sitemap document and recurses into nested
// indexes. File URLs become candidates directly; everything else is
// ignored, since the seed walk already covers listing pages.
func (s *Service) walkSitemap(ctx context.Context, source *models.Source, sitemapURL string, depth int) []models.CandidateDocument {
	if depth > s.config.MaxSitemapDepth || ctx.Err() != nil {
		return nil
	}

	body, _, err := s.fetcher.FetchBytes(ctx, sitemapURL)
	if err != nil {
		s.logger.Debug().
			Str("source", source.Key).
			Str("url", sitemapURL).
			Err(err).
			Msg("Sitemap fetch failed")
		return nil
	}

	var docs []models.CandidateDocument
	crumb := []string{"sitemap"}

	var index sitemapIndex
	if xml.Unmarshal(body, &index) == nil && len(index.Sitemaps) > 0 {
		for _, child := range index.Sitemaps {
			docs = append(docs, s.walkSitemap(ctx, source, strings.TrimSpace(child.Loc), depth+1)...)
		}
		return docs
	}

	var set sitemapURLSet
	if xml.Unmarshal(body, &set) != nil {
		return nil
	}
	for _, entry := range set.URLs {
		loc := common.NormalizeURL(strings.TrimSpace(entry.Loc))
		if loc == "" || !common.SameHost(loc, source.BaseURL) {
			continue
		}
		if isFileLink(loc, "") && !isExcluded(loc, "") {
			docs = append(docs, s.newCandidate(source, loc, "", crumb, ""))
		}
	}
	return docs
}

// wpMedia is the subset of the WordPress REST media item we read.
type wpMedia struct {
	SourceURL string `json:"source_url"`
	MimeType  string `json:"mime_type"`
	Title     struct {
		Rendered string `json:"rendered"`
	} `json:"title"`
}

// mediaMimeTypes lists the attachment mime types worth fetching.
var mediaMimeTypes = []string{
	"application/pdf",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// enumerateMedia pages through the wp-json media endpoint per mime
// type. WordPress caps per_page at 100 and returns an empty array past
// the last page.
func (s *Service) enumerateMedia(ctx context.Context, source *models.Source) []models.CandidateDocument {
	var docs []models.CandidateDocument
	crumbs := []string{"wp-json"}

	for _, mime := range mediaMimeTypes {
		for page := 1; page <= pageBound(source); page++ {
			if ctx.Err() != nil {
				return docs
			}
			endpoint := fmt.Sprintf("%s/wp/v2/media?media_type=application&mime_type=%s&per_page=100&page=%d",
				strings.TrimRight(source.ContentAPI, "/"), mime, page)

			body, _, err := s.fetcher.FetchBytes(ctx, endpoint)
			if err != nil {
				s.logger.Debug().
					Str("source", source.Key).
					Str("mime", mime).
					Int("page", page).
					Err(err).
					Msg("Media endpoint fetch failed")
				break
			}

			var items []wpMedia
			if err := json.Unmarshal(body, &items); err != nil || len(items) == 0 {
				break
			}

			for _, item := range items {
				loc := common.NormalizeURL(item.SourceURL)
				if loc == "" || !common.SameHost(loc, source.BaseURL) {
					continue
				}
				if isExcluded(loc, item.Title.Rendered) {
					continue
				}
				docs = append(docs, s.newCandidate(source, loc, item.Title.Rendered, crumbs, ""))
			}
			if len(items) < 100 {
				break
			}
		}
	}
	return docs
}
