// Package pipeline orchestrates one source's collection run: discover,
// trim to the newest N, then fetch, extract, parse and load per document.
// The manifest is persisted after every document so a crash loses at most
// the in-flight one, and each run leaves a summary plus the discovered
// listing under the reports directory.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/openkenya/hazina/internal/common"
	"github.com/openkenya/hazina/internal/interfaces"
	"github.com/openkenya/hazina/internal/models"
	"github.com/openkenya/hazina/internal/services/discovery"
	"github.com/openkenya/hazina/internal/services/fetcher"
	"github.com/openkenya/hazina/internal/services/parsers"
	"github.com/openkenya/hazina/internal/services/registry"
)

// maxFailureRecords caps the failure list in run summaries.
const maxFailureRecords = 50

// Options control one run.
type Options struct {
	Deep   bool // deep trim limit instead of light
	Limit  int  // explicit trim limit, 0 uses the configured mode limit
	DryRun bool // parse but never touch the database
}

// DocOutcome classifies what happened to one candidate.
type DocOutcome int

const (
	DocLoaded DocOutcome = iota
	DocSkipped
	DocFailed
)

// CandidateResult is ProcessCandidate's report for one document.
type CandidateResult struct {
	Outcome        DocOutcome
	DocumentID     int64
	RecordsParsed  int
	Created        int
	Updated        int
	SkippedRecords int
	Err            error
}

// Service runs the collection pipeline for catalogue sources.
type Service struct {
	registry  *registry.Service
	discovery *discovery.Service
	fetcher   *fetcher.Service
	extractor interfaces.Extractor
	parsers   *parsers.Dispatcher
	loader    interfaces.Loader
	manifest  interfaces.ManifestStore
	notifier  interfaces.Notifier

	config     common.PipelineConfig
	limits     common.DiscoveryConfig
	reportsDir string
	logger     arbor.ILogger
}

// NewService wires the pipeline. notifier may be nil when alerting is not
// configured.
func NewService(
	reg *registry.Service,
	disc *discovery.Service,
	fetch *fetcher.Service,
	extract interfaces.Extractor,
	dispatcher *parsers.Dispatcher,
	load interfaces.Loader,
	manifest interfaces.ManifestStore,
	notifier interfaces.Notifier,
	config *common.Config,
	logger arbor.ILogger,
) *Service {
	return &Service{
		registry:   reg,
		discovery:  disc,
		fetcher:    fetch,
		extractor:  extract,
		parsers:    dispatcher,
		loader:     load,
		manifest:   manifest,
		notifier:   notifier,
		config:     config.Pipeline,
		limits:     config.Discovery,
		reportsDir: config.Data.ReportsDir,
		logger:     logger,
	}
}

// RunSource executes one source end to end and returns the run summary.
// Per-document failures are recorded and the run continues; only unknown
// sources, job bookkeeping and discovery failures surface as errors.
func (s *Service) RunSource(ctx context.Context, sourceKey string, opts Options) (*models.RunSummary, error) {
	source := s.registry.Get(sourceKey)
	if source == nil {
		return nil, fmt.Errorf("unknown source %q", sourceKey)
	}
	if !source.Enabled {
		return nil, fmt.Errorf("source %q is disabled", sourceKey)
	}

	job, err := s.loader.StartJob(ctx, sourceKey, opts.DryRun)
	if err != nil {
		return nil, fmt.Errorf("start job for %s: %w", sourceKey, err)
	}
	summary := &models.RunSummary{
		Source:    sourceKey,
		Job:       job.ID,
		StartedAt: time.Now().UTC(),
	}

	candidates, err := s.discovery.Discover(ctx, source)
	if err != nil {
		summary.FinishedAt = time.Now().UTC()
		job.Status = models.JobStatusFailed
		job.Errors = append(job.Errors, fmt.Sprintf("discovery: %v", err))
		s.finishJob(ctx, job)
		return summary, fmt.Errorf("discover %s: %w", sourceKey, err)
	}
	summary.Discovered = len(candidates)

	known := s.recordKnown(sourceKey, candidates)
	queue := TrimNewest(candidates, s.trimLimit(opts))

	s.logger.Info().
		Str("source", sourceKey).
		Str("job", job.ID).
		Int("discovered", len(candidates)).
		Int("queued", len(queue)).
		Bool("dry_run", opts.DryRun).
		Msg("Pipeline run starting")

	for i := range queue {
		if i > 0 && s.config.DocumentDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(s.config.DocumentDelay):
			}
		}
		if ctx.Err() != nil {
			job.Errors = append(job.Errors, fmt.Sprintf("run canceled: %v", ctx.Err()))
			break
		}

		result := s.ProcessCandidate(ctx, &queue[i], opts.DryRun)
		applyResult(summary, job, &queue[i], result)
	}

	summary.FinishedAt = time.Now().UTC()
	s.finishJob(ctx, job)
	s.writeArtifacts(sourceKey, job.ID, candidates, summary)
	if known != nil {
		if err := known.Save(); err != nil {
			s.logger.Warn().Err(err).Str("source", sourceKey).Msg("Known URL store not saved")
		}
	}

	s.logger.Info().
		Str("source", sourceKey).
		Str("job", job.ID).
		Int("processed", summary.Processed).
		Int("successful", summary.Successful).
		Int("skipped", summary.Skipped).
		Int("failures", len(summary.Failures)).
		Msg("Pipeline run finished")

	return summary, nil
}

// ProcessCandidate takes one candidate through fetch, extract, parse and
// load. Manifest hits short-circuit: a URL hit before HTTP, a content
// hash hit after download. Safe for concurrent use; the backfill runner
// calls it from worker goroutines.
func (s *Service) ProcessCandidate(ctx context.Context, candidate *models.CandidateDocument, dryRun bool) CandidateResult {
	if entry, ok := s.manifest.GetByURL(candidate.URL); ok {
		s.logger.Debug().
			Str("url", candidate.URL).
			Int64("document_id", entry.DocumentID).
			Msg("Manifest URL hit")
		return CandidateResult{Outcome: DocSkipped, DocumentID: entry.DocumentID}
	}

	fetch, err := s.fetcher.Download(ctx, candidate.URL, candidate.SourceKey)
	if err != nil {
		return CandidateResult{Outcome: DocFailed, Err: fmt.Errorf("download: %w", err)}
	}

	if entry, ok := s.manifest.Get(fetch.MD5); ok {
		// Same content republished at a new URL: reindex, never reprocess.
		entry.URL = candidate.URL
		s.manifest.Put(fetch.MD5, entry)
		s.persistManifest()
		s.logger.Debug().
			Str("url", candidate.URL).
			Str("md5", fetch.MD5).
			Msg("Manifest content hit")
		return CandidateResult{Outcome: DocSkipped, DocumentID: entry.DocumentID}
	}

	extraction, err := s.extractor.Extract(ctx, fetch.FilePath)
	if err != nil {
		return CandidateResult{Outcome: DocFailed, Err: fmt.Errorf("extract: %w", err)}
	}

	doc := documentFromCandidate(candidate, fetch)
	records := s.parsers.For(doc).Parse(ctx, extraction, doc)
	result := CandidateResult{Outcome: DocLoaded, RecordsParsed: len(records)}

	if dryRun {
		s.logger.Info().
			Str("url", candidate.URL).
			Int("records", len(records)).
			Msg("Dry run, load skipped")
		return result
	}

	loaded, err := s.loader.LoadDocument(ctx, doc, extraction, records)
	if err != nil {
		s.alertLoadFailure(ctx, candidate, err)
		return CandidateResult{Outcome: DocFailed, Err: err}
	}
	result.DocumentID = loaded.DocumentID
	result.Created = loaded.Created
	result.Updated = loaded.Updated
	result.SkippedRecords = loaded.Skipped

	s.manifest.Put(fetch.MD5, models.ManifestEntry{
		DocumentID: loaded.DocumentID,
		FilePath:   fetch.FilePath,
		URL:        candidate.URL,
		Title:      candidate.Title,
		Source:     candidate.Source,
		DocType:    candidate.DocType,
		Fetched:    doc.FetchedAt,
		MirrorKey:  fetch.MirrorKey,
	})
	s.persistManifest()

	return result
}

// TrimNewest keeps the newest limit candidates. Candidates carrying a
// discovered year sort newest first; unknown-year candidates keep their
// discovery order behind the dated ones.
func TrimNewest(candidates []models.CandidateDocument, limit int) []models.CandidateDocument {
	if limit <= 0 || len(candidates) <= limit {
		return candidates
	}
	sorted := make([]models.CandidateDocument, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		yi, yj := sorted[i].Meta.Year, sorted[j].Meta.Year
		if yi == 0 || yj == 0 {
			return yi != 0 && yj == 0
		}
		return yi > yj
	})
	return sorted[:limit]
}

// trimLimit resolves the effective queue size for a run.
func (s *Service) trimLimit(opts Options) int {
	if opts.Limit > 0 {
		return opts.Limit
	}
	if opts.Deep {
		return s.limits.DeepLimit
	}
	return s.limits.LightLimit
}

// applyResult folds one document outcome into the run summary and the job
// counters.
func applyResult(summary *models.RunSummary, job *models.IngestionJob, candidate *models.CandidateDocument, result CandidateResult) {
	switch result.Outcome {
	case DocSkipped:
		summary.Skipped++
	case DocFailed:
		summary.Processed++
		if len(summary.Failures) < maxFailureRecords {
			summary.Failures = append(summary.Failures, models.RunFailure{
				URL:   candidate.URL,
				Error: result.Err.Error(),
			})
		}
		job.Errors = append(job.Errors, fmt.Sprintf("%s: %v", candidate.URL, result.Err))
	default:
		summary.Processed++
		summary.Successful++
		job.RecordsProcessed += result.Created + result.Updated + result.SkippedRecords
		job.RecordsCreated += result.Created
		job.RecordsUpdated += result.Updated
	}
}

// documentFromCandidate builds the provenance root for a fetched
// candidate. Discovery context and mirror details ride along in metadata.
func documentFromCandidate(candidate *models.CandidateDocument, fetch *models.FetchResult) *models.SourceDocument {
	now := time.Now().UTC()
	metadata := map[string]interface{}{"size": fetch.Size}
	if len(candidate.Meta.Breadcrumbs) > 0 {
		metadata["breadcrumbs"] = candidate.Meta.Breadcrumbs
	}
	if candidate.Meta.Year > 0 {
		metadata["year"] = candidate.Meta.Year
	}
	if candidate.Meta.Level != "" {
		metadata["level"] = candidate.Meta.Level
	}
	if fetch.MirrorKey != "" {
		metadata["mirror_key"] = fetch.MirrorKey
	}
	if fetch.ContentType != "" {
		metadata["content_type"] = fetch.ContentType
	}

	return &models.SourceDocument{
		Source:     candidate.Source,
		SourceKey:  candidate.SourceKey,
		Title:      candidate.Title,
		URL:        candidate.URL,
		FilePath:   fetch.FilePath,
		FetchedAt:  now,
		MD5:        fetch.MD5,
		DocType:    candidate.DocType,
		Status:     models.DocStatusAvailable,
		LastSeenAt: now,
		Metadata:   metadata,
	}
}

// recordKnown appends newly discovered URLs to the source's audit trail
// under reports/known. Store failures only log; the trail is advisory.
func (s *Service) recordKnown(sourceKey string, candidates []models.CandidateDocument) *discovery.KnownStore {
	known, err := discovery.LoadKnownStore(filepath.Join(s.reportsDir, "known"), sourceKey)
	if err != nil {
		s.logger.Warn().Err(err).Str("source", sourceKey).Msg("Known URL store not loaded")
		return nil
	}
	fresh := 0
	for _, c := range candidates {
		if known.Add(c.URL) {
			fresh++
		}
	}
	if fresh > 0 {
		s.logger.Debug().
			Str("source", sourceKey).
			Int("new_urls", fresh).
			Msg("Known URL store updated")
	}
	return known
}

// alertLoadFailure pages the operator: a load failure means the database
// rejected a document, which needs a human even though the run continues.
func (s *Service) alertLoadFailure(ctx context.Context, candidate *models.CandidateDocument, err error) {
	if s.notifier == nil {
		return
	}
	notification := interfaces.Notification{
		Title:    "Document load failed",
		Body:     fmt.Sprintf("%s: %v", candidate.URL, err),
		Severity: interfaces.SeverityCritical,
		Metadata: map[string]string{
			"source": candidate.SourceKey,
			"url":    candidate.URL,
		},
	}
	if notifyErr := s.notifier.Send(ctx, notification); notifyErr != nil {
		s.logger.Warn().Err(notifyErr).Msg("Load failure alert not delivered")
	}
}

func (s *Service) persistManifest() {
	if err := s.manifest.Persist(); err != nil {
		s.logger.Error().Err(err).Msg("Manifest persist failed")
	}
}

func (s *Service) finishJob(ctx context.Context, job *models.IngestionJob) {
	if err := s.loader.FinishJob(ctx, job); err != nil {
		s.logger.Error().Err(err).Str("job", job.ID).Msg("Job row not finalized")
	}
}
