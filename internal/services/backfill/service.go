// Package backfill sweeps publisher archives for historical documents.
// Unlike the scheduled light runs it takes every discovered candidate
// (optionally windowed by year), dedupes across sources and processes
// documents concurrently under a semaphore.
package backfill

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/openkenya/hazina/internal/common"
	"github.com/openkenya/hazina/internal/interfaces"
	"github.com/openkenya/hazina/internal/models"
	"github.com/openkenya/hazina/internal/services/discovery"
	"github.com/openkenya/hazina/internal/services/pipeline"
	"github.com/openkenya/hazina/internal/services/registry"
)

// maxFailureRecords caps the failure list in the sweep summary.
const maxFailureRecords = 50

// summaryFileName is the sweep report written under the reports directory.
const summaryFileName = "backfill_summary.json"

// Options control one sweep. Zero values fall back to the configured
// backfill defaults.
type Options struct {
	Sources     []string // empty = all enabled sources
	YearFrom    int      // 0 = no lower bound
	YearTo      int      // 0 = no upper bound
	Concurrency int      // 0 = configured default
	DryRun      bool
}

// Service drives historical sweeps over the shared pipeline.
type Service struct {
	registry   *registry.Service
	discovery  *discovery.Service
	pipeline   *pipeline.Service
	loader     interfaces.Loader
	defaults   common.BackfillConfig
	reportsDir string
	logger     arbor.ILogger
}

// NewService wires the backfill runner.
func NewService(
	reg *registry.Service,
	disc *discovery.Service,
	pipe *pipeline.Service,
	load interfaces.Loader,
	config *common.Config,
	logger arbor.ILogger,
) *Service {
	return &Service{
		registry:   reg,
		discovery:  disc,
		pipeline:   pipe,
		loader:     load,
		defaults:   config.Backfill,
		reportsDir: config.Data.ReportsDir,
		logger:     logger,
	}
}

// Run executes one sweep: discover every requested source, window and
// dedupe the candidates, then process them concurrently. Per-document
// failures are recorded in the summary; only source resolution, job
// bookkeeping and cancellation surface as errors.
func (s *Service) Run(ctx context.Context, opts Options) (*models.BackfillSummary, error) {
	sources, err := s.resolveSources(opts.Sources)
	if err != nil {
		return nil, err
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = s.defaults.Concurrency
	}
	if concurrency <= 0 {
		concurrency = 3
	}

	job, err := s.loader.StartJob(ctx, "backfill", opts.DryRun)
	if err != nil {
		return nil, fmt.Errorf("start backfill job: %w", err)
	}

	summary := &models.BackfillSummary{
		Sources:     keysOf(sources),
		YearFrom:    opts.YearFrom,
		YearTo:      opts.YearTo,
		Concurrency: concurrency,
		StartedAt:   time.Now().UTC(),
	}

	queue, err := s.gather(ctx, sources, opts, summary)
	if err != nil {
		summary.FinishedAt = time.Now().UTC()
		job.Status = models.JobStatusFailed
		job.Errors = append(job.Errors, fmt.Sprintf("discovery: %v", err))
		s.finishJob(ctx, job)
		return summary, err
	}
	summary.QueuedUnique = len(queue)

	s.logger.Info().
		Strs("sources", summary.Sources).
		Int("discovered", summary.Discovered).
		Int("queued_unique", summary.QueuedUnique).
		Int("concurrency", concurrency).
		Bool("dry_run", opts.DryRun).
		Msg("Backfill sweep starting")

	s.process(ctx, queue, concurrency, opts.DryRun, summary, job)

	summary.FinishedAt = time.Now().UTC()
	s.finishJob(ctx, job)
	s.writeSummary(summary)

	s.logger.Info().
		Int("processed", summary.Processed).
		Int("successful", summary.Successful).
		Int("skipped", summary.Skipped).
		Int("failures", len(summary.Failures)).
		Dur("elapsed", summary.FinishedAt.Sub(summary.StartedAt)).
		Msg("Backfill sweep finished")

	return summary, ctx.Err()
}

// resolveSources maps the requested keys to catalogue entries, defaulting
// to every enabled source.
func (s *Service) resolveSources(keys []string) ([]*models.Source, error) {
	if len(keys) == 0 {
		keys = s.defaults.Sources
	}
	if len(keys) == 0 {
		enabled := s.registry.Enabled()
		if len(enabled) == 0 {
			return nil, fmt.Errorf("no enabled sources in the catalogue")
		}
		return enabled, nil
	}

	out := make([]*models.Source, 0, len(keys))
	for _, key := range keys {
		source := s.registry.Get(key)
		if source == nil {
			return nil, fmt.Errorf("unknown source %q", key)
		}
		if !source.Enabled {
			return nil, fmt.Errorf("source %q is disabled", key)
		}
		out = append(out, source)
	}
	return out, nil
}

// gather discovers every source sequentially, applies the year window and
// dedupes by URL with first-wins ordering.
func (s *Service) gather(ctx context.Context, sources []*models.Source, opts Options, summary *models.BackfillSummary) ([]models.CandidateDocument, error) {
	var queue []models.CandidateDocument
	seen := make(map[string]bool)

	for _, source := range sources {
		candidates, err := s.discovery.Discover(ctx, source)
		if err != nil {
			return nil, fmt.Errorf("discover %s: %w", source.Key, err)
		}
		summary.Discovered += len(candidates)
		s.recordKnown(source.Key, candidates)

		for _, candidate := range candidates {
			if !inWindow(candidate.Meta.Year, opts.YearFrom, opts.YearTo) {
				continue
			}
			if seen[candidate.URL] {
				continue
			}
			seen[candidate.URL] = true
			queue = append(queue, candidate)
		}
	}
	return queue, nil
}

// inWindow keeps a candidate whose year fits the bounds. Unknown years
// (zero) always pass: dropping them would silently hide undatable
// documents from the sweep.
func inWindow(year, from, to int) bool {
	if year == 0 {
		return true
	}
	if from > 0 && year < from {
		return false
	}
	if to > 0 && year > to {
		return false
	}
	return true
}

// process drains the queue with at most concurrency documents in flight.
// Workers fold their results into the summary under a lock; cancellation
// stops admission and lets in-flight documents abort through their ctx.
func (s *Service) process(ctx context.Context, queue []models.CandidateDocument, concurrency int, dryRun bool, summary *models.BackfillSummary, job *models.IngestionJob) {
	sem := semaphore.NewWeighted(int64(concurrency))
	group, groupCtx := errgroup.WithContext(ctx)
	var mu sync.Mutex

	for i := range queue {
		candidate := &queue[i]
		if err := sem.Acquire(groupCtx, 1); err != nil {
			mu.Lock()
			job.Errors = append(job.Errors, fmt.Sprintf("sweep canceled: %v", err))
			mu.Unlock()
			break
		}
		group.Go(func() error {
			defer sem.Release(1)
			result := s.pipeline.ProcessCandidate(groupCtx, candidate, dryRun)

			mu.Lock()
			defer mu.Unlock()
			switch result.Outcome {
			case pipeline.DocSkipped:
				summary.Skipped++
			case pipeline.DocFailed:
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
			return nil
		})
	}
	group.Wait()
}

// recordKnown appends the sweep's discoveries to the per-source audit
// trail under reports/known.
func (s *Service) recordKnown(sourceKey string, candidates []models.CandidateDocument) {
	known, err := discovery.LoadKnownStore(filepath.Join(s.reportsDir, "known"), sourceKey)
	if err != nil {
		s.logger.Warn().Err(err).Str("source", sourceKey).Msg("Known URL store not loaded")
		return
	}
	for _, c := range candidates {
		known.Add(c.URL)
	}
	if err := known.Save(); err != nil {
		s.logger.Warn().Err(err).Str("source", sourceKey).Msg("Known URL store not saved")
	}
}

func (s *Service) writeSummary(summary *models.BackfillSummary) {
	if err := os.MkdirAll(s.reportsDir, 0o755); err != nil {
		s.logger.Warn().Err(err).Str("dir", s.reportsDir).Msg("Reports dir not created")
		return
	}
	path := filepath.Join(s.reportsDir, summaryFileName)
	if err := common.WriteJSONFile(path, summary); err != nil {
		s.logger.Warn().Err(err).Str("path", path).Msg("Backfill summary not written")
	}
}

func (s *Service) finishJob(ctx context.Context, job *models.IngestionJob) {
	if err := s.loader.FinishJob(ctx, job); err != nil {
		s.logger.Error().Err(err).Str("job", job.ID).Msg("Job row not finalized")
	}
}

func keysOf(sources []*models.Source) []string {
	keys := make([]string, 0, len(sources))
	for _, source := range sources {
		keys = append(keys, source.Key)
	}
	return keys
}
