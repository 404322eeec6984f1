package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/openkenya/hazina/internal/common"
	"github.com/openkenya/hazina/internal/interfaces"
	"github.com/openkenya/hazina/internal/models"
	"github.com/openkenya/hazina/internal/services/discovery"
	"github.com/openkenya/hazina/internal/services/fetcher"
	"github.com/openkenya/hazina/internal/services/parsers"
	"github.com/openkenya/hazina/internal/services/registry"
	"github.com/openkenya/hazina/internal/storage/manifest"
)

// fakeExtractor returns one canned text page per artifact.
type fakeExtractor struct{}

func (fakeExtractor) Extract(ctx context.Context, filePath string) (*models.ExtractionResult, error) {
	return &models.ExtractionResult{
		ExtractorName:  "fake",
		Pages:          []models.PageContent{{PageNumber: 1, Text: "page one"}},
		Confidence:     0.9,
		ExtractionDate: time.Now().UTC(),
	}, nil
}

// fakeLoader records loads and job lifecycle calls. failURLs forces a load
// error for matching document URLs.
type fakeLoader struct {
	mu       sync.Mutex
	perLoad  interfaces.LoadResult
	failURLs map[string]bool
	loaded   []string
	started  []*models.IngestionJob
	finished []*models.IngestionJob
	nextID   int64
}

func (f *fakeLoader) LoadDocument(ctx context.Context, doc *models.SourceDocument, extraction *models.ExtractionResult, records []models.Record) (interfaces.LoadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failURLs[doc.URL] {
		return interfaces.LoadResult{}, fmt.Errorf("load document %s: connection refused", doc.URL)
	}
	f.nextID++
	f.loaded = append(f.loaded, doc.URL)
	result := f.perLoad
	result.DocumentID = f.nextID
	return result, nil
}

func (f *fakeLoader) StartJob(ctx context.Context, domain string, dryRun bool) (*models.IngestionJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job := &models.IngestionJob{
		ID:        fmt.Sprintf("job-%d", len(f.started)+1),
		Domain:    domain,
		Status:    models.JobStatusRunning,
		DryRun:    dryRun,
		StartedAt: time.Now().UTC(),
	}
	f.started = append(f.started, job)
	return job, nil
}

func (f *fakeLoader) FinishJob(ctx context.Context, job *models.IngestionJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished = append(f.finished, job)
	return nil
}

func (f *fakeLoader) loadedURLs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.loaded))
	copy(out, f.loaded)
	return out
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []interfaces.Notification
}

func (f *fakeNotifier) Send(ctx context.Context, n interfaces.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
	return nil
}

// fixture bundles a pipeline wired against an httptest publisher.
type fixture struct {
	service  *Service
	loader   *fakeLoader
	notifier *fakeNotifier
	manifest *manifest.FileStore
	reports  string
}

// newFixture builds a pipeline whose catalogue has the treasury source
// pointed at serverURL with the given seed path.
func newFixture(t *testing.T, serverURL, seedPath string) *fixture {
	t.Helper()
	logger := common.GetLogger()

	dataDir := t.TempDir()
	downloads := filepath.Join(dataDir, "downloads")
	reports := filepath.Join(dataDir, "reports")

	cataloguePath := filepath.Join(dataDir, "sources.toml")
	catalogue := fmt.Sprintf(`[[sources]]
key = "treasury"
name = "The National Treasury"
country = "KE"
base_url = %q
seed_urls = [%q]
page_bound = 1
enabled = true

[[sources]]
key = "cob"
name = "Office of the Controller of Budget"
country = "KE"
base_url = %q
seed_urls = [%q]
page_bound = 1
enabled = false
`, serverURL, serverURL+seedPath, serverURL, serverURL+seedPath)
	if err := os.WriteFile(cataloguePath, []byte(catalogue), 0o644); err != nil {
		t.Fatalf("write catalogue: %v", err)
	}

	reg, err := registry.NewService(cataloguePath, logger)
	if err != nil {
		t.Fatalf("load catalogue: %v", err)
	}

	fetch := fetcher.NewService(common.FetcherConfig{
		UserAgent:       "hazina-test/1.0",
		RequestTimeout:  5 * time.Second,
		PageHashTimeout: 2 * time.Second,
		MaxRetries:      1,
		InitialBackoff:  time.Millisecond,
		MaxBackoff:      5 * time.Millisecond,
		HostDelay:       time.Millisecond,
	}, downloads, nil, logger)

	disc := discovery.NewService(fetch, common.DiscoveryConfig{
		LightLimit:      5,
		DeepLimit:       50,
		MaxCrawlDepth:   2,
		MaxSitemapDepth: 3,
	}, logger)

	store, err := manifest.NewFileStore(filepath.Join(downloads, manifest.FileName), logger)
	if err != nil {
		t.Fatalf("manifest store: %v", err)
	}

	loader := &fakeLoader{perLoad: interfaces.LoadResult{Created: 2, Updated: 1}}
	notifier := &fakeNotifier{}

	cfg := &common.Config{}
	cfg.Data.DownloadsDir = downloads
	cfg.Data.ReportsDir = reports
	cfg.Pipeline.DocumentDelay = time.Millisecond
	cfg.Discovery.LightLimit = 5
	cfg.Discovery.DeepLimit = 50
	cfg.Discovery.MaxCrawlDepth = 2
	cfg.Discovery.MaxSitemapDepth = 3

	svc := NewService(
		reg,
		disc,
		fetch,
		fakeExtractor{},
		parsers.NewDispatcher(map[string]float64{"USD": 129.0}, logger),
		loader,
		store,
		notifier,
		cfg,
		logger,
	)

	return &fixture{service: svc, loader: loader, notifier: notifier, manifest: store, reports: reports}
}

// treasuryPublisher serves one listing with three distinct budget PDFs.
func treasuryPublisher() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch strings.TrimSuffix(r.URL.Path, "/") {
		case "/budget":
			fmt.Fprint(w, `<html><body>
				<a href="/docs/budget-statement-fy-2023-24.pdf">Budget Statement FY 2023/24</a>
				<a href="/docs/expenditure-report-2022.pdf">Expenditure Report 2022</a>
				<a href="/docs/appropriation-act-2021.pdf">Appropriation Act 2021</a>
			</body></html>`)
		case "/docs/budget-statement-fy-2023-24.pdf":
			fmt.Fprint(w, "fake-pdf-budget-statement")
		case "/docs/expenditure-report-2022.pdf":
			fmt.Fprint(w, "fake-pdf-expenditure-report")
		case "/docs/appropriation-act-2021.pdf":
			fmt.Fprint(w, "fake-pdf-appropriation-act")
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestRunSourceEndToEnd(t *testing.T) {
	server := treasuryPublisher()
	defer server.Close()
	fx := newFixture(t, server.URL, "/budget")

	summary, err := fx.service.RunSource(context.Background(), "treasury", Options{})
	if err != nil {
		t.Fatalf("RunSource failed: %v", err)
	}

	if summary.Discovered != 3 {
		t.Errorf("Discovered = %d, want 3", summary.Discovered)
	}
	if summary.Processed != 3 || summary.Successful != 3 || summary.Skipped != 0 {
		t.Errorf("summary = %+v, want 3 processed, 3 successful, 0 skipped", summary)
	}
	if len(summary.Failures) != 0 {
		t.Errorf("unexpected failures: %+v", summary.Failures)
	}
	if got := len(fx.loader.loadedURLs()); got != 3 {
		t.Errorf("loader saw %d documents, want 3", got)
	}
	if fx.manifest.Len() != 3 {
		t.Errorf("manifest has %d entries, want 3", fx.manifest.Len())
	}

	if len(fx.loader.finished) != 1 {
		t.Fatalf("finished jobs = %d, want 1", len(fx.loader.finished))
	}
	job := fx.loader.finished[0]
	if job.RecordsCreated != 6 || job.RecordsUpdated != 3 || job.RecordsProcessed != 9 {
		t.Errorf("job counters = created %d updated %d processed %d, want 6/3/9",
			job.RecordsCreated, job.RecordsUpdated, job.RecordsProcessed)
	}
	if len(job.Errors) != 0 {
		t.Errorf("job errors = %v", job.Errors)
	}

	if len(fx.notifier.sent) != 0 {
		t.Errorf("unexpected notifications: %+v", fx.notifier.sent)
	}

	dateDir := filepath.Join(fx.reports, summary.StartedAt.Format("2006-01-02"))
	tsv, err := os.ReadFile(filepath.Join(dateDir, fmt.Sprintf("treasury_%s_discovered.tsv", summary.Job)))
	if err != nil {
		t.Fatalf("discovered listing not written: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(tsv)), "\n")
	if len(lines) != 4 || lines[0] != "title\turl" {
		t.Errorf("discovered listing has %d lines, header %q", len(lines), lines[0])
	}
	if _, err := os.Stat(filepath.Join(dateDir, fmt.Sprintf("treasury_%s_summary.json", summary.Job))); err != nil {
		t.Errorf("run summary not written: %v", err)
	}

	results, err := filepath.Glob(filepath.Join(fx.reports, "pipeline_results_*.json"))
	if err != nil || len(results) != 1 {
		t.Errorf("pipeline results files = %v (err %v), want exactly 1", results, err)
	}

	known, err := discovery.LoadKnownStore(filepath.Join(fx.reports, "known"), "treasury")
	if err != nil {
		t.Fatalf("reload known store: %v", err)
	}
	if known.Len() != 3 {
		t.Errorf("known store has %d URLs, want 3", known.Len())
	}
}

func TestRunSourceSecondRunSkipsEverything(t *testing.T) {
	server := treasuryPublisher()
	defer server.Close()
	fx := newFixture(t, server.URL, "/budget")

	if _, err := fx.service.RunSource(context.Background(), "treasury", Options{}); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	second, err := fx.service.RunSource(context.Background(), "treasury", Options{})
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if second.Skipped != 3 || second.Processed != 0 || second.Successful != 0 {
		t.Errorf("second run = %+v, want 3 skipped, 0 processed", second)
	}
	if got := len(fx.loader.loadedURLs()); got != 3 {
		t.Errorf("loader saw %d documents across both runs, want 3", got)
	}
}

func TestRunSourceContentDuplicateSkipsLoad(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch strings.TrimSuffix(r.URL.Path, "/") {
		case "/budget":
			fmt.Fprint(w, `<html><body>
				<a href="/docs/budget-statement-fy-2023-24.pdf">Budget Statement FY 2023/24</a>
				<a href="/docs/budget-statement-mirror.pdf">Budget Statement Mirror Copy</a>
			</body></html>`)
		case "/docs/budget-statement-fy-2023-24.pdf", "/docs/budget-statement-mirror.pdf":
			// Same bytes behind both URLs.
			fmt.Fprint(w, "fake-pdf-budget-statement")
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()
	fx := newFixture(t, server.URL, "/budget")

	summary, err := fx.service.RunSource(context.Background(), "treasury", Options{})
	if err != nil {
		t.Fatalf("RunSource failed: %v", err)
	}

	if summary.Successful != 1 || summary.Skipped != 1 {
		t.Errorf("summary = %+v, want 1 successful, 1 skipped", summary)
	}
	if got := len(fx.loader.loadedURLs()); got != 1 {
		t.Errorf("loader saw %d documents, want 1", got)
	}
	if fx.manifest.Len() != 1 {
		t.Errorf("manifest has %d entries, want 1", fx.manifest.Len())
	}
}

func TestRunSourceLoadFailureAlertsAndContinues(t *testing.T) {
	server := treasuryPublisher()
	defer server.Close()
	fx := newFixture(t, server.URL, "/budget")
	fx.loader.failURLs = map[string]bool{
		server.URL + "/docs/expenditure-report-2022.pdf": true,
	}

	summary, err := fx.service.RunSource(context.Background(), "treasury", Options{})
	if err != nil {
		t.Fatalf("RunSource should not fail for a per-document error: %v", err)
	}

	if summary.Processed != 3 || summary.Successful != 2 {
		t.Errorf("summary = %+v, want 3 processed, 2 successful", summary)
	}
	if len(summary.Failures) != 1 {
		t.Fatalf("failures = %+v, want 1", summary.Failures)
	}
	if !strings.Contains(summary.Failures[0].URL, "expenditure-report-2022.pdf") {
		t.Errorf("failure URL = %q", summary.Failures[0].URL)
	}

	if len(fx.notifier.sent) != 1 {
		t.Fatalf("notifications = %d, want 1", len(fx.notifier.sent))
	}
	alert := fx.notifier.sent[0]
	if alert.Severity != interfaces.SeverityCritical {
		t.Errorf("alert severity = %q, want critical", alert.Severity)
	}
	if alert.Metadata["source"] != "treasury" {
		t.Errorf("alert metadata = %v", alert.Metadata)
	}

	job := fx.loader.finished[0]
	if len(job.Errors) != 1 {
		t.Errorf("job errors = %v, want 1", job.Errors)
	}
	// The failed document stays out of the manifest so the next run
	// retries it.
	if fx.manifest.Len() != 2 {
		t.Errorf("manifest has %d entries, want 2", fx.manifest.Len())
	}
}

func TestRunSourceDryRunLoadsNothing(t *testing.T) {
	server := treasuryPublisher()
	defer server.Close()
	fx := newFixture(t, server.URL, "/budget")

	summary, err := fx.service.RunSource(context.Background(), "treasury", Options{DryRun: true})
	if err != nil {
		t.Fatalf("RunSource failed: %v", err)
	}

	if summary.Processed != 3 || summary.Successful != 3 {
		t.Errorf("summary = %+v, want 3 processed, 3 successful", summary)
	}
	if got := len(fx.loader.loadedURLs()); got != 0 {
		t.Errorf("dry run loaded %d documents", got)
	}
	if fx.manifest.Len() != 0 {
		t.Errorf("dry run wrote %d manifest entries", fx.manifest.Len())
	}
	if !fx.loader.started[0].DryRun {
		t.Error("job row should record dry_run")
	}
	if fx.loader.finished[0].RecordsProcessed != 0 {
		t.Errorf("dry run job processed %d records", fx.loader.finished[0].RecordsProcessed)
	}
}

func TestRunSourceLimitKeepsNewest(t *testing.T) {
	server := treasuryPublisher()
	defer server.Close()
	fx := newFixture(t, server.URL, "/budget")

	summary, err := fx.service.RunSource(context.Background(), "treasury", Options{Limit: 2})
	if err != nil {
		t.Fatalf("RunSource failed: %v", err)
	}

	if summary.Discovered != 3 || summary.Processed != 2 {
		t.Errorf("summary = %+v, want 3 discovered, 2 processed", summary)
	}
	loaded := fx.loader.loadedURLs()
	if len(loaded) != 2 {
		t.Fatalf("loaded = %v, want 2 documents", loaded)
	}
	for _, url := range loaded {
		if strings.HasSuffix(url, "appropriation-act-2021.pdf") {
			t.Errorf("oldest document should have been trimmed, loaded %v", loaded)
		}
	}
}

func TestRunSourceUnknownAndDisabled(t *testing.T) {
	server := treasuryPublisher()
	defer server.Close()
	fx := newFixture(t, server.URL, "/budget")

	if _, err := fx.service.RunSource(context.Background(), "parliament", Options{}); err == nil {
		t.Error("unknown source should fail")
	}
	if _, err := fx.service.RunSource(context.Background(), "cob", Options{}); err == nil {
		t.Error("disabled source should fail")
	}
	if len(fx.loader.started) != 0 {
		t.Errorf("no job should start for rejected sources, got %d", len(fx.loader.started))
	}
}

func TestRunSourceCanceledContextFailsJob(t *testing.T) {
	server := treasuryPublisher()
	defer server.Close()
	fx := newFixture(t, server.URL, "/budget")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := fx.service.RunSource(ctx, "treasury", Options{}); err == nil {
		t.Fatal("canceled run should return an error")
	}
	if len(fx.loader.finished) != 1 {
		t.Fatalf("finished jobs = %d, want 1", len(fx.loader.finished))
	}
	job := fx.loader.finished[0]
	if job.Status != models.JobStatusFailed {
		t.Errorf("job status = %q, want failed", job.Status)
	}
	if len(job.Errors) == 0 {
		t.Error("failed job should carry the discovery error")
	}
}

func TestTrimNewest(t *testing.T) {
	docs := []models.CandidateDocument{
		{URL: "a", Meta: models.DocumentMeta{Year: 0}},
		{URL: "b", Meta: models.DocumentMeta{Year: 2022}},
		{URL: "c", Meta: models.DocumentMeta{Year: 2024}},
		{URL: "d", Meta: models.DocumentMeta{Year: 0}},
		{URL: "e", Meta: models.DocumentMeta{Year: 2023}},
	}

	out := TrimNewest(docs, 3)
	if len(out) != 3 {
		t.Fatalf("got %d docs, want 3", len(out))
	}
	if out[0].URL != "c" || out[1].URL != "e" || out[2].URL != "b" {
		t.Errorf("order = %s %s %s, want c e b", out[0].URL, out[1].URL, out[2].URL)
	}

	// Undated candidates stay in discovery order behind the dated ones.
	out = TrimNewest(docs, 4)
	if out[3].URL != "a" {
		t.Errorf("fourth = %s, want first undated candidate", out[3].URL)
	}

	if got := TrimNewest(docs, 0); len(got) != len(docs) {
		t.Errorf("limit 0 should keep everything, got %d", len(got))
	}
	if got := TrimNewest(docs, 10); len(got) != len(docs) {
		t.Errorf("generous limit should keep everything, got %d", len(got))
	}
	// No trim means no reorder.
	if got := TrimNewest(docs, 10); got[0].URL != "a" {
		t.Errorf("untrimmed order changed: %s", got[0].URL)
	}
}
