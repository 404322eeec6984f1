// Package app wires the ingestion platform together: configuration and
// secrets first, then storage, then the service graph in dependency
// order. Every command in cmd/hazina builds one App and drives it.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/ternarybob/arbor"

	"github.com/openkenya/hazina/internal/common"
	"github.com/openkenya/hazina/internal/interfaces"
	"github.com/openkenya/hazina/internal/services/backfill"
	"github.com/openkenya/hazina/internal/services/discovery"
	"github.com/openkenya/hazina/internal/services/extractor"
	"github.com/openkenya/hazina/internal/services/fetcher"
	"github.com/openkenya/hazina/internal/services/loader"
	"github.com/openkenya/hazina/internal/services/monitor"
	"github.com/openkenya/hazina/internal/services/notify"
	"github.com/openkenya/hazina/internal/services/parsers"
	"github.com/openkenya/hazina/internal/services/pipeline"
	"github.com/openkenya/hazina/internal/services/registry"
	"github.com/openkenya/hazina/internal/services/scheduler"
	"github.com/openkenya/hazina/internal/services/secrets"
	"github.com/openkenya/hazina/internal/services/seeder"
	"github.com/openkenya/hazina/internal/storage/blob"
	"github.com/openkenya/hazina/internal/storage/manifest"
	"github.com/openkenya/hazina/internal/storage/postgres"
)

// manifestFileName sits inside the downloads directory so the manifest
// travels with the artifacts it indexes.
const manifestFileName = "processed_manifest.json"

// App holds the initialized component graph.
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	Secrets  interfaces.SecretStore
	DB       *postgres.PostgresDB
	Store    interfaces.Store
	Blob     interfaces.BlobStore
	Manifest interfaces.ManifestStore

	Registry  *registry.Service
	Fetcher   *fetcher.Service
	Discovery *discovery.Service
	Extractor interfaces.Extractor
	Parsers   *parsers.Dispatcher
	Loader    interfaces.Loader
	Scheduler interfaces.Scheduler
	Notifier  interfaces.Notifier

	Pipeline *pipeline.Service
	Backfill *backfill.Service
	Monitor  *monitor.Service
	Seeder   *seeder.Service
}

// New initializes the application with all dependencies. The context
// bounds startup work (secret fetches, the database ping, migrations).
func New(ctx context.Context, cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	store, err := secrets.NewStore(ctx, cfg.Secrets, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secret store: %w", err)
	}
	app.Secrets = store
	app.applySecrets(ctx)

	if err := app.initStorage(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Int("sources", app.Registry.Len()).
		Bool("blob_mirror", app.Blob != nil).
		Msg("Application initialization complete")
	return app, nil
}

// applySecrets fills sensitive settings the config files left empty.
// Values already present win, so a plain TOML deployment never touches a
// backend. Missing secrets are fine; hard backend errors are logged and
// startup continues, failing later and louder if the value was needed.
func (a *App) applySecrets(ctx context.Context) {
	resolve := func(name string, target *string) {
		if *target != "" {
			return
		}
		value, err := a.Secrets.Get(ctx, name)
		if err != nil {
			if !errors.Is(err, interfaces.ErrSecretNotFound) {
				a.Logger.Warn().Str("secret", name).Err(err).Msg("Secret lookup failed")
			}
			return
		}
		*target = value
	}

	resolve("database_url", &a.Config.Database.URL)
	resolve("db_password", &a.Config.Database.Password)
	resolve("smtp_password", &a.Config.Notify.SMTPPassword)
	resolve("slack_webhook_url", &a.Config.Notify.SlackWebhookURL)
	resolve("pagerduty_routing_key", &a.Config.Notify.PagerDutyRoutingKey)
}

// initStorage brings up Postgres (with migrations), the processed-document
// manifest, and the optional blob mirror.
func (a *App) initStorage(ctx context.Context) error {
	db, err := postgres.NewPostgresDB(ctx, a.Logger, &a.Config.Database)
	if err != nil {
		return err
	}
	a.DB = db
	a.Store = postgres.NewStore(db, a.Logger)

	manifestPath := filepath.Join(a.Config.Data.DownloadsDir, manifestFileName)
	store, err := manifest.NewFileStore(manifestPath, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to open manifest: %w", err)
	}
	a.Manifest = store

	if a.Config.Blob.Enabled {
		blobStore, err := blob.NewS3Store(ctx, a.Config.Blob, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize blob mirror: %w", err)
		}
		a.Blob = blobStore
	}
	return nil
}

// initServices builds the service graph in dependency order: the shared
// infrastructure (registry, fetcher, notifier), the pipeline stages, then
// the drivers that compose them.
func (a *App) initServices() error {
	reg, err := registry.NewService(a.Config.Registry.Path, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to load source registry: %w", err)
	}
	a.Registry = reg

	a.Fetcher = fetcher.NewService(a.Config.Fetcher, a.Config.Data.DownloadsDir, a.Blob, a.Logger)
	a.Discovery = discovery.NewService(a.Fetcher, a.Config.Discovery, a.Logger)
	a.Extractor = extractor.NewService(a.Logger)
	a.Parsers = parsers.NewDispatcher(a.Config.Rates, a.Logger)
	a.Loader = loader.NewService(a.Store, a.Logger)
	a.Scheduler = scheduler.NewService(reg.Keys(), a.Logger)
	a.Notifier = notify.NewService(a.Config.Notify, a.Logger)

	a.Pipeline = pipeline.NewService(
		a.Registry,
		a.Discovery,
		a.Fetcher,
		a.Extractor,
		a.Parsers,
		a.Loader,
		a.Manifest,
		a.Notifier,
		a.Config,
		a.Logger,
	)
	a.Backfill = backfill.NewService(
		a.Registry,
		a.Discovery,
		a.Pipeline,
		a.Loader,
		a.Config,
		a.Logger,
	)
	a.Monitor = monitor.NewService(a.Notifier, 0, a.Logger)
	a.Seeder = seeder.NewService(a.Store, a.Config.Seeds, a.Logger)
	return nil
}

// Close releases application resources. Safe to call on a partially
// initialized App.
func (a *App) Close() {
	if a.Store != nil {
		a.Store.Close()
		a.Logger.Info().Msg("Storage closed")
	}
}
