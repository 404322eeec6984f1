package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string             `toml:"environment"` // "development" or "production"
	Registry    RegistryConfig     `toml:"registry"`
	Data        DataConfig         `toml:"data"`
	Database    DatabaseConfig     `toml:"database"`
	Logging     LoggingConfig      `toml:"logging"`
	Fetcher     FetcherConfig      `toml:"fetcher"`
	Discovery   DiscoveryConfig    `toml:"discovery"`
	Pipeline    PipelineConfig     `toml:"pipeline"`
	Scheduler   SchedulerConfig    `toml:"scheduler"`
	Backfill    BackfillConfig     `toml:"backfill"`
	Blob        BlobConfig         `toml:"blob"`
	Secrets     SecretsConfig      `toml:"secrets"`
	Notify      NotifyConfig       `toml:"notify"`
	Rates       map[string]float64 `toml:"rates"` // currency -> KES conversion rates
	Seeds       SeedsConfig        `toml:"seeds"`
}

// RegistryConfig locates the source catalogue file.
type RegistryConfig struct {
	Path string `toml:"path"` // sources.toml; missing file yields an empty registry
}

// DataConfig holds the working directories for downloads and reports.
type DataConfig struct {
	DownloadsDir string `toml:"downloads_dir"`
	ReportsDir   string `toml:"reports_dir"`
}

// DatabaseConfig holds Postgres connection settings. URL wins when set;
// otherwise the URL is assembled from the discrete fields.
type DatabaseConfig struct {
	URL      string `toml:"url"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Name     string `toml:"name"`
	SSLMode  string `toml:"sslmode"`
}

// DSN returns the effective connection string.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

type LoggingConfig struct {
	Level      string   `toml:"level" validate:"oneof=debug info warn error"`
	Format     string   `toml:"format"` // "json" or "text"
	Output     []string `toml:"output"` // "stdout", "file"
	TimeFormat string   `toml:"time_format"`
}

// FetcherConfig controls the polite HTTP client.
type FetcherConfig struct {
	UserAgent       string        `toml:"user_agent"`
	RequestTimeout  time.Duration `toml:"request_timeout"`
	PageHashTimeout time.Duration `toml:"page_hash_timeout"`
	MaxRetries      int           `toml:"max_retries"`
	InitialBackoff  time.Duration `toml:"initial_backoff"`
	MaxBackoff      time.Duration `toml:"max_backoff"`
	HostDelay       time.Duration `toml:"host_delay"` // minimum spacing between same-host requests
	InsecureHosts   []string      `toml:"insecure_hosts"` // known-broken-chain publishers allowed one unverified retry
}

// DiscoveryConfig bounds the crawl strategies.
type DiscoveryConfig struct {
	LightLimit      int  `toml:"light_limit"` // newest N documents per light run
	DeepLimit       int  `toml:"deep_limit"`
	MaxCrawlDepth   int  `toml:"max_crawl_depth"` // listing-to-listing hops per seed
	MaxSitemapDepth int  `toml:"max_sitemap_depth"`
	EnableFeeds     bool `toml:"enable_feeds"` // probe WordPress RSS feeds for recency
}

// PipelineConfig controls the orchestrator.
type PipelineConfig struct {
	DocumentDelay time.Duration `toml:"document_delay"` // courtesy sleep between same-source documents
	Concurrency   int           `toml:"concurrency"`    // in-flight documents per source (backfill)
}

// SchedulerConfig drives the serve-mode tick.
type SchedulerConfig struct {
	TickSchedule string `toml:"tick_schedule"` // cron expression consulted against ShouldRun
}

// BackfillConfig seeds the historical sweep defaults; flags and BACKFILL_*
// env variables override.
type BackfillConfig struct {
	Sources     []string `toml:"sources"`
	YearFrom    int      `toml:"year_from"`
	YearTo      int      `toml:"year_to"`
	Concurrency int      `toml:"concurrency"`
	Storage     string   `toml:"storage"` // local or blob
}

// BlobConfig configures the optional S3 mirror.
type BlobConfig struct {
	Enabled    bool          `toml:"enabled"`
	Bucket     string        `toml:"bucket"`
	Region     string        `toml:"region"`
	Endpoint   string        `toml:"endpoint"` // custom endpoint for MinIO/LocalStack
	PresignTTL time.Duration `toml:"presign_ttl"`
}

// SecretsConfig selects the secret backend.
type SecretsConfig struct {
	Backend    string `toml:"backend" validate:"oneof=env aws vault"`
	VaultAddr  string `toml:"vault_addr"`
	VaultToken string `toml:"vault_token"`
	AppName    string `toml:"app_name"`
}

// NotifyConfig configures the notifier channels.
type NotifyConfig struct {
	Channels            []string `toml:"channels"` // default dispatch set; "log" is always on
	SMTPHost            string   `toml:"smtp_host"`
	SMTPPort            int      `toml:"smtp_port"`
	SMTPUser            string   `toml:"smtp_user"`
	SMTPPassword        string   `toml:"smtp_password"`
	EmailTo             string   `toml:"email_to"`
	SlackWebhookURL     string   `toml:"slack_webhook_url"`
	PagerDutyRoutingKey string   `toml:"pagerduty_routing_key"`
}

// SeedsConfig locates the YAML reference-data files for the seed command.
type SeedsConfig struct {
	Dir string `toml:"dir"`
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability; only
// user-facing settings belong in hazina.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Registry: RegistryConfig{
			Path: "sources.toml",
		},
		Data: DataConfig{
			DownloadsDir: "downloads",
			ReportsDir:   "reports",
		},
		Database: DatabaseConfig{
			User:    "hazina",
			Host:    "localhost",
			Port:    5432,
			Name:    "hazina",
			SSLMode: "disable",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05",
		},
		Fetcher: FetcherConfig{
			UserAgent:       "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36 hazina/1.0",
			RequestTimeout:  45 * time.Second,
			PageHashTimeout: 15 * time.Second,
			MaxRetries:      3,
			InitialBackoff:  1 * time.Second,
			MaxBackoff:      30 * time.Second,
			HostDelay:       1 * time.Second,
			InsecureHosts:   []string{"www.treasury.go.ke", "cob.go.ke", "www.oagkenya.go.ke"},
		},
		Discovery: DiscoveryConfig{
			LightLimit:      5,
			DeepLimit:       50,
			MaxCrawlDepth:   2,
			MaxSitemapDepth: 3,
			EnableFeeds:     true,
		},
		Pipeline: PipelineConfig{
			DocumentDelay: 1 * time.Second,
			Concurrency:   3,
		},
		Scheduler: SchedulerConfig{
			TickSchedule: "*/30 * * * *",
		},
		Backfill: BackfillConfig{
			Concurrency: 3,
			Storage:     "local",
		},
		Blob: BlobConfig{
			PresignTTL: 15 * time.Minute,
		},
		Secrets: SecretsConfig{
			Backend: "env",
			AppName: "hazina",
		},
		Notify: NotifyConfig{
			Channels: []string{"log"},
			SMTPPort: 587,
		},
		Rates: map[string]float64{
			"KES": 1.0,
			"USD": 129.5,
			"EUR": 140.0,
			"GBP": 165.0,
		},
		Seeds: SeedsConfig{
			Dir: "seeds",
		},
	}
}

// LoadFromFiles loads configuration from files with priority:
// defaults -> file1 -> file2 -> ... -> env. Later files override earlier
// ones; environment variables override everything but CLI flags.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the merged configuration before services start.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := ValidateTickSchedule(c.Scheduler.TickSchedule); err != nil {
		return err
	}
	if c.Pipeline.Concurrency < 1 {
		return fmt.Errorf("pipeline.concurrency must be >= 1, got %d", c.Pipeline.Concurrency)
	}
	if rate, ok := c.Rates["KES"]; !ok || rate != 1.0 {
		return fmt.Errorf("rates must map KES to 1.0")
	}
	return nil
}

// ValidateTickSchedule parses a standard 5-field cron expression.
func ValidateTickSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid tick schedule %q: %w", schedule, err)
	}
	return nil
}

// IsProduction returns true when running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// applyEnvOverrides applies environment variable overrides to config.
// HAZINA_* variables cover the TOML surface; the remaining names are the
// deployment contract shared with the rest of the platform.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("HAZINA_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Database: DATABASE_URL wins, discrete DB_* fields otherwise.
	if url := os.Getenv("DATABASE_URL"); url != "" {
		config.Database.URL = url
	}
	if user := os.Getenv("DB_USER"); user != "" {
		config.Database.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		config.Database.Password = password
	}
	if host := os.Getenv("DB_HOST"); host != "" {
		config.Database.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Database.Port = p
		}
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		config.Database.Name = name
	}
	if sslmode := os.Getenv("DB_SSLMODE"); sslmode != "" {
		config.Database.SSLMode = sslmode
	}

	// Logging
	if level := os.Getenv("HAZINA_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("HAZINA_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Registry and data directories
	if path := os.Getenv("HAZINA_REGISTRY_PATH"); path != "" {
		config.Registry.Path = path
	}
	if dir := os.Getenv("HAZINA_DOWNLOADS_DIR"); dir != "" {
		config.Data.DownloadsDir = dir
	}
	if dir := os.Getenv("HAZINA_REPORTS_DIR"); dir != "" {
		config.Data.ReportsDir = dir
	}

	// Fetcher
	if ua := os.Getenv("HAZINA_FETCHER_USER_AGENT"); ua != "" {
		config.Fetcher.UserAgent = ua
	}
	if timeout := os.Getenv("HAZINA_FETCHER_REQUEST_TIMEOUT"); timeout != "" {
		if t, err := time.ParseDuration(timeout); err == nil {
			config.Fetcher.RequestTimeout = t
		}
	}
	if delay := os.Getenv("HAZINA_FETCHER_HOST_DELAY"); delay != "" {
		if d, err := time.ParseDuration(delay); err == nil {
			config.Fetcher.HostDelay = d
		}
	}

	// Scheduler
	if schedule := os.Getenv("HAZINA_TICK_SCHEDULE"); schedule != "" {
		config.Scheduler.TickSchedule = schedule
	}

	// Backfill contract
	if sources := os.Getenv("BACKFILL_SOURCES"); sources != "" {
		parts := []string{}
		for _, s := range strings.Split(sources, ",") {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
		config.Backfill.Sources = parts
	}
	if yearFrom := os.Getenv("BACKFILL_YEAR_FROM"); yearFrom != "" {
		if y, err := strconv.Atoi(yearFrom); err == nil {
			config.Backfill.YearFrom = y
		}
	}
	if yearTo := os.Getenv("BACKFILL_YEAR_TO"); yearTo != "" {
		if y, err := strconv.Atoi(yearTo); err == nil {
			config.Backfill.YearTo = y
		}
	}
	if concurrency := os.Getenv("BACKFILL_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil && c > 0 {
			config.Backfill.Concurrency = c
		}
	}
	if storage := os.Getenv("BACKFILL_STORAGE"); storage != "" {
		config.Backfill.Storage = storage
	}

	// Blob mirror contract
	if bucket := os.Getenv("AWS_BUCKET_NAME"); bucket != "" {
		config.Blob.Bucket = bucket
		config.Blob.Enabled = true
	}
	if region := os.Getenv("AWS_REGION"); region != "" {
		config.Blob.Region = region
	}
	if endpoint := os.Getenv("HAZINA_BLOB_ENDPOINT"); endpoint != "" {
		config.Blob.Endpoint = endpoint
	}

	// Secrets contract
	if backend := os.Getenv("SECRET_BACKEND"); backend != "" {
		config.Secrets.Backend = backend
	}
	if addr := os.Getenv("VAULT_ADDR"); addr != "" {
		config.Secrets.VaultAddr = addr
	}
	if token := os.Getenv("VAULT_TOKEN"); token != "" {
		config.Secrets.VaultToken = token
	}
	if app := os.Getenv("APP_NAME"); app != "" {
		config.Secrets.AppName = app
	}

	// Notifier contract
	if host := os.Getenv("SMTP_HOST"); host != "" {
		config.Notify.SMTPHost = host
	}
	if port := os.Getenv("SMTP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Notify.SMTPPort = p
		}
	}
	if user := os.Getenv("SMTP_USER"); user != "" {
		config.Notify.SMTPUser = user
	}
	if password := os.Getenv("SMTP_PASSWORD"); password != "" {
		config.Notify.SMTPPassword = password
	}
	if to := os.Getenv("NOTIFY_EMAIL_TO"); to != "" {
		config.Notify.EmailTo = to
	}
	if webhook := os.Getenv("HAZINA_SLACK_WEBHOOK_URL"); webhook != "" {
		config.Notify.SlackWebhookURL = webhook
	}
	if key := os.Getenv("HAZINA_PAGERDUTY_ROUTING_KEY"); key != "" {
		config.Notify.PagerDutyRoutingKey = key
	}
}
