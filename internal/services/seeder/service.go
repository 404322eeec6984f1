// Package seeder loads YAML reference data into the store: the 47 county
// governments, the national ministries, and baseline national aggregates
// so dashboards render before the first ingestion sweep lands. Every pass
// is idempotent; re-running a seed rewrites nothing that is already
// current.
package seeder

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"gopkg.in/yaml.v3"

	"github.com/openkenya/hazina/internal/common"
	"github.com/openkenya/hazina/internal/interfaces"
	"github.com/openkenya/hazina/internal/models"
	"github.com/openkenya/hazina/internal/services/normalizer"
)

// countryISO pins seeding to Kenya, matching the loader.
const countryISO = "KE"

// Seed kinds accepted by Seed.
const (
	KindCounties   = "counties"
	KindMinistries = "ministries"
	KindMinimums   = "minimums"
)

// Result reports what one seed pass did. Ensured counts reference
// entities found or created; Written and Unchanged count aggregate rows.
type Result struct {
	Kind      string `json:"kind"`
	Ensured   int    `json:"ensured,omitempty"`
	Written   int    `json:"written,omitempty"`
	Unchanged int    `json:"unchanged,omitempty"`
}

// Service seeds reference data from YAML files in the seeds directory.
type Service struct {
	store  interfaces.Store
	dir    string
	logger arbor.ILogger
}

// NewService creates the seeder over an initialized store.
func NewService(store interfaces.Store, config common.SeedsConfig, logger arbor.ILogger) *Service {
	dir := config.Dir
	if dir == "" {
		dir = "seeds"
	}
	return &Service{store: store, dir: dir, logger: logger}
}

// Seed runs one named seed pass. Each pass is a single transaction, so a
// broken seed file leaves the database untouched.
func (s *Service) Seed(ctx context.Context, kind string) (*Result, error) {
	switch kind {
	case KindCounties:
		return s.seedEntities(ctx, kind, "counties.yaml", models.EntityTypeCounty, "county_government")
	case KindMinistries:
		return s.seedEntities(ctx, kind, "ministries.yaml", models.EntityTypeMinistry, "ministry")
	case KindMinimums:
		return s.seedMinimums(ctx)
	default:
		return nil, fmt.Errorf("unknown seed kind %q (want counties, ministries or minimums)", kind)
	}
}

// entityFile is the YAML shape shared by counties.yaml and
// ministries.yaml.
type entityFile struct {
	Entities []entitySeed `yaml:"entities"`
}

type entitySeed struct {
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases,omitempty"`
}

func (s *Service) seedEntities(ctx context.Context, kind, fileName, entityType, category string) (*Result, error) {
	var file entityFile
	if err := s.readSeedFile(fileName, &file); err != nil {
		return nil, err
	}
	if len(file.Entities) == 0 {
		return nil, fmt.Errorf("seed file %s lists no entities", fileName)
	}

	result := &Result{Kind: kind}
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx interfaces.StoreTx) error {
		country, err := tx.EnsureCountry(ctx, countryISO)
		if err != nil {
			return err
		}
		for _, seed := range file.Entities {
			if seed.Name == "" {
				continue
			}
			info := models.EntityInfo{
				CanonicalName: seed.Name,
				Type:          entityType,
				Category:      category,
				Confidence:    1,
			}
			if _, err := tx.EnsureEntity(ctx, &info, country.ID); err != nil {
				return err
			}
			// Aliases ride in as raw spellings so the entity carries
			// them as alternate names for later lookups.
			for _, alias := range seed.Aliases {
				withAlias := info
				withAlias.RawName = alias
				if _, err := tx.EnsureEntity(ctx, &withAlias, country.ID); err != nil {
					return err
				}
			}
			result.Ensured++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("seed %s: %w", kind, err)
	}

	s.logger.Info().
		Str("kind", kind).
		Int("ensured", result.Ensured).
		Msg("Reference entities seeded")
	return result, nil
}

// minimumsFile carries baseline rows for the aggregate tables, published
// figures re-keyed so a fresh deployment has national context on day one.
type minimumsFile struct {
	DebtTimelines   []debtSeed    `yaml:"debt_timelines"`
	FiscalSummaries []summarySeed `yaml:"fiscal_summaries"`
	RevenueBySource []revenueSeed `yaml:"revenue_by_source"`
}

type debtSeed struct {
	FiscalYear   string  `yaml:"fiscal_year"`
	ExternalDebt float64 `yaml:"external_debt"`
	DomesticDebt float64 `yaml:"domestic_debt"`
	TotalDebt    float64 `yaml:"total_debt,omitempty"`
}

type summarySeed struct {
	Entity      string  `yaml:"entity,omitempty"`
	FiscalYear  string  `yaml:"fiscal_year"`
	Revenue     float64 `yaml:"revenue"`
	Expenditure float64 `yaml:"expenditure"`
	Deficit     float64 `yaml:"deficit,omitempty"`
}

type revenueSeed struct {
	FiscalYear string  `yaml:"fiscal_year"`
	Source     string  `yaml:"source"`
	Amount     float64 `yaml:"amount"`
}

func (s *Service) seedMinimums(ctx context.Context) (*Result, error) {
	var file minimumsFile
	if err := s.readSeedFile("minimums.yaml", &file); err != nil {
		return nil, err
	}

	result := &Result{Kind: KindMinimums}
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx interfaces.StoreTx) error {
		country, err := tx.EnsureCountry(ctx, countryISO)
		if err != nil {
			return err
		}

		for _, seed := range file.DebtTimelines {
			if seed.FiscalYear == "" {
				continue
			}
			total := seed.TotalDebt
			if total == 0 {
				total = seed.ExternalDebt + seed.DomesticDebt
			}
			outcome, err := tx.UpsertDebtTimeline(ctx, &models.DebtTimeline{
				FiscalYear:   seed.FiscalYear,
				ExternalDebt: seed.ExternalDebt,
				DomesticDebt: seed.DomesticDebt,
				TotalDebt:    total,
			})
			if err != nil {
				return err
			}
			result.count(outcome)
		}

		for _, seed := range file.FiscalSummaries {
			if seed.FiscalYear == "" {
				continue
			}
			entity, err := tx.EnsureEntity(ctx, entityInfoFor(seed.Entity), country.ID)
			if err != nil {
				return err
			}
			deficit := seed.Deficit
			if deficit == 0 {
				deficit = seed.Expenditure - seed.Revenue
			}
			outcome, err := tx.UpsertFiscalSummary(ctx, &models.FiscalSummary{
				EntityID:    entity.ID,
				FiscalYear:  seed.FiscalYear,
				Revenue:     seed.Revenue,
				Expenditure: seed.Expenditure,
				Deficit:     deficit,
			})
			if err != nil {
				return err
			}
			result.count(outcome)
		}

		for _, seed := range file.RevenueBySource {
			if seed.FiscalYear == "" || seed.Source == "" {
				continue
			}
			outcome, err := tx.UpsertRevenueBySource(ctx, &models.RevenueBySource{
				FiscalYear:    seed.FiscalYear,
				RevenueSource: seed.Source,
				Amount:        seed.Amount,
			})
			if err != nil {
				return err
			}
			result.count(outcome)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("seed minimums: %w", err)
	}

	s.logger.Info().
		Int("written", result.Written).
		Int("unchanged", result.Unchanged).
		Msg("Minimum aggregates seeded")
	return result, nil
}

func (r *Result) count(outcome interfaces.UpsertOutcome) {
	if outcome == interfaces.OutcomeSkipped {
		r.Unchanged++
		return
	}
	r.Written++
}

// entityInfoFor resolves a seed entity name through the normalizer so
// seeded aggregates land on the same canonical entities ingestion uses.
// An empty name means the national government.
func entityInfoFor(name string) *models.EntityInfo {
	if name == "" {
		name = "National Government of Kenya"
	}
	if info := normalizer.NormalizeEntityName(name); info != nil {
		return info
	}
	return &models.EntityInfo{CanonicalName: name, Confidence: 1}
}

// readSeedFile decodes one YAML file from the seeds directory. Unknown
// fields fail decoding so typos in hand-edited files surface immediately.
func (s *Service) readSeedFile(name string, out interface{}) error {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}
