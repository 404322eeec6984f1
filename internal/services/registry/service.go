// Package registry holds the static catalogue of publishers the pipeline
// collects from. The catalogue is loaded once at startup and read-only
// afterwards.
package registry

import (
	"fmt"
	"os"
	"sort"

	"github.com/pelletier/go-toml/v2"
	"github.com/ternarybob/arbor"

	"github.com/openkenya/hazina/internal/models"
)

// Service provides read-only access to the source catalogue.
type Service struct {
	sources map[string]*models.Source
	keys    []string
	logger  arbor.ILogger
}

// catalogueFile is the on-disk shape of sources.toml.
type catalogueFile struct {
	Sources []*models.Source `toml:"sources"`
}

// NewService loads the catalogue from path. A missing file yields an
// empty registry with a warning; the orchestrator then has nothing to
// run, which is the documented behavior rather than a startup failure.
func NewService(path string, logger arbor.ILogger) (*Service, error) {
	s := &Service{
		sources: make(map[string]*models.Source),
		logger:  logger,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn().
				Str("path", path).
				Msg("Source catalogue file not found, registry is empty")
			return s, nil
		}
		return nil, fmt.Errorf("failed to read source catalogue %s: %w", path, err)
	}

	var file catalogueFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse source catalogue %s: %w", path, err)
	}

	for _, source := range file.Sources {
		if err := source.Validate(); err != nil {
			return nil, fmt.Errorf("invalid source %q in %s: %w", source.Key, path, err)
		}
		if _, exists := s.sources[source.Key]; exists {
			return nil, fmt.Errorf("duplicate source key %q in %s", source.Key, path)
		}
		s.sources[source.Key] = source
		s.keys = append(s.keys, source.Key)
	}
	sort.Strings(s.keys)

	logger.Info().
		Str("path", path).
		Int("sources", len(s.sources)).
		Msg("Source catalogue loaded")

	return s, nil
}

// Get returns the source for key, or nil when unknown.
func (s *Service) Get(key string) *models.Source {
	return s.sources[key]
}

// Keys returns all catalogue keys in sorted order.
func (s *Service) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// List returns all sources in key order.
func (s *Service) List() []*models.Source {
	out := make([]*models.Source, 0, len(s.keys))
	for _, key := range s.keys {
		out = append(out, s.sources[key])
	}
	return out
}

// Enabled returns the enabled sources in key order.
func (s *Service) Enabled() []*models.Source {
	out := make([]*models.Source, 0, len(s.keys))
	for _, key := range s.keys {
		if s.sources[key].Enabled {
			out = append(out, s.sources[key])
		}
	}
	return out
}

// Len returns the number of catalogued sources.
func (s *Service) Len() int {
	return len(s.sources)
}
