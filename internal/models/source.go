package models

import (
	"fmt"
	"strings"
)

// Well-known source keys.
const (
	SourceTreasury = "treasury"
	SourceCOB      = "cob"
	SourceOAG      = "oag"
	SourceKNBS     = "knbs"
	SourceOpenData = "opendata"
	SourceCRA      = "cra"
)

// Source is one publisher entry in the source registry. The registry is
// loaded once at startup and read-only afterwards.
type Source struct {
	Key          string   `toml:"key" json:"key" validate:"required,lowercase"`
	Name         string   `toml:"name" json:"name" validate:"required"`
	Country      string   `toml:"country" json:"country"`
	BaseURL      string   `toml:"base_url" json:"base_url" validate:"required,url"`
	SeedURLs     []string `toml:"seed_urls" json:"seed_urls"`
	DocTypeHints []string `toml:"doc_type_hints" json:"doc_type_hints,omitempty"`
	ContentAPI   string   `toml:"content_api" json:"content_api,omitempty"` // wp-json base, if the CMS exposes one
	FeedURL      string   `toml:"feed_url" json:"feed_url,omitempty"`
	PageBound    int      `toml:"page_bound" json:"page_bound"` // pagination cap per seed
	Enabled      bool     `toml:"enabled" json:"enabled"`
}

// Validate checks the parts the validator tags cannot express.
func (s *Source) Validate() error {
	for _, seed := range s.SeedURLs {
		if !strings.HasPrefix(seed, "http://") && !strings.HasPrefix(seed, "https://") {
			return fmt.Errorf("source %s: seed URL %q is not absolute", s.Key, seed)
		}
	}
	if s.PageBound < 0 {
		return fmt.Errorf("source %s: page_bound must be >= 0", s.Key)
	}
	return nil
}
