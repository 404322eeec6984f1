package models

import (
	"net/http"
	"time"
)

// Document type variants, classified from the document title at discovery time.
const (
	DocTypeBudget = "BUDGET"
	DocTypeAudit  = "AUDIT"
	DocTypeReport = "REPORT"
	DocTypeLoan   = "LOAN"
	DocTypeOther  = "OTHER"
)

// Document status variants.
const (
	DocStatusAvailable = "AVAILABLE"
	DocStatusArchived  = "ARCHIVED"
	DocStatusFailed    = "FAILED"
)

// CandidateDocument is what a discovery strategy yields: a link to a
// downloadable artifact plus everything we learned about it from the
// listing page that referenced it.
type CandidateDocument struct {
	URL          string       `json:"url"`
	Title        string       `json:"title"`
	Source       string       `json:"source"`     // publisher display name
	SourceKey    string       `json:"source_key"` // treasury, cob, oag, knbs, opendata, cra
	DocType      string       `json:"doc_type"`
	DiscoveredAt time.Time    `json:"discovered_at"`
	Meta         DocumentMeta `json:"meta"`
}

/// DocumentMeta carries discovery-side context: the breadcrumb trail of the
// listing pages that led to the link, the fiscal year inferred from the URL
// or anchor text (0 when unknown), and the publisher section level.
type DocumentMeta struct {
	Breadcrumbs []string `json:"breadcrumbs,omitempty"`
	Year        int      `json:"year,omitempty"`
	Level       string   `json:"level,omitempty"` // national, county, specialized, special
}

// SourceDocument is the provenance root persisted for every fetched artifact.
// Fact rows reference exactly one SourceDocument.
type SourceDocument struct {
	ID         int64                  `json:"id"`
	Source     string                 `json:"source"`
	SourceKey  string                 `json:"source_key"`
	Title      string                 `json:"title"`
	URL        string                 `json:"url"`
	FilePath   string                 `json:"file_path"`
	FetchedAt  time.Time              `json:"fetched_at"`
	MD5        string                 `json:"md5,omitempty"`
	DocType    string                 `json:"doc_type"`
	Status     string                 `json:"status"`
	LastSeenAt time.Time              `json:"last_seen_at"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// FetchResult is the fetcher's report for one successful download.
type FetchResult struct {
	FilePath    string      `json:"file_path"`
	MD5         string      `json:"md5"`
	Size        int64       `json:"size"`
	ContentType string      `json:"content_type"`
	Headers     http.Header `json:"-"`
	MirrorKey   string      `json:"mirror_key,omitempty"`
}

// ManifestEntry mirrors one processed document in the on-disk manifest.
// The manifest is the single source of truth for "already processed"
// decisions at the fetch layer.
type ManifestEntry struct {
	DocumentID int64     `json:"document_id"`
	FilePath   string    `json:"file_path"`
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	Source     string    `json:"source"`
	DocType    string    `json:"doc_type"`
	Fetched    time.Time `json:"fetched"`
	MirrorKey  string    `json:"mirror_key,omitempty"`
}
