package interfaces

import (
	"github.com/openkenya/hazina/internal/models"
)

// ManifestStore is the content-addressed index of processed documents,
// keyed by MD5. A single process owns the store; the file-backed
// implementation rewrites atomically after every document so a crash loses
// at most the in-flight document.
type ManifestStore interface {
	// Get returns the entry for an MD5, if present.
	Get(md5 string) (models.ManifestEntry, bool)

	// GetByURL returns the entry whose URL matches, if any. Used to
	// short-circuit before HTTP.
	GetByURL(url string) (models.ManifestEntry, bool)

	// Put inserts or replaces the entry for an MD5 in memory.
	Put(md5 string, entry models.ManifestEntry)

	// Persist writes the current state to durable storage.
	Persist() error

	// Len reports the number of entries.
	Len() int
}
