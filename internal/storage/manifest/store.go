// Package manifest persists the content-addressed index of processed
// documents. The file is the single source of truth for "already
// processed" decisions at the fetch layer: it is read once at startup and
// rewritten atomically (write-temp, rename) after every document, so a
// crash loses at most the in-flight document.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/openkenya/hazina/internal/interfaces"
	"github.com/openkenya/hazina/internal/models"
)

// FileName is the manifest's on-disk name under the downloads directory.
const FileName = "processed_manifest.json"

// fileShape is the JSON layout: {"by_md5": {md5 -> entry}}.
type fileShape struct {
	ByMD5 map[string]models.ManifestEntry `json:"by_md5"`
}

// FileStore is the file-backed manifest. A single process owns the file;
// multi-process operation needs an external lock.
type FileStore struct {
	path   string
	mu     sync.RWMutex
	byMD5  map[string]models.ManifestEntry
	byURL  map[string]string // url -> md5
	logger arbor.ILogger
}

var _ interfaces.ManifestStore = (*FileStore)(nil)

// NewFileStore loads the manifest at path, creating an empty store when
// the file does not exist yet.
func NewFileStore(path string, logger arbor.ILogger) (*FileStore, error) {
	s := &FileStore{
		path:   path,
		byMD5:  make(map[string]models.ManifestEntry),
		byURL:  make(map[string]string),
		logger: logger,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug().Str("path", path).Msg("No manifest file yet, starting empty")
			return s, nil
		}
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}

	var file fileShape
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	for md5, entry := range file.ByMD5 {
		s.byMD5[md5] = entry
		if entry.URL != "" {
			s.byURL[entry.URL] = md5
		}
	}

	logger.Info().
		Str("path", path).
		Int("entries", len(s.byMD5)).
		Msg("Manifest loaded")

	return s, nil
}

// Get returns the entry for an MD5, if present.
func (s *FileStore) Get(md5 string) (models.ManifestEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.byMD5[md5]
	return entry, ok
}

// GetByURL returns the entry whose URL matches, if any.
func (s *FileStore) GetByURL(url string) (models.ManifestEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	md5, ok := s.byURL[url]
	if !ok {
		return models.ManifestEntry{}, false
	}
	entry, ok := s.byMD5[md5]
	return entry, ok
}

// Put inserts or replaces the entry for an MD5 in memory. Persist must be
// called to make the change durable.
func (s *FileStore) Put(md5 string, entry models.ManifestEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.byMD5[md5]; ok && old.URL != "" && old.URL != entry.URL {
		delete(s.byURL, old.URL)
	}
	s.byMD5[md5] = entry
	if entry.URL != "" {
		s.byURL[entry.URL] = md5
	}
}

// Persist writes the current state atomically: marshal, write to a temp
// file in the same directory, rename over the target.
func (s *FileStore) Persist() error {
	s.mu.RLock()
	file := fileShape{ByMD5: make(map[string]models.ManifestEntry, len(s.byMD5))}
	for md5, entry := range s.byMD5 {
		file.ByMD5[md5] = entry
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create manifest dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".manifest-*")
	if err != nil {
		return fmt.Errorf("create manifest temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close manifest temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace manifest: %w", err)
	}
	return nil
}

// Len reports the number of entries.
func (s *FileStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byMD5)
}
