package manifest

import (
	"sync"

	"github.com/openkenya/hazina/internal/interfaces"
	"github.com/openkenya/hazina/internal/models"
)

// MemoryStore is an in-memory manifest for tests and dry runs. Persist is
// a counter, never a write.
type MemoryStore struct {
	mu       sync.RWMutex
	byMD5    map[string]models.ManifestEntry
	byURL    map[string]string
	persists int
}

var _ interfaces.ManifestStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory manifest.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byMD5: make(map[string]models.ManifestEntry),
		byURL: make(map[string]string),
	}
}

func (s *MemoryStore) Get(md5 string) (models.ManifestEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.byMD5[md5]
	return entry, ok
}

func (s *MemoryStore) GetByURL(url string) (models.ManifestEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	md5, ok := s.byURL[url]
	if !ok {
		return models.ManifestEntry{}, false
	}
	entry, ok := s.byMD5[md5]
	return entry, ok
}

func (s *MemoryStore) Put(md5 string, entry models.ManifestEntry) {
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

func (s *MemoryStore) Persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persists++
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byMD5)
}

// Persists reports how many times Persist was called, for test assertions.
func (s *MemoryStore) Persists() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.persists
}
