package discovery

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// KnownStore tracks the URLs a source has ever surfaced, plus the
// landing-page hash each listing had when last crawled. The text file
// is a human-greppable audit trail of everything discovered; the hash
// file lets a run tell whether a listing changed since the previous
// visit.
type KnownStore struct {
	dir    string
	source string
	urls   map[string]bool
	hashes map[string]string
	dirty  bool
}

// LoadKnownStore reads the store for one source, starting empty when
// no files exist yet.
func LoadKnownStore(dir, source string) (*KnownStore, error) {
	ks := &KnownStore{
		dir:    dir,
		source: source,
		urls:   make(map[string]bool),
		hashes: make(map[string]string),
	}

	f, err := os.Open(ks.urlPath())
	if err == nil {
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" {
				ks.urls[line] = true
			}
		}
		scanErr := scanner.Err()
		f.Close()
		if scanErr != nil {
			return nil, fmt.Errorf("reading known urls for %s: %w", source, scanErr)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("opening known urls for %s: %w", source, err)
	}

	data, err := os.ReadFile(ks.hashPath())
	if err == nil {
		if err := json.Unmarshal(data, &ks.hashes); err != nil {
			return nil, fmt.Errorf("parsing known hashes for %s: %w", source, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading known hashes for %s: %w", source, err)
	}

	return ks, nil
}

func (ks *KnownStore) urlPath() string {
	return filepath.Join(ks.dir, fmt.Sprintf("known_%s.txt", ks.source))
}

func (ks *KnownStore) hashPath() string {
	return filepath.Join(ks.dir, fmt.Sprintf("known_%s_hashes.json", ks.source))
}

// Known reports whether the URL has been seen in any earlier run.
func (ks *KnownStore) Known(url string) bool {
	return ks.urls[url]
}

// Add records a URL, returning true when it is new.
func (ks *KnownStore) Add(url string) bool {
	if ks.urls[url] {
		return false
	}
	ks.urls[url] = true
	ks.dirty = true
	return true
}

// ListingChanged compares a listing page's hash against the recorded
// one and updates the record. First sight counts as changed.
func (ks *KnownStore) ListingChanged(url, hash string) bool {
	prev, ok := ks.hashes[url]
	if ok && prev == hash {
		return false
	}
	ks.hashes[url] = hash
	ks.dirty = true
	return true
}

// Len returns the number of known URLs.
func (ks *KnownStore) Len() int {
	return len(ks.urls)
}

// Save writes both files when anything changed since load. URLs are
// sorted so diffs between runs stay readable.
func (ks *KnownStore) Save() error {
	if !ks.dirty {
		return nil
	}
	if err := os.MkdirAll(ks.dir, 0o755); err != nil {
		return fmt.Errorf("creating known dir: %w", err)
	}

	urls := make([]string, 0, len(ks.urls))
	for u := range ks.urls {
		urls = append(urls, u)
	}
	sort.Strings(urls)

	var sb strings.Builder
	for _, u := range urls {
		sb.WriteString(u)
		sb.WriteByte('\n')
	}
	if err := os.WriteFile(ks.urlPath(), []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("writing known urls for %s: %w", ks.source, err)
	}

	data, err := json.MarshalIndent(ks.hashes, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding known hashes for %s: %w", ks.source, err)
	}
	if err := os.WriteFile(ks.hashPath(), data, 0o644); err != nil {
		return fmt.Errorf("writing known hashes for %s: %w", ks.source, err)
	}

	ks.dirty = false
	return nil
}
