package fetcher

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/openkenya/hazina/internal/common"
)

func testConfig() common.FetcherConfig {
	return common.FetcherConfig{
		UserAgent:       "hazina-test/1.0",
		RequestTimeout:  5 * time.Second,
		PageHashTimeout: 2 * time.Second,
		MaxRetries:      3,
		InitialBackoff:  10 * time.Millisecond,
		MaxBackoff:      50 * time.Millisecond,
		HostDelay:       1 * time.Millisecond,
	}
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(testConfig(), t.TempDir(), nil, common.GetLogger())
}

func TestFetchHTML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "hazina-test/1.0" {
			t.Errorf("User-Agent = %q", got)
		}
		w.Write([]byte(`<html><body><a href="/doc.pdf">Download</a></body></html>`))
	}))
	defer server.Close()

	svc := newTestService(t)
	doc, err := svc.FetchHTML(context.Background(), server.URL, "treasury")
	if err != nil {
		t.Fatalf("FetchHTML failed: %v", err)
	}
	if doc.Find("a").Length() != 1 {
		t.Errorf("expected one anchor in parsed document")
	}
}

func TestFetchHTMLNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	svc := newTestService(t)
	if _, err := svc.FetchHTML(context.Background(), server.URL, "treasury"); err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestDoRequestRetriesTransientStatus(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	svc := newTestService(t)
	body, _, err := svc.FetchBytes(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FetchBytes failed after retries: %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("body = %q, want ok", body)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("server saw %d calls, want 3", got)
	}
}

func TestDoRequestDoesNotRetryClientError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	svc := newTestService(t)
	if _, _, err := svc.FetchBytes(context.Background(), server.URL); err == nil {
		t.Fatal("expected error for 403")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("server saw %d calls, want 1 (no retry on 403)", got)
	}
}

func TestDoRequestExhaustsRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	svc := newTestService(t)
	if _, _, err := svc.FetchBytes(context.Background(), server.URL); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("server saw %d calls, want 3", got)
	}
}

func TestDownload(t *testing.T) {
	content := []byte("%PDF-1.4 fake budget document")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(content)
	}))
	defer server.Close()

	dir := t.TempDir()
	svc := NewService(testConfig(), dir, nil, common.GetLogger())

	result, err := svc.Download(context.Background(), server.URL+"/uploads/budget2024.pdf", "treasury")
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	wantMD5 := md5.Sum(content)
	if result.MD5 != hex.EncodeToString(wantMD5[:]) {
		t.Errorf("MD5 = %s, want %s", result.MD5, hex.EncodeToString(wantMD5[:]))
	}
	if result.Size != int64(len(content)) {
		t.Errorf("Size = %d, want %d", result.Size, len(content))
	}

	base := filepath.Base(result.FilePath)
	if !strings.HasPrefix(base, "treasury_") {
		t.Errorf("filename %q missing source prefix", base)
	}
	if !strings.HasSuffix(base, "_budget2024.pdf") {
		t.Errorf("filename %q missing sanitized basename", base)
	}

	onDisk, err := os.ReadFile(result.FilePath)
	if err != nil {
		t.Fatalf("reading downloaded file: %v", err)
	}
	if string(onDisk) != string(content) {
		t.Error("file content mismatch")
	}

	// No stray partial files left behind.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading downloads dir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".partial-") {
			t.Errorf("leftover partial file %s", e.Name())
		}
	}
}

type fakeBlobStore struct {
	existing map[string]bool
	puts     []string
}

func (f *fakeBlobStore) Head(ctx context.Context, key string) (bool, error) {
	return f.existing[key], nil
}

func (f *fakeBlobStore) Put(ctx context.Context, key, filePath, contentType string) error {
	f.puts = append(f.puts, key)
	return nil
}

func (f *fakeBlobStore) Presign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "https://mirror.example/" + key, nil
}

func TestDownloadMirrorsToBlobStore(t *testing.T) {
	content := []byte("audit report body")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(content)
	}))
	defer server.Close()

	blob := &fakeBlobStore{existing: map[string]bool{}}
	svc := NewService(testConfig(), t.TempDir(), blob, common.GetLogger())

	result, err := svc.Download(context.Background(), server.URL+"/files/audit.pdf", "oag")
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	if len(blob.puts) != 1 {
		t.Fatalf("blob puts = %d, want 1", len(blob.puts))
	}
	key := blob.puts[0]
	if result.MirrorKey != key {
		t.Errorf("MirrorKey = %q, want %q", result.MirrorKey, key)
	}
	if !strings.HasPrefix(key, "documents/oag/"+result.MD5[:2]+"/"+result.MD5+"/") {
		t.Errorf("mirror key %q not content-addressed", key)
	}
}

func TestPageHash(t *testing.T) {
	body := []byte("<html>listing page</html>")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer server.Close()

	svc := newTestService(t)
	got, err := svc.PageHash(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("PageHash failed: %v", err)
	}
	want := md5.Sum(body)
	if got != hex.EncodeToString(want[:]) {
		t.Errorf("PageHash = %s, want %s", got, hex.EncodeToString(want[:]))
	}
}
