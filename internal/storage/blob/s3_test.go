package blob

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/openkenya/hazina/internal/common"
)

// fakeS3 answers path-style requests for one bucket.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(r.URL.Path, "/hazina-mirror/")
		f.mu.Lock()
		defer f.mu.Unlock()
		switch r.Method {
		case http.MethodHead:
			body, ok := f.objects[key]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Length", strconv.Itoa(len(body)))
			w.WriteHeader(http.StatusOK)
		case http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			f.objects[key] = body
			w.Header().Set("ETag", `"fake"`)
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected method %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusBadRequest)
		}
	}
}

func testStore(t *testing.T) (*S3Store, *fakeS3) {
	t.Helper()
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	t.Setenv("AWS_REGION", "us-east-1")

	fake := &fakeS3{objects: make(map[string][]byte)}
	server := httptest.NewServer(fake.handler(t))
	t.Cleanup(server.Close)

	store, err := NewS3Store(context.Background(), common.BlobConfig{
		Bucket:     "hazina-mirror",
		Region:     "us-east-1",
		Endpoint:   server.URL,
		PresignTTL: 15 * time.Minute,
	}, common.GetLogger())
	if err != nil {
		t.Fatalf("NewS3Store failed: %v", err)
	}
	return store, fake
}

func TestHeadMissAndHit(t *testing.T) {
	store, fake := testStore(t)
	ctx := context.Background()

	exists, err := store.Head(ctx, "documents/treasury/ab/abc/file.pdf")
	if err != nil {
		t.Fatalf("Head failed: %v", err)
	}
	if exists {
		t.Error("missing key should report false")
	}

	fake.objects["documents/treasury/ab/abc/file.pdf"] = []byte("pdf")
	exists, err = store.Head(ctx, "documents/treasury/ab/abc/file.pdf")
	if err != nil {
		t.Fatalf("Head failed: %v", err)
	}
	if !exists {
		t.Error("existing key should report true")
	}
}

func TestPutUploadsFile(t *testing.T) {
	store, fake := testStore(t)

	path := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(path, []byte("fake pdf bytes"), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	err := store.Put(context.Background(), "documents/cob/cd/cde/doc.pdf", path, "application/pdf")
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	fake.mu.Lock()
	body := fake.objects["documents/cob/cd/cde/doc.pdf"]
	fake.mu.Unlock()
	if !strings.Contains(string(body), "fake pdf bytes") {
		t.Errorf("uploaded body = %q", body)
	}
}

func TestPresignContainsKeyAndSignature(t *testing.T) {
	store, _ := testStore(t)

	url, err := store.Presign(context.Background(), "documents/oag/ef/efg/audit.pdf", 0)
	if err != nil {
		t.Fatalf("Presign failed: %v", err)
	}
	if !strings.Contains(url, "documents/oag/ef/efg/audit.pdf") {
		t.Errorf("presigned URL missing key: %s", url)
	}
	if !strings.Contains(url, "X-Amz-Signature=") {
		t.Errorf("presigned URL not signed: %s", url)
	}
}
