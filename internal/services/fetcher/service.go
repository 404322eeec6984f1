// Package fetcher is the polite HTTP layer every other service goes
// through: realistic UA, backoff retries, per-host pacing, a one-shot
// TLS-verification fallback for known-broken publisher chains, and
// content-addressed downloads with optional blob mirroring.
package fetcher

import (
	"context"
	"crypto/md5"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/openkenya/hazina/internal/common"
	"github.com/openkenya/hazina/internal/interfaces"
	"github.com/openkenya/hazina/internal/models"
)

// maxBodySize caps in-memory reads (HTML pages, sitemaps, API responses).
const maxBodySize = 20 * 1024 * 1024

// Service is the shared HTTP client for discovery and downloads.
type Service struct {
	config        common.FetcherConfig
	client        *http.Client
	insecure      *http.Client
	limiter       *HostLimiter
	retry         *RetryPolicy
	blob          interfaces.BlobStore
	downloadsDir  string
	insecureHosts map[string]bool
	warnedHosts   map[string]bool
	warnedMu      sync.Mutex
	logger        arbor.ILogger
}

// NewService creates the fetcher. blob may be nil when no mirror is
// configured.
func NewService(config common.FetcherConfig, downloadsDir string, blob interfaces.BlobStore, logger arbor.ILogger) *Service {
	transport := &http.Transport{
		MaxIdleConns:        32,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}
	insecureTransport := transport.Clone()
	insecureTransport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}

	hosts := make(map[string]bool, len(config.InsecureHosts))
	for _, h := range config.InsecureHosts {
		hosts[strings.TrimPrefix(strings.ToLower(h), "www.")] = true
	}

	return &Service{
		config: config,
		client: &http.Client{
			Transport: transport,
			Timeout:   config.RequestTimeout,
		},
		insecure: &http.Client{
			Transport: insecureTransport,
			Timeout:   config.RequestTimeout,
		},
		limiter:       NewHostLimiter(config.HostDelay),
		retry:         NewRetryPolicy(config.MaxRetries, config.InitialBackoff, config.MaxBackoff),
		blob:          blob,
		downloadsDir:  downloadsDir,
		insecureHosts: hosts,
		warnedHosts:   make(map[string]bool),
		logger:        logger,
	}
}

// FetchHTML fetches a page and parses it for discovery. Returns an error
// for any non-200 response.
func (s *Service) FetchHTML(ctx context.Context, rawURL, sourceKey string) (*goquery.Document, error) {
	resp, err := s.doRequest(ctx, http.MethodGet, rawURL)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", rawURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", rawURL, err)
	}
	return doc, nil
}

// FetchBytes fetches a body into memory, used for sitemaps and CMS REST
// responses.
func (s *Service) FetchBytes(ctx context.Context, rawURL string) ([]byte, http.Header, error) {
	resp, err := s.doRequest(ctx, http.MethodGet, rawURL)
	if err != nil {
		return nil, nil, err
	}
	defer closeBody(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("fetch %s: unexpected status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", rawURL, err)
	}
	return body, resp.Header, nil
}

// Download streams a document to the downloads directory, hashing as it
// writes. The file lands as {source_key}_{timestamp}_{basename}; when a
// blob mirror is configured the artifact is uploaded under its
// content-addressed key, and mirror failures only log.
func (s *Service) Download(ctx context.Context, rawURL, sourceKey string) (*models.FetchResult, error) {
	resp, err := s.doRequest(ctx, http.MethodGet, rawURL)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s: unexpected status %d", rawURL, resp.StatusCode)
	}

	if err := os.MkdirAll(s.downloadsDir, 0755); err != nil {
		return nil, fmt.Errorf("create downloads dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.downloadsDir, ".partial-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	hasher := md5.New()
	size, err := io.Copy(io.MultiWriter(tmp, hasher), resp.Body)
	closeErr := tmp.Close()
	if err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("download %s: %w", rawURL, err)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("close download %s: %w", rawURL, closeErr)
	}

	sum := hex.EncodeToString(hasher.Sum(nil))
	filename := BuildFilename(sourceKey, time.Now(), rawURL, resp.Header.Get("Content-Disposition"), resp.Header.Get("Content-Type"))
	finalPath := filepath.Join(s.downloadsDir, filename)
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("finalize download %s: %w", rawURL, err)
	}

	result := &models.FetchResult{
		FilePath:    finalPath,
		MD5:         sum,
		Size:        size,
		ContentType: resp.Header.Get("Content-Type"),
		Headers:     resp.Header,
	}

	if s.blob != nil {
		result.MirrorKey = s.mirror(ctx, sourceKey, sum, filename, finalPath, result.ContentType)
	}

	s.logger.Info().
		Str("url", rawURL).
		Str("source", sourceKey).
		Str("md5", sum).
		Int64("bytes", size).
		Msg("Downloaded document")

	return result, nil
}

// mirror uploads the artifact under documents/{source}/{md5[:2]}/{md5}/{filename}.
// Returns the key on success, "" otherwise.
func (s *Service) mirror(ctx context.Context, sourceKey, sum, filename, filePath, contentType string) string {
	key := fmt.Sprintf("documents/%s/%s/%s/%s", sourceKey, sum[:2], sum, filename)

	exists, err := s.blob.Head(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Blob head check failed, skipping mirror")
		return ""
	}
	if exists {
		return key
	}
	if err := s.blob.Put(ctx, key, filePath, contentType); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Blob mirror upload failed")
		return ""
	}
	s.logger.Debug().Str("key", key).Msg("Mirrored document to blob store")
	return key
}

// PageHash fetches a landing page with a short timeout and returns the
// MD5 of its body, used for cheap change detection between runs.
func (s *Service) PageHash(ctx context.Context, rawURL string) (string, error) {
	hashCtx, cancel := context.WithTimeout(ctx, s.config.PageHashTimeout)
	defer cancel()

	resp, err := s.doRequest(hashCtx, http.MethodGet, rawURL)
	if err != nil {
		return "", err
	}
	defer closeBody(resp)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("page hash %s: unexpected status %d", rawURL, resp.StatusCode)
	}

	hasher := md5.New()
	if _, err := io.Copy(hasher, io.LimitReader(resp.Body, maxBodySize)); err != nil {
		return "", fmt.Errorf("page hash %s: %w", rawURL, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// doRequest runs one logical request: courtesy delay, then the retry
// loop, with the TLS fallback applied inside each attempt.
func (s *Service) doRequest(ctx context.Context, method, rawURL string) (*http.Response, error) {
	if err := s.limiter.Wait(ctx, rawURL); err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		resp, err := s.attempt(ctx, method, rawURL)

		status := 0
		if resp != nil {
			status = resp.StatusCode
		}

		if err == nil && !s.retry.isRetryableStatusCode(status) {
			return resp, nil
		}
		if err != nil && !isRetryableError(err) {
			return nil, err
		}

		if resp != nil {
			closeBody(resp)
		}

		if !s.retry.ShouldRetry(attempt, status, err) {
			if err == nil {
				err = fmt.Errorf("request %s: status %d after %d attempts", rawURL, status, attempt+1)
			}
			return nil, err
		}

		backoff := s.retry.CalculateBackoff(attempt)
		s.logger.Debug().
			Str("url", rawURL).
			Int("attempt", attempt+1).
			Int("status", status).
			Dur("backoff", backoff).
			Msg("Retrying request")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// attempt performs a single verified request; on a certificate error
// against a whitelisted host it retries once without verification.
func (s *Service) attempt(ctx context.Context, method, rawURL string) (*http.Response, error) {
	req, err := s.newRequest(ctx, method, rawURL)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err == nil || !isCertError(err) {
		return resp, err
	}

	host := common.HostOf(rawURL)
	if !s.insecureHosts[host] {
		return nil, err
	}
	s.warnInsecureOnce(host, err)

	req, reqErr := s.newRequest(ctx, method, rawURL)
	if reqErr != nil {
		return nil, reqErr
	}
	return s.insecure.Do(req)
}

func (s *Service) newRequest(ctx context.Context, method, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", s.config.UserAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	return req, nil
}

// warnInsecureOnce logs the unverified retry once per host per process;
// later fallbacks for the same host stay quiet.
func (s *Service) warnInsecureOnce(host string, err error) {
	s.warnedMu.Lock()
	defer s.warnedMu.Unlock()
	if s.warnedHosts[host] {
		return
	}
	s.warnedHosts[host] = true
	s.logger.Warn().
		Str("host", host).
		Err(err).
		Msg("TLS verification failed for known host, retrying without verification")
}

// isCertError recognizes certificate verification failures.
func isCertError(err error) bool {
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return true
	}
	var unknownAuthority x509.UnknownAuthorityError
	if errors.As(err, &unknownAuthority) {
		return true
	}
	var hostnameErr x509.HostnameError
	if errors.As(err, &hostnameErr) {
		return true
	}
	return strings.Contains(err.Error(), "certificate")
}

func closeBody(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
	resp.Body.Close()
}
