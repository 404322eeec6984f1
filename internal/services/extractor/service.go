// Package extractor recovers text and tables from downloaded documents.
// pdfcpu supplies page counts and decoded content streams; an in-package
// decoder turns the streams into layout text, and three table strategies
// compete on confidence. Extraction never fails hard: anything
// unreadable degrades to a zero-confidence result so the pipeline can
// still record the document.
package extractor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/arbor"

	"github.com/openkenya/hazina/internal/interfaces"
	"github.com/openkenya/hazina/internal/models"
)

// OCRFunc is the hook for image-only documents. It stays nil until an
// OCR backend is wired in; a zero-confidence result triggers it.
type OCRFunc func(ctx context.Context, filePath string) (*models.ExtractionResult, error)

// Service extracts content from local PDF artifacts.
type Service struct {
	tempDir string
	logger  arbor.ILogger

	// OCR runs when stream extraction yields nothing. Nil by default.
	OCR OCRFunc
}

var _ interfaces.Extractor = (*Service)(nil)

// NewService creates the extractor. Scratch space lives under the
// system temp dir and is cleaned per document.
func NewService(logger arbor.ILogger) *Service {
	tempDir := filepath.Join(os.TempDir(), "hazina-extract")
	os.MkdirAll(tempDir, 0o755)
	return &Service{
		tempDir: tempDir,
		logger:  logger,
	}
}

// Extract pulls text pages and tables out of the file. A result is
// always returned; confidence 0 marks content the strategies could not
// read (corrupt files, image-only scans, non-PDF artifacts).
func (s *Service) Extract(ctx context.Context, filePath string) (*models.ExtractionResult, error) {
	result := &models.ExtractionResult{
		ExtractorName:  "pdfcpu",
		ExtractionDate: time.Now().UTC(),
	}
	if info, err := os.Stat(filePath); err == nil {
		result.FileSize = info.Size()
	}

	pdfCtx, err := api.ReadContextFile(filePath)
	if err != nil {
		s.logger.Warn().
			Str("file", filepath.Base(filePath)).
			Err(err).
			Msg("Document is not a readable PDF")
		return result, nil
	}
	pageCount := pdfCtx.PageCount

	streams, err := s.extractContentStreams(filePath, pageCount)
	if err != nil {
		s.logger.Warn().
			Str("file", filepath.Base(filePath)).
			Err(err).
			Msg("Content extraction failed")
		for pageNum := 1; pageNum <= pageCount; pageNum++ {
			result.Pages = append(result.Pages, models.PageContent{PageNumber: pageNum})
		}
		return result, nil
	}

	pages := make([]models.PageContent, 0, pageCount)
	hasText := false
	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		text := decodePageText(streams[pageNum])
		if text != "" {
			hasText = true
		}
		pages = append(pages, models.PageContent{PageNumber: pageNum, Text: text})
	}
	result.Pages = pages

	s.applyBestStrategy(result, hasText)

	if result.Confidence == 0 && s.OCR != nil {
		if ocr, err := s.OCR(ctx, filePath); err == nil && ocr != nil {
			return ocr, nil
		}
	}

	s.logger.Debug().
		Str("file", filepath.Base(filePath)).
		Str("strategy", result.ExtractorName).
		Int("pages", len(result.Pages)).
		Int("tables", len(result.Tables)).
		Float64("confidence", result.Confidence).
		Msg("Extraction complete")

	return result, nil
}

// extractContentStreams runs pdfcpu's content extraction into a scratch
// directory and maps the Content_page_N output files back to pages.
func (s *Service) extractContentStreams(filePath string, pageCount int) (map[int][]byte, error) {
	outDir := filepath.Join(s.tempDir, uuid.NewString())
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating scratch dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractContentFile(filePath, outDir, nil, conf); err != nil {
		return nil, fmt.Errorf("extracting content streams: %w", err)
	}

	streams := make(map[int][]byte, pageCount)
	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, fmt.Errorf("reading scratch dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		var pageNum int
		name := entry.Name()
		if _, err := fmt.Sscanf(name, "Content_page_%d", &pageNum); err != nil {
			if _, err := fmt.Sscanf(name, "page_%d", &pageNum); err != nil {
				continue
			}
		}
		content, err := os.ReadFile(filepath.Join(outDir, name))
		if err != nil {
			continue
		}
		streams[pageNum] = content
	}
	return streams, nil
}

// applyBestStrategy runs the three table strategies over the decoded
// pages and keeps the most confident one that produced anything.
func (s *Service) applyBestStrategy(result *models.ExtractionResult, hasText bool) {
	type strategy struct {
		name       string
		confidence float64
		perPage    [][]models.Table
	}

	complexPages := make([][]models.Table, len(result.Pages))
	simplePages := make([][]models.Table, len(result.Pages))
	guessPages := make([][]models.Table, len(result.Pages))
	var complexAll []models.Table
	anyGuess := false

	for i, page := range result.Pages {
		if page.Text == "" {
			continue
		}
		complexPages[i] = detectComplexTables(page.Text)
		simplePages[i] = detectSimpleTables(page.Text)
		guessPages[i] = guessTables(page.Text)
		complexAll = append(complexAll, complexPages[i]...)
		if len(guessPages[i]) > 0 {
			anyGuess = true
		}
	}

	candidates := make([]strategy, 0, 3)
	if len(complexAll) > 0 {
		candidates = append(candidates, strategy{
			name:       "pdfcpu/complex-tables",
			confidence: meanAccuracy(complexAll),
			perPage:    complexPages,
		})
	}
	if hasText {
		candidates = append(candidates, strategy{
			name:       "pdfcpu/text+tables",
			confidence: confidenceSimple,
			perPage:    simplePages,
		})
	}
	if anyGuess {
		candidates = append(candidates, strategy{
			name:       "pdfcpu/tabular-guess",
			confidence: confidenceGuess,
			perPage:    guessPages,
		})
	}
	if len(candidates) == 0 {
		return
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.confidence > best.confidence {
			best = c
		}
	}

	result.ExtractorName = best.name
	result.Confidence = best.confidence
	for i := range result.Pages {
		result.Pages[i].Tables = best.perPage[i]
		for idx, table := range best.perPage[i] {
			result.Tables = append(result.Tables, models.TableRef{
				Page:       result.Pages[i].PageNumber,
				TableIndex: idx,
				Data:       table,
			})
		}
	}
}
