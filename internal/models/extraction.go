package models

import "time"

// ExtractionResult is what the extractor produces for one local artifact.
// Confidence is 0..1; image-only documents yield empty Pages, never an error.
type ExtractionResult struct {
	ExtractorName  string      `json:"extractor_name"`
	Pages          []PageContent `json:"pages"`
	Tables         []TableRef  `json:"tables"`
	Confidence     float64     `json:"confidence"`
	ExtractionDate time.Time   `json:"extraction_date"`
	FileSize       int64       `json:"file_size"`
}

// PageContent is the text and tables recovered from a single page.
type PageContent struct {
	PageNumber int     `json:"page_number"`
	Text       string  `json:"text"`
	Tables     []Table `json:"tables,omitempty"`
}

// Table is a header row plus data rows as extracted.
type Table struct {
	Headers  []string   `json:"headers"`
	Rows     [][]string `json:"rows"`
	Accuracy float64    `json:"accuracy,omitempty"`
}

// TableRef locates a table within the whole document.
type TableRef struct {
	Page       int   `json:"page"`
	TableIndex int   `json:"table_index"`
	Data       Table `json:"data"`
}
