package extractor

import (
	"regexp"
	"strings"

	"github.com/openkenya/hazina/internal/models"
)

// Extraction strategies. All three read the layout text the stream
// decoder produced; they differ in how strictly they require column
// structure. The caller keeps whichever succeeded with the highest
// confidence.
const (
	confidenceComplex = 0.80 // per-table accuracy mean, nominal
	confidenceSimple  = 0.70
	confidenceGuess   = 0.60
)

var columnGap = regexp.MustCompile(`\s{2,}`)

var numericToken = regexp.MustCompile(`^\(?-?[\d,]+(\.\d+)?\)?%?$`)

// splitColumns splits a layout-preserving line into cells on runs of
// two or more spaces.
func splitColumns(line string) []string {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	parts := columnGap.Split(line, -1)
	cells := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			cells = append(cells, p)
		}
	}
	return cells
}

func pageLines(text string) []string {
	return strings.Split(text, "\n")
}

// detectSimpleTables finds runs of consecutive lines that split into
// the same number of columns (>= 2). The first line of a run becomes
// the header row.
func detectSimpleTables(text string) []models.Table {
	lines := pageLines(text)
	var tables []models.Table
	var run [][]string

	flush := func() {
		if len(run) >= 2 {
			tables = append(tables, models.Table{
				Headers:  run[0],
				Rows:     append([][]string(nil), run[1:]...),
				Accuracy: confidenceSimple,
			})
		}
		run = nil
	}

	for _, line := range lines {
		cells := splitColumns(line)
		if len(cells) < 2 {
			flush()
			continue
		}
		if len(run) > 0 && len(cells) != len(run[0]) {
			flush()
		}
		run = append(run, cells)
	}
	flush()
	return tables
}

// detectComplexTables tolerates ragged rows: any run of lines with >= 2
// columns forms a table whose width is the widest row; short rows are
// padded and the fill ratio drives the table's accuracy.
func detectComplexTables(text string) []models.Table {
	lines := pageLines(text)
	var tables []models.Table
	var run [][]string

	flush := func() {
		if len(run) < 2 {
			run = nil
			return
		}
		width := 0
		for _, row := range run {
			if len(row) > width {
				width = len(row)
			}
		}
		filled := 0
		rows := make([][]string, len(run))
		for i, row := range run {
			filled += len(row)
			padded := make([]string, width)
			copy(padded, row)
			rows[i] = padded
		}
		accuracy := confidenceComplex * float64(filled) / float64(width*len(run))
		tables = append(tables, models.Table{
			Headers:  rows[0],
			Rows:     rows[1:],
			Accuracy: accuracy,
		})
		run = nil
	}

	for _, line := range lines {
		cells := splitColumns(line)
		if len(cells) < 2 {
			flush()
			continue
		}
		run = append(run, cells)
	}
	flush()
	return tables
}

// guessTables is the last resort for pages whose spacing collapsed:
// any line carrying two or more numeric tokens is treated as a row
// split on single spaces.
func guessTables(text string) []models.Table {
	var rows [][]string
	for _, line := range pageLines(text) {
		fields := strings.Fields(line)
		numeric := 0
		for _, f := range fields {
			if numericToken.MatchString(f) {
				numeric++
			}
		}
		if numeric >= 2 {
			rows = append(rows, fields)
		}
	}
	if len(rows) == 0 {
		return nil
	}
	return []models.Table{{
		Headers:  nil,
		Rows:     rows,
		Accuracy: confidenceGuess,
	}}
}

// meanAccuracy averages table accuracies; zero when there are none.
func meanAccuracy(tables []models.Table) float64 {
	if len(tables) == 0 {
		return 0
	}
	sum := 0.0
	for _, t := range tables {
		sum += t.Accuracy
	}
	return sum / float64(len(tables))
}
