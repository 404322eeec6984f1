package fetcher

import (
	"fmt"
	"mime"
	"strings"
	"time"
	"unicode"

	"github.com/openkenya/hazina/internal/common"
)

// typeDefaults maps well-known content types to a fallback basename.
var typeDefaults = map[string]string{
	"application/pdf":    "document.pdf",
	"application/zip":    "archive.zip",
	"text/csv":           "data.csv",
	"application/msword": "document.doc",
	"application/vnd.ms-excel": "data.xls",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":   "data.xlsx",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": "document.docx",
}

// BuildFilename derives the local download name:
// {source_key}_{YYYYMMDD_HHMMSS}_{sanitized_basename}. The basename is
// taken from the URL path, then the Content-Disposition header, then a
// content-type default.
func BuildFilename(sourceKey string, now time.Time, rawURL, contentDisposition, contentType string) string {
	basename := common.URLBasename(rawURL)

	if basename == "" || !strings.Contains(basename, ".") {
		if fromHeader := dispositionFilename(contentDisposition); fromHeader != "" {
			basename = fromHeader
		}
	}

	if basename == "" {
		mediaType := contentType
		if idx := strings.Index(mediaType, ";"); idx >= 0 {
			mediaType = mediaType[:idx]
		}
		mediaType = strings.TrimSpace(strings.ToLower(mediaType))
		if def, ok := typeDefaults[mediaType]; ok {
			basename = def
		} else {
			basename = "download.bin"
		}
	}

	return fmt.Sprintf("%s_%s_%s", sourceKey, now.UTC().Format("20060102_150405"), SanitizeBasename(basename))
}

// dispositionFilename pulls the filename parameter out of a
// Content-Disposition header.
func dispositionFilename(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return params["filename"]
}

// SanitizeBasename keeps letters, digits, dot, hyphen and underscore;
// every other run becomes a single underscore. Long names are truncated
// preserving the extension.
func SanitizeBasename(name string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range name {
		keep := unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '-' || r == '_'
		if keep {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		out = "download.bin"
	}

	const maxLen = 80
	if len(out) > maxLen {
		ext := ""
		if idx := strings.LastIndex(out, "."); idx > 0 && len(out)-idx <= 8 {
			ext = out[idx:]
		}
		out = out[:maxLen-len(ext)] + ext
	}
	return out
}
