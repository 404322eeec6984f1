package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/openkenya/hazina/internal/common"
	"github.com/openkenya/hazina/internal/models"
)

// writeArtifacts persists the discovered listing and the run summary under
// reports/{date}/, plus a timestamped copy at the reports root for tooling
// that tails the latest run. Report failures log and never fail the run.
func (s *Service) writeArtifacts(sourceKey, jobID string, candidates []models.CandidateDocument, summary *models.RunSummary) {
	dateDir := filepath.Join(s.reportsDir, summary.StartedAt.Format("2006-01-02"))
	if err := os.MkdirAll(dateDir, 0o755); err != nil {
		s.logger.Warn().Err(err).Str("dir", dateDir).Msg("Reports dir not created")
		return
	}

	tsvPath := filepath.Join(dateDir, fmt.Sprintf("%s_%s_discovered.tsv", sourceKey, jobID))
	if err := writeDiscoveredTSV(tsvPath, candidates); err != nil {
		s.logger.Warn().Err(err).Str("path", tsvPath).Msg("Discovered listing not written")
	}

	summaryPath := filepath.Join(dateDir, fmt.Sprintf("%s_%s_summary.json", sourceKey, jobID))
	if err := common.WriteJSONFile(summaryPath, summary); err != nil {
		s.logger.Warn().Err(err).Str("path", summaryPath).Msg("Run summary not written")
	}

	stamp := summary.StartedAt.Format("20060102_150405")
	resultsPath := filepath.Join(s.reportsDir, fmt.Sprintf("pipeline_results_%s.json", stamp))
	if err := common.WriteJSONFile(resultsPath, summary); err != nil {
		s.logger.Warn().Err(err).Str("path", resultsPath).Msg("Pipeline results not written")
	}
}

// writeDiscoveredTSV writes the full discovered listing, not just the
// trimmed queue, so operators can see what a deeper run would pick up.
func writeDiscoveredTSV(path string, candidates []models.CandidateDocument) error {
	var sb strings.Builder
	sb.WriteString("title\turl\n")
	for _, c := range candidates {
		sb.WriteString(strings.ReplaceAll(c.Title, "\t", " "))
		sb.WriteByte('\t')
		sb.WriteString(c.URL)
		sb.WriteByte('\n')
	}
	return os.WriteFile(path, []byte(sb.String()), 0o644)
}
