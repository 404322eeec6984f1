package scheduler

import (
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/openkenya/hazina/internal/common"
	"github.com/openkenya/hazina/internal/interfaces"
)

// nextRunHorizonDays bounds the forward scan in NextRun. The sparsest
// cadence is monthly, so 70 days always contains the next due date.
const nextRunHorizonDays = 70

// Service implements the calendar-aware schedule decisions for the
// configured sources.
type Service struct {
	sources []string
	logger  arbor.ILogger
}

var _ interfaces.Scheduler = (*Service)(nil)

// NewService creates a scheduler over the given source keys (usually the
// registry's key set).
func NewService(sources []string, logger arbor.ILogger) *Service {
	return &Service{
		sources: sources,
		logger:  logger,
	}
}

// ShouldRun reports whether the source is due at now, with the reason.
func (s *Service) ShouldRun(sourceKey string, now time.Time) (bool, string) {
	return shouldRun(sourceKey, now.UTC())
}

// NextRun scans forward from the day after now and returns the first day
// the source is due, normalized to midnight UTC.
func (s *Service) NextRun(sourceKey string, now time.Time) (time.Time, string) {
	day := common.DateOnly(now.UTC())
	for i := 1; i <= nextRunHorizonDays; i++ {
		candidate := day.AddDate(0, 0, i)
		if due, reason := shouldRun(sourceKey, candidate); due {
			return candidate, reason
		}
	}
	return time.Time{}, fmt.Sprintf("no due date within %d days for %q", nextRunHorizonDays, sourceKey)
}

// GenerateScheduleReport returns the per-source decision set for the
// admin surface.
func (s *Service) GenerateScheduleReport(now time.Time) []interfaces.ScheduleDecision {
	now = now.UTC()
	period := CurrentPeriodLabel(now)

	report := make([]interfaces.ScheduleDecision, 0, len(s.sources))
	for _, key := range s.sources {
		due, reason := s.ShouldRun(key, now)
		nextAt, nextReason := s.NextRun(key, now)
		report = append(report, interfaces.ScheduleDecision{
			Source:        key,
			ShouldRunNow:  due,
			Reason:        reason,
			NextRun:       nextAt,
			NextReason:    nextReason,
			CurrentPeriod: period,
		})
	}

	s.logger.Debug().
		Int("sources", len(report)).
		Str("period", period).
		Msg("Schedule report generated")

	return report
}
