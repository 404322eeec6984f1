// Package monitor wraps pipeline runs with duration tracking and operator
// alerts. A failed run notifies and re-raises so the caller decides the
// exit code; a slow run only warns.
package monitor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/openkenya/hazina/internal/interfaces"
)

// defaultSlowThreshold flags runs that take longer than an hour.
const defaultSlowThreshold = time.Hour

// Run status values recorded in the metrics map.
const (
	StatusOK     = "ok"
	StatusSlow   = "slow"
	StatusFailed = "failed"
)

// criticalTokens escalate a failure to critical severity: anything naming
// the database, a connection fault or data corruption needs a human now.
var criticalTokens = []string{"database", "connection", "corrupt"}

// RunFunc is one monitored unit of work.
type RunFunc func(ctx context.Context) error

// RunMetrics captures the outcome of the most recent run under a label.
type RunMetrics struct {
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration"`
	Status     string        `json:"status"`
	Error      string        `json:"error,omitempty"`
}

// Service monitors named runs. notifier may be nil when alerting is not
// configured; metrics are still recorded.
type Service struct {
	notifier  interfaces.Notifier
	threshold time.Duration
	logger    arbor.ILogger

	mu       sync.RWMutex
	lastRuns map[string]RunMetrics
}

// NewService creates the monitor. threshold <= 0 uses the one-hour default.
func NewService(notifier interfaces.Notifier, threshold time.Duration, logger arbor.ILogger) *Service {
	if threshold <= 0 {
		threshold = defaultSlowThreshold
	}
	return &Service{
		notifier:  notifier,
		threshold: threshold,
		logger:    logger,
		lastRuns:  make(map[string]RunMetrics),
	}
}

// Run executes fn under monitoring. Errors notify (critical for
// infrastructure faults, error otherwise) and are returned unchanged;
// successful runs over the threshold send a warning.
func (s *Service) Run(ctx context.Context, name string, fn RunFunc) error {
	started := time.Now().UTC()
	err := fn(ctx)
	finished := time.Now().UTC()

	metrics := RunMetrics{
		StartedAt:  started,
		FinishedAt: finished,
		Duration:   finished.Sub(started),
	}

	if err != nil {
		metrics.Status = StatusFailed
		metrics.Error = err.Error()
		s.record(name, metrics)

		s.logger.Error().
			Str("run", name).
			Dur("elapsed", metrics.Duration).
			Err(err).
			Msg("Monitored run failed")
		s.notify(ctx, interfaces.Notification{
			Title:    fmt.Sprintf("Run %s failed", name),
			Body:     err.Error(),
			Severity: classifySeverity(err),
			Metadata: map[string]string{
				"run":      name,
				"duration": metrics.Duration.String(),
			},
		})
		return err
	}

	if metrics.Duration > s.threshold {
		metrics.Status = StatusSlow
		s.record(name, metrics)

		s.logger.Warn().
			Str("run", name).
			Dur("elapsed", metrics.Duration).
			Dur("threshold", s.threshold).
			Msg("Monitored run exceeded threshold")
		s.notify(ctx, interfaces.Notification{
			Title:    fmt.Sprintf("Run %s took %s", name, metrics.Duration.Round(time.Second)),
			Body:     fmt.Sprintf("run exceeded the %s threshold", s.threshold),
			Severity: interfaces.SeverityWarning,
			Metadata: map[string]string{
				"run":      name,
				"duration": metrics.Duration.String(),
			},
		})
		return nil
	}

	metrics.Status = StatusOK
	s.record(name, metrics)
	s.logger.Info().
		Str("run", name).
		Dur("elapsed", metrics.Duration).
		Msg("Monitored run finished")
	return nil
}

// LastMetrics returns a copy of the most recent metrics per run label.
func (s *Service) LastMetrics() map[string]RunMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]RunMetrics, len(s.lastRuns))
	for name, metrics := range s.lastRuns {
		out[name] = metrics
	}
	return out
}

func (s *Service) record(name string, metrics RunMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRuns[name] = metrics
}

func (s *Service) notify(ctx context.Context, n interfaces.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, n); err != nil {
		s.logger.Warn().Err(err).Str("title", n.Title).Msg("Alert not delivered")
	}
}

// classifySeverity picks the alert severity for a failed run.
func classifySeverity(err error) string {
	lowered := strings.ToLower(err.Error())
	for _, token := range criticalTokens {
		if strings.Contains(lowered, token) {
			return interfaces.SeverityCritical
		}
	}
	return interfaces.SeverityError
}
