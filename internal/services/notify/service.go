// Package notify dispatches operator alerts to the configured channels.
// The log channel always works; email, Slack and PagerDuty depend on
// configuration. PagerDuty is reserved for error and critical severities
// so routine warnings never page anyone.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/smtp"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/openkenya/hazina/internal/common"
	"github.com/openkenya/hazina/internal/interfaces"
)

// pagerdutyEventsURL is the Events API v2 enqueue endpoint.
const pagerdutyEventsURL = "https://events.pagerduty.com/v2/enqueue"

// sendMailFunc matches net/smtp.SendMail, swapped out in tests.
type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Service fans one notification out to its channels.
type Service struct {
	config       common.NotifyConfig
	client       *http.Client
	pagerdutyURL string
	sendMail     sendMailFunc
	logger       arbor.ILogger
}

var _ interfaces.Notifier = (*Service)(nil)

// NewService creates the notifier from config.
func NewService(config common.NotifyConfig, logger arbor.ILogger) *Service {
	return &Service{
		config:       config,
		client:       &http.Client{Timeout: 10 * time.Second},
		pagerdutyURL: pagerdutyEventsURL,
		sendMail:     smtp.SendMail,
		logger:       logger,
	}
}

// Send logs the notification and dispatches it to the requested channels,
// falling back to the configured default set. Channel failures are
// collected; one broken channel never blocks the others.
func (s *Service) Send(ctx context.Context, n interfaces.Notification) error {
	s.logNotification(n)

	channels := n.Channels
	if len(channels) == 0 {
		channels = s.config.Channels
	}

	var errs []error
	for _, channel := range channels {
		switch channel {
		case interfaces.ChannelLog:
			// Already logged above.
		case interfaces.ChannelEmail:
			if err := s.sendEmail(n); err != nil {
				errs = append(errs, fmt.Errorf("email: %w", err))
			}
		case interfaces.ChannelSlack:
			if err := s.sendSlack(ctx, n); err != nil {
				errs = append(errs, fmt.Errorf("slack: %w", err))
			}
		case interfaces.ChannelPagerDuty:
			if n.Severity != interfaces.SeverityError && n.Severity != interfaces.SeverityCritical {
				continue
			}
			if err := s.sendPagerDuty(ctx, n); err != nil {
				errs = append(errs, fmt.Errorf("pagerduty: %w", err))
			}
		default:
			s.logger.Warn().Str("channel", channel).Msg("Unknown notification channel")
		}
	}
	return errors.Join(errs...)
}

// logNotification writes the alert to the structured log at a level
// matching its severity.
func (s *Service) logNotification(n interfaces.Notification) {
	var event arbor.ILogEvent
	switch n.Severity {
	case interfaces.SeverityWarning:
		event = s.logger.Warn()
	case interfaces.SeverityError, interfaces.SeverityCritical:
		event = s.logger.Error()
	default:
		event = s.logger.Info()
	}
	event = event.Str("title", n.Title).Str("severity", n.Severity)
	for key, value := range n.Metadata {
		event = event.Str(key, value)
	}
	event.Msg(n.Body)
}
