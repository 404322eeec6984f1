package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/smtp"
	"sort"
	"strings"

	"github.com/openkenya/hazina/internal/interfaces"
)

// sendEmail delivers the notification over SMTP to the configured
// recipient.
func (s *Service) sendEmail(n interfaces.Notification) error {
	if s.config.SMTPHost == "" || s.config.EmailTo == "" {
		return fmt.Errorf("smtp host or recipient not configured")
	}

	from := s.config.SMTPUser
	if from == "" {
		from = "hazina@localhost"
	}
	var auth smtp.Auth
	if s.config.SMTPUser != "" {
		auth = smtp.PlainAuth("", s.config.SMTPUser, s.config.SMTPPassword, s.config.SMTPHost)
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", s.config.EmailTo)
	fmt.Fprintf(&msg, "Subject: [%s] %s\r\n", strings.ToUpper(n.Severity), n.Title)
	msg.WriteString("\r\n")
	msg.WriteString(n.Body)
	if lines := metadataLines(n.Metadata); lines != "" {
		msg.WriteString("\r\n\r\n")
		msg.WriteString(lines)
	}

	addr := fmt.Sprintf("%s:%d", s.config.SMTPHost, s.config.SMTPPort)
	return s.sendMail(addr, auth, from, []string{s.config.EmailTo}, []byte(msg.String()))
}

// sendSlack posts the notification to the configured incoming webhook.
func (s *Service) sendSlack(ctx context.Context, n interfaces.Notification) error {
	if s.config.SlackWebhookURL == "" {
		return fmt.Errorf("slack webhook not configured")
	}

	var text strings.Builder
	fmt.Fprintf(&text, "*[%s]* %s\n%s", strings.ToUpper(n.Severity), n.Title, n.Body)
	if lines := metadataLines(n.Metadata); lines != "" {
		text.WriteString("\n")
		text.WriteString(lines)
	}

	payload := map[string]string{"text": text.String()}
	return s.postJSON(ctx, s.config.SlackWebhookURL, payload)
}

// sendPagerDuty triggers an Events API v2 alert. Callers have already
// filtered to error and critical severities.
func (s *Service) sendPagerDuty(ctx context.Context, n interfaces.Notification) error {
	if s.config.PagerDutyRoutingKey == "" {
		return fmt.Errorf("pagerduty routing key not configured")
	}

	payload := map[string]interface{}{
		"routing_key":  s.config.PagerDutyRoutingKey,
		"event_action": "trigger",
		"payload": map[string]interface{}{
			"summary":        fmt.Sprintf("%s: %s", n.Title, n.Body),
			"source":         "hazina",
			"severity":       n.Severity,
			"custom_details": n.Metadata,
		},
	}
	return s.postJSON(ctx, s.pagerdutyURL, payload)
}

func (s *Service) postJSON(ctx context.Context, url string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("post %s: status %d", url, resp.StatusCode)
	}
	return nil
}

// metadataLines renders metadata as sorted "key: value" lines.
func metadataLines(metadata map[string]string) string {
	if len(metadata) == 0 {
		return ""
	}
	keys := make([]string, 0, len(metadata))
	for key := range metadata {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, key := range keys {
		lines = append(lines, fmt.Sprintf("%s: %s", key, metadata[key]))
	}
	return strings.Join(lines, "\n")
}
