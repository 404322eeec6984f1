package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"testing"

	"github.com/openkenya/hazina/internal/common"
	"github.com/openkenya/hazina/internal/interfaces"
)

func TestSendSlack(t *testing.T) {
	var received map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)
	}))
	defer server.Close()

	svc := NewService(common.NotifyConfig{SlackWebhookURL: server.URL}, common.GetLogger())
	err := svc.Send(context.Background(), interfaces.Notification{
		Title:    "Document load failed",
		Body:     "treasury: boom",
		Severity: interfaces.SeverityCritical,
		Metadata: map[string]string{"source": "treasury"},
		Channels: []string{interfaces.ChannelSlack},
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	text := received["text"]
	if !strings.Contains(text, "*[CRITICAL]*") || !strings.Contains(text, "Document load failed") {
		t.Errorf("slack text = %q", text)
	}
	if !strings.Contains(text, "source: treasury") {
		t.Errorf("slack text missing metadata: %q", text)
	}
}

func TestSendSlackUnconfigured(t *testing.T) {
	svc := NewService(common.NotifyConfig{}, common.GetLogger())
	err := svc.Send(context.Background(), interfaces.Notification{
		Title:    "x",
		Severity: interfaces.SeverityError,
		Channels: []string{interfaces.ChannelSlack},
	})
	if err == nil || !strings.Contains(err.Error(), "not configured") {
		t.Errorf("err = %v, want not-configured failure", err)
	}
}

func TestPagerDutyOnlyPagesForErrors(t *testing.T) {
	var posts int
	var lastPayload map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		posts++
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &lastPayload)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	svc := NewService(common.NotifyConfig{PagerDutyRoutingKey: "rk-123"}, common.GetLogger())
	svc.pagerdutyURL = server.URL

	warn := interfaces.Notification{
		Title:    "Run treasury took 61m",
		Severity: interfaces.SeverityWarning,
		Channels: []string{interfaces.ChannelPagerDuty},
	}
	if err := svc.Send(context.Background(), warn); err != nil {
		t.Fatalf("warning send failed: %v", err)
	}
	if posts != 0 {
		t.Fatalf("warning should not page, got %d posts", posts)
	}

	crit := interfaces.Notification{
		Title:    "Database unreachable",
		Body:     "connection refused",
		Severity: interfaces.SeverityCritical,
		Channels: []string{interfaces.ChannelPagerDuty},
	}
	if err := svc.Send(context.Background(), crit); err != nil {
		t.Fatalf("critical send failed: %v", err)
	}
	if posts != 1 {
		t.Fatalf("critical should page once, got %d posts", posts)
	}
	if lastPayload["routing_key"] != "rk-123" || lastPayload["event_action"] != "trigger" {
		t.Errorf("payload = %v", lastPayload)
	}
	inner, _ := lastPayload["payload"].(map[string]interface{})
	if inner["severity"] != interfaces.SeverityCritical {
		t.Errorf("payload severity = %v", inner["severity"])
	}
}

func TestSendEmail(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	svc := NewService(common.NotifyConfig{
		SMTPHost: "mail.example.org",
		SMTPPort: 587,
		SMTPUser: "alerts@example.org",
		EmailTo:  "ops@example.org",
	}, common.GetLogger())
	svc.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	err := svc.Send(context.Background(), interfaces.Notification{
		Title:    "Run oag failed",
		Body:     "parser gave up",
		Severity: interfaces.SeverityError,
		Channels: []string{interfaces.ChannelEmail},
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if gotAddr != "mail.example.org:587" {
		t.Errorf("addr = %q", gotAddr)
	}
	if gotFrom != "alerts@example.org" || len(gotTo) != 1 || gotTo[0] != "ops@example.org" {
		t.Errorf("from = %q, to = %v", gotFrom, gotTo)
	}
	if !strings.Contains(string(gotMsg), "Subject: [ERROR] Run oag failed") {
		t.Errorf("message = %q", gotMsg)
	}
}

func TestDefaultChannelsFromConfig(t *testing.T) {
	var posts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		posts++
	}))
	defer server.Close()

	svc := NewService(common.NotifyConfig{
		Channels:        []string{interfaces.ChannelLog, interfaces.ChannelSlack},
		SlackWebhookURL: server.URL,
	}, common.GetLogger())

	err := svc.Send(context.Background(), interfaces.Notification{
		Title:    "Known store updated",
		Severity: interfaces.SeverityInfo,
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if posts != 1 {
		t.Errorf("slack posts = %d, want 1 via default channels", posts)
	}
}

func TestOneBrokenChannelDoesNotBlockOthers(t *testing.T) {
	var posts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		posts++
	}))
	defer server.Close()

	svc := NewService(common.NotifyConfig{SlackWebhookURL: server.URL}, common.GetLogger())
	// Email is requested but unconfigured; slack should still fire.
	err := svc.Send(context.Background(), interfaces.Notification{
		Title:    "x",
		Severity: interfaces.SeverityError,
		Channels: []string{interfaces.ChannelEmail, interfaces.ChannelSlack},
	})
	if err == nil {
		t.Error("expected the email failure to surface")
	}
	if posts != 1 {
		t.Errorf("slack posts = %d, want 1", posts)
	}
}

func TestMetadataLinesSorted(t *testing.T) {
	got := metadataLines(map[string]string{"url": "u", "source": "s"})
	if got != "source: s\nurl: u" {
		t.Errorf("metadataLines = %q", got)
	}
	if metadataLines(nil) != "" {
		t.Error("empty metadata should render empty")
	}
}
