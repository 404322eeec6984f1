package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/openkenya/hazina/internal/common"
	"github.com/openkenya/hazina/internal/interfaces"
)

type fakeNotifier struct {
	mu   sync.Mutex
	sent []interfaces.Notification
}

func (f *fakeNotifier) Send(ctx context.Context, n interfaces.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
	return nil
}

func TestRunSuccessRecordsMetrics(t *testing.T) {
	notifier := &fakeNotifier{}
	svc := NewService(notifier, time.Hour, common.GetLogger())

	err := svc.Run(context.Background(), "treasury", func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	metrics, ok := svc.LastMetrics()["treasury"]
	if !ok {
		t.Fatal("no metrics recorded")
	}
	if metrics.Status != StatusOK {
		t.Errorf("status = %q, want ok", metrics.Status)
	}
	if metrics.FinishedAt.Before(metrics.StartedAt) {
		t.Error("finished before started")
	}
	if len(notifier.sent) != 0 {
		t.Errorf("quiet success should not notify, got %+v", notifier.sent)
	}
}

func TestRunSlowWarns(t *testing.T) {
	notifier := &fakeNotifier{}
	svc := NewService(notifier, time.Nanosecond, common.GetLogger())

	err := svc.Run(context.Background(), "treasury", func(ctx context.Context) error {
		time.Sleep(5 * time.Millisecond)
		return nil
	})
	if err != nil {
		t.Fatalf("slow run should still succeed: %v", err)
	}

	if svc.LastMetrics()["treasury"].Status != StatusSlow {
		t.Errorf("status = %q, want slow", svc.LastMetrics()["treasury"].Status)
	}
	if len(notifier.sent) != 1 || notifier.sent[0].Severity != interfaces.SeverityWarning {
		t.Fatalf("notifications = %+v, want one warning", notifier.sent)
	}
}

func TestRunFailureNotifiesAndReturnsError(t *testing.T) {
	notifier := &fakeNotifier{}
	svc := NewService(notifier, time.Hour, common.GetLogger())

	boom := errors.New("parser gave up")
	err := svc.Run(context.Background(), "oag", func(ctx context.Context) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("error not propagated: %v", err)
	}

	metrics := svc.LastMetrics()["oag"]
	if metrics.Status != StatusFailed || metrics.Error != "parser gave up" {
		t.Errorf("metrics = %+v", metrics)
	}
	if len(notifier.sent) != 1 || notifier.sent[0].Severity != interfaces.SeverityError {
		t.Fatalf("notifications = %+v, want one error alert", notifier.sent)
	}
	if notifier.sent[0].Metadata["run"] != "oag" {
		t.Errorf("alert metadata = %v", notifier.sent[0].Metadata)
	}
}

func TestInfrastructureFailuresEscalate(t *testing.T) {
	tests := []struct {
		err  string
		want string
	}{
		{"database is unreachable", interfaces.SeverityCritical},
		{"dial tcp: connection refused", interfaces.SeverityCritical},
		{"manifest file corrupted", interfaces.SeverityCritical},
		{"no candidates discovered", interfaces.SeverityError},
	}
	for _, tt := range tests {
		if got := classifySeverity(errors.New(tt.err)); got != tt.want {
			t.Errorf("classifySeverity(%q) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestLastMetricsKeepsOnePerLabel(t *testing.T) {
	svc := NewService(nil, time.Hour, common.GetLogger())

	for i := 0; i < 3; i++ {
		_ = svc.Run(context.Background(), "treasury", func(ctx context.Context) error { return nil })
	}
	_ = svc.Run(context.Background(), "cob", func(ctx context.Context) error { return errors.New("x") })

	all := svc.LastMetrics()
	if len(all) != 2 {
		t.Fatalf("metrics map has %d labels, want 2", len(all))
	}
	if all["cob"].Status != StatusFailed {
		t.Errorf("cob status = %q", all["cob"].Status)
	}
}
