package interfaces

import "context"

// Notification severities.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Notification channels.
const (
	ChannelLog       = "log"
	ChannelEmail     = "email"
	ChannelSlack     = "slack"
	ChannelPagerDuty = "pagerduty"
)

// Notification is one operator-facing alert.
type Notification struct {
	Title    string
	Body     string
	Severity string
	Metadata map[string]string
	// Channels to dispatch on; empty means the configured defaults.
	// PagerDuty is only ever dispatched for error and critical severities.
	Channels []string
}

// Notifier dispatches notifications to the configured channels. The log
// channel is always available; the rest depend on configuration.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}
