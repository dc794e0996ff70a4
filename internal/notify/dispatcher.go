// Package notify turns cycle outcomes into human-readable notifications
// and delivers them through the configured publisher with deduplication.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/budgetguard/budgetguard/internal/metrics"
	"github.com/budgetguard/budgetguard/pkg/cloudprovider"
)

// Severity levels for outbound messages.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Message is one notification to deliver.
type Message struct {
	Subject  string
	Body     string
	Severity Severity
}

// Dispatcher delivers messages fire-and-forget: a publish failure is
// logged and counted, never propagated to the calling cycle. Repeat
// messages with the same key inside the dedup window are suppressed.
type Dispatcher struct {
	publisher cloudprovider.Publisher
	window    time.Duration

	mu       sync.Mutex
	lastSent map[string]time.Time

	now func() time.Time
}

// NewDispatcher creates a dispatcher. A nil publisher downgrades every
// send to a log line, which keeps notification paths exercisable in
// environments without a topic configured.
func NewDispatcher(pub cloudprovider.Publisher, dedupWindow time.Duration) *Dispatcher {
	if dedupWindow <= 0 {
		dedupWindow = 15 * time.Minute
	}
	return &Dispatcher{
		publisher: pub,
		window:    dedupWindow,
		lastSent:  make(map[string]time.Time),
		now:       time.Now,
	}
}

// Send delivers msg unless an identical key was sent inside the dedup
// window. The key should identify the semantic event (e.g. trigger name
// plus tier), not the message text.
func (d *Dispatcher) Send(ctx context.Context, key string, msg Message) {
	d.mu.Lock()
	last, seen := d.lastSent[key]
	if seen && d.now().Sub(last) < d.window {
		d.mu.Unlock()
		slog.Debug("notification deduped", "key", key, "lastSent", last)
		metrics.NotificationsTotal.WithLabelValues("deduped").Inc()
		return
	}
	d.lastSent[key] = d.now()
	d.mu.Unlock()

	if d.publisher == nil {
		slog.Info("notification (no publisher configured)",
			"key", key, "severity", msg.Severity, "subject", msg.Subject)
		metrics.NotificationsTotal.WithLabelValues("sent").Inc()
		return
	}

	if err := d.publisher.Publish(ctx, msg.Subject, msg.Body); err != nil {
		slog.Warn("notification delivery failed",
			"key", key, "subject", msg.Subject, "error", err)
		metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		return
	}

	slog.Info("notification sent", "key", key, "severity", msg.Severity, "subject", msg.Subject)
	metrics.NotificationsTotal.WithLabelValues("sent").Inc()
}
