// Package notify tells operators about failed menu acquisition runs.
package notify

import (
	"context"
	"fmt"
	"strings"

	fetcherrors "canteen-menu/internal/common/errors"
	"canteen-menu/internal/common/logger"
)

// Notification describes one failed run.
type Notification struct {
	RunID      string
	Trigger    string
	Diagnostic fetcherrors.Diagnostic
}

func (n Notification) Subject() string {
	return fmt.Sprintf("[canteen-menu] %s failed (%s)", n.Trigger, n.Diagnostic.Kind)
}

func (n Notification) Body() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run:       %s\n", n.RunID)
	fmt.Fprintf(&b, "Trigger:   %s\n", n.Trigger)
	fmt.Fprintf(&b, "Type:      %s\n", n.Diagnostic.Type)
	fmt.Fprintf(&b, "Kind:      %s\n", n.Diagnostic.Kind)
	fmt.Fprintf(&b, "Retryable: %t\n", n.Diagnostic.Retryable)
	fmt.Fprintf(&b, "Time:      %s\n", n.Diagnostic.Timestamp.Format("2006-01-02T15:04:05Z07:00"))
	fmt.Fprintf(&b, "\n%s\n", n.Diagnostic.Message)
	return b.String()
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Nop discards notifications.
type Nop struct{}

func (Nop) Notify(ctx context.Context, n Notification) error { return nil }

// Multi fans a notification out to every channel. Channel failures are
// logged and never returned.
type Multi struct {
	channels map[string]Notifier
	logger   logger.Logger
}

func NewMulti(log logger.Logger) *Multi {
	return &Multi{channels: make(map[string]Notifier), logger: log}
}

// Add registers a channel under name.
func (m *Multi) Add(name string, n Notifier) *Multi {
	m.channels[name] = n
	return m
}

func (m *Multi) Len() int {
	return len(m.channels)
}

func (m *Multi) Notify(ctx context.Context, n Notification) error {
	for name, ch := range m.channels {
		if err := ch.Notify(ctx, n); err != nil {
			m.logger.Error("failed to send failure notification", map[string]interface{}{
				"channel": name,
				"runId":   n.RunID,
				"error":   err,
			})
			continue
		}
		m.logger.Info("failure notification sent", map[string]interface{}{"channel": name, "runId": n.RunID})
	}
	return nil
}
