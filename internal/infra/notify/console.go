// Package notify provides the delivery backends behind the notification
// port: console (development default), email via SendGrid, and a Telegram
// ops channel.
package notify

import (
	"context"

	"elbp_record_service/internal/domain/notify"

	"github.com/sirupsen/logrus"
)

// ConsoleNotifier writes every queued notification to the log. Used in
// development and as the fallback channel.
type ConsoleNotifier struct {
	logger *logrus.Logger
}

func NewConsoleNotifier(logger *logrus.Logger) *ConsoleNotifier {
	return &ConsoleNotifier{logger: logger}
}

func (n *ConsoleNotifier) Trigger(_ context.Context, ev notify.Event) error {
	n.logger.WithFields(logrus.Fields{
		"event":           ev.Name,
		"plugin_id":       ev.PluginID,
		"student_id":      ev.StudentID,
		"recipients":      ev.Recipients,
		"confidentiality": ev.Confidentiality,
	}).Infof("NOTIFY: %s: %s", ev.Subject, ev.PlainBody)
	return nil
}
