package notify

import "context"

// Event is one notification to deliver: an alert queued by the threshold
// engine or a record-change digest.
type Event struct {
	Name            string
	PluginID        int64
	StudentID       int64
	Recipients      []int64 // user IDs; empty means the configured default channel
	Subject         string
	PlainBody       string
	HTMLBody        string
	Confidentiality int // opaque access tier, passed through to delivery
}

// Notifier is the delivery port. Implementations live in infra (console,
// email, telegram); this core only queues through it.
type Notifier interface {
	Trigger(ctx context.Context, ev Event) error
}
