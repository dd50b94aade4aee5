package alert

import (
	"context"
	"time"
)

// Repository defines persistence for alert events, subscriptions and the
// de-duplication history.
type Repository interface {
	// Event methods
	GetEventByID(ctx context.Context, id int64) (*Event, error)
	ListEvents(ctx context.Context) ([]*Event, error)

	// Subscription methods
	ListSubscriptionsByEvent(ctx context.Context, eventID int64) ([]*Subscription, error)
	// ListStudentSubscribers returns the user IDs currently opted in with
	// student scope for any of the plugin's events. Used by the
	// interested-parties sync.
	ListStudentSubscribers(ctx context.Context, pluginID, studentID int64) ([]int64, error)
	// OptIn creates a student-scoped subscription for every event of the
	// plugin; existing rows are left untouched.
	OptIn(ctx context.Context, userID, pluginID, studentID int64) error
	// OptOut removes the user's student-scoped subscriptions for the
	// plugin's events.
	OptOut(ctx context.Context, userID, pluginID, studentID int64) error

	// History methods
	HistoryExistsSince(ctx context.Context, userID, studentID, eventID int64, attrHash string, since time.Time) (bool, error)
	RecordHistory(ctx context.Context, entry *HistoryEntry) error
}
