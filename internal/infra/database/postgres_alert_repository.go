package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"elbp_record_service/internal/domain/alert"
)

// Custom errors specific to the alert repository
var ErrEventNotFound = fmt.Errorf("alert event not found")

type PostgresAlertRepository struct {
	db *sql.DB
}

func NewPostgresAlertRepository(db *sql.DB) *PostgresAlertRepository {
	return &PostgresAlertRepository{db: db}
}

// --- Event methods ---

func (r *PostgresAlertRepository) GetEventByID(ctx context.Context, id int64) (*alert.Event, error) {
	query := `SELECT id, name, plugin_id FROM alert_events WHERE id = $1`
	ev := &alert.Event{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&ev.ID, &ev.Name, &ev.PluginID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("error getting alert event by ID: %w", err)
	}
	return ev, nil
}

func (r *PostgresAlertRepository) ListEvents(ctx context.Context) ([]*alert.Event, error) {
	return r.listEvents(ctx, `SELECT id, name, plugin_id FROM alert_events ORDER BY id`)
}

func (r *PostgresAlertRepository) listEvents(ctx context.Context, query string, args ...interface{}) ([]*alert.Event, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing alert events: %w", err)
	}
	defer rows.Close()

	events := make([]*alert.Event, 0)
	for rows.Next() {
		ev := &alert.Event{}
		if err := rows.Scan(&ev.ID, &ev.Name, &ev.PluginID); err != nil {
			return nil, fmt.Errorf("error scanning alert event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alert events: %w", err)
	}
	return events, nil
}

// --- Subscription methods ---

func (r *PostgresAlertRepository) ListSubscriptionsByEvent(ctx context.Context, eventID int64) ([]*alert.Subscription, error) {
	query := `SELECT id, user_id, event_id, scope, target_id, metric_type, period, course_id, threshold, created_at
               FROM alert_subscriptions WHERE event_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("error listing subscriptions for event %d: %w", eventID, err)
	}
	defer rows.Close()

	subs := make([]*alert.Subscription, 0)
	for rows.Next() {
		s := &alert.Subscription{}
		if err := rows.Scan(
			&s.ID, &s.UserID, &s.EventID, &s.Scope, &s.TargetID,
			&s.MetricType, &s.Period, &s.CourseID, &s.Threshold, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning subscription row: %w", err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subscription rows: %w", err)
	}
	return subs, nil
}

func (r *PostgresAlertRepository) ListStudentSubscribers(ctx context.Context, pluginID, studentID int64) ([]int64, error) {
	query := `SELECT DISTINCT s.user_id
               FROM alert_subscriptions s
               JOIN alert_events e ON e.id = s.event_id
               WHERE e.plugin_id = $1 AND s.scope = $2 AND s.target_id = $3
               ORDER BY s.user_id`
	rows, err := r.db.QueryContext(ctx, query, pluginID, alert.ScopeStudent, studentID)
	if err != nil {
		return nil, fmt.Errorf("error listing student subscribers: %w", err)
	}
	defer rows.Close()

	users := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning subscriber row: %w", err)
		}
		users = append(users, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subscriber rows: %w", err)
	}
	return users, nil
}

func (r *PostgresAlertRepository) OptIn(ctx context.Context, userID, pluginID, studentID int64) error {
	// One student-scoped subscription per plugin event; existing rows are
	// left untouched via the unique key.
	query := `INSERT INTO alert_subscriptions (user_id, event_id, scope, target_id)
               SELECT $1, e.id, $2, $3 FROM alert_events e WHERE e.plugin_id = $4
               ON CONFLICT (user_id, event_id, scope, target_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, userID, alert.ScopeStudent, studentID, pluginID); err != nil {
		return fmt.Errorf("error opting user %d into plugin %d alerts: %w", userID, pluginID, err)
	}
	return nil
}

func (r *PostgresAlertRepository) OptOut(ctx context.Context, userID, pluginID, studentID int64) error {
	query := `DELETE FROM alert_subscriptions s
               USING alert_events e
               WHERE e.id = s.event_id AND e.plugin_id = $1
                 AND s.user_id = $2 AND s.scope = $3 AND s.target_id = $4`
	if _, err := r.db.ExecContext(ctx, query, pluginID, userID, alert.ScopeStudent, studentID); err != nil {
		return fmt.Errorf("error opting user %d out of plugin %d alerts: %w", userID, pluginID, err)
	}
	return nil
}

// --- History methods ---

func (r *PostgresAlertRepository) HistoryExistsSince(ctx context.Context, userID, studentID, eventID int64, attrHash string, since time.Time) (bool, error) {
	query := `SELECT EXISTS (
                 SELECT 1 FROM alert_history
                 WHERE user_id = $1 AND student_id = $2 AND event_id = $3 AND attr_hash = $4 AND created_at >= $5)`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, userID, studentID, eventID, attrHash, since).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking alert history: %w", err)
	}
	return exists, nil
}

func (r *PostgresAlertRepository) RecordHistory(ctx context.Context, entry *alert.HistoryEntry) error {
	query := `INSERT INTO alert_history (user_id, student_id, event_id, attr_hash)
               VALUES ($1, $2, $3, $4)
               RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, entry.UserID, entry.StudentID, entry.EventID, entry.AttrHash).
		Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("error recording alert history: %w", err)
	}
	return nil
}
