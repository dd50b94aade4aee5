// internal/app/alert_service.go
package app

import (
	"context"
	"fmt"
	"time"

	"elbp_record_service/internal/domain/alert"
	"elbp_record_service/internal/domain/metric"
	"elbp_record_service/internal/domain/notify"
	"elbp_record_service/internal/domain/student"
	idb "elbp_record_service/internal/infra/database"
	"elbp_record_service/internal/infra/mis"

	"github.com/sirupsen/logrus"
)

// MetricSource yields the current value of a metric for one student. The
// second return is false when the source has no observation for the key,
// which is not an error: the rule simply does not fire.
type MetricSource interface {
	FetchValue(ctx context.Context, st *student.Student, courseID int64, courseShortName, metricType, period string) (float64, bool, error)
}

// MISMetricSource reads live values from the mapped external MIS view.
type MISMetricSource struct {
	client *mis.Client
}

func NewMISMetricSource(client *mis.Client) *MISMetricSource {
	return &MISMetricSource{client: client}
}

func (s *MISMetricSource) FetchValue(ctx context.Context, st *student.Student, _ int64, courseShortName, metricType, period string) (float64, bool, error) {
	return s.client.FetchValue(ctx, st.Username, metricType, period, courseShortName)
}

// LocalMetricSource reads values previously loaded through the CSV import,
// for installations without a reachable MIS database.
type LocalMetricSource struct {
	metrics metric.Repository
}

func NewLocalMetricSource(metrics metric.Repository) *LocalMetricSource {
	return &LocalMetricSource{metrics: metrics}
}

func (s *LocalMetricSource) FetchValue(ctx context.Context, st *student.Student, courseID int64, _, metricType, period string) (float64, bool, error) {
	if courseID == 0 {
		courseID = metric.NoCourse
	}
	m, err := s.metrics.Get(ctx, st.ID, courseID, metricType, period)
	if err != nil {
		if err == idb.ErrMetricNotFound {
			return 0, false, nil
		}
		return 0, false, err
	}
	return m.Value, true, nil
}

// AlertService runs the threshold scan: for every configured subscription of
// an event it resolves the scoped student set, fetches each student's metric
// value, and queues a notification when the value falls below the threshold.
// Duplicate work within a run and duplicate alerts across runs are both
// suppressed.
type AlertService struct {
	alertRepo   alert.Repository
	studentRepo student.Repository
	source      MetricSource
	notifier    notify.Notifier
	dedupWindow time.Duration
	logger      *logrus.Logger
}

func NewAlertService(
	alertRepo alert.Repository,
	studentRepo student.Repository,
	source MetricSource,
	notifier notify.Notifier,
	dedupWindow time.Duration,
	logger *logrus.Logger,
) *AlertService {
	return &AlertService{
		alertRepo:   alertRepo,
		studentRepo: studentRepo,
		source:      source,
		notifier:    notifier,
		dedupWindow: dedupWindow,
		logger:      logger,
	}
}

type cachedValue struct {
	val   float64
	found bool
}

// Run scans one event's subscriptions and returns the number of alerts
// queued. Scope overlap is handled with per-run markers so a user never
// receives two alerts for the same student key in one run, and metric values
// are fetched at most once per (student, course, type, period).
func (s *AlertService) Run(ctx context.Context, eventID int64) (int, error) {
	event, err := s.alertRepo.GetEventByID(ctx, eventID)
	if err != nil {
		return 0, fmt.Errorf("failed to load alert event %d: %w", eventID, err)
	}
	subs, err := s.alertRepo.ListSubscriptionsByEvent(ctx, eventID)
	if err != nil {
		return 0, fmt.Errorf("failed to list subscriptions for event %d: %w", eventID, err)
	}

	processed := make(map[string]bool)
	values := make(map[string]cachedValue)
	courses := make(map[int64]*student.Course)
	since := time.Now().Add(-s.dedupWindow)

	queued := 0
	for _, sub := range subs {
		if !sub.Configured() {
			s.logger.Debugf("Skipping unconfigured subscription %d for event %q", sub.ID, event.Name)
			continue
		}

		students, err := s.resolveScope(ctx, sub)
		if err != nil {
			s.logger.Errorf("Failed to resolve scope %s for subscription %d: %v", sub.Scope, sub.ID, err)
			continue
		}

		courseID := sub.CourseID.Int64 // zero when not set
		courseShortName := ""
		if sub.CourseID.Valid {
			course, ok := courses[courseID]
			if !ok {
				course, err = s.studentRepo.GetCourseByID(ctx, courseID)
				if err != nil {
					s.logger.Errorf("Failed to load course %d for subscription %d: %v", courseID, sub.ID, err)
					continue
				}
				courses[courseID] = course
			}
			courseShortName = course.ShortName
		}

		attrHash := sub.AttributeHash()
		for _, st := range students {
			markKey := fmt.Sprintf("%d|%d|%d|%s", sub.UserID, st.ID, courseID, sub.Period)
			if processed[markKey] {
				continue
			}
			processed[markKey] = true

			valKey := fmt.Sprintf("%d|%d|%s|%s", st.ID, courseID, sub.MetricType, sub.Period)
			cached, ok := values[valKey]
			if !ok {
				val, found, err := s.source.FetchValue(ctx, st, courseID, courseShortName, sub.MetricType, sub.Period)
				if err != nil {
					s.logger.Errorf("Failed to fetch %s/%s for student %s: %v", sub.MetricType, sub.Period, st.Username, err)
					continue
				}
				cached = cachedValue{val: val, found: found}
				values[valKey] = cached
			}
			if !cached.found || cached.val >= sub.Threshold.Float64 {
				continue
			}

			exists, err := s.alertRepo.HistoryExistsSince(ctx, sub.UserID, st.ID, eventID, attrHash, since)
			if err != nil {
				s.logger.Errorf("Failed to check alert history for user %d student %d: %v", sub.UserID, st.ID, err)
				continue
			}
			if exists {
				continue
			}

			ev := s.thresholdEvent(event, sub, st, cached.val)
			if err := s.notifier.Trigger(ctx, ev); err != nil {
				s.logger.Errorf("Failed to queue alert for user %d student %d: %v", sub.UserID, st.ID, err)
				continue
			}
			if err := s.alertRepo.RecordHistory(ctx, &alert.HistoryEntry{
				UserID:    sub.UserID,
				StudentID: st.ID,
				EventID:   eventID,
				AttrHash:  attrHash,
			}); err != nil {
				s.logger.Errorf("Failed to record alert history for user %d student %d: %v", sub.UserID, st.ID, err)
			}
			queued++
		}
	}

	s.logger.Infof("Alert scan for event %q queued %d alert(s) across %d subscription(s)", event.Name, queued, len(subs))
	return queued, nil
}

// RunAll scans every registered event. A failing event is logged and does
// not stop the remaining scans.
func (s *AlertService) RunAll(ctx context.Context) (int, error) {
	events, err := s.alertRepo.ListEvents(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list alert events: %w", err)
	}
	total := 0
	for _, ev := range events {
		n, err := s.Run(ctx, ev.ID)
		if err != nil {
			s.logger.Errorf("Alert scan for event %q failed: %v", ev.Name, err)
			continue
		}
		total += n
	}
	return total, nil
}

func (s *AlertService) resolveScope(ctx context.Context, sub *alert.Subscription) ([]*student.Student, error) {
	switch sub.Scope {
	case alert.ScopeStudent:
		if !sub.TargetID.Valid {
			return nil, fmt.Errorf("student scope without a target student")
		}
		st, err := s.studentRepo.GetByID(ctx, sub.TargetID.Int64)
		if err != nil {
			return nil, err
		}
		return []*student.Student{st}, nil
	case alert.ScopeCourse:
		if !sub.TargetID.Valid {
			return nil, fmt.Errorf("course scope without a target course")
		}
		return s.studentRepo.ListByCourse(ctx, sub.TargetID.Int64)
	case alert.ScopeMentees:
		return s.studentRepo.ListMentees(ctx, sub.UserID)
	case alert.ScopeCohort:
		return s.studentRepo.ListSupportCohort(ctx)
	default:
		return nil, fmt.Errorf("unknown subscription scope %q", sub.Scope)
	}
}

func (s *AlertService) thresholdEvent(event *alert.Event, sub *alert.Subscription, st *student.Student, val float64) notify.Event {
	subject := fmt.Sprintf("%s alert for %s", sub.MetricType, st.DisplayName())
	plain := fmt.Sprintf(
		"%s (%s) for %s is %g, below the configured threshold of %g.",
		sub.MetricType, sub.Period, st.DisplayName(), val, sub.Threshold.Float64,
	)
	html := fmt.Sprintf(
		"<p><strong>%s</strong> (%s) for %s is <strong>%g</strong>, below the configured threshold of %g.</p>",
		sub.MetricType, sub.Period, st.DisplayName(), val, sub.Threshold.Float64,
	)
	return notify.Event{
		Name:       event.Name,
		PluginID:   event.PluginID,
		StudentID:  st.ID,
		Recipients: []int64{sub.UserID},
		Subject:    subject,
		PlainBody:  plain,
		HTMLBody:   html,
	}
}
