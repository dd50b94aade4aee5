package app

import (
	"context"
	"fmt"
	"time"

	"elbp_record_service/internal/domain/alert"
	"elbp_record_service/internal/domain/comment"
	"elbp_record_service/internal/domain/metric"
	"elbp_record_service/internal/domain/notify"
	"elbp_record_service/internal/domain/record"
	"elbp_record_service/internal/domain/student"
	idb "elbp_record_service/internal/infra/database"
)

// In-memory repository fakes shared by the service tests.

type fakeRecordRepo struct {
	records map[string]*record.Record
	nextID  int64

	updateCalls [][]string // schemaFields per Update call
}

func newFakeRecordRepo() *fakeRecordRepo {
	return &fakeRecordRepo{records: make(map[string]*record.Record), nextID: 1}
}

func recKey(typ record.Type, id int64) string { return fmt.Sprintf("%s/%d", typ, id) }

func (r *fakeRecordRepo) Create(ctx context.Context, rec *record.Record) error {
	rec.ID = r.nextID
	r.nextID++
	r.records[recKey(rec.Type, rec.ID)] = rec.Clone()
	return nil
}

// Update mirrors the live repository's reconciliation: submitted fields
// replace their stored rows, stored schema fields left out of the submission
// are dropped, and stored ad-hoc fields outside the schema survive.
func (r *fakeRecordRepo) Update(ctx context.Context, rec *record.Record, schemaFields []string) error {
	stored, ok := r.records[recKey(rec.Type, rec.ID)]
	if !ok {
		return idb.ErrRecordNotFound
	}
	r.updateCalls = append(r.updateCalls, schemaFields)

	inSchema := make(map[string]bool, len(schemaFields))
	for _, f := range schemaFields {
		inSchema[f] = true
	}
	merged := rec.Clone()
	for _, attr := range stored.Attributes {
		if _, submitted := merged.Attribute(attr.Field); submitted {
			continue
		}
		if !inSchema[attr.Field] {
			merged.SetAttribute(attr.Field, attr.Value)
		}
	}
	r.records[recKey(rec.Type, rec.ID)] = merged
	return nil
}

func (r *fakeRecordRepo) GetByID(ctx context.Context, typ record.Type, id int64) (*record.Record, error) {
	rec, ok := r.records[recKey(typ, id)]
	if !ok {
		return nil, idb.ErrRecordNotFound
	}
	return rec.Clone(), nil
}

func (r *fakeRecordRepo) ListActiveByStudent(ctx context.Context, typ record.Type, studentID int64) ([]*record.Record, error) {
	var out []*record.Record
	for _, rec := range r.records {
		if rec.Type == typ && rec.StudentID == studentID && !rec.Deleted {
			out = append(out, rec.Clone())
		}
	}
	return out, nil
}

func (r *fakeRecordRepo) SoftDelete(ctx context.Context, typ record.Type, id int64) error {
	rec, ok := r.records[recKey(typ, id)]
	if !ok {
		return idb.ErrRecordNotFound
	}
	rec.Deleted = true
	return nil
}

type fakeCommentRepo struct {
	comments map[int64]*comment.Comment
	nextID   int64
}

func newFakeCommentRepo() *fakeCommentRepo {
	return &fakeCommentRepo{comments: make(map[int64]*comment.Comment), nextID: 1}
}

func (r *fakeCommentRepo) Create(ctx context.Context, c *comment.Comment) error {
	c.ID = r.nextID
	r.nextID++
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Unix(c.ID*60, 0)
	}
	cp := *c
	r.comments[c.ID] = &cp
	return nil
}

func (r *fakeCommentRepo) GetByID(ctx context.Context, id int64) (*comment.Comment, error) {
	c, ok := r.comments[id]
	if !ok {
		return nil, idb.ErrCommentNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCommentRepo) ListByRecord(ctx context.Context, typ record.Type, recordID int64) ([]*comment.Comment, error) {
	var out []*comment.Comment
	for id := int64(1); id < r.nextID; id++ {
		c, ok := r.comments[id]
		if !ok || c.Deleted || c.RecordType != typ || c.RecordID != recordID {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeCommentRepo) SoftDeleteMany(ctx context.Context, ids []int64) error {
	for _, id := range ids {
		if c, ok := r.comments[id]; ok {
			c.Deleted = true
		}
	}
	return nil
}

func (r *fakeCommentRepo) SetResolved(ctx context.Context, id int64, resolved bool) error {
	c, ok := r.comments[id]
	if !ok {
		return idb.ErrCommentNotFound
	}
	c.Resolved = resolved
	return nil
}

type subKey struct {
	userID, studentID int64
}

type fakeAlertRepo struct {
	events  []*alert.Event
	subs    map[int64][]*alert.Subscription // by event ID
	optIns  map[subKey]bool                 // student-scope opt-in state by (user, student)
	history []*alert.HistoryEntry
}

func newFakeAlertRepo() *fakeAlertRepo {
	return &fakeAlertRepo{
		subs:   make(map[int64][]*alert.Subscription),
		optIns: make(map[subKey]bool),
	}
}

func (r *fakeAlertRepo) GetEventByID(ctx context.Context, id int64) (*alert.Event, error) {
	for _, ev := range r.events {
		if ev.ID == id {
			return ev, nil
		}
	}
	return nil, idb.ErrEventNotFound
}

func (r *fakeAlertRepo) ListEvents(ctx context.Context) ([]*alert.Event, error) {
	return r.events, nil
}

func (r *fakeAlertRepo) ListSubscriptionsByEvent(ctx context.Context, eventID int64) ([]*alert.Subscription, error) {
	return r.subs[eventID], nil
}

func (r *fakeAlertRepo) ListStudentSubscribers(ctx context.Context, pluginID, studentID int64) ([]int64, error) {
	var out []int64
	for key, in := range r.optIns {
		if in && key.studentID == studentID {
			out = append(out, key.userID)
		}
	}
	return out, nil
}

func (r *fakeAlertRepo) OptIn(ctx context.Context, userID, pluginID, studentID int64) error {
	r.optIns[subKey{userID, studentID}] = true
	return nil
}

func (r *fakeAlertRepo) OptOut(ctx context.Context, userID, pluginID, studentID int64) error {
	delete(r.optIns, subKey{userID, studentID})
	return nil
}

func (r *fakeAlertRepo) HistoryExistsSince(ctx context.Context, userID, studentID, eventID int64, attrHash string, since time.Time) (bool, error) {
	for _, h := range r.history {
		if h.UserID == userID && h.StudentID == studentID && h.EventID == eventID &&
			h.AttrHash == attrHash && !h.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeAlertRepo) RecordHistory(ctx context.Context, entry *alert.HistoryEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	r.history = append(r.history, entry)
	return nil
}

type fakeStudentRepo struct {
	students map[int64]*student.Student
	courses  map[int64]*student.Course
	mentees  map[int64][]int64 // tutor user ID -> student IDs
	enrolled map[int64][]int64 // course ID -> student IDs
	profile  map[int64]map[string]string
	nextID   int64
}

func newFakeStudentRepo() *fakeStudentRepo {
	return &fakeStudentRepo{
		students: make(map[int64]*student.Student),
		courses:  make(map[int64]*student.Course),
		mentees:  make(map[int64][]int64),
		enrolled: make(map[int64][]int64),
		profile:  make(map[int64]map[string]string),
		nextID:   1,
	}
}

func (r *fakeStudentRepo) addStudent(username string) *student.Student {
	st := &student.Student{ID: r.nextID, Username: username, FirstName: username}
	r.nextID++
	r.students[st.ID] = st
	return st
}

func (r *fakeStudentRepo) Create(ctx context.Context, s *student.Student) error {
	s.ID = r.nextID
	r.nextID++
	r.students[s.ID] = s
	return nil
}

func (r *fakeStudentRepo) GetByID(ctx context.Context, id int64) (*student.Student, error) {
	st, ok := r.students[id]
	if !ok {
		return nil, idb.ErrStudentNotFound
	}
	return st, nil
}

func (r *fakeStudentRepo) GetByUsername(ctx context.Context, username string) (*student.Student, error) {
	for _, st := range r.students {
		if st.Username == username {
			return st, nil
		}
	}
	return nil, idb.ErrStudentNotFound
}

func (r *fakeStudentRepo) ListByCourse(ctx context.Context, courseID int64) ([]*student.Student, error) {
	var out []*student.Student
	for _, id := range r.enrolled[courseID] {
		out = append(out, r.students[id])
	}
	return out, nil
}

func (r *fakeStudentRepo) ListMentees(ctx context.Context, tutorUserID int64) ([]*student.Student, error) {
	var out []*student.Student
	for _, id := range r.mentees[tutorUserID] {
		out = append(out, r.students[id])
	}
	return out, nil
}

func (r *fakeStudentRepo) ListSupportCohort(ctx context.Context) ([]*student.Student, error) {
	var out []*student.Student
	for id := int64(1); id < r.nextID; id++ {
		if st, ok := r.students[id]; ok && st.IsSupport {
			out = append(out, st)
		}
	}
	return out, nil
}

func (r *fakeStudentRepo) GetCourseByID(ctx context.Context, id int64) (*student.Course, error) {
	c, ok := r.courses[id]
	if !ok {
		return nil, idb.ErrCourseNotFound
	}
	return c, nil
}

func (r *fakeStudentRepo) GetCourseByShortName(ctx context.Context, shortName string) (*student.Course, error) {
	for _, c := range r.courses {
		if c.ShortName == shortName {
			return c, nil
		}
	}
	return nil, idb.ErrCourseNotFound
}

func (r *fakeStudentRepo) CreateCourse(ctx context.Context, c *student.Course) error {
	c.ID = r.nextID
	r.nextID++
	r.courses[c.ID] = c
	return nil
}

func (r *fakeStudentRepo) SetProfileField(ctx context.Context, studentID int64, field, value string) error {
	if _, ok := r.students[studentID]; !ok {
		return idb.ErrStudentNotFound
	}
	if r.profile[studentID] == nil {
		r.profile[studentID] = make(map[string]string)
	}
	r.profile[studentID][field] = value
	return nil
}

func (r *fakeStudentRepo) GetProfileFields(ctx context.Context, studentID int64) (map[string]string, error) {
	return r.profile[studentID], nil
}

type fakeMetricRepo struct {
	metrics map[string]*metric.Metric
}

func newFakeMetricRepo() *fakeMetricRepo {
	return &fakeMetricRepo{metrics: make(map[string]*metric.Metric)}
}

func metricKey(studentID, courseID int64, typ, period string) string {
	return fmt.Sprintf("%d|%d|%s|%s", studentID, courseID, typ, period)
}

func (r *fakeMetricRepo) Upsert(ctx context.Context, m *metric.Metric) error {
	cp := *m
	r.metrics[metricKey(m.StudentID, m.CourseID, m.Type, m.Period)] = &cp
	return nil
}

func (r *fakeMetricRepo) Get(ctx context.Context, studentID, courseID int64, metricType, period string) (*metric.Metric, error) {
	m, ok := r.metrics[metricKey(studentID, courseID, metricType, period)]
	if !ok {
		return nil, idb.ErrMetricNotFound
	}
	return m, nil
}

type fakeNotifier struct {
	events []notify.Event
	err    error
}

func (n *fakeNotifier) Trigger(ctx context.Context, ev notify.Event) error {
	if n.err != nil {
		return n.err
	}
	n.events = append(n.events, ev)
	return nil
}

type fakeAudit struct {
	changes []record.FieldChange
}

func (a *fakeAudit) LogAttributeChange(ctx context.Context, rec *record.Record, change record.FieldChange) {
	a.changes = append(a.changes, change)
}

// staticMetricSource serves fixed values keyed like the metric repo.
type staticMetricSource struct {
	values map[string]float64
	calls  int
}

func (s *staticMetricSource) FetchValue(ctx context.Context, st *student.Student, courseID int64, _, metricType, period string) (float64, bool, error) {
	s.calls++
	val, ok := s.values[metricKey(st.ID, courseID, metricType, period)]
	return val, ok, nil
}
