package metric

import (
	"context"
	"time"
)

// NoCourse is the course ID used for metrics not tied to any course, so the
// (student, course, type, period) key stays unique without NULL handling.
const NoCourse int64 = 0

// Metric is one imported observation, e.g. (Attendance, Total) = 85 for a
// student across all courses.
type Metric struct {
	ID        int64
	StudentID int64
	CourseID  int64 // NoCourse when not course-specific
	Type      string
	Period    string
	Value     float64
	UpdatedAt time.Time
}

// Repository stores imported metrics with upsert semantics: re-importing a
// (student, course, type, period) key replaces the value.
type Repository interface {
	Upsert(ctx context.Context, m *Metric) error
	Get(ctx context.Context, studentID, courseID int64, metricType, period string) (*Metric, error)
}
