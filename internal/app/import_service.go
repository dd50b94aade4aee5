// internal/app/import_service.go
package app

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"elbp_record_service/internal/domain/metric"
	"elbp_record_service/internal/domain/student"
	idb "elbp_record_service/internal/infra/database"

	"github.com/sirupsen/logrus"
)

var metricHeader = []string{"username", "type", "period", "courseshortname", "value"}
var profileHeader = []string{"username", "field", "value"}

// RowError ties an import failure to its 1-based line number.
type RowError struct {
	Line    int
	Message string
}

func (e RowError) String() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// ImportResult summarises one import run. A malformed row never aborts the
// run; it lands in Errors and the import continues with the next row.
type ImportResult struct {
	Imported int
	Errored  int
	Errors   []RowError
}

func (r *ImportResult) fail(line int, format string, args ...interface{}) {
	r.Errored++
	r.Errors = append(r.Errors, RowError{Line: line, Message: fmt.Sprintf(format, args...)})
}

// ImportService loads metric observations and profile fields from CSV
// streams into local storage.
type ImportService struct {
	studentRepo   student.Repository
	metricRepo    metric.Repository
	autoProvision bool
	logger        *logrus.Logger
}

func NewImportService(studentRepo student.Repository, metricRepo metric.Repository, autoProvision bool, logger *logrus.Logger) *ImportService {
	return &ImportService{
		studentRepo:   studentRepo,
		metricRepo:    metricRepo,
		autoProvision: autoProvision,
		logger:        logger,
	}
}

// ImportMetrics reads rows of the form
// username,type,period,courseshortname,value and upserts each as a metric
// observation. courseshortname may be empty for metrics not tied to a course.
func (s *ImportService) ImportMetrics(ctx context.Context, r io.Reader) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	if err := checkHeader(reader, metricHeader); err != nil {
		return nil, err
	}

	result := &ImportResult{}
	courses := make(map[string]*student.Course)
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.fail(line, "unreadable row: %v", err)
			continue
		}
		if len(row) != len(metricHeader) {
			result.fail(line, "expected %d columns, got %d", len(metricHeader), len(row))
			continue
		}

		username := strings.TrimSpace(row[0])
		metricType := strings.TrimSpace(row[1])
		period := strings.TrimSpace(row[2])
		courseShortName := strings.TrimSpace(row[3])
		if username == "" || metricType == "" || period == "" {
			result.fail(line, "username, type and period must not be empty")
			continue
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(row[4]), 64)
		if err != nil {
			result.fail(line, "value %q is not numeric", row[4])
			continue
		}

		st, err := s.resolveStudent(ctx, username)
		if err != nil {
			result.fail(line, "%v", err)
			continue
		}

		courseID := metric.NoCourse
		if courseShortName != "" {
			course, err := s.resolveCourse(ctx, courseShortName, courses)
			if err != nil {
				result.fail(line, "%v", err)
				continue
			}
			courseID = course.ID
		}

		if err := s.metricRepo.Upsert(ctx, &metric.Metric{
			StudentID: st.ID,
			CourseID:  courseID,
			Type:      metricType,
			Period:    period,
			Value:     value,
		}); err != nil {
			result.fail(line, "failed to store metric: %v", err)
			continue
		}
		result.Imported++
	}

	s.logger.Infof("Metric import finished: %d imported, %d errored", result.Imported, result.Errored)
	return result, nil
}

// ImportProfileFields reads rows of the form username,field,value and stores
// each as a student profile field, overwriting any earlier value.
func (s *ImportService) ImportProfileFields(ctx context.Context, r io.Reader) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	if err := checkHeader(reader, profileHeader); err != nil {
		return nil, err
	}

	result := &ImportResult{}
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.fail(line, "unreadable row: %v", err)
			continue
		}
		if len(row) != len(profileHeader) {
			result.fail(line, "expected %d columns, got %d", len(profileHeader), len(row))
			continue
		}

		username := strings.TrimSpace(row[0])
		field := strings.TrimSpace(row[1])
		if username == "" || field == "" {
			result.fail(line, "username and field must not be empty")
			continue
		}

		st, err := s.resolveStudent(ctx, username)
		if err != nil {
			result.fail(line, "%v", err)
			continue
		}
		if err := s.studentRepo.SetProfileField(ctx, st.ID, field, row[2]); err != nil {
			result.fail(line, "failed to store profile field: %v", err)
			continue
		}
		result.Imported++
	}

	s.logger.Infof("Profile field import finished: %d imported, %d errored", result.Imported, result.Errored)
	return result, nil
}

func (s *ImportService) resolveStudent(ctx context.Context, username string) (*student.Student, error) {
	st, err := s.studentRepo.GetByUsername(ctx, username)
	if err == nil {
		return st, nil
	}
	if err != idb.ErrStudentNotFound {
		return nil, fmt.Errorf("failed to look up student %q: %v", username, err)
	}
	if !s.autoProvision {
		return nil, fmt.Errorf("unknown student %q", username)
	}
	st = &student.Student{Username: username, FirstName: username}
	if err := s.studentRepo.Create(ctx, st); err != nil {
		return nil, fmt.Errorf("failed to provision student %q: %v", username, err)
	}
	s.logger.Debugf("Provisioned student %q during import", username)
	return st, nil
}

func (s *ImportService) resolveCourse(ctx context.Context, shortName string, cache map[string]*student.Course) (*student.Course, error) {
	if c, ok := cache[shortName]; ok {
		return c, nil
	}
	c, err := s.studentRepo.GetCourseByShortName(ctx, shortName)
	if err == nil {
		cache[shortName] = c
		return c, nil
	}
	if err != idb.ErrCourseNotFound {
		return nil, fmt.Errorf("failed to look up course %q: %v", shortName, err)
	}
	if !s.autoProvision {
		return nil, fmt.Errorf("unknown course %q", shortName)
	}
	c = &student.Course{ShortName: shortName, FullName: shortName}
	if err := s.studentRepo.CreateCourse(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to provision course %q: %v", shortName, err)
	}
	s.logger.Debugf("Provisioned course %q during import", shortName)
	cache[shortName] = c
	return c, nil
}

func checkHeader(reader *csv.Reader, want []string) error {
	got, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read header row: %w", err)
	}
	if len(got) != len(want) {
		return fmt.Errorf("header must be %q", strings.Join(want, ","))
	}
	for i := range want {
		if !strings.EqualFold(strings.TrimSpace(got[i]), want[i]) {
			return fmt.Errorf("header must be %q", strings.Join(want, ","))
		}
	}
	return nil
}
