package student

import "context"

// Repository defines the operations for students, courses and the
// relationships alert scoping depends on.
type Repository interface {
	Create(ctx context.Context, s *Student) error
	GetByID(ctx context.Context, id int64) (*Student, error)
	GetByUsername(ctx context.Context, username string) (*Student, error)

	ListByCourse(ctx context.Context, courseID int64) ([]*Student, error)
	ListMentees(ctx context.Context, tutorUserID int64) ([]*Student, error)
	ListSupportCohort(ctx context.Context) ([]*Student, error)

	GetCourseByID(ctx context.Context, id int64) (*Course, error)
	GetCourseByShortName(ctx context.Context, shortName string) (*Course, error)
	CreateCourse(ctx context.Context, c *Course) error

	// Profile fields are a flat key/value bag per student (StudentProfile
	// plugin), upserted on write.
	SetProfileField(ctx context.Context, studentID int64, field, value string) error
	GetProfileFields(ctx context.Context, studentID int64) (map[string]string, error)
}
