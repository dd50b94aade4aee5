package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"elbp_record_service/internal/domain/student"
)

// Custom errors
var ErrStudentNotFound = fmt.Errorf("student not found")
var ErrCourseNotFound = fmt.Errorf("course not found")
var ErrDuplicateUsername = fmt.Errorf("student with this username already exists")

type PostgresStudentRepository struct {
	db *sql.DB
}

func NewPostgresStudentRepository(db *sql.DB) *PostgresStudentRepository {
	return &PostgresStudentRepository{db: db}
}

const studentColumns = `id, username, id_number, first_name, last_name, is_support, deleted, created_at, updated_at`

func scanStudent(row interface{ Scan(...interface{}) error }, s *student.Student) error {
	return row.Scan(&s.ID, &s.Username, &s.IDNumber, &s.FirstName, &s.LastName,
		&s.IsSupport, &s.Deleted, &s.CreatedAt, &s.UpdatedAt)
}

func (r *PostgresStudentRepository) Create(ctx context.Context, s *student.Student) error {
	query := `INSERT INTO students (username, id_number, first_name, last_name, is_support)
               VALUES ($1, $2, $3, $4, $5)
               RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, s.Username, s.IDNumber, s.FirstName, s.LastName, s.IsSupport).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "students_username_key") {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("error creating student: %w", err)
	}
	return nil
}

func (r *PostgresStudentRepository) GetByID(ctx context.Context, id int64) (*student.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`
	s := &student.Student{}
	if err := scanStudent(r.db.QueryRowContext(ctx, query, id), s); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("error getting student by ID: %w", err)
	}
	return s, nil
}

func (r *PostgresStudentRepository) GetByUsername(ctx context.Context, username string) (*student.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE username = $1`
	s := &student.Student{}
	if err := scanStudent(r.db.QueryRowContext(ctx, query, username), s); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("error getting student by username: %w", err)
	}
	return s, nil
}

func (r *PostgresStudentRepository) listStudents(ctx context.Context, query string, args ...interface{}) ([]*student.Student, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing students: %w", err)
	}
	defer rows.Close()

	students := make([]*student.Student, 0)
	for rows.Next() {
		s := &student.Student{}
		if err := scanStudent(rows, s); err != nil {
			return nil, fmt.Errorf("error scanning student row: %w", err)
		}
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating student rows: %w", err)
	}
	return students, nil
}

func (r *PostgresStudentRepository) ListByCourse(ctx context.Context, courseID int64) ([]*student.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students
               WHERE deleted = FALSE AND id IN (SELECT student_id FROM course_enrolments WHERE course_id = $1)
               ORDER BY first_name, last_name`
	return r.listStudents(ctx, query, courseID)
}

func (r *PostgresStudentRepository) ListMentees(ctx context.Context, tutorUserID int64) ([]*student.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students
               WHERE deleted = FALSE AND id IN (SELECT student_id FROM mentor_assignments WHERE tutor_user_id = $1)
               ORDER BY first_name, last_name`
	return r.listStudents(ctx, query, tutorUserID)
}

func (r *PostgresStudentRepository) ListSupportCohort(ctx context.Context) ([]*student.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students
               WHERE deleted = FALSE AND is_support = TRUE
               ORDER BY first_name, last_name`
	return r.listStudents(ctx, query)
}

func (r *PostgresStudentRepository) GetCourseByID(ctx context.Context, id int64) (*student.Course, error) {
	query := `SELECT id, short_name, full_name FROM courses WHERE id = $1`
	c := &student.Course{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.ShortName, &c.FullName)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("error getting course by ID: %w", err)
	}
	return c, nil
}

func (r *PostgresStudentRepository) GetCourseByShortName(ctx context.Context, shortName string) (*student.Course, error) {
	query := `SELECT id, short_name, full_name FROM courses WHERE short_name = $1`
	c := &student.Course{}
	err := r.db.QueryRowContext(ctx, query, shortName).Scan(&c.ID, &c.ShortName, &c.FullName)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("error getting course by short name: %w", err)
	}
	return c, nil
}

func (r *PostgresStudentRepository) CreateCourse(ctx context.Context, c *student.Course) error {
	query := `INSERT INTO courses (short_name, full_name) VALUES ($1, $2) RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, c.ShortName, c.FullName).Scan(&c.ID); err != nil {
		return fmt.Errorf("error creating course: %w", err)
	}
	return nil
}

func (r *PostgresStudentRepository) SetProfileField(ctx context.Context, studentID int64, field, value string) error {
	query := `INSERT INTO student_profile_fields (student_id, field, value)
               VALUES ($1, $2, $3)
               ON CONFLICT (student_id, field) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`
	if _, err := r.db.ExecContext(ctx, query, studentID, field, value); err != nil {
		return fmt.Errorf("error setting profile field %q for student %d: %w", field, studentID, err)
	}
	return nil
}

func (r *PostgresStudentRepository) GetProfileFields(ctx context.Context, studentID int64) (map[string]string, error) {
	query := `SELECT field, value FROM student_profile_fields WHERE student_id = $1`
	rows, err := r.db.QueryContext(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("error loading profile fields for student %d: %w", studentID, err)
	}
	defer rows.Close()

	fields := make(map[string]string)
	for rows.Next() {
		var field, value string
		if err := rows.Scan(&field, &value); err != nil {
			return nil, fmt.Errorf("error scanning profile field row: %w", err)
		}
		fields[field] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating profile field rows: %w", err)
	}
	return fields, nil
}
