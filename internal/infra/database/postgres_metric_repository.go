package database

import (
	"context"
	"database/sql"
	"fmt"

	"elbp_record_service/internal/domain/metric"
)

var ErrMetricNotFound = fmt.Errorf("metric not found")

type PostgresMetricRepository struct {
	db *sql.DB
}

func NewPostgresMetricRepository(db *sql.DB) *PostgresMetricRepository {
	return &PostgresMetricRepository{db: db}
}

func (r *PostgresMetricRepository) Upsert(ctx context.Context, m *metric.Metric) error {
	query := `INSERT INTO student_metrics (student_id, course_id, metric_type, period, value)
               VALUES ($1, $2, $3, $4, $5)
               ON CONFLICT (student_id, course_id, metric_type, period)
               DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
               RETURNING id, updated_at`
	err := r.db.QueryRowContext(ctx, query, m.StudentID, m.CourseID, m.Type, m.Period, m.Value).
		Scan(&m.ID, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error upserting metric (%d, %d, %s, %s): %w", m.StudentID, m.CourseID, m.Type, m.Period, err)
	}
	return nil
}

func (r *PostgresMetricRepository) Get(ctx context.Context, studentID, courseID int64, metricType, period string) (*metric.Metric, error) {
	query := `SELECT id, student_id, course_id, metric_type, period, value, updated_at
               FROM student_metrics
               WHERE student_id = $1 AND course_id = $2 AND metric_type = $3 AND period = $4`
	m := &metric.Metric{}
	err := r.db.QueryRowContext(ctx, query, studentID, courseID, metricType, period).
		Scan(&m.ID, &m.StudentID, &m.CourseID, &m.Type, &m.Period, &m.Value, &m.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrMetricNotFound
		}
		return nil, fmt.Errorf("error getting metric: %w", err)
	}
	return m, nil
}
