package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresJobLockRepository implements the scheduler's run lease. A lock row
// is claimed when absent or expired; an unexpired lease held by another
// token refuses the claim.
type PostgresJobLockRepository struct {
	db *sql.DB
}

func NewPostgresJobLockRepository(db *sql.DB) *PostgresJobLockRepository {
	return &PostgresJobLockRepository{db: db}
}

func (r *PostgresJobLockRepository) Acquire(ctx context.Context, name, token string, ttl time.Duration) (bool, error) {
	expires := time.Now().Add(ttl)
	query := `INSERT INTO job_locks (name, token, expires_at)
               VALUES ($1, $2, $3)
               ON CONFLICT (name) DO UPDATE SET token = EXCLUDED.token, expires_at = EXCLUDED.expires_at
               WHERE job_locks.expires_at < NOW()
               RETURNING token`
	var got string
	err := r.db.QueryRowContext(ctx, query, name, token, expires).Scan(&got)
	if err != nil {
		if err == sql.ErrNoRows {
			// Conflict with an unexpired lease.
			return false, nil
		}
		return false, fmt.Errorf("error acquiring job lock %q: %w", name, err)
	}
	return got == token, nil
}

func (r *PostgresJobLockRepository) Release(ctx context.Context, name, token string) error {
	query := `DELETE FROM job_locks WHERE name = $1 AND token = $2`
	if _, err := r.db.ExecContext(ctx, query, name, token); err != nil {
		return fmt.Errorf("error releasing job lock %q: %w", name, err)
	}
	return nil
}
