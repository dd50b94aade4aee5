package database

import (
	"context"
	"database/sql"
	"fmt"

	"elbp_record_service/internal/domain/comment"
	"elbp_record_service/internal/domain/record"

	"github.com/lib/pq"
)

var ErrCommentNotFound = fmt.Errorf("comment not found")

type PostgresCommentRepository struct {
	db *sql.DB
}

func NewPostgresCommentRepository(db *sql.DB) *PostgresCommentRepository {
	return &PostgresCommentRepository{db: db}
}

func (r *PostgresCommentRepository) Create(ctx context.Context, c *comment.Comment) error {
	query := `INSERT INTO record_comments (record_type, record_id, author_id, parent_id, body, resolved, positive, hidden)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
               RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query,
		c.RecordType, c.RecordID, c.AuthorID, c.ParentID, c.Body, c.Resolved, c.Positive, c.Hidden,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating comment: %w", err)
	}
	return nil
}

func (r *PostgresCommentRepository) GetByID(ctx context.Context, id int64) (*comment.Comment, error) {
	query := `SELECT id, record_type, record_id, author_id, parent_id, body, deleted, resolved, positive, hidden, created_at
               FROM record_comments WHERE id = $1`
	c := &comment.Comment{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.RecordType, &c.RecordID, &c.AuthorID, &c.ParentID,
		&c.Body, &c.Deleted, &c.Resolved, &c.Positive, &c.Hidden, &c.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCommentNotFound
		}
		return nil, fmt.Errorf("error getting comment by ID: %w", err)
	}
	return c, nil
}

// ListByRecord loads the record's whole thread flat in one query; the tree
// is assembled in memory by the caller.
func (r *PostgresCommentRepository) ListByRecord(ctx context.Context, typ record.Type, recordID int64) ([]*comment.Comment, error) {
	query := `SELECT id, record_type, record_id, author_id, parent_id, body, deleted, resolved, positive, hidden, created_at
               FROM record_comments
               WHERE record_type = $1 AND record_id = $2 AND deleted = FALSE
               ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, typ, recordID)
	if err != nil {
		return nil, fmt.Errorf("error listing comments for %s record %d: %w", typ, recordID, err)
	}
	defer rows.Close()

	comments := make([]*comment.Comment, 0)
	for rows.Next() {
		c := &comment.Comment{}
		if err := rows.Scan(
			&c.ID, &c.RecordType, &c.RecordID, &c.AuthorID, &c.ParentID,
			&c.Body, &c.Deleted, &c.Resolved, &c.Positive, &c.Hidden, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning comment row: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating comment rows: %w", err)
	}
	return comments, nil
}

func (r *PostgresCommentRepository) SetResolved(ctx context.Context, id int64, resolved bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE record_comments SET resolved = $2 WHERE id = $1`, id, resolved)
	if err != nil {
		return fmt.Errorf("error updating comment resolved state: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCommentNotFound
	}
	return nil
}

func (r *PostgresCommentRepository) SoftDeleteMany(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE record_comments SET deleted = TRUE WHERE id = ANY($1::bigint[])`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("error soft-deleting comments: %w", err)
	}
	return nil
}
