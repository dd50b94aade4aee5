package comment

import (
	"context"

	"elbp_record_service/internal/domain/record"
)

// Repository defines persistence for comment rows. Tree assembly happens in
// memory from a single flat load.
type Repository interface {
	Create(ctx context.Context, c *Comment) error
	GetByID(ctx context.Context, id int64) (*Comment, error)
	// ListByRecord returns every non-deleted comment for a record, flat,
	// oldest first.
	ListByRecord(ctx context.Context, typ record.Type, recordID int64) ([]*Comment, error)
	// SoftDeleteMany flips the deleted flag on every listed comment in one
	// statement.
	SoftDeleteMany(ctx context.Context, ids []int64) error
	SetResolved(ctx context.Context, id int64, resolved bool) error
}
