package record

import "context"

// Repository defines persistence for records and their attribute rows.
type Repository interface {
	// Create inserts the record row and one attribute row per (field, value)
	// pair, expanding list values to multiple rows. Assigns the new ID.
	Create(ctx context.Context, rec *Record) error

	// Update reconciles the stored attribute rows against the submitted set:
	// list fields are deleted and reinserted, scalar fields are updated in
	// place when a row exists, and schema fields absent from the submitted
	// set are deleted (unchecked checkboxes). schemaFields names every field
	// the record type's form defines.
	Update(ctx context.Context, rec *Record, schemaFields []string) error

	// GetByID loads a record with its full attribute map. Soft-deleted
	// records remain loadable.
	GetByID(ctx context.Context, typ Type, id int64) (*Record, error)

	// ListActiveByStudent returns non-deleted records for a student, oldest
	// first.
	ListActiveByStudent(ctx context.Context, typ Type, studentID int64) ([]*Record, error)

	// SoftDelete flips the deleted flag; the row is never physically removed.
	SoftDelete(ctx context.Context, typ Type, id int64) error
}

// AuditLogger receives an event for every attribute mutation persisted on a
// record. Injected so the storage layer never hardcodes audit delivery.
type AuditLogger interface {
	LogAttributeChange(ctx context.Context, rec *Record, change FieldChange)
}
