package database

import (
	"context"
	"database/sql"
	"fmt"

	"elbp_record_service/internal/domain/record"

	"github.com/lib/pq"
)

// Custom errors
var ErrRecordNotFound = fmt.Errorf("record not found")
var ErrUnknownRecordType = fmt.Errorf("unknown record type")

// recordTables maps each record type to its physical table pair.
var recordTables = map[record.Type]struct {
	records string
	attrs   string
}{
	record.TypeSession:   {"elbp_sessions", "elbp_session_attributes"},
	record.TypeTutorial:  {"elbp_tutorials", "elbp_tutorial_attributes"},
	record.TypeChallenge: {"elbp_challenges", "elbp_challenge_attributes"},
}

type PostgresRecordRepository struct {
	db *sql.DB
}

func NewPostgresRecordRepository(db *sql.DB) *PostgresRecordRepository {
	return &PostgresRecordRepository{db: db}
}

func tablesFor(typ record.Type) (string, string, error) {
	t, ok := recordTables[typ]
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrUnknownRecordType, typ)
	}
	return t.records, t.attrs, nil
}

// attrValue normalizes an empty value to NULL on persist.
func attrValue(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

func (r *PostgresRecordRepository) Create(ctx context.Context, rec *record.Record) error {
	recTable, attrTable, err := tablesFor(rec.Type)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`INSERT INTO %s (student_id, set_by_user_id, set_time, record_date, deadline, deleted)
               VALUES ($1, $2, $3, $4, $5, $6)
               RETURNING id, created_at, updated_at`, recTable)
	err = r.db.QueryRowContext(ctx, query,
		rec.StudentID, rec.SetByUserID, rec.SetTime, rec.RecordDate, rec.Deadline, rec.Deleted,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating %s record: %w", rec.Type, err)
	}

	// One row per (field, value) pair; list values expand to multiple rows.
	// Each insert is an independent statement: a failure aborts the rest of
	// the save and is surfaced as-is, with no rollback of prior rows.
	stmt, err := r.db.PrepareContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (record_id, field, value) VALUES ($1, $2, $3)`, attrTable))
	if err != nil {
		return fmt.Errorf("failed to prepare attribute insert for %s: %w", rec.Type, err)
	}
	defer stmt.Close()

	for _, attr := range rec.Attributes {
		for _, v := range attr.Value.Rows() {
			if _, err := stmt.ExecContext(ctx, rec.ID, attr.Field, attrValue(v)); err != nil {
				return fmt.Errorf("could not insert record attribute %q on %s %d: %w", attr.Field, rec.Type, rec.ID, err)
			}
		}
	}
	return nil
}

func (r *PostgresRecordRepository) Update(ctx context.Context, rec *record.Record, schemaFields []string) error {
	recTable, attrTable, err := tablesFor(rec.Type)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`UPDATE %s
               SET record_date = $1, deadline = $2, deleted = $3, updated_at = NOW()
               WHERE id = $4
               RETURNING updated_at`, recTable)
	err = r.db.QueryRowContext(ctx, query, rec.RecordDate, rec.Deadline, rec.Deleted, rec.ID).Scan(&rec.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrRecordNotFound
		}
		return fmt.Errorf("error updating %s record %d: %w", rec.Type, rec.ID, err)
	}

	stored, err := r.storedFields(ctx, attrTable, rec.ID)
	if err != nil {
		return err
	}
	plan := planAttributeUpdate(rec, schemaFields, stored)

	for _, attr := range plan.reinsertLists {
		if _, err := r.db.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE record_id = $1 AND field = $2`, attrTable),
			rec.ID, attr.Field); err != nil {
			return fmt.Errorf("could not update record attribute %q on %s %d: %w", attr.Field, rec.Type, rec.ID, err)
		}
		for _, v := range attr.Value.Rows() {
			if _, err := r.db.ExecContext(ctx,
				fmt.Sprintf(`INSERT INTO %s (record_id, field, value) VALUES ($1, $2, $3)`, attrTable),
				rec.ID, attr.Field, attrValue(v)); err != nil {
				return fmt.Errorf("could not insert record attribute %q on %s %d: %w", attr.Field, rec.Type, rec.ID, err)
			}
		}
	}

	for _, attr := range plan.updateScalars {
		if _, err := r.db.ExecContext(ctx,
			fmt.Sprintf(`UPDATE %s SET value = $1 WHERE record_id = $2 AND field = $3`, attrTable),
			attrValue(attr.Value.ScalarValue()), rec.ID, attr.Field); err != nil {
			return fmt.Errorf("could not update record attribute %q on %s %d: %w", attr.Field, rec.Type, rec.ID, err)
		}
	}
	for _, attr := range plan.insertScalars {
		if _, err := r.db.ExecContext(ctx,
			fmt.Sprintf(`INSERT INTO %s (record_id, field, value) VALUES ($1, $2, $3)`, attrTable),
			rec.ID, attr.Field, attrValue(attr.Value.ScalarValue())); err != nil {
			return fmt.Errorf("could not insert record attribute %q on %s %d: %w", attr.Field, rec.Type, rec.ID, err)
		}
	}

	if len(plan.deleteOmitted) > 0 {
		if _, err := r.db.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE record_id = $1 AND field = ANY($2::varchar[])`, attrTable),
			rec.ID, pq.Array(plan.deleteOmitted)); err != nil {
			return fmt.Errorf("could not delete omitted attributes on %s %d: %w", rec.Type, rec.ID, err)
		}
	}
	return nil
}

// attributePlan is one reconciliation pass over a record's attribute rows,
// classified by the statement kind each field needs.
type attributePlan struct {
	// List fields are fully deleted and reinserted so stale extra rows
	// never survive a shrink.
	reinsertLists []record.Attribute
	// Scalars update in place when a row exists, insert otherwise.
	updateScalars []record.Attribute
	insertScalars []record.Attribute
	// Schema fields omitted from the submitted set are deleted (unchecked
	// checkboxes). Stored ad-hoc fields outside the schema are left alone.
	deleteOmitted []string
}

func planAttributeUpdate(rec *record.Record, schemaFields []string, stored map[string]bool) attributePlan {
	var plan attributePlan
	submitted := make(map[string]bool, len(rec.Attributes))
	for _, attr := range rec.Attributes {
		submitted[attr.Field] = true
		switch {
		case attr.Value.IsList():
			plan.reinsertLists = append(plan.reinsertLists, attr)
		case stored[attr.Field]:
			plan.updateScalars = append(plan.updateScalars, attr)
		default:
			plan.insertScalars = append(plan.insertScalars, attr)
		}
	}
	for _, field := range schemaFields {
		if stored[field] && !submitted[field] {
			plan.deleteOmitted = append(plan.deleteOmitted, field)
		}
	}
	return plan
}

func (r *PostgresRecordRepository) storedFields(ctx context.Context, attrTable string, recordID int64) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT DISTINCT field FROM %s WHERE record_id = $1`, attrTable), recordID)
	if err != nil {
		return nil, fmt.Errorf("error loading stored attribute fields for record %d: %w", recordID, err)
	}
	defer rows.Close()

	fields := make(map[string]bool)
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, fmt.Errorf("error scanning stored attribute field: %w", err)
		}
		fields[f] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stored attribute fields: %w", err)
	}
	return fields, nil
}

func (r *PostgresRecordRepository) GetByID(ctx context.Context, typ record.Type, id int64) (*record.Record, error) {
	recTable, attrTable, err := tablesFor(typ)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT id, student_id, set_by_user_id, set_time, record_date, deadline, deleted, created_at, updated_at
               FROM %s WHERE id = $1`, recTable)
	rec := &record.Record{Type: typ}
	err = r.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID, &rec.StudentID, &rec.SetByUserID, &rec.SetTime, &rec.RecordDate,
		&rec.Deadline, &rec.Deleted, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("error getting %s record by ID: %w", typ, err)
	}

	if err := r.loadAttributes(ctx, attrTable, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// loadAttributes reads every attribute row for the record, grouping
// same-named rows into an ordered list. NULL values load as empty scalars.
func (r *PostgresRecordRepository) loadAttributes(ctx context.Context, attrTable string, rec *record.Record) error {
	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT field, value FROM %s WHERE record_id = $1 ORDER BY id`, attrTable), rec.ID)
	if err != nil {
		return fmt.Errorf("error loading attributes for record %d: %w", rec.ID, err)
	}
	defer rows.Close()

	type group struct {
		values []string
		count  int
	}
	var order []string
	groups := make(map[string]*group)
	for rows.Next() {
		var field string
		var value sql.NullString
		if err := rows.Scan(&field, &value); err != nil {
			return fmt.Errorf("error scanning attribute row: %w", err)
		}
		g, ok := groups[field]
		if !ok {
			g = &group{}
			groups[field] = g
			order = append(order, field)
		}
		g.values = append(g.values, value.String)
		g.count++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating attribute rows: %w", err)
	}

	for _, field := range order {
		g := groups[field]
		if g.count > 1 {
			rec.SetAttribute(field, record.List(g.values...))
		} else {
			rec.SetAttribute(field, record.Scalar(g.values[0]))
		}
	}
	return nil
}

func (r *PostgresRecordRepository) ListActiveByStudent(ctx context.Context, typ record.Type, studentID int64) ([]*record.Record, error) {
	recTable, attrTable, err := tablesFor(typ)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT id, student_id, set_by_user_id, set_time, record_date, deadline, deleted, created_at, updated_at
               FROM %s WHERE student_id = $1 AND deleted = FALSE ORDER BY record_date, id`, recTable)
	rows, err := r.db.QueryContext(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("error listing %s records for student %d: %w", typ, studentID, err)
	}
	defer rows.Close()

	records := make([]*record.Record, 0)
	for rows.Next() {
		rec := &record.Record{Type: typ}
		if err := rows.Scan(
			&rec.ID, &rec.StudentID, &rec.SetByUserID, &rec.SetTime, &rec.RecordDate,
			&rec.Deadline, &rec.Deleted, &rec.CreatedAt, &rec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning %s record: %w", typ, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s records: %w", typ, err)
	}

	for _, rec := range records {
		if err := r.loadAttributes(ctx, attrTable, rec); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func (r *PostgresRecordRepository) SoftDelete(ctx context.Context, typ record.Type, id int64) error {
	recTable, _, err := tablesFor(typ)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET deleted = TRUE, updated_at = NOW() WHERE id = $1`, recTable), id)
	if err != nil {
		return fmt.Errorf("error soft-deleting %s record %d: %w", typ, id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrRecordNotFound
	}
	return nil
}
