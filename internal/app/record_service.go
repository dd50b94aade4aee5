// internal/app/record_service.go
package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"elbp_record_service/internal/domain/alert"
	"elbp_record_service/internal/domain/notify"
	"elbp_record_service/internal/domain/record"
	"elbp_record_service/internal/domain/schema"
	idb "elbp_record_service/internal/infra/database"

	"github.com/sirupsen/logrus"
)

// InterestedPartiesField is intercepted during save: it drives alert
// subscription state instead of being stored as a record attribute.
const InterestedPartiesField = "Interested Parties"

// linkedRecordFields names the list attributes whose values are IDs of
// dependent child records, cascaded on delete.
var linkedRecordFields = map[string]record.Type{
	"Targets": record.TypeChallenge,
}

// SaveOptions control a single save attempt.
type SaveOptions struct {
	// AutoSave skips validation entirely: periodic draft saves always
	// attempt to persist.
	AutoSave bool
}

// RecordService owns the record lifecycle: validation against the record
// type's form schema, the interested-parties hook, attribute persistence and
// the post-save audit/notification side effects.
type RecordService struct {
	recordRepo record.Repository
	alertRepo  alert.Repository
	forms      map[record.Type]schema.Form
	validator  *schema.Validator
	notifier   notify.Notifier
	audit      record.AuditLogger
	logger     *logrus.Logger
}

func NewRecordService(
	recordRepo record.Repository,
	alertRepo alert.Repository,
	forms map[record.Type]schema.Form,
	validator *schema.Validator,
	notifier notify.Notifier,
	auditLogger record.AuditLogger,
	logger *logrus.Logger,
) *RecordService {
	return &RecordService{
		recordRepo: recordRepo,
		alertRepo:  alertRepo,
		forms:      forms,
		validator:  validator,
		notifier:   notifier,
		audit:      auditLogger,
		logger:     logger,
	}
}

// Save persists a record, new or existing. Validation violations are
// accumulated and returned as a *record.ValidationError before storage is
// touched; auto-save bypasses validation.
func (s *RecordService) Save(ctx context.Context, rec *record.Record, opts SaveOptions) error {
	form, hasForm := s.forms[rec.Type]

	if !opts.AutoSave && hasForm {
		if fieldErrs := s.validator.ValidateRecord(form, rec); len(fieldErrs) > 0 {
			s.logger.Debugf("Validation failed for %s record %d: %d violation(s)", rec.Type, rec.ID, len(fieldErrs))
			return record.NewValidationError(fieldErrs...)
		}
	}

	// Snapshot the stored state before mutation for the audit diff.
	var old *record.Record
	if rec.IsSaved() {
		var err error
		old, err = s.recordRepo.GetByID(ctx, rec.Type, rec.ID)
		if err != nil {
			return fmt.Errorf("failed to load %s record %d before update: %w", rec.Type, rec.ID, err)
		}
	}

	// The interested-parties hook has a different persistence target
	// (subscription state) and must never reach the attribute store.
	if parties, ok := rec.Attribute(InterestedPartiesField); ok {
		rec.RemoveAttribute(InterestedPartiesField)
		if err := s.syncInterestedParties(ctx, rec, parties); err != nil {
			// Subscription sync is best effort; the record save proceeds.
			s.logger.Errorf("Failed to sync interested parties for %s record %d: %v", rec.Type, rec.ID, err)
		}
	}

	schemaFields := form.FieldNames()
	if !hasForm {
		// Without a schema the submitted set is the source of truth; never
		// treat stored fields as removed.
		for _, attr := range rec.Attributes {
			schemaFields = append(schemaFields, attr.Field)
		}
	}

	if rec.IsSaved() {
		if err := s.recordRepo.Update(ctx, rec, schemaFields); err != nil {
			return fmt.Errorf("could not update record: %w", err)
		}
	} else {
		if err := s.recordRepo.Create(ctx, rec); err != nil {
			return fmt.Errorf("could not insert record: %w", err)
		}
	}

	changes := record.Diff(old, rec)
	for _, change := range changes {
		s.audit.LogAttributeChange(ctx, rec, change)
	}
	if old != nil && len(changes) > 0 {
		if err := s.notifier.Trigger(ctx, s.diffEvent(rec, changes)); err != nil {
			s.logger.Errorf("Failed to queue change notification for %s record %d: %v", rec.Type, rec.ID, err)
		}
	}
	return nil
}

// Get loads a record by ID; soft-deleted records remain loadable.
func (s *RecordService) Get(ctx context.Context, typ record.Type, id int64) (*record.Record, error) {
	return s.recordRepo.GetByID(ctx, typ, id)
}

// ListActive returns a student's non-deleted records of a type.
func (s *RecordService) ListActive(ctx context.Context, typ record.Type, studentID int64) ([]*record.Record, error) {
	return s.recordRepo.ListActiveByStudent(ctx, typ, studentID)
}

// Delete soft-deletes a record. With cascade, dependent child records named
// by linked list attributes (e.g. Targets) are soft-deleted too.
func (s *RecordService) Delete(ctx context.Context, typ record.Type, id int64, cascade bool) error {
	rec, err := s.recordRepo.GetByID(ctx, typ, id)
	if err != nil {
		if err == idb.ErrRecordNotFound {
			s.logger.Warnf("Delete of missing %s record %d ignored", typ, id)
			return nil
		}
		return fmt.Errorf("failed to load %s record %d for delete: %w", typ, id, err)
	}

	if err := s.recordRepo.SoftDelete(ctx, typ, id); err != nil {
		return fmt.Errorf("could not delete record: %w", err)
	}

	if !cascade {
		return nil
	}
	for field, childType := range linkedRecordFields {
		val, ok := rec.Attribute(field)
		if !ok {
			continue
		}
		for _, raw := range val.ListValue() {
			childID, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
			if err != nil {
				s.logger.Warnf("Skipping non-numeric linked %s ID %q on %s record %d", field, raw, typ, id)
				continue
			}
			if err := s.recordRepo.SoftDelete(ctx, childType, childID); err != nil {
				s.logger.Errorf("Failed to cascade delete %s %d linked to %s record %d: %v", childType, childID, typ, id, err)
			}
		}
	}
	return nil
}

// syncInterestedParties opts every listed party into every alert event of
// the record's plugin for this student, and opts previously-subscribed
// parties that are no longer listed back out.
func (s *RecordService) syncInterestedParties(ctx context.Context, rec *record.Record, parties record.AttributeValue) error {
	pluginID := rec.Type.PluginID()

	wanted := make(map[int64]bool)
	for _, raw := range splitPartyList(parties) {
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.logger.Warnf("Ignoring non-numeric interested party %q on %s record %d", raw, rec.Type, rec.ID)
			continue
		}
		wanted[userID] = true
	}

	current, err := s.alertRepo.ListStudentSubscribers(ctx, pluginID, rec.StudentID)
	if err != nil {
		return fmt.Errorf("failed to list current subscribers: %w", err)
	}
	currentSet := make(map[int64]bool, len(current))
	for _, userID := range current {
		currentSet[userID] = true
	}

	for userID := range wanted {
		if currentSet[userID] {
			continue
		}
		if err := s.alertRepo.OptIn(ctx, userID, pluginID, rec.StudentID); err != nil {
			return fmt.Errorf("failed to opt in user %d: %w", userID, err)
		}
	}
	for _, userID := range current {
		if wanted[userID] {
			continue
		}
		if err := s.alertRepo.OptOut(ctx, userID, pluginID, rec.StudentID); err != nil {
			return fmt.Errorf("failed to opt out user %d: %w", userID, err)
		}
	}
	return nil
}

func splitPartyList(val record.AttributeValue) []string {
	var parts []string
	for _, item := range val.ListValue() {
		for _, p := range strings.Split(item, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
	}
	return parts
}

// diffEvent renders the before/after change set as a notification.
func (s *RecordService) diffEvent(rec *record.Record, changes []record.FieldChange) notify.Event {
	var plain, html strings.Builder
	fmt.Fprintf(&plain, "%s record %d was updated.\n\n", rec.Type, rec.ID)
	fmt.Fprintf(&html, "<p>%s record %d was updated.</p><ul>", rec.Type, rec.ID)
	for _, ch := range changes {
		fmt.Fprintf(&plain, "%s: %q -> %q\n", ch.Field, ch.Old, ch.New)
		fmt.Fprintf(&html, "<li><strong>%s</strong>: %q &rarr; %q</li>", ch.Field, ch.Old, ch.New)
	}
	html.WriteString("</ul>")

	return notify.Event{
		Name:      "record_updated",
		PluginID:  rec.Type.PluginID(),
		StudentID: rec.StudentID,
		Subject:   fmt.Sprintf("%s record updated for student %d", rec.Type, rec.StudentID),
		PlainBody: plain.String(),
		HTMLBody:  html.String(),
	}
}
