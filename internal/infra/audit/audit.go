// Package audit implements the record audit-log port on structured logging.
package audit

import (
	"context"

	"elbp_record_service/internal/domain/record"

	"github.com/sirupsen/logrus"
)

// LogrusAuditLogger emits one structured log line per persisted attribute
// change.
type LogrusAuditLogger struct {
	logger *logrus.Logger
}

func NewLogrusAuditLogger(logger *logrus.Logger) *LogrusAuditLogger {
	return &LogrusAuditLogger{logger: logger}
}

func (a *LogrusAuditLogger) LogAttributeChange(_ context.Context, rec *record.Record, change record.FieldChange) {
	a.logger.WithFields(logrus.Fields{
		"record_type": rec.Type,
		"record_id":   rec.ID,
		"student_id":  rec.StudentID,
		"field":       change.Field,
		"old":         change.Old,
		"new":         change.New,
	}).Info("AUDIT: record attribute changed")
}
