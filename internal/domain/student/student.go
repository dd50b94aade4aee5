package student

import (
	"database/sql"
	"time"
)

// Student is the subject every record, metric and alert hangs off.
type Student struct {
	ID        int64
	Username  string
	IDNumber  sql.NullString // external MIS identifier, when distinct from username
	FirstName string
	LastName  sql.NullString
	IsSupport bool // member of the additional-support cohort
	Deleted   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisplayName returns "First Last" or just the first name when no last name
// is recorded.
func (s *Student) DisplayName() string {
	if s.LastName.Valid {
		return s.FirstName + " " + s.LastName.String
	}
	return s.FirstName
}

// Course is a minimal course reference used for enrolment scoping and CSV
// course resolution.
type Course struct {
	ID        int64
	ShortName string
	FullName  string
}
