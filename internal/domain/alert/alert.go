package alert

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Scope selects which students a subscription covers.
type Scope string

const (
	ScopeStudent Scope = "STUDENT" // a single student
	ScopeCourse  Scope = "COURSE"  // every student enrolled on a course
	ScopeMentees Scope = "MENTEES" // a tutor's mentees
	ScopeCohort  Scope = "COHORT"  // the additional-support cohort
)

// Event is an alertable event type belonging to a plugin.
type Event struct {
	ID       int64
	Name     string
	PluginID int64
}

// Subscription is one user-level opt-in row tying an event and scope to the
// metric attributes the threshold check runs against. MetricType, Period and
// Threshold must all be configured before the rule can fire; a rule missing
// any of them is skipped.
type Subscription struct {
	ID       int64
	UserID   int64
	EventID  int64
	Scope    Scope
	TargetID sql.NullInt64 // student, course or tutor depending on scope

	MetricType string
	Period     string
	CourseID   sql.NullInt64
	Threshold  sql.NullFloat64

	CreatedAt time.Time
}

// Configured reports whether the rule carries every attribute the threshold
// check needs.
func (s *Subscription) Configured() bool {
	return s.MetricType != "" && s.Period != "" && s.Threshold.Valid
}

// AttributeHash is the content address of the rule's attribute bag, used to
// suppress duplicate alerts for the same configuration within the dedup
// window.
func (s *Subscription) AttributeHash() string {
	attrs := map[string]string{
		"type":   s.MetricType,
		"period": s.Period,
	}
	if s.CourseID.Valid {
		attrs["course"] = fmt.Sprintf("%d", s.CourseID.Int64)
	}
	if s.Threshold.Valid {
		attrs["value"] = fmt.Sprintf("%g", s.Threshold.Float64)
	}
	return HashAttributes(attrs)
}

// HashAttributes hashes an attribute bag into a stable hex digest
// independent of map iteration order.
func HashAttributes(attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(attrs[k])
		b.WriteByte('\n')
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// HistoryEntry records a queued alert so an identical one (same user,
// student, event and attribute set) is not queued again within the rolling
// dedup window.
type HistoryEntry struct {
	ID        int64
	UserID    int64
	StudentID int64
	EventID   int64
	AttrHash  string
	CreatedAt time.Time
}
