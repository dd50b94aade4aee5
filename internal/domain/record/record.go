package record

import (
	"database/sql"
	"time"
)

// Type identifies which plugin a record belongs to. Each type has its own
// physical table plus a matching attributes table.
type Type string

const (
	TypeSession   Type = "SESSION"   // additional-support sessions
	TypeTutorial  Type = "TUTORIAL"  // tutorial logs
	TypeChallenge Type = "CHALLENGE" // personal challenges / targets
)

// UnsavedID is the sentinel ID of a record that has not been persisted yet.
const UnsavedID int64 = -1

// pluginIDs ties each record type to its owning plugin, the unit alert
// events are registered against.
var pluginIDs = map[Type]int64{
	TypeSession:   1,
	TypeTutorial:  2,
	TypeChallenge: 3,
}

// PluginID returns the owning plugin of a record type.
func (t Type) PluginID() int64 { return pluginIDs[t] }

// Record is a versioned domain record owned by a student. Its attribute set
// is the union of the fields defined by the record type's form schema and any
// ad-hoc fields written by cross-plugin hooks.
type Record struct {
	ID          int64
	Type        Type
	StudentID   int64 // subject of the record
	SetByUserID int64 // author
	SetTime     time.Time
	RecordDate  time.Time
	Deadline    sql.NullTime
	Deleted     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Attributes is an ordered field -> value mapping. Order is preserved
	// so multi-value fields round-trip as submitted.
	Attributes []Attribute
}

// Attribute is one named value on a record.
type Attribute struct {
	Field string
	Value AttributeValue
}

// New returns an unsaved record of the given type.
func New(typ Type, studentID, setByUserID int64) *Record {
	now := time.Now()
	return &Record{
		ID:          UnsavedID,
		Type:        typ,
		StudentID:   studentID,
		SetByUserID: setByUserID,
		SetTime:     now,
		RecordDate:  now,
	}
}

// IsSaved reports whether the record has been persisted.
func (r *Record) IsSaved() bool { return r.ID > 0 }

// SetAttribute sets a field value in memory. An existing field is replaced in
// place so attribute order stays stable; a new field is appended.
func (r *Record) SetAttribute(field string, value AttributeValue) {
	for i := range r.Attributes {
		if r.Attributes[i].Field == field {
			r.Attributes[i].Value = value
			return
		}
	}
	r.Attributes = append(r.Attributes, Attribute{Field: field, Value: value})
}

// Attribute returns the value of a named field.
func (r *Record) Attribute(field string) (AttributeValue, bool) {
	for i := range r.Attributes {
		if r.Attributes[i].Field == field {
			return r.Attributes[i].Value, true
		}
	}
	return AttributeValue{}, false
}

// RemoveAttribute drops a field from the in-memory set. It reports whether
// the field was present.
func (r *Record) RemoveAttribute(field string) bool {
	for i := range r.Attributes {
		if r.Attributes[i].Field == field {
			r.Attributes = append(r.Attributes[:i], r.Attributes[i+1:]...)
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the record, used to snapshot the pre-mutation
// state for diffing.
func (r *Record) Clone() *Record {
	cp := *r
	cp.Attributes = make([]Attribute, len(r.Attributes))
	for i, attr := range r.Attributes {
		cp.Attributes[i] = Attribute{Field: attr.Field, Value: attr.Value.clone()}
	}
	return &cp
}
