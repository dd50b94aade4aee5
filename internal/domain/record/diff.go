package record

// FieldChange is one attribute difference between two snapshots of a record.
type FieldChange struct {
	Field string
	Old   string
	New   string
}

// Diff compares an old snapshot against the saved state and returns the
// attribute-level changes in the new record's field order. Fields present
// only in old are reported with an empty New; fields present only in new
// with an empty Old.
func Diff(old, new *Record) []FieldChange {
	var changes []FieldChange
	seen := make(map[string]bool)

	for _, attr := range new.Attributes {
		seen[attr.Field] = true
		newVal := attr.Value.ScalarValue()
		if old == nil {
			if !attr.Value.IsEmpty() {
				changes = append(changes, FieldChange{Field: attr.Field, New: newVal})
			}
			continue
		}
		oldVal, ok := old.Attribute(attr.Field)
		if !ok {
			if !attr.Value.IsEmpty() {
				changes = append(changes, FieldChange{Field: attr.Field, New: newVal})
			}
			continue
		}
		if !oldVal.Equal(attr.Value) {
			changes = append(changes, FieldChange{Field: attr.Field, Old: oldVal.ScalarValue(), New: newVal})
		}
	}

	if old != nil {
		for _, attr := range old.Attributes {
			if !seen[attr.Field] && !attr.Value.IsEmpty() {
				changes = append(changes, FieldChange{Field: attr.Field, Old: attr.Value.ScalarValue()})
			}
		}
	}
	return changes
}
