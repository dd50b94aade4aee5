package record

import "strings"

// AttributeValue is a tagged union of a scalar string and an ordered string
// list. Multi-select form fields submit lists; everything else is scalar.
type AttributeValue struct {
	scalar string
	list   []string
	isList bool
}

// Scalar wraps a single string value.
func Scalar(s string) AttributeValue {
	return AttributeValue{scalar: s}
}

// List wraps an ordered multi-value field.
func List(values ...string) AttributeValue {
	return AttributeValue{list: values, isList: true}
}

// IsList reports whether the value is a multi-value field.
func (v AttributeValue) IsList() bool { return v.isList }

// ScalarValue returns the scalar form. For a list it returns the values
// joined with ", " (display form).
func (v AttributeValue) ScalarValue() string {
	if v.isList {
		return strings.Join(v.list, ", ")
	}
	return v.scalar
}

// ListValue returns the list form. A scalar yields a single-element list, an
// empty scalar an empty one.
func (v AttributeValue) ListValue() []string {
	if v.isList {
		return v.list
	}
	if v.scalar == "" {
		return nil
	}
	return []string{v.scalar}
}

// Rows expands the value into the set of storage rows it occupies: one row
// per list element, or a single row for a scalar.
func (v AttributeValue) Rows() []string {
	if v.isList {
		return v.list
	}
	return []string{v.scalar}
}

// IsEmpty reports whether the value carries no content. Empty values
// normalize to NULL on persist.
func (v AttributeValue) IsEmpty() bool {
	if v.isList {
		return len(v.list) == 0
	}
	return v.scalar == ""
}

// Equal compares two values including list order.
func (v AttributeValue) Equal(other AttributeValue) bool {
	if v.isList != other.isList {
		return false
	}
	if !v.isList {
		return v.scalar == other.scalar
	}
	if len(v.list) != len(other.list) {
		return false
	}
	for i := range v.list {
		if v.list[i] != other.list[i] {
			return false
		}
	}
	return true
}

func (v AttributeValue) clone() AttributeValue {
	if !v.isList {
		return v
	}
	cp := make([]string, len(v.list))
	copy(cp, v.list)
	return AttributeValue{list: cp, isList: true}
}
