package schema

import (
	"fmt"

	"elbp_record_service/internal/domain/record"
)

// FieldType is the input kind of a configurable form field.
type FieldType string

const (
	FieldText        FieldType = "text"
	FieldNumber      FieldType = "number"
	FieldSelect      FieldType = "select"
	FieldMultiSelect FieldType = "multiselect"
)

// Field is one configurable form field on a record type. Rules is a
// validator tag string (e.g. "required", "required,numeric") evaluated
// against the submitted value.
type Field struct {
	Name    string    `yaml:"name"`
	Type    FieldType `yaml:"type"`
	Rules   string    `yaml:"rules"`
	Options []string  `yaml:"options"`
}

// Form is the full field schema for one record type.
type Form struct {
	RecordType record.Type `yaml:"record_type"`
	Fields     []Field     `yaml:"fields"`
}

// Field returns the named field definition.
func (f Form) Field(name string) (Field, bool) {
	for _, fld := range f.Fields {
		if fld.Name == name {
			return fld, true
		}
	}
	return Field{}, false
}

// FieldNames returns every schema field name in definition order.
func (f Form) FieldNames() []string {
	names := make([]string, len(f.Fields))
	for i, fld := range f.Fields {
		names[i] = fld.Name
	}
	return names
}

// Check validates the form definition itself.
func (f Form) Check() error {
	switch f.RecordType {
	case record.TypeSession, record.TypeTutorial, record.TypeChallenge:
	default:
		return fmt.Errorf("unknown record type: %q", f.RecordType)
	}
	seen := make(map[string]bool)
	for _, fld := range f.Fields {
		if fld.Name == "" {
			return fmt.Errorf("form %s: field with empty name", f.RecordType)
		}
		if seen[fld.Name] {
			return fmt.Errorf("form %s: duplicate field %q", f.RecordType, fld.Name)
		}
		seen[fld.Name] = true
		switch fld.Type {
		case FieldText, FieldNumber:
		case FieldSelect, FieldMultiSelect:
			if len(fld.Options) == 0 {
				return fmt.Errorf("form %s: field %q requires options", f.RecordType, fld.Name)
			}
		default:
			return fmt.Errorf("form %s: field %q has unknown type %q", f.RecordType, fld.Name, fld.Type)
		}
	}
	return nil
}
