package mis

import (
	"errors"
	"testing"
)

func testFields() map[string]FieldConfig {
	return map[string]FieldConfig{
		FieldUsername: {Map: "student_username"},
		FieldCourse:   {Map: "course_code"},
		FieldType:     {Map: "metric_name"},
		FieldPeriod:   {Map: "reporting_period"},
		FieldValue:    {Map: "metric_value", Alias: "value"},
	}
}

func TestBuildSelectClause(t *testing.T) {
	m := NewMapper(testFields())

	clause, err := m.BuildSelectClause([]string{FieldValue, FieldCourse})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `"metric_value" AS "value", "course_code" AS "course"`
	if clause != want {
		t.Errorf("clause = %s, want %s", clause, want)
	}
}

func TestBuildSelectClauseNamesMissingField(t *testing.T) {
	fields := testFields()
	delete(fields, FieldPeriod)
	m := NewMapper(fields)

	clause, err := m.BuildSelectClause([]string{FieldValue, FieldPeriod, FieldCourse})
	if clause != "" {
		t.Errorf("expected no clause on failure, got %q", clause)
	}
	var missing *MissingFieldError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingFieldError, got %v", err)
	}
	if missing.Field != FieldPeriod {
		t.Errorf("error names %q, want %q", missing.Field, FieldPeriod)
	}
}

func TestBuildSelectClauseAcceptsFunctions(t *testing.T) {
	m := NewMapper(map[string]FieldConfig{
		FieldValue: {Func: "AVG(mark)", Alias: "value"},
	})

	clause, err := m.BuildSelectClause([]string{FieldValue})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if clause != `AVG(mark) AS "value"` {
		t.Errorf("clause = %s", clause)
	}
}

func TestUserColumn(t *testing.T) {
	t.Run("prefers username", func(t *testing.T) {
		m := NewMapper(map[string]FieldConfig{
			FieldUsername: {Map: "uname"},
			FieldIDNumber: {Map: "ref"},
		})
		col, err := m.UserColumn()
		if err != nil || col != "uname" {
			t.Errorf("UserColumn() = %q, %v", col, err)
		}
	})
	t.Run("falls back to idnumber", func(t *testing.T) {
		m := NewMapper(map[string]FieldConfig{FieldIDNumber: {Map: "ref"}})
		col, err := m.UserColumn()
		if err != nil || col != "ref" {
			t.Errorf("UserColumn() = %q, %v", col, err)
		}
	})
	t.Run("errors without either", func(t *testing.T) {
		m := NewMapper(nil)
		if _, err := m.UserColumn(); err != ErrMissingUserField {
			t.Errorf("expected ErrMissingUserField, got %v", err)
		}
	})
}

func TestQuoteIdent(t *testing.T) {
	if got := quoteIdent(`weird"col`); got != `"weird""col"` {
		t.Errorf("quoteIdent = %s", got)
	}
}
