// Package mis maps canonical field names onto an external MIS view's
// columns and runs read-only queries against it. Column names, aliases and
// function expressions are configuration, never hardcoded.
package mis

import (
	"fmt"
	"strings"
)

// Canonical field names every integration maps from.
const (
	FieldUsername = "username"
	FieldIDNumber = "idnumber"
	FieldCourse   = "course"
	FieldType     = "type"
	FieldPeriod   = "period"
	FieldValue    = "value"
)

// Configuration errors, each naming the missing key so an administrator can
// fix the mapping.
var (
	ErrMissingView      = fmt.Errorf("no external view name configured")
	ErrMissingUserField = fmt.Errorf("no mapping configured for %q or %q", FieldUsername, FieldIDNumber)
)

// MissingFieldError reports a canonical field with neither a column mapping
// nor a function expression.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("no mapping or function configured for field %q", e.Field)
}

// FieldConfig is the external-side definition of one canonical field: a
// column name, or alternatively a literal SQL function expression, plus an
// optional result alias.
type FieldConfig struct {
	Map   string `yaml:"map"`
	Alias string `yaml:"alias"`
	Func  string `yaml:"func"`
}

// Mapper resolves canonical field names to external SELECT expressions.
type Mapper struct {
	fields map[string]FieldConfig
}

func NewMapper(fields map[string]FieldConfig) *Mapper {
	if fields == nil {
		fields = make(map[string]FieldConfig)
	}
	return &Mapper{fields: fields}
}

// FieldMap returns the external column mapped to a canonical field, or ""
// when none is configured.
func (m *Mapper) FieldMap(name string) string { return m.fields[name].Map }

// FieldAlias returns the configured result alias for a canonical field.
func (m *Mapper) FieldAlias(name string) string { return m.fields[name].Alias }

// FieldFunc returns the function expression configured as an alternative to
// a column mapping.
func (m *Mapper) FieldFunc(name string) string { return m.fields[name].Func }

// ResultKey is the column name a field comes back under in a result row:
// the alias when configured, else the canonical name.
func (m *Mapper) ResultKey(name string) string {
	if alias := m.fields[name].Alias; alias != "" {
		return alias
	}
	return name
}

// selectExpr resolves one canonical field to a SELECT list expression,
// aliased so result rows key by ResultKey.
func (m *Mapper) selectExpr(name string) (string, error) {
	cfg := m.fields[name]
	var expr string
	switch {
	case cfg.Map != "":
		expr = quoteIdent(cfg.Map)
	case cfg.Func != "":
		expr = cfg.Func
	default:
		return "", &MissingFieldError{Field: name}
	}
	return expr + " AS " + quoteIdent(m.ResultKey(name)), nil
}

// BuildSelectClause resolves every required field to a mapped column or
// function. It fails fast on the first unresolvable field, naming it, and
// the caller must not run any query on failure.
func (m *Mapper) BuildSelectClause(required []string) (string, error) {
	exprs := make([]string, 0, len(required))
	for _, name := range required {
		expr, err := m.selectExpr(name)
		if err != nil {
			return "", err
		}
		exprs = append(exprs, expr)
	}
	return strings.Join(exprs, ", "), nil
}

// UserColumn returns the external column used to filter by student:
// username when mapped, idnumber as the fallback.
func (m *Mapper) UserColumn() (string, error) {
	if col := m.FieldMap(FieldUsername); col != "" {
		return col, nil
	}
	if col := m.FieldMap(FieldIDNumber); col != "" {
		return col, nil
	}
	return "", ErrMissingUserField
}

// Has reports whether a canonical field resolves to a column or function.
func (m *Mapper) Has(name string) bool {
	cfg := m.fields[name]
	return cfg.Map != "" || cfg.Func != ""
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
