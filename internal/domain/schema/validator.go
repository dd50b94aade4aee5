package schema

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"elbp_record_service/internal/domain/record"
)

// custom validation texts keyed by tag
var ruleTexts = map[string]string{
	"required": "this field is required",
	"numeric":  "only digits are allowed",
	"min":      "value is too short",
	"max":      "value is too long",
}

// Validator evaluates submitted record attributes against a Form. Violations
// are accumulated, never short-circuited, so the caller can report every
// problem at once.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

// ValidateRecord runs every schema field's rules against the record's
// submitted attribute set.
func (v *Validator) ValidateRecord(form Form, rec *record.Record) []record.FieldError {
	var errs []record.FieldError
	for _, fld := range form.Fields {
		errs = append(errs, v.validateField(fld, rec)...)
	}
	return errs
}

func (v *Validator) validateField(fld Field, rec *record.Record) []record.FieldError {
	val, present := rec.Attribute(fld.Name)

	rules := fld.Rules
	// Number fields always get the digit-string sanity check.
	if fld.Type == FieldNumber && !strings.Contains(rules, "numeric") {
		if rules == "" {
			rules = "omitempty,numeric"
		} else {
			rules += ",numeric"
		}
	}

	var errs []record.FieldError
	if !present || val.IsEmpty() {
		if hasRule(rules, "required") {
			errs = append(errs, record.FieldError{Field: fld.Name, Error: ruleTexts["required"]})
		}
		return errs
	}

	for _, item := range val.ListValue() {
		if rules != "" {
			if err := v.validate.Var(item, rules); err != nil {
				errs = append(errs, record.FieldError{Field: fld.Name, Error: ruleText(err)})
				break
			}
		}
		if fld.Type == FieldSelect || fld.Type == FieldMultiSelect {
			if !containsOption(fld.Options, item) {
				errs = append(errs, record.FieldError{Field: fld.Name, Error: "value is not one of the configured options"})
				break
			}
		}
	}
	return errs
}

func hasRule(rules, tag string) bool {
	for _, r := range strings.Split(rules, ",") {
		if name, _, _ := strings.Cut(strings.TrimSpace(r), "="); name == tag {
			return true
		}
	}
	return false
}

func ruleText(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return "invalid value"
	}
	if text, ok := ruleTexts[verrs[0].Tag()]; ok {
		return text
	}
	return "invalid value (" + verrs[0].Tag() + ")"
}

func containsOption(options []string, val string) bool {
	for _, opt := range options {
		if opt == val {
			return true
		}
	}
	return false
}
