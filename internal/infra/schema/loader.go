// Package schema loads the per-record-type form definitions from YAML files
// at startup.
package schema

import (
	"fmt"
	"os"
	"path/filepath"

	"elbp_record_service/internal/domain/record"
	domainschema "elbp_record_service/internal/domain/schema"

	"gopkg.in/yaml.v3"
)

// LoadDir reads every *.yaml file in dir as one Form and validates it.
// Duplicate record types across files are a configuration error.
func LoadDir(dir string) (map[record.Type]domainschema.Form, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list schema dir %s: %w", dir, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no schema files found in %s", dir)
	}

	forms := make(map[record.Type]domainschema.Form)
	for _, path := range paths {
		form, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		if _, exists := forms[form.RecordType]; exists {
			return nil, fmt.Errorf("schema file %s: record type %s already defined", path, form.RecordType)
		}
		forms[form.RecordType] = form
	}
	return forms, nil
}

// LoadFile reads and validates a single form schema file.
func LoadFile(path string) (domainschema.Form, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domainschema.Form{}, fmt.Errorf("failed to read schema file %s: %w", path, err)
	}
	var form domainschema.Form
	if err := yaml.Unmarshal(data, &form); err != nil {
		return domainschema.Form{}, fmt.Errorf("failed to parse schema file %s: %w", path, err)
	}
	if err := form.Check(); err != nil {
		return domainschema.Form{}, fmt.Errorf("invalid schema file %s: %w", path, err)
	}
	return form, nil
}
