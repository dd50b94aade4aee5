package mis

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MapFile is the on-disk shape of one integration's mapping configuration.
type MapFile struct {
	View   string                 `yaml:"view"`
	Fields map[string]FieldConfig `yaml:"fields"`
}

// LoadMapFile reads a YAML mapping file. Missing mappings are not an error
// at load time; completeness is checked when a query is built.
func LoadMapFile(path string) (*MapFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read MIS map file %s: %w", path, err)
	}
	var mf MapFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("failed to parse MIS map file %s: %w", path, err)
	}
	return &mf, nil
}
