package columns

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"armbudget/pkg/models"
)

// =============================================================================
// COLUMN OVERRIDES - YAML configuration
// =============================================================================

// Config holds analyst-maintained column overrides for workbook years
// whose published layout deviates from the era default.
type Config struct {
	Overrides []Override `yaml:"overrides"`
}

// Override relocates financial fields for one (report type, year) or
// (family, year). Field keys use canonical field names; values are
// 0-based column indexes.
type Override struct {
	ReportType string         `yaml:"report_type,omitempty"`
	Family     string         `yaml:"family,omitempty"`
	Year       int            `yaml:"year"`
	Fields     map[string]int `yaml:"fields"`
}

func (ov Override) apply(layout *Layout) {
	for name, col := range ov.Fields {
		f := models.Field(name)
		if _, known := layout.FieldCols[f]; known {
			layout.FieldCols[f] = col
		}
	}
}

// LoadConfig reads a YAML override file. A missing path yields an empty
// config rather than an error so deployments without overrides need no
// file at all.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("read column config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse column config %s: %w", path, err)
	}
	return &cfg, nil
}
