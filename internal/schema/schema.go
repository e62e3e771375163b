// Package schema loads and validates the build settings document that
// declares the configurable axes of a firmware build matrix.
package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FieldType enumerates the closed set of setting kinds.
type FieldType string

const (
	FieldRange         FieldType = "range"
	FieldSelect        FieldType = "select"
	FieldCheckboxGroup FieldType = "checkbox_group"
)

// Format tags the value shape a setting accepts. It must agree with the
// setting's FieldType; Document.Validate enforces the pairing.
type Format string

const (
	FormatNumber     Format = "number"
	FormatString     Format = "string"
	FormatStringList Format = "string[]"
)

// expectedFormat maps each field type to its only legal format tag.
var expectedFormat = map[FieldType]Format{
	FieldRange:         FormatNumber,
	FieldSelect:        FormatString,
	FieldCheckboxGroup: FormatStringList,
}

// Option is one selectable choice of a select or checkbox_group setting.
type Option struct {
	Label       string `yaml:"label"`
	Value       string `yaml:"value"`
	Define      string `yaml:"define,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// RangeValidation bounds the integers a range setting accepts.
type RangeValidation struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// Setting declares one configurable axis of the build matrix.
type Setting struct {
	ID          string           `yaml:"id"`
	Label       string           `yaml:"label"`
	Value       string           `yaml:"value,omitempty"` // fragment used in artifact names
	Description string           `yaml:"description,omitempty"`
	FieldType   FieldType        `yaml:"field_type"`
	Format      Format           `yaml:"format"`
	Define      string           `yaml:"define,omitempty"` // range settings only
	Options     []Option         `yaml:"options,omitempty"`
	Validation  *RangeValidation `yaml:"validation,omitempty"`
	Exclusive   bool             `yaml:"exclusive,omitempty"`
	MinSelected int              `yaml:"min_selected,omitempty"`
}

// Option returns the option with the given value, if declared.
func (s *Setting) Option(value string) (Option, bool) {
	for _, opt := range s.Options {
		if opt.Value == value {
			return opt, true
		}
	}
	return Option{}, false
}

// Document is the versioned build settings schema.
type Document struct {
	Version       string    `yaml:"version"`
	BuildSettings []Setting `yaml:"build_settings"`
}

// Setting returns the setting with the given id, if declared.
func (d *Document) Setting(id string) (*Setting, bool) {
	for i := range d.BuildSettings {
		if d.BuildSettings[i].ID == id {
			return &d.BuildSettings[i], true
		}
	}
	return nil, false
}

// Load reads and validates a schema document from the specified file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}
	return Parse(data)
}

// Parse unmarshals and validates a schema document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Init writes the default commented schema scaffold unless the file exists.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("schema file already exists: %s (use --force to overwrite)", path)
	}
	return os.WriteFile(path, []byte(DefaultDocument), 0o644)
}
