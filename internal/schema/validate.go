package schema

import (
	"fmt"

	buildererrors "git.home.luguber.info/inful/fwbuilder/internal/errors"
)

// Validate checks structural consistency of the document: unique ids,
// field_type/format agreement, and per-type shape requirements. Any violation
// is a schema error that rejects the whole document before a build starts.
func (d *Document) Validate() error {
	if d.Version == "" {
		return buildererrors.SchemaError("schema document missing version")
	}
	if len(d.BuildSettings) == 0 {
		return buildererrors.SchemaError("schema document declares no build settings")
	}

	seen := make(map[string]struct{}, len(d.BuildSettings))
	for i := range d.BuildSettings {
		s := &d.BuildSettings[i]
		if s.ID == "" {
			return buildererrors.SchemaError(fmt.Sprintf("setting at index %d has empty id", i))
		}
		if _, dup := seen[s.ID]; dup {
			return buildererrors.SchemaError(fmt.Sprintf("duplicate setting id %q", s.ID))
		}
		seen[s.ID] = struct{}{}

		if err := s.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Setting) validate() error {
	want, known := expectedFormat[s.FieldType]
	if !known {
		return buildererrors.SchemaError(fmt.Sprintf("setting %q: unknown field_type %q", s.ID, s.FieldType))
	}
	if s.Format != want {
		return buildererrors.SchemaError(fmt.Sprintf(
			"setting %q: format %q does not agree with field_type %q (want %q)",
			s.ID, s.Format, s.FieldType, want))
	}

	switch s.FieldType {
	case FieldRange:
		if s.Validation == nil {
			return buildererrors.SchemaError(fmt.Sprintf("range setting %q missing validation bounds", s.ID))
		}
		if s.Validation.Min > s.Validation.Max {
			return buildererrors.SchemaError(fmt.Sprintf(
				"range setting %q: min %d > max %d", s.ID, s.Validation.Min, s.Validation.Max))
		}
		if s.Define == "" {
			return buildererrors.SchemaError(fmt.Sprintf("range setting %q missing define symbol", s.ID))
		}
		if len(s.Options) > 0 {
			return buildererrors.SchemaError(fmt.Sprintf("range setting %q must not declare options", s.ID))
		}

	case FieldSelect, FieldCheckboxGroup:
		if len(s.Options) == 0 {
			return buildererrors.SchemaError(fmt.Sprintf("%s setting %q declares no options", s.FieldType, s.ID))
		}
		optSeen := make(map[string]struct{}, len(s.Options))
		for _, opt := range s.Options {
			if opt.Value == "" {
				return buildererrors.SchemaError(fmt.Sprintf("setting %q has an option with empty value", s.ID))
			}
			if _, dup := optSeen[opt.Value]; dup {
				return buildererrors.SchemaError(fmt.Sprintf("setting %q has duplicate option value %q", s.ID, opt.Value))
			}
			optSeen[opt.Value] = struct{}{}
		}
		if s.FieldType == FieldSelect && s.MinSelected != 0 {
			return buildererrors.SchemaError(fmt.Sprintf("select setting %q must not set min_selected", s.ID))
		}
		if s.MinSelected < 0 || s.MinSelected > len(s.Options) {
			return buildererrors.SchemaError(fmt.Sprintf(
				"setting %q: min_selected %d out of range [0, %d]", s.ID, s.MinSelected, len(s.Options)))
		}
	}
	return nil
}
