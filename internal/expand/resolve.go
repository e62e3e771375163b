package expand

import (
	"fmt"
	"strconv"

	buildererrors "git.home.luguber.info/inful/fwbuilder/internal/errors"
	"git.home.luguber.info/inful/fwbuilder/internal/schema"
)

// RawValue is the untyped per-setting input from the build request: either a
// scalar string (range expression, select choice) or a string list
// (checkbox_group selections).
type RawValue struct {
	Scalar string
	List   []string
	IsList bool
}

// UnmarshalYAML accepts either a scalar or a sequence of scalars.
func (v *RawValue) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err == nil {
		v.Scalar = s
		v.IsList = false
		return nil
	}
	var list []string
	if err := unmarshal(&list); err != nil {
		return fmt.Errorf("setting value must be a string or a list of strings: %w", err)
	}
	v.List = list
	v.IsList = true
	return nil
}

// MarshalYAML emits the value in the same shape it was read: a plain scalar
// or a sequence.
func (v RawValue) MarshalYAML() (any, error) {
	if v.IsList {
		return v.List, nil
	}
	return v.Scalar, nil
}

// Scalar returns a RawValue holding a single string.
func ScalarValue(s string) RawValue { return RawValue{Scalar: s} }

// ListValue returns a RawValue holding a string list.
func ListValue(items ...string) RawValue { return RawValue{List: items, IsList: true} }

// Resolved is the expansion of one setting's raw input into concrete values.
//
// Range and select settings resolve to Candidates: one build is performed per
// candidate, so more than one candidate makes the setting an axis of the
// Cartesian expansion. Checkbox groups resolve to FixedSet: the full selection
// is applied to every combination and never multiplies the matrix.
type Resolved struct {
	Setting    *schema.Setting
	Candidates []string
	FixedSet   []string
	Omitted    bool // optional setting with no selection; excluded from combinations
}

// ListValued reports whether the setting contributes an axis to the
// Cartesian expansion.
func (r Resolved) ListValued() bool { return len(r.Candidates) > 1 }

// ResolveAll validates and expands every schema setting against the raw
// request values, in schema declaration order. Validation failures identify
// the offending setting id and reject the whole request; no partial
// expansion is ever returned.
func ResolveAll(doc *schema.Document, settings map[string]RawValue) ([]Resolved, error) {
	resolved := make([]Resolved, 0, len(doc.BuildSettings))
	for i := range doc.BuildSettings {
		s := &doc.BuildSettings[i]
		r, err := resolveSetting(s, settings[s.ID])
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, r)
	}
	return resolved, nil
}

func resolveSetting(s *schema.Setting, raw RawValue) (Resolved, error) {
	switch s.FieldType {
	case schema.FieldRange:
		return resolveRange(s, raw)
	case schema.FieldSelect:
		return resolveSelect(s, raw)
	case schema.FieldCheckboxGroup:
		return resolveCheckboxGroup(s, raw)
	default:
		return Resolved{}, buildererrors.ValidationError(s.ID,
			fmt.Sprintf("setting %q has unsupported field_type %q", s.ID, s.FieldType))
	}
}

func resolveRange(s *schema.Setting, raw RawValue) (Resolved, error) {
	if raw.IsList {
		return Resolved{}, buildererrors.ValidationError(s.ID,
			fmt.Sprintf("expected string for range setting %q", s.ID))
	}
	if s.Validation == nil {
		return Resolved{}, buildererrors.ValidationError(s.ID,
			fmt.Sprintf("range setting %q missing validation bounds", s.ID))
	}
	numbers, err := ParseRangeString(raw.Scalar, s.Validation.Min, s.Validation.Max)
	if err != nil {
		return Resolved{}, buildererrors.ValidationError(s.ID,
			fmt.Sprintf("range setting %q: %v", s.ID, err))
	}
	if len(numbers) == 0 {
		if s.MinSelected > 0 {
			return Resolved{}, buildererrors.ValidationError(s.ID,
				fmt.Sprintf("no values provided for required range %q", s.ID))
		}
		return Resolved{Setting: s, Omitted: true}, nil
	}
	candidates := make([]string, len(numbers))
	for i, n := range numbers {
		candidates[i] = strconv.Itoa(n)
	}
	return Resolved{Setting: s, Candidates: candidates}, nil
}

func resolveSelect(s *schema.Setting, raw RawValue) (Resolved, error) {
	if raw.IsList {
		return Resolved{}, buildererrors.ValidationError(s.ID,
			fmt.Sprintf("expected string for select setting %q", s.ID))
	}
	if raw.Scalar == "" {
		return Resolved{}, buildererrors.ValidationError(s.ID,
			fmt.Sprintf("no value selected for %q", s.ID))
	}
	if _, ok := s.Option(raw.Scalar); !ok {
		return Resolved{}, buildererrors.ValidationError(s.ID,
			fmt.Sprintf("invalid value %q for %q: %s", raw.Scalar, s.ID, validOptions(s)))
	}
	return Resolved{Setting: s, Candidates: []string{raw.Scalar}}, nil
}

func resolveCheckboxGroup(s *schema.Setting, raw RawValue) (Resolved, error) {
	if !raw.IsList && raw.Scalar != "" {
		return Resolved{}, buildererrors.ValidationError(s.ID,
			fmt.Sprintf("expected list for checkbox_group setting %q", s.ID))
	}
	selected := make([]string, 0, len(raw.List))
	seen := make(map[string]struct{}, len(raw.List))
	for _, v := range raw.List {
		if v == "" {
			continue
		}
		if _, ok := s.Option(v); !ok {
			return Resolved{}, buildererrors.ValidationError(s.ID,
				fmt.Sprintf("invalid value %q for %q: %s", v, s.ID, validOptions(s)))
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		selected = append(selected, v)
	}
	if len(selected) < s.MinSelected {
		return Resolved{}, buildererrors.ValidationError(s.ID,
			fmt.Sprintf("too few selections for %q: %d (minimum required: %d)", s.ID, len(selected), s.MinSelected))
	}
	if len(selected) == 0 {
		return Resolved{Setting: s, Omitted: true}, nil
	}
	return Resolved{Setting: s, FixedSet: selected}, nil
}

func validOptions(s *schema.Setting) string {
	values := make([]string, len(s.Options))
	for i, opt := range s.Options {
		values[i] = opt.Value
	}
	return fmt.Sprintf("valid options: %v", values)
}
