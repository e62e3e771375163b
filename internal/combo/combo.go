// Package combo computes the ordered sequence of concrete build combinations
// from the resolved per-setting values.
package combo

import (
	"fmt"
	"math"
	"strings"

	buildererrors "git.home.luguber.info/inful/fwbuilder/internal/errors"
	"git.home.luguber.info/inful/fwbuilder/internal/expand"
)

// DefaultCeiling bounds the number of generated combinations so a
// misconfigured range cannot explode the matrix.
const DefaultCeiling = 4096

// Assignment binds one setting to its concrete value within a combination.
// Range and select settings carry Value; checkbox groups carry Set.
type Assignment struct {
	SettingID string
	Fragment  string   // artifact-name fragment from the schema ("value" field)
	Value     string   // concrete scalar value
	Set       []string // fixed multi-value selection (checkbox_group)
}

// Combination is one concrete assignment of values to all participating
// settings, representing a single build invocation. Combinations are
// generated once and never mutated.
type Combination struct {
	Index       int
	Assignments []Assignment
}

// Get returns the assignment for the given setting id.
func (c Combination) Get(settingID string) (Assignment, bool) {
	for _, a := range c.Assignments {
		if a.SettingID == settingID {
			return a, true
		}
	}
	return Assignment{}, false
}

// String renders the combination for logs: "type=4 mode=GPIO lang=[en kz]".
func (c Combination) String() string {
	parts := make([]string, 0, len(c.Assignments))
	for _, a := range c.Assignments {
		if len(a.Set) > 0 {
			parts = append(parts, fmt.Sprintf("%s=[%s]", a.SettingID, strings.Join(a.Set, " ")))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%s", a.SettingID, a.Value))
	}
	return strings.Join(parts, " ")
}

// Count returns the number of combinations the resolved values would
// generate, without materializing them: the product of the cardinalities of
// all list-valued settings. Zero list-valued settings yield exactly 1. The
// product saturates at math.MaxInt instead of wrapping, so the ceiling check
// still fires for absurdly large matrices.
func Count(resolved []expand.Resolved) int {
	count := 1
	for _, r := range resolved {
		if r.ListValued() {
			n := len(r.Candidates)
			if count > math.MaxInt/n {
				return math.MaxInt
			}
			count *= n
		}
	}
	return count
}

// Generate computes the ordered Cartesian product over the list-valued
// settings, holding scalar settings and checkbox selections fixed. Axes
// follow schema declaration order with the first list-valued setting
// outermost, each iterated in ascending resolved order. A ceiling of 0 means
// DefaultCeiling; exceeding it fails the request before any build starts.
func Generate(resolved []expand.Resolved, ceiling int) ([]Combination, error) {
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	if count := Count(resolved); count > ceiling {
		return nil, buildererrors.New(buildererrors.CategoryExplosion, buildererrors.SeverityFatal,
			fmt.Sprintf("combination count %d exceeds ceiling %d", count, ceiling))
	}

	combinations := []Combination{{}}
	for _, r := range resolved {
		if r.Omitted {
			continue
		}
		if len(r.FixedSet) > 0 {
			for i := range combinations {
				combinations[i].Assignments = append(combinations[i].Assignments, Assignment{
					SettingID: r.Setting.ID,
					Fragment:  r.Setting.Value,
					Set:       r.FixedSet,
				})
			}
			continue
		}

		next := make([]Combination, 0, len(combinations)*len(r.Candidates))
		for _, c := range combinations {
			for _, v := range r.Candidates {
				assignments := make([]Assignment, len(c.Assignments), len(c.Assignments)+1)
				copy(assignments, c.Assignments)
				assignments = append(assignments, Assignment{
					SettingID: r.Setting.ID,
					Fragment:  r.Setting.Value,
					Value:     v,
				})
				next = append(next, Combination{Assignments: assignments})
			}
		}
		combinations = next
	}

	for i := range combinations {
		combinations[i].Index = i
	}
	return combinations, nil
}
