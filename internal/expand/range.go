// Package expand turns raw per-setting input values into concrete value
// lists: range strings become sorted integer sets, select and checkbox_group
// inputs are checked against their declared options.
package expand

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ParseRangeString expands a comma-separated range expression ("3,5-9,12")
// into the sorted, duplicate-free set of integers it covers, each bounded
// within [min,max]. Whitespace around separators is ignored. An empty or
// blank expression denotes "no selection" and yields an empty list.
// Malformed or out-of-bounds input yields an error and no partial result.
func ParseRangeString(rangeStr string, min, max int) ([]int, error) {
	set := make(map[int]struct{})
	for _, part := range strings.Split(rangeStr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if start, end, ok := strings.Cut(part, "-"); ok {
			a, err := strconv.Atoi(strings.TrimSpace(start))
			if err != nil {
				return nil, fmt.Errorf("invalid number %q", strings.TrimSpace(start))
			}
			b, err := strconv.Atoi(strings.TrimSpace(end))
			if err != nil {
				return nil, fmt.Errorf("invalid number %q", strings.TrimSpace(end))
			}
			if a > b {
				return nil, fmt.Errorf("range start %d > end %d", a, b)
			}
			if a < min || b > max {
				return nil, fmt.Errorf("range %d-%d out of bounds [%d, %d]", a, b, min, max)
			}
			for n := a; n <= b; n++ {
				set[n] = struct{}{}
			}
		} else {
			n, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("invalid number %q", part)
			}
			if n < min || n > max {
				return nil, fmt.Errorf("value %d out of bounds [%d, %d]", n, min, max)
			}
			set[n] = struct{}{}
		}
	}

	result := make([]int, 0, len(set))
	for n := range set {
		result = append(result, n)
	}
	sort.Ints(result)
	return result, nil
}

// ValidateRangeString reports whether every token of the expression parses
// and lies within [min,max]. Validation is separate from expansion so callers
// can reject input before any side effect.
func ValidateRangeString(rangeStr string, min, max int) error {
	_, err := ParseRangeString(rangeStr, min, max)
	return err
}
