package project

import (
	"strings"

	"git.home.luguber.info/inful/fwbuilder/internal/combo"
)

// DefaultConfiguration is the build configuration assumed when the request
// does not name one.
const DefaultConfiguration = "Debug"

// ComboDirName derives the per-combination output directory name from the
// combination's fragment/value pairs.
func ComboDirName(c combo.Combination) string {
	var parts []string
	for _, a := range c.Assignments {
		if v := assignmentValue(a); v != "" {
			parts = append(parts, a.Fragment+"_"+v)
		}
	}
	return strings.Join(parts, "_")
}

// ArtifactBase derives the base file name for a combination's artifacts:
// a shortened project name, one fragment-value part per assignment and a
// shortened configuration name, joined by underscores. The .bin and .txt
// names for the combination are ArtifactBase plus the extension.
func ArtifactBase(projectName, configName string, c combo.Combination) string {
	if configName == "" {
		configName = DefaultConfiguration
	}

	parts := []string{truncate(projectName, 6)}
	for _, a := range c.Assignments {
		if v := assignmentValue(a); v != "" {
			parts = append(parts, a.Fragment+"-"+v)
		}
	}
	parts = append(parts, truncate(configName, 5))
	return strings.Join(parts, "_")
}

// assignmentValue flattens an assignment into a single name component. Set
// assignments join their selected values with dashes.
func assignmentValue(a combo.Assignment) string {
	if len(a.Set) > 0 {
		return strings.Join(a.Set, "-")
	}
	return a.Value
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
