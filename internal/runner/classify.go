package runner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	buildererrors "git.home.luguber.info/inful/fwbuilder/internal/errors"
)

// fatalMarkers are output fragments that indicate a failed build even when the
// headless application exits zero. The Eclipse launcher is known to swallow
// builder exit codes in some configurations.
var fatalMarkers = []string{
	"Build Failed",
	"Internal error",
	"Error: Workspace",
	"No such file or directory",
	"undefined reference",
}

// Classification is the exit classification of one build attempt.
type Classification string

const (
	ClassSuccess   Classification = "success"
	ClassFailure   Classification = "failure"
	ClassCancelled Classification = "cancelled"
	ClassTimedOut  Classification = "timed-out"
	ClassSkipped   Classification = "skipped"
)

// Classify maps an exit code and captured output to a classification. Exit
// code zero with no fatal markers in the output is a success; everything else
// is a failure.
func Classify(exitCode int, tail []string) Classification {
	if exitCode != 0 {
		return ClassFailure
	}
	for _, line := range tail {
		for _, marker := range fatalMarkers {
			if strings.Contains(line, marker) {
				return ClassFailure
			}
		}
	}
	return ClassSuccess
}

// classifyLaunchError turns a spawn failure into a fatal launch error with a
// message naming the likely cause. Launch failures abort the whole session,
// unlike per-combination build failures.
func classifyLaunchError(exe string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, os.ErrNotExist):
		return buildererrors.LaunchError(err, fmt.Sprintf("IDE executable %q not found", exe))
	case errors.Is(err, fs.ErrPermission):
		return buildererrors.LaunchError(err, fmt.Sprintf("permission denied executing %q", exe))
	default:
		return buildererrors.LaunchError(err, fmt.Sprintf("failed to start %q", exe))
	}
}
