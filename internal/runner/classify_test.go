package runner

import (
	"testing"

	buildererrors "git.home.luguber.info/inful/fwbuilder/internal/errors"
)

func TestClassify_ZeroExitCleanOutput(t *testing.T) {
	if got := Classify(0, []string{"[stdout] Build complete", "[stdout] 0 errors"}); got != ClassSuccess {
		t.Errorf("expected success, got %s", got)
	}
}

func TestClassify_NonZeroExit(t *testing.T) {
	if got := Classify(2, nil); got != ClassFailure {
		t.Errorf("expected failure, got %s", got)
	}
}

func TestClassify_FatalMarkerDespiteZeroExit(t *testing.T) {
	tail := []string{"[stdout] compiling main.c", "[stderr] Build Failed. 3 errors"}
	if got := Classify(0, tail); got != ClassFailure {
		t.Errorf("expected failure on fatal marker, got %s", got)
	}
}

func TestClassifyLaunchError_IsFatalLaunchCategory(t *testing.T) {
	err := classifyLaunchError("/missing/ide", errNotFound{})
	be, ok := err.(*buildererrors.BuildError)
	if !ok {
		t.Fatalf("expected BuildError, got %T", err)
	}
	if be.Category != buildererrors.CategoryLaunch {
		t.Errorf("expected launch category, got %s", be.Category)
	}
	if !be.Fatal() {
		t.Error("launch errors must be fatal")
	}
}

type errNotFound struct{}

func (errNotFound) Error() string { return "executable not found" }
