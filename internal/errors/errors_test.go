package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	e := New(CategoryBuild, SeverityError, "build failed")
	if got := e.Error(); !strings.Contains(got, "build (error)") {
		t.Errorf("unexpected format: %q", got)
	}

	wrapped := Wrap(stderrors.New("exit status 2"), CategoryBuild, SeverityError, "build failed")
	if got := wrapped.Error(); !strings.Contains(got, "exit status 2") {
		t.Errorf("cause missing from format: %q", got)
	}
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("root cause")
	wrapped := Wrap(cause, CategoryLaunch, SeverityFatal, "launch failed")
	if !stderrors.Is(wrapped, cause) {
		t.Error("errors.Is must reach the cause")
	}
}

func TestFatal(t *testing.T) {
	if !LaunchError(nil, "ide missing").Fatal() {
		t.Error("launch errors must be fatal")
	}
	if New(CategoryBuild, SeverityError, "x").Fatal() {
		t.Error("per-combination build errors must not be fatal")
	}
}

func TestCategoryHelpers(t *testing.T) {
	err := HeaderError("markers missing")
	if !IsCategory(err, CategoryHeader) {
		t.Error("IsCategory failed for header error")
	}
	if IsCategory(stderrors.New("plain"), CategoryHeader) {
		t.Error("plain errors must not match a category")
	}
	if got := GetCategory(stderrors.New("plain")); got != CategoryInternal {
		t.Errorf("expected internal fallback, got %s", got)
	}
}

func TestValidationErrorCarriesSetting(t *testing.T) {
	err := ValidationError("device_type", "value out of bounds")
	if err.Context["setting"] != "device_type" {
		t.Errorf("setting context missing: %+v", err.Context)
	}
}

func TestRetryable(t *testing.T) {
	err := New(CategoryInternal, SeverityWarning, "transient io error").WithRetryable()
	if !IsRetryable(err) {
		t.Error("expected retryable")
	}
	if IsRetryable(stderrors.New("plain")) {
		t.Error("plain errors are not retryable")
	}
}
