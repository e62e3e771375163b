// Package workspace validates the Eclipse workspace directory before a build
// session starts. A workspace held open by an interactive IDE instance keeps
// .metadata/.lock locked; attempting a headless build against it would fail
// deep inside the launcher, so we detect it up front and fail fast.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	buildererrors "git.home.luguber.info/inful/fwbuilder/internal/errors"
)

// LockFile is the workspace lock path relative to the workspace root.
const LockFile = ".metadata/.lock"

// Validate checks that the workspace directory exists and is not locked by a
// running IDE instance. A missing workspace directory is fine: the headless
// launcher creates it. A held lock is a fatal launch error.
func Validate(dir string) error {
	if dir == "" {
		return buildererrors.New(buildererrors.CategoryValidation, buildererrors.SeverityFatal,
			"workspace path must not be empty")
	}

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return buildererrors.Wrap(err, buildererrors.CategoryLaunch, buildererrors.SeverityFatal,
			fmt.Sprintf("stat workspace %s", dir))
	}
	if !info.IsDir() {
		return buildererrors.New(buildererrors.CategoryValidation, buildererrors.SeverityFatal,
			fmt.Sprintf("workspace path %s is not a directory", dir))
	}

	lockPath := filepath.Join(dir, filepath.FromSlash(LockFile))
	if _, err := os.Stat(lockPath); os.IsNotExist(err) {
		return nil
	}

	locked, err := lockHeld(lockPath)
	if err != nil {
		return buildererrors.Wrap(err, buildererrors.CategoryLaunch, buildererrors.SeverityFatal,
			fmt.Sprintf("probe workspace lock %s", lockPath))
	}
	if locked {
		return buildererrors.New(buildererrors.CategoryLaunch, buildererrors.SeverityFatal,
			fmt.Sprintf("workspace %s is locked by a running IDE instance", dir))
	}
	return nil
}
