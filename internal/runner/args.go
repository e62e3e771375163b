// Package runner supervises the external IDE's headless build process: it
// assembles the Eclipse headless-build command line, spawns the tool in its
// own process group, streams its output line-by-line to the event bus and
// classifies the outcome.
package runner

import (
	"strings"
)

// HeadlessApplication is the Eclipse application id driving CDT managed builds
// without a UI.
const HeadlessApplication = "org.eclipse.cdt.managedbuilder.core.headlessbuild"

// DefaultHeaderInclude is the project-relative path of the generated
// configuration header forced into every translation unit.
const DefaultHeaderInclude = "Inc/build_config.h"

// Request describes one headless build invocation. The combination itself is
// communicated through the generated header, never via argv.
type Request struct {
	IDEPath       string // path to the IDE executable
	ProjectDir    string // working directory for the child process
	WorkspacePath string // Eclipse workspace passed via -data
	BuildTarget   string // "project" or "project/config"
	CleanBuild    bool   // -cleanBuild instead of -build
	CustomArgs    string // extra args, whitespace separated
	HeaderInclude string // defaults to DefaultHeaderInclude
}

// Args assembles the headless build argument list for the request.
func Args(req Request) []string {
	include := req.HeaderInclude
	if include == "" {
		include = DefaultHeaderInclude
	}
	buildFlag := "-build"
	if req.CleanBuild {
		buildFlag = "-cleanBuild"
	}

	args := []string{
		"-nosplash",
		"-application", HeadlessApplication,
		"-include", include,
		buildFlag, req.BuildTarget,
		"-data", req.WorkspacePath,
	}
	if req.CustomArgs != "" {
		args = append(args, strings.Fields(req.CustomArgs)...)
	}
	return args
}

// CommandLine renders the invocation for logging, quoting arguments that
// contain spaces.
func CommandLine(exe string, args []string) string {
	var b strings.Builder
	b.WriteString(quoteIfNeeded(exe))
	for _, a := range args {
		b.WriteString(" ")
		b.WriteString(quoteIfNeeded(a))
	}
	return b.String()
}

func quoteIfNeeded(s string) string {
	if strings.ContainsRune(s, ' ') {
		return `"` + s + `"`
	}
	return s
}
