package runner

import (
	"reflect"
	"testing"
)

func TestArgs_DefaultInvocation(t *testing.T) {
	got := Args(Request{
		IDEPath:       "/opt/st/stm32cubeide/stm32cubeide",
		WorkspacePath: "/tmp/ws",
		BuildTarget:   "sensor-firmware/Debug",
	})
	want := []string{
		"-nosplash",
		"-application", "org.eclipse.cdt.managedbuilder.core.headlessbuild",
		"-include", "Inc/build_config.h",
		"-build", "sensor-firmware/Debug",
		"-data", "/tmp/ws",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestArgs_CleanBuildFlag(t *testing.T) {
	got := Args(Request{WorkspacePath: "/tmp/ws", BuildTarget: "fw", CleanBuild: true})
	found := false
	for _, a := range got {
		if a == "-cleanBuild" {
			found = true
		}
		if a == "-build" {
			t.Error("-build must not appear alongside -cleanBuild")
		}
	}
	if !found {
		t.Error("expected -cleanBuild flag")
	}
}

func TestArgs_CustomArgsSplitOnWhitespace(t *testing.T) {
	got := Args(Request{
		WorkspacePath: "/tmp/ws",
		BuildTarget:   "fw",
		CustomArgs:    "  -vmargs   -Xmx2g ",
	})
	tail := got[len(got)-2:]
	if !reflect.DeepEqual(tail, []string{"-vmargs", "-Xmx2g"}) {
		t.Errorf("expected custom args appended, got %v", tail)
	}
}

func TestArgs_HeaderIncludeOverride(t *testing.T) {
	got := Args(Request{WorkspacePath: "/tmp/ws", BuildTarget: "fw", HeaderInclude: "Core/Inc/cfg.h"})
	for i, a := range got {
		if a == "-include" {
			if got[i+1] != "Core/Inc/cfg.h" {
				t.Errorf("expected override include, got %q", got[i+1])
			}
			return
		}
	}
	t.Fatal("-include not found")
}

func TestCommandLine_QuotesSpacedArgs(t *testing.T) {
	got := CommandLine("/opt/stm32 cube/ide", []string{"-data", "/tmp/my ws"})
	want := `"/opt/stm32 cube/ide" -data "/tmp/my ws"`
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
