package project

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"git.home.luguber.info/inful/fwbuilder/internal/combo"
)

const projectXML = `<?xml version="1.0" encoding="UTF-8"?>
<projectDescription>
	<name>sensor-firmware</name>
	<comment></comment>
	<buildSpec>
		<buildCommand>
			<name>org.eclipse.cdt.managedbuilder.core.genmakebuilder</name>
		</buildCommand>
	</buildSpec>
</projectDescription>
`

const cprojectXML = `<?xml version="1.0" encoding="UTF-8"?>
<cproject>
	<storageModule moduleId="org.eclipse.cdt.core.settings">
		<cconfiguration id="com.st.stm32cube.ide.debug.1">
			<storageModule moduleId="cdtBuildSystem">
				<configuration name="Debug" id="com.st.stm32cube.ide.debug.1"/>
			</storageModule>
		</cconfiguration>
		<cconfiguration id="com.st.stm32cube.ide.release.1">
			<storageModule moduleId="cdtBuildSystem">
				<configuration name="Release" id="com.st.stm32cube.ide.release.1"/>
			</storageModule>
		</cconfiguration>
	</storageModule>
</cproject>
`

func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".project"), []byte(projectXML), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".cproject"), []byte(cprojectXML), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestName_FromProjectFile(t *testing.T) {
	dir := writeProject(t)
	name, err := Name(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "sensor-firmware" {
		t.Errorf("expected sensor-firmware, got %q", name)
	}
}

func TestName_MissingProjectFile(t *testing.T) {
	if _, err := Name(t.TempDir()); err == nil {
		t.Fatal("expected error for missing .project")
	}
}

func TestConfigurations_Enumerated(t *testing.T) {
	dir := writeProject(t)
	configs, err := Configurations(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(configs, []string{"Debug", "Release"}) {
		t.Errorf("expected [Debug Release], got %v", configs)
	}
}

func TestHasConfiguration(t *testing.T) {
	dir := writeProject(t)
	for name, want := range map[string]bool{"Debug": true, "Release": true, "Profiling": false} {
		got, err := HasConfiguration(dir, name)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != want {
			t.Errorf("HasConfiguration(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestLinkerScripts(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"STM32F407VGTX_FLASH.ld", "STM32F407VGTX_RAM.ld", "main.c"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	scripts, err := LinkerScripts(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scripts) != 2 {
		t.Errorf("expected 2 linker scripts, got %v", scripts)
	}
}

func TestArtifactBase_TruncatesNameParts(t *testing.T) {
	c := combo.Combination{Assignments: []combo.Assignment{
		{SettingID: "device_type", Fragment: "type", Value: "8"},
		{SettingID: "languages", Fragment: "lang", Set: []string{"en", "kz"}},
	}}
	got := ArtifactBase("sensor-firmware", "Release", c)
	want := "sensor_type-8_lang-en-kz_Relea"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestArtifactBase_ShortNamesKeptWhole(t *testing.T) {
	c := combo.Combination{Assignments: []combo.Assignment{
		{SettingID: "device_type", Fragment: "type", Value: "4"},
	}}
	got := ArtifactBase("fw", "", c)
	want := "fw_type-4_Debug"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestComboDirName(t *testing.T) {
	c := combo.Combination{Assignments: []combo.Assignment{
		{SettingID: "device_type", Fragment: "type", Value: "8"},
		{SettingID: "device_mode", Fragment: "mode", Value: "GPIO"},
	}}
	if got, want := ComboDirName(c), "type_8_mode_GPIO"; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
