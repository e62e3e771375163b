package header

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"git.home.luguber.info/inful/fwbuilder/internal/combo"
	buildererrors "git.home.luguber.info/inful/fwbuilder/internal/errors"
	"git.home.luguber.info/inful/fwbuilder/internal/schema"
)

func testDoc(t *testing.T) *schema.Document {
	t.Helper()
	doc, err := schema.Parse([]byte(`
version: "1.0"
build_settings:
  - id: device_type
    label: Device Type
    value: type
    field_type: range
    format: number
    define: DEVICE_TYPE
    validation: {min: 4, max: 32}
  - id: device_mode
    label: Device Mode
    value: mode
    field_type: select
    format: string
    options:
      - {label: GPIO, value: GPIO, define: MODE_GPIO}
      - {label: ADC, value: ADC_EXT, define: MODE_ADC_EXT}
  - id: languages
    label: Languages
    value: lang
    field_type: checkbox_group
    format: string[]
    options:
      - {label: English, value: en, define: LANG_EN}
      - {label: Kazakh, value: kz, define: LANG_KZ}
`))
	if err != nil {
		t.Fatalf("parse test schema: %v", err)
	}
	return doc
}

func testCombination() combo.Combination {
	return combo.Combination{Index: 0, Assignments: []combo.Assignment{
		{SettingID: "device_type", Fragment: "type", Value: "8"},
		{SettingID: "device_mode", Fragment: "mode", Value: "GPIO"},
		{SettingID: "languages", Fragment: "lang", Set: []string{"en"}},
	}}
}

const headerTemplate = `#ifndef BUILD_CONFIG_H
#define BUILD_CONFIG_H

/* hand-written prelude */
#define BOARD_REV 2

/* FWBUILDER MANAGED BLOCK - DO NOT EDIT */
#define STALE 1
/* FWBUILDER MANAGED BLOCK END */

/* hand-written epilogue */
#endif
`

func writeHeader(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "build_config.h")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write header: %v", err)
	}
	return path
}

func TestRender_DefinesAndUndefs(t *testing.T) {
	got := Render(testDoc(t), testCombination())

	for _, want := range []string{
		"#define DEVICE_TYPE 8\n",
		"#define MODE_GPIO\n",
		"#undef MODE_ADC_EXT\n",
		"#define LANG_EN\n",
		"#undef LANG_KZ\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("rendered block missing %q:\n%s", want, got)
		}
	}
}

func TestRender_SchemaDeclarationOrder(t *testing.T) {
	got := Render(testDoc(t), testCombination())
	typeIdx := strings.Index(got, "DEVICE_TYPE")
	modeIdx := strings.Index(got, "MODE_GPIO")
	langIdx := strings.Index(got, "LANG_EN")
	if !(typeIdx < modeIdx && modeIdx < langIdx) {
		t.Errorf("defines out of schema order:\n%s", got)
	}
}

func TestEmit_RewritesOnlyManagedRegion(t *testing.T) {
	path := writeHeader(t, headerTemplate)

	if err := Emit(path, testDoc(t), testCombination()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	content := string(data)

	if !strings.Contains(content, "/* hand-written prelude */") ||
		!strings.Contains(content, "#define BOARD_REV 2") ||
		!strings.Contains(content, "/* hand-written epilogue */") {
		t.Errorf("content outside the managed region was altered:\n%s", content)
	}
	if strings.Contains(content, "#define STALE 1") {
		t.Error("stale managed content survived the rewrite")
	}
	if !strings.Contains(content, "#define DEVICE_TYPE 8") {
		t.Error("new defines missing from managed region")
	}
	if !strings.Contains(content, StartMarker) || !strings.Contains(content, EndMarker) {
		t.Error("guard markers must be preserved")
	}
}

func TestEmit_Idempotent(t *testing.T) {
	path := writeHeader(t, headerTemplate)
	doc := testDoc(t)
	c := testCombination()

	if err := Emit(path, doc, c); err != nil {
		t.Fatalf("first emit: %v", err)
	}
	first, _ := os.ReadFile(path)
	if err := Emit(path, doc, c); err != nil {
		t.Fatalf("second emit: %v", err)
	}
	second, _ := os.ReadFile(path)

	if string(first) != string(second) {
		t.Errorf("emit is not idempotent:\n--- first\n%s\n--- second\n%s", first, second)
	}
}

func TestEmit_MissingMarkersLeavesFileUntouched(t *testing.T) {
	original := "#define NOTHING_HERE 1\n"
	path := writeHeader(t, original)

	err := Emit(path, testDoc(t), testCombination())
	if err == nil {
		t.Fatal("expected header format error")
	}
	if !buildererrors.IsCategory(err, buildererrors.CategoryHeader) {
		t.Errorf("expected header category, got %v", buildererrors.GetCategory(err))
	}

	data, _ := os.ReadFile(path)
	if string(data) != original {
		t.Error("file must be left byte-identical when markers are missing")
	}
}

func TestEmit_MissingEndMarkerLeavesFileUntouched(t *testing.T) {
	original := StartMarker + "\n#define X 1\n"
	path := writeHeader(t, original)

	if err := Emit(path, testDoc(t), testCombination()); err == nil {
		t.Fatal("expected header format error")
	}
	data, _ := os.ReadFile(path)
	if string(data) != original {
		t.Error("file must be left byte-identical when the end marker is missing")
	}
}

func TestEmit_PreservesFileMode(t *testing.T) {
	path := writeHeader(t, headerTemplate)
	if err := os.Chmod(path, 0o600); err != nil {
		t.Fatalf("chmod: %v", err)
	}

	if err := Emit(path, testDoc(t), testCombination()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("expected mode 0600, got %v", info.Mode().Perm())
	}
}
