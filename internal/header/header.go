// Package header rewrites the managed region of the generated configuration
// header (build_config.h) for one build combination, leaving all surrounding
// file content untouched.
package header

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/fwbuilder/internal/combo"
	buildererrors "git.home.luguber.info/inful/fwbuilder/internal/errors"
	"git.home.luguber.info/inful/fwbuilder/internal/schema"
)

// Guard markers delimiting the managed region. The engine only ever rewrites
// the interior of this region; it never invents the markers.
const (
	StartMarker = "/* FWBUILDER MANAGED BLOCK - DO NOT EDIT */"
	EndMarker   = "/* FWBUILDER MANAGED BLOCK END */"
)

// Render produces the define block for one combination, one line per define,
// in schema declaration order. Range settings emit their numeric value;
// select/checkbox options emit the option's symbol as a flag define when
// selected and an #undef otherwise.
func Render(doc *schema.Document, c combo.Combination) string {
	var b strings.Builder
	for i := range doc.BuildSettings {
		s := &doc.BuildSettings[i]
		a, ok := c.Get(s.ID)

		switch s.FieldType {
		case schema.FieldRange:
			if ok && a.Value != "" {
				fmt.Fprintf(&b, "#define %s %s\n", s.Define, a.Value)
			}
		case schema.FieldSelect, schema.FieldCheckboxGroup:
			for _, opt := range s.Options {
				if opt.Define == "" {
					continue
				}
				if ok && selected(a, opt.Value) {
					fmt.Fprintf(&b, "#define %s\n", opt.Define)
				} else {
					fmt.Fprintf(&b, "#undef %s\n", opt.Define)
				}
			}
		}
	}
	return b.String()
}

func selected(a combo.Assignment, optionValue string) bool {
	if a.Value == optionValue {
		return true
	}
	for _, v := range a.Set {
		if v == optionValue {
			return true
		}
	}
	return false
}

// Emit rewrites the managed region of the header file at path with the
// defines for the given combination. The new content is written to a
// temporary file in the same directory and renamed into place, so a crash
// mid-write never leaves a half-written header. Missing guard markers are a
// fatal configuration error; the file is left untouched.
func Emit(path string, doc *schema.Document, c combo.Combination) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return buildererrors.Wrap(err, buildererrors.CategoryHeader, buildererrors.SeverityFatal,
			fmt.Sprintf("read header file %s", path))
	}

	content := string(data)
	startIdx := strings.Index(content, StartMarker)
	if startIdx < 0 {
		return buildererrors.HeaderError(
			fmt.Sprintf("header file %s is missing the managed block start marker", path))
	}
	interiorStart := startIdx + len(StartMarker)
	endOffset := strings.Index(content[interiorStart:], EndMarker)
	if endOffset < 0 {
		return buildererrors.HeaderError(
			fmt.Sprintf("header file %s is missing the managed block end marker", path))
	}
	interiorEnd := interiorStart + endOffset

	var b strings.Builder
	b.WriteString(content[:interiorStart])
	b.WriteString("\n")
	b.WriteString(Render(doc, c))
	b.WriteString(content[interiorEnd:])

	return writeAtomic(path, []byte(b.String()))
}

// writeAtomic writes data to a temporary file in the target's directory and
// renames it into place, preserving the original file mode.
func writeAtomic(path string, data []byte) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return buildererrors.Wrap(err, buildererrors.CategoryHeader, buildererrors.SeverityFatal,
			"create temporary header file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return buildererrors.Wrap(err, buildererrors.CategoryHeader, buildererrors.SeverityFatal,
			"write temporary header file")
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return buildererrors.Wrap(err, buildererrors.CategoryHeader, buildererrors.SeverityFatal,
			"chmod temporary header file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return buildererrors.Wrap(err, buildererrors.CategoryHeader, buildererrors.SeverityFatal,
			"close temporary header file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return buildererrors.Wrap(err, buildererrors.CategoryHeader, buildererrors.SeverityFatal,
			"rename header file into place")
	}
	return nil
}
