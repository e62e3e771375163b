// Package project inspects Eclipse CDT project metadata: the project name
// from .project, build configurations from .cproject and linker scripts in
// the project directory.
package project

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	buildererrors "git.home.luguber.info/inful/fwbuilder/internal/errors"
)

type projectDescription struct {
	XMLName xml.Name `xml:"projectDescription"`
	Name    string   `xml:"name"`
}

// Name extracts the project name from the .project file in dir.
func Name(dir string) (string, error) {
	path := filepath.Join(dir, ".project")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", buildererrors.Wrap(err, buildererrors.CategoryProject, buildererrors.SeverityFatal,
			fmt.Sprintf("read %s", path))
	}

	var desc projectDescription
	if err := xml.Unmarshal(data, &desc); err != nil {
		return "", buildererrors.Wrap(err, buildererrors.CategoryProject, buildererrors.SeverityFatal,
			fmt.Sprintf("parse %s", path))
	}
	name := strings.TrimSpace(desc.Name)
	if name == "" {
		return "", buildererrors.New(buildererrors.CategoryProject, buildererrors.SeverityFatal,
			fmt.Sprintf("no project name found in %s", path))
	}
	return name, nil
}

// Configurations enumerates the build configuration names declared in the
// .cproject file in dir. Configuration elements appear at several nesting
// depths; every one carrying a name attribute is collected.
func Configurations(dir string) ([]string, error) {
	path := filepath.Join(dir, ".cproject")
	f, err := os.Open(path)
	if err != nil {
		return nil, buildererrors.Wrap(err, buildererrors.CategoryProject, buildererrors.SeverityFatal,
			fmt.Sprintf("read %s", path))
	}
	defer f.Close()

	var configs []string
	seen := make(map[string]struct{})
	dec := xml.NewDecoder(f)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, buildererrors.Wrap(err, buildererrors.CategoryProject, buildererrors.SeverityFatal,
				fmt.Sprintf("parse %s", path))
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "configuration" {
			continue
		}
		for _, attr := range start.Attr {
			if attr.Name.Local == "name" && attr.Value != "" {
				if _, dup := seen[attr.Value]; !dup {
					seen[attr.Value] = struct{}{}
					configs = append(configs, attr.Value)
				}
			}
		}
	}
	return configs, nil
}

// HasConfiguration reports whether the named build configuration is declared
// in the project's .cproject file.
func HasConfiguration(dir, name string) (bool, error) {
	configs, err := Configurations(dir)
	if err != nil {
		return false, err
	}
	for _, c := range configs {
		if c == name {
			return true, nil
		}
	}
	return false, nil
}

// LinkerScripts lists the .ld files directly inside dir.
func LinkerScripts(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, buildererrors.Wrap(err, buildererrors.CategoryProject, buildererrors.SeverityFatal,
			fmt.Sprintf("read project directory %s", dir))
	}
	var scripts []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".ld") {
			scripts = append(scripts, e.Name())
		}
	}
	return scripts, nil
}
