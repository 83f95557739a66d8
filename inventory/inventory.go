// Package inventory loads a YAML file of named NOOB hosts, mirroring
// original_source/lib/netconify/cmdo.py's _ld_inv/_set_namevars
// (SafeConfigParser with an "all" section), but in YAML rather than INI --
// this repo's one deliberate idiom substitution, since no example repo in
// the retrieval pack parses INI and gopkg.in/yaml.v3 is already wired by
// the teacher's own ambient stack for structured config.
package inventory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/console-bootstrap/netconify"
)

// File is the parsed inventory document: an optional "all" section of
// shared defaults, plus one section per named host.
type File struct {
	All   map[string]string
	Hosts map[string]map[string]string
}

// Load reads and parses path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &netconify.MissingFileError{Path: path}
		}
		return nil, fmt.Errorf("inventory: reading %s: %w", path, err)
	}

	var raw map[string]map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("inventory: parsing %s: %w", path, err)
	}

	f := &File{Hosts: map[string]map[string]string{}}
	for name, vars := range raw {
		if name == "all" {
			f.All = vars
			continue
		}
		f.Hosts[name] = vars
	}
	return f, nil
}

// NameVars builds the variable dict for name: the "all" section first,
// then the named host's own section layered on top, then "hostname"
// defaulted to name if not already set (mirrors cmdo.py::_set_namevars).
// Looking up a name absent from the file is a MissingFile-class error
// (spec.md §7 MissingFile, generalized to "named host not found") --
// fail-fast, before any Transport is opened.
func (f *File) NameVars(name string) (map[string]string, error) {
	hostVars, ok := f.Hosts[name]
	if !ok {
		return nil, &netconify.MissingFileError{Path: name}
	}

	vars := map[string]string{}
	for k, v := range f.All {
		vars[k] = v
	}
	for k, v := range hostVars {
		vars[k] = v
	}
	if _, ok := vars["hostname"]; !ok {
		vars["hostname"] = name
	}
	return vars, nil
}
