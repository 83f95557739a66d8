// Package template renders a per-model configuration skeleton with a
// namevars dict, mirroring original_source/lib/netconify/cmdo.py's
// _conf_build (which used jinja2). text/template stands in for jinja2 here:
// no example repo in the retrieval pack renders templates with a
// third-party engine, and mellium-xmpp itself reaches for text/template for
// its own config rendering, so this is one of the few legitimate
// stdlib-only components (see DESIGN.md).
package template

import (
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/console-bootstrap/netconify"
)

// Render parses skeleton as a text/template and executes it against vars.
func Render(skeleton string, vars map[string]string) (string, error) {
	tmpl, err := template.New("skel").Parse(skeleton)
	if err != nil {
		return "", fmt.Errorf("template: parsing skeleton: %w", err)
	}

	var out strings.Builder
	if err := tmpl.Execute(&out, vars); err != nil {
		return "", fmt.Errorf("template: executing skeleton: %w", err)
	}
	return out.String(), nil
}

// RenderFile reads path as a skeleton and renders it against vars. A
// missing skeleton file is a MissingFile-class error (spec.md §7),
// fail-fast before any Transport is opened.
func RenderFile(path string, vars map[string]string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &netconify.MissingFileError{Path: path}
		}
		return "", fmt.Errorf("template: reading %s: %w", path, err)
	}
	return Render(string(data), vars)
}

// SkeletonPath builds the conventional "<prefix>/skel/<model>.conf" path
// used to look up a skeleton by device model (cmdo.py: os.path.join(prefix,
// 'skel', model+'.conf')).
func SkeletonPath(prefix, model string) string {
	return fmt.Sprintf("%s/skel/%s.conf", prefix, model)
}
