package template

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/console-bootstrap/netconify"
)

func TestRender_SubstitutesVars(t *testing.T) {
	out, err := Render("system { host-name {{.hostname}}; domain-name {{.domain}}; }", map[string]string{
		"hostname": "switch1",
		"domain":   "example.net",
	})
	require.NoError(t, err)
	assert.Equal(t, "system { host-name switch1; domain-name example.net; }", out)
}

func TestRender_BadSyntax(t *testing.T) {
	_, err := Render("system { host-name {{.hostname; }", nil)
	assert.Error(t, err)
}

func TestRenderFile_MissingFile(t *testing.T) {
	_, err := RenderFile(filepath.Join(t.TempDir(), "nope.conf"), nil)
	require.Error(t, err)
	var missing *netconify.MissingFileError
	assert.ErrorAs(t, err, &missing)
}

func TestRenderFile_ReadsAndRenders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skel.conf")
	require.NoError(t, os.WriteFile(path, []byte("host-name {{.hostname}};"), 0o644))

	out, err := RenderFile(path, map[string]string{"hostname": "switch1"})
	require.NoError(t, err)
	assert.Equal(t, "host-name switch1;", out)
}

func TestSkeletonPath(t *testing.T) {
	assert.Equal(t, "/etc/netconify/skel/EX4300.conf", SkeletonPath("/etc/netconify", "EX4300"))
}
