package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frameScript = `
(def sec (section :type :rectangular :h 0.2 :w 0.1))
(def bm (beam "girder" :start (vec3 0 0 3) :end (vec3 4 0 3) :section sec :color (color 0.8 0.1 0.1)))
(difference bm (cylinder :origin (vec3 2 0 2) :height 2 :radius 0.04))
(beam "col" :start (vec3 0 0 0) :end (vec3 0 0 3) :up (vec3 1 0 0) :section sec)
(assembly "frame" bm (part "col"))
`

// run executes the CLI with a small kernel config and returns stdout and
// stderr.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cfg := filepath.Join(t.TempDir(), "adacore.toml")
	require.NoError(t, os.WriteFile(cfg, []byte("[kernel]\ncells = 120\ncircle_segments = 12\n"), 0o644))

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(append([]string{"--config", cfg}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeScript(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.zy")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestBuildAndInspect(t *testing.T) {
	dir := t.TempDir()
	ifcPath := filepath.Join(dir, "frame.ifc")
	glbPath := filepath.Join(dir, "frame.glb")

	_, stderr, err := run(t, "build", writeScript(t, frameScript), "-o", ifcPath, "--gltf", glbPath)
	require.NoError(t, err, stderr)
	assert.Contains(t, stderr, "wrote ifc")

	data, err := os.ReadFile(ifcPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "IFCEXTRUDEDAREASOLID")
	assert.Contains(t, string(data), "IFCBOOLEANRESULT")
	assert.Contains(t, string(data), ".DIFFERENCE.")

	glb, err := os.ReadFile(glbPath)
	require.NoError(t, err)
	require.Greater(t, len(glb), 12)
	assert.Equal(t, "glTF", string(glb[:4]))

	stdout, _, err := run(t, "inspect", ifcPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "IFC4X3")
	assert.Contains(t, stdout, "girder")
	assert.Contains(t, stdout, "col")
	assert.Contains(t, stdout, "IFCSTYLEDITEM")
}

func TestBuildReportsScriptErrors(t *testing.T) {
	out := filepath.Join(t.TempDir(), "bad.ifc")
	_, stderr, err := run(t, "build", writeScript(t, `(beam "b" :start (vec3 0 0 0))`), "-o", out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 error(s)")
	assert.Contains(t, stderr, "missing :end")
	assert.NoFileExists(t, out)
}

func TestBuildRequiresOutput(t *testing.T) {
	_, _, err := run(t, "build", writeScript(t, frameScript))
	require.Error(t, err)
}

func TestVerboseLogging(t *testing.T) {
	out := filepath.Join(t.TempDir(), "frame.ifc")
	_, stderr, err := run(t, "--verbose", "build", writeScript(t, frameScript), "-o", out)
	require.NoError(t, err)
	assert.Contains(t, stderr, "level=DEBUG")
}

func TestSat2IfcAndInspect(t *testing.T) {
	src := filepath.Join("..", "..", "pkg", "sat", "testdata", "square.sat")
	out := filepath.Join(t.TempDir(), "square.ifc")

	_, stderr, err := run(t, "sat2ifc", src, "-o", out)
	require.NoError(t, err, stderr)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "IFCADVANCEDFACE")

	stdout, _, err := run(t, "inspect", src)
	require.NoError(t, err)
	assert.Contains(t, stdout, "version")
	assert.Contains(t, stdout, "plane")

	stdout, _, err = run(t, "inspect", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "body-1")
}

func TestBadConfig(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(cfg, []byte("[kernel]\nbogus = 1\n"), 0o644))

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs([]string{"--config", cfg, "inspect", "x.ifc"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown keys")
}

func TestBuildExampleScript(t *testing.T) {
	out := filepath.Join(t.TempDir(), "portal.ifc")
	_, stderr, err := run(t, "build", filepath.Join("..", "..", "examples", "portal_frame.zy"), "-o", out)
	require.NoError(t, err, stderr)

	stdout, _, err := run(t, "inspect", out)
	require.NoError(t, err)
	for _, id := range []string{"col", "col#1", "girder", "base", "base#1", "drain-0", "drain-1"} {
		assert.Contains(t, stdout, id)
	}
}
