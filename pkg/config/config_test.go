package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, -1, cfg.Codec.Precision)
	assert.Equal(t, 5*time.Second, cfg.Engine.Timeout())
}

func TestReadOverlaysDefaults(t *testing.T) {
	cfg, err := Read(strings.NewReader(`
[codec]
precision = 6
author = "Kari"

[mesh]
tolerance = 1e-5
`))
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Codec.Precision)
	assert.Equal(t, "Kari", cfg.Codec.Author)
	assert.Equal(t, "IFC4X3", cfg.Codec.Schema, "untouched keys keep defaults")
	assert.True(t, cfg.Codec.StyledItems)
	assert.InDelta(t, 1e-5, cfg.Mesh.Tolerance, 0)
	assert.Equal(t, 200, cfg.Kernel.Cells)
}

func TestReadRejects(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"unknown key", "[codec]\nprecisionn = 3\n", "unknown keys"},
		{"bad precision", "[codec]\nprecision = -4\n", "codec.precision"},
		{"negative tolerance", "[mesh]\ntolerance = -1.0\n", "mesh.tolerance"},
		{"zero timeout", "[engine]\ntimeout_ms = 0\n", "engine.timeout_ms"},
		{"syntax", "[codec\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadAndEncode(t *testing.T) {
	cfg := Default()
	cfg.Kernel.Cells = 64
	cfg.Mesh.Binary = false

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, cfg))

	path := filepath.Join(t.TempDir(), "adacore.toml")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
