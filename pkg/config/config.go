// Package config holds the settings passed explicitly into the codec,
// mesh, kernel and engine entry points. Nothing here is global: callers
// build a Config (usually Default() overlaid with a TOML file) and hand
// the relevant section to each component.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Codec configures exchange file writing.
type Codec struct {
	// Schema is written to FILE_SCHEMA.
	Schema string `toml:"schema"`
	// Precision is the number of fractional digits for reals; -1 writes
	// the shortest exact representation.
	Precision int `toml:"precision"`
	// StyledItems emits IFCSTYLEDITEM entities carrying geometry ids and colors.
	StyledItems bool `toml:"styled_items"`
	// Author and Organization go into FILE_NAME.
	Author       string `toml:"author"`
	Organization string `toml:"organization"`
}

// Mesh configures mesh post-processing and export.
type Mesh struct {
	// Tolerance is the vertex merge distance; 0 merges bit-identical
	// vertices only.
	Tolerance float64 `toml:"tolerance"`
	// Binary selects GLB output instead of glTF JSON.
	Binary bool `toml:"binary"`
}

// Kernel configures the solid kernel backend.
type Kernel struct {
	// Cells is the marching cubes resolution along the longest bounding
	// box axis.
	Cells int `toml:"cells"`
	// CircleSegments is the number of segments per full turn used when
	// curved profile boundaries are approximated by polygons.
	CircleSegments int `toml:"circle_segments"`
}

// Engine configures script evaluation.
type Engine struct {
	// TimeoutMS bounds a single evaluation.
	TimeoutMS int `toml:"timeout_ms"`
}

// Timeout returns the evaluation timeout as a duration.
func (e Engine) Timeout() time.Duration {
	return time.Duration(e.TimeoutMS) * time.Millisecond
}

// Config is the complete configuration.
type Config struct {
	Codec  Codec  `toml:"codec"`
	Mesh   Mesh   `toml:"mesh"`
	Kernel Kernel `toml:"kernel"`
	Engine Engine `toml:"engine"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Codec: Codec{
			Schema:      "IFC4X3",
			Precision:   -1,
			StyledItems: true,
		},
		Mesh: Mesh{
			Tolerance: 0,
			Binary:    true,
		},
		Kernel: Kernel{
			Cells:          200,
			CircleSegments: 32,
		},
		Engine: Engine{
			TimeoutMS: 5000,
		},
	}
}

// Load reads a TOML file on top of Default. Unknown keys are an error.
func Load(path string) (Config, error) {
	fp, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	defer fp.Close()
	cfg, err := Read(bufio.NewReader(fp))
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Read decodes TOML from r on top of Default and validates the result.
func Read(r io.Reader) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(r).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, fmt.Errorf("unknown keys:\n%s", strict.String())
		}
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var errs []error
	if c.Codec.Schema == "" {
		errs = append(errs, errors.New("codec.schema is empty"))
	}
	if c.Codec.Precision < -1 || c.Codec.Precision > 17 {
		errs = append(errs, fmt.Errorf("codec.precision %d outside [-1, 17]", c.Codec.Precision))
	}
	if c.Mesh.Tolerance < 0 {
		errs = append(errs, fmt.Errorf("mesh.tolerance %g is negative", c.Mesh.Tolerance))
	}
	if c.Kernel.Cells < 8 {
		errs = append(errs, fmt.Errorf("kernel.cells %d is below 8", c.Kernel.Cells))
	}
	if c.Kernel.CircleSegments < 8 {
		errs = append(errs, fmt.Errorf("kernel.circle_segments %d is below 8", c.Kernel.CircleSegments))
	}
	if c.Engine.TimeoutMS <= 0 {
		errs = append(errs, fmt.Errorf("engine.timeout_ms %d must be positive", c.Engine.TimeoutMS))
	}
	return errors.Join(errs...)
}

// Encode writes c as TOML.
func Encode(w io.Writer, c Config) error {
	return toml.NewEncoder(w).Encode(c)
}
