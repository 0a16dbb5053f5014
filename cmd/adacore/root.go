package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Krande/adapy-sub006/pkg/config"
	"github.com/Krande/adapy-sub006/pkg/geom"
	"github.com/Krande/adapy-sub006/pkg/ifc"
)

// app carries the state shared by all subcommands.
type app struct {
	cfgPath string
	verbose bool

	cfg    config.Config
	log    *slog.Logger
	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}
	root := &cobra.Command{
		Use:           "adacore",
		Short:         "Structural geometry builder and IFC/SAT converter",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", "", "TOML configuration file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log debug output")

	root.AddCommand(newBuildCmd(a), newSat2IfcCmd(a), newInspectCmd(a))
	return root
}

func (a *app) setup() error {
	level := slog.LevelInfo
	if a.verbose {
		level = slog.LevelDebug
	}
	a.log = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))

	a.cfg = config.Default()
	if a.cfgPath != "" {
		cfg, err := config.Load(a.cfgPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
		a.log.Debug("loaded config", "path", a.cfgPath)
	}
	return nil
}

// writeIFC encodes geoms into a new exchange file at path.
func (a *app) writeIFC(path string, geoms []geom.Geometry) error {
	f := ifc.NewFile(a.cfg.Codec)
	enc := ifc.NewEncoder(f, a.cfg.Codec)
	for _, g := range geoms {
		if _, err := enc.EncodeGeometry(g); err != nil {
			return err
		}
	}
	if err := createFile(path, func(w io.Writer) error {
		return ifc.WriteFile(w, f, a.cfg.Codec)
	}); err != nil {
		return err
	}
	a.log.Info("wrote ifc", "path", path, "geometries", len(geoms), "entities", f.Len())
	return nil
}

// createFile writes path through a buffered writer and reports close
// errors.
func createFile(path string, write func(w io.Writer) error) (err error) {
	fp, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := fp.Close(); err == nil {
			err = cerr
		}
	}()
	bw := bufio.NewWriter(fp)
	if err := write(bw); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return bw.Flush()
}
