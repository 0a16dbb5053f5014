package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/Krande/adapy-sub006/pkg/engine"
	"github.com/Krande/adapy-sub006/pkg/geom"
	"github.com/Krande/adapy-sub006/pkg/kernel/sdfx"
	"github.com/Krande/adapy-sub006/pkg/mesh"
	"github.com/Krande/adapy-sub006/pkg/model"
	"github.com/Krande/adapy-sub006/pkg/tessellate"
)

func newBuildCmd(a *app) *cobra.Command {
	var (
		out        string
		gltfOut    string
		skipFailed bool
	)
	cmd := &cobra.Command{
		Use:   "build <script.zy>",
		Short: "Evaluate a model script and export it to IFC and optionally glTF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asm, err := a.evaluate(args[0])
			if err != nil {
				return err
			}
			parts, err := asm.Geometries()
			if err != nil {
				return err
			}
			if out != "" {
				geoms := lo.Map(parts, func(p model.Part, _ int) geom.Geometry { return p.Geometry })
				if err := a.writeIFC(out, geoms); err != nil {
					return err
				}
			}
			if gltfOut != "" {
				return a.writeGLTF(gltfOut, asm, skipFailed)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "IFC output path")
	cmd.Flags().StringVar(&gltfOut, "gltf", "", "glTF output path (.glb or .gltf)")
	cmd.Flags().BoolVar(&skipFailed, "skip-failed", false, "skip parts the kernel cannot mesh")
	cmd.MarkFlagsOneRequired("output", "gltf")
	return cmd
}

// evaluate runs the script at path. Script errors are printed one per line
// and reported as a single error.
func (a *app) evaluate(path string) (*model.Assembly, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	eng := engine.NewEngine(a.cfg.Engine, a.log)
	asm, evalErrs, err := eng.Evaluate(string(src))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			fmt.Fprintf(a.stderr, "%s: %s\n", path, e.Error())
		}
		return nil, fmt.Errorf("%s: %d error(s)", path, len(evalErrs))
	}
	a.log.Debug("evaluated", "path", path, "nodes", asm.NodeCount())
	return asm, nil
}

func (a *app) writeGLTF(path string, asm *model.Assembly, skipFailed bool) error {
	binary := a.cfg.Mesh.Binary
	switch strings.ToLower(filepath.Ext(path)) {
	case ".glb":
		binary = true
	case ".gltf":
		binary = false
	}
	opts := tessellate.OptionsFromConfig(a.cfg, a.log)
	opts.SkipFailed = skipFailed
	parts, err := tessellate.Tessellate(asm, sdfx.New(a.cfg.Kernel.Cells), opts)
	if err != nil {
		return err
	}
	if len(parts) == 0 {
		return errors.New("nothing to export: no part produced a mesh")
	}
	if err := createFile(path, func(w io.Writer) error {
		return mesh.WriteGLTF(w, parts, binary)
	}); err != nil {
		return err
	}
	a.log.Info("wrote gltf", "path", path, "parts", len(parts), "binary", binary)
	return nil
}
