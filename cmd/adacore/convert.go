package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/Krande/adapy-sub006/pkg/geom"
	"github.com/Krande/adapy-sub006/pkg/ifc"
	"github.com/Krande/adapy-sub006/pkg/p21"
	"github.com/Krande/adapy-sub006/pkg/sat"
)

func newSat2IfcCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "sat2ifc <in.sat>",
		Short: "Convert the bodies of an ACIS SAT file to IFC advanced faces",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readSAT(args[0])
			if err != nil {
				return err
			}
			geoms, err := doc.Geometries()
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			a.log.Debug("parsed sat", "path", args[0], "version", doc.Header.Version,
				"records", len(doc.Records), "bodies", len(geoms))
			return a.writeIFC(out, geoms)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "IFC output path")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file.ifc|file.sat>",
		Short: "Summarize the entities and geometry of an IFC or SAT file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.EqualFold(filepath.Ext(args[0]), ".sat") {
				return a.inspectSAT(args[0])
			}
			return a.inspectIFC(args[0])
		},
	}
}

func readSAT(path string) (*sat.Document, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	doc, err := sat.Parse(bufio.NewReader(fp))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

func (a *app) inspectIFC(path string) error {
	fp, err := os.Open(path)
	if err != nil {
		return err
	}
	defer fp.Close()
	f, err := p21.Parse(bufio.NewReader(fp))
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	geoms, err := ifc.NewDecoder(f).DecodeAll()
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "schema\t%s\n", f.Header.Schema)
	fmt.Fprintf(tw, "entities\t%d\n", f.Len())
	if d := f.Dangling(); len(d) > 0 {
		fmt.Fprintf(tw, "dangling references\t%d\n", len(d))
	}
	counts := lo.CountValuesBy(f.Entities(), func(e *p21.Entity) string { return e.Type })
	writeCounts(tw, counts)
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "GEOMETRY\tSHAPE\tBOOLEANS\tCOLOR")
	for _, g := range geoms {
		writeGeometry(tw, g)
	}
	return tw.Flush()
}

func (a *app) inspectSAT(path string) error {
	doc, err := readSAT(path)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	h := doc.Header
	fmt.Fprintf(tw, "version\t%d\n", h.Version)
	fmt.Fprintf(tw, "product\t%s\n", h.Product)
	fmt.Fprintf(tw, "scale\t%g\n", h.Scale)
	fmt.Fprintf(tw, "records\t%d\n", len(doc.Records))
	counts := lo.CountValuesBy(doc.Records, func(r *sat.Record) string { return r.Type })
	writeCounts(tw, counts)

	faces, err := doc.Faces()
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "FACE\tSURFACE\tBOUNDS")
	for i, face := range faces {
		fmt.Fprintf(tw, "%d\t%s\t%d\n", i, surfaceName(face.Surface), len(face.Bounds))
	}
	return tw.Flush()
}

func writeCounts(tw *tabwriter.Writer, counts map[string]int) {
	types := lo.Keys(counts)
	slices.Sort(types)
	for _, t := range types {
		fmt.Fprintf(tw, "  %s\t%d\n", t, counts[t])
	}
}

func writeGeometry(tw *tabwriter.Writer, g geom.Geometry) {
	color := "-"
	if c := g.Color; c != nil {
		color = fmt.Sprintf("%.3g,%.3g,%.3g", c.R, c.G, c.B)
	}
	id := g.ID
	if id == "" {
		id = "-"
	}
	fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", id, geom.ShapeName(g.Shape), len(g.BoolOperations), color)
}

func surfaceName(s geom.Surface) string {
	switch s.(type) {
	case geom.Plane:
		return "plane"
	case geom.CylindricalSurface:
		return "cylinder"
	case geom.BSplineSurfaceWithKnots:
		return "bspline"
	}
	return "-"
}
