package engine

import (
	"fmt"
	"slices"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/Krande/adapy-sub006/pkg/geom"
	"github.com/Krande/adapy-sub006/pkg/model"
)

// ---------------------------------------------------------------------------
// Custom Sexp types
// ---------------------------------------------------------------------------

// sexpVec3 wraps a point or direction literal.
type sexpVec3 struct {
	p geom.Point
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.p.X, v.p.Y, v.p.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpCorner is a plate outline vertex with an optional fillet radius.
type sexpCorner struct {
	c geom.Corner
}

func (c *sexpCorner) SexpString(ps *zygo.PrintState) string {
	if c.c.Radius > 0 {
		return fmt.Sprintf("(corner %g %g %g)", c.c.Point.X, c.c.Point.Y, c.c.Radius)
	}
	return fmt.Sprintf("(corner %g %g)", c.c.Point.X, c.c.Point.Y)
}
func (c *sexpCorner) Type() *zygo.RegisteredType { return nil }

type sexpColor struct {
	c geom.Color
}

func (c *sexpColor) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(color %g %g %g :opacity %g)", c.c.R, c.c.G, c.c.B, c.c.Opacity)
}
func (c *sexpColor) Type() *zygo.RegisteredType { return nil }

type sexpSection struct {
	s model.Section
}

func (s *sexpSection) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("#<section %s>", s.s.Kind)
}
func (s *sexpSection) Type() *zygo.RegisteredType { return nil }

// sexpNodeRef is a reference to a node in the assembly being built.
type sexpNodeRef struct {
	id   model.NodeID
	name string
}

func (n *sexpNodeRef) SexpString(ps *zygo.PrintState) string {
	if n.name != "" {
		return fmt.Sprintf("#<node %s>", n.name)
	}
	return fmt.Sprintf("#<node %s>", n.id.Short())
}
func (n *sexpNodeRef) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	return strings.CutPrefix(str.S, kwPrefix)
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// A keyword in last position is recorded with a nil value.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// float returns the keyword's number, or def when it is absent.
func (pa kwArgs) float(key string, def float64) (float64, error) {
	v, ok := pa.kw[key]
	if !ok {
		return def, nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

// point returns the keyword's point, or def when it is absent.
func (pa kwArgs) point(key string, def geom.Point) (geom.Point, error) {
	v, ok := pa.kw[key]
	if !ok {
		return def, nil
	}
	p, err := toPoint(v)
	if err != nil {
		return geom.Point{}, fmt.Errorf("%s: %w", key, err)
	}
	return p, nil
}

func (pa kwArgs) direction(key string, def geom.Direction) (geom.Direction, error) {
	v, ok := pa.kw[key]
	if !ok {
		return def, nil
	}
	p, err := toPoint(v)
	if err != nil {
		return geom.Direction{}, fmt.Errorf("%s: %w", key, err)
	}
	d, err := geom.NewDirection(p.X, p.Y, p.Z)
	if err != nil {
		return geom.Direction{}, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// placement reads :origin, :axis and :xdir. Missing keys fall back to the
// global frame.
func (pa kwArgs) placement(originKey string) (geom.Placement, error) {
	origin, err := pa.point(originKey, geom.Point{})
	if err != nil {
		return geom.Placement{}, err
	}
	axis, err := pa.direction("axis", geom.ZDir)
	if err != nil {
		return geom.Placement{}, err
	}
	xdir, err := pa.direction("xdir", geom.XDir)
	if err != nil {
		return geom.Placement{}, err
	}
	return geom.PlacementFromAxes(origin, axis, xdir)
}

func (pa kwArgs) color() (*geom.Color, error) {
	v, ok := pa.kw["color"]
	if !ok {
		return nil, nil
	}
	c, ok := v.(*sexpColor)
	if !ok {
		return nil, fmt.Errorf("color: expected color, got %T (%s)", v, v.SexpString(nil))
	}
	out := c.c
	return &out, nil
}

func (pa kwArgs) section() (model.Section, error) {
	v, ok := pa.kw["section"]
	if !ok {
		return model.Section{}, fmt.Errorf("missing :section")
	}
	s, ok := v.(*sexpSection)
	if !ok {
		return model.Section{}, fmt.Errorf("section: expected section, got %T (%s)", v, v.SexpString(nil))
	}
	return s.s, nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_box) and plain strings ("box").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	name, _ := strings.CutPrefix(str.S, kwPrefix)
	return name, nil
}

// toPoint accepts a vec3 or a list of three numbers.
func toPoint(s zygo.Sexp) (geom.Point, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.p, nil
	}
	items, err := sexpListToSlice(s)
	if err != nil || len(items) != 3 {
		return geom.Point{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
	}
	var xyz [3]float64
	for i, it := range items {
		if xyz[i], err = toFloat64(it); err != nil {
			return geom.Point{}, err
		}
	}
	return geom.P(xyz[0], xyz[1], xyz[2]), nil
}

// toCorner accepts a corner or a vec3; a vec3 is a sharp corner.
func toCorner(s zygo.Sexp) (geom.Corner, error) {
	if c, ok := s.(*sexpCorner); ok {
		return c.c, nil
	}
	p, err := toPoint(s)
	if err != nil {
		return geom.Corner{}, fmt.Errorf("expected corner or vec3, got %T (%s)", s, s.SexpString(nil))
	}
	return geom.Corner{Point: p}, nil
}

func toNodeRef(s zygo.Sexp) (*sexpNodeRef, error) {
	if ref, ok := s.(*sexpNodeRef); ok {
		return ref, nil
	}
	return nil, fmt.Errorf("expected node reference, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// ---------------------------------------------------------------------------
// Assembly builder
// ---------------------------------------------------------------------------

// builder collects nodes for one evaluation. Anonymous nodes are numbered
// per evaluation so the same script always yields the same IDs.
type builder struct {
	a     *model.Assembly
	anon  int
	order []model.NodeID
}

func newBuilder() *builder {
	return &builder{a: model.New()}
}

// add registers n under name. Unnamed nodes get an ID from a per-kind
// counter; names must be unique.
func (b *builder) add(n *model.Node) (*sexpNodeRef, error) {
	key := n.Kind.String() + "/" + n.Name
	if n.Name == "" {
		b.anon++
		key = fmt.Sprintf("%s/_anon_%d", n.Kind, b.anon)
	} else if b.a.Lookup(n.Name) != nil {
		return nil, fmt.Errorf("duplicate name %q", n.Name)
	}
	n.ID = model.NewNodeID(key)
	b.a.AddNode(n)
	b.order = append(b.order, n.ID)
	return &sexpNodeRef{id: n.ID, name: n.Name}, nil
}

// consume removes a boolean tool from the assembly; its geometry lives on
// in the target's operation list.
func (b *builder) consume(tool *model.Node) error {
	for _, n := range b.a.Nodes {
		if slices.Contains(n.Children, tool.ID) {
			return fmt.Errorf("tool %q is already placed in %q", tool.Name, n.Name)
		}
	}
	if slices.Contains(b.a.Roots, tool.ID) {
		return fmt.Errorf("tool %q is an assembly root", tool.Name)
	}
	delete(b.a.Nodes, tool.ID)
	if tool.Name != "" {
		delete(b.a.NameIndex, tool.Name)
	}
	b.order = slices.DeleteFunc(b.order, func(id model.NodeID) bool { return id == tool.ID })
	return nil
}

// finish makes every top-level node a root, in creation order, when the
// script declared no assembly.
func (b *builder) finish() *model.Assembly {
	if len(b.a.Roots) > 0 {
		return b.a
	}
	placed := make(map[model.NodeID]bool)
	for _, n := range b.a.Nodes {
		for _, c := range n.Children {
			placed[c] = true
		}
	}
	for _, id := range b.order {
		if !placed[id] {
			b.a.AddRoot(id)
		}
	}
	return b.a
}

func (b *builder) node(ref *sexpNodeRef) (*model.Node, error) {
	n := b.a.Get(ref.id)
	if n == nil {
		return nil, fmt.Errorf("node %s no longer exists", ref.SexpString(nil))
	}
	return n, nil
}

// optionalName returns the leading string argument, if any.
func optionalName(pa kwArgs) (string, error) {
	if len(pa.positional) == 0 {
		return "", nil
	}
	return toString(pa.positional[0])
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the modelling builtins into a zygomys
// environment. They populate the builder's assembly during evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, b *builder) {

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var xyz [3]float64
		for i, axis := range []string{"x", "y", "z"} {
			f, err := toFloat64(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %s: %w", axis, err)
			}
			xyz[i] = f
		}
		return &sexpVec3{p: geom.P(xyz[0], xyz[1], xyz[2])}, nil
	})

	// -----------------------------------------------------------------------
	// (corner 0 0) or (corner 2 0 0.1) with a fillet radius
	// -----------------------------------------------------------------------
	env.AddFunction("corner", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 && len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("corner requires 2 or 3 arguments, got %d", len(args))
		}
		vals := make([]float64, len(args))
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("corner: argument %d: %w", i+1, err)
			}
			vals[i] = f
		}
		c := geom.Corner{Point: geom.P2(vals[0], vals[1])}
		if len(vals) == 3 {
			if vals[2] < 0 {
				return zygo.SexpNull, fmt.Errorf("corner: radius %g is negative", vals[2])
			}
			c.Radius = vals[2]
		}
		return &sexpCorner{c: c}, nil
	})

	// -----------------------------------------------------------------------
	// (color 1 0 0 :opacity 0.5)
	// -----------------------------------------------------------------------
	env.AddFunction("color", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 3 {
			return zygo.SexpNull, fmt.Errorf("color requires r g b, got %d values", len(pa.positional))
		}
		var rgb [3]float64
		for i, a := range pa.positional {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("color: %w", err)
			}
			rgb[i] = f
		}
		opacity, err := pa.float("opacity", 1)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("color: %w", err)
		}
		c, err := geom.NewColor(rgb[0], rgb[1], rgb[2], opacity)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("color: %w", err)
		}
		return &sexpColor{c: c}, nil
	})

	// -----------------------------------------------------------------------
	// (section :type :iprofile :h 0.3 :w 0.15 :tw 0.01 :tf 0.02)
	// -----------------------------------------------------------------------
	env.AddFunction("section", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		v, ok := pa.kw["type"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("section requires :type")
		}
		typ, err := toKeywordString(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("section: type: %w", err)
		}
		kind, err := model.ParseSectionKind(typ)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("section: %w", err)
		}
		sec := model.Section{Kind: kind}
		for _, f := range []struct {
			key string
			dst *float64
		}{{"h", &sec.H}, {"w", &sec.W}, {"tw", &sec.Tw}, {"tf", &sec.Tf}, {"r", &sec.R}, {"wt", &sec.Wt}} {
			if *f.dst, err = pa.float(f.key, 0); err != nil {
				return zygo.SexpNull, fmt.Errorf("section: %w", err)
			}
		}
		if msg := sec.Check(); msg != "" {
			return zygo.SexpNull, fmt.Errorf("section: %s", msg)
		}
		return &sexpSection{s: sec}, nil
	})

	// -----------------------------------------------------------------------
	// (beam "bm1" :start (vec3 0 0 0) :end (vec3 5 0 0) :section sec
	//             :up (vec3 0 0 1) :color c)
	// -----------------------------------------------------------------------
	env.AddFunction("beam", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		nodeName, err := optionalName(pa)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("beam: name: %w", err)
		}
		d := model.BeamData{}
		if _, ok := pa.kw["start"]; !ok {
			return zygo.SexpNull, fmt.Errorf("beam: missing :start")
		}
		if _, ok := pa.kw["end"]; !ok {
			return zygo.SexpNull, fmt.Errorf("beam: missing :end")
		}
		if d.Start, err = pa.point("start", geom.Point{}); err != nil {
			return zygo.SexpNull, fmt.Errorf("beam: %w", err)
		}
		if d.End, err = pa.point("end", geom.Point{}); err != nil {
			return zygo.SexpNull, fmt.Errorf("beam: %w", err)
		}
		if d.Up, err = pa.direction("up", geom.ZDir); err != nil {
			return zygo.SexpNull, fmt.Errorf("beam: %w", err)
		}
		if d.Section, err = pa.section(); err != nil {
			return zygo.SexpNull, fmt.Errorf("beam: %w", err)
		}
		color, err := pa.color()
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("beam: %w", err)
		}
		ref, err := b.add(&model.Node{Kind: model.NodeBeam, Name: nodeName, Data: d, Color: color})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("beam: %w", err)
		}
		return ref, nil
	})

	// -----------------------------------------------------------------------
	// (plate "pl1" :points (list (corner 0 0) (corner 2 0 0.1) ...)
	//              :thickness 0.01 :origin (vec3 0 0 1) :axis ... :xdir ...)
	// -----------------------------------------------------------------------
	env.AddFunction("plate", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		nodeName, err := optionalName(pa)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("plate: name: %w", err)
		}
		v, ok := pa.kw["points"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("plate: missing :points")
		}
		items, err := sexpListToSlice(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("plate: points: %w", err)
		}
		d := model.PlateData{}
		for i, it := range items {
			c, err := toCorner(it)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("plate: point %d: %w", i, err)
			}
			d.Corners = append(d.Corners, c)
		}
		if d.Thickness, err = pa.float("thickness", 0); err != nil {
			return zygo.SexpNull, fmt.Errorf("plate: %w", err)
		}
		if d.Placement, err = pa.placement("origin"); err != nil {
			return zygo.SexpNull, fmt.Errorf("plate: %w", err)
		}
		color, err := pa.color()
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("plate: %w", err)
		}
		ref, err := b.add(&model.Node{Kind: model.NodePlate, Name: nodeName, Data: d, Color: color})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("plate: %w", err)
		}
		return ref, nil
	})

	// -----------------------------------------------------------------------
	// (pipe "p1" :points (list (vec3 0 0 0) (vec3 0 0 3)) :section tube)
	// -----------------------------------------------------------------------
	env.AddFunction("pipe", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		nodeName, err := optionalName(pa)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("pipe: name: %w", err)
		}
		v, ok := pa.kw["points"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("pipe: missing :points")
		}
		items, err := sexpListToSlice(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("pipe: points: %w", err)
		}
		d := model.PipeData{}
		for i, it := range items {
			p, err := toPoint(it)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("pipe: point %d: %w", i, err)
			}
			d.Points = append(d.Points, p)
		}
		if d.Section, err = pa.section(); err != nil {
			return zygo.SexpNull, fmt.Errorf("pipe: %w", err)
		}
		color, err := pa.color()
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("pipe: %w", err)
		}
		ref, err := b.add(&model.Node{Kind: model.NodePipe, Name: nodeName, Data: d, Color: color})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("pipe: %w", err)
		}
		return ref, nil
	})

	// -----------------------------------------------------------------------
	// Primitive solids become shape nodes:
	//   (box "b" :origin (vec3 0 0 0) :size (vec3 1 2 3))
	//   (sphere "s" :center (vec3 0 0 0) :radius 1)
	//   (cylinder "c" :origin (vec3 0 0 0) :axis (vec3 0 0 1) :height 2 :radius 0.5)
	//   (cone "k" :origin (vec3 0 0 0) :height 2 :radius 0.5)
	// -----------------------------------------------------------------------
	addShape := func(fn string, build func(pa kwArgs) (geom.Shape, error)) {
		env.AddFunction(fn, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			pa := parseArgs(args)
			nodeName, err := optionalName(pa)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: name: %w", fn, err)
			}
			s, err := build(pa)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
			}
			color, err := pa.color()
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
			}
			ref, err := b.add(&model.Node{Kind: model.NodeShape, Name: nodeName, Data: model.ShapeData{Shape: s}, Color: color})
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
			}
			return ref, nil
		})
	}

	addShape("box", func(pa kwArgs) (geom.Shape, error) {
		pl, err := pa.placement("origin")
		if err != nil {
			return nil, err
		}
		v, ok := pa.kw["size"]
		if !ok {
			return nil, fmt.Errorf("missing :size")
		}
		size, err := toPoint(v)
		if err != nil {
			return nil, fmt.Errorf("size: %w", err)
		}
		return geom.NewBox(pl, size.X, size.Y, size.Z)
	})
	addShape("sphere", func(pa kwArgs) (geom.Shape, error) {
		c, err := pa.point("center", geom.Point{})
		if err != nil {
			return nil, err
		}
		r, err := pa.float("radius", 0)
		if err != nil {
			return nil, err
		}
		return geom.NewSphere(c, r)
	})
	addShape("cylinder", func(pa kwArgs) (geom.Shape, error) {
		pl, h, r, err := axialArgs(pa)
		if err != nil {
			return nil, err
		}
		return geom.NewCylinder(pl, h, r)
	})
	addShape("cone", func(pa kwArgs) (geom.Shape, error) {
		pl, h, r, err := axialArgs(pa)
		if err != nil {
			return nil, err
		}
		return geom.NewCone(pl, h, r)
	})

	// -----------------------------------------------------------------------
	// (place ref :at (vec3 0 0 3) :axis (vec3 0 0 1) :xdir (vec3 0 1 0))
	// -----------------------------------------------------------------------
	env.AddFunction("place", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("place requires a node reference as first argument")
		}
		child, err := toNodeRef(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("place: %w", err)
		}
		pl, err := pa.placement("at")
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("place: %w", err)
		}
		ref, err := b.add(&model.Node{
			Kind:     model.NodeGroup,
			Children: []model.NodeID{child.id},
			Data:     model.GroupData{Placement: pl},
		})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("place: %w", err)
		}
		return ref, nil
	})

	// -----------------------------------------------------------------------
	// (difference target tool...)  (union target tool...)
	// (intersect target tool)
	//
	// Tools are removed from the assembly; their geometry is applied to the
	// target in argument order.
	// -----------------------------------------------------------------------
	addBoolean := func(fn string, op geom.BoolOpType, maxTools int) {
		env.AddFunction(fn, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) < 2 {
				return zygo.SexpNull, fmt.Errorf("%s requires a target and at least one tool", fn)
			}
			if maxTools > 0 && len(args)-1 > maxTools {
				return zygo.SexpNull, fmt.Errorf("%s accepts %d tool, got %d", fn, maxTools, len(args)-1)
			}
			targetRef, err := toNodeRef(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: target: %w", fn, err)
			}
			target, err := b.node(targetRef)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: target: %w", fn, err)
			}
			for i, a := range args[1:] {
				toolRef, err := toNodeRef(a)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: tool %d: %w", fn, i+1, err)
				}
				if toolRef.id == target.ID {
					return zygo.SexpNull, fmt.Errorf("%s: tool %d is the target", fn, i+1)
				}
				tool, err := b.node(toolRef)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: tool %d: %w", fn, i+1, err)
				}
				geoms, err := tool.Geometries()
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: tool %d: %w", fn, i+1, err)
				}
				if len(geoms) == 0 {
					return zygo.SexpNull, fmt.Errorf("%s: tool %d has no geometry", fn, i+1)
				}
				for _, g := range geoms {
					if err := target.AddBoolean(g, op); err != nil {
						return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
					}
				}
				if err := b.consume(tool); err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
				}
			}
			return targetRef, nil
		})
	}
	addBoolean("difference", geom.Difference, 0)
	addBoolean("union", geom.Union, 0)
	addBoolean("intersect", geom.Intersection, 1)

	// -----------------------------------------------------------------------
	// (part "name")
	// -----------------------------------------------------------------------
	env.AddFunction("part", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("part requires a name argument")
		}
		partName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("part: name: %w", err)
		}
		n := b.a.Lookup(partName)
		if n == nil {
			return zygo.SexpNull, fmt.Errorf("part: no part named %q", partName)
		}
		return &sexpNodeRef{id: n.ID, name: partName}, nil
	})

	// -----------------------------------------------------------------------
	// (assembly "name" ref...)
	// -----------------------------------------------------------------------
	env.AddFunction("assembly", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("assembly requires a name argument")
		}
		asmName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("assembly: name: %w", err)
		}
		var children []model.NodeID
		for i := 1; i < len(args); i++ {
			ref, err := toNodeRef(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("assembly: child %d: %w", i, err)
			}
			children = append(children, ref.id)
		}
		ref, err := b.add(&model.Node{
			Kind:     model.NodeGroup,
			Name:     asmName,
			Children: children,
			Data:     model.GroupData{Placement: geom.DefaultPlacement()},
		})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("assembly: %w", err)
		}
		b.a.AddRoot(ref.id)
		return ref, nil
	})
}

// axialArgs reads the frame, :height and :radius shared by cylinders and
// cones.
func axialArgs(pa kwArgs) (geom.Placement, float64, float64, error) {
	pl, err := pa.placement("origin")
	if err != nil {
		return geom.Placement{}, 0, 0, err
	}
	h, err := pa.float("height", 0)
	if err != nil {
		return geom.Placement{}, 0, 0, err
	}
	r, err := pa.float("radius", 0)
	if err != nil {
		return geom.Placement{}, 0, 0, err
	}
	return pl, h, r, nil
}
