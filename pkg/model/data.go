package model

import (
	"fmt"
	"strings"

	"github.com/Krande/adapy-sub006/pkg/geom"
)

// ---------------------------------------------------------------------------
// Sections
// ---------------------------------------------------------------------------

// SectionKind distinguishes cross-section families.
type SectionKind int

const (
	SectionBox SectionKind = iota
	SectionIProfile
	SectionTubular
	SectionRectangular
)

func (k SectionKind) String() string {
	switch k {
	case SectionBox:
		return "BOX"
	case SectionIProfile:
		return "IPROFILE"
	case SectionTubular:
		return "TUBULAR"
	case SectionRectangular:
		return "RECTANGULAR"
	default:
		return fmt.Sprintf("SectionKind(%d)", int(k))
	}
}

// ParseSectionKind accepts the names returned by String, case-insensitively.
func ParseSectionKind(s string) (SectionKind, error) {
	switch strings.ToUpper(s) {
	case "BOX":
		return SectionBox, nil
	case "IPROFILE", "IG", "I":
		return SectionIProfile, nil
	case "TUBULAR", "PIPE":
		return SectionTubular, nil
	case "RECTANGULAR", "PRS":
		return SectionRectangular, nil
	}
	return 0, fmt.Errorf("model: unknown section type %q", s)
}

// Section is a beam cross section in the profile plane: local X is the
// width direction and local Y points up. Unused dimensions are zero.
//
//	BOX          H, W, Tw (side walls), Tf (top and bottom)
//	IPROFILE     H, W, Tw (web), Tf (flanges)
//	TUBULAR      R (outer radius), Wt (wall)
//	RECTANGULAR  H, W
type Section struct {
	Kind SectionKind `json:"kind"`
	H    float64     `json:"h,omitempty"`
	W    float64     `json:"w,omitempty"`
	Tw   float64     `json:"tw,omitempty"`
	Tf   float64     `json:"tf,omitempty"`
	R    float64     `json:"r,omitempty"`
	Wt   float64     `json:"wt,omitempty"`
}

func BoxSection(h, w, tw, tf float64) Section {
	return Section{Kind: SectionBox, H: h, W: w, Tw: tw, Tf: tf}
}

func IProfileSection(h, w, tw, tf float64) Section {
	return Section{Kind: SectionIProfile, H: h, W: w, Tw: tw, Tf: tf}
}

func TubularSection(r, wt float64) Section {
	return Section{Kind: SectionTubular, R: r, Wt: wt}
}

func RectangularSection(h, w float64) Section {
	return Section{Kind: SectionRectangular, H: h, W: w}
}

// Check returns a description of the first invalid dimension, or "".
func (s Section) Check() string {
	switch s.Kind {
	case SectionBox, SectionIProfile:
		switch {
		case s.H <= 0 || s.W <= 0:
			return fmt.Sprintf("%s section height %.4g and width %.4g must be positive", s.Kind, s.H, s.W)
		case s.Tw <= 0 || s.Tf <= 0:
			return fmt.Sprintf("%s section thicknesses tw=%.4g tf=%.4g must be positive", s.Kind, s.Tw, s.Tf)
		case s.Kind == SectionBox && (2*s.Tw >= s.W || 2*s.Tf >= s.H):
			return fmt.Sprintf("BOX section walls tw=%.4g tf=%.4g leave no void in %.4gx%.4g", s.Tw, s.Tf, s.W, s.H)
		case s.Kind == SectionIProfile && (s.Tw >= s.W || 2*s.Tf >= s.H):
			return fmt.Sprintf("IPROFILE web tw=%.4g or flanges tf=%.4g exceed %.4gx%.4g", s.Tw, s.Tf, s.W, s.H)
		}
	case SectionTubular:
		if s.R <= 0 || s.Wt <= 0 {
			return fmt.Sprintf("TUBULAR section radius %.4g and wall %.4g must be positive", s.R, s.Wt)
		}
		if s.Wt >= s.R {
			return fmt.Sprintf("TUBULAR section wall %.4g must be less than radius %.4g", s.Wt, s.R)
		}
	case SectionRectangular:
		if s.H <= 0 || s.W <= 0 {
			return fmt.Sprintf("RECTANGULAR section height %.4g and width %.4g must be positive", s.H, s.W)
		}
	default:
		return fmt.Sprintf("unknown section kind %d", int(s.Kind))
	}
	return ""
}

// Profile returns the section outline centered on the local origin.
func (s Section) Profile() (geom.ArbitraryProfileDef, error) {
	if msg := s.Check(); msg != "" {
		return geom.ArbitraryProfileDef{}, fmt.Errorf("model: %s", msg)
	}
	var (
		prof geom.ArbitraryProfileDef
		err  error
	)
	switch s.Kind {
	case SectionRectangular:
		var outer geom.IndexedPolyCurve
		if outer, err = geom.PolyCurveFromPoints(rect(s.W, s.H)); err == nil {
			prof, err = geom.NewArbitraryProfile(outer)
		}
	case SectionBox:
		var outer, inner geom.IndexedPolyCurve
		if outer, err = geom.PolyCurveFromPoints(rect(s.W, s.H)); err != nil {
			break
		}
		if inner, err = geom.PolyCurveFromPoints(rect(s.W-2*s.Tw, s.H-2*s.Tf)); err != nil {
			break
		}
		prof, err = geom.NewArbitraryProfile(outer, inner)
	case SectionIProfile:
		var outer geom.IndexedPolyCurve
		if outer, err = geom.PolyCurveFromPoints(iOutline(s.H, s.W, s.Tw, s.Tf)); err == nil {
			prof, err = geom.NewArbitraryProfile(outer)
		}
	case SectionTubular:
		var outer, inner geom.Circle
		if outer, err = geom.NewCircle(geom.DefaultPlacement(), s.R); err != nil {
			break
		}
		if inner, err = geom.NewCircle(geom.DefaultPlacement(), s.R-s.Wt); err != nil {
			break
		}
		prof, err = geom.NewArbitraryProfile(outer, inner)
	}
	if err != nil {
		return geom.ArbitraryProfileDef{}, fmt.Errorf("model: %s section: %w", s.Kind, err)
	}
	prof.Name = s.Kind.String()
	return prof, nil
}

func rect(w, h float64) []geom.Point {
	x, y := w/2, h/2
	return []geom.Point{geom.P2(-x, -y), geom.P2(x, -y), geom.P2(x, y), geom.P2(-x, y)}
}

func iOutline(h, w, tw, tf float64) []geom.Point {
	x, y, t := w/2, h/2, tw/2
	return []geom.Point{
		geom.P2(-x, -y), geom.P2(x, -y), geom.P2(x, -y+tf), geom.P2(t, -y+tf),
		geom.P2(t, y-tf), geom.P2(x, y-tf), geom.P2(x, y), geom.P2(-x, y),
		geom.P2(-x, y-tf), geom.P2(-t, y-tf), geom.P2(-t, -y+tf), geom.P2(-x, -y+tf),
	}
}

// ---------------------------------------------------------------------------
// Members
// ---------------------------------------------------------------------------

// BeamData is a straight member from Start to End. The section's local Y
// axis is aligned with Up projected onto the plane normal to the beam.
type BeamData struct {
	Start   geom.Point     `json:"start"`
	End     geom.Point     `json:"end"`
	Up      geom.Direction `json:"up"`
	Section Section        `json:"section"`
}

func (BeamData) nodeData() {}

// PlateData is a planar outline in the XY plane of Placement, extruded
// Thickness along the local Z axis. Corners with a radius are filleted.
type PlateData struct {
	Placement geom.Placement `json:"placement"`
	Corners   []geom.Corner  `json:"corners"`
	Thickness float64        `json:"thickness"`
}

func (PlateData) nodeData() {}

// PipeData is a chain of straight tubular segments through Points.
type PipeData struct {
	Points  []geom.Point `json:"points"`
	Section Section      `json:"section"`
}

func (PipeData) nodeData() {}

// ShapeData wraps a shape built elsewhere: a primitive solid or an
// imported shell.
type ShapeData struct {
	Shape geom.Shape `json:"shape"`
}

func (ShapeData) nodeData() {}

// GroupData positions its children. Children are expressed in Placement.
type GroupData struct {
	Placement   geom.Placement `json:"placement"`
	Description string         `json:"description,omitempty"`
}

func (GroupData) nodeData() {}
