package dome

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/litescript/ls-planetarium/internal/astro"
	"github.com/litescript/ls-planetarium/internal/errs"
	"github.com/litescript/ls-planetarium/internal/scad"
	"github.com/litescript/ls-planetarium/internal/version"
)

// Mode selects how perforations combine with the shell.
type Mode string

const (
	// Subtract cuts holes through the shell.
	Subtract Mode = "subtract"

	// Union adds raised markers on the outer surface.
	Union Mode = "union"
)

// Primitive selects the solid used for each star.
type Primitive string

const (
	PrimitiveCylinder Primitive = "cylinder"
	PrimitiveCone     Primitive = "cone"
	PrimitiveSphere   Primitive = "sphere"
)

// Shell is the hollow hemisphere the stars are cut into.
type Shell struct {
	Radius   float64 // Outer radius
	Wall     float64 // Wall thickness
	Segments int     // Facets for the spheres ($fn)
	Notch    bool    // Cut a reference notch in the rim at +X
}

// DefaultShell returns a 150 mm dome with a 3 mm wall.
func DefaultShell() Shell {
	return Shell{Radius: 150, Wall: 3, Segments: 120, Notch: true}
}

// Validate checks the shell dimensions.
func (s Shell) Validate() error {
	if !(s.Radius > 0) {
		return errs.Newf(errs.CodeInvalidProjectionConfig, "radius", "must be > 0, got %v", s.Radius)
	}
	if !(s.Wall > 0) || s.Wall >= s.Radius {
		return errs.Newf(errs.CodeInvalidProjectionConfig, "wallThickness",
			"must be > 0 and below the radius (%v), got %v", s.Radius, s.Wall)
	}
	if s.Segments < 0 {
		return errs.Newf(errs.CodeInvalidProjectionConfig, "segments", "must be >= 0, got %d", s.Segments)
	}
	return nil
}

// InnerRadius returns the radius of the hollow.
func (s Shell) InnerRadius() float64 {
	return s.Radius - s.Wall
}

// Style describes the per-star primitive.
type Style struct {
	Mode         Mode
	Primitive    Primitive
	Segments     int     // Facets per primitive ($fn)
	MarkerHeight float64 // Height of raised markers above the outer surface
	Taper        float64 // Cone end ratio, (0, 1]
}

// DefaultStyle returns straight 16-facet through-holes.
func DefaultStyle() Style {
	return Style{
		Mode:         Subtract,
		Primitive:    PrimitiveCylinder,
		Segments:     16,
		MarkerHeight: 2,
		Taper:        0.5,
	}
}

// Validate checks the style.
func (s Style) Validate() error {
	switch s.Mode {
	case Subtract, Union:
	default:
		return errs.Newf(errs.CodeInvalidProjectionConfig, "mode", "unknown mode %q", s.Mode)
	}
	switch s.Primitive {
	case PrimitiveCylinder, PrimitiveCone, PrimitiveSphere:
	default:
		return errs.Newf(errs.CodeInvalidProjectionConfig, "primitive", "unknown primitive %q", s.Primitive)
	}
	if s.Mode == Union && !(s.MarkerHeight > 0) {
		return errs.Newf(errs.CodeInvalidProjectionConfig, "markerHeight", "must be > 0, got %v", s.MarkerHeight)
	}
	if s.Primitive == PrimitiveCone && !(s.Taper > 0 && s.Taper <= 1) {
		return errs.Newf(errs.CodeInvalidProjectionConfig, "taper", "must be in (0, 1], got %v", s.Taper)
	}
	return nil
}

// Scene is the finished scene graph.
type Scene struct {
	Shell        Shell
	Style        Style
	Perforations []Perforation
	Root         scad.Node
}

// Build assembles the scene: the hollow shell, the lower-half cut, the
// optional reference notch and one primitive per perforation.
func Build(shell Shell, style Style, perfs []Perforation) (Scene, error) {
	if err := shell.Validate(); err != nil {
		return Scene{}, err
	}
	if err := style.Validate(); err != nil {
		return Scene{}, err
	}

	stars := make([]scad.Node, 0, len(perfs))
	for _, p := range perfs {
		stars = append(stars, scad.Comment{
			Text: starLabel(p),
			Node: perforationNode(shell, style, p),
		})
	}

	cuts := []scad.Node{scad.Comment{Text: "flat base", Node: baseCut(shell)}}
	if shell.Notch {
		cuts = append(cuts, scad.Comment{Text: "reference notch (+X)", Node: notch(shell)})
	}

	var root scad.Node
	switch style.Mode {
	case Union:
		body := scad.Union{Children: append([]scad.Node{shellNode(shell)}, stars...)}
		root = scad.Difference{Children: append([]scad.Node{body}, cuts...)}
	default:
		children := append([]scad.Node{shellNode(shell)}, cuts...)
		root = scad.Difference{Children: append(children, stars...)}
	}

	return Scene{Shell: shell, Style: style, Perforations: perfs, Root: root}, nil
}

// StarCount returns the number of star primitives in the scene graph.
func (s Scene) StarCount() int {
	return scad.Count(s.Root, func(n scad.Node) bool {
		c, ok := n.(scad.Comment)
		return ok && strings.HasPrefix(c.Text, starPrefix)
	})
}

// Header describes the scene in comments and editable top-level variables.
// It carries no timestamps so repeated runs produce identical files.
func (s Scene) Header() scad.Header {
	stars := s.StarCount()
	return scad.Header{
		Lines: []string{
			"Planetarium dome generated by ls-planetarium " + version.Version,
			fmt.Sprintf("%d stars, mode %s, primitive %s", stars, s.Style.Mode, s.Style.Primitive),
			"Open in OpenSCAD, render (F6) and export as STL for printing.",
		},
		Vars: []scad.Var{
			{Name: "dome_radius", Value: s.Shell.Radius},
			{Name: "wall_thickness", Value: s.Shell.Wall},
			{Name: "star_count", Value: float64(stars)},
		},
	}
}

// Render writes the scene as OpenSCAD source.
func (s Scene) Render(w io.Writer) error {
	return scad.Render(w, s.Header(), s.Root)
}

func shellNode(s Shell) scad.Node {
	return scad.Comment{
		Text: "dome shell",
		Node: scad.Difference{Children: []scad.Node{
			scad.Sphere{R: s.Radius, Segments: s.Segments},
			scad.Sphere{R: s.InnerRadius(), Segments: s.Segments},
		}},
	}
}

// baseCut removes everything below z=0.
func baseCut(s Shell) scad.Node {
	size := s.Radius * 2.5
	return scad.Translate{
		V:        scad.Vec{0, 0, -size / 2},
		Children: []scad.Node{scad.Cube{Size: scad.Vec{size, size, size}, Center: true}},
	}
}

// notch cuts a small slot through the rim at +X for aligning the print.
func notch(s Shell) scad.Node {
	w := math.Max(2*s.Wall, 2)
	return scad.Translate{
		V:        scad.Vec{s.Radius - s.Wall/2, 0, 0},
		Children: []scad.Node{scad.Cube{Size: scad.Vec{3 * s.Wall, w, 2 * w}, Center: true}},
	}
}

func perforationNode(shell Shell, style Style, p Perforation) scad.Node {
	n := p.Point.Normal()
	r := p.Radius

	if style.Primitive == PrimitiveSphere {
		return translate(n.Scale(shell.Radius), scad.Sphere{R: r, Segments: style.Segments})
	}

	var inner, length, r1, r2 float64
	if style.Mode == Union {
		inner = shell.Radius - shell.Wall/2
		length = shell.Wall/2 + style.MarkerHeight
		r1, r2 = r, r
		if style.Primitive == PrimitiveCone {
			r2 = 0
		}
	} else {
		// Start inside the hollow and end outside the shell so the cut is clean.
		inner = math.Max(shell.InnerRadius()-shell.Wall, 0)
		length = shell.Radius + shell.Wall - inner
		r1, r2 = r, r
		if style.Primitive == PrimitiveCone {
			r1 = r * style.Taper
		}
	}

	cyl := scad.Cylinder{H: length, R1: r1, R2: r2, Segments: style.Segments}
	rot := scad.Rotate{A: scad.Vec{0, p.Point.PolarDeg, p.Point.AzDeg}, Children: []scad.Node{cyl}}
	return translate(n.Scale(inner), rot)
}

func translate(v astro.Vec3, child scad.Node) scad.Node {
	return scad.Translate{V: scad.Vec{v.X, v.Y, v.Z}, Children: []scad.Node{child}}
}

const starPrefix = "star "

func starLabel(p Perforation) string {
	return starPrefix + p.Point.ID +
		" mag " + strconv.FormatFloat(p.Point.Mag, 'f', 2, 64) +
		" r " + strconv.FormatFloat(p.Radius, 'f', 3, 64)
}
