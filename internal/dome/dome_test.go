package dome

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/litescript/ls-planetarium/internal/astro"
	"github.com/litescript/ls-planetarium/internal/errs"
	"github.com/litescript/ls-planetarium/internal/projection"
	"github.com/litescript/ls-planetarium/internal/scad"
)

func threeStars() []astro.Star {
	return []astro.Star{
		{ID: "A", RAdeg: 10, DecDeg: 45, Mag: 1},
		{ID: "B", RAdeg: 200, DecDeg: -10, Mag: 5},
		{ID: "C", RAdeg: 10, DecDeg: 45, Mag: 1},
	}
}

func projectAll(t *testing.T, radius float64, stars []astro.Star) []projection.Point {
	t.Helper()
	cfg := projection.DefaultConfig()
	cfg.Radius = radius
	p, err := projection.New(cfg)
	if err != nil {
		t.Fatalf("projection.New() error: %v", err)
	}
	points, excluded := p.ProjectAll(stars)
	if len(excluded) != 0 {
		t.Fatalf("unexpected exclusions: %v", excluded)
	}
	return points
}

func TestSizeScale_Radius(t *testing.T) {
	s := DefaultSizeScale()

	tests := []struct {
		mag  float64
		want float64
	}{
		{6, 1},
		{7.5, 1},
		{-1.5, 3},
		{-4, 3},
		{2.25, 2},
	}
	for _, tt := range tests {
		if got := s.Radius(tt.mag); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("Radius(%v) = %v, want %v", tt.mag, got, tt.want)
		}
	}
}

func TestSizeScale_Monotonic(t *testing.T) {
	s := DefaultSizeScale()
	prev := s.Radius(-3)
	for mag := -3.0; mag <= 8; mag += 0.05 {
		r := s.Radius(mag)
		if r > prev+1e-12 {
			t.Fatalf("Radius(%v) = %v grew past brighter star's %v", mag, r, prev)
		}
		if r <= 0 {
			t.Fatalf("Radius(%v) = %v, want > 0", mag, r)
		}
		prev = r
	}
}

func TestSizeScale_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*SizeScale)
		subject string
	}{
		{"zero min", func(s *SizeScale) { s.MinRadius = 0 }, "minHoleRadius"},
		{"max below min", func(s *SizeScale) { s.MaxRadius = 0.5 }, "maxHoleRadius"},
		{"brightest above limit", func(s *SizeScale) { s.BrightestMag = 7 }, "brightestMag"},
	}

	if err := DefaultSizeScale().Validate(); err != nil {
		t.Fatalf("default scale rejected: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSizeScale()
			tt.mutate(&s)
			err := s.Validate()
			e, ok := err.(*errs.Error)
			if !ok {
				t.Fatalf("Validate() = %v, want *errs.Error", err)
			}
			if e.Code != errs.CodeInvalidProjectionConfig || e.Subject != tt.subject {
				t.Errorf("Validate() = %v, want subject %q", e, tt.subject)
			}
		})
	}
}

func TestPlanPerforations_DuplicateID(t *testing.T) {
	stars := []astro.Star{
		{ID: "Vega", RAdeg: 279.2, DecDeg: 38.8, Mag: 0.03},
		{ID: "Vega", RAdeg: 279.2, DecDeg: 38.8, Mag: 0.03},
		{ID: "Altair", RAdeg: 297.7, DecDeg: 8.9, Mag: 0.77},
	}
	plan := PlanPerforations(projectAll(t, 100, stars), DefaultPlanOptions())

	if len(plan.Perforations) != 2 {
		t.Fatalf("got %d perforations, want 2", len(plan.Perforations))
	}
	if len(plan.Warnings) != 1 {
		t.Fatalf("got %d warnings, want 1", len(plan.Warnings))
	}
	w := plan.Warnings[0]
	if w.Code != errs.CodeDuplicateStarIdentifier || w.Subject != "Vega" {
		t.Errorf("warning = %v, want duplicate Vega", w)
	}
	if w.Code.Fatal() {
		t.Error("duplicate identifiers should not be fatal")
	}
}

func TestPlanPerforations_CoincidentKeepsBrighter(t *testing.T) {
	stars := []astro.Star{
		{ID: "faint", RAdeg: 10, DecDeg: 20, Mag: 4},
		{ID: "bright", RAdeg: 10, DecDeg: 20, Mag: 2},
		{ID: "other", RAdeg: 100, DecDeg: 20, Mag: 3},
	}
	plan := PlanPerforations(projectAll(t, 100, stars), DefaultPlanOptions())

	if len(plan.Perforations) != 2 {
		t.Fatalf("got %d perforations, want 2", len(plan.Perforations))
	}
	if id := plan.Perforations[0].Point.ID; id != "bright" {
		t.Errorf("first perforation = %s, want bright", id)
	}
	if id := plan.Perforations[1].Point.ID; id != "other" {
		t.Errorf("second perforation = %s, want other", id)
	}
	if len(plan.Warnings) != 1 || plan.Warnings[0].Code != errs.CodeCoincidentPerforation ||
		plan.Warnings[0].Subject != "faint" {
		t.Errorf("warnings = %v, want one coincident warning for faint", plan.Warnings)
	}
}

func TestPlanPerforations_CoincidentTieKeepsFirst(t *testing.T) {
	stars := []astro.Star{
		{ID: "Diphda", RAdeg: 10.897, DecDeg: -17.987, Mag: 2.04},
		{ID: "Deneb Kaitos", RAdeg: 10.897, DecDeg: -17.987, Mag: 2.04},
	}
	plan := PlanPerforations(projectAll(t, 100, stars), DefaultPlanOptions())

	if len(plan.Perforations) != 1 || plan.Perforations[0].Point.ID != "Diphda" {
		t.Fatalf("perforations = %+v, want only Diphda", plan.Perforations)
	}
}

func TestPlanPerforations_BelowOutputResolution(t *testing.T) {
	// 2e-5 degrees apart on the equator lands about 2.5e-5 mm apart on a
	// 100 mm dome, closer than the four decimals the scene is written with.
	stars := []astro.Star{
		{ID: "near", RAdeg: 40, DecDeg: 0, Mag: 3},
		{ID: "nearer", RAdeg: 40.00002, DecDeg: 0, Mag: 3},
	}
	points := projectAll(t, 100, stars)
	d := points[0].Position.Distance(points[1].Position)
	if d <= 1e-6 || d >= DefaultCoincidenceTolerance {
		t.Fatalf("test stars are %v mm apart, want between 1e-6 and %v", d, DefaultCoincidenceTolerance)
	}

	plan := PlanPerforations(points, DefaultPlanOptions())
	if len(plan.Perforations) != 1 || plan.Perforations[0].Point.ID != "near" {
		t.Fatalf("perforations = %+v, want only near", plan.Perforations)
	}
	if len(plan.Warnings) != 1 || plan.Warnings[0].Subject != "nearer" {
		t.Errorf("warnings = %v, want one coincident warning for nearer", plan.Warnings)
	}
}

func TestPlanPerforations_AllowCoincident(t *testing.T) {
	opts := DefaultPlanOptions()
	opts.AllowCoincident = true
	plan := PlanPerforations(projectAll(t, 100, threeStars()), opts)

	if len(plan.Perforations) != 3 {
		t.Errorf("got %d perforations, want 3", len(plan.Perforations))
	}
	if len(plan.Warnings) != 0 {
		t.Errorf("got warnings %v, want none", plan.Warnings)
	}
}

func TestShell_Validate(t *testing.T) {
	tests := []struct {
		name    string
		shell   Shell
		subject string
	}{
		{"default", DefaultShell(), ""},
		{"zero radius", Shell{Radius: 0, Wall: 1}, "radius"},
		{"zero wall", Shell{Radius: 100, Wall: 0}, "wallThickness"},
		{"wall too thick", Shell{Radius: 10, Wall: 10}, "wallThickness"},
		{"negative segments", Shell{Radius: 10, Wall: 1, Segments: -1}, "segments"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.shell.Validate()
			if tt.subject == "" {
				if err != nil {
					t.Fatalf("Validate() error: %v", err)
				}
				return
			}
			e, ok := err.(*errs.Error)
			if !ok || e.Subject != tt.subject {
				t.Errorf("Validate() = %v, want subject %q", err, tt.subject)
			}
		})
	}
}

func TestStyle_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Style)
		wantErr bool
	}{
		{"default", func(*Style) {}, false},
		{"cone", func(s *Style) { s.Primitive = PrimitiveCone }, false},
		{"raised spheres", func(s *Style) { s.Mode = Union; s.Primitive = PrimitiveSphere }, false},
		{"unknown mode", func(s *Style) { s.Mode = "engrave" }, true},
		{"unknown primitive", func(s *Style) { s.Primitive = "star" }, true},
		{"raise without height", func(s *Style) { s.Mode = Union; s.MarkerHeight = 0 }, true},
		{"cone taper zero", func(s *Style) { s.Primitive = PrimitiveCone; s.Taper = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultStyle()
			tt.mutate(&s)
			err := s.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func buildScene(t *testing.T, style Style) Scene {
	t.Helper()
	shell := DefaultShell()
	shell.Radius = 100
	plan := PlanPerforations(projectAll(t, shell.Radius, threeStars()), DefaultPlanOptions())
	scene, err := Build(shell, style, plan.Perforations)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	return scene
}

func isCylinder(n scad.Node) bool {
	_, ok := n.(scad.Cylinder)
	return ok
}

func TestBuild_ThreeStarScenario(t *testing.T) {
	scene := buildScene(t, DefaultStyle())

	if len(scene.Perforations) != 2 {
		t.Fatalf("got %d perforations, want 2", len(scene.Perforations))
	}
	if n := scene.StarCount(); n != 2 {
		t.Errorf("StarCount() = %d, want 2", n)
	}
	if n := scad.Count(scene.Root, isCylinder); n != 2 {
		t.Errorf("scene has %d cylinders, want 2", n)
	}

	radii := map[string]float64{}
	for _, p := range scene.Perforations {
		radii[p.Point.ID] = p.Radius
	}
	a, okA := radii["A"]
	b, okB := radii["B"]
	if !okA || !okB {
		t.Fatalf("perforations = %v, want A and B", radii)
	}
	if !(a > b) {
		t.Errorf("A radius %v should exceed B radius %v", a, b)
	}
}

func TestBuild_PerforationCrossesShell(t *testing.T) {
	scene := buildScene(t, DefaultStyle())
	shell := scene.Shell

	for _, p := range scene.Perforations {
		node := perforationNode(shell, scene.Style, p)
		tr, ok := node.(scad.Translate)
		if !ok {
			t.Fatalf("perforation node is %T, want Translate", node)
		}
		start := math.Sqrt(tr.V[0]*tr.V[0] + tr.V[1]*tr.V[1] + tr.V[2]*tr.V[2])
		cyl := tr.Children[0].(scad.Rotate).Children[0].(scad.Cylinder)

		if start >= shell.InnerRadius() {
			t.Errorf("%s: cut starts at %v, inside the wall", p.Point.ID, start)
		}
		if start+cyl.H <= shell.Radius {
			t.Errorf("%s: cut ends at %v, short of the outer surface", p.Point.ID, start+cyl.H)
		}
	}
}

func TestBuild_RaisedMarkers(t *testing.T) {
	style := DefaultStyle()
	style.Mode = Union
	style.Primitive = PrimitiveCone
	scene := buildScene(t, style)

	diff, ok := scene.Root.(scad.Difference)
	if !ok {
		t.Fatalf("root is %T, want Difference", scene.Root)
	}
	body, ok := diff.Children[0].(scad.Union)
	if !ok {
		t.Fatalf("first child is %T, want Union", diff.Children[0])
	}
	// shell plus two markers
	if len(body.Children) != 3 {
		t.Errorf("union has %d children, want 3", len(body.Children))
	}

	var buf bytes.Buffer
	if err := scene.Render(&buf); err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if !strings.Contains(buf.String(), "r2 = 0") {
		t.Error("raised cones should taper to a point")
	}
}

func TestScene_RenderIdempotent(t *testing.T) {
	var first, second bytes.Buffer
	if err := buildScene(t, DefaultStyle()).Render(&first); err != nil {
		t.Fatal(err)
	}
	if err := buildScene(t, DefaultStyle()).Render(&second); err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Error("two runs with identical input produced different output")
	}

	out := first.String()
	for _, want := range []string{
		"dome_radius = 100;",
		"wall_thickness = 3;",
		"star_count = 2;",
		"// star A mag 1.00",
		"// star B mag 5.00",
		"difference() {",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if strings.Contains(out, "star C") {
		t.Error("coincident star C should have been merged into A")
	}
}

func TestBuild_RejectsInvalid(t *testing.T) {
	_, err := Build(Shell{Radius: 10, Wall: 20}, DefaultStyle(), nil)
	if !errs.Has(err, errs.CodeInvalidProjectionConfig) {
		t.Errorf("Build() error = %v, want %s", err, errs.CodeInvalidProjectionConfig)
	}
}
