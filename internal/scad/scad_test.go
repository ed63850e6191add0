package scad

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestNum(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{-0.00001, "0"},
		{1, "1"},
		{1.5, "1.5"},
		{-2.25, "-2.25"},
		{0.1 + 0.2, "0.3"},
		{147.123456, "147.1235"},
		{-1e-5, "0"},
		{100, "100"},
	}

	for _, tt := range tests {
		if got := num(tt.in); got != tt.want {
			t.Errorf("num(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRender_Primitives(t *testing.T) {
	tests := []struct {
		name string
		node Node
		want string
	}{
		{"sphere", Sphere{R: 150, Segments: 120}, "sphere(r = 150, $fn = 120);\n"},
		{"sphere default segments", Sphere{R: 2}, "sphere(r = 2);\n"},
		{"cylinder", Cylinder{H: 9, R1: 1.5, R2: 1.5, Segments: 16}, "cylinder(h = 9, r = 1.5, $fn = 16);\n"},
		{"cone", Cylinder{H: 9, R1: 0.75, R2: 1.5}, "cylinder(h = 9, r1 = 0.75, r2 = 1.5);\n"},
		{"centered cube", Cube{Size: Vec{375, 375, 375}, Center: true}, "cube([375, 375, 375], center = true);\n"},
		{"empty union", Union{}, "union();\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Render(&buf, Header{}, tt.node); err != nil {
				t.Fatalf("Render() error: %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("Render() = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestRender_NestedTree(t *testing.T) {
	root := Difference{Children: []Node{
		Sphere{R: 10},
		Comment{Text: "star A", Node: Translate{
			V: Vec{1, 2, 3},
			Children: []Node{Rotate{
				A:        Vec{0, 45, 90},
				Children: []Node{Cylinder{H: 4, R1: 1, R2: 1}},
			}},
		}},
	}}

	h := Header{
		Lines: []string{"generated"},
		Vars:  []Var{{Name: "dome_radius", Value: 10}},
	}

	var buf bytes.Buffer
	if err := Render(&buf, h, root); err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	want := strings.Join([]string{
		"// generated",
		"",
		"dome_radius = 10;",
		"",
		"difference() {",
		"  sphere(r = 10);",
		"  // star A",
		"  translate([1, 2, 3]) {",
		"    rotate([0, 45, 90]) {",
		"      cylinder(h = 4, r = 1);",
		"    }",
		"  }",
		"}",
		"",
	}, "\n")

	if buf.String() != want {
		t.Errorf("Render() =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestRender_Deterministic(t *testing.T) {
	root := Union{Children: []Node{
		Sphere{R: 1.0 / 3.0},
		Translate{V: Vec{-0.0, 1e-9, 2.0 / 3.0}, Children: []Node{Cube{Size: Vec{1, 1, 1}}}},
	}}

	var a, b bytes.Buffer
	if err := Render(&a, Header{}, root); err != nil {
		t.Fatal(err)
	}
	if err := Render(&b, Header{}, root); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Error("rendering the same tree twice produced different bytes")
	}
	if strings.Contains(a.String(), "-0") {
		t.Errorf("negative zero leaked into output:\n%s", a.String())
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestRender_PropagatesWriteError(t *testing.T) {
	// Enough output to overflow the bufio buffer before Flush
	var children []Node
	for i := 0; i < 500; i++ {
		children = append(children, Sphere{R: float64(i), Segments: 32})
	}

	err := Render(failingWriter{}, Header{}, Union{Children: children})
	if err == nil {
		t.Fatal("Render() should report the write error")
	}
}

func TestCount(t *testing.T) {
	root := Difference{Children: []Node{
		Sphere{R: 10},
		Comment{Text: "a", Node: Translate{Children: []Node{Cylinder{H: 1, R1: 1, R2: 1}}}},
		Comment{Text: "b", Node: Translate{Children: []Node{Cylinder{H: 1, R1: 2, R2: 2}}}},
	}}

	cylinders := Count(root, func(n Node) bool {
		_, ok := n.(Cylinder)
		return ok
	})
	if cylinders != 2 {
		t.Errorf("Count(cylinders) = %d, want 2", cylinders)
	}

	visited := 0
	Walk(root, func(n Node) bool {
		visited++
		_, isComment := n.(Comment)
		return !isComment
	})
	// difference, sphere and two comments; children of comments skipped
	if visited != 4 {
		t.Errorf("Walk visited %d nodes, want 4", visited)
	}
}
