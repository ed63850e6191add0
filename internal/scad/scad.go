// Package scad builds constructive solid geometry trees and renders them as
// OpenSCAD source.
//
// Rendering is deterministic: the same tree always produces the same bytes.
package scad

import (
	"bufio"
	"io"
	"math"
	"strconv"
	"strings"
)

// Vec is a 3-component vector in model units.
type Vec [3]float64

// Node is an element of the scene graph.
type Node interface {
	render(w *writer)
}

// Sphere is a sphere centered at the origin.
type Sphere struct {
	R        float64
	Segments int
}

// Cylinder is a cylinder or cone along +Z. R1 is the radius at z=0 (or at
// -H/2 when centered), R2 at the other end.
type Cylinder struct {
	H        float64
	R1, R2   float64
	Center   bool
	Segments int
}

// Cube is an axis-aligned box.
type Cube struct {
	Size   Vec
	Center bool
}

// Translate moves its children by V.
type Translate struct {
	V        Vec
	Children []Node
}

// Rotate applies Euler rotations about X, then Y, then Z, in degrees.
type Rotate struct {
	A        Vec
	Children []Node
}

// Union merges its children.
type Union struct {
	Children []Node
}

// Difference subtracts every child after the first from the first.
type Difference struct {
	Children []Node
}

// Comment emits a line comment before its node. Comments survive editing in
// OpenSCAD and let a reader find a given star in the file.
type Comment struct {
	Text string
	Node Node
}

func (s Sphere) render(w *writer) {
	w.line("sphere(r = " + num(s.R) + segments(s.Segments) + ");")
}

func (c Cylinder) render(w *writer) {
	args := "h = " + num(c.H)
	if c.R1 == c.R2 {
		args += ", r = " + num(c.R1)
	} else {
		args += ", r1 = " + num(c.R1) + ", r2 = " + num(c.R2)
	}
	if c.Center {
		args += ", center = true"
	}
	w.line("cylinder(" + args + segments(c.Segments) + ");")
}

func (c Cube) render(w *writer) {
	args := vec(c.Size)
	if c.Center {
		args += ", center = true"
	}
	w.line("cube(" + args + ");")
}

func (t Translate) render(w *writer) {
	w.block("translate("+vec(t.V)+")", t.Children)
}

func (r Rotate) render(w *writer) {
	w.block("rotate("+vec(r.A)+")", r.Children)
}

func (u Union) render(w *writer) {
	w.block("union()", u.Children)
}

func (d Difference) render(w *writer) {
	w.block("difference()", d.Children)
}

func (c Comment) render(w *writer) {
	for _, l := range strings.Split(c.Text, "\n") {
		w.line("// " + l)
	}
	if c.Node != nil {
		c.Node.render(w)
	}
}

// Header describes the generated file. Lines are written as comments at the
// top; Vars become top-level OpenSCAD assignments in the given order.
type Header struct {
	Lines []string
	Vars  []Var
}

// Var is a named top-level value.
type Var struct {
	Name  string
	Value float64
}

// Render writes the OpenSCAD source for root to w.
func Render(out io.Writer, h Header, root Node) error {
	bw := bufio.NewWriter(out)
	w := &writer{bw: bw}

	for _, l := range h.Lines {
		w.line("// " + l)
	}
	if len(h.Lines) > 0 {
		w.blank()
	}
	for _, v := range h.Vars {
		w.line(v.Name + " = " + num(v.Value) + ";")
	}
	if len(h.Vars) > 0 {
		w.blank()
	}

	if root != nil {
		root.render(w)
	}

	if w.err != nil {
		return w.err
	}
	return bw.Flush()
}

// writer tracks indentation and the first write error.
type writer struct {
	bw     *bufio.Writer
	indent int
	err    error
}

func (w *writer) line(s string) {
	if w.err != nil {
		return
	}
	_, w.err = w.bw.WriteString(strings.Repeat("  ", w.indent) + s + "\n")
}

func (w *writer) blank() {
	if w.err != nil {
		return
	}
	_, w.err = w.bw.WriteString("\n")
}

func (w *writer) block(head string, children []Node) {
	if len(children) == 0 {
		w.line(head + ";")
		return
	}
	w.line(head + " {")
	w.indent++
	for _, c := range children {
		c.render(w)
	}
	w.indent--
	w.line("}")
}

func segments(n int) string {
	if n <= 0 {
		return ""
	}
	return ", $fn = " + strconv.Itoa(n)
}

func vec(v Vec) string {
	return "[" + num(v[0]) + ", " + num(v[1]) + ", " + num(v[2]) + "]"
}

// num formats a length or angle with four decimals, trims trailing zeros and
// never prints negative zero.
func num(f float64) string {
	r := math.Round(f*1e4) / 1e4
	if r == 0 {
		return "0"
	}
	s := strconv.FormatFloat(r, 'f', 4, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
