// Package projection maps star positions onto the dome shell.
//
// A Projector first rotates the celestial sphere so the configured zenith
// sits at the dome's +Z axis, then compresses or expands the polar angle
// with one of the azimuthal sky projections, and finally lifts the result
// onto a hemisphere of the dome radius.
package projection

import (
	"fmt"
	"math"
	"time"

	"github.com/litescript/ls-planetarium/internal/astro"
	"github.com/litescript/ls-planetarium/internal/errs"
)

// Kind selects the sky projection.
type Kind string

const (
	// Equidistant keeps angular distance from the zenith proportional.
	// With a 90 degree field the dome shows the true sky.
	Equidistant Kind = "equidistant"

	// Stereographic preserves shapes and stretches the rim.
	Stereographic Kind = "stereographic"

	// Orthographic is the sky seen from far outside; fields up to 90 degrees.
	Orthographic Kind = "orthographic"

	// EqualArea is Lambert's azimuthal equal-area projection.
	EqualArea Kind = "equal-area"
)

// Kinds lists every supported projection.
var Kinds = []Kind{Equidistant, Stereographic, Orthographic, EqualArea}

// HorizonPolicy decides what happens to stars outside the field.
type HorizonPolicy string

const (
	// Exclude drops stars beyond the field.
	Exclude HorizonPolicy = "exclude"

	// Clip pins stars beyond the field to the dome rim.
	Clip HorizonPolicy = "clip"
)

// Orientation places the sky on the dome.
type Orientation struct {
	ZenithRA    float64 // RA of the sky point drawn at the dome top, degrees
	ZenithDec   float64 // Dec of the sky point drawn at the dome top, degrees
	RotationDeg float64 // Spin about the dome axis, degrees, counterclockwise seen from above
}

// OrientationForObserver returns the orientation that shows the sky overhead
// from obs at time t.
func OrientationForObserver(obs astro.Observer, t time.Time) Orientation {
	ra, dec := astro.ZenithAt(obs, t)
	return Orientation{ZenithRA: ra, ZenithDec: dec}
}

// Config holds projection parameters.
type Config struct {
	Radius      float64 // Dome outer radius in model units (mm)
	Kind        Kind
	FieldDeg    float64 // Angular radius of sky mapped onto the dome, (0, 180]
	Horizon     HorizonPolicy
	Orientation Orientation
}

// DefaultConfig maps the whole sky onto a 150 mm dome with the north
// celestial pole at the top.
func DefaultConfig() Config {
	return Config{
		Radius:   150,
		Kind:     Equidistant,
		FieldDeg: 180,
		Horizon:  Exclude,
		Orientation: Orientation{
			ZenithRA:  0,
			ZenithDec: 90,
		},
	}
}

// Validate rejects configurations the projector cannot honor.
func (c Config) Validate() error {
	for _, f := range []struct {
		key string
		v   float64
	}{
		{"radius", c.Radius},
		{"fieldDeg", c.FieldDeg},
		{"zenithRA", c.Orientation.ZenithRA},
		{"zenithDec", c.Orientation.ZenithDec},
		{"rotationDeg", c.Orientation.RotationDeg},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return errs.Newf(errs.CodeInvalidProjectionConfig, f.key, "must be finite, got %v", f.v)
		}
	}

	if c.Radius <= 0 {
		return errs.Newf(errs.CodeInvalidProjectionConfig, "radius", "must be > 0, got %v", c.Radius)
	}
	if c.FieldDeg <= 0 || c.FieldDeg > 180 {
		return errs.Newf(errs.CodeInvalidProjectionConfig, "fieldDeg", "must be in (0, 180], got %v", c.FieldDeg)
	}
	if c.Orientation.ZenithDec < -90 || c.Orientation.ZenithDec > 90 {
		return errs.Newf(errs.CodeInvalidProjectionConfig, "zenithDec", "must be in [-90, 90], got %v", c.Orientation.ZenithDec)
	}

	switch c.Kind {
	case Equidistant, EqualArea:
	case Stereographic:
		if c.FieldDeg >= 180 {
			return errs.Newf(errs.CodeInvalidProjectionConfig, "fieldDeg",
				"stereographic projection needs a field below 180, got %v", c.FieldDeg)
		}
	case Orthographic:
		if c.FieldDeg > 90 {
			return errs.Newf(errs.CodeInvalidProjectionConfig, "fieldDeg",
				"orthographic projection needs a field of at most 90, got %v", c.FieldDeg)
		}
	default:
		return errs.Newf(errs.CodeInvalidProjectionConfig, "projection", "unknown kind %q", c.Kind)
	}

	switch c.Horizon {
	case Exclude, Clip:
	default:
		return errs.Newf(errs.CodeInvalidProjectionConfig, "horizon", "unknown policy %q", c.Horizon)
	}

	return nil
}

// ParseKind parses a projection name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", errs.Newf(errs.CodeInvalidProjectionConfig, "projection", "unknown kind %q", s)
}

// Point is a star placed on the dome.
type Point struct {
	ID       string
	Mag      float64
	Position astro.Vec3 // Model coordinates; |Position| == radius
	PolarDeg float64    // Angle from the dome top, 0..90
	AzDeg    float64    // Angle around the dome axis from +X, 0..360
	Clipped  bool       // Star lay outside the field and was pinned to the rim
}

// Normal returns the outward unit normal at the point.
func (p Point) Normal() astro.Vec3 {
	return p.Position.Normalized()
}

// Projector projects stars with a fixed configuration.
type Projector struct {
	cfg      Config
	toDome   astro.Mat3
	rhoScale float64
}

// New validates cfg and builds a Projector.
func New(cfg Config) (*Projector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Projector{
		cfg:    cfg,
		toDome: domeRotation(cfg.Orientation),
	}
	p.rhoScale = 1 / p.rawRho(degToRad(cfg.FieldDeg))
	return p, nil
}

// Config returns the projector's configuration.
func (p *Projector) Config() Config {
	return p.cfg
}

// Project places a star on the dome. ok is false when the star lies outside
// the field and the horizon policy excludes it.
func (p *Projector) Project(star astro.Star) (pt Point, ok bool) {
	dir := p.toDome.Apply(astro.EquatorialToVec(star.RAdeg, star.DecDeg))

	theta := math.Acos(clamp(dir.Z, -1, 1))
	phi := math.Atan2(dir.Y, dir.X)

	field := degToRad(p.cfg.FieldDeg)
	clipped := false
	if theta > field {
		if p.cfg.Horizon == Exclude {
			return Point{ID: star.ID, Mag: star.Mag}, false
		}
		theta = field
		clipped = true
	}

	polar := p.rho(theta) * math.Pi / 2
	sinP, cosP := math.Sin(polar), math.Cos(polar)
	r := p.cfg.Radius

	return Point{
		ID:  star.ID,
		Mag: star.Mag,
		Position: astro.Vec3{
			X: r * sinP * math.Cos(phi),
			Y: r * sinP * math.Sin(phi),
			Z: r * cosP,
		},
		PolarDeg: astro.RadToDeg(polar),
		AzDeg:    astro.NormalizeDegrees(astro.RadToDeg(phi)),
		Clipped:  clipped,
	}, true
}

// Excluded reports a star the projector dropped.
type Excluded struct {
	Star     astro.Star
	ThetaDeg float64 // Angle from the zenith
}

func (e Excluded) String() string {
	return fmt.Sprintf("%s is %.1f deg from the zenith", e.Star.ID, e.ThetaDeg)
}

// ProjectAll projects stars in order and returns the dropped ones separately.
func (p *Projector) ProjectAll(stars []astro.Star) ([]Point, []Excluded) {
	points := make([]Point, 0, len(stars))
	var excluded []Excluded
	for _, s := range stars {
		pt, ok := p.Project(s)
		if !ok {
			excluded = append(excluded, Excluded{Star: s, ThetaDeg: p.ZenithDistance(s)})
			continue
		}
		points = append(points, pt)
	}
	return points, excluded
}

// ZenithDistance returns the angle in degrees between the configured zenith
// and the star.
func (p *Projector) ZenithDistance(star astro.Star) float64 {
	o := p.cfg.Orientation
	return astro.AngularSeparation(o.ZenithRA, o.ZenithDec, star.RAdeg, star.DecDeg)
}

// rho maps a zenith angle in radians to a normalized disc radius with
// rho(field) == 1.
func (p *Projector) rho(theta float64) float64 {
	v := p.rawRho(theta) * p.rhoScale
	return clamp(v, 0, 1)
}

func (p *Projector) rawRho(theta float64) float64 {
	switch p.cfg.Kind {
	case Stereographic:
		return math.Tan(theta / 2)
	case Orthographic:
		return math.Sin(theta)
	case EqualArea:
		return math.Sin(theta / 2)
	default:
		return theta
	}
}

// domeRotation builds the rotation from the equatorial frame to the dome
// frame: the zenith goes to +Z, celestial north to +X, then the calibration
// spin is applied.
func domeRotation(o Orientation) astro.Mat3 {
	toMeridian := astro.RotationZ(-o.ZenithRA)
	tilt := astro.RotationY(o.ZenithDec - 90)
	spin := astro.RotationZ(180 + o.RotationDeg)
	return spin.Mul(tilt).Mul(toMeridian)
}

func degToRad(deg float64) float64 {
	return astro.DegToRad(deg)
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
