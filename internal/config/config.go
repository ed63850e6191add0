// Package config holds the run configuration and loads it from CUE files.
package config

import (
	"time"

	"github.com/litescript/ls-planetarium/internal/astro"
	"github.com/litescript/ls-planetarium/internal/catalog"
	"github.com/litescript/ls-planetarium/internal/dome"
	"github.com/litescript/ls-planetarium/internal/errs"
	"github.com/litescript/ls-planetarium/internal/projection"
)

// Catalog source names.
const (
	SourceGaia    = "gaia"
	SourceBuiltin = "builtin"
)

// Config is the full run configuration. It is a plain value passed
// explicitly through the pipeline.
type Config struct {
	SchemaVersion string           `json:"schemaVersion"`
	Catalog       CatalogConfig    `json:"catalog"`
	Groups        []GroupConfig    `json:"groups"`
	Projection    ProjectionConfig `json:"projection"`
	Dome          DomeConfig       `json:"dome"`
	Output        OutputConfig     `json:"output"`
	LogLevel      string           `json:"logLevel"`
}

// CatalogConfig selects the stars.
type CatalogConfig struct {
	Source         string   `json:"source"`
	MagnitudeLimit float64  `json:"magnitudeLimit"`
	Names          []string `json:"names"`
	Constellations []string `json:"constellations"`
	MaxRows        int      `json:"maxRows"`
	URL            string   `json:"url"`
	TimeoutSeconds float64  `json:"timeoutSeconds"`
	AllowEmpty     bool     `json:"allowEmpty"`
}

// GroupConfig is a named star group.
type GroupConfig struct {
	Name  string   `json:"name"`
	Stars []string `json:"stars"`
}

// ProjectionConfig places the sky on the dome.
type ProjectionConfig struct {
	Kind        string          `json:"kind"`
	FieldDeg    float64         `json:"fieldDeg"`
	Horizon     string          `json:"horizon"`
	ZenithRA    float64         `json:"zenithRA"`
	ZenithDec   float64         `json:"zenithDec"`
	RotationDeg float64         `json:"rotationDeg"`
	Observer    *ObserverConfig `json:"observer,omitempty"`
}

// ObserverConfig replaces the fixed zenith with the sky overhead at a site.
type ObserverConfig struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Time string  `json:"time"` // RFC 3339
}

// DomeConfig describes the shell and the star primitives.
type DomeConfig struct {
	Radius          float64 `json:"radius"`
	WallThickness   float64 `json:"wallThickness"`
	Segments        int     `json:"segments"`
	Notch           bool    `json:"notch"`
	Mode            string  `json:"mode"`
	Primitive       string  `json:"primitive"`
	HoleSegments    int     `json:"holeSegments"`
	MarkerHeight    float64 `json:"markerHeight"`
	Taper           float64 `json:"taper"`
	MinHoleRadius   float64 `json:"minHoleRadius"`
	MaxHoleRadius   float64 `json:"maxHoleRadius"`
	BrightestMag    float64 `json:"brightestMag"`
	AllowCoincident bool    `json:"allowCoincident"`
}

// OutputConfig says where the scene goes.
type OutputConfig struct {
	Path    string `json:"path"`
	Publish string `json:"publish"` // s3://bucket/prefix, empty to skip
}

// Default returns the configuration used when no file is given. It matches
// the defaults of the embedded schema.
func Default() Config {
	pc := projection.DefaultConfig()
	shell := dome.DefaultShell()
	style := dome.DefaultStyle()
	scale := dome.DefaultSizeScale()

	var groups []GroupConfig
	for _, g := range catalog.DefaultGroups() {
		groups = append(groups, GroupConfig{Name: g.Name, Stars: g.Stars})
	}

	return Config{
		SchemaVersion: SchemaVersion,
		Catalog: CatalogConfig{
			Source:         SourceGaia,
			MagnitudeLimit: scale.LimitMag,
			Names:          []string{},
			Constellations: []string{},
			MaxRows:        catalog.DefaultMaxRows,
			TimeoutSeconds: catalog.DefaultTimeout.Seconds(),
		},
		Groups: groups,
		Projection: ProjectionConfig{
			Kind:        string(pc.Kind),
			FieldDeg:    pc.FieldDeg,
			Horizon:     string(pc.Horizon),
			ZenithRA:    pc.Orientation.ZenithRA,
			ZenithDec:   pc.Orientation.ZenithDec,
			RotationDeg: pc.Orientation.RotationDeg,
		},
		Dome: DomeConfig{
			Radius:        shell.Radius,
			WallThickness: shell.Wall,
			Segments:      shell.Segments,
			Notch:         shell.Notch,
			Mode:          string(style.Mode),
			Primitive:     string(style.Primitive),
			HoleSegments:  style.Segments,
			MarkerHeight:  style.MarkerHeight,
			Taper:         style.Taper,
			MinHoleRadius: scale.MinRadius,
			MaxHoleRadius: scale.MaxRadius,
			BrightestMag:  scale.BrightestMag,
		},
		Output: OutputConfig{
			Path: "dome.scad",
		},
		LogLevel: "info",
	}
}

// ProjectionConfig converts the projection settings. Radius comes from the
// dome section.
func (c Config) ProjectionConfig() (projection.Config, error) {
	p := c.Projection
	kind, err := projection.ParseKind(p.Kind)
	if err != nil {
		return projection.Config{}, err
	}

	orient := projection.Orientation{
		ZenithRA:    p.ZenithRA,
		ZenithDec:   p.ZenithDec,
		RotationDeg: p.RotationDeg,
	}
	if p.Observer != nil {
		t, err := time.Parse(time.RFC3339, p.Observer.Time)
		if err != nil {
			return projection.Config{}, errs.Wrap(err, errs.CodeInvalidProjectionConfig,
				"projection.observer.time", "must be an RFC 3339 timestamp")
		}
		if p.Observer.Lat < -90 || p.Observer.Lat > 90 {
			return projection.Config{}, errs.Newf(errs.CodeInvalidProjectionConfig,
				"projection.observer.lat", "must be in [-90, 90], got %v", p.Observer.Lat)
		}
		orient = projection.OrientationForObserver(astro.Observer{
			LatDeg: p.Observer.Lat,
			LonDeg: p.Observer.Lon,
		}, t)
		orient.RotationDeg = p.RotationDeg
	}

	return projection.Config{
		Radius:      c.Dome.Radius,
		Kind:        kind,
		FieldDeg:    p.FieldDeg,
		Horizon:     projection.HorizonPolicy(p.Horizon),
		Orientation: orient,
	}, nil
}

// Shell returns the dome shell.
func (c Config) Shell() dome.Shell {
	return dome.Shell{
		Radius:   c.Dome.Radius,
		Wall:     c.Dome.WallThickness,
		Segments: c.Dome.Segments,
		Notch:    c.Dome.Notch,
	}
}

// Style returns the per-star primitive style.
func (c Config) Style() dome.Style {
	return dome.Style{
		Mode:         dome.Mode(c.Dome.Mode),
		Primitive:    dome.Primitive(c.Dome.Primitive),
		Segments:     c.Dome.HoleSegments,
		MarkerHeight: c.Dome.MarkerHeight,
		Taper:        c.Dome.Taper,
	}
}

// PlanOptions returns the sizing and coincidence settings.
func (c Config) PlanOptions() dome.PlanOptions {
	opts := dome.DefaultPlanOptions()
	opts.Scale = dome.SizeScale{
		LimitMag:     c.Catalog.MagnitudeLimit,
		BrightestMag: c.Dome.BrightestMag,
		MinRadius:    c.Dome.MinHoleRadius,
		MaxRadius:    c.Dome.MaxHoleRadius,
	}
	opts.AllowCoincident = c.Dome.AllowCoincident
	return opts
}

// CatalogGroups returns the configured star groups.
func (c Config) CatalogGroups() []catalog.Group {
	out := make([]catalog.Group, len(c.Groups))
	for i, g := range c.Groups {
		out[i] = catalog.Group{Name: g.Name, Stars: g.Stars}
	}
	return out
}

// Query builds the catalog query. Selected constellations expand to their
// member stars and join the explicit names.
func (c Config) Query() (catalog.Query, error) {
	names := append([]string(nil), c.Catalog.Names...)
	if len(c.Catalog.Constellations) > 0 {
		members, err := catalog.ExpandGroups(c.CatalogGroups(), c.Catalog.Constellations)
		if err != nil {
			return catalog.Query{}, err
		}
		names = appendNew(names, members)
	}

	return catalog.Query{
		MagnitudeLimit: c.Catalog.MagnitudeLimit,
		Names:          names,
		MaxRows:        c.Catalog.MaxRows,
	}, nil
}

// Timeout returns the catalog request timeout.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.Catalog.TimeoutSeconds * float64(time.Second))
}

func appendNew(dst, src []string) []string {
	seen := make(map[string]bool, len(dst))
	for _, s := range dst {
		seen[s] = true
	}
	for _, s := range src {
		if !seen[s] {
			seen[s] = true
			dst = append(dst, s)
		}
	}
	return dst
}
