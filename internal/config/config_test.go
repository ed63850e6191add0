package config

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litescript/ls-planetarium/internal/dome"
	"github.com/litescript/ls-planetarium/internal/errs"
	"github.com/litescript/ls-planetarium/internal/projection"
)

func TestDefault_Valid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestParse_EmptyFileMatchesDefault(t *testing.T) {
	cfg, err := Parse("empty.cue", nil)
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, def.SchemaVersion, cfg.SchemaVersion)
	assert.Equal(t, def.Catalog.Source, cfg.Catalog.Source)
	assert.Equal(t, def.Catalog.MagnitudeLimit, cfg.Catalog.MagnitudeLimit)
	assert.Equal(t, def.Catalog.MaxRows, cfg.Catalog.MaxRows)
	assert.Equal(t, def.Catalog.TimeoutSeconds, cfg.Catalog.TimeoutSeconds)
	assert.Equal(t, def.Projection, cfg.Projection)
	assert.Equal(t, def.Dome, cfg.Dome)
	assert.Equal(t, def.Output, cfg.Output)
	assert.Equal(t, def.LogLevel, cfg.LogLevel)
	assert.Equal(t, def.Groups, cfg.Groups)
	assert.Empty(t, cfg.Catalog.Names)

	require.NoError(t, cfg.Validate())
}

func TestLoad_OverridesDefaults(t *testing.T) {
	fs := memfs.New()
	src := `
schemaVersion: "1.2.0"
catalog: {
	source:         "builtin"
	magnitudeLimit: 4.5
	constellations: ["Ema (Guyra Nhandu)"]
}
projection: {
	kind:      "stereographic"
	fieldDeg:  120
	zenithRA:  186.5
	zenithDec: -60
}
dome: {
	radius:    100
	primitive: "cone"
}
output: path: "out/cruzeiro.scad"
`
	require.NoError(t, util.WriteFile(fs, "dome.cue", []byte(src), 0o644))

	cfg, err := Load(fs, "dome.cue")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, SourceBuiltin, cfg.Catalog.Source)
	assert.Equal(t, 4.5, cfg.Catalog.MagnitudeLimit)
	assert.Equal(t, 3.0, cfg.Dome.WallThickness, "unset fields keep defaults")
	assert.Equal(t, "out/cruzeiro.scad", cfg.Output.Path)

	pc, err := cfg.ProjectionConfig()
	require.NoError(t, err)
	assert.Equal(t, projection.Stereographic, pc.Kind)
	assert.Equal(t, 100.0, pc.Radius)
	assert.Equal(t, -60.0, pc.Orientation.ZenithDec)

	assert.Equal(t, dome.PrimitiveCone, cfg.Style().Primitive)

	q, err := cfg.Query()
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha Crucis", "Beta Crucis", "Gamma Crucis", "Delta Crucis", "Epsilon Crucis"}, q.Names)
	assert.Equal(t, 4.5, q.MagnitudeLimit)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(memfs.New(), "nope.cue")
	require.Error(t, err)
	assert.True(t, errs.Has(err, errs.CodeInvalidProjectionConfig))
	assert.Contains(t, err.Error(), "nope.cue")
}

func TestParse_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown field", `dome: colour: "red"`},
		{"bad enum", `projection: kind: "mercator"`},
		{"wrong type", `dome: radius: "large"`},
		{"syntax", `dome: {`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("bad.cue", []byte(tt.src))
			require.Error(t, err)
			assert.True(t, errs.Has(err, errs.CodeInvalidProjectionConfig), "got %v", err)
		})
	}
}

func TestCheckSchemaVersion(t *testing.T) {
	tests := []struct {
		version string
		wantErr bool
	}{
		{"1.0.0", false},
		{"1.4.2", false},
		{"2.0.0", true},
		{"0.9.0", true},
		{"latest", true},
	}

	for _, tt := range tests {
		err := CheckSchemaVersion(tt.version)
		if tt.wantErr {
			assert.Error(t, err, tt.version)
			continue
		}
		assert.NoError(t, err, tt.version)
	}
}

func TestValidate_NamesOffendingKey(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		subject string
	}{
		{"source", func(c *Config) { c.Catalog.Source = "simbad" }, "catalog.source"},
		{"timeout", func(c *Config) { c.Catalog.TimeoutSeconds = 0 }, "catalog.timeoutSeconds"},
		{"constellation", func(c *Config) { c.Catalog.Constellations = []string{"Orion"} }, "Orion"},
		{"radius", func(c *Config) { c.Dome.Radius = -1 }, "radius"},
		{"wall", func(c *Config) { c.Dome.WallThickness = 200 }, "wallThickness"},
		{"projection", func(c *Config) { c.Projection.Kind = "mercator" }, "projection"},
		{"field", func(c *Config) { c.Projection.FieldDeg = 0 }, "fieldDeg"},
		{"orthographic field", func(c *Config) {
			c.Projection.Kind = "orthographic"
			c.Projection.FieldDeg = 120
		}, "fieldDeg"},
		{"zenith", func(c *Config) { c.Projection.ZenithDec = 95 }, "zenithDec"},
		{"observer time", func(c *Config) {
			c.Projection.Observer = &ObserverConfig{Lat: -15.8, Lon: -47.9, Time: "tonight"}
		}, "projection.observer.time"},
		{"hole sizes", func(c *Config) { c.Dome.MaxHoleRadius = 0.5 }, "maxHoleRadius"},
		{"mode", func(c *Config) { c.Dome.Mode = "engrave" }, "mode"},
		{"output", func(c *Config) { c.Output.Path = "" }, "output.path"},
		{"publish", func(c *Config) { c.Output.Publish = "ftp://host/x" }, "output.publish"},
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "logLevel"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var e *errs.Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, errs.CodeInvalidProjectionConfig, e.Code)
			assert.Equal(t, tt.subject, e.Subject)
		})
	}
}

func TestProjectionConfig_Observer(t *testing.T) {
	cfg := Default()
	cfg.Projection.Observer = &ObserverConfig{Lat: -15.8, Lon: -47.9, Time: "2024-06-21T02:00:00Z"}
	cfg.Projection.RotationDeg = 30

	pc, err := cfg.ProjectionConfig()
	require.NoError(t, err)
	assert.InDelta(t, -15.8, pc.Orientation.ZenithDec, 1e-9)
	assert.Equal(t, 30.0, pc.Orientation.RotationDeg)
	assert.GreaterOrEqual(t, pc.Orientation.ZenithRA, 0.0)
	assert.Less(t, pc.Orientation.ZenithRA, 360.0)
}

func TestQuery_MergesNamesAndGroups(t *testing.T) {
	cfg := Default()
	cfg.Catalog.Names = []string{"Alpha Centauri", "Sirius"}
	cfg.Catalog.Constellations = []string{"Homem Velho (Tuya'i)"}

	q, err := cfg.Query()
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha Centauri", "Sirius", "Beta Centauri"}, q.Names)
}
