package config

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/Masterminds/semver/v3"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/litescript/ls-planetarium/internal/errs"
)

// SchemaVersion is the configuration schema version. Files declare the
// version they were written for in schemaVersion.
const SchemaVersion = "1.0.0"

//go:embed schema.cue
var schemaSource []byte

// Load reads a CUE configuration file from fsys. Fields the file leaves out
// take the schema defaults.
func Load(fsys billy.Filesystem, path string) (Config, error) {
	data, err := util.ReadFile(fsys, path)
	if err != nil {
		return Config{}, errs.Wrap(err, errs.CodeInvalidProjectionConfig, path, "read config file")
	}
	return Parse(path, data)
}

// Parse compiles CUE source, unifies it with the #Config schema and decodes
// the result.
func Parse(filename string, data []byte) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compile embedded schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	file := ctx.CompileBytes(data, cue.Filename(filename))
	if err := file.Err(); err != nil {
		return Config{}, errs.Wrap(err, errs.CodeInvalidProjectionConfig, filename,
			"parse CUE: "+cueerrors.Details(err, nil))
	}

	v := def.Unify(file)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, errs.Wrap(err, errs.CodeInvalidProjectionConfig, filename,
			"does not match the configuration schema")
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return Config{}, errs.Wrap(err, errs.CodeInvalidProjectionConfig, filename, "decode configuration")
	}

	if err := CheckSchemaVersion(cfg.SchemaVersion); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// CheckSchemaVersion accepts versions compatible with SchemaVersion under a
// caret constraint.
func CheckSchemaVersion(v string) error {
	constraint, err := semver.NewConstraint("^" + SchemaVersion)
	if err != nil {
		return fmt.Errorf("invalid schema version: %w", err)
	}

	ver, err := semver.NewVersion(v)
	if err != nil {
		return errs.Wrap(err, errs.CodeInvalidProjectionConfig, "schemaVersion", fmt.Sprintf("invalid version %q", v))
	}
	if !constraint.Check(ver) {
		return errs.Newf(errs.CodeInvalidProjectionConfig, "schemaVersion",
			"version %s is not compatible with %s", v, SchemaVersion)
	}
	return nil
}
