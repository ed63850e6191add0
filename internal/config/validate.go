package config

import (
	"math"

	"github.com/litescript/ls-planetarium/internal/errs"
	"github.com/litescript/ls-planetarium/internal/publish"
)

var logLevels = []string{"debug", "info", "warn", "error"}

// Validate checks every setting. It runs before any catalog request so a bad
// configuration never costs a network round trip. The first problem found
// is returned, naming the offending key.
func (c Config) Validate() error {
	if err := CheckSchemaVersion(c.SchemaVersion); err != nil {
		return err
	}

	switch c.Catalog.Source {
	case SourceGaia, SourceBuiltin:
	default:
		return errs.Newf(errs.CodeInvalidProjectionConfig, "catalog.source",
			"must be %q or %q, got %q", SourceGaia, SourceBuiltin, c.Catalog.Source)
	}
	if math.IsNaN(c.Catalog.MagnitudeLimit) || math.IsInf(c.Catalog.MagnitudeLimit, 0) {
		return errs.Newf(errs.CodeInvalidProjectionConfig, "catalog.magnitudeLimit",
			"must be finite, got %v", c.Catalog.MagnitudeLimit)
	}
	if c.Catalog.MaxRows < 0 {
		return errs.Newf(errs.CodeInvalidProjectionConfig, "catalog.maxRows", "must be >= 0, got %d", c.Catalog.MaxRows)
	}
	if !(c.Catalog.TimeoutSeconds > 0) {
		return errs.Newf(errs.CodeInvalidProjectionConfig, "catalog.timeoutSeconds",
			"must be > 0, got %v", c.Catalog.TimeoutSeconds)
	}
	if _, err := c.Query(); err != nil {
		return err
	}

	pc, err := c.ProjectionConfig()
	if err != nil {
		return err
	}
	if err := pc.Validate(); err != nil {
		return err
	}
	if err := c.Shell().Validate(); err != nil {
		return err
	}
	if err := c.Style().Validate(); err != nil {
		return err
	}
	if err := c.PlanOptions().Scale.Validate(); err != nil {
		return err
	}

	if c.Output.Path == "" {
		return errs.New(errs.CodeInvalidProjectionConfig, "output.path", "must not be empty")
	}
	if c.Output.Publish != "" {
		if _, err := publish.ParseTarget(c.Output.Publish); err != nil {
			return errs.Wrap(err, errs.CodeInvalidProjectionConfig, "output.publish", "invalid publish target")
		}
	}

	for _, l := range logLevels {
		if c.LogLevel == l {
			return nil
		}
	}
	return errs.Newf(errs.CodeInvalidProjectionConfig, "logLevel", "unknown level %q", c.LogLevel)
}
