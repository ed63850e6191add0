// Package planetarium runs the dome pipeline: fetch stars, project them
// onto the dome, plan the perforations, emit the OpenSCAD scene and write it.
package planetarium

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/go-git/go-billy/v5"

	"github.com/litescript/ls-planetarium/internal/catalog"
	"github.com/litescript/ls-planetarium/internal/config"
	"github.com/litescript/ls-planetarium/internal/dome"
	"github.com/litescript/ls-planetarium/internal/errs"
	"github.com/litescript/ls-planetarium/internal/logging"
	"github.com/litescript/ls-planetarium/internal/projection"
	"github.com/litescript/ls-planetarium/internal/publish"
)

// Publisher uploads a finished scene.
type Publisher interface {
	Publish(ctx context.Context, a publish.Artifact) (publish.Receipt, error)
}

// Result summarizes a run.
type Result struct {
	Source       string
	Fetched      int
	Excluded     []projection.Excluded
	Clipped      int
	Perforations int
	Layout       []dome.Perforation
	Warnings     []*errs.Error
	OutputPath   string
	Bytes        int
	Published    *publish.Receipt
	Duration     time.Duration
}

// Runner executes the pipeline for one configuration.
type Runner struct {
	cfg       config.Config
	fs        billy.Filesystem
	source    catalog.Source
	publisher Publisher
	log       *logging.Logger
	reporter  Reporter
}

// Option configures a Runner.
type Option func(*Runner)

// WithSource overrides the catalog source chosen by the configuration.
func WithSource(src catalog.Source) Option {
	return func(r *Runner) {
		r.source = src
	}
}

// WithPublisher overrides the S3 publisher.
func WithPublisher(p Publisher) Option {
	return func(r *Runner) {
		r.publisher = p
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Runner) {
		r.log = l
	}
}

// WithReporter sets the progress observer.
func WithReporter(rep Reporter) Option {
	return func(r *Runner) {
		r.reporter = rep
	}
}

// New creates a runner that writes output into fs.
func New(cfg config.Config, fs billy.Filesystem, opts ...Option) *Runner {
	r := &Runner{cfg: cfg, fs: fs}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logging.Discard()
	}
	if r.reporter == nil {
		r.reporter = nopReporter{}
	}
	return r
}

// Run executes every stage in order. Configuration errors are reported
// before the catalog is contacted, and nothing is written unless the scene
// was built completely.
func (r *Runner) Run(ctx context.Context) (res Result, err error) {
	start := time.Now()
	defer func() { res.Duration = time.Since(start) }()

	// Validate
	r.reporter.StageStarted(StageValidate)
	if err := r.cfg.Validate(); err != nil {
		return res, err
	}
	pcfg, err := r.cfg.ProjectionConfig()
	if err != nil {
		return res, err
	}
	projector, err := projection.New(pcfg)
	if err != nil {
		return res, err
	}
	query, err := r.cfg.Query()
	if err != nil {
		return res, err
	}
	r.reporter.StageFinished(StageValidate, fmt.Sprintf("%s projection, %.0f deg field", pcfg.Kind, pcfg.FieldDeg))

	// Fetch
	r.reporter.StageStarted(StageFetch)
	src := r.source
	if src == nil {
		src = r.defaultSource()
	}
	fetched, err := catalog.NewFetcher(src, r.log).Fetch(ctx, query)
	res.Source = fetched.Source
	res.Warnings = append(res.Warnings, fetched.Warnings...)
	if err != nil {
		if r.fatal(err) {
			return res, err
		}
		r.log.Warn("%v; emitting an empty dome", err)
	}
	res.Fetched = len(fetched.Stars)
	r.reporter.StageFinished(StageFetch, fmt.Sprintf("%d stars from %s", res.Fetched, res.Source))

	// Project
	r.reporter.StageStarted(StageProject)
	points, excluded := projector.ProjectAll(fetched.Stars)
	res.Excluded = excluded
	for _, ex := range excluded {
		r.log.Debug("excluded: %s, outside the %.0f deg field", ex, pcfg.FieldDeg)
	}
	for _, pt := range points {
		if pt.Clipped {
			res.Clipped++
		}
	}
	if len(excluded) > 0 {
		r.log.Info("%d stars outside the field were excluded", len(excluded))
	}
	r.reporter.StageFinished(StageProject, fmt.Sprintf("%d on the dome, %d excluded", len(points), len(excluded)))

	// Plan
	r.reporter.StageStarted(StagePlan)
	plan := dome.PlanPerforations(points, r.cfg.PlanOptions())
	for _, w := range plan.Warnings {
		if r.fatal(w) {
			return res, w
		}
		r.log.Warn("%v", w)
	}
	res.Warnings = append(res.Warnings, plan.Warnings...)
	res.Perforations = len(plan.Perforations)
	res.Layout = plan.Perforations
	r.reporter.StageFinished(StagePlan, fmt.Sprintf("%d perforations, %d warnings", res.Perforations, len(plan.Warnings)))

	// Build
	r.reporter.StageStarted(StageBuild)
	scene, err := dome.Build(r.cfg.Shell(), r.cfg.Style(), plan.Perforations)
	if err != nil {
		return res, err
	}
	var buf bytes.Buffer
	if err := scene.Render(&buf); err != nil {
		return res, errs.Wrap(err, errs.CodeOutputFailed, r.cfg.Output.Path, "render scene")
	}
	r.reporter.StageFinished(StageBuild, fmt.Sprintf("%d star primitives, %d bytes of OpenSCAD", scene.StarCount(), buf.Len()))

	// Write
	r.reporter.StageStarted(StageWrite)
	if err := writeAtomic(r.fs, r.cfg.Output.Path, buf.Bytes()); err != nil {
		return res, errs.Wrap(err, errs.CodeOutputFailed, r.cfg.Output.Path, "write scene")
	}
	res.OutputPath = r.cfg.Output.Path
	res.Bytes = buf.Len()
	r.log.Info("wrote %s (%d perforations, %d bytes)", res.OutputPath, res.Perforations, res.Bytes)
	r.reporter.StageFinished(StageWrite, res.OutputPath)

	// Publish
	if r.cfg.Output.Publish == "" && r.publisher == nil {
		return res, nil
	}
	r.reporter.StageStarted(StagePublish)
	pub, err := r.resolvePublisher(ctx)
	if err != nil {
		return res, err
	}
	receipt, err := pub.Publish(ctx, publish.Artifact{
		Name:      path.Base(r.cfg.Output.Path),
		Data:      buf.Bytes(),
		StarCount: res.Perforations,
	})
	if err != nil {
		return res, err
	}
	res.Published = &receipt
	r.log.Info("published %s (%s)", receipt.URI, receipt.ContentType)
	r.reporter.StageFinished(StagePublish, receipt.URI)

	return res, nil
}

// fatal reports whether err aborts the run. An empty catalog result only
// warns when the configuration allows an empty dome.
func (r *Runner) fatal(err error) bool {
	code := errs.CodeOf(err)
	if code == errs.CodeEmptyResult && r.cfg.Catalog.AllowEmpty {
		return false
	}
	return code.Fatal()
}

func (r *Runner) defaultSource() catalog.Source {
	if r.cfg.Catalog.Source == config.SourceBuiltin {
		return catalog.NewBuiltinSource(r.log)
	}

	opts := []catalog.Option{
		catalog.WithTimeout(r.cfg.Timeout()),
		catalog.WithLogger(r.log),
	}
	if r.cfg.Catalog.URL != "" {
		opts = append(opts, catalog.WithURL(r.cfg.Catalog.URL))
	}
	return catalog.NewGaiaSource(opts...)
}

func (r *Runner) resolvePublisher(ctx context.Context) (Publisher, error) {
	if r.publisher != nil {
		return r.publisher, nil
	}
	target, err := publish.ParseTarget(r.cfg.Output.Publish)
	if err != nil {
		return nil, errs.Wrap(err, errs.CodePublishFailed, r.cfg.Output.Publish, "invalid target")
	}
	return publish.New(ctx, target)
}
