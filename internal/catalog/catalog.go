// Package catalog retrieves star records from a remote or built-in catalog.
package catalog

import (
	"context"
	"time"

	"github.com/litescript/ls-planetarium/internal/astro"
	"github.com/litescript/ls-planetarium/internal/errs"
	"github.com/litescript/ls-planetarium/internal/logging"
)

// Query selects the stars to fetch.
type Query struct {
	MagnitudeLimit float64  // Keep stars at or brighter than this
	Names          []string // When set, fetch only these stars
	MaxRows        int      // Row cap for magnitude queries; 0 means DefaultMaxRows
}

// DefaultMaxRows caps magnitude queries against large catalogs.
const DefaultMaxRows = 5000

// Source answers catalog queries.
type Source interface {
	Name() string
	Query(ctx context.Context, q Query) ([]astro.Star, error)
}

// Result is the outcome of a fetch.
type Result struct {
	Stars     []astro.Star
	Source    string
	Warnings  []*errs.Error
	FetchedAt time.Time
	Duration  time.Duration
}

// Fetcher runs queries against a Source and cleans up the rows.
type Fetcher struct {
	source Source
	log    *logging.Logger
}

// NewFetcher creates a fetcher for src.
func NewFetcher(src Source, log *logging.Logger) *Fetcher {
	if log == nil {
		log = logging.Discard()
	}
	return &Fetcher{source: src, log: log}
}

// Fetch runs q once. Transport failures come back as CatalogUnavailable and
// a filter that matches nothing as EmptyResult. Rows sharing an ID keep the
// first occurrence; each dropped row is reported in Result.Warnings.
func (f *Fetcher) Fetch(ctx context.Context, q Query) (Result, error) {
	start := time.Now()
	result := Result{Source: f.source.Name(), FetchedAt: start}

	f.log.Debug("querying %s (mag <= %.2f, %d names)", result.Source, q.MagnitudeLimit, len(q.Names))

	stars, err := f.source.Query(ctx, q)
	result.Duration = time.Since(start)
	if err != nil {
		if errs.CodeOf(err) != "" {
			return result, err
		}
		return result, errs.Wrap(err, errs.CodeCatalogUnavailable, result.Source, "query failed")
	}

	unique, dropped := astro.UniqueByID(stars)
	for _, s := range dropped {
		w := errs.Newf(errs.CodeDuplicateStarIdentifier, s.ID,
			"catalog returned the star more than once; keeping the first row")
		f.log.Warn("%v", w)
		result.Warnings = append(result.Warnings, w)
	}
	result.Stars = unique

	if len(unique) == 0 {
		return result, errs.Newf(errs.CodeEmptyResult, result.Source,
			"no stars match magnitude <= %.2f%s", q.MagnitudeLimit, namesSuffix(q.Names))
	}

	f.log.Info("fetched %d stars from %s in %s", len(unique), result.Source, result.Duration.Round(time.Millisecond))
	return result, nil
}

func namesSuffix(names []string) string {
	if len(names) == 0 {
		return ""
	}
	if len(names) == 1 {
		return " named " + names[0]
	}
	return " among the requested names"
}
