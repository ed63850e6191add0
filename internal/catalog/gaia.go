package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/litescript/ls-planetarium/internal/astro"
	"github.com/litescript/ls-planetarium/internal/logging"
	"github.com/litescript/ls-planetarium/internal/version"
)

const (
	// DefaultGaiaURL is the synchronous TAP endpoint of the ESA Gaia archive.
	DefaultGaiaURL = "https://gea.esac.esa.int/tap-server/tap/sync"

	// DefaultTimeout for HTTP requests.
	DefaultTimeout = 60 * time.Second

	// ConeRadiusDeg is the search radius around a resolved name (30 arcsec).
	ConeRadiusDeg = 30.0 / 3600.0
)

var userAgent = "ls-planetarium/" + version.Version

// GaiaSource queries Gaia DR3 through TAP.
type GaiaSource struct {
	client   *http.Client
	url      string
	timeout  time.Duration
	resolver Resolver
	log      *logging.Logger
}

// Option configures a GaiaSource.
type Option func(*GaiaSource)

// WithURL sets a custom TAP sync endpoint.
func WithURL(url string) Option {
	return func(g *GaiaSource) {
		g.url = url
	}
}

// WithTimeout sets the HTTP request timeout.
func WithTimeout(d time.Duration) Option {
	return func(g *GaiaSource) {
		g.timeout = d
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(g *GaiaSource) {
		g.client = client
	}
}

// WithResolver sets the name resolver used for name queries.
func WithResolver(r Resolver) Option {
	return func(g *GaiaSource) {
		g.resolver = r
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(g *GaiaSource) {
		g.log = l
	}
}

// NewGaiaSource creates a Gaia TAP client.
func NewGaiaSource(opts ...Option) *GaiaSource {
	g := &GaiaSource{
		url:     DefaultGaiaURL,
		timeout: DefaultTimeout,
	}

	for _, opt := range opts {
		opt(g)
	}

	if g.client == nil {
		g.client = &http.Client{
			Timeout: g.timeout,
		}
	}
	if g.resolver == nil {
		g.resolver = NewSesameResolver(g.client, "")
	}
	if g.log == nil {
		g.log = logging.Discard()
	}

	return g
}

// Name implements Source.
func (g *GaiaSource) Name() string {
	return "Gaia DR3"
}

// URL returns the configured TAP endpoint.
func (g *GaiaSource) URL() string {
	return g.url
}

// Query implements Source.
func (g *GaiaSource) Query(ctx context.Context, q Query) ([]astro.Star, error) {
	if len(q.Names) > 0 {
		return g.queryNames(ctx, q)
	}
	return g.queryMagnitude(ctx, q)
}

func (g *GaiaSource) queryMagnitude(ctx context.Context, q Query) ([]astro.Star, error) {
	rows, err := g.run(ctx, magnitudeADQL(q))
	if err != nil {
		return nil, err
	}

	stars := make([]astro.Star, 0, len(rows))
	for _, r := range rows {
		stars = append(stars, r.star("Gaia DR3 "+r.sourceID))
	}
	return stars, nil
}

func (g *GaiaSource) queryNames(ctx context.Context, q Query) ([]astro.Star, error) {
	var stars []astro.Star
	for _, name := range q.Names {
		ra, dec, err := g.resolver.Resolve(ctx, name)
		if errors.Is(err, ErrNotResolved) {
			g.log.Warn("%s: not known to the name resolver, skipping", name)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", name, err)
		}

		rows, err := g.run(ctx, coneADQL(ra, dec, ConeRadiusDeg))
		if err != nil {
			return nil, fmt.Errorf("cone search for %s: %w", name, err)
		}
		if len(rows) == 0 {
			g.log.Warn("%s: no Gaia source within %.0f arcsec of %.4f %+.4f, skipping",
				name, ConeRadiusDeg*3600, ra, dec)
			continue
		}

		s := rows[0].star(name)
		if s.Mag > q.MagnitudeLimit {
			g.log.Debug("%s: magnitude %.2f fainter than limit %.2f, skipping", name, s.Mag, q.MagnitudeLimit)
			continue
		}
		stars = append(stars, s)
	}
	return stars, nil
}

func magnitudeADQL(q Query) string {
	top := q.MaxRows
	if top <= 0 {
		top = DefaultMaxRows
	}
	return fmt.Sprintf("SELECT TOP %d source_id, ra, dec, phot_g_mean_mag "+
		"FROM gaiadr3.gaia_source "+
		"WHERE phot_g_mean_mag <= %g "+
		"ORDER BY phot_g_mean_mag ASC, source_id ASC", top, q.MagnitudeLimit)
}

func coneADQL(ra, dec, radius float64) string {
	return fmt.Sprintf("SELECT TOP 1 source_id, ra, dec, phot_g_mean_mag "+
		"FROM gaiadr3.gaia_source "+
		"WHERE 1 = CONTAINS(POINT('ICRS', ra, dec), CIRCLE('ICRS', %.6f, %.6f, %.6f)) "+
		"AND phot_g_mean_mag IS NOT NULL "+
		"ORDER BY phot_g_mean_mag ASC", ra, dec, radius)
}

// run executes one synchronous ADQL query.
func (g *GaiaSource) run(ctx context.Context, adql string) ([]tapRow, error) {
	form := url.Values{}
	form.Set("REQUEST", "doQuery")
	form.Set("LANG", "ADQL")
	form.Set("FORMAT", "json")
	form.Set("QUERY", adql)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	g.log.Debug("ADQL: %s", adql)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("TAP request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("TAP returned status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	return parseTAP(body)
}

// tapResponse is the JSON serialization of a TAP result table.
type tapResponse struct {
	Metadata []struct {
		Name string `json:"name"`
	} `json:"metadata"`
	Data [][]json.Number `json:"data"`
}

type tapRow struct {
	sourceID string
	ra       float64
	dec      float64
	mag      float64
}

func (r tapRow) star(id string) astro.Star {
	return astro.Star{ID: id, RAdeg: r.ra, DecDeg: r.dec, Mag: r.mag}
}

// parseTAP decodes a TAP JSON table. Numbers are kept as json.Number so
// 64-bit source IDs survive intact.
func parseTAP(body []byte) ([]tapRow, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var resp tapResponse
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("parse TAP JSON: %w", err)
	}

	col := make(map[string]int, len(resp.Metadata))
	for i, m := range resp.Metadata {
		col[m.Name] = i
	}
	for _, name := range []string{"source_id", "ra", "dec", "phot_g_mean_mag"} {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("TAP result has no %s column", name)
		}
	}

	rows := make([]tapRow, 0, len(resp.Data))
	for i, cells := range resp.Data {
		if len(cells) < len(resp.Metadata) {
			return nil, fmt.Errorf("row %d: %d cells, want %d", i, len(cells), len(resp.Metadata))
		}
		// phot_g_mean_mag can be null for faint sources
		if cells[col["phot_g_mean_mag"]] == "" {
			continue
		}

		var r tapRow
		r.sourceID = cells[col["source_id"]].String()
		var err error
		if r.ra, err = cells[col["ra"]].Float64(); err != nil {
			return nil, fmt.Errorf("row %d ra: %w", i, err)
		}
		if r.dec, err = cells[col["dec"]].Float64(); err != nil {
			return nil, fmt.Errorf("row %d dec: %w", i, err)
		}
		if r.mag, err = cells[col["phot_g_mean_mag"]].Float64(); err != nil {
			return nil, fmt.Errorf("row %d phot_g_mean_mag: %w", i, err)
		}
		rows = append(rows, r)
	}
	return rows, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
