package catalog

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultSesameURL is the CDS name resolver, plain text output, all databases.
const DefaultSesameURL = "https://cds.unistra.fr/cgi-bin/nph-sesame/-oI/A"

// ErrNotResolved is returned when the resolver does not know a name.
var ErrNotResolved = errors.New("name not resolved")

// Resolver turns an object name into J2000 coordinates.
type Resolver interface {
	Resolve(ctx context.Context, name string) (raDeg, decDeg float64, err error)
}

// SesameResolver resolves names through the CDS Sesame service.
type SesameResolver struct {
	client *http.Client
	url    string
}

// NewSesameResolver creates a resolver. An empty baseURL uses DefaultSesameURL.
func NewSesameResolver(client *http.Client, baseURL string) *SesameResolver {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if baseURL == "" {
		baseURL = DefaultSesameURL
	}
	return &SesameResolver{client: client, url: baseURL}
}

// Resolve implements Resolver.
func (r *SesameResolver) Resolve(ctx context.Context, name string) (float64, float64, error) {
	reqURL := r.url + "?" + url.QueryEscape(name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("sesame request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("sesame returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, 0, fmt.Errorf("read response body: %w", err)
	}

	return parseSesame(name, body)
}

// parseSesame reads the first "%J ra dec" line of a Sesame -oI reply.
func parseSesame(name string, body []byte) (float64, float64, error) {
	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "%J ") {
			continue
		}
		fields := strings.Fields(line[3:])
		if len(fields) < 2 {
			return 0, 0, fmt.Errorf("malformed sesame line %q", line)
		}
		ra, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return 0, 0, fmt.Errorf("parse RA %q: %w", fields[0], err)
		}
		dec, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return 0, 0, fmt.Errorf("parse Dec %q: %w", fields[1], err)
		}
		return ra, dec, nil
	}
	if err := sc.Err(); err != nil {
		return 0, 0, err
	}
	return 0, 0, fmt.Errorf("%w: %s", ErrNotResolved, name)
}
