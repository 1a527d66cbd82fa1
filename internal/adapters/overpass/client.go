// Package overpass fetches raw OSM data from an Overpass API interpreter.
package overpass

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/samirrijal/nrplanner/internal/core/domain"
)

// DefaultEndpoint is the public Overpass interpreter.
const DefaultEndpoint = "https://overpass-api.de/api/interpreter"

// maxBodyBytes caps a single response; a 5 km city query stays well below.
const maxBodyBytes = 256 << 20

// Options configures the Overpass client.
type Options struct {
	Endpoint          string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	UserAgent         string
}

// Client implements ports.MapSource against an Overpass interpreter.
type Client struct {
	endpoint  string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
}

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("overpass returned %d: %s", e.Code, e.Body)
}

// New creates a Client. Zero options fall back to the public endpoint,
// a 60s timeout and one request per second.
func New(opts Options) *Client {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 1
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "nrplanner/1.0"
	}
	return &Client{
		endpoint:  opts.Endpoint,
		userAgent: opts.UserAgent,
		http:      &http.Client{Timeout: opts.Timeout},
		limiter:   rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
	}
}

// Name identifies the source in logs and metrics.
func (c *Client) Name() string { return "overpass" }

// Fetch retrieves every road and building intersecting the region box.
func (c *Client) Fetch(ctx context.Context, region domain.BoundingRegion) (*domain.RawMapData, error) {
	body, err := c.Query(ctx, BBoxQuery(region.Bounds))
	if err != nil {
		return nil, domain.Unavailable(c.Name(), region, err)
	}
	return &domain.RawMapData{Format: domain.FormatOverpassJSON, Source: c.Name(), Body: body}, nil
}

// Query posts an Overpass QL query and returns the raw response body.
func (c *Client) Query(ctx context.Context, ql string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	form := url.Values{"data": {ql}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &httpStatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}
