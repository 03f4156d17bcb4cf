// Package doi resolves Digital Object Identifiers to bibliographic metadata.
// CrossRef is asked first; when it has no record (or fails) DataCite is
// asked next. Resolved records are cached in memory for the life of the
// client.
package doi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mesh-intelligence/crates/pkg/types"
)

// Provider names reported in Record.Source.
const (
	SourceCrossRef = "CrossRef"
	SourceDataCite = "DataCite"
)

// Defaults for a Client.
const (
	DefaultCrossRefURL = "https://api.crossref.org/works"
	DefaultDataCiteURL = "https://api.datacite.org/works"
	DefaultTimeout     = 15 * time.Second
	DefaultCacheTTL    = 30 * time.Minute
)

const traceAttributeDOI = "doi"

var tracer = otel.Tracer("crate-doi-client")

// Resolver looks up metadata for a DOI.
type Resolver interface {
	Resolve(ctx context.Context, doi string) (*Record, error)
}

// Metadata is the provider record projected onto dataset fields.
type Metadata struct {
	Name          string
	Author        string
	DatePublished string
	Description   string
	Keywords      []string
	URL           string
	Version       string
}

// Record is a resolved DOI.
type Record struct {
	Source   string
	DOI      string
	Metadata Metadata
}

var doiPrefix = regexp.MustCompile(`(?i)^(https?://(dx\.)?doi\.org/|doi:)`)

// Normalize strips resolver URL and "DOI:" prefixes and surrounding space.
func Normalize(doi string) string {
	return strings.TrimSpace(doiPrefix.ReplaceAllString(strings.TrimSpace(doi), ""))
}

// Client is the HTTP Resolver.
type Client struct {
	crossrefURL string
	dataciteURL string
	httpClient  *http.Client
	cacheTTL    time.Duration
	cache       *gocache.Cache
	logger      zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithCrossRefURL sets the CrossRef works endpoint.
func WithCrossRefURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.crossrefURL = strings.TrimRight(u, "/")
		}
	}
}

// WithDataCiteURL sets the DataCite works endpoint.
func WithDataCiteURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.dataciteURL = strings.TrimRight(u, "/")
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithCacheTTL sets how long resolved records are kept.
func WithCacheTTL(d time.Duration) Option {
	return func(c *Client) {
		c.cacheTTL = d
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient returns a Client using the public CrossRef and DataCite APIs
// unless overridden.
func NewClient(options ...Option) *Client {
	c := &Client{
		crossrefURL: DefaultCrossRefURL,
		dataciteURL: DefaultDataCiteURL,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   DefaultTimeout,
		},
		cacheTTL: DefaultCacheTTL,
		logger:   zerolog.Nop(),
	}
	for _, option := range options {
		option(c)
	}
	c.cache = gocache.New(c.cacheTTL, 2*c.cacheTTL)
	return c
}

// Resolve returns the metadata for doi. It fails with a MetadataNotFoundError
// when neither provider returns a record.
func (c *Client) Resolve(ctx context.Context, doi string) (rec *Record, err error) {
	doi = Normalize(doi)
	if doi == "" {
		return nil, fmt.Errorf("%w: empty DOI", types.ErrInvalidValue)
	}

	ctx, span := tracer.Start(ctx, "resolve-doi",
		trace.WithAttributes(attribute.String(traceAttributeDOI, doi)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(attribute.String("source", rec.Source))
		}
		span.End()
	}()

	if cached, found := c.cache.Get(doi); found {
		if r, ok := cached.(Record); ok {
			c.logger.Debug().Str("doi", doi).Msg("doi cache hit")
			return &r, nil
		}
	}

	meta, crossrefErr := c.crossref(ctx, doi)
	if crossrefErr == nil {
		return c.remember(Record{Source: SourceCrossRef, DOI: doi, Metadata: meta}), nil
	}
	c.logger.Debug().Err(crossrefErr).Str("doi", doi).Msg("crossref lookup failed")

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	meta, dataciteErr := c.datacite(ctx, doi)
	if dataciteErr == nil {
		return c.remember(Record{Source: SourceDataCite, DOI: doi, Metadata: meta}), nil
	}
	c.logger.Debug().Err(dataciteErr).Str("doi", doi).Msg("datacite lookup failed")

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	return nil, &types.MetadataNotFoundError{DOI: doi, Err: errors.Join(crossrefErr, dataciteErr)}
}

func (c *Client) remember(r Record) *Record {
	c.cache.Set(r.DOI, r, gocache.DefaultExpiration)
	return &r
}

// fetch GETs <base>/<doi> and decodes a JSON body into v.
func (c *Client) fetch(ctx context.Context, base, doi string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/"+doi, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%s: unexpected response code %d", base, resp.StatusCode)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%s: decoding response: %w", base, err)
	}
	return nil
}

func (c *Client) crossref(ctx context.Context, doi string) (Metadata, error) {
	var doc struct {
		Message *crossrefWork `json:"message"`
	}
	if err := c.fetch(ctx, c.crossrefURL, doi, &doc); err != nil {
		return Metadata{}, err
	}
	if doc.Message == nil {
		return Metadata{}, fmt.Errorf("%s: response has no message", c.crossrefURL)
	}
	return doc.Message.project(doi), nil
}

func (c *Client) datacite(ctx context.Context, doi string) (Metadata, error) {
	var doc struct {
		Data *struct {
			Attributes *dataciteWork `json:"attributes"`
		} `json:"data"`
	}
	if err := c.fetch(ctx, c.dataciteURL, doi, &doc); err != nil {
		return Metadata{}, err
	}
	if doc.Data == nil || doc.Data.Attributes == nil {
		return Metadata{}, fmt.Errorf("%s: response has no data attributes", c.dataciteURL)
	}
	return doc.Data.Attributes.project(doi), nil
}
