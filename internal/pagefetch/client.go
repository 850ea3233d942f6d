package pagefetch

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"time"

	"tixwatch-backend/lib/restyutil"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("tixwatch.internal.pagefetch")

// Fetcher observes activity pages. An implementation bounds its own wait
// and reports failure instead of blocking.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (Page, error)
}

// Lister discovers the activity pages currently on sale.
type Lister interface {
	ListEventURLs(ctx context.Context) ([]string, error)
}

type Options struct {
	// ListingURL is the page enumerating activities.
	ListingURL string
	UserAgent  string
	Timeout    time.Duration
	// Output receives raw exchanges while debug logging is enabled.
	Output restyutil.InstrumentOutput
}

const (
	DefaultListingURL = "https://tixcraft.com/activity"
	DefaultUserAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"
	DefaultTimeout    = 30 * time.Second
)

// Client fetches pages over plain HTTP.
type Client struct {
	http    *resty.Client
	listing string
}

func NewClient(opts Options) *Client {
	if opts.ListingURL == "" {
		opts.ListingURL = DefaultListingURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	client := resty.New()
	client.SetTimeout(opts.Timeout)
	client.SetHeader("User-Agent", opts.UserAgent)
	client.SetHeader("Accept-Language", "zh-TW,zh;q=0.9,en;q=0.8")
	restyutil.InstrumentClient(client, tracer, opts.Output)

	return &Client{http: client, listing: opts.ListingURL}
}

func (c *Client) get(ctx context.Context, target string) ([]byte, error) {
	res, err := c.http.R().
		SetContext(ctx).
		Get(target)
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("get %s: status %d", target, res.StatusCode())
	}
	return res.Body(), nil
}

func (c *Client) Fetch(ctx context.Context, pageURL string) (Page, error) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("url", pageURL))

	body, err := c.get(ctx, pageURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return Page{}, err
	}
	page, err := Parse(pageURL, bytes.NewReader(body))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse failed")
		return Page{}, err
	}
	span.SetAttributes(
		attribute.String("title", page.Title),
		attribute.Int("lines", len(page.Lines)),
	)
	return page, nil
}

func (c *Client) ListEventURLs(ctx context.Context) ([]string, error) {
	ctx, span := tracer.Start(ctx, "ListEventURLs")
	defer span.End()

	base, err := url.Parse(c.listing)
	if err != nil {
		return nil, err
	}
	body, err := c.get(ctx, c.listing)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch listing failed")
		return nil, err
	}
	urls, err := ParseListing(ctx, base, bytes.NewReader(body))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse listing failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("count", len(urls)))
	return urls, nil
}
