package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tixwatch-backend/internal/classifier"
	"tixwatch-backend/internal/eventstore"
	"tixwatch-backend/internal/model"
	"tixwatch-backend/internal/pagefetch"
	"tixwatch-backend/lib/telemetry"
	"tixwatch-backend/lib/timezone"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("tixwatch.internal.crawler")

// ExtractionMethod is written to the collection metadata of every crawl.
const ExtractionMethod = "http"

const DefaultDelay = time.Second

// Stats describes a single crawl.
type Stats struct {
	// Attempted is the number of pages the crawl tried to fetch.
	Attempted int
	// Fetched is the number of pages observed successfully.
	Fetched int
	// Resolved is the number of fetched pages with at least one field found.
	Resolved int
	Failed   []string
}

// Crawler lists activity pages, classifies each one and persists the
// record right after it was built.
type Crawler struct {
	Classifier classifier.Classifier
	Fetcher    pagefetch.Fetcher
	Lister     pagefetch.Lister
	Store      *eventstore.Store
	Telemetry  telemetry.API

	// Delay is waited between pages.
	Delay time.Duration
	// Limit crawls only the first Limit pages when positive.
	Limit int
}

func (c Crawler) api() telemetry.API {
	if c.Telemetry == nil {
		return telemetry.SlogAPI{}
	}
	return c.Telemetry
}

// Build turns an observed page into a record. Keys of a previously stored
// record that are not owned by the crawler survive.
func (c Crawler) Build(page pagefetch.Page, previous *model.EventRecord) model.EventRecord {
	var rec model.EventRecord
	if previous != nil {
		rec = previous.Clone()
	}
	rec.URL = page.URL
	rec.Title = page.Title
	if rec.Title == "" {
		rec.Title = page.URL
	}
	rec.SetFields(c.Classifier.Classify(page.Lines))
	rec.ScrapeTimestamp = timezone.Stamp()

	if page.DataLayer.Category != "" {
		rec.Category = page.DataLayer.Category
	}
	if page.DataLayer.GameCode != "" {
		rec.GameCode = page.DataLayer.GameCode
	}
	if page.DataLayer.Promoter != "" {
		rec.Promoter = page.DataLayer.Promoter
	}
	return rec
}

func unresolvedRecord(url string) model.EventRecord {
	rec := model.EventRecord{
		Title:           url,
		URL:             url,
		ScrapeTimestamp: timezone.Stamp(),
	}
	rec.SetFields(model.Unresolved())
	return rec
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// crawlOne fetches a page and stores its record. A page that cannot be
// fetched leaves an existing record untouched and is otherwise stored with
// every field unresolved.
func (c Crawler) crawlOne(ctx context.Context, url string, stats *Stats) error {
	ctx, span := tracer.Start(ctx, "crawlOne")
	defer span.End()
	span.SetAttributes(attribute.String("url", url))

	previous, known := c.Store.Lookup(url)

	page, err := c.Fetcher.Fetch(ctx, url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		stats.Failed = append(stats.Failed, url)
		c.api().ReportWarning("fetch", "url", url, "err", err)
		// a stored record outlives a failed fetch, only unknown urls get an
		// unresolved placeholder (see "Crawl fetch failure" in DESIGN.md)
		if known {
			return nil
		}
		return c.Store.Put(unresolvedRecord(url))
	}
	stats.Fetched++

	var prev *model.EventRecord
	if known {
		prev = &previous
	}
	rec := c.Build(page, prev)
	if rec.Resolved() {
		stats.Resolved++
	} else {
		c.api().ReportWarning("unresolved", "url", url, "title", rec.Title)
	}
	span.SetAttributes(attribute.Bool("resolved", rec.Resolved()))

	c.api().ReportDebug(
		"record",
		"url", url,
		"title", rec.Title,
		"event_info", rec.EventInfo,
		"location", rec.Location,
		"price", rec.Price,
		"sale_time", rec.SaleTime,
	)
	return c.Store.Put(rec)
}

// Run crawls urls, or the listing when urls is empty. Every record is
// persisted as soon as it is built, so a cancelled or failed run keeps
// what was stored before it stopped.
func (c Crawler) Run(ctx context.Context, urls []string) (Stats, error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	var stats Stats
	if len(urls) == 0 {
		if c.Lister == nil {
			return stats, fmt.Errorf("no urls given and no lister configured")
		}
		listed, err := c.Lister.ListEventURLs(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "list failed")
			return stats, fmt.Errorf("list activities: %w", err)
		}
		urls = listed
	}
	if c.Limit > 0 && len(urls) > c.Limit {
		urls = urls[:c.Limit]
	}
	c.api().ReportCount("listed", int64(len(urls)))

	var runErr error
	for i, url := range urls {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		stats.Attempted++
		c.api().ReportDebug("page", "n", i+1, "of", len(urls), "url", url)

		if err := c.crawlOne(ctx, url, &stats); err != nil {
			runErr = err
			break
		}
		if i < len(urls)-1 {
			if err := sleep(ctx, c.Delay); err != nil {
				runErr = err
				break
			}
		}
	}

	err := c.Store.Update(func(col *model.EventCollection) {
		col.ExtractionMethod = ExtractionMethod
		col.CurrentScrapeCount = stats.Attempted
		col.CurrentScrapeSuccess = stats.Fetched
	})
	runErr = errors.Join(runErr, err)

	c.api().ReportCount("fetched", int64(stats.Fetched))
	c.api().ReportCount("resolved", int64(stats.Resolved))
	if runErr != nil {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, "crawl incomplete")
	}
	return stats, runErr
}
