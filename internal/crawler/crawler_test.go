package crawler

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"tixwatch-backend/internal/classifier"
	"tixwatch-backend/internal/eventstore"
	"tixwatch-backend/internal/model"
	"tixwatch-backend/internal/pagefetch"
	"tixwatch-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

type fakeSite struct {
	pages  map[string]pagefetch.Page
	listed []string
	calls  []string
}

func (f *fakeSite) Fetch(ctx context.Context, url string) (pagefetch.Page, error) {
	f.calls = append(f.calls, url)
	page, ok := f.pages[url]
	if !ok {
		return pagefetch.Page{}, errors.New("connection refused")
	}
	return page, nil
}

func (f *fakeSite) ListEventURLs(ctx context.Context) ([]string, error) {
	return f.listed, nil
}

func newCrawler(t *testing.T, site *fakeSite) (Crawler, *telemetry.Recorder) {
	store, err := eventstore.Open(filepath.Join(t.TempDir(), "events.json"))
	require.NoError(t, err)
	rec := &telemetry.Recorder{}
	return Crawler{
		Classifier: classifier.New(),
		Fetcher:    site,
		Lister:     site,
		Store:      store,
		Telemetry:  rec,
	}, rec
}

func TestRunFromListing(t *testing.T) {
	site := &fakeSite{
		listed: []string{"https://t/a", "https://t/b"},
		pages: map[string]pagefetch.Page{
			"https://t/a": {
				URL:       "https://t/a",
				Title:     "Show A",
				Lines:     []string{"演出日期 2026/05/01", "票價 NT$1800"},
				DataLayer: pagefetch.DataLayer{Category: "演唱會", GameCode: "26_a"},
			},
		},
	}
	c, rec := newCrawler(t, site)

	stats, err := c.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Attempted)
	require.Equal(t, 1, stats.Fetched)
	require.Equal(t, 1, stats.Resolved)
	require.Equal(t, []string{"https://t/b"}, stats.Failed)

	loaded, err := eventstore.Load(c.Store.Path())
	require.NoError(t, err)
	require.Len(t, loaded.Events, 2)
	require.Equal(t, ExtractionMethod, loaded.ExtractionMethod)
	require.Equal(t, 2, loaded.CurrentScrapeCount)
	require.Equal(t, 1, loaded.CurrentScrapeSuccess)
	require.Equal(t, 1, loaded.SuccessCount)

	a := loaded.Events[0]
	require.Equal(t, "Show A", a.Title)
	require.Equal(t, "演出日期 2026/05/01", a.EventInfo)
	require.Equal(t, "票價 NT$1800", a.Price)
	require.Equal(t, model.NotFound, a.Location)
	require.Equal(t, "演唱會", a.Category)
	require.Equal(t, "26_a", a.GameCode)

	b := loaded.Events[1]
	require.Equal(t, "https://t/b", b.Title)
	require.False(t, b.Resolved())

	require.Len(t, rec.Filter(telemetry.LevelWarning), 1)
}

func TestRunKeepsRecordOnFetchFailure(t *testing.T) {
	site := &fakeSite{pages: map[string]pagefetch.Page{
		"https://t/a": {URL: "https://t/a", Title: "Show A", Lines: []string{"票價 NT$1800"}},
	}}
	c, _ := newCrawler(t, site)

	_, err := c.Run(context.Background(), []string{"https://t/a"})
	require.NoError(t, err)

	delete(site.pages, "https://t/a")
	stats, err := c.Run(context.Background(), []string{"https://t/a"})
	require.NoError(t, err)
	require.Equal(t, 0, stats.Fetched)

	rec, ok := c.Store.Lookup("https://t/a")
	require.True(t, ok)
	require.Equal(t, "票價 NT$1800", rec.Price)
	require.Equal(t, 1, rec.Index)
}

func TestRunLimit(t *testing.T) {
	site := &fakeSite{listed: []string{"a", "b", "c"}}
	c, _ := newCrawler(t, site)
	c.Limit = 2

	stats, err := c.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Attempted)
	require.Equal(t, []string{"a", "b"}, site.calls)
}

func TestRunCancelled(t *testing.T) {
	site := &fakeSite{listed: []string{"a", "b"}}
	c, _ := newCrawler(t, site)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stats, err := c.Run(ctx, []string{"a", "b"})
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, stats.Attempted)
	require.Empty(t, site.calls)
}

func TestBuildKeepsUnknownKeys(t *testing.T) {
	c := Crawler{Classifier: classifier.New()}
	previous := model.EventRecord{
		URL:      "https://t/a",
		Title:    "old",
		Promoter: "someone",
	}
	previous.SetFields(model.Unresolved())

	rec := c.Build(pagefetch.Page{URL: "https://t/a", Title: "new", Lines: []string{"地點：台北小巨蛋"}}, &previous)
	require.Equal(t, "new", rec.Title)
	require.Equal(t, "someone", rec.Promoter)
	require.Equal(t, "地點：台北小巨蛋", rec.Location)
	require.Equal(t, "old", previous.Title)
}
