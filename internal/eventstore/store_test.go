package eventstore

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tixwatch-backend/internal/model"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func record(url, price string) model.EventRecord {
	rec := model.EventRecord{
		Title: "title " + url,
		URL:   url,
	}
	rec.SetFields(model.Unresolved())
	rec.Price = price
	return rec
}

var fixedNow = time.Date(2026, time.March, 1, 4, 0, 0, 0, time.UTC)

func TestReconcileInsertAndUpdate(t *testing.T) {
	existing := Reconcile(model.EventCollection{}, []model.EventRecord{
		record("a", "NT$800"),
		record("b", model.NotFound),
	}, fixedNow)

	require.Equal(t, 2, existing.TotalEvents)
	require.Equal(t, 1, existing.SuccessCount)
	require.Equal(t, "50.0%", existing.SuccessRate)
	require.Equal(t, "2026-03-01 12:00:00", existing.LastUpdate)

	next := Reconcile(existing, []model.EventRecord{
		record("c", "NT$1000"),
		record("a", "NT$900"),
	}, fixedNow.Add(time.Hour))

	urls := make([]string, len(next.Events))
	for i, e := range next.Events {
		urls[i] = e.URL
		require.Equal(t, i+1, e.Index)
	}
	require.Equal(t, []string{"a", "b", "c"}, urls)
	require.Equal(t, "NT$900", next.Events[0].Price)
	require.Equal(t, "66.7%", next.SuccessRate)
	require.Equal(t, existing.ScrapeTime, next.ScrapeTime)
	require.Equal(t, "2026-03-01 13:00:00", next.LastUpdate)

	// the input collection is left alone
	require.Equal(t, "NT$800", existing.Events[0].Price)
	require.Len(t, existing.Events, 2)
}

func TestReconcileIdempotent(t *testing.T) {
	base := Reconcile(model.EventCollection{}, []model.EventRecord{
		record("a", "NT$800"),
		record("b", model.NotFound),
	}, fixedNow)
	r := record("b", "NT$1200")

	once := Reconcile(base, []model.EventRecord{r}, fixedNow)
	twice := Reconcile(once, []model.EventRecord{r}, fixedNow)

	diff := cmp.Diff(once, twice)
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestReconcileEmpty(t *testing.T) {
	c := Reconcile(model.EventCollection{}, nil, fixedNow)
	require.Equal(t, 0, c.TotalEvents)
	require.Equal(t, "0.0%", c.SuccessRate)
	require.NotNil(t, c.Events)
}

func TestStorePersistsEveryPut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")

	store, err := Open(path)
	require.NoError(t, err)
	require.Empty(t, store.Collection().Events)

	require.NoError(t, store.Put(record("a", "NT$800")))
	require.NoError(t, store.Put(record("b", model.NotFound)))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Len(t, loaded.Events, 2)
	require.Equal(t, 1, loaded.SuccessCount)

	reopened, err := Open(path)
	require.NoError(t, err)
	rec, ok := reopened.Lookup("a")
	require.True(t, ok)
	require.Equal(t, "NT$800", rec.Price)

	require.NoError(t, reopened.Update(func(c *model.EventCollection) {
		c.ExtractionMethod = "http"
		c.CurrentScrapeCount = 2
	}))
	loaded, err = Load(path)
	require.NoError(t, err)
	require.Equal(t, "http", loaded.ExtractionMethod)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temporary files are left behind")
}

func TestSaveKeepsUnicodeReadable(t *testing.T) {
	data, err := Encode(model.EventCollection{Events: []model.EventRecord{record("a", "NT$800")}})
	require.NoError(t, err)
	require.Contains(t, string(data), model.NotFound)
	require.Contains(t, string(data), `"events"`)
}

func TestLoadMalformed(t *testing.T) {
	dir := t.TempDir()

	missingEvents := filepath.Join(dir, "missing.json")
	require.NoError(t, os.WriteFile(missingEvents, []byte(`{"total_events": 1}`), 0644))
	_, err := Load(missingEvents)
	require.True(t, errors.Is(err, ErrMalformed), err)

	_, err = Open(missingEvents)
	require.True(t, errors.Is(err, ErrMalformed), err)

	garbage := filepath.Join(dir, "garbage.json")
	require.NoError(t, os.WriteFile(garbage, []byte(`{"events": [`), 0644))
	_, err = Load(garbage)
	require.True(t, errors.Is(err, ErrMalformed), err)
}

func TestLoadPreservesUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")
	doc := map[string]any{
		"scrape_time":   "2026-01-01 00:00:00",
		"last_update":   "2026-01-01 00:00:00",
		"total_events":  1,
		"success_count": 0,
		"success_rate":  "0.0%",
		"events": []map[string]any{{
			"index": 1, "title": "t", "url": "a",
			"event_info": "未找到", "location": "未找到", "price": "未找到", "sale_time": "未找到",
			"js_title": "legacy",
		}},
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Put(record("b", "NT$800")))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"js_title": "legacy"`)
}
