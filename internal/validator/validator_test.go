package validator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"tixwatch-backend/internal/model"
	"tixwatch-backend/internal/pagefetch"
	"tixwatch-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

var filler = strings.Repeat("這是一段用來填充頁面內容的說明文字。\n", 15)

var pageLines = []string{
	"演出日期：2026/05/01 19:30",
	"演出地點：台北小巨蛋",
	"票價：NT$3,800 / NT$2,800",
	"售票時間：2026/03/01 12:00 開賣",
}

func fullPage(url string) pagefetch.Page {
	return pagefetch.Page{
		URL:   url,
		Title: "Some Band Live",
		Lines: pageLines,
		Text:  strings.Join(pageLines, "\n") + "\n" + filler,
	}
}

func storedRecord(url string) model.EventRecord {
	return model.EventRecord{
		Index:     1,
		Title:     "Some Band Live",
		URL:       url,
		EventInfo: "演出日期：2026/05/01 19:30",
		Location:  "演出地點：台北小巨蛋",
		Price:     "票價：NT$3,800 / NT$2,800",
		SaleTime:  model.NotFound,
	}
}

func TestCheckFieldSentinel(t *testing.T) {
	check := CheckField(model.NotFound, nil, filler, DefaultMatchThreshold)
	require.Equal(t, model.StatusOK, check.Status)

	check = CheckField(model.NotFound, []string{"NT$800"}, filler, DefaultMatchThreshold)
	require.Equal(t, model.StatusWarning, check.Status)
	require.Equal(t, []string{"NT$800"}, check.Candidates)

	check = CheckField("提取失敗", nil, filler, DefaultMatchThreshold)
	require.Equal(t, model.StatusOK, check.Status)
}

func TestCheckFieldMismatch(t *testing.T) {
	text := "演出地點：高雄巨蛋\n" + filler
	check := CheckField("台北小巨蛋", []string{"高雄巨蛋"}, text, DefaultMatchThreshold)
	require.Equal(t, model.StatusMismatch, check.Status)
	require.Empty(t, check.Matched)
	require.Contains(t, check.Reason, "'台北小巨蛋'")
	require.Contains(t, check.Reason, "closest candidate '高雄巨蛋'")
	require.Equal(t, "台北小巨蛋", check.JSONValue)
}

func TestCheckFieldPartial(t *testing.T) {
	text := "票價 NT$800\n" + filler
	check := CheckField("NT$800 ; NT$1200", []string{"票價 NT$800"}, text, DefaultMatchThreshold)
	require.Equal(t, model.StatusWarning, check.Status)
	require.Equal(t, []string{"NT$800"}, check.Matched)
	require.Contains(t, check.Reason, "1 of 2")
}

func TestCheckFieldSimilarity(t *testing.T) {
	// the colon differs so only the candidate similarity can confirm it
	text := "地點：台北小巨蛋\n" + filler
	check := CheckField("地點: 台北小巨蛋", []string{"地點：台北小巨蛋"}, text, DefaultMatchThreshold)
	require.Equal(t, model.StatusOK, check.Status)

	check = CheckField("地點: 台北小巨蛋", []string{"地點：台北小巨蛋"}, text, 0.95)
	require.Equal(t, model.StatusMismatch, check.Status)
}

func TestCheckFieldCapsReportedCandidates(t *testing.T) {
	candidates := []string{"a1", "a2", "a3", "a4", "a5", "a6", "a7"}
	check := CheckField(model.NotFound, candidates, "", DefaultMatchThreshold)
	require.Len(t, check.Candidates, 5)
}

func TestValidateRejectsThinPages(t *testing.T) {
	v := New()
	rec := storedRecord("u")

	result := v.Validate(rec, Observation{Title: "", Text: filler})
	require.Equal(t, model.StatusMismatch, result.Status)
	require.Equal(t, []string{"page: page has no title"}, result.Errors)

	result = v.Validate(rec, Observation{Title: "t", Text: "too short"})
	require.Equal(t, model.StatusMismatch, result.Status)
	require.Len(t, result.Errors, 1)
	require.Contains(t, result.Errors[0], "too short")
	require.Empty(t, result.Checks)
}

func TestValidate(t *testing.T) {
	v := New()
	result := v.Validate(storedRecord("u"), ObservationFromPage(fullPage("u")))

	require.Equal(t, model.StatusWarning, result.Status)
	require.Empty(t, result.Errors)
	require.Len(t, result.Warnings, 1)
	require.True(t, strings.HasPrefix(result.Warnings[0], "sale_time: "))
	require.Equal(t, "Some Band Live", result.PageTitle)
	require.Len(t, result.Checks, 4)
	for _, f := range []model.Field{model.FieldEventInfo, model.FieldLocation, model.FieldPrice} {
		require.Equal(t, model.StatusOK, result.Checks[f].Status, f)
	}
	require.Equal(t, []string{"售票時間：2026/03/01 12:00 開賣"}, result.Checks[model.FieldSaleTime].Candidates)
}

type fakeFetcher struct {
	mutex sync.Mutex
	pages map[string][]pagefetch.Page
	errs  map[string]error
	calls map[string]int
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (pagefetch.Page, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	n := f.calls[url]
	f.calls[url]++

	if err, ok := f.errs[url]; ok {
		return pagefetch.Page{}, err
	}
	pages := f.pages[url]
	if len(pages) == 0 {
		return pagefetch.Page{URL: url}, nil
	}
	if n >= len(pages) {
		n = len(pages) - 1
	}
	return pages[n], nil
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		pages: map[string][]pagefetch.Page{},
		errs:  map[string]error{},
		calls: map[string]int{},
	}
}

func TestRunnerRetriesSparsePages(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.pages["a"] = []pagefetch.Page{{URL: "a", Title: "Some Band Live", Text: "loading"}, fullPage("a")}

	recorder := &telemetry.Recorder{}
	runner := Runner{
		Validator:  New(),
		Fetcher:    fetcher,
		Telemetry:  recorder,
		RetryDelay: time.Millisecond,
	}

	result := runner.ValidateRecord(context.Background(), storedRecord("a"))
	require.Equal(t, model.StatusWarning, result.Status)
	require.Equal(t, 2, fetcher.calls["a"])
	require.Len(t, recorder.Filter(telemetry.LevelDebug), 1)
}

func TestRunnerIsolatesFailures(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.pages["a"] = []pagefetch.Page{fullPage("a")}
	fetcher.errs["b"] = errors.New("connection reset")
	fetcher.pages["c"] = []pagefetch.Page{{URL: "c", Title: "t", Text: "sparse"}}

	runner := Runner{
		Validator:  New(),
		Fetcher:    fetcher,
		Telemetry:  &telemetry.Recorder{},
		RetryDelay: time.Millisecond,
	}

	source := model.EventCollection{Events: []model.EventRecord{
		storedRecord("a"), storedRecord("b"), storedRecord("c"), storedRecord("d"),
	}}
	runner.Limit = 3

	report, err := runner.Run(context.Background(), source, "events.json")
	require.NoError(t, err)
	require.Equal(t, model.Summary{Total: 3, OK: 0, Warning: 1, Mismatch: 2}, report.Summary)
	require.Equal(t, "events.json", report.SourceFile)
	require.NotEmpty(t, report.GeneratedAt)

	require.Equal(t, DefaultAttempts, fetcher.calls["b"])
	require.Contains(t, report.Results[1].Errors[0], "connection reset")
	require.Equal(t, DefaultAttempts, fetcher.calls["c"])
	require.Contains(t, report.Results[2].Errors[0], "too short")
	require.Zero(t, fetcher.calls["d"])
}

func TestRunnerStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := Runner{Validator: New(), Fetcher: newFakeFetcher(), Telemetry: &telemetry.Recorder{}}
	report, err := runner.Run(ctx, model.EventCollection{Events: []model.EventRecord{storedRecord("a")}}, "f")
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, report.Results)
	require.Equal(t, 0, report.Summary.Total)
}

func TestReportFiles(t *testing.T) {
	dir := t.TempDir()
	report := model.ValidationReport{
		GeneratedAt: "2026-03-01 12:00:00",
		SourceFile:  "events.json",
		Results: []model.ValidationResult{
			New().Validate(storedRecord("https://tixcraft.com/activity/detail/a"), ObservationFromPage(fullPage("a"))),
		},
	}
	report.Summarize()

	path := filepath.Join(dir, "report.json")
	require.NoError(t, SaveReport(path, report))
	loaded, err := LoadReport(path)
	require.NoError(t, err)
	require.Equal(t, report.Summary, loaded.Summary)
	require.Equal(t, model.StatusWarning, loaded.Results[0].Status)
	require.Equal(t, model.StatusOK, loaded.Results[0].Checks[model.FieldPrice].Status)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"summary": {}}`), 0644))
	_, err = LoadReport(bad)
	require.ErrorIs(t, err, ErrMalformedReport)
}

func TestRenderMarkdown(t *testing.T) {
	report := model.ValidationReport{
		GeneratedAt: "2026-03-01 12:00:00",
		SourceFile:  "events.json",
		Results: []model.ValidationResult{
			{Index: 1, Title: "Fine", URL: "https://a", Status: model.StatusOK},
			{
				Index:    2,
				Title:    "Broken",
				URL:      "https://b",
				Status:   model.StatusMismatch,
				Errors:   []string{"price: stored value not found on the page"},
				Warnings: []string{"location: 1 of 2 segment(s) not found"},
			},
		},
	}
	report.Summarize()

	md := RenderMarkdown(report)
	require.Contains(t, md, "- Mismatch: 1")
	require.Contains(t, md, "### #2 Broken")
	require.Contains(t, md, "- URL: https://b")
	require.Contains(t, md, "- Error: price: stored value not found on the page")
	require.NotContains(t, md, "https://a")

	report.Results = report.Results[:1]
	report.Summarize()
	require.Contains(t, RenderMarkdown(report), "All records match their pages.")
}
