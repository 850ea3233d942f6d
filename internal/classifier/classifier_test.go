package classifier

import (
	"testing"

	"tixwatch-backend/internal/linefilter"
	"tixwatch-backend/internal/model"
	"tixwatch-backend/internal/rules"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestClassifyEmpty(t *testing.T) {
	c := New()
	require.Equal(t, model.Unresolved(), c.Classify(nil))
	require.Equal(t, model.Unresolved(), c.Classify([]string{}))
}

func TestClassifyEndToEnd(t *testing.T) {
	c := New()
	lines := []string{
		"演出日期 2026/05/01",
		"地點：台北小巨蛋",
		"票價 NT$1800",
		"售票 2026/03/01 12:00 開賣",
		"注意事項",
		"退票手續費100元",
	}

	expected := model.ClassifiedFields{
		EventInfo: "演出日期 2026/05/01",
		Location:  "地點：台北小巨蛋",
		Price:     "票價 NT$1800",
		SaleTime:  "售票 2026/03/01 12:00 開賣",
	}
	diff := cmp.Diff(expected, c.Classify(lines))
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestClassifyStopMarkerPrecedence(t *testing.T) {
	c := New()
	c.Filter = linefilter.Filter{
		StopMarkers: []string{"NOTICE MARKER"},
		MinLength:   linefilter.DefaultMinLength,
	}

	fields := c.Classify([]string{"2026/01/01 show", "NOTICE MARKER", "NT$100"})
	require.Equal(t, model.NotFound, fields.Price)
	require.Equal(t, "2026/01/01 show", fields.EventInfo)
}

func TestClassifyExclusionVeto(t *testing.T) {
	c := New()
	// no filter so only the rule exclusions can reject the line
	c.Filter = linefilter.Filter{}

	fields := c.Classify([]string{"2026/05/01 退票截止"})
	require.Equal(t, model.NotFound, fields.EventInfo)
}

func TestClassifyNearDuplicates(t *testing.T) {
	c := New()
	fields := c.Classify([]string{
		"票價 NT$1800",
		"票價：NT$1800",
		"VIP NT$3800",
	})
	require.Equal(t, "票價 NT$1800 ; VIP NT$3800", fields.Price)

	c.NearDuplicateThreshold = 0
	fields = c.Classify([]string{
		"票價 NT$1800",
		"票價：NT$1800",
		"VIP NT$3800",
	})
	require.Equal(t, "票價 NT$1800 ; 票價：NT$1800", fields.Price)
}

func TestClassifyCapsCandidates(t *testing.T) {
	c := New()
	fields := c.Classify([]string{
		"2026/05/01 19:30",
		"演出日期 2025年12月24日",
		"開演 8:45 PM",
		"Day 3/7",
	})
	require.Equal(t, "2026/05/01 19:30 ; 演出日期 2025年12月24日 ; 開演 8:45 PM", fields.EventInfo)
}

func TestClassifyDropsEmptyShells(t *testing.T) {
	c := New()
	fields := c.Classify([]string{"Price:", "地點："})
	require.Equal(t, model.Unresolved(), fields)
}

func TestCandidates(t *testing.T) {
	c := New()
	found := c.Candidates([]string{
		"演出日期 2026/05/01",
		"2026/05/02 加場",
		"台北場",
		"NT$800",
		"NT$800",
	})

	expected := map[model.Field][]string{
		model.FieldEventInfo: {"演出日期 2026/05/01", "2026/05/02 加場"},
		model.FieldLocation:  {"台北場"},
		model.FieldPrice:     {"NT$800"},
		model.FieldSaleTime:  nil,
	}
	diff := cmp.Diff(expected, found)
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestCandidatesRespectCap(t *testing.T) {
	c := New()
	c.CandidateSets = rules.Candidates().WithMaxCandidates(1)
	found := c.Candidates([]string{"NT$800", "NT$1,200"})
	require.Equal(t, []string{"NT$800"}, found[model.FieldPrice])
}

func TestCandidatesIgnoreStopMarkers(t *testing.T) {
	c := New()
	found := c.Candidates([]string{
		"注意事項",
		"票價 NT$1800",
		"退票手續費100元",
	})
	require.Equal(t, []string{"票價 NT$1800"}, found[model.FieldPrice])
}

func TestClassifyPriceSkipsScheduleLines(t *testing.T) {
	c := New()
	for _, line := range []string{
		"演出日期 2026/05/01 VIP 優先入場",
		"售票時間 2026/03/01 12:00 票價公告",
		"預售票 2026/03/01 12:00 開賣",
		"開演時間 2026/05/01 19:30 全票入場",
	} {
		fields := c.Classify([]string{line})
		require.Equal(t, model.NotFound, fields.Price, line)
	}

	fields := c.Classify([]string{"演出日期 2026/05/01", "VIP NT$3800"})
	require.Equal(t, "VIP NT$3800", fields.Price)
	require.Equal(t, "演出日期 2026/05/01", fields.EventInfo)
}
