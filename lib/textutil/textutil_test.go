package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	testCases := []struct {
		in       string
		expected string
	}{
		{in: "", expected: ""},
		{in: "   ", expected: ""},
		{in: "★ 演出日期：2026/05/01 ★", expected: "演出日期：2026/05/01"},
		{in: "📍 地點：台北小巨蛋", expected: "地點：台北小巨蛋"},
		{in: "票價　NT$1,800\t\t VIP", expected: "票價 NT$1,800 VIP"},
		{in: "A ;; B ,， C", expected: "A ; B , C"},
		{in: "; ，leading and trailing ;；", expected: "leading and trailing"},
		{in: "&nbsp;spaced&nbsp;out", expected: "spaced out"},
		{in: "※ 注意 ※", expected: "注意"},
	}

	for _, test := range testCases {
		require.Equal(t, test.expected, Clean(test.in), "input %q", test.in)
	}
}

func TestCompareForm(t *testing.T) {
	require.Equal(t, "nt$1800vip", CompareForm("  NT$1800 　 VIP "))
	require.Equal(t, "", CompareForm("★"))
}

func TestSimilarity(t *testing.T) {
	samples := []string{"台北小巨蛋", "NT$800", "2026/05/01 19:30", "Zepp New Taipei"}
	for _, s := range samples {
		require.Equal(t, 1.0, Similarity(s, s))
		require.Equal(t, 0.0, Similarity(s, ""))
		require.Equal(t, 0.0, Similarity("", s))
		for _, o := range samples {
			require.Equal(t, Similarity(s, o), Similarity(o, s))
			sim := Similarity(s, o)
			require.GreaterOrEqual(t, sim, 0.0)
			require.LessOrEqual(t, sim, 1.0)
		}
	}

	// {a,b,c} vs {b,c,d}
	require.InDelta(t, 0.5, Similarity("abc", "bcd"), 1e-9)
	require.Equal(t, 1.0, Similarity("A B C", "abc"))
	require.Equal(t, 0.0, Similarity("abc", "xyz"))
}

func TestSplitSegments(t *testing.T) {
	require.Equal(t, []string{"a", "b c", "d"}, SplitSegments(" a ; b   c;d ;; "))
	require.Nil(t, SplitSegments(""))
	require.Equal(t, "a ; b", JoinSegments([]string{"a", "b"}))
}

func TestContainsAny(t *testing.T) {
	require.True(t, ContainsAny("Venue: Zepp", []string{"venue"}))
	require.True(t, ContainsAny("地點：台北", []string{"場地", "地點"}))
	require.False(t, ContainsAny("nothing here", []string{"", "venue"}))
}

func TestClosest(t *testing.T) {
	best, score, ok := Closest("台北小巨蛋", []string{"高雄巨蛋", "台北小巨蛋 B1", "NT$800"})
	require.True(t, ok)
	require.Equal(t, "台北小巨蛋 B1", best)
	require.Greater(t, score, 0.0)

	_, _, ok = Closest("台北", nil)
	require.False(t, ok)
}
