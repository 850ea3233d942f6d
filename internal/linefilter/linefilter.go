package linefilter

import (
	"tixwatch-backend/lib/textutil"
)

// DefaultMinLength is the shortest line, in runes after cleaning, that can
// carry a field value.
const DefaultMinLength = 3

var defaultStopMarkers = []string{
	"注意事項",
	"購票注意事項",
	"購票提醒",
	"取票提醒",
	"退票說明",
	"門票注意事項",
	"活動注意事項",
	"入場注意事項",
	"notices",
	"refund policy",
	"refund procedure",
}

var defaultBlacklist = []string{
	"退票",
	"手續費",
	"安檢",
	"遺失",
	"禁止攝錄影",
	"註冊會員",
	"會員註冊",
	"主辦單位",
	"拓元售票",
	"服務費",
	"注意事項",
	"禁止攜帶",
	"進場須知",
	"入場規定",
	"購票注意",
}

// Filter reduces the raw lines of a page to the ones worth classifying.
type Filter struct {
	// StopMarkers truncate the input at the first line containing one.
	StopMarkers []string
	// Blacklist drops individual noise lines.
	Blacklist []string
	// MinLength drops lines shorter than this many runes.
	MinLength int
}

// Default returns the filter with the stock marker catalogues.
func Default() Filter {
	return Filter{
		StopMarkers: append([]string{}, defaultStopMarkers...),
		Blacklist:   append([]string{}, defaultBlacklist...),
		MinLength:   DefaultMinLength,
	}
}

// Apply truncates at the first stop marker, then drops blacklisted lines,
// then drops short lines. The truncation must come first: nothing after the
// stop marker may survive.
func (f Filter) Apply(lines []string) []string {
	lines = f.Truncate(lines)

	var out []string
	for _, line := range lines {
		if textutil.ContainsAny(line, f.Blacklist) {
			continue
		}
		if textutil.RuneLen(textutil.Clean(line)) < f.MinLength {
			continue
		}
		out = append(out, line)
	}
	return out
}

// Truncate returns the prefix of lines before the first stop marker.
func (f Filter) Truncate(lines []string) []string {
	for i, line := range lines {
		if textutil.ContainsAny(line, f.StopMarkers) {
			return lines[:i]
		}
	}
	return lines
}
