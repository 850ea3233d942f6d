package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

// SegmentSeparator joins the surviving segments of a classified field.
const SegmentSeparator = " ; "

var decorativeSymbols = map[rune]struct{}{
	'●': {}, '○': {}, '※': {}, '★': {}, '☆': {},
	'▲': {}, '△': {}, '▼': {}, '▽': {}, '■': {},
	'□': {}, '◆': {}, '◇': {}, '❋': {}, '▪': {},
	'▫': {}, '•': {}, '◎': {}, '♦': {}, '✦': {},
}

type runeRange struct {
	lo, hi rune
}

var emojiRanges = []runeRange{
	{0x1F000, 0x1FAFF}, // mahjong, playing cards, pictographs, emoticons, transport, supplemental symbols
	{0x2600, 0x27BF},   // misc symbols and dingbats
	{0x2B00, 0x2BFF},   // arrows and stars
	{0xFE00, 0xFE0F},   // variation selectors
	{0x200D, 0x200D},   // zero width joiner
	{0xE0020, 0xE007F}, // tag sequences
}

func isDecorative(r rune) bool {
	if _, ok := decorativeSymbols[r]; ok {
		return true
	}
	for _, rg := range emojiRanges {
		if r >= rg.lo && r <= rg.hi {
			return true
		}
	}
	return false
}

func isSeparator(r rune) bool {
	switch r {
	case ';', ',', '，', '；':
		return true
	}
	return false
}

var separatorRunRegex = regexp.MustCompile(`[;,，；](?:\s*[;,，；])+`)

// Clean strips decorative symbols and emoji, collapses whitespace and
// separator runs, and trims separators off both ends. It never fails.
func Clean(raw string) string {
	if raw == "" {
		return ""
	}
	raw = strings.ReplaceAll(raw, "&nbsp;", " ")
	raw = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		if isDecorative(r) || !unicode.IsPrint(r) {
			return -1
		}
		return r
	}, raw)
	raw = strings.Join(strings.Fields(raw), " ")
	raw = separatorRunRegex.ReplaceAllStringFunc(raw, func(run string) string {
		for _, r := range run {
			return string(r)
		}
		return run
	})
	return strings.TrimFunc(raw, func(r rune) bool {
		return isSeparator(r) || unicode.IsSpace(r)
	})
}

// CompareForm is the representation used for fuzzy comparison: cleaned,
// lower-cased, with every kind of whitespace removed.
func CompareForm(s string) string {
	s = strings.ToLower(Clean(s))
	return strings.Join(strings.Fields(s), "")
}

// Similarity is the Jaccard index of the character sets of a and b in
// compare form.
func Similarity(a, b string) float64 {
	an := CompareForm(a)
	bn := CompareForm(b)
	if an == "" || bn == "" {
		return 0
	}
	if an == bn {
		return 1
	}

	aset := make(map[rune]struct{})
	for _, r := range an {
		aset[r] = struct{}{}
	}
	bset := make(map[rune]struct{})
	for _, r := range bn {
		bset[r] = struct{}{}
	}

	inter := 0
	for r := range aset {
		if _, ok := bset[r]; ok {
			inter++
		}
	}
	union := len(aset) + len(bset) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// SplitSegments splits a joined field value back into its cleaned,
// non-empty segments.
func SplitSegments(value string) []string {
	var out []string
	for _, seg := range strings.Split(value, ";") {
		seg = strings.Join(strings.Fields(seg), " ")
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

func JoinSegments(segments []string) string {
	return strings.Join(segments, SegmentSeparator)
}

// ContainsAny reports whether s contains any of the keywords, ignoring case.
func ContainsAny(s string, keywords []string) bool {
	lower := strings.ToLower(s)
	for _, k := range keywords {
		if k == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

// Closest returns the candidate nearest to target by Jaro-Winkler distance,
// for use in diagnostics. ok is false when there are no candidates.
func Closest(target string, candidates []string) (best string, score float64, ok bool) {
	t := CompareForm(target)
	if t == "" {
		return "", 0, false
	}
	for _, c := range candidates {
		s := matchr.JaroWinkler(t, CompareForm(c), false)
		if !ok || s > score {
			best = c
			score = s
			ok = true
		}
	}
	return best, score, ok
}

// RuneLen counts characters, not bytes.
func RuneLen(s string) int {
	return len([]rune(s))
}
