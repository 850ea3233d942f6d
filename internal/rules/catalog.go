package rules

import (
	"regexp"
	"strings"

	"tixwatch-backend/internal/model"
	"tixwatch-backend/lib/textutil"
)

// Pattern and vocabulary families shared by the classification and the
// candidate-extraction rule sets.
var (
	DatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\d{4}\s*[/.\-]\s*\d{1,2}\s*[/.\-]\s*\d{1,2}`),
		regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{4}`),
		regexp.MustCompile(`\d{4}\s*年\s*\d{1,2}\s*月\s*\d{1,2}\s*日`),
		regexp.MustCompile(`\d{1,2}\s*月\s*\d{1,2}\s*日`),
		regexp.MustCompile(`(?:^|[^\d/])\d{1,2}/\d{1,2}(?:[^\d/]|$)`),
	}
	TimePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\d{1,2}\s*[:：]\s*\d{2}`),
	}
	CurrencyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)NT\$\s*\d[\d,]*`),
		regexp.MustCompile(`\$\s*\d[\d,]*`),
		regexp.MustCompile(`\d[\d,]*\s*元`),
	}
	amountPattern = regexp.MustCompile(`\d[\d,]{2,}`)
	freePattern   = regexp.MustCompile(`(?i)免費|\bfree\b`)
	englishVenue  = regexp.MustCompile(`(?i)\b(?:legacy|zepp|westar|sub live|arena|hall|stadium|ticc|att|dome)\b`)

	RefundVocabulary = []string{
		"退票", "退款", "服務費", "手續費", "機台取票", "取票", "客服", "ibon",
	}
	SaleVocabulary = []string{
		"售票", "開賣", "預售", "啟售", "購票", "預購", "開放購買", "發售", "優先購",
		"on sale", "presale",
	}
	VenueVocabulary = []string{
		"體育館", "巨蛋", "中心", "海音館", "滑雪場", "展覽館", "會議中心", "音樂廳", "演藝廳",
	}
	LocationLabels = []string{
		"演出地點", "活動地點", "地點", "場地", "會場", "venue", "location",
	}
	PromotionalVocabulary = []string{
		"重返", "震撼", "篇章", "喚起", "點燃", "引爆", "席捲", "降臨", "登陸",
		"盛大", "傳奇", "夢幻", "熱血", "回憶", "感動",
	}
	PriceExclusions = []string{
		"限購", "服務費", "手續費", "注意事項", "退票", "退款", "取票", "客服",
		// schedule and sale lines carry years that read as amounts
		"活動日期", "演出日期", "演出時間", "開演時間", "售票時間", "預售", "開賣",
	}
	CityVocabulary = []string{
		"駁二", "新北市", "台北", "臺北", "高雄", "台中", "臺中", "台南", "臺南", "新竹",
	}
)

var dateTimePatterns = append(append([]*regexp.Regexp{}, DatePatterns...), TimePatterns...)

var (
	eventInfoLabels = []string{"演出日期", "活動日期", "演出時間", "活動時間", "日期", "時間", "date", "time"}
	priceLabels     = []string{"票價", "價格", "票種", "price", "ticket price"}
	saleLabels      = []string{"售票時間", "開賣時間", "售票日期", "啟售時間", "on sale", "sale"}
)

const (
	venueShortLength = 30
	venueLongLength  = 50
)

var clauseSplitRegex = regexp.MustCompile(`[，,。！!？?；;|｜]`)

// simplifyVenue keeps long location lines only when a short clause naming
// the venue can be cut out of them.
func simplifyVenue(line string) string {
	if textutil.RuneLen(line) <= venueShortLength {
		return line
	}
	if i := strings.Index(line, "注意事項"); i >= 0 {
		line = line[:i]
	}
	for _, clause := range clauseSplitRegex.Split(line, -1) {
		clause = textutil.Clean(clause)
		if clause == "" {
			continue
		}
		if !textutil.ContainsAny(clause, VenueVocabulary) &&
			!textutil.ContainsAny(clause, LocationLabels) &&
			!englishVenue.MatchString(clause) {
			continue
		}
		n := textutil.RuneLen(clause)
		if n <= venueShortLength {
			return clause
		}
		if n <= venueLongLength && !textutil.ContainsAny(clause, PromotionalVocabulary) {
			return clause
		}
	}
	return ""
}

// Classification returns the precise rule sets used to commit field values.
func Classification() Sets {
	return Sets{
		model.FieldEventInfo: {
			Field: model.FieldEventInfo,
			Rules: []Rule{
				{Name: "date", Patterns: DatePatterns},
				{Name: "time", Patterns: TimePatterns},
			},
			Exclusions:    append(append([]string{}, RefundVocabulary...), SaleVocabulary...),
			MaxLength:     100,
			MaxCandidates: 3,
			Labels:        eventInfoLabels,
		},
		model.FieldLocation: {
			Field: model.FieldLocation,
			Rules: []Rule{
				{Name: "label", Keywords: LocationLabels},
				{Name: "venue", Keywords: VenueVocabulary},
				{Name: "venue-en", Patterns: []*regexp.Regexp{englishVenue}},
			},
			Exclusions:    []string{"取票", "退票", "售票", "購票", "開賣", "客服"},
			MaxCandidates: 2,
			Labels:        LocationLabels,
			Simplify:      simplifyVenue,
		},
		model.FieldPrice: {
			Field: model.FieldPrice,
			Rules: []Rule{
				{Name: "currency", Patterns: CurrencyPatterns},
				{Name: "tier", Keywords: []string{"VVIP", "VIP", "CAT", "全票"}, Patterns: []*regexp.Regexp{amountPattern}},
				{Name: "label", Keywords: priceLabels, Patterns: []*regexp.Regexp{amountPattern}},
				{Name: "free", Patterns: []*regexp.Regexp{freePattern}},
			},
			Exclusions:    PriceExclusions,
			MaxLength:     120,
			MaxCandidates: 2,
			Labels:        priceLabels,
		},
		model.FieldSaleTime: {
			Field: model.FieldSaleTime,
			Rules: []Rule{
				{Name: "sale-window", Keywords: SaleVocabulary, Patterns: dateTimePatterns},
			},
			Exclusions:    []string{"退票", "退款", "手續費", "服務費"},
			MinLength:     5,
			MaxCandidates: 3,
			Labels:        saleLabels,
		},
	}
}

// CandidateLimit is the default cap of a candidate-extraction set.
const CandidateLimit = 20

// Candidates returns the recall-oriented rule sets the validator uses to
// collect every plausible line for a field from a live page.
func Candidates() Sets {
	return Sets{
		model.FieldEventInfo: {
			Field:         model.FieldEventInfo,
			Rules:         []Rule{{Name: "date-or-time", Patterns: dateTimePatterns}},
			Exclusions:    RefundVocabulary,
			MaxCandidates: CandidateLimit,
			Labels:        eventInfoLabels,
		},
		model.FieldLocation: {
			Field: model.FieldLocation,
			Rules: []Rule{
				{Name: "label", Keywords: LocationLabels},
				{Name: "venue", Keywords: append(append([]string{}, VenueVocabulary...), CityVocabulary...)},
				{Name: "venue-en", Patterns: []*regexp.Regexp{englishVenue}},
			},
			MaxCandidates: CandidateLimit,
			Labels:        LocationLabels,
		},
		model.FieldPrice: {
			Field: model.FieldPrice,
			Rules: []Rule{
				{Name: "currency", Patterns: CurrencyPatterns},
				{Name: "tier", Keywords: []string{"VVIP", "VIP", "CAT"}, Patterns: []*regexp.Regexp{amountPattern}},
			},
			MaxCandidates: CandidateLimit,
			Labels:        priceLabels,
		},
		model.FieldSaleTime: {
			Field:         model.FieldSaleTime,
			Rules:         []Rule{{Name: "sale-window", Keywords: SaleVocabulary, Patterns: dateTimePatterns}},
			MaxCandidates: CandidateLimit,
			Labels:        saleLabels,
		},
	}
}
