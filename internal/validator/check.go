package validator

import (
	"fmt"
	"strings"

	"tixwatch-backend/internal/model"
	"tixwatch-backend/lib/textutil"
)

// DefaultMatchThreshold is the similarity at which a stored segment counts
// as confirmed by a candidate.
const DefaultMatchThreshold = 0.68

// reportedCandidates caps the candidates copied into a FieldCheck.
const reportedCandidates = 5

// CheckField scores a stored field value against the candidates derived
// from a live page and the page text itself.
func CheckField(stored string, candidates []string, observedText string, threshold float64) model.FieldCheck {
	check := model.FieldCheck{
		Matched:    []string{},
		Candidates: head(candidates, reportedCandidates),
		JSONValue:  stored,
	}

	var segments []string
	if !model.IsUnresolved(stored) {
		for _, seg := range textutil.SplitSegments(stored) {
			if !model.IsUnresolved(seg) {
				segments = append(segments, seg)
			}
		}
	}

	if len(segments) == 0 {
		if len(candidates) > 0 {
			check.Status = model.StatusWarning
			check.Reason = fmt.Sprintf("no value stored but the page shows %d candidate(s)", len(candidates))
			return check
		}
		check.Status = model.StatusOK
		check.Reason = "no value stored and none found on the page"
		return check
	}

	text := textutil.CompareForm(observedText)
	var unmatched []string
	for _, seg := range segments {
		if segmentMatches(seg, text, candidates, threshold) {
			check.Matched = append(check.Matched, seg)
		} else {
			unmatched = append(unmatched, seg)
		}
	}

	switch {
	case len(unmatched) == 0:
		check.Status = model.StatusOK
		check.Reason = fmt.Sprintf("all %d segment(s) confirmed on the page", len(segments))
	case len(check.Matched) > 0:
		check.Status = model.StatusWarning
		check.Reason = fmt.Sprintf(
			"%d of %d segment(s) not found on the page: %s",
			len(unmatched), len(segments), quoteSome(unmatched, 2),
		)
	default:
		check.Status = model.StatusMismatch
		check.Reason = fmt.Sprintf("stored value not found on the page: %s", quoteSome(unmatched, 2))
		if best, _, ok := textutil.Closest(unmatched[0], candidates); ok {
			check.Reason += fmt.Sprintf(", closest candidate '%s'", best)
		} else {
			check.Reason += ", no candidates on the page"
		}
	}
	return check
}

func segmentMatches(segment, normalizedText string, candidates []string, threshold float64) bool {
	norm := textutil.CompareForm(segment)
	if norm != "" && strings.Contains(normalizedText, norm) {
		return true
	}
	for _, c := range candidates {
		if textutil.Similarity(segment, c) >= threshold {
			return true
		}
	}
	return false
}

func head(values []string, n int) []string {
	if len(values) > n {
		values = values[:n]
	}
	return append([]string{}, values...)
}

func quoteSome(values []string, n int) string {
	quoted := make([]string, 0, n)
	for _, v := range head(values, n) {
		quoted = append(quoted, fmt.Sprintf("'%s'", v))
	}
	out := strings.Join(quoted, ", ")
	if len(values) > n {
		out += fmt.Sprintf(" and %d more", len(values)-n)
	}
	return out
}
