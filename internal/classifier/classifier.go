package classifier

import (
	"strings"

	"tixwatch-backend/internal/linefilter"
	"tixwatch-backend/internal/model"
	"tixwatch-backend/internal/rules"
	"tixwatch-backend/lib/textutil"
)

// DefaultNearDuplicateThreshold is the similarity above which a later line
// is considered a repeat of an accepted one.
const DefaultNearDuplicateThreshold = 0.8

// Classifier turns the raw text lines of a page into field values.
type Classifier struct {
	Filter linefilter.Filter
	// CandidateFilter prepares lines for Candidates. It normally has no
	// stop markers since it runs over a whole page, where notice headings
	// can appear before the event details.
	CandidateFilter linefilter.Filter
	// Sets commit field values, CandidateSets collect validator evidence.
	Sets          rules.Sets
	CandidateSets rules.Sets
	// NearDuplicateThreshold applies to Classify only.
	NearDuplicateThreshold float64
}

func New() Classifier {
	candidateFilter := linefilter.Default()
	candidateFilter.StopMarkers = nil

	return Classifier{
		Filter:                 linefilter.Default(),
		CandidateFilter:        candidateFilter,
		Sets:                   rules.Classification(),
		CandidateSets:          rules.Candidates(),
		NearDuplicateThreshold: DefaultNearDuplicateThreshold,
	}
}

// Classify returns a value or the NotFound sentinel for every field. Each
// field is decided independently over the same filtered lines, so a line
// may end up in more than one field.
func (c Classifier) Classify(lines []string) model.ClassifiedFields {
	filtered := c.Filter.Apply(lines)

	out := model.Unresolved()
	for _, field := range model.Fields {
		set, ok := c.Sets[field]
		if !ok {
			continue
		}
		accepted := c.suppressNearDuplicates(collect(set, filtered))
		if set.MaxCandidates > 0 && len(accepted) > set.MaxCandidates {
			accepted = accepted[:set.MaxCandidates]
		}
		if len(accepted) > 0 {
			out.Set(field, textutil.JoinSegments(accepted))
		}
	}
	return out
}

// Candidates returns every plausible line per field without near-duplicate
// suppression, capped by each candidate set.
func (c Classifier) Candidates(lines []string) map[model.Field][]string {
	filtered := c.CandidateFilter.Apply(lines)

	out := make(map[model.Field][]string, len(model.Fields))
	for _, field := range model.Fields {
		set, ok := c.CandidateSets[field]
		if !ok {
			out[field] = nil
			continue
		}
		found := collect(set, filtered)
		if set.MaxCandidates > 0 && len(found) > set.MaxCandidates {
			found = found[:set.MaxCandidates]
		}
		out[field] = found
	}
	return out
}

// collect runs the set over lines, keeping first-seen order and dropping
// values equal under compare form.
func collect(set rules.RuleSet, lines []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, line := range lines {
		value, ok := set.Accept(line)
		if !ok {
			continue
		}
		// segments are joined with ";" so a value cannot carry its own
		value = strings.ReplaceAll(value, ";", "；")
		key := textutil.CompareForm(value)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, value)
	}
	return out
}

func (c Classifier) suppressNearDuplicates(values []string) []string {
	threshold := c.NearDuplicateThreshold
	if threshold <= 0 {
		return values
	}
	var out []string
	for _, v := range values {
		dup := false
		for _, kept := range out {
			if textutil.Similarity(v, kept) > threshold {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, v)
		}
	}
	return out
}
