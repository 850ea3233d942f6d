package fixer

import (
	"strings"

	"tixwatch-backend/internal/eventstore"
	"tixwatch-backend/internal/model"
)

// Stats tallies what Apply changed.
type Stats struct {
	// Records is the number of records with at least one field changed.
	Records int
	Fields  map[model.Field]int
	Total   int
}

// Apply returns a copy of source where every field the report flagged as a
// mismatch, and also as a warning when includeWarnings is set, is replaced
// by its top candidate. Fields without candidates are never touched and
// records are never removed. Neither source nor report is modified.
func Apply(source model.EventCollection, report model.ValidationReport, includeWarnings bool) (model.EventCollection, Stats) {
	out := source.Clone()
	stats := Stats{Fields: make(map[model.Field]int, len(model.Fields))}
	for _, f := range model.Fields {
		stats.Fields[f] = 0
	}

	byURL := make(map[string]int, len(out.Events))
	for i, e := range out.Events {
		if _, seen := byURL[e.URL]; !seen {
			byURL[e.URL] = i
		}
	}

	for _, result := range report.Results {
		i, ok := byURL[result.URL]
		if !ok {
			continue
		}
		record := &out.Events[i]

		changed := false
		for _, field := range model.Fields {
			check, ok := result.Checks[field]
			if !ok || check == nil || len(check.Candidates) == 0 {
				continue
			}
			eligible := check.Status == model.StatusMismatch ||
				(includeWarnings && check.Status == model.StatusWarning)
			if !eligible {
				continue
			}

			replacement := strings.TrimSpace(check.Candidates[0])
			if replacement == "" || replacement == record.Get(field) {
				continue
			}
			record.Set(field, replacement)
			stats.Fields[field]++
			stats.Total++
			changed = true
		}
		if changed {
			stats.Records++
		}
	}

	eventstore.Recount(&out)
	return out, stats
}
