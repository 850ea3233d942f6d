package eventstore

import (
	"fmt"
	"time"

	"tixwatch-backend/internal/model"
	"tixwatch-backend/lib/timezone"
)

// Reconcile merges incoming records into a copy of existing. Records are
// keyed by url: a known url keeps its position and has its content replaced,
// an unknown url is appended. Indexes are then renumbered 1..N and the
// collection metadata recomputed. existing is not modified.
func Reconcile(existing model.EventCollection, incoming []model.EventRecord, now time.Time) model.EventCollection {
	out := existing.Clone()

	position := make(map[string]int, len(out.Events))
	for i, e := range out.Events {
		position[e.URL] = i
	}

	for _, rec := range incoming {
		rec = rec.Clone()
		if i, ok := position[rec.URL]; ok {
			rec.Index = out.Events[i].Index
			out.Events[i] = rec
			continue
		}
		position[rec.URL] = len(out.Events)
		out.Events = append(out.Events, rec)
	}

	for i := range out.Events {
		out.Events[i].Index = i + 1
	}
	if out.Events == nil {
		out.Events = []model.EventRecord{}
	}

	stamp := timezone.Format(now)
	if out.ScrapeTime == "" {
		out.ScrapeTime = stamp
	}
	out.LastUpdate = stamp
	Recount(&out)
	return out
}

// Recount refreshes the totals and the success metrics of c.
func Recount(c *model.EventCollection) {
	success := 0
	for _, e := range c.Events {
		if e.Resolved() {
			success++
		}
	}
	c.TotalEvents = len(c.Events)
	c.SuccessCount = success
	c.SuccessRate = SuccessRate(success, len(c.Events))
}

// SuccessRate renders success/total as a percentage with one decimal.
func SuccessRate(success, total int) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(success)/float64(total)*100)
}
