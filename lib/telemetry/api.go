package telemetry

import (
	"fmt"
	"log/slog"
	"sync"
)

// API is the diagnostics sink handed to a pipeline run. Components report
// through the sink they were given instead of a process-wide logger so
// that tests can assert on what was reported.
type API interface {
	// ReportBroken reports a component that has broken in a way that should be addressed
	ReportBroken(id string, params ...any)

	// ReportWarning reports a scenario that does not necessarily indicate brokenness, but may be subject to investigation
	ReportWarning(id string, params ...any)

	// ReportDebug reports information only useful while investigating a run
	ReportDebug(id string, params ...any)

	// ReportCount reports the current count of a specific event at the current time, these counts should
	// not be summed but interpreted as points of data over time.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id with a namespace, kind of like creating a
// "sub" logger.
type ScopedAPI struct {
	namespace string
	inner     API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) id(id string) string {
	return fmt.Sprintf("%s:%s", s.namespace, id)
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(s.id(id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(s.id(id), params...)
}

func (s ScopedAPI) ReportDebug(id string, params ...any) {
	s.inner.ReportDebug(s.id(id), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(s.id(id), count)
}

// SlogAPI implements API using the default slog logger. Params are taken
// as key/value pairs the way slog takes them.
type SlogAPI struct{}

func (SlogAPI) ReportBroken(id string, params ...any) {
	slog.Error("broken component", append([]any{"id", id}, params...)...)
}

func (SlogAPI) ReportWarning(id string, params ...any) {
	slog.Warn("warning", append([]any{"id", id}, params...)...)
}

func (SlogAPI) ReportDebug(id string, params ...any) {
	slog.Debug("debug", append([]any{"id", id}, params...)...)
}

func (SlogAPI) ReportCount(id string, count int64) {
	slog.Info("count", "id", id, "n", count)
}

// Level classifies a recorded report.
type Level string

const (
	LevelBroken  Level = "broken"
	LevelWarning Level = "warning"
	LevelDebug   Level = "debug"
	LevelCount   Level = "count"
)

type Report struct {
	Level  Level
	ID     string
	Params []any
	Count  int64
}

// Recorder keeps every report in memory, optionally forwarding to another
// API. One Recorder lives for one pipeline run.
type Recorder struct {
	Forward API

	mutex   sync.Mutex
	reports []Report
}

func (r *Recorder) record(rep Report) {
	r.mutex.Lock()
	r.reports = append(r.reports, rep)
	r.mutex.Unlock()
}

func (r *Recorder) ReportBroken(id string, params ...any) {
	r.record(Report{Level: LevelBroken, ID: id, Params: params})
	if r.Forward != nil {
		r.Forward.ReportBroken(id, params...)
	}
}

func (r *Recorder) ReportWarning(id string, params ...any) {
	r.record(Report{Level: LevelWarning, ID: id, Params: params})
	if r.Forward != nil {
		r.Forward.ReportWarning(id, params...)
	}
}

func (r *Recorder) ReportDebug(id string, params ...any) {
	r.record(Report{Level: LevelDebug, ID: id, Params: params})
	if r.Forward != nil {
		r.Forward.ReportDebug(id, params...)
	}
}

func (r *Recorder) ReportCount(id string, count int64) {
	r.record(Report{Level: LevelCount, ID: id, Count: count})
	if r.Forward != nil {
		r.Forward.ReportCount(id, count)
	}
}

// Reports returns a copy of everything recorded so far.
func (r *Recorder) Reports() []Report {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return append([]Report(nil), r.reports...)
}

// Filter returns the recorded reports of the given level.
func (r *Recorder) Filter(level Level) []Report {
	var out []Report
	for _, rep := range r.Reports() {
		if rep.Level == level {
			out = append(out, rep)
		}
	}
	return out
}
