package validator

import (
	"context"
	"fmt"
	"time"

	"tixwatch-backend/internal/model"
	"tixwatch-backend/internal/pagefetch"
	"tixwatch-backend/lib/telemetry"
	"tixwatch-backend/lib/timezone"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("tixwatch.internal.validator")
var meter = otel.Meter("tixwatch.internal.validator")

var recordCounter, _ = meter.Int64Counter(
	"validation.records",
	metric.WithDescription("validated records by status"),
)

const (
	DefaultAttempts   = 3
	DefaultRetryDelay = 600 * time.Millisecond
)

// Runner validates a whole collection against live pages, one record at a
// time.
type Runner struct {
	Validator Validator
	Fetcher   pagefetch.Fetcher
	Telemetry telemetry.API

	// Attempts bounds how often a page is observed while it looks too
	// sparse. The n-th retry waits n+1 times RetryDelay.
	Attempts   int
	RetryDelay time.Duration
	// Delay is waited after every record.
	Delay time.Duration
	// Limit validates only the first Limit records when positive.
	Limit int
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (r Runner) api() telemetry.API {
	if r.Telemetry == nil {
		return telemetry.SlogAPI{}
	}
	return r.Telemetry
}

// observe fetches the page until it is sufficient or attempts run out. The
// last observation is returned either way together with the last fetch
// error.
func (r Runner) observe(ctx context.Context, url string) (Observation, error) {
	attempts := r.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}

	var obs Observation
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, r.RetryDelay*time.Duration(attempt+1)); err != nil {
				return obs, err
			}
		}

		page, err := r.Fetcher.Fetch(ctx, url)
		if err != nil {
			lastErr = err
			r.api().ReportWarning("observe", "url", url, "attempt", attempt+1, "err", err)
			continue
		}
		obs = ObservationFromPage(page)
		lastErr = nil
		ok, reason := r.Validator.Sufficient(obs)
		if ok {
			return obs, nil
		}
		r.api().ReportDebug("observe.insufficient", "url", url, "attempt", attempt+1, "reason", reason)
	}
	return obs, lastErr
}

// ValidateRecord observes the page of a single record and validates it.
func (r Runner) ValidateRecord(ctx context.Context, record model.EventRecord) model.ValidationResult {
	ctx, span := tracer.Start(ctx, "ValidateRecord")
	defer span.End()
	span.SetAttributes(attribute.String("url", record.URL))

	obs, err := r.observe(ctx, record.URL)
	var result model.ValidationResult
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "observe failed")
		result = r.Validator.Reject(record, obs, fmt.Sprintf("failed to load page: %v", err))
	} else {
		result = r.Validator.Validate(record, obs)
	}

	span.SetAttributes(attribute.String("status", result.Status.String()))
	recordCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("status", result.Status.String())))
	return result
}

// Run validates the records of source in order. A cancelled ctx stops the
// run between records, the report then covers the records done so far and
// the context error is returned alongside it.
func (r Runner) Run(ctx context.Context, source model.EventCollection, sourceFile string) (model.ValidationReport, error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	events := source.Events
	if r.Limit > 0 && len(events) > r.Limit {
		events = events[:r.Limit]
	}

	report := model.ValidationReport{
		SourceFile: sourceFile,
		Results:    []model.ValidationResult{},
	}

	var runErr error
	for i, record := range events {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		r.api().ReportDebug("record", "n", i+1, "of", len(events), "title", record.Title)
		result := r.ValidateRecord(ctx, record)
		if err := ctx.Err(); err != nil {
			// interrupted mid-record, the result is not a real observation
			runErr = err
			break
		}
		report.Results = append(report.Results, result)
		if result.Status != model.StatusOK {
			r.api().ReportWarning(
				"result",
				"url", record.URL,
				"status", result.Status.String(),
				"errors", len(result.Errors),
				"warnings", len(result.Warnings),
			)
		}

		if i < len(events)-1 {
			if err := sleep(ctx, r.Delay); err != nil {
				runErr = err
				break
			}
		}
	}

	report.Summarize()
	report.GeneratedAt = timezone.Stamp()
	r.api().ReportCount("mismatch", int64(report.Summary.Mismatch))
	r.api().ReportCount("warning", int64(report.Summary.Warning))

	if runErr != nil {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, "run interrupted")
	}
	return report, runErr
}
