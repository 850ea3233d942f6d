package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"tixwatch-backend/internal/history/db"
	"tixwatch-backend/internal/model"
	"tixwatch-backend/lib/sqliteutil"
	"tixwatch-backend/lib/timezone"

	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("tixwatch.internal.history")

// DefaultLimit applies to Runs and Drift when no positive limit is given.
const DefaultLimit = 10

// Store keeps every validation run so a record's status can be followed
// across runs.
type Store struct {
	db  *sql.DB
	qry *db.Queries
}

func NewStore(database *sql.DB) Store {
	return Store{
		db:  database,
		qry: db.New(database),
	}
}

// Open opens the configured database with the history schema applied.
func Open(config sqliteutil.Config) (Store, *sql.DB, error) {
	database, err := config.OpenDB(db.Schema)
	if err != nil {
		return Store{}, nil, err
	}
	return NewStore(database), database, nil
}

type Run struct {
	ID          string
	GeneratedAt string
	SourceFile  string
	Summary     model.Summary
}

// Entry is the outcome of one record in one run.
type Entry struct {
	RunID       string
	GeneratedAt string
	Title       string
	Status      model.Status
	Errors      []string
	Warnings    []string
	// Changed is set when the status differs from the previous run of the
	// same url.
	Changed bool
}

func encodeList(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	return string(data), err
}

func decodeList(value string) ([]string, error) {
	var out []string
	err := json.Unmarshal([]byte(value), &out)
	return out, err
}

// Record stores report as a new run and returns its id.
func (s Store) Record(ctx context.Context, report model.ValidationReport) (string, error) {
	ctx, span := tracer.Start(ctx, "Record")
	defer span.End()

	id, err := random.String(16)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to generate run id")
		return "", err
	}
	span.SetAttributes(attribute.String("run_id", id))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()
	txqry := s.qry.WithTx(tx)

	err = txqry.CreateRun(ctx, db.ValidationRun{
		ID:          id,
		GeneratedAt: report.GeneratedAt,
		SourceFile:  report.SourceFile,
		Total:       int64(report.Summary.Total),
		Ok:          int64(report.Summary.OK),
		Warning:     int64(report.Summary.Warning),
		Mismatch:    int64(report.Summary.Mismatch),
		CreatedAt:   timezone.Now().UnixNano(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to insert run")
		return "", err
	}

	for i, result := range report.Results {
		errs, err := encodeList(result.Errors)
		if err != nil {
			return "", err
		}
		warnings, err := encodeList(result.Warnings)
		if err != nil {
			return "", err
		}
		err = txqry.CreateResult(ctx, db.CreateResultParams{
			RunID:    id,
			Position: int64(i),
			Url:      result.URL,
			Title:    result.Title,
			Status:   result.Status.String(),
			Errors:   errs,
			Warnings: warnings,
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to insert result")
			return "", fmt.Errorf("record %s: %w", result.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// Runs returns the most recent runs, newest first.
func (s Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	ctx, span := tracer.Start(ctx, "Runs")
	defer span.End()
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := s.qry.ListRuns(ctx, int64(limit))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list runs")
		return nil, err
	}
	out := make([]Run, len(rows))
	for i, row := range rows {
		out[i] = Run{
			ID:          row.ID,
			GeneratedAt: row.GeneratedAt,
			SourceFile:  row.SourceFile,
			Summary: model.Summary{
				Total:    int(row.Total),
				OK:       int(row.Ok),
				Warning:  int(row.Warning),
				Mismatch: int(row.Mismatch),
			},
		}
	}
	return out, nil
}

// Drift returns the results of url over the most recent runs, newest
// first, marking each entry whose status changed since the run before it.
func (s Store) Drift(ctx context.Context, url string, limit int) ([]Entry, error) {
	ctx, span := tracer.Start(ctx, "Drift")
	defer span.End()
	span.SetAttributes(attribute.String("url", url))
	if limit <= 0 {
		limit = DefaultLimit
	}

	// one extra row decides whether the oldest entry changed
	rows, err := s.qry.GetResultsByUrl(ctx, url, int64(limit+1))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get results")
		return nil, err
	}

	entries := make([]Entry, len(rows))
	for i, row := range rows {
		status, err := model.ParseStatus(row.Status)
		if err != nil {
			return nil, err
		}
		errs, err := decodeList(row.Errors)
		if err != nil {
			return nil, fmt.Errorf("decode errors of run %s: %w", row.RunID, err)
		}
		warnings, err := decodeList(row.Warnings)
		if err != nil {
			return nil, fmt.Errorf("decode warnings of run %s: %w", row.RunID, err)
		}
		entries[i] = Entry{
			RunID:       row.RunID,
			GeneratedAt: row.GeneratedAt,
			Title:       row.Title,
			Status:      status,
			Errors:      errs,
			Warnings:    warnings,
		}
	}
	for i := 0; i+1 < len(entries); i++ {
		entries[i].Changed = entries[i].Status != entries[i+1].Status
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
