package db

import (
	"context"
)

type ValidationRun struct {
	ID          string
	GeneratedAt string
	SourceFile  string
	Total       int64
	Ok          int64
	Warning     int64
	Mismatch    int64
	CreatedAt   int64
}

const createRun = `insert into ValidationRun(id, generatedAt, sourceFile, total, ok, warning, mismatch, createdAt)
values (?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateRun(ctx context.Context, arg ValidationRun) error {
	_, err := q.db.ExecContext(ctx, createRun,
		arg.ID,
		arg.GeneratedAt,
		arg.SourceFile,
		arg.Total,
		arg.Ok,
		arg.Warning,
		arg.Mismatch,
		arg.CreatedAt,
	)
	return err
}

type CreateResultParams struct {
	RunID    string
	Position int64
	Url      string
	Title    string
	Status   string
	Errors   string
	Warnings string
}

const createResult = `insert into ValidationResult(runId, position, url, title, status, errors, warnings)
values (?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateResult(ctx context.Context, arg CreateResultParams) error {
	_, err := q.db.ExecContext(ctx, createResult,
		arg.RunID,
		arg.Position,
		arg.Url,
		arg.Title,
		arg.Status,
		arg.Errors,
		arg.Warnings,
	)
	return err
}

const listRuns = `select id, generatedAt, sourceFile, total, ok, warning, mismatch, createdAt
from ValidationRun
order by createdAt desc, rowid desc
limit ?`

func (q *Queries) ListRuns(ctx context.Context, limit int64) ([]ValidationRun, error) {
	rows, err := q.db.QueryContext(ctx, listRuns, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ValidationRun
	for rows.Next() {
		var i ValidationRun
		if err := rows.Scan(
			&i.ID,
			&i.GeneratedAt,
			&i.SourceFile,
			&i.Total,
			&i.Ok,
			&i.Warning,
			&i.Mismatch,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type GetResultsByUrlRow struct {
	RunID       string
	GeneratedAt string
	Title       string
	Status      string
	Errors      string
	Warnings    string
}

const getResultsByUrl = `select r.runId, run.generatedAt, r.title, r.status, r.errors, r.warnings
from ValidationResult r
inner join ValidationRun run on run.id = r.runId
where r.url = ?
order by run.createdAt desc, run.rowid desc
limit ?`

func (q *Queries) GetResultsByUrl(ctx context.Context, url string, limit int64) ([]GetResultsByUrlRow, error) {
	rows, err := q.db.QueryContext(ctx, getResultsByUrl, url, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GetResultsByUrlRow
	for rows.Next() {
		var i GetResultsByUrlRow
		if err := rows.Scan(
			&i.RunID,
			&i.GeneratedAt,
			&i.Title,
			&i.Status,
			&i.Errors,
			&i.Warnings,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
