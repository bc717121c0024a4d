package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/geosample-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS selection_runs (
	id         TEXT PRIMARY KEY,
	params     TEXT NOT NULL,
	cities     TEXT NOT NULL,
	warnings   TEXT,
	status     TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_selection_runs_status ON selection_runs(status);
CREATE INDEX IF NOT EXISTS idx_selection_runs_created_at ON selection_runs(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, params model.RunParams, cities model.Selection, warnings []model.Warning) (*model.SelectionRun, error) {
	run := &model.SelectionRun{
		ID:        uuid.New().String(),
		Params:    params,
		Cities:    cities,
		Warnings:  warnings,
		Status:    statusFor(warnings),
		CreatedAt: time.Now().UTC(),
	}

	paramsJSON, err := json.Marshal(run.Params)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal params")
	}
	citiesJSON, err := json.Marshal(run.Cities)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal cities")
	}
	warningsJSON, err := json.Marshal(run.Warnings)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal warnings")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO selection_runs (id, params, cities, warnings, status, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, string(paramsJSON), string(citiesJSON), string(warningsJSON), string(run.Status), run.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return run, nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.SelectionRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, params, cities, warnings, status, created_at FROM selection_runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.SelectionRun, error) {
	query := `SELECT id, params, cities, warnings, status, created_at FROM selection_runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if !filter.CreatedAfter.IsZero() {
		query += ` AND created_at > ?`
		args = append(args, filter.CreatedAfter)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.SelectionRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.SelectionRun, error) {
	var r model.SelectionRun
	var paramsJSON, citiesJSON string
	var warningsJSON sql.NullString
	var status string

	err := row.Scan(&r.ID, &paramsJSON, &citiesJSON, &warningsJSON, &status, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	r.Status = model.RunStatus(status)

	if err := json.Unmarshal([]byte(paramsJSON), &r.Params); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal params")
	}
	if err := json.Unmarshal([]byte(citiesJSON), &r.Cities); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal cities")
	}
	if warningsJSON.Valid && warningsJSON.String != "null" {
		if err := json.Unmarshal([]byte(warningsJSON.String), &r.Warnings); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal warnings")
		}
	}
	return &r, nil
}
