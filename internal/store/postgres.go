package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/geosample-cli/internal/db"
	"github.com/sells-group/geosample-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection.
var preparedStatements = map[string]string{
	"insert_run": `INSERT INTO selection_runs (id, params, cities, warnings, status, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
	"get_run":    `SELECT id, params, cities, warnings, status, created_at FROM selection_runs WHERE id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: pool.Close}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS selection_runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	params     JSONB NOT NULL,
	cities     JSONB NOT NULL,
	warnings   JSONB,
	status     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_selection_runs_status ON selection_runs(status);
CREATE INDEX IF NOT EXISTS idx_selection_runs_created_at ON selection_runs(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, params model.RunParams, cities model.Selection, warnings []model.Warning) (*model.SelectionRun, error) {
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
		return nil, eris.Wrap(err, "postgres: marshal params")
	}
	citiesJSON, err := json.Marshal(run.Cities)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal cities")
	}
	warningsJSON, err := json.Marshal(run.Warnings)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal warnings")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO selection_runs (id, params, cities, warnings, status, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, paramsJSON, citiesJSON, warningsJSON, string(run.Status), run.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}
	return run, nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.SelectionRun, error) {
	var r model.SelectionRun
	var paramsJSON, citiesJSON []byte
	var warningsNull *[]byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, params, cities, warnings, status, created_at FROM selection_runs WHERE id = $1`,
		runID,
	).Scan(&r.ID, &paramsJSON, &citiesJSON, &warningsNull, &r.Status, &r.CreatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}

	if err := json.Unmarshal(paramsJSON, &r.Params); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal params")
	}
	if err := json.Unmarshal(citiesJSON, &r.Cities); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal cities")
	}
	if warningsNull != nil {
		if err := json.Unmarshal(*warningsNull, &r.Warnings); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal warnings")
		}
	}
	return &r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.SelectionRun, error) {
	query := `SELECT id, params, cities, warnings, status, created_at FROM selection_runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if !filter.CreatedAfter.IsZero() {
		query += fmt.Sprintf(` AND created_at > $%d`, argIdx)
		args = append(args, filter.CreatedAfter)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.SelectionRun
	for rows.Next() {
		var r model.SelectionRun
		var paramsJSON, citiesJSON []byte
		var warningsNull *[]byte

		if err := rows.Scan(&r.ID, &paramsJSON, &citiesJSON, &warningsNull, &r.Status, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if err := json.Unmarshal(paramsJSON, &r.Params); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal params")
		}
		if err := json.Unmarshal(citiesJSON, &r.Cities); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal cities")
		}
		if warningsNull != nil {
			if err := json.Unmarshal(*warningsNull, &r.Warnings); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal warnings")
			}
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}
