package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/seismo-tools/quakemerge/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_run": `INSERT INTO merge_runs (id, preset, strategy, statistics, events, conflicts, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
	"get_run":    `SELECT id, preset, strategy, statistics, events, conflicts, created_at FROM merge_runs WHERE id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
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
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS merge_runs (
	id         TEXT PRIMARY KEY,
	preset     TEXT NOT NULL,
	strategy   TEXT NOT NULL,
	statistics JSONB NOT NULL,
	events     JSONB NOT NULL,
	conflicts  JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_merge_runs_preset ON merge_runs(preset);
CREATE INDEX IF NOT EXISTS idx_merge_runs_created_at ON merge_runs(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveRun(ctx context.Context, run *model.MergeRun) error {
	statsJSON, err := json.Marshal(run.Statistics)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal statistics")
	}
	eventsJSON, err := json.Marshal(run.Events)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal events")
	}

	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	conflicts := run.Conflicts
	if len(conflicts) == 0 {
		conflicts = nil
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO merge_runs (id, preset, strategy, statistics, events, conflicts, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.ID, run.Preset, run.Strategy, statsJSON, eventsJSON, []byte(conflicts), run.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert run %s", run.ID)
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.MergeRun, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, preset, strategy, statistics, events, conflicts, created_at FROM merge_runs WHERE id = $1`,
		runID,
	)

	var run model.MergeRun
	var statsJSON, eventsJSON []byte
	var conflicts []byte
	err := row.Scan(&run.ID, &run.Preset, &run.Strategy, &statsJSON, &eventsJSON, &conflicts, &run.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("postgres: run %s not found", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}

	if err := json.Unmarshal(statsJSON, &run.Statistics); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal statistics")
	}
	if err := json.Unmarshal(eventsJSON, &run.Events); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal events")
	}
	if len(conflicts) > 0 {
		run.Conflicts = json.RawMessage(conflicts)
	}
	return &run, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.MergeRun, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, preset, strategy, statistics, created_at FROM merge_runs`
	args := []any{}
	if filter.Preset != "" {
		query += ` WHERE preset = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		args = append(args, filter.Preset, limit, filter.Offset)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		args = append(args, limit, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.MergeRun
	for rows.Next() {
		var run model.MergeRun
		var statsJSON []byte
		if err := rows.Scan(&run.ID, &run.Preset, &run.Strategy, &statsJSON, &run.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if err := json.Unmarshal(statsJSON, &run.Statistics); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal statistics")
		}
		runs = append(runs, run)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: iterate runs")
}
