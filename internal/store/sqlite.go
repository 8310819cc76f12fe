package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/seismo-tools/quakemerge/internal/model"
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
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS merge_runs (
	id         TEXT PRIMARY KEY,
	preset     TEXT NOT NULL,
	strategy   TEXT NOT NULL,
	statistics TEXT NOT NULL,
	events     TEXT NOT NULL,
	conflicts  TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_merge_runs_preset ON merge_runs(preset);
CREATE INDEX IF NOT EXISTS idx_merge_runs_created_at ON merge_runs(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run *model.MergeRun) error {
	statsJSON, err := json.Marshal(run.Statistics)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal statistics")
	}
	eventsJSON, err := json.Marshal(run.Events)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal events")
	}

	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO merge_runs (id, preset, strategy, statistics, events, conflicts, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Preset, run.Strategy, string(statsJSON), string(eventsJSON), string(run.Conflicts), run.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert run %s", run.ID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.MergeRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, preset, strategy, statistics, events, conflicts, created_at FROM merge_runs WHERE id = ?`,
		runID,
	)

	var run model.MergeRun
	var statsJSON, eventsJSON string
	var conflicts sql.NullString
	err := row.Scan(&run.ID, &run.Preset, &run.Strategy, &statsJSON, &eventsJSON, &conflicts, &run.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("sqlite: run %s not found", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}

	if err := json.Unmarshal([]byte(statsJSON), &run.Statistics); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal statistics")
	}
	if err := json.Unmarshal([]byte(eventsJSON), &run.Events); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal events")
	}
	if conflicts.Valid {
		run.Conflicts = json.RawMessage(conflicts.String)
	}
	return &run, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.MergeRun, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, preset, strategy, statistics, created_at FROM merge_runs`
	args := []any{}
	if filter.Preset != "" {
		query += ` WHERE preset = ?`
		args = append(args, filter.Preset)
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.MergeRun
	for rows.Next() {
		var run model.MergeRun
		var statsJSON string
		if err := rows.Scan(&run.ID, &run.Preset, &run.Strategy, &statsJSON, &run.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		if err := json.Unmarshal([]byte(statsJSON), &run.Statistics); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal statistics")
		}
		runs = append(runs, run)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}
