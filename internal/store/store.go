// Package store persists committed merge runs. Two drivers are provided:
// SQLite for single-user CLI use and Postgres for the shared server.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/seismo-tools/quakemerge/internal/config"
	"github.com/seismo-tools/quakemerge/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Preset string `json:"preset,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for merge runs.
type Store interface {
	SaveRun(ctx context.Context, run *model.MergeRun) error
	GetRun(ctx context.Context, runID string) (*model.MergeRun, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.MergeRun, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store for the configured driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return NewSQLite(cfg.Path)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
