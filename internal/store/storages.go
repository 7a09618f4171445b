// Package store contains the persistence layer of the application: the
// server-side PostgreSQL record repository that owns the sync version
// counter, and the client-side SQLite store holding the local records plus
// the three sync-state blobs (meta, pending changes, version ledger).
package store

import (
	"context"
	"fmt"

	"github.com/Mr-wang007s/personal-accounting-sub000/internal/config"
	"github.com/Mr-wang007s/personal-accounting-sub000/internal/logger"
	"github.com/Mr-wang007s/personal-accounting-sub000/migrations"
)

// Storages aggregates the server-side repositories.
type Storages struct {
	Records RecordRepository
}

// NewStorages opens the server database, runs pending migrations, and
// wires the repositories.
func NewStorages(ctx context.Context, cfg config.Storage, log *logger.Logger) (*Storages, error) {
	db, err := NewConnectPostgres(ctx, cfg.DB, log)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err = migrations.Migrate(db.DB); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Storages{
		Records: NewRecordRepository(db, log),
	}, nil
}
