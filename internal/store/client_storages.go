package store

import (
	"context"
	"fmt"

	"github.com/Mr-wang007s/personal-accounting-sub000/internal/config"
	"github.com/Mr-wang007s/personal-accounting-sub000/internal/logger"
)

// ClientStorages aggregates the client-side repositories sharing one local
// SQLite database.
type ClientStorages struct {
	Records   LocalRecordRepository
	SyncState SyncStateRepository
	Committer CycleCommitter
}

// NewClientStorages opens the local database and wires the client
// repositories. The sync-state repository doubles as the cycle committer
// because both live in the same database file.
func NewClientStorages(ctx context.Context, cfg config.ClientStorage, log *logger.Logger) (*ClientStorages, error) {
	db, err := NewClientDB(ctx, cfg.DBPath, log)
	if err != nil {
		return nil, fmt.Errorf("open client database: %w", err)
	}

	syncState := NewSyncStateRepository(db)

	return &ClientStorages{
		Records:   NewLocalRecordRepository(db),
		SyncState: syncState,
		Committer: syncState,
	}, nil
}
