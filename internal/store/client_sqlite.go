package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Mr-wang007s/personal-accounting-sub000/internal/logger"
	_ "github.com/mattn/go-sqlite3"
)

// clientSchema creates the two tables the client needs: the mutable record
// store and the keyed sync-state blobs (meta, pending, ledger). The blobs
// are independently readable at startup and written together in one
// transaction at the end of a successful sync cycle.
const clientSchema = `
CREATE TABLE IF NOT EXISTS records (
	id          TEXT PRIMARY KEY,
	type        TEXT NOT NULL,
	amount      TEXT NOT NULL,
	category    TEXT NOT NULL,
	record_date TEXT NOT NULL,
	note        TEXT,
	ledger_id   TEXT NOT NULL,
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL,
	deleted_at  DATETIME
);

CREATE TABLE IF NOT EXISTS sync_state (
	key   TEXT PRIMARY KEY,
	value BLOB NOT NULL
);
`

// ClientDB wraps the local SQLite database shared by the client
// repositories.
type ClientDB struct {
	*sql.DB
}

// NewClientDB opens (creating if necessary) the local SQLite database at
// dbPath and ensures the schema exists. The parent directory is created
// when missing so first runs need no setup.
func NewClientDB(ctx context.Context, dbPath string, log *logger.Logger) (*ClientDB, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create local database dir: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open local database: %w", err)
	}

	// SQLite serializes writers; a single connection avoids SQLITE_BUSY
	// between the record repository and the cycle commit.
	conn.SetMaxOpenConns(1)

	if err = conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping local database: %w", err)
	}

	if _, err = conn.ExecContext(ctx, clientSchema); err != nil {
		return nil, fmt.Errorf("create local schema: %w", err)
	}
	log.Info().Str("func", "NewClientDB").Str("path", dbPath).Msg("local database ready")

	return &ClientDB{DB: conn}, nil
}
