package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Mr-wang007s/personal-accounting-sub000/models"
)

// Keys of the three sync-state blobs in the sync_state table.
const (
	syncStateMetaKey    = "meta"
	syncStatePendingKey = "pending"
	syncStateLedgerKey  = "ledger"
)

const upsertSyncState = `
INSERT INTO sync_state (key, value) VALUES (?, ?)
ON CONFLICT (key) DO UPDATE SET value = excluded.value;`

// syncStateRepository persists the sync engine's bookkeeping as JSON blobs
// in the sync_state table, one row per blob. It also implements
// [CycleCommitter]: the end-of-cycle commit writes records and all three
// blobs in a single transaction.
type syncStateRepository struct {
	db *ClientDB
}

// NewSyncStateRepository constructs a [SyncStateRepository] backed by the
// given client database.
func NewSyncStateRepository(db *ClientDB) *syncStateRepository {
	return &syncStateRepository{db: db}
}

func (r *syncStateRepository) GetMeta(ctx context.Context) (models.SyncMeta, error) {
	var meta models.SyncMeta
	if err := r.getBlob(ctx, syncStateMetaKey, &meta); err != nil {
		return models.SyncMeta{}, err
	}
	return meta, nil
}

func (r *syncStateRepository) SetMeta(ctx context.Context, meta models.SyncMeta) error {
	return r.setBlob(ctx, syncStateMetaKey, meta)
}

func (r *syncStateRepository) GetPending(ctx context.Context) (map[string]models.PendingChange, error) {
	pending := make(map[string]models.PendingChange)
	if err := r.getBlob(ctx, syncStatePendingKey, &pending); err != nil {
		return nil, err
	}
	return pending, nil
}

func (r *syncStateRepository) SetPending(ctx context.Context, pending map[string]models.PendingChange) error {
	return r.setBlob(ctx, syncStatePendingKey, pending)
}

func (r *syncStateRepository) GetLedger(ctx context.Context) (map[string]models.RecordVersion, error) {
	ledger := make(map[string]models.RecordVersion)
	if err := r.getBlob(ctx, syncStateLedgerKey, &ledger); err != nil {
		return nil, err
	}
	return ledger, nil
}

func (r *syncStateRepository) SetLedger(ctx context.Context, ledger map[string]models.RecordVersion) error {
	return r.setBlob(ctx, syncStateLedgerKey, ledger)
}

// CommitCycle persists the outcome of one successful sync step atomically:
// merged record upserts and removals together with the new meta, pending
// and ledger blobs. A crash before commit leaves the previous cycle's state
// fully intact.
func (r *syncStateRepository) CommitCycle(ctx context.Context, commit CycleCommit) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBeginTransaction, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, rec := range commit.Upserts {
		if _, err = tx.ExecContext(ctx, upsertLocalRecord, localRecordArgs(rec)...); err != nil {
			return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
		}
	}
	for _, id := range commit.Deletes {
		if _, err = tx.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id); err != nil {
			return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
		}
	}

	blobs := map[string]any{
		syncStateMetaKey:    commit.Meta,
		syncStatePendingKey: commit.Pending,
		syncStateLedgerKey:  commit.Ledger,
	}
	for key, blob := range blobs {
		payload, marshalErr := json.Marshal(blob)
		if marshalErr != nil {
			return fmt.Errorf("encode sync state %q: %w", key, marshalErr)
		}
		if _, err = tx.ExecContext(ctx, upsertSyncState, key, payload); err != nil {
			return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", ErrCommitTransaction, err)
	}
	return nil
}

// getBlob decodes the blob stored under key into dest. A missing row is
// not an error: dest keeps its zero value, matching the "created with zero
// values on first use" lifecycle.
func (r *syncStateRepository) getBlob(ctx context.Context, key string, dest any) error {
	var payload []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM sync_state WHERE key = ?`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	if err = json.Unmarshal(payload, dest); err != nil {
		return fmt.Errorf("decode sync state %q: %w", key, err)
	}
	return nil
}

func (r *syncStateRepository) setBlob(ctx context.Context, key string, blob any) error {
	payload, err := json.Marshal(blob)
	if err != nil {
		return fmt.Errorf("encode sync state %q: %w", key, err)
	}

	if _, err = r.db.ExecContext(ctx, upsertSyncState, key, payload); err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	return nil
}
