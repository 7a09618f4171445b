package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/Mr-wang007s/personal-accounting-sub000/internal/logger"
	"github.com/Mr-wang007s/personal-accounting-sub000/models"
)

// recordRepository is the PostgreSQL-backed implementation of
// [RecordRepository]. All queries run against the "records" table; the
// per-user version counter lives in "sync_counters" and is advanced under
// a row lock inside ApplyPush so concurrent pushes of the same user are
// serialized.
type recordRepository struct {
	*DB
	logger *logger.Logger
}

// psql builds queries with PostgreSQL-style $N placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var recordColumns = []string{
	"id", "user_id", "client_id", "type", "amount", "category",
	"record_date", "note", "ledger_id", "created_at", "updated_at",
	"deleted_at", "sync_version",
}

// NewRecordRepository constructs a [RecordRepository] backed by the given
// database connection and logger.
func NewRecordRepository(db *DB, log *logger.Logger) RecordRepository {
	return &recordRepository{
		DB:     db,
		logger: log,
	}
}

func (r *recordRepository) PullSince(ctx context.Context, userID, sinceVersion int64) ([]models.ServerRecord, error) {
	log := logger.FromContext(ctx)

	query, args, err := psql.Select(recordColumns...).
		From("records").
		Where(sq.Eq{"user_id": userID}).
		Where(sq.Gt{"sync_version": sinceVersion}).
		OrderBy("sync_version ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build pull query: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "recordRepository.PullSince").
			Int64("user_id", userID).
			Int64("since_version", sinceVersion).
			Msg("failed to execute pull-since query")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	return scanServerRecords(rows)
}

func (r *recordRepository) GetAll(ctx context.Context, userID int64) ([]models.ServerRecord, error) {
	log := logger.FromContext(ctx)

	query, args, err := psql.Select(recordColumns...).
		From("records").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("sync_version ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get-all query: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "recordRepository.GetAll").
			Int64("user_id", userID).
			Msg("failed to execute get-all query")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	return scanServerRecords(rows)
}

func (r *recordRepository) CurrentVersion(ctx context.Context, userID int64) (int64, error) {
	var version int64
	err := r.DB.QueryRowContext(ctx,
		`SELECT version FROM sync_counters WHERE user_id = $1`, userID).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	return version, nil
}

// ApplyPush implements the transactional push contract. The counter row is
// locked FOR UPDATE for the whole batch: every committed mutation consumes
// exactly one counter value and two concurrent pushes of the same user
// cannot interleave.
func (r *recordRepository) ApplyPush(ctx context.Context, userID int64, req models.PushRequest) (RecordApplyResult, error) {
	log := logger.FromContext(ctx)
	var result RecordApplyResult

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("%w: %w", ErrBeginTransaction, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	version, err := lockCounter(ctx, tx, userID)
	if err != nil {
		return result, err
	}

	for _, rec := range req.Created {
		version++
		var serverID int64
		serverID, err = upsertRecord(ctx, tx, userID, rec, version)
		if err != nil {
			// A unique violation that escapes the upsert's conflict target
			// means the batch raced another writer. Surface it as a version
			// conflict so the device re-pulls and retries.
			if isUniqueViolation(err) {
				err = fmt.Errorf("%w: client id %s", ErrVersionMismatch, rec.ID)
			}
			log.Err(err).
				Str("func", "recordRepository.ApplyPush").
				Str("client_id", rec.ID).
				Msg("failed to upsert pushed record")
			return result, err
		}
		result.Created++
		result.Applied = append(result.Applied, models.AppliedChange{
			ClientID:    rec.ID,
			ServerID:    serverID,
			Action:      models.ActionCreate,
			SyncVersion: version,
		})
	}

	for _, upd := range req.Updated {
		version, err = r.applyUpdate(ctx, tx, userID, upd, version, &result)
		if err != nil {
			return result, err
		}
	}

	for _, serverID := range req.Deleted {
		var clientID string
		clientID, err = tombstoneRecord(ctx, tx, userID, serverID, version+1)
		if err != nil {
			log.Err(err).
				Str("func", "recordRepository.ApplyPush").
				Int64("server_id", serverID).
				Msg("failed to tombstone record")
			return result, err
		}
		if clientID != "" {
			version++
			result.Deleted++
			result.Applied = append(result.Applied, models.AppliedChange{
				ClientID:    clientID,
				ServerID:    serverID,
				Action:      models.ActionDelete,
				SyncVersion: version,
			})
		}
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE sync_counters SET version = $1 WHERE user_id = $2`, version, userID); err != nil {
		return result, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	if err = tx.Commit(); err != nil {
		return result, fmt.Errorf("%w: %w", ErrCommitTransaction, err)
	}

	result.ServerVersion = version
	return result, nil
}

func (r *recordRepository) PurgeTombstones(ctx context.Context, userID int64, before time.Time) (int64, error) {
	query, args, err := psql.Delete("records").
		Where(sq.Eq{"user_id": userID}).
		Where(sq.NotEq{"deleted_at": nil}).
		Where(sq.Lt{"deleted_at": before}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build purge query: %w", err)
	}

	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	return res.RowsAffected()
}

// lockCounter ensures userID has a counter row and locks it for the
// duration of the transaction, returning the current value.
func lockCounter(ctx context.Context, tx *sql.Tx, userID int64) (int64, error) {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sync_counters (user_id, version) VALUES ($1, 0)
		 ON CONFLICT (user_id) DO NOTHING`, userID); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	var version int64
	err := tx.QueryRowContext(ctx,
		`SELECT version FROM sync_counters WHERE user_id = $1 FOR UPDATE`, userID).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	return version, nil
}

// upsertRecord inserts a pushed create and returns the server-assigned id.
// A record that already exists for (user, client id) is updated in place so
// retried pushes stay idempotent, but still consumes the fresh version so
// other devices see the latest state.
func upsertRecord(ctx context.Context, tx *sql.Tx, userID int64, rec models.Record, version int64) (int64, error) {
	query, args, err := psql.Insert("records").
		Columns("user_id", "client_id", "type", "amount", "category",
			"record_date", "note", "ledger_id", "created_at", "updated_at", "sync_version").
		Values(userID, rec.ID, rec.Type, rec.Amount, rec.Category,
			rec.Date.Time, rec.Note, rec.LedgerID, rec.CreatedAt, rec.UpdatedAt, version).
		Suffix(`ON CONFLICT (user_id, client_id) DO UPDATE SET
			type = EXCLUDED.type,
			amount = EXCLUDED.amount,
			category = EXCLUDED.category,
			record_date = EXCLUDED.record_date,
			note = EXCLUDED.note,
			ledger_id = EXCLUDED.ledger_id,
			updated_at = EXCLUDED.updated_at,
			deleted_at = NULL,
			sync_version = EXCLUDED.sync_version
		RETURNING id`).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build upsert query: %w", err)
	}

	var serverID int64
	if err = tx.QueryRowContext(ctx, query, args...).Scan(&serverID); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	return serverID, nil
}

// applyUpdate applies one pushed partial update under optimistic
// concurrency. A missing record or a stale sync version is reported as a
// version_mismatch conflict and leaves the stored record unchanged.
func (r *recordRepository) applyUpdate(
	ctx context.Context,
	tx *sql.Tx,
	userID int64,
	upd models.RecordUpdate,
	version int64,
	result *RecordApplyResult,
) (int64, error) {
	var (
		stored   int64
		serverID int64
		clientID string
		err      error
	)
	if upd.ServerID != 0 {
		err = tx.QueryRowContext(ctx,
			`SELECT id, client_id, sync_version FROM records WHERE id = $1 AND user_id = $2`,
			upd.ServerID, userID).Scan(&serverID, &clientID, &stored)
	} else {
		// Updates may address a record by client id alone when the device
		// has not learned the server id yet.
		err = tx.QueryRowContext(ctx,
			`SELECT id, client_id, sync_version FROM records WHERE client_id = $1 AND user_id = $2`,
			upd.ClientID, userID).Scan(&serverID, &clientID, &stored)
	}
	if errors.Is(err, sql.ErrNoRows) || (err == nil && stored != upd.SyncVersion) {
		result.Conflicts = append(result.Conflicts, models.PushConflict{
			ClientID: upd.ClientID,
			ServerID: upd.ServerID,
			Type:     "update",
			Reason:   models.ReasonVersionMismatch,
		})
		return version, nil
	}
	if err != nil {
		return version, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	version++
	builder := psql.Update("records").
		Set("updated_at", upd.UpdatedAt).
		Set("sync_version", version)
	if upd.Type != nil {
		builder = builder.Set("type", *upd.Type)
	}
	if upd.Amount != nil {
		builder = builder.Set("amount", *upd.Amount)
	}
	if upd.Category != nil {
		builder = builder.Set("category", *upd.Category)
	}
	if upd.Date != nil {
		builder = builder.Set("record_date", upd.Date.Time)
	}
	if upd.Note != nil {
		builder = builder.Set("note", *upd.Note)
	}
	if upd.LedgerID != nil {
		builder = builder.Set("ledger_id", *upd.LedgerID)
	}

	query, args, err := builder.
		Where(sq.Eq{"id": serverID, "user_id": userID}).
		ToSql()
	if err != nil {
		return version, fmt.Errorf("build update query: %w", err)
	}

	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return version, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	result.Updated++
	result.Applied = append(result.Applied, models.AppliedChange{
		ClientID:    clientID,
		ServerID:    serverID,
		Action:      models.ActionUpdate,
		SyncVersion: version,
	})
	return version, nil
}

// tombstoneRecord soft-deletes one record and returns its client id, or an
// empty string when the id does not exist, does not belong to userID, or is
// already deleted: deleting somebody else's record is silently ignored, not
// an error.
func tombstoneRecord(ctx context.Context, tx *sql.Tx, userID, serverID, version int64) (string, error) {
	var clientID string
	err := tx.QueryRowContext(ctx,
		`UPDATE records SET deleted_at = NOW(), updated_at = NOW(), sync_version = $1
		 WHERE id = $2 AND user_id = $3 AND deleted_at IS NULL
		 RETURNING client_id`,
		version, serverID, userID).Scan(&clientID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	return clientID, nil
}

func scanServerRecords(rows *sql.Rows) ([]models.ServerRecord, error) {
	results := make([]models.ServerRecord, 0, 50)

	for rows.Next() {
		var (
			rec  models.ServerRecord
			date time.Time
		)
		scanErr := rows.Scan(
			&rec.ServerID,
			&rec.UserID,
			&rec.Record.ID,
			&rec.Type,
			&rec.Amount,
			&rec.Category,
			&date,
			&rec.Note,
			&rec.LedgerID,
			&rec.CreatedAt,
			&rec.UpdatedAt,
			&rec.DeletedAt,
			&rec.SyncVersion,
		)
		if scanErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
		}
		rec.Date = models.DateOf(date)

		results = append(results, rec)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
	}

	return results, nil
}
