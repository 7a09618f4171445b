package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Mr-wang007s/personal-accounting-sub000/models"
	"github.com/shopspring/decimal"
)

const upsertLocalRecord = `
INSERT INTO records (id, type, amount, category, record_date, note, ledger_id, created_at, updated_at, deleted_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	type = excluded.type,
	amount = excluded.amount,
	category = excluded.category,
	record_date = excluded.record_date,
	note = excluded.note,
	ledger_id = excluded.ledger_id,
	updated_at = excluded.updated_at,
	deleted_at = excluded.deleted_at;`

const selectLocalRecord = `
SELECT id, type, amount, category, record_date, note, ledger_id, created_at, updated_at, deleted_at
FROM records WHERE id = ?;`

const selectAllLocalRecords = `
SELECT id, type, amount, category, record_date, note, ledger_id, created_at, updated_at, deleted_at
FROM records ORDER BY record_date DESC, id;`

// localRecordRepository is the SQLite implementation of
// [LocalRecordRepository]. Amounts are stored as decimal strings and dates
// in their calendar form so that nothing is lost to float conversion.
type localRecordRepository struct {
	db *ClientDB
}

// NewLocalRecordRepository constructs a [LocalRecordRepository] backed by
// the given client database.
func NewLocalRecordRepository(db *ClientDB) LocalRecordRepository {
	return &localRecordRepository{db: db}
}

func (r *localRecordRepository) Save(ctx context.Context, records ...models.Record) error {
	for _, rec := range records {
		if _, err := r.db.ExecContext(ctx, upsertLocalRecord, localRecordArgs(rec)...); err != nil {
			return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
		}
	}
	return nil
}

func (r *localRecordRepository) Get(ctx context.Context, id string) (models.Record, error) {
	row := r.db.QueryRowContext(ctx, selectLocalRecord, id)

	rec, err := scanLocalRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Record{}, ErrRecordNotFound
	}
	if err != nil {
		return models.Record{}, err
	}
	return rec, nil
}

func (r *localRecordRepository) GetAll(ctx context.Context) ([]models.Record, error) {
	rows, err := r.db.QueryContext(ctx, selectAllLocalRecords)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	records := make([]models.Record, 0, 50)
	for rows.Next() {
		rec, scanErr := scanLocalRecord(rows.Scan)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, rec)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
	}
	return records, nil
}

func (r *localRecordRepository) Delete(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		if _, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id); err != nil {
			return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
		}
	}
	return nil
}

func (r *localRecordRepository) ReplaceAll(ctx context.Context, records []models.Record) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBeginTransaction, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err = tx.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	for _, rec := range records {
		if _, err = tx.ExecContext(ctx, upsertLocalRecord, localRecordArgs(rec)...); err != nil {
			return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", ErrCommitTransaction, err)
	}
	return nil
}

func localRecordArgs(rec models.Record) []any {
	return []any{
		rec.ID,
		string(rec.Type),
		rec.Amount.String(),
		rec.Category,
		rec.Date.String(),
		rec.Note,
		rec.LedgerID,
		rec.CreatedAt,
		rec.UpdatedAt,
		rec.DeletedAt,
	}
}

func scanLocalRecord(scan func(dest ...any) error) (models.Record, error) {
	var (
		rec        models.Record
		recType    string
		amount     string
		recordDate string
	)
	err := scan(
		&rec.ID,
		&recType,
		&amount,
		&rec.Category,
		&recordDate,
		&rec.Note,
		&rec.LedgerID,
		&rec.CreatedAt,
		&rec.UpdatedAt,
		&rec.DeletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Record{}, err
	}
	if err != nil {
		return models.Record{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	rec.Type = models.RecordType(recType)

	rec.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return models.Record{}, fmt.Errorf("%w: parse amount %q: %w", ErrScanningRow, amount, err)
	}

	date, err := time.Parse("2006-01-02", recordDate)
	if err != nil {
		return models.Record{}, fmt.Errorf("%w: parse date %q: %w", ErrScanningRow, recordDate, err)
	}
	rec.Date = models.DateOf(date)

	return rec, nil
}
